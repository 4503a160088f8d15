package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"golang.org/x/crypto/bcrypt"
)

var (
	// ErrUserNotFound means no such account exists.
	ErrUserNotFound = errors.New("user not found")
	// ErrBadCredentials means the username/password pair did not match.
	ErrBadCredentials = errors.New("incorrect username or password")
)

// User is an API account allowed to operate terminals and reports.
type User struct {
	ID        int       `json:"id"`
	Username  string    `json:"username"`
	Active    bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
}

// Users persists API accounts with bcrypt-hashed passwords.
type Users struct {
	db *sql.DB
}

// NewUsers creates the account repository.
func NewUsers(db *sql.DB) *Users {
	return &Users{db: db}
}

// Create registers an account.
func (u *Users) Create(ctx context.Context, username, password string) (User, error) {
	if username == "" || password == "" {
		return User{}, errors.New("username and password required")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return User{}, err
	}
	usr := User{Username: username, Active: true}
	row := u.db.QueryRowContext(ctx, `
		INSERT INTO users (username, password_hash)
		VALUES ($1, $2)
		RETURNING id, created_at
	`, username, string(hash))
	if err := row.Scan(&usr.ID, &usr.CreatedAt); err != nil {
		return User{}, fmt.Errorf("create user: %w", err)
	}
	return usr, nil
}

// Authenticate checks a username/password pair against the stored hash.
func (u *Users) Authenticate(ctx context.Context, username, password string) (User, error) {
	var (
		usr  User
		hash string
	)
	err := u.db.QueryRowContext(ctx, `
		SELECT id, username, password_hash, is_active, created_at
		FROM users WHERE username = $1
	`, username).Scan(&usr.ID, &usr.Username, &hash, &usr.Active, &usr.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return User{}, ErrBadCredentials
	}
	if err != nil {
		return User{}, fmt.Errorf("authenticate: %w", err)
	}
	if !usr.Active {
		return User{}, ErrBadCredentials
	}
	if bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) != nil {
		return User{}, ErrBadCredentials
	}
	return usr, nil
}

// Get returns an account by id.
func (u *Users) Get(ctx context.Context, id int) (User, error) {
	var usr User
	err := u.db.QueryRowContext(ctx, `
		SELECT id, username, is_active, created_at FROM users WHERE id = $1
	`, id).Scan(&usr.ID, &usr.Username, &usr.Active, &usr.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return User{}, fmt.Errorf("user %d: %w", id, ErrUserNotFound)
	}
	if err != nil {
		return User{}, fmt.Errorf("get user: %w", err)
	}
	return usr, nil
}

// Update replaces username and password.
func (u *Users) Update(ctx context.Context, id int, username, password string) (User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return User{}, err
	}
	res, err := u.db.ExecContext(ctx, `
		UPDATE users SET username = $2, password_hash = $3 WHERE id = $1
	`, id, username, string(hash))
	if err != nil {
		return User{}, fmt.Errorf("update user: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return User{}, err
	}
	if n == 0 {
		return User{}, fmt.Errorf("user %d: %w", id, ErrUserNotFound)
	}
	return u.Get(ctx, id)
}

// Delete removes an account.
func (u *Users) Delete(ctx context.Context, id int) error {
	res, err := u.db.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("user %d: %w", id, ErrUserNotFound)
	}
	return nil
}
