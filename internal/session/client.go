package session

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"
)

// Outcome is one classifier result for one detected face in one capture.
// EmployeeID is empty for unrecognized faces.
type Outcome struct {
	EmployeeID string `json:"employee_id,omitempty"`
	Message    string `json:"message"`
}

// CheckInReply is the attendance side's answer to an admitted outcome.
type CheckInReply struct {
	RecordID string `json:"record_id"`
	Created  bool   `json:"created"`
	Message  string `json:"message"`
}

// Client wraps the capture-and-classify round trip against the API for one
// authenticated terminal.
type Client struct {
	BaseURL string
	HTTP    *http.Client

	mu    sync.Mutex
	token string
}

// NewClient creates a terminal client.
func NewClient(baseURL string) *Client {
	return &Client{
		BaseURL: baseURL,
		HTTP:    &http.Client{Timeout: 30 * time.Second},
	}
}

// SetToken installs a bearer token obtained out of band.
func (c *Client) SetToken(token string) {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
}

// Login authenticates the terminal's account and stores the access token.
func (c *Client) Login(ctx context.Context, username, password string) error {
	var out struct {
		AccessToken string `json:"access_token"`
	}
	if err := c.post(ctx, "/v1/auth/login", map[string]string{
		"username": username,
		"password": password,
	}, &out, false); err != nil {
		return err
	}
	if out.AccessToken == "" {
		return fmt.Errorf("login returned no token")
	}
	c.SetToken(out.AccessToken)
	return nil
}

// Submit sends one frame for classification and returns one outcome per
// detected face. It never mutates attendance state.
func (c *Client) Submit(ctx context.Context, frame []byte) ([]Outcome, error) {
	var out struct {
		Outcomes []Outcome `json:"outcomes"`
	}
	if err := c.post(ctx, "/v1/captures", map[string]string{
		"image": base64.StdEncoding.EncodeToString(frame),
	}, &out, true); err != nil {
		return nil, err
	}
	return out.Outcomes, nil
}

// CheckIn records a check-in for a recognized employee.
func (c *Client) CheckIn(ctx context.Context, employeeID string) (CheckInReply, error) {
	var out struct {
		Record struct {
			ID string `json:"id"`
		} `json:"record"`
		Created bool   `json:"created"`
		Message string `json:"message"`
	}
	if err := c.post(ctx, "/v1/checkins", map[string]string{
		"employee_id": employeeID,
	}, &out, true); err != nil {
		return CheckInReply{}, err
	}
	return CheckInReply{RecordID: out.Record.ID, Created: out.Created, Message: out.Message}, nil
}

func (c *Client) post(ctx context.Context, path string, payload any, out any, authed bool) error {
	body, _ := json.Marshal(payload)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if authed {
		c.mu.Lock()
		token := c.token
		c.mu.Unlock()
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("api request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("api error %s: %s", resp.Status, string(bodyBytes))
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
