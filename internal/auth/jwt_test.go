package auth

import (
	"testing"
	"time"
)

const testKey = "test-signing-key"

func TestIssueAndParse(t *testing.T) {
	tok, err := Issue("terminal-1", "staff", "facetrack", testKey, time.Hour)
	if err != nil {
		t.Fatalf("issue failed: %v", err)
	}
	if tok.Value == "" {
		t.Fatal("expected a signed token")
	}
	if time.Until(tok.ExpiresAt) < 55*time.Minute {
		t.Errorf("expected roughly one hour of validity, got %v", time.Until(tok.ExpiresAt))
	}

	claims, err := Parse(tok.Value, testKey, "facetrack")
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if claims.Subject != "terminal-1" {
		t.Errorf("expected subject terminal-1, got %q", claims.Subject)
	}
	if claims.Role != "staff" {
		t.Errorf("expected role staff, got %q", claims.Role)
	}
}

func TestParseWrongKey(t *testing.T) {
	tok, err := Issue("terminal-1", "staff", "facetrack", testKey, time.Hour)
	if err != nil {
		t.Fatalf("issue failed: %v", err)
	}
	if _, err := Parse(tok.Value, "other-key", "facetrack"); err == nil {
		t.Error("expected error for wrong signing key")
	}
}

func TestParseIssuerMismatch(t *testing.T) {
	tok, err := Issue("terminal-1", "staff", "someone-else", testKey, time.Hour)
	if err != nil {
		t.Fatalf("issue failed: %v", err)
	}
	if _, err := Parse(tok.Value, testKey, "facetrack"); err == nil {
		t.Error("expected error for issuer mismatch")
	}
}

func TestParseExpiredToken(t *testing.T) {
	tok, err := Issue("terminal-1", "staff", "facetrack", testKey, -time.Minute)
	if err != nil {
		t.Fatalf("issue failed: %v", err)
	}
	if _, err := Parse(tok.Value, testKey, "facetrack"); err == nil {
		t.Error("expected error for expired token")
	}
}

func TestParseGarbage(t *testing.T) {
	if _, err := Parse("not-a-token", testKey, "facetrack"); err == nil {
		t.Error("expected error for malformed token")
	}
}
