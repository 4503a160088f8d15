package session

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestClient_SubmitDecodesOutcomes(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/captures" {
			t.Errorf("expected path /v1/captures, got %s", r.URL.Path)
		}
		gotAuth = r.Header.Get("Authorization")
		var body struct {
			Image string `json:"image"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if body.Image == "" {
			t.Error("expected base64 image in request body")
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"outcomes": []map[string]string{
				{"employee_id": "emp-1", "message": "recognized"},
				{"message": "unknown"},
			},
		})
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	c.SetToken("test-token")

	outcomes, err := c.Submit(context.Background(), []byte("frame"))
	if err != nil {
		t.Fatalf("submit failed: %v", err)
	}
	if gotAuth != "Bearer test-token" {
		t.Errorf("expected bearer token header, got %q", gotAuth)
	}
	if len(outcomes) != 2 {
		t.Fatalf("expected 2 outcomes, got %d", len(outcomes))
	}
	if outcomes[0].EmployeeID != "emp-1" {
		t.Errorf("expected first outcome emp-1, got %q", outcomes[0].EmployeeID)
	}
	if outcomes[1].EmployeeID != "" {
		t.Errorf("expected second outcome unrecognized, got %q", outcomes[1].EmployeeID)
	}
}

func TestClient_SubmitErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"classifier failure"}`, http.StatusBadGateway)
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	if _, err := c.Submit(context.Background(), []byte("frame")); err == nil {
		t.Error("expected error on 502 response")
	}
}

func TestClient_LoginStoresToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/auth/login" {
			t.Errorf("expected path /v1/auth/login, got %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "" {
			t.Error("login must not send a bearer token")
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"access_token": "issued-token"})
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	if err := c.Login(context.Background(), "terminal", "secret"); err != nil {
		t.Fatalf("login failed: %v", err)
	}
	if c.token != "issued-token" {
		t.Errorf("expected stored token 'issued-token', got %q", c.token)
	}
}

func TestClient_CheckInReply(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"record":  map[string]string{"id": "rec-42"},
			"created": true,
			"message": "Check-in successful",
		})
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	c.SetToken("tok")

	reply, err := c.CheckIn(context.Background(), "emp-1")
	if err != nil {
		t.Fatalf("check-in failed: %v", err)
	}
	if reply.RecordID != "rec-42" {
		t.Errorf("expected record id rec-42, got %q", reply.RecordID)
	}
	if !reply.Created {
		t.Error("expected created=true")
	}
}
