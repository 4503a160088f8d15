package faceclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestIdentifyCountsUnmatchedFaces(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/identify" {
			t.Errorf("expected path /identify, got %s", r.URL.Path)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"matches":        []map[string]any{{"employee_id": "e1", "similarity": 0.97}},
			"faces_detected": 3,
		})
	}))
	defer srv.Close()

	c := New(srv.URL, false)
	res, err := c.Identify(context.Background(), []byte("frame"))
	if err != nil {
		t.Fatalf("identify failed: %v", err)
	}
	if len(res.Matches) != 1 || res.Matches[0].EmployeeID != "e1" {
		t.Errorf("unexpected matches %+v", res.Matches)
	}
	if res.FacesDetected != 3 {
		t.Errorf("expected 3 faces detected, got %d", res.FacesDetected)
	}
	if res.Unmatched != 2 {
		t.Errorf("expected 2 unmatched, got %d", res.Unmatched)
	}
}

func TestIdentifyEmptyImage(t *testing.T) {
	c := New("http://localhost:1", false)
	if _, err := c.Identify(context.Background(), nil); err == nil {
		t.Error("expected error for empty image")
	}
}

func TestIdentifySkipModeReturnsMock(t *testing.T) {
	c := New("", true)
	res, err := c.Identify(context.Background(), nil)
	if err != nil {
		t.Fatalf("skip mode must not fail: %v", err)
	}
	if len(res.Matches) != 1 {
		t.Fatalf("expected one mock match, got %d", len(res.Matches))
	}
}

func TestEnrollReturnsFaceRef(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body["employee_id"] != "e1" {
			t.Errorf("expected employee_id e1, got %q", body["employee_id"])
		}
		_ = json.NewEncoder(w).Encode(map[string]string{
			"face_ref": "gallery/e1",
			"message":  "enrolled",
		})
	}))
	defer srv.Close()

	c := New(srv.URL, false)
	res, err := c.Enroll(context.Background(), "e1", "Ada", []byte("photo"))
	if err != nil {
		t.Fatalf("enroll failed: %v", err)
	}
	if res.FaceRef != "gallery/e1" {
		t.Errorf("expected face ref gallery/e1, got %q", res.FaceRef)
	}
}

func TestErrorStatusIncludesBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "no face found", http.StatusUnprocessableEntity)
	}))
	defer srv.Close()

	c := New(srv.URL, false)
	_, err := c.Identify(context.Background(), []byte("frame"))
	if err == nil {
		t.Fatal("expected error on 422 response")
	}
}

func TestHealth(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/health" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := New(srv.URL, false)
	if err := c.Health(context.Background()); err != nil {
		t.Errorf("expected healthy, got %v", err)
	}
}
