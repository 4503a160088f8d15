package faceclient

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Match is one face in a frame resolved to an enrolled employee.
type Match struct {
	EmployeeID string  `json:"employee_id"`
	Similarity float64 `json:"similarity"`
}

// IdentifyResult contains the per-frame identification outcome. Unmatched
// counts faces that were detected but resolved to nobody.
type IdentifyResult struct {
	Matches       []Match
	FacesDetected int
	Unmatched     int
}

// EnrollResult contains face enrollment response.
type EnrollResult struct {
	FaceRef string
	Message string
}

// Client calls the face recognition microservice.
type Client struct {
	BaseURL string
	HTTP    *http.Client
	Skip    bool
}

// New creates a client with configurable timeout.
func New(baseURL string, skip bool) *Client {
	return &Client{
		BaseURL: baseURL,
		Skip:    skip,
		HTTP: &http.Client{
			Timeout: 30 * time.Second, // Face processing can take time
		},
	}
}

// Identify resolves every face in the frame against the enrolled gallery.
func (c *Client) Identify(ctx context.Context, image []byte) (*IdentifyResult, error) {
	if c.Skip {
		return &IdentifyResult{
			Matches:       []Match{{EmployeeID: "mock-employee", Similarity: 0.92}},
			FacesDetected: 1,
		}, nil
	}
	if len(image) == 0 {
		return nil, fmt.Errorf("image required")
	}

	var out struct {
		Matches       []Match `json:"matches"`
		FacesDetected int     `json:"faces_detected"`
	}
	if err := c.post(ctx, "/identify", map[string]any{
		"image": base64.StdEncoding.EncodeToString(image),
	}, &out); err != nil {
		return nil, err
	}
	return &IdentifyResult{
		Matches:       out.Matches,
		FacesDetected: out.FacesDetected,
		Unmatched:     out.FacesDetected - len(out.Matches),
	}, nil
}

// Enroll registers a face for 1:N identification and returns the gallery
// reference the caller should persist.
func (c *Client) Enroll(ctx context.Context, employeeID, name string, image []byte) (*EnrollResult, error) {
	if c.Skip {
		return &EnrollResult{FaceRef: "mock-face/" + employeeID, Message: "Face enrolled (mock)"}, nil
	}
	if len(image) == 0 {
		return nil, fmt.Errorf("image required")
	}

	var out struct {
		FaceRef string `json:"face_ref"`
		Message string `json:"message"`
	}
	if err := c.post(ctx, "/enroll", map[string]any{
		"employee_id": employeeID,
		"name":        name,
		"image":       base64.StdEncoding.EncodeToString(image),
	}, &out); err != nil {
		return nil, err
	}
	return &EnrollResult{FaceRef: out.FaceRef, Message: out.Message}, nil
}

// Remove drops an employee's face from the gallery.
func (c *Client) Remove(ctx context.Context, employeeID string) error {
	if c.Skip {
		return nil
	}
	return c.post(ctx, "/remove", map[string]any{"employee_id": employeeID}, nil)
}

// Health checks if the face service is available.
func (c *Client) Health(ctx context.Context) error {
	if c.Skip {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"/health", nil)
	if err != nil {
		return err
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("face service unavailable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("face service unhealthy: %s", resp.Status)
	}

	return nil
}

func (c *Client) post(ctx context.Context, path string, payload any, out any) error {
	body, _ := json.Marshal(payload)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("face service request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("face service error %s: %s", resp.Status, string(bodyBytes))
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
