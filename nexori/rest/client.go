package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/DesarrolloAlpha/Nexori-sub001/nexori"
)

// Client provides REST API access to the Nexori backend.
// It only covers what the live sync layer needs; every write it performs is
// echoed back by the server as a broadcast.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// NewClient creates a new REST API client.
// baseURL should be the base URL of the API, e.g., "http://localhost:3000/api".
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// SetHTTPClient allows setting a custom HTTP client.
func (c *Client) SetHTTPClient(client *http.Client) {
	if client != nil {
		c.httpClient = client
	}
}

// SetToken sets the JWT token for authenticated requests.
func (c *Client) SetToken(token string) {
	c.token = token
}

// Authentication endpoints

// Login authenticates with existing credentials and returns a JWT token.
func (c *Client) Login(ctx context.Context, req LoginRequest) (*TokenResponse, error) {
	var resp TokenResponse
	if err := c.send(ctx, http.MethodPost, "/auth/login", req, &resp, false); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Panic event endpoints

// ListPanics returns every panic event visible to the user.
func (c *Client) ListPanics(ctx context.Context) ([]nexori.PanicEvent, error) {
	var resp panicListResponse
	if err := c.send(ctx, http.MethodGet, "/panic", nil, &resp, true); err != nil {
		return nil, err
	}
	return resp.Data, nil
}

// CreatePanic raises a new panic alert.
func (c *Client) CreatePanic(ctx context.Context, req CreatePanicRequest) (*nexori.PanicEvent, error) {
	var resp panicResponse
	if err := c.send(ctx, http.MethodPost, "/panic", req, &resp, true); err != nil {
		return nil, err
	}
	return &resp.Data, nil
}

// UpdatePanic changes fields of a panic event.
func (c *Client) UpdatePanic(ctx context.Context, id string, req UpdatePanicRequest) (*nexori.PanicEvent, error) {
	var resp panicResponse
	if err := c.send(ctx, http.MethodPut, "/panic/"+url.PathEscape(id), req, &resp, true); err != nil {
		return nil, err
	}
	return &resp.Data, nil
}

// AttendPanic marks a panic event as attended by the current user.
func (c *Client) AttendPanic(ctx context.Context, id, notes string) (*nexori.PanicEvent, error) {
	return c.UpdatePanic(ctx, id, UpdatePanicRequest{Status: nexori.PanicAttended, Notes: notes})
}

// ResolvePanic closes a panic event.
func (c *Client) ResolvePanic(ctx context.Context, id, notes string) (*nexori.PanicEvent, error) {
	return c.UpdatePanic(ctx, id, UpdatePanicRequest{Status: nexori.PanicResolved, Notes: notes})
}

// Helper methods

func (c *Client) send(ctx context.Context, method, path string, body, dest any, requireAuth bool) error {
	var bodyReader io.Reader = http.NoBody
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	if requireAuth && c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	return c.do(req, dest)
}

func (c *Client) do(req *http.Request, dest any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	// Handle error responses
	if resp.StatusCode >= 400 {
		var errResp ErrorResponse
		if err := json.Unmarshal(body, &errResp); err == nil && errResp.Error != "" {
			return fmt.Errorf("api error (status %d): %s", resp.StatusCode, errResp.Error)
		}
		return fmt.Errorf("http error: %s (status %d)", string(body), resp.StatusCode)
	}

	if dest != nil {
		if err := json.Unmarshal(body, dest); err != nil {
			return fmt.Errorf("unmarshal response: %w", err)
		}
	}

	return nil
}
