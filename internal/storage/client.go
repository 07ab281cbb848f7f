// Package storage provides a client for a Supabase-style object store over
// HTTP. Objects live under bucket-scoped paths and are authorized with a
// service key bearer token.
package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// APIError reports a non-2xx response from the storage API.
type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("storage returned %d: %s", e.Status, e.Body)
}

// Store is the narrow interface the services depend on; *Client is the
// production implementation.
type Store interface {
	Put(ctx context.Context, path, contentType string, data []byte) error
	Get(ctx context.Context, path string) ([]byte, error)
	Delete(ctx context.Context, path string) error
	SignedURL(ctx context.Context, path string, ttl time.Duration) (string, error)
}

// Client talks to a Supabase storage endpoint.
type Client struct {
	BaseURL    string
	Bucket     string
	ServiceKey string
	HTTP       *http.Client
}

// NewClient builds a storage client for one bucket.
func NewClient(baseURL, bucket, serviceKey string) *Client {
	return &Client{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		Bucket:     bucket,
		ServiceKey: serviceKey,
		HTTP:       &http.Client{Timeout: 60 * time.Second},
	}
}

func (c *Client) objectURL(path string) string {
	return c.BaseURL + "/storage/v1/object/" + c.Bucket + "/" + strings.TrimLeft(path, "/")
}

func (c *Client) do(req *http.Request) ([]byte, error) {
	req.Header.Set("Authorization", "Bearer "+c.ServiceKey)
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 64<<20))
	if err != nil {
		return nil, fmt.Errorf("read storage response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &APIError{Status: resp.StatusCode, Body: strings.TrimSpace(string(raw))}
	}
	return raw, nil
}

// Put uploads an object, overwriting any existing one at path.
func (c *Client) Put(ctx context.Context, path, contentType string, data []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.objectURL(path), bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("x-upsert", "true")
	_, err = c.do(req)
	return err
}

// Get downloads an object's bytes.
func (c *Client) Get(ctx context.Context, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.objectURL(path), nil)
	if err != nil {
		return nil, err
	}
	return c.do(req)
}

// Delete removes an object. Deleting a missing object is an APIError with
// status 404; callers that treat that as success should check for it.
func (c *Client) Delete(ctx context.Context, path string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, c.objectURL(path), nil)
	if err != nil {
		return err
	}
	_, err = c.do(req)
	return err
}

// SignedURL creates a time-limited download URL for an object.
func (c *Client) SignedURL(ctx context.Context, path string, ttl time.Duration) (string, error) {
	body, err := json.Marshal(map[string]int{"expiresIn": int(ttl.Seconds())})
	if err != nil {
		return "", err
	}
	url := c.BaseURL + "/storage/v1/object/sign/" + c.Bucket + "/" + strings.TrimLeft(path, "/")
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	raw, err := c.do(req)
	if err != nil {
		return "", err
	}
	var out struct {
		SignedURL string `json:"signedURL"`
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return "", fmt.Errorf("decode sign response: %w", err)
	}
	if out.SignedURL == "" {
		return "", fmt.Errorf("sign response missing signedURL")
	}
	return c.BaseURL + "/storage/v1" + out.SignedURL, nil
}
