// Package remote provides the HTTP client for the Stillpoint sync backend.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/evelynmak/stillpoint/core/internal/config"
	apperrors "github.com/evelynmak/stillpoint/core/internal/errors"
)

// Client talks JSON to the sync backend. Records live under
// /v1/records/{entityType}/{id}.
type Client struct {
	baseURL    string
	authToken  string
	httpClient *http.Client
}

// NewClient creates a Client from the remote configuration.
func NewClient(cfg config.RemoteConfig) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	return &Client{
		baseURL:   cfg.BaseURL,
		authToken: cfg.AuthToken,
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:    10,
				IdleConnTimeout: 30 * time.Second,
			},
		},
	}
}

// Create inserts a record on the backend.
func (c *Client) Create(ctx context.Context, entityType, id string, data map[string]interface{}) error {
	return c.write(ctx, http.MethodPost, entityType, id, data)
}

// Update replaces a record on the backend.
func (c *Client) Update(ctx context.Context, entityType, id string, data map[string]interface{}) error {
	return c.write(ctx, http.MethodPut, entityType, id, data)
}

// Delete removes a record on the backend. Deleting a record that does
// not exist is not an error.
func (c *Client) Delete(ctx context.Context, entityType, id string) error {
	req, err := c.newRequest(ctx, http.MethodDelete, c.recordURL(entityType, id), nil)
	if err != nil {
		return err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return apperrors.Wrap(apperrors.ErrRemoteUnreached, "delete request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil
	}
	return c.checkStatus(resp)
}

// Fetch retrieves a record. The second return value reports whether the
// record exists on the backend.
func (c *Client) Fetch(ctx context.Context, entityType, id string) (map[string]interface{}, bool, error) {
	req, err := c.newRequest(ctx, http.MethodGet, c.recordURL(entityType, id), nil)
	if err != nil {
		return nil, false, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, false, apperrors.Wrap(apperrors.ErrRemoteUnreached, "fetch request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, false, nil
	}
	if err := c.checkStatus(resp); err != nil {
		return nil, false, err
	}

	var data map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return nil, false, apperrors.Wrap(apperrors.ErrSerialize, "failed to decode remote record", err)
	}
	return data, true, nil
}

// write sends a JSON body with the given method.
func (c *Client) write(ctx context.Context, method, entityType, id string, data map[string]interface{}) error {
	body, err := json.Marshal(data)
	if err != nil {
		return apperrors.Wrap(apperrors.ErrSerialize, "failed to encode record", err)
	}

	req, err := c.newRequest(ctx, method, c.recordURL(entityType, id), bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return apperrors.Wrap(apperrors.ErrRemoteUnreached, "write request failed", err)
	}
	defer resp.Body.Close()

	return c.checkStatus(resp)
}

func (c *Client) newRequest(ctx context.Context, method, rawURL string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, rawURL, body)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternal, "failed to build request", err)
	}
	if c.authToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.authToken)
	}
	req.Header.Set("Accept", "application/json")
	return req, nil
}

func (c *Client) recordURL(entityType, id string) string {
	return fmt.Sprintf("%s/v1/records/%s/%s",
		c.baseURL, url.PathEscape(entityType), url.PathEscape(id))
}

// checkStatus maps non-2xx responses onto application errors. An
// authentication rejection gets its own code so the queue processor can
// abort the pass instead of retrying item by item.
func (c *Client) checkStatus(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	msg := fmt.Sprintf("backend returned status %d: %s", resp.StatusCode, string(body))

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return apperrors.New(apperrors.ErrSyncAuthFailed, msg)
	}
	return apperrors.New(apperrors.ErrRemoteRejected, msg)
}
