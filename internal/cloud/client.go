package cloud

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"focustrack/internal/model"
	"focustrack/internal/tracker"
)

// ErrNotSignedIn is returned when a request needs credentials and none
// are stored.
var ErrNotSignedIn = errors.New("cloud: not signed in")

// ErrNotFound is returned when the server has no record for the
// requested day.
var ErrNotFound = errors.New("cloud: record not found")

// CredentialsFunc returns the server URL and bearer token sync
// requests are made with, or ok=false when signed out. The client
// calls it per request so a token refresh needs no re-wiring.
type CredentialsFunc func() (server, token string, ok bool)

// Client implements tracker.CloudStore against a focustrack sync
// server.
type Client struct {
	creds   CredentialsFunc
	http    *http.Client
	timeout time.Duration
	logger  tracker.Logger
}

// Compile-time check that Client implements the CloudStore interface
var _ tracker.CloudStore = (*Client)(nil)

// NewClient creates a sync client. timeout bounds each request;
// subscriptions use it as their dial timeout.
func NewClient(creds CredentialsFunc, timeout time.Duration, logger tracker.Logger) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if logger == nil {
		logger = tracker.NewNopLogger()
	}
	return &Client{
		creds:   creds,
		http:    &http.Client{},
		timeout: timeout,
		logger:  logger,
	}
}

func (c *Client) Get(ctx context.Context, userID, dateKey string) (*tracker.DayRecord, error) {
	var out model.RecordPayload
	if err := c.doJSON(ctx, http.MethodGet, recordPath(userID, dateKey), nil, &out); err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return out.ToRecord()
}

func (c *Client) MergePut(ctx context.Context, userID string, rec tracker.DayRecord) error {
	body := model.PutPayload{
		FocusedMs:    rec.FocusedMs,
		DistractedMs: rec.DistractedMs,
		State:        string(rec.State),
	}
	return c.doJSON(ctx, http.MethodPut, recordPath(userID, rec.DateKey), body, nil)
}

func (c *Client) Delete(ctx context.Context, userID, dateKey string) error {
	if err := c.doJSON(ctx, http.MethodDelete, recordPath(userID, dateKey), nil, nil); err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil
		}
		return err
	}
	return nil
}

// Whoami verifies the stored token and returns the account id it
// belongs to.
func (c *Client) Whoami(ctx context.Context) (string, error) {
	var out struct {
		UserID string `json:"user_id"`
	}
	if err := c.doJSON(ctx, http.MethodGet, "/api/me", nil, &out); err != nil {
		return "", err
	}
	return out.UserID, nil
}

func recordPath(userID, dateKey string) string {
	return "/api/users/" + userID + "/records/" + dateKey
}

// doJSON performs one request with the stored credentials, decoding a
// JSON response into out when given.
func (c *Client) doJSON(ctx context.Context, method, path string, body, out any) error {
	server, token, ok := c.creds()
	if !ok {
		return ErrNotSignedIn
	}

	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding request: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	rctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(rctx, method, baseURL(server)+path, reqBody)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("%s %s: %w", method, path, ErrNotFound)
	case resp.StatusCode >= 400:
		return fmt.Errorf("%s %s: %s", method, path, responseError(resp))
	}

	if out != nil && resp.StatusCode != http.StatusNoContent {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decoding response: %w", err)
		}
	}
	return nil
}

// responseError extracts the server's error message when it sent one.
func responseError(resp *http.Response) string {
	var e struct {
		Error string `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&e); err == nil && e.Error != "" {
		return fmt.Sprintf("%s (%s)", e.Error, resp.Status)
	}
	return resp.Status
}

// baseURL normalizes the configured server URL for request building.
func baseURL(server string) string {
	return strings.TrimRight(server, "/")
}
