package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// ErrBusy is returned when the daemon rejects an attempt because another is
// in flight.
var ErrBusy = errors.New("daemon busy with another attempt")

// StatusError is a non-2xx daemon response.
type StatusError struct {
	Code    int
	Message string
	Kind    string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("daemon returned %d: %s", e.Code, e.Message)
}

// Is maps 409 responses to ErrBusy.
func (e *StatusError) Is(target error) bool {
	return target == ErrBusy && e.Code == http.StatusConflict
}

// Client talks to the daemon HTTP API.
type Client struct {
	base  string
	token string
	http  *http.Client
}

// NewClient builds a client for the daemon listening on bind (host:port or URL).
func NewClient(bind, token string) *Client {
	base := strings.TrimRight(strings.TrimSpace(bind), "/")
	if !strings.HasPrefix(base, "http://") && !strings.HasPrefix(base, "https://") {
		base = "http://" + base
	}
	return &Client{
		base:  base,
		token: strings.TrimSpace(token),
		// Identification can take as long as the capture timeout plus a full scan.
		http: &http.Client{Timeout: 5 * time.Minute},
	}
}

// Status retrieves the daemon status.
func (c *Client) Status(ctx context.Context) (*DaemonStatus, error) {
	var resp DaemonStatus
	if err := c.do(ctx, http.MethodGet, "/api/status", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Identify runs one identification attempt on the daemon.
func (c *Client) Identify(ctx context.Context) (*AttemptReport, error) {
	var resp AttemptReport
	if err := c.do(ctx, http.MethodPost, "/api/identify", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Enroll runs one enrollment attempt on the daemon.
func (c *Client) Enroll(ctx context.Context, identifier string) (*AttemptReport, error) {
	var resp AttemptReport
	if err := c.do(ctx, http.MethodPost, "/api/enroll", EnrollRequest{Identifier: identifier}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Records lists enrollments, optionally filtered by identifier substring.
func (c *Client) Records(ctx context.Context, filter string) ([]RecordSummary, error) {
	path := "/api/records"
	if filter = strings.TrimSpace(filter); filter != "" {
		path += "?filter=" + url.QueryEscape(filter)
	}
	var resp RecordListResponse
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Records, nil
}

// DeleteRecord removes one enrollment.
func (c *Client) DeleteRecord(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, "/api/records/"+strconv.FormatInt(id, 10), nil, nil)
}

// Events returns the most recent access events.
func (c *Client) Events(ctx context.Context, limit int) ([]AccessEvent, error) {
	path := "/api/events"
	if limit > 0 {
		path += "?limit=" + strconv.Itoa(limit)
	}
	var resp EventListResponse
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Events, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var apiErr ErrorResponse
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		if json.Unmarshal(raw, &apiErr) != nil || apiErr.Error == "" {
			apiErr.Error = strings.TrimSpace(string(raw))
		}
		return &StatusError{Code: resp.StatusCode, Message: apiErr.Error, Kind: apiErr.Kind}
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
