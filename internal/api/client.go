// ABOUTME: REST client for the remote training service.
// ABOUTME: Sessions initialize/list/upsert, exercise upsert/delete, health probe.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/harperreed/crux/internal/models"
)

const defaultTimeout = 15 * time.Second

// Client talks to the remote training service. All requests go through
// the authenticated transport; a 401 surviving its refresh-retry cycle is
// returned as ErrAuthExpired.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient creates a client for the service at baseURL.
func NewClient(baseURL string, tokens TokenSource) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http: &http.Client{
			Timeout:   defaultTimeout,
			Transport: &authTransport{base: http.DefaultTransport, tokens: tokens},
		},
	}
}

// sessionUpsert is the wire payload for session mutable fields.
type sessionUpsert struct {
	Week        int        `json:"week"`
	Day         string     `json:"day"`
	Focus       string     `json:"focus"`
	Completed   bool       `json:"completed"`
	Notes       string     `json:"notes,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// exerciseUpsert is the wire payload for one completion record. The
// idempotency key rides in the payload so the server can de-duplicate on
// its side as well.
type exerciseUpsert struct {
	ID             string    `json:"id"`
	SessionID      string    `json:"session_id"`
	ExerciseID     string    `json:"exercise_id,omitempty"`
	Title          string    `json:"title"`
	IdempotencyKey string    `json:"idempotency_key"`
	Notes          string    `json:"notes,omitempty"`
	CompletedOn    time.Time `json:"completed_on"`
}

// Healthy probes the service. Used by the reachability monitor.
func (c *Client) Healthy(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/v1/health", nil, nil)
}

// InitializeSessions asks the server to derive session records from the
// plan's weekly schedule. Idempotent; safe to call repeatedly.
func (c *Client) InitializeSessions(ctx context.Context, planID string) error {
	path := fmt.Sprintf("/v1/plans/%s/sessions/initialize", planID)
	return c.do(ctx, http.MethodPost, path, nil, nil)
}

// ListSessions returns the canonical session list for a plan. An empty
// list is a valid response, not an error.
func (c *Client) ListSessions(ctx context.Context, planID string) ([]models.SessionRecord, error) {
	path := fmt.Sprintf("/v1/plans/%s/sessions", planID)
	var out []models.SessionRecord
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// UpsertSession pushes one session's mutable fields.
func (c *Client) UpsertSession(ctx context.Context, s models.SessionRecord) error {
	path := fmt.Sprintf("/v1/plans/%s/sessions/%s", s.PlanID, s.ID)
	payload := sessionUpsert{
		Week:        s.Week,
		Day:         s.Day,
		Focus:       s.Focus,
		Completed:   s.Completed,
		Notes:       s.Notes,
		CompletedAt: s.CompletedAt,
		UpdatedAt:   s.UpdatedAt,
	}
	return c.do(ctx, http.MethodPost, path, payload, nil)
}

// UpsertExercise pushes one completion record; the server creates it if
// absent and updates it if present.
func (c *Client) UpsertExercise(ctx context.Context, e models.ExerciseCompletion) error {
	path := fmt.Sprintf("/v1/plans/%s/exercises", e.PlanID)
	payload := exerciseUpsert{
		ID:             e.ID,
		SessionID:      e.SessionID,
		ExerciseID:     e.ExerciseID,
		Title:          e.Title,
		IdempotencyKey: e.IdempotencyKey,
		Notes:          e.Notes,
		CompletedOn:    e.CompletedOn,
	}
	return c.do(ctx, http.MethodPost, path, payload, nil)
}

// DeleteExercise removes one completion record. A 404 means the record is
// already gone remotely and counts as success, so a deletion can never
// retry-loop against a record that no longer exists.
func (c *Client) DeleteExercise(ctx context.Context, planID, id string) error {
	path := fmt.Sprintf("/v1/plans/%s/exercises/%s", planID, id)
	err := c.do(ctx, http.MethodDelete, path, nil, nil)
	if IsNotFound(err) {
		return nil
	}
	return err
}

// do performs one request, mapping non-2xx responses to the error
// taxonomy and decoding a JSON body into out when provided.
func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusUnauthorized {
		return fmt.Errorf("%s %s: %w", method, path, ErrAuthExpired)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &Error{
			Op:         method + " " + path,
			StatusCode: resp.StatusCode,
			Message:    strings.TrimSpace(string(msg)),
		}
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}
