// Package agentindex is the HTTP client for the external identity-search
// index kept in sync with profile group membership. Calls are
// fire-and-forget: no retry and no idempotency guarantee at this layer, so
// a caller must not issue two calls for the same logical change.
package agentindex

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/your-org/faceid/internal/config"
	"github.com/your-org/faceid/internal/observability"
)

// Template is the biometric template attached to an index entry.
type Template struct {
	ID         uuid.UUID `json:"id"`
	Type       string    `json:"type"`
	BinaryData string    `json:"binary_data"` // base64
}

// ProfileEntry is the index-side representation of a profile.
type ProfileEntry struct {
	ProfileID     uuid.UUID   `json:"profile_id"`
	PersonID      uuid.UUID   `json:"person_id"`
	ProfileGroups []uuid.UUID `json:"profile_groups"`
	Template      *Template   `json:"template,omitempty"`
}

type Client struct {
	baseURL string
	http    *http.Client
}

func NewClient(cfg config.IndexConfig) *Client {
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		http:    &http.Client{Timeout: cfg.Timeout},
	}
}

func (c *Client) AddProfile(ctx context.Context, entry ProfileEntry) error {
	observability.IndexCalls.WithLabelValues("add").Inc()
	return c.send(ctx, http.MethodPost, c.baseURL+"/profiles", entry)
}

func (c *Client) UpdateProfile(ctx context.Context, entry ProfileEntry) error {
	observability.IndexCalls.WithLabelValues("update").Inc()
	return c.send(ctx, http.MethodPut, c.baseURL+"/profiles/"+entry.ProfileID.String(), entry)
}

func (c *Client) DeleteProfile(ctx context.Context, profileID, personID uuid.UUID) error {
	observability.IndexCalls.WithLabelValues("delete").Inc()
	url := fmt.Sprintf("%s/profiles/%s?person_id=%s", c.baseURL, profileID, personID)
	return c.send(ctx, http.MethodDelete, url, nil)
}

func (c *Client) send(ctx context.Context, method, url string, payload any) error {
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("marshal index payload: %w", err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return fmt.Errorf("build index request: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("call index service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("call index service: %s %s returned %d: %s", method, url, resp.StatusCode, msg)
	}
	return nil
}
