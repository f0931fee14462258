package studio

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/veloforge/dreamride/internal/errors"
)

// The peripheral calls (project bookkeeping, payments) tolerate transient
// backend hiccups with a fixed retry budget. The builder's core calls do
// not route through this helper on purpose: their failures belong to the
// rider, not to a retry loop.
const (
	retryAttempts = 3
	retryDelay    = 500 * time.Millisecond
)

type saveProjectRequest struct {
	SessionID string          `json:"session_id"`
	Name      string          `json:"name"`
	Snapshot  json.RawMessage `json:"snapshot"`
}

// SaveProject records a best-effort snapshot of the conversation on the
// backend's project record. Failures are logged, never surfaced: saving
// does not gate the state machine's progression.
func (c *Client) SaveProject(ctx context.Context, sessionID, name string, snapshot json.RawMessage) error {
	req := saveProjectRequest{SessionID: sessionID, Name: name, Snapshot: snapshot}
	if err := c.postJSONWithRetry(ctx, "/projects/save", req, nil); err != nil {
		return errors.Wrap(err, "save project", slog.String("session_id", sessionID))
	}
	return nil
}

type checkoutSessionRequest struct {
	SessionID string `json:"session_id"`
	Plan      string `json:"plan"`
}

type checkoutSessionResponse struct {
	CheckoutURL string `json:"checkout_url"`
}

// CreateCheckoutSession asks the backend's payment integration for a
// checkout URL to redirect the rider to.
func (c *Client) CreateCheckoutSession(ctx context.Context, sessionID, plan string) (string, error) {
	var resp checkoutSessionResponse
	req := checkoutSessionRequest{SessionID: sessionID, Plan: plan}
	if err := c.postJSONWithRetry(ctx, "/payments/checkout-session", req, &resp); err != nil {
		return "", errors.Wrap(err, "create checkout session")
	}
	return resp.CheckoutURL, nil
}

func (c *Client) postJSONWithRetry(ctx context.Context, urlPath string, in, out any) error {
	var err error
	for attempt := 1; attempt <= retryAttempts; attempt++ {
		if err = c.postJSON(ctx, urlPath, in, out); err == nil {
			return nil
		}
		if attempt == retryAttempts {
			break
		}
		c.logger.LogAttrs(ctx, slog.LevelDebug, "retrying request",
			slog.String("path", urlPath), slog.Int("attempt", attempt), errors.SlogError(err))
		select {
		case <-ctx.Done():
			return errors.Wrap(ctx.Err(), "context cancelled")
		case <-time.After(retryDelay):
		}
	}
	return err
}

// Healthy reports whether the backend answers its health endpoint.
func (c *Client) Healthy(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/healthy", nil)
	if err != nil {
		return errors.Wrap(err, "create request")
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return errors.Wrap(err, "health check")
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode != http.StatusOK {
		return errors.Wrap(ErrStatus, "health check", slog.Int("status", resp.StatusCode))
	}
	return nil
}
