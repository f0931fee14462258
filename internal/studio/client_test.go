package studio_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/veloforge/dreamride/internal/studio"
	"github.com/veloforge/dreamride/internal/testhelpers"
)

func TestClient_CompleteChat(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/chat/complete", r.URL.Path)
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		assert.JSONEq(t, `{"session_id":"sid-1","user_message":"2"}`, string(body))
		_, _ = w.Write([]byte(`{
			"ai_message": "Pick a color",
			"question_text": "Pick a color",
			"options": [{"number":1,"text":"Matte black","value":"matte-black"}],
			"current_step": 2,
			"total_steps": 15,
			"is_complete": false,
			"is_multiselect": false
		}`))
	}))
	defer srv.Close()

	client := studio.NewClient(srv.URL, testhelpers.NewLogger(io.Discard))
	turn, err := client.CompleteChat(context.Background(), "sid-1", "2")
	require.NoError(t, err)

	assert.Equal(t, "Pick a color", turn.AIMessage)
	assert.Equal(t, "Pick a color", turn.QuestionText)
	require.Len(t, turn.Options, 1)
	assert.Equal(t, "Matte black", turn.Options[0].Text)
	require.NotNil(t, turn.CurrentStep)
	assert.Equal(t, 2, *turn.CurrentStep)
	assert.False(t, turn.IsComplete)
}

func TestClient_CompleteChat_absentCountersStayNil(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"ai_message":"done","is_complete":true}`))
	}))
	defer srv.Close()

	client := studio.NewClient(srv.URL, testhelpers.NewLogger(io.Discard))
	turn, err := client.CompleteChat(context.Background(), "sid-1", "1")
	require.NoError(t, err)
	assert.Nil(t, turn.CurrentStep)
	assert.Nil(t, turn.TotalSteps)
	assert.True(t, turn.IsComplete)
}

func TestClient_ValidateMessage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/validate-custom-message", r.URL.Path)
		var req struct {
			Message string `json:"message"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "neon green flames", req.Message)
		_, _ = w.Write([]byte(`{
			"is_safe": false,
			"suggestions": ["flame decals"],
			"explanation": "not allowed",
			"risk_level": "high"
		}`))
	}))
	defer srv.Close()

	client := studio.NewClient(srv.URL, testhelpers.NewLogger(io.Discard))
	verdict, err := client.ValidateMessage(context.Background(), "neon green flames")
	require.NoError(t, err)
	assert.False(t, verdict.IsSafe)
	assert.Equal(t, []string{"flame decals"}, verdict.Suggestions)
	assert.Equal(t, "not allowed", verdict.Explanation)
	assert.Equal(t, "high", verdict.RiskLevel)
}

func TestClient_GenerateImage_statusError(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	client := studio.NewClient(srv.URL, testhelpers.NewLogger(io.Discard))
	_, err := client.GenerateImage(context.Background(), "sid-1")
	require.ErrorIs(t, err, studio.ErrStatus)
	// The core calls are single-shot; retries are for the peripherals.
	assert.Equal(t, int32(1), calls.Load())
}

func TestClient_DownloadImage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/image/download/sid-1", r.URL.Path)
		_, _ = w.Write([]byte("png-bytes"))
	}))
	defer srv.Close()

	client := studio.NewClient(srv.URL, testhelpers.NewLogger(io.Discard))
	body, err := client.DownloadImage(context.Background(), "sid-1")
	require.NoError(t, err)
	assert.Equal(t, []byte("png-bytes"), body)
}

func TestClient_SaveProject_retries(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	client := studio.NewClient(srv.URL, testhelpers.NewLogger(io.Discard))
	err := client.SaveProject(context.Background(), "sid-1", "Dream ride", json.RawMessage(`{}`))
	require.NoError(t, err)
	assert.Equal(t, int32(3), calls.Load())
}

func TestClient_CreateCheckoutSession(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/payments/checkout-session", r.URL.Path)
		_, _ = w.Write([]byte(`{"checkout_url":"https://pay.example.com/cs_123"}`))
	}))
	defer srv.Close()

	client := studio.NewClient(srv.URL, testhelpers.NewLogger(io.Discard))
	url, err := client.CreateCheckoutSession(context.Background(), "sid-1", "premium")
	require.NoError(t, err)
	assert.Equal(t, "https://pay.example.com/cs_123", url)
}
