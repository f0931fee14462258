package studiostub_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/veloforge/dreamride/internal/studio"
	"github.com/veloforge/dreamride/internal/studiostub"
	"github.com/veloforge/dreamride/internal/testhelpers"
)

// The stub is exercised through the real studio client so the two sides of
// the contract stay in sync.
func TestServer_fullConversation(t *testing.T) {
	srv := httptest.NewServer(studiostub.New(testhelpers.NewLogger(io.Discard), nil).Handler())
	defer srv.Close()
	client := studio.NewClient(srv.URL, testhelpers.NewLogger(io.Discard))
	ctx := context.Background()

	turn, err := client.CompleteChat(ctx, "sid-1", "")
	require.NoError(t, err)
	assert.NotEmpty(t, turn.QuestionText)
	require.NotNil(t, turn.CurrentStep)
	assert.Equal(t, 1, *turn.CurrentStep)
	require.NotEmpty(t, turn.Options)

	answers := 0
	for !turn.IsComplete {
		answer := "1"
		if len(turn.Options) == 0 {
			answer = "chromed exhaust pipes"
		}
		turn, err = client.CompleteChat(ctx, "sid-1", answer)
		require.NoError(t, err)
		answers++
		require.Less(t, answers, 10, "conversation must terminate")
	}
	assert.Equal(t, 5, answers)
	assert.Empty(t, turn.QuestionText)

	image, err := client.GenerateImage(ctx, "sid-1")
	require.NoError(t, err)
	assert.NotEmpty(t, image)

	raw, err := client.DownloadImage(ctx, "sid-1")
	require.NoError(t, err)
	// PNG magic bytes.
	require.Greater(t, len(raw), 8)
	assert.Equal(t, []byte{0x89, 'P', 'N', 'G'}, raw[:4])
}

func TestServer_moderation(t *testing.T) {
	srv := httptest.NewServer(studiostub.New(testhelpers.NewLogger(io.Discard), nil).Handler())
	defer srv.Close()
	client := studio.NewClient(srv.URL, testhelpers.NewLogger(io.Discard))
	ctx := context.Background()

	verdict, err := client.ValidateMessage(ctx, "neon green flames")
	require.NoError(t, err)
	assert.True(t, verdict.IsSafe)

	verdict, err = client.ValidateMessage(ctx, "the trademark logo of a rival brand")
	require.NoError(t, err)
	assert.False(t, verdict.IsSafe)
	assert.NotEmpty(t, verdict.Suggestions)
	assert.NotEmpty(t, verdict.Explanation)
}

func TestServer_imageForUnknownSession(t *testing.T) {
	srv := httptest.NewServer(studiostub.New(testhelpers.NewLogger(io.Discard), nil).Handler())
	defer srv.Close()
	client := studio.NewClient(srv.URL, testhelpers.NewLogger(io.Discard))

	_, err := client.GenerateImage(context.Background(), "nope")
	require.ErrorIs(t, err, studio.ErrStatus)
}

func TestServer_checkout(t *testing.T) {
	srv := httptest.NewServer(studiostub.New(testhelpers.NewLogger(io.Discard), nil).Handler())
	defer srv.Close()
	client := studio.NewClient(srv.URL, testhelpers.NewLogger(io.Discard))

	url, err := client.CreateCheckoutSession(context.Background(), "sid-1", "premium")
	require.NoError(t, err)
	assert.Contains(t, url, "sid-1")
}

func TestServer_checkoutRequiresSessionID(t *testing.T) {
	srv := httptest.NewServer(studiostub.New(testhelpers.NewLogger(io.Discard), nil).Handler())
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/payments/checkout-session", "application/json",
		strings.NewReader(`{"plan":"premium"}`))
	require.NoError(t, err)
	defer func() {
		_ = resp.Body.Close()
	}()
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
}
