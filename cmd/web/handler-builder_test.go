package main

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/require"
	"github.com/veloforge/dreamride/internal/e2etest"
)

func Test_application_builderFlow(t *testing.T) {
	srv := startTestServer(t)
	client := srv.Client()
	ctx := context.Background()

	// The first visit bootstraps the conversation with the opening question.
	doc, err := client.GetDoc(ctx, "/builder")
	require.NoError(t, err)
	require.Contains(t, doc.Find("#question h2").Text(), "What kind of ride are you dreaming of?")
	require.Contains(t, doc.Find("#question p").First().Text(), "Step 1 of 5")
	require.Equal(t, 3, doc.Find("form[action='/builder/answer']").Length())

	// Single-select answers record the option text on the transcript.
	doc, err = client.SubmitFormValuesDoc(ctx, doc, "/builder/answer", url.Values{"option": {"2"}})
	require.NoError(t, err)
	require.Contains(t, doc.Find("#transcript .message-user").Text(), "Sport")
	require.Contains(t, doc.Find("#question h2").Text(), "Pick an engine character.")

	doc, err = client.SubmitFormValuesDoc(ctx, doc, "/builder/answer", url.Values{"option": {"1"}})
	require.NoError(t, err)
	require.Contains(t, doc.Find("#question h2").Text(), "Pick a base color.")

	doc, err = client.SubmitFormValuesDoc(ctx, doc, "/builder/answer", url.Values{"option": {"3"}})
	require.NoError(t, err)
	require.Contains(t, doc.Find("#question h2").Text(), "Any extras?")

	// Continuing a multiselect with nothing picked is rejected in place.
	doc, err = client.SubmitFormValuesDoc(ctx, doc, "/builder/continue", nil)
	require.NoError(t, err)
	require.Contains(t, doc.Find(".error").Text(), "Pick at least one option")
	require.Contains(t, doc.Find("#question h2").Text(), "Any extras?")

	// Toggle two extras and continue. The answer joins the option texts in
	// question order regardless of click order.
	doc, err = client.SubmitFormValuesDoc(ctx, doc, "/builder/toggle", url.Values{"option": {"3"}})
	require.NoError(t, err)
	require.Equal(t, 1, doc.Find("button.selected").Length())
	doc, err = client.SubmitFormValuesDoc(ctx, doc, "/builder/toggle", url.Values{"option": {"1"}})
	require.NoError(t, err)
	require.Equal(t, 2, doc.Find("button.selected").Length())

	doc, err = client.SubmitFormValuesDoc(ctx, doc, "/builder/continue", nil)
	require.NoError(t, err)
	require.Contains(t, doc.Find("#transcript .message-user").Text(), "Saddlebags, Heated grips")
	require.Contains(t, doc.Find("#question h2").Text(), "Describe a custom detail")

	// An unsafe description is blocked with suggestions and the draft kept.
	doc, err = client.SubmitFormValuesDoc(ctx, doc, "/builder/custom",
		url.Values{"message": {"gore dripping from the tank"}})
	require.NoError(t, err)
	require.Contains(t, doc.Find(".error").Text(), "content we cannot render")
	require.Equal(t, 2, doc.Find("form[action='/builder/suggestion'] button").Length())
	require.Equal(t, "gore dripping from the tank", doc.Find("textarea[name=message]").Text())
	require.NotContains(t, doc.Find("#transcript").Text(), "gore")

	// Picking a suggestion replaces the draft.
	doc, err = client.SubmitFormValuesDoc(ctx, doc, "/builder/suggestion",
		url.Values{"suggestion": {"a hand-painted flame motif"}})
	require.NoError(t, err)
	require.Equal(t, "a hand-painted flame motif", doc.Find("textarea[name=message]").Text())
	require.Equal(t, 0, doc.Find("form[action='/builder/suggestion']").Length())

	// Submitting the safe description finishes the conversation and the
	// completed page carries the rendered image.
	doc, err = client.SubmitFormValuesDoc(ctx, doc, "/builder/custom",
		url.Values{"message": {"a hand-painted flame motif"}})
	require.NoError(t, err)
	require.Equal(t, 1, doc.Find("img.render").Length())
	require.Equal(t, 1, doc.Find("a[href='/builder/image/download']").Length())
	require.Contains(t, doc.Find("#transcript").Text(), "Your dream ride is ready")

	// The download endpoint streams the stored PNG without regenerating.
	resp, err := client.Get(ctx, "/builder/image/download")
	require.NoError(t, err)
	defer func() {
		require.NoError(t, resp.Body.Close())
	}()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "image/png", resp.Header.Get("Content-Type"))
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(string(raw), "\x89PNG"), "expected PNG magic bytes")

	// Starting over swaps conversations and lands on the first question.
	doc, err = client.SubmitFormValuesDoc(ctx, doc, "/builder/reset", nil)
	require.NoError(t, err)
	require.Contains(t, doc.Find("#question h2").Text(), "What kind of ride are you dreaming of?")
	require.Empty(t, doc.Find("#transcript .message-user").Text())
}

func Test_application_builderImageDownload_noImage(t *testing.T) {
	srv := startTestServer(t)
	client := srv.Client()
	ctx := context.Background()

	_, err := client.GetDoc(ctx, "/builder")
	require.NoError(t, err)

	resp, err := client.Get(ctx, "/builder/image/download")
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}

// completeConversation walks a fresh builder conversation to the completed
// page and returns the resulting document.
func completeConversation(t *testing.T, client *e2etest.Client) *goquery.Document {
	t.Helper()
	ctx := context.Background()

	doc, err := client.GetDoc(ctx, "/builder")
	require.NoError(t, err)
	for _, answer := range []string{"1", "2", "1"} {
		doc, err = client.SubmitFormValuesDoc(ctx, doc, "/builder/answer", url.Values{"option": {answer}})
		require.NoError(t, err)
	}
	doc, err = client.SubmitFormValuesDoc(ctx, doc, "/builder/toggle", url.Values{"option": {"2"}})
	require.NoError(t, err)
	doc, err = client.SubmitFormValuesDoc(ctx, doc, "/builder/continue", nil)
	require.NoError(t, err)
	doc, err = client.SubmitFormValuesDoc(ctx, doc, "/builder/custom",
		url.Values{"message": {"chrome everything"}})
	require.NoError(t, err)
	require.Equal(t, 1, doc.Find("img.render").Length())
	return doc
}

func Test_application_dashboard(t *testing.T) {
	srv := startTestServer(t)
	client := srv.Client()
	ctx := context.Background()

	// The dashboard requires a signed-in rider; guests land on the front page.
	doc, err := client.GetDoc(ctx, "/dashboard")
	require.NoError(t, err)
	require.Contains(t, doc.Find("h1").Text(), "Design the bike")

	_, err = client.Register(ctx)
	require.NoError(t, err)

	doc = completeConversation(t, client)
	require.Equal(t, 1, doc.Find("form[action='/dashboard/save']").Length())

	// Save the finished build and find it in the garage.
	doc, err = client.SubmitFormValuesDoc(ctx, doc, "/dashboard/save", url.Values{"name": {"Night bobber"}})
	require.NoError(t, err)
	require.Contains(t, doc.Find("h1").Text(), "Garage")
	require.Contains(t, doc.Find("table").Text(), "Night bobber")

	// Delete it again.
	sessionID, ok := doc.Find("form[action='/dashboard/delete'] input[name=session_id]").Attr("value")
	require.True(t, ok, "session_id not found in delete form")
	doc, err = client.SubmitFormValuesDoc(ctx, doc, "/dashboard/delete", url.Values{"session_id": {sessionID}})
	require.NoError(t, err)
	require.Contains(t, doc.Find("body").Text(), "No saved builds yet")
}
