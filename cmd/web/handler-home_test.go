package main

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func Test_application_home(t *testing.T) {
	srv := startTestServer(t)
	client := srv.Client()
	ctx := context.Background()

	doc, err := client.GetDoc(ctx, "/")
	require.NoError(t, err)
	require.Equal(t, 1, doc.Find("button:contains('Sign in')").Length())
	require.Equal(t, 1, doc.Find("button:contains('Register')").Length())

	// Register a passkey. The home page switches to the signed-in state.
	doc, err = client.Register(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, doc.Find("button:contains('Log out')").Length())
	require.Equal(t, 1, doc.Find("a[href='/dashboard']").Length())

	// Log out and back in with the same credential.
	doc, err = client.Logout(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, doc.Find("button:contains('Sign in')").Length())

	doc, err = client.Login(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, doc.Find("button:contains('Log out')").Length())
}
