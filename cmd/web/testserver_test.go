package main

import (
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/veloforge/dreamride/internal/e2etest"
)

func testLookupEnv(key string) (string, bool) {
	switch key {
	case "DREAMRIDE_ADDR":
		return "localhost:0", true
	case "DREAMRIDE_SQLITE_URL":
		return ":memory:", true
	case "DREAMRIDE_TEMPLATE_DIR":
		return "../../ui/templates", true
	default:
		return "", false
	}
}

// startTestServer boots the full application with an in-memory database and
// the in-process studio stub, and returns the e2e harness around it.
func startTestServer(t *testing.T) *e2etest.Server {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	srv, err := e2etest.StartServer(ctx, io.Discard, testLookupEnv, run)
	require.NoError(t, err)
	return srv
}
