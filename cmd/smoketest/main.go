package main

import (
	"context"
	"log/slog"
	"net/url"
	"os"
	"time"

	"github.com/veloforge/dreamride/internal/e2etest"
	"github.com/veloforge/dreamride/internal/errors"
	"github.com/veloforge/dreamride/internal/logging"
)

func testAuth(client *e2etest.Client) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second) //nolint:mnd // 10 seconds
	defer cancel()
	var err error

	if _, err = client.Register(ctx); err != nil {
		return errors.Wrap(err, "register user")
	}
	if _, err = client.Logout(ctx); err != nil {
		return errors.Wrap(err, "logout user")
	}
	if _, err = client.Login(ctx); err != nil {
		return errors.Wrap(err, "login user")
	}
	return nil
}

// testBuilder answers the opening question and verifies the answer lands on
// the transcript. One round trip is enough to prove the studio wiring.
func testBuilder(client *e2etest.Client) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second) //nolint:mnd // 30 seconds
	defer cancel()

	doc, err := client.GetDoc(ctx, "/builder")
	if err != nil {
		return errors.Wrap(err, "open builder")
	}
	if doc.Find("#question").Length() != 1 {
		return errors.New("builder page has no pending question")
	}

	option, ok := doc.Find("form[action='/builder/answer'] input[name=option]").First().Attr("value")
	if !ok {
		return errors.New("no answer option on builder page")
	}
	doc, err = client.SubmitFormValuesDoc(ctx, doc, "/builder/answer", url.Values{"option": {option}})
	if err != nil {
		return errors.Wrap(err, "submit answer")
	}
	if doc.Find("#transcript .message-user").Length() == 0 {
		return errors.New("answer did not reach the transcript")
	}
	return nil
}

func main() {
	loggerHandler := logging.NewContextHandler(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		AddSource:   false,
		Level:       slog.LevelDebug,
		ReplaceAttr: nil,
	}))
	logger := slog.New(loggerHandler)
	ctx := context.Background()

	if len(os.Args) != 2 { //nolint:mnd // we expect only hostname to be passed as argument.
		logger.LogAttrs(ctx, slog.LevelError, "usage: smoketest <hostname>")
		os.Exit(1)
	}

	var (
		hostname  = os.Args[1]
		serverURL = "https://" + hostname
		client    *e2etest.Client
		err       error
	)
	ctx = logging.WithAttrs(ctx, slog.String("hostname", serverURL))

	if client, err = e2etest.NewClient(serverURL, hostname, serverURL); err != nil {
		logger.LogAttrs(ctx, slog.LevelError, "error creating client", errors.SlogError(err))
		os.Exit(1)
	}
	if err = testAuth(client); err != nil {
		logger.LogAttrs(ctx, slog.LevelError, "error testing auth", errors.SlogError(err))
		os.Exit(1)
	}
	if err = testBuilder(client); err != nil {
		logger.LogAttrs(ctx, slog.LevelError, "error testing builder", errors.SlogError(err))
		os.Exit(1)
	}

	logger.LogAttrs(ctx, slog.LevelInfo, "Smoke test successful 🙌")
	os.Exit(0)
}
