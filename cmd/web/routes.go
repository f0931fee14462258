package main

import (
	"net/http"

	"github.com/justinas/alice"
)

func (app *application) routes() http.Handler {
	mux := http.NewServeMux()

	dynamic := alice.New(
		app.sessionManager.LoadAndSave,
		noSurf,
		app.webAuthnHandler.AuthenticateMiddleware,
		app.commonContext,
	)
	protected := dynamic.Append(app.requireAuthentication)

	mux.Handle("GET /{$}", dynamic.ThenFunc(app.home))

	mux.Handle("GET /builder", dynamic.ThenFunc(app.builderPage))
	mux.Handle("POST /builder/answer", dynamic.ThenFunc(app.builderAnswer))
	mux.Handle("POST /builder/toggle", dynamic.ThenFunc(app.builderToggle))
	mux.Handle("POST /builder/continue", dynamic.ThenFunc(app.builderContinue))
	mux.Handle("POST /builder/custom", dynamic.ThenFunc(app.builderCustom))
	mux.Handle("POST /builder/suggestion", dynamic.ThenFunc(app.builderSuggestion))
	mux.Handle("POST /builder/retry-image", dynamic.ThenFunc(app.builderRetryImage))
	mux.Handle("POST /builder/reset", dynamic.ThenFunc(app.builderReset))
	mux.Handle("GET /builder/image/download", dynamic.ThenFunc(app.builderImageDownload))

	mux.Handle("GET /dashboard", protected.ThenFunc(app.dashboard))
	mux.Handle("POST /dashboard/save", protected.ThenFunc(app.dashboardSave))
	mux.Handle("POST /dashboard/delete", protected.ThenFunc(app.dashboardDelete))

	mux.Handle("POST /api/checkout", dynamic.ThenFunc(app.checkout))

	mux.Handle("POST /api/registration/start", dynamic.ThenFunc(app.beginRegistration))
	mux.Handle("POST /api/registration/finish", dynamic.ThenFunc(app.finishRegistration))
	mux.Handle("POST /api/login/start", dynamic.ThenFunc(app.beginLogin))
	mux.Handle("POST /api/login/finish", dynamic.ThenFunc(app.finishLogin))
	mux.Handle("POST /api/logout", dynamic.ThenFunc(app.logout))

	mux.HandleFunc("GET /api/healthy", app.healthy)

	return app.recoverPanic(app.logRequest(secureHeaders(mux)))
}
