package main

import (
	"net/http"
)

// checkout asks the studio backend for a hosted checkout session and sends
// the rider there. The web app never touches payment details itself.
func (app *application) checkout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if plan := r.PostFormValue("plan"); plan != "" {
		app.appCtx.SetPlan(ctx, plan)
	}

	sessionID := app.appCtx.BuilderSessionID(ctx)
	checkoutURL, err := app.studio.CreateCheckoutSession(ctx, sessionID, app.appCtx.Plan(ctx))
	if err != nil {
		app.serverError(w, r, err)
		return
	}
	http.Redirect(w, r, checkoutURL, http.StatusSeeOther)
}
