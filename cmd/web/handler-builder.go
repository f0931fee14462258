package main

import (
	"encoding/base64"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/veloforge/dreamride/internal/builder"
	"github.com/veloforge/dreamride/internal/errors"
)

type builderTemplateData struct {
	BaseTemplateData

	State builder.State
	Error string
}

// session returns the builder state machine for the visitor's current
// conversation, minting a conversation id on first visit.
func (app *application) session(r *http.Request) *builder.Session {
	id := app.appCtx.BuilderSessionID(r.Context())
	return app.builders.Acquire(id)
}

func (app *application) builderPage(w http.ResponseWriter, r *http.Request) {
	sess := app.session(r)

	var actionErr error
	if sess.State().Phase == builder.Bootstrapping {
		actionErr = sess.Bootstrap(r.Context())
	}

	app.renderBuilder(w, r, sess.State(), actionErr)
}

// renderBuilder writes the full builder page, or just the chat panel when
// the request came from htmx.
func (app *application) renderBuilder(w http.ResponseWriter, r *http.Request, state builder.State, actionErr error) {
	data := builderTemplateData{
		BaseTemplateData: newBaseTemplateData(r),
		State:            state,
		Error:            app.builderErrorMessage(r, actionErr),
	}

	templateName := "base"
	if app.htmx.NewHandler(w, r).IsHxRequest() {
		templateName = "chat-panel"
	}
	app.render(w, r, http.StatusOK, "builder", templateName, data)
}

// builderErrorMessage translates a state machine error into rider-facing
// copy. The machine keeps its state on every failure, so all of these leave
// the page usable.
func (app *application) builderErrorMessage(r *http.Request, err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, builder.ErrBusy):
		return "Hold on, the previous step is still in flight."
	case errors.Is(err, builder.ErrWrongPhase):
		return "That action is not available right now."
	case errors.Is(err, builder.ErrInvalidOption):
		return "That option is not part of the current question."
	case errors.Is(err, builder.ErrFreeTextMode):
		return "This question wants a written answer."
	case errors.Is(err, builder.ErrOptionMode):
		return "This question wants you to pick an option."
	case errors.Is(err, builder.ErrSingleSelect):
		return "Pick a single option for this question."
	case errors.Is(err, builder.ErrEmptySelection):
		return "Pick at least one option before continuing."
	case errors.Is(err, builder.ErrEmptyInput):
		return "Write something first."
	case errors.Is(err, builder.ErrNoImage):
		return "No image has been rendered yet."
	default:
		app.logger.LogAttrs(r.Context(), slog.LevelWarn, "builder action failed", errors.SlogError(err))
		return "The studio is not responding. Your answer was kept, try again in a moment."
	}
}

// optionNumber reads the picked option number from the form.
func (app *application) optionNumber(w http.ResponseWriter, r *http.Request) (int, bool) {
	number, err := strconv.Atoi(r.PostFormValue("option"))
	if err != nil {
		app.clientError(w, r, http.StatusBadRequest)
		return 0, false
	}
	return number, true
}

func (app *application) builderAnswer(w http.ResponseWriter, r *http.Request) {
	number, ok := app.optionNumber(w, r)
	if !ok {
		return
	}
	sess := app.session(r)
	err := sess.SelectOption(r.Context(), number)
	app.renderBuilder(w, r, sess.State(), err)
}

func (app *application) builderToggle(w http.ResponseWriter, r *http.Request) {
	number, ok := app.optionNumber(w, r)
	if !ok {
		return
	}
	sess := app.session(r)
	err := sess.ToggleOption(number)
	app.renderBuilder(w, r, sess.State(), err)
}

func (app *application) builderContinue(w http.ResponseWriter, r *http.Request) {
	sess := app.session(r)
	err := sess.ContinueMultiselect(r.Context())
	app.renderBuilder(w, r, sess.State(), err)
}

func (app *application) builderCustom(w http.ResponseWriter, r *http.Request) {
	sess := app.session(r)
	err := sess.SubmitCustom(r.Context(), r.PostFormValue("message"))
	app.renderBuilder(w, r, sess.State(), err)
}

func (app *application) builderSuggestion(w http.ResponseWriter, r *http.Request) {
	sess := app.session(r)
	err := sess.ApplySuggestion(r.PostFormValue("suggestion"))
	app.renderBuilder(w, r, sess.State(), err)
}

func (app *application) builderRetryImage(w http.ResponseWriter, r *http.Request) {
	sess := app.session(r)
	err := sess.RetryImage(r.Context())
	app.renderBuilder(w, r, sess.State(), err)
}

// builderReset abandons the conversation. The machine swaps its identity so
// any in-flight response for the old conversation is discarded on arrival.
func (app *application) builderReset(w http.ResponseWriter, r *http.Request) {
	sess := app.session(r)
	oldID := sess.ID()
	newID := sess.Reset()
	app.builders.Swap(oldID, sess)
	app.appCtx.SetBuilderSessionID(r.Context(), newID)
	http.Redirect(w, r, "/builder", http.StatusSeeOther)
}

// builderImageDownload streams the stored artifact. It never triggers a new
// render: a missing image is a 404.
func (app *application) builderImageDownload(w http.ResponseWriter, r *http.Request) {
	sess := app.session(r)
	encoded, err := sess.Image()
	if err != nil {
		if errors.Is(err, builder.ErrNoImage) || errors.Is(err, builder.ErrWrongPhase) {
			app.clientError(w, r, http.StatusNotFound)
			return
		}
		app.serverError(w, r, err)
		return
	}
	image, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		app.serverError(w, r, errors.Wrap(err, "decode image"))
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Disposition", `attachment; filename="dreamride.png"`)
	_, _ = w.Write(image)
}
