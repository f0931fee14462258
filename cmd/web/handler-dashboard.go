package main

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/veloforge/dreamride/internal/builder"
	"github.com/veloforge/dreamride/internal/contexthelpers"
	"github.com/veloforge/dreamride/internal/errors"
	"github.com/veloforge/dreamride/internal/models"
	"github.com/veloforge/dreamride/internal/repositories"
)

type dashboardTemplateData struct {
	BaseTemplateData

	Projects []models.Project
}

func (app *application) dashboard(w http.ResponseWriter, r *http.Request) {
	userID := contexthelpers.AuthenticatedUserID(r.Context())
	projects, err := app.projects.ListForUser(r.Context(), userID)
	if err != nil {
		app.serverError(w, r, err)
		return
	}
	data := dashboardTemplateData{
		BaseTemplateData: newBaseTemplateData(r),
		Projects:         projects,
	}
	app.render(w, r, http.StatusOK, "dashboard", "base", data)
}

// projectSnapshot serialises the conversation for the project row. The render
// is megabytes of base64 and lives on the session, so the snapshot drops it
// and only the has-image flag records that one exists.
func projectSnapshot(state builder.State) (json.RawMessage, bool, error) {
	hasImage := state.ImageBase64 != ""
	state.ImageBase64 = ""
	snapshot, err := json.Marshal(state)
	if err != nil {
		return nil, false, errors.Wrap(err, "marshal state")
	}
	return snapshot, hasImage, nil
}

// dashboardSave snapshots the current conversation as a named project. The
// local row drives the dashboard listing; the copy sent to the studio
// backend is best effort and never blocks the save.
func (app *application) dashboardSave(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := contexthelpers.AuthenticatedUserID(ctx)
	sess := app.session(r)
	state := sess.State()

	name := r.PostFormValue("name")
	if name == "" {
		name = "Untitled build"
	}

	snapshot, hasImage, err := projectSnapshot(state)
	if err != nil {
		app.serverError(w, r, errors.Wrap(err, "marshal snapshot"))
		return
	}

	project := models.Project{
		UserID:    userID,
		SessionID: state.SessionID,
		Name:      name,
		Snapshot:  string(snapshot),
		HasImage:  hasImage,
	}
	if err = app.projects.Upsert(ctx, &project); err != nil {
		app.serverError(w, r, err)
		return
	}

	if err = app.studio.SaveProject(ctx, state.SessionID, name, snapshot); err != nil {
		app.logger.LogAttrs(ctx, slog.LevelWarn, "studio project save failed",
			slog.String("session_id", state.SessionID), errors.SlogError(err))
	}

	http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
}

func (app *application) dashboardDelete(w http.ResponseWriter, r *http.Request) {
	userID := contexthelpers.AuthenticatedUserID(r.Context())
	sessionID := r.PostFormValue("session_id")
	if sessionID == "" {
		app.clientError(w, r, http.StatusBadRequest)
		return
	}
	if err := app.projects.Delete(r.Context(), sessionID, userID); err != nil {
		if errors.Is(err, repositories.ErrProjectNotFound) {
			app.clientError(w, r, http.StatusNotFound)
			return
		}
		app.serverError(w, r, err)
		return
	}
	http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
}
