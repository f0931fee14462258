// Package appctx owns the per-visitor application context stored in the
// server-side session: which builder conversation the visitor is working on
// and their checkout plan preference. It has a defined lifecycle so handlers
// never reach into session keys directly.
package appctx

import (
	"context"

	"github.com/alexedwards/scs/v2"
	"github.com/google/uuid"
)

type sessionKey string

const builderSessionIDKey = sessionKey("builderSessionID")
const planKey = sessionKey("plan")

// DefaultPlan is used for checkout when the visitor has not picked one.
const DefaultPlan = "standard"

type AppContext struct {
	sessionManager *scs.SessionManager
}

func New(sessionManager *scs.SessionManager) *AppContext {
	return &AppContext{sessionManager: sessionManager}
}

// BuilderSessionID returns the visitor's builder conversation id, minting one
// on first use. The id doubles as the studio backend's session_id.
func (a *AppContext) BuilderSessionID(ctx context.Context) string {
	id := a.sessionManager.GetString(ctx, string(builderSessionIDKey))
	if id == "" {
		id = uuid.NewString()
		a.sessionManager.Put(ctx, string(builderSessionIDKey), id)
	}
	return id
}

// SetBuilderSessionID replaces the stored conversation id after a reset so
// late responses for the old conversation can never be attributed to the new
// one.
func (a *AppContext) SetBuilderSessionID(ctx context.Context, id string) {
	a.sessionManager.Put(ctx, string(builderSessionIDKey), id)
}

// ClearBuilderSession forgets the conversation id, for logout. It returns
// the id that was stored, empty when there was none, so the caller can drop
// the machine it pointed at.
func (a *AppContext) ClearBuilderSession(ctx context.Context) string {
	id := a.sessionManager.GetString(ctx, string(builderSessionIDKey))
	a.sessionManager.Remove(ctx, string(builderSessionIDKey))
	return id
}

func (a *AppContext) Plan(ctx context.Context) string {
	plan := a.sessionManager.GetString(ctx, string(planKey))
	if plan == "" {
		return DefaultPlan
	}
	return plan
}

func (a *AppContext) SetPlan(ctx context.Context, plan string) {
	a.sessionManager.Put(ctx, string(planKey), plan)
}
