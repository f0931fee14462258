package repositories

import (
	"context"
	"database/sql"
	"log/slog"

	"github.com/jmoiron/sqlx"
	"github.com/veloforge/dreamride/internal/errors"
	"github.com/veloforge/dreamride/internal/models"
	"github.com/veloforge/dreamride/internal/sqlite"
)

var ErrProjectNotFound = errors.NewSentinel("project not found")

type ProjectRepository struct {
	readWrite *sqlx.DB
	readOnly  *sqlx.DB
	logger    *slog.Logger
}

func NewProjectRepository(dbs *sqlite.Database, logger *slog.Logger) *ProjectRepository {
	return &ProjectRepository{
		readWrite: sqlx.NewDb(dbs.ReadWrite, "sqlite3"),
		readOnly:  sqlx.NewDb(dbs.ReadOnly, "sqlite3"),
		logger:    logger.With("source", "ProjectRepository"),
	}
}

// Upsert saves a project keyed by its builder session id. Saving the same
// session again overwrites the name, snapshot and image flag.
func (r *ProjectRepository) Upsert(ctx context.Context, project *models.Project) error {
	stmt := `INSERT INTO projects (user_id, session_id, name, snapshot, has_image)
VALUES (:user_id, :session_id, :name, :snapshot, :has_image)
ON CONFLICT (session_id) DO UPDATE SET
    name       = excluded.name,
    snapshot   = excluded.snapshot,
    has_image  = excluded.has_image,
    updated_at = CURRENT_TIMESTAMP
WHERE user_id = excluded.user_id`
	if _, err := r.readWrite.NamedExecContext(ctx, stmt, project); err != nil {
		return errors.Wrap(err, "upsert project")
	}
	return nil
}

func (r *ProjectRepository) Get(ctx context.Context, sessionID string, userID []byte) (*models.Project, error) {
	var project models.Project
	stmt := `SELECT id, user_id, session_id, name, snapshot, has_image, created_at, updated_at
FROM projects
WHERE session_id = ? AND user_id = ?`
	if err := r.readOnly.GetContext(ctx, &project, stmt, sessionID, userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrProjectNotFound
		}
		return nil, errors.Wrap(err, "read project")
	}
	return &project, nil
}

// ListForUser returns the user's saved projects, most recently updated first.
func (r *ProjectRepository) ListForUser(ctx context.Context, userID []byte) ([]models.Project, error) {
	var projects []models.Project
	stmt := `SELECT id, user_id, session_id, name, snapshot, has_image, created_at, updated_at
FROM projects
WHERE user_id = ?
ORDER BY updated_at DESC, id DESC`
	if err := r.readOnly.SelectContext(ctx, &projects, stmt, userID); err != nil {
		return nil, errors.Wrap(err, "list projects")
	}
	return projects, nil
}

func (r *ProjectRepository) Delete(ctx context.Context, sessionID string, userID []byte) error {
	result, err := r.readWrite.ExecContext(ctx,
		`DELETE FROM projects WHERE session_id = ? AND user_id = ?`, sessionID, userID)
	if err != nil {
		return errors.Wrap(err, "delete project")
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "rows affected")
	}
	if affected == 0 {
		return ErrProjectNotFound
	}
	return nil
}
