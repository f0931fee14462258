package repositories_test

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/veloforge/dreamride/internal/models"
	"github.com/veloforge/dreamride/internal/repositories"
	"github.com/veloforge/dreamride/internal/sqlite"
)

// newTestDB creates a new in-memory database for testing purposes.
func newTestDB(t *testing.T) *sqlite.Database {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	dbs, err := sqlite.NewDatabase(context.Background(), ":memory:", logger)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		if err := dbs.Close(); err != nil {
			t.Fatal(err)
		}
	})
	return dbs
}

// insertTestUser satisfies the projects foreign key.
func insertTestUser(t *testing.T, dbs *sqlite.Database, id []byte) {
	t.Helper()
	_, err := dbs.ReadWrite.Exec(`INSERT INTO users (id, display_name) VALUES (?, ?)`, id, "test user")
	require.NoError(t, err)
}

func TestProjectRepository_UpsertAndGet(t *testing.T) {
	dbs := newTestDB(t)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	repo := repositories.NewProjectRepository(dbs, logger)
	userID := []byte{1}
	insertTestUser(t, dbs, userID)

	project := models.Project{
		UserID:    userID,
		SessionID: "session-1",
		Name:      "Desert scrambler",
		Snapshot:  `{"messages":[]}`,
		HasImage:  false,
	}
	require.NoError(t, repo.Upsert(context.Background(), &project))

	got, err := repo.Get(context.Background(), "session-1", userID)
	require.NoError(t, err)
	require.Equal(t, "Desert scrambler", got.Name)
	require.Equal(t, `{"messages":[]}`, got.Snapshot)
	require.False(t, got.HasImage)
	require.False(t, got.CreatedAt.IsZero(), "created_at should be set")

	// Saving the same session again overwrites instead of duplicating.
	project.Name = "Desert scrambler v2"
	project.HasImage = true
	require.NoError(t, repo.Upsert(context.Background(), &project))

	got, err = repo.Get(context.Background(), "session-1", userID)
	require.NoError(t, err)
	require.Equal(t, "Desert scrambler v2", got.Name)
	require.True(t, got.HasImage)

	projects, err := repo.ListForUser(context.Background(), userID)
	require.NoError(t, err)
	require.Len(t, projects, 1)
}

func TestProjectRepository_Get_notFound(t *testing.T) {
	dbs := newTestDB(t)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	repo := repositories.NewProjectRepository(dbs, logger)

	_, err := repo.Get(context.Background(), "nonexistent", []byte{1})
	require.ErrorIs(t, err, repositories.ErrProjectNotFound)
}

func TestProjectRepository_ListForUser_scopedToUser(t *testing.T) {
	dbs := newTestDB(t)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	repo := repositories.NewProjectRepository(dbs, logger)

	alice := []byte{1}
	bob := []byte{2}
	insertTestUser(t, dbs, alice)
	insertTestUser(t, dbs, bob)

	require.NoError(t, repo.Upsert(context.Background(), &models.Project{
		UserID: alice, SessionID: "s-alice", Name: "Cafe racer", Snapshot: `{}`,
	}))
	require.NoError(t, repo.Upsert(context.Background(), &models.Project{
		UserID: bob, SessionID: "s-bob", Name: "Bagger", Snapshot: `{}`,
	}))

	projects, err := repo.ListForUser(context.Background(), alice)
	require.NoError(t, err)
	require.Len(t, projects, 1)
	require.Equal(t, "s-alice", projects[0].SessionID)

	// A user cannot read or delete another user's project.
	_, err = repo.Get(context.Background(), "s-bob", alice)
	require.ErrorIs(t, err, repositories.ErrProjectNotFound)
	require.ErrorIs(t, repo.Delete(context.Background(), "s-bob", alice), repositories.ErrProjectNotFound)
}

func TestProjectRepository_Delete(t *testing.T) {
	dbs := newTestDB(t)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	repo := repositories.NewProjectRepository(dbs, logger)
	userID := []byte{1}
	insertTestUser(t, dbs, userID)

	require.NoError(t, repo.Upsert(context.Background(), &models.Project{
		UserID: userID, SessionID: "session-1", Name: "Tracker", Snapshot: `{}`,
	}))
	require.NoError(t, repo.Delete(context.Background(), "session-1", userID))

	projects, err := repo.ListForUser(context.Background(), userID)
	require.NoError(t, err)
	require.Empty(t, projects)

	require.ErrorIs(t, repo.Delete(context.Background(), "session-1", userID), repositories.ErrProjectNotFound)
}
