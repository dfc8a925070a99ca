package sqlxrepos_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mansourkira/evoluflow/core/user"
	sqlxrepos "github.com/mansourkira/evoluflow/storage/database/sqlx"
)

// openDB connects to the database named by EVOLUFLOW_DATABASE_URL and empties the user table.
func openDB(t *testing.T) *sqlx.DB {
	t.Helper()
	dsn := os.Getenv("EVOLUFLOW_DATABASE_URL")
	if dsn == "" {
		t.Skip("EVOLUFLOW_DATABASE_URL not set")
	}
	ctx := context.Background()
	db, err := sqlx.ConnectContext(ctx, "postgres", dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, sqlxrepos.CreateSchema(ctx, db))
	require.NoError(t, sqlxrepos.CreateSchema(ctx, db)) // idempotent
	clean := func() { _, _ = db.ExecContext(ctx, `TRUNCATE app_user RESTART IDENTITY`) }
	clean()
	t.Cleanup(clean)
	return db
}

func TestUserRepository(t *testing.T) {
	repo := sqlxrepos.NewUserRepository(openDB(t))
	ctx := context.Background()

	require.NoError(t, user.Seed(ctx, repo, user.DefaultUsers...))
	require.NoError(t, user.Seed(ctx, repo, user.DefaultUsers...)) // existing emails skipped

	users, err := repo.QueryAllUsers(ctx)
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, "admin@admission.com", users[0].Email)
	assert.Equal(t, user.RoleAdmin, users[0].Role)
	assert.True(t, users[0].LastLogin.IsZero())
	assert.NoError(t, users[0].CheckPassword("admin123"))

	agent := users[1]
	got, err := repo.GetUserByID(ctx, agent.ID)
	require.NoError(t, err)
	assert.Equal(t, agent.Email, got.Email)

	_, err = repo.GetUserByEmail(ctx, "nobody@admission.com")
	assert.ErrorIs(t, err, user.ErrNotFound)
	_, err = repo.GetUserByID(ctx, "abc")
	assert.ErrorIs(t, err, user.ErrNotFound)

	_, err = repo.CreateUser(ctx, user.User{Email: agent.Email, PasswordHash: []byte("x")})
	assert.ErrorIs(t, err, user.ErrEmailExists)

	login := time.Date(2024, time.October, 3, 9, 30, 0, 0, time.UTC)
	updated, err := repo.UpdateUser(ctx, user.User{ID: agent.ID, Site: "SIT2401001", LastLogin: login})
	require.NoError(t, err)
	assert.Equal(t, agent.Name, updated.Name) // blank fields keep the stored value
	assert.Equal(t, "SIT2401001", updated.Site)
	assert.True(t, login.Equal(updated.LastLogin))
	assert.NoError(t, updated.CheckPassword("agent123"))

	_, err = repo.UpdateUser(ctx, user.User{ID: "999"})
	assert.ErrorIs(t, err, user.ErrNotFound)
}
