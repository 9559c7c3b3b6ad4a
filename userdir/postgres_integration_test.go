//go:build integration

package userdir

import (
	"context"
	"testing"
	"time"

	goSession "github.com/MrEthical07/goSession"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"golang.org/x/crypto/bcrypt"
)

func newTestPostgres(t *testing.T) (*Postgres, *pgxpool.Pool) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	ctr, err := postgres.Run(ctx, "postgres:16-alpine",
		postgres.WithDatabase("sessions"),
		postgres.WithUsername("app"),
		postgres.WithPassword("app"),
		postgres.BasicWaitStrategies(),
	)
	testcontainers.CleanupContainer(t, ctr)
	require.NoError(t, err)

	dsn, err := ctr.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	pool, err := pgxpool.New(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	db := stdlib.OpenDBFromPool(pool)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, Migrate(db))

	dir, err := NewPostgres(pool, newTestHasher(t), nil)
	require.NoError(t, err)
	return dir, pool
}

func TestPostgresDirectory(t *testing.T) {
	ctx := context.Background()
	dir, _ := newTestPostgres(t)

	u, err := dir.Create(ctx, goSession.NewUser{Email: "Pat@Example.com", Password: "long-password", Name: "Pat"})
	require.NoError(t, err)
	assert.Equal(t, "pat@example.com", u.Email)

	_, err = dir.Create(ctx, goSession.NewUser{Email: "pat@example.com", Password: "long-password", Name: "Pat"})
	assert.ErrorIs(t, err, goSession.ErrAccountExists)

	ok, err := dir.Verify(ctx, "PAT@example.com", "long-password")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = dir.Verify(ctx, "nobody@example.com", "long-password")
	require.NoError(t, err)
	assert.False(t, ok)

	got, err := dir.GetByEmail(ctx, "pat@example.com")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)

	_, err = dir.GetByEmail(ctx, "nobody@example.com")
	assert.ErrorIs(t, err, goSession.ErrUserNotFound)

	exists, err := dir.Exists(ctx, u.ID)
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = dir.Exists(ctx, "not-a-uuid")
	require.NoError(t, err)
	assert.False(t, exists)

	deleted, err := dir.Delete(ctx, u.ID)
	require.NoError(t, err)
	assert.True(t, deleted)
}

func TestPostgresUpgradesLegacyBcryptHash(t *testing.T) {
	ctx := context.Background()
	dir, pool := newTestPostgres(t)

	legacy, err := bcrypt.GenerateFromPassword([]byte("imported-pass"), bcrypt.MinCost)
	require.NoError(t, err)
	_, err = pool.Exec(ctx,
		`INSERT INTO users (id, email, name, password_hash) VALUES (gen_random_uuid(), 'old@example.com', 'Old', $1)`,
		string(legacy),
	)
	require.NoError(t, err)

	ok, err := dir.Verify(ctx, "old@example.com", "imported-pass")
	require.NoError(t, err)
	require.True(t, ok)

	var stored string
	require.NoError(t, pool.QueryRow(ctx, `SELECT password_hash FROM users WHERE email = 'old@example.com'`).Scan(&stored))
	assert.Contains(t, stored, "$argon2id$")

	ok, err = dir.Verify(ctx, "old@example.com", "imported-pass")
	require.NoError(t, err)
	assert.True(t, ok)
}
