package userdir

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	goSession "github.com/MrEthical07/goSession"
	"github.com/MrEthical07/goSession/password"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const uniqueViolation = "23505"

// Postgres is a user directory backed by the users table.
type Postgres struct {
	pool   *pgxpool.Pool
	hasher *password.Argon2
	dummy  string
	logger *slog.Logger
}

// NewPostgres wraps an open pool. Run [Migrate] before first use.
func NewPostgres(pool *pgxpool.Pool, hasher *password.Argon2, logger *slog.Logger) (*Postgres, error) {
	if pool == nil {
		return nil, errors.New("userdir: nil pool")
	}
	dummy, err := dummyHash(hasher)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Postgres{pool: pool, hasher: hasher, dummy: dummy, logger: logger}, nil
}

// Verify checks the password and transparently rehashes legacy or weaker
// hashes after a successful match.
func (p *Postgres) Verify(ctx context.Context, email, pw string) (bool, error) {
	email = normalizeEmail(email)

	var id, hash string
	err := p.pool.QueryRow(ctx,
		`SELECT id::text, password_hash FROM users WHERE lower(email) = $1`,
		email,
	).Scan(&id, &hash)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			_, _ = p.hasher.Verify(pw, p.dummy)
			return false, nil
		}
		return false, fmt.Errorf("userdir: verify: %w", err)
	}

	ok, err := p.hasher.Verify(pw, hash)
	if err != nil || !ok {
		return false, nil
	}

	if upgrade, _ := p.hasher.NeedsUpgrade(hash); upgrade {
		p.rehash(ctx, id, pw)
	}
	return true, nil
}

func (p *Postgres) rehash(ctx context.Context, id, pw string) {
	hash, err := p.hasher.Hash(pw)
	if err != nil {
		p.logger.WarnContext(ctx, "password rehash failed", "user_id", id, "error", err)
		return
	}
	if _, err := p.pool.Exec(ctx,
		`UPDATE users SET password_hash = $2, updated_at = now() WHERE id = $1::uuid`,
		id, hash,
	); err != nil {
		p.logger.WarnContext(ctx, "password rehash not stored", "user_id", id, "error", err)
		return
	}
	p.logger.InfoContext(ctx, "password hash upgraded", "user_id", id)
}

func (p *Postgres) GetByEmail(ctx context.Context, email string) (goSession.User, error) {
	var u goSession.User
	err := p.pool.QueryRow(ctx,
		`SELECT id::text, email, name, created_at FROM users WHERE lower(email) = $1`,
		normalizeEmail(email),
	).Scan(&u.ID, &u.Email, &u.Name, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return goSession.User{}, ErrNotFound
		}
		return goSession.User{}, fmt.Errorf("userdir: get by email: %w", err)
	}
	return u, nil
}

// Exists reports false for ids that are not UUIDs without querying.
func (p *Postgres) Exists(ctx context.Context, userID string) (bool, error) {
	id, err := uuid.Parse(userID)
	if err != nil {
		return false, nil
	}

	var exists bool
	if err := p.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM users WHERE id = $1::uuid)`,
		id.String(),
	).Scan(&exists); err != nil {
		return false, fmt.Errorf("userdir: exists: %w", err)
	}
	return exists, nil
}

// Create hashes the password and inserts the account. A taken email returns
// ErrDuplicateEmail.
func (p *Postgres) Create(ctx context.Context, input goSession.NewUser) (goSession.User, error) {
	hash, err := p.hasher.Hash(input.Password)
	if err != nil {
		return goSession.User{}, hashError(err)
	}

	u := goSession.User{
		ID:    uuid.NewString(),
		Email: normalizeEmail(input.Email),
		Name:  strings.TrimSpace(input.Name),
	}
	err = p.pool.QueryRow(ctx,
		`INSERT INTO users (id, email, name, password_hash)
		 VALUES ($1::uuid, $2, $3, $4)
		 RETURNING created_at`,
		u.ID, u.Email, u.Name, hash,
	).Scan(&u.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return goSession.User{}, ErrDuplicateEmail
		}
		return goSession.User{}, fmt.Errorf("userdir: create: %w", err)
	}

	p.logger.InfoContext(ctx, "user registered", "user_id", u.ID)
	return u, nil
}

// Delete removes an account by id.
func (p *Postgres) Delete(ctx context.Context, userID string) (bool, error) {
	id, err := uuid.Parse(userID)
	if err != nil {
		return false, nil
	}
	tag, err := p.pool.Exec(ctx, `DELETE FROM users WHERE id = $1::uuid`, id.String())
	if err != nil {
		return false, fmt.Errorf("userdir: delete: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}
