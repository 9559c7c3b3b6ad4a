package userdir

import (
	"context"
	"strings"
	"sync"
	"time"

	goSession "github.com/MrEthical07/goSession"
	"github.com/MrEthical07/goSession/password"
	"github.com/google/uuid"
)

type memoryUser struct {
	user goSession.User
	hash string
}

// Memory is an in-process user directory.
type Memory struct {
	mu      sync.RWMutex
	byEmail map[string]*memoryUser
	byID    map[string]*memoryUser
	hasher  *password.Argon2
	dummy   string
	now     func() time.Time
}

// NewMemory returns an empty directory hashing with hasher.
func NewMemory(hasher *password.Argon2) (*Memory, error) {
	dummy, err := dummyHash(hasher)
	if err != nil {
		return nil, err
	}
	return &Memory{
		byEmail: make(map[string]*memoryUser),
		byID:    make(map[string]*memoryUser),
		hasher:  hasher,
		dummy:   dummy,
		now:     time.Now,
	}, nil
}

// Verify reports whether pw matches the stored hash. Unknown emails verify
// false after a dummy hash.
func (m *Memory) Verify(_ context.Context, email, pw string) (bool, error) {
	m.mu.RLock()
	u, ok := m.byEmail[normalizeEmail(email)]
	m.mu.RUnlock()

	if !ok {
		_, _ = m.hasher.Verify(pw, m.dummy)
		return false, nil
	}
	match, err := m.hasher.Verify(pw, u.hash)
	if err != nil {
		// Oversized input or a corrupt stored hash: never a match.
		return false, nil
	}
	return match, nil
}

func (m *Memory) GetByEmail(_ context.Context, email string) (goSession.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	u, ok := m.byEmail[normalizeEmail(email)]
	if !ok {
		return goSession.User{}, ErrNotFound
	}
	return u.user, nil
}

// Exists reports whether userID names a current account.
func (m *Memory) Exists(_ context.Context, userID string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	_, ok := m.byID[userID]
	return ok, nil
}

// Create stores a new account. Hashing happens outside the lock.
func (m *Memory) Create(_ context.Context, input goSession.NewUser) (goSession.User, error) {
	email := normalizeEmail(input.Email)

	m.mu.RLock()
	_, taken := m.byEmail[email]
	m.mu.RUnlock()
	if taken {
		return goSession.User{}, ErrDuplicateEmail
	}

	hash, err := m.hasher.Hash(input.Password)
	if err != nil {
		return goSession.User{}, hashError(err)
	}

	u := &memoryUser{
		user: goSession.User{
			ID:        uuid.NewString(),
			Email:     email,
			Name:      strings.TrimSpace(input.Name),
			CreatedAt: m.now().UTC(),
		},
		hash: hash,
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byEmail[email]; ok {
		return goSession.User{}, ErrDuplicateEmail
	}
	m.byEmail[email] = u
	m.byID[u.user.ID] = u
	return u.user, nil
}

// Delete removes an account. Sessions it still holds fail validation with
// ReasonUserNotFound and are cleaned up then.
func (m *Memory) Delete(userID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.byID[userID]
	if !ok {
		return false
	}
	delete(m.byID, userID)
	delete(m.byEmail, u.user.Email)
	return true
}

// Len reports the number of accounts.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.byID)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// dummyHash is verified against when the email is unknown so both failure
// paths cost one hash.
func dummyHash(hasher *password.Argon2) (string, error) {
	return hasher.Hash("not-a-real-password")
}
