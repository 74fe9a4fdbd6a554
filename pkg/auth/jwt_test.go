package auth

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/social-api/internal/domain/entity"
)

type memoryInvalidTokenRepo struct {
	mu      sync.Mutex
	records map[uint]time.Time
}

func newMemoryInvalidTokenRepo() *memoryInvalidTokenRepo {
	return &memoryInvalidTokenRepo{records: make(map[uint]time.Time)}
}

func (r *memoryInvalidTokenRepo) AddInvalidToken(ctx context.Context, userID uint, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records[userID] = at
	return nil
}

func (r *memoryInvalidTokenRepo) GetAllInvalidTokens(ctx context.Context) ([]entity.InvalidToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []entity.InvalidToken
	for id, at := range r.records {
		out = append(out, entity.InvalidToken{UserID: id, InvalidationTime: at})
	}
	return out, nil
}

func (r *memoryInvalidTokenRepo) CleanupOldInvalidTokens(ctx context.Context, cutoff time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, at := range r.records {
		if at.Before(cutoff) {
			delete(r.records, id)
		}
	}
	return nil
}

func newTestJWTService(t *testing.T, repo *memoryInvalidTokenRepo) *JWTService {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	svc, err := NewJWTService("access-secret", 1, repo, time.Hour, nil, ctx)
	require.NoError(t, err)
	return svc
}

func TestJWTService_GenerateAndParse(t *testing.T) {
	svc := newTestJWTService(t, newMemoryInvalidTokenRepo())
	user := &entity.User{ID: 42, Email: "a@x.io"}

	token, err := svc.GenerateToken(user)
	require.NoError(t, err)

	claims, err := svc.ParseToken(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, uint(42), claims.UserID)
	assert.Equal(t, "a@x.io", claims.Email)
}

func TestJWTService_ExpiredToken(t *testing.T) {
	svc := newTestJWTService(t, newMemoryInvalidTokenRepo())
	svc.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }

	token, err := svc.GenerateToken(&entity.User{ID: 1})
	require.NoError(t, err)

	_, err = svc.ParseToken(context.Background(), token)
	assert.ErrorIs(t, err, ErrTokenExpired)
}

func TestJWTService_InvalidSignatureAndMalformed(t *testing.T) {
	svc := newTestJWTService(t, newMemoryInvalidTokenRepo())
	other := newTestJWTService(t, newMemoryInvalidTokenRepo())
	other.secret = []byte("different-secret")

	token, err := other.GenerateToken(&entity.User{ID: 1})
	require.NoError(t, err)

	_, err = svc.ParseToken(context.Background(), token)
	assert.ErrorIs(t, err, ErrTokenInvalid)

	_, err = svc.ParseToken(context.Background(), "garbage")
	assert.ErrorIs(t, err, ErrTokenMalformed)
}

func TestJWTService_InvalidateTokensForUser(t *testing.T) {
	repo := newMemoryInvalidTokenRepo()
	svc := newTestJWTService(t, repo)
	user := &entity.User{ID: 7, Email: "a@x.io"}

	issuedAt := time.Now().Add(-time.Minute)
	svc.now = func() time.Time { return issuedAt }
	oldToken, err := svc.GenerateToken(user)
	require.NoError(t, err)

	svc.now = time.Now
	require.NoError(t, svc.InvalidateTokensForUser(context.Background(), user.ID))

	_, err = svc.ParseToken(context.Background(), oldToken)
	assert.ErrorIs(t, err, ErrTokenInvalidated)

	// токен, выпущенный после сброса, принимается
	svc.now = func() time.Time { return time.Now().Add(2 * time.Second) }
	newToken, err := svc.GenerateToken(user)
	require.NoError(t, err)
	_, err = svc.ParseToken(context.Background(), newToken)
	assert.NoError(t, err)

	// запись сохранена в репозитории
	records, err := repo.GetAllInvalidTokens(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.True(t, records[0].IsTokenInvalidAt(issuedAt))
}

func TestJWTService_LoadsInvalidationsOnStartup(t *testing.T) {
	repo := newMemoryInvalidTokenRepo()
	require.NoError(t, repo.AddInvalidToken(context.Background(), 3, time.Now()))

	svc := newTestJWTService(t, repo)
	svc.now = func() time.Time { return time.Now().Add(-time.Minute) }
	token, err := svc.GenerateToken(&entity.User{ID: 3})
	require.NoError(t, err)

	_, err = svc.ParseToken(context.Background(), token)
	assert.ErrorIs(t, err, ErrTokenInvalidated)
}

func TestJWTService_CleanupInvalidatedUsers(t *testing.T) {
	repo := newMemoryInvalidTokenRepo()
	svc := newTestJWTService(t, repo)

	svc.mu.Lock()
	svc.invalidatedUsers[1] = time.Now().Add(-3 * time.Hour)
	svc.invalidatedUsers[2] = time.Now()
	svc.mu.Unlock()
	require.NoError(t, repo.AddInvalidToken(context.Background(), 1, time.Now().Add(-3*time.Hour)))

	require.NoError(t, svc.CleanupInvalidatedUsers(context.Background()))

	svc.mu.RLock()
	_, stale := svc.invalidatedUsers[1]
	_, fresh := svc.invalidatedUsers[2]
	svc.mu.RUnlock()
	assert.False(t, stale)
	assert.True(t, fresh)

	all, err := repo.GetAllInvalidTokens(context.Background())
	require.NoError(t, err)
	assert.Empty(t, all)
}
