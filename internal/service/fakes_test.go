package service

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"time"

	"github.com/yourusername/social-api/internal/domain/entity"
	apperrors "github.com/yourusername/social-api/internal/pkg/errors"
)

// ============================================================================
// In-memory реализации репозиториев для сценарных тестов
// ============================================================================

var errStorageDown = errors.New("connection refused")

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// memoryUserRepo реализует repository.UserRepository
type memoryUserRepo struct {
	mu     sync.Mutex
	nextID uint
	users  map[uint]*entity.User
	err    error
}

func newMemoryUserRepo() *memoryUserRepo {
	return &memoryUserRepo{users: make(map[uint]*entity.User)}
}

func (r *memoryUserRepo) Create(_ context.Context, user *entity.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	for _, u := range r.users {
		if u.Email == user.Email {
			return apperrors.ErrConflict
		}
	}
	r.nextID++
	user.ID = r.nextID
	copied := *user
	r.users[user.ID] = &copied
	return nil
}

func (r *memoryUserRepo) GetByID(_ context.Context, id uint) (*entity.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	u, ok := r.users[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	copied := *u
	return &copied, nil
}

func (r *memoryUserRepo) GetByEmail(_ context.Context, email string) (*entity.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	for _, u := range r.users {
		if u.Email == email {
			copied := *u
			return &copied, nil
		}
	}
	return nil, apperrors.ErrNotFound
}

func (r *memoryUserRepo) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	_, err := r.GetByEmail(ctx, email)
	if errors.Is(err, apperrors.ErrNotFound) {
		return false, nil
	}
	return err == nil, err
}

func (r *memoryUserRepo) UpdateProfile(_ context.Context, userID uint, updates map[string]interface{}) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[userID]
	if !ok {
		return apperrors.ErrNotFound
	}
	for column, value := range updates {
		s, _ := value.(string)
		switch column {
		case "profile_picture":
			u.ProfilePicture = s
		case "cover_photo":
			u.CoverPhoto = s
		case "bio":
			u.Bio = s
		case "profession":
			u.Profession = s
		case "current_city":
			u.CurrentCity = s
		case "phone_number":
			u.PhoneNumber = s
		}
	}
	return nil
}

func (r *memoryUserRepo) UpdatePassword(_ context.Context, email, passwordHash string) (*entity.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	for _, u := range r.users {
		if u.Email == email {
			u.Password = passwordHash
			copied := *u
			return &copied, nil
		}
	}
	return nil, apperrors.ErrNotFound
}

// memoryCodeRepo реализует repository.OneTimeCodeRepository
type memoryCodeRepo struct {
	mu     sync.Mutex
	nextID uint
	codes  map[uint]entity.OneTimeCode
	err    error
}

func newMemoryCodeRepo() *memoryCodeRepo {
	return &memoryCodeRepo{codes: make(map[uint]entity.OneTimeCode)}
}

func (r *memoryCodeRepo) Put(_ context.Context, code *entity.OneTimeCode) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.nextID++
	code.ID = r.nextID
	r.codes[code.ID] = *code
	return nil
}

func (r *memoryCodeRepo) FindActive(_ context.Context, subject, codeHash string) (*entity.OneTimeCode, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	for _, c := range r.codes {
		if c.Subject == subject && c.CodeHash == codeHash {
			copied := c
			return &copied, nil
		}
	}
	return nil, apperrors.ErrNotFound
}

func (r *memoryCodeRepo) Consume(_ context.Context, code *entity.OneTimeCode) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return false, r.err
	}
	if _, ok := r.codes[code.ID]; !ok {
		return false, nil
	}
	delete(r.codes, code.ID)
	return true, nil
}

func (r *memoryCodeRepo) DeleteBySubject(_ context.Context, subject string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, c := range r.codes {
		if c.Subject == subject {
			delete(r.codes, id)
		}
	}
	return nil
}

func (r *memoryCodeRepo) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var removed int64
	for id, c := range r.codes {
		if c.IsExpired(now) {
			delete(r.codes, id)
			removed++
		}
	}
	return removed, nil
}

func (r *memoryCodeRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.codes)
}

// memoryCache реализует repository.CacheRepository без учета TTL
type memoryCache struct {
	mu     sync.Mutex
	values map[string]string
	err    error
}

func newMemoryCache() *memoryCache {
	return &memoryCache{values: make(map[string]string)}
}

func (c *memoryCache) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return c.err
	}
	delete(c.values, key)
	return nil
}

func (c *memoryCache) Increment(_ context.Context, key string) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return 0, c.err
	}
	n, _ := strconv.ParseInt(c.values[key], 10, 64)
	n++
	c.values[key] = strconv.FormatInt(n, 10)
	return n, nil
}

func (c *memoryCache) Expire(_ context.Context, _ string, _ time.Duration) error {
	return c.err
}

func (c *memoryCache) SetNX(_ context.Context, key string, value interface{}, _ time.Duration) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return false, c.err
	}
	if _, ok := c.values[key]; ok {
		return false, nil
	}
	s, _ := value.(string)
	c.values[key] = s
	return true, nil
}

// captureEmailService запоминает отправленные коды
type captureEmailService struct {
	mu   sync.Mutex
	sent []OneTimeCodeEmail
	err  error
}

func (s *captureEmailService) SendOneTimeCode(_ context.Context, msg OneTimeCodeEmail) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.sent = append(s.sent, msg)
	return nil
}

func (s *captureEmailService) lastCode() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.sent) == 0 {
		return ""
	}
	return s.sent[len(s.sent)-1].Code
}

// recordingInvalidator запоминает отозванных пользователей
type recordingInvalidator struct {
	mu      sync.Mutex
	userIDs []uint
}

func (r *recordingInvalidator) InvalidateTokensForUser(_ context.Context, userID uint) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.userIDs = append(r.userIDs, userID)
	return nil
}

// recordingNotifier запоминает отправленные события
type recordingNotifier struct {
	mu     sync.Mutex
	events []recordedEvent
}

type recordedEvent struct {
	UserID uint
	Type   string
}

func (n *recordingNotifier) NotifyUser(userID uint, eventType string, _ interface{}) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, recordedEvent{UserID: userID, Type: eventType})
}
