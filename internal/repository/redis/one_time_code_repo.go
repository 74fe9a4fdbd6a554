package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/yourusername/social-api/internal/domain/entity"
	apperrors "github.com/yourusername/social-api/internal/pkg/errors"
)

const (
	oneTimeCodeKeyPrefix   = "otp:code:"
	oneTimeCodeIndexPrefix = "otp:subject:"
)

// OneTimeCodeRepo хранит коды как ключи otp:code:{<subject>}:<hash> с TTL до истечения,
// а хеши активных кодов субъекта в множестве otp:subject:{<subject>}.
// Хеш-тег {<subject>} кладет оба ключа в один слот кластера.
// Просроченные коды удаляет сам Redis, поэтому DeleteExpired ничего не делает.
type OneTimeCodeRepo struct {
	client redis.UniversalClient
	now    func() time.Time
}

// storedCode - представление записи в Redis (json entity скрывает хеш)
type storedCode struct {
	Subject   string    `json:"subject"`
	CodeHash  string    `json:"code_hash"`
	ExpiresAt time.Time `json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
}

func NewOneTimeCodeRepo(client redis.UniversalClient) (*OneTimeCodeRepo, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client cannot be nil for OneTimeCodeRepo")
	}
	return &OneTimeCodeRepo{client: client, now: time.Now}, nil
}

func oneTimeCodeKey(subject, codeHash string) string {
	return oneTimeCodeKeyPrefix + "{" + subject + "}:" + codeHash
}

func oneTimeCodeIndexKey(subject string) string {
	return oneTimeCodeIndexPrefix + "{" + subject + "}"
}

func (r *OneTimeCodeRepo) Put(ctx context.Context, code *entity.OneTimeCode) error {
	if code.CreatedAt.IsZero() {
		code.CreatedAt = r.now()
	}
	ttl := code.ExpiresAt.Sub(r.now())
	if ttl <= 0 {
		// уже просрочен, хранить нечего
		return nil
	}

	raw, err := json.Marshal(storedCode{
		Subject:   code.Subject,
		CodeHash:  code.CodeHash,
		ExpiresAt: code.ExpiresAt,
		CreatedAt: code.CreatedAt,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal one-time code: %w", err)
	}

	indexKey := oneTimeCodeIndexKey(code.Subject)
	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, oneTimeCodeKey(code.Subject, code.CodeHash), raw, ttl)
		pipe.SAdd(ctx, indexKey, code.CodeHash)
		// индекс живет не меньше самого свежего кода
		pipe.Expire(ctx, indexKey, ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to store one-time code: %w", err)
	}
	return nil
}

func (r *OneTimeCodeRepo) FindActive(ctx context.Context, subject, codeHash string) (*entity.OneTimeCode, error) {
	raw, err := r.client.Get(ctx, oneTimeCodeKey(subject, codeHash)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find one-time code: %w", err)
	}

	var stored storedCode
	if err := json.Unmarshal(raw, &stored); err != nil {
		return nil, fmt.Errorf("failed to unmarshal one-time code: %w", err)
	}
	return &entity.OneTimeCode{
		Subject:   stored.Subject,
		CodeHash:  stored.CodeHash,
		ExpiresAt: stored.ExpiresAt,
		CreatedAt: stored.CreatedAt,
	}, nil
}

// Consume: DEL атомарен, 1 вернется только одному из конкурентных вызовов
func (r *OneTimeCodeRepo) Consume(ctx context.Context, code *entity.OneTimeCode) (bool, error) {
	removed, err := r.client.Del(ctx, oneTimeCodeKey(code.Subject, code.CodeHash)).Result()
	if err != nil {
		return false, fmt.Errorf("failed to consume one-time code: %w", err)
	}
	if err := r.client.SRem(ctx, oneTimeCodeIndexKey(code.Subject), code.CodeHash).Err(); err != nil {
		log.Printf("[OneTimeCodeRepo] Не удалось убрать код из индекса субъекта: %v", err)
	}
	return removed == 1, nil
}

// DeleteBySubject удаляет только коды из индекса субъекта. Имя субъекта не
// интерпретируется как шаблон, поэтому "*@x.com" не заденет чужие коды.
func (r *OneTimeCodeRepo) DeleteBySubject(ctx context.Context, subject string) error {
	indexKey := oneTimeCodeIndexKey(subject)
	hashes, err := r.client.SMembers(ctx, indexKey).Result()
	if err != nil {
		return fmt.Errorf("failed to list one-time codes: %w", err)
	}

	keys := make([]string, 0, len(hashes)+1)
	for _, hash := range hashes {
		keys = append(keys, oneTimeCodeKey(subject, hash))
	}
	keys = append(keys, indexKey)

	if err := r.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("failed to delete one-time codes: %w", err)
	}
	return nil
}

func (r *OneTimeCodeRepo) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	return 0, nil
}
