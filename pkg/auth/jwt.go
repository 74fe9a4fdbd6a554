package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strconv"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v4"

	"github.com/yourusername/social-api/internal/domain/entity"
	"github.com/yourusername/social-api/internal/domain/repository"
	"github.com/yourusername/social-api/internal/websocket"
)

const (
	accessTokenIssuer   = "social-api"
	accessTokenAudience = "social-user"

	// invalidationChannel синхронизирует кеш инвалидаций между экземплярами
	invalidationChannel = "jwt_invalidation_events"
)

var (
	ErrTokenMalformed   = errors.New("token is malformed")
	ErrTokenExpired     = errors.New("token is expired")
	ErrTokenInvalid     = errors.New("token is invalid")
	ErrTokenInvalidated = errors.New("token has been invalidated")
)

// JWTCustomClaims содержит пользовательские поля access-токена
type JWTCustomClaims struct {
	UserID uint   `json:"user_id"`
	Email  string `json:"email"`
	jwt.RegisteredClaims
}

// JWTService выпускает и проверяет access-токены.
// Токены, выпущенные до сброса пароля, отклоняются по in-memory списку инвалидаций,
// который загружается из БД и синхронизируется через Pub/Sub.
type JWTService struct {
	secret        []byte
	expirationHrs int
	// Черный список: userID -> момент инвалидации
	invalidatedUsers map[uint]time.Time
	mu               sync.RWMutex
	invalidTokenRepo repository.InvalidTokenRepository
	cleanupInterval  time.Duration
	pubSubProvider   websocket.PubSubProvider
	appCtx           context.Context
	now              func() time.Time
}

// NewJWTService создает новый сервис JWT и возвращает ошибку при проблемах
func NewJWTService(
	secret string,
	expirationHrs int,
	invalidTokenRepo repository.InvalidTokenRepository,
	cleanupInterval time.Duration,
	pubSubProvider websocket.PubSubProvider,
	appCtx context.Context,
) (*JWTService, error) {
	if secret == "" {
		return nil, fmt.Errorf("jwt secret is required for JWTService")
	}
	if invalidTokenRepo == nil {
		return nil, fmt.Errorf("InvalidTokenRepository is required for JWTService")
	}
	if appCtx == nil {
		return nil, fmt.Errorf("appCtx is required for JWTService")
	}
	if pubSubProvider == nil {
		pubSubProvider = &websocket.NoOpPubSub{}
	}
	if expirationHrs <= 0 {
		expirationHrs = 1
	}
	if cleanupInterval <= 0 {
		cleanupInterval = time.Hour
	}

	service := &JWTService{
		secret:           []byte(secret),
		expirationHrs:    expirationHrs,
		invalidatedUsers: make(map[uint]time.Time),
		invalidTokenRepo: invalidTokenRepo,
		cleanupInterval:  cleanupInterval,
		pubSubProvider:   pubSubProvider,
		appCtx:           appCtx,
		now:              time.Now,
	}

	startupCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	service.loadInvalidatedTokensFromDB(startupCtx)

	go service.runCleanupRoutine()
	go service.listenForInvalidationEvents()

	return service, nil
}

// loadInvalidatedTokensFromDB загружает информацию об инвалидированных токенах из БД
func (s *JWTService) loadInvalidatedTokensFromDB(ctx context.Context) {
	tokens, err := s.invalidTokenRepo.GetAllInvalidTokens(ctx)
	if err != nil {
		log.Printf("[JWT] Error loading invalidated tokens from DB: %v", err)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, token := range tokens {
		s.invalidatedUsers[token.UserID] = token.InvalidationTime
	}
	log.Printf("[JWT] Loaded %d invalidated tokens from database", len(tokens))
}

// ExpiresIn возвращает срок жизни access-токена
func (s *JWTService) ExpiresIn() time.Duration {
	return time.Duration(s.expirationHrs) * time.Hour
}

// GenerateToken создает access-токен для пользователя
func (s *JWTService) GenerateToken(user *entity.User) (string, error) {
	now := s.now()
	claims := &JWTCustomClaims{
		UserID: user.ID,
		Email:  user.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ExpiresIn())),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    accessTokenIssuer,
			Subject:   strconv.FormatUint(uint64(user.ID), 10),
			Audience:  jwt.ClaimStrings{accessTokenAudience},
		},
	}

	tokenString, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		log.Printf("[JWT] Ошибка генерации токена для пользователя ID=%d: %v", user.ID, err)
		return "", err
	}
	return tokenString, nil
}

// ParseToken проверяет подпись, срок действия и инвалидацию access-токена
func (s *JWTService) ParseToken(ctx context.Context, tokenString string) (*JWTCustomClaims, error) {
	claims := &JWTCustomClaims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil {
		var ve *jwt.ValidationError
		if errors.As(err, &ve) {
			switch {
			case ve.Errors&jwt.ValidationErrorMalformed != 0:
				return nil, ErrTokenMalformed
			case ve.Errors&jwt.ValidationErrorExpired != 0:
				return nil, ErrTokenExpired
			}
		}
		log.Printf("[JWT] Ошибка при разборе токена: %v", err)
		return nil, ErrTokenInvalid
	}
	if !token.Valid || claims.UserID == 0 || !claims.VerifyAudience(accessTokenAudience, true) {
		return nil, ErrTokenInvalid
	}

	if s.isInvalidated(claims) {
		log.Printf("[JWT] Токен инвалидирован для пользователя ID=%d, выдан в %v", claims.UserID, claims.IssuedAt.Time)
		return nil, ErrTokenInvalidated
	}
	return claims, nil
}

func (s *JWTService) isInvalidated(claims *JWTCustomClaims) bool {
	if claims.IssuedAt == nil {
		return true
	}
	s.mu.RLock()
	invalidatedAt, exists := s.invalidatedUsers[claims.UserID]
	s.mu.RUnlock()
	if !exists {
		return false
	}
	record := entity.InvalidToken{UserID: claims.UserID, InvalidationTime: invalidatedAt}
	return record.IsTokenInvalidAt(claims.IssuedAt.Time)
}

// InvalidateTokensForUser делает недействительными все ранее выданные токены пользователя
func (s *JWTService) InvalidateTokensForUser(ctx context.Context, userID uint) error {
	now := s.now()
	s.mu.Lock()
	s.invalidatedUsers[userID] = now
	s.mu.Unlock()

	if err := s.invalidTokenRepo.AddInvalidToken(ctx, userID, now); err != nil {
		log.Printf("[JWT] Ошибка при добавлении записи инвалидации в БД для пользователя ID=%d: %v", userID, err)
		return err
	}

	event, err := json.Marshal(invalidationEvent{UserID: userID, InvalidationTime: now.UnixNano()})
	if err == nil {
		if pubErr := s.pubSubProvider.Publish(invalidationChannel, event); pubErr != nil {
			log.Printf("[JWT] Ошибка публикации события инвалидации для userID %d: %v", userID, pubErr)
		}
	}

	log.Printf("[JWT] Токены инвалидированы для пользователя ID=%d в %v", userID, now)
	return nil
}

type invalidationEvent struct {
	UserID           uint  `json:"user_id"`
	InvalidationTime int64 `json:"invalidation_time"`
}

// CleanupInvalidatedUsers удаляет записи старше срока жизни access-токена из БД и кеша
func (s *JWTService) CleanupInvalidatedUsers(ctx context.Context) error {
	cutoffTime := s.now().Add(-s.ExpiresIn())

	err := s.invalidTokenRepo.CleanupOldInvalidTokens(ctx, cutoffTime)
	if err != nil {
		log.Printf("[JWTService] Error cleaning up invalid tokens from DB: %v", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for userID, invalidationTime := range s.invalidatedUsers {
		if invalidationTime.Before(cutoffTime) {
			delete(s.invalidatedUsers, userID)
		}
	}
	return err
}

// runCleanupRoutine периодически чистит список инвалидаций, пока жив appCtx
func (s *JWTService) runCleanupRoutine() {
	ticker := time.NewTicker(s.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			cleanupCtx, cancel := context.WithTimeout(context.Background(), s.cleanupInterval/2)
			if err := s.CleanupInvalidatedUsers(cleanupCtx); err != nil {
				log.Printf("[JWTService] Error during periodic cleanup: %v", err)
			}
			cancel()
		case <-s.appCtx.Done():
			log.Printf("[JWTService] Cleanup routine stopped due to app context cancellation.")
			return
		}
	}
}

// listenForInvalidationEvents применяет инвалидации, сделанные на других экземплярах
func (s *JWTService) listenForInvalidationEvents() {
	messages, err := s.pubSubProvider.Subscribe(s.appCtx, invalidationChannel)
	if err != nil {
		log.Printf("[JWTService] Ошибка подписки на канал %s: %v", invalidationChannel, err)
		return
	}

	for {
		select {
		case <-s.appCtx.Done():
			return
		case msgBytes, ok := <-messages:
			if !ok {
				return
			}
			var event invalidationEvent
			if err := json.Unmarshal(msgBytes, &event); err != nil || event.UserID == 0 {
				log.Printf("[JWTService] Некорректное событие инвалидации: %s", string(msgBytes))
				continue
			}

			invalidationTime := time.Unix(0, event.InvalidationTime)
			s.mu.Lock()
			if current, exists := s.invalidatedUsers[event.UserID]; !exists || current.Before(invalidationTime) {
				s.invalidatedUsers[event.UserID] = invalidationTime
			}
			s.mu.Unlock()
		}
	}
}
