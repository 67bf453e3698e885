// internal/services/token_store.go
package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/javajoker/eco-backend/internal/config"
	"github.com/javajoker/eco-backend/internal/models"
)

// TokenStore records issued refresh tokens so they can be revoked.
type TokenStore interface {
	Save(ctx context.Context, jti string, userID uuid.UUID, expiresAt time.Time) error
	IsActive(ctx context.Context, jti string) (bool, error)
	RevokeAll(ctx context.Context, userID uuid.UUID) error
}

// NewTokenStore returns a redis-backed store when redis is enabled and
// reachable, and the database store otherwise.
func NewTokenStore(db *gorm.DB, cfg config.RedisConfig) TokenStore {
	if !cfg.Enabled {
		return NewDBTokenStore(db)
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		logrus.WithError(err).WithField("addr", cfg.Addr()).Warn("Redis unavailable, storing refresh tokens in the database")
		_ = client.Close()
		return NewDBTokenStore(db)
	}

	logrus.WithField("addr", cfg.Addr()).Info("Refresh tokens stored in redis")
	return NewRedisTokenStore(client)
}

type DBTokenStore struct {
	db *gorm.DB
}

func NewDBTokenStore(db *gorm.DB) *DBTokenStore {
	return &DBTokenStore{db: db}
}

func (s *DBTokenStore) Save(ctx context.Context, jti string, userID uuid.UUID, expiresAt time.Time) error {
	token := models.RefreshToken{ID: jti, UserID: userID, ExpiresAt: expiresAt}
	if err := s.db.WithContext(ctx).Create(&token).Error; err != nil {
		return fmt.Errorf("failed to save refresh token: %w", err)
	}
	return nil
}

func (s *DBTokenStore) IsActive(ctx context.Context, jti string) (bool, error) {
	var token models.RefreshToken
	err := s.db.WithContext(ctx).Where("id = ?", jti).First(&token).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to load refresh token: %w", err)
	}
	return token.RevokedAt == nil && time.Now().Before(token.ExpiresAt), nil
}

func (s *DBTokenStore) RevokeAll(ctx context.Context, userID uuid.UUID) error {
	now := time.Now()
	err := s.db.WithContext(ctx).Model(&models.RefreshToken{}).
		Where("user_id = ? AND revoked_at IS NULL", userID).
		Update("revoked_at", now).Error
	if err != nil {
		return fmt.Errorf("failed to revoke refresh tokens: %w", err)
	}
	return nil
}

type RedisTokenStore struct {
	client *redis.Client
}

func NewRedisTokenStore(client *redis.Client) *RedisTokenStore {
	return &RedisTokenStore{client: client}
}

func refreshTokenKey(jti string) string {
	return "refresh_token:" + jti
}

func userTokensKey(userID uuid.UUID) string {
	return "user_refresh_tokens:" + userID.String()
}

func (s *RedisTokenStore) Save(ctx context.Context, jti string, userID uuid.UUID, expiresAt time.Time) error {
	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		return nil
	}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, refreshTokenKey(jti), userID.String(), ttl)
	pipe.SAdd(ctx, userTokensKey(userID), jti)
	pipe.Expire(ctx, userTokensKey(userID), ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to save refresh token: %w", err)
	}
	return nil
}

func (s *RedisTokenStore) IsActive(ctx context.Context, jti string) (bool, error) {
	n, err := s.client.Exists(ctx, refreshTokenKey(jti)).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check refresh token: %w", err)
	}
	return n > 0, nil
}

func (s *RedisTokenStore) RevokeAll(ctx context.Context, userID uuid.UUID) error {
	jtis, err := s.client.SMembers(ctx, userTokensKey(userID)).Result()
	if err != nil {
		return fmt.Errorf("failed to list refresh tokens: %w", err)
	}

	keys := make([]string, 0, len(jtis)+1)
	for _, jti := range jtis {
		keys = append(keys, refreshTokenKey(jti))
	}
	keys = append(keys, userTokensKey(userID))

	if err := s.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("failed to revoke refresh tokens: %w", err)
	}
	return nil
}
