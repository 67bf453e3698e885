// internal/services/auth_service.go
package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/javajoker/eco-backend/internal/config"
	"github.com/javajoker/eco-backend/internal/models"
	"github.com/javajoker/eco-backend/internal/utils"
)

const invalidCredentialsMessage = "invalid email or password"

// unknownAccount stands in for a missing user so a failed lookup still costs
// one bcrypt comparison.
var unknownAccount = sync.OnceValue(func() *models.User {
	u := &models.User{}
	if err := u.SetPassword(uuid.NewString()); err != nil {
		logrus.WithError(err).Warn("Failed to hash placeholder password")
	}
	return u
})

type AuthService struct {
	db                   *gorm.DB
	jwt                  *utils.JWTManager
	tokens               TokenStore
	allowLegacyPlaintext bool
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type RefreshTokenRequest struct {
	RefreshToken string `json:"refreshToken" validate:"required"`
}

type LogoutRequest struct {
	UserID string `json:"userId"`
}

type AuthResponse struct {
	User         *models.User `json:"user"`
	AccessToken  string       `json:"accessToken"`
	RefreshToken string       `json:"refreshToken"`
	TokenType    string       `json:"tokenType"`
	ExpiresIn    int          `json:"expiresIn"` // in seconds
}

type RefreshResponse struct {
	User        *models.User `json:"user"`
	AccessToken string       `json:"accessToken"`
	TokenType   string       `json:"tokenType"`
	ExpiresIn   int          `json:"expiresIn"`
}

func NewAuthService(db *gorm.DB, cfg *config.Config, jwt *utils.JWTManager, tokens TokenStore) *AuthService {
	return &AuthService{
		db:                   db,
		jwt:                  jwt,
		tokens:               tokens,
		allowLegacyPlaintext: cfg.Auth.AllowLegacyPlaintext,
	}
}

// VerifyPassword checks a password the same way login does.
func (s *AuthService) VerifyPassword(user *models.User, password string) bool {
	return user.CheckPassword(password, s.allowLegacyPlaintext)
}

// Login authenticates by email and password. Unknown emails and wrong
// passwords produce the same error.
func (s *AuthService) Login(ctx context.Context, req *LoginRequest) (*AuthResponse, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, utils.ValidationFailure(err)
	}

	db := s.db.WithContext(ctx)

	var user models.User
	if err := db.Where("email = ?", normalizeEmail(req.Email)).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			unknownAccount().CheckPassword(req.Password, false)
			return nil, utils.NewUnauthorizedError(invalidCredentialsMessage)
		}
		return nil, utils.NewInternalError("failed to load user", err)
	}

	if !s.VerifyPassword(&user, req.Password) {
		return nil, utils.NewUnauthorizedError(invalidCredentialsMessage)
	}

	if !user.IsActive() {
		return nil, utils.NewForbiddenError("account is inactive")
	}

	now := time.Now()
	updates := map[string]interface{}{"last_login_at": now}

	// Legacy plaintext passwords are replaced by a hash on first use.
	if !user.HasHashedPassword() {
		if err := user.SetPassword(req.Password); err != nil {
			logrus.WithError(err).WithField("user_id", user.ID).Warn("Failed to hash legacy password")
		} else {
			updates["password"] = user.Password
		}
	}

	if err := db.Model(&user).Updates(updates).Error; err != nil {
		return nil, utils.NewInternalError("failed to update login timestamp", err)
	}
	user.LastLoginAt = &now

	accessToken, err := s.jwt.GenerateAccessToken(user.ID, user.Name, user.Email, string(user.Role))
	if err != nil {
		return nil, utils.NewInternalError("failed to generate access token", err)
	}

	refreshToken, jti, expiresAt, err := s.jwt.GenerateRefreshToken(user.ID)
	if err != nil {
		return nil, utils.NewInternalError("failed to generate refresh token", err)
	}
	if err := s.tokens.Save(ctx, jti, user.ID, expiresAt); err != nil {
		return nil, utils.NewInternalError("failed to store refresh token", err)
	}

	logrus.WithFields(logrus.Fields{"user_id": user.ID, "role": user.Role}).Info("User logged in")

	return &AuthResponse{
		User:         &user,
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		TokenType:    "Bearer",
		ExpiresIn:    int(s.jwt.AccessTTL().Seconds()),
	}, nil
}

// RefreshToken issues a new access token for a valid, unrevoked refresh token
// whose user still exists and is active.
func (s *AuthService) RefreshToken(ctx context.Context, req *RefreshTokenRequest) (*RefreshResponse, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, utils.ValidationFailure(err)
	}

	claims, err := s.jwt.ValidateRefreshToken(req.RefreshToken)
	if err != nil {
		return nil, utils.NewUnauthorizedError("invalid or expired refresh token")
	}

	active, err := s.tokens.IsActive(ctx, claims.ID)
	if err != nil {
		return nil, utils.NewInternalError("failed to check refresh token", err)
	}
	if !active {
		return nil, utils.NewUnauthorizedError("refresh token has been revoked")
	}

	userID, err := parseUserID(claims.Subject)
	if err != nil {
		return nil, utils.NewUnauthorizedError("invalid or expired refresh token")
	}

	var user models.User
	if err := s.db.WithContext(ctx).Where("id = ?", userID).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, utils.NewUnauthorizedError("user no longer exists")
		}
		return nil, utils.NewInternalError("failed to load user", err)
	}
	if !user.IsActive() {
		return nil, utils.NewForbiddenError("account is inactive")
	}

	accessToken, err := s.jwt.GenerateAccessToken(user.ID, user.Name, user.Email, string(user.Role))
	if err != nil {
		return nil, utils.NewInternalError("failed to generate access token", err)
	}

	return &RefreshResponse{
		User:        &user,
		AccessToken: accessToken,
		TokenType:   "Bearer",
		ExpiresIn:   int(s.jwt.AccessTTL().Seconds()),
	}, nil
}

// Logout revokes every refresh token of the target user, which defaults to
// the caller. Only an Admin may log out someone else.
func (s *AuthService) Logout(ctx context.Context, actor Actor, req *LogoutRequest) error {
	target := actor.ID
	if req != nil && req.UserID != "" {
		target = req.UserID
	}
	if target != actor.ID && !actor.IsAdmin() {
		return utils.NewForbiddenError("you may only log out your own sessions")
	}

	userID, err := parseUserID(target)
	if err != nil {
		return err
	}
	if err := s.tokens.RevokeAll(ctx, userID); err != nil {
		return utils.NewInternalError("failed to revoke tokens", err)
	}
	return nil
}
