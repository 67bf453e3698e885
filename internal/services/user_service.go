// internal/services/user_service.go
package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/javajoker/eco-backend/internal/database"
	"github.com/javajoker/eco-backend/internal/models"
	"github.com/javajoker/eco-backend/internal/utils"
)

const recentActivityLimit = 20

type UserService struct {
	db          *gorm.DB
	authService *AuthService
}

type CreateUserRequest struct {
	Name        string            `json:"name" validate:"required,max=120"`
	Email       string            `json:"email" validate:"required,email"`
	Password    string            `json:"password" validate:"required,min=8,max=72"`
	Role        models.Role       `json:"role" validate:"required,user_role"`
	Status      models.UserStatus `json:"status" validate:"omitempty,oneof=Active Inactive"`
	Location    string            `json:"location" validate:"max=255"`
	Phone       string            `json:"phone" validate:"max=50"`
	Description string            `json:"description" validate:"max=2000"`
}

type UpdateUserRequest struct {
	Name        *string            `json:"name" validate:"omitempty,min=1,max=120"`
	Email       *string            `json:"email" validate:"omitempty,email"`
	Role        *models.Role       `json:"role" validate:"omitempty,user_role"`
	Status      *models.UserStatus `json:"status" validate:"omitempty,oneof=Active Inactive"`
	Location    *string            `json:"location" validate:"omitempty,max=255"`
	Phone       *string            `json:"phone" validate:"omitempty,max=50"`
	Description *string            `json:"description" validate:"omitempty,max=2000"`
	Picture     *string            `json:"picture" validate:"omitempty,max=512"`
	Password    *string            `json:"password" validate:"omitempty,min=8,max=72"`
}

// UpdateProfileRequest is the self-service subset; role and status are not
// writable here.
type UpdateProfileRequest struct {
	Name        *string `json:"name" validate:"omitempty,min=1,max=120"`
	Email       *string `json:"email" validate:"omitempty,email"`
	Location    *string `json:"location" validate:"omitempty,max=255"`
	Phone       *string `json:"phone" validate:"omitempty,max=50"`
	Description *string `json:"description" validate:"omitempty,max=2000"`
	Picture     *string `json:"picture" validate:"omitempty,max=512"`
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"currentPassword" validate:"required"`
	NewPassword     string `json:"newPassword" validate:"required,min=8,max=72"`
}

type UserFilter struct {
	utils.PaginationParams
	Role   string
	Status string
}

func NewUserService(db *gorm.DB, authService *AuthService) *UserService {
	return &UserService{
		db:          db,
		authService: authService,
	}
}

func (s *UserService) ListUsers(ctx context.Context, filter UserFilter) (utils.PaginationResult, error) {
	query := s.db.WithContext(ctx).Model(&models.User{})

	if filter.Search != "" {
		cond, args := utils.SearchCondition(filter.Search, "name", "email")
		query = query.Where(cond, args...)
	}
	if filter.Role != "" {
		query = query.Where("role = ?", filter.Role)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return utils.PaginationResult{}, utils.NewInternalError("failed to count users", err)
	}

	users := []models.User{}
	if err := utils.ApplyPagination(query.Order("created_at DESC"), filter.PaginationParams).
		Find(&users).Error; err != nil {
		return utils.PaginationResult{}, utils.NewInternalError("failed to list users", err)
	}

	return utils.CreatePaginationResult(users, total, filter.PaginationParams), nil
}

func (s *UserService) GetUser(ctx context.Context, id string) (*models.User, error) {
	userID, err := parseUserID(id)
	if err != nil {
		return nil, err
	}

	var user models.User
	err = s.db.WithContext(ctx).
		Preload("Activity", func(db *gorm.DB) *gorm.DB {
			return db.Order("timestamp DESC").Limit(recentActivityLimit)
		}).
		Where("id = ?", userID).
		First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, utils.NewNotFoundError("user")
	}
	if err != nil {
		return nil, utils.NewInternalError("failed to load user", err)
	}
	return &user, nil
}

func (s *UserService) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	err := s.db.WithContext(ctx).Where("email = ?", normalizeEmail(email)).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, utils.NewNotFoundError("user")
	}
	if err != nil {
		return nil, utils.NewInternalError("failed to load user", err)
	}
	return &user, nil
}

func (s *UserService) CreateUser(ctx context.Context, req *CreateUserRequest) (*models.User, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, utils.ValidationFailure(err)
	}

	status := req.Status
	if status == "" {
		status = models.UserStatusActive
	}

	user := &models.User{
		Name:        req.Name,
		Email:       normalizeEmail(req.Email),
		Role:        req.Role,
		Status:      status,
		Location:    req.Location,
		Phone:       req.Phone,
		Description: req.Description,
	}
	if err := user.SetPassword(req.Password); err != nil {
		return nil, utils.NewInternalError("failed to hash password", err)
	}

	err := database.WithTransaction(s.db.WithContext(ctx), func(tx *gorm.DB) error {
		if err := s.ensureEmailFree(tx, user.Email, uuid.Nil); err != nil {
			return err
		}
		if err := tx.Create(user).Error; err != nil {
			if isDuplicateKey(err) {
				return utils.NewConflictError("a user with this email already exists")
			}
			return utils.NewInternalError("failed to create user", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

// UpdateUser is the administrative update; it may reset the password.
func (s *UserService) UpdateUser(ctx context.Context, id string, req *UpdateUserRequest) (*models.User, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, utils.ValidationFailure(err)
	}

	updates := map[string]interface{}{}
	if req.Role != nil {
		updates["role"] = *req.Role
	}
	if req.Status != nil {
		updates["status"] = *req.Status
	}
	if req.Password != nil {
		var hashed models.User
		if err := hashed.SetPassword(*req.Password); err != nil {
			return nil, utils.NewInternalError("failed to hash password", err)
		}
		updates["password"] = hashed.Password
	}
	applyProfileFields(updates, req.Name, req.Email, req.Location, req.Phone, req.Description, req.Picture)

	return s.applyUpdates(ctx, id, updates)
}

func (s *UserService) UpdateProfile(ctx context.Context, id string, req *UpdateProfileRequest) (*models.User, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, utils.ValidationFailure(err)
	}

	updates := map[string]interface{}{}
	applyProfileFields(updates, req.Name, req.Email, req.Location, req.Phone, req.Description, req.Picture)

	return s.applyUpdates(ctx, id, updates)
}

func (s *UserService) UpdatePicture(ctx context.Context, id, url string) (*models.User, error) {
	return s.applyUpdates(ctx, id, map[string]interface{}{"picture": url})
}

// ChangePassword verifies the current password as login does and stores the
// new one hashed.
func (s *UserService) ChangePassword(ctx context.Context, id string, req *ChangePasswordRequest) error {
	if err := utils.ValidateStruct(req); err != nil {
		return utils.ValidationFailure(err)
	}

	userID, err := parseUserID(id)
	if err != nil {
		return err
	}

	var user models.User
	if err := s.db.WithContext(ctx).Where("id = ?", userID).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return utils.NewNotFoundError("user")
		}
		return utils.NewInternalError("failed to load user", err)
	}

	if !s.authService.VerifyPassword(&user, req.CurrentPassword) {
		return utils.NewValidationError("current password is incorrect", nil)
	}

	if err := user.SetPassword(req.NewPassword); err != nil {
		return utils.NewInternalError("failed to hash password", err)
	}
	if err := s.db.WithContext(ctx).Model(&user).Update("password", user.Password).Error; err != nil {
		return utils.NewInternalError("failed to update password", err)
	}
	return nil
}

// DeleteUser removes a user and the rows that belong to them. Admin accounts
// cannot be deleted.
func (s *UserService) DeleteUser(ctx context.Context, id string) error {
	userID, err := parseUserID(id)
	if err != nil {
		return err
	}

	return database.WithTransaction(s.db.WithContext(ctx), func(tx *gorm.DB) error {
		var user models.User
		if err := tx.Where("id = ?", userID).First(&user).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return utils.NewNotFoundError("user")
			}
			return utils.NewInternalError("failed to load user", err)
		}
		if user.Role == models.RoleAdmin {
			return utils.NewForbiddenError("admin accounts cannot be deleted")
		}

		for _, child := range []interface{}{&models.UserActivity{}, &models.Notification{}, &models.RefreshToken{}} {
			if err := tx.Where("user_id = ?", userID).Delete(child).Error; err != nil {
				return utils.NewInternalError("failed to delete user records", err)
			}
		}
		if err := tx.Delete(&user).Error; err != nil {
			return utils.NewInternalError("failed to delete user", err)
		}
		return nil
	})
}

func (s *UserService) applyUpdates(ctx context.Context, id string, updates map[string]interface{}) (*models.User, error) {
	userID, err := parseUserID(id)
	if err != nil {
		return nil, err
	}

	err = database.WithTransaction(s.db.WithContext(ctx), func(tx *gorm.DB) error {
		var user models.User
		if err := tx.Where("id = ?", userID).First(&user).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return utils.NewNotFoundError("user")
			}
			return utils.NewInternalError("failed to load user", err)
		}
		if len(updates) == 0 {
			return nil
		}

		if email, ok := updates["email"].(string); ok && email != user.Email {
			if err := s.ensureEmailFree(tx, email, user.ID); err != nil {
				return err
			}
		}

		if err := tx.Model(&user).Updates(updates).Error; err != nil {
			if isDuplicateKey(err) {
				return utils.NewConflictError("a user with this email already exists")
			}
			return utils.NewInternalError("failed to update user", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return s.GetUser(ctx, id)
}

func (s *UserService) ensureEmailFree(tx *gorm.DB, email string, except uuid.UUID) error {
	var count int64
	if err := tx.Model(&models.User{}).Where("email = ? AND id <> ?", email, except).Count(&count).Error; err != nil {
		return utils.NewInternalError("failed to check email", err)
	}
	if count > 0 {
		return utils.NewConflictError(fmt.Sprintf("a user with email %s already exists", email))
	}
	return nil
}

func applyProfileFields(updates map[string]interface{}, name, email, location, phone, description, picture *string) {
	if name != nil {
		updates["name"] = *name
	}
	if email != nil {
		updates["email"] = normalizeEmail(*email)
	}
	if location != nil {
		updates["location"] = *location
	}
	if phone != nil {
		updates["phone"] = *phone
	}
	if description != nil {
		updates["description"] = *description
	}
	if picture != nil {
		updates["picture"] = *picture
	}
}
