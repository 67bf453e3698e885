// internal/services/admin_service.go
package services

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/javajoker/eco-backend/internal/database"
	"github.com/javajoker/eco-backend/internal/models"
	"github.com/javajoker/eco-backend/internal/utils"
)

// AdminService owns roles, system settings and the user activity trail.
type AdminService struct {
	db *gorm.DB
}

type CreateRoleRequest struct {
	Name        string `json:"name" validate:"required,max=50"`
	Description string `json:"description" validate:"max=1000"`
	Permissions string `json:"permissions" validate:"max=255"`
}

type ActivityEntry struct {
	UserID     string
	Action     string
	Method     string
	Path       string
	StatusCode int
	IP         string
	UserAgent  string
}

func NewAdminService(db *gorm.DB) *AdminService {
	return &AdminService{db: db}
}

// Roles

func (s *AdminService) ListRoles(ctx context.Context) ([]models.RoleDefinition, error) {
	roles := []models.RoleDefinition{}
	if err := s.db.WithContext(ctx).Order("name").Find(&roles).Error; err != nil {
		return nil, utils.NewInternalError("failed to list roles", err)
	}
	return roles, nil
}

func (s *AdminService) CreateRole(ctx context.Context, req *CreateRoleRequest) (*models.RoleDefinition, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, utils.ValidationFailure(err)
	}

	role := &models.RoleDefinition{
		Name:        strings.TrimSpace(req.Name),
		Description: req.Description,
		Permissions: req.Permissions,
	}

	err := database.WithTransaction(s.db.WithContext(ctx), func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.RoleDefinition{}).Where("name = ?", role.Name).Count(&count).Error; err != nil {
			return utils.NewInternalError("failed to check role name", err)
		}
		if count > 0 {
			return utils.NewConflictError(fmt.Sprintf("role %s already exists", role.Name))
		}
		if err := tx.Create(role).Error; err != nil {
			if isDuplicateKey(err) {
				return utils.NewConflictError(fmt.Sprintf("role %s already exists", role.Name))
			}
			return utils.NewInternalError("failed to create role", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return role, nil
}

// Settings

func (s *AdminService) GetSettings(ctx context.Context) (map[string]string, error) {
	var settings []models.SystemSetting
	if err := s.db.WithContext(ctx).Find(&settings).Error; err != nil {
		return nil, utils.NewInternalError("failed to fetch settings", err)
	}

	settingsMap := make(map[string]string, len(settings))
	for _, setting := range settings {
		settingsMap[setting.Key] = setting.Value
	}
	return settingsMap, nil
}

// UpdateSettings upserts every key in one transaction. Non-string values are
// stored as their JSON encoding.
func (s *AdminService) UpdateSettings(ctx context.Context, values map[string]interface{}) (map[string]string, error) {
	if len(values) == 0 {
		return nil, utils.NewValidationError("at least one setting is required", nil)
	}

	keys := make([]string, 0, len(values))
	for key := range values {
		if strings.TrimSpace(key) == "" || len(key) > 100 {
			return nil, utils.NewValidationError(fmt.Sprintf("invalid setting key %q", key), nil)
		}
		keys = append(keys, key)
	}
	sort.Strings(keys)

	rows := make([]models.SystemSetting, 0, len(keys))
	now := time.Now()
	for _, key := range keys {
		value, err := settingValue(values[key])
		if err != nil {
			return nil, utils.NewValidationError(fmt.Sprintf("invalid value for setting %s", key), nil)
		}
		rows = append(rows, models.SystemSetting{Key: key, Value: value, UpdatedAt: now})
	}

	err := database.WithTransaction(s.db.WithContext(ctx), func(tx *gorm.DB) error {
		err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "key"}},
			DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
		}).Create(&rows).Error
		if err != nil {
			return utils.NewInternalError("failed to update settings", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return s.GetSettings(ctx)
}

func settingValue(v interface{}) (string, error) {
	switch value := v.(type) {
	case string:
		return value, nil
	case nil:
		return "", nil
	default:
		data, err := json.Marshal(value)
		if err != nil {
			return "", err
		}
		return string(data), nil
	}
}

// Activity

// RecordActivity appends one entry to a user's activity trail.
func (s *AdminService) RecordActivity(ctx context.Context, entry ActivityEntry) error {
	userID, err := uuid.Parse(entry.UserID)
	if err != nil {
		return nil
	}

	activity := models.UserActivity{
		UserID:     userID,
		Action:     entry.Action,
		Method:     entry.Method,
		Path:       entry.Path,
		StatusCode: entry.StatusCode,
		IP:         entry.IP,
		UserAgent:  entry.UserAgent,
		Timestamp:  time.Now(),
	}
	if err := s.db.WithContext(ctx).Create(&activity).Error; err != nil {
		return fmt.Errorf("failed to record activity: %w", err)
	}
	return nil
}
