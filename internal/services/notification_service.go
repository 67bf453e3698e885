// internal/services/notification_service.go
package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/javajoker/eco-backend/internal/metrics"
	"github.com/javajoker/eco-backend/internal/models"
	"github.com/javajoker/eco-backend/internal/utils"
)

const notificationListLimit = 50

// Publisher pushes a freshly stored notification to connected clients.
type Publisher interface {
	Publish(userID string, eventType string, data interface{})
}

type NotificationService struct {
	db        *gorm.DB
	publisher Publisher
}

// NotificationTemplate is the content shared by every recipient of a fan-out.
type NotificationTemplate struct {
	Type       string
	Message    string
	Link       string
	EntityType string
	EntityID   string
}

type CreateNotificationRequest struct {
	UserID     string `json:"userId" validate:"required,uuid"`
	Message    string `json:"message" validate:"required,max=1000"`
	Type       string `json:"type" validate:"required,max=50"`
	Link       string `json:"link" validate:"max=255"`
	EntityType string `json:"entityType" validate:"max=50"`
	EntityID   string `json:"entityId" validate:"max=64"`
}

func NewNotificationService(db *gorm.DB, publisher Publisher) *NotificationService {
	return &NotificationService{
		db:        db,
		publisher: publisher,
	}
}

// NotifyActiveUsers writes one unread notification per active user.
func (s *NotificationService) NotifyActiveUsers(ctx context.Context, tmpl NotificationTemplate) error {
	var userIDs []uuid.UUID
	if err := s.db.WithContext(ctx).Model(&models.User{}).
		Where("status = ?", models.UserStatusActive).
		Pluck("id", &userIDs).Error; err != nil {
		return fmt.Errorf("failed to load active users: %w", err)
	}
	return s.notify(ctx, userIDs, tmpl)
}

// NotifyRoles writes one notification per active user holding any of roles.
func (s *NotificationService) NotifyRoles(ctx context.Context, roles []models.Role, tmpl NotificationTemplate) error {
	var userIDs []uuid.UUID
	if err := s.db.WithContext(ctx).Model(&models.User{}).
		Where("status = ? AND role IN ?", models.UserStatusActive, roles).
		Pluck("id", &userIDs).Error; err != nil {
		return fmt.Errorf("failed to load users by role: %w", err)
	}
	return s.notify(ctx, userIDs, tmpl)
}

// NotifyUser writes a single notification; unknown or malformed ids are
// ignored.
func (s *NotificationService) NotifyUser(ctx context.Context, userID string, tmpl NotificationTemplate) error {
	id, err := uuid.Parse(userID)
	if err != nil {
		return nil
	}
	return s.notify(ctx, []uuid.UUID{id}, tmpl)
}

func (s *NotificationService) notify(ctx context.Context, userIDs []uuid.UUID, tmpl NotificationTemplate) error {
	if len(userIDs) == 0 {
		return nil
	}

	rows := make([]models.Notification, 0, len(userIDs))
	for _, id := range userIDs {
		rows = append(rows, models.Notification{
			UserID:     id,
			Type:       tmpl.Type,
			Message:    tmpl.Message,
			Link:       tmpl.Link,
			EntityType: tmpl.EntityType,
			EntityID:   tmpl.EntityID,
			IsUnread:   true,
		})
	}

	if err := s.db.WithContext(ctx).CreateInBatches(&rows, 100).Error; err != nil {
		return fmt.Errorf("failed to create notifications: %w", err)
	}
	metrics.NotificationsCreated.WithLabelValues(tmpl.Type).Add(float64(len(rows)))

	s.publish(rows)
	return nil
}

func (s *NotificationService) publish(rows []models.Notification) {
	if s.publisher == nil {
		return
	}
	for i := range rows {
		s.publisher.Publish(rows[i].UserID.String(), "notification", rows[i])
	}
}

// Create stores a notification described by the caller.
func (s *NotificationService) Create(ctx context.Context, req *CreateNotificationRequest) (*models.Notification, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, utils.ValidationFailure(err)
	}

	userID, _ := uuid.Parse(req.UserID)
	var count int64
	if err := s.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", userID).Count(&count).Error; err != nil {
		return nil, utils.NewInternalError("failed to look up user", err)
	}
	if count == 0 {
		return nil, utils.NewNotFoundError("user")
	}

	notification := models.Notification{
		UserID:     userID,
		Type:       req.Type,
		Message:    req.Message,
		Link:       req.Link,
		EntityType: req.EntityType,
		EntityID:   req.EntityID,
		IsUnread:   true,
	}
	if err := s.db.WithContext(ctx).Create(&notification).Error; err != nil {
		return nil, utils.NewInternalError("failed to create notification", err)
	}
	metrics.NotificationsCreated.WithLabelValues(notification.Type).Inc()

	s.publish([]models.Notification{notification})
	return &notification, nil
}

// List returns the latest notifications of a user, newest first.
func (s *NotificationService) List(ctx context.Context, userID string) ([]models.Notification, error) {
	id, err := parseUserID(userID)
	if err != nil {
		return []models.Notification{}, nil
	}

	notifications := []models.Notification{}
	if err := s.db.WithContext(ctx).
		Where("user_id = ?", id).
		Order("created_at DESC").
		Limit(notificationListLimit).
		Find(&notifications).Error; err != nil {
		return nil, utils.NewInternalError("failed to list notifications", err)
	}
	return notifications, nil
}

func (s *NotificationService) UnreadCount(ctx context.Context, userID string) (int64, error) {
	id, err := parseUserID(userID)
	if err != nil {
		return 0, nil
	}

	var count int64
	if err := s.db.WithContext(ctx).Model(&models.Notification{}).
		Where("user_id = ? AND is_unread = ?", id, true).
		Count(&count).Error; err != nil {
		return 0, utils.NewInternalError("failed to count notifications", err)
	}
	return count, nil
}

// MarkRead clears the unread flag of one notification owned by userID.
func (s *NotificationService) MarkRead(ctx context.Context, userID, notificationID string) error {
	uid, err := parseUserID(userID)
	if err != nil {
		return err
	}
	nid, err := uuid.Parse(notificationID)
	if err != nil {
		return utils.NewNotFoundError("notification")
	}

	var notification models.Notification
	err = s.db.WithContext(ctx).Where("id = ? AND user_id = ?", nid, uid).First(&notification).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return utils.NewNotFoundError("notification")
	}
	if err != nil {
		return utils.NewInternalError("failed to load notification", err)
	}

	if err := s.db.WithContext(ctx).Model(&notification).Update("is_unread", false).Error; err != nil {
		return utils.NewInternalError("failed to update notification", err)
	}
	return nil
}

// MarkAllRead clears every unread notification of userID and returns how many
// were updated.
func (s *NotificationService) MarkAllRead(ctx context.Context, userID string) (int64, error) {
	uid, err := parseUserID(userID)
	if err != nil {
		return 0, err
	}

	result := s.db.WithContext(ctx).Model(&models.Notification{}).
		Where("user_id = ? AND is_unread = ?", uid, true).
		Update("is_unread", false)
	if result.Error != nil {
		return 0, utils.NewInternalError("failed to update notifications", result.Error)
	}
	return result.RowsAffected, nil
}

// logFailure is used for fan-outs that run after the triggering write has
// committed; their failure must not fail the request.
func logFailure(err error, event string, fields logrus.Fields) {
	if err == nil {
		return
	}
	logrus.WithError(err).WithFields(fields).Warn("Notification fan-out failed: " + event)
}
