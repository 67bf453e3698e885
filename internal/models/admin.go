// internal/models/admin.go
package models

import (
	"time"

	"github.com/google/uuid"
)

type RoleDefinition struct {
	BaseModel
	Name        string `json:"name" gorm:"uniqueIndex;size:50;not null"`
	Description string `json:"description"`
	Permissions string `json:"permissions" gorm:"size:255"`
}

func (RoleDefinition) TableName() string {
	return "roles"
}

type SystemSetting struct {
	Key       string    `json:"key" gorm:"primaryKey;size:100"`
	Value     string    `json:"value"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type Notification struct {
	BaseModel
	UserID     uuid.UUID `json:"userId" gorm:"type:uuid;index;not null"`
	Type       string    `json:"type" gorm:"size:50;not null"`
	Message    string    `json:"message" gorm:"not null"`
	Link       string    `json:"link,omitempty" gorm:"size:255"`
	EntityType string    `json:"entityType,omitempty" gorm:"size:50"`
	EntityID   string    `json:"entityId,omitempty" gorm:"size:64"`
	IsUnread   bool      `json:"isUnread" gorm:"index"`
}

// RefreshToken is the server-side record of an issued refresh token, keyed
// by its JWT id.
type RefreshToken struct {
	ID        string     `json:"id" gorm:"primaryKey;size:64"`
	UserID    uuid.UUID  `json:"userId" gorm:"type:uuid;index;not null"`
	ExpiresAt time.Time  `json:"expiresAt"`
	RevokedAt *time.Time `json:"revokedAt"`
	CreatedAt time.Time  `json:"createdAt"`
}
