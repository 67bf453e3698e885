// internal/models/common.go
package models

import (
	"database/sql/driver"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"
	"gorm.io/gorm/schema"
)

// Base model with common fields
type BaseModel struct {
	ID        uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (b *BaseModel) BeforeCreate(tx *gorm.DB) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	return nil
}

// StringArray is a text[] column on PostgreSQL and a brace-encoded text
// column on other dialects.
type StringArray pq.StringArray

func (a StringArray) Value() (driver.Value, error) {
	return pq.StringArray(a).Value()
}

func (a *StringArray) Scan(src interface{}) error {
	return (*pq.StringArray)(a).Scan(src)
}

func (StringArray) GormDataType() string {
	return "stringarray"
}

func (StringArray) GormDBDataType(db *gorm.DB, field *schema.Field) string {
	if db.Dialector.Name() == "postgres" {
		return "text[]"
	}
	return "text"
}

// Enums
type Role string

const (
	RoleAdmin      Role = "Admin"
	RoleEngineer   Role = "Engineer"
	RoleECOManager Role = "ECO Manager"
	RoleApprover   Role = "Approver"
	RoleOperations Role = "Operations"
)

var AllRoles = []Role{RoleAdmin, RoleEngineer, RoleECOManager, RoleApprover, RoleOperations}

func (r Role) Valid() bool {
	for _, role := range AllRoles {
		if r == role {
			return true
		}
	}
	return false
}

type UserStatus string

const (
	UserStatusActive   UserStatus = "Active"
	UserStatusInactive UserStatus = "Inactive"
)

type ProductStatus string

const (
	ProductStatusActive   ProductStatus = "Active"
	ProductStatusArchived ProductStatus = "Archived"
)

type BoMStatus string

const (
	BoMStatusActive   BoMStatus = "Active"
	BoMStatusDraft    BoMStatus = "Draft"
	BoMStatusArchived BoMStatus = "Archived"
)

type ECOType string

const (
	ECOTypeProduct ECOType = "Product"
	ECOTypeBoM     ECOType = "BoM"
)

type ECOStatus string

const (
	ECOStatusDraft           ECOStatus = "Draft"
	ECOStatusPendingApproval ECOStatus = "Pending Approval"
	ECOStatusApproved        ECOStatus = "Approved"
	ECOStatusImplementation  ECOStatus = "Implementation"
	ECOStatusRejected        ECOStatus = "Rejected"
	ECOStatusCompleted       ECOStatus = "Completed"
	ECOStatusArchived        ECOStatus = "Archived"
)

type ECOStage string

const (
	ECOStageDraft          ECOStage = "Draft"
	ECOStageApproval       ECOStage = "Approval"
	ECOStageImplementation ECOStage = "Implementation"
	ECOStageCompleted      ECOStage = "Completed"
)

type Highlight string

const (
	HighlightChanged   Highlight = "changed"
	HighlightIncreased Highlight = "increased"
	HighlightDecreased Highlight = "decreased"
	HighlightNone      Highlight = "none"
)

const InitialVersion = "v1.0"
