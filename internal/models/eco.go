// internal/models/eco.go
package models

import (
	"time"
)

type ECO struct {
	ID              string      `json:"id" gorm:"primaryKey;size:64"`
	Title           string      `json:"title" gorm:"size:255;not null"`
	Type            ECOType     `json:"type" gorm:"type:varchar(20);not null;index"`
	ProductID       string      `json:"productId" gorm:"size:64;index;not null"`
	ProductName     string      `json:"productName" gorm:"-"`
	BoMID           *string     `json:"bomId" gorm:"column:bom_id;size:64;index"`
	Description     string      `json:"description"`
	CurrentVersion  string      `json:"currentVersion" gorm:"size:32;not null"`
	ProposedVersion string      `json:"proposedVersion" gorm:"size:32;not null"`
	EffectiveDate   time.Time   `json:"effectiveDate"`
	CreatedBy       string      `json:"createdBy" gorm:"size:64;index"`
	CreatedByName   string      `json:"createdByName" gorm:"size:120"`
	Status          ECOStatus   `json:"status" gorm:"type:varchar(32);not null;index"`
	Stage           ECOStage    `json:"stage" gorm:"type:varchar(32);not null;index"`
	Attachments     StringArray `json:"attachments"`
	CreatedAt       time.Time   `json:"createdAt" gorm:"index"`
	UpdatedAt       time.Time   `json:"updatedAt"`

	// Relationships
	Product   *Product         `json:"-" gorm:"foreignKey:ProductID"`
	Changes   []ChangeRecord   `json:"changes" gorm:"foreignKey:ECOID;constraint:OnDelete:CASCADE"`
	Approvals []ApprovalRecord `json:"approvals" gorm:"foreignKey:ECOID;constraint:OnDelete:CASCADE"`
	AuditLog  []AuditLogEntry  `json:"auditLog" gorm:"foreignKey:ECOID;constraint:OnDelete:CASCADE"`
}

func (ECO) TableName() string {
	return "ecos"
}

type ChangeRecord struct {
	BaseModel
	ECOID         string    `json:"-" gorm:"column:eco_id;size:64;index;not null"`
	ComponentName string    `json:"componentName,omitempty" gorm:"size:255"`
	FieldName     string    `json:"fieldName" gorm:"size:255;not null"`
	OldValue      string    `json:"oldValue"`
	NewValue      string    `json:"newValue"`
	Highlight     Highlight `json:"highlight" gorm:"type:varchar(16)"`
}

func (ChangeRecord) TableName() string {
	return "eco_changes"
}

type ApprovalRecord struct {
	BaseModel
	ECOID        string    `json:"-" gorm:"column:eco_id;size:64;index;not null"`
	Role         Role      `json:"role" gorm:"type:varchar(20)"`
	ApproverID   string    `json:"approverId" gorm:"size:64"`
	ApproverName string    `json:"approverName" gorm:"size:120"`
	Status       ECOStatus `json:"status" gorm:"type:varchar(32)"`
	Comment      string    `json:"comment"`
	Timestamp    time.Time `json:"timestamp" gorm:"index"`
}

func (ApprovalRecord) TableName() string {
	return "eco_approvals"
}

type AuditLogEntry struct {
	BaseModel
	ECOID     string    `json:"-" gorm:"column:eco_id;size:64;index;not null"`
	ActorID   string    `json:"actorId" gorm:"size:64"`
	Actor     string    `json:"actor" gorm:"size:120"`
	Action    string    `json:"action" gorm:"size:100"`
	Details   string    `json:"details"`
	Timestamp time.Time `json:"timestamp" gorm:"index"`
}

func (AuditLogEntry) TableName() string {
	return "eco_audit_logs"
}
