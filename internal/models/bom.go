// internal/models/bom.go
package models

import (
	"time"
)

type BoM struct {
	ID              string    `json:"id" gorm:"primaryKey;size:64"`
	ProductID       string    `json:"productId" gorm:"size:64;index;not null"`
	ProductName     string    `json:"productName" gorm:"-"`
	Version         string    `json:"version" gorm:"size:32;not null"`
	Status          BoMStatus `json:"status" gorm:"type:varchar(20);not null;index"`
	ComponentsCount int       `json:"componentsCount"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt" gorm:"index"`

	// Relationships
	Product    *Product       `json:"-" gorm:"foreignKey:ProductID"`
	Components []BoMComponent `json:"components" gorm:"foreignKey:BoMID;constraint:OnDelete:CASCADE"`
	Operations []BoMOperation `json:"operations" gorm:"foreignKey:BoMID;constraint:OnDelete:CASCADE"`
}

func (BoM) TableName() string {
	return "boms"
}

type BoMComponent struct {
	BaseModel
	BoMID    string  `json:"-" gorm:"column:bom_id;size:64;index;not null"`
	Name     string  `json:"name" gorm:"size:255;not null"`
	Quantity float64 `json:"quantity"`
	Unit     string  `json:"unit" gorm:"size:32"`
	Supplier string  `json:"supplier" gorm:"size:255"`
}

func (BoMComponent) TableName() string {
	return "bom_components"
}

type BoMOperation struct {
	BaseModel
	BoMID      string  `json:"-" gorm:"column:bom_id;size:64;index;not null"`
	Name       string  `json:"name" gorm:"size:255;not null"`
	Duration   float64 `json:"duration"`
	Unit       string  `json:"unit" gorm:"size:32"`
	WorkCenter string  `json:"workCenter" gorm:"size:255"`
}

func (BoMOperation) TableName() string {
	return "bom_operations"
}
