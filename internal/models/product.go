// internal/models/product.go
package models

import (
	"time"
)

type Product struct {
	ID             string        `json:"id" gorm:"primaryKey;size:64"`
	Name           string        `json:"name" gorm:"size:255;not null"`
	Category       string        `json:"category" gorm:"size:100;index"`
	SalePrice      float64       `json:"salePrice"`
	CostPrice      float64       `json:"costPrice"`
	SKU            string        `json:"sku" gorm:"column:sku;size:100;not null"`
	Description    string        `json:"description"`
	Manufacturer   string        `json:"manufacturer" gorm:"size:255"`
	Status         ProductStatus `json:"status" gorm:"type:varchar(20);not null;index"`
	CurrentVersion string        `json:"currentVersion" gorm:"size:32;not null"`
	CreatedAt      time.Time     `json:"createdAt"`
	UpdatedAt      time.Time     `json:"updatedAt"`

	// Relationships
	Versions []ProductVersion `json:"versions,omitempty" gorm:"foreignKey:ProductID;constraint:OnDelete:CASCADE"`
}

type ProductVersion struct {
	BaseModel
	ProductID string `json:"productId" gorm:"size:64;index;not null"`
	Version   string `json:"version" gorm:"size:32;not null"`
	Note      string `json:"note"`
}
