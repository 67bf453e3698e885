// internal/services/product_service.go
package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/javajoker/eco-backend/internal/database"
	"github.com/javajoker/eco-backend/internal/i18n"
	"github.com/javajoker/eco-backend/internal/models"
	"github.com/javajoker/eco-backend/internal/utils"
)

type ProductService struct {
	db                  *gorm.DB
	notificationService *NotificationService
}

type CreateProductRequest struct {
	ID           string               `json:"id" validate:"required,entity_id"`
	Name         string               `json:"name" validate:"required,max=255"`
	Category     string               `json:"category" validate:"max=100"`
	SalePrice    float64              `json:"salePrice" validate:"gte=0"`
	CostPrice    float64              `json:"costPrice" validate:"gte=0"`
	SKU          string               `json:"sku" validate:"required,max=100"`
	Description  string               `json:"description" validate:"max=5000"`
	Manufacturer string               `json:"manufacturer" validate:"max=255"`
	Status       models.ProductStatus `json:"status" validate:"omitempty,oneof=Active Archived"`
}

type UpdateProductRequest struct {
	Name         *string               `json:"name" validate:"omitempty,min=1,max=255"`
	Category     *string               `json:"category" validate:"omitempty,max=100"`
	SalePrice    *float64              `json:"salePrice" validate:"omitempty,gte=0"`
	CostPrice    *float64              `json:"costPrice" validate:"omitempty,gte=0"`
	SKU          *string               `json:"sku" validate:"omitempty,min=1,max=100"`
	Description  *string               `json:"description" validate:"omitempty,max=5000"`
	Manufacturer *string               `json:"manufacturer" validate:"omitempty,max=255"`
	Status       *models.ProductStatus `json:"status" validate:"omitempty,oneof=Active Archived"`
}

type ProductFilter struct {
	utils.PaginationParams
	Status   string
	Category string
}

func NewProductService(db *gorm.DB, notificationService *NotificationService) *ProductService {
	return &ProductService{
		db:                  db,
		notificationService: notificationService,
	}
}

// CreateProduct stores the product with its initial version and notifies
// every active user once the write has committed.
func (s *ProductService) CreateProduct(ctx context.Context, req *CreateProductRequest) (*models.Product, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, utils.ValidationFailure(err)
	}

	status := req.Status
	if status == "" {
		status = models.ProductStatusActive
	}

	product := &models.Product{
		ID:             req.ID,
		Name:           req.Name,
		Category:       req.Category,
		SalePrice:      req.SalePrice,
		CostPrice:      req.CostPrice,
		SKU:            req.SKU,
		Description:    req.Description,
		Manufacturer:   req.Manufacturer,
		Status:         status,
		CurrentVersion: models.InitialVersion,
	}

	err := database.WithTransaction(s.db.WithContext(ctx), func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.Product{}).Where("id = ?", req.ID).Count(&count).Error; err != nil {
			return utils.NewInternalError("failed to check product id", err)
		}
		if count > 0 {
			return utils.NewConflictError(fmt.Sprintf("product %s already exists", req.ID))
		}

		if err := tx.Create(product).Error; err != nil {
			if isDuplicateKey(err) {
				return utils.NewConflictError(fmt.Sprintf("product %s already exists", req.ID))
			}
			return utils.NewInternalError("failed to create product", err)
		}

		version := models.ProductVersion{
			ProductID: product.ID,
			Version:   models.InitialVersion,
			Note:      "Initial creation",
		}
		if err := tx.Create(&version).Error; err != nil {
			return utils.NewInternalError("failed to create product version", err)
		}
		product.Versions = []models.ProductVersion{version}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.notificationService != nil {
		logFailure(s.notificationService.NotifyActiveUsers(ctx, NotificationTemplate{
			Type:       "product_created",
			Message:    i18n.T("en", i18n.KeyNotificationProduct, product.Name, product.ID),
			Link:       "/products/" + product.ID,
			EntityType: "product",
			EntityID:   product.ID,
		}), "product_created", logrus.Fields{"product_id": product.ID})
	}

	return product, nil
}

func (s *ProductService) GetProduct(ctx context.Context, id string) (*models.Product, error) {
	var product models.Product
	err := s.db.WithContext(ctx).
		Preload("Versions", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at DESC")
		}).
		Where("id = ?", id).
		First(&product).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, utils.NewNotFoundError("product")
	}
	if err != nil {
		return nil, utils.NewInternalError("failed to load product", err)
	}
	return &product, nil
}

func (s *ProductService) ListProducts(ctx context.Context, filter ProductFilter) (utils.PaginationResult, error) {
	query := s.db.WithContext(ctx).Model(&models.Product{})

	if filter.Search != "" {
		cond, args := utils.SearchCondition(filter.Search, "name", "id")
		query = query.Where(cond, args...)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.Category != "" {
		query = query.Where("category = ?", filter.Category)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return utils.PaginationResult{}, utils.NewInternalError("failed to count products", err)
	}

	products := []models.Product{}
	if err := utils.ApplyPagination(query.Order("created_at DESC"), filter.PaginationParams).
		Find(&products).Error; err != nil {
		return utils.PaginationResult{}, utils.NewInternalError("failed to list products", err)
	}

	return utils.CreatePaginationResult(products, total, filter.PaginationParams), nil
}

// UpdateProduct applies a partial update. The version label only changes
// through a completed ECO.
func (s *ProductService) UpdateProduct(ctx context.Context, id string, req *UpdateProductRequest) (*models.Product, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, utils.ValidationFailure(err)
	}

	updates := map[string]interface{}{}
	if req.Name != nil {
		updates["name"] = *req.Name
	}
	if req.Category != nil {
		updates["category"] = *req.Category
	}
	if req.SalePrice != nil {
		updates["sale_price"] = *req.SalePrice
	}
	if req.CostPrice != nil {
		updates["cost_price"] = *req.CostPrice
	}
	if req.SKU != nil {
		updates["sku"] = *req.SKU
	}
	if req.Description != nil {
		updates["description"] = *req.Description
	}
	if req.Manufacturer != nil {
		updates["manufacturer"] = *req.Manufacturer
	}
	if req.Status != nil {
		updates["status"] = *req.Status
	}

	product, err := s.GetProduct(ctx, id)
	if err != nil {
		return nil, err
	}
	if len(updates) == 0 {
		return product, nil
	}

	if err := s.db.WithContext(ctx).Model(product).Updates(updates).Error; err != nil {
		return nil, utils.NewInternalError("failed to update product", err)
	}

	return s.GetProduct(ctx, id)
}

// DeleteProduct removes the product and its version history. Products still
// referenced by a BoM or an ECO cannot be deleted.
func (s *ProductService) DeleteProduct(ctx context.Context, id string) error {
	return database.WithTransaction(s.db.WithContext(ctx), func(tx *gorm.DB) error {
		var product models.Product
		if err := tx.Where("id = ?", id).First(&product).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return utils.NewNotFoundError("product")
			}
			return utils.NewInternalError("failed to load product", err)
		}

		var bomCount, ecoCount int64
		if err := tx.Model(&models.BoM{}).Where("product_id = ?", id).Count(&bomCount).Error; err != nil {
			return utils.NewInternalError("failed to check BoM references", err)
		}
		if err := tx.Model(&models.ECO{}).Where("product_id = ?", id).Count(&ecoCount).Error; err != nil {
			return utils.NewInternalError("failed to check ECO references", err)
		}
		if bomCount > 0 || ecoCount > 0 {
			return utils.NewConflictError(fmt.Sprintf(
				"product %s is referenced by %d BoM(s) and %d ECO(s)", id, bomCount, ecoCount))
		}

		if err := tx.Where("product_id = ?", id).Delete(&models.ProductVersion{}).Error; err != nil {
			return utils.NewInternalError("failed to delete product versions", err)
		}
		if err := tx.Delete(&product).Error; err != nil {
			return utils.NewInternalError("failed to delete product", err)
		}
		return nil
	})
}

func (s *ProductService) Categories(ctx context.Context) ([]string, error) {
	categories := []string{}
	if err := s.db.WithContext(ctx).Model(&models.Product{}).
		Where("category <> ''").
		Distinct().
		Order("category").
		Pluck("category", &categories).Error; err != nil {
		return nil, utils.NewInternalError("failed to list categories", err)
	}
	return categories, nil
}
