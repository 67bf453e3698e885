// internal/services/bom_service.go
package services

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/javajoker/eco-backend/internal/database"
	"github.com/javajoker/eco-backend/internal/models"
	"github.com/javajoker/eco-backend/internal/utils"
)

type BoMService struct {
	db *gorm.DB
}

type ComponentInput struct {
	Name     string  `json:"name" validate:"required,max=255"`
	Quantity float64 `json:"quantity" validate:"gte=0"`
	Unit     string  `json:"unit" validate:"max=32"`
	Supplier string  `json:"supplier" validate:"max=255"`
}

type OperationInput struct {
	Name       string  `json:"name" validate:"required,max=255"`
	Duration   float64 `json:"duration" validate:"gte=0"`
	Unit       string  `json:"unit" validate:"max=32"`
	WorkCenter string  `json:"workCenter" validate:"max=255"`
}

type CreateBoMRequest struct {
	ID         string           `json:"id" validate:"required,entity_id"`
	ProductID  string           `json:"productId" validate:"required"`
	Version    string           `json:"version" validate:"omitempty,version"`
	Status     models.BoMStatus `json:"status" validate:"omitempty,oneof=Active Draft Archived"`
	Components []ComponentInput `json:"components" validate:"dive"`
	Operations []OperationInput `json:"operations" validate:"dive"`
}

// UpdateBoMRequest replaces the component or operation list when the
// corresponding field is present.
type UpdateBoMRequest struct {
	Version    *string           `json:"version" validate:"omitempty,version"`
	Status     *models.BoMStatus `json:"status" validate:"omitempty,oneof=Active Draft Archived"`
	Components *[]ComponentInput `json:"components" validate:"omitempty,dive"`
	Operations *[]OperationInput `json:"operations" validate:"omitempty,dive"`
}

type BoMFilter struct {
	utils.PaginationParams
	Status    string
	ProductID string
}

func NewBoMService(db *gorm.DB) *BoMService {
	return &BoMService{db: db}
}

func (s *BoMService) CreateBoM(ctx context.Context, req *CreateBoMRequest) (*models.BoM, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, utils.ValidationFailure(err)
	}

	version := req.Version
	if version == "" {
		version = models.InitialVersion
	}
	status := req.Status
	if status == "" {
		status = models.BoMStatusActive
	}

	bom := &models.BoM{
		ID:              req.ID,
		ProductID:       req.ProductID,
		Version:         version,
		Status:          status,
		ComponentsCount: len(req.Components),
		Components:      buildComponents(req.Components),
		Operations:      buildOperations(req.Operations),
	}

	err := database.WithTransaction(s.db.WithContext(ctx), func(tx *gorm.DB) error {
		var product models.Product
		if err := tx.Select("id").Where("id = ?", req.ProductID).First(&product).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return utils.NewNotFoundError("product")
			}
			return utils.NewInternalError("failed to load product", err)
		}

		var count int64
		if err := tx.Model(&models.BoM{}).Where("id = ?", req.ID).Count(&count).Error; err != nil {
			return utils.NewInternalError("failed to check BoM id", err)
		}
		if count > 0 {
			return utils.NewConflictError(fmt.Sprintf("BoM %s already exists", req.ID))
		}

		// Components and operations are inserted with the BoM row.
		if err := tx.Create(bom).Error; err != nil {
			if isDuplicateKey(err) {
				return utils.NewConflictError(fmt.Sprintf("BoM %s already exists", req.ID))
			}
			return utils.NewInternalError("failed to create BoM", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return s.GetBoM(ctx, bom.ID)
}

func (s *BoMService) GetBoM(ctx context.Context, id string) (*models.BoM, error) {
	var bom models.BoM
	err := s.db.WithContext(ctx).
		Preload("Product").
		Preload("Components", func(db *gorm.DB) *gorm.DB { return db.Order("created_at") }).
		Preload("Operations", func(db *gorm.DB) *gorm.DB { return db.Order("created_at") }).
		Where("id = ?", id).
		First(&bom).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, utils.NewNotFoundError("BoM")
	}
	if err != nil {
		return nil, utils.NewInternalError("failed to load BoM", err)
	}

	fillBoMProductName(&bom)
	return &bom, nil
}

// ListBoMs matches the search text against the BoM id and product name
// case-insensitively; the status filter is an exact match.
func (s *BoMService) ListBoMs(ctx context.Context, filter BoMFilter) (utils.PaginationResult, error) {
	query := s.db.WithContext(ctx).Model(&models.BoM{}).
		Joins("LEFT JOIN products ON products.id = boms.product_id")

	if filter.Search != "" {
		cond, args := utils.SearchCondition(filter.Search, "boms.id", "products.name")
		query = query.Where(cond, args...)
	}
	if filter.Status != "" {
		query = query.Where("boms.status = ?", filter.Status)
	}
	if filter.ProductID != "" {
		query = query.Where("boms.product_id = ?", filter.ProductID)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return utils.PaginationResult{}, utils.NewInternalError("failed to count BoMs", err)
	}

	boms := []models.BoM{}
	err := utils.ApplyPagination(query.Select("boms.*").Order("boms.updated_at DESC"), filter.PaginationParams).
		Preload("Product").
		Preload("Components", func(db *gorm.DB) *gorm.DB { return db.Order("created_at") }).
		Preload("Operations", func(db *gorm.DB) *gorm.DB { return db.Order("created_at") }).
		Find(&boms).Error
	if err != nil {
		return utils.PaginationResult{}, utils.NewInternalError("failed to list BoMs", err)
	}

	for i := range boms {
		fillBoMProductName(&boms[i])
	}

	return utils.CreatePaginationResult(boms, total, filter.PaginationParams), nil
}

// UpdateBoM changes status and version in place. Supplied component or
// operation lists replace the stored ones, and componentsCount is recomputed
// from the stored rows in the same transaction.
func (s *BoMService) UpdateBoM(ctx context.Context, id string, req *UpdateBoMRequest) (*models.BoM, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, utils.ValidationFailure(err)
	}

	err := database.WithTransaction(s.db.WithContext(ctx), func(tx *gorm.DB) error {
		var bom models.BoM
		if err := tx.Where("id = ?", id).First(&bom).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return utils.NewNotFoundError("BoM")
			}
			return utils.NewInternalError("failed to load BoM", err)
		}

		updates := map[string]interface{}{}
		if req.Version != nil {
			updates["version"] = *req.Version
		}
		if req.Status != nil {
			updates["status"] = *req.Status
		}

		if req.Components != nil {
			if err := tx.Where("bom_id = ?", id).Delete(&models.BoMComponent{}).Error; err != nil {
				return utils.NewInternalError("failed to replace components", err)
			}
			if components := buildComponents(*req.Components); len(components) > 0 {
				for i := range components {
					components[i].BoMID = id
				}
				if err := tx.Create(&components).Error; err != nil {
					return utils.NewInternalError("failed to replace components", err)
				}
			}

			var count int64
			if err := tx.Model(&models.BoMComponent{}).Where("bom_id = ?", id).Count(&count).Error; err != nil {
				return utils.NewInternalError("failed to count components", err)
			}
			updates["components_count"] = int(count)
		}

		if req.Operations != nil {
			if err := tx.Where("bom_id = ?", id).Delete(&models.BoMOperation{}).Error; err != nil {
				return utils.NewInternalError("failed to replace operations", err)
			}
			if operations := buildOperations(*req.Operations); len(operations) > 0 {
				for i := range operations {
					operations[i].BoMID = id
				}
				if err := tx.Create(&operations).Error; err != nil {
					return utils.NewInternalError("failed to replace operations", err)
				}
			}
		}

		if len(updates) == 0 && req.Operations == nil {
			return nil
		}
		if len(updates) == 0 {
			// Touch the row so list ordering reflects the edit.
			updates["components_count"] = bom.ComponentsCount
		}
		if err := tx.Model(&bom).Updates(updates).Error; err != nil {
			return utils.NewInternalError("failed to update BoM", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return s.GetBoM(ctx, id)
}

// DeleteBoM removes a BoM and its children unless an ECO still references it.
func (s *BoMService) DeleteBoM(ctx context.Context, id string) error {
	return database.WithTransaction(s.db.WithContext(ctx), func(tx *gorm.DB) error {
		var bom models.BoM
		if err := tx.Where("id = ?", id).First(&bom).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return utils.NewNotFoundError("BoM")
			}
			return utils.NewInternalError("failed to load BoM", err)
		}

		var ecoCount int64
		if err := tx.Model(&models.ECO{}).Where("bom_id = ?", id).Count(&ecoCount).Error; err != nil {
			return utils.NewInternalError("failed to check ECO references", err)
		}
		if ecoCount > 0 {
			return utils.NewConflictError(fmt.Sprintf("BoM %s is referenced by %d ECO(s)", id, ecoCount))
		}

		if err := tx.Where("bom_id = ?", id).Delete(&models.BoMComponent{}).Error; err != nil {
			return utils.NewInternalError("failed to delete components", err)
		}
		if err := tx.Where("bom_id = ?", id).Delete(&models.BoMOperation{}).Error; err != nil {
			return utils.NewInternalError("failed to delete operations", err)
		}
		if err := tx.Delete(&bom).Error; err != nil {
			return utils.NewInternalError("failed to delete BoM", err)
		}
		return nil
	})
}

func buildComponents(inputs []ComponentInput) []models.BoMComponent {
	components := make([]models.BoMComponent, 0, len(inputs))
	for _, in := range inputs {
		components = append(components, models.BoMComponent{
			Name:     in.Name,
			Quantity: in.Quantity,
			Unit:     in.Unit,
			Supplier: in.Supplier,
		})
	}
	return components
}

func buildOperations(inputs []OperationInput) []models.BoMOperation {
	operations := make([]models.BoMOperation, 0, len(inputs))
	for _, in := range inputs {
		operations = append(operations, models.BoMOperation{
			Name:       in.Name,
			Duration:   in.Duration,
			Unit:       in.Unit,
			WorkCenter: in.WorkCenter,
		})
	}
	return operations
}

func fillBoMProductName(bom *models.BoM) {
	if bom.Product != nil {
		bom.ProductName = bom.Product.Name
	}
	if bom.Components == nil {
		bom.Components = []models.BoMComponent{}
	}
	if bom.Operations == nil {
		bom.Operations = []models.BoMOperation{}
	}
}
