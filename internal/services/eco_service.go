// internal/services/eco_service.go
package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/javajoker/eco-backend/internal/database"
	"github.com/javajoker/eco-backend/internal/models"
	"github.com/javajoker/eco-backend/internal/utils"
)

type ECOService struct {
	db                   *gorm.DB
	authorizationService *AuthorizationService
	notificationService  *NotificationService
	storageService       *StorageService
}

type ChangeInput struct {
	ComponentName string           `json:"componentName" validate:"max=255"`
	FieldName     string           `json:"fieldName" validate:"required,max=255"`
	OldValue      string           `json:"oldValue"`
	NewValue      string           `json:"newValue"`
	Highlight     models.Highlight `json:"highlight" validate:"omitempty,oneof=changed increased decreased none"`
}

type CreateECORequest struct {
	ID              string         `json:"id" validate:"required,entity_id"`
	Title           string         `json:"title" validate:"required,max=255"`
	Type            models.ECOType `json:"type" validate:"required,eco_type"`
	ProductID       string         `json:"productId" validate:"required"`
	BoMID           *string        `json:"bomId"`
	Description     string         `json:"description" validate:"max=5000"`
	CurrentVersion  string         `json:"currentVersion" validate:"omitempty,version"`
	ProposedVersion string         `json:"proposedVersion" validate:"omitempty,version"`
	EffectiveDate   string         `json:"effectiveDate" validate:"required"`
	Changes         []ChangeInput  `json:"changes" validate:"dive"`
}

// UpdateECORequest carries the editable, non-lifecycle fields. Supplying
// changes replaces the whole change set.
type UpdateECORequest struct {
	Title           *string        `json:"title" validate:"omitempty,min=1,max=255"`
	Description     *string        `json:"description" validate:"omitempty,max=5000"`
	EffectiveDate   *string        `json:"effectiveDate"`
	CurrentVersion  *string        `json:"currentVersion" validate:"omitempty,version"`
	ProposedVersion *string        `json:"proposedVersion" validate:"omitempty,version"`
	BoMID           *string        `json:"bomId"`
	Changes         *[]ChangeInput `json:"changes" validate:"omitempty,dive"`
}

type ECOFilter struct {
	utils.PaginationParams
	Stage     string
	Type      string
	Status    string
	ProductID string
}

func NewECOService(db *gorm.DB, authorizationService *AuthorizationService, notificationService *NotificationService, storageService *StorageService) *ECOService {
	return &ECOService{
		db:                   db,
		authorizationService: authorizationService,
		notificationService:  notificationService,
		storageService:       storageService,
	}
}

// ValidateVersionOrder requires proposed to be strictly greater than current
// under dotted-numeric comparison.
func ValidateVersionOrder(current, proposed string) error {
	cmp, err := utils.CompareVersions(proposed, current)
	if err != nil {
		return utils.NewValidationError(err.Error(), nil)
	}
	if cmp <= 0 {
		return utils.NewValidationError(
			fmt.Sprintf("proposedVersion %s must be greater than currentVersion %s", proposed, current), nil)
	}
	return nil
}

// DeriveHighlight classifies a change: numeric pairs compare by value, equal
// values are "none", anything else is "changed".
func DeriveHighlight(oldValue, newValue string) models.Highlight {
	oldNum, oldErr := strconv.ParseFloat(strings.TrimSpace(oldValue), 64)
	newNum, newErr := strconv.ParseFloat(strings.TrimSpace(newValue), 64)
	if oldErr == nil && newErr == nil {
		switch {
		case newNum > oldNum:
			return models.HighlightIncreased
		case newNum < oldNum:
			return models.HighlightDecreased
		default:
			return models.HighlightNone
		}
	}
	if oldValue == newValue {
		return models.HighlightNone
	}
	return models.HighlightChanged
}

func buildChanges(ecoID string, inputs []ChangeInput) []models.ChangeRecord {
	changes := make([]models.ChangeRecord, 0, len(inputs))
	for _, in := range inputs {
		highlight := in.Highlight
		if highlight == "" {
			highlight = DeriveHighlight(in.OldValue, in.NewValue)
		}
		changes = append(changes, models.ChangeRecord{
			ECOID:         ecoID,
			ComponentName: in.ComponentName,
			FieldName:     in.FieldName,
			OldValue:      in.OldValue,
			NewValue:      in.NewValue,
			Highlight:     highlight,
		})
	}
	return changes
}

// resolveBoM checks that the referenced BoM exists and belongs to the product.
func resolveBoM(tx *gorm.DB, ecoType models.ECOType, productID string, bomID *string) (*models.BoM, error) {
	if bomID == nil || *bomID == "" {
		return nil, nil
	}
	if ecoType != models.ECOTypeBoM {
		return nil, utils.NewValidationError("bomId is only allowed for BoM change orders", nil)
	}

	var bom models.BoM
	if err := tx.Where("id = ?", *bomID).First(&bom).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, utils.NewNotFoundError("BoM")
		}
		return nil, utils.NewInternalError("failed to load BoM", err)
	}
	if bom.ProductID != productID {
		return nil, utils.NewValidationError(fmt.Sprintf("BoM %s does not belong to product %s", bom.ID, productID), nil)
	}
	return &bom, nil
}

func appendAudit(tx *gorm.DB, ecoID string, actor Actor, action, details string, at time.Time) error {
	entry := models.AuditLogEntry{
		ECOID:     ecoID,
		ActorID:   actor.ID,
		Actor:     actor.Name,
		Action:    action,
		Details:   details,
		Timestamp: at,
	}
	if err := tx.Create(&entry).Error; err != nil {
		return utils.NewInternalError("failed to append audit entry", err)
	}
	return nil
}

// CreateECO stores a Draft change order with its change records and the
// creation audit entry as one unit.
func (s *ECOService) CreateECO(ctx context.Context, actor Actor, req *CreateECORequest) (*models.ECO, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, utils.ValidationFailure(err)
	}
	if !s.authorizationService.Can(actor.Role, PermECOCreate) {
		return nil, utils.NewForbiddenError("your role may not create change orders")
	}

	effectiveDate, err := parseDate("effectiveDate", req.EffectiveDate)
	if err != nil {
		return nil, err
	}

	err = database.WithTransaction(s.db.WithContext(ctx), func(tx *gorm.DB) error {
		var product models.Product
		if err := tx.Where("id = ?", req.ProductID).First(&product).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return utils.NewNotFoundError("product")
			}
			return utils.NewInternalError("failed to load product", err)
		}

		bom, err := resolveBoM(tx, req.Type, req.ProductID, req.BoMID)
		if err != nil {
			return err
		}

		current := req.CurrentVersion
		if current == "" {
			current = product.CurrentVersion
			if bom != nil {
				current = bom.Version
			}
		}
		proposed := req.ProposedVersion
		if proposed == "" {
			if proposed, err = utils.NextMinorVersion(current); err != nil {
				return utils.NewValidationError(err.Error(), nil)
			}
		}
		if err := ValidateVersionOrder(current, proposed); err != nil {
			return err
		}

		var count int64
		if err := tx.Model(&models.ECO{}).Where("id = ?", req.ID).Count(&count).Error; err != nil {
			return utils.NewInternalError("failed to check ECO id", err)
		}
		if count > 0 {
			return utils.NewConflictError(fmt.Sprintf("ECO %s already exists", req.ID))
		}

		eco := models.ECO{
			ID:              req.ID,
			Title:           req.Title,
			Type:            req.Type,
			ProductID:       req.ProductID,
			Description:     req.Description,
			CurrentVersion:  current,
			ProposedVersion: proposed,
			EffectiveDate:   effectiveDate,
			CreatedBy:       actor.ID,
			CreatedByName:   actor.Name,
			Status:          models.ECOStatusDraft,
			Stage:           models.ECOStageDraft,
			Attachments:     models.StringArray{},
		}
		if bom != nil {
			eco.BoMID = &bom.ID
		}

		if err := tx.Omit("Changes", "Approvals", "AuditLog", "Product").Create(&eco).Error; err != nil {
			if isDuplicateKey(err) {
				return utils.NewConflictError(fmt.Sprintf("ECO %s already exists", req.ID))
			}
			return utils.NewInternalError("failed to create ECO", err)
		}

		if changes := buildChanges(eco.ID, req.Changes); len(changes) > 0 {
			if err := tx.Create(&changes).Error; err != nil {
				return utils.NewInternalError("failed to create change records", err)
			}
		}

		return appendAudit(tx, eco.ID, actor, "Created",
			fmt.Sprintf("Draft created with %d change(s)", len(req.Changes)), time.Now())
	})
	if err != nil {
		return nil, err
	}

	return s.GetECO(ctx, req.ID)
}

func (s *ECOService) GetECO(ctx context.Context, id string) (*models.ECO, error) {
	var eco models.ECO
	err := s.db.WithContext(ctx).
		Preload("Product").
		Preload("Changes", func(db *gorm.DB) *gorm.DB { return db.Order("created_at") }).
		Preload("Approvals", func(db *gorm.DB) *gorm.DB { return db.Order("timestamp ASC") }).
		Preload("AuditLog", func(db *gorm.DB) *gorm.DB { return db.Order("timestamp DESC") }).
		Where("id = ?", id).
		First(&eco).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, utils.NewNotFoundError("ECO")
	}
	if err != nil {
		return nil, utils.NewInternalError("failed to load ECO", err)
	}

	shapeECO(&eco)
	return &eco, nil
}

func (s *ECOService) ListECOs(ctx context.Context, filter ECOFilter) (utils.PaginationResult, error) {
	query := s.db.WithContext(ctx).Model(&models.ECO{}).
		Joins("LEFT JOIN products ON products.id = ecos.product_id")

	if filter.Search != "" {
		cond, args := utils.SearchCondition(filter.Search, "ecos.title", "ecos.id", "products.name")
		query = query.Where(cond, args...)
	}
	if filter.Stage != "" {
		query = query.Where("ecos.stage = ?", filter.Stage)
	}
	if filter.Type != "" {
		query = query.Where("ecos.type = ?", filter.Type)
	}
	if filter.Status != "" {
		query = query.Where("ecos.status = ?", filter.Status)
	}
	if filter.ProductID != "" {
		query = query.Where("ecos.product_id = ?", filter.ProductID)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return utils.PaginationResult{}, utils.NewInternalError("failed to count ECOs", err)
	}

	ecos := []models.ECO{}
	err := utils.ApplyPagination(query.Select("ecos.*").Order("ecos.created_at DESC"), filter.PaginationParams).
		Preload("Product").
		Preload("Changes", func(db *gorm.DB) *gorm.DB { return db.Order("created_at") }).
		Preload("Approvals", func(db *gorm.DB) *gorm.DB { return db.Order("timestamp ASC") }).
		Find(&ecos).Error
	if err != nil {
		return utils.PaginationResult{}, utils.NewInternalError("failed to list ECOs", err)
	}

	for i := range ecos {
		shapeECO(&ecos[i])
	}

	return utils.CreatePaginationResult(ecos, total, filter.PaginationParams), nil
}

// UpdateECO edits a Draft or Rejected change order. Status and stage are
// only changed by the workflow transitions.
func (s *ECOService) UpdateECO(ctx context.Context, actor Actor, id string, req *UpdateECORequest) (*models.ECO, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, utils.ValidationFailure(err)
	}
	if !s.authorizationService.Can(actor.Role, PermECOCreate) {
		return nil, utils.NewForbiddenError("your role may not edit change orders")
	}

	err := database.WithTransaction(s.db.WithContext(ctx), func(tx *gorm.DB) error {
		var eco models.ECO
		if err := tx.Where("id = ?", id).First(&eco).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return utils.NewNotFoundError("ECO")
			}
			return utils.NewInternalError("failed to load ECO", err)
		}
		if eco.Status != models.ECOStatusDraft && eco.Status != models.ECOStatusRejected {
			return utils.NewConflictError(fmt.Sprintf("ECO %s cannot be edited in status %s", id, eco.Status))
		}

		updates := map[string]interface{}{}
		if req.Title != nil {
			updates["title"] = *req.Title
		}
		if req.Description != nil {
			updates["description"] = *req.Description
		}
		if req.EffectiveDate != nil {
			effectiveDate, err := parseDate("effectiveDate", *req.EffectiveDate)
			if err != nil {
				return err
			}
			updates["effective_date"] = effectiveDate
		}
		if req.BoMID != nil {
			bom, err := resolveBoM(tx, eco.Type, eco.ProductID, req.BoMID)
			if err != nil {
				return err
			}
			if bom == nil {
				updates["bom_id"] = nil
			} else {
				updates["bom_id"] = bom.ID
			}
		}

		current, proposed := eco.CurrentVersion, eco.ProposedVersion
		if req.CurrentVersion != nil {
			current = *req.CurrentVersion
			updates["current_version"] = current
		}
		if req.ProposedVersion != nil {
			proposed = *req.ProposedVersion
			updates["proposed_version"] = proposed
		}
		if err := ValidateVersionOrder(current, proposed); err != nil {
			return err
		}

		details := []string{}
		for field := range updates {
			details = append(details, field)
		}

		if req.Changes != nil {
			if err := tx.Where("eco_id = ?", id).Delete(&models.ChangeRecord{}).Error; err != nil {
				return utils.NewInternalError("failed to replace change records", err)
			}
			if changes := buildChanges(id, *req.Changes); len(changes) > 0 {
				if err := tx.Create(&changes).Error; err != nil {
					return utils.NewInternalError("failed to replace change records", err)
				}
			}
			details = append(details, "changes")
			if len(updates) == 0 {
				// bumps updated_at
				updates["title"] = eco.Title
			}
		}

		if len(updates) > 0 {
			if err := tx.Model(&models.ECO{}).Where("id = ?", id).Updates(updates).Error; err != nil {
				return utils.NewInternalError("failed to update ECO", err)
			}
		}

		if len(details) == 0 {
			return nil
		}
		sort.Strings(details)
		return appendAudit(tx, id, actor, "Updated", "Edited "+strings.Join(details, ", "), time.Now())
	})
	if err != nil {
		return nil, err
	}

	return s.GetECO(ctx, id)
}

// DeleteECO removes a Draft change order. Only its creator or an Admin may
// delete it.
func (s *ECOService) DeleteECO(ctx context.Context, actor Actor, id string) error {
	return database.WithTransaction(s.db.WithContext(ctx), func(tx *gorm.DB) error {
		var eco models.ECO
		if err := tx.Where("id = ?", id).First(&eco).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return utils.NewNotFoundError("ECO")
			}
			return utils.NewInternalError("failed to load ECO", err)
		}
		if !actor.IsAdmin() && eco.CreatedBy != actor.ID {
			return utils.NewForbiddenError("only the creator or an Admin may delete this ECO")
		}
		if eco.Status != models.ECOStatusDraft {
			return utils.NewConflictError(fmt.Sprintf("ECO %s cannot be deleted in status %s", id, eco.Status))
		}

		for _, child := range []interface{}{&models.ChangeRecord{}, &models.ApprovalRecord{}, &models.AuditLogEntry{}} {
			if err := tx.Where("eco_id = ?", id).Delete(child).Error; err != nil {
				return utils.NewInternalError("failed to delete ECO records", err)
			}
		}
		if err := tx.Delete(&eco).Error; err != nil {
			return utils.NewInternalError("failed to delete ECO", err)
		}
		return nil
	})
}

// AddAttachment uploads a document and appends its object key to the ECO.
func (s *ECOService) AddAttachment(ctx context.Context, actor Actor, id string, upload func(opts UploadOptions) (*UploadResult, error)) (*models.ECO, error) {
	if _, err := s.GetECO(ctx, id); err != nil {
		return nil, err
	}

	result, err := upload(s.storageService.GetDefaultUploadOptions(UploadCategoryECOAttachment))
	if err != nil {
		return nil, err
	}

	err = database.WithTransaction(s.db.WithContext(ctx), func(tx *gorm.DB) error {
		var eco models.ECO
		if err := tx.Where("id = ?", id).First(&eco).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return utils.NewNotFoundError("ECO")
			}
			return utils.NewInternalError("failed to load ECO", err)
		}

		attachments := append(models.StringArray{}, eco.Attachments...)
		attachments = append(attachments, result.Key)
		if err := tx.Model(&eco).Update("attachments", attachments).Error; err != nil {
			return utils.NewInternalError("failed to attach document", err)
		}
		return appendAudit(tx, id, actor, "Attachment added", result.Key, time.Now())
	})
	if err != nil {
		if delErr := s.storageService.DeleteFile(ctx, result.Key); delErr != nil {
			logrus.WithError(delErr).WithField("key", result.Key).Warn("Failed to remove orphaned attachment")
		}
		return nil, err
	}

	return s.GetECO(ctx, id)
}

const attachmentLinkTTL = 15 * time.Minute

// AttachmentURL returns a short-lived download link for one of the ECO's
// attachments.
func (s *ECOService) AttachmentURL(ctx context.Context, id, key string) (string, error) {
	eco, err := s.GetECO(ctx, id)
	if err != nil {
		return "", err
	}

	for _, attached := range eco.Attachments {
		if attached == key {
			url, err := s.storageService.URLFor(key, attachmentLinkTTL)
			if err != nil {
				return "", utils.NewInternalError("failed to sign attachment link", err)
			}
			return url, nil
		}
	}
	return "", utils.NewNotFoundError("attachment")
}

func shapeECO(eco *models.ECO) {
	if eco.Product != nil {
		eco.ProductName = eco.Product.Name
	}
	if eco.Changes == nil {
		eco.Changes = []models.ChangeRecord{}
	}
	if eco.Approvals == nil {
		eco.Approvals = []models.ApprovalRecord{}
	}
	if eco.AuditLog == nil {
		eco.AuditLog = []models.AuditLogEntry{}
	}
	if eco.Attachments == nil {
		eco.Attachments = models.StringArray{}
	}
}
