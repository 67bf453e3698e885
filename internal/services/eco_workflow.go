// internal/services/eco_workflow.go
package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/javajoker/eco-backend/internal/database"
	"github.com/javajoker/eco-backend/internal/i18n"
	"github.com/javajoker/eco-backend/internal/metrics"
	"github.com/javajoker/eco-backend/internal/models"
	"github.com/javajoker/eco-backend/internal/utils"
)

type ECOAction string

const (
	ActionSubmit    ECOAction = "submit"
	ActionApprove   ECOAction = "approve"
	ActionReject    ECOAction = "reject"
	ActionImplement ECOAction = "implement"
	ActionComplete  ECOAction = "complete"
	ActionArchive   ECOAction = "archive"
)

const auditActionCompleted = "Completed"

type TransitionRequest struct {
	Comment      string `json:"comment" validate:"max=2000"`
	ApproverName string `json:"approverName" validate:"max=120"`
}

type transition struct {
	from           []models.ECOStatus
	to             models.ECOStatus
	stage          models.ECOStage // empty keeps the current stage
	permission     string
	auditAction    string
	recordApproval bool
	requireComment bool
}

var transitions = map[ECOAction]transition{
	ActionSubmit: {
		from:        []models.ECOStatus{models.ECOStatusDraft, models.ECOStatusRejected},
		to:          models.ECOStatusPendingApproval,
		stage:       models.ECOStageApproval,
		permission:  PermECOSubmit,
		auditAction: "Submitted for approval",
	},
	ActionApprove: {
		from:           []models.ECOStatus{models.ECOStatusPendingApproval},
		to:             models.ECOStatusApproved,
		stage:          models.ECOStageImplementation,
		permission:     PermECODecide,
		auditAction:    "Approved",
		recordApproval: true,
	},
	ActionReject: {
		from:           []models.ECOStatus{models.ECOStatusPendingApproval},
		to:             models.ECOStatusRejected,
		stage:          models.ECOStageApproval,
		permission:     PermECODecide,
		auditAction:    "Rejected",
		recordApproval: true,
		requireComment: true,
	},
	ActionImplement: {
		from:           []models.ECOStatus{models.ECOStatusApproved},
		to:             models.ECOStatusImplementation,
		stage:          models.ECOStageImplementation,
		permission:     PermECODecide,
		auditAction:    "Implementation started",
		recordApproval: true,
	},
	ActionComplete: {
		from:           []models.ECOStatus{models.ECOStatusApproved, models.ECOStatusImplementation},
		to:             models.ECOStatusCompleted,
		stage:          models.ECOStageCompleted,
		permission:     PermECODecide,
		auditAction:    auditActionCompleted,
		recordApproval: true,
	},
	ActionArchive: {
		from:        []models.ECOStatus{models.ECOStatusCompleted, models.ECOStatusRejected},
		to:          models.ECOStatusArchived,
		permission:  PermECOArchive,
		auditAction: "Archived",
	},
}

// ParseECOAction maps a route segment to a workflow action.
func ParseECOAction(s string) (ECOAction, bool) {
	action := ECOAction(strings.ToLower(s))
	_, ok := transitions[action]
	return action, ok
}

func (t transition) allows(status models.ECOStatus) bool {
	for _, from := range t.from {
		if from == status {
			return true
		}
	}
	return false
}

// Transition applies a workflow action. The status change is a
// compare-and-swap on the status read inside the transaction, so a stale or
// repeated action fails with a conflict and writes nothing.
func (s *ECOService) Transition(ctx context.Context, actor Actor, id string, action ECOAction, req *TransitionRequest) (*models.ECO, error) {
	eco, err := s.transition(ctx, actor, id, action, req)
	metrics.ECOTransitions.WithLabelValues(string(action), transitionOutcome(err)).Inc()
	return eco, err
}

func (s *ECOService) transition(ctx context.Context, actor Actor, id string, action ECOAction, req *TransitionRequest) (*models.ECO, error) {
	t, ok := transitions[action]
	if !ok {
		return nil, utils.NewValidationError(fmt.Sprintf("unknown action %q", action), nil)
	}
	if req == nil {
		req = &TransitionRequest{}
	}
	if err := utils.ValidateStruct(req); err != nil {
		return nil, utils.ValidationFailure(err)
	}
	comment := strings.TrimSpace(req.Comment)
	if t.requireComment && comment == "" {
		return nil, utils.NewValidationError("a comment is required to "+string(action)+" an ECO", nil)
	}
	if !s.authorizationService.Can(actor.Role, t.permission) {
		return nil, utils.NewForbiddenError(fmt.Sprintf("role %s may not %s change orders", actor.Role, action))
	}

	approverName := strings.TrimSpace(req.ApproverName)
	if approverName == "" {
		approverName = actor.Name
	}

	var eco models.ECO
	err := database.WithTransaction(s.db.WithContext(ctx), func(tx *gorm.DB) error {
		if err := tx.Where("id = ?", id).First(&eco).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return utils.NewNotFoundError("ECO")
			}
			return utils.NewInternalError("failed to load ECO", err)
		}

		if !t.allows(eco.Status) {
			return utils.NewConflictError(fmt.Sprintf("cannot %s an ECO in status %s", action, eco.Status))
		}

		if action == ActionSubmit {
			if !actor.IsAdmin() && eco.CreatedBy != actor.ID {
				return utils.NewForbiddenError("only the creator or an Admin may submit this ECO")
			}
			if err := ValidateVersionOrder(eco.CurrentVersion, eco.ProposedVersion); err != nil {
				return err
			}
		}

		updates := map[string]interface{}{"status": t.to}
		if t.stage != "" {
			updates["stage"] = t.stage
		}
		result := tx.Model(&models.ECO{}).
			Where("id = ? AND status = ?", eco.ID, eco.Status).
			Updates(updates)
		if result.Error != nil {
			return utils.NewInternalError("failed to update ECO status", result.Error)
		}
		if result.RowsAffected == 0 {
			return utils.NewConflictError(fmt.Sprintf("ECO %s was modified concurrently", eco.ID))
		}

		now := time.Now()
		if t.recordApproval {
			approval := models.ApprovalRecord{
				ECOID:        eco.ID,
				Role:         actor.Role,
				ApproverID:   actor.ID,
				ApproverName: approverName,
				Status:       t.to,
				Comment:      comment,
				Timestamp:    now,
			}
			if err := tx.Create(&approval).Error; err != nil {
				return utils.NewInternalError("failed to record approval", err)
			}
		}

		details := fmt.Sprintf("%s -> %s", eco.Status, t.to)
		if comment != "" {
			details += ": " + comment
		}
		auditActor := actor
		auditActor.Name = approverName
		if err := appendAudit(tx, eco.ID, auditActor, t.auditAction, details, now); err != nil {
			return err
		}

		if action == ActionComplete {
			return applyCompletion(tx, &eco)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.notifyTransition(ctx, actor, &eco, action, t.to)

	return s.GetECO(ctx, id)
}

// applyCompletion promotes the proposed version onto the product or BoM the
// ECO targets. The proposed version must still be ahead of the target's live
// version; another ECO may have completed since this one was approved.
func applyCompletion(tx *gorm.DB, eco *models.ECO) error {
	switch eco.Type {
	case models.ECOTypeProduct:
		var product models.Product
		if err := tx.Where("id = ?", eco.ProductID).First(&product).Error; err != nil {
			return utils.NewInternalError("failed to load product", err)
		}
		if err := requireNewerVersion(eco, "product "+product.ID, product.CurrentVersion); err != nil {
			return err
		}

		result := tx.Model(&models.Product{}).
			Where("id = ? AND current_version = ?", product.ID, product.CurrentVersion).
			Update("current_version", eco.ProposedVersion)
		if result.Error != nil {
			return utils.NewInternalError("failed to update product version", result.Error)
		}
		if result.RowsAffected == 0 {
			return utils.NewConflictError(fmt.Sprintf("product %s was modified concurrently", product.ID))
		}

		version := models.ProductVersion{
			ProductID: eco.ProductID,
			Version:   eco.ProposedVersion,
			Note:      eco.Title,
		}
		if err := tx.Create(&version).Error; err != nil {
			return utils.NewInternalError("failed to record product version", err)
		}
	case models.ECOTypeBoM:
		if eco.BoMID == nil {
			return nil
		}
		var bom models.BoM
		if err := tx.Where("id = ?", *eco.BoMID).First(&bom).Error; err != nil {
			return utils.NewInternalError("failed to load BoM", err)
		}
		if err := requireNewerVersion(eco, "BoM "+bom.ID, bom.Version); err != nil {
			return err
		}

		result := tx.Model(&models.BoM{}).
			Where("id = ? AND version = ?", bom.ID, bom.Version).
			Update("version", eco.ProposedVersion)
		if result.Error != nil {
			return utils.NewInternalError("failed to update BoM version", result.Error)
		}
		if result.RowsAffected == 0 {
			return utils.NewConflictError(fmt.Sprintf("BoM %s was modified concurrently", bom.ID))
		}
	}
	return nil
}

func requireNewerVersion(eco *models.ECO, target, live string) error {
	cmp, err := utils.CompareVersions(eco.ProposedVersion, live)
	if err != nil || cmp <= 0 {
		return utils.NewConflictError(fmt.Sprintf(
			"ECO %s proposes %s but %s is already at %s", eco.ID, eco.ProposedVersion, target, live))
	}
	return nil
}

func (s *ECOService) notifyTransition(ctx context.Context, actor Actor, eco *models.ECO, action ECOAction, to models.ECOStatus) {
	if s.notificationService == nil {
		return
	}

	link := "/eco/" + eco.ID
	fields := logrus.Fields{"eco_id": eco.ID, "action": action}

	switch action {
	case ActionSubmit:
		roles := s.authorizationService.RolesFor(PermECODecide)
		logFailure(s.notificationService.NotifyRoles(ctx, roles, NotificationTemplate{
			Type:       "eco_submitted",
			Message:    i18n.T("en", i18n.KeyNotificationECOSubmitted, eco.ID, eco.Title),
			Link:       link,
			EntityType: "eco",
			EntityID:   eco.ID,
		}), "eco_submitted", fields)
	case ActionApprove, ActionReject, ActionImplement, ActionComplete:
		if eco.CreatedBy == "" || eco.CreatedBy == actor.ID {
			return
		}
		logFailure(s.notificationService.NotifyUser(ctx, eco.CreatedBy, NotificationTemplate{
			Type:       "eco_" + string(action),
			Message:    i18n.T("en", i18n.KeyNotificationECODecision, eco.ID, eco.Title, to),
			Link:       link,
			EntityType: "eco",
			EntityID:   eco.ID,
		}), "eco_"+string(action), fields)
	}
}

func transitionOutcome(err error) string {
	switch {
	case err == nil:
		return "applied"
	case utils.IsKind(err, utils.KindConflict):
		return "conflict"
	case utils.IsKind(err, utils.KindForbidden):
		return "forbidden"
	case utils.IsKind(err, utils.KindValidation), utils.IsKind(err, utils.KindNotFound):
		return "invalid"
	default:
		return "error"
	}
}
