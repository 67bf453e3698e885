// internal/handlers/eco.go
package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/javajoker/eco-backend/internal/i18n"
	"github.com/javajoker/eco-backend/internal/services"
	"github.com/javajoker/eco-backend/internal/utils"
)

type ECOHandler struct {
	ecoService     *services.ECOService
	storageService *services.StorageService
}

func NewECOHandler(ecoService *services.ECOService, storageService *services.StorageService) *ECOHandler {
	return &ECOHandler{
		ecoService:     ecoService,
		storageService: storageService,
	}
}

// GET /eco
func (h *ECOHandler) GetECOs(c *gin.Context) {
	filter := services.ECOFilter{
		PaginationParams: utils.GetPaginationParams(c),
		Stage:            c.Query("stage"),
		Type:             c.Query("type"),
		Status:           c.Query("status"),
		ProductID:        c.Query("productId"),
	}

	result, err := h.ecoService.ListECOs(c.Request.Context(), filter)
	if err != nil {
		utils.HandleError(c, err)
		return
	}

	utils.PaginatedResponse(c, result)
}

// POST /eco
func (h *ECOHandler) CreateECO(c *gin.Context) {
	var req services.CreateECORequest
	if !bindJSON(c, &req) {
		return
	}

	eco, err := h.ecoService.CreateECO(c.Request.Context(), actorFromContext(c), &req)
	if err != nil {
		utils.HandleError(c, err)
		return
	}

	utils.CreatedResponse(c, eco)
}

// GET /eco/:id
func (h *ECOHandler) GetECO(c *gin.Context) {
	eco, err := h.ecoService.GetECO(c.Request.Context(), c.Param("id"))
	if err != nil {
		utils.HandleError(c, err)
		return
	}

	utils.SuccessResponse(c, eco)
}

// PUT /eco/:id
func (h *ECOHandler) UpdateECO(c *gin.Context) {
	var req services.UpdateECORequest
	if !bindJSON(c, &req) {
		return
	}

	eco, err := h.ecoService.UpdateECO(c.Request.Context(), actorFromContext(c), c.Param("id"), &req)
	if err != nil {
		utils.HandleError(c, err)
		return
	}

	utils.SuccessResponse(c, eco)
}

// DELETE /eco/:id
func (h *ECOHandler) DeleteECO(c *gin.Context) {
	if err := h.ecoService.DeleteECO(c.Request.Context(), actorFromContext(c), c.Param("id")); err != nil {
		utils.HandleError(c, err)
		return
	}

	utils.MessageResponse(c, i18n.KeyECODeleted)
}

// Transition returns the handler for POST /eco/:id/<action>.
func (h *ECOHandler) Transition(action services.ECOAction) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req services.TransitionRequest
		if !bindOptionalJSON(c, &req) {
			return
		}

		eco, err := h.ecoService.Transition(c.Request.Context(), actorFromContext(c), c.Param("id"), action, &req)
		if err != nil {
			utils.HandleError(c, err)
			return
		}

		utils.SuccessResponse(c, eco)
	}
}

// POST /eco/:id/attachments
func (h *ECOHandler) UploadAttachment(c *gin.Context) {
	file, header, err := c.Request.FormFile("file")
	if err != nil {
		utils.BadRequestResponse(c, "file is required", nil)
		return
	}
	defer file.Close()

	ctx := c.Request.Context()
	upload := func(opts services.UploadOptions) (*services.UploadResult, error) {
		return h.storageService.UploadFile(ctx, file, header, opts)
	}

	eco, err := h.ecoService.AddAttachment(ctx, actorFromContext(c), c.Param("id"), upload)
	if err != nil {
		utils.HandleError(c, err)
		return
	}

	utils.CreatedResponse(c, eco)
}

// GET /eco/:id/attachments/url?key=
func (h *ECOHandler) GetAttachmentURL(c *gin.Context) {
	key := c.Query("key")
	if key == "" {
		utils.BadRequestResponse(c, "key is required", nil)
		return
	}

	url, err := h.ecoService.AttachmentURL(c.Request.Context(), c.Param("id"), key)
	if err != nil {
		utils.HandleError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{"url": url})
}
