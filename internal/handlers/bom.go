// internal/handlers/bom.go
package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/javajoker/eco-backend/internal/i18n"
	"github.com/javajoker/eco-backend/internal/services"
	"github.com/javajoker/eco-backend/internal/utils"
)

type BoMHandler struct {
	bomService *services.BoMService
}

func NewBoMHandler(bomService *services.BoMService) *BoMHandler {
	return &BoMHandler{bomService: bomService}
}

// GET /bom
func (h *BoMHandler) GetBoMs(c *gin.Context) {
	filter := services.BoMFilter{
		PaginationParams: utils.GetPaginationParams(c),
		Status:           c.Query("status"),
		ProductID:        c.Query("productId"),
	}

	result, err := h.bomService.ListBoMs(c.Request.Context(), filter)
	if err != nil {
		utils.HandleError(c, err)
		return
	}

	utils.PaginatedResponse(c, result)
}

// POST /bom
func (h *BoMHandler) CreateBoM(c *gin.Context) {
	var req services.CreateBoMRequest
	if !bindJSON(c, &req) {
		return
	}

	bom, err := h.bomService.CreateBoM(c.Request.Context(), &req)
	if err != nil {
		utils.HandleError(c, err)
		return
	}

	utils.CreatedResponse(c, bom)
}

// GET /bom/:id
func (h *BoMHandler) GetBoM(c *gin.Context) {
	bom, err := h.bomService.GetBoM(c.Request.Context(), c.Param("id"))
	if err != nil {
		utils.HandleError(c, err)
		return
	}

	utils.SuccessResponse(c, bom)
}

// PUT /bom/:id
func (h *BoMHandler) UpdateBoM(c *gin.Context) {
	var req services.UpdateBoMRequest
	if !bindJSON(c, &req) {
		return
	}

	bom, err := h.bomService.UpdateBoM(c.Request.Context(), c.Param("id"), &req)
	if err != nil {
		utils.HandleError(c, err)
		return
	}

	utils.SuccessResponse(c, bom)
}

// DELETE /bom/:id
func (h *BoMHandler) DeleteBoM(c *gin.Context) {
	if err := h.bomService.DeleteBoM(c.Request.Context(), c.Param("id")); err != nil {
		utils.HandleError(c, err)
		return
	}

	utils.MessageResponse(c, i18n.KeyBoMDeleted)
}
