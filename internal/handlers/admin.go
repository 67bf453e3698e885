// internal/handlers/admin.go
package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/javajoker/eco-backend/internal/services"
	"github.com/javajoker/eco-backend/internal/utils"
)

type AdminHandler struct {
	adminService *services.AdminService
}

func NewAdminHandler(adminService *services.AdminService) *AdminHandler {
	return &AdminHandler{
		adminService: adminService,
	}
}

// GET /roles
func (h *AdminHandler) GetRoles(c *gin.Context) {
	roles, err := h.adminService.ListRoles(c.Request.Context())
	if err != nil {
		utils.HandleError(c, err)
		return
	}

	utils.SuccessResponse(c, roles)
}

// POST /roles
func (h *AdminHandler) CreateRole(c *gin.Context) {
	var req services.CreateRoleRequest
	if !bindJSON(c, &req) {
		return
	}

	role, err := h.adminService.CreateRole(c.Request.Context(), &req)
	if err != nil {
		utils.HandleError(c, err)
		return
	}

	utils.CreatedResponse(c, role)
}

// GET /settings
func (h *AdminHandler) GetSettings(c *gin.Context) {
	settings, err := h.adminService.GetSettings(c.Request.Context())
	if err != nil {
		utils.HandleError(c, err)
		return
	}

	utils.SuccessResponse(c, settings)
}

// PUT /settings
func (h *AdminHandler) UpdateSettings(c *gin.Context) {
	var req map[string]interface{}
	if !bindJSON(c, &req) {
		return
	}

	settings, err := h.adminService.UpdateSettings(c.Request.Context(), req)
	if err != nil {
		utils.HandleError(c, err)
		return
	}

	utils.SuccessResponse(c, settings)
}
