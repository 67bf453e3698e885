// internal/handlers/common.go
package handlers

import (
	"errors"
	"io"

	"github.com/gin-gonic/gin"

	"github.com/javajoker/eco-backend/internal/i18n"
	"github.com/javajoker/eco-backend/internal/models"
	"github.com/javajoker/eco-backend/internal/services"
	"github.com/javajoker/eco-backend/internal/utils"
)

// actorFromContext builds the service-level caller from the identity the
// auth middleware stored on the request.
func actorFromContext(c *gin.Context) services.Actor {
	userID, _ := utils.GetUserIDFromContext(c)
	role, _ := utils.GetUserRoleFromContext(c)
	return services.Actor{
		ID:   userID,
		Name: utils.GetUserNameFromContext(c),
		Role: models.Role(role),
	}
}

// bindJSON decodes the request body and writes a 400 on failure.
func bindJSON(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		utils.BadRequestResponse(c, i18n.T(utils.GetLangFromContext(c), i18n.KeyValidationInvalid, "input"), err.Error())
		return false
	}
	return true
}

// bindOptionalJSON is bindJSON for endpoints whose body may be omitted.
func bindOptionalJSON(c *gin.Context, req interface{}) bool {
	if c.Request.Body == nil || c.Request.ContentLength == 0 {
		return true
	}
	if err := c.ShouldBindJSON(req); err != nil {
		if errors.Is(err, io.EOF) {
			return true
		}
		utils.BadRequestResponse(c, i18n.T(utils.GetLangFromContext(c), i18n.KeyValidationInvalid, "input"), err.Error())
		return false
	}
	return true
}
