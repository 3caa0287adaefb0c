package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/putra-agung/hrms-api/internal/middleware"
	"github.com/putra-agung/hrms-api/internal/models"
)

func claimsFromContext(c *gin.Context) *models.AccessClaims {
	value, exists := c.Get(middleware.ContextUserKey)
	if !exists {
		return nil
	}
	claims, ok := value.(*models.AccessClaims)
	if !ok {
		return nil
	}
	return claims
}

func isHR(claims *models.AccessClaims) bool {
	return claims != nil && (claims.Role == models.RoleSuperAdmin || claims.Role == models.RoleHROfficer)
}
