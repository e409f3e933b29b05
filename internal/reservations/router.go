package reservations

import (
	"taquilla/internal/shared/middleware"
	"taquilla/internal/users"

	"github.com/gin-gonic/gin"
)

func SetupReservationRoutes(rg *gin.RouterGroup, controller *Controller, jwtSecret string) {
	holds := rg.Group("/presentations")
	holds.Use(middleware.JWTAuth(jwtSecret), middleware.RequireRoles(users.RoleUser, users.RoleAdmin))
	{
		holds.POST("/:id/holds", controller.HoldSeats)      // POST /api/v1/presentations/:id/holds
		holds.DELETE("/:id/holds", controller.ReleaseSeats) // DELETE /api/v1/presentations/:id/holds
	}
}
