package inventory

import (
	"taquilla/internal/shared/middleware"

	"github.com/gin-gonic/gin"
)

func SetupInventoryRoutes(rg *gin.RouterGroup, controller *Controller, jwtSecret string) {

	// PUBLIC

	presentations := rg.Group("/presentations")
	{
		presentations.GET("/:id/availability", controller.GetAvailability) // GET /api/v1/presentations/:id/availability
	}

	// ADMIN

	admin := rg.Group("/admin/presentations")
	admin.Use(middleware.JWTAuth(jwtSecret), middleware.RequireAdmin())
	{
		admin.POST("", controller.CreatePresentation)               // POST /api/v1/admin/presentations
		admin.PATCH("/:id", controller.UpdatePresentation)          // PATCH /api/v1/admin/presentations/:id
		admin.POST("/:id/tiers", controller.CreateTier)             // POST /api/v1/admin/presentations/:id/tiers
		admin.POST("/:id/seats/generate", controller.GenerateSeats) // POST /api/v1/admin/presentations/:id/seats/generate
	}
}
