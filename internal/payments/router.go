package payments

import (
	"taquilla/internal/shared/middleware"

	"github.com/gin-gonic/gin"
)

func SetupPaymentRoutes(rg *gin.RouterGroup, controller *Controller, jwtSecret string) {
	intents := rg.Group("/payment-intents")
	intents.Use(middleware.JWTAuth(jwtSecret))
	{
		intents.POST("", controller.CreateIntent)        // POST /api/v1/payment-intents
		intents.GET("/:reference", controller.GetIntent) // GET /api/v1/payment-intents/:reference
	}

	admin := rg.Group("/admin/payment-intents")
	admin.Use(middleware.JWTAuth(jwtSecret), middleware.RequireAdmin())
	{
		admin.GET("", controller.ListIntents) // GET /api/v1/admin/payment-intents?status=
	}
}
