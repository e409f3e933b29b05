package orders

import (
	"taquilla/internal/shared/middleware"
	"taquilla/internal/users"

	"github.com/gin-gonic/gin"
)

func SetupOrderRoutes(rg *gin.RouterGroup, controller *Controller, jwtSecret string) {
	mine := rg.Group("/users/me")
	mine.Use(middleware.JWTAuth(jwtSecret), middleware.RequireRoles(users.RoleUser, users.RoleAdmin))
	{
		mine.GET("/orders", controller.GetMyOrders) // GET /api/v1/users/me/orders
	}

	admin := rg.Group("/admin/orders")
	admin.Use(middleware.JWTAuth(jwtSecret), middleware.RequireAdmin())
	{
		admin.GET("", controller.ListOrders)              // GET /api/v1/admin/orders
		admin.POST("/void", controller.VoidOrders)        // POST /api/v1/admin/orders/void
		admin.POST("/void-all", controller.VoidAllOrders) // POST /api/v1/admin/orders/void-all
	}
}
