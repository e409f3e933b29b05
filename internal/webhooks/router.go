package webhooks

import "github.com/gin-gonic/gin"

// SetupWebhookRoutes mounts the gateway callback. It is authenticated by its HMAC
// signature, not by a bearer token.
func SetupWebhookRoutes(rg *gin.RouterGroup, controller *Controller) {
	hooks := rg.Group("/webhooks")
	{
		hooks.POST("/payments", controller.PaymentEvent) // POST /api/v1/webhooks/payments
	}
}
