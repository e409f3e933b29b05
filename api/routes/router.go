// api/routes/router.go
package routes

import (
	"net/http"
	"time"

	"taquilla/internal/inventory"
	"taquilla/internal/orders"
	"taquilla/internal/payments"
	"taquilla/internal/reservations"
	"taquilla/internal/shared/clock"
	"taquilla/internal/shared/config"
	"taquilla/internal/shared/database"
	"taquilla/internal/store"
	"taquilla/internal/webhooks"
	"taquilla/pkg/cache"
	"taquilla/pkg/logger"

	"github.com/gin-gonic/gin"
)

// Dependencies are the process-wide resources the route groups are built from
type Dependencies struct {
	Config   *config.Config
	DB       *database.DB
	Store    store.Store
	Cache    cache.Service // nil disables availability caching
	Notifier orders.Notifier
	Clock    clock.Clock
	Logger   *logger.Logger
}

// Router holds all route dependencies
type Router struct {
	deps Dependencies

	inventory    inventory.Service
	reservations reservations.Service
}

// NewRouter creates a new router instance
func NewRouter(deps Dependencies) *Router {
	if deps.Clock == nil {
		deps.Clock = clock.NewSystem()
	}
	if deps.Logger == nil {
		deps.Logger = logger.GetDefault()
	}
	return &Router{deps: deps}
}

// SetupRoutes configures all application routes
func (r *Router) SetupRoutes(engine *gin.Engine) {
	r.setupHealthRoutes(engine)

	api := engine.Group(r.deps.Config.GetAPIBasePath())
	{
		// Inventory first: the other services invalidate its cache
		r.setupInventoryRoutes(api)
		r.setupReservationRoutes(api)
		r.setupCheckoutRoutes(api)
	}
}

// Reservations is available once SetupRoutes ran; the hold sweeper is built on it
func (r *Router) Reservations() reservations.Service {
	return r.reservations
}

// setupHealthRoutes sets up health check and system status routes
func (r *Router) setupHealthRoutes(engine *gin.Engine) {
	engine.GET("/health", func(c *gin.Context) {
		if err := r.healthCheck(c); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":    "unhealthy",
				"error":     err.Error(),
				"timestamp": time.Now(),
				"service":   "taquilla",
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"status":    "healthy",
			"timestamp": time.Now(),
			"service":   "taquilla",
			"store":     r.deps.Config.Store.Driver,
		})
	})

	engine.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message": "pong",
			"version": r.deps.Config.APIVersion,
		})
	})

	engine.GET("/status", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":      "operational",
			"api_version": r.deps.Config.APIVersion,
			"timestamp":   time.Now(),
		})
	})
}

func (r *Router) healthCheck(c *gin.Context) error {
	if err := r.deps.Store.Ping(c.Request.Context()); err != nil {
		return err
	}
	if r.deps.DB != nil {
		return r.deps.DB.HealthCheck(c.Request.Context())
	}
	return nil
}

// setupInventoryRoutes configures presentation administration and availability
func (r *Router) setupInventoryRoutes(rg *gin.RouterGroup) {
	r.inventory = inventory.NewService(r.deps.Store, r.deps.Cache, r.deps.Config.Cache.AvailabilityTTL, r.deps.Clock, r.deps.Logger)
	inventory.SetupInventoryRoutes(rg, inventory.NewController(r.inventory), r.deps.Config.JWT.Secret)
}

// setupReservationRoutes configures seat holds
func (r *Router) setupReservationRoutes(rg *gin.RouterGroup) {
	r.reservations = reservations.NewService(r.deps.Store, r.inventory, r.deps.Clock, r.deps.Logger, reservations.Config{
		HoldDuration:   r.deps.Config.Reservation.HoldDuration,
		SweepBatchSize: r.deps.Config.Reservation.SweepBatchSize,
	})
	reservations.SetupReservationRoutes(rg, reservations.NewController(r.reservations), r.deps.Config.JWT.Secret)
}

// setupCheckoutRoutes configures payment intents, orders and the gateway webhook
func (r *Router) setupCheckoutRoutes(rg *gin.RouterGroup) {
	cfg := r.deps.Config

	gateway := payments.NewGateway(payments.GatewayConfig{
		URL:       cfg.Payment.GatewayURL,
		ReturnURL: cfg.Payment.ReturnURL,
		Secret:    cfg.Payment.TokenSecret,
		TokenTTL:  cfg.Payment.TokenTTL,
	}, r.deps.Clock)
	ledger := payments.NewService(r.deps.Store, gateway, r.deps.Clock, r.deps.Logger)
	payments.SetupPaymentRoutes(rg, payments.NewController(ledger), cfg.JWT.Secret)

	engine := orders.NewService(r.deps.Store, r.inventory, r.deps.Notifier, r.deps.Clock, r.deps.Logger)
	orders.SetupOrderRoutes(rg, orders.NewController(engine), cfg.JWT.Secret)

	processor := webhooks.NewProcessor(ledger, engine, r.reservations, r.deps.Logger)
	webhooks.SetupWebhookRoutes(rg, webhooks.NewController(processor, cfg.Payment.WebhookSecret, r.deps.Logger))
}
