package app

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/newrelic/go-agent/v3/integrations/nrgin"
	"github.com/newrelic/go-agent/v3/newrelic"

	"instantride/internal/handler"
	"instantride/internal/logger"
	"instantride/internal/middleware"
	"instantride/internal/redis"
)

// RouterDeps contains all dependencies needed for the router.
type RouterDeps struct {
	RideHandler     *handler.RideHandler
	DispatchHandler *handler.DispatchHandler
	DriverHandler   *handler.DriverHandler
	ShuttleHandler  *handler.ShuttleHandler
	PricingHandler  *handler.PricingHandler
	PaymentHandler  *handler.PaymentHandler
	ReportHandler   *handler.ReportHandler
	Responses       redis.ResponseStoreInterface
	AdminJWTSecret  string
	NewRelicApp     *newrelic.Application
	Logger          logger.ILogger
}

// NewRouter creates a new Gin router with all routes registered.
func NewRouter(deps RouterDeps) *gin.Engine {
	router := gin.New()

	// Global middleware.
	router.Use(gin.Recovery())
	router.Use(gin.Logger())
	router.Use(middleware.CORSMiddleware())

	// Add New Relic middleware if enabled.
	if deps.NewRelicApp != nil {
		router.Use(nrgin.Middleware(deps.NewRelicApp))
		router.Use(middleware.NewRelicErrors())
	}

	router.Use(middleware.IdempotencyMiddleware(deps.Responses, deps.Logger))

	// Health check.
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// API v1 routes.
	v1 := router.Group("/v1")
	{
		v1.POST("/fares/estimate", deps.RideHandler.EstimateFare)

		// Customer ride routes.
		rides := v1.Group("/rides")
		{
			rides.POST("", deps.RideHandler.BookRide)
			rides.GET("/code/:code", deps.RideHandler.GetRideByCode)
			rides.GET("/:id", deps.RideHandler.GetRide)
			rides.GET("/:id/track", deps.RideHandler.TrackRide)
			rides.POST("/:id/cancel", deps.RideHandler.CancelRide)
			rides.POST("/:id/cash-confirmation", deps.RideHandler.ConfirmCash)
			rides.POST("/:id/payment-method", deps.RideHandler.SwitchPaymentMethod)
			rides.POST("/:id/payment", deps.RideHandler.InitiatePayment)
		}

		// Gateway webhook.
		v1.POST("/payments/callback", deps.PaymentHandler.Callback)

		// Admin routes.
		admin := v1.Group("/admin", middleware.AdminAuth(deps.AdminJWTSecret))
		{
			rides := admin.Group("/rides")
			{
				rides.GET("", deps.RideHandler.ListRides)
				rides.GET("/recent", deps.RideHandler.RecentRides)
				rides.POST("/:id/status", deps.RideHandler.AdvanceStatus)
				rides.POST("/:id/assign-driver", deps.DispatchHandler.AssignDriver)
				rides.POST("/:id/assign-shuttle", deps.DispatchHandler.AssignShuttle)
				rides.POST("/:id/auto-assign", deps.DispatchHandler.AutoAssign)
			}

			drivers := admin.Group("/drivers")
			{
				drivers.GET("", deps.DriverHandler.GetAll)
				drivers.GET("/eligible", deps.DispatchHandler.EligibleDrivers)
				drivers.GET("/:id", deps.DriverHandler.GetDriver)
				drivers.POST("", deps.DriverHandler.Register)
				drivers.POST("/:id/status", deps.DriverHandler.SetStatus)
			}

			shuttles := admin.Group("/shuttles")
			{
				shuttles.GET("", deps.ShuttleHandler.GetAll)
				shuttles.GET("/eligible", deps.DispatchHandler.EligibleShuttles)
				shuttles.GET("/:id", deps.ShuttleHandler.GetShuttle)
				shuttles.POST("", deps.ShuttleHandler.Register)
				shuttles.POST("/:id/advance", deps.ShuttleHandler.AdvanceJunction)
			}

			pricing := admin.Group("/pricing")
			{
				pricing.GET("", deps.PricingHandler.GetActive)
				pricing.GET("/snapshots/:id", deps.PricingHandler.GetSnapshot)
				pricing.PUT("/:class", deps.PricingHandler.Update)
			}

			payments := admin.Group("/payments")
			{
				payments.GET("", deps.PaymentHandler.Records)
				payments.POST("/:txref/verify", deps.PaymentHandler.Verify)
			}

			admin.GET("/reports/daily", deps.ReportHandler.Daily)
		}
	}

	return router
}
