package main

import (
	"context"
	"log"
	"net/http"
	"time"

	"mgm-billing/config"
	"mgm-billing/internal/database"
	"mgm-billing/internal/events"
	"mgm-billing/internal/gateway/clients"
	"mgm-billing/internal/gateway/handlers"
	"mgm-billing/internal/gateway/middleware"
	"mgm-billing/internal/services/billing"
	billinghandler "mgm-billing/internal/services/billing/handler"
	historyhandler "mgm-billing/internal/services/history/handler"
	settingshandler "mgm-billing/internal/services/settings/handler"
	userhandler "mgm-billing/internal/services/user/handler"
	"mgm-billing/internal/utils"

	"github.com/gin-gonic/gin"
)

type gateway struct {
	backends *clients.Backends
	jwt      *utils.JWTManager
	users    *handlers.UserHTTPHandler
	settings *handlers.SettingsHTTPHandler
	billing  *handlers.BillingHTTPHandler
	history  *handlers.HistoryHTTPHandler
	events   *handlers.EventsHTTPHandler
}

func main() {
	cfg := config.LoadConfig()

	redisClient, err := config.NewRedisClient(context.Background(), cfg.Redis)
	if err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}

	db, err := database.NewConnection(cfg.DB.DSN)
	if err != nil {
		log.Fatalf("Failed to connect to db: %v", err)
	}
	backends := clients.NewBackends(db, redisClient)
	defer backends.Close()

	if err := database.Migrate(db); err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	if _, err := database.EnsureSettings(ctx, db); err != nil {
		log.Fatalf("Failed to seed settings: %v", err)
	}
	cancel()

	profile, err := config.LoadShopProfile(cfg.Shop.ProfilePath)
	if err != nil {
		log.Fatalf("Failed to load shop profile: %v", err)
	}
	loc := cfg.Shop.Location()

	jwt := utils.NewJWTManager(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	bus := events.NewRedisBus(redisClient, events.DefaultChannelPrefix)

	users := userhandler.NewUserHandler(db, jwt)
	ctx, cancel = context.WithTimeout(context.Background(), 10*time.Second)
	if err := users.EnsureAdmin(ctx, cfg.Auth.AdminUsername, cfg.Auth.AdminPassword); err != nil {
		log.Fatalf("Failed to seed admin user: %v", err)
	}
	cancel()

	settings := settingshandler.NewSettingsHandler(db, redisClient, bus)
	sequencer := billing.NewInvoiceSequencer(db, cfg.Billing.InvoicePrefix)
	recorder := billing.NewInvoiceRecorder(db, sequencer, bus, cfg.Billing.InvoiceMaxAttempts)

	g := &gateway{
		backends: backends,
		jwt:      jwt,
		users:    handlers.NewUserHTTPHandler(users),
		settings: handlers.NewSettingsHTTPHandler(settings),
		billing:  handlers.NewBillingHTTPHandler(billinghandler.NewBillingHandler(settings, settings, recorder)),
		history:  handlers.NewHistoryHTTPHandler(historyhandler.NewHistoryHandler(db, loc), profile, loc),
		events:   handlers.NewEventsHTTPHandler(bus),
	}

	r := newRouter(cfg.HTTP, g)

	port := ":" + cfg.HTTP.Port
	log.Printf("Starting server on port %s", port)
	if err := r.Run(port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

func newRouter(cfg config.HTTPConfig, g *gateway) *gin.Engine {
	r := gin.New()

	r.Use(middleware.CORS(cfg.CORSOrigins))
	r.Use(gin.Logger())
	r.Use(gin.Recovery())
	r.Use(middleware.RateLimit(cfg.RateLimit))

	// --- Public API Group ---
	public := r.Group("/api/v1")
	{
		auth := public.Group("/auth")
		{
			auth.POST("/login", g.users.Login)
		}
	}

	// --- Protected API Group ---
	protected := r.Group("/api/v1")
	protected.Use(middleware.JWTAuth(g.jwt))
	{
		protected.POST("/users", g.users.CreateUser)

		protected.GET("/settings", g.settings.GetSettings)
		protected.PUT("/settings", g.settings.UpdateSettings)

		categories := protected.Group("/categories")
		{
			categories.GET("", g.settings.ListCategories)
			categories.POST("", g.settings.CreateCategory)
			categories.PUT("/:id", g.settings.UpdateCategory)
			categories.DELETE("/:id", g.settings.DeleteCategory)
		}

		subcategories := protected.Group("/subcategories")
		{
			subcategories.GET("", g.settings.ListSubcategories)
			subcategories.POST("", g.settings.CreateSubcategory)
			subcategories.PUT("/:id", g.settings.UpdateSubcategory)
			subcategories.DELETE("/:id", g.settings.DeleteSubcategory)
		}

		billingGroup := protected.Group("/billing")
		{
			billingGroup.POST("/quote", g.billing.Quote)
			billingGroup.POST("/sales", g.billing.CreateSale)
		}

		bills := protected.Group("/bills")
		{
			bills.GET("", g.history.ListBills)
			bills.GET("/export", g.history.ExportBills)
			bills.GET("/:id", g.history.GetBill)
			bills.GET("/:id/print", g.history.PrintBill)
		}

		exchanges := protected.Group("/exchanges")
		{
			exchanges.GET("", g.history.ListExchanges)
			exchanges.GET("/:invoice/print", g.history.PrintExchange)
		}

		protected.GET("/dashboard", g.history.Dashboard)
		protected.GET("/events", g.events.Stream)
	}

	r.GET("/health", healthCheckHandler(g.backends))
	r.GET("/health/detailed", detailedHealthCheckHandler(g.backends))

	return r
}

func healthCheckHandler(backends *clients.Backends) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		status := "healthy"
		httpStatus := http.StatusOK

		unavailable := backends.Unavailable(ctx)
		if len(unavailable) > 0 {
			status = "degraded"
			httpStatus = http.StatusServiceUnavailable
		}

		c.JSON(httpStatus, gin.H{
			"status":               status,
			"message":              "Server is running",
			"unavailable_services": unavailable,
			"timestamp":            time.Now(),
		})
	}
}

func detailedHealthCheckHandler(backends *clients.Backends) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		services := map[string]interface{}{
			"database": checkServiceHealth(backends.IsDatabaseHealthy(ctx)),
			"redis":    checkServiceHealth(backends.IsRedisHealthy(ctx)),
		}

		overallStatus := "healthy"
		for _, service := range services {
			if serviceMap, ok := service.(map[string]interface{}); ok {
				if serviceMap["status"] != "healthy" {
					overallStatus = "degraded"
				}
			}
		}

		c.JSON(http.StatusOK, gin.H{
			"overall_status": overallStatus,
			"services":       services,
			"timestamp":      time.Now(),
		})
	}
}

func checkServiceHealth(err error) map[string]interface{} {
	if err != nil {
		return map[string]interface{}{
			"status":  "unavailable",
			"message": err.Error(),
		}
	}
	return map[string]interface{}{
		"status":  "healthy",
		"message": "Service is responding",
	}
}
