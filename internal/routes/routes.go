// Package routes defines the API routing configuration.
// It builds the service graph, sets up all HTTP routes and their
// corresponding handlers, including middleware and authentication
// requirements.
package routes

import (
	"stagepay/internal/config"
	"stagepay/internal/handlers"
	"stagepay/internal/metrics"
	"stagepay/internal/middleware"
	"stagepay/internal/models"
	"stagepay/internal/repositories"
	"stagepay/internal/services/auth"
	"stagepay/internal/services/dashboard"
	"stagepay/internal/services/entitlement"
	"stagepay/internal/services/event"
	"stagepay/internal/services/ledger"
	"stagepay/internal/services/realtime"
	"stagepay/internal/services/transfer"
	"stagepay/internal/services/wallet"

	"github.com/gofiber/adaptor/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// SetupRoutes configures all application routes.
// It groups routes by functionality and applies appropriate middleware.
func SetupRoutes(app *fiber.App, db *gorm.DB, logger *zap.Logger) {
	store := repositories.NewDataStore(db)
	userRepo := repositories.NewUserRepository(db)

	authService := auth.NewService(userRepo)
	authHandler := handlers.NewAuthHandler(authService)

	transferMetrics := metrics.NewPrometheusCollector(prometheus.DefaultRegisterer)
	transferService := transfer.NewService(store, logger, transferMetrics)

	walletService := wallet.NewService(
		store,
		repositories.CacheService,
		transferService,
		wallet.Config{
			DefaultCurrency:    config.GetEnv("DEFAULT_CURRENCY", wallet.DefaultCurrency),
			TreasuryUserID:     config.GetUintEnv("TREASURY_USER_ID", 1),
			MaxDepositCents:    config.GetInt64Env("MAX_DEPOSIT_CENTS", wallet.DefaultMaxDepositCents),
			MaxWithdrawalCents: config.GetInt64Env("MAX_WITHDRAWAL_CENTS", wallet.DefaultMaxWithdrawalCents),
		},
		logger,
	)

	hub := realtime.NewHub(logger)
	eventService := event.NewService(
		store,
		transferService,
		entitlement.NewStatic(false),
		hub,
		repositories.CacheService,
		logger,
	)

	ledgerService := ledger.NewService(store)
	dashboardService := dashboard.NewService(store)

	walletHandler := handlers.NewWalletHandler(walletService)
	eventHandler := handlers.NewEventHandler(eventService)
	ledgerHandler := handlers.NewLedgerHandler(ledgerService)
	dashboardHandler := handlers.NewDashboardHandler(dashboardService)

	// Public endpoints
	app.Get("/health", handlers.HealthCheck)
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	api := app.Group("/api")
	api.Post("/register", authHandler.RegisterUser)
	api.Post("/login", authHandler.LoginUser)
	api.Post("/refresh", authHandler.RefreshToken)

	api.Get("/events/:id", eventHandler.GetEvent)

	// Protected routes with auth middleware
	authMiddleware := middleware.NewAuthMiddleware(authService)
	protected := api.Use(authMiddleware.Handler)

	protected.Post("/logout", authHandler.LogoutUser)

	walletGroup := protected.Group("/wallet")
	walletGroup.Get("/", walletHandler.GetWallet)
	walletGroup.Get("/transactions", walletHandler.GetTransactions)
	walletGroup.Post("/deposit", walletHandler.Deposit)
	walletGroup.Post("/withdraw", walletHandler.Withdraw)

	events := protected.Group("/events")
	events.Post("/", middleware.RequireRole(models.RoleCreator), eventHandler.CreateEvent)
	events.Post("/:id/start", middleware.RequireRole(models.RoleCreator), eventHandler.StartEvent)
	events.Post("/:id/end", middleware.RequireRole(models.RoleCreator), eventHandler.EndEvent)
	events.Post("/:id/cancel", middleware.RequireRole(models.RoleCreator), eventHandler.CancelEvent)
	events.Post("/:id/tickets", eventHandler.PurchaseTicket)
	events.Post("/:id/tips", eventHandler.SendTip)
	events.Post("/:id/join", eventHandler.JoinEvent)
	events.Post("/:id/leave", eventHandler.LeaveEvent)

	protected.Get("/transactions/:txid", ledgerHandler.GetTransaction)
	protected.Get("/transactions/:txid/verify", ledgerHandler.VerifyTransaction)

	protected.Get("/dashboard", middleware.RequireRole(models.RoleCreator), dashboardHandler.GetCreatorSummary)

	// Realtime room per event. The hub only carries post-commit
	// notifications; joining a room grants no entitlement.
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws/events/:id", websocket.New(func(conn *websocket.Conn) {
		hub.Serve("event:"+conn.Params("id"), conn)
	}))
}
