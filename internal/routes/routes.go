package routes

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/coinvault/coinvault/internal/config"
	"github.com/coinvault/coinvault/internal/identity"
	"github.com/coinvault/coinvault/internal/intake"
	"github.com/coinvault/coinvault/internal/ledger"
	"github.com/coinvault/coinvault/internal/middleware"
	"github.com/coinvault/coinvault/internal/notification"
	"github.com/coinvault/coinvault/internal/plans"
	"github.com/coinvault/coinvault/internal/session"
	"github.com/coinvault/coinvault/internal/settlement"
	"github.com/coinvault/coinvault/internal/wallet"
)

// Deps aggregates shared dependencies required to wire routes.
type Deps struct {
	Cfg    config.Config
	DB     *pgxpool.Pool
	Cache  *redis.Client
	Logger *slog.Logger
}

// Setup configures middlewares and all application routes. Without a
// database the stores fall back to in-memory implementations, which is only
// acceptable in development; sessions always need Redis.
func Setup(app *fiber.App, d Deps) error {
	if !isDev(d.Cfg.AppEnv) {
		if d.DB == nil {
			return fmt.Errorf("database is required when APP_ENV=%s", d.Cfg.AppEnv)
		}
		if d.Cache == nil {
			return fmt.Errorf("redis is required when APP_ENV=%s", d.Cfg.AppEnv)
		}
	}
	if d.Cache == nil {
		return fmt.Errorf("redis is required for sessions")
	}

	app.Use(recover.New())
	app.Use(middleware.RequestID())
	app.Use(middleware.Audit(d.Logger))

	RegisterHealthRoutes(app, d)

	// Stores
	var ledgerStore ledger.Store
	var walletStore wallet.Store
	var identityRepo identity.Repository
	var planRepo plans.Repository
	if d.DB != nil {
		ledgerStore = ledger.NewPostgresStore(d.DB)
		walletStore = wallet.NewPostgresStore(d.DB)
		identityRepo = identity.NewPostgresRepository(d.DB)
		planRepo = plans.NewPostgresRepository(d.DB)
	} else {
		ledgerStore = ledger.NewInMemory()
		walletStore = wallet.NewInMemory()
		identityRepo = identity.NewMemoryRepository()
		planRepo = plans.NewMemoryRepositoryWithDefaults()
	}

	// Services
	balances := wallet.NewBalanceCache(d.Cache, time.Minute)
	notifier := notification.NewLoggerNotifier(d.Logger)
	engine := settlement.New(ledgerStore, walletStore, balances, notifier, d.Logger)
	intakeSvc := intake.NewService(ledgerStore, walletStore)
	identitySvc := identity.NewService(identityRepo)
	planSvc := plans.NewService(planRepo, engine, d.Cfg.DefaultCurrency)
	sessions := session.NewManager(d.Cache, d.Cfg.SessionTTL)

	// Handlers
	identityHandler := identity.NewHandler(identitySvc, sessions, walletStore, d.Cfg.DefaultCurrency, d.Cfg.SessionTTL)
	intakeHandler := intake.NewHandler(intakeSvc, d.Cfg.DefaultCurrency)
	walletHandler := wallet.NewHandler(walletStore, balances, d.Cfg.DefaultCurrency)
	ledgerHandler := ledger.NewHandler(ledgerStore)
	resolveUser := func(ctx context.Context, idOrEmail string) (string, error) {
		u, err := identitySvc.Resolve(ctx, idOrEmail)
		if err != nil {
			return "", err
		}
		return u.ID, nil
	}
	settlementHandler := settlement.NewHandler(engine, ledgerStore, resolveUser, d.Cfg.DefaultCurrency)
	planHandler := plans.NewHandler(planSvc)

	api := app.Group("/api/v1")
	api.Get("/ping", func(c *fiber.Ctx) error {
		reqID, _ := c.Locals("X-Request-ID").(string)
		return c.Status(http.StatusOK).JSON(fiber.Map{
			"status":     "ok",
			"request_id": reqID,
			"timestamp":  time.Now().UTC().Format(time.RFC3339Nano),
		})
	})

	// Public routes
	rateLimiter := middleware.LoginRateLimit(d.Cache, 5)
	RegisterAuthRoutes(api, identityHandler, rateLimiter)

	// Authenticated routes
	authmw := middleware.SessionAuth(sessions)
	protected := api.Group("", authmw)
	protected.Use(middleware.Idempotency(d.Cache, d.Cfg.IdempotencyTTL, d.Logger))
	protected.Post("/auth/logout", identityHandler.Logout)
	protected.Get("/me", identityHandler.Me)
	RegisterWalletRoutes(protected, walletHandler, intakeHandler, ledgerHandler)
	RegisterPlanRoutes(protected, planHandler)

	// Admin routes
	admin := protected.Group("/admin", middleware.RequireAdmin())
	RegisterAdminRoutes(admin, settlementHandler, identityHandler, planHandler)

	return nil
}

func isDev(env string) bool {
	switch strings.ToLower(env) {
	case "dev", "development", "local":
		return true
	default:
		return false
	}
}
