package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/ObiomaIkpe/credo-brige/internal/auth"
	"github.com/ObiomaIkpe/credo-brige/internal/benefits"
	"github.com/ObiomaIkpe/credo-brige/internal/config"
	"github.com/ObiomaIkpe/credo-brige/internal/ledger"
	"github.com/ObiomaIkpe/credo-brige/internal/lending"
	"github.com/ObiomaIkpe/credo-brige/internal/metadata"
	"github.com/ObiomaIkpe/credo-brige/internal/notifications"
	"github.com/ObiomaIkpe/credo-brige/internal/oracle"
	"github.com/ObiomaIkpe/credo-brige/internal/points"
	"github.com/ObiomaIkpe/credo-brige/internal/registry"
	"github.com/ObiomaIkpe/credo-brige/internal/reports"
	"github.com/ObiomaIkpe/credo-brige/internal/token"
)

func main() {
	if err := godotenv.Load(); err != nil {
		// .env is optional outside local development
	}

	logger, _ := zap.NewDevelopment()
	defer logger.Sync()

	cfg, err := config.LoadConfig("config.json")
	if err != nil {
		logger.Fatal("Failed to load config", zap.Error(err))
	}

	db, err := gorm.Open(postgres.Open(cfg.Database.GetDatabaseURL()), &gorm.Config{})
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}

	if err := db.AutoMigrate(
		&ledger.Event{},
		&token.Balance{},
		&token.Allowance{},
		&registry.AchievementRecord{},
		&registry.AuthorizedIssuer{},
		&points.ReputationTotal{},
		&points.LedgerConfig{},
		&oracle.VerifiedScore{},
		&oracle.ScoreHistoryEntry{},
		&oracle.OracleConfig{},
		&lending.Loan{},
		&lending.LendingConfig{},
		&benefits.Program{},
		&benefits.Application{},
		&auth.Operator{},
	); err != nil {
		logger.Fatal("Migration failed", zap.Error(err))
	}

	addrs, err := resolveAddresses(cfg.Ledger)
	if err != nil {
		logger.Fatal("Invalid ledger addresses", zap.Error(err))
	}

	clock := ledger.SystemClock()
	feed := notifications.NewFeed(logger)
	defer feed.Close()
	recorder := ledger.NewRecorder(db, logger, feed)

	// Service graph. The registry pushes into points; lending and benefits
	// read points and scores, settle through the token ledger, and mint
	// rewards back through the registry.
	tokenService := token.NewService(db, addrs.owner, logger)
	pointsRepo := points.NewRepository(db)
	oracleRepo := oracle.NewRepository(db)
	oracleService := oracle.NewService(oracleRepo, recorder, clock, logger, addrs.owner)
	pointsService := points.NewService(pointsRepo, oracleService, recorder, logger, addrs.owner, addrs.points)
	registryService := registry.NewService(registry.NewRepository(db), pointsService, recorder, clock, logger, addrs.owner, addrs.registry)
	lendingService := lending.NewService(lending.NewRepository(db), pointsService, oracleService, tokenService, registryService,
		recorder, clock, logger, addrs.owner, addrs.lending)
	benefitsService := benefits.NewService(benefits.NewRepository(db), pointsService, tokenService, registryService,
		recorder, clock, logger, addrs.benefits)

	bootstrapTrust(logger, pointsService, registryService, addrs)

	authService := auth.NewService(db, cfg.Security.JWTSecret, logger)

	reportsService := reports.NewService(db, logger)

	var evidenceHandler *metadata.Handler
	mongoDB, err := metadata.Connect(context.Background(), cfg.Mongo.URI, cfg.Mongo.Database)
	if err != nil {
		logger.Warn("Evidence store unavailable", zap.Error(err))
	} else {
		evidenceHandler = metadata.NewHandler(metadata.NewStore(mongoDB, logger), logger)
	}

	router := gin.Default()
	router.Use(corsMiddleware())

	auth.NewHandler(authService, logger).RegisterRoutes(router)

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy", "timestamp": time.Now()})
	})
	router.GET("/ws/events", func(c *gin.Context) {
		if err := feed.HandleConnection(c.Writer, c.Request); err != nil {
			logger.Warn("WebSocket upgrade failed", zap.Error(err))
		}
	})

	api := router.Group("/api/v1")
	api.Use(auth.Middleware(authService))
	{
		registry.NewHandler(registryService, logger).RegisterRoutes(api)
		points.NewHandler(pointsService, logger).RegisterRoutes(api)
		oracle.NewHandler(oracleService, logger).RegisterRoutes(api)
		lending.NewHandler(lendingService, logger).RegisterRoutes(api)
		benefits.NewHandler(benefitsService, logger).RegisterRoutes(api)
		token.NewHandler(tokenService, logger).RegisterRoutes(api)
		reports.NewHandler(reportsService, logger).RegisterRoutes(api)
		if evidenceHandler != nil {
			evidenceHandler.RegisterRoutes(api)
		}
	}

	srv := &http.Server{
		Addr:    cfg.Server.GetServerAddr(),
		Handler: router,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("listen failed", zap.Error(err))
		}
	}()
	logger.Info("Server started", zap.Int("port", cfg.Server.Port))

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatal("Server forced to shutdown", zap.Error(err))
	}
	logger.Info("Server exiting")
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}

type ledgerAddresses struct {
	owner    ledger.Address
	registry ledger.Address
	lending  ledger.Address
	benefits ledger.Address
	points   ledger.Address
}

func resolveAddresses(cfg config.LedgerConfig) (*ledgerAddresses, error) {
	parse := func(name, raw string) (ledger.Address, error) {
		addr, err := ledger.ParseAddress(raw)
		if err != nil {
			return ledger.ZeroAddress, fmt.Errorf("%s: %w", name, err)
		}
		return addr, nil
	}

	var (
		addrs ledgerAddresses
		err   error
	)
	if addrs.owner, err = parse("owner", cfg.OwnerAddress); err != nil {
		return nil, err
	}
	if addrs.registry, err = parse("registry", cfg.RegistryAddress); err != nil {
		return nil, err
	}
	if addrs.lending, err = parse("lending", cfg.LendingAddress); err != nil {
		return nil, err
	}
	if addrs.benefits, err = parse("benefits", cfg.BenefitsAddress); err != nil {
		return nil, err
	}
	if addrs.points, err = parse("points", cfg.PointsAddress); err != nil {
		return nil, err
	}
	return &addrs, nil
}

// bootstrapTrust wires the one-way trust relationships: the points ledger
// accepts writes only from the registry, and the registry accepts mints only
// from authorized issuers. Idempotent across restarts.
func bootstrapTrust(logger *zap.Logger, pointsService *points.Service, registryService *registry.Service, addrs *ledgerAddresses) {
	ctx := context.Background()

	err := pointsService.SetRegistry(ctx, addrs.owner, addrs.registry)
	if err != nil && !errors.Is(err, ledger.ErrAlreadyConfigured) {
		logger.Fatal("Failed to bind registry", zap.Error(err))
	}

	for _, issuer := range []ledger.Address{addrs.owner, addrs.lending, addrs.benefits} {
		if err := registryService.AddIssuer(ctx, addrs.owner, issuer); err != nil {
			logger.Warn("Issuer registration skipped",
				zap.String("issuer", issuer.String()),
				zap.Error(err))
		}
	}
}
