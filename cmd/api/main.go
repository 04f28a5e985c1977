package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/okulab/okulab-api/internal/config"
	"github.com/okulab/okulab-api/internal/domain/account"
	"github.com/okulab/okulab-api/internal/domain/catalog"
	"github.com/okulab/okulab-api/internal/domain/credit"
	"github.com/okulab/okulab-api/internal/domain/enrollment"
	"github.com/okulab/okulab-api/internal/domain/promotion"
	"github.com/okulab/okulab-api/internal/domain/referral"
	"github.com/okulab/okulab-api/internal/domain/student"
	"github.com/okulab/okulab-api/internal/middleware"
	"github.com/okulab/okulab-api/internal/pkg/cardgate"
	"github.com/okulab/okulab-api/internal/pkg/database"
	"github.com/okulab/okulab-api/internal/pkg/eventbus"
	"github.com/okulab/okulab-api/internal/pkg/jwt"
	pkgresponse "github.com/okulab/okulab-api/internal/pkg/response"
)

func main() {
	cfg := config.Load()
	setupLogger(cfg)

	log.Info().
		Str("env", cfg.Env).
		Str("port", cfg.Port).
		Msg("Starting Okulab API")

	db, err := database.NewPostgres(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer database.ClosePostgres(db)

	schemaCtx, cancelSchema := context.WithTimeout(context.Background(), 30*time.Second)
	if err := database.EnsureSchema(schemaCtx, db); err != nil {
		cancelSchema()
		log.Fatal().Err(err).Msg("Failed to ensure database schema")
	}
	cancelSchema()

	redisClient, err := database.NewRedis(cfg.RedisURL)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer database.CloseRedis(redisClient)

	jwtService := jwt.NewService(cfg.JWTSecret, cfg.JWTAccessTTL)

	// ---------- Repositories ----------
	accountRepo := account.NewRepository(db)
	studentRepo := student.NewRepository(db)
	catalogRepo := catalog.NewRepository(db)
	creditRepo := credit.NewRepository(db)
	promotionRepo := promotion.NewRepository(db)
	enrollmentRepo := enrollment.NewRepository(db)
	reconciliationRepo := enrollment.NewReconciliationRepository(db)

	// ---------- Services ----------
	ledger := credit.NewLedger(creditRepo)
	promotionValidator := promotion.NewValidator(promotionRepo)
	referralIssuer := referral.NewIssuer(accountRepo, ledger, cfg.ReferralBonusCents)

	gateway := cardgate.NewClient(cardgate.Config{
		BaseURL: cfg.CardGateBaseURL,
		APIKey:  cfg.CardGateAPIKey,
		Timeout: time.Duration(cfg.CardGateTimeoutSeconds) * time.Second,
	})
	publisher := eventbus.NewRedisPublisher(redisClient)

	enrollmentService := enrollment.NewService(
		db,
		enrollmentRepo,
		reconciliationRepo,
		accountRepo,
		studentRepo,
		catalogRepo,
		promotionValidator,
		ledger,
		referralIssuer,
		gateway,
		publisher,
	)

	// ---------- Handlers ----------
	accountHandler := account.NewHandler(accountRepo)
	studentHandler := student.NewHandler(studentRepo)
	catalogHandler := catalog.NewHandler(catalogRepo)
	creditHandler := credit.NewHandler(ledger)
	promotionHandler := promotion.NewHandler(promotionRepo)
	enrollmentHandler := enrollment.NewHandler(enrollmentService)

	authMiddleware := middleware.Auth(jwtService)

	// ---------- Background workers ----------
	reconcileWorker := enrollment.NewReconcileWorker(reconciliationRepo, gateway, cfg.ReconcileInterval, cfg.ReconcileMaxRetries)
	reconcileWorker.Start()

	// ---------- Router ----------
	r := chi.NewRouter()

	r.Use(chimw.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recover)
	r.Use(middleware.CORSHandler(cfg.AllowedOrigins))
	r.Use(middleware.Attribution)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		pkgresponse.OK(w, map[string]string{
			"status":  "ok",
			"version": "1.0.0",
		})
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/ping", func(w http.ResponseWriter, r *http.Request) {
			pkgresponse.OK(w, map[string]string{"message": "pong"})
		})

		r.Mount("/accounts", accountHandler.Routes(authMiddleware))
		r.Mount("/students", studentHandler.Routes(authMiddleware))
		r.Mount("/classes", catalogHandler.Routes())
		r.Mount("/credits", creditHandler.Routes(authMiddleware))
		r.Mount("/promotions", promotionHandler.Routes(authMiddleware))
		r.Mount("/enrollments", enrollmentHandler.Routes(authMiddleware))
	})

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("addr", server.Addr).Msg("HTTP server listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("HTTP server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	reconcileWorker.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited properly")
}

func setupLogger(cfg *config.Config) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.DebugLevel
	}
	zerolog.SetGlobalLevel(level)

	if cfg.IsDevelopment() {
		log.Logger = log.Output(zerolog.ConsoleWriter{
			Out:        os.Stdout,
			TimeFormat: "15:04:05",
		})
	}
}
