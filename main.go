package main

import (
	"context"
	"fmt"
	"ms-events/internal/auth"
	"ms-events/internal/auth/auth_api"
	auth_db "ms-events/internal/auth/db"
	"ms-events/internal/catalog"
	"ms-events/internal/catalog/catalog_api"
	"ms-events/internal/config"
	"ms-events/internal/database"
	"ms-events/internal/database/migrations"
	"ms-events/internal/kafka"
	"ms-events/internal/logger"
	"ms-events/internal/middleware"
	"ms-events/internal/registrations/db"
	"ms-events/internal/registrations/pass"
	rediswrap "ms-events/internal/registrations/redis"
	"ms-events/internal/registrations/registration_api"
	"ms-events/internal/registrations/service"
	"ms-events/internal/sse"
	"ms-events/internal/utils"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/uptrace/bun"
)

func prepareSchema(ctx context.Context, bunDB *bun.DB, cfg config.DatabaseConfig, logger *logger.Logger) {
	if !cfg.AutoMigrate {
		logger.Info("MIGRATE", "Auto-migrate disabled, skipping schema setup")
		return
	}

	if cfg.Driver == database.DriverSQLite {
		if err := database.CreateSchema(ctx, bunDB); err != nil {
			logger.Fatal("MIGRATE", fmt.Sprintf("Failed to create sqlite schema: %v", err))
		}
		logger.Info("MIGRATE", "✅ SQLite schema ready")
		return
	}

	// The runner shares bunDB's pool, so it is not closed here.
	runner := migrations.NewRunner(bunDB, migrations.MigrateOptions{
		MigrationsDir: cfg.MigrationsDir,
		AutoMigrate:   cfg.AutoMigrate,
	}, logger)
	if err := runner.RunMigrations(); err != nil {
		logger.Fatal("MIGRATE", fmt.Sprintf("Failed to run migrations: %v", err))
	}
	logger.Info("MIGRATE", "✅ Migrations applied")
}

func newVerifier(ctx context.Context, cfg config.AuthConfig, issuer *auth.Issuer, logger *logger.Logger) auth.TokenVerifier {
	if cfg.OIDCIssuer == "" {
		logger.Info("AUTH", "Verifying locally issued tokens")
		return issuer
	}

	verifier, err := auth.NewOIDCVerifier(ctx, cfg.OIDCIssuer)
	if err != nil {
		logger.Fatal("AUTH", fmt.Sprintf("Failed to set up OIDC verifier: %v", err))
	}
	logger.Info("AUTH", fmt.Sprintf("Verifying tokens from %s", cfg.OIDCIssuer))
	return verifier
}

// startKafka wires the producer as the registration publisher and forwards consumed
// events to the local SSE emitter. It returns a cleanup func.
func startKafka(ctx context.Context, cfg config.KafkaConfig, emitter *sse.RegistrationEventEmitter, logger *logger.Logger) (service.Publisher, func()) {
	topics := []string{cfg.Topics.RegistrationCreated, cfg.Topics.RegistrationCancelled}
	if err := kafka.EnsureTopicsExist(cfg.Brokers, topics, logger); err != nil {
		logger.Warn("KAFKA", fmt.Sprintf("Topic creation might have failed: %v", err))
	} else {
		logger.Info("KAFKA", "Required topics ensured successfully")
	}

	producer := kafka.NewProducer(cfg.Brokers, cfg.Topics, logger)
	logger.Info("KAFKA", "Kafka producer initialized successfully")

	groupID := "ms-events-sse-" + uuid.NewString()
	consumer := kafka.NewConsumer(cfg.Brokers, topics, groupID, logger)
	go consumer.Start(ctx, emitter.Publish)
	logger.Info("KAFKA", fmt.Sprintf("Consumer group %s forwarding registrations to SSE", groupID))

	return producer, func() {
		if err := consumer.Close(); err != nil {
			logger.Error("KAFKA", fmt.Sprintf("Failed to close consumer: %v", err))
		}
		if err := producer.Close(); err != nil {
			logger.Error("KAFKA", fmt.Sprintf("Failed to close producer: %v", err))
		}
	}
}

func healthHandler(bunDB *bun.DB, redisClient *redis.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		status := map[string]string{"database": "ok", "redis": "disabled"}
		code := http.StatusOK
		if err := bunDB.PingContext(ctx); err != nil {
			status["database"] = err.Error()
			code = http.StatusServiceUnavailable
		}
		if redisClient != nil {
			status["redis"] = "ok"
			if err := redisClient.Ping(ctx).Err(); err != nil {
				// Redis only backs caches and locks.
				status["redis"] = err.Error()
			}
		}
		if code != http.StatusOK {
			resp := utils.ErrorResponse("unhealthy", "database unavailable")
			resp.Data = status
			utils.WriteJSON(w, code, resp)
			return
		}
		utils.WriteSuccess(w, code, "health", status)
	}
}

func main() {
	log := logger.NewLogger()
	defer log.Close()

	log.Info("APP", "Starting Events Service initialization")

	if err := godotenv.Load(); err != nil {
		log.Warn("CONFIG", ".env file not found, using environment variables")
	} else {
		log.Info("CONFIG", "Loaded environment variables from .env file")
	}

	cfg := config.Load()
	log.SetLevel(logger.ParseLevel(cfg.LogLevel))

	ctx, stopBackground := context.WithCancel(context.Background())
	defer stopBackground()

	log.Info("APP", "Verifying database connections")
	bunDB, err := database.Open(ctx, cfg.Database, log)
	if err != nil {
		log.Fatal("DATABASE", err.Error())
	}
	defer bunDB.Close()
	prepareSchema(ctx, bunDB, cfg.Database, log)

	redisClient, err := database.ConnectRedis(ctx, cfg.Redis, log)
	if err != nil {
		log.Warn("REDIS", fmt.Sprintf("Running without Redis: %v", err))
		redisClient = nil
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	// --- Catalog ---
	httpClient := &http.Client{Timeout: cfg.Catalog.Timeout}
	deriver, err := catalog.NewDeriver(cfg.Catalog.BaseDate)
	if err != nil {
		log.Fatal("CATALOG", fmt.Sprintf("Failed to load schedule tables: %v", err))
	}

	var eventCache catalog.EventCache
	if redisClient != nil {
		eventCache = catalog.NewRedisCache(redisClient, cfg.Catalog.CacheTTL)
	}
	catalogService := catalog.NewService(
		catalog.NewClient(cfg.Catalog.BaseURL, httpClient, log),
		eventCache,
		deriver,
		cfg.Catalog.PageSize,
		log,
	)

	warmer, err := catalog.NewWarmer(cfg.Catalog.RefreshCron, catalogService, cfg.Catalog.Timeout, log)
	if err != nil {
		log.Fatal("CATALOG", err.Error())
	}
	if warmer != nil && eventCache != nil {
		warmer.Start(ctx)
		defer warmer.Stop()
	}

	// --- Auth ---
	issuer := auth.NewIssuer(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	verifier := newVerifier(ctx, cfg.Auth, issuer, log)

	var revoked auth.RevocationList
	if redisClient != nil {
		revoked = auth.NewRedisRevocationList(redisClient)
	}

	authHandler := &auth_api.Handler{
		UserDB:  &auth_db.DB{Bun: bunDB},
		Issuer:  issuer,
		Revoked: revoked,
		Logger:  log,
	}

	// --- Registrations ---
	emitter := sse.NewRegistrationEventEmitter()

	var publisher service.Publisher = emitter
	if cfg.Kafka.Enabled {
		var closeKafka func()
		publisher, closeKafka = startKafka(ctx, cfg.Kafka, emitter, log)
		defer closeKafka()
	}

	var locker service.Locker
	if redisClient != nil {
		locker = rediswrap.NewLocker(redisClient, cfg.Redis.LockTTL, log)
	}

	registrationService := service.NewRegistrationService(
		&db.DB{Bun: bunDB},
		catalogService,
		locker,
		log,
		publisher,
	)

	passGenerator, err := pass.NewGenerator(cfg.Pass.Secret)
	if err != nil {
		log.Fatal("PASS", fmt.Sprintf("Failed to create pass generator: %v", err))
	}
	passService := service.NewPassService(registrationService, passGenerator)

	catalogHandler := &catalog_api.Handler{
		Catalog:       catalogService,
		Registrations: registrationService,
		Logger:        log,
	}
	registrationHandler := &registration_api.Handler{
		Registrations: registrationService,
		Passes:        passService,
		EventDuration: deriver.Duration(),
		Logger:        log,
	}
	sseHandler := &registration_api.SSEHandler{
		Logger:  log,
		Emitter: emitter,
	}

	// --- Rate limits ---
	globalLimiter := middleware.NewRateLimiter("global", middleware.LimiterConfig{
		RPS: cfg.RateLimit.GlobalRPS, Burst: cfg.RateLimit.GlobalBurst,
	}, log)
	userLimiter := middleware.NewRateLimiter("user", middleware.LimiterConfig{
		RPS: cfg.RateLimit.UserRPS, Burst: cfg.RateLimit.UserBurst,
	}, log)
	loginLimiter := middleware.NewRateLimiter("login", middleware.LimiterConfig{
		RPS: cfg.RateLimit.LoginRPS, Burst: cfg.RateLimit.LoginBurst,
	}, log)
	for _, rl := range []*middleware.RateLimiter{globalLimiter, userLimiter, loginLimiter} {
		go rl.Run(ctx)
	}

	log.Info("HTTP", "Setting up router and middleware")
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.AccessLog(log))
	r.Use(chimw.Recoverer)
	r.Use(globalLimiter.Middleware(middleware.GlobalKey))

	// --- Public Routes ---
	r.Get("/health", healthHandler(bunDB, redisClient))

	r.Route("/api", func(r chi.Router) {
		if cfg.Auth.OIDCIssuer == "" {
			r.Group(func(r chi.Router) {
				r.Use(loginLimiter.Middleware(middleware.ClientIP))
				authHandler.RegisterPublicRoutes(r)
			})
			log.Info("ROUTER", "Login endpoint registered at /api/auth/login")
		}

		// --- Protected Routes ---
		r.Group(func(r chi.Router) {
			r.Use(auth.Middleware(verifier, revoked, log))
			r.Use(userLimiter.Middleware(middleware.UserOrIP))
			log.Info("AUTH", "JWT middleware applied to protected API routes")

			authHandler.RegisterRoutes(r)
			catalogHandler.RegisterRoutes(r)
			log.Info("ROUTER", "Catalog routes registered under /api/events")

			registrationHandler.RegisterRoutes(r)
			r.Get("/profile/stream", sseHandler.HandleProfileStream)
			log.Info("ROUTER", "Registration and profile routes registered under /api")
		})
	})

	server := &http.Server{
		Addr:         cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		log.Info("HTTP", fmt.Sprintf("🚀 Events Service running on %s", cfg.Server.Port))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("HTTP", fmt.Sprintf("HTTP server error: %v", err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	log.Info("APP", "Service started successfully, waiting for shutdown signal")
	<-stop

	log.Info("APP", "Shutdown signal received, initiating graceful shutdown")
	stopBackground()

	ctxShutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := server.Shutdown(ctxShutdown); err != nil {
		log.Error("HTTP", fmt.Sprintf("Server Shutdown Failed: %v", err))
	} else {
		log.Info("HTTP", "✅ Events Service shutdown complete")
	}
}
