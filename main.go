package main

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	sdkaws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/yashrajoria/bike-store/config"
	"github.com/yashrajoria/bike-store/controllers"
	"github.com/yashrajoria/bike-store/database"
	"github.com/yashrajoria/bike-store/logger"
	"github.com/yashrajoria/bike-store/middleware"
	aws_pkg "github.com/yashrajoria/bike-store/pkg/aws"
	"github.com/yashrajoria/bike-store/repository"
	"github.com/yashrajoria/bike-store/routes"
	"github.com/yashrajoria/bike-store/services"
	"go.uber.org/zap"
)

const serviceName = "bike-store"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	bootLog, err := zap.NewProduction()
	if err != nil {
		panic("failed to initialize logger: " + err.Error())
	}

	cfg, err := config.Load(ctx)
	if err != nil {
		bootLog.Fatal("Config load failed", zap.Error(err))
	}

	// --- AWS setup (only when something needs it) ---
	var awsCfg sdkaws.Config
	needAWS := cfg.CloudWatchEnabled || cfg.PaymentSNSTopicARN != ""
	if needAWS {
		if awsCfg, err = aws_pkg.LoadAWSConfig(ctx); err != nil {
			bootLog.Fatal("Failed to load AWS config", zap.Error(err))
		}
	}

	var sink io.Writer
	if cfg.CloudWatchEnabled {
		cwLogs, err := aws_pkg.NewCloudWatchLogsClient(ctx, awsCfg, serviceName)
		if err != nil {
			bootLog.Warn("CloudWatch Logs init failed (non-fatal)", zap.Error(err))
		} else {
			sink = cwLogs
		}
	}

	log, err := logger.New(cfg.AppEnv, sink)
	if err != nil {
		bootLog.Fatal("Failed to build logger", zap.Error(err))
	}
	defer log.Sync()

	var metrics aws_pkg.Recorder
	if needAWS {
		metrics = aws_pkg.NewMetricsClient(awsCfg)
	}
	var publisher aws_pkg.SNSPublisher
	if cfg.PaymentSNSTopicARN != "" {
		publisher = aws_pkg.NewSNSClient(awsCfg)
	}

	// --- Database ---
	client, db, err := database.Connect(ctx, cfg.DatabaseURI(), cfg.DBName)
	if err != nil {
		log.Fatal("DB connection failed", zap.Error(err))
	}
	log.Info("Connected to MongoDB", zap.String("database", cfg.DBName))
	if err := database.EnsureIndexes(ctx, db); err != nil {
		log.Warn("Index creation failed (non-fatal)", zap.Error(err))
	}

	// --- Catalog cache ---
	var catalogCache services.CatalogCache
	var rdb *redis.Client
	if cfg.RedisURL != "" {
		rdb, err = connectRedis(ctx, cfg.RedisURL)
		if err != nil {
			log.Warn("Redis unavailable, serving catalog uncached", zap.Error(err))
		} else {
			catalogCache = services.NewRedisCatalogCache(rdb, cfg.CatalogCacheTTL, log)
			log.Info("Catalog cache enabled", zap.Duration("ttl", cfg.CatalogCacheTTL))
		}
	}

	// --- Dependency injection ---
	bikeRepo := repository.NewMongoDocumentRepository(db.Collection(database.CollectionBikes))
	cartRepo := repository.NewMongoCartRepository(db.Collection(database.CollectionCarts))
	paymentRepo := repository.NewMongoPaymentRepository(db.Collection(database.CollectionPayments))

	stripeService := services.NewStripeService(cfg.StripeSecretKey, cfg.StripeAPIURL)
	paymentService := services.NewPaymentService(cartRepo, paymentRepo, stripeService, publisher, metrics, services.PaymentOptions{
		Currency:       cfg.StripeCurrency,
		RequireOwner:   cfg.RequireOwnerOnConfirmation,
		PendingTimeout: cfg.SettlementPendingTimeout,
		TopicArn:       cfg.PaymentSNSTopicARN,
	}, log)
	catalogService := services.NewCatalogService(bikeRepo, catalogCache, metrics, log)
	cartService := services.NewCartService(cartRepo, log)

	collection := func(name string) *controllers.CollectionController {
		repo := repository.NewMongoDocumentRepository(db.Collection(name))
		return controllers.NewCollectionController(services.NewCollectionService(name, repo, log))
	}

	// --- HTTP router ---
	if cfg.AppEnv == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(
		middleware.RequestID(),
		middleware.RequestLogger(log),
		middleware.Metrics(metrics, serviceName),
		gin.CustomRecovery(func(c *gin.Context, recovered any) {
			logger.ForRequest(c, log).Error("panic recovered", zap.Any("panic", recovered), zap.String("path", c.Request.URL.Path))
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Internal Server Error"})
		}),
		middleware.CORS(cfg.AllowedOrigins),
		middleware.SecurityHeaders(),
		middleware.NewRateLimiter(ctx, cfg.RateLimitPerMinute, 5*time.Minute).Middleware(),
		middleware.Timeout(cfg.RequestTimeout),
	)

	routes.Register(r, routes.Handlers{
		Health:   controllers.NewHealthController(func(ctx context.Context) error { return database.Ping(ctx, client) }),
		Catalog:  controllers.NewCatalogController(catalogService),
		Carts:    controllers.NewCartController(cartService),
		Payments: controllers.NewPaymentController(paymentService),
		Reviews:  collection(database.CollectionReviews),
		Blogs:    collection(database.CollectionBlogs),
		Users:    collection(database.CollectionUsers),
	})

	// --- Background settlement sweep ---
	sweeperDone := services.StartSettlementSweeper(ctx, paymentService, cfg.SettlementSweepInterval, log)

	// --- HTTP server ---
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		log.Info("Bike store started", zap.String("port", cfg.Port), zap.String("env", cfg.AppEnv))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("server failed", zap.Error(err))
		}
	}()

	// --- Graceful shutdown ---
	<-ctx.Done()
	stop()
	log.Info("Initiating graceful shutdown...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server shutdown error", zap.Error(err))
	}

	select {
	case <-sweeperDone:
	case <-shutdownCtx.Done():
		log.Warn("settlement sweeper did not stop in time")
	}

	if rdb != nil {
		if err := rdb.Close(); err != nil {
			log.Error("Redis close error", zap.Error(err))
		}
	}
	if err := database.Close(client); err != nil {
		log.Error("Database close error", zap.Error(err))
	}
	log.Info("Bike store stopped gracefully")
}

// connectRedis parses a redis:// URL and pings the server.
func connectRedis(ctx context.Context, redisURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}
	rdb := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, err
	}
	return rdb, nil
}
