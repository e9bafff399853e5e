package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	grpcAdapter "github.com/jlmsdev/webCarros/internal/adapter/grpc"
	natsAdapter "github.com/jlmsdev/webCarros/internal/adapter/messaging/nats"
	"github.com/jlmsdev/webCarros/internal/adapter/repository/cache"
	mongoRepo "github.com/jlmsdev/webCarros/internal/adapter/repository/mongodb"
	"github.com/jlmsdev/webCarros/internal/adapter/rest"
	"github.com/jlmsdev/webCarros/internal/adapter/storage/awss3"
	minioStorage "github.com/jlmsdev/webCarros/internal/adapter/storage/minio"
	"github.com/jlmsdev/webCarros/internal/auth"
	"github.com/jlmsdev/webCarros/internal/config"
	"github.com/jlmsdev/webCarros/internal/listing/domain"
	"github.com/jlmsdev/webCarros/internal/listing/usecase"
	"github.com/jlmsdev/webCarros/internal/mailer"
	"github.com/jlmsdev/webCarros/internal/platform/logger"
	"github.com/jlmsdev/webCarros/internal/platform/metrics"
	"github.com/jlmsdev/webCarros/internal/platform/tracer"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

const serviceName = "webcarros"

func main() {
	appLogger := logger.NewLogger()
	appLogger.Info("Application starting...", zap.String("service_name", serviceName))

	// 1. Configuration
	cfg, err := config.Load()
	if err != nil {
		appLogger.Fatal("Failed to load configuration", zap.Error(err))
	}
	appLogger.Info("Configuration loaded",
		zap.String("http_port", cfg.HTTPPort),
		zap.String("storage_backend", cfg.StorageBackend),
		zap.String("auth_provider", cfg.AuthProvider),
		zap.Bool("mail_enabled", cfg.MailEnabled()),
	)

	ctx := context.Background()

	// 2. Tracing
	tp, err := tracer.InitTracer(ctx, serviceName, cfg.OTLPEndpoint, appLogger)
	if err != nil {
		appLogger.Fatal("Failed to initialize tracer", zap.Error(err))
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tp.Shutdown(shutdownCtx); err != nil {
			appLogger.Error("Failed to shutdown tracer provider", zap.Error(err))
		}
	}()

	metricsManager := metrics.NewManager(serviceName)

	// 3. MongoDB
	mongoClient, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		appLogger.Fatal("Failed to connect to MongoDB", zap.Error(err))
	}
	defer func() {
		if err := mongoClient.Disconnect(context.Background()); err != nil {
			appLogger.Error("Error disconnecting from MongoDB", zap.Error(err))
		}
	}()
	pingCtx, cancelPing := context.WithTimeout(ctx, 5*time.Second)
	if err := mongoClient.Ping(pingCtx, nil); err != nil {
		cancelPing()
		appLogger.Fatal("Failed to ping MongoDB", zap.Error(err))
	}
	cancelPing()

	listingRepo := mongoRepo.NewListingRepository(mongoClient.Database(cfg.MongoDB), cfg.MongoCollection, appLogger)
	if err := listingRepo.EnsureIndexes(ctx); err != nil {
		appLogger.Fatal("Failed to create listing indexes", zap.Error(err))
	}

	// 4. Redis
	redisClient, err := cache.NewClient(ctx, cfg.RedisAddress, cfg.RedisPassword)
	if err != nil {
		appLogger.Fatal("Failed to connect to Redis", zap.Error(err))
	}
	defer redisClient.Close()
	draftStore := cache.NewDraftStore(redisClient, cfg.DraftTTL)
	listingCache := cache.NewListingCache(redisClient, cfg.ListingTTL)
	revocations := cache.NewRevocationStore(redisClient)

	// 5. Blob storage
	storage, err := newStorage(ctx, cfg, appLogger)
	if err != nil {
		appLogger.Fatal("Failed to initialize blob storage", zap.String("backend", cfg.StorageBackend), zap.Error(err))
	}

	// 6. NATS
	natsPublisher, err := natsAdapter.NewPublisher(cfg.NATSURL, appLogger, serviceName)
	if err != nil {
		appLogger.Fatal("Failed to initialize NATS publisher", zap.Error(err))
	}
	defer natsPublisher.Close()

	// 7. Mail
	var notifier domain.Notifier = mailer.NopMailer{}
	if cfg.MailEnabled() {
		notifier = mailer.NewSMTPMailer(mailer.Config{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Email:    cfg.SMTPEmail,
			Password: cfg.SMTPPassword,
		})
	}

	// 8. Identity
	verifier, err := newVerifier(ctx, cfg)
	if err != nil {
		appLogger.Fatal("Failed to initialize token verifier", zap.String("provider", cfg.AuthProvider), zap.Error(err))
	}
	authenticator := auth.NewAuthenticator(verifier, revocations, appLogger)

	// 9. Usecases
	validator := usecase.NewDraftValidator()
	listingUC := usecase.NewListingUsecase(usecase.ListingDeps{
		Repo:      listingRepo,
		Drafts:    draftStore,
		Storage:   storage,
		Cache:     listingCache,
		Events:    natsPublisher,
		Notifier:  notifier,
		Validator: validator,
		Metrics:   metricsManager,
	}, appLogger)
	draftUC := usecase.NewDraftUsecase(draftStore, storage, validator, appLogger)
	imageUC := usecase.NewImageUsecase(storage, draftStore, metricsManager, appLogger, cfg.PreviewTTL)

	// 10. HTTP
	handler := rest.NewHandler(listingUC, draftUC, imageUC, authenticator, cfg.MaxUploadBytes, appLogger)
	router := rest.NewRouter(rest.RouterDeps{
		Handler:       handler,
		Authenticator: authenticator,
		Metrics:       metricsManager,
		Logger:        appLogger,
		ServiceName:   serviceName,
	})
	srv, shutdownHTTP := rest.NewServer(":"+cfg.HTTPPort, router, appLogger)

	go func() {
		appLogger.Info("Starting HTTP server", zap.String("port", cfg.HTTPPort))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLogger.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	go func() {
		if err := metrics.StartMetricsServer(cfg.MetricsPort, appLogger, metricsManager); err != nil {
			appLogger.Error("Prometheus metrics server failed", zap.Error(err))
		}
	}()

	// 11. gRPC health checks
	var healthSrv *grpcAdapter.HealthServer
	if cfg.GRPCHealthPort != "" {
		lis, err := net.Listen("tcp", ":"+cfg.GRPCHealthPort)
		if err != nil {
			appLogger.Fatal("Failed to listen for gRPC health", zap.String("port", cfg.GRPCHealthPort), zap.Error(err))
		}
		healthSrv = grpcAdapter.NewHealthServer(serviceName, appLogger)
		go func() {
			if err := healthSrv.Serve(lis); err != nil {
				appLogger.Error("gRPC health server failed", zap.Error(err))
			}
		}()
	}

	// 12. Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	appLogger.Info("Received shutdown signal", zap.String("signal", sig.String()))

	if healthSrv != nil {
		healthSrv.Stop()
	}
	shutdownHTTP()
	appLogger.Info("Application shutting down...")
}

func newStorage(ctx context.Context, cfg *config.Config, log *logger.Logger) (domain.Storage, error) {
	switch cfg.StorageBackend {
	case "s3":
		return awss3.NewStorage(ctx, awss3.Config{
			Region:        cfg.S3Region,
			Bucket:        cfg.S3Bucket,
			AccessKey:     cfg.S3AccessKey,
			SecretKey:     cfg.S3SecretKey,
			Endpoint:      cfg.S3Endpoint,
			PublicBaseURL: cfg.PublicBaseURL,
		}, log)
	default:
		s, err := minioStorage.NewStorage(minioStorage.Config{
			Endpoint:      cfg.MinIOEndpoint,
			AccessKey:     cfg.MinIOAccessKey,
			SecretKey:     cfg.MinIOSecretKey,
			Bucket:        cfg.MinIOBucket,
			UseSSL:        cfg.MinIOUseSSL,
			PublicBaseURL: cfg.PublicBaseURL,
			PublicRead:    cfg.MinIOPublicRead,
		}, log)
		if err != nil {
			return nil, err
		}
		if err := s.EnsureBucket(ctx); err != nil {
			return nil, err
		}
		return s, nil
	}
}

func newVerifier(ctx context.Context, cfg *config.Config) (auth.Verifier, error) {
	if cfg.AuthProvider == "firebase" {
		return auth.NewFirebaseVerifier(ctx, cfg.FirebaseCredentialsPath)
	}
	return auth.NewJWTVerifier(cfg.JWTSecret), nil
}
