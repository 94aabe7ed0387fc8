package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awscfg "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"userhub/internal/config"
	apphttp "userhub/internal/http"
	"userhub/internal/repository/sqlite"
	"userhub/internal/service"
	"userhub/internal/storage"
)

func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("load config: %v", err)
	}

	if strings.TrimSpace(cfg.Auth.JWTSecret) == "" {
		logger.Fatalf("auth jwt secret is required")
	}
	if strings.TrimSpace(cfg.Auth.AdminPassword) == "" {
		logger.Fatalf("auth admin password is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := sqlite.Open(cfg.Database.Path)
	if err != nil {
		logger.Fatalf("open database: %v", err)
	}
	defer db.Close()

	userRepo := sqlite.NewUserRepository(db)
	snapshotRepo := sqlite.NewSnapshotFileRepository(db)
	topicRepo := sqlite.NewTopicRepository(db)
	componentRepo := sqlite.NewComponentRepository(db)
	interfaceTypeRepo := sqlite.NewInterfaceTypeRepository(db)
	interfaceRepo := sqlite.NewInterfaceRepository(db)
	reportRepo := sqlite.NewReportRepository(db)
	sequenceRepo := sqlite.NewSequenceRepository(db)

	inits := []interface {
		Init(context.Context) error
	}{
		userRepo, snapshotRepo, componentRepo,
		interfaceTypeRepo, interfaceRepo, topicRepo, reportRepo,
	}
	for _, repo := range inits {
		if err := repo.Init(ctx); err != nil {
			logger.Fatalf("init repository: %v", err)
		}
	}

	storageSvc := buildStorage(ctx, cfg, logger)

	userService := service.NewUserService(userRepo)
	authService := service.NewAuthService(
		cfg.Auth.AdminUser,
		cfg.Auth.AdminPassword,
		cfg.Auth.JWTSecret,
		time.Duration(cfg.Auth.TokenTTLMinutes)*time.Minute,
	)
	snapshotService := service.NewSnapshotService(snapshotRepo, topicRepo, storageSvc, storage.UploadOptions{
		Bucket:    cfg.Storage.Bucket,
		KeyPrefix: cfg.Storage.KeyPrefix,
	}, logger)
	topicService := service.NewTopicService(topicRepo)
	catalogService := service.NewCatalogService(componentRepo, interfaceTypeRepo, interfaceRepo)
	reportService := service.NewReportService(reportRepo, topicRepo, sequenceRepo)

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	handler := apphttp.NewHandler(
		userService,
		authService,
		snapshotService,
		topicService,
		catalogService,
		reportService,
		storageSvc,
		cfg.Storage.Bucket,
		logger,
		cfg.AllowedOrigins(),
	)
	handler.RegisterRoutes(router)
	registerStatic(router, cfg.Web.Dir, logger)

	srv := &http.Server{
		Addr:    cfg.Server.Addr,
		Handler: router,
	}

	go func() {
		logger.Infof("listening on %s", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("http server: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warnf("http shutdown: %v", err)
	}

	logger.Info("bye")
}

func registerStatic(router *gin.Engine, dir string, logger *logrus.Logger) {
	index := filepath.Join(dir, "index.html")
	if _, err := os.Stat(index); err != nil {
		logger.Warnf("web assets not found in %s, dashboard disabled", dir)
		return
	}

	router.StaticFile("/", index)
	router.Static("/css", filepath.Join(dir, "css"))
	router.Static("/js", filepath.Join(dir, "js"))
}

// buildStorage returns nil when no bucket is configured; snapshot
// payloads are then kept only in the database.
func buildStorage(ctx context.Context, cfg config.Config, logger *logrus.Logger) storage.Service {
	if cfg.Storage.Bucket == "" {
		logger.Info("no storage bucket configured, snapshot archiving disabled")
		return nil
	}

	loadOpts := []func(*awscfg.LoadOptions) error{
		awscfg.WithRegion(cfg.Storage.Region),
	}
	if cfg.AWS.Profile != "" {
		loadOpts = append(loadOpts, awscfg.WithSharedConfigProfile(cfg.AWS.Profile))
	}

	awsCfg, err := awscfg.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		logger.Warnf("load aws config: %v, snapshot archiving disabled", err)
		return nil
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Storage.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Storage.Endpoint)
			o.UsePathStyle = true
		}
	})
	logger.Infof("using s3 bucket %s (region %s)", cfg.Storage.Bucket, cfg.Storage.Region)
	return storage.NewS3Service(client)
}
