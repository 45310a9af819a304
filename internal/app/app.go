package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"energy_study_backend/internal/config"
	"energy_study_backend/internal/email"
	"energy_study_backend/internal/handlers"
	"energy_study_backend/internal/intake"
	"energy_study_backend/internal/logger"
	"energy_study_backend/internal/middleware"
	"energy_study_backend/internal/repositories"
	"energy_study_backend/internal/routes"
	"energy_study_backend/internal/services"
	"energy_study_backend/internal/storage"
	"energy_study_backend/internal/validator"

	"github.com/gin-gonic/gin"
)

const (
	shutdownTimeout = 15 * time.Second
	indexCacheTTL   = 10 * time.Minute
)

// Application - собранный роутер и ресурсы, которые нужно закрыть
type Application struct {
	Router   *gin.Engine
	Services *services.ServiceContainer
	repos    *repositories.Repositories
}

// Close дожидается фоновых писем и закрывает хранилище записей
func (a *Application) Close() error {
	a.Services.SubmissionService.Wait()
	return a.repos.Close()
}

func Run() {
	config.LoadConfig()
	cfg := config.AppConfig
	logger.Init(cfg.Server.Env)
	logger.Info("Logger initialized", "env", cfg.Server.Env)

	application, err := SetupRouter(cfg)
	if err != nil {
		logger.Fatal("Failed to initialize application", "error", err)
	}

	srv := &http.Server{
		Addr:              cfg.Address(),
		Handler:           application.Router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Info(fmt.Sprintf("Server starting on %s", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Server startup error", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server shutdown error", "error", err)
	}
	if err := application.Close(); err != nil {
		logger.Error("Failed to close repositories", "error", err)
	}
}

// SetupRouter собирает хранилища, сервисы и хэндлеры по конфигурации.
func SetupRouter(cfg *config.Config) (*Application, error) {
	storageInstance, err := storage.NewStorage(storage.Config{
		Type:      cfg.Storage.Type,
		BasePath:  cfg.Storage.BasePath,
		Bucket:    cfg.Storage.Bucket,
		Region:    cfg.Storage.Region,
		AccessKey: cfg.Storage.AccessKey,
		SecretKey: cfg.Storage.SecretKey,
		Endpoint:  cfg.Storage.Endpoint,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}
	logger.Info("Storage initialized", "type", cfg.Storage.Type)

	repos, err := repositories.Open(repositories.Config{
		Type:    cfg.Database.Type,
		DSN:     cfg.Database.DSN,
		DataDir: cfg.Database.DataDir,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open repositories: %w", err)
	}
	logger.Info("Repositories initialized", "type", cfg.Database.Type)

	serviceContainer, err := initializeServices(cfg, repos, storageInstance)
	if err != nil {
		repos.Close()
		return nil, err
	}

	appHandlers := initializeHandlers(cfg, serviceContainer)

	ginRouter := initializeGinRouter(cfg)
	routes.RegisterRoutes(ginRouter, appHandlers)

	return &Application{
		Router:   ginRouter,
		Services: serviceContainer,
		repos:    repos,
	}, nil
}

func initializeServices(cfg *config.Config, repos *repositories.Repositories, storageInstance storage.Storage) (*services.ServiceContainer, error) {
	var emailService email.Provider
	if cfg.Email.Enabled {
		smtpConfig := email.DefaultConfig()
		smtpConfig.Host = cfg.Email.SMTPHost
		smtpConfig.Port = cfg.Email.SMTPPort
		smtpConfig.Username = cfg.Email.SMTPUsername
		smtpConfig.Password = cfg.Email.SMTPPassword
		smtpConfig.FromEmail = cfg.Email.FromEmail
		if cfg.Email.FromName != "" {
			smtpConfig.FromName = cfg.Email.FromName
		}

		provider := email.NewSMTPProvider(smtpConfig, email.NewTemplateManager())
		if err := provider.Validate(); err != nil {
			return nil, fmt.Errorf("invalid email configuration: %w", err)
		}
		emailService = provider
		logger.Info("Receipt emails enabled", "smtp_host", smtpConfig.Host)
	} else {
		emailService = email.NewNoopProvider()
	}

	fileIndexStore, err := intake.NewFileIndexStore(filepath.Join(cfg.Database.DataDir, "hash_index"))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize hash index store: %w", err)
	}
	indexStore := intake.NewCachedIndexStore(fileIndexStore, indexCacheTTL)

	submissionService, err := services.NewSubmissionService(
		repos.Submissions,
		repos.Followups,
		storageInstance,
		indexStore,
		emailService,
		services.SubmissionConfig{
			MaxFiles:              cfg.Upload.MaxFiles,
			MaxParticipantStorage: cfg.Upload.MaxParticipantStorage,
			AllowedExtensions:     cfg.Upload.AllowedExtensions,
			AllowedTypes:          cfg.Upload.AllowedTypes,
			SendReceipts:          cfg.Email.Enabled,
		},
	)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize submission service: %w", err)
	}

	return &services.ServiceContainer{
		SubmissionService: submissionService,
		EmailService:      emailService,
		Storage:           storageInstance,
	}, nil
}

func initializeHandlers(cfg *config.Config, services *services.ServiceContainer) *handlers.AppHandlers {
	customValidator := validator.New()
	baseHandler := handlers.NewBaseHandler(customValidator, cfg.Server.MaxRequestSize)

	return &handlers.AppHandlers{
		SubmissionHandler: handlers.NewSubmissionHandler(baseHandler, services.SubmissionService),
		PageHandler:       handlers.NewPageHandler(cfg.Server.LandingPage),
	}
}

func initializeGinRouter(cfg *config.Config) *gin.Engine {
	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.LoggingMiddleware())
	router.Use(middleware.CORSMiddleware(cfg.Server.CORSOrigins))
	router.Use(middleware.BodyLimitMiddleware(cfg.Server.MaxRequestSize))
	return router
}
