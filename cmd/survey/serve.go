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

	"github.com/Bossnicks/tone-survey/config"
	"github.com/Bossnicks/tone-survey/internal/backup"
	"github.com/Bossnicks/tone-survey/internal/catalog"
	"github.com/Bossnicks/tone-survey/internal/responselog"
	"github.com/Bossnicks/tone-survey/internal/survey"
	"github.com/Bossnicks/tone-survey/pkg/auth"
	"github.com/Bossnicks/tone-survey/pkg/database"
	"github.com/Bossnicks/tone-survey/pkg/storage"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Запустить HTTP-сервер анкеты",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("некорректная конфигурация: %w", err)
	}
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cat, err := newCatalog(cfg, logger)
	if err != nil {
		return err
	}

	admin, err := auth.NewAdminSecret(cfg.AdminSecretHash)
	if err != nil {
		return err
	}

	var sink backup.Sink = backup.Nop{}
	if cfg.BackupDatabaseURL != "" {
		db, err := database.Connect(ctx, cfg.BackupDatabaseURL)
		if err != nil {
			return err
		}
		defer db.Close()
		pg := backup.NewPostgresSink(db)
		if err := pg.EnsureSchema(ctx); err != nil {
			return err
		}
		sink = pg
		logger.Info("резервная копия ответов включена")
	}

	responses := responselog.New(cfg.ResponseLogPath, cfg.PreSurveyColumns)
	service := survey.NewService(survey.Deps{
		Catalog:       cat,
		Log:           responses,
		Backup:        sink,
		Admin:         admin,
		Repo:          survey.NewRepository(cfg.SessionTTL),
		Logger:        logger,
		BackupTimeout: cfg.BackupTimeout,
	})
	handler := survey.NewHandler(service, auth.NewTokens(cfg.JWTSecret, cfg.SessionTTL), logger)

	e := newServer(logger)
	handler.Register(e)

	errCh := make(chan error, 1)
	go func() {
		logger.Info("запуск сервера анкеты", zap.String("addr", cfg.Addr), zap.String("log", cfg.ResponseLogPath))
		if err := e.Start(cfg.Addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return e.Shutdown(shutdownCtx)
}

func newServer(logger *zap.Logger) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogURI:      true,
		LogMethod:   true,
		LogStatus:   true,
		LogLatency:  true,
		LogRemoteIP: true,
		LogError:    true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			fields := []zap.Field{
				zap.String("method", v.Method),
				zap.String("uri", v.URI),
				zap.Int("status", v.Status),
				zap.Duration("latency", v.Latency),
				zap.String("remote_ip", v.RemoteIP),
			}
			if v.Error != nil {
				logger.Error("запрос", append(fields, zap.Error(v.Error))...)
				return nil
			}
			logger.Info("запрос", fields...)
			return nil
		},
	}))
	return e
}

func newCatalog(cfg *config.Config, logger *zap.Logger) (catalog.Catalog, error) {
	switch cfg.StimuliSource {
	case config.SourceMinio:
		store, err := storage.NewMinioStorage(cfg.MinioEndpoint, cfg.MinioAccessKey, cfg.MinioSecretKey, cfg.BucketName, cfg.MinioUseSSL)
		if err != nil {
			return nil, err
		}
		return catalog.NewMinioCatalog(store, cfg.MinioPrefix, cfg.StimuliExtensions, logger), nil
	default:
		return catalog.NewDirCatalog(cfg.StimuliDir, cfg.StimuliExtensions, logger), nil
	}
}
