package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/joho/godotenv"

	"github.com/noless3011/data-formulator/internal/api"
	"github.com/noless3011/data-formulator/internal/config"
	"github.com/noless3011/data-formulator/internal/db"
	"github.com/noless3011/data-formulator/internal/email"
	"github.com/noless3011/data-formulator/internal/hub"
	"github.com/noless3011/data-formulator/internal/middleware"
	"github.com/noless3011/data-formulator/internal/security"
	"github.com/noless3011/data-formulator/internal/storage"
	"github.com/noless3011/data-formulator/internal/store"
	"github.com/noless3011/data-formulator/internal/worker"
)

func main() {
	_ = godotenv.Load()
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg := config.Load()
	slog.Info("starting data-formulator agent", "env", cfg.AppEnv)

	// Database handler. The library reconnects lazily, but the agent wants
	// connectivity problems to surface at boot.
	handler := db.New(cfg.DBHost, cfg.DBUser, cfg.DBPassword, cfg.DBName, cfg.DBPort)
	if err := handler.Connect(cfg.DatabaseURL); err != nil {
		if errors.Is(err, db.ErrConfiguration) {
			slog.Error("invalid database target", "error", err)
			os.Exit(1)
		}
		slog.Error("database unreachable", "error", err)
		os.Exit(1)
	}
	defer handler.Disconnect()
	slog.Info("database connected", "database", cfg.DBName)

	// Metadata store, only needed when authentication is on.
	st := store.New(handler.Engine())
	if cfg.APISecret != "" {
		if err := st.InitSchema(); err != nil {
			slog.Error("metadata schema init failed", "error", err)
			os.Exit(1)
		}
	}

	provider := buildStorage(cfg)
	sender := buildSender(cfg)

	h := hub.NewHub()

	pool := worker.NewPool(
		cfg.WorkerCount,
		cfg.MaxDBConcurrency,
		handler.Engine(),
		provider,
		sender,
		cfg.Compression,
		cfg.AttachFile,
	)
	pool.OnEvent(func(jobID string, status worker.JobStatus, rows int64) {
		h.Broadcast(hub.JobUpdate{Type: "job_update", JobID: jobID, Status: string(status), Rows: rows})
	})
	pool.Start()
	defer pool.Stop()

	apiHandler := &api.Handler{
		DB:            handler,
		Store:         st,
		Pool:          pool,
		Hub:           h,
		Secret:        cfg.APISecret,
		TokenTTL:      cfg.TokenTTL,
		ValidateReads: cfg.ValidateReadQueries,
		ExportTimeout: cfg.DefaultTimeout,
	}

	mux := http.NewServeMux()
	apiHandler.Routes(mux)

	srv := &http.Server{
		Addr:    ":" + cfg.ServerPort,
		Handler: middleware.CORS(cfg.AllowedOrigins)(mux),
	}

	go func() {
		slog.Info("agent listening", "port", cfg.ServerPort)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server failed", "error", err)
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	slog.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(ctx)
}

// buildStorage selects the artifact destination from config.
func buildStorage(cfg *config.Config) storage.Provider {
	if cfg.StorageType != "s3" {
		return storage.NewLocalProvider(cfg.LocalStoragePath)
	}

	client := s3.New(s3.Options{
		Region:       cfg.AWSRegion,
		UsePathStyle: cfg.S3PathStyle,
		BaseEndpoint: optionalString(cfg.S3Endpoint),
		Credentials: aws.CredentialsProviderFunc(func(ctx context.Context) (aws.Credentials, error) {
			return aws.Credentials{
				AccessKeyID:     os.Getenv("AWS_ACCESS_KEY_ID"),
				SecretAccessKey: os.Getenv("AWS_SECRET_ACCESS_KEY"),
				SessionToken:    os.Getenv("AWS_SESSION_TOKEN"),
			}, nil
		}),
	})
	return storage.NewS3Provider(client, cfg.S3Bucket)
}

func buildSender(cfg *config.Config) email.Sender {
	if cfg.SMTPHost == "" {
		return email.NewLogSender()
	}
	if err := security.ValidateEmail(cfg.SMTPFrom); err != nil {
		slog.Warn("invalid SMTP_FROM address, notifications will be logged only", "from", cfg.SMTPFrom)
		return email.NewLogSender()
	}
	return email.NewSMTPSender(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPassword, cfg.SMTPFrom)
}

func optionalString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
