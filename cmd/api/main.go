package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"peaksuite/api/internal/app"
	"peaksuite/api/internal/blobpath"
	"peaksuite/api/internal/config"
	"peaksuite/api/internal/directory"
	"peaksuite/api/internal/email"
	"peaksuite/api/internal/export"
	"peaksuite/api/internal/objstore"
	"peaksuite/api/internal/search"
	"peaksuite/api/internal/session"
	"peaksuite/api/internal/store"
	"peaksuite/api/internal/thread"
)

func main() {
	cfg := config.Load()
	ctx := context.Background()

	db, err := store.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("database connection failed: %v", err)
	}
	defer db.Close()

	if err := store.ApplyMigrations(ctx, db, cfg.MigrationsDir); err != nil {
		log.Fatalf("migrations failed: %v", err)
	}

	gateway, err := objstore.NewMinioGateway(ctx, objstore.Config{
		Endpoint:  cfg.StorageEndpoint,
		AccessKey: cfg.StorageAccessKey,
		SecretKey: cfg.StorageSecretKey,
		Bucket:    cfg.StorageBucket,
		UseSSL:    cfg.StorageUseSSL,
	})
	if err != nil {
		log.Fatalf("object storage connection failed: %v", err)
	}

	dataStore := store.NewPostgresStore(db)
	dirService := directory.NewService(directory.NewPostgresRows(db))
	layout := blobpath.NewLayout(cfg.StorageRoot)
	threadRepo := thread.NewRepository(gateway, layout)
	folderIndex := thread.NewIndex(gateway, layout)

	if strings.TrimSpace(cfg.RedisURL) == "" {
		log.Fatalf("REDIS_URL is required for refresh token storage")
	}
	redisStore, err := session.NewRedisStore(cfg.RedisURL)
	if err != nil {
		log.Fatalf("redis connection failed: %v", err)
	}
	defer redisStore.Close()

	service := app.New(cfg, dataStore, dirService, redisStore, threadRepo, folderIndex, layout)

	var meiliClient *search.Meili
	if strings.TrimSpace(cfg.MeiliURL) != "" {
		meiliClient = search.NewMeili(cfg.MeiliURL, cfg.MeiliMasterKey)
		defer meiliClient.Close()
	}
	service.WithSearch(search.NewService(meiliClient, search.NewScan(threadRepo)))

	service.WithExporter(export.NewService(app.ReportExportStore{Store: dataStore}))

	emailService := email.NewService(email.Config{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		Username: cfg.SMTPUsername,
		Password: cfg.SMTPPassword,
		From:     cfg.SMTPFrom,
		FromName: cfg.SMTPFromName,
	})
	if emailService.IsConfigured() {
		service.WithEmail(emailService)
	} else {
		log.Printf("SMTP not configured, share notification emails disabled")
	}

	httpServer := app.NewHTTPServer(service, cfg.CORSOrigin)
	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           httpServer.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Printf("PeakSuite API listening on %s", cfg.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server failed: %v", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown error: %v", err)
	}
}
