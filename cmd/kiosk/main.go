package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/xelth-com/eckpunchgo/internal/backup"
	"github.com/xelth-com/eckpunchgo/internal/capture"
	"github.com/xelth-com/eckpunchgo/internal/config"
	"github.com/xelth-com/eckpunchgo/internal/database"
	"github.com/xelth-com/eckpunchgo/internal/export"
	"github.com/xelth-com/eckpunchgo/internal/handlers"
	"github.com/xelth-com/eckpunchgo/internal/kiosk"
	"github.com/xelth-com/eckpunchgo/internal/ledger"
	"github.com/xelth-com/eckpunchgo/internal/logger"
	"github.com/xelth-com/eckpunchgo/internal/services/odoo"
	"github.com/xelth-com/eckpunchgo/internal/websocket"
	"go.uber.org/zap"
)

func main() {
	// 1. Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	zl, err := logger.New(cfg.Log.Level, cfg.Log.Format, "eckpunch-kiosk")
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer zl.Sync()

	// 2. Open the ledger (schema migration + integrity self-test)
	store, err := ledger.Open(ledger.Options{
		DB: database.Options{
			Path:        cfg.Store.Path,
			BusyTimeout: cfg.Store.BusyTimeout,
			Debug:       cfg.Log.Level == "debug",
		},
		Location: cfg.Store.Location,
		DeviceID: cfg.Store.DeviceID,
	}, zl)
	if err != nil {
		zl.Fatal("Failed to open store", zap.Error(err))
	}
	if store.Degraded() {
		zl.Warn("Store failed its integrity self-test, running degraded")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 3. Derived outputs: JSON mirror and live dashboard feed
	mirror := backup.NewMirror(store, cfg.Store.MirrorPath, zl)
	go mirror.Run(ctx)
	mirror.Notify()

	hub := websocket.NewHub(zl)
	go hub.Run(ctx)

	store.OnChange(func(c ledger.Change) {
		mirror.Notify()
		hub.PublishChange(c)
	})

	// 4. Capture loop feeding the terminal
	terminal := kiosk.NewTerminal(store, cfg.Kiosk.RejectUnknown, zl)
	sources := capture.Multi{&capture.MarkerFile{Path: cfg.Capture.MarkerPath}}
	if cfg.Capture.Stdin {
		keys := capture.NewKeystrokes(0)
		sources = append(sources, keys)
		go func() {
			if err := keys.Pump(os.Stdin); err != nil {
				zl.Warn("Keyboard wedge input closed", zap.Error(err))
			}
		}()
	}
	loop := capture.NewLoop(sources, terminal.HandleScan, capture.Options{
		PollInterval: cfg.Capture.PollInterval,
		Cooldown:     cfg.Capture.Cooldown,
		MaxRuntime:   cfg.Capture.MaxRuntime,
	}, zl)
	loop.Start()
	// Each max-runtime expiry ends one session; the supervisor opens the next.
	go superviseCapture(ctx, loop, zl)

	// 5. Backups, with an optional offsite copy
	var uploader backup.Uploader
	if cfg.Backup.S3Bucket != "" {
		s3u, err := backup.NewS3Uploader(ctx, cfg.Backup.S3Bucket, cfg.Backup.S3Prefix)
		if err != nil {
			zl.Warn("S3 upload disabled", zap.Error(err))
		} else {
			uploader = s3u
		}
	}
	backups := backup.NewManager(store, mirror, cfg.Backup.Dir, cfg.Backup.RetentionDays, uploader, zl)
	scheduler := backup.NewScheduler(backups, cfg.Backup.Interval, zl)
	scheduler.Start()

	// 6. Odoo HR sync (no-op without ODOO_URL)
	odooService := odoo.NewSyncService(store, odoo.Config{
		URL:          cfg.Odoo.URL,
		Database:     cfg.Odoo.Database,
		Username:     cfg.Odoo.Username,
		Password:     cfg.Odoo.Password,
		SyncInterval: cfg.Odoo.SyncInterval,
	}, zl)
	odooService.Start()

	// 7. Operator API
	var server *http.Server
	if cfg.Server.Enabled() {
		router := handlers.NewRouter(handlers.Deps{
			Store:    store,
			Terminal: terminal,
			Exporter: export.New(store, cfg.Export.Dir, zl),
			Backup:   backups,
			Hub:      hub,
			Odoo:     odooService,
			Auth: handlers.AuthConfig{
				JWTSecret:         cfg.Server.JWTSecret,
				AdminUsername:     cfg.Server.AdminUsername,
				AdminPasswordHash: cfg.Server.AdminPasswordHash,
			},
		}, zl)
		server = &http.Server{
			Addr:              ":" + cfg.Server.Port,
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
		}
		go func() {
			zl.Info("Operator API starting", zap.String("port", cfg.Server.Port))
			if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				zl.Fatal("Failed to start server", zap.Error(err))
			}
		}()
	} else {
		zl.Info("Operator API disabled: JWT_SECRET not configured")
	}

	zl.Info("Kiosk ready",
		zap.String("device_id", cfg.Store.DeviceID),
		zap.String("location", cfg.Store.Location),
		zap.String("store", store.Path()),
	)

	// Wait for shutdown signal
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)
	sig := <-shutdown
	zl.Info("Shutting down", zap.String("signal", sig.String()))

	cancel()
	loop.Stop()
	scheduler.Stop()
	odooService.Stop()

	if server != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		if err := server.Shutdown(shutdownCtx); err != nil {
			zl.Warn("HTTP server shutdown error", zap.Error(err))
		}
		shutdownCancel()
	}

	// Last mirror before the store closes
	if err := mirror.Refresh(); err != nil {
		zl.Warn("Final mirror refresh failed", zap.Error(err))
	}

	if err := store.Close(); err != nil {
		zl.Warn("Store close error", zap.Error(err))
	}
	zl.Info("Shutdown complete")
}

// superviseCapture restarts the capture loop after its runtime guard stops it
func superviseCapture(ctx context.Context, loop *capture.Loop, zl *zap.Logger) {
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if loop.State() == capture.StateStopped {
				zl.Info("Capture session ended, starting a new one")
				loop.Start()
			}
		}
	}
}
