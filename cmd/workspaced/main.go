// cmd/workspaced/main.go
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"agency-workspace/internal/audit"
	"agency-workspace/internal/backend"
	"agency-workspace/internal/common/config"
	"agency-workspace/internal/common/database"
	"agency-workspace/internal/common/logger"
	"agency-workspace/internal/common/observability"
	"agency-workspace/internal/httpserver"
	"agency-workspace/internal/notify"
	"agency-workspace/internal/workspace"
)

// retryWithBackoff attempts to execute a function with exponential backoff
func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log *zap.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName),
				zap.Error(err),
				zap.Int("attempt", i+1),
				zap.Int("maxRetries", maxRetries),
				zap.Duration("nextRetryIn", delay),
			)
			time.Sleep(delay)
			delay *= 2 // Exponential backoff
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

func main() {
	zapLog := logger.New("info", "console")
	defer zapLog.Sync()

	// Wrap zap logger with our logger interface
	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting workspace daemon...")

	cfg, err := config.Load()
	if err != nil {
		zapLog.Fatal("config load failed", zap.Error(err))
	}

	obs := observability.New("workspaced")
	defer obs.Shutdown()

	ctx := context.Background()

	// --- Init PostgreSQL with retry ---
	var pg *database.PostgresClient
	err = retryWithBackoff(func() error {
		var err error
		pg, err = database.NewPostgres(cfg.Database.Postgres)
		if err != nil {
			return err
		}
		return pg.Ping(ctx)
	}, 15, 2*time.Second, zapLog, "PostgreSQL connection")

	var journal *audit.Journal
	if err != nil {
		// The journal is supporting infrastructure; the workspace still
		// serves records without it.
		zapLog.Warn("postgres unavailable, mutation journal disabled", zap.Error(err))
	} else {
		defer pg.Close()
		journal = audit.NewJournal(pg, log)
		if err := journal.EnsureSchema(ctx); err != nil {
			zapLog.Warn("journal schema setup failed, journal disabled", zap.Error(err))
			journal = nil
		} else {
			zapLog.Info("PostgreSQL connected successfully")
		}
	}

	// --- Init Redis with retry ---
	var redisClient *database.RedisClient
	err = retryWithBackoff(func() error {
		var err error
		redisClient, err = database.NewRedis(cfg.Database.Redis)
		if err != nil {
			return err
		}
		return redisClient.Ping(ctx)
	}, 10, 2*time.Second, zapLog, "Redis connection")

	var cache *workspace.SnapshotCache
	if err != nil {
		zapLog.Warn("redis unavailable, snapshot cache disabled", zap.Error(err))
	} else {
		defer redisClient.Close()
		cache = workspace.NewSnapshotCache(redisClient, time.Duration(cfg.Workspace.SnapshotTTL)*time.Second)
		zapLog.Info("Redis connected successfully")
	}

	// --- Build workspace ---
	session := backend.NewSession(cfg.Backend.Token, cfg.Backend.Organization, cfg.Backend.Branch)
	client := backend.NewClient(cfg.Backend.BaseURL, time.Duration(cfg.Backend.Timeout)*time.Millisecond)

	var journalSink workspace.Journal
	if journal != nil {
		journalSink = journal
	}

	ws := workspace.New(workspace.Options{
		API:     client,
		Session: session,
		Cache:   cache,
		Journal: journalSink,
		Logger:  log,
	})

	if err := ws.Refresh(ctx); err != nil {
		zapLog.Warn("initial refresh failed, starting empty", zap.Error(err))
	}

	// --- Digest sender ---
	var digest *notify.Digest
	if cfg.Notifications.Email.Enabled || cfg.Notifications.SMS.Enabled {
		digest, err = notify.NewDigest(cfg.Notifications, log)
		if err != nil {
			zapLog.Warn("digest sender setup failed, digest disabled", zap.Error(err))
			digest = nil
		}
	}

	// --- HTTP server ---
	server := httpserver.New(cfg.HTTP.Address, log, ws, journal)
	go func() {
		if err := server.Start(); err != nil {
			zapLog.Fatal("http server failed", zap.Error(err))
		}
	}()

	// --- Background loops ---
	loopCtx, cancelLoops := context.WithCancel(ctx)
	defer cancelLoops()

	go refreshLoop(loopCtx, ws, obs, time.Duration(cfg.Workspace.RefreshInterval)*time.Second, log)
	if digest != nil {
		go digestLoop(loopCtx, ws, digest, cfg.Workspace.DigestHour, log)
	}

	zapLog.Info("Workspace daemon running",
		zap.String("httpAddress", cfg.HTTP.Address),
		zap.Int("refreshIntervalSeconds", cfg.Workspace.RefreshInterval),
	)

	// --- Graceful shutdown ---
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	zapLog.Info("Shutdown signal received, stopping...")
	cancelLoops()

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("http server shutdown failed", zap.Error(err))
	}

	session.Clear()
	zapLog.Info("Workspace daemon stopped")
}

// refreshLoop refetches the record collection on a fixed interval.
func refreshLoop(ctx context.Context, ws *workspace.Workspace, obs *observability.Observability, interval time.Duration, log logger.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			start := time.Now()
			status := "ok"
			if err := ws.Refresh(ctx); err != nil {
				status = "error"
				log.Warn("scheduled refresh failed", map[string]interface{}{
					"error": err.Error(),
				})
			}
			obs.RecordRefresh(ctx, status)
			obs.RecordRefreshDuration(ctx, time.Since(start), status)
		}
	}
}

// digestLoop fires the overdue digest once per day at the configured hour.
func digestLoop(ctx context.Context, ws *workspace.Workspace, digest *notify.Digest, hour int, log logger.Logger) {
	for {
		next := nextDigestTime(time.Now(), hour)
		select {
		case <-ctx.Done():
			return
		case <-time.After(time.Until(next)):
			items := ws.OverdueFollowUps()
			if err := digest.Send(ctx, items); err != nil {
				log.Warn("digest delivery failed", map[string]interface{}{
					"error": err.Error(),
				})
			}
		}
	}
}

func nextDigestTime(now time.Time, hour int) time.Time {
	next := time.Date(now.Year(), now.Month(), now.Day(), hour, 0, 0, 0, now.Location())
	if !next.After(now) {
		next = next.Add(24 * time.Hour)
	}
	return next
}
