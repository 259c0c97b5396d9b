package cmd

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/jmoiron/sqlx"

	"github.com/example/readdaily/internal/catalog"
	"github.com/example/readdaily/internal/config"
	"github.com/example/readdaily/internal/database"
	"github.com/example/readdaily/internal/dictionary"
	"github.com/example/readdaily/internal/feed"
	"github.com/example/readdaily/internal/reading"
	"github.com/example/readdaily/internal/scheduler"
	"github.com/example/readdaily/internal/userlock"
)

// app holds the wired services shared by the commands
type app struct {
	cfg     *config.Config
	db      *sqlx.DB
	catalog *catalog.Catalog
	svc     *reading.Service
	dict    *dictionary.Client
	redis   *userlock.RedisLocker
}

func newApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load(flagConfig)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	src, err := catalogSource(ctx, cfg)
	if err != nil {
		return nil, err
	}

	db, err := database.Connect(database.Config{
		Type:       cfg.DBType,
		URL:        cfg.DatabaseURL,
		SQLitePath: cfg.SQLitePath,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	a := &app{
		cfg:     cfg,
		db:      db,
		catalog: catalog.New(src),
		dict:    dictionary.New(cfg.DictionaryBaseURL),
	}

	var locker userlock.Locker = userlock.NewKeyedMutex()
	if cfg.RedisURL != "" {
		a.redis, err = userlock.NewRedisLocker(ctx, cfg.RedisURL)
		if err != nil {
			db.Close()
			return nil, err
		}
		locker = a.redis
		log.Println("Using Redis for per-user locks")
	}

	// Validated by config.Load
	loc, _ := cfg.Location()
	undo, _ := cfg.UndoDuration()

	rotator := feed.NewRotator()
	rotator.DailyCount = cfg.DailyCount
	rotator.Location = loc

	a.svc = reading.NewService(database.NewUserProgressRepository(db), a.catalog, reading.Options{
		Rotator:    rotator,
		Locker:     locker,
		UndoWindow: undo,
	})
	return a, nil
}

func catalogSource(ctx context.Context, cfg *config.Config) (catalog.Source, error) {
	switch {
	case cfg.CatalogS3Bucket != "":
		src, err := catalog.NewS3Source(ctx, cfg.CatalogS3Bucket, cfg.CatalogS3Key, catalog.S3Config{Region: cfg.AWSRegion})
		if err != nil {
			return nil, fmt.Errorf("configuring S3 catalog: %w", err)
		}
		return src, nil
	case cfg.CatalogPath != "":
		return catalog.FileSource{Path: cfg.CatalogPath}, nil
	default:
		return catalog.EmbeddedSource{}, nil
	}
}

// newScheduler returns nil when scheduling is disabled
func (a *app) newScheduler(notifier scheduler.Notifier) *scheduler.Scheduler {
	if !a.cfg.EnableScheduler {
		return nil
	}
	loc, _ := a.cfg.Location()
	return scheduler.New(a.svc, notifier, scheduler.Config{
		NotificationTime: a.cfg.NotificationTime(),
		Location:         loc,
		Notify:           notifier != nil,
	})
}

func (a *app) Close() {
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			log.Printf("Error closing redis: %v", err)
		}
	}
	if err := a.db.Close(); err != nil {
		log.Printf("Error closing database: %v", err)
	}
}

// signalContext is cancelled on SIGINT or SIGTERM
func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		select {
		case sig := <-sigChan:
			log.Printf("Received signal: %v", sig)
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(sigChan)
	}()
	return ctx, cancel
}
