package scheduler

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/go-co-op/gocron"

	"github.com/example/readdaily/pkg/models"
)

// Default job settings
const (
	DefaultNotificationTime = "09:00"
	DefaultPurgeInterval    = time.Minute
)

// Notifier delivers the daily feed to the users it can reach
type Notifier interface {
	Reaches(userID string) bool
	SendDailyFeed(ctx context.Context, userID string, articles []models.Article) error
}

// FeedService is the part of the reading service the jobs use
type FeedService interface {
	Users(ctx context.Context) ([]string, error)
	CurrentFeed(ctx context.Context, userID string) ([]models.Article, error)
	PurgeExpiredUndo() int
}

// Config controls when jobs run
type Config struct {
	// NotificationTime is the daily HH:MM at which feeds are announced
	NotificationTime string
	Location         *time.Location
	PurgeInterval    time.Duration
	// Notify disables the daily announcement when false
	Notify bool
}

// Scheduler manages scheduled tasks for the application
type Scheduler struct {
	scheduler *gocron.Scheduler
	svc       FeedService
	notifier  Notifier
	cfg       Config
}

// New creates a new scheduler instance. notifier may be nil, in which case
// only housekeeping jobs run.
func New(svc FeedService, notifier Notifier, cfg Config) *Scheduler {
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	if cfg.NotificationTime == "" {
		cfg.NotificationTime = DefaultNotificationTime
	}
	if cfg.PurgeInterval <= 0 {
		cfg.PurgeInterval = DefaultPurgeInterval
	}
	return &Scheduler{
		scheduler: gocron.NewScheduler(cfg.Location),
		svc:       svc,
		notifier:  notifier,
		cfg:       cfg,
	}
}

// Start begins running all scheduled tasks
func (s *Scheduler) Start() error {
	if s.cfg.Notify && s.notifier != nil {
		_, err := s.scheduler.Every(1).Day().At(s.cfg.NotificationTime).Do(func() {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
			defer cancel()
			s.SendDailyFeeds(ctx)
		})
		if err != nil {
			return fmt.Errorf("failed to schedule daily notification: %w", err)
		}
		log.Printf("Daily feed notification scheduled at %s (%s)", s.cfg.NotificationTime, s.cfg.Location)
	}

	_, err := s.scheduler.Every(s.cfg.PurgeInterval).Do(func() {
		if n := s.svc.PurgeExpiredUndo(); n > 0 {
			log.Printf("Purged %d expired undo windows", n)
		}
	})
	if err != nil {
		return fmt.Errorf("failed to schedule undo purge: %w", err)
	}

	// Start the scheduler in a non-blocking manner
	s.scheduler.StartAsync()
	return nil
}

// Stop terminates all scheduled tasks
func (s *Scheduler) Stop() {
	s.scheduler.Stop()
}

// JobCount reports how many jobs are registered
func (s *Scheduler) JobCount() int {
	return len(s.scheduler.Jobs())
}

// SendDailyFeeds announces the day's articles to every reachable user.
// Feeds are not rotated here; users whose feed is stale get a plain
// announcement and rotate when they ask for today's articles.
func (s *Scheduler) SendDailyFeeds(ctx context.Context) int {
	if s.notifier == nil {
		return 0
	}
	users, err := s.svc.Users(ctx)
	if err != nil {
		log.Printf("Error listing users for notification: %v", err)
		return 0
	}

	sent := 0
	for _, userID := range users {
		if ctx.Err() != nil {
			break
		}
		if !s.notifier.Reaches(userID) {
			continue
		}
		if err := s.RunManualCheck(ctx, userID); err != nil {
			log.Printf("Error sending daily feed to %s: %v", userID, err)
			continue
		}
		sent++
	}
	log.Printf("Daily feed sent to %d users", sent)
	return sent
}

// RunManualCheck forces the daily announcement for a specific user
func (s *Scheduler) RunManualCheck(ctx context.Context, userID string) error {
	if s.notifier == nil {
		return fmt.Errorf("no notifier configured")
	}
	articles, err := s.svc.CurrentFeed(ctx, userID)
	if err != nil {
		return err
	}
	return s.notifier.SendDailyFeed(ctx, userID, articles)
}
