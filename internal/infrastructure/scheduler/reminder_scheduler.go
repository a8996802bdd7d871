package scheduler

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/agency/backoffice/internal/application/notification"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// ErrSchedulerNotRunning is returned when a manual trigger is requested
// while the scheduler is stopped
var ErrSchedulerNotRunning = errors.New("scheduler is not running")

// defaultRunTimeout bounds a single reminder run
const defaultRunTimeout = 10 * time.Minute

// ReminderRunner is the job surface the scheduler drives once per tick
type ReminderRunner interface {
	SendExpiryReminders(ctx context.Context) (notification.RunResult, error)
	SweepExpiredStatuses(ctx context.Context) (int, error)
}

// ReminderSchedulerConfig holds configuration for the reminder scheduler
type ReminderSchedulerConfig struct {
	// Enabled indicates if the scheduler is started at all
	Enabled bool
	// CronSchedule is a standard five-field cron expression
	CronSchedule string
	// RunTimeout is the maximum time a single run may take
	RunTimeout time.Duration
}

// DefaultReminderSchedulerConfig returns defaults: a daily run at 8:00
func DefaultReminderSchedulerConfig() ReminderSchedulerConfig {
	return ReminderSchedulerConfig{
		Enabled:      true,
		CronSchedule: "0 8 * * *",
		RunTimeout:   defaultRunTimeout,
	}
}

// ReminderScheduler runs the expiry reminder batch and the status sweep
// on a cron schedule
type ReminderScheduler struct {
	config ReminderSchedulerConfig
	runner ReminderRunner
	logger *zap.Logger
	cron   *cron.Cron

	entryID   cron.EntryID
	mu        sync.Mutex
	isRunning bool
	lastRunAt *time.Time
}

// NewReminderScheduler creates a new ReminderScheduler
func NewReminderScheduler(config ReminderSchedulerConfig, runner ReminderRunner, logger *zap.Logger) *ReminderScheduler {
	if config.CronSchedule == "" {
		config.CronSchedule = "0 8 * * *"
	}
	if config.RunTimeout <= 0 {
		config.RunTimeout = defaultRunTimeout
	}
	return &ReminderScheduler{
		config: config,
		runner: runner,
		logger: logger.Named("reminder-scheduler"),
		cron:   cron.New(),
	}
}

// Start registers the cron entry and starts the scheduler. It is a no-op
// when the scheduler is disabled or already running.
func (s *ReminderScheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.config.Enabled {
		s.logger.Info("Reminder scheduler disabled")
		return nil
	}
	if s.isRunning {
		return nil
	}

	entryID, err := s.cron.AddFunc(s.config.CronSchedule, func() {
		s.runOnce(context.Background())
	})
	if err != nil {
		return err
	}
	s.entryID = entryID
	s.cron.Start()
	s.isRunning = true

	s.logger.Info("Reminder scheduler started",
		zap.String("cron_schedule", s.config.CronSchedule),
		zap.Duration("run_timeout", s.config.RunTimeout),
	)
	return nil
}

// Stop stops the scheduler and waits for a running job to finish, up to
// the context deadline
func (s *ReminderScheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = false
	s.mu.Unlock()

	stopped := s.cron.Stop()
	select {
	case <-stopped.Done():
		s.logger.Info("Reminder scheduler stopped")
		return nil
	case <-ctx.Done():
		s.logger.Warn("Reminder scheduler stop timed out")
		return ctx.Err()
	}
}

// TriggerManualRun runs the reminder batch immediately, outside the
// cron schedule. The run executes in the background so an HTTP caller
// is not held for its duration.
func (s *ReminderScheduler) TriggerManualRun() error {
	s.mu.Lock()
	running := s.isRunning
	s.mu.Unlock()
	if !running {
		return ErrSchedulerNotRunning
	}

	go s.runOnce(context.Background())
	return nil
}

// Status returns the current scheduler status
func (s *ReminderScheduler) Status() map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()

	status := map[string]any{
		"enabled":       s.config.Enabled,
		"is_running":    s.isRunning,
		"cron_schedule": s.config.CronSchedule,
		"last_run_at":   s.lastRunAt,
	}
	if s.isRunning {
		next := s.cron.Entry(s.entryID).Next
		status["next_run_at"] = next
	}
	return status
}

// runOnce executes one reminder batch followed by the status sweep
func (s *ReminderScheduler) runOnce(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, s.config.RunTimeout)
	defer cancel()

	now := time.Now()
	s.mu.Lock()
	s.lastRunAt = &now
	s.mu.Unlock()

	result, err := s.runner.SendExpiryReminders(ctx)
	if err != nil {
		s.logger.Error("Expiry reminder run failed", zap.Error(err))
	} else {
		s.logger.Info("Expiry reminder run finished",
			zap.Int("candidates", result.Candidates),
			zap.Int("emails_sent", result.EmailsSent),
			zap.Int("messages", result.Messages),
			zap.Int("failures", result.Failures),
		)
	}

	swept, err := s.runner.SweepExpiredStatuses(ctx)
	if err != nil {
		s.logger.Error("Expiry status sweep failed", zap.Error(err))
		return
	}
	if swept > 0 {
		s.logger.Info("Expiry status sweep finished", zap.Int("swept", swept))
	}
}

// Ensure the reminder service satisfies the runner surface
var _ ReminderRunner = (*notification.ReminderService)(nil)
