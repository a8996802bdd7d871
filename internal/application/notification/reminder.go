package notification

import (
	"context"
	"fmt"
	"time"

	"github.com/agency/backoffice/internal/domain/audit"
	"github.com/agency/backoffice/internal/domain/crm"
	"github.com/agency/backoffice/internal/domain/policy"
	"go.uber.org/zap"
)

const auditActor = "reminder-service"

// Config tunes the expiry reminder batch
type Config struct {
	// WindowDays is how far ahead of expiry a reminder is sent
	WindowDays int
	// BatchLimit caps how many instances one run processes
	BatchLimit int
}

// DefaultConfig returns the reminder defaults: a 30 day window, 200
// instances per run
func DefaultConfig() Config {
	return Config{WindowDays: 30, BatchLimit: 200}
}

// RunResult summarizes one reminder batch
type RunResult struct {
	Candidates int
	EmailsSent int
	Messages   int
	Failures   int
}

// ReminderService sends expiry reminders for instances approaching their
// expiry date and sweeps the stored status of instances already past it.
// The batch is sequential: per-instance failures are logged and counted
// but never abort the run.
type ReminderService struct {
	instances policy.InstanceRepository
	clients   crm.ClientRepository
	audits    audit.Repository
	email     EmailSender
	whatsapp  WhatsAppSender
	logger    *zap.Logger
	cfg       Config
	now       func() time.Time
}

// Option configures a ReminderService
type Option func(*ReminderService)

// WithClock overrides the reference clock, for deterministic tests
func WithClock(now func() time.Time) Option {
	return func(s *ReminderService) {
		s.now = now
	}
}

// NewReminderService creates the reminder batch service
func NewReminderService(
	instances policy.InstanceRepository,
	clients crm.ClientRepository,
	audits audit.Repository,
	email EmailSender,
	whatsapp WhatsAppSender,
	logger *zap.Logger,
	cfg Config,
	opts ...Option,
) *ReminderService {
	if cfg.WindowDays <= 0 {
		cfg.WindowDays = DefaultConfig().WindowDays
	}
	if cfg.BatchLimit <= 0 {
		cfg.BatchLimit = DefaultConfig().BatchLimit
	}
	s := &ReminderService{
		instances: instances,
		clients:   clients,
		audits:    audits,
		email:     email,
		whatsapp:  whatsapp,
		logger:    logger,
		cfg:       cfg,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SendExpiryReminders notifies clients whose instances expire within the
// configured window. Each delivered reminder is recorded in the audit log.
func (s *ReminderService) SendExpiryReminders(ctx context.Context) (RunResult, error) {
	pairs, err := s.instances.FindExpiringWithin(ctx, s.cfg.WindowDays, s.cfg.BatchLimit)
	if err != nil {
		s.logger.Error("expiring instance query failed", zap.Error(err))
		return RunResult{}, err
	}

	result := RunResult{Candidates: len(pairs)}
	now := s.now()
	for i := range pairs {
		instance := &pairs[i].Instance
		template := &pairs[i].Template

		client, err := s.clients.FindByID(ctx, instance.ClientID)
		if err != nil {
			s.logger.Warn("reminder skipped, client lookup failed",
				zap.String("instance_id", instance.ID.String()),
				zap.String("client_id", instance.ClientID.String()),
				zap.Error(err),
			)
			result.Failures++
			continue
		}

		days := instance.DaysUntilExpiry(now)
		delivered := false
		if client.Email != "" {
			subject := fmt.Sprintf("Policy %s expires in %d days", template.PolicyNumber, days)
			body := reminderBody(client, template, instance, days)
			if err := s.email.SendEmail(ctx, client.Email, subject, body); err != nil {
				s.logger.Warn("email reminder failed",
					zap.String("instance_id", instance.ID.String()), zap.Error(err))
				result.Failures++
			} else {
				result.EmailsSent++
				delivered = true
			}
		}
		if client.Phone != "" {
			message := fmt.Sprintf("Hi %s, your %s policy %s (%s) expires on %s.",
				client.FullName(), template.Type, template.PolicyNumber, template.Provider,
				instance.ExpiryDate.Format("2006-01-02"))
			if err := s.whatsapp.SendWhatsApp(ctx, client.Phone, message); err != nil {
				s.logger.Warn("whatsapp reminder failed",
					zap.String("instance_id", instance.ID.String()), zap.Error(err))
				result.Failures++
			} else {
				result.Messages++
				delivered = true
			}
		}

		if delivered {
			entry := audit.NewEntry(auditActor, audit.ActionRemind, "policy_instance", instance.ID,
				fmt.Sprintf("expiry reminder for policy %s, %d days left", template.PolicyNumber, days))
			if err := s.audits.Record(ctx, entry); err != nil {
				s.logger.Warn("reminder audit record failed",
					zap.String("instance_id", instance.ID.String()), zap.Error(err))
			}
		}
	}

	s.logger.Info("expiry reminder batch finished",
		zap.Int("candidates", result.Candidates),
		zap.Int("emails", result.EmailsSent),
		zap.Int("messages", result.Messages),
		zap.Int("failures", result.Failures),
	)
	return result, nil
}

// SweepExpiredStatuses marks instances whose expiry date has passed but
// whose stored status still reads ACTIVE. Statistics derive activity from
// the expiry date, so the sweep only keeps the cached status column honest.
func (s *ReminderService) SweepExpiredStatuses(ctx context.Context) (int, error) {
	expired, err := s.instances.FindExpiredWithStatusActive(ctx, s.cfg.BatchLimit)
	if err != nil {
		s.logger.Error("expired instance query failed", zap.Error(err))
		return 0, err
	}

	swept := 0
	for i := range expired {
		instance := &expired[i]
		instance.MarkExpired()
		if err := s.instances.Save(ctx, instance); err != nil {
			s.logger.Warn("status sweep save failed",
				zap.String("instance_id", instance.ID.String()), zap.Error(err))
			continue
		}
		swept++
	}

	if swept > 0 {
		s.logger.Info("expiry status sweep finished", zap.Int("swept", swept))
	}
	return swept, nil
}

func reminderBody(client *crm.Client, template *policy.PolicyTemplate, instance *policy.PolicyInstance, days int) string {
	return fmt.Sprintf(
		"Dear %s,\n\nYour %s policy %s with %s expires on %s (%d days from now). "+
			"Please contact your agent to arrange a renewal.\n",
		client.FullName(), template.Type, template.PolicyNumber, template.Provider,
		instance.ExpiryDate.Format("2006-01-02"), days,
	)
}
