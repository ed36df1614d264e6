// Package followup schedules, triggers, and sweeps delayed check-in messages
// for chat sessions.
package followup

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/carecover/carecover/internal/models"
	"github.com/carecover/carecover/internal/scheduler"
	"github.com/carecover/carecover/internal/store"
)

// Interval between sweeps of due follow-ups.
const sweepInterval = time.Minute

// retentionPeriod is how long triggered follow-ups are kept before cleanup.
// Untriggered entries are kept regardless of age.
const retentionPeriod = 7 * 24 * time.Hour

// Notifier delivers a follow-up message to the session owner.
type Notifier interface {
	Notify(ctx context.Context, sessionID, message string) error
}

// Opts holds the dependencies and knobs for a Service.
type Opts struct {
	Notifier Notifier
	Now      func() time.Time
}

// Option configures a Service.
type Option func(*Opts)

// WithNotifier wires delivery of triggered follow-ups. Without one, triggers
// only flip the stored flag.
func WithNotifier(n Notifier) Option {
	return func(o *Opts) { o.Notifier = n }
}

// WithNow overrides the clock, for tests.
func WithNow(now func() time.Time) Option {
	return func(o *Opts) { o.Now = now }
}

// Service manages follow-up schedules on top of the store.
type Service struct {
	store store.Store
	opts  Opts
	sched *scheduler.Scheduler
}

// NewService creates a follow-up service over the given store.
func NewService(st store.Store, opts ...Option) *Service {
	o := Opts{Now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	return &Service{store: st, opts: o}
}

// Schedule books a follow-up for the session after the given delay and
// returns its ID.
func (s *Service) Schedule(ctx context.Context, sessionID string, delay time.Duration, message string) (string, error) {
	slog.Debug("Service Schedule", "sessionID", sessionID, "delay", delay)
	if sessionID == "" {
		return "", models.ErrEmptySessionID
	}
	if delay <= 0 {
		return "", models.ErrInvalidDelay
	}

	now := s.opts.Now()
	fu := models.FollowUpSchedule{
		ID:            "followup-" + uuid.NewString(),
		SessionID:     sessionID,
		ScheduledTime: now.Add(delay),
		Message:       message,
		CreatedAt:     now,
	}
	if err := s.store.AddFollowUp(fu); err != nil {
		slog.Error("Service Schedule failed", "error", err, "sessionID", sessionID)
		return "", fmt.Errorf("failed to schedule follow-up: %w", err)
	}
	slog.Info("Follow-up scheduled", "id", fu.ID, "sessionID", sessionID, "scheduledTime", fu.ScheduledTime)
	return fu.ID, nil
}

// Cancel removes a pending follow-up outright.
func (s *Service) Cancel(id string) error {
	slog.Debug("Service Cancel", "id", id)
	return s.store.DeleteFollowUp(id)
}

// Trigger marks the follow-up triggered and delivers its message. The
// triggered flag is one-way.
func (s *Service) Trigger(ctx context.Context, id string) error {
	fu, err := s.store.GetFollowUp(id)
	if err != nil {
		return err
	}
	if fu.Triggered {
		slog.Debug("Service Trigger already triggered", "id", id)
		return nil
	}

	if err := s.store.MarkFollowUpTriggered(id); err != nil {
		slog.Error("Service Trigger mark failed", "error", err, "id", id)
		return fmt.Errorf("failed to mark follow-up triggered: %w", err)
	}

	if s.opts.Notifier != nil {
		if err := s.opts.Notifier.Notify(ctx, fu.SessionID, fu.Message); err != nil {
			slog.Error("Service Trigger notify failed", "error", err, "id", id, "sessionID", fu.SessionID)
			return fmt.Errorf("failed to deliver follow-up: %w", err)
		}
	}
	slog.Info("Follow-up triggered", "id", id, "sessionID", fu.SessionID)
	return nil
}

// Pending lists the session's untriggered follow-ups.
func (s *Service) Pending(sessionID string) ([]models.FollowUpSchedule, error) {
	followUps, err := s.store.ListFollowUps(sessionID)
	if err != nil {
		return nil, err
	}
	var pending []models.FollowUpSchedule
	for _, fu := range followUps {
		if !fu.Triggered {
			pending = append(pending, fu)
		}
	}
	return pending, nil
}

// IsDue reports whether the follow-up has reached its scheduled time and has
// not been triggered. Unknown IDs report false.
func (s *Service) IsDue(id string) bool {
	fu, err := s.store.GetFollowUp(id)
	if err != nil {
		return false
	}
	return !fu.Triggered && !s.opts.Now().Before(fu.ScheduledTime)
}

// Sweep triggers every due, untriggered follow-up across all sessions.
func (s *Service) Sweep(ctx context.Context) error {
	followUps, err := s.store.ListFollowUps("")
	if err != nil {
		slog.Error("Service Sweep list failed", "error", err)
		return fmt.Errorf("failed to list follow-ups for sweep: %w", err)
	}

	now := s.opts.Now()
	triggered := 0
	for _, fu := range followUps {
		if fu.Triggered || now.Before(fu.ScheduledTime) {
			continue
		}
		if err := s.Trigger(ctx, fu.ID); err != nil {
			slog.Error("Service Sweep trigger failed", "error", err, "id", fu.ID)
			continue
		}
		triggered++
	}
	if triggered > 0 {
		slog.Info("Follow-up sweep completed", "triggered", triggered, "total", len(followUps))
	}
	return nil
}

// CleanupExpired deletes triggered follow-ups older than the retention
// period. Untriggered entries survive regardless of age.
func (s *Service) CleanupExpired() error {
	followUps, err := s.store.ListFollowUps("")
	if err != nil {
		return fmt.Errorf("failed to list follow-ups for cleanup: %w", err)
	}

	cutoff := s.opts.Now().Add(-retentionPeriod)
	removed := 0
	for _, fu := range followUps {
		if fu.Triggered && fu.CreatedAt.Before(cutoff) {
			if err := s.store.DeleteFollowUp(fu.ID); err != nil {
				slog.Error("Service CleanupExpired delete failed", "error", err, "id", fu.ID)
				continue
			}
			removed++
		}
	}
	if removed > 0 {
		slog.Info("Expired follow-ups removed", "count", removed)
	}
	return nil
}

// Start runs the startup cleanup and begins the recurring sweep. Stop shuts
// the sweep down.
func (s *Service) Start(ctx context.Context) error {
	if err := s.CleanupExpired(); err != nil {
		slog.Warn("Startup follow-up cleanup failed", "error", err)
	}

	s.sched = scheduler.NewScheduler()
	if err := s.sched.AddEvery(sweepInterval, func() {
		if err := s.Sweep(ctx); err != nil {
			slog.Error("Scheduled follow-up sweep failed", "error", err)
		}
	}); err != nil {
		return fmt.Errorf("failed to schedule follow-up sweep: %w", err)
	}
	slog.Info("Follow-up sweep started", "interval", sweepInterval)
	return nil
}

// Stop halts the recurring sweep if it was started.
func (s *Service) Stop() {
	if s.sched != nil {
		s.sched.Stop()
	}
}
