package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/farmops/agrifleet/pkg/api"
	"github.com/farmops/agrifleet/pkg/observability"
)

// TrailCleaner trims the audit trail to its retention window. Satisfied
// by audit.Recorder.
type TrailCleaner interface {
	Cleanup(ctx context.Context, retention time.Duration) (int64, error)
}

// Config holds the cron specs and the retention window for the
// background jobs.
type Config struct {
	// MaintenanceScanSpec schedules the due-maintenance scan.
	MaintenanceScanSpec string
	// LogCleanupSpec schedules the audit-trail trim.
	LogCleanupSpec string
	// LogRetention is how long audit entries are kept.
	LogRetention time.Duration
}

// DefaultConfig scans for due maintenance every morning and trims the
// trail shortly after midnight, keeping 90 days of entries.
func DefaultConfig() Config {
	return Config{
		MaintenanceScanSpec: "0 7 * * *",
		LogCleanupSpec:      "30 0 * * *",
		LogRetention:        90 * 24 * time.Hour,
	}
}

// Scheduler runs the periodic jobs: the due-maintenance scan that turns
// overdue service records into notifications, and the audit-trail trim.
type Scheduler struct {
	config        Config
	cron          *cron.Cron
	maintain      api.MaintainRecordStore
	machinery     api.MachineryStore
	notifications api.NotificationStore
	trail         TrailCleaner
	logger        *observability.Logger
	metrics       *observability.Metrics
}

// New builds the scheduler. trail and metrics may be nil.
func New(config Config, maintain api.MaintainRecordStore, machinery api.MachineryStore, notifications api.NotificationStore, trail TrailCleaner, logger *observability.Logger, metrics *observability.Metrics) *Scheduler {
	return &Scheduler{
		config:        config,
		cron:          cron.New(),
		maintain:      maintain,
		machinery:     machinery,
		notifications: notifications,
		trail:         trail,
		logger:        logger,
		metrics:       metrics,
	}
}

// Start registers the jobs and starts the cron loop.
func (s *Scheduler) Start() error {
	if _, err := s.cron.AddFunc(s.config.MaintenanceScanSpec, func() {
		defer observability.RecoverPanic(s.logger, "maintenance scan")
		if err := s.RunMaintenanceScan(context.Background()); err != nil {
			s.logger.WithError(err).Error("maintenance scan failed")
		}
	}); err != nil {
		return fmt.Errorf("failed to schedule maintenance scan: %w", err)
	}

	if s.trail != nil {
		if _, err := s.cron.AddFunc(s.config.LogCleanupSpec, func() {
			defer observability.RecoverPanic(s.logger, "operate log cleanup")
			if err := s.RunLogCleanup(context.Background()); err != nil {
				s.logger.WithError(err).Error("operate log cleanup failed")
			}
		}); err != nil {
			return fmt.Errorf("failed to schedule log cleanup: %w", err)
		}
	}

	s.cron.Start()
	s.logger.WithField("maintenance_scan", s.config.MaintenanceScanSpec).
		WithField("log_cleanup", s.config.LogCleanupSpec).
		Info("scheduler started")
	return nil
}

// Stop halts the cron loop and waits for running jobs to finish.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}

// RunMaintenanceScan walks the service records that are due and creates
// a reminder notification for each affected machine. A machine whose
// recipient already holds an unread reminder is skipped so reminders
// never stack.
func (s *Scheduler) RunMaintenanceScan(ctx context.Context) error {
	due, err := s.maintain.ListDue(ctx, time.Now())
	if err != nil {
		if s.metrics != nil {
			s.metrics.MaintenanceScanErrorsTotal.Inc()
		}
		return fmt.Errorf("listing due maintenance failed: %w", err)
	}

	var created int
	for _, record := range due {
		machinery, err := s.machinery.GetByID(ctx, record.MachineryID)
		if err == api.ErrNotFound {
			continue
		} else if err != nil {
			s.logger.WithError(err).WithField("machinery_id", record.MachineryID).
				Warn("machinery lookup failed during maintenance scan")
			continue
		}

		recipient := record.CreateUserID
		if machinery.ResponsibleUserID != nil {
			recipient = *machinery.ResponsibleUserID
		}
		if recipient == 0 {
			continue
		}

		unread, err := s.notifications.HasUnreadForRelated(ctx, recipient, "machinery", machinery.ID)
		if err != nil {
			s.logger.WithError(err).WithField("machinery_id", machinery.ID).
				Warn("unread check failed during maintenance scan")
			continue
		}
		if unread {
			continue
		}

		machineryID := machinery.ID
		notification := &api.Notification{
			Title: "农机维护提醒",
			Content: fmt.Sprintf("农机 %s 已到维护时间（%s），请及时安排维护。",
				machinery.MachineryCode, record.NextMaintainTime.Format("2006-01-02")),
			RelatedID:     &machineryID,
			RelatedModule: "machinery",
			UserID:        recipient,
		}
		if err := s.notifications.Create(ctx, notification); err != nil {
			s.logger.WithError(err).WithField("machinery_id", machinery.ID).
				Warn("reminder creation failed during maintenance scan")
			continue
		}
		created++
		if s.metrics != nil {
			s.metrics.NotificationsCreatedTotal.Inc()
		}
	}

	if s.metrics != nil {
		s.metrics.MaintenanceScansTotal.Inc()
	}
	s.logger.WithField("due", len(due)).WithField("created", created).
		Info("maintenance scan completed")
	return nil
}

// RunLogCleanup trims the audit trail to the retention window.
func (s *Scheduler) RunLogCleanup(ctx context.Context) error {
	removed, err := s.trail.Cleanup(ctx, s.config.LogRetention)
	if err != nil {
		return fmt.Errorf("operate log cleanup failed: %w", err)
	}
	s.logger.WithField("removed", removed).Info("operate log cleanup completed")
	return nil
}
