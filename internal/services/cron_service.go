package services

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
	"github.com/smartpark/parking-backend/internal/metrics"
)

const housekeepingTimeout = 2 * time.Minute

// HousekeepingConfig wires the cleanup targets of the scheduled jobs
type HousekeepingConfig struct {
	Auth             *AuthService
	RateLimits       *RateLimitService
	Audit            *AuditService
	AuditRetention   time.Duration
	SessionRetention time.Duration
	// SweepLimiters drops idle in-memory rate limiters; optional
	SweepLimiters func() int
}

// CronService manages scheduled background jobs
type CronService struct {
	cron   *cron.Cron
	cfg    HousekeepingConfig
	logger *logrus.Logger
}

// NewCronService creates a new CronService
func NewCronService(cfg HousekeepingConfig, logger *logrus.Logger) *CronService {
	if cfg.SessionRetention <= 0 {
		cfg.SessionRetention = 24 * time.Hour
	}
	if cfg.AuditRetention <= 0 {
		cfg.AuditRetention = 90 * 24 * time.Hour
	}

	return &CronService{
		cron:   cron.New(cron.WithSeconds()),
		cfg:    cfg,
		logger: logger,
	}
}

// Start schedules all jobs and starts the scheduler
func (s *CronService) Start() error {
	// Cron format: second minute hour day month weekday
	jobs := []struct {
		spec string
		name string
		fn   func()
	}{
		{"0 0 * * * *", "purge_sessions", s.purgeSessionsJob},
		{"0 */15 * * * *", "purge_login_attempts", s.purgeLoginAttemptsJob},
		{"0 30 3 * * *", "purge_audit_logs", s.purgeAuditLogsJob},
		{"0 */10 * * * *", "sweep_rate_limiters", s.sweepLimitersJob},
	}

	for _, job := range jobs {
		if _, err := s.cron.AddFunc(job.spec, job.fn); err != nil {
			return fmt.Errorf("failed to schedule %s job: %w", job.name, err)
		}
		s.logger.WithFields(logrus.Fields{"job": job.name, "schedule": job.spec}).Info("Scheduled housekeeping job")
	}

	s.cron.Start()
	s.logger.Info("Cron service started")
	return nil
}

// Stop stops the scheduler and waits for running jobs
func (s *CronService) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info("Cron service stopped")
}

func (s *CronService) run(name string, fn func(ctx context.Context) (int64, error)) {
	ctx, cancel := context.WithTimeout(context.Background(), housekeepingTimeout)
	defer cancel()

	start := time.Now()
	removed, err := fn(ctx)
	metrics.RecordCronRun(name, err == nil)
	if err != nil {
		s.logger.WithError(err).WithField("job", name).Error("Housekeeping job failed")
		return
	}

	s.logger.WithFields(logrus.Fields{
		"job":         name,
		"removed":     removed,
		"duration_ms": time.Since(start).Milliseconds(),
	}).Info("Housekeeping job finished")
}

func (s *CronService) purgeSessionsJob() {
	if s.cfg.Auth == nil {
		return
	}
	s.run("purge_sessions", func(ctx context.Context) (int64, error) {
		return s.cfg.Auth.PurgeExpiredSessions(ctx, s.cfg.SessionRetention)
	})
}

func (s *CronService) purgeLoginAttemptsJob() {
	if s.cfg.RateLimits == nil {
		return
	}
	s.run("purge_login_attempts", s.cfg.RateLimits.CleanupExpiredRateLimits)
}

func (s *CronService) purgeAuditLogsJob() {
	if s.cfg.Audit == nil {
		return
	}
	s.run("purge_audit_logs", func(ctx context.Context) (int64, error) {
		return s.cfg.Audit.CleanupOldAuditLogs(ctx, s.cfg.AuditRetention)
	})
}

func (s *CronService) sweepLimitersJob() {
	if s.cfg.SweepLimiters == nil {
		return
	}
	s.run("sweep_rate_limiters", func(ctx context.Context) (int64, error) {
		return int64(s.cfg.SweepLimiters()), nil
	})
}

// RunAllNow runs every housekeeping job immediately
func (s *CronService) RunAllNow() {
	s.purgeSessionsJob()
	s.purgeLoginAttemptsJob()
	s.purgeAuditLogsJob()
	s.sweepLimitersJob()
}

// GetJobStatus returns the status of scheduled jobs
func (s *CronService) GetJobStatus() map[string]interface{} {
	entries := s.cron.Entries()

	jobs := make([]map[string]interface{}, 0, len(entries))
	for _, entry := range entries {
		jobs = append(jobs, map[string]interface{}{
			"id":       entry.ID,
			"next_run": entry.Next,
			"prev_run": entry.Prev,
		})
	}

	return map[string]interface{}{
		"running":   len(entries) > 0,
		"job_count": len(entries),
		"jobs":      jobs,
	}
}
