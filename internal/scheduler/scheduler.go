package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/mamadbah2/loomstock/internal/config"
	"github.com/mamadbah2/loomstock/internal/domain/models"
)

const reportTimeout = 2 * time.Minute

// Reporter renders the weekly summary.
type Reporter interface {
	GenerateWeeklyReport(ctx context.Context) (string, error)
}

// Messenger delivers a text message.
type Messenger interface {
	SendOutbound(ctx context.Context, req models.OutboundMessageRequest) error
}

// Scheduler manages scheduled tasks.
type Scheduler struct {
	cron      *cron.Cron
	schedule  string
	managerID string
	reporter  Reporter
	messenger Messenger
	logger    *zap.Logger
}

// NewScheduler creates a scheduler that runs in the configured timezone.
func NewScheduler(cfg config.Config, reporter Reporter, messenger Messenger, logger *zap.Logger) (*Scheduler, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.WhatsApp.ManagerID == "" {
		return nil, errors.New("scheduler: WHATSAPP_MANAGER_ID is required")
	}

	loc, err := time.LoadLocation(cfg.Reporting.Timezone)
	if err != nil {
		return nil, fmt.Errorf("scheduler: load timezone %q: %w", cfg.Reporting.Timezone, err)
	}

	return &Scheduler{
		cron:      cron.New(cron.WithLocation(loc), cron.WithChain(cron.Recover(cronLogger{logger}))),
		schedule:  cfg.Reporting.CronSchedule,
		managerID: cfg.WhatsApp.ManagerID,
		reporter:  reporter,
		messenger: messenger,
		logger:    logger,
	}, nil
}

// Start registers the weekly report job and starts the scheduler.
func (s *Scheduler) Start() error {
	id, err := s.cron.AddFunc(s.schedule, s.runWeeklyReport)
	if err != nil {
		return fmt.Errorf("schedule weekly report %q: %w", s.schedule, err)
	}
	s.cron.Start()
	s.logger.Info("scheduler started", zap.String("schedule", s.schedule), zap.Time("next_run", s.cron.Entry(id).Next))
	return nil
}

// Stop stops the scheduler and waits for a running job to finish.
func (s *Scheduler) Stop() {
	s.logger.Info("stopping scheduler")
	<-s.cron.Stop().Done()
}

func (s *Scheduler) runWeeklyReport() {
	ctx, cancel := context.WithTimeout(context.Background(), reportTimeout)
	defer cancel()

	if err := s.SendWeeklyReport(ctx); err != nil {
		s.logger.Error("weekly report failed", zap.Error(err))
		return
	}
	s.logger.Info("weekly report sent successfully")
}

// SendWeeklyReport renders the latest summary and sends it to the manager.
func (s *Scheduler) SendWeeklyReport(ctx context.Context) error {
	report, err := s.reporter.GenerateWeeklyReport(ctx)
	if err != nil {
		return fmt.Errorf("generate weekly report: %w", err)
	}

	req := models.OutboundMessageRequest{To: s.managerID, Message: report}
	if err := s.messenger.SendOutbound(ctx, req); err != nil {
		return fmt.Errorf("send weekly report: %w", err)
	}
	return nil
}

// cronLogger routes robfig/cron's own logging, including recovered job
// panics, through zap.
type cronLogger struct {
	logger *zap.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Sugar().Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Sugar().Errorw(msg, append(keysAndValues, "error", err)...)
}
