package commands

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/mamadbah2/loomstock/internal/domain/models"
)

// ReportingAdapter defines the reporting functions required by the dispatcher.
type ReportingAdapter interface {
	GenerateWeeklyReport(ctx context.Context) (string, error)
	StockReport(ctx context.Context) (string, error)
	HistoryReport(ctx context.Context, limit int) (string, error)
}

// Dispatcher turns a parsed command into the reply text.
type Dispatcher interface {
	HandleCommand(ctx context.Context, cmd models.Command, sender string) (string, error)
}

// HelpText lists the supported commands.
var HelpText = strings.Join([]string{
	"Loom stock commands:",
	"/summary  latest weekly summary",
	"/stock    yarn and loom stock carried into next week",
	"/history  recent weeks, e.g. /history 6",
	"/help     this message",
}, "\n")

// Service implements the Dispatcher interface.
type Service struct {
	reporting ReportingAdapter
	logger    *zap.Logger
}

// NewService constructs a command dispatcher.
func NewService(reporting ReportingAdapter, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{reporting: reporting, logger: logger}
}

// HandleCommand runs the read-only report behind each command.
func (s *Service) HandleCommand(ctx context.Context, cmd models.Command, sender string) (string, error) {
	s.logger.Debug("dispatching command", zap.String("command", string(cmd.Type)), zap.String("sender", sender), zap.Strings("args", cmd.Args))

	switch cmd.Type {
	case models.CommandSummary:
		return s.reporting.GenerateWeeklyReport(ctx)
	case models.CommandStock:
		return s.reporting.StockReport(ctx)
	case models.CommandHistory:
		return s.reporting.HistoryReport(ctx, cmd.HistoryLimit())
	case models.CommandHelp:
		return HelpText, nil
	default:
		return "Unknown command.\n" + HelpText, nil
	}
}
