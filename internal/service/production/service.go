package production

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mamadbah2/loomstock/internal/domain/models"
	"github.com/mamadbah2/loomstock/internal/metrics"
	"github.com/mamadbah2/loomstock/internal/repository"
)

// Result is a calculated period plus the operator-facing conditions found
// while building it.
type Result struct {
	Summary     models.PeriodSummary     `json:"summary"`
	Stocks      []models.LoomStockRecord `json:"stocks"`
	ParseErrors []LengthParseIssue       `json:"parse_errors,omitempty"`
	Shortfalls  []models.Shortfall       `json:"shortfalls,omitempty"`
	Persisted   bool                     `json:"persisted"`
}

// LengthParseIssue is the serialisable form of a ParseRecoverableError.
type LengthParseIssue struct {
	LoomID  int    `json:"loom_id"`
	Text    string `json:"text"`
	Message string `json:"message"`
}

// Service runs weekly calculations against a period log.
type Service struct {
	log       repository.PeriodLog
	constants Constants
	metrics   *metrics.Registry
	logger    *zap.Logger
	location  *time.Location
	now       func() time.Time
	newID     func() string
}

// Option customises a Service.
type Option func(*Service)

// WithMetrics records calculations in the given registry.
func WithMetrics(m *metrics.Registry) Option {
	return func(s *Service) { s.metrics = m }
}

// WithLocation sets the timezone that decides a period's calendar date.
func WithLocation(loc *time.Location) Option {
	return func(s *Service) {
		if loc != nil {
			s.location = loc
		}
	}
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService wires a production service. Constants are validated up front.
func NewService(log repository.PeriodLog, constants Constants, logger *zap.Logger, opts ...Option) (*Service, error) {
	if log == nil {
		return nil, errors.New("period log is required")
	}
	if err := constants.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Service{
		log:       log,
		constants: constants,
		logger:    logger,
		location:  time.UTC,
		now:       time.Now,
		newID:     func() string { return uuid.NewString() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Constants returns the calculation parameters in use.
func (s *Service) Constants() Constants { return s.constants }

// CarryForward loads the starting state for the next period.
func (s *Service) CarryForward(ctx context.Context) (models.CarryForward, error) {
	start := time.Now()
	summaries, err := s.log.Summaries(ctx)
	if err != nil {
		return models.CarryForward{}, fmt.Errorf("read summary log: %w", err)
	}
	stocks, err := s.log.StockRecords(ctx)
	if err != nil {
		return models.CarryForward{}, fmt.Errorf("read stock log: %w", err)
	}
	s.observeStore("read", start)

	cf, err := LoadCarryForward(summaries, stocks)
	if err != nil {
		return models.CarryForward{}, err
	}
	return cf, nil
}

// Preview calculates the period without persisting it.
func (s *Service) Preview(ctx context.Context, form models.PeriodForm) (Result, error) {
	res, err := s.calculate(ctx, form)
	if err != nil {
		s.reject(err)
		return Result{}, err
	}
	s.count("preview")
	return res, nil
}

// Submit calculates the period and appends it to the log.
func (s *Service) Submit(ctx context.Context, form models.PeriodForm) (Result, error) {
	res, err := s.calculate(ctx, form)
	if err != nil {
		s.reject(err)
		return Result{}, err
	}

	res.Summary.ID = s.newID()
	res.Summary.CreatedAt = s.now().UTC()
	for i := range res.Stocks {
		res.Stocks[i].PeriodID = res.Summary.ID
	}

	start := time.Now()
	if err := s.log.AppendPeriod(ctx, res.Summary, res.Stocks); err != nil {
		s.reject(err)
		return Result{}, fmt.Errorf("append period: %w", err)
	}
	s.observeStore("append", start)
	res.Persisted = true

	s.count("submit")
	s.record(res)
	s.logger.Info("period submitted",
		zap.String("period_id", res.Summary.ID),
		zap.Time("date", res.Summary.Date),
		zap.Int("units", res.Summary.TotalUnitsProduced),
		zap.Float64("length", res.Summary.TotalLengthProduced),
		zap.Float64("remaining_yarn", res.Summary.RemainingYarn))
	return res, nil
}

// History returns up to limit most recent summaries, oldest first. A limit of
// zero or less returns the whole log.
func (s *Service) History(ctx context.Context, limit int) ([]models.PeriodSummary, error) {
	summaries, err := s.log.Summaries(ctx)
	if err != nil {
		return nil, fmt.Errorf("read summary log: %w", err)
	}
	if limit > 0 && len(summaries) > limit {
		summaries = summaries[len(summaries)-limit:]
	}
	return summaries, nil
}

// Latest returns the most recent summary and its loom stock records.
func (s *Service) Latest(ctx context.Context) (models.PeriodSummary, []models.LoomStockRecord, bool, error) {
	summaries, err := s.log.Summaries(ctx)
	if err != nil {
		return models.PeriodSummary{}, nil, false, fmt.Errorf("read summary log: %w", err)
	}
	if len(summaries) == 0 {
		return models.PeriodSummary{}, nil, false, nil
	}
	last := summaries[len(summaries)-1]

	stocks, err := s.log.StockRecords(ctx)
	if err != nil {
		return models.PeriodSummary{}, nil, false, fmt.Errorf("read stock log: %w", err)
	}
	var own []models.LoomStockRecord
	for _, r := range stocks {
		if r.PeriodID == last.ID {
			own = append(own, r)
		}
	}
	return last, own, true, nil
}

func (s *Service) calculate(ctx context.Context, form models.PeriodForm) (Result, error) {
	cf, err := s.CarryForward(ctx)
	if err != nil {
		return Result{}, err
	}

	in, parseErrs, err := BuildInputs(form, cf, s.constants)
	if err != nil {
		return Result{}, err
	}
	for _, pe := range parseErrs {
		s.logger.Warn("discarded unparseable loom lengths", zap.Int("loom", pe.LoomID), zap.String("text", pe.Text), zap.Error(pe.Err))
	}

	summary, stocks, err := Calculate(in, s.constants, s.now().In(s.location))
	if err != nil {
		return Result{}, err
	}

	res := Result{
		Summary:    summary,
		Stocks:     stocks,
		Shortfalls: Shortfalls(summary, stocks),
	}
	for _, pe := range parseErrs {
		res.ParseErrors = append(res.ParseErrors, LengthParseIssue{LoomID: pe.LoomID, Text: pe.Text, Message: pe.Error()})
	}
	for _, sf := range res.Shortfalls {
		s.logger.Warn("negative balance", zap.String("kind", string(sf.Kind)), zap.Int("loom", sf.LoomID), zap.Float64("amount", sf.Amount))
	}
	if s.metrics != nil {
		s.metrics.ParseErrors.Add(float64(len(parseErrs)))
	}
	return res, nil
}

func (s *Service) count(mode string) {
	if s.metrics != nil {
		s.metrics.PeriodsCalculated.WithLabelValues(mode).Inc()
	}
}

func (s *Service) reject(err error) {
	reason := "store"
	var invalidErr *models.InvalidInputError
	var integrityErr *models.DataIntegrityError
	switch {
	case errors.As(err, &invalidErr):
		reason = "invalid_input"
	case errors.As(err, &integrityErr):
		reason = "data_integrity"
	}
	s.logger.Error("period calculation rejected", zap.String("reason", reason), zap.Error(err))
	if s.metrics != nil {
		s.metrics.PeriodsRejected.WithLabelValues(reason).Inc()
	}
}

func (s *Service) record(res Result) {
	if s.metrics == nil {
		return
	}
	s.metrics.UnitsProduced.Add(float64(res.Summary.TotalUnitsProduced))
	s.metrics.LengthProduced.Add(res.Summary.TotalLengthProduced)
	s.metrics.RemainingYarn.Set(res.Summary.RemainingYarn)
	for _, st := range res.Stocks {
		s.metrics.LoomStock.WithLabelValues(strconv.Itoa(st.LoomID)).Set(st.RemainingUnitStock)
	}
	for _, sf := range res.Shortfalls {
		s.metrics.Shortfalls.WithLabelValues(string(sf.Kind)).Inc()
	}
}

func (s *Service) observeStore(op string, start time.Time) {
	if s.metrics != nil {
		s.metrics.StoreLatencySec.WithLabelValues(op).Observe(time.Since(start).Seconds())
	}
}
