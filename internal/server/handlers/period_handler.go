package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mamadbah2/loomstock/internal/domain/models"
	"github.com/mamadbah2/loomstock/internal/service/production"
)

const defaultHistoryLimit = 12

// PeriodService is the production service surface used over HTTP.
type PeriodService interface {
	Preview(ctx context.Context, form models.PeriodForm) (production.Result, error)
	Submit(ctx context.Context, form models.PeriodForm) (production.Result, error)
	History(ctx context.Context, limit int) ([]models.PeriodSummary, error)
	CarryForward(ctx context.Context) (models.CarryForward, error)
}

// PeriodHandler exposes weekly calculations as JSON endpoints.
type PeriodHandler struct {
	svc    PeriodService
	logger *zap.Logger
}

// NewPeriodHandler constructs the HTTP handler adapter.
func NewPeriodHandler(svc PeriodService, logger *zap.Logger) *PeriodHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PeriodHandler{svc: svc, logger: logger}
}

// Preview calculates a period without persisting it.
func (h *PeriodHandler) Preview(c *gin.Context) {
	h.calculate(c, h.svc.Preview, http.StatusOK)
}

// Submit calculates a period and appends it to the log.
func (h *PeriodHandler) Submit(c *gin.Context) {
	h.calculate(c, h.svc.Submit, http.StatusCreated)
}

func (h *PeriodHandler) calculate(c *gin.Context, run func(context.Context, models.PeriodForm) (production.Result, error), okStatus int) {
	var form models.PeriodForm
	if err := c.ShouldBindJSON(&form); err != nil {
		h.logger.Warn("invalid period payload", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "detail": err.Error()})
		return
	}

	res, err := run(c.Request.Context(), form)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(okStatus, res)
}

// History lists recent period summaries, oldest first.
func (h *PeriodHandler) History(c *gin.Context) {
	limit := defaultHistoryLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a non-negative integer"})
			return
		}
		limit = n
	}

	summaries, err := h.svc.History(c.Request.Context(), limit)
	if err != nil {
		h.writeError(c, err)
		return
	}
	if summaries == nil {
		summaries = []models.PeriodSummary{}
	}
	c.JSON(http.StatusOK, gin.H{"periods": summaries})
}

// CarryForward returns the state the next period starts from.
func (h *PeriodHandler) CarryForward(c *gin.Context) {
	cf, err := h.svc.CarryForward(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, cf)
}

func (h *PeriodHandler) writeError(c *gin.Context, err error) {
	var invalid *models.InvalidInputError
	var integrity *models.DataIntegrityError

	switch {
	case errors.As(err, &invalid):
		h.logger.Warn("rejected period input", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": invalid.Error(), "field": invalid.Field})
	case errors.As(err, &integrity):
		h.logger.Error("period log integrity failure", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "stored period data is corrupt", "log": integrity.Log, "index": integrity.Index})
	default:
		h.logger.Error("period request failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
