package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mamadbah2/loomstock/internal/domain/models"
	"github.com/mamadbah2/loomstock/internal/repository/memory"
	"github.com/mamadbah2/loomstock/internal/service/production"
)

func init() { gin.SetMode(gin.TestMode) }

func newEngine(t *testing.T, svc PeriodService) *gin.Engine {
	t.Helper()
	h := NewPeriodHandler(svc, nil)
	r := gin.New()
	r.POST("/periods/preview", h.Preview)
	r.POST("/periods", h.Submit)
	r.GET("/periods", h.History)
	r.GET("/carry-forward", h.CarryForward)
	return r
}

func realService(t *testing.T) *production.Service {
	t.Helper()
	svc, err := production.NewService(memory.NewLog(), production.Constants{
		TotalMachines: 2, WastageFraction: 0.015, YarnPerLength: 0.02854,
	}, nil, production.WithClock(func() time.Time { return time.Date(2026, 10, 10, 19, 0, 0, 0, time.UTC) }))
	require.NoError(t, err)
	return svc
}

func do(r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

const weekBody = `{
  "previous_yarn_stock": 50,
  "new_yarn_delivered": 20,
  "looms": [
    {"loom_id": 1, "prior_unit_stock": 10, "lengths_text": "80, 90, 75"},
    {"loom_id": 2, "lengths_text": "oops"}
  ]
}`

func TestPreviewAndSubmit(t *testing.T) {
	r := newEngine(t, realService(t))

	w := do(r, http.MethodPost, "/periods/preview", weekBody)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var res production.Result
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	assert.False(t, res.Persisted)
	assert.Equal(t, 3, res.Summary.TotalUnitsProduced)
	assert.InDelta(t, 70.0, res.Summary.TotalYarnAvailable, 1e-12)
	require.Len(t, res.ParseErrors, 1)
	assert.Equal(t, 2, res.ParseErrors[0].LoomID)

	w = do(r, http.MethodGet, "/periods", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"periods":[]}`, w.Body.String())

	w = do(r, http.MethodPost, "/periods", weekBody)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = do(r, http.MethodGet, "/periods?limit=5", "")
	require.Equal(t, http.StatusOK, w.Code)
	var hist struct {
		Periods []models.PeriodSummary `json:"periods"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &hist))
	require.Len(t, hist.Periods, 1)
	assert.NotEmpty(t, hist.Periods[0].ID)

	w = do(r, http.MethodGet, "/carry-forward", "")
	require.Equal(t, http.StatusOK, w.Code)
	var cf models.CarryForward
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &cf))
	assert.Equal(t, 7.0, cf.PerLoomStock[1])
	assert.InDelta(t, hist.Periods[0].RemainingYarn, cf.PreviousYarnStock, 1e-12)
}

func TestInputErrorsAreBadRequests(t *testing.T) {
	r := newEngine(t, realService(t))

	cases := map[string]string{
		"malformed json":   `{"looms": [`,
		"loom id missing":  `{"looms": [{"lengths_text": "1"}]}`,
		"negative yarn":    `{"new_yarn_delivered": -1}`,
		"loom outside set": `{"looms": [{"loom_id": 9}]}`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			w := do(r, http.MethodPost, "/periods/preview", body)
			assert.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
		})
	}

	w := do(r, http.MethodPost, "/periods/preview", `{"new_yarn_delivered": -1}`)
	assert.Contains(t, w.Body.String(), `"field":"new_yarn_delivered"`)

	w = do(r, http.MethodGet, "/periods?limit=abc", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

type failingService struct{ err error }

func (f failingService) Preview(context.Context, models.PeriodForm) (production.Result, error) {
	return production.Result{}, f.err
}

func (f failingService) Submit(context.Context, models.PeriodForm) (production.Result, error) {
	return production.Result{}, f.err
}

func (f failingService) History(context.Context, int) ([]models.PeriodSummary, error) {
	return nil, f.err
}

func (f failingService) CarryForward(context.Context) (models.CarryForward, error) {
	return models.CarryForward{}, f.err
}

func TestIntegrityAndStoreErrors(t *testing.T) {
	integrity := &models.DataIntegrityError{Log: models.StockLog, Index: 4, Reason: "loom id 0"}
	r := newEngine(t, failingService{err: errors.Join(errors.New("read stock log"), integrity)})

	w := do(r, http.MethodPost, "/periods", `{}`)
	require.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"error":"stored period data is corrupt","log":"stock","index":4}`, w.Body.String())

	r = newEngine(t, failingService{err: errors.New("connection refused")})
	w = do(r, http.MethodGet, "/carry-forward", "")
	require.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"error":"internal error"}`, w.Body.String())
}
