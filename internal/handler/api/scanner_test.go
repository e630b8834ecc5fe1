package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"PatternPull/internal/domain/models"
	domrepo "PatternPull/internal/domain/repository"
	"PatternPull/internal/usecase"
	applogger "PatternPull/pkg/logger"
)

type stubSource struct {
	bars []models.Bar
	err  error
}

func (s *stubSource) LoadBars(_ context.Context, _ string, _, _ time.Time, _ domrepo.Timeframe) ([]models.Bar, error) {
	return s.bars, s.err
}

func newBarsHandler(t *testing.T, src *stubSource) *ScannerHandler {
	t.Helper()
	l, err := applogger.New(&applogger.Config{Level: "error", Format: "json", Output: "stdout"})
	require.NoError(t, err)
	return NewScannerHandler(l, nil, usecase.NewSignalTracker(), usecase.NewHistoryUseCase(src))
}

func getBars(t *testing.T, h *ScannerHandler, query string) map[string]interface{} {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/bars"+query, nil)
	rec := httptest.NewRecorder()
	require.NoError(t, h.bars(e.NewContext(req, rec)))

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestBarsReturnsRows(t *testing.T) {
	src := &stubSource{bars: []models.Bar{
		models.NewBar(time.Date(2024, 3, 14, 14, 0, 0, 0, time.UTC), 100, 101, 99, 100.5, 1000),
		models.NewBar(time.Date(2024, 3, 14, 14, 1, 0, 0, time.UTC), 100.5, 102, 100, 101, 1200),
	}}
	h := newBarsHandler(t, src)

	body := getBars(t, h, "?ticker=AAPL&tf=1m")
	assert.EqualValues(t, http.StatusOK, body["status"])

	data, ok := body["data"].(map[string]interface{})
	require.True(t, ok)
	assert.EqualValues(t, 2, data["total"])
	rows, ok := data["rows"].([]interface{})
	require.True(t, ok)
	assert.Len(t, rows, 2)
}

func TestBarsRejectsMissingTicker(t *testing.T) {
	h := newBarsHandler(t, &stubSource{})

	body := getBars(t, h, "")
	assert.EqualValues(t, http.StatusBadRequest, body["status"])

	errs, ok := body["data"].([]interface{})
	require.True(t, ok)
	require.NotEmpty(t, errs)
	first := errs[0].(map[string]interface{})
	assert.Equal(t, "ERR_REQUIRED", first["code"])
	assert.Equal(t, "Ticker", first["field"])
}

func TestBarsRejectsUnknownTimeframe(t *testing.T) {
	h := newBarsHandler(t, &stubSource{})

	body := getBars(t, h, "?ticker=AAPL&tf=2h")
	assert.EqualValues(t, http.StatusBadRequest, body["status"])

	errs, ok := body["data"].([]interface{})
	require.True(t, ok)
	require.NotEmpty(t, errs)
	assert.Equal(t, "ERR_ONEOF", errs[0].(map[string]interface{})["code"])
}

func TestBarsRejectsInvertedRange(t *testing.T) {
	h := newBarsHandler(t, &stubSource{})

	body := getBars(t, h, "?ticker=AAPL&from=2024-03-15T00:00:00Z&to=2024-03-14T00:00:00Z")
	assert.EqualValues(t, http.StatusBadRequest, body["status"])

	errs, ok := body["data"].([]interface{})
	require.True(t, ok)
	require.NotEmpty(t, errs)
	first := errs[0].(map[string]interface{})
	assert.Equal(t, "ERR_BAD_REQUEST", first["code"])
	assert.Contains(t, first["message"], "from must be <= to")
}

func TestBarsSourceErrorIsInternal(t *testing.T) {
	h := newBarsHandler(t, &stubSource{err: errors.New("clickhouse down")})

	body := getBars(t, h, "?ticker=AAPL")
	assert.EqualValues(t, http.StatusInternalServerError, body["status"])
}
