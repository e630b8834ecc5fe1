// Package api exposes the scanner's observability surface over HTTP:
// heartbeat stats, active signals and bar history lookups. It is a read
// accessor for external monitors, not a control plane.
package api

import (
	"time"

	domrepo "PatternPull/internal/domain/repository"
	"PatternPull/internal/usecase"
	xhttp "PatternPull/pkg/http"
	applogger "PatternPull/pkg/logger"
	"PatternPull/pkg/util"

	"github.com/labstack/echo/v4"
)

// ScannerHandler registers the observability routes.
type ScannerHandler struct {
	l       *applogger.Logger
	scanner *usecase.LiveScanner
	tracker *usecase.SignalTracker
	history *usecase.HistoryUseCase
}

func NewScannerHandler(l *applogger.Logger, scanner *usecase.LiveScanner, tracker *usecase.SignalTracker, history *usecase.HistoryUseCase) *ScannerHandler {
	return &ScannerHandler{l: l, scanner: scanner, tracker: tracker, history: history}
}

// RegisterRoutes implements xhttp.Handler.
func (h *ScannerHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", h.health)
	e.GET("/api/v1/stats", h.stats)
	e.GET("/api/v1/signals/active", h.activeSignals)
	e.GET("/api/v1/bars", h.bars)
}

func (h *ScannerHandler) health(c echo.Context) error {
	return xhttp.SuccessResponse(c, map[string]string{"status": "ok"})
}

func (h *ScannerHandler) stats(c echo.Context) error {
	return xhttp.SuccessResponse(c, h.scanner.Stats())
}

func (h *ScannerHandler) activeSignals(c echo.Context) error {
	return xhttp.SuccessResponse(c, h.tracker.Active())
}

type barsRequest struct {
	Ticker string `query:"ticker" validate:"required"`
	From   string `query:"from"`
	To     string `query:"to"`
	TF     string `query:"tf" default:"1m" validate:"oneof=1s 1m 5m"`
}

func (h *ScannerHandler) bars(c echo.Context) error {
	req := &barsRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	now := time.Now()
	from := util.ParseTimeDefault(req.From, now.Add(-24*time.Hour))
	to := util.ParseTimeDefault(req.To, now)
	if from.After(to) {
		return xhttp.AppErrorResponse(c, xhttp.BadRequestError("from must be <= to"))
	}
	tf := domrepo.NormalizeTimeframe(req.TF)

	bars, err := h.history.LoadBars(c.Request().Context(), req.Ticker, from, to, tf)
	if err != nil {
		h.l.Error("bars lookup failed",
			applogger.String("ticker", req.Ticker),
			applogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.ListResponse(c, bars, int64(len(bars)))
}

var _ xhttp.Handler = (*ScannerHandler)(nil)
