package scriptexec

import (
	"context"
	"fmt"
	"time"

	"PatternPull/internal/domain/models"
	drepo "PatternPull/internal/domain/repository"
	xhttp "PatternPull/pkg/http"
)

// HTTPExecutor delegates detection to an external scanner service over
// HTTP. The request carries only the causal prefix; the service answers
// with a signal or null.
type HTTPExecutor struct {
	baseURL string
	client  *xhttp.Client
}

// NewHTTPExecutor builds an executor against baseURL with a per-request
// timeout.
func NewHTTPExecutor(baseURL string, timeout time.Duration) *HTTPExecutor {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HTTPExecutor{
		baseURL: baseURL,
		client:  xhttp.NewClient(xhttp.WithTimeout(timeout)),
	}
}

func (e *HTTPExecutor) Execute(ctx context.Context, req drepo.ScanRequest) (*models.Signal, error) {
	if e.client == nil || e.baseURL == "" {
		return nil, fmt.Errorf("scanner http client not initialized")
	}

	if req.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, req.Timeout)
		defer cancel()
	}

	payload := scanPayload{
		Ticker: req.Ticker,
		Date:   req.Date,
		Index:  req.Index,
		Bars:   make([]payloadBar, len(req.Bars)),
	}
	for i, b := range req.Bars {
		payload.Bars[i] = payloadBar{
			T:   b.Timestamp.Unix(),
			Tod: b.TimeOfDay,
			O:   b.Open,
			H:   b.High,
			L:   b.Low,
			C:   b.Close,
			V:   b.Volume,
			RTH: b.RegularSession,
		}
	}

	var res scanResult
	err := e.client.SendAndParse(ctx, &xhttp.RequestOptions{
		Method: xhttp.MethodPost,
		URL:    e.baseURL + "/scan",
		Headers: map[string]string{
			"Content-Type": "application/json",
		},
		Body: payload,
	}, &res)
	if err != nil {
		return nil, fmt.Errorf("post /scan: %w", err)
	}

	if res.Signal == nil {
		return nil, nil
	}
	s := res.Signal
	if s.Confidence < 0 || s.Confidence > 100 {
		return nil, fmt.Errorf("scan response confidence %.2f out of range", s.Confidence)
	}
	return &models.Signal{
		Ticker:     req.Ticker,
		Pattern:    s.Pattern,
		Date:       req.Date,
		Entry:      s.Entry,
		Stop:       s.Stop,
		Target:     s.Target,
		Confidence: s.Confidence,
		Metadata:   s.Metadata,
	}, nil
}

var _ drepo.ScriptExecutor = (*HTTPExecutor)(nil)
