// Package scriptexec runs externally authored detection code against a
// causal bar prefix. Executors never receive bars beyond the requested
// index; the replay engine guarantees that by construction.
package scriptexec

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"PatternPull/internal/domain/models"
	drepo "PatternPull/internal/domain/repository"
	applogger "PatternPull/pkg/logger"
)

// CommandExecutor runs a detection script as a subprocess. The bar prefix
// and scan context are written to a temp workspace, the command is invoked
// with the payload path, and stdout is parsed as a signal-or-null JSON
// document. The workspace is removed on success and on failure.
type CommandExecutor struct {
	command string
	args    []string
	l       *applogger.Logger
}

func NewCommandExecutor(command string, args []string, l *applogger.Logger) *CommandExecutor {
	return &CommandExecutor{command: command, args: args, l: l}
}

type scanPayload struct {
	Ticker string       `json:"ticker"`
	Date   string       `json:"date"`
	Index  int          `json:"index"`
	Bars   []payloadBar `json:"bars"`
}

type payloadBar struct {
	T   int64   `json:"t"`
	Tod string  `json:"time"`
	O   float64 `json:"o"`
	H   float64 `json:"h"`
	L   float64 `json:"l"`
	C   float64 `json:"c"`
	V   float64 `json:"v"`
	RTH bool    `json:"rth"`
}

type scanResult struct {
	Signal *struct {
		Pattern    string         `json:"pattern"`
		Entry      float64        `json:"entry"`
		Stop       float64        `json:"stop"`
		Target     float64        `json:"target"`
		Confidence float64        `json:"confidence"`
		Metadata   map[string]any `json:"metadata"`
	} `json:"signal"`
}

func (e *CommandExecutor) Execute(ctx context.Context, req drepo.ScanRequest) (*models.Signal, error) {
	dir, err := os.MkdirTemp("", "patternpull-scan-*")
	if err != nil {
		return nil, fmt.Errorf("scan workspace: %w", err)
	}
	defer func() {
		// Cleanup is best-effort on every path; a leak is logged, never
		// escalated.
		if rmErr := os.RemoveAll(dir); rmErr != nil && e.l != nil {
			e.l.Warn("scan workspace cleanup failed",
				applogger.String("dir", dir),
				applogger.Error(rmErr))
		}
	}()

	payloadPath := filepath.Join(dir, "scan.json")
	if err := writePayload(payloadPath, req); err != nil {
		return nil, err
	}

	if req.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, req.Timeout)
		defer cancel()
	}

	args := append(append([]string(nil), e.args...), payloadPath)
	cmd := exec.CommandContext(ctx, e.command, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	if err := cmd.Run(); err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return nil, fmt.Errorf("scan script timed out after %s", req.Timeout)
		}
		return nil, fmt.Errorf("scan script: %w (stderr: %s)", err, stderr.String())
	}
	if e.l != nil {
		e.l.Debug("scan script ok",
			applogger.String("ticker", req.Ticker),
			applogger.Int("index", req.Index),
			applogger.Duration("took", time.Since(start)))
	}

	return parseResult(stdout.Bytes(), req)
}

func writePayload(path string, req drepo.ScanRequest) error {
	p := scanPayload{
		Ticker: req.Ticker,
		Date:   req.Date,
		Index:  req.Index,
		Bars:   make([]payloadBar, len(req.Bars)),
	}
	for i, b := range req.Bars {
		p.Bars[i] = payloadBar{
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
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshal scan payload: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write scan payload: %w", err)
	}
	return nil
}

func parseResult(out []byte, req drepo.ScanRequest) (*models.Signal, error) {
	var res scanResult
	if err := json.Unmarshal(out, &res); err != nil {
		return nil, fmt.Errorf("parse scan output: %w", err)
	}
	if res.Signal == nil {
		return nil, nil
	}
	s := res.Signal
	if s.Confidence < 0 || s.Confidence > 100 {
		return nil, fmt.Errorf("scan output confidence %.2f out of range", s.Confidence)
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

var _ drepo.ScriptExecutor = (*CommandExecutor)(nil)
