// Package alerts provides the built-in alert sink implementations.
package alerts

import (
	"context"
	"fmt"
	"io"
	"os"

	"PatternPull/internal/domain/models"
)

// ConsoleSink writes signals to a writer, stdout by default. It is the
// default sink and structurally identical to any other.
type ConsoleSink struct {
	out io.Writer
}

func NewConsoleSink() *ConsoleSink {
	return &ConsoleSink{out: os.Stdout}
}

// NewConsoleSinkTo writes to a custom writer, used by tests.
func NewConsoleSinkTo(w io.Writer) *ConsoleSink {
	return &ConsoleSink{out: w}
}

func (s *ConsoleSink) Name() string { return "console" }

func (s *ConsoleSink) Deliver(ctx context.Context, sig *models.Signal) error {
	_, err := fmt.Fprintf(s.out, "[SIGNAL] %s %s %s %s entry=%.2f stop=%.2f target=%.2f conf=%.0f\n",
		sig.Date, sig.TimeOfDay, sig.Ticker, sig.Pattern, sig.Entry, sig.Stop, sig.Target, sig.Confidence)
	return err
}
