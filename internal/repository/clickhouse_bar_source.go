package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"PatternPull/internal/domain/models"
	domrepo "PatternPull/internal/domain/repository"
	pkgch "PatternPull/pkg/clickhouse"
	applogger "PatternPull/pkg/logger"
)

// CHBarSource implements BarSource backed by ClickHouse. Bars come back in
// ascending timestamp order, which the replay engine depends on.
type CHBarSource struct {
	db       *sql.DB
	database string
	l        *applogger.Logger
}

func NewCHBarSource(ch *pkgch.Client, database string) *CHBarSource {
	if database == "" {
		database = "patternpull"
	}
	return &CHBarSource{db: ch.DB(), database: database}
}

// SetLogger injects a structured logger.
func (s *CHBarSource) SetLogger(l *applogger.Logger) { s.l = l }

func (s *CHBarSource) LoadBars(ctx context.Context, ticker string, from, to time.Time, tf domrepo.Timeframe) ([]models.Bar, error) {
	start := time.Now()
	table, err := s.tableForTF(tf)
	if err != nil {
		return nil, err
	}
	const qtpl = `
        SELECT ts, open, high, low, close, volume
        FROM %s
        WHERE ticker = ? AND ts >= ? AND ts <= ?
        ORDER BY ts ASC
    `
	q := fmt.Sprintf(qtpl, table)
	rows, err := s.db.QueryContext(ctx, q, ticker, from, to)
	if err != nil {
		if s.l != nil {
			s.l.Error("clickhouse load_bars query error",
				applogger.String("table", table),
				applogger.String("ticker", ticker),
				applogger.String("tf", string(tf)),
				applogger.Error(err),
			)
		}
		return nil, fmt.Errorf("load bars: %w", err)
	}
	defer rows.Close()

	out := make([]models.Bar, 0, 1024)
	for rows.Next() {
		var (
			ts            time.Time
			o, h, l, c, v float64
		)
		if err := rows.Scan(&ts, &o, &h, &l, &c, &v); err != nil {
			if s.l != nil {
				s.l.Error("clickhouse load_bars scan error",
					applogger.String("table", table),
					applogger.String("ticker", ticker),
					applogger.Error(err),
				)
			}
			return nil, fmt.Errorf("scan bar: %w", err)
		}
		out = append(out, models.NewBar(ts, o, h, l, c, v))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	if s.l != nil {
		s.l.Info("clickhouse load_bars ok",
			applogger.String("table", table),
			applogger.String("ticker", ticker),
			applogger.String("tf", string(tf)),
			applogger.Int("rows", len(out)),
			applogger.Duration("duration_ms", time.Since(start)),
		)
	}
	return out, nil
}

func (s *CHBarSource) tableForTF(tf domrepo.Timeframe) (string, error) {
	switch tf {
	case domrepo.TF1s:
		return s.database + ".bars_1s", nil
	case domrepo.TF1m:
		return s.database + ".bars_1m", nil
	case domrepo.TF5m:
		// fold to 1m for now; 5m can be aggregated in-memory if needed
		return s.database + ".bars_1m", nil
	default:
		return "", fmt.Errorf("unsupported timeframe: %s", tf)
	}
}

var _ domrepo.BarSource = (*CHBarSource)(nil)
