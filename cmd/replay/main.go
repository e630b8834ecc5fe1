package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	internalrepo "PatternPull/internal/repository"
	"PatternPull/internal/service/scriptexec"
	"PatternPull/internal/usecase"
	"PatternPull/pkg/config"
	applogger "PatternPull/pkg/logger"
	"PatternPull/pkg/metrics"
	"PatternPull/pkg/util"

	"PatternPull/internal/di"
	"PatternPull/internal/domain/models"
	domrepo "PatternPull/internal/domain/repository"
)

func main() {
	var (
		configPath = flag.String("config", "config/config.yaml", "config file path")
		tickers    = flag.String("tickers", "", "comma-separated tickers (default: feed.tickers)")
		from       = flag.String("from", "", "start of range (RFC3339 or unix seconds)")
		to         = flag.String("to", "", "end of range (RFC3339 or unix seconds)")
		warmup     = flag.Int("warmup", 0, "bars to skip at the start of each day (default: replay.warmup)")
		timeframe  = flag.String("timeframe", "", "bar timeframe: 1s, 1m or 5m (default: replay.timeframe)")
		patName    = flag.String("pattern", "", "replay a single pattern by name (default: all registered)")
		parallel   = flag.Bool("parallel", false, "replay tickers concurrently")
		exitScope  = flag.String("exit-scope", "", "stop after first signal per run or per day (default: replay.exit_scope)")
		sigCap     = flag.Int("cap", 0, "max signals per run (default: replay.signal_cap)")
		script     = flag.String("script", "", "external scan command instead of built-in patterns")
		scannerURL = flag.String("scanner-url", "", "external HTTP scanner service instead of built-in patterns")
		asJSON     = flag.Bool("json", false, "print signals as JSON")
	)
	flag.Parse()

	cfg, err := config.LoadWithEnv(*configPath)
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}

	l, err := applogger.New(&applogger.Config{Level: "info", Format: "console", Output: "stderr"})
	if err != nil {
		log.Fatalf("logger: %v", err)
	}

	rcfg := buildConfig(cfg, *tickers, *from, *to, *warmup, *timeframe, *parallel, *exitScope, *sigCap)

	chClient, err := di.ProvideClickHouseClient(cfg)
	if err != nil {
		log.Fatalf("clickhouse: %v", err)
	}
	defer chClient.Close()

	src := internalrepo.NewCHBarSource(chClient, cfg.ClickHouse.Database)
	src.SetLogger(l)
	history := usecase.NewHistoryUseCase(src)

	replayer := usecase.NewReplayer(history, metrics.New(), l)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
	defer cancel()

	detectors, err := buildDetectors(cfg, l, *patName, *script, *scannerURL)
	if err != nil {
		log.Fatalf("detectors: %v", err)
	}

	var all []*models.Signal
	for name, det := range detectors {
		sigs, err := replayer.Run(ctx, det, rcfg)
		if err != nil {
			log.Fatalf("replay %s: %v", name, err)
		}
		all = append(all, sigs...)
	}
	usecase.SortSignals(all)
	if len(all) > rcfg.SignalCap {
		all = all[:rcfg.SignalCap]
	}

	if *asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(all); err != nil {
			log.Fatalf("encode: %v", err)
		}
		return
	}
	for _, s := range all {
		fmt.Printf("%s %s %-6s %-14s entry=%.2f stop=%.2f target=%.2f conf=%.0f\n",
			s.Date, s.TimeOfDay, s.Ticker, s.Pattern, s.Entry, s.Stop, s.Target, s.Confidence)
	}
	fmt.Printf("%d signals\n", len(all))
}

func buildConfig(cfg *config.Config, tickers, from, to string, warmup int, tf string, parallel bool, scope string, sigCap int) usecase.ReplayConfig {
	rc := usecase.ReplayConfig{
		Tickers:   cfg.Feed.Tickers,
		From:      util.ParseTimeDefault(from, time.Now().AddDate(0, 0, -5)),
		To:        util.ParseTimeDefault(to, time.Now()),
		Warmup:    cfg.Replay.Warmup,
		Timeframe: domrepo.NormalizeTimeframe(cfg.Replay.Timeframe),
		Parallel:  parallel || cfg.Replay.Parallel,
		SignalCap: cfg.Replay.SignalCap,
		ExitScope: usecase.EarlyExitScope(cfg.Replay.ExitScope),
	}
	if tickers != "" {
		rc.Tickers = strings.Split(tickers, ",")
	}
	if warmup > 0 {
		rc.Warmup = warmup
	}
	if tf != "" {
		rc.Timeframe = domrepo.NormalizeTimeframe(tf)
	}
	if scope != "" {
		rc.ExitScope = usecase.EarlyExitScope(scope)
	}
	if sigCap > 0 {
		rc.SignalCap = sigCap
	}
	return rc
}

// buildDetectors maps detector names to implementations. External executors
// take precedence over the built-in pattern set.
func buildDetectors(cfg *config.Config, l *applogger.Logger, patName, script, scannerURL string) (map[string]usecase.Detector, error) {
	out := make(map[string]usecase.Detector)

	if script == "" {
		script = cfg.Replay.ScriptCommand
	}
	if scannerURL == "" {
		scannerURL = cfg.Replay.ScannerURL
	}
	if script != "" {
		parts := strings.Fields(script)
		exec := scriptexec.NewCommandExecutor(parts[0], parts[1:], l)
		out["script"] = usecase.NewScriptDetector(exec, cfg.Replay.ScriptTimeout)
		return out, nil
	}
	if scannerURL != "" {
		exec := scriptexec.NewHTTPExecutor(scannerURL, cfg.Replay.ScriptTimeout)
		out["http"] = usecase.NewScriptDetector(exec, cfg.Replay.ScriptTimeout)
		return out, nil
	}

	registry := di.ProvideRegistry(l)
	for _, p := range registry.Active() {
		if patName != "" && p.Name() != patName {
			continue
		}
		out[p.Name()] = usecase.NewPatternDetector(p)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no pattern named %q", patName)
	}
	return out, nil
}
