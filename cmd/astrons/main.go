package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/sideshow-paul/astroNS/core"
	"github.com/sideshow-paul/astroNS/internal/logging"
	"github.com/sideshow-paul/astroNS/internal/observability"
	"github.com/sideshow-paul/astroNS/kb"
	"github.com/sideshow-paul/astroNS/model"
	"github.com/sideshow-paul/astroNS/output"
	"github.com/sideshow-paul/astroNS/scenario"
	"github.com/sideshow-paul/astroNS/timectrl"
)

func main() {
	cfg := parseFlags()

	log := logging.NewFromEnv()
	ctx := context.Background()

	if err := run(ctx, cfg, log); err != nil {
		log.Error(ctx, "simulation run failed", logging.String("error", err.Error()))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg cliConfig, log logging.Logger) error {
	shutdownTracing, err := observability.InitTracing(ctx, observability.TracingConfigFromEnv(), log)
	if err != nil {
		log.Warn(ctx, "tracing disabled", logging.String("error", err.Error()))
	} else {
		defer observability.ShutdownWithTimeout(ctx, shutdownTracing, log)
	}

	raw, err := os.ReadFile(cfg.modelPath)
	if err != nil {
		return fmt.Errorf("read model file %q: %w", cfg.modelPath, err)
	}

	doc, err := scenario.Parse(raw, formatForPath(cfg.modelPath))
	if err != nil {
		return fmt.Errorf("parse scenario %q: %w", cfg.modelPath, err)
	}

	resultsDir := output.ResultsDirName(cfg.networkName, time.Now())
	if err := os.MkdirAll(resultsDir, 0o755); err != nil {
		return fmt.Errorf("create results directory %q: %w", resultsDir, err)
	}
	log.Info(ctx, "writing results", logging.String("dir", resultsDir))

	reg := prometheus.NewRegistry()
	collector, err := core.NewCollector(reg)
	if err != nil {
		log.Warn(ctx, "metrics collector disabled", logging.String("error", err.Error()))
	}
	if cfg.metricsAddr != "" {
		serveMetrics(ctx, cfg.metricsAddr, reg, log)
	}

	historyCap := 0
	if cfg.nodeStatsHistory {
		historyCap = 1 << 20
	}
	stats := core.NewStats(historyCap, collector)

	czml := &output.CZMLBuilder{ResultsDir: resultsDir, NetworkName: cfg.networkName}
	loader := &scenario.Loader{
		Epoch: cfg.epoch,
		Seed:  cfg.seed,
		Stats: stats,
		Log:   log,
		CZML:  czml,
	}

	registry, engine, err := loader.Build(doc)
	if err != nil {
		return fmt.Errorf("build scenario graph: %w", err)
	}
	log.Info(ctx, "scenario loaded", logging.String("path", cfg.modelPath), logging.Int("nodes", registry.Len()))

	if err := writeLoadTimeArtifacts(resultsDir, doc); err != nil {
		return fmt.Errorf("write load-time artifacts: %w", err)
	}

	if cfg.initialNodeStates {
		if err := writeNodeStates(resultsDir, "initial_node_states.txt", registry); err != nil {
			return err
		}
	}

	if cfg.realTime {
		mode := timectrl.NonStrict
		if cfg.realTimeStrict {
			mode = timectrl.Strict
		}
		engine.UseRealTimePacer(timectrl.NewPacer(time.Now(), cfg.realTimeFactor, mode, 0))
	}

	engine.Bootstrap()
	runErr := engine.Run(ctx, cfg.endSimTime)

	if err := writeRunArtifacts(resultsDir, stats, cfg.nodeStats); err != nil {
		return fmt.Errorf("write run artifacts: %w", err)
	}
	if cfg.finalNodeStates {
		if err := writeNodeStates(resultsDir, "sim_end_state.txt", registry); err != nil {
			return err
		}
	}
	if cfg.writeToTerminal {
		printSummary(ctx, log, stats)
	}

	return runErr
}

func writeLoadTimeArtifacts(resultsDir string, doc *scenario.Document) error {
	networkJSON, err := scenario.Dump(doc)
	if err != nil {
		return fmt.Errorf("dump loaded network: %w", err)
	}
	if err := os.WriteFile(resultsDir+"/loaded_network.json", networkJSON, 0o644); err != nil {
		return fmt.Errorf("write loaded_network.json: %w", err)
	}

	rawConfig := func(name string) map[string]model.Value {
		nd := doc.Nodes[name]
		return model.MergeDefaults(nd.Config, doc.Defaults)
	}
	return output.WriteLoadedNodeConfig(resultsDir+"/loaded_node_config.txt", doc.Order, rawConfig)
}

func writeNodeStates(resultsDir, filename string, registry *kb.Registry) error {
	stateOf := func(name string) string {
		n, ok := registry.Get(name)
		if !ok {
			return "unknown"
		}
		return n.State().String()
	}
	return output.WriteSimEndState(resultsDir+"/"+filename, registry.SortedNames(), stateOf)
}

func writeRunArtifacts(resultsDir string, stats *core.Stats, writeNodeStats bool) error {
	if writeNodeStats {
		snapshot := stats.Snapshot()
		if err := output.WriteNodeStats(resultsDir+"/node_stats.txt", snapshot); err != nil {
			return err
		}
		if err := output.WriteNodeStatsTotal(resultsDir+"/node_stats_total.txt", snapshot); err != nil {
			return err
		}
	}

	entries := stats.History().Entries()
	if err := output.WriteNodeLog(resultsDir+"/node_log.txt", entries); err != nil {
		return err
	}
	if err := output.WriteMsgHistoryText(resultsDir+"/msg_history.txt", entries); err != nil {
		return err
	}
	return output.WriteMsgHistoryCSV(resultsDir+"/msg_history.csv", entries)
}

func printSummary(ctx context.Context, log logging.Logger, stats *core.Stats) {
	for name, ns := range stats.Snapshot() {
		log.Info(ctx, "node summary",
			logging.String("node", name),
			logging.Int("ingress", ns.Ingress),
			logging.Int("egress", ns.Egress),
			logging.Int("dropped", ns.Dropped),
		)
	}
}

func serveMetrics(ctx context.Context, addr string, reg *prometheus.Registry, log logging.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", observability.Handler(reg))

	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Warn(ctx, "metrics server exited", logging.String("error", err.Error()))
		}
	}()
	log.Info(ctx, "serving Prometheus metrics", logging.String("addr", addr))
}

func formatForPath(path string) scenario.Format {
	for i := len(path) - 1; i >= 0 && path[i] != '/'; i-- {
		if path[i] == '.' {
			ext := path[i+1:]
			if ext == "json" {
				return scenario.FormatJSON
			}
			break
		}
	}
	return scenario.FormatYAML
}
