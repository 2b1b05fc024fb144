package main

import (
	"flag"
	"fmt"
	"os"
	"time"
)

// cliConfig is the resolved command-line configuration (spec §6: model file
// path required, seed, end-simtime, epoch, output toggles, real-time mode).
type cliConfig struct {
	modelPath         string
	networkName       string
	seed              int64
	endSimTime        float64
	epoch             time.Time
	writeToTerminal   bool
	nodeStats         bool
	nodeStatsHistory  bool
	initialNodeStates bool
	finalNodeStates   bool
	realTime          bool
	realTimeStrict    bool
	realTimeFactor    float64
	metricsAddr       string
}

func parseFlags() cliConfig {
	modelPath := flag.String("model", "", "path to the scenario model file (YAML or JSON) (required)")
	networkName := flag.String("network-name", "network", "name used to namespace the results directory and CZML output")
	seed := flag.Int64("seed", 0, "random seed for source-node and jitter generation")
	endSimTime := flag.Float64("end-simtime", 9001, "simulated seconds to run before stopping")
	epochStr := flag.String("epoch", "", "ISO-8601 UTC epoch the simulation starts at (default: now)")
	writeToTerminal := flag.Bool("write-to-terminal", false, "log a per-node summary to stdout when the run completes")
	nodeStats := flag.Bool("node-stats", true, "write node_stats.txt/node_stats_total.txt")
	nodeStatsHistory := flag.Bool("node-stats-history", false, "retain full message history for node_log.txt/msg_history.*")
	initialNodeStates := flag.Bool("initial-node-states", false, "write initial_node_states.txt before the run starts")
	finalNodeStates := flag.Bool("final-node-states", true, "write sim_end_state.txt after the run ends")
	realTime := flag.Bool("real-time", false, "pace the run against wall clock instead of running as fast as possible")
	realTimeStrict := flag.Bool("real-time-strict", false, "abort the run if it falls behind its real-time pace")
	realTimeFactor := flag.Float64("real-time-factor", 1.0, "simulated seconds per wall-clock second in real-time mode")
	metricsAddr := flag.String("metrics-addr", "", "HTTP address for Prometheus /metrics (empty disables the server)")

	flag.Parse()

	if *modelPath == "" {
		fmt.Fprintln(os.Stderr, "astrons: -model is required")
		flag.Usage()
		os.Exit(2)
	}

	epoch := time.Now().UTC()
	if *epochStr != "" {
		parsed, err := time.Parse(time.RFC3339, *epochStr)
		if err != nil {
			fmt.Fprintf(os.Stderr, "astrons: invalid -epoch %q: %v\n", *epochStr, err)
			os.Exit(2)
		}
		epoch = parsed.UTC()
	}

	return cliConfig{
		modelPath:         *modelPath,
		networkName:       *networkName,
		seed:              *seed,
		endSimTime:        *endSimTime,
		epoch:             epoch,
		writeToTerminal:   *writeToTerminal,
		nodeStats:         *nodeStats,
		nodeStatsHistory:  *nodeStatsHistory,
		initialNodeStates: *initialNodeStates,
		finalNodeStates:   *finalNodeStates,
		realTime:          *realTime,
		realTimeStrict:    *realTimeStrict,
		realTimeFactor:    *realTimeFactor,
		metricsAddr:       *metricsAddr,
	}
}
