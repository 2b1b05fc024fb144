package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sideshow-paul/astroNS/internal/logging"
	"github.com/sideshow-paul/astroNS/scenario"
)

const pulseScenario = `
source:
  type: random_source
  random_size_min: 1
  random_size_max: 1
  random_delay_min: 1
  random_delay_max: 1
  single_pulse: true
  sink: "~"
sink:
  type: sink
`

// TestRunWritesExpectedArtifacts drives the CLI's run() entry point against
// a tiny two-node scenario and checks every advertised results-directory
// artifact actually lands on disk.
func TestRunWritesExpectedArtifacts(t *testing.T) {
	dir := t.TempDir()
	modelPath := filepath.Join(dir, "scenario.yaml")
	if err := os.WriteFile(modelPath, []byte(pulseScenario), 0o644); err != nil {
		t.Fatalf("write scenario: %v", err)
	}

	oldWD, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("chdir: %v", err)
	}
	defer os.Chdir(oldWD)

	cfg := cliConfig{
		modelPath:         modelPath,
		networkName:       "testnet",
		endSimTime:        100,
		epoch:             time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		nodeStats:         true,
		nodeStatsHistory:  true,
		initialNodeStates: true,
		finalNodeStates:   true,
	}

	if err := run(context.Background(), cfg, logging.Noop()); err != nil {
		t.Fatalf("run: %v", err)
	}

	entries, err := os.ReadDir("Results")
	if err != nil {
		t.Fatalf("read Results dir: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected exactly one results directory, got %d", len(entries))
	}
	resultsDir := filepath.Join("Results", entries[0].Name())

	for _, name := range []string{
		"loaded_network.json",
		"loaded_node_config.txt",
		"initial_node_states.txt",
		"sim_end_state.txt",
		"node_stats.txt",
		"node_stats_total.txt",
		"node_log.txt",
		"msg_history.txt",
		"msg_history.csv",
	} {
		if _, err := os.Stat(filepath.Join(resultsDir, name)); err != nil {
			t.Errorf("expected artifact %q: %v", name, err)
		}
	}
}

// TestRunFailsOnUndeclaredLinkDestination asserts a load-time graph error
// propagates as run()'s return value rather than panicking.
func TestRunFailsOnUndeclaredLinkDestination(t *testing.T) {
	dir := t.TempDir()
	modelPath := filepath.Join(dir, "scenario.yaml")
	badScenario := "sink:\n  type: sink\n  ghost: \"~\"\n"
	if err := os.WriteFile(modelPath, []byte(badScenario), 0o644); err != nil {
		t.Fatalf("write scenario: %v", err)
	}

	oldWD, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("chdir: %v", err)
	}
	defer os.Chdir(oldWD)

	cfg := cliConfig{
		modelPath:   modelPath,
		networkName: "testnet",
		endSimTime:  10,
		epoch:       time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}

	if err := run(context.Background(), cfg, logging.Noop()); err == nil {
		t.Fatal("expected an error for an undeclared link destination")
	}
}

func TestFormatForPath(t *testing.T) {
	cases := map[string]bool{
		"scenario.json": true,
		"scenario.yaml": false,
		"scenario.yml":  false,
		"noext":         false,
	}
	for path, wantJSON := range cases {
		gotJSON := formatForPath(path) == scenario.FormatJSON
		if gotJSON != wantJSON {
			t.Errorf("formatForPath(%q): got json=%v, want %v", path, gotJSON, wantJSON)
		}
	}
}
