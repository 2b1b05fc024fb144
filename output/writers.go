package output

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/sideshow-paul/astroNS/core"
)

// ResultsDirName builds the run's results directory name (spec §6:
// "./Results/<network_name><start_iso>", colons replaced with dashes and
// dots with underscores so the path is filesystem-safe on every platform).
func ResultsDirName(networkName string, start time.Time) string {
	iso := start.UTC().Format(time.RFC3339Nano)
	safe := make([]byte, 0, len(iso))
	for i := 0; i < len(iso); i++ {
		switch c := iso[i]; c {
		case ':':
			safe = append(safe, '-')
		case '.':
			safe = append(safe, '_')
		default:
			safe = append(safe, c)
		}
	}
	return filepath.Join("Results", networkName+string(safe))
}

// WriteNodeLog writes node_log.txt, the tab-separated per-hop history spec
// §6 specifies: "SimTime, Node, Data_ID, Data_Size, Wait_time,
// Processing_time, Delay_to_Next".
func WriteNodeLog(path string, entries []core.HistoryEntry) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %q: %w", path, err)
	}
	defer f.Close()

	if _, err := io.WriteString(f, "SimTime\tNode\tData_ID\tData_Size\tWait_time\tProcessing_time\tDelay_to_Next\n"); err != nil {
		return err
	}
	for _, e := range entries {
		line := fmt.Sprintf("%f\t%s\t%s\t%f\t%f\t%f\t%f\n",
			e.SimTime, e.Node, e.MessageID, e.SizeMbits, e.WaitTime, e.ProcessingTime, e.NextHopDelay)
		if _, err := io.WriteString(f, line); err != nil {
			return fmt.Errorf("write %q: %w", path, err)
		}
	}
	return nil
}

// WriteMsgHistoryText writes msg_history.txt in the Python original's
// human-readable per-message grouping
// (original_source/.../interfaces/outputdatawriter.py's output_msg_history).
func WriteMsgHistoryText(path string, entries []core.HistoryEntry) error {
	byID := groupByMessage(entries)

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %q: %w", path, err)
	}
	defer f.Close()

	ids := sortedKeys(byID)
	for _, id := range ids {
		if _, err := fmt.Fprintf(f, "\nMsg: %s\n", id); err != nil {
			return err
		}
		for _, e := range byID[id] {
			if _, err := fmt.Fprintf(f, "%f %s wait=%f processing=%f delay_to_next=%f size=%f\n",
				e.SimTime, e.Node, e.WaitTime, e.ProcessingTime, e.NextHopDelay, e.SizeMbits); err != nil {
				return err
			}
		}
	}
	return nil
}

// WriteMsgHistoryCSV writes msg_history.csv, the tabular counterpart of
// WriteMsgHistoryText (output_msg_history_tab in the Python original).
func WriteMsgHistoryCSV(path string, entries []core.HistoryEntry) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %q: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	if err := w.Write([]string{"id", "simtime", "node", "wait_time", "processing_time", "delay_to_next", "data_size"}); err != nil {
		return err
	}
	for _, e := range entries {
		row := []string{
			e.MessageID,
			strconv.FormatFloat(e.SimTime, 'f', -1, 64),
			e.Node,
			strconv.FormatFloat(e.WaitTime, 'f', -1, 64),
			strconv.FormatFloat(e.ProcessingTime, 'f', -1, 64),
			strconv.FormatFloat(e.NextHopDelay, 'f', -1, 64),
			strconv.FormatFloat(e.SizeMbits, 'f', -1, 64),
		}
		if err := w.Write(row); err != nil {
			return fmt.Errorf("write %q: %w", path, err)
		}
	}
	return nil
}

// WriteNodeStats writes node_stats.txt: one block per node with its
// counters, matching the Python original's output_node_stats layout.
func WriteNodeStats(path string, stats map[string]core.NodeStats) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %q: %w", path, err)
	}
	defer f.Close()

	for _, name := range sortedStatsKeys(stats) {
		ns := stats[name]
		if _, err := fmt.Fprintf(f, "\nNode: %s\n", name); err != nil {
			return err
		}
		if _, err := fmt.Fprintf(f, "  ingress=%d egress=%d dropped=%d max_queue_depth=%d\n",
			ns.Ingress, ns.Egress, ns.Dropped, ns.MaxQueueDepth); err != nil {
			return err
		}
		if _, err := fmt.Fprintf(f, "  total_wait_time=%f total_processed=%f\n",
			ns.TotalWaitTime, ns.TotalProcessed); err != nil {
			return err
		}
		for _, dest := range sortedIntKeys(ns.EdgeDrops) {
			if _, err := fmt.Fprintf(f, "  edge_drop[%s]=%d\n", dest, ns.EdgeDrops[dest]); err != nil {
				return err
			}
		}
	}
	return nil
}

// WriteNodeStatsTotal writes node_stats_total.txt, the run-wide rollup of
// every node's counters (output_node_overall_stats in the Python original).
func WriteNodeStatsTotal(path string, stats map[string]core.NodeStats) error {
	var total core.NodeStats
	total.EdgeDrops = map[string]int{}
	for _, ns := range stats {
		total.Ingress += ns.Ingress
		total.Egress += ns.Egress
		total.Dropped += ns.Dropped
		total.TotalWaitTime += ns.TotalWaitTime
		total.TotalProcessed += ns.TotalProcessed
		if ns.MaxQueueDepth > total.MaxQueueDepth {
			total.MaxQueueDepth = ns.MaxQueueDepth
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %q: %w", path, err)
	}
	defer f.Close()

	_, err = fmt.Fprintf(f, "ingress=%d egress=%d dropped=%d max_queue_depth=%d total_wait_time=%f total_processed=%f\n",
		total.Ingress, total.Egress, total.Dropped, total.MaxQueueDepth, total.TotalWaitTime, total.TotalProcessed)
	return err
}

// WriteSimEndState writes sim_end_state.txt: the final reservation state of
// every node (output_sim_end_state in the Python original).
func WriteSimEndState(path string, nodeNames []string, stateOf func(name string) string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %q: %w", path, err)
	}
	defer f.Close()

	names := append([]string(nil), nodeNames...)
	sort.Strings(names)
	for _, name := range names {
		if _, err := fmt.Fprintf(f, "%s: %s\n", name, stateOf(name)); err != nil {
			return err
		}
	}
	return nil
}

// WriteLoadedNodeConfig writes loaded_node_config.txt, a human-diffable
// listing of every node's merged config, so a scenario author can confirm
// DEFAULT-merging and option spelling resolved the way they intended (spec
// §6, output_loaded_config in the Python original).
func WriteLoadedNodeConfig(path string, nodeNames []string, rawConfig func(name string) map[string]any) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %q: %w", path, err)
	}
	defer f.Close()

	names := append([]string(nil), nodeNames...)
	sort.Strings(names)
	for _, name := range names {
		if _, err := fmt.Fprintf(f, "\n%s\n", name); err != nil {
			return err
		}
		cfg := rawConfig(name)
		keys := make([]string, 0, len(cfg))
		for k := range cfg {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			if _, err := fmt.Fprintf(f, "  %s: %v\n", k, cfg[k]); err != nil {
				return err
			}
		}
	}
	return nil
}

func groupByMessage(entries []core.HistoryEntry) map[string][]core.HistoryEntry {
	out := make(map[string][]core.HistoryEntry)
	for _, e := range entries {
		out[e.MessageID] = append(out[e.MessageID], e)
	}
	return out
}

func sortedKeys(m map[string][]core.HistoryEntry) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func sortedStatsKeys(m map[string]core.NodeStats) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func sortedIntKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
