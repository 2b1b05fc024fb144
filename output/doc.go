// Package output writes the artifacts spec §6 names a completed run
// persists: node_log.txt, loaded_network.json, loaded_node_config.txt,
// node_stats.txt/node_stats_total.txt, msg_history.txt/.csv,
// sim_end_state.txt, and per-node CZML visualization tracks. It is grounded
// on original_source/source/astroNS/interfaces/outputdatawriter.py, which
// the spec explicitly calls out of scope as a concrete implementation (spec
// §1 "out of scope... output writers") but whose column layouts and file
// names SPEC_FULL.md's persisted-artifacts section requires verbatim for a
// complete repo.
package output
