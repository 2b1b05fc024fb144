// Package scenario parses the declarative scenario file format (spec §6)
// and builds the kb.Registry/core.Engine graph it describes. It is a
// replacement for the teacher's
// core/scenario_loader.go (network-interface/connectivity-service oriented,
// deleted — see DESIGN.md), generalized to the node/link/behavior model
// this engine actually runs.
//
// It lives outside package core because the graph it builds spans core
// (Engine, Node, Predicate), kb (Registry) and nodelib (the built-in
// Behavior library) — core cannot import kb without an import cycle (kb
// already imports core), so the wiring step that needs all three has to
// live one level up.
package scenario
