package model

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Config is a node's resolved configuration: the raw scenario option map
// after DEFAULT-section merging. It offers typed accessors with declared
// defaults, mirroring the Python original's setBoolFromConfig /
// setFloatFromConfig / setIntFromConfig / setStringFromConfig helpers
// (original_source/.../nodes/core/base.py) — one coercion helper per
// primitive type, never a fatal error for a bad value, just a warning
// collected on the Config for the loader to log.
type Config struct {
	raw      map[string]Value
	warnings []string
}

// NewConfig wraps a raw option map resolved by the scenario loader.
func NewConfig(raw map[string]Value) *Config {
	if raw == nil {
		raw = map[string]Value{}
	}
	return &Config{raw: raw}
}

// Warnings returns the coercion warnings (a value that could not be
// converted to the requested type) accumulated since construction, for the
// loader to log. Config keeps no list of recognized options, so an unknown
// option produces no warning.
func (c *Config) Warnings() []string { return append([]string(nil), c.warnings...) }

func (c *Config) warnf(format string, args ...any) {
	c.warnings = append(c.warnings, fmt.Sprintf(format, args...))
}

// Has reports whether the option was present in the raw map.
func (c *Config) Has(key string) bool {
	_, ok := c.raw[key]
	return ok
}

// Bool coerces option key to a bool, defaulting to def. Accepts native
// bools, and the strings "true"/"false" (case-insensitive), matching the
// permissive style of the Python coercion helpers.
func (c *Config) Bool(key string, def bool) bool {
	v, ok := c.raw[key]
	if !ok {
		return def
	}
	switch t := v.(type) {
	case bool:
		return t
	case string:
		b, err := strconv.ParseBool(strings.TrimSpace(t))
		if err != nil {
			c.warnf("option %q: cannot coerce %q to bool, using default %v", key, t, def)
			return def
		}
		return b
	default:
		c.warnf("option %q: unsupported type %T for bool, using default %v", key, v, def)
		return def
	}
}

// Int coerces option key to an int, defaulting to def.
func (c *Config) Int(key string, def int) int {
	v, ok := c.raw[key]
	if !ok {
		return def
	}
	switch t := v.(type) {
	case int:
		return t
	case int64:
		return int(t)
	case float64:
		return int(t)
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(t))
		if err != nil {
			c.warnf("option %q: cannot coerce %q to int, using default %v", key, t, def)
			return def
		}
		return n
	default:
		c.warnf("option %q: unsupported type %T for int, using default %v", key, v, def)
		return def
	}
}

// Float coerces option key to a float64, defaulting to def.
func (c *Config) Float(key string, def float64) float64 {
	v, ok := c.raw[key]
	if !ok {
		return def
	}
	switch t := v.(type) {
	case float64:
		return t
	case int:
		return float64(t)
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			c.warnf("option %q: cannot coerce %q to float, using default %v", key, t, def)
			return def
		}
		return f
	default:
		c.warnf("option %q: unsupported type %T for float, using default %v", key, v, def)
		return def
	}
}

// String coerces option key to a string, defaulting to def.
func (c *Config) String(key string, def string) string {
	v, ok := c.raw[key]
	if !ok {
		return def
	}
	switch t := v.(type) {
	case string:
		return t
	default:
		return fmt.Sprintf("%v", t)
	}
}

// StringSlice coerces option key to a []string, defaulting to def.
func (c *Config) StringSlice(key string, def []string) []string {
	v, ok := c.raw[key]
	if !ok {
		return def
	}
	switch t := v.(type) {
	case []string:
		return t
	case []any:
		out := make([]string, 0, len(t))
		for _, item := range t {
			out = append(out, fmt.Sprintf("%v", item))
		}
		return out
	default:
		c.warnf("option %q: unsupported type %T for string slice, using default", key, v)
		return def
	}
}

// Time coerces option key to an ISO-8601 UTC time.Time, defaulting to def.
func (c *Config) Time(key string, def time.Time) time.Time {
	v, ok := c.raw[key]
	if !ok {
		return def
	}
	s, ok := v.(string)
	if !ok {
		c.warnf("option %q: unsupported type %T for time, using default", key, v)
		return def
	}
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02T15:04:05.999999Z"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC()
		}
	}
	c.warnf("option %q: cannot parse %q as ISO-8601 time, using default", key, s)
	return def
}

// Raw returns the underlying option, useful for node types that need an
// arbitrary nested structure (e.g. AndGate's condition list).
func (c *Config) Raw(key string) (Value, bool) {
	v, ok := c.raw[key]
	return v, ok
}

// MergeDefaults overlays def values for any key present in def but absent
// from the receiver, mirroring the scenario file's top-level DEFAULT
// mapping semantics (spec §6): per-node config wins, DEFAULT fills gaps.
func MergeDefaults(nodeCfg, defaults map[string]Value) map[string]Value {
	merged := make(map[string]Value, len(nodeCfg)+len(defaults))
	for k, v := range defaults {
		merged[k] = v
	}
	for k, v := range nodeCfg {
		merged[k] = v
	}
	return merged
}
