package core

import (
	"fmt"
	"math/rand"
	"regexp"
	"strconv"
	"strings"

	"github.com/sideshow-paul/astroNS/model"
)

// Predicate evaluates to true or false against a message at a given simtime
// (spec §4.4).
type Predicate func(simtime float64, msg *model.Message) bool

// AlwaysTrue is the predicate used for an empty, "~", or "null" predicate
// string.
func AlwaysTrue(float64, *model.Message) bool { return true }

type predicatePattern struct {
	re      *regexp.Regexp
	builder func(groups []string) Predicate
}

// patternTable is the ordered list of (regex, builder) pairs tried in
// priority order; the first match wins, exactly as design note 9 and the
// Python original (original_source/.../links/predicates/*.py, dispatched
// through links/predicates/__init__.py's `patterns` list) prescribe.
// Longer/more specific operators (==, !=, <=, >=) are listed before their
// single-character prefixes (<, >) so the prefix form never shadows them.
var patternTable = []predicatePattern{
	{regexp.MustCompile(`^(.+?)\s+==\s+(.+)$`), buildCompare("==")},
	{regexp.MustCompile(`^(.+?)\s+!=\s+(.+)$`), buildCompare("!=")},
	{regexp.MustCompile(`^(.+?)\s+<=\s+(.+)$`), buildCompare("<=")},
	{regexp.MustCompile(`^(.+?)\s+>=\s+(.+)$`), buildCompare(">=")},
	{regexp.MustCompile(`^(.+?)\s+<\s+(.+)$`), buildCompare("<")},
	{regexp.MustCompile(`^(.+?)\s+>\s+(.+)$`), buildCompare(">")},
	{regexp.MustCompile(`^(.+?)\s+EXISTS$`), buildExists(true)},
	{regexp.MustCompile(`^(.+?)\s+NOT_EXISTS$`), buildExists(false)},
	// Supplemental forms carried over from the Python original, not in
	// spec.md's table (SPEC_FULL.md §4.7):
	{regexp.MustCompile(`^(.+?)\s+starts_with\s+(.+)$`), buildStartsWith},
	{regexp.MustCompile(`^(.+?)\s+regex\s+'(.*)'$`), buildRegex(true)},
	{regexp.MustCompile(`^(.+?)\s+failed_reg\s+'(.*)'$`), buildRegex(false)},
	{regexp.MustCompile(`^(\d+)\s*<=>\s*(\d+)$`), buildPercentage},
}

// ParsePredicate compiles a predicate string into a Predicate function. An
// empty string, "~", or "null" is always-true (spec §4.4). A string that
// matches no pattern is a load-time error (spec §7 "Predicate parse
// failure").
func ParsePredicate(raw string) (Predicate, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" || trimmed == "~" || trimmed == "null" {
		return AlwaysTrue, nil
	}
	for _, p := range patternTable {
		if groups := p.re.FindStringSubmatch(trimmed); groups != nil {
			return p.builder(groups[1:]), nil
		}
	}
	return nil, fmt.Errorf("predicate %q: no matching pattern", raw)
}

// leftSideValue resolves the left-hand side of a predicate, special-casing
// the implicit SimTime symbol, matching left_side_value in the Python
// original (common/left_side_value.py).
func leftSideValue(simtime float64, msg *model.Message, field string) (model.Value, bool) {
	if field == "SimTime" {
		return simtime, true
	}
	return msg.Field(field)
}

func buildExists(wantExists bool) func([]string) Predicate {
	return func(groups []string) Predicate {
		field := strings.TrimSpace(groups[0])
		return func(simtime float64, msg *model.Message) bool {
			if field == "SimTime" {
				return wantExists
			}
			_, ok := msg.Field(field)
			return ok == wantExists
		}
	}
}

func buildCompare(op string) func([]string) Predicate {
	return func(groups []string) Predicate {
		field := strings.TrimSpace(groups[0])
		literal := strings.TrimSpace(groups[1])
		return func(simtime float64, msg *model.Message) bool {
			lhs, ok := leftSideValue(simtime, msg, field)
			if !ok {
				// Unknown field: predicate is false, never an error
				// (spec §4.4, §7 "Predicate false-on-unknown-field").
				return false
			}
			return compareValues(lhs, literal, op)
		}
	}
}

func compareValues(lhs model.Value, literal string, op string) bool {
	if lf, rf, ok := asFloats(lhs, literal); ok {
		switch op {
		case "==":
			return lf == rf
		case "!=":
			return lf != rf
		case "<":
			return lf < rf
		case "<=":
			return lf <= rf
		case ">":
			return lf > rf
		case ">=":
			return lf >= rf
		}
	}
	// Non-numeric comparison: only equality/inequality are meaningful.
	rs := unquote(literal)
	ls := fmt.Sprintf("%v", lhs)
	switch op {
	case "==":
		return ls == rs
	case "!=":
		return ls != rs
	default:
		return false
	}
}

func asFloats(lhs model.Value, literal string) (float64, float64, bool) {
	var lf float64
	switch v := lhs.(type) {
	case float64:
		lf = v
	case int:
		lf = float64(v)
	case bool:
		if v {
			lf = 1
		}
	default:
		return 0, 0, false
	}
	rf, err := strconv.ParseFloat(literal, 64)
	if err != nil {
		if literal == "True" {
			return lf, 1, true
		}
		if literal == "False" {
			return lf, 0, true
		}
		return 0, 0, false
	}
	return lf, rf, true
}

func unquote(s string) string {
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		return s[1 : len(s)-1]
	}
	if len(s) >= 2 && s[0] == '\'' && s[len(s)-1] == '\'' {
		return s[1 : len(s)-1]
	}
	return s
}

func buildStartsWith(groups []string) Predicate {
	field := strings.TrimSpace(groups[0])
	prefix := unquote(strings.TrimSpace(groups[1]))
	return func(simtime float64, msg *model.Message) bool {
		v, ok := leftSideValue(simtime, msg, field)
		if !ok {
			return false
		}
		return strings.HasPrefix(fmt.Sprintf("%v", v), prefix)
	}
}

func buildRegex(wantMatch bool) func([]string) Predicate {
	return func(groups []string) Predicate {
		field := strings.TrimSpace(groups[0])
		re, err := regexp.Compile(groups[1])
		if err != nil {
			return func(float64, *model.Message) bool { return false }
		}
		return func(simtime float64, msg *model.Message) bool {
			v, ok := leftSideValue(simtime, msg, field)
			if !ok {
				return false
			}
			matched := re.MatchString(fmt.Sprintf("%v", v))
			return matched == wantMatch
		}
	}
}

// buildPercentage implements the "<start> <=> <end>" routing predicate: the
// link layer stamps each message with a random_router_value in [0,100)
// before fan-out (see link_layer.go), and the predicate checks that value
// falls within the declared bucket. Grounded on
// original_source/.../links/predicates/percentage.py and NodePipe.py's
// insertion of a random_router_value field.
func buildPercentage(groups []string) Predicate {
	start, _ := strconv.Atoi(groups[0])
	end, _ := strconv.Atoi(groups[1])
	return func(simtime float64, msg *model.Message) bool {
		v, ok := msg.Field("random_router_value")
		if !ok {
			return false
		}
		n, ok := v.(int)
		if !ok {
			return false
		}
		return n >= start && n <= end
	}
}

// StampRouterValue assigns the per-message random bucket used by percentage
// predicates, seeded from the engine-owned RNG (design note 9: "replace
// process-wide random stream with explicit engine-scoped objects").
func StampRouterValue(msg *model.Message, rng *rand.Rand) {
	msg.Payload["random_router_value"] = rng.Intn(100)
}
