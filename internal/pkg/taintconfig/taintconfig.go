// Package taintconfig defines the Configuration object spec.md §6
// describes: the allow-lists the model parser (C8) rejects unknown
// kinds and features against, plus a small set of verification rules
// evaluated with github.com/expr-lang/expr. Loaded with sigs.k8s.io/yaml,
// the way the teacher's internal/pkg/config package loads its own
// YAML-backed configuration.
package taintconfig

import (
	"fmt"

	"sigs.k8s.io/yaml"
)

// Rule is one verification predicate, evaluated once per modeled
// callable during C8's optional verification pass. Predicate is an
// expr-lang expression with `callable` (string) bound in its
// environment; it must evaluate to a bool, and a false result fails
// verification for that callable with an InvalidModel naming Name.
type Rule struct {
	Name      string `json:"name"`
	Predicate string `json:"predicate"`
}

// Configuration is the allow-list and rule set the model parser
// validates every annotation against (spec.md §6).
type Configuration struct {
	Sources  []string `json:"sources"`
	Sinks    []string `json:"sinks"`
	Features []string `json:"features"`
	Rules    []Rule   `json:"rules"`
}

// Parse decodes a YAML-encoded Configuration.
func Parse(data []byte) (Configuration, error) {
	var c Configuration
	if err := yaml.Unmarshal(data, &c); err != nil {
		return Configuration{}, fmt.Errorf("parsing configuration: %w", err)
	}
	return c, nil
}

// HasSource reports whether k is in the configured source allow-list.
func (c Configuration) HasSource(k string) bool { return contains(c.Sources, k) }

// HasSink reports whether k is in the configured sink allow-list.
func (c Configuration) HasSink(k string) bool { return contains(c.Sinks, k) }

// HasFeature reports whether f is in the configured Via feature
// allow-list.
func (c Configuration) HasFeature(f string) bool { return contains(c.Features, f) }

func contains(xs []string, s string) bool {
	for _, x := range xs {
		if x == s {
			return true
		}
	}
	return false
}
