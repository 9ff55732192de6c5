package features

import (
	"context"
)

// FlagSubscriptions gates the subscriptions API
const FlagSubscriptions = "subscriptions"

// Flags reports whether a flag is enabled for a distinct id
type Flags interface {
	Enabled(ctx context.Context, flag, distinctID string) bool
}

// AllEnabled enables every flag
type AllEnabled struct{}

// Enabled always returns true
func (AllEnabled) Enabled(ctx context.Context, flag, distinctID string) bool {
	return true
}

// Flag is the rule set of one flag
type Flag struct {
	Enabled bool     `yaml:"enabled"`
	Allow   []string `yaml:"allow"`
	Deny    []string `yaml:"deny"`
}

// Document is the content of a flag file
type Document struct {
	DefaultEnabled bool            `yaml:"default_enabled"`
	Flags          map[string]Flag `yaml:"flags"`
}

type rule struct {
	enabled bool
	allow   map[string]bool
	deny    map[string]bool
}

// ruleSet is an immutable compiled Document
type ruleSet struct {
	defaultEnabled bool
	rules          map[string]rule
}

func compile(doc Document) *ruleSet {
	rs := &ruleSet{defaultEnabled: doc.DefaultEnabled, rules: make(map[string]rule, len(doc.Flags))}
	for name, flag := range doc.Flags {
		r := rule{enabled: flag.Enabled, allow: make(map[string]bool), deny: make(map[string]bool)}
		for _, id := range flag.Allow {
			r.allow[id] = true
		}
		for _, id := range flag.Deny {
			r.deny[id] = true
		}
		rs.rules[name] = r
	}
	return rs
}

func (rs *ruleSet) enabled(flag, distinctID string) bool {
	r, ok := rs.rules[flag]
	if !ok {
		return rs.defaultEnabled
	}
	if r.deny[distinctID] {
		return false
	}
	if r.allow[distinctID] {
		return true
	}
	return r.enabled
}

// Static evaluates a fixed Document
type Static struct {
	rules *ruleSet
}

// NewStatic creates flags from an in-memory document
func NewStatic(doc Document) *Static {
	return &Static{rules: compile(doc)}
}

// Enabled implements Flags
func (s *Static) Enabled(ctx context.Context, flag, distinctID string) bool {
	return s.rules.enabled(flag, distinctID)
}
