// Package taxonomy holds the fixed set of label names a tracker recognizes as
// canonical. A Taxonomy is built once at startup and is read-only afterwards,
// so a single instance can be shared by any number of goroutines.
package taxonomy

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"golang.org/x/text/cases"
	"gopkg.in/yaml.v3"
)

// ErrEmpty is returned when a taxonomy would contain no labels.
var ErrEmpty = errors.New("taxonomy has no labels")

// Taxonomy is an ordered list of canonical labels with a case-insensitive index.
type Taxonomy struct {
	entries []string
	index   map[string]int // folded label -> position in entries
}

// New builds a Taxonomy from canonical label strings, preserving their order.
// Entries are trimmed; blank entries and case-insensitive duplicates are rejected.
func New(labels []string) (*Taxonomy, error) {
	if len(labels) == 0 {
		return nil, ErrEmpty
	}

	t := &Taxonomy{
		entries: make([]string, 0, len(labels)),
		index:   make(map[string]int, len(labels)),
	}
	for i, raw := range labels {
		label := strings.TrimSpace(raw)
		if label == "" {
			return nil, fmt.Errorf("taxonomy entry %d is blank", i)
		}
		key := Fold(label)
		if prev, ok := t.index[key]; ok {
			return nil, fmt.Errorf("taxonomy entry %q duplicates %q (case-insensitive)", label, t.entries[prev])
		}
		t.index[key] = len(t.entries)
		t.entries = append(t.entries, label)
	}
	return t, nil
}

// MustNew is like New but panics on error. Intended for package-level literals.
func MustNew(labels []string) *Taxonomy {
	t, err := New(labels)
	if err != nil {
		panic(err)
	}
	return t
}

// Lookup returns the canonical casing of label when it matches an entry
// ignoring case.
func (t *Taxonomy) Lookup(label string) (string, bool) {
	i, ok := t.index[Fold(strings.TrimSpace(label))]
	if !ok {
		return "", false
	}
	return t.entries[i], true
}

// Contains reports whether label matches an entry ignoring case.
func (t *Taxonomy) Contains(label string) bool {
	_, ok := t.Lookup(label)
	return ok
}

// Entries returns a copy of the canonical labels in their configured order.
func (t *Taxonomy) Entries() []string {
	out := make([]string, len(t.entries))
	copy(out, t.entries)
	return out
}

// Len returns the number of canonical labels.
func (t *Taxonomy) Len() int {
	return len(t.entries)
}

// Fold returns the case-folded form of s used for all case-insensitive comparisons.
// A fresh Caser is used per call because cases.Caser is not safe for concurrent use.
func Fold(s string) string {
	return cases.Fold().String(s)
}

// File is the on-disk YAML layout of a taxonomy file.
type File struct {
	Labels []string `yaml:"labels"`
}

// LoadFile reads a taxonomy from a YAML file of the form:
//
//	labels:
//	  - bug
//	  - c-CLI
func LoadFile(path string) (*Taxonomy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading taxonomy file: %w", err)
	}

	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing taxonomy file: %w", err)
	}

	t, err := New(f.Labels)
	if err != nil {
		return nil, fmt.Errorf("invalid taxonomy in %s: %w", path, err)
	}
	return t, nil
}

// Load returns the taxonomy at path, or the built-in default when path is empty.
func Load(path string) (*Taxonomy, error) {
	if path == "" {
		return Default(), nil
	}
	return LoadFile(path)
}
