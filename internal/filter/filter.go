// Package filter applies exclusion rules to artist names and cascades the
// resulting removals over the manifest, the singer identifier mapping, and
// the on-disk audio tree. Removal is a two-phase operation: the removal
// set is computed and written to the audit log first, the in-memory
// manifest and mapping are edited and persisted second, and directories
// are deleted from disk last. A crash before persistence leaves the
// original artifacts untouched.
package filter

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	"github.com/franz/voiceset/internal/identity"
	"github.com/franz/voiceset/internal/manifest"
	"github.com/franz/voiceset/internal/report"
	"github.com/franz/voiceset/internal/util"
)

// Rule is one case-insensitive exclusion pattern over artist names
type Rule struct {
	Name    string
	Pattern string
	re      *regexp.Regexp
}

// DefaultRules returns the exclusion rules for artist names that cannot
// identify a single singer: collaborations, ensembles, DJs, unknown or
// collective acts.
func DefaultRules() []Rule {
	rules := []Rule{
		{Name: "featuring", Pattern: `feat\.`},
		{Name: "versus", Pattern: `vs\.`},
		{Name: "collaboration", Pattern: `&|,| with `},
		{Name: "ensemble", Pattern: `orchestra|philharmonic|philharmoniker|symphonica|symphon|chamber|ensemble|piano|strings?\b|concerto|choir|chorus`},
		{Name: "ensemble-cjk", Pattern: `交响|乐团|协奏曲|合唱`},
		{Name: "dj", Pattern: `dj |d\.j\.`},
		{Name: "unknown", Pattern: `unknown|anonymous`},
		{Name: "collective", Pattern: `collection|collective`},
	}
	for i := range rules {
		rules[i].re = regexp.MustCompile(`(?i)` + rules[i].Pattern)
	}
	return rules
}

// Compile builds a Rule from a raw pattern, matched case-insensitively
func Compile(name, pattern string) (Rule, error) {
	re, err := regexp.Compile(`(?i)` + pattern)
	if err != nil {
		return Rule{}, fmt.Errorf("invalid exclusion pattern %q: %w", pattern, err)
	}
	return Rule{Name: name, Pattern: pattern, re: re}, nil
}

// Exclude reports whether an artist name matches any exclusion rule.
// Empty names are always excluded.
func Exclude(rules []Rule, artist string) (string, bool) {
	if artist == "" {
		return "missing artist name", true
	}
	for _, r := range rules {
		if r.re.MatchString(artist) {
			return r.Name, true
		}
	}
	return "", false
}

// Removal is one row of the computed removal set
type Removal struct {
	Row    int
	Track  string
	Artist string
	Reason string
}

// Plan computes the removal set for a manifest without mutating anything
func Plan(m *manifest.Manifest, cols manifest.Columns, rules []Rule) []Removal {
	var removals []Removal
	for i := 0; i < m.Len(); i++ {
		artist := m.Value(i, cols.Artist)
		if reason, excluded := Exclude(rules, artist); excluded {
			removals = append(removals, Removal{
				Row:    i,
				Track:  m.Value(i, manifest.ColLocalFileName),
				Artist: artist,
				Reason: reason,
			})
		}
	}
	return removals
}

// Result summarizes an Apply pass
type Result struct {
	RowsRemoved    int
	IDsRetracted   int
	DirsDeleted    int
	DeleteFailures []error
}

// Apply executes a removal set. Order of operations:
//
//  1. every removal is written to the audit log
//  2. rows are dropped from the in-memory manifest
//  3. matching singer IDs are retracted from the mapping
//  4. audio directories are deleted from disk
//
// The caller persists the manifest and mapping between 3 and 4 via the
// persist callback; Apply refuses to touch the filesystem if it fails.
func Apply(ctx context.Context, m *manifest.Manifest, mapping *identity.Mapping,
	removals []Removal, audioDir string, logger *report.EventLogger,
	persist func() error) (*Result, error) {

	result := &Result{}
	if len(removals) == 0 {
		return result, nil
	}

	// Phase 1: audit trail before any mutation
	for _, r := range removals {
		if err := logger.LogRemoval(r.Track, r.Artist, filepath.Join(audioDir, r.Track), r.Reason); err != nil {
			return nil, fmt.Errorf("failed to write removal log: %w", err)
		}
		util.InfoLog("Removing %q (artist %q): %s", r.Track, r.Artist, r.Reason)
	}

	// Phase 2: manifest rows
	drop := make(map[int]bool, len(removals))
	for _, r := range removals {
		drop[r.Row] = true
	}
	removed := m.Filter(func(i int, row manifest.Row) bool {
		return !drop[i]
	})
	result.RowsRemoved = len(removed)

	// Phase 3: identifier mapping
	if mapping != nil {
		for _, r := range removals {
			if id, ok := mapping.Resolve(r.Artist); ok {
				mapping.Retract(id)
				result.IDsRetracted++
			}
		}
	}

	if err := persist(); err != nil {
		return nil, fmt.Errorf("failed to persist manifest and mapping, filesystem untouched: %w", err)
	}

	// Phase 4: filesystem, only after persistence succeeded
	for _, r := range removals {
		select {
		case <-ctx.Done():
			return result, ctx.Err()
		default:
		}

		if r.Track == "" {
			continue
		}
		dir := filepath.Join(audioDir, r.Track)
		if !util.DirExists(dir) {
			continue
		}
		if err := os.RemoveAll(dir); err != nil {
			util.WarnLog("Failed to delete %s: %v", dir, err)
			result.DeleteFailures = append(result.DeleteFailures, err)
			continue
		}
		result.DirsDeleted++
	}

	return result, nil
}
