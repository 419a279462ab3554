// Package manifest implements the tabular record set that is the single
// source of truth for which assets exist in a dataset. Rows keep their
// on-disk order end to end: singer ID allocation is first-seen over this
// order, so the manifest is an ordered slice, never a map.
package manifest

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"

	"github.com/franz/voiceset/internal/util"
)

// Well-known derived column names added by pipeline steps.
const (
	ColLocalFileName = "local_file_name"
	ColSingerID      = "singer_id"
	ColTrackHash     = "track_hash"
	ColSplit         = "split"
)

// Columns names the source CSV headers the pipeline reads.
// The defaults match the upstream export format; all three can be
// overridden from the CLI.
type Columns struct {
	URI      string
	FileName string
	Artist   string
}

// DefaultColumns returns the column names used when no overrides are given
func DefaultColumns() Columns {
	return Columns{
		URI:      "uri",
		FileName: ColLocalFileName,
		Artist:   "artist_name",
	}
}

// Row is one asset record, field-aligned with the manifest header
type Row []string

// Manifest is an ordered set of asset records plus the header row
type Manifest struct {
	header []string
	index  map[string]int
	rows   []Row
}

// New creates an empty manifest with the given header
func New(header []string) *Manifest {
	m := &Manifest{header: append([]string(nil), header...)}
	m.reindex()
	return m
}

func (m *Manifest) reindex() {
	m.index = make(map[string]int, len(m.header))
	for i, name := range m.header {
		m.index[name] = i
	}
}

// Load reads a manifest CSV from path. A missing file, an empty file, or a
// row with the wrong field count yields an error wrapping util.ErrManifest.
func Load(path string) (*Manifest, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", util.ErrManifest, path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", util.ErrManifest, path, err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("%w: %s: no header row", util.ErrManifest, path)
	}

	m := New(records[0])
	m.rows = make([]Row, 0, len(records)-1)
	for _, rec := range records[1:] {
		m.rows = append(m.rows, Row(rec))
	}
	return m, nil
}

// Save writes the manifest to path atomically (temp file + rename)
func (m *Manifest) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create manifest directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".manifest-*.csv")
	if err != nil {
		return fmt.Errorf("failed to create temp manifest: %w", err)
	}
	defer os.Remove(tmp.Name())

	w := csv.NewWriter(tmp)
	if err := w.Write(m.header); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write manifest header: %w", err)
	}
	for _, row := range m.rows {
		if err := w.Write(row); err != nil {
			tmp.Close()
			return fmt.Errorf("failed to write manifest row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to flush manifest: %w", err)
	}
	// CreateTemp opens the file 0600; match the other dataset artifacts
	if err := tmp.Chmod(0644); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to set manifest permissions: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp manifest: %w", err)
	}

	return os.Rename(tmp.Name(), path)
}

// Header returns the header row
func (m *Manifest) Header() []string {
	return m.header
}

// Len returns the number of rows
func (m *Manifest) Len() int {
	return len(m.rows)
}

// Rows returns the ordered rows. Callers must not reorder the slice.
func (m *Manifest) Rows() []Row {
	return m.rows
}

// HasColumn reports whether the named column exists
func (m *Manifest) HasColumn(name string) bool {
	_, ok := m.index[name]
	return ok
}

// RequireColumns verifies that every named column exists in the header
func (m *Manifest) RequireColumns(names ...string) error {
	for _, name := range names {
		if !m.HasColumn(name) {
			return fmt.Errorf("%w: missing required column %q (have %v)",
				util.ErrManifest, name, m.header)
		}
	}
	return nil
}

// Value returns the value of the named column in row i, or "" if the
// column does not exist
func (m *Manifest) Value(i int, name string) string {
	col, ok := m.index[name]
	if !ok || col >= len(m.rows[i]) {
		return ""
	}
	return m.rows[i][col]
}

// Set stores a value in the named column of row i, growing the row if the
// column was added after the row was loaded
func (m *Manifest) Set(i int, name, value string) error {
	col, ok := m.index[name]
	if !ok {
		return fmt.Errorf("manifest has no column %q", name)
	}
	for len(m.rows[i]) <= col {
		m.rows[i] = append(m.rows[i], "")
	}
	m.rows[i][col] = value
	return nil
}

// AddColumn appends an empty column with the given name. Adding an
// existing column is a no-op.
func (m *Manifest) AddColumn(name string) {
	if m.HasColumn(name) {
		return
	}
	m.header = append(m.header, name)
	m.reindex()
	for i := range m.rows {
		m.rows[i] = append(m.rows[i], "")
	}
}

// Append adds a row to the end of the manifest
func (m *Manifest) Append(row Row) {
	m.rows = append(m.rows, row)
}

// Filter keeps rows for which keep returns true and returns the removed
// rows in their original order so callers can cascade deletions to the
// filesystem and the identifier mapping. keep may read the current row
// through Value(i, ...): compaction never writes at or beyond the row
// being visited.
func (m *Manifest) Filter(keep func(i int, row Row) bool) []Row {
	kept := m.rows[:0]
	var removed []Row
	for i, row := range m.rows {
		if keep(i, row) {
			kept = append(kept, row)
		} else {
			removed = append(removed, row)
		}
	}
	m.rows = kept
	return removed
}
