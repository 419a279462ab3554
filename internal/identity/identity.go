// Package identity maps noisy artist-name strings to stable canonical
// singer IDs (idNNNNN). Two names that are equal after lowercasing and
// trimming surrounding whitespace are the same singer.
package identity

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/franz/voiceset/internal/util"
)

// SingerInfo holds the canonical form and every raw variation observed
// for one singer ID
type SingerInfo struct {
	Lowercase  string   `json:"lowercase"`
	Variations []string `json:"variations"`
}

// Mapping associates canonical singer IDs with artist names. IDs are
// allocated monotonically in first-seen order and are never reused, even
// after entries are retracted.
type Mapping struct {
	singers map[string]*SingerInfo // id -> info
	byName  map[string]string      // canonical name -> id
	nextID  int
}

// NewMapping returns an empty mapping with ID allocation starting at id00001
func NewMapping() *Mapping {
	return &Mapping{
		singers: make(map[string]*SingerInfo),
		byName:  make(map[string]string),
		nextID:  1,
	}
}

// Canonical normalizes an artist name for identity grouping:
// surrounding whitespace is trimmed and the result lowercased
func Canonical(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// FormatID renders a numeric singer index as the canonical idNNNNN form
func FormatID(n int) string {
	return fmt.Sprintf("id%05d", n)
}

// Load reads a mapping from its JSON artifact. ID allocation resumes past
// the highest ID present so retracted IDs are never handed out again.
func Load(path string) (*Mapping, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read singer mapping %s: %w", path, err)
	}

	var raw map[string]*SingerInfo
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse singer mapping %s: %w", path, err)
	}

	m := NewMapping()
	for id, info := range raw {
		m.singers[id] = info
		m.byName[info.Lowercase] = id
		if n, ok := parseID(id); ok && n >= m.nextID {
			m.nextID = n + 1
		}
	}
	return m, nil
}

func parseID(id string) (int, bool) {
	if !strings.HasPrefix(id, "id") {
		return 0, false
	}
	n, err := strconv.Atoi(strings.TrimPrefix(id, "id"))
	if err != nil {
		return 0, false
	}
	return n, true
}

// Save writes the mapping JSON artifact atomically
func (m *Mapping) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create mapping directory: %w", err)
	}

	data, err := json.MarshalIndent(m.singers, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode singer mapping: %w", err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("failed to write singer mapping: %w", err)
	}
	return os.Rename(tmp, path)
}

// Len returns the number of singer IDs in the mapping
func (m *Mapping) Len() int {
	return len(m.singers)
}

// IDs returns all singer IDs in ascending ID order
func (m *Mapping) IDs() []string {
	ids := make([]string, 0, len(m.singers))
	for id := range m.singers {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Info returns the singer info for an ID, or nil if absent
func (m *Mapping) Info(id string) *SingerInfo {
	return m.singers[id]
}

// Resolve returns the singer ID for an artist name, if one is assigned
func (m *Mapping) Resolve(name string) (string, bool) {
	id, ok := m.byName[Canonical(name)]
	return id, ok
}

// Allocate returns the singer ID for an artist name, assigning the next
// unused ID if the canonical name has not been seen. The raw variation is
// recorded either way.
func (m *Mapping) Allocate(name string) string {
	canonical := Canonical(name)
	id, ok := m.byName[canonical]
	if !ok {
		id = FormatID(m.nextID)
		m.nextID++
		m.singers[id] = &SingerInfo{Lowercase: canonical}
		m.byName[canonical] = id
	}
	m.addVariation(id, name)
	return id
}

func (m *Mapping) addVariation(id, raw string) {
	info := m.singers[id]
	for _, v := range info.Variations {
		if v == raw {
			return
		}
	}
	info.Variations = append(info.Variations, raw)
}

// Retract removes a singer ID from the mapping. The ID number is not
// returned to the allocation pool.
func (m *Mapping) Retract(id string) {
	info, ok := m.singers[id]
	if !ok {
		return
	}
	delete(m.byName, info.Lowercase)
	delete(m.singers, id)
}

// Mode selects how unmapped artists are handled during assignment
type Mode int

const (
	// ModeFresh allocates a new ID for every unseen canonical name
	ModeFresh Mode = iota
	// ModeStrict resolves against a pre-existing mapping only; any artist
	// absent from it fails the step
	ModeStrict
	// ModePermissive resolves against a pre-existing mapping and allocates
	// new IDs for artists absent from it
	ModePermissive
)

// Assigner assigns singer IDs to a sequence of artist names in first-seen
// order over the manifest rows
type Assigner struct {
	Mapping *Mapping
	Mode    Mode
}

// Assign resolves every artist name to a singer ID and returns the per-row
// IDs in input order. In ModeStrict the whole batch fails, listing every
// unresolved artist, before the mapping is touched.
func (a *Assigner) Assign(names []string) ([]string, error) {
	if a.Mode == ModeStrict {
		var unresolved []string
		seen := make(map[string]bool)
		for _, name := range names {
			canonical := Canonical(name)
			if _, ok := a.Mapping.byName[canonical]; !ok && !seen[canonical] {
				seen[canonical] = true
				unresolved = append(unresolved, name)
			}
		}
		if len(unresolved) > 0 {
			return nil, fmt.Errorf("%w: %d artist(s) absent from supplied mapping: %s",
				util.ErrIdentity, len(unresolved), strings.Join(unresolved, "; "))
		}
	}

	ids := make([]string, len(names))
	for i, name := range names {
		ids[i] = a.Mapping.Allocate(name)
	}
	return ids, nil
}
