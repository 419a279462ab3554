package split

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/franz/voiceset/internal/identity"
	"github.com/franz/voiceset/internal/manifest"
)

func idRange(n int) []string {
	ids := make([]string, n)
	for i := range ids {
		ids[i] = identity.FormatID(i + 1)
	}
	return ids
}

func TestAssignCounts(t *testing.T) {
	testCases := []struct {
		singers                 int
		train, validation, test int
	}{
		{100, 80, 10, 10},
		{10, 8, 1, 1},
		{3, 2, 0, 1}, // floor(2.4), floor(0.3), remainder
		{1, 0, 0, 1},
		{25, 20, 2, 3},
	}

	for _, tc := range testCases {
		a := Assign(idRange(tc.singers), nil, DefaultSeed)
		counts := Counts(a)
		if counts[Train] != tc.train || counts[Validation] != tc.validation || counts[Test] != tc.test {
			t.Errorf("%d singers: got %d/%d/%d, want %d/%d/%d",
				tc.singers, counts[Train], counts[Validation], counts[Test],
				tc.train, tc.validation, tc.test)
		}
	}
}

func TestAssignDeterministic(t *testing.T) {
	ids := idRange(100)

	first := Assign(ids, nil, DefaultSeed)
	second := Assign(ids, nil, DefaultSeed)
	if !reflect.DeepEqual(first, second) {
		t.Error("same seed and ID set produced different assignments")
	}

	// Input order must not matter
	reversed := make([]string, len(ids))
	for i, id := range ids {
		reversed[len(ids)-1-i] = id
	}
	third := Assign(reversed, nil, DefaultSeed)
	if !reflect.DeepEqual(first, third) {
		t.Error("input order changed the assignment")
	}

	// A different seed must produce a different partition (overwhelmingly
	// likely for 100 singers)
	other := Assign(ids, nil, 7)
	if reflect.DeepEqual(first, other) {
		t.Error("different seeds produced identical assignments")
	}
}

func TestAssignDisjointCover(t *testing.T) {
	ids := idRange(37)
	a := Assign(ids, nil, DefaultSeed)

	if len(a) != len(ids) {
		t.Fatalf("expected %d assigned singers, got %d", len(ids), len(a))
	}
	for _, id := range ids {
		split, ok := a[id]
		if !ok {
			t.Errorf("singer %s has no split", id)
		}
		if split != Train && split != Validation && split != Test {
			t.Errorf("singer %s has unknown split %q", id, split)
		}
	}
}

func TestReferenceOverride(t *testing.T) {
	ids := idRange(50)
	ref := Assignment{
		"id00001": Test,
		"id00010": Validation,
		"id00033": Train,
		"id99999": Test, // not in current dataset, must be ignored
	}

	for _, seed := range []int64{1, 42, 1234} {
		a := Assign(ids, ref, seed)
		if a["id00001"] != Test || a["id00010"] != Validation || a["id00033"] != Train {
			t.Errorf("seed %d: reference assignments not inherited: %v %v %v",
				seed, a["id00001"], a["id00010"], a["id00033"])
		}
		if _, ok := a["id99999"]; ok {
			t.Errorf("seed %d: reference-only singer leaked into assignment", seed)
		}
		if len(a) != len(ids) {
			t.Errorf("seed %d: expected %d singers, got %d", seed, len(ids), len(a))
		}
	}
}

func TestLoadReference(t *testing.T) {
	var rows string
	rows = "uri,singer_id,split\n"
	rows += "gs://b/a.wav,id00001,train\n"
	rows += "gs://b/b.wav,id00002,val\n"
	rows += "gs://b/c.wav,id00003,2\n"
	rows += "gs://b/d.wav,,test\n"

	path := filepath.Join(t.TempDir(), "subset_split.csv")
	if err := os.WriteFile(path, []byte(rows), 0644); err != nil {
		t.Fatalf("fixture setup: %v", err)
	}

	ref, err := LoadReference(path)
	if err != nil {
		t.Fatalf("LoadReference failed: %v", err)
	}

	want := Assignment{
		"id00001": Train,
		"id00002": Validation,
		"id00003": Test,
	}
	if !reflect.DeepEqual(ref, want) {
		t.Errorf("expected %v, got %v", want, ref)
	}
}

func TestAnnotate(t *testing.T) {
	m := manifest.New([]string{"uri", "singer_id"})
	for i := 1; i <= 4; i++ {
		m.Append(manifest.Row{fmt.Sprintf("gs://b/%d.wav", i), identity.FormatID((i + 1) / 2)})
	}

	assignment := Assignment{"id00001": Train, "id00002": Test}
	if err := Annotate(m, assignment); err != nil {
		t.Fatalf("Annotate failed: %v", err)
	}

	if got := m.Value(0, manifest.ColSplit); got != Train {
		t.Errorf("row 0: expected train, got %q", got)
	}
	if got := m.Value(3, manifest.ColSplit); got != Test {
		t.Errorf("row 3: expected test, got %q", got)
	}
}
