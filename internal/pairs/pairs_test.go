package pairs

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

func buildTestSplit(t *testing.T) string {
	t.Helper()
	testDir := filepath.Join(t.TempDir(), "test")

	fixtures := map[string][]string{
		"id00003/aaa111": {"00001.wav", "00002.wav", "00003.wav"},
		"id00007/bbb222": {"00001.wav"},
		"id00007/ccc333": {"00001.wav", "00002.wav"},
		"id00009/ddd444": {"00001.wav"},
	}
	for dir, files := range fixtures {
		full := filepath.Join(testDir, filepath.FromSlash(dir))
		if err := os.MkdirAll(full, 0755); err != nil {
			t.Fatalf("fixture setup: %v", err)
		}
		for _, f := range files {
			if err := os.WriteFile(filepath.Join(full, f), []byte("RIFF"), 0644); err != nil {
				t.Fatalf("fixture setup: %v", err)
			}
		}
	}
	return testDir
}

func TestGenerateLabels(t *testing.T) {
	testDir := buildTestSplit(t)

	pairs, err := Generate(testDir, Options{Seed: 42})
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if len(pairs) == 0 {
		t.Fatal("expected pairs to be generated")
	}

	for _, p := range pairs {
		sa := strings.SplitN(p.A, "/", 2)[0]
		sb := strings.SplitN(p.B, "/", 2)[0]
		switch p.Label {
		case 1:
			if sa != sb {
				t.Errorf("positive pair spans singers: %s %s", p.A, p.B)
			}
		case 0:
			if sa == sb {
				t.Errorf("negative pair within one singer: %s %s", p.A, p.B)
			}
		default:
			t.Errorf("unknown label %d", p.Label)
		}
	}

	// id00003 has 3 segments -> 3 positive pairs; id00007 has 3 across two
	// tracks -> 3; id00009 has a single segment -> none
	positives := 0
	for _, p := range pairs {
		if p.Label == 1 {
			positives++
		}
	}
	if positives != 6 {
		t.Errorf("expected 6 positive pairs, got %d", positives)
	}
}

func TestGenerateNoDuplicatePairs(t *testing.T) {
	testDir := buildTestSplit(t)

	pairs, err := Generate(testDir, Options{Seed: 42})
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	seen := make(map[string]bool)
	for _, p := range pairs {
		key := pairKey(p.A, p.B)
		if seen[key] {
			t.Errorf("duplicate pair: %s %s", p.A, p.B)
		}
		seen[key] = true
	}
}

func TestGenerateDeterministic(t *testing.T) {
	testDir := buildTestSplit(t)

	first, err := Generate(testDir, Options{Seed: 42})
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	second, err := Generate(testDir, Options{Seed: 42})
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Error("same seed produced different pair lists")
	}
}

func TestGenerateMaxPerSinger(t *testing.T) {
	testDir := buildTestSplit(t)

	pairs, err := Generate(testDir, Options{Seed: 42, MaxPerSinger: 1})
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	perSinger := make(map[string]int)
	for _, p := range pairs {
		if p.Label == 1 {
			perSinger[strings.SplitN(p.A, "/", 2)[0]]++
		}
	}
	for singer, n := range perSinger {
		if n > 1 {
			t.Errorf("singer %s has %d positive pairs, cap was 1", singer, n)
		}
	}
}

func TestWriteFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test_pairs.txt")
	pairs := []Pair{
		{Label: 1, A: "id00001/aaa/00001.wav", B: "id00001/aaa/00002.wav"},
		{Label: 0, A: "id00001/aaa/00001.wav", B: "id00002/bbb/00001.wav"},
	}

	if err := Write(path, pairs); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read pairs file: %v", err)
	}
	want := "1 id00001/aaa/00001.wav id00001/aaa/00002.wav\n" +
		"0 id00001/aaa/00001.wav id00002/bbb/00001.wav\n"
	if string(data) != want {
		t.Errorf("unexpected file content:\n%s", data)
	}
}
