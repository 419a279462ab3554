package util

import (
	"os"
	"path/filepath"
	"sort"
)

// DirExists reports whether path exists and is a directory
func DirExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

// FileExists reports whether path exists and is a regular file
func FileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

// PruneEmptyDirs removes empty directories below root, deepest first.
// The root itself is never removed. Returns the number of directories removed.
func PruneEmptyDirs(root string) (int, error) {
	type dirEntry struct {
		depth int
		path  string
	}

	var dirs []dirEntry
	err := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() || path == root {
			return nil
		}
		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			return relErr
		}
		dirs = append(dirs, dirEntry{depth: countSeparators(rel), path: path})
		return nil
	})
	if err != nil {
		return 0, err
	}

	// Deepest first so nested empty dirs collapse upward
	sort.Slice(dirs, func(i, j int) bool { return dirs[i].depth > dirs[j].depth })

	removed := 0
	for _, d := range dirs {
		entries, err := os.ReadDir(d.path)
		if err != nil {
			continue
		}
		if len(entries) == 0 {
			if err := os.Remove(d.path); err == nil {
				removed++
			}
		}
	}
	return removed, nil
}

func countSeparators(rel string) int {
	n := 0
	for _, r := range rel {
		if r == filepath.Separator {
			n++
		}
	}
	return n
}
