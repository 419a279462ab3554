package storage

import (
	"context"
	"fmt"
	"strings"

	"github.com/franz/voiceset/internal/util"
)

// FlattenResult summarizes a flatten pass
type FlattenResult struct {
	Copied    int
	Flattened int
	Skipped   int
	Errors    int
}

// FlattenedPrefix returns the destination prefix for a flatten pass
func FlattenedPrefix(prefix string) string {
	return strings.TrimSuffix(prefix, "/") + "_FLATTENED/"
}

// Flatten reshapes a song-level object layout, where each track's audio
// lives at <prefix>/<track>/<stem>.wav, into a flat layout at
// <prefix>_FLATTENED/<track>.wav. The original prefix is left untouched:
// every object is first copied under the flattened prefix, then the
// copies are collapsed by copy-and-delete. Objects already flat under
// the prefix are skipped. A prefix with no nested objects is a no-op.
func Flatten(ctx context.Context, store ObjectStore, prefix string) (*FlattenResult, error) {
	if !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	flatPrefix := FlattenedPrefix(prefix)

	keys, err := store.List(ctx, prefix)
	if err != nil {
		return nil, fmt.Errorf("failed to list source prefix: %w", err)
	}

	var wavKeys []string
	nested := false
	for _, key := range keys {
		if !strings.HasSuffix(key, ".wav") {
			continue
		}
		wavKeys = append(wavKeys, key)
		rel := strings.TrimPrefix(key, prefix)
		if strings.Contains(rel, "/") {
			nested = true
		}
	}

	result := &FlattenResult{}
	if !nested {
		util.InfoLog("All %d objects under %s are already flat, nothing to do", len(wavKeys), prefix)
		return result, nil
	}

	util.InfoLog("Copying %d objects to %s", len(wavKeys), flatPrefix)
	for _, key := range wavKeys {
		select {
		case <-ctx.Done():
			return result, ctx.Err()
		default:
		}

		rel := strings.TrimPrefix(key, prefix)
		if err := store.Copy(ctx, key, flatPrefix+rel); err != nil {
			util.WarnLog("Copy failed for %s: %v", key, err)
			result.Errors++
			continue
		}
		result.Copied++
	}

	copied, err := store.List(ctx, flatPrefix)
	if err != nil {
		return result, fmt.Errorf("failed to list flattened prefix: %w", err)
	}

	for _, key := range copied {
		select {
		case <-ctx.Done():
			return result, ctx.Err()
		default:
		}

		if !strings.HasSuffix(key, ".wav") {
			continue
		}
		rel := strings.TrimPrefix(key, flatPrefix)
		parts := strings.Split(strings.TrimSuffix(rel, "/"), "/")
		if len(parts) < 2 {
			result.Skipped++
			continue
		}

		// <parents...>/<track>/<stem>.wav collapses to <parents...>/<track>.wav
		track := parts[len(parts)-2]
		parents := parts[:len(parts)-2]
		flatKey := flatPrefix + track + ".wav"
		if len(parents) > 0 {
			flatKey = flatPrefix + strings.Join(parents, "/") + "/" + track + ".wav"
		}
		if flatKey == key {
			result.Skipped++
			continue
		}

		if err := store.Copy(ctx, key, flatKey); err != nil {
			util.WarnLog("Flatten copy failed for %s: %v", key, err)
			result.Errors++
			continue
		}
		if err := store.Delete(ctx, key); err != nil {
			util.WarnLog("Flatten delete failed for %s: %v", key, err)
			result.Errors++
			continue
		}
		result.Flattened++
	}

	return result, nil
}
