// Package ingest materializes the remote manifest locally: every track
// is downloaded from object storage, split on silence, and journaled so
// an interrupted run resumes where it stopped.
package ingest

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/schollz/progressbar/v3"

	"github.com/franz/voiceset/internal/audio"
	"github.com/franz/voiceset/internal/manifest"
	"github.com/franz/voiceset/internal/report"
	"github.com/franz/voiceset/internal/state"
	"github.com/franz/voiceset/internal/storage"
	"github.com/franz/voiceset/internal/util"
)

// Config holds ingest configuration
type Config struct {
	Store       storage.ObjectStore
	Splitter    audio.Splitter
	Journal     *state.Store
	Logger      *report.EventLogger
	Columns     manifest.Columns
	Concurrency int

	// URIIsDir indicates the manifest URI points at a per-track
	// directory (gs://bucket/path/<track>/vocals.wav) rather than a flat
	// file (gs://bucket/path/<track>.wav).
	URIIsDir bool
}

// Ingestor downloads and splits manifest tracks with a worker pool
type Ingestor struct {
	cfg Config
}

// New creates an ingestor
func New(cfg Config) *Ingestor {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 4
	}
	if cfg.Columns == (manifest.Columns{}) {
		cfg.Columns = manifest.DefaultColumns()
	}
	return &Ingestor{cfg: cfg}
}

// Result summarizes an ingest pass
type Result struct {
	Processed  int
	Succeeded  int
	Skipped    int
	Failed     int
	Segments   int
	BytesMoved int64
}

type task struct {
	track string
	uri   string
}

// TrackNameFromURI derives the track name from a manifest URI. With
// dirURI the URI names a file inside a per-track directory, so the
// parent directory carries the name; otherwise the file stem does.
func TrackNameFromURI(uri string, dirURI bool) string {
	uri = strings.TrimSuffix(uri, "/")
	if dirURI {
		return filepath.Base(filepath.Dir(uri))
	}
	base := filepath.Base(uri)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// ObjectKeyFromURI strips the scheme and bucket from a full object URI
// (gs://bucket/a/b.wav -> a/b.wav). A bare key passes through.
func ObjectKeyFromURI(uri string) string {
	rest, ok := cutScheme(uri)
	if !ok {
		return uri
	}
	if idx := strings.Index(rest, "/"); idx >= 0 {
		return rest[idx+1:]
	}
	return ""
}

func cutScheme(uri string) (string, bool) {
	idx := strings.Index(uri, "://")
	if idx < 0 {
		return uri, false
	}
	return uri[idx+len("://"):], true
}

// Run ingests every manifest row into datasetDir/audio/<track>/.
// Per-track failures are journaled and skipped; only structural
// problems (journal I/O, cancellation) abort the pass.
func (ing *Ingestor) Run(ctx context.Context, m *manifest.Manifest, datasetDir string) (*Result, error) {
	if err := m.RequireColumns(ing.cfg.Columns.URI); err != nil {
		return nil, err
	}

	audioDir := filepath.Join(datasetDir, "audio")
	if err := os.MkdirAll(audioDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create audio directory: %w", err)
	}
	tmpDir := filepath.Join(datasetDir, ".ingest-tmp")
	if err := os.MkdirAll(tmpDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create staging directory: %w", err)
	}
	defer os.RemoveAll(tmpDir)

	// Register every row so the journal covers the full manifest even if
	// this run is interrupted before reaching a track. Rows resolving to
	// the same track name collapse to one task (the last row wins, same
	// as dedupe); workers rely on each task owning its staging file and
	// destination directory exclusively.
	tasks := make([]task, 0, m.Len())
	byTrack := make(map[string]int, m.Len())
	for i := 0; i < m.Len(); i++ {
		uri := m.Value(i, ing.cfg.Columns.URI)
		if uri == "" {
			continue
		}
		track := TrackNameFromURI(uri, ing.cfg.URIIsDir)
		if err := ing.cfg.Journal.UpsertAsset(track, uri); err != nil {
			return nil, err
		}
		if idx, dup := byTrack[track]; dup {
			tasks[idx].uri = uri
			continue
		}
		byTrack[track] = len(tasks)
		tasks = append(tasks, task{track: track, uri: uri})
	}

	statuses, err := ing.cfg.Journal.StatusMap()
	if err != nil {
		return nil, err
	}

	result := &Result{}
	var succeeded, skipped, failed, segments, bytesMoved atomic.Int64

	var bar *progressbar.ProgressBar
	if util.IsTerminal(os.Stderr.Fd()) && !util.IsQuiet() {
		bar = progressbar.NewOptions(len(tasks),
			progressbar.OptionSetDescription("Ingesting"),
			progressbar.OptionSetWidth(40),
			progressbar.OptionShowCount(),
			progressbar.OptionShowIts(),
			progressbar.OptionSetItsString("tracks"),
			progressbar.OptionThrottle(200*time.Millisecond),
			progressbar.OptionClearOnFinish(),
			progressbar.OptionSetRenderBlankState(true),
		)
	}
	advance := func() {
		if bar != nil {
			bar.Add(1)
		}
	}

	taskChan := make(chan task, ing.cfg.Concurrency*2)
	var wg sync.WaitGroup
	for w := 0; w < ing.cfg.Concurrency; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for t := range taskChan {
				select {
				case <-ctx.Done():
					return
				default:
				}

				if statuses[t.track] == state.StatusDone && util.DirExists(filepath.Join(audioDir, t.track)) {
					skipped.Add(1)
					advance()
					continue
				}

				n, bytes, err := ing.ingestOne(ctx, t, audioDir, tmpDir)
				if err != nil {
					util.WarnLog("Ingest failed for %s: %v", t.track, err)
					ing.cfg.Logger.LogError(report.EventIngest, t.track, err)
					if jerr := ing.cfg.Journal.MarkError(t.track, err.Error()); jerr != nil {
						util.ErrorLog("Journal update failed for %s: %v", t.track, jerr)
					}
					failed.Add(1)
					advance()
					continue
				}

				ing.cfg.Logger.LogIngest(t.track, t.uri, n)
				if jerr := ing.cfg.Journal.MarkDone(t.track, n); jerr != nil {
					util.ErrorLog("Journal update failed for %s: %v", t.track, jerr)
				}
				succeeded.Add(1)
				segments.Add(int64(n))
				bytesMoved.Add(bytes)
				advance()
			}
		}()
	}

	for _, t := range tasks {
		select {
		case <-ctx.Done():
			close(taskChan)
			wg.Wait()
			return result, ctx.Err()
		case taskChan <- t:
		}
	}
	close(taskChan)
	wg.Wait()

	if bar != nil {
		bar.Finish()
	}

	// Tracks that produced no segments leave empty directories behind
	if _, err := util.PruneEmptyDirs(audioDir); err != nil {
		util.WarnLog("Failed to prune empty directories: %v", err)
	}

	result.Processed = len(tasks)
	result.Succeeded = int(succeeded.Load())
	result.Skipped = int(skipped.Load())
	result.Failed = int(failed.Load())
	result.Segments = int(segments.Load())
	result.BytesMoved = bytesMoved.Load()

	util.SuccessLog("Ingest complete: %d tracks (%d new, %d resumed, %d failed), %d segments, %s downloaded",
		result.Processed, result.Succeeded, result.Skipped, result.Failed,
		result.Segments, humanize.Bytes(uint64(result.BytesMoved)))
	return result, nil
}

// ingestOne downloads one track and splits it into audioDir/<track>/
func (ing *Ingestor) ingestOne(ctx context.Context, t task, audioDir, tmpDir string) (int, int64, error) {
	key := ObjectKeyFromURI(t.uri)
	if key == "" {
		return 0, 0, fmt.Errorf("%w: cannot derive object key from %q", util.ErrRemoteIO, t.uri)
	}

	localPath := filepath.Join(tmpDir, t.track+".wav")
	defer os.Remove(localPath)

	err := util.Retry(util.RemoteRetryConfig(), func() error {
		return ing.cfg.Store.Download(ctx, key, localPath)
	}, fmt.Sprintf("download %s", t.track))
	if err != nil {
		return 0, 0, err
	}

	info, err := os.Stat(localPath)
	if err != nil {
		return 0, 0, fmt.Errorf("downloaded file missing: %w", err)
	}

	destDir := filepath.Join(audioDir, t.track)
	n, err := ing.cfg.Splitter.Split(ctx, localPath, destDir)
	if err != nil {
		return 0, 0, fmt.Errorf("split failed: %w", err)
	}
	return n, info.Size(), nil
}
