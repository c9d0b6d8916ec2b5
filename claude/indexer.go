package claude

import (
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/xiaoyuanzhu-com/my-life-db/db"
	"github.com/xiaoyuanzhu-com/my-life-db/fs"
	"github.com/xiaoyuanzhu-com/my-life-db/log"
	"github.com/xiaoyuanzhu-com/my-life-db/stream"
)

var indexerLogger = log.GetLogger("Indexer")

// Indexer performs the initial full scan of the archive root and then
// watches it for changes, keeping the store's indexed fields in sync with
// the JSONL files on disk. It never deletes a row, even when the backing
// file disappears — that's the store's delete API's job.
type Indexer struct {
	store       *db.Store
	broadcaster *stream.Broadcaster
	archiveRoot string
	batchSize   int

	running  atomic.Bool
	stopping atomic.Bool

	watcher   *fsnotify.Watcher
	debouncer *fs.Debouncer
	stopCh    chan struct{}
	wg        sync.WaitGroup
}

// NewIndexer wires an Indexer to its store and broadcaster. debounce is the
// per-file coalescing window for the watch path.
func NewIndexer(store *db.Store, broadcaster *stream.Broadcaster, archiveRoot string, batchSize int, debounce time.Duration) *Indexer {
	idx := &Indexer{
		store:       store,
		broadcaster: broadcaster,
		archiveRoot: archiveRoot,
		batchSize:   batchSize,
	}
	idx.debouncer = fs.NewDebouncer(debounce, idx.processDebounced)
	return idx
}

// Start is idempotent: if already running it logs a warning and returns.
// Otherwise it launches the initial full scan in the background and
// installs the filesystem watcher once the scan completes, so events
// arriving mid-scan are re-observed via the mtime comparison in the next
// full scan rather than lost.
func (idx *Indexer) Start() {
	if !idx.running.CompareAndSwap(false, true) {
		indexerLogger.Warn().Msg("indexer already running")
		return
	}

	idx.stopCh = make(chan struct{})

	idx.wg.Add(1)
	go func() {
		defer idx.wg.Done()

		idx.fullScan()

		if idx.stopping.Load() {
			return
		}
		if err := idx.startWatcher(); err != nil {
			indexerLogger.Error().Err(err).Msg("failed to start filesystem watcher")
		}
	}()
}

// Stop cancels pending debounce timers, closes the watcher, and waits for
// the background scan/watch goroutines to exit.
func (idx *Indexer) Stop() {
	if !idx.stopping.CompareAndSwap(false, true) {
		return
	}

	idx.debouncer.Stop()
	if idx.watcher != nil {
		idx.watcher.Close()
	}
	if idx.stopCh != nil {
		close(idx.stopCh)
	}
	idx.wg.Wait()
}

// fullScan lists every indexable *.jsonl under archiveRoot, skips files
// whose mtime hasn't moved since the last recorded scan (within a 1s
// slack), and upserts the rest in batches.
func (idx *Indexer) fullScan() {
	entries, err := os.ReadDir(idx.archiveRoot)
	if err != nil {
		indexerLogger.Warn().Err(err).Str("root", idx.archiveRoot).Msg("failed to list archive root")
		return
	}

	var batch []db.IndexedMetadata

	for _, projectEntry := range entries {
		if idx.stopping.Load() {
			break
		}
		if !projectEntry.IsDir() {
			continue
		}

		projectDir := filepath.Join(idx.archiveRoot, projectEntry.Name())
		files, err := os.ReadDir(projectDir)
		if err != nil {
			indexerLogger.Warn().Err(err).Str("dir", projectDir).Msg("failed to list project directory")
			continue
		}

		for _, f := range files {
			if idx.stopping.Load() {
				break
			}
			if f.IsDir() || !isIndexableSessionFile(f.Name()) {
				continue
			}

			path := filepath.Join(projectDir, f.Name())
			meta, ok := idx.scanIfStale(path)
			if !ok {
				continue
			}
			if meta != nil {
				batch = append(batch, *meta)
			}

			if len(batch) >= idx.batchSize {
				idx.flush(batch)
				batch = batch[:0]
			}
		}
	}

	idx.flush(batch)
}

// scanIfStale compares path's mtime against the stored watermark and scans
// only when it has moved forward by more than the slack window. The second
// return value is false when the file should be skipped entirely (stat
// failure or up to date); a nil metadata with ok=true means the scan ran
// but produced nothing worth storing.
func (idx *Indexer) scanIfStale(path string) (*db.IndexedMetadata, bool) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, false
	}

	mtimeMs := info.ModTime().UnixMilli()
	id := sessionIDFromPath(path)

	stored, exists, err := idx.store.LastScannedAtMs(id)
	if err != nil {
		indexerLogger.Warn().Err(err).Str("sessionId", id).Msg("failed to read scan watermark")
		return nil, false
	}
	if exists && stored >= mtimeMs-1000 {
		return nil, false
	}

	meta, err := ScanFile(path, mtimeMs)
	if err != nil {
		indexerLogger.Warn().Err(err).Str("path", path).Msg("failed to scan session file")
		return nil, false
	}
	return meta, true
}

func (idx *Indexer) flush(batch []db.IndexedMetadata) {
	if len(batch) == 0 {
		return
	}
	if err := idx.store.UpsertIndexedFields(batch); err != nil {
		indexerLogger.Error().Err(err).Int("batchSize", len(batch)).Msg("failed to upsert indexed batch")
	}
}

// startWatcher installs a recursive fsnotify watch over archiveRoot and
// starts the event loop goroutine.
func (idx *Indexer) startWatcher() error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	idx.watcher = w

	if err := idx.watchRecursive(idx.archiveRoot); err != nil {
		return err
	}

	idx.wg.Add(1)
	go idx.eventLoop()

	return nil
}

func (idx *Indexer) watchRecursive(root string) error {
	return filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil
		}
		if info.IsDir() {
			if err := idx.watcher.Add(path); err != nil {
				indexerLogger.Warn().Err(err).Str("path", path).Msg("failed to watch directory")
			}
		}
		return nil
	})
}

func (idx *Indexer) eventLoop() {
	defer idx.wg.Done()

	for {
		select {
		case event, ok := <-idx.watcher.Events:
			if !ok {
				return
			}
			idx.handleEvent(event)

		case err, ok := <-idx.watcher.Errors:
			if !ok {
				return
			}
			indexerLogger.Error().Err(err).Msg("filesystem watcher error")

		case <-idx.stopCh:
			return
		}
	}
}

func (idx *Indexer) handleEvent(event fsnotify.Event) {
	info, statErr := os.Stat(event.Name)

	if statErr != nil {
		if event.Op&(fsnotify.Remove|fsnotify.Rename) != 0 && isIndexableSessionFile(filepath.Base(event.Name)) {
			idx.debouncer.Queue(event.Name, fs.EventDelete)
		}
		return
	}

	if info.IsDir() {
		if event.Op&fsnotify.Create != 0 {
			idx.watcher.Add(event.Name)
		}
		return
	}

	if !isIndexableSessionFile(filepath.Base(event.Name)) {
		return
	}

	switch {
	case event.Op&fsnotify.Create != 0:
		idx.debouncer.Queue(event.Name, fs.EventCreate)
	case event.Op&fsnotify.Write != 0:
		idx.debouncer.Queue(event.Name, fs.EventWrite)
	}
}

// processDebounced is the debouncer's callback: it fires once per
// coalesced burst of events for a single file.
func (idx *Indexer) processDebounced(path string, eventType fs.EventType) {
	if eventType == fs.EventDelete {
		// The store never deletes rows for a vanished file; the absence is
		// reported at read time instead.
		return
	}

	info, err := os.Stat(path)
	if err != nil {
		// Gone by the time the timer fired — drop without error.
		return
	}

	meta, err := ScanFile(path, info.ModTime().UnixMilli())
	if err != nil {
		indexerLogger.Warn().Err(err).Str("path", path).Msg("failed to scan session file")
		return
	}
	if meta == nil {
		return
	}

	if err := idx.store.UpsertIndexedFields([]db.IndexedMetadata{*meta}); err != nil {
		indexerLogger.Error().Err(err).Str("sessionId", meta.SessionID).Msg("failed to upsert session")
		return
	}

	idx.broadcaster.Broadcast(globalBroadcastID, stream.Event{
		Type:      stream.EventIndexUpdate,
		SessionID: meta.SessionID,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

const globalBroadcastID = "global"
