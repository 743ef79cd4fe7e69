package results

import (
	"encoding/json"
	"os"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// Streamer re-reads a growing results file while the runner is still
// writing it. Polling is pull-based: the host decides when to call Poll,
// and every failure path degrades to "no results yet".
type Streamer struct {
	path       string
	sourceFile string
	logger     Logger

	watcher  *fsnotify.Watcher
	stopOnce sync.Once

	dirty    bool
	lastSize int64
	cached   map[string]TestResult
}

// NewStreamer creates a streamer bound to the results file at path.
// sourceFile scopes the error-location recovery during interim parses.
// When the fsnotify watch cannot be established the streamer silently
// falls back to decoding on every poll.
func NewStreamer(path, sourceFile string, logger Logger) *Streamer {
	if logger == nil {
		logger = noopLogger{}
	}

	s := &Streamer{
		path:       path,
		sourceFile: sourceFile,
		logger:     logger,
		dirty:      true,
		lastSize:   -1,
	}

	watcher, err := fsnotify.NewWatcher()
	if err == nil {
		if addErr := watcher.Add(path); addErr == nil {
			s.watcher = watcher
		} else {
			logger.Debug("streamer: cannot watch %s: %v", path, addErr)
			_ = watcher.Close()
		}
	} else {
		logger.Debug("streamer: fsnotify unavailable: %v", err)
	}

	return s
}

// Poll reads the full current contents of the results file and returns the
// interim results. An unreadable file, invalid JSON, or a report without a
// suites entry all yield an empty map, never an error. When the file has
// not changed since the last poll the previous batch is returned without
// re-decoding.
func (s *Streamer) Poll() map[string]TestResult {
	if !s.changed() {
		return s.cached
	}

	data, err := os.ReadFile(s.path)
	if err != nil {
		s.logger.Debug("streamer: read %s: %v", s.path, err)
		return map[string]TestResult{}
	}

	var report Report
	if err := json.Unmarshal(data, &report); err != nil {
		// Mid-write JSON is expected while the runner is still going.
		s.logger.Debug("streamer: interim decode: %v", err)
		return map[string]TestResult{}
	}
	if report.Suites == nil {
		return map[string]TestResult{}
	}

	s.cached = Parse(&report, s.sourceFile, "", s.logger)
	s.dirty = false
	return s.cached
}

// changed reports whether the results file may hold new content. Watch
// events are drained without blocking; a size change also counts because
// reporters may replace the file by rename, which drops the watch.
func (s *Streamer) changed() bool {
	if s.watcher == nil {
		return true
	}

	for {
		select {
		case event, ok := <-s.watcher.Events:
			if !ok {
				return true
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) != 0 {
				s.dirty = true
			}
		case err, ok := <-s.watcher.Errors:
			if !ok {
				return true
			}
			s.logger.Debug("streamer: watch error: %v", err)
		default:
			if info, err := os.Stat(s.path); err == nil && info.Size() != s.lastSize {
				s.lastSize = info.Size()
				s.dirty = true
			}
			return s.dirty
		}
	}
}

// Stop releases the watch resources. It is idempotent and safe to call
// even when no poll ever succeeded.
func (s *Streamer) Stop() {
	s.stopOnce.Do(func() {
		if s.watcher != nil {
			_ = s.watcher.Close()
			s.watcher = nil
		}
	})
}
