package staticfile

import (
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/opsnet/asyncio/internal/rlog"
)

const (
	monitorPollInterval = 1 * time.Second
	monitorIdleTimeout  = 5 * time.Second
)

var monitorLog = rlog.For("staticfile.monitor")

// monitor is the background task of spec section 4.15: it polls the
// filesystem every monitorPollInterval, rebuilding changed files' FileInfo
// (old entry removed first so no client ever sees new bytes with stale
// headers) and dropping deleted ones. It exits after monitorIdleTimeout of
// handler idleness and is reactivated by the next request, which first
// drains all accumulated changes synchronously before the poll loop
// resumes. fsnotify is wired in only to wake the poll loop early between
// ticks; stat-diffing against the in-memory FileInfo remains the source of
// truth for what actually changed.
type monitor struct {
	h *Handler

	mu           sync.Mutex
	running      bool
	lastActivity time.Time
	stopCh       chan struct{}

	watcher *fsnotify.Watcher
}

func newMonitor(h *Handler) *monitor {
	return &monitor{h: h, lastActivity: time.Now()}
}

// touch records request activity and, if the poll loop has idled out,
// synchronously drains one poll pass before restarting the background
// loop — so the caller's own request always sees an up-to-date map.
func (m *monitor) touch() {
	m.mu.Lock()
	m.lastActivity = time.Now()
	running := m.running
	m.mu.Unlock()

	if running {
		return
	}
	m.pollOnce()
	m.start()
}

func (m *monitor) start() {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return
	}
	m.running = true
	m.stopCh = make(chan struct{})
	stopCh := m.stopCh
	m.mu.Unlock()

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		monitorLog.WithError(err).Warn("fsnotify unavailable, falling back to poll-only")
		watcher = nil
	} else {
		addWatchDirs(watcher, m.h.root)
	}
	m.mu.Lock()
	m.watcher = watcher
	m.mu.Unlock()

	go m.loop(stopCh, watcher)
}

func addWatchDirs(w *fsnotify.Watcher, root string) {
	_ = filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil || d == nil || !d.IsDir() {
			return nil
		}
		_ = w.Add(path)
		return nil
	})
}

func (m *monitor) loop(stopCh chan struct{}, watcher *fsnotify.Watcher) {
	ticker := time.NewTicker(monitorPollInterval)
	defer ticker.Stop()
	defer func() {
		if watcher != nil {
			watcher.Close()
		}
	}()

	var events <-chan fsnotify.Event
	if watcher != nil {
		events = watcher.Events
	}

	for {
		select {
		case <-stopCh:
			return
		case <-ticker.C:
			m.mu.Lock()
			idle := time.Since(m.lastActivity) >= monitorIdleTimeout
			m.mu.Unlock()
			if idle {
				m.mu.Lock()
				m.running = false
				m.mu.Unlock()
				return
			}
			m.pollOnce()
		case _, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			m.pollOnce()
		}
	}
}

// pollOnce re-walks the root, leaving every file whose size and modtime
// match its current FileInfo untouched (so its lazily-built gzip cache
// survives), rebuilding FileInfo only for files that actually changed, and
// removing entries for files no longer seen.
func (m *monitor) pollOnce() {
	h := m.h
	confMod := h.cfg.ConfMod
	if confMod == nil {
		confMod = DefaultFileConfig
	}

	known := map[string]*FileInfo{}
	for _, fi := range h.snapshotInfos() {
		known[fi.RelPath] = fi
	}
	seen := map[string]bool{}

	err := filepath.WalkDir(h.root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, rerr := filepath.Rel(h.root, path)
		if rerr != nil {
			return rerr
		}
		rel = filepath.ToSlash(rel)
		if h.cfg.PathMatcher != nil && !h.cfg.PathMatcher(rel) {
			return nil
		}
		fc := confMod(rel)
		if fc.Exclude {
			return nil
		}
		seen[rel] = true

		stat, ierr := d.Info()
		if ierr != nil {
			return ierr
		}
		if existing, ok := known[rel]; ok && stat.Size() == existing.Size && stat.ModTime().Equal(existing.ModTime) {
			return nil
		}
		newFI := h.buildFileInfo(rel, path, stat, fc)
		h.replaceFile(rel, newFI, fc)
		return nil
	})
	if err != nil {
		monitorLog.WithError(err).Warn("rescan failed")
	}

	for rel := range known {
		if !seen[rel] {
			h.replaceFile(rel, nil, FileConfig{})
		}
	}
}
