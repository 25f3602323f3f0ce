package staticfile

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/opsnet/asyncio/pkg/httptype"
	"github.com/opsnet/asyncio/pkg/stream"
)

// Handler maps incoming URIs to FileInfo records held entirely in memory
// (uri2info) and produces static-file responses without ever blocking on
// the hot path (spec section 4.15): discovery, rebuilds, and gzip builds
// are the only operations that touch the filesystem outside a request.
type Handler struct {
	cfg      Config
	root     string
	provider stream.FileChannelProvider
	tmpRoot  string

	mu       sync.RWMutex
	uri2info map[string]*FileInfo

	monitor *monitor
}

// New walks cfg.Root, builds the initial uri2info map, and starts the
// handler ready to serve. The filesystem monitor is started lazily on the
// first request per spec section 4.15 ("the next request reactivates it").
func New(cfg Config) (*Handler, error) {
	provider := cfg.Provider
	if provider == nil {
		provider = stream.SimpleFileChannelProvider{}
	}
	tmpRoot := cfg.TmpDir
	if tmpRoot == "" {
		tmpRoot = filepath.Join(os.TempDir(), "asyncio", "file_handler_gz_cache")
	}
	h := &Handler{
		cfg:      cfg,
		root:     cfg.Root,
		provider: provider,
		tmpRoot:  tmpRoot,
		uri2info: map[string]*FileInfo{},
	}
	h.monitor = newMonitor(h)
	if err := h.discover(); err != nil {
		return nil, err
	}
	return h, nil
}

// discover walks h.root from scratch, populating uri2info. Used at
// construction.
func (h *Handler) discover() error {
	confMod := h.cfg.ConfMod
	if confMod == nil {
		confMod = DefaultFileConfig
	}

	entries := map[string]*FileInfo{}
	err := filepath.WalkDir(h.root, func(path string, d fs.DirEntry, err error) error {
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
		info, ierr := d.Info()
		if ierr != nil {
			return ierr
		}
		fi := h.buildFileInfo(rel, path, info, fc)
		h.registerInfo(entries, rel, fi, fc)
		return nil
	})
	if err != nil {
		return err
	}

	h.mu.Lock()
	h.uri2info = entries
	h.mu.Unlock()
	return nil
}

// buildFileInfo constructs a FileInfo from a discovered file's stat result
// and its resolved FileConfig.
func (h *Handler) buildFileInfo(rel, absPath string, stat os.FileInfo, fc FileConfig) *FileInfo {
	fi := NewFileInfo(rel, absPath, stat.Size(), stat.ModTime(), h.provider)
	fi.ContentType = fc.ContentType
	if fi.ContentType == "" {
		fi.ContentType = ContentTypeForSuffix(rel)
	}
	fi.ETag = fc.ETag
	if fi.ETag == "" {
		fi.ETag = DefaultETag(stat.ModTime())
	}
	fi.Gzip = fc.Gzip
	fi.Cache = fc.Cache
	fi.ExpiresAbsolute = fc.ExpiresAbsolute
	fi.ExpiresRelative = fc.ExpiresRelative
	if fc.ExtraHeaders != nil {
		for k, v := range fc.ExtraHeaders {
			fi.ExtraHeaders[k] = v
		}
	}
	return fi
}

// canonicalURI renders the bare (untagged) URI path for a relative file
// path, joining the handler's prefix.
func (h *Handler) canonicalURI(rel string) string {
	prefix := strings.TrimSuffix(h.cfg.UriPrefix, "/")
	return prefix + "/" + rel
}

// registerInfo inserts fi under its canonical URI and, for index files,
// the parent-directory alternates ("dir/" and "dir") per spec section
// 4.15.
func (h *Handler) registerInfo(entries map[string]*FileInfo, rel string, fi *FileInfo, fc FileConfig) {
	entries[h.canonicalURI(rel)] = fi

	isIndex := fc.IsIndexFile != nil && *fc.IsIndexFile
	if fc.IsIndexFile == nil {
		isIndex = DefaultIsIndexFile(rel)
	}
	if !isIndex {
		return
	}
	dir := strings.TrimSuffix(rel, filepath.Base(rel))
	dir = strings.TrimSuffix(dir, "/")
	withSlash := h.canonicalURI(dir) + "/"
	withoutSlash := h.canonicalURI(dir)
	if dir == "" {
		withSlash = strings.TrimSuffix(h.cfg.UriPrefix, "/") + "/"
		withoutSlash = strings.TrimSuffix(h.cfg.UriPrefix, "/")
	}
	entries[withSlash] = fi
	entries[withoutSlash] = fi
}

// Uri returns the tagged URI for relativeFilePath: the canonical path
// followed by "?<etag>", minimally query-encoded, so that a subsequent
// request with this exact URI is recognized as tagged and served with a
// far-future Expires (spec section 4.15, "Tagged URIs").
func (h *Handler) Uri(relativeFilePath string) (string, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	rel := filepath.ToSlash(relativeFilePath)
	key := h.canonicalURI(rel)
	fi, ok := h.uri2info[key]
	if !ok {
		return "", false
	}
	return key + "?" + httptype.EncodeQueryMinimal(fi.ETag), true
}

// lookup returns the FileInfo for a canonical (untagged) URI path and
// whether it was found. Touches the monitor's idle clock.
func (h *Handler) lookup(canonicalPath string) (*FileInfo, bool) {
	h.monitor.touch()
	h.mu.RLock()
	defer h.mu.RUnlock()
	fi, ok := h.uri2info[canonicalPath]
	return fi, ok
}

// snapshotInfos returns every distinct FileInfo currently registered,
// de-duplicated (index-file alternates point at the same FileInfo as their
// canonical entry), for the monitor's stat-diff pass.
func (h *Handler) snapshotInfos() []*FileInfo {
	h.mu.RLock()
	defer h.mu.RUnlock()
	seen := map[*FileInfo]bool{}
	out := make([]*FileInfo, 0, len(h.uri2info))
	for _, fi := range h.uri2info {
		if seen[fi] {
			continue
		}
		seen[fi] = true
		out = append(out, fi)
	}
	return out
}

// replaceFile atomically swaps every uri2info entry pointing at old with
// the rebuilt FileInfo for the same relative path, or removes them
// entirely when newFI is nil (file deleted). Old entries are removed
// before new ones are inserted so no reader ever observes new bytes paired
// with stale headers (spec section 4.15).
func (h *Handler) replaceFile(rel string, newFI *FileInfo, fc FileConfig) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for k, v := range h.uri2info {
		if v.RelPath == rel {
			delete(h.uri2info, k)
		}
	}
	if newFI == nil {
		return
	}
	entries := map[string]*FileInfo{}
	h.registerInfo(entries, rel, newFI, fc)
	for k, v := range entries {
		h.uri2info[k] = v
	}
}

// now is overridable in tests; production code always uses time.Now.
var now = time.Now
