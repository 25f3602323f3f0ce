package staticfile

import (
	"context"
	"errors"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"

	"github.com/opsnet/asyncio/internal/rawerrors"
	"github.com/opsnet/asyncio/pkg/async"
	"github.com/opsnet/asyncio/pkg/stream"
)

// gzBuildConcurrency bounds how many on-disk gzip builds may run at once
// across the whole handler, trading a little latency on a cold cache for
// protection against a burst of first-requests for many distinct files all
// driving simultaneous level-9 compression passes.
const gzBuildConcurrency = 4

// gzSemaphore is process-wide: every Handler shares it, the same way the
// spec's pooled file channel provider is a single shared resource (sec. 5).
var gzSemaphore = semaphore.NewWeighted(gzBuildConcurrency)

// memGzipView returns a fresh read cursor over fi's gzip-compressed bytes,
// lazily building the shared in-memory cache on first call. The cache (and
// any copy error) is sticky for this FileInfo's lifetime; a filesystem
// change replaces the whole FileInfo rather than invalidating the cache in
// place.
func (fi *FileInfo) memGzipView() *stream.CacheView {
	fi.mu.Lock()
	if fi.memCache == nil {
		gz := stream.NewGzipByteSource(fi.source(), 9)
		fi.memCache = stream.NewByteSourceCache(gz, -1)
	}
	cache := fi.memCache
	fi.mu.Unlock()
	return cache.NewView()
}

// diskGzPath computes the disk-cache path for fi under cacheRoot, keyed by
// the file's own relative path plus its ETag (which already encodes the
// modification time) so a stale cache file is simply orphaned, never
// served, once the file changes: spec section 6, "persisted state".
func diskGzPath(cacheRoot string, fi *FileInfo) string {
	dir := filepath.Dir(fi.RelPath)
	name := filepath.Base(fi.RelPath)
	return filepath.Join(cacheRoot, dir, name+"."+fi.ETag+".gzip")
}

// ensureDiskGzip returns the path to fi's disk-cached gzip file under
// cacheRoot, building it if absent. Concurrent builders race on a unique
// staging file and rename into place; the loser discards its own staging
// file once it observes the winner's rename. A build failure is sticky:
// fi.diskErr is returned on every subsequent call until fi itself is
// replaced (sec. 9 open question — matches the source).
func (fi *FileInfo) ensureDiskGzip(cacheRoot string) (string, error) {
	fi.mu.Lock()
	if fi.diskErr != nil {
		err := fi.diskErr
		fi.mu.Unlock()
		return "", err
	}
	if fi.diskPath != "" {
		path := fi.diskPath
		fi.mu.Unlock()
		return path, nil
	}
	fi.mu.Unlock()

	target := diskGzPath(cacheRoot, fi)
	if _, err := os.Stat(target); err == nil {
		fi.mu.Lock()
		fi.diskPath = target
		fi.mu.Unlock()
		return target, nil
	}

	if err := gzSemaphore.Acquire(context.Background(), 1); err != nil {
		return "", rawerrors.NewIOError("gz-cache", "acquiring build slot", err)
	}
	defer gzSemaphore.Release(1)

	// Re-check: another builder may have finished while we waited.
	if _, err := os.Stat(target); err == nil {
		fi.mu.Lock()
		fi.diskPath = target
		fi.mu.Unlock()
		return target, nil
	}

	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return "", fi.stickyDiskErr(rawerrors.NewIOError("gz-cache", "creating cache dir", err))
	}

	staging := target + ".tmp-" + uuid.NewString()
	if err := buildGzipFile(fi, staging); err != nil {
		os.Remove(staging)
		return "", fi.stickyDiskErr(err)
	}

	if err := os.Rename(staging, target); err != nil {
		// A concurrent builder (different process, so our semaphore did
		// not protect against it) may have won; if the target now exists,
		// our staging file is simply redundant.
		os.Remove(staging)
		if _, statErr := os.Stat(target); statErr != nil {
			return "", fi.stickyDiskErr(rawerrors.NewIOError("gz-cache", "renaming cache file", err))
		}
	}

	fi.mu.Lock()
	fi.diskPath = target
	fi.mu.Unlock()
	return target, nil
}

func (fi *FileInfo) stickyDiskErr(err error) error {
	fi.mu.Lock()
	fi.diskErr = err
	fi.mu.Unlock()
	return err
}

// buildGzipFile streams fi's plain contents through gzip level 9 (chosen
// for consistency across instances per spec section 4.15) into a fresh
// file at path.
func buildGzipFile(fi *FileInfo, path string) error {
	out, err := os.Create(path)
	if err != nil {
		return rawerrors.NewIOError("gz-cache", "creating staging file", err)
	}
	defer out.Close()

	gz := stream.NewGzipByteSource(fi.source(), 9)
	defer gz.Close()

	for {
		buf, rerr := gz.Read().Wait()
		if rerr != nil {
			if errors.Is(rerr, async.End) {
				return nil
			}
			return rerr
		}
		if buf.Len() == 0 {
			continue
		}
		if _, werr := out.Write(buf.Bytes()); werr != nil {
			return rawerrors.NewIOError("gz-cache", "writing staging file", werr)
		}
	}
}
