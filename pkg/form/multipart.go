package form

import (
	"errors"
	"os"
	"path/filepath"

	"github.com/opsnet/asyncio/internal/rawerrors"
	"github.com/opsnet/asyncio/pkg/async"
	"github.com/opsnet/asyncio/pkg/headparse"
	"github.com/opsnet/asyncio/pkg/httptype"
	mp "github.com/opsnet/asyncio/pkg/multipart"
	"github.com/opsnet/asyncio/pkg/stream"
)

// ParseMultipartForm drains src (a multipart/form-data body for the given
// boundary) into a Data, streaming file parts to newly created temp files
// under tmpFileDir per spec section 4.10:
//
//   - no filename parameter  -> value, accumulated in memory
//   - filename="" (empty)    -> browser "no file selected" sentinel, skipped
//   - filename="..." present -> file entry, streamed to disk
//
// On any error, temp files already created for this parse are removed
// before returning.
func ParseMultipartForm(src stream.ByteSource, boundary string, limits Limits, tmpFileDir string) (*Data, error) {
	headLimits := headparse.Limits{
		MaxFieldNameBytes:  limits.MaxPartHeaderNameBytes,
		MaxFieldValueBytes: limits.MaxPartHeaderValueBytes,
		MaxTotalBytes:      limits.MaxPartHeadTotalBytes,
	}
	parser := mp.NewMultipartParser(src, boundary, headLimits)
	data := NewData()
	fileEntries := 0
	var valueTotal int64

	for {
		part, err := parser.NextPart()
		if err != nil {
			if errors.Is(err, async.End) {
				return data, nil
			}
			data.DeleteFiles()
			return nil, err
		}

		cd := part.Headers.Get("Content-Disposition")
		tp, perr := httptype.ParseTokenParams(cd)
		if perr != nil || tp.Token() != "form-data" {
			data.DeleteFiles()
			return nil, rawerrors.NewProtocolError("multipart-form", "part missing Content-Disposition: form-data", perr)
		}
		name, hasName := tp.Param("name")
		if !hasName {
			data.DeleteFiles()
			return nil, rawerrors.NewProtocolError("multipart-form", "part missing name parameter", nil)
		}
		if limits.MaxEntryKeyBytes > 0 && int64(len(name)) > limits.MaxEntryKeyBytes {
			data.DeleteFiles()
			return nil, rawerrors.NewOverLimitError("multipart-form", "maxEntryKeyBytes", limits.MaxEntryKeyBytes)
		}
		filename, hasFilename := tp.Param("filename")

		switch {
		case !hasFilename:
			val, verr := readBoundedString(part.Body, limits.MaxParamValueTotalBytes-valueTotal)
			if verr != nil {
				data.DeleteFiles()
				return nil, verr
			}
			valueTotal += int64(len(val))
			if limits.MaxParamValueTotalBytes > 0 && valueTotal > limits.MaxParamValueTotalBytes {
				data.DeleteFiles()
				return nil, rawerrors.NewOverLimitError("multipart-form", "maxParamValueTotalBytes", limits.MaxParamValueTotalBytes)
			}
			data.addParam(name, val)

		case filename == "":
			if _, derr := stream.ReadAll(part.Body, 0); derr != nil {
				data.DeleteFiles()
				return nil, derr
			}

		default:
			if limits.MaxFileNameBytes > 0 && len(filename) > limits.MaxFileNameBytes {
				data.DeleteFiles()
				return nil, rawerrors.NewOverLimitError("multipart-form", "maxFileNameBytes", int64(limits.MaxFileNameBytes))
			}
			fileEntries++
			if limits.MaxFileEntries > 0 && fileEntries > limits.MaxFileEntries {
				data.DeleteFiles()
				return nil, rawerrors.NewOverLimitError("multipart-form", "maxFileEntries", int64(limits.MaxFileEntries))
			}
			f, ferr := spillToTemp(part.Body, tmpFileDir, limits.MaxFileSize)
			if ferr != nil {
				data.DeleteFiles()
				return nil, ferr
			}
			f.Filename = filename
			f.ContentType = part.Headers.Get("Content-Type")
			data.addFile(name, f)
		}
	}
}

// readBoundedString drains src into a string, failing over-limit if it
// exceeds max (max <= 0 means unlimited).
func readBoundedString(src stream.ByteSource, max int64) (string, error) {
	b, err := stream.ReadAll(src, max)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// spillToTemp streams src to a fresh file under dir, bounded by maxSize
// (<=0 means unlimited). On any failure the partial temp file is removed.
func spillToTemp(src stream.ByteSource, dir string, maxSize int64) (*FormDataFile, error) {
	if dir == "" {
		dir = os.TempDir()
	}
	tmp, err := os.CreateTemp(dir, "asyncio-upload-*")
	if err != nil {
		return nil, rawerrors.NewIOError("multipart-form", "creating temp file", err)
	}
	path := tmp.Name()

	var size int64
	for {
		buf, rerr := src.Read().Wait()
		if rerr != nil {
			if errors.Is(rerr, async.End) {
				break
			}
			tmp.Close()
			os.Remove(path)
			return nil, rerr
		}
		n := buf.Len()
		if n == 0 {
			continue
		}
		size += int64(n)
		if maxSize > 0 && size > maxSize {
			tmp.Close()
			os.Remove(path)
			return nil, rawerrors.NewOverLimitError("multipart-form", "maxFileSize", maxSize)
		}
		if _, werr := tmp.Write(buf.Bytes()); werr != nil {
			tmp.Close()
			os.Remove(path)
			return nil, rawerrors.NewIOError("multipart-form", "writing temp file", werr)
		}
	}
	if err := tmp.Close(); err != nil {
		os.Remove(path)
		return nil, rawerrors.NewIOError("multipart-form", "closing temp file", err)
	}
	return &FormDataFile{Path: filepath.Clean(path), size: size}, nil
}
