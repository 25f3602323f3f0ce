package form

import "os"

// FormDataFile is a parsed file upload: the browser-supplied filename and
// content type, the local temp path the body was streamed to, and its
// size. The local file is owned by the form parser until the caller takes
// it over; the caller may Delete it.
type FormDataFile struct {
	Filename    string
	ContentType string
	Path        string
	size        int64
}

// Size returns the file's byte length as observed while spilling it to disk.
func (f *FormDataFile) Size() int64 { return f.size }

// Delete removes the backing temp file. Safe to call once the caller has
// finished with the upload; calling it twice is a no-op error from the OS
// that callers may ignore.
func (f *FormDataFile) Delete() error {
	return os.Remove(f.Path)
}

// Data is the result of parsing a URL-encoded or multipart/form-data body:
// Params preserves list order within a key (repeated fields), Files maps a
// field name to every file uploaded under it.
type Data struct {
	Params map[string][]string
	Files  map[string][]*FormDataFile
}

// NewData returns an empty Data ready for parsing into.
func NewData() *Data {
	return &Data{Params: map[string][]string{}, Files: map[string][]*FormDataFile{}}
}

func (d *Data) addParam(key, value string) {
	d.Params[key] = append(d.Params[key], value)
}

func (d *Data) addFile(key string, f *FormDataFile) {
	d.Files[key] = append(d.Files[key], f)
}

// DeleteFiles removes every file's backing temp file, ignoring errors
// (e.g. a file the caller already took ownership of and removed itself).
// Used to clean up after a CSRF rejection or any other abandoned parse.
func (d *Data) DeleteFiles() {
	for _, fs := range d.Files {
		for _, f := range fs {
			_ = f.Delete()
		}
	}
}
