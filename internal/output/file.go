package output

import (
	"bufio"
	"errors"
	"os"
	"path/filepath"

	"github.com/didar67/enterprise-log-file-analyzer/internal/model"
)

// FileSink writes JSON-lines events to a temp file that is renamed over the
// target path on Close, so readers never observe a half-written report.
type FileSink struct {
	path string
	tmp  *os.File
	buf  *bufio.Writer
	json *JSONRenderer
}

// NewFileSink creates the temp file next to path.
func NewFileSink(path string) (*FileSink, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return nil, err
	}

	buf := bufio.NewWriter(tmp)
	return &FileSink{
		path: path,
		tmp:  tmp,
		buf:  buf,
		json: NewJSONRenderer(buf),
	}, nil
}

func (f *FileSink) Render(ev model.Event) error {
	return f.json.Render(ev)
}

// Close flushes and renames the temp file into place.
func (f *FileSink) Close() error {
	err := errors.Join(f.buf.Flush(), f.tmp.Close())
	if err != nil {
		os.Remove(f.tmp.Name())
		return err
	}
	return os.Rename(f.tmp.Name(), f.path)
}

// Abort discards the temp file, leaving any existing report untouched.
func (f *FileSink) Abort() {
	f.tmp.Close()
	os.Remove(f.tmp.Name())
}
