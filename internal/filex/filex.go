package filex

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// UnknownSize is reported when neither Stat nor Seek can tell the length.
const UnknownSize int64 = -1

// EnsureDir creates dir (and parents) with owner-only permissions and
// returns its absolute path. Relative dirs are resolved against the cwd.
func EnsureDir(dir string) (string, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("abs %s: %w", dir, err)
	}

	if err := os.MkdirAll(abs, 0o700); err != nil {
		return "", fmt.Errorf("mkdir %s: %w", abs, err)
	}

	return abs, nil
}

// OpenRegular opens path for reading and refuses directories.
func OpenRegular(path string) (*os.File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	fi, err := f.Stat()
	if err == nil && fi.IsDir() {
		_ = f.Close()
		return nil, fmt.Errorf("%s is a directory", path)
	}
	return f, nil
}

// Sizer is what DetectSize needs from a file.
type Sizer interface {
	Stat() (os.FileInfo, error)
	Seek(offset int64, whence int) (int64, error)
}

// DetectSize reports the length of f without reading its content. The probe
// runs on its own goroutine so a slow filesystem cannot block the caller past
// ctx. Stat is consulted first; for non-regular files or a failed Stat the
// length is taken by seeking to the end and back. UnknownSize when both fail
// or ctx ends first.
func DetectSize(ctx context.Context, f Sizer) int64 {
	ch := make(chan int64, 1)
	go func() { ch <- probeSize(f) }()

	select {
	case n := <-ch:
		return n
	case <-ctx.Done():
		return UnknownSize
	}
}

func probeSize(f Sizer) int64 {
	if fi, err := f.Stat(); err == nil && fi.Mode().IsRegular() {
		return fi.Size()
	}

	cur, err := f.Seek(0, io.SeekCurrent)
	if err != nil {
		return UnknownSize
	}
	end, err := f.Seek(0, io.SeekEnd)
	if err != nil {
		return UnknownSize
	}
	if _, err := f.Seek(cur, io.SeekStart); err != nil {
		return UnknownSize
	}
	return end
}
