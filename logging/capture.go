// Package logging manages the per-run capture directories that hold the
// output of spawned test processes.
package logging

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
)

const (
	StdoutFilename = "stdout.log"
	StderrFilename = "stderr.log"

	captureFileMode = 0644
	captureDirMode  = 0755
)

// Capture owns the two append-mode output files of one test case.
type Capture struct {
	dir    string
	stdout *os.File
	stderr *os.File

	closeOnce sync.Once
	closeErr  error
}

// NewCapture creates dir and opens the capture files inside it. The
// directory must not already exist: existing logs are never overwritten.
func NewCapture(dir string) (*Capture, error) {
	if dir == "" {
		return nil, fmt.Errorf("capture directory cannot be empty")
	}
	if err := os.Mkdir(dir, captureDirMode); err != nil {
		return nil, fmt.Errorf("failed to create output directory %s: %w", dir, err)
	}

	stdout, err := openAppend(filepath.Join(dir, StdoutFilename))
	if err != nil {
		return nil, err
	}
	stderr, err := openAppend(filepath.Join(dir, StderrFilename))
	if err != nil {
		_ = stdout.Close()
		return nil, err
	}

	return &Capture{dir: dir, stdout: stdout, stderr: stderr}, nil
}

func openAppend(path string) (*os.File, error) {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_APPEND, captureFileMode)
	if err != nil {
		return nil, fmt.Errorf("failed to create output file %s: %w", path, err)
	}
	return f, nil
}

// Dir returns the capture directory.
func (c *Capture) Dir() string {
	return c.dir
}

// Stdout is the destination for the standard output of every process.
func (c *Capture) Stdout() io.Writer {
	return c.stdout
}

// Stderr is the destination for the standard error of every process.
func (c *Capture) Stderr() io.Writer {
	return c.stderr
}

// StdoutPath returns the path of stdout.log.
func (c *Capture) StdoutPath() string {
	return filepath.Join(c.dir, StdoutFilename)
}

// StderrPath returns the path of stderr.log.
func (c *Capture) StderrPath() string {
	return filepath.Join(c.dir, StderrFilename)
}

// Close closes both files. It is safe to call more than once.
func (c *Capture) Close() error {
	c.closeOnce.Do(func() {
		c.closeErr = errors.Join(c.stdout.Close(), c.stderr.Close())
	})
	return c.closeErr
}

// StderrSize returns the number of bytes written to stderr.log so far.
func (c *Capture) StderrSize() (int64, error) {
	info, err := c.stderr.Stat()
	if err != nil {
		return 0, fmt.Errorf("failed to stat %s: %w", c.StderrPath(), err)
	}
	return info.Size(), nil
}

// ReadTail returns at most limit bytes from the end of the file at path,
// ignoring everything before offset from. truncated reports whether bytes
// past from were dropped to respect limit.
func ReadTail(path string, from, limit int64) (tail []byte, truncated bool, err error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, false, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, false, err
	}
	from = min(max(from, 0), info.Size())
	offset := from
	if info.Size()-from > limit {
		offset = info.Size() - limit
		truncated = true
	}
	if _, err := f.Seek(offset, io.SeekStart); err != nil {
		return nil, false, err
	}
	tail, err = io.ReadAll(f)
	return tail, truncated, err
}
