package file

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/gofrs/flock"

	"github.com/crimson-sun/timber/internal/model"
	"github.com/crimson-sun/timber/internal/output"
)

const (
	defaultBufSize = 64 * 1024 // 64KB
	maxBackups     = 10
)

// Option configures a file Output.
type Option func(*Output)

// WithMaxSize sets the file size (bytes) at which rotation triggers.
// 0 (default) disables rotation.
func WithMaxSize(bytes int64) Option {
	return func(o *Output) { o.maxSize = bytes }
}

// WithBufSize sets the bufio.Writer buffer size. Default: 64KB.
func WithBufSize(bytes int) Option {
	return func(o *Output) { o.bufSize = bytes }
}

// WithSyncEachWrite flushes the buffer after every event, so the file is
// always current at the cost of one syscall per event.
func WithSyncEachWrite() Option {
	return func(o *Output) { o.syncEach = true }
}

// Output writes NDJSON envelopes to a file with buffered I/O and optional
// size-based rotation. Rotation holds an advisory lock on {path}.lock so
// several processes sharing a log file do not rotate it twice.
type Output struct {
	w        *bufio.Writer
	f        *os.File
	lock     *flock.Flock
	mu       sync.Mutex
	path     string
	maxSize  int64 // 0 = no rotation
	written  int64
	bufSize  int
	syncEach bool
}

// New creates a file output that appends NDJSON to the given path.
func New(path string, opts ...Option) (*Output, error) {
	o := &Output{
		path:    path,
		bufSize: defaultBufSize,
		lock:    flock.New(path + ".lock"),
	}
	for _, opt := range opts {
		opt(o)
	}
	if err := o.openFile(); err != nil {
		return nil, err
	}
	return o, nil
}

// Write encodes the event envelope and appends it as a line to the file.
func (o *Output) Write(_ context.Context, event model.LogEvent) error {
	data, err := json.Marshal(output.FormatEvent(event))
	if err != nil {
		return fmt.Errorf("file output: marshal: %w", err)
	}
	data = append(data, '\n')

	o.mu.Lock()
	defer o.mu.Unlock()

	if o.maxSize > 0 && o.written+int64(len(data)) > o.maxSize && o.written > 0 {
		if err := o.rotate(); err != nil {
			return fmt.Errorf("file output: rotate: %w", err)
		}
	}

	n, err := o.w.Write(data)
	o.written += int64(n)
	if err != nil {
		return fmt.Errorf("file output: write: %w", err)
	}
	if o.syncEach {
		if err := o.w.Flush(); err != nil {
			return fmt.Errorf("file output: flush: %w", err)
		}
	}
	return nil
}

// Close flushes the buffer and closes the file.
func (o *Output) Close() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if err := o.w.Flush(); err != nil {
		o.f.Close()
		return fmt.Errorf("file output: flush: %w", err)
	}
	return o.f.Close()
}

// openFile opens (or creates) the output file and wraps it in a bufio.Writer.
func (o *Output) openFile() error {
	f, err := os.OpenFile(o.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("file output: open %s: %w", o.path, err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return fmt.Errorf("file output: stat %s: %w", o.path, err)
	}
	o.f = f
	o.w = bufio.NewWriterSize(f, o.bufSize)
	o.written = info.Size()
	return nil
}

// rotate flushes, closes the current file, renames it to {path}.1
// (shifting existing rotated files), and opens a new file.
func (o *Output) rotate() error {
	if err := o.w.Flush(); err != nil {
		return err
	}
	if err := o.f.Close(); err != nil {
		return err
	}

	if err := o.lock.Lock(); err != nil {
		return fmt.Errorf("lock %s: %w", o.lock.Path(), err)
	}
	defer o.lock.Unlock()

	// Another process may have rotated already; only shift if the file on
	// disk is still the one we filled.
	if info, err := os.Stat(o.path); err == nil && info.Size() >= o.written {
		// Shift existing rotated files: .9 → .10, ..., .1 → .2
		for i := maxBackups - 1; i >= 1; i-- {
			from := fmt.Sprintf("%s.%d", o.path, i)
			to := fmt.Sprintf("%s.%d", o.path, i+1)
			os.Rename(from, to) // ignore errors — file may not exist
		}
		if err := os.Rename(o.path, o.path+".1"); err != nil {
			return err
		}
	}

	o.written = 0
	return o.openFile()
}
