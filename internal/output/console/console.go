package console

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/mattn/go-isatty"

	"github.com/crimson-sun/timber/internal/model"
)

// Color modes.
const (
	ColorAuto   = "auto"
	ColorAlways = "always"
	ColorNever  = "never"
)

const ansiReset = "\033[0m"

var levelColors = map[model.Level]string{
	model.LevelVerbose: "\033[90m",
	model.LevelDebug:   "\033[36m",
	model.LevelInfo:    "\033[32m",
	model.LevelWarning: "\033[33m",
	model.LevelError:   "\033[31m",
}

// Option configures a console Output.
type Option func(*Output)

// WithWriter sets the destination. Default: os.Stdout.
func WithWriter(w io.Writer) Option {
	return func(o *Output) { o.w = w }
}

// WithPretty indents the JSON payload.
func WithPretty(pretty bool) Option {
	return func(o *Output) { o.pretty = pretty }
}

// WithColor sets the color mode: "auto" (terminal only), "always" or "never".
func WithColor(mode string) Option {
	return func(o *Output) { o.color = mode }
}

// Output writes one payload per line, prefixed with the level label.
type Output struct {
	mu     sync.Mutex
	w      io.Writer
	pretty bool
	color  string
}

// New creates a console Output.
func New(opts ...Option) *Output {
	o := &Output{w: os.Stdout, color: ColorAuto}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

func (o *Output) Write(_ context.Context, event model.LogEvent) error {
	var buf bytes.Buffer
	label := fmt.Sprintf("[%s]", event.Level)
	if o.colorize() {
		label = levelColors[event.Level] + label + ansiReset
	}
	buf.WriteString(label)
	buf.WriteByte(' ')

	if o.pretty {
		if err := json.Indent(&buf, event.Payload, "", "  "); err != nil {
			return fmt.Errorf("console output: %w", err)
		}
	} else {
		buf.Write(event.Payload)
	}
	buf.WriteByte('\n')

	o.mu.Lock()
	defer o.mu.Unlock()
	if _, err := o.w.Write(buf.Bytes()); err != nil {
		return fmt.Errorf("console output: %w", err)
	}
	return nil
}

func (o *Output) Close() error {
	return nil
}

func (o *Output) colorize() bool {
	switch o.color {
	case ColorAlways:
		return true
	case ColorNever:
		return false
	}
	f, ok := o.w.(*os.File)
	if !ok {
		return false
	}
	fd := f.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
