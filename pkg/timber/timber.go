package timber

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"runtime"
	"sync"

	"github.com/crimson-sun/timber/internal/config"
	"github.com/crimson-sun/timber/internal/delivery"
	"github.com/crimson-sun/timber/internal/errchain"
	"github.com/crimson-sun/timber/internal/logging"
	"github.com/crimson-sun/timber/internal/model"
	"github.com/crimson-sun/timber/internal/output/console"
	"github.com/crimson-sun/timber/internal/output/file"
	"github.com/crimson-sun/timber/internal/output/network"
	"github.com/crimson-sun/timber/internal/pipeline"
	"github.com/crimson-sun/timber/internal/router"
)

// Logger composes and routes log events. Safe for concurrent use.
type Logger struct {
	pipeline  *pipeline.Pipeline
	scheduler *delivery.Scheduler // nil when no network sink was built
	diag      *slog.Logger
	closeOnce sync.Once
	closeErr  error
}

// New validates the configuration, builds the sinks and starts the periodic
// network send. A *ConfigurationError means nothing was started.
func New(opts ...Option) (*Logger, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	var vopts []config.ValidateOption
	if o.transport != nil {
		vopts = append(vopts, config.ExternalTransport())
	}
	cfg, err := resolveConfig(o, vopts)
	if err != nil {
		return nil, err
	}

	diag := o.logger
	if diag == nil {
		diag = logging.New(os.Stderr, cfg.Logging.Format, logging.ParseLevel(cfg.Logging.Level))
	}

	l := &Logger{diag: diag}

	routes := []router.Route{{
		Name:    router.Console,
		Out:     console.New(consoleOptions(cfg, o.console)...),
		Enabled: cfg.Console.Enabled,
	}}

	if cfg.File.Enabled {
		fileOut, err := file.New(cfg.File.Path, fileOptions(cfg)...)
		if err != nil {
			return nil, fmt.Errorf("timber: %w", err)
		}
		routes = append(routes, router.Route{Name: router.File, Out: fileOut, Enabled: true})
	}

	var r *router.Router
	if t := buildTransport(cfg, o.transport); t != nil {
		l.scheduler = delivery.New(t,
			delivery.WithInterval(cfg.FlushInterval()),
			delivery.WithEnabled(func() bool { return r.Enabled(router.Network) }),
			delivery.WithOnError(func(err error) {
				diag.Warn("network send failed", "error", err)
			}),
		)
		routes = append(routes, router.Route{Name: router.Network, Out: l.scheduler, Enabled: cfg.Network.Enabled})
	}
	r = router.New(routes...)

	popts := []pipeline.Option{pipeline.WithValidation(vopts...)}
	if o.platform != nil {
		popts = append(popts, pipeline.WithPlatform(o.platform))
	}
	if o.localize != nil {
		popts = append(popts, pipeline.WithLocalizer(errchain.LocalizerFunc(o.localize)))
	}
	p, err := pipeline.New(cfg, r, popts...)
	if err != nil {
		r.Close()
		return nil, err
	}
	l.pipeline = p

	if l.scheduler != nil {
		l.scheduler.Start()
	}
	diag.Debug("timber started",
		"sinks", r.Names(),
		"policy", p.Policy().String(),
		"flush_interval", cfg.FlushInterval().String(),
	)
	return l, nil
}

func resolveConfig(o options, vopts []config.ValidateOption) (*config.Config, error) {
	switch {
	case o.cfg != nil:
		cfg := *o.cfg
		if err := cfg.Normalize(); err != nil {
			return nil, err
		}
		if err := cfg.Validate(vopts...); err != nil {
			return nil, err
		}
		return &cfg, nil
	case o.configFile != "":
		cfg, _, _, err := config.Load(o.configFile, vopts...)
		if err != nil {
			return nil, err
		}
		return cfg, nil
	default:
		cfg := config.Default()
		return &cfg, nil
	}
}

func consoleOptions(cfg *config.Config, w io.Writer) []console.Option {
	opts := []console.Option{
		console.WithPretty(cfg.Console.Pretty),
		console.WithColor(cfg.Console.Color),
	}
	if w != nil {
		opts = append(opts, console.WithWriter(w))
	}
	return opts
}

func fileOptions(cfg *config.Config) []file.Option {
	var opts []file.Option
	if cfg.File.MaxSizeBytes > 0 {
		opts = append(opts, file.WithMaxSize(cfg.File.MaxSizeBytes))
	}
	if cfg.File.SyncEachWrite {
		opts = append(opts, file.WithSyncEachWrite())
	}
	return opts
}

// buildTransport returns nil when neither a custom transport nor a URL is
// configured; the network sink is then left out entirely.
func buildTransport(cfg *config.Config, custom Transport) delivery.Transport {
	if custom != nil {
		return transportAdapter{t: custom}
	}
	if cfg.Network.URL == "" {
		return nil
	}
	opts := []network.Option{
		network.WithHeaders(cfg.Network.Headers),
		network.WithTimeout(cfg.NetworkTimeout()),
	}
	if cfg.Network.Compression != "none" {
		opts = append(opts, network.WithCompression(cfg.Network.Compression))
	}
	return network.New(cfg.Network.URL, opts...)
}

// Verbose logs at LevelVerbose.
func (l *Logger) Verbose(msg string, opts ...EntryOption) {
	l.log(LevelVerbose, msg, opts)
}

// Debug logs at LevelDebug.
func (l *Logger) Debug(msg string, opts ...EntryOption) {
	l.log(LevelDebug, msg, opts)
}

// Info logs at LevelInfo.
func (l *Logger) Info(msg string, opts ...EntryOption) {
	l.log(LevelInfo, msg, opts)
}

// Warning logs at LevelWarning.
func (l *Logger) Warning(msg string, opts ...EntryOption) {
	l.log(LevelWarning, msg, opts)
}

// Error logs at LevelError.
func (l *Logger) Error(msg string, opts ...EntryOption) {
	l.log(LevelError, msg, opts)
}

// log is the fire-and-forget path of the level methods. Failures are
// reported to the diagnostic logger only.
func (l *Logger) log(level Level, msg string, opts []EntryOption) {
	if _, err := l.emit(context.Background(), level, msg, callSite(3), opts); err != nil {
		l.diag.Warn("log event not fully delivered", "level", level.String(), "error", err)
	}
}

// Emit logs like the level methods and returns the composed events together
// with any composition or sink error. Events that failed to compose are
// absent from the result; their siblings were still routed.
func (l *Logger) Emit(level Level, msg string, opts ...EntryOption) ([]Event, error) {
	events, err := l.emit(context.Background(), level, msg, callSite(2), opts)
	return eventsFromModel(events), err
}

func (l *Logger) emit(ctx context.Context, level Level, msg string, cs model.CallSite, opts []EntryOption) ([]model.LogEvent, error) {
	var eo entryOptions
	for _, opt := range opts {
		opt(&eo)
	}
	return l.pipeline.Emit(ctx, model.Entry{
		Level:    level,
		Message:  msg,
		Err:      eo.err,
		UserInfo: eo.userInfo,
		CallSite: cs,
	})
}

// callSite reports the frame skip levels up, counting callSite itself as 0.
func callSite(skip int) model.CallSite {
	pc, path, line, ok := runtime.Caller(skip)
	if !ok {
		return model.CallSite{}
	}
	cs := model.CallSite{File: path, Line: line}
	if fn := runtime.FuncForPC(pc); fn != nil {
		cs.Function = fn.Name()
	}
	return cs
}

// ForceSend sends the buffered network events now, whatever the flush
// interval and the network enable flag. The channel yields one result and
// is closed: nil, or a *TransportError. With no network sink, or nothing
// buffered, it yields nil at once.
func (l *Logger) ForceSend(ctx context.Context) <-chan error {
	if l.scheduler == nil {
		ch := make(chan error, 1)
		ch <- nil
		close(ch)
		return ch
	}
	return l.scheduler.Flush(ctx)
}

// Cancel aborts every network send in flight. Their results report
// ErrCanceled and their events are dropped. Events still buffered are kept.
func (l *Logger) Cancel() {
	if l.scheduler != nil {
		l.scheduler.Cancel()
	}
}

// Pending returns the number of network events buffered and not yet taken
// by a send.
func (l *Logger) Pending() int {
	if l.scheduler == nil {
		return 0
	}
	return l.scheduler.Pending()
}

// Reconfigure swaps the keys, policies, default user info, platform
// overrides and sink enable flags. Calls already composing finish with the
// previous configuration. Sinks cannot be added: enabling a sink that was
// not built by New is a *ConfigurationError. Paths, URLs and the flush
// interval keep their values from New.
func (l *Logger) Reconfigure(cfg Config) error {
	if err := cfg.Normalize(); err != nil {
		return err
	}
	if err := l.pipeline.Reconfigure(&cfg); err != nil {
		return err
	}
	l.diag.Debug("timber reconfigured", "policy", l.pipeline.Policy().String())
	return nil
}

// Close stops the periodic send, sends what is buffered if the network sink
// is enabled, and closes every sink. Calling it more than once returns the
// first result.
func (l *Logger) Close() error {
	l.closeOnce.Do(func() {
		l.closeErr = l.pipeline.Close()
	})
	return l.closeErr
}
