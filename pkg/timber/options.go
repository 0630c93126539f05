package timber

import (
	"context"
	"io"
	"log/slog"

	"github.com/crimson-sun/timber/internal/model"
)

// Platform supplies the app version, OS version and device type attached to
// every event. Empty strings are left out.
type Platform interface {
	AppVersion() string
	OSVersion() string
	DeviceType() string
}

// Transport sends one batch of network events. It must return promptly once
// ctx is done.
type Transport interface {
	Send(ctx context.Context, events []Event) error
}

// TransportFunc adapts a function to the Transport interface.
type TransportFunc func(ctx context.Context, events []Event) error

// Send implements Transport.
func (f TransportFunc) Send(ctx context.Context, events []Event) error {
	return f(ctx, events)
}

// transportAdapter lets a public Transport serve the delivery scheduler.
type transportAdapter struct{ t Transport }

func (a transportAdapter) DeliverBatch(ctx context.Context, events []model.LogEvent) error {
	return a.t.Send(ctx, eventsFromModel(events))
}

type options struct {
	cfg        *Config
	configFile string
	platform   Platform
	transport  Transport
	console    io.Writer
	logger     *slog.Logger
	localize   func(key string) (string, bool)
}

// Option configures a Logger.
type Option func(*options)

// WithConfig uses cfg as is. It takes precedence over WithConfigFile.
func WithConfig(cfg Config) Option {
	return func(o *options) {
		o.cfg = &cfg
	}
}

// WithConfigFile loads configuration from a TOML file, with TIMBER_*
// environment overrides applied.
func WithConfigFile(path string) Option {
	return func(o *options) {
		o.configFile = path
	}
}

// WithPlatform replaces platform detection. Non-empty values from the
// [platform] config section still take precedence.
func WithPlatform(p Platform) Option {
	return func(o *options) {
		o.platform = p
	}
}

// WithTransport replaces the HTTP transport of the network sink. The sink is
// then built even without a network URL; network.enabled still gates the
// routing of events to it.
func WithTransport(t Transport) Option {
	return func(o *options) {
		o.transport = t
	}
}

// WithConsoleWriter redirects the console sink. Default: os.Stdout.
func WithConsoleWriter(w io.Writer) Option {
	return func(o *options) {
		o.console = w
	}
}

// WithLogger sets the logger for timber's own diagnostics, such as failed
// periodic sends. Default: a stderr logger built from the [logging] section.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// WithLocalizer resolves the "localized_description_key" entry of error
// user info into "localized_description".
func WithLocalizer(f func(key string) (string, bool)) Option {
	return func(o *options) {
		o.localize = f
	}
}
