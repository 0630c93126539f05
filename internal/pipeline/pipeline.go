// Package pipeline connects event composition to the sink router.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/crimson-sun/timber/internal/compose"
	"github.com/crimson-sun/timber/internal/config"
	"github.com/crimson-sun/timber/internal/errchain"
	"github.com/crimson-sun/timber/internal/model"
	"github.com/crimson-sun/timber/internal/platform"
	"github.com/crimson-sun/timber/internal/router"
)

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithPlatform sets the provider that config platform overrides are layered
// over. Default: platform.Runtime.
func WithPlatform(p platform.Provider) Option {
	return func(pl *Pipeline) { pl.platform = p }
}

// WithLocalizer sets the localizer used to resolve error description keys.
func WithLocalizer(l errchain.Localizer) Option {
	return func(pl *Pipeline) { pl.localizer = l }
}

// WithValidation sets the options Reconfigure validates with.
func WithValidation(opts ...config.ValidateOption) Option {
	return func(pl *Pipeline) { pl.validate = opts }
}

// WithSerializer replaces the payload serializer. Default: compose.JSON.
func WithSerializer(s compose.Serializer) Option {
	return func(pl *Pipeline) { pl.serialize = s }
}

// Pipeline composes log calls into events and routes each event to the
// enabled sinks. The composer is held as an immutable snapshot: Reconfigure
// swaps it, and calls already composing keep the snapshot they loaded.
type Pipeline struct {
	composer atomic.Pointer[compose.Composer]
	router   *router.Router

	platform  platform.Provider
	localizer errchain.Localizer
	serialize compose.Serializer
	validate  []config.ValidateOption
}

// New creates a Pipeline from cfg. The configuration must already be valid.
func New(cfg *config.Config, r *router.Router, opts ...Option) (*Pipeline, error) {
	p := &Pipeline{router: r, platform: platform.Runtime{}}
	for _, opt := range opts {
		opt(p)
	}
	c, err := p.composerFor(cfg)
	if err != nil {
		return nil, err
	}
	p.composer.Store(c)
	return p, nil
}

// Emit composes the entry and routes every resulting event. An event that
// fails to compose or to reach a sink never keeps its siblings from being
// routed. The composed events are returned together with the joined errors.
func (p *Pipeline) Emit(ctx context.Context, entry model.Entry) ([]model.LogEvent, error) {
	events, composeErr := p.composer.Load().Compose(entry)

	errs := []error{composeErr}
	for _, ev := range events {
		if err := p.router.Route(ctx, ev); err != nil {
			errs = append(errs, fmt.Errorf("pipeline route %s: %w", ev.ID, err))
		}
	}
	return events, errors.Join(errs...)
}

// Policy returns the event policy of the current snapshot.
func (p *Pipeline) Policy() compose.EventPolicy {
	return p.composer.Load().Policy()
}

// Reconfigure validates cfg, swaps in a new composer and applies the sink
// enable flags. Enabling a sink that was not built at start is an error and
// leaves the pipeline unchanged.
func (p *Pipeline) Reconfigure(cfg *config.Config) error {
	if err := cfg.Validate(p.validate...); err != nil {
		return err
	}
	flags := map[string]bool{
		router.Console: cfg.Console.Enabled,
		router.File:    cfg.File.Enabled,
		router.Network: cfg.Network.Enabled,
	}
	registered := make(map[string]bool)
	for _, name := range p.router.Names() {
		registered[name] = true
	}
	for name, on := range flags {
		if on && !registered[name] {
			return &config.ConfigurationError{Field: name + ".enabled", Reason: "sink was not configured at start"}
		}
	}

	c, err := p.composerFor(cfg)
	if err != nil {
		return err
	}
	p.composer.Store(c)
	for name, on := range flags {
		p.router.SetEnabled(name, on)
	}
	return nil
}

// Close closes every sink.
func (p *Pipeline) Close() error {
	return p.router.Close()
}

func (p *Pipeline) composerFor(cfg *config.Config) (*compose.Composer, error) {
	cc, err := ComposerConfig(cfg, p.platform)
	if err != nil {
		return nil, err
	}
	cc.Localizer = p.localizer
	cc.Serialize = p.serialize
	return compose.New(cc), nil
}

// ComposerConfig maps the configuration onto a compose.Config. The platform
// overrides from cfg are layered over base.
func ComposerConfig(cfg *config.Config, base platform.Provider) (compose.Config, error) {
	policy, err := compose.ParseEventPolicy(cfg.Events.Policy)
	if err != nil {
		return compose.Config{}, &config.ConfigurationError{Field: "events.policy", Reason: err.Error()}
	}
	return compose.Config{
		Keys: compose.Keys{
			File:        cfg.Keys.File,
			Function:    cfg.Keys.Function,
			Line:        cfg.Keys.Line,
			AppVersion:  cfg.Keys.AppVersion,
			OSVersion:   cfg.Keys.OSVersion,
			Device:      cfg.Keys.Device,
			LogType:     cfg.Keys.LogType,
			ErrorDomain: cfg.Keys.ErrorDomain,
			ErrorCode:   cfg.Keys.ErrorCode,
		},
		DefaultUserInfo: cfg.Events.DefaultUserInfo,
		Policy:          policy,
		Platform: platform.Override(base, platform.Static{
			App:    cfg.Platform.AppVersion,
			OS:     cfg.Platform.OSVersion,
			Device: cfg.Platform.Device,
		}),
	}, nil
}
