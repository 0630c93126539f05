// Package compose builds serialized log events from a log call.
package compose

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/crimson-sun/timber/internal/errchain"
	"github.com/crimson-sun/timber/internal/merge"
	"github.com/crimson-sun/timber/internal/model"
	"github.com/crimson-sun/timber/internal/platform"
)

// EventPolicy decides how an error turns into events.
type EventPolicy int

const (
	// SingleEvent folds the whole cause chain into one event, keeping every
	// colliding value under a disambiguated key.
	SingleEvent EventPolicy = iota
	// MultipleEvents emits one event per independent error of an aggregate;
	// within each event later chain records override earlier ones.
	MultipleEvents
)

func (p EventPolicy) String() string {
	switch p {
	case SingleEvent:
		return "single"
	case MultipleEvents:
		return "multiple"
	default:
		return "policy(" + strconv.Itoa(int(p)) + ")"
	}
}

// MergePolicy returns the merge policy used to fold error records.
func (p EventPolicy) MergePolicy() merge.Policy {
	if p == MultipleEvents {
		return merge.Override
	}
	return merge.EncapsulateFlatten
}

// ParseEventPolicy accepts "single", "multiple" and their "singleEvent" and
// "single_event" forms in any case. Empty means SingleEvent.
func ParseEventPolicy(s string) (EventPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "single", "singleevent", "single_event", "":
		return SingleEvent, nil
	case "multiple", "multipleevents", "multiple_events":
		return MultipleEvents, nil
	default:
		return SingleEvent, fmt.Errorf("unknown event policy %q", s)
	}
}

// Keys names the metadata and user-info entries written by the composer.
type Keys struct {
	File        string
	Function    string
	Line        string
	AppVersion  string
	OSVersion   string
	Device      string
	LogType     string
	ErrorDomain string
	ErrorCode   string
}

// DefaultKeys returns the stock key names.
func DefaultKeys() Keys {
	return Keys{
		File:        "file",
		Function:    "function",
		Line:        "line",
		AppVersion:  "app_version",
		OSVersion:   "ios_version",
		Device:      "ios_device",
		LogType:     "log_type",
		ErrorDomain: "error_domain",
		ErrorCode:   "error_code",
	}
}

// Serializer encodes a record into its payload form.
type Serializer func(model.Record) ([]byte, error)

// JSON is the default Serializer.
func JSON(r model.Record) ([]byte, error) {
	return json.Marshal(r)
}

// CompositionError reports an event whose payload could not be serialized.
type CompositionError struct {
	Message string
	Err     error
}

func (e *CompositionError) Error() string {
	return fmt.Sprintf("compose: serialize %q: %v", e.Message, e.Err)
}

func (e *CompositionError) Unwrap() error { return e.Err }

// Config holds everything a Composer reads. It is copied at construction.
type Config struct {
	Keys            Keys
	DefaultUserInfo map[string]any
	Policy          EventPolicy
	Platform        platform.Provider
	Localizer       errchain.Localizer
	Serialize       Serializer
	Now             func() time.Time
}

// Composer turns log calls into events. It holds no mutable state and is
// safe for concurrent use.
type Composer struct {
	keys     Keys
	defaults map[string]any
	policy   EventPolicy
	platform platform.Provider
	walker   errchain.Walker
	encode   Serializer
	now      func() time.Time
}

// New creates a Composer from cfg, filling unset fields with defaults.
func New(cfg Config) *Composer {
	c := &Composer{
		keys:     cfg.Keys,
		defaults: merge.Merge(nil, cfg.DefaultUserInfo, merge.Override),
		policy:   cfg.Policy,
		platform: cfg.Platform,
		walker:   errchain.Walker{Localizer: cfg.Localizer},
		encode:   cfg.Serialize,
		now:      cfg.Now,
	}
	if c.keys == (Keys{}) {
		c.keys = DefaultKeys()
	}
	if c.platform == nil {
		c.platform = platform.Runtime{}
	}
	if c.encode == nil {
		c.encode = JSON
	}
	if c.now == nil {
		c.now = time.Now
	}
	return c
}

// Policy returns the composer's event policy.
func (c *Composer) Policy() EventPolicy { return c.policy }

// Compose builds the events for one log call. Events that fail to serialize
// are left out and reported as *CompositionError values joined into the
// returned error; their siblings are still returned.
func (c *Composer) Compose(e model.Entry) ([]model.LogEvent, error) {
	metadata := c.metadata(e.CallSite)

	options := merge.Merge(c.defaults, e.UserInfo, merge.Override)
	options[c.keys.LogType] = e.Level.String()

	var infos []map[string]any
	switch c.policy {
	case MultipleEvents:
		infos = c.multiple(options, e.Err)
	default:
		infos = []map[string]any{c.fold(options, c.walker.CauseChain(e.Err), merge.EncapsulateFlatten)}
	}

	now := c.now()
	events := make([]model.LogEvent, 0, len(infos))
	var errs []error
	for _, info := range infos {
		payload, err := c.encode(model.Record{
			Message:  e.Message,
			Metadata: metadata,
			UserInfo: info,
		})
		if err != nil {
			errs = append(errs, &CompositionError{Message: e.Message, Err: err})
			continue
		}
		events = append(events, model.LogEvent{
			ID:      uuid.NewString(),
			Level:   e.Level,
			Time:    now,
			Payload: payload,
		})
	}
	return events, errors.Join(errs...)
}

// multiple returns one user-info map per independent error of err. A nil
// error, or an aggregate with no parts, yields the options alone.
func (c *Composer) multiple(options map[string]any, err error) []map[string]any {
	parts := errchain.Disassociate(err)
	if len(parts) == 0 {
		return []map[string]any{options}
	}
	out := make([]map[string]any, 0, len(parts))
	for _, part := range parts {
		out = append(out, c.fold(options, c.walker.CauseChain(part), merge.Override))
	}
	return out
}

// fold merges every record of chain into a copy of options, outermost first.
func (c *Composer) fold(options map[string]any, chain []errchain.Record, policy merge.Policy) map[string]any {
	acc := merge.Merge(nil, options, merge.Override)
	for _, rec := range chain {
		incoming := map[string]any{
			c.keys.ErrorDomain: rec.Domain,
			c.keys.ErrorCode:   rec.Code,
		}
		for k, v := range merge.Flatten(rec.UserInfo) {
			incoming[k] = v
		}
		acc = merge.Merge(acc, incoming, policy)
	}
	return acc
}

func (c *Composer) metadata(cs model.CallSite) map[string]string {
	m := map[string]string{
		c.keys.File:     basename(cs.File),
		c.keys.Function: cs.Function,
		c.keys.Line:     strconv.Itoa(cs.Line),
	}
	if v := c.platform.AppVersion(); v != "" {
		m[c.keys.AppVersion] = v
	}
	if v := c.platform.OSVersion(); v != "" {
		m[c.keys.OSVersion] = v
	}
	if v := c.platform.DeviceType(); v != "" {
		m[c.keys.Device] = v
	}
	return m
}

// basename returns the last path element of a call-site file. Both slash
// styles are accepted since runtime paths always use forward slashes.
func basename(path string) string {
	if path == "" {
		return ""
	}
	if i := strings.LastIndexAny(path, `/\`); i >= 0 {
		return path[i+1:]
	}
	return path
}
