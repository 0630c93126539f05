package timber

import (
	"github.com/crimson-sun/timber/internal/compose"
	"github.com/crimson-sun/timber/internal/config"
	"github.com/crimson-sun/timber/internal/delivery"
	"github.com/crimson-sun/timber/internal/errchain"
	"github.com/crimson-sun/timber/internal/output/network"
)

// ErrCanceled is reported by a ForceSend or periodic send stopped by Cancel.
var ErrCanceled = delivery.ErrCanceled

type (
	// ConfigurationError reports an invalid setting. New refuses to start
	// with one.
	ConfigurationError = config.ConfigurationError
	// CompositionError reports an event whose payload could not be
	// serialized. Its siblings are still delivered.
	CompositionError = compose.CompositionError
	// TransportError reports a network batch that was not delivered. The
	// batch is not retried.
	TransportError = delivery.TransportError
	// StatusError is the cause of a TransportError when the endpoint
	// answered with a non-2xx status.
	StatusError = network.StatusError
)

// NewError returns an error with a domain, a code and user info and no
// cause.
func NewError(domain string, code int, info map[string]any) error {
	return errchain.New(domain, code, info)
}

// WrapError returns an error with a domain, a code and user info, caused by
// cause. Each error of a chain contributes its own entries to the event.
func WrapError(cause error, domain string, code int, info map[string]any) error {
	return errchain.Wrap(cause, domain, code, info)
}

// JoinErrors aggregates independent failures. Under the multiple event
// policy each of them becomes its own event. Nil errors are dropped; it
// returns nil when none remain.
func JoinErrors(errs ...error) error {
	return errchain.Join(errs...)
}
