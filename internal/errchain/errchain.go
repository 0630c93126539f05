// Package errchain turns error values into ordered cause records and splits
// aggregate errors into their independent parts.
//
// Errors are modelled as a small tagged variant (Leaf, Wrapped, Composite),
// but any Go error is accepted: errors.Unwrap is the caused-by relation and
// an Unwrap() []error method marks an aggregate.
package errchain

import (
	"fmt"
	"strings"
)

// Leaf is a terminal error with no cause.
type Leaf struct {
	Domain string
	Code   int
	Info   map[string]any
}

func (e *Leaf) Error() string {
	if e == nil {
		return "<nil>"
	}
	return describe(e.Domain, e.Code, e.Info)
}

// Wrapped is an error caused by exactly one other error.
type Wrapped struct {
	Domain string
	Code   int
	Info   map[string]any
	Cause  error
}

func (e *Wrapped) Error() string {
	if e == nil {
		return "<nil>"
	}
	var b strings.Builder
	b.WriteString(describe(e.Domain, e.Code, e.Info))
	cause := e.Cause
	for depth := 1; cause != nil && depth < MaxDepth; depth++ {
		b.WriteString(": ")
		w, ok := cause.(*Wrapped)
		if !ok || w == nil {
			b.WriteString(message(cause))
			break
		}
		b.WriteString(describe(w.Domain, w.Code, w.Info))
		cause = w.Cause
	}
	return b.String()
}

// Unwrap returns the cause.
func (e *Wrapped) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// Composite bundles independent failures. It has no single cause.
type Composite struct {
	Parts []error
}

func (e *Composite) Error() string {
	if e == nil {
		return "<nil>"
	}
	msgs := make([]string, 0, len(e.Parts))
	for _, p := range e.Parts {
		if p != nil {
			msgs = append(msgs, message(p))
		}
	}
	return strings.Join(msgs, "; ")
}

// Unwrap returns the parts, so errors.Is and errors.As see through a
// Composite the same way they do through errors.Join.
func (e *Composite) Unwrap() []error {
	if e == nil {
		return nil
	}
	return e.Parts
}

// Record is the flattened view of one error in a chain.
type Record struct {
	Domain   string
	Code     int
	UserInfo map[string]any
}

// New returns a Leaf error.
func New(domain string, code int, info map[string]any) error {
	return &Leaf{Domain: domain, Code: code, Info: info}
}

// Wrap returns a Wrapped error around cause.
func Wrap(cause error, domain string, code int, info map[string]any) error {
	return &Wrapped{Domain: domain, Code: code, Info: info, Cause: cause}
}

// Join returns a Composite of the non-nil errors, or nil if there are none.
func Join(errs ...error) error {
	parts := make([]error, 0, len(errs))
	for _, err := range errs {
		if err != nil {
			parts = append(parts, err)
		}
	}
	if len(parts) == 0 {
		return nil
	}
	return &Composite{Parts: parts}
}

func describe(domain string, code int, info map[string]any) string {
	if d, ok := info[DescriptionKey].(string); ok && d != "" {
		return fmt.Sprintf("%s(%d): %s", domain, code, d)
	}
	return fmt.Sprintf("%s(%d)", domain, code)
}
