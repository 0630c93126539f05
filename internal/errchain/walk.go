package errchain

import (
	"errors"
	"reflect"
	"syscall"

	"github.com/bassosimone/errclass"
	"golang.org/x/text/unicode/norm"
)

// Well-known user-info keys.
const (
	DescriptionKey          = "description"
	LocalizedDescriptionKey = "localized_description"
	// LocalizationKey holds a lookup key resolved through a Localizer into
	// LocalizedDescriptionKey.
	LocalizationKey = "localized_description_key"
	// ClassKey holds the errno-style class of errors that are not one of
	// this package's variants, such as "ETIMEDOUT" or "ECONNREFUSED".
	ClassKey = "error_class"
)

// Localizer resolves a localization key into human-readable text.
type Localizer interface {
	Localize(key string) (string, bool)
}

// LocalizerFunc adapts a function to the Localizer interface.
type LocalizerFunc func(key string) (string, bool)

var _ Localizer = LocalizerFunc(nil)

// Localize implements Localizer.
func (f LocalizerFunc) Localize(key string) (string, bool) {
	return f(key)
}

// Walker extracts records from errors. The zero value is ready to use and
// leaves localization keys untouched.
type Walker struct {
	Localizer Localizer
}

// MaxDepth bounds the number of records CauseChain returns.
const MaxDepth = 64

// CauseChain returns the records for err and every error it was caused by,
// outermost first. A nil error yields an empty chain. Aggregates end the
// chain because they have no single cause. So do nil pointers, errors
// already seen in this walk, and chains longer than MaxDepth.
func (w Walker) CauseChain(err error) []Record {
	var chain []Record
	seen := make(map[error]struct{})
	for err != nil && len(chain) < MaxDepth {
		if isNilPointer(err) {
			chain = append(chain, Record{Domain: typeName(err), UserInfo: map[string]any{}})
			break
		}
		if reflect.ValueOf(err).Comparable() {
			if _, dup := seen[err]; dup {
				break
			}
			seen[err] = struct{}{}
		}
		chain = append(chain, w.record(err))
		if isAggregate(err) {
			break
		}
		err = errors.Unwrap(err)
	}
	return chain
}

// Disassociate splits an aggregate into its non-nil top-level parts. Any
// other error is returned as a one-element slice; nil yields nil.
func Disassociate(err error) []error {
	if err == nil {
		return nil
	}
	if isNilPointer(err) {
		return []error{err}
	}
	agg, ok := err.(interface{ Unwrap() []error })
	if !ok {
		return []error{err}
	}
	parts := agg.Unwrap()
	out := make([]error, 0, len(parts))
	for _, p := range parts {
		if p != nil {
			out = append(out, p)
		}
	}
	return out
}

// CauseChain walks err with the zero Walker.
func CauseChain(err error) []Record {
	return Walker{}.CauseChain(err)
}

func isAggregate(err error) bool {
	_, ok := err.(interface{ Unwrap() []error })
	return ok
}

// isNilPointer reports a non-nil interface holding a nil pointer, whose
// methods may dereference it.
func isNilPointer(err error) bool {
	v := reflect.ValueOf(err)
	return v.Kind() == reflect.Pointer && v.IsNil()
}

// message is err.Error() that tolerates nil pointers.
func message(err error) string {
	if isNilPointer(err) {
		return "<nil " + typeName(err) + ">"
	}
	return err.Error()
}

func (w Walker) record(err error) Record {
	switch e := err.(type) {
	case *Leaf:
		return Record{Domain: e.Domain, Code: e.Code, UserInfo: w.normalize(e.Info)}
	case *Wrapped:
		return Record{Domain: e.Domain, Code: e.Code, UserInfo: w.normalize(e.Info)}
	case *Composite:
		return Record{Domain: "composite", Code: len(e.Parts), UserInfo: w.normalize(map[string]any{
			DescriptionKey: e.Error(),
		})}
	}

	if errno, ok := err.(syscall.Errno); ok {
		return Record{Domain: "errno", Code: int(errno), UserInfo: w.normalize(map[string]any{
			DescriptionKey: errno.Error(),
			ClassKey:       errclass.New(errno),
		})}
	}

	info := map[string]any{DescriptionKey: err.Error()}
	if classifiable(err) {
		info[ClassKey] = errclass.New(err)
	}
	return Record{Domain: typeName(err), UserInfo: w.normalize(info)}
}

// classifiable reports whether the Unwrap tree under err is small and free
// of nil pointers, so the errors.Is and errors.As walks done by errclass
// terminate. A cycle exhausts the budget.
func classifiable(err error) bool {
	budget := 4 * MaxDepth
	var visit func(error) bool
	visit = func(e error) bool {
		if e == nil {
			return true
		}
		budget--
		if budget < 0 || isNilPointer(e) {
			return false
		}
		switch u := e.(type) {
		case interface{ Unwrap() error }:
			return visit(u.Unwrap())
		case interface{ Unwrap() []error }:
			for _, p := range u.Unwrap() {
				if !visit(p) {
					return false
				}
			}
		}
		return true
	}
	return visit(err)
}

// normalize copies info, resolves the localization key and NFC-normalizes
// string values.
func (w Walker) normalize(info map[string]any) map[string]any {
	out := make(map[string]any, len(info)+1)
	for k, v := range info {
		if s, ok := v.(string); ok {
			v = norm.NFC.String(s)
		}
		out[k] = v
	}
	key, ok := out[LocalizationKey].(string)
	if !ok || w.Localizer == nil {
		return out
	}
	if text, found := w.Localizer.Localize(key); found {
		delete(out, LocalizationKey)
		out[LocalizedDescriptionKey] = norm.NFC.String(text)
	}
	return out
}

func typeName(err error) string {
	t := reflect.TypeOf(err)
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.PkgPath() == "" {
		return t.String()
	}
	return t.PkgPath() + "." + t.Name()
}
