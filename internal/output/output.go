package output

import (
	"context"

	"github.com/crimson-sun/timber/internal/model"
)

// Output defines the interface for composed event destinations.
type Output interface {
	Write(ctx context.Context, event model.LogEvent) error
	Close() error
}
