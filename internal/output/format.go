package output

import (
	"encoding/json"
	"time"

	"github.com/crimson-sun/timber/internal/model"
)

// Envelope is the on-disk and on-wire form of an event. The payload is
// embedded verbatim.
type Envelope struct {
	ID      string          `json:"id"`
	Time    time.Time       `json:"time"`
	Level   string          `json:"level"`
	Payload json.RawMessage `json:"payload"`
}

// FormatEvent wraps an event in its Envelope.
func FormatEvent(e model.LogEvent) Envelope {
	return Envelope{
		ID:      e.ID,
		Time:    e.Time.UTC(),
		Level:   e.Level.String(),
		Payload: json.RawMessage(e.Payload),
	}
}

// FormatBatch wraps every event of a batch, preserving order.
func FormatBatch(events []model.LogEvent) []Envelope {
	out := make([]Envelope, len(events))
	for i, e := range events {
		out[i] = FormatEvent(e)
	}
	return out
}
