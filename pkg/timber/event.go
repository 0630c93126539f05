package timber

import (
	"encoding/json"
	"time"

	"github.com/crimson-sun/timber/internal/model"
)

// Level is the severity of a log call.
type Level = model.Level

// Levels, lowest first.
const (
	LevelVerbose = model.LevelVerbose
	LevelDebug   = model.LevelDebug
	LevelInfo    = model.LevelInfo
	LevelWarning = model.LevelWarning
	LevelError   = model.LevelError
)

// ParseLevel converts a level name ("verbose", "debug", "info", "warning",
// "error") to a Level.
func ParseLevel(s string) (Level, error) {
	return model.ParseLevel(s)
}

// Event is a composed log event as handed to the sinks.
// This is the stable public type; internal representations may evolve
// independently.
type Event struct {
	ID      string          `json:"id"`      // uuid assigned at composition
	Level   Level           `json:"level"`   // severity of the call
	Time    time.Time       `json:"time"`    // composition time
	Payload json.RawMessage `json:"payload"` // {"message", "metadata", "userInfo"}
}

// Record is the decoded form of an event payload.
type Record = model.Record

// Decode unmarshals the event payload.
func (e Event) Decode() (Record, error) {
	var r Record
	err := json.Unmarshal(e.Payload, &r)
	return r, err
}

func eventFromModel(e model.LogEvent) Event {
	return Event{
		ID:      e.ID,
		Level:   e.Level,
		Time:    e.Time,
		Payload: json.RawMessage(e.Payload),
	}
}

func eventsFromModel(in []model.LogEvent) []Event {
	out := make([]Event, len(in))
	for i, e := range in {
		out[i] = eventFromModel(e)
	}
	return out
}
