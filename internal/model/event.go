package model

import (
	"fmt"
	"strings"
	"time"
)

// Level is the severity of a log call.
type Level int

const (
	LevelVerbose Level = iota
	LevelDebug
	LevelInfo
	LevelWarning
	LevelError
)

var levelNames = [...]string{"verbose", "debug", "info", "warning", "error"}

// String returns the lowercase level name, which is also the value of the
// log_type user-info entry.
func (l Level) String() string {
	if l < LevelVerbose || l > LevelError {
		return fmt.Sprintf("level(%d)", int(l))
	}
	return levelNames[l]
}

// ParseLevel converts a level name to a Level. "warn" is accepted as an
// alias for warning.
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "verbose", "trace":
		return LevelVerbose, nil
	case "debug":
		return LevelDebug, nil
	case "info", "":
		return LevelInfo, nil
	case "warning", "warn":
		return LevelWarning, nil
	case "error":
		return LevelError, nil
	default:
		return LevelInfo, fmt.Errorf("unknown level %q", s)
	}
}

// LogEvent is a composed, serialized log event ready for the sinks.
// Events are never mutated after composition; sinks must treat Payload as
// read-only.
type LogEvent struct {
	ID      string    // uuid assigned at composition
	Level   Level     // severity of the originating call
	Time    time.Time // composition time
	Payload []byte    // serialized Record
}

// Record is the structured form of an event payload.
type Record struct {
	Message  string            `json:"message"`
	Metadata map[string]string `json:"metadata"`
	UserInfo map[string]any    `json:"userInfo"`
}
