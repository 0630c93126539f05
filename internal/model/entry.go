package model

// CallSite identifies where a log call was made.
type CallSite struct {
	File     string // full path as reported by the runtime
	Function string
	Line     int
}

// Entry is a single log call before composition. Err may be nil, a cause
// chain, or an aggregate of independent failures.
type Entry struct {
	Level    Level
	Message  string
	Err      error
	UserInfo map[string]any // caller-supplied, wins over configured defaults
	CallSite CallSite
}
