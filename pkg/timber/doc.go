// Package timber composes structured log events from a message, an optional
// error and the caller's location, then routes each event to the console, a
// rotating NDJSON file and a batched HTTP endpoint.
//
// Quick start:
//
//	l, err := timber.New(timber.WithConfigFile("timber.toml"))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer l.Close()
//
//	l.Error("upload failed", timber.WithError(err), timber.WithUserInfo(map[string]any{"bucket": "media"}))
//
// With the single event policy an error's whole cause chain is folded into
// one event and colliding keys are kept under "<n>.key". With the multiple
// event policy an aggregate error produces one event per part.
//
// Network events are buffered and sent every flush interval. ForceSend sends
// the buffer now; Cancel aborts sends in flight. A Logger is safe for
// concurrent use.
package timber
