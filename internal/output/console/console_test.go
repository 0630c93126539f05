package console

import (
	"bytes"
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/crimson-sun/timber/internal/model"
)

func testEvent(level model.Level) model.LogEvent {
	return model.LogEvent{
		ID:      "evt",
		Level:   level,
		Payload: []byte(`{"message":"hello","metadata":{"file":"main.go"},"userInfo":{"log_type":"info"}}`),
	}
}

func TestWriteLine(t *testing.T) {
	var buf bytes.Buffer
	out := New(WithWriter(&buf))

	if err := out.Write(context.Background(), testEvent(model.LevelInfo)); err != nil {
		t.Fatalf("Write error: %v", err)
	}

	got := buf.String()
	if !strings.HasPrefix(got, "[info] {") {
		t.Errorf("unexpected line: %q", got)
	}
	if !strings.HasSuffix(got, "}\n") {
		t.Errorf("line not newline-terminated: %q", got)
	}
	if strings.Contains(got, "\033[") {
		t.Error("non-terminal writer should not be colorized in auto mode")
	}
}

func TestWritePretty(t *testing.T) {
	var buf bytes.Buffer
	out := New(WithWriter(&buf), WithPretty(true))

	out.Write(context.Background(), testEvent(model.LevelDebug))

	if !strings.Contains(buf.String(), "\n  \"message\": \"hello\"") {
		t.Errorf("expected indented payload, got: %s", buf.String())
	}
}

func TestWriteColorAlways(t *testing.T) {
	var buf bytes.Buffer
	out := New(WithWriter(&buf), WithColor(ColorAlways))

	out.Write(context.Background(), testEvent(model.LevelError))

	if !strings.HasPrefix(buf.String(), "\033[31m[error]\033[0m ") {
		t.Errorf("expected red error label, got %q", buf.String())
	}
}

func TestWriteInvalidPayloadPretty(t *testing.T) {
	var buf bytes.Buffer
	out := New(WithWriter(&buf), WithPretty(true))

	ev := testEvent(model.LevelInfo)
	ev.Payload = []byte("not json")
	if err := out.Write(context.Background(), ev); err == nil {
		t.Fatal("expected error for invalid payload")
	}
	if buf.Len() != 0 {
		t.Error("nothing should be written on error")
	}
}

func TestConcurrentWritesDoNotInterleave(t *testing.T) {
	var buf bytes.Buffer
	out := New(WithWriter(&buf))

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			out.Write(context.Background(), testEvent(model.LevelInfo))
		}()
	}
	wg.Wait()

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 50 {
		t.Fatalf("got %d lines, want 50", len(lines))
	}
	for _, l := range lines {
		if !strings.HasPrefix(l, "[info] {") {
			t.Errorf("corrupted line: %q", l)
		}
	}
}
