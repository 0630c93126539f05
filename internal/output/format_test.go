package output

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/crimson-sun/timber/internal/model"
)

func TestFormatEventEmbedsPayload(t *testing.T) {
	ev := model.LogEvent{
		ID:      "id-1",
		Level:   model.LevelWarning,
		Time:    time.Date(2026, 2, 28, 12, 0, 0, 0, time.FixedZone("X", 3600)),
		Payload: []byte(`{"message":"m","metadata":{},"userInfo":{}}`),
	}

	data, err := json.Marshal(FormatEvent(ev))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if m["level"] != "warning" {
		t.Errorf("level = %v, want warning", m["level"])
	}
	if m["time"] != "2026-02-28T11:00:00Z" {
		t.Errorf("time = %v, want UTC timestamp", m["time"])
	}
	payload, ok := m["payload"].(map[string]any)
	if !ok {
		t.Fatalf("payload is %T, want object", m["payload"])
	}
	if payload["message"] != "m" {
		t.Errorf("payload.message = %v, want m", payload["message"])
	}
}

func TestFormatBatchOrder(t *testing.T) {
	batch := FormatBatch([]model.LogEvent{
		{ID: "a", Payload: []byte(`{}`)},
		{ID: "b", Payload: []byte(`{}`)},
	})
	if len(batch) != 2 || batch[0].ID != "a" || batch[1].ID != "b" {
		t.Errorf("unexpected batch: %+v", batch)
	}
}
