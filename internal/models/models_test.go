package models

import (
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func TestFrameState_Strings(t *testing.T) {
	if got := StateNormal.String(); got != "Normal" {
		t.Fatalf("normal string = %q", got)
	}
	if got := StateDropped.String(); got != "Frame Drop" {
		t.Fatalf("dropped string = %q", got)
	}
	if StateNormal.Color() == StateDropped.Color() {
		t.Fatalf("states should render with different colors")
	}
}

func TestFrameState_JSON(t *testing.T) {
	m := FrameMetrics{State: StateDropped, ConsecutiveDrops: 3}
	b, err := json.Marshal(m)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var out struct {
		State string `json:"state"`
	}
	if err := json.Unmarshal(b, &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if out.State != "dropped" {
		t.Fatalf("state json = %q", out.State)
	}

	var s FrameState
	if err := s.UnmarshalText([]byte("bogus")); err == nil {
		t.Fatalf("expected error for unknown state")
	}
}

func TestDropEvent_Duration(t *testing.T) {
	base := time.Unix(100, 0)
	e := DropEvent{StartedAt: base}
	if !e.Ongoing() {
		t.Fatalf("event without recovery should be ongoing")
	}
	if d := e.Duration(base.Add(2 * time.Second)); d != 2*time.Second {
		t.Fatalf("ongoing duration = %v", d)
	}
	recovered := base.Add(500 * time.Millisecond)
	e.RecoveredAt = &recovered
	if d := e.Duration(base.Add(time.Hour)); d != 500*time.Millisecond {
		t.Fatalf("closed duration = %v", d)
	}
}

func TestDropEvent_JSONOmitsRecoveryWhileOngoing(t *testing.T) {
	base := time.Unix(100, 0).UTC()
	b, err := json.Marshal(DropEvent{StartedAt: base, Frames: 3})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if strings.Contains(string(b), "recovered_at") {
		t.Fatalf("ongoing event json = %s", b)
	}

	recovered := base.Add(time.Second)
	b, err = json.Marshal(DropEvent{StartedAt: base, RecoveredAt: &recovered, Frames: 3})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var out DropEvent
	if err := json.Unmarshal(b, &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if out.Ongoing() || !out.RecoveredAt.Equal(recovered) {
		t.Fatalf("recovered_at round trip = %+v", out)
	}

	b, err = json.Marshal(MonitorStats{})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if strings.Contains(string(b), "last_drop_time") {
		t.Fatalf("stats without drops json = %s", b)
	}
}
