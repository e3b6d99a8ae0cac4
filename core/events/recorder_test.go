package events

import (
	"testing"

	"pactd/core/types"
)

type stubEvent struct {
	payload *types.Event
}

func (s stubEvent) EventType() string {
	if s.payload == nil {
		return ""
	}
	return s.payload.Type
}

func (s stubEvent) Event() *types.Event { return s.payload }

func emitStub(r *Recorder, eventType string) {
	r.Emit(stubEvent{payload: &types.Event{Type: eventType, Attributes: map[string]string{"k": "v"}}})
}

func TestRecorderAssignsSequenceNumbers(t *testing.T) {
	recorder := NewRecorder(16)
	emitStub(recorder, "agreement.created")
	emitStub(recorder, "agreement.matched")

	entries := recorder.List("", 0)
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].Sequence != 1 || entries[1].Sequence != 2 {
		t.Fatalf("unexpected sequences: %d, %d", entries[0].Sequence, entries[1].Sequence)
	}
	if entries[0].Event.Type != "agreement.created" {
		t.Fatalf("unexpected first event %q", entries[0].Event.Type)
	}
}

func TestRecorderFiltersByPrefixAndLimit(t *testing.T) {
	recorder := NewRecorder(16)
	emitStub(recorder, "agreement.created")
	emitStub(recorder, "ledger.credit")
	emitStub(recorder, "agreement.matched")

	entries := recorder.List("agreement.", 0)
	if len(entries) != 2 {
		t.Fatalf("expected 2 agreement entries, got %d", len(entries))
	}

	limited := recorder.List("", 1)
	if len(limited) != 1 || limited[0].Sequence != 1 {
		t.Fatalf("unexpected limited result: %+v", limited)
	}
}

func TestRecorderDropsOldestBeyondCapacity(t *testing.T) {
	recorder := NewRecorder(2)
	emitStub(recorder, "a")
	emitStub(recorder, "b")
	emitStub(recorder, "c")

	entries := recorder.List("", 0)
	if len(entries) != 2 {
		t.Fatalf("expected capacity-bounded history, got %d entries", len(entries))
	}
	if entries[0].Sequence != 2 || entries[1].Sequence != 3 {
		t.Fatalf("expected oldest entry dropped, got sequences %d, %d", entries[0].Sequence, entries[1].Sequence)
	}
}

func TestRecorderIgnoresPayloadlessEvents(t *testing.T) {
	recorder := NewRecorder(4)
	recorder.Emit(stubEvent{payload: nil})
	if entries := recorder.List("", 0); len(entries) != 0 {
		t.Fatalf("expected no entries, got %d", len(entries))
	}
}
