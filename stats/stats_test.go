package stats

import (
	"errors"
	"testing"
)

func TestCollectorCounts(t *testing.T) {
	c := NewCollector()

	events := []Event{
		{Type: EventTypeLoaded},
		{Type: EventTypeLoaded},
		{Type: EventTypeFiltered},
		{Type: EventTypeRendered},
		{Type: EventTypeSeparator},
		{Type: EventTypeAttachmentInline},
		{Type: EventTypeAttachmentLinked},
		{Type: EventTypeAttachmentLabeled},
		{Type: EventTypeDegradedTimestamp},
		{Type: EventTypeError, Err: errors.New("boom")},
	}
	for _, evt := range events {
		c.Emit(evt)
	}

	s := c.Snapshot()
	if s.Loaded != 2 {
		t.Errorf("Loaded = %d, want 2", s.Loaded)
	}
	if s.Filtered != 1 || s.Rendered != 1 || s.Separators != 1 {
		t.Errorf("Filtered/Rendered/Separators = %d/%d/%d, want 1/1/1", s.Filtered, s.Rendered, s.Separators)
	}
	if s.InlineAttachments != 1 || s.LinkedAttachments != 1 || s.LabeledAttachments != 1 {
		t.Errorf("attachment counts = %d/%d/%d, want 1/1/1", s.InlineAttachments, s.LinkedAttachments, s.LabeledAttachments)
	}
	if s.DegradedTimestamps != 1 {
		t.Errorf("DegradedTimestamps = %d, want 1", s.DegradedTimestamps)
	}
	if s.Errors != 1 || s.LastError == nil || s.LastError.Error() != "boom" {
		t.Errorf("Errors = %d, LastError = %v", s.Errors, s.LastError)
	}
}

func TestSinksFanOutSkipsNil(t *testing.T) {
	a := NewCollector()
	b := NewCollector()
	sinks := Sinks{a, nil, b}

	sinks.Emit(Event{Type: EventTypeRendered})

	if a.Snapshot().Rendered != 1 || b.Snapshot().Rendered != 1 {
		t.Error("event did not reach every sink")
	}
}

func TestSummaryLogAttrs(t *testing.T) {
	s := Summary{Loaded: 3, Errors: 1, LastError: errors.New("boom")}
	attrs := s.LogAttrs()
	if len(attrs)%2 != 0 {
		t.Fatalf("LogAttrs length %d is not key/value pairs", len(attrs))
	}

	found := false
	for i := 0; i+1 < len(attrs); i += 2 {
		if attrs[i] == "lastError" {
			found = true
			if attrs[i+1] != "boom" {
				t.Errorf("lastError attr = %v", attrs[i+1])
			}
		}
	}
	if !found {
		t.Error("lastError attr missing when LastError is set")
	}

	if attrs := (Summary{}).LogAttrs(); len(attrs)%2 != 0 {
		t.Errorf("empty summary LogAttrs length %d is not key/value pairs", len(attrs))
	}
}
