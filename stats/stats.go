package stats

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"
)

type Stage string

const (
	StageBundle Stage = "bundle"
	StageRender Stage = "render"
)

type EventType string

const (
	EventTypeLoaded            EventType = "loaded"
	EventTypeFiltered          EventType = "filtered"
	EventTypeRendered          EventType = "rendered"
	EventTypeSeparator         EventType = "separator"
	EventTypeAttachmentInline  EventType = "attachment_inline"
	EventTypeAttachmentLinked  EventType = "attachment_linked"
	EventTypeAttachmentLabeled EventType = "attachment_labeled"
	EventTypeDegradedTimestamp EventType = "degraded_timestamp"
	EventTypeError             EventType = "error"
)

type Event struct {
	Stage  Stage
	Type   EventType
	Author string
	Detail string
	Err    error
}

// Sink receives pipeline events. The pipeline is synchronous, so Emit is
// called inline from the rendering pass.
type Sink interface {
	Emit(Event)
}

// Sinks fans one event out to several sinks; nil entries are skipped.
type Sinks []Sink

func (s Sinks) Emit(evt Event) {
	for _, sink := range s {
		if sink != nil {
			sink.Emit(evt)
		}
	}
}

type Summary struct {
	Loaded             int
	Filtered           int
	Rendered           int
	Separators         int
	InlineAttachments  int
	LinkedAttachments  int
	LabeledAttachments int
	DegradedTimestamps int
	Errors             int
	LastError          error
}

func (s Summary) LogAttrs() []any {
	attrs := []any{
		"loaded", s.Loaded,
		"filtered", s.Filtered,
		"rendered", s.Rendered,
		"separators", s.Separators,
		"inlineAttachments", s.InlineAttachments,
		"linkedAttachments", s.LinkedAttachments,
		"labeledAttachments", s.LabeledAttachments,
		"degradedTimestamps", s.DegradedTimestamps,
		"errors", s.Errors,
	}
	if s.LastError != nil {
		attrs = append(attrs, "lastError", s.LastError.Error())
	}
	return attrs
}

// Collector accumulates a Summary from events. It is safe for concurrent
// use, though the pipeline itself emits from a single goroutine.
type Collector struct {
	mu      sync.Mutex
	summary Summary
}

func NewCollector() *Collector {
	return &Collector{}
}

func (c *Collector) Emit(evt Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch evt.Type {
	case EventTypeLoaded:
		c.summary.Loaded++
	case EventTypeFiltered:
		c.summary.Filtered++
	case EventTypeRendered:
		c.summary.Rendered++
	case EventTypeSeparator:
		c.summary.Separators++
	case EventTypeAttachmentInline:
		c.summary.InlineAttachments++
	case EventTypeAttachmentLinked:
		c.summary.LinkedAttachments++
	case EventTypeAttachmentLabeled:
		c.summary.LabeledAttachments++
	case EventTypeDegradedTimestamp:
		c.summary.DegradedTimestamps++
	case EventTypeError:
		c.summary.Errors++
		if evt.Err != nil {
			c.summary.LastError = evt.Err
		}
	}
}

func (c *Collector) Snapshot() Summary {
	c.mu.Lock()
	summary := c.summary
	c.mu.Unlock()
	return summary
}

// Reporter is a Collector that can log its summary when the batch finishes.
type Reporter struct {
	collector *Collector
	logger    *slog.Logger
	started   time.Time
}

func NewReporter(logger *slog.Logger) *Reporter {
	return &Reporter{
		collector: NewCollector(),
		logger:    logger,
		started:   time.Now(),
	}
}

func (r *Reporter) Emit(evt Event) {
	r.collector.Emit(evt)
}

func (r *Reporter) Summary() Summary {
	return r.collector.Snapshot()
}

// Report logs the accumulated summary with the batch duration.
func (r *Reporter) Report() {
	if r.logger == nil {
		return
	}
	summary := r.collector.Snapshot()
	attrs := append(summary.LogAttrs(), "duration", time.Since(r.started))
	r.logger.Info("render summary", attrs...)
}

// PrettyPrintTop prints the top N most frequent items in a map.
func PrettyPrintTop(m map[string]int, limit int) {
	type pair struct {
		Key   string
		Value int
	}

	var pairs []pair
	for k, v := range m {
		pairs = append(pairs, pair{k, v})
	}

	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i].Value != pairs[j].Value {
			return pairs[i].Value > pairs[j].Value
		}
		return pairs[i].Key < pairs[j].Key
	})

	for i := 0; i < limit && i < len(pairs); i++ {
		fmt.Printf("%d. %s (%d)\n", i+1, pairs[i].Key, pairs[i].Value)
	}
}
