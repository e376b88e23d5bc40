// Package pipeline drives one rendering batch: filter, chronological sort,
// then the rendering pass. The batch is synchronous and single-threaded;
// there is no shared state across invocations.
package pipeline

import (
	"log/slog"
	"sort"
	"time"

	"github.com/exportkit/chatview/filter"
	"github.com/exportkit/chatview/model"
	"github.com/exportkit/chatview/render"
	"github.com/exportkit/chatview/stats"
	"github.com/exportkit/chatview/timestamp"
)

type Pipeline struct {
	renderer *render.Renderer
	filter   *filter.Filter
	sink     stats.Sink
	logger   *slog.Logger
}

// New wires a pipeline. The filter, sink and logger may be nil.
func New(renderer *render.Renderer, f *filter.Filter, sink stats.Sink, logger *slog.Logger) *Pipeline {
	return &Pipeline{renderer: renderer, filter: f, sink: sink, logger: logger}
}

// Run sorts the bundle's messages by normalized timestamp ascending and
// renders the ordered sequence. Messages whose timestamp fails to parse sort
// as the earliest possible instant; the sort is stable, so original order is
// preserved among equal or equally unparseable timestamps.
func (p *Pipeline) Run(b *model.Bundle) []render.Fragment {
	type keyed struct {
		msg model.Message
		key time.Time
	}

	ordered := make([]keyed, 0, len(b.Messages))
	for _, msg := range b.Messages {
		p.emit(stats.Event{Stage: stats.StageBundle, Type: stats.EventTypeLoaded, Author: msg.Author})
		if p.filter != nil && !p.filter.Allows(msg) {
			p.emit(stats.Event{Stage: stats.StageBundle, Type: stats.EventTypeFiltered, Author: msg.Author})
			continue
		}
		ordered = append(ordered, keyed{msg: msg, key: timestamp.SortKey(msg.CreatedAt)})
	}

	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].key.Before(ordered[j].key)
	})

	messages := make([]model.Message, len(ordered))
	for i, k := range ordered {
		messages[i] = k.msg
	}

	if p.logger != nil {
		p.logger.Debug("rendering batch", "messages", len(messages), "filtered", len(b.Messages)-len(messages))
	}

	return p.renderer.Sequence(messages)
}

func (p *Pipeline) emit(evt stats.Event) {
	if p.sink != nil {
		p.sink.Emit(evt)
	}
}
