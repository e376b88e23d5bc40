package progress

import (
	"sync"

	"github.com/pterm/pterm"

	"github.com/exportkit/chatview/stats"
)

// Bar manages a progress bar tracking the rendering batch. It implements
// stats.Sink so the pipeline feeds it directly.
type Bar struct {
	pb      *pterm.ProgressbarPrinter
	total   int
	mu      sync.Mutex
	enabled bool
}

// New creates a progress bar when logLevel is "info"; at other levels the
// bar stays silent so log lines are not mangled.
func New(total int, logLevel string) *Bar {
	enabled := logLevel == "info" && total > 0

	bar := &Bar{total: total, enabled: enabled}

	if enabled {
		pb, _ := pterm.DefaultProgressbar.
			WithTotal(total).
			WithTitle("Rendering messages").
			Start()
		bar.pb = pb
	}

	return bar
}

// Emit advances the bar for each message that leaves the pipeline, rendered
// or filtered. Errors print above the bar.
func (b *Bar) Emit(evt stats.Event) {
	if !b.enabled || b.pb == nil {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	switch evt.Type {
	case stats.EventTypeRendered, stats.EventTypeFiltered:
		b.pb.Increment()
		if evt.Author != "" {
			display := evt.Author
			if len(display) > 40 {
				display = display[:37] + "..."
			}
			b.pb.UpdateTitle("Rendering: " + display)
		}
	case stats.EventTypeError:
		if evt.Err != nil {
			pterm.Error.Printf("Error: %v\n", evt.Err)
		}
	}
}

// Stop finalizes the progress bar.
func (b *Bar) Stop() {
	if !b.enabled || b.pb == nil {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.pb.Current < b.total {
		b.pb.Current = b.total
	}

	b.pb.Stop()
	pterm.Success.Println("Rendering complete!")
}
