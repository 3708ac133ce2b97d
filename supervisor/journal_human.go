package supervisor

import (
	"fmt"
	"io"
	"sync"
	"time"
)

// HumanJournaler writes one line per event to w, timestamped, in the
// style of cronmon's stderr writer. It is concurrency-safe, though the
// core only ever calls it from the event loop goroutine.
type HumanJournaler struct {
	mu sync.Mutex
	w  io.Writer
}

var _ Journaler = (*HumanJournaler)(nil)

// NewHumanJournaler creates a journaler that writes human-readable lines
// to w.
func NewHumanJournaler(w io.Writer) *HumanJournaler {
	return &HumanJournaler{w: w}
}

func (h *HumanJournaler) Write(ev Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	fmt.Fprintf(h.w, "%s %s: %s\n", time.Now().Format(time.RFC3339), ev.Type(), ev.String())
}

// MultiJournaler fans a single event out to several journalers, in the
// style of cronmon/journal.MultiWriter.
type MultiJournaler struct {
	journalers []Journaler
}

var _ Journaler = MultiJournaler{}

// NewMultiJournaler creates a journaler that writes to every one of js.
func NewMultiJournaler(js ...Journaler) MultiJournaler {
	return MultiJournaler{journalers: js}
}

func (m MultiJournaler) Write(ev Event) {
	for _, j := range m.journalers {
		j.Write(ev)
	}
}
