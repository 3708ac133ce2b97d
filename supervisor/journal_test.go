package supervisor

import (
	"reflect"
	"sync"
	"testing"
)

// mockJournal is an in-memory Journaler, in the style of
// cronmon's mockJournal: a zero value is ready to use, and Verify
// consumes the events it checks so consecutive calls check the
// remainder.
type mockJournal struct {
	mu     sync.Mutex
	events []Event
}

var _ Journaler = (*mockJournal)(nil)

func (m *mockJournal) Write(ev Event) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, ev)
}

func (m *mockJournal) Verify(t *testing.T, strict bool, want []Event) []Event {
	t.Helper()

	m.mu.Lock()
	defer m.mu.Unlock()

	if strict && len(want) != len(m.events) {
		t.Errorf("mismatched journal length: got %d, want %d", len(m.events), len(want))
		return nil
	}

	for i, ev := range want {
		if !reflect.DeepEqual(m.events[i], ev) {
			t.Errorf("journal %d mismatch: got %#v, want %#v", i, m.events[i], ev)
		}
	}

	m.events = m.events[len(want):]
	return m.events
}
