package telemetry

import "sync"

type EventKind int

const (
	EventBroken EventKind = iota
	EventWarning
	EventDebug
	EventCount
)

type Event struct {
	Kind   EventKind
	ID     string
	Params []any
	Count  int64
}

// RecorderAPI is an API that keeps every reported event in memory, it is
// meant for asserting on telemetry in tests.
type RecorderAPI struct {
	lock   sync.Mutex
	events []Event
}

func (r *RecorderAPI) record(e Event) {
	r.lock.Lock()
	defer r.lock.Unlock()
	r.events = append(r.events, e)
}

func (r *RecorderAPI) ReportBroken(id string, params ...any) {
	r.record(Event{Kind: EventBroken, ID: id, Params: params})
}

func (r *RecorderAPI) ReportWarning(id string, params ...any) {
	r.record(Event{Kind: EventWarning, ID: id, Params: params})
}

func (r *RecorderAPI) ReportDebug(id string, params ...any) {
	r.record(Event{Kind: EventDebug, ID: id, Params: params})
}

func (r *RecorderAPI) ReportCount(id string, count int64) {
	r.record(Event{Kind: EventCount, ID: id, Count: count})
}

// Events returns a copy of the recorded events.
func (r *RecorderAPI) Events() []Event {
	r.lock.Lock()
	defer r.lock.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

// IDs returns the ids of the recorded events of the given kind, in order.
func (r *RecorderAPI) IDs(kind EventKind) []string {
	var ids []string
	for _, e := range r.Events() {
		if e.Kind == kind {
			ids = append(ids, e.ID)
		}
	}
	return ids
}
