package event

import (
	"sync"
)

// Name is a public event name.
type Name string

// Connection events.
const (
	Connecting   Name = "connecting"
	Connected    Name = "connected"
	Disconnected Name = "disconnected"
	Subscribed   Name = "subscribed"
	Published    Name = "published"
)

// Telemetry events.
const (
	RawMessage Name = "rawMessage"
	Message    Name = "message"
	Status     Name = "status"
)

// Job lifecycle events.
const (
	PrintStart  Name = "print:start"
	PrintUpdate Name = "print:update"
	PrintFinish Name = "print:finish"
)

// PushInfoClean is emitted with each structured push_info log line.
const PushInfoClean Name = "command:push_info:clean"

// Command returns the "command:<name>" event for a protocol command.
func Command(name string) Name {
	return Name("command:" + name)
}

type handler[T any] struct {
	id int
	fn func(Name, T)
}

// Emitter dispatches payloads of type T to handlers registered by name.
//
// Emit calls handlers synchronously, in registration order, on the caller's
// goroutine. Handlers may register or remove handlers while being called;
// such changes apply from the next Emit.
type Emitter[T any] struct {
	mu     sync.RWMutex
	nextID int
	byName map[Name][]handler[T]
	all    []handler[T]
}

// NewEmitter creates an empty emitter.
func NewEmitter[T any]() *Emitter[T] {
	return &Emitter[T]{byName: make(map[Name][]handler[T])}
}

// On registers fn for one event name and returns a function that removes it.
func (e *Emitter[T]) On(name Name, fn func(T)) (off func()) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.nextID++
	id := e.nextID
	e.byName[name] = append(e.byName[name], handler[T]{id: id, fn: func(_ Name, v T) { fn(v) }})

	return func() {
		e.mu.Lock()
		defer e.mu.Unlock()
		e.byName[name] = remove(e.byName[name], id)
	}
}

// OnAny registers fn for every event and returns a function that removes it.
func (e *Emitter[T]) OnAny(fn func(Name, T)) (off func()) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.nextID++
	id := e.nextID
	e.all = append(e.all, handler[T]{id: id, fn: fn})

	return func() {
		e.mu.Lock()
		defer e.mu.Unlock()
		e.all = remove(e.all, id)
	}
}

// Emit delivers v to the handlers of name, then to the catch-all handlers.
func (e *Emitter[T]) Emit(name Name, v T) {
	e.mu.RLock()
	named := e.byName[name]
	all := e.all
	e.mu.RUnlock()

	for _, h := range named {
		h.fn(name, v)
	}
	for _, h := range all {
		h.fn(name, v)
	}
}

// Count returns the number of handlers registered for name, excluding catch-all handlers.
func (e *Emitter[T]) Count(name Name) int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.byName[name])
}

// remove returns a fresh slice so snapshots held by in-flight Emit calls stay intact.
func remove[T any](hs []handler[T], id int) []handler[T] {
	out := make([]handler[T], 0, len(hs))
	for _, h := range hs {
		if h.id != id {
			out = append(out, h)
		}
	}
	return out
}
