package event

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEmitter_OrderAndNames(t *testing.T) {
	e := NewEmitter[int]()
	var got []string

	e.On(PrintStart, func(v int) { got = append(got, "a") })
	e.On(PrintStart, func(v int) { got = append(got, "b") })
	e.On(PrintFinish, func(v int) { got = append(got, "finish") })
	e.OnAny(func(n Name, v int) { got = append(got, "any:"+string(n)) })

	e.Emit(PrintStart, 1)

	assert.Equal(t, []string{"a", "b", "any:print:start"}, got)
}

func TestEmitter_Off(t *testing.T) {
	e := NewEmitter[string]()
	calls := 0

	off := e.On(Status, func(string) { calls++ })
	offAny := e.OnAny(func(Name, string) { calls++ })
	e.Emit(Status, "x")
	off()
	offAny()
	e.Emit(Status, "y")

	assert.Equal(t, 2, calls)
	assert.Equal(t, 0, e.Count(Status))
}

func TestEmitter_RegisterDuringEmit(t *testing.T) {
	e := NewEmitter[int]()
	inner := 0

	e.On(Message, func(int) {
		e.On(Message, func(int) { inner++ })
	})

	e.Emit(Message, 1)
	assert.Equal(t, 0, inner)

	e.Emit(Message, 2)
	assert.Equal(t, 1, inner)
}

func TestCommand(t *testing.T) {
	assert.Equal(t, Name("command:push_status"), Command("push_status"))
	assert.Equal(t, Name("command:push_info:clean"), PushInfoClean)
}
