package events

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEmitDispatchesToSubscribedHandlers(t *testing.T) {
	b := New(nil)
	var got Event
	b.On(TypeScroll, func(e Event) { got = e })
	b.Emit(Event{Type: TypeScroll, Payload: 42})
	assert.Equal(t, TypeScroll, got.Type)
	assert.Equal(t, 42, got.Payload)
}

func TestEmitIgnoresOtherTypes(t *testing.T) {
	b := New(nil)
	called := false
	b.On(TypeScroll, func(e Event) { called = true })
	b.Emit(Event{Type: TypeResize})
	assert.False(t, called)
}

func TestOffRemovesHandler(t *testing.T) {
	b := New(nil)
	calls := 0
	tok := b.On(TypeLoadStart, func(e Event) { calls++ })
	b.Emit(Event{Type: TypeLoadStart})
	b.Off(tok)
	b.Emit(Event{Type: TypeLoadStart})
	assert.Equal(t, 1, calls)
}

func TestHandlerPanicIsRecoveredAndReported(t *testing.T) {
	var reportedType Type
	var reportedVal any
	b := New(func(t Type, v any) {
		reportedType = t
		reportedVal = v
	})
	secondCalled := false
	b.On(TypeError, func(e Event) { panic("boom") })
	b.On(TypeError, func(e Event) { secondCalled = true })

	assert.NotPanics(t, func() { b.Emit(Event{Type: TypeError}) })
	assert.True(t, secondCalled)
	assert.Equal(t, TypeError, reportedType)
	assert.Equal(t, "boom", reportedVal)
}

func TestHandlerCanUnsubscribeItselfDuringEmit(t *testing.T) {
	b := New(nil)
	calls := 0
	var tok any
	tok = b.On(TypeScroll, func(e Event) {
		calls++
		b.Off(tok)
	})
	b.Emit(Event{Type: TypeScroll})
	b.Emit(Event{Type: TypeScroll})
	assert.Equal(t, 1, calls)
}

func TestHandlerCanSubscribeNewHandlerDuringEmit(t *testing.T) {
	b := New(nil)
	newHandlerCalls := 0
	b.On(TypeScroll, func(e Event) {
		b.On(TypeScroll, func(e Event) { newHandlerCalls++ })
	})

	b.Emit(Event{Type: TypeScroll}) // the newly added handler must not run mid-dispatch
	assert.Equal(t, 0, newHandlerCalls)

	b.Emit(Event{Type: TypeScroll}) // but it does run on the next emit
	assert.Equal(t, 1, newHandlerCalls)
}

func TestListenerCount(t *testing.T) {
	b := New(nil)
	assert.Equal(t, 0, b.ListenerCount(TypeScroll))
	b.On(TypeScroll, func(e Event) {})
	b.On(TypeScroll, func(e Event) {})
	assert.Equal(t, 2, b.ListenerCount(TypeScroll))
}
