package scroll

import (
	"context"
	"testing"
	"time"

	"github.com/rowvirt/vlist/internal/easing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVelocityTrackerBasics(t *testing.T) {
	v := newVelocityTracker(5)
	base := time.Now()
	assert.False(t, v.Reliable())
	assert.Equal(t, 0.0, v.Velocity())

	v.AddSample(0, base)
	v.AddSample(100, base.Add(40*time.Millisecond))
	assert.True(t, v.Reliable())
	assert.InDelta(t, 2.5, v.Velocity(), 0.001) // 100 units / 40 ms
	assert.Equal(t, 1, v.Direction())
}

func TestVelocityTrackerResetsOnGap(t *testing.T) {
	v := newVelocityTracker(5)
	base := time.Now()
	v.AddSample(0, base)
	v.AddSample(50, base.Add(150*time.Millisecond)) // gap > 100ms resets
	assert.Equal(t, 1, len(v.samples))
	assert.Equal(t, 0.0, v.Velocity())
}

func TestVelocityTrackerRingBuffer(t *testing.T) {
	v := newVelocityTracker(5)
	base := time.Now()
	for i := 0; i < 10; i++ {
		v.AddSample(float64(i)*10, base.Add(time.Duration(i)*10*time.Millisecond))
	}
	assert.LessOrEqual(t, len(v.samples), 5)
}

func TestHandleEventTransitionsToScrolling(t *testing.T) {
	c := New(AxisVertical, ModeElement, 50*time.Millisecond)
	var gotDir int
	var gotVel float64
	c.OnScroll(func(pos float64, dir int, vel float64, reliable bool) {
		gotDir = dir
		gotVel = vel
	})
	now := time.Now()
	c.HandleEvent(0, now)
	c.HandleEvent(100, now.Add(20*time.Millisecond))
	assert.Equal(t, StateScrolling, c.State())
	assert.Equal(t, 1, gotDir)
	assert.Greater(t, gotVel, 0.0)
}

func TestIdleFiresAfterTimeout(t *testing.T) {
	c := New(AxisVertical, ModeElement, 30*time.Millisecond)
	done := make(chan struct{})
	c.OnIdle(func() { close(done) })
	c.HandleEvent(0, time.Now())

	select {
	case <-done:
	case <-time.After(300 * time.Millisecond):
		t.Fatal("idle callback did not fire")
	}
	assert.Equal(t, StateIdle, c.State())
}

func TestScrollToDirect(t *testing.T) {
	c := New(AxisVertical, ModeElement, 50*time.Millisecond)
	c.ScrollTo(500)
	assert.Equal(t, 500.0, c.Position())
}

func TestScrollToSmoothReachesTarget(t *testing.T) {
	c := New(AxisVertical, ModeElement, 50*time.Millisecond)
	err := c.ScrollToSmooth(context.Background(), 1000, 40*time.Millisecond, easing.Linear, nil)
	require.NoError(t, err)
	assert.Equal(t, 1000.0, c.Position())
}

func TestScrollToSmoothCancellable(t *testing.T) {
	c := New(AxisVertical, ModeElement, 50*time.Millisecond)
	done := make(chan error, 1)
	go func() {
		done <- c.ScrollToSmooth(context.Background(), 1000, 500*time.Millisecond, easing.Linear, nil)
	}()
	time.Sleep(30 * time.Millisecond)
	c.CancelScroll()
	err := <-done
	assert.Error(t, err)
	assert.Less(t, c.Position(), 1000.0)
}

func TestUserInputCancelsSmoothScroll(t *testing.T) {
	c := New(AxisVertical, ModeElement, 50*time.Millisecond)
	done := make(chan error, 1)
	go func() {
		done <- c.ScrollToSmooth(context.Background(), 1000, 500*time.Millisecond, easing.Linear, nil)
	}()
	time.Sleep(30 * time.Millisecond)
	c.HandleEvent(42, time.Now())
	err := <-done
	assert.Error(t, err)
}
