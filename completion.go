//go:build linux

package iouring

import (
	"sync"
	"time"

	"github.com/wiresong/iouring/internal/metrics"
)

// completionState is the value shared between a Completion and its
// completionFiller. Exactly one fill happens per ticket; Wait can be called
// any number of times afterward and simply replays the stored result.
type completionState[T any] struct {
	mu    sync.Mutex
	cond  *sync.Cond
	done  bool
	val   T
	err   error
	start time.Time
	hist  *metrics.Histogram

	// ring is the facade this handle was issued by. Wait uses it to push a
	// Link-deferred SQE to the kernel before parking, so a handle from a
	// chain member that was never followed by a non-Link submission still
	// completes instead of blocking forever.
	ring *Ring
}

// Completion is a handle to a single submitted request's eventual result.
// It behaves like a blocking future: Wait parks the calling goroutine until
// the reaper has decoded the matching CQE.
//
// Go has no equivalent of the linear-type drop guarantee the originating
// design relies on to stop a caller's buffer from being reclaimed while the
// kernel still holds a pointer into it. Completion approximates that
// guarantee dynamically instead: as long as a caller keeps the handle
// reachable until it calls Wait (or Close) before releasing the buffer, the
// kernel is guaranteed done by the time the buffer is freed. Dropping a
// Completion without waiting is a misuse this package cannot detect at
// compile time — callers in garbage-collected or dynamically typed hosts
// should treat Close as mandatory cleanup, not an optional courtesy.
type Completion[T any] struct {
	state *completionState[T]
}

// completionFiller is the producer side of a Completion, held by the
// in-flight table until the matching CQE arrives.
type completionFiller[T any] struct {
	state *completionState[T]
	build func(res int32, flags uint32) (T, error)
}

// newCompletion builds a Completion/filler pair. build turns a raw CQE
// result into the operation's typed return value (bytes transferred, an
// accepted fd, and so on) or an error derived from a negative res. ring is
// the facade Wait must flush through before it parks; nil is accepted for
// tests that fill a completion directly without ever submitting anything.
func newCompletion[T any](ring *Ring, hist *metrics.Histogram, build func(res int32, flags uint32) (T, error)) (Completion[T], completionFiller[T]) {
	st := &completionState[T]{ring: ring, hist: hist, start: time.Now()}
	st.cond = sync.NewCond(&st.mu)
	return Completion[T]{state: st}, completionFiller[T]{state: st, build: build}
}

// fill is invoked exactly once, by the reaper goroutine, when the CQE for
// this ticket is decoded.
func (f completionFiller[T]) fill(res int32, flags uint32) {
	val, err := f.build(res, flags)
	f.state.mu.Lock()
	f.state.val = val
	f.state.err = err
	f.state.done = true
	f.state.mu.Unlock()
	f.state.cond.Broadcast()
	if f.state.hist != nil {
		f.state.hist.Record(uint64(time.Since(f.state.start).Nanoseconds()))
	}
}

// Wait blocks until the kernel has completed this request and returns its
// typed result. Safe to call from multiple goroutines and more than once.
//
// A request submitted with Link is deliberately left unflushed until a
// later non-Link submission chains onto it, so Wait first pushes it to the
// kernel itself (ensureSubmitted is a no-op if it's already gone out) —
// otherwise a handle from a chain's last link would never see its CQE.
func (c Completion[T]) Wait() (T, error) {
	if c.state.ring != nil {
		_ = c.state.ring.ensureSubmitted()
	}
	c.state.mu.Lock()
	defer c.state.mu.Unlock()
	for !c.state.done {
		c.state.cond.Wait()
	}
	return c.state.val, c.state.err
}

// Close waits for the completion and discards its value, satisfying
// io.Closer. It is the "blocking drop" callers should run in a defer
// immediately after submitting, to bound the lifetime of any buffer the
// kernel was given.
func (c Completion[T]) Close() error {
	_, err := c.Wait()
	return err
}
