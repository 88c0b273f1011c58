//go:build linux

package iouring

import (
	"math"
	"sync/atomic"

	"github.com/wiresong/iouring/internal/sys"
)

// poisonThreshold marks a ticket's user_data as the ring's shutdown signal rather
// than a real completion, matching this package's encode/detect scheme:
// encode with XOR, detect with "upper half of the uint64 space".
const poisonThreshold = math.MaxUint64 / 2

func encodePoison(ticket uint32) uint64 {
	return uint64(ticket) ^ math.MaxUint64
}

func decodePoison(userData uint64) (ticket uint32, isPoison bool) {
	if userData > poisonThreshold {
		return uint32(userData ^ math.MaxUint64), true
	}
	return uint32(userData), false
}

// completionQueue is the CQ half of a ring: the mmap'd shared cursors the
// reaper goroutine drains.
type completionQueue struct {
	entries  []sys.CQE
	mask     uint32
	overflow *uint32 // shared koverflow

	khead *uint32 // shared head, only moved by us
	ktail *uint32 // shared tail, only moved by the kernel
}

// ready returns the CQEs published by the kernel since the last reap,
// without yet advancing the shared head.
func (cq *completionQueue) ready() []sys.CQE {
	head := atomic.LoadUint32(cq.khead)
	tail := atomic.LoadUint32(cq.ktail)
	n := tail - head
	if n == 0 {
		return nil
	}
	out := make([]sys.CQE, n)
	for i := uint32(0); i < n; i++ {
		out[i] = cq.entries[(head+i)&cq.mask]
	}
	return out
}

// advance releases n consumed CQEs back to the kernel.
func (cq *completionQueue) advance(n uint32) {
	atomic.AddUint32(cq.khead, n)
}

// reap runs on its own goroutine for the lifetime of the ring. It blocks in
// the kernel waiting for at least one completion, decodes every ready CQE,
// fills the matching Completion, and returns consumed tickets to the free
// list in one batch per wake-up. IORING_FEAT_NODROP plus this package's
// ticket-per-CQ-slot invariant means koverflow must never become nonzero;
// if it does, something issued more in-flight requests than tickets allow,
// which is this package's own bug, not the caller's.
func (r *Ring) reap() {
	defer close(r.reaperDone)

	for {
		_, err := sys.Enter(r.fd, 0, 1, sys.IORING_ENTER_GETEVENTS, nil)
		if err != nil {
			continue
		}

		if atomic.LoadUint32(r.cq.overflow) != 0 {
			panic("iouring: completion queue overflow despite ticket-per-slot accounting")
		}

		ready := r.cq.ready()
		if len(ready) == 0 {
			continue
		}

		tickets := make([]uint32, 0, len(ready))
		shutdown := false
		for _, cqe := range ready {
			ticket, isPoison := decodePoison(cqe.UserData)
			if isPoison {
				shutdown = true
				break
			}
			f := r.inflight.takeFiller(ticket)
			if f != nil {
				f.fill(cqe.Res, cqe.Flags)
			}
			tickets = append(tickets, ticket)
		}

		r.cq.advance(uint32(len(tickets)))
		if shutdown {
			r.cq.advance(1) // consume the poison CQE itself
		}
		r.tickets.pushMulti(tickets)

		if shutdown {
			return
		}
	}
}
