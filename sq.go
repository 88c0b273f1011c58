//go:build linux

package iouring

import (
	"sync"
	"sync/atomic"

	"github.com/wiresong/iouring/internal/sys"
)

// submitQueue is the SQ half of a ring: the mmap'd shared cursors plus the
// local head/tail a single submitter advances before publishing a batch to
// the kernel via the shared tail.
type submitQueue struct {
	mu sync.Mutex

	entries []sys.SQE
	array   []uint32

	mask    uint32
	flags   *uint32 // shared kflags (IORING_SQ_*)
	dropped *uint32 // shared kdropped

	khead *uint32 // shared head, only moved by the kernel
	ktail *uint32 // shared tail, only moved by us

	head uint32 // local cursor: next slot to flush
	tail uint32 // local cursor: next slot to hand out
}

// tryGet returns the next free SQE, or false if the queue is full relative
// to the kernel's last-observed head. Callers must flush before the local
// tail can advance past a full ring.
func (sq *submitQueue) tryGet() (*sys.SQE, bool) {
	head := atomic.LoadUint32(sq.khead)
	if sq.tail-head >= uint32(len(sq.entries)) {
		return nil, false
	}
	idx := sq.tail & sq.mask
	sq.tail++
	return &sq.entries[idx], true
}

// flush publishes every SQE built since the last flush by writing their
// indices into the shared array and releasing the new tail to the kernel.
// Returns the number of entries published.
func (sq *submitQueue) flush() uint32 {
	if sq.head == sq.tail {
		return 0
	}
	mask := sq.mask
	ktail := atomic.LoadUint32(sq.ktail)
	n := sq.tail - sq.head
	for i := uint32(0); i < n; i++ {
		sq.array[ktail&mask] = sq.head & mask
		ktail++
		sq.head++
	}
	atomic.StoreUint32(sq.ktail, ktail)
	return n
}

// needsWakeup reports whether the SQPOLL kernel thread has parked and must
// be woken with IORING_ENTER_SQ_WAKEUP before it will see new entries.
func (sq *submitQueue) needsWakeup() bool {
	return atomic.LoadUint32(sq.flags)&sys.IORING_SQ_NEED_WAKEUP != 0
}

// dropCount reads the kernel's invalid-SQE counter. A non-zero value here
// means a caller fed the kernel a malformed SQE; this package's own
// construction never should, so the ring facade treats it as a bug, not a
// recoverable condition.
func (sq *submitQueue) dropCount() uint32 {
	return atomic.LoadUint32(sq.dropped)
}
