//go:build linux

package iouring

import (
	"syscall"

	"golang.org/x/sys/unix"
)

// filler is the non-generic face of a completionFiller[T], letting the
// in-flight table hold fillers of different result types in one slice.
type filler interface {
	fill(res int32, flags uint32)
}

// inFlightCell holds everything that must outlive a submitted SQE until its
// CQE arrives: the kernel only has a raw pointer into this memory, so Go's
// garbage collector must be kept from reclaiming or moving it.
type inFlightCell struct {
	iovecs  []syscall.Iovec
	msghdr  *unix.Msghdr
	addr    *unix.RawSockaddrAny
	addrLen *uint32
	filler  filler

	// keepAlive pins any buffer the kernel was handed a raw pointer into
	// (a plain []byte for Read/Write/Send/Recv) that isn't already
	// referenced by one of the typed fields above.
	keepAlive any
}

// inFlight is indexed by ticket, one cell per CQ entry. A ticket is only
// ever touched by one goroutine at a time — the submitter while building
// the request, then the reaper once (and only once) the matching CQE has
// been decoded — so no locking is needed across cells; ticketQueue is what
// serializes ticket lifetime.
type inFlight struct {
	cells []inFlightCell
}

func newInFlight(capacity uint32) *inFlight {
	return &inFlight{cells: make([]inFlightCell, capacity)}
}

// insert records what must be kept alive for ticket until it completes.
func (t *inFlight) insert(ticket uint32, c inFlightCell) {
	t.cells[ticket] = c
}

// takeFiller removes and returns the filler for ticket, releasing every
// other reference in the cell so the garbage collector can reclaim the
// buffers once the caller drops its Completion.
func (t *inFlight) takeFiller(ticket uint32) filler {
	f := t.cells[ticket].filler
	t.cells[ticket] = inFlightCell{}
	return f
}
