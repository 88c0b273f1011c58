//go:build linux

package iouring

import "github.com/wiresong/iouring/internal/sys"

// Ordering controls how a submission is sequenced relative to its
// neighbors in the same submission batch.
type Ordering uint8

const (
	// None imposes no ordering: the kernel may execute this request
	// concurrently with anything submitted around it.
	None Ordering = iota
	// Link chains this request to the one that immediately follows it
	// in submission order: the next request only starts once this one
	// completes, and a failure in this one cancels the rest of the chain.
	Link
	// Drain defers this request until every SQE already submitted to the
	// ring has completed, and blocks subsequently submitted SQEs from
	// starting until this one completes.
	Drain
)

// sqeFlags returns the IOSQE_* bits this ordering contributes to an SQE.
func (o Ordering) sqeFlags() uint8 {
	switch o {
	case Link:
		return sys.IOSQE_IO_LINK
	case Drain:
		return sys.IOSQE_IO_DRAIN
	default:
		return 0
	}
}
