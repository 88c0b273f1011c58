//go:build linux

package iouring

import (
	"github.com/wiresong/iouring/internal/sys"
)

// Probe reports which opcodes the running kernel actually supports.
// IORING_REGISTER_PROBE predates most of the feature flags this package
// already reads off Params at setup, so this is the only way to answer a
// narrower question: not "what did setup negotiate" but "does opcode X
// exist at all" — socket ops in particular landed kernel releases apart
// (accept in 5.5, send/recv in 5.6; see SyncFileRange's own kernel quirk),
// so a caller on an older kernel needs to check before calling them.
type Probe struct {
	probe sys.Probe
}

// Probe queries the kernel for supported operations.
func (r *Ring) Probe() (*Probe, error) {
	p := &Probe{}
	if err := sys.RegisterProbe(r.fd, &p.probe); err != nil {
		return nil, err
	}
	return p, nil
}

// SupportsOp returns true if the kernel supports the given operation.
func (p *Probe) SupportsOp(op sys.Op) bool {
	if uint8(op) > p.probe.LastOp {
		return false
	}
	return p.probe.Ops[op].Flags&sys.IO_URING_OP_SUPPORTED != 0
}

// requireOp checks op against the ring's probe, returning ErrNotSupported
// if the kernel predates it. Accept/Send/Recv/SendTo/RecvFrom all call
// this before building their SQE, since those opcodes (unlike read/write/
// fsync/nop) are recent enough that running on an unsupported kernel is a
// real possibility, not a theoretical one. The probe result is fetched
// once per ring and cached: it can't change for the lifetime of the fd.
func (r *Ring) requireOp(op sys.Op) error {
	r.probeOnce.Do(func() {
		r.cachedProbe, r.probeErr = r.Probe()
	})
	if r.probeErr != nil {
		// IORING_REGISTER_PROBE itself is unavailable on kernels old enough
		// to predate it (< 5.6) — treat that the same as the op missing.
		return ErrNotSupported
	}
	if !r.cachedProbe.SupportsOp(op) {
		return ErrNotSupported
	}
	return nil
}
