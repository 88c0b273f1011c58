//go:build linux

// Package iouring is a misuse-resistant facade over Linux io_uring: every
// submission returns a Completion handle fed by a dedicated reaper
// goroutine, instead of requiring the caller to poll the completion queue
// itself. A bounded ticket per CQ slot makes completion-queue overflow
// structurally impossible.
package iouring

import (
	"errors"
	"sync"
	"sync/atomic"
	"syscall"
	"unsafe"

	"github.com/wiresong/iouring/internal/metrics"
	"github.com/wiresong/iouring/internal/sys"
)

// Common errors returned by this package. Kernel failures from individual
// operations surface as syscall.Errno instead — callers already know how to
// test those with errors.Is.
var (
	ErrRingClosed   = errors.New("iouring: ring closed")
	ErrIOPoll       = errors.New("iouring: IOPOLL completion mode is not supported by this facade")
	ErrNotSupported = errors.New("iouring: operation not supported on this kernel")
)

// Timespec is a time specification used by timeout-bearing operations.
type Timespec = sys.Timespec

// Config configures a new Ring. Depth must be set (Start rejects 0 with
// EINVAL); every other field's zero value is a conservative default: no
// SQPOLL, no registered resources, CQ sized to double the SQ depth (the
// kernel's own default).
type Config struct {
	// Depth is the requested SQ depth; the kernel rounds it up to a power
	// of two.
	Depth uint32

	SQPoll       bool
	SQPollCPU    uint32
	SQPollIdleMS uint32

	CQEntries uint32 // 0 leaves the kernel default (2x Depth) in place

	SingleIssuer bool
	DeferTaskrun bool
	CoopTaskrun  bool

	// IOPoll requests IORING_SETUP_IOPOLL. This facade's reaper goroutine
	// always waits with IORING_ENTER_GETEVENTS, which IOPOLL rings must
	// not do (completions there are reaped by spinning, not by the
	// kernel waking a waiter) — Start rejects a Config with IOPoll set.
	IOPoll bool

	// RawFlags ORs in any additional IORING_SETUP_* bits not covered above.
	RawFlags uint32

	// PrintProfileOnDrop prints the accumulated operation-latency profile
	// to stdout when Close runs, mirroring the teacher lineage's drop-time
	// profile dump. Off by default.
	PrintProfileOnDrop bool
}

// Option mutates a Config during New.
type Option func(*Config)

func WithSQPoll() Option { return func(c *Config) { c.SQPoll = true } }

func WithSQPollCPU(cpu uint32) Option {
	return func(c *Config) { c.SQPoll = true; c.SQPollCPU = cpu }
}

func WithSQPollIdle(ms uint32) Option {
	return func(c *Config) { c.SQPollIdleMS = ms }
}

func WithCQSize(size uint32) Option {
	return func(c *Config) { c.CQEntries = size }
}

func WithSingleIssuer() Option {
	return func(c *Config) { c.SingleIssuer = true }
}

func WithDeferTaskrun() Option {
	return func(c *Config) { c.DeferTaskrun = true; c.SingleIssuer = true }
}

func WithCoopTaskrun() Option { return func(c *Config) { c.CoopTaskrun = true } }

func WithIOPoll() Option { return func(c *Config) { c.IOPoll = true } }

func WithFlags(flags uint32) Option { return func(c *Config) { c.RawFlags |= flags } }

func WithPrintProfileOnDrop() Option {
	return func(c *Config) { c.PrintProfileOnDrop = true }
}

func (c *Config) toParams() sys.Params {
	var p sys.Params
	if c.SQPoll {
		p.Flags |= sys.IORING_SETUP_SQPOLL
	}
	if c.SQPollCPU != 0 {
		p.Flags |= sys.IORING_SETUP_SQ_AFF
		p.SQThreadCPU = c.SQPollCPU
	}
	p.SQThreadIdle = c.SQPollIdleMS
	if c.CQEntries != 0 {
		p.Flags |= sys.IORING_SETUP_CQSIZE
		p.CQEntries = c.CQEntries
	}
	if c.SingleIssuer {
		p.Flags |= sys.IORING_SETUP_SINGLE_ISSUER
	}
	if c.DeferTaskrun {
		p.Flags |= sys.IORING_SETUP_DEFER_TASKRUN
	}
	if c.CoopTaskrun {
		p.Flags |= sys.IORING_SETUP_COOP_TASKRUN
	}
	if c.IOPoll {
		p.Flags |= sys.IORING_SETUP_IOPOLL
	}
	p.Flags |= c.RawFlags
	return p
}

// Ring is a handle to a live io_uring instance and its reaper goroutine.
type Ring struct {
	fd       int
	params   sys.Params
	features uint32

	sqRing   []byte
	cqRing   []byte
	sqesMmap []byte

	sq submitQueue
	cq completionQueue

	inflight *inFlight
	tickets  *ticketQueue

	reaperDone chan struct{}
	closed     atomic.Bool

	printProfileOnDrop bool
	metrics            *metrics.Metrics

	probeOnce   sync.Once
	cachedProbe *Probe
	probeErr    error
}

// New starts a ring with the given SQ depth and options.
func New(entries uint32, opts ...Option) (*Ring, error) {
	cfg := Config{Depth: entries}
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg.Start()
}

// Start creates the ring described by cfg.
func (cfg Config) Start() (*Ring, error) {
	if cfg.Depth == 0 {
		return nil, syscall.EINVAL
	}
	if cfg.IOPoll {
		return nil, ErrIOPoll
	}

	params := cfg.toParams()
	fd, err := sys.Setup(cfg.Depth, &params)
	if err != nil {
		return nil, err
	}

	r := &Ring{
		fd:                 fd,
		params:             params,
		features:           params.Features,
		reaperDone:         make(chan struct{}),
		printProfileOnDrop: cfg.PrintProfileOnDrop,
		metrics:            metrics.New(),
	}

	if err := r.mapRings(); err != nil {
		syscall.Close(fd)
		return nil, err
	}

	r.tickets = newTicketQueue(r.params.CQEntries)
	r.inflight = newInFlight(r.params.CQEntries)

	go r.reap()

	return r, nil
}

// mapRings maps the SQ, CQ, and SQE arrays into memory and wires the
// submitQueue/completionQueue views over them.
func (r *Ring) mapRings() error {
	p := &r.params

	sqRingSize := p.SQOff.Array + p.SQEntries*4
	cqRingSize := p.CQOff.CQEs + p.CQEntries*uint32(unsafe.Sizeof(sys.CQE{}))

	singleMmap := p.Features&sys.IORING_FEAT_SINGLE_MMAP != 0
	if singleMmap && cqRingSize > sqRingSize {
		sqRingSize = cqRingSize
	}

	var err error
	r.sqRing, err = sys.Mmap(r.fd, sys.IORING_OFF_SQ_RING, int(sqRingSize),
		syscall.PROT_READ|syscall.PROT_WRITE, syscall.MAP_SHARED|syscall.MAP_POPULATE)
	if err != nil {
		return err
	}

	if singleMmap {
		r.cqRing = r.sqRing
	} else {
		r.cqRing, err = sys.Mmap(r.fd, sys.IORING_OFF_CQ_RING, int(cqRingSize),
			syscall.PROT_READ|syscall.PROT_WRITE, syscall.MAP_SHARED|syscall.MAP_POPULATE)
		if err != nil {
			sys.Munmap(r.sqRing)
			return err
		}
	}

	sqeSize := p.SQEntries * uint32(unsafe.Sizeof(sys.SQE{}))
	r.sqesMmap, err = sys.Mmap(r.fd, sys.IORING_OFF_SQES, int(sqeSize),
		syscall.PROT_READ|syscall.PROT_WRITE, syscall.MAP_SHARED|syscall.MAP_POPULATE)
	if err != nil {
		if !singleMmap {
			sys.Munmap(r.cqRing)
		}
		sys.Munmap(r.sqRing)
		return err
	}

	r.sq.mask = *(*uint32)(unsafe.Pointer(&r.sqRing[p.SQOff.RingMask]))
	r.sq.khead = (*uint32)(unsafe.Pointer(&r.sqRing[p.SQOff.Head]))
	r.sq.ktail = (*uint32)(unsafe.Pointer(&r.sqRing[p.SQOff.Tail]))
	r.sq.flags = (*uint32)(unsafe.Pointer(&r.sqRing[p.SQOff.Flags]))
	r.sq.dropped = (*uint32)(unsafe.Pointer(&r.sqRing[p.SQOff.Dropped]))
	sqArrayPtr := unsafe.Pointer(&r.sqRing[p.SQOff.Array])
	r.sq.array = unsafe.Slice((*uint32)(sqArrayPtr), p.SQEntries)
	sqesPtr := unsafe.Pointer(&r.sqesMmap[0])
	r.sq.entries = unsafe.Slice((*sys.SQE)(sqesPtr), p.SQEntries)

	r.cq.mask = *(*uint32)(unsafe.Pointer(&r.cqRing[p.CQOff.RingMask]))
	r.cq.khead = (*uint32)(unsafe.Pointer(&r.cqRing[p.CQOff.Head]))
	r.cq.ktail = (*uint32)(unsafe.Pointer(&r.cqRing[p.CQOff.Tail]))
	r.cq.overflow = (*uint32)(unsafe.Pointer(&r.cqRing[p.CQOff.Overflow]))
	cqesPtr := unsafe.Pointer(&r.cqRing[p.CQOff.CQEs])
	r.cq.entries = unsafe.Slice((*sys.CQE)(cqesPtr), p.CQEntries)

	return nil
}

// SubmitAll flushes every SQE built since the last submit to the kernel. It
// blocks only long enough to make the io_uring_enter call(s); it does not
// wait for completions (the reaper goroutine owns that).
func (r *Ring) SubmitAll() error {
	if r.closed.Load() {
		return ErrRingClosed
	}
	r.sq.mu.Lock()
	n := r.sq.flush()
	r.sq.mu.Unlock()
	return r.submitN(n)
}

func (r *Ring) submitN(n uint32) error {
	if n == 0 {
		return nil
	}
	defer metrics.StartMeasure(&r.metrics.SubmitAndEnter).Done()
	if r.params.Flags&sys.IORING_SETUP_SQPOLL != 0 {
		if r.sq.needsWakeup() {
			_, err := sys.Enter(r.fd, n, 0, sys.IORING_ENTER_SQ_WAKEUP, nil)
			return err
		}
		return nil
	}
	for submitted := n; submitted > 0; {
		got, err := sys.Enter(r.fd, submitted, 0, 0, nil)
		if err != nil {
			return err
		}
		submitted -= uint32(got)
	}
	if r.sq.dropCount() != 0 {
		panic("iouring: kernel dropped submission queue entries")
	}
	return nil
}

// ensureSubmitted flushes and submits immediately, the behavior every op
// not explicitly chained with Link wants: by the time the call returns, the
// kernel has seen the request.
func (r *Ring) ensureSubmitted() error {
	return r.SubmitAll()
}

// getOrWaitSQE returns a free SQE, submitting already-built entries and
// retrying if the ring is momentarily full. Caller holds r.sq.mu.
func (r *Ring) getOrWaitSQE() (*sys.SQE, error) {
	for {
		if sqe, ok := r.sq.tryGet(); ok {
			return sqe, nil
		}
		n := r.sq.flush()
		r.sq.mu.Unlock()
		err := r.submitN(n)
		r.sq.mu.Lock()
		if err != nil {
			return nil, err
		}
	}
}

// submit builds one SQE for an operation: it reserves a ticket, records
// whatever must stay alive for the kernel in the in-flight table, fills the
// SQE via build, and — unless ord is Link, which defers submission so the
// next queued SQE chains onto this one — flushes the request to the kernel
// before returning.
func submit[T any](r *Ring, ord Ordering, cell inFlightCell, hist *metrics.Histogram, result func(res int32, flags uint32) (T, error), build func(sqe *sys.SQE, ticket uint32)) (Completion[T], error) {
	if r.closed.Load() {
		var zero Completion[T]
		return zero, ErrRingClosed
	}

	completion, filler := newCompletion(r, hist, result)
	ticket := r.tickets.pop()
	cell.filler = filler
	r.inflight.insert(ticket, cell)

	r.sq.mu.Lock()
	sqe, err := r.getOrWaitSQE()
	if err != nil {
		r.sq.mu.Unlock()
		var zero Completion[T]
		return zero, err
	}
	sqe.Reset()
	build(sqe, ticket)
	sqe.Flags |= ord.sqeFlags()
	sqe.UserData = uint64(ticket)
	r.sq.mu.Unlock()

	if ord != Link {
		if err := r.ensureSubmitted(); err != nil {
			return completion, err
		}
	}
	return completion, nil
}

// Close shuts the ring down: it submits a poison-pill NOP the reaper
// recognizes as a shutdown signal, drain-ordered so every earlier request
// completes first, waits for the reaper to exit, prints the
// latency profile if configured, and releases every mapping and the ring fd.
func (r *Ring) Close() error {
	if r.closed.Swap(true) {
		return nil
	}

	ticket := r.tickets.pop()
	r.sq.mu.Lock()
	sqe, err := r.getOrWaitSQE()
	if err == nil {
		sqe.Reset()
		sqe.Opcode = uint8(sys.IORING_OP_NOP)
		sqe.Flags = Drain.sqeFlags()
		sqe.UserData = encodePoison(ticket)
	}
	n := r.sq.flush()
	r.sq.mu.Unlock()
	// closed is already true at this point, so the ensureSubmitted/SubmitAll
	// path (which refuses new work once closed) can't be used here: submitN
	// is called directly to push the poison pill itself.
	if err == nil {
		r.submitN(n)
	}

	<-r.reaperDone

	if r.printProfileOnDrop {
		r.metrics.PrintProfile()
	}

	if r.params.Features&sys.IORING_FEAT_SINGLE_MMAP == 0 && r.cqRing != nil {
		sys.Munmap(r.cqRing)
	}
	if r.sqRing != nil {
		sys.Munmap(r.sqRing)
	}
	if r.sqesMmap != nil {
		sys.Munmap(r.sqesMmap)
	}

	return syscall.Close(r.fd)
}

// Fd returns the ring file descriptor.
func (r *Ring) Fd() int { return r.fd }

// Features returns the IORING_FEAT_* flags reported by the kernel at setup.
func (r *Ring) Features() uint32 { return r.features }

// HasFeature reports whether a specific feature flag was reported.
func (r *Ring) HasFeature(feat uint32) bool { return r.features&feat != 0 }

// SQEntries returns the number of submission queue entries.
func (r *Ring) SQEntries() uint32 { return r.params.SQEntries }

// CQEntries returns the number of completion queue entries, which is also
// the fixed number of requests that may be in flight at once.
func (r *Ring) CQEntries() uint32 { return r.params.CQEntries }

// RegisterBuffers registers fixed buffers for use with ReadFixed/WriteFixed
// style operations. Passed through to the kernel as-is.
func (r *Ring) RegisterBuffers(bufs [][]byte) error {
	if len(bufs) == 0 {
		return syscall.EINVAL
	}
	iovecs := make([]syscall.Iovec, len(bufs))
	for i, buf := range bufs {
		if len(buf) > 0 {
			iovecs[i].Base = &buf[0]
			iovecs[i].Len = uint64(len(buf))
		}
	}
	return sys.RegisterBuffers(r.fd, iovecs)
}

// UnregisterBuffers removes registered buffers.
func (r *Ring) UnregisterBuffers() error { return sys.UnregisterBuffers(r.fd) }

// RegisterFiles registers fixed file descriptors for IOSQE_FIXED_FILE use.
func (r *Ring) RegisterFiles(fds []int) error {
	if len(fds) == 0 {
		return syscall.EINVAL
	}
	fds32 := make([]int32, len(fds))
	for i, fd := range fds {
		fds32[i] = int32(fd)
	}
	return sys.RegisterFiles(r.fd, fds32)
}

// UnregisterFiles removes registered files.
func (r *Ring) UnregisterFiles() error { return sys.UnregisterFiles(r.fd) }
