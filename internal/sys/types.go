package sys

// SQE is the Submission Queue Entry (64 bytes).
// This matches struct io_uring_sqe from the kernel.
// The struct uses unions extensively; we represent the full 64 bytes
// and provide accessor methods for different interpretations.
type SQE struct {
	Opcode      uint8  // Operation code (IORING_OP_*)
	Flags       uint8  // IOSQE_* flags
	Ioprio      uint16 // Request priority or op-specific flags
	Fd          int32  // File descriptor
	Off         uint64 // Offset or addr2 (union)
	Addr        uint64 // Buffer address or splice_off_in (union)
	Len         uint32 // Buffer length or number of iovecs
	OpFlags     uint32 // Op-specific flags (rw_flags, fsync_flags, etc.)
	UserData    uint64 // Ticket, encoded per the parent package's poison-pill scheme
	BufIndex    uint16 // Buffer index or buffer group (union)
	Personality uint16 // Personality for credentials
	SpliceFdIn  int32  // Splice input fd or file_index (union)
	Addr3       uint64 // Additional address field
	_pad2       [1]uint64
}

// CQE is the Completion Queue Entry (16 bytes).
// This matches struct io_uring_cqe from the kernel.
type CQE struct {
	UserData uint64 // Ticket, as encoded by the submitting SQE
	Res      int32  // Result (bytes transferred or negative errno)
	Flags    uint32 // IORING_CQE_F_* flags
}

// Params is passed to io_uring_setup and returned with ring parameters.
// This matches struct io_uring_params from the kernel.
type Params struct {
	SQEntries    uint32
	CQEntries    uint32
	Flags        uint32
	SQThreadCPU  uint32
	SQThreadIdle uint32
	Features     uint32
	WQFd         uint32
	Resv         [3]uint32
	SQOff        SQRingOffsets
	CQOff        CQRingOffsets
}

// SQRingOffsets contains offsets into the SQ ring mmap region.
type SQRingOffsets struct {
	Head        uint32
	Tail        uint32
	RingMask    uint32
	RingEntries uint32
	Flags       uint32
	Dropped     uint32
	Array       uint32
	Resv1       uint32
	UserAddr    uint64
}

// CQRingOffsets contains offsets into the CQ ring mmap region.
type CQRingOffsets struct {
	Head        uint32
	Tail        uint32
	RingMask    uint32
	RingEntries uint32
	Overflow    uint32
	CQEs        uint32
	Flags       uint32
	Resv1       uint32
	UserAddr    uint64
}

// ProbeOp describes support for a single operation.
type ProbeOp struct {
	Op    uint8
	Resv  uint8
	Flags uint16
	Resv2 uint32
}

// Probe is the result of IORING_REGISTER_PROBE.
type Probe struct {
	LastOp uint8
	OpsLen uint8
	Resv   uint16
	Resv2  [3]uint32
	Ops    [IORING_OP_LAST]ProbeOp
}

// Timespec matches struct __kernel_timespec.
type Timespec struct {
	Sec  int64
	Nsec int64
}

// GetEventsArg is used with IORING_ENTER_EXT_ARG to pass a timeout alongside
// the usual signal mask to io_uring_enter.
type GetEventsArg struct {
	Sigmask   uint64
	SigmaskSz uint32
	Pad       uint32
	Ts        uint64
}

// SQE accessor methods for union fields

// SetAddr2 sets the addr2 field (alias for Off). IORING_OP_ACCEPT uses it
// as the out-pointer for the peer address length (the accept(2) socklen_t
// in/out parameter), since Addr already carries the sockaddr buffer.
func (s *SQE) SetAddr2(addr2 uint64) {
	s.Off = addr2
}

// Reset clears the SQE to zero values.
func (s *SQE) Reset() {
	*s = SQE{}
}
