// Package sys provides the low-level io_uring syscall wrappers and the
// kernel ABI types (SQE, CQE, params) the facade in the parent package
// builds on top of. Nothing here blocks or allocates beyond what the
// kernel interface itself requires.
package sys

// Syscall numbers for io_uring (x86_64).
const (
	SYS_IO_URING_SETUP    = 425
	SYS_IO_URING_ENTER    = 426
	SYS_IO_URING_REGISTER = 427
)

// Op is an io_uring opcode (IORING_OP_*).
type Op uint8

// Opcodes this package knows about. Numeric values must match the
// kernel's enum io_uring_op; IORING_OP_LAST sizes the Probe.Ops array.
const (
	IORING_OP_NOP Op = iota
	IORING_OP_READV
	IORING_OP_WRITEV
	IORING_OP_FSYNC
	IORING_OP_READ_FIXED
	IORING_OP_WRITE_FIXED
	IORING_OP_POLL_ADD
	IORING_OP_POLL_REMOVE
	IORING_OP_SYNC_FILE_RANGE
	IORING_OP_SENDMSG
	IORING_OP_RECVMSG
	IORING_OP_TIMEOUT
	IORING_OP_TIMEOUT_REMOVE
	IORING_OP_ACCEPT
	IORING_OP_ASYNC_CANCEL
	IORING_OP_LINK_TIMEOUT
	IORING_OP_CONNECT
	IORING_OP_FALLOCATE
	IORING_OP_OPENAT
	IORING_OP_CLOSE
	IORING_OP_FILES_UPDATE
	IORING_OP_STATX
	IORING_OP_READ
	IORING_OP_WRITE
	IORING_OP_FADVISE
	IORING_OP_MADVISE
	IORING_OP_SEND
	IORING_OP_RECV
	IORING_OP_OPENAT2
	IORING_OP_EPOLL_CTL
	IORING_OP_SPLICE
	IORING_OP_PROVIDE_BUFFERS
	IORING_OP_REMOVE_BUFFERS
	IORING_OP_TEE
	IORING_OP_SHUTDOWN
	IORING_OP_RENAMEAT
	IORING_OP_UNLINKAT
	IORING_OP_MKDIRAT
	IORING_OP_SYMLINKAT
	IORING_OP_LINKAT
	IORING_OP_MSG_RING
	IORING_OP_FSETXATTR
	IORING_OP_SETXATTR
	IORING_OP_FGETXATTR
	IORING_OP_GETXATTR
	IORING_OP_SOCKET
	IORING_OP_URING_CMD

	IORING_OP_LAST // sentinel, sizes Probe.Ops
)

// SQE flags (IOSQE_*).
const (
	IOSQE_FIXED_FILE       uint8 = 1 << 0 // fd is an index into registered files
	IOSQE_IO_DRAIN         uint8 = 1 << 1 // issue after all previous SQEs complete
	IOSQE_IO_LINK          uint8 = 1 << 2 // link to the next SQE in this batch
	IOSQE_IO_HARDLINK      uint8 = 1 << 3 // like IO_LINK, chain continues on error
	IOSQE_ASYNC            uint8 = 1 << 4 // always use async execution
	IOSQE_BUFFER_SELECT    uint8 = 1 << 5 // select buffer from buf_group
	IOSQE_CQE_SKIP_SUCCESS uint8 = 1 << 6 // don't generate a CQE on success
)

// Setup flags (IORING_SETUP_*).
const (
	IORING_SETUP_IOPOLL             uint32 = 1 << 0
	IORING_SETUP_SQPOLL             uint32 = 1 << 1
	IORING_SETUP_SQ_AFF             uint32 = 1 << 2
	IORING_SETUP_CQSIZE             uint32 = 1 << 3
	IORING_SETUP_CLAMP              uint32 = 1 << 4
	IORING_SETUP_ATTACH_WQ          uint32 = 1 << 5
	IORING_SETUP_R_DISABLED         uint32 = 1 << 6
	IORING_SETUP_SUBMIT_ALL         uint32 = 1 << 7
	IORING_SETUP_COOP_TASKRUN       uint32 = 1 << 8
	IORING_SETUP_TASKRUN_FLAG       uint32 = 1 << 9
	IORING_SETUP_SQE128             uint32 = 1 << 10
	IORING_SETUP_CQE32              uint32 = 1 << 11
	IORING_SETUP_SINGLE_ISSUER      uint32 = 1 << 12
	IORING_SETUP_DEFER_TASKRUN      uint32 = 1 << 13
	IORING_SETUP_NO_MMAP            uint32 = 1 << 14
	IORING_SETUP_REGISTERED_FD_ONLY uint32 = 1 << 15
	IORING_SETUP_NO_SQARRAY         uint32 = 1 << 16
)

// Feature flags (IORING_FEAT_*), returned by setup in Params.Features.
const (
	IORING_FEAT_SINGLE_MMAP     uint32 = 1 << 0
	IORING_FEAT_NODROP          uint32 = 1 << 1
	IORING_FEAT_SUBMIT_STABLE   uint32 = 1 << 2
	IORING_FEAT_RW_CUR_POS      uint32 = 1 << 3
	IORING_FEAT_CUR_PERSONALITY uint32 = 1 << 4
	IORING_FEAT_FAST_POLL       uint32 = 1 << 5
	IORING_FEAT_POLL_32BITS     uint32 = 1 << 6
	IORING_FEAT_SQPOLL_NONFIXED uint32 = 1 << 7
	IORING_FEAT_EXT_ARG         uint32 = 1 << 8
	IORING_FEAT_NATIVE_WORKERS  uint32 = 1 << 9
	IORING_FEAT_RSRC_TAGS       uint32 = 1 << 10
	IORING_FEAT_CQE_SKIP        uint32 = 1 << 11
	IORING_FEAT_LINKED_FILE     uint32 = 1 << 12
	IORING_FEAT_REG_REG_RING    uint32 = 1 << 13
)

// Enter flags (IORING_ENTER_*).
const (
	IORING_ENTER_GETEVENTS       uint32 = 1 << 0
	IORING_ENTER_SQ_WAKEUP       uint32 = 1 << 1
	IORING_ENTER_SQ_WAIT         uint32 = 1 << 2
	IORING_ENTER_EXT_ARG         uint32 = 1 << 3
	IORING_ENTER_REGISTERED_RING uint32 = 1 << 4
)

// Register opcodes (IORING_REGISTER_*) used by this package.
const (
	IORING_REGISTER_BUFFERS       uint32 = 0
	IORING_UNREGISTER_BUFFERS     uint32 = 1
	IORING_REGISTER_FILES         uint32 = 2
	IORING_UNREGISTER_FILES       uint32 = 3
	IORING_REGISTER_EVENTFD       uint32 = 4
	IORING_UNREGISTER_EVENTFD     uint32 = 5
	IORING_REGISTER_FILES_UPDATE  uint32 = 6
	IORING_REGISTER_EVENTFD_ASYNC uint32 = 7
	IORING_REGISTER_PROBE         uint32 = 8
)

// CQE flags (IORING_CQE_F_*).
const (
	IORING_CQE_F_BUFFER        uint32 = 1 << 0
	IORING_CQE_F_MORE          uint32 = 1 << 1
	IORING_CQE_F_SOCK_NONEMPTY uint32 = 1 << 2
	IORING_CQE_F_NOTIF         uint32 = 1 << 3
)

// SQ ring flags, read from the shared kflags word.
const (
	IORING_SQ_NEED_WAKEUP uint32 = 1 << 0
	IORING_SQ_CQ_OVERFLOW uint32 = 1 << 1
	IORING_SQ_TASKRUN     uint32 = 1 << 2
)

// Fsync subflags.
const (
	IORING_FSYNC_DATASYNC uint32 = 1 << 0
)

// sync_file_range subflags. WAIT_BEFORE is deliberately not offered here:
// the kernel's fs/sync.c path for it returns EBADF for ordinary files, so
// callers only ever get WRITE|WAIT_AFTER composed for them (see the
// SyncFileRange op in the parent package).
const (
	syncFileRangeWrite     uint32 = 2
	syncFileRangeWaitAfter uint32 = 4
)

// SyncFileRangeFlags is the fixed flag combination this package issues
// for IORING_OP_SYNC_FILE_RANGE.
const SyncFileRangeFlags = syncFileRangeWrite | syncFileRangeWaitAfter

// Accept flags.
const (
	IORING_ACCEPT_MULTISHOT uint32 = 1 << 0
)

// mmap offsets for the three shared regions (IORING_OFF_*).
const (
	IORING_OFF_SQ_RING uint64 = 0
	IORING_OFF_CQ_RING uint64 = 0x8000000
	IORING_OFF_SQES    uint64 = 0x10000000
)

// IO_URING_OP_SUPPORTED marks a ProbeOp as supported by the running kernel.
const IO_URING_OP_SUPPORTED uint16 = 1 << 0
