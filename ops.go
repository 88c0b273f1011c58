//go:build linux

package iouring

import (
	"syscall"
	"unsafe"

	"golang.org/x/sys/unix"

	"github.com/wiresong/iouring/internal/sys"
)

// errnoOrNil turns a CQE's signed result into an error, the convention
// every io_uring opcode uses: res is either a non-negative value (bytes
// transferred, a new fd, ...) or -errno.
func errnoOrNil(res int32) error {
	if res < 0 {
		return syscall.Errno(-res)
	}
	return nil
}

func bytesResult(res int32, _ uint32) (int, error) {
	if res < 0 {
		return 0, syscall.Errno(-res)
	}
	return int(res), nil
}

func voidResult(res int32, _ uint32) (struct{}, error) {
	return struct{}{}, errnoOrNil(res)
}

// ReadAt queues a read of len(buf) bytes from fd at offset into buf.
func (r *Ring) ReadAt(fd int, buf []byte, offset int64) (Completion[int], error) {
	return r.ReadAtOrdered(fd, buf, offset, None)
}

// ReadAtOrdered is ReadAt with explicit ordering against neighboring
// submissions.
func (r *Ring) ReadAtOrdered(fd int, buf []byte, offset int64, ord Ordering) (Completion[int], error) {
	cell := inFlightCell{keepAlive: buf}
	var addr uint64
	if len(buf) > 0 {
		addr = uint64(uintptr(unsafe.Pointer(&buf[0])))
	}
	return submit(r, ord, cell, &r.metrics.ReadAt, bytesResult, func(sqe *sys.SQE, ticket uint32) {
		sqe.Opcode = uint8(sys.IORING_OP_READ)
		sqe.Fd = int32(fd)
		sqe.Addr = addr
		sqe.Len = uint32(len(buf))
		sqe.Off = uint64(offset)
	})
}

// WriteAt queues a write of buf to fd at offset.
func (r *Ring) WriteAt(fd int, buf []byte, offset int64) (Completion[int], error) {
	return r.WriteAtOrdered(fd, buf, offset, None)
}

// WriteAtOrdered is WriteAt with explicit ordering.
func (r *Ring) WriteAtOrdered(fd int, buf []byte, offset int64, ord Ordering) (Completion[int], error) {
	cell := inFlightCell{keepAlive: buf}
	var addr uint64
	if len(buf) > 0 {
		addr = uint64(uintptr(unsafe.Pointer(&buf[0])))
	}
	return submit(r, ord, cell, &r.metrics.WriteAt, bytesResult, func(sqe *sys.SQE, ticket uint32) {
		sqe.Opcode = uint8(sys.IORING_OP_WRITE)
		sqe.Fd = int32(fd)
		sqe.Addr = addr
		sqe.Len = uint32(len(buf))
		sqe.Off = uint64(offset)
	})
}

// Fsync queues an fsync of fd.
func (r *Ring) Fsync(fd int) (Completion[struct{}], error) {
	return r.FsyncOrdered(fd, None)
}

// FsyncOrdered is Fsync with explicit ordering.
func (r *Ring) FsyncOrdered(fd int, ord Ordering) (Completion[struct{}], error) {
	return submit(r, ord, inFlightCell{}, &r.metrics.Fsync, voidResult, func(sqe *sys.SQE, ticket uint32) {
		sqe.Opcode = uint8(sys.IORING_OP_FSYNC)
		sqe.Fd = int32(fd)
	})
}

// Fdatasync queues an fdatasync of fd (IORING_FSYNC_DATASYNC).
func (r *Ring) Fdatasync(fd int) (Completion[struct{}], error) {
	return r.FdatasyncOrdered(fd, None)
}

// FdatasyncOrdered is Fdatasync with explicit ordering.
func (r *Ring) FdatasyncOrdered(fd int, ord Ordering) (Completion[struct{}], error) {
	return submit(r, ord, inFlightCell{}, &r.metrics.Fdatasync, voidResult, func(sqe *sys.SQE, ticket uint32) {
		sqe.Opcode = uint8(sys.IORING_OP_FSYNC)
		sqe.Fd = int32(fd)
		sqe.OpFlags = sys.IORING_FSYNC_DATASYNC
	})
}

// SyncFileRange queues a sync_file_range over [offset, offset+length) on fd.
// The flags are fixed to WRITE|WAIT_AFTER: WAIT_BEFORE reliably returns
// EBADF from the kernel's ordinary-file path, so it is never offered.
func (r *Ring) SyncFileRange(fd int, offset int64, length uint32) (Completion[struct{}], error) {
	return r.SyncFileRangeOrdered(fd, offset, length, None)
}

// SyncFileRangeOrdered is SyncFileRange with explicit ordering.
func (r *Ring) SyncFileRangeOrdered(fd int, offset int64, length uint32, ord Ordering) (Completion[struct{}], error) {
	return submit(r, ord, inFlightCell{}, &r.metrics.SyncFileRange, voidResult, func(sqe *sys.SQE, ticket uint32) {
		sqe.Opcode = uint8(sys.IORING_OP_SYNC_FILE_RANGE)
		sqe.Fd = int32(fd)
		sqe.Off = uint64(offset)
		sqe.Len = length
		sqe.OpFlags = sys.SyncFileRangeFlags
	})
}

// Nop queues a no-op request, useful for draining or probing the ring
// without touching any file descriptor.
func (r *Ring) Nop() (Completion[struct{}], error) {
	return r.NopOrdered(None)
}

// NopOrdered is Nop with explicit ordering.
func (r *Ring) NopOrdered(ord Ordering) (Completion[struct{}], error) {
	return submit(r, ord, inFlightCell{}, &r.metrics.Nop, voidResult, func(sqe *sys.SQE, ticket uint32) {
		sqe.Opcode = uint8(sys.IORING_OP_NOP)
	})
}

// AcceptResult is the outcome of a successful Accept: the new connection's
// fd and, when the kernel was able to report one, the peer's address.
type AcceptResult struct {
	Fd   int
	Addr unix.Sockaddr
}

// Accept queues an accept on the listening socket fd. Requires a kernel
// with IORING_OP_ACCEPT support (Linux 5.5+).
func (r *Ring) Accept(fd int) (Completion[AcceptResult], error) {
	if err := r.requireOp(sys.IORING_OP_ACCEPT); err != nil {
		var zero Completion[AcceptResult]
		return zero, err
	}
	addr := &unix.RawSockaddrAny{}
	addrLen := uint32(unsafe.Sizeof(unix.RawSockaddrAny{}))
	cell := inFlightCell{addr: addr, addrLen: &addrLen}
	build := func(res int32, _ uint32) (AcceptResult, error) {
		if res < 0 {
			return AcceptResult{}, syscall.Errno(-res)
		}
		sa, _ := rawToSockaddr(addr)
		return AcceptResult{Fd: int(res), Addr: sa}, nil
	}
	return submit(r, None, cell, &r.metrics.Accept, build, func(sqe *sys.SQE, ticket uint32) {
		sqe.Opcode = uint8(sys.IORING_OP_ACCEPT)
		sqe.Fd = int32(fd)
		sqe.Addr = uint64(uintptr(unsafe.Pointer(addr)))
		sqe.SetAddr2(uint64(uintptr(unsafe.Pointer(&addrLen))))
	})
}

// Send queues a send of buf on the connected socket fd.
func (r *Ring) Send(fd int, buf []byte) (Completion[int], error) {
	return r.SendOrdered(fd, buf, None)
}

// SendOrdered is Send with explicit ordering. Requires a kernel with
// IORING_OP_SEND support (Linux 5.6+).
func (r *Ring) SendOrdered(fd int, buf []byte, ord Ordering) (Completion[int], error) {
	if err := r.requireOp(sys.IORING_OP_SEND); err != nil {
		var zero Completion[int]
		return zero, err
	}
	cell := inFlightCell{keepAlive: buf}
	var addr uint64
	if len(buf) > 0 {
		addr = uint64(uintptr(unsafe.Pointer(&buf[0])))
	}
	return submit(r, ord, cell, &r.metrics.Send, bytesResult, func(sqe *sys.SQE, ticket uint32) {
		sqe.Opcode = uint8(sys.IORING_OP_SEND)
		sqe.Fd = int32(fd)
		sqe.Addr = addr
		sqe.Len = uint32(len(buf))
	})
}

// Recv queues a receive of up to len(buf) bytes on the connected socket fd.
func (r *Ring) Recv(fd int, buf []byte) (Completion[int], error) {
	return r.RecvOrdered(fd, buf, None)
}

// RecvOrdered is Recv with explicit ordering. Requires a kernel with
// IORING_OP_RECV support (Linux 5.6+).
func (r *Ring) RecvOrdered(fd int, buf []byte, ord Ordering) (Completion[int], error) {
	if err := r.requireOp(sys.IORING_OP_RECV); err != nil {
		var zero Completion[int]
		return zero, err
	}
	cell := inFlightCell{keepAlive: buf}
	var addr uint64
	if len(buf) > 0 {
		addr = uint64(uintptr(unsafe.Pointer(&buf[0])))
	}
	return submit(r, ord, cell, &r.metrics.Recv, bytesResult, func(sqe *sys.SQE, ticket uint32) {
		sqe.Opcode = uint8(sys.IORING_OP_RECV)
		sqe.Fd = int32(fd)
		sqe.Addr = addr
		sqe.Len = uint32(len(buf))
	})
}

// SendTo queues a datagram send of buf to addr on the (typically
// unconnected) socket fd, via IORING_OP_SENDMSG. Requires a kernel with
// IORING_OP_SENDMSG support (Linux 5.3+).
func (r *Ring) SendTo(fd int, buf []byte, addr unix.Sockaddr) (Completion[int], error) {
	if err := r.requireOp(sys.IORING_OP_SENDMSG); err != nil {
		var zero Completion[int]
		return zero, err
	}
	raw, rawLen, err := sockaddrToRaw(addr)
	if err != nil {
		var zero Completion[int]
		return zero, err
	}

	iov := []syscall.Iovec{{Len: uint64(len(buf))}}
	if len(buf) > 0 {
		iov[0].Base = &buf[0]
	}
	msg := &unix.Msghdr{
		Name:    (*byte)(unsafe.Pointer(&raw)),
		Namelen: rawLen,
		Iov:     (*unix.Iovec)(unsafe.Pointer(&iov[0])),
		Iovlen:  1,
	}
	cell := inFlightCell{iovecs: iov, msghdr: msg, keepAlive: buf}

	return submit(r, None, cell, &r.metrics.Send, bytesResult, func(sqe *sys.SQE, ticket uint32) {
		sqe.Opcode = uint8(sys.IORING_OP_SENDMSG)
		sqe.Fd = int32(fd)
		sqe.Addr = uint64(uintptr(unsafe.Pointer(msg)))
		sqe.Len = 1
	})
}

// RecvFromResult is the outcome of a successful RecvFrom: the byte count
// and the sender's address.
type RecvFromResult struct {
	N    int
	Addr unix.Sockaddr
}

// RecvFrom queues a datagram receive into buf on socket fd, via
// IORING_OP_RECVMSG, capturing the sender's address. Requires a kernel
// with IORING_OP_RECVMSG support (Linux 5.3+).
func (r *Ring) RecvFrom(fd int, buf []byte) (Completion[RecvFromResult], error) {
	if err := r.requireOp(sys.IORING_OP_RECVMSG); err != nil {
		var zero Completion[RecvFromResult]
		return zero, err
	}
	raw := &unix.RawSockaddrAny{}
	iov := []syscall.Iovec{{Len: uint64(len(buf))}}
	if len(buf) > 0 {
		iov[0].Base = &buf[0]
	}
	msg := &unix.Msghdr{
		Name:    (*byte)(unsafe.Pointer(raw)),
		Namelen: uint32(unsafe.Sizeof(unix.RawSockaddrAny{})),
		Iov:     (*unix.Iovec)(unsafe.Pointer(&iov[0])),
		Iovlen:  1,
	}
	cell := inFlightCell{iovecs: iov, msghdr: msg, keepAlive: buf}

	build := func(res int32, _ uint32) (RecvFromResult, error) {
		if res < 0 {
			return RecvFromResult{}, syscall.Errno(-res)
		}
		sa, _ := rawToSockaddr(raw)
		return RecvFromResult{N: int(res), Addr: sa}, nil
	}

	return submit(r, None, cell, &r.metrics.Recv, build, func(sqe *sys.SQE, ticket uint32) {
		sqe.Opcode = uint8(sys.IORING_OP_RECVMSG)
		sqe.Fd = int32(fd)
		sqe.Addr = uint64(uintptr(unsafe.Pointer(msg)))
		sqe.Len = 1
	})
}
