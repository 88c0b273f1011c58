//go:build linux

package iouring

import (
	"fmt"
	"unsafe"

	"golang.org/x/sys/unix"
)

// sockaddrToRaw encodes a unix.Sockaddr into the raw wire form the kernel
// expects as a msghdr's name, which SendTo hands to IORING_OP_SENDMSG. Only the
// address families this package's ops actually use are supported; anything
// else is a caller error, not a protocol gap.
func sockaddrToRaw(sa unix.Sockaddr) (unix.RawSockaddrAny, uint32, error) {
	var raw unix.RawSockaddrAny
	switch v := sa.(type) {
	case *unix.SockaddrInet4:
		in4 := (*unix.RawSockaddrInet4)(unsafe.Pointer(&raw))
		in4.Family = unix.AF_INET
		in4.Port[0] = byte(v.Port >> 8)
		in4.Port[1] = byte(v.Port)
		in4.Addr = v.Addr
		return raw, uint32(unsafe.Sizeof(unix.RawSockaddrInet4{})), nil
	case *unix.SockaddrInet6:
		in6 := (*unix.RawSockaddrInet6)(unsafe.Pointer(&raw))
		in6.Family = unix.AF_INET6
		in6.Port[0] = byte(v.Port >> 8)
		in6.Port[1] = byte(v.Port)
		in6.Scope_id = v.ZoneId
		in6.Addr = v.Addr
		return raw, uint32(unsafe.Sizeof(unix.RawSockaddrInet6{})), nil
	default:
		return raw, 0, fmt.Errorf("iouring: unsupported sockaddr type %T", sa)
	}
}

// rawToSockaddr decodes a kernel-filled RawSockaddrAny back into a
// unix.Sockaddr, the inverse of sockaddrToRaw. Used to surface the peer
// address from Accept and RecvFrom.
func rawToSockaddr(raw *unix.RawSockaddrAny) (unix.Sockaddr, error) {
	switch raw.Addr.Family {
	case unix.AF_INET:
		in4 := (*unix.RawSockaddrInet4)(unsafe.Pointer(raw))
		sa := &unix.SockaddrInet4{
			Port: int(in4.Port[0])<<8 | int(in4.Port[1]),
			Addr: in4.Addr,
		}
		return sa, nil
	case unix.AF_INET6:
		in6 := (*unix.RawSockaddrInet6)(unsafe.Pointer(raw))
		sa := &unix.SockaddrInet6{
			Port:   int(in6.Port[0])<<8 | int(in6.Port[1]),
			ZoneId: in6.Scope_id,
			Addr:   in6.Addr,
		}
		return sa, nil
	default:
		return nil, fmt.Errorf("iouring: unsupported address family %d", raw.Addr.Family)
	}
}
