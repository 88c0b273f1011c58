//go:build linux

package iouring

import (
	"net"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

func TestAcceptSendRecvRoundTrip(t *testing.T) {
	r := skipIfNoIOURing(t)
	defer r.Close()

	ln, err := net.Listen("tcp4", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	lnFile, err := ln.(*net.TCPListener).File()
	require.NoError(t, err)
	defer lnFile.Close()

	acceptC, err := r.Accept(int(lnFile.Fd()))
	require.NoError(t, err)

	clientConn, err := net.Dial("tcp4", ln.Addr().String())
	require.NoError(t, err)
	defer clientConn.Close()

	accepted, err := acceptC.Wait()
	require.NoError(t, err)
	require.Greater(t, accepted.Fd, 0)
	defer unix.Close(accepted.Fd)

	payload := []byte("ping")
	_, err = clientConn.Write(payload)
	require.NoError(t, err)

	buf := make([]byte, len(payload))
	recvC, err := r.Recv(accepted.Fd, buf)
	require.NoError(t, err)
	n, err := recvC.Wait()
	require.NoError(t, err)
	require.Equal(t, len(payload), n)
	require.Equal(t, payload, buf)

	reply := []byte("pong")
	sendC, err := r.Send(accepted.Fd, reply)
	require.NoError(t, err)
	n, err = sendC.Wait()
	require.NoError(t, err)
	require.Equal(t, len(reply), n)

	clientBuf := make([]byte, len(reply))
	_, err = clientConn.Read(clientBuf)
	require.NoError(t, err)
	require.Equal(t, reply, clientBuf)
}

func TestSendToRecvFromUDP(t *testing.T) {
	r := skipIfNoIOURing(t)
	defer r.Close()

	serverConn, err := net.ListenUDP("udp4", &net.UDPAddr{IP: net.ParseIP("127.0.0.1")})
	require.NoError(t, err)
	defer serverConn.Close()
	serverFile, err := serverConn.File()
	require.NoError(t, err)
	defer serverFile.Close()

	clientConn, err := net.ListenUDP("udp4", &net.UDPAddr{IP: net.ParseIP("127.0.0.1")})
	require.NoError(t, err)
	defer clientConn.Close()
	clientFile, err := clientConn.File()
	require.NoError(t, err)
	defer clientFile.Close()

	serverAddr := serverConn.LocalAddr().(*net.UDPAddr)
	dest := &unix.SockaddrInet4{Port: serverAddr.Port}
	copy(dest.Addr[:], serverAddr.IP.To4())

	payload := []byte("datagram")
	recvBuf := make([]byte, len(payload))
	recvC, err := r.RecvFrom(int(serverFile.Fd()), recvBuf)
	require.NoError(t, err)

	sendC, err := r.SendTo(int(clientFile.Fd()), payload, dest)
	require.NoError(t, err)
	n, err := sendC.Wait()
	require.NoError(t, err)
	require.Equal(t, len(payload), n)

	result, err := recvC.Wait()
	require.NoError(t, err)
	require.Equal(t, len(payload), result.N)
	require.Equal(t, payload, recvBuf)
}
