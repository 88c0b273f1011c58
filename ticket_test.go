//go:build linux

package iouring

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestTicketQueuePopReusesFreedTickets(t *testing.T) {
	q := newTicketQueue(2)

	a := q.pop()
	b := q.pop()
	require.NotEqual(t, a, b)

	q.pushMulti([]uint32{a})
	c := q.pop()
	require.Equal(t, a, c)
}

func TestTicketQueuePopBlocksUntilPushed(t *testing.T) {
	q := newTicketQueue(1)
	first := q.pop()

	done := make(chan uint32, 1)
	go func() {
		done <- q.pop()
	}()

	select {
	case <-done:
		t.Fatal("pop returned before a ticket was pushed back")
	case <-time.After(20 * time.Millisecond):
	}

	q.pushMulti([]uint32{first})

	select {
	case got := <-done:
		require.Equal(t, first, got)
	case <-time.After(time.Second):
		t.Fatal("pop never unblocked after push")
	}
}
