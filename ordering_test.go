//go:build linux

package iouring

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/wiresong/iouring/internal/sys"
)

func TestOrderingSQEFlags(t *testing.T) {
	require.Equal(t, uint8(0), None.sqeFlags())
	require.Equal(t, sys.IOSQE_IO_LINK, Link.sqeFlags())
	require.Equal(t, sys.IOSQE_IO_DRAIN, Drain.sqeFlags())
}
