//go:build linux

package iouring

import (
	"errors"
	"os"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/wiresong/iouring/internal/sys"
)

// skipIfNoIOURing skips the test if the running kernel doesn't support
// io_uring at all (too old, or blocked by seccomp), rather than failing.
func skipIfNoIOURing(t *testing.T) *Ring {
	t.Helper()
	r, err := New(4)
	if err != nil {
		if errors.Is(err, syscall.ENOSYS) || errors.Is(err, syscall.EPERM) || errors.Is(err, syscall.EACCES) {
			t.Skipf("io_uring unavailable: %v", err)
		}
		t.Fatalf("New: %v", err)
	}
	return r
}

func TestNewAndClose(t *testing.T) {
	r := skipIfNoIOURing(t)
	require.NoError(t, r.Close())
	require.NoError(t, r.Close()) // idempotent
}

func TestNopRoundTrip(t *testing.T) {
	r := skipIfNoIOURing(t)
	defer r.Close()

	c, err := r.Nop()
	require.NoError(t, err)

	_, err = c.Wait()
	require.NoError(t, err)
}

func TestNopStormStaysWithinCQCapacity(t *testing.T) {
	r := skipIfNoIOURing(t)
	defer r.Close()

	const n = 64
	completions := make([]Completion[struct{}], 0, n)
	for i := 0; i < n; i++ {
		c, err := r.Nop()
		require.NoError(t, err)
		completions = append(completions, c)
	}
	for _, c := range completions {
		_, err := c.Wait()
		require.NoError(t, err)
	}
}

func TestWriteThenReadBack(t *testing.T) {
	r := skipIfNoIOURing(t)
	defer r.Close()

	f, err := os.CreateTemp(t.TempDir(), "iouring-test")
	require.NoError(t, err)
	defer f.Close()

	payload := []byte("hello io_uring")
	wc, err := r.WriteAt(int(f.Fd()), payload, 0)
	require.NoError(t, err)
	n, err := wc.Wait()
	require.NoError(t, err)
	require.Equal(t, len(payload), n)

	buf := make([]byte, len(payload))
	rc, err := r.ReadAt(int(f.Fd()), buf, 0)
	require.NoError(t, err)
	n, err = rc.Wait()
	require.NoError(t, err)
	require.Equal(t, len(payload), n)
	require.Equal(t, payload, buf)
}

func TestWriteThenFsyncLinked(t *testing.T) {
	r := skipIfNoIOURing(t)
	defer r.Close()

	f, err := os.CreateTemp(t.TempDir(), "iouring-test")
	require.NoError(t, err)
	defer f.Close()

	payload := []byte("durable write")
	wc, err := r.WriteAtOrdered(int(f.Fd()), payload, 0, Link)
	require.NoError(t, err)
	fc, err := r.FsyncOrdered(int(f.Fd()), None)
	require.NoError(t, err)

	n, err := wc.Wait()
	require.NoError(t, err)
	require.Equal(t, len(payload), n)
	_, err = fc.Wait()
	require.NoError(t, err)
}

func TestSyncFileRangeRejectsNothingExtra(t *testing.T) {
	r := skipIfNoIOURing(t)
	defer r.Close()

	f, err := os.CreateTemp(t.TempDir(), "iouring-test")
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, f.Truncate(4096))

	c, err := r.SyncFileRange(int(f.Fd()), 0, 4096)
	require.NoError(t, err)
	_, err = c.Wait()
	require.NoError(t, err)
}

func TestGracefulShutdownDrainsInFlightWork(t *testing.T) {
	r := skipIfNoIOURing(t)

	c, err := r.Nop()
	require.NoError(t, err)

	closeErr := make(chan error, 1)
	go func() { closeErr <- r.Close() }()

	_, waitErr := c.Wait()
	require.NoError(t, waitErr)

	select {
	case err := <-closeErr:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Close never returned")
	}
}

func TestProbeReportsNopSupported(t *testing.T) {
	r := skipIfNoIOURing(t)
	defer r.Close()

	p, err := r.Probe()
	require.NoError(t, err)
	require.True(t, p.SupportsOp(sys.IORING_OP_NOP))
}
