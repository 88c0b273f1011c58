//go:build linux

package iouring

import (
	"errors"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestCompletionWaitBlocksUntilFilled(t *testing.T) {
	completion, f := newCompletion[int](nil, nil, bytesResult)

	done := make(chan struct{})
	var got int
	var err error
	go func() {
		got, err = completion.Wait()
		close(done)
	}()

	select {
	case <-done:
		t.Fatal("Wait returned before fill")
	case <-time.After(20 * time.Millisecond):
	}

	f.fill(42, 0)

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Wait never returned after fill")
	}
	require.NoError(t, err)
	require.Equal(t, 42, got)
}

func TestCompletionWaitSurfacesErrno(t *testing.T) {
	completion, f := newCompletion[int](nil, nil, bytesResult)
	f.fill(-int32(9), 0) // -EBADF

	_, err := completion.Wait()
	require.Error(t, err)
	require.True(t, errors.Is(err, syscall.Errno(9)))
}

func TestCompletionWaitIsIdempotent(t *testing.T) {
	completion, f := newCompletion[int](nil, nil, bytesResult)
	f.fill(7, 0)

	a, errA := completion.Wait()
	b, errB := completion.Wait()
	require.NoError(t, errA)
	require.NoError(t, errB)
	require.Equal(t, a, b)
}

func TestCompletionCloseWaitsAndDiscardsValue(t *testing.T) {
	completion, f := newCompletion[int](nil, nil, bytesResult)
	f.fill(5, 0)

	require.NoError(t, completion.Close())
}
