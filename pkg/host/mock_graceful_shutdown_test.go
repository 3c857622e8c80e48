package host

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestMock_GracefulShutdown tests that Mock device closes the reports channel
// when Close() is called while streaming.
func TestMock_GracefulShutdown(t *testing.T) {
	mock := NewMock(newMockConfig())
	err := mock.Connect()
	require.NoError(t, err)

	require.NoError(t, mock.Stream(10*time.Millisecond))

	reports := mock.Reports()

	// Read a few reports
	received := 0
	done := make(chan struct{})
	go func() {
		defer close(done)
		for range reports {
			received++
			if received == 3 {
				// Got enough reports, now close device
				mock.Close()
			}
		}
	}()

	// Wait for reports and channel closure
	select {
	case <-done:
		// Channel closed successfully
	case <-time.After(5 * time.Second):
		t.Fatal("Reports channel did not close within timeout")
	}

	// Should have received at least a few reports
	assert.GreaterOrEqual(t, received, 3, "Should receive reports before channel closes")

	// Verify channel is closed
	_, ok := <-reports
	assert.False(t, ok, "Channel should be closed")
	assert.False(t, mock.IsConnected())
	assert.Error(t, mock.Connect(), "a closed mock cannot be reopened")
}

// TestMock_CloseReleasesRequest tests that a pending request returns when the
// device is closed.
func TestMock_CloseReleasesRequest(t *testing.T) {
	mock := NewMock(newMockConfig())
	require.NoError(t, mock.Connect())

	// The instrument drops its reply, so the request waits.
	mock.port.writable.Store(false)

	errc := make(chan error, 1)
	go func() {
		_, err := mock.RequestAbsorbance(context.Background())
		errc <- err
	}()

	time.Sleep(50 * time.Millisecond)
	require.NoError(t, mock.Close())

	select {
	case err := <-errc:
		assert.ErrorIs(t, err, ErrNotConnected)
	case <-time.After(2 * time.Second):
		t.Fatal("request was not released by Close")
	}
}
