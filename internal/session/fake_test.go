package session

import (
	"context"
	"errors"
	"io"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/aNThiCu/AirsoftChronograph/internal/model"
	"github.com/aNThiCu/AirsoftChronograph/internal/transport"
)

var errChannelClosed = errors.New("channel closed")

// fakeChannel is an in-memory device link. Tests push frames with send and
// drop the link with hangup.
type fakeChannel struct {
	frames  chan []byte
	written chan []byte

	closeOnce sync.Once
	closed    chan struct{}
}

func newFakeChannel() *fakeChannel {
	return &fakeChannel{
		frames:  make(chan []byte, 16),
		written: make(chan []byte, 16),
		closed:  make(chan struct{}),
	}
}

func (c *fakeChannel) ReadFrame() ([]byte, error) {
	select {
	case f := <-c.frames:
		return f, nil
	case <-c.closed:
		return nil, io.EOF
	}
}

func (c *fakeChannel) WriteFrame(frame []byte) error {
	select {
	case <-c.closed:
		return errChannelClosed
	default:
	}
	c.written <- append([]byte(nil), frame...)
	return nil
}

func (c *fakeChannel) Close() error {
	c.closeOnce.Do(func() { close(c.closed) })
	return nil
}

func (c *fakeChannel) send(frame string) { c.frames <- []byte(frame) }

func (c *fakeChannel) hangup() { c.Close() }

func (c *fakeChannel) isClosed() bool {
	select {
	case <-c.closed:
		return true
	default:
		return false
	}
}

// fakeDialer hands out queued channels. A queued nil fails the attempt.
type fakeDialer struct {
	dials atomic.Int32
	conns chan *fakeChannel
}

func newFakeDialer() *fakeDialer {
	return &fakeDialer{conns: make(chan *fakeChannel, 4)}
}

func (d *fakeDialer) Dial(ctx context.Context, _ string) (transport.Channel, error) {
	d.dials.Add(1)
	select {
	case c := <-d.conns:
		if c == nil {
			return nil, errors.New("connection refused")
		}
		return c, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// recorder keeps every rendered snapshot.
type recorder struct {
	mu    sync.Mutex
	snaps []model.Snapshot
}

func (r *recorder) Render(s model.Snapshot) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.snaps = append(r.snaps, s)
}

func (r *recorder) last() model.Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.snaps) == 0 {
		return model.Snapshot{}
	}
	return r.snaps[len(r.snaps)-1]
}

func (r *recorder) waitFor(t *testing.T, cond func(model.Snapshot) bool) model.Snapshot {
	t.Helper()
	require.Eventually(t, func() bool { return cond(r.last()) }, 2*time.Second, 5*time.Millisecond)
	return r.last()
}

func startManager(t *testing.T, m *Manager) context.CancelFunc {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	errC := make(chan error, 1)
	go func() { errC <- m.Run(ctx) }()

	t.Cleanup(func() {
		cancel()
		select {
		case err := <-errC:
			require.NoError(t, err)
		case <-time.After(2 * time.Second):
			t.Error("Run did not return")
		}
	})
	return cancel
}

func readWritten(t *testing.T, c *fakeChannel) string {
	t.Helper()
	select {
	case frame := <-c.written:
		return string(frame)
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for outbound frame")
		return ""
	}
}

func isOpen(s model.Snapshot) bool   { return s.State == model.StateOpen }
func isClosed(s model.Snapshot) bool { return s.State == model.StateClosed }
