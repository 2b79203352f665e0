// Package transport opens duplex frame channels to a chronograph device.
//
// A Channel carries one JSON object per frame. The WebSocket transport maps
// frames onto text messages; the TCP transport delimits frames by newline.
package transport

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"
)

// Channel is an open duplex link to the device. ReadFrame may be called from
// one goroutine while WriteFrame is called from another; Close may be
// called at any time and unblocks a pending ReadFrame.
type Channel interface {
	ReadFrame() ([]byte, error)
	WriteFrame(frame []byte) error
	Close() error
}

// Dialer opens channels.
type Dialer interface {
	Dial(ctx context.Context, endpoint string) (Channel, error)
}

// DialerFunc adapts a function to the Dialer interface.
type DialerFunc func(ctx context.Context, endpoint string) (Channel, error)

// Dial calls f.
func (f DialerFunc) Dial(ctx context.Context, endpoint string) (Channel, error) {
	return f(ctx, endpoint)
}

// ErrUnsupportedScheme is returned for endpoints with an unknown scheme.
var ErrUnsupportedScheme = errors.New("unsupported endpoint scheme")

// ErrFrameTooLarge is wrapped when an inbound frame exceeds MaxFrameSize.
var ErrFrameTooLarge = errors.New("frame too large")

// ConnectionError wraps a failure to open or use a channel.
type ConnectionError struct {
	message string
	wrapped error
}

func (e *ConnectionError) Error() string {
	if e.wrapped == nil {
		return e.message
	}
	return fmt.Sprintf("%s: %v", e.message, e.wrapped)
}

func (e *ConnectionError) Unwrap() error {
	return e.wrapped
}

// Options tune the built-in transports.
type Options struct {
	// HandshakeTimeout bounds dialing. Zero uses 10s.
	HandshakeTimeout time.Duration
	// Keepalive is the WebSocket ping period. Reads time out after
	// Keepalive*10/9 without traffic. Zero disables keepalive.
	Keepalive time.Duration
	// MaxFrameSize caps inbound frames. Zero uses 4 KiB.
	MaxFrameSize int64
}

func (o Options) withDefaults() Options {
	if o.HandshakeTimeout <= 0 {
		o.HandshakeTimeout = 10 * time.Second
	}
	if o.MaxFrameSize <= 0 {
		o.MaxFrameSize = 4096
	}
	return o
}

// NewDialer returns a Dialer choosing the transport by endpoint scheme:
// ws and wss use WebSocket, tcp uses newline-delimited TCP.
func NewDialer(opts Options) Dialer {
	opts = opts.withDefaults()
	ws := &WebSocketDialer{Options: opts}
	tcp := &TCPDialer{Options: opts}

	return DialerFunc(func(ctx context.Context, endpoint string) (Channel, error) {
		u, err := url.Parse(endpoint)
		if err != nil {
			return nil, &ConnectionError{message: "invalid endpoint", wrapped: err}
		}
		switch u.Scheme {
		case "ws", "wss":
			return ws.Dial(ctx, endpoint)
		case "tcp":
			return tcp.Dial(ctx, u.Host)
		default:
			return nil, fmt.Errorf("%w: %q", ErrUnsupportedScheme, u.Scheme)
		}
	})
}

// ValidateEndpoint checks that endpoint can be dialed by NewDialer.
func ValidateEndpoint(endpoint string) error {
	u, err := url.Parse(endpoint)
	if err != nil {
		return err
	}
	switch u.Scheme {
	case "ws", "wss", "tcp":
	default:
		return fmt.Errorf("%w: %q", ErrUnsupportedScheme, u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("endpoint %q has no host", endpoint)
	}
	return nil
}
