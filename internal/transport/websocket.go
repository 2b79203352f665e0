package transport

import (
	"context"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const writeWait = 10 * time.Second

// WebSocketDialer dials the device's /ws endpoint.
type WebSocketDialer struct {
	Options Options
}

// Dial opens a WebSocket to endpoint, e.g. ws://192.168.4.1/ws.
func (d *WebSocketDialer) Dial(ctx context.Context, endpoint string) (Channel, error) {
	opts := d.Options.withDefaults()
	dialer := websocket.Dialer{
		HandshakeTimeout: opts.HandshakeTimeout,
		ReadBufferSize:   1024,
		WriteBufferSize:  1024,
	}

	conn, _, err := dialer.DialContext(ctx, endpoint, nil)
	if err != nil {
		return nil, &ConnectionError{message: "error opening WebSocket connection", wrapped: err}
	}
	conn.SetReadLimit(opts.MaxFrameSize)

	ch := &wsChannel{
		conn: conn,
		done: make(chan struct{}),
	}
	if opts.Keepalive > 0 {
		ch.pongWait = opts.Keepalive * 10 / 9
		conn.SetReadDeadline(time.Now().Add(ch.pongWait))
		conn.SetPongHandler(func(string) error {
			conn.SetReadDeadline(time.Now().Add(ch.pongWait))
			return nil
		})
		go ch.pingLoop(opts.Keepalive)
	}
	return ch, nil
}

type wsChannel struct {
	conn     *websocket.Conn
	pongWait time.Duration

	closeOnce sync.Once
	done      chan struct{}
}

func (c *wsChannel) ReadFrame() ([]byte, error) {
	for {
		typ, msg, err := c.conn.ReadMessage()
		if err != nil {
			return nil, &ConnectionError{message: "error reading frame", wrapped: err}
		}
		if c.pongWait > 0 {
			c.conn.SetReadDeadline(time.Now().Add(c.pongWait))
		}
		if typ == websocket.TextMessage || typ == websocket.BinaryMessage {
			return msg, nil
		}
	}
}

func (c *wsChannel) WriteFrame(frame []byte) error {
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
		return &ConnectionError{message: "error writing frame", wrapped: err}
	}
	return nil
}

func (c *wsChannel) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.done)
		// Best effort; the peer may already be gone.
		_ = c.conn.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second),
		)
		err = c.conn.Close()
	})
	return err
}

// pingLoop keeps the read deadline alive on idle links. WriteControl may
// run concurrently with WriteMessage.
func (c *wsChannel) pingLoop(period time.Duration) {
	ticker := time.NewTicker(period)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		case <-c.done:
			return
		}
	}
}
