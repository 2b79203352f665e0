package transport

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
)

// TCPDialer connects to devices that stream newline-delimited JSON over a
// plain TCP socket.
type TCPDialer struct {
	Options Options
}

// Dial opens a TCP connection to address (host:port).
func (d *TCPDialer) Dial(ctx context.Context, address string) (Channel, error) {
	opts := d.Options.withDefaults()
	dialer := net.Dialer{Timeout: opts.HandshakeTimeout}

	conn, err := dialer.DialContext(ctx, "tcp", address)
	if err != nil {
		return nil, &ConnectionError{message: "error opening TCP connection", wrapped: err}
	}
	return &tcpChannel{
		conn:   conn,
		// Room for a CRLF terminator.
		reader: bufio.NewReaderSize(conn, int(opts.MaxFrameSize)+2),
		limit:  int(opts.MaxFrameSize),
	}, nil
}

type tcpChannel struct {
	conn   net.Conn
	reader *bufio.Reader
	limit  int

	writeMu sync.Mutex
}

func (c *tcpChannel) ReadFrame() ([]byte, error) {
	for {
		line, err := c.reader.ReadSlice('\n')
		if errors.Is(err, bufio.ErrBufferFull) || len(bytes.TrimRight(line, "\r\n")) > c.limit {
			return nil, &ConnectionError{
				message: "error reading frame",
				wrapped: fmt.Errorf("%w: more than %d bytes without newline", ErrFrameTooLarge, c.limit),
			}
		}
		if err != nil {
			if err == io.EOF && len(bytes.TrimSpace(line)) > 0 {
				return bytes.Clone(bytes.TrimSpace(line)), nil
			}
			return nil, &ConnectionError{message: "error reading frame", wrapped: err}
		}
		// ReadSlice data is only valid until the next read.
		if line = bytes.TrimSpace(line); len(line) > 0 {
			return bytes.Clone(line), nil
		}
	}
}

func (c *tcpChannel) WriteFrame(frame []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	buf := make([]byte, 0, len(frame)+1)
	buf = append(buf, frame...)
	buf = append(buf, '\n')
	if _, err := c.conn.Write(buf); err != nil {
		return &ConnectionError{message: "error writing frame", wrapped: err}
	}
	return nil
}

func (c *tcpChannel) Close() error {
	return c.conn.Close()
}
