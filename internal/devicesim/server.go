package devicesim

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Server exposes a Device over WebSocket and TCP
type Server struct {
	device *Device

	httpServer  *http.Server
	wsListener  net.Listener
	tcpListener net.Listener

	stop chan struct{}
	wg   sync.WaitGroup
}

// NewServer creates a new simulator server instance
func NewServer(d *Device) *Server {
	s := &Server{device: d, stop: make(chan struct{})}
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWebSocket)
	s.httpServer = &http.Server{Handler: mux, ReadHeaderTimeout: 10 * time.Second}
	return s
}

// Start listens on the given addresses. Either may be empty to skip that
// transport.
func (s *Server) Start(wsAddr, tcpAddr string) error {
	if wsAddr != "" {
		ln, err := net.Listen("tcp", wsAddr)
		if err != nil {
			return fmt.Errorf("failed to start WebSocket listener: %w", err)
		}
		s.wsListener = ln
		s.device.log.Info("simulator WebSocket listening", "addr", ln.Addr().String())
		go func() {
			if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
				s.device.log.Error("simulator WebSocket server error", "error", err)
			}
		}()
	}

	if tcpAddr != "" {
		ln, err := net.Listen("tcp", tcpAddr)
		if err != nil {
			s.httpServer.Close()
			return fmt.Errorf("failed to start TCP listener: %w", err)
		}
		s.tcpListener = ln
		s.device.log.Info("simulator TCP listening", "addr", ln.Addr().String())
		go s.acceptConnections()
	}

	if s.device.opts.Interval > 0 {
		s.wg.Add(1)
		go s.pushLoop()
	}
	return nil
}

// WebSocketURL returns the ws:// endpoint of a started server
func (s *Server) WebSocketURL() string {
	if s.wsListener == nil {
		return ""
	}
	return "ws://" + s.wsListener.Addr().String() + "/ws"
}

// TCPURL returns the tcp:// endpoint of a started server
func (s *Server) TCPURL() string {
	if s.tcpListener == nil {
		return ""
	}
	return "tcp://" + s.tcpListener.Addr().String()
}

// Stop stops the simulator and drops all clients
func (s *Server) Stop() error {
	close(s.stop)
	var errs []error
	if s.tcpListener != nil {
		errs = append(errs, s.tcpListener.Close())
	}
	errs = append(errs, s.httpServer.Close())

	s.device.mu.Lock()
	for c := range s.device.clients {
		c.ch.Close()
	}
	s.device.mu.Unlock()

	s.wg.Wait()
	return errors.Join(errs...)
}

func (s *Server) pushLoop() {
	defer s.wg.Done()
	ticker := time.NewTicker(s.device.opts.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.device.Fire()
		case <-s.stop:
			return
		}
	}
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.device.log.Warn("failed to upgrade connection", "error", err)
		return
	}
	go s.device.serve(&wsConn{conn: conn}, r.RemoteAddr)
}

// acceptConnections accepts incoming TCP connections
func (s *Server) acceptConnections() {
	for {
		conn, err := s.tcpListener.Accept()
		if err != nil {
			select {
			case <-s.stop:
				return
			default:
			}
			s.device.log.Warn("failed to accept connection", "error", err)
			continue
		}
		go s.device.serve(&tcpConn{conn: conn, reader: bufio.NewReader(conn)}, conn.RemoteAddr().String())
	}
}

type wsConn struct {
	conn *websocket.Conn
}

func (c *wsConn) ReadFrame() ([]byte, error) {
	_, msg, err := c.conn.ReadMessage()
	return msg, err
}

func (c *wsConn) WriteFrame(frame []byte) error {
	c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
	return c.conn.WriteMessage(websocket.TextMessage, frame)
}

func (c *wsConn) Close() error { return c.conn.Close() }

type tcpConn struct {
	conn   net.Conn
	reader *bufio.Reader
}

func (c *tcpConn) ReadFrame() ([]byte, error) {
	for {
		// Set read deadline to detect dead connections
		c.conn.SetReadDeadline(time.Now().Add(5 * time.Minute))
		line, err := c.reader.ReadBytes('\n')
		if err != nil {
			return nil, err
		}
		if line = bytes.TrimSpace(line); len(line) > 0 {
			return line, nil
		}
	}
}

func (c *tcpConn) WriteFrame(frame []byte) error {
	_, err := c.conn.Write(append(append([]byte(nil), frame...), '\n'))
	return err
}

func (c *tcpConn) Close() error { return c.conn.Close() }
