package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/aNThiCu/AirsoftChronograph/internal/hub"
	"github.com/aNThiCu/AirsoftChronograph/internal/model"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
	publishTimeout = 5 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The dashboard is served from the same host; allow LAN browsers.
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Publisher sends operator-edited config to the device.
type Publisher interface {
	Publish(ctx context.Context, cfg model.DeviceConfig) error
}

// Server serves the dashboard page and its viewer WebSocket
type Server struct {
	hub       *hub.Hub
	publisher Publisher
	server    *http.Server
	listener  net.Listener
	log       *slog.Logger
}

// NewServer creates a new dashboard server instance
func NewServer(address string, h *hub.Hub, p Publisher, log *slog.Logger) *Server {
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	mux := http.NewServeMux()
	s := &Server{
		hub:       h,
		publisher: p,
		log:       log,
		server: &http.Server{
			Addr:              address,
			Handler:           mux,
			ReadHeaderTimeout: 10 * time.Second,
		},
	}

	mux.HandleFunc("/", s.handleIndex)
	mux.HandleFunc("/ws", s.handleWebSocket)
	mux.HandleFunc("/health", s.handleHealth)

	return s
}

// Start starts listening and serves in the background
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.server.Addr)
	if err != nil {
		return err
	}
	s.listener = ln
	s.log.Info("dashboard listening", "addr", ln.Addr().String())

	go func() {
		if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Error("dashboard server error", "error", err)
		}
	}()
	return nil
}

// Addr returns the listening address once started
func (s *Server) Addr() string {
	if s.listener == nil {
		return s.server.Addr
	}
	return s.listener.Addr().String()
}

// Stop stops the dashboard server
func (s *Server) Stop() error {
	return s.server.Close()
}

// handleHealth handles health check requests
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

// handleIndex serves the dashboard page
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	io.WriteString(w, indexHTML)
}

// handleWebSocket handles viewer connection requests
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("failed to upgrade connection", "error", err)
		return
	}

	client := &hub.Client{
		ID:   uuid.New().String(),
		Send: make(chan []byte, 256),
	}

	// Replies to this viewer's own commands bypass the hub.
	replies := make(chan []byte, 4)

	s.hub.Register(client)
	s.log.Info("viewer connected", "client", client.ID, "remote", r.RemoteAddr)

	go s.writePump(conn, client, replies)
	go s.readPump(conn, client, replies)
}

// readPump reads viewer commands until the connection drops
func (s *Server) readPump(conn *websocket.Conn, client *hub.Client, replies chan<- []byte) {
	defer func() {
		s.hub.Unregister(client)
		conn.Close()
	}()

	conn.SetReadLimit(maxMessageSize)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				s.log.Warn("viewer connection error", "client", client.ID, "error", err)
			}
			break
		}

		var msg struct {
			Type string          `json:"type"`
			Data json.RawMessage `json:"data"`
		}
		if err := json.Unmarshal(message, &msg); err != nil {
			s.log.Warn("error parsing viewer message", "client", client.ID, "error", err)
			continue
		}

		switch msg.Type {
		case model.MessageTypeSaveConfig:
			s.saveConfig(client, msg.Data, replies)
		default:
			s.log.Warn("unknown viewer message type", "client", client.ID, "type", msg.Type)
		}
	}
}

func (s *Server) saveConfig(client *hub.Client, data json.RawMessage, replies chan<- []byte) {
	var cfg model.DeviceConfig
	err := json.Unmarshal(data, &cfg)
	if err == nil {
		ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
		err = s.publisher.Publish(ctx, cfg)
		cancel()
	}
	if err == nil {
		return
	}

	s.log.Warn("save config failed", "client", client.ID, "error", err)
	reply, _ := json.Marshal(model.Message{Type: model.MessageTypeError, Data: err.Error()})
	select {
	case replies <- reply:
	default:
	}
}

// writePump pumps views from the hub to the viewer
func (s *Server) writePump(conn *websocket.Conn, client *hub.Client, replies <-chan []byte) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		conn.Close()
	}()

	for {
		select {
		case message, ok := <-client.Send:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The hub closed the channel
				conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case reply := <-replies:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.TextMessage, reply); err != nil {
				return
			}

		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
