package transport

import (
	"bufio"
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func echoServer(t *testing.T) *httptest.Server {
	t.Helper()
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		conn.WriteMessage(websocket.TextMessage, []byte(`{"bbWeight":0.2,"distanceAcross":60}`))
		for {
			typ, msg, err := conn.ReadMessage()
			if err != nil {
				return
			}
			conn.WriteMessage(typ, msg)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestWebSocketChannel_ReadWrite(t *testing.T) {
	srv := echoServer(t)
	endpoint := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"

	ch, err := NewDialer(Options{Keepalive: time.Second}).Dial(context.Background(), endpoint)
	require.NoError(t, err)
	defer ch.Close()

	frame, err := ch.ReadFrame()
	require.NoError(t, err)
	assert.JSONEq(t, `{"bbWeight":0.2,"distanceAcross":60}`, string(frame))

	require.NoError(t, ch.WriteFrame([]byte("sendValues")))
	frame, err = ch.ReadFrame()
	require.NoError(t, err)
	assert.Equal(t, "sendValues", string(frame))
}

func TestWebSocketChannel_CloseUnblocksRead(t *testing.T) {
	srv := echoServer(t)
	endpoint := "ws" + strings.TrimPrefix(srv.URL, "http")

	ch, err := NewDialer(Options{}).Dial(context.Background(), endpoint)
	require.NoError(t, err)
	_, err = ch.ReadFrame()
	require.NoError(t, err)

	errC := make(chan error, 1)
	go func() {
		_, err := ch.ReadFrame()
		errC <- err
	}()

	require.NoError(t, ch.Close())
	select {
	case err := <-errC:
		var connErr *ConnectionError
		assert.ErrorAs(t, err, &connErr)
	case <-time.After(2 * time.Second):
		t.Fatal("ReadFrame did not return after Close")
	}
}

func TestWebSocketDialer_Refused(t *testing.T) {
	_, err := NewDialer(Options{HandshakeTimeout: time.Second}).Dial(context.Background(), "ws://127.0.0.1:1/ws")
	var connErr *ConnectionError
	assert.ErrorAs(t, err, &connErr)
}

func TestTCPChannel_ReadWrite(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	received := make(chan string, 1)
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		conn.Write([]byte("{\"metric\":91.5,\"joules\":0.84}\n\n{\"rps\":4}\n"))
		line, _ := bufio.NewReader(conn).ReadString('\n')
		received <- line
	}()

	ch, err := NewDialer(Options{}).Dial(context.Background(), "tcp://"+ln.Addr().String())
	require.NoError(t, err)
	defer ch.Close()

	frame, err := ch.ReadFrame()
	require.NoError(t, err)
	assert.Equal(t, `{"metric":91.5,"joules":0.84}`, string(frame))

	frame, err = ch.ReadFrame()
	require.NoError(t, err)
	assert.Equal(t, `{"rps":4}`, string(frame))

	require.NoError(t, ch.WriteFrame([]byte(`{"bbWeight":0.25,"distanceAcross":60}`)))
	select {
	case line := <-received:
		assert.Equal(t, "{\"bbWeight\":0.25,\"distanceAcross\":60}\n", line)
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for frame")
	}
}

func TestTCPChannel_OversizedFrame(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		conn.Write([]byte(strings.Repeat("a", 64) + "\n"))
		conn.Write([]byte(strings.Repeat("b", 65) + "\n"))
	}()

	ch, err := NewDialer(Options{MaxFrameSize: 64}).Dial(context.Background(), "tcp://"+ln.Addr().String())
	require.NoError(t, err)
	defer ch.Close()

	frame, err := ch.ReadFrame()
	require.NoError(t, err)
	assert.Len(t, frame, 64)

	_, err = ch.ReadFrame()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrFrameTooLarge)
	var connErr *ConnectionError
	assert.ErrorAs(t, err, &connErr)
}

func TestTCPChannel_UnterminatedFrameIsBounded(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		conn.Write([]byte(strings.Repeat("x", 1<<20)))
	}()

	ch, err := NewDialer(Options{MaxFrameSize: 128}).Dial(context.Background(), "tcp://"+ln.Addr().String())
	require.NoError(t, err)
	defer ch.Close()

	_, err = ch.ReadFrame()
	assert.ErrorIs(t, err, ErrFrameTooLarge)
}

func TestNewDialer_UnsupportedScheme(t *testing.T) {
	_, err := NewDialer(Options{}).Dial(context.Background(), "http://chrono.local/ws")
	assert.ErrorIs(t, err, ErrUnsupportedScheme)
}

func TestValidateEndpoint(t *testing.T) {
	assert.NoError(t, ValidateEndpoint("ws://192.168.4.1/ws"))
	assert.NoError(t, ValidateEndpoint("tcp://192.168.4.1:8081"))
	assert.ErrorIs(t, ValidateEndpoint("udp://x:1"), ErrUnsupportedScheme)
	assert.Error(t, ValidateEndpoint("ws:///ws"))
}
