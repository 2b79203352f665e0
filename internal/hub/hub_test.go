package hub

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aNThiCu/AirsoftChronograph/internal/model"
	"github.com/aNThiCu/AirsoftChronograph/internal/render"
)

var testViewport = render.Viewport{Width: 300, Height: 200}

type viewMessage struct {
	Type string      `json:"type"`
	Data render.View `json:"data"`
}

func newRunningHub(t *testing.T) *Hub {
	t.Helper()
	h := NewHub(testViewport, nil)
	go h.Run()
	t.Cleanup(h.Stop)
	return h
}

func receiveView(t *testing.T, client *Client) render.View {
	t.Helper()
	select {
	case data, ok := <-client.Send:
		require.True(t, ok, "send channel closed")
		var msg viewMessage
		require.NoError(t, json.Unmarshal(data, &msg))
		require.Equal(t, model.MessageTypeView, msg.Type)
		return msg.Data
	case <-time.After(time.Second):
		t.Fatal("Timeout waiting for view")
		return render.View{}
	}
}

func TestHub_RegisterClient(t *testing.T) {
	h := newRunningHub(t)

	h.Register(&Client{ID: "viewer-001", Send: make(chan []byte, 256)})

	require.Eventually(t, func() bool { return h.GetClientCount() == 1 }, time.Second, 5*time.Millisecond)
}

func TestHub_UnregisterClient(t *testing.T) {
	h := newRunningHub(t)
	client := &Client{ID: "viewer-002", Send: make(chan []byte, 256)}

	h.Register(client)
	h.Unregister(client)

	require.Eventually(t, func() bool { return h.GetClientCount() == 0 }, time.Second, 5*time.Millisecond)
	_, ok := <-client.Send
	assert.False(t, ok)
}

func TestHub_RenderSingleClient(t *testing.T) {
	h := newRunningHub(t)
	client := &Client{ID: "viewer-003", Send: make(chan []byte, 256)}
	h.Register(client)

	h.Render(model.Snapshot{
		State:  model.StateOpen,
		Window: []float64{80, 90},
		Log:    []model.ShotLogEntry{{Sequence: 1, Metric: 80, Joules: 0.64}, {Sequence: 2, Metric: 90, Joules: 0.81}},
	})

	view := receiveView(t, client)
	assert.Equal(t, model.StateOpen, view.State)
	assert.Len(t, view.Bars, 2)
	assert.Equal(t, []string{"#1: 80.0 m/s, 0.64 J", "#2: 90.0 m/s, 0.81 J"}, view.Log)
	assert.Equal(t, testViewport, view.Viewport)
}

func TestHub_RenderMultipleClients(t *testing.T) {
	h := newRunningHub(t)

	clients := make([]*Client, 5)
	for i := range clients {
		clients[i] = &Client{ID: "viewer-multi-" + string(rune('A'+i)), Send: make(chan []byte, 256)}
		h.Register(clients[i])
	}

	h.Render(model.Snapshot{State: model.StateConnecting, Endpoint: "ws://chrono.local/ws"})

	for _, client := range clients {
		view := receiveView(t, client)
		assert.Equal(t, model.StateConnecting, view.State)
		assert.Equal(t, "ws://chrono.local/ws", view.Endpoint)
	}
}

func TestHub_ReplaysLastViewOnRegister(t *testing.T) {
	h := newRunningHub(t)
	first := &Client{ID: "viewer-first", Send: make(chan []byte, 256)}
	h.Register(first)

	h.Render(model.Snapshot{State: model.StateOpen, Window: []float64{42}})
	receiveView(t, first)

	late := &Client{ID: "viewer-late", Send: make(chan []byte, 256)}
	h.Register(late)

	view := receiveView(t, late)
	require.Len(t, view.Bars, 1)
	assert.Equal(t, "42.0", view.Bars[0].Label)
}

func TestHub_SlowClientDisconnected(t *testing.T) {
	h := newRunningHub(t)
	slow := &Client{ID: "viewer-slow", Send: make(chan []byte, 1)}
	h.Register(slow)
	require.Eventually(t, func() bool { return h.GetClientCount() == 1 }, time.Second, 5*time.Millisecond)

	h.Render(model.Snapshot{Window: []float64{1}})
	require.Eventually(t, func() bool { return len(slow.Send) == 1 }, time.Second, 5*time.Millisecond)

	h.Render(model.Snapshot{Window: []float64{2}})
	require.Eventually(t, func() bool { return h.GetClientCount() == 0 }, time.Second, 5*time.Millisecond)
}

func TestHub_MultipleRendersEndOnLatest(t *testing.T) {
	h := newRunningHub(t)
	client := &Client{ID: "viewer-multiple-001", Send: make(chan []byte, 256)}
	h.Register(client)
	require.Eventually(t, func() bool { return h.GetClientCount() == 1 }, time.Second, 5*time.Millisecond)

	renderCount := 50
	for i := 0; i < renderCount; i++ {
		h.Render(model.Snapshot{Window: []float64{float64(i + 1)}})
	}

	for {
		view := receiveView(t, client)
		require.Len(t, view.Bars, 1)
		if view.Bars[0].Label == "50.0" {
			return
		}
	}
}

func TestHub_RenderKeepsNewestWhenBacklogged(t *testing.T) {
	h := NewHub(testViewport, nil)
	for i := 1; i <= 65; i++ {
		h.Render(model.Snapshot{Window: []float64{float64(i)}})
	}
	go h.Run()
	t.Cleanup(h.Stop)

	client := &Client{ID: "viewer-backlog", Send: make(chan []byte, 256)}
	h.Register(client)

	view := receiveView(t, client)
	require.Len(t, view.Bars, 1)
	assert.Equal(t, "65.0", view.Bars[0].Label)

	select {
	case <-client.Send:
		t.Fatal("superseded snapshot was rendered")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestHub_ReplayDoesNotBlockOnFullViewer(t *testing.T) {
	h := newRunningHub(t)
	h.Render(model.Snapshot{Window: []float64{7}})

	// Wait for the view to be encoded by replaying it to a first viewer.
	first := &Client{ID: "viewer-first", Send: make(chan []byte, 1)}
	require.Eventually(t, func() bool {
		h.Register(first)
		return len(first.Send) == 1
	}, time.Second, 5*time.Millisecond)

	stalled := &Client{ID: "viewer-stalled", Send: make(chan []byte)}
	h.Register(stalled)

	late := &Client{ID: "viewer-late", Send: make(chan []byte, 1)}
	h.Register(late)
	view := receiveView(t, late)
	require.Len(t, view.Bars, 1)
	assert.Equal(t, "7.0", view.Bars[0].Label)
}

func TestHub_StopClosesClients(t *testing.T) {
	h := NewHub(testViewport, nil)
	go h.Run()

	client := &Client{ID: "viewer-stop", Send: make(chan []byte, 256)}
	h.Register(client)
	h.Stop()

	require.Eventually(t, func() bool {
		select {
		case _, ok := <-client.Send:
			return !ok
		default:
			return false
		}
	}, time.Second, 5*time.Millisecond)
}

func TestHub_StopTwice(t *testing.T) {
	h := NewHub(testViewport, nil)
	go h.Run()

	assert.NotPanics(t, func() {
		h.Stop()
		h.Stop()
	})
}
