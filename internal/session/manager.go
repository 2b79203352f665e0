package session

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/aNThiCu/AirsoftChronograph/internal/classify"
	"github.com/aNThiCu/AirsoftChronograph/internal/model"
	"github.com/aNThiCu/AirsoftChronograph/internal/transport"
)

// Manager keeps one connection to the device alive and applies its frames to
// the session.
//
// All state lives on the goroutine running Run. Dialing, reading and timers
// run elsewhere and only post events to that loop, so frames are applied one
// at a time in arrival order. Every event carries the generation of the
// connection it belongs to; events from a superseded connection are dropped.
type Manager struct {
	endpoint string
	dialer   transport.Dialer

	log            *slog.Logger
	clock          clockwork.Clock
	renderers      []Renderer
	reconnectDelay time.Duration
	variant        Variant
	pollInterval   time.Duration
	pollLimit      int
	capacity       int

	events  chan any
	done    chan struct{}
	running atomic.Bool

	// Owned by the Run loop.
	session   *Session
	conn      transport.Channel
	gen       uint64
	retry     clockwork.Timer
	poll      clockwork.Timer
	pollsLeft int
}

type (
	dialResult struct {
		gen uint64
		ch  transport.Channel
		err error
	}
	frameEvent struct {
		gen  uint64
		data []byte
	}
	closedEvent struct {
		gen uint64
		err error
	}
	retryEvent struct{}
	pollEvent  struct{ gen uint64 }

	publishRequest struct {
		cfg  model.DeviceConfig
		errC chan error
	}
	snapshotRequest struct {
		snapC chan model.Snapshot
	}
)

// NewManager creates a manager for the device at endpoint.
func NewManager(endpoint string, dialer transport.Dialer, opts ...Option) *Manager {
	m := &Manager{
		endpoint: endpoint,
		dialer:   dialer,
		events:   make(chan any, 16),
		done:     make(chan struct{}),
	}
	defaults(m)
	for _, opt := range opts {
		opt(m)
	}
	m.session = New(m.capacity)
	return m
}

// Run connects and keeps the connection alive until ctx is cancelled. On
// return the pending reconnect timer is stopped and the live connection is
// closed.
func (m *Manager) Run(ctx context.Context) error {
	if !m.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	m.log.Info("starting session", "endpoint", m.endpoint, "variant", m.variant)
	m.connect(ctx)

	for {
		select {
		case <-ctx.Done():
			m.teardown()
			close(m.done)
			m.log.Info("session stopped")
			return nil

		case ev := <-m.events:
			m.handle(ctx, ev)
		}
	}
}

// Publish sends cfg to the device as a single frame. It does not wait for
// an acknowledgement. ErrNotConnected is returned when no connection is
// open; the caller decides whether to retry.
func (m *Manager) Publish(ctx context.Context, cfg model.DeviceConfig) error {
	req := publishRequest{cfg: cfg, errC: make(chan error, 1)}
	if err := m.request(ctx, req); err != nil {
		return err
	}

	select {
	case err := <-req.errC:
		return err
	case <-ctx.Done():
		return ctx.Err()
	case <-m.done:
		return ErrStopped
	}
}

// Snapshot returns the current session state.
func (m *Manager) Snapshot(ctx context.Context) (model.Snapshot, error) {
	req := snapshotRequest{snapC: make(chan model.Snapshot, 1)}
	if err := m.request(ctx, req); err != nil {
		return model.Snapshot{}, err
	}

	select {
	case snap := <-req.snapC:
		return snap, nil
	case <-ctx.Done():
		return model.Snapshot{}, ctx.Err()
	case <-m.done:
		return model.Snapshot{}, ErrStopped
	}
}

func (m *Manager) request(ctx context.Context, req any) error {
	select {
	case m.events <- req:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-m.done:
		return ErrStopped
	}
}

// post hands an event to the loop. It reports false once Run has exited.
func (m *Manager) post(ev any) bool {
	select {
	case m.events <- ev:
		return true
	case <-m.done:
		return false
	}
}

func (m *Manager) handle(ctx context.Context, ev any) {
	switch ev := ev.(type) {
	case dialResult:
		m.onDialResult(ev)

	case frameEvent:
		if ev.gen == m.gen {
			m.onFrame(ev.data)
		}

	case closedEvent:
		if ev.gen == m.gen {
			m.log.Info("connection closed", "endpoint", m.endpoint, "error", ev.err)
			m.onClosed()
		}

	case retryEvent:
		m.retry = nil
		m.connect(ctx)

	case pollEvent:
		m.poll = nil
		if ev.gen == m.gen && m.conn != nil {
			m.send([]byte(model.PollRequest))
		}

	case publishRequest:
		ev.errC <- m.publish(ev.cfg)

	case snapshotRequest:
		ev.snapC <- m.session.Snapshot()
	}
}

// connect starts a connection attempt in the background.
func (m *Manager) connect(ctx context.Context) {
	m.gen++
	gen := m.gen
	m.session.Connecting(m.endpoint)
	m.log.Info("connecting", "endpoint", m.endpoint)
	m.render()

	go func() {
		ch, err := m.dialer.Dial(ctx, m.endpoint)
		posted := m.post(dialResult{gen: gen, ch: ch, err: err})
		// Run may have exited without seeing the result.
		if ch != nil && (!posted || ctx.Err() != nil) {
			ch.Close()
		}
	}()
}

func (m *Manager) onDialResult(ev dialResult) {
	if ev.gen != m.gen {
		if ev.ch != nil {
			ev.ch.Close()
		}
		return
	}
	if ev.err != nil {
		m.log.Warn("connection failed", "endpoint", m.endpoint, "error", ev.err)
		m.onClosed()
		return
	}

	m.conn = ev.ch
	m.session.Open()
	m.log.Info("connection opened", "endpoint", m.endpoint)
	go m.readLoop(ev.gen, ev.ch)

	if m.variant == VariantPoll {
		m.pollsLeft = m.pollLimit
		m.send([]byte(model.PollRequest))
	}
	m.render()
}

func (m *Manager) readLoop(gen uint64, ch transport.Channel) {
	for {
		data, err := ch.ReadFrame()
		if err != nil {
			m.post(closedEvent{gen: gen, err: err})
			return
		}
		if !m.post(frameEvent{gen: gen, data: data}) {
			return
		}
	}
}

func (m *Manager) onFrame(data []byte) {
	m.log.Debug("frame received", "frame", string(data))

	events, err := classify.Classify(data)
	if err != nil {
		if len(events) == 0 {
			m.log.Warn("dropping frame", "error", err, "frame", string(data))
			return
		}
		m.log.Warn("frame has invalid fields", "error", err, "frame", string(data))
	}

	for _, ev := range events {
		switch ev := ev.(type) {
		case classify.DebugReceived:
			m.log.Info("device debug", "text", ev.Text)
		case classify.BurstReceived:
			if ev.AvgMetric != nil {
				m.log.Info("burst average speed", "avg_metric", *ev.AvgMetric)
			}
		}
	}

	if m.session.Apply(events) {
		m.render()
	}

	if m.variant == VariantPoll && m.pollsLeft > 0 && m.poll == nil {
		m.pollsLeft--
		gen := m.gen
		m.poll = m.clock.AfterFunc(m.pollInterval, func() {
			m.post(pollEvent{gen: gen})
		})
	}
}

// onClosed drops the current connection and schedules exactly one retry.
func (m *Manager) onClosed() {
	m.dropConn()
	m.session.Close()
	m.render()

	m.log.Info("reconnecting", "endpoint", m.endpoint, "delay", m.reconnectDelay)
	m.retry = m.clock.AfterFunc(m.reconnectDelay, func() {
		m.post(retryEvent{})
	})
}

func (m *Manager) dropConn() {
	if m.poll != nil {
		m.poll.Stop()
		m.poll = nil
	}
	if m.conn != nil {
		m.conn.Close()
		m.conn = nil
	}
	// Invalidate events still in flight from the old connection.
	m.gen++
}

func (m *Manager) teardown() {
	if m.retry != nil {
		m.retry.Stop()
		m.retry = nil
	}
	m.dropConn()
	m.session.Close()
	m.render()
}

func (m *Manager) publish(cfg model.DeviceConfig) error {
	if math.IsNaN(cfg.BBWeight) || math.IsInf(cfg.BBWeight, 0) {
		m.log.Error("cannot publish config", "error", ErrInvalidConfig, "bbWeight", cfg.BBWeight)
		return fmt.Errorf("%w: bbWeight %v", ErrInvalidConfig, cfg.BBWeight)
	}
	if m.conn == nil || m.session.State() != model.StateOpen {
		m.log.Error("cannot publish config", "error", ErrNotConnected)
		return ErrNotConnected
	}

	data, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	if err := m.conn.WriteFrame(data); err != nil {
		m.log.Error("failed to send config", "error", err)
		return fmt.Errorf("send config: %w", err)
	}
	m.log.Info("sent config", "bbWeight", cfg.BBWeight, "distanceAcross", cfg.DistanceAcross)
	return nil
}

func (m *Manager) send(frame []byte) {
	if err := m.conn.WriteFrame(frame); err != nil {
		m.log.Warn("failed to send frame", "frame", string(frame), "error", err)
	}
}

func (m *Manager) render() {
	if len(m.renderers) == 0 {
		return
	}
	snap := m.session.Snapshot()
	for _, r := range m.renderers {
		r.Render(snap)
	}
}
