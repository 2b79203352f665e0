package session

import (
	"io"
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/aNThiCu/AirsoftChronograph/internal/model"
	"github.com/aNThiCu/AirsoftChronograph/internal/window"
)

// Variant selects how the device delivers values.
type Variant string

const (
	// VariantPush devices send frames unprompted.
	VariantPush Variant = "push"
	// VariantPoll devices answer a PollRequest sent on open and re-sent
	// after each frame, up to the poll limit per connection.
	VariantPoll Variant = "poll"
)

const (
	DefaultReconnectDelay = 2000 * time.Millisecond
	DefaultPollInterval   = 3000 * time.Millisecond
	DefaultPollLimit      = 5
)

// Renderer receives a snapshot after every state change. Render is called
// on the manager's event loop and must not block.
type Renderer interface {
	Render(model.Snapshot)
}

// RendererFunc adapts a function to the Renderer interface.
type RendererFunc func(model.Snapshot)

// Render calls f.
func (f RendererFunc) Render(s model.Snapshot) { f(s) }

// Option configures a Manager.
type Option func(*Manager)

// WithLogger sets the logger. The default discards output.
func WithLogger(l *slog.Logger) Option {
	return func(m *Manager) {
		if l != nil {
			m.log = l
		}
	}
}

// WithClock injects the clock driving the reconnect and poll timers.
func WithClock(c clockwork.Clock) Option {
	return func(m *Manager) { m.clock = c }
}

// WithRenderer adds a render collaborator.
func WithRenderer(r Renderer) Option {
	return func(m *Manager) { m.renderers = append(m.renderers, r) }
}

// WithReconnectDelay sets the fixed delay between a close and the next
// connection attempt.
func WithReconnectDelay(d time.Duration) Option {
	return func(m *Manager) {
		if d > 0 {
			m.reconnectDelay = d
		}
	}
}

// WithVariant selects the device protocol variant.
func WithVariant(v Variant) Option {
	return func(m *Manager) { m.variant = v }
}

// WithPolling tunes the poll variant.
func WithPolling(interval time.Duration, limit int) Option {
	return func(m *Manager) {
		if interval > 0 {
			m.pollInterval = interval
		}
		if limit >= 0 {
			m.pollLimit = limit
		}
	}
}

// WithWindowCapacity sets the number of readings kept for the chart.
func WithWindowCapacity(n int) Option {
	return func(m *Manager) { m.capacity = n }
}

func defaults(m *Manager) {
	m.log = slog.New(slog.NewTextHandler(io.Discard, nil))
	m.clock = clockwork.NewRealClock()
	m.reconnectDelay = DefaultReconnectDelay
	m.variant = VariantPush
	m.pollInterval = DefaultPollInterval
	m.pollLimit = DefaultPollLimit
	m.capacity = window.DefaultCapacity
}
