// Package devicesim is a software stand-in for the chronograph firmware. It
// speaks the same protocol over WebSocket (/ws) and newline-delimited TCP, so
// the client can be exercised without hardware.
package devicesim

import (
	"encoding/json"
	"io"
	"log/slog"
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/aNThiCu/AirsoftChronograph/internal/classify"
	"github.com/aNThiCu/AirsoftChronograph/internal/model"
	"github.com/aNThiCu/AirsoftChronograph/internal/transport"
)

// Options configure a simulated device.
type Options struct {
	// Config is the initial device config echoed to new clients.
	Config model.DeviceConfig
	// Interval between unprompted shots. Zero disables pushing; shots
	// are then only sent on Fire or in answer to a poll request.
	Interval time.Duration
	// BurstEvery sends a burst summary after every n shots. Zero disables.
	BurstEvery int
	// MeanSpeed and Spread shape the generated speeds in m/s.
	MeanSpeed float64
	Spread    float64
	Seed      int64
	Logger    *slog.Logger
}

// Device is a simulated chronograph serving any number of clients.
type Device struct {
	opts Options
	log  *slog.Logger

	mu      sync.Mutex
	config  model.DeviceConfig
	rng     *rand.Rand
	shots   int
	speeds  []float64
	clients map[*client]struct{}
}

type client struct {
	ch      transport.Channel
	remote  string
	writeMu sync.Mutex
}

func (c *client) send(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.ch.WriteFrame(data)
}

// New creates a simulated device.
func New(opts Options) *Device {
	if opts.MeanSpeed <= 0 {
		opts.MeanSpeed = 95
	}
	if opts.Spread < 0 {
		opts.Spread = 0
	}
	if opts.Config == (model.DeviceConfig{}) {
		opts.Config = model.DeviceConfig{BBWeight: 0.25, DistanceAcross: 60}
	}
	log := opts.Logger
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Device{
		opts:    opts,
		log:     log,
		config:  opts.Config,
		rng:     rand.New(rand.NewSource(opts.Seed)),
		clients: make(map[*client]struct{}),
	}
}

// Config returns the device's current config.
func (d *Device) Config() model.DeviceConfig {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.config
}

// ClientCount returns the number of attached clients.
func (d *Device) ClientCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.clients)
}

// Fire simulates one shot and reports it to every client.
func (d *Device) Fire() {
	frames := d.nextShot()

	d.mu.Lock()
	clients := make([]*client, 0, len(d.clients))
	for c := range d.clients {
		clients = append(clients, c)
	}
	d.mu.Unlock()

	for _, c := range clients {
		for _, f := range frames {
			if err := c.send(f); err != nil {
				d.log.Warn("error sending shot", "remote", c.remote, "error", err)
				break
			}
		}
	}
}

// nextShot generates the frames for one shot: the reading itself and,
// every BurstEvery shots, a burst summary.
func (d *Device) nextShot() []any {
	d.mu.Lock()
	defer d.mu.Unlock()

	speed := math.Max(1, d.opts.MeanSpeed+d.rng.NormFloat64()*d.opts.Spread)
	speed = math.Round(speed*100) / 100
	// E = m v^2 / 2, weight configured in grams.
	joules := math.Round(0.5*(d.config.BBWeight/1000)*speed*speed*100) / 100

	d.shots++
	d.speeds = append(d.speeds, speed)
	frames := []any{map[string]float64{"metric": speed, "joules": joules}}

	if d.opts.BurstEvery > 0 && d.shots%d.opts.BurstEvery == 0 {
		sum := 0.0
		for _, v := range d.speeds {
			sum += v
		}
		avg := math.Round(sum/float64(len(d.speeds))*100) / 100
		rps := 0.0
		if d.opts.Interval > 0 {
			rps = math.Round(float64(time.Second)/float64(d.opts.Interval)*10) / 10
		}
		frames = append(frames, map[string]float64{"rps": rps, "avg_metric": avg})
		d.speeds = d.speeds[:0]
	}
	return frames
}

// serve runs the protocol for one attached client until it disconnects.
func (d *Device) serve(ch transport.Channel, remote string) {
	c := &client{ch: ch, remote: remote}
	defer ch.Close()

	d.mu.Lock()
	d.clients[c] = struct{}{}
	cfg := d.config
	d.mu.Unlock()
	defer func() {
		d.mu.Lock()
		delete(d.clients, c)
		d.mu.Unlock()
		d.log.Info("client disconnected", "remote", remote)
	}()

	d.log.Info("client connected", "remote", remote)
	if err := c.send(cfg); err != nil {
		return
	}
	if err := c.send(map[string]string{"debug": "chronograph ready"}); err != nil {
		return
	}

	for {
		frame, err := ch.ReadFrame()
		if err != nil {
			return
		}
		d.handleFrame(c, frame)
	}
}

func (d *Device) handleFrame(c *client, frame []byte) {
	if string(frame) == model.PollRequest {
		for _, f := range d.nextShot() {
			if err := c.send(f); err != nil {
				return
			}
		}
		return
	}

	events, err := classify.Classify(frame)
	if err != nil {
		d.log.Warn("error parsing frame", "remote", c.remote, "error", err)
	}
	for _, ev := range events {
		echo, ok := ev.(classify.ConfigEchoed)
		if !ok {
			continue
		}
		d.mu.Lock()
		if echo.BBWeight != nil {
			d.config.BBWeight = *echo.BBWeight
		}
		if echo.DistanceAcross != nil {
			d.config.DistanceAcross = *echo.DistanceAcross
		}
		cfg := d.config
		d.mu.Unlock()

		d.log.Info("config updated", "bbWeight", cfg.BBWeight, "distanceAcross", cfg.DistanceAcross)
		c.send(map[string]string{"debug": "config saved"})
	}
}
