// Package tui is the terminal dashboard. It shows the live session and lets
// the operator edit and publish the device config.
package tui

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/aNThiCu/AirsoftChronograph/internal/model"
	"github.com/aNThiCu/AirsoftChronograph/internal/render"
)

const (
	publishTimeout = 5 * time.Second
	chartHeight    = 10
	logLines       = 8
)

const (
	fieldWeight = iota
	fieldDistance
	fieldCount
)

// Publisher sends operator-edited config to the device.
type Publisher interface {
	Publish(ctx context.Context, cfg model.DeviceConfig) error
}

// SnapshotMsg delivers a new session snapshot to the model.
type SnapshotMsg model.Snapshot

type publishResultMsg struct {
	cfg model.DeviceConfig
	err error
}

// Model is the bubbletea model of the terminal dashboard.
type Model struct {
	publisher Publisher
	keys      KeyMap

	snap model.Snapshot

	inputs [fieldCount]textinput.Model
	focus  int
	// edited is set once the operator types into an input; echoed config
	// no longer overwrites the fields until the edit is published.
	edited bool

	status    string
	statusErr bool

	width int
}

// New creates the dashboard model.
func New(p Publisher) Model {
	weight := textinput.New()
	weight.Prompt = "BB weight (g): "
	weight.Placeholder = "0.25"
	weight.CharLimit = 8

	distance := textinput.New()
	distance.Prompt = "Sensor distance (mm): "
	distance.Placeholder = "60"
	distance.CharLimit = 6

	m := Model{
		publisher: p,
		keys:      DefaultKeyMap,
		inputs:    [fieldCount]textinput.Model{weight, distance},
		width:     80,
	}
	m.inputs[fieldWeight].Focus()
	return m
}

func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil

	case SnapshotMsg:
		m.snap = model.Snapshot(msg)
		if m.snap.Config != nil && !m.edited {
			m.inputs[fieldWeight].SetValue(strconv.FormatFloat(m.snap.Config.BBWeight, 'f', -1, 64))
			m.inputs[fieldDistance].SetValue(strconv.Itoa(m.snap.Config.DistanceAcross))
			m.inputs[fieldWeight].CursorEnd()
			m.inputs[fieldDistance].CursorEnd()
		}
		return m, nil

	case publishResultMsg:
		if msg.err != nil {
			m.status, m.statusErr = "save failed: "+msg.err.Error(), true
		} else {
			m.status, m.statusErr = fmt.Sprintf("sent %gg / %dmm", msg.cfg.BBWeight, msg.cfg.DistanceAcross), false
			m.edited = false
		}
		return m, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			return m, tea.Quit
		case key.Matches(msg, m.keys.NextField):
			return m, m.setFocus((m.focus + 1) % fieldCount)
		case key.Matches(msg, m.keys.PrevField):
			return m, m.setFocus((m.focus + fieldCount - 1) % fieldCount)
		case key.Matches(msg, m.keys.Save):
			cfg, err := m.parseConfig()
			if err != nil {
				m.status, m.statusErr = err.Error(), true
				return m, nil
			}
			m.status, m.statusErr = "saving...", false
			return m, m.publish(cfg)
		}
		if msg.Type == tea.KeyRunes || msg.Type == tea.KeyBackspace || msg.Type == tea.KeyDelete {
			m.edited = true
		}
	}

	var cmd tea.Cmd
	m.inputs[m.focus], cmd = m.inputs[m.focus].Update(msg)
	return m, cmd
}

func (m *Model) setFocus(i int) tea.Cmd {
	m.inputs[m.focus].Blur()
	m.focus = i
	return m.inputs[m.focus].Focus()
}

func (m Model) parseConfig() (model.DeviceConfig, error) {
	weight, err := strconv.ParseFloat(strings.TrimSpace(m.inputs[fieldWeight].Value()), 64)
	if err != nil || math.IsNaN(weight) || math.IsInf(weight, 0) || weight <= 0 {
		return model.DeviceConfig{}, fmt.Errorf("invalid BB weight %q", m.inputs[fieldWeight].Value())
	}
	distance, err := strconv.Atoi(strings.TrimSpace(m.inputs[fieldDistance].Value()))
	if err != nil || distance <= 0 {
		return model.DeviceConfig{}, fmt.Errorf("invalid sensor distance %q", m.inputs[fieldDistance].Value())
	}
	return model.DeviceConfig{BBWeight: weight, DistanceAcross: distance}, nil
}

func (m Model) publish(cfg model.DeviceConfig) tea.Cmd {
	p := m.publisher
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
		defer cancel()
		return publishResultMsg{cfg: cfg, err: p.Publish(ctx, cfg)}
	}
}

func (m Model) View() string {
	inner := m.width - 4
	if inner < 20 {
		inner = 20
	}

	var sb strings.Builder

	state := m.snap.State.String()
	sb.WriteString(titleStyle.Render("Chronograph") + "  " +
		stateStyles[state].Render(state) + "  " +
		mutedStyle.Render(m.snap.Endpoint) + "\n")

	chart := barStyle.Render(strings.Join(chartRows(m.snap.Window, inner, chartHeight), "\n"))
	sb.WriteString(paneStyle.Width(inner+2).Render(chart) + "\n")

	sb.WriteString(m.readout() + "\n")
	if m.snap.LastDebug != "" {
		sb.WriteString(mutedStyle.Render("debug: "+m.snap.LastDebug) + "\n")
	}

	lines := render.LogLines(m.snap.Log)
	if len(lines) > logLines {
		lines = lines[len(lines)-logLines:]
	}
	if len(lines) == 0 {
		lines = []string{mutedStyle.Render("no shots yet")}
	}
	sb.WriteString(paneStyle.Width(inner+2).Render(strings.Join(lines, "\n")) + "\n")

	sb.WriteString(m.inputs[fieldWeight].View() + "   " + m.inputs[fieldDistance].View() + "\n")

	if m.status != "" {
		style := mutedStyle
		if m.statusErr {
			style = errorStyle
		}
		sb.WriteString(style.Render(m.status) + "\n")
	}
	sb.WriteString(m.helpLine())

	return sb.String()
}

func (m Model) readout() string {
	metric, joules := "-", "-"
	if s := m.snap.LastShot; s != nil {
		metric = strconv.FormatFloat(s.Metric, 'f', 1, 64)
		joules = strconv.FormatFloat(s.Joules, 'f', 2, 64)
	}
	parts := []string{
		valueStyle.Render(metric) + " m/s",
		valueStyle.Render(joules) + " J",
	}
	if b := m.snap.Burst; b != nil {
		parts = append(parts, valueStyle.Render(strconv.FormatFloat(b.RPS, 'f', 1, 64))+" rps")
		if b.AvgMetric != nil {
			parts = append(parts, "avg "+valueStyle.Render(strconv.FormatFloat(*b.AvgMetric, 'f', 1, 64))+" m/s")
		}
	}
	return strings.Join(parts, "   ")
}

func (m Model) helpLine() string {
	var parts []string
	for _, b := range m.keys.help() {
		h := b.Help()
		parts = append(parts, h.Key+" "+h.Desc)
	}
	return mutedStyle.Render(strings.Join(parts, " • "))
}

// Renderer forwards session snapshots to a running program. Snapshots that
// arrive before SetProgram are dropped.
type Renderer struct {
	program atomic.Pointer[tea.Program]
}

// SetProgram sets the program receiving snapshots.
func (r *Renderer) SetProgram(p *tea.Program) {
	r.program.Store(p)
}

// Render implements session.Renderer.
func (r *Renderer) Render(s model.Snapshot) {
	if p := r.program.Load(); p != nil {
		p.Send(SnapshotMsg(s))
	}
}
