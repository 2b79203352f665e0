package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/aNThiCu/AirsoftChronograph/internal/config"
	"github.com/aNThiCu/AirsoftChronograph/internal/devicesim"
	"github.com/aNThiCu/AirsoftChronograph/internal/hub"
	"github.com/aNThiCu/AirsoftChronograph/internal/model"
	"github.com/aNThiCu/AirsoftChronograph/internal/render"
	"github.com/aNThiCu/AirsoftChronograph/internal/session"
	"github.com/aNThiCu/AirsoftChronograph/internal/transport"
	"github.com/aNThiCu/AirsoftChronograph/internal/tui"
	"github.com/aNThiCu/AirsoftChronograph/internal/websocket"
	"github.com/aNThiCu/AirsoftChronograph/pkg/logger"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

type rootOptions struct {
	configPath string
	endpoint   string
	variant    string
	logLevel   string
	logFile    string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:           "chronoview",
		Short:         "Live display and control for the airsoft chronograph",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	flags := root.PersistentFlags()
	flags.StringVar(&opts.configPath, "config", "", "config file (default $"+config.EnvVar+")")
	flags.StringVar(&opts.endpoint, "endpoint", "", "device endpoint, ws://, wss:// or tcp://")
	flags.StringVar(&opts.variant, "variant", "", "device variant, push or poll")
	flags.StringVar(&opts.logLevel, "log-level", "", "log level: debug, info, warn, error")
	flags.StringVar(&opts.logFile, "log-file", "", "write logs to this file")

	root.AddCommand(newRunCmd(opts))
	root.AddCommand(newTUICmd(opts))
	root.AddCommand(newSimulateCmd(opts))
	return root
}

// loadConfig reads the config file and applies flag overrides on top.
func loadConfig(opts *rootOptions) (*config.Config, error) {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return nil, err
	}
	if opts.endpoint != "" {
		cfg.Device.Endpoint = opts.endpoint
	}
	if opts.variant != "" {
		cfg.Device.Variant = session.Variant(opts.variant)
	}
	if opts.logLevel != "" {
		cfg.Log.Level = opts.logLevel
	}
	if opts.logFile != "" {
		cfg.Log.File = opts.logFile
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newManager(cfg *config.Config, log *slog.Logger, renderers ...session.Renderer) *session.Manager {
	dialer := transport.NewDialer(transport.Options{
		Keepalive: time.Duration(cfg.Device.Keepalive),
	})
	opts := []session.Option{
		session.WithLogger(log),
		session.WithVariant(cfg.Device.Variant),
		session.WithReconnectDelay(time.Duration(cfg.Device.ReconnectDelay)),
		session.WithPolling(time.Duration(cfg.Device.PollInterval), cfg.Device.PollLimit),
	}
	for _, r := range renderers {
		opts = append(opts, session.WithRenderer(r))
	}
	return session.NewManager(cfg.Device.Endpoint, dialer, opts...)
}

// signalContext returns a context cancelled on SIGINT or SIGTERM.
func signalContext(log *slog.Logger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		select {
		case <-sigChan:
			log.Info("shutting down")
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(sigChan)
	}()
	return ctx, cancel
}

func newRunCmd(opts *rootOptions) *cobra.Command {
	var listen string

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Connect to the device and serve the web dashboard",
		RunE: func(_ *cobra.Command, _ []string) error {
			cfg, err := loadConfig(opts)
			if err != nil {
				return err
			}
			if listen != "" {
				cfg.Dashboard.Listen = listen
			}

			log, closeLog, err := logger.Open(cfg.Log.File, cfg.Log.Level)
			if err != nil {
				return err
			}
			defer closeLog()

			log.Info("starting chronoview", "endpoint", cfg.Device.Endpoint, "variant", cfg.Device.Variant)

			h := hub.NewHub(render.Viewport{Width: cfg.Chart.Width, Height: cfg.Chart.Height}, log)
			go h.Run()
			defer h.Stop()

			mgr := newManager(cfg, log, h)

			if cfg.Dashboard.Listen != "" {
				server := websocket.NewServer(cfg.Dashboard.Listen, h, mgr, log)
				if err := server.Start(); err != nil {
					return fmt.Errorf("failed to start dashboard: %w", err)
				}
				defer server.Stop()
				log.Info("dashboard ready", "url", "http://"+server.Addr()+"/")
			}

			ctx, cancel := signalContext(log)
			defer cancel()
			return mgr.Run(ctx)
		},
	}
	cmd.Flags().StringVar(&listen, "listen", "", "dashboard listen address, overrides dashboard.listen")
	return cmd
}

func newTUICmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "tui",
		Short: "Connect to the device and show the terminal dashboard",
		RunE: func(_ *cobra.Command, _ []string) error {
			cfg, err := loadConfig(opts)
			if err != nil {
				return err
			}

			// The terminal belongs to the UI; logs only go to a file.
			log := logger.Discard()
			if cfg.Log.File != "" {
				l, closeLog, err := logger.Open(cfg.Log.File, cfg.Log.Level)
				if err != nil {
					return err
				}
				defer closeLog()
				log = l
			}

			renderer := &tui.Renderer{}
			mgr := newManager(cfg, log, renderer)
			program := tea.NewProgram(tui.New(mgr), tea.WithAltScreen())
			renderer.SetProgram(program)

			ctx, cancel := signalContext(log)
			defer cancel()

			done := make(chan error, 1)
			go func() {
				done <- mgr.Run(ctx)
				program.Quit()
			}()

			_, err = program.Run()
			cancel()
			if runErr := <-done; err == nil {
				err = runErr
			}
			return err
		},
	}
}

func newSimulateCmd(opts *rootOptions) *cobra.Command {
	var (
		wsAddr, tcpAddr string
		interval        time.Duration
		burstEvery      int
		speed, spread   float64
		weight          float64
		distance        int
	)

	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Run a simulated chronograph for testing without hardware",
		RunE: func(_ *cobra.Command, _ []string) error {
			level := opts.logLevel
			if level == "" {
				level = "info"
			}
			log, closeLog, err := logger.Open(opts.logFile, level)
			if err != nil {
				return err
			}
			defer closeLog()

			device := devicesim.New(devicesim.Options{
				Config:     model.DeviceConfig{BBWeight: weight, DistanceAcross: distance},
				Interval:   interval,
				BurstEvery: burstEvery,
				MeanSpeed:  speed,
				Spread:     spread,
				Seed:       time.Now().UnixNano(),
				Logger:     log,
			})
			server := devicesim.NewServer(device)
			if err := server.Start(wsAddr, tcpAddr); err != nil {
				return err
			}
			log.Info("simulator ready", "ws", server.WebSocketURL(), "tcp", server.TCPURL())

			ctx, cancel := signalContext(log)
			defer cancel()
			<-ctx.Done()
			return server.Stop()
		},
	}

	f := cmd.Flags()
	f.StringVar(&wsAddr, "ws", "127.0.0.1:8081", "WebSocket listen address, empty to disable")
	f.StringVar(&tcpAddr, "tcp", "127.0.0.1:3333", "TCP listen address, empty to disable")
	f.DurationVar(&interval, "interval", time.Second, "time between pushed shots, 0 to only answer polls")
	f.IntVar(&burstEvery, "burst", 5, "send a burst summary every n shots, 0 to disable")
	f.Float64Var(&speed, "speed", 95, "mean speed in m/s")
	f.Float64Var(&spread, "spread", 3, "speed standard deviation in m/s")
	f.Float64Var(&weight, "weight", 0.25, "initial BB weight in grams")
	f.IntVar(&distance, "distance", 60, "initial sensor distance in mm")
	return cmd
}
