package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/airwire/airwire/internal/config"
	"github.com/airwire/airwire/internal/console"
	"github.com/airwire/airwire/internal/link"
	"github.com/airwire/airwire/internal/link/nrf24"
	"github.com/airwire/airwire/internal/link/serial"
	"github.com/airwire/airwire/internal/link/udp"
	"github.com/airwire/airwire/internal/link/ws"
	"github.com/airwire/airwire/internal/node"
	"github.com/airwire/airwire/internal/store"
	"github.com/airwire/airwire/internal/tui"
)

// ---------------------------------------------------------------------------
// runCmd (alias: start)
// ---------------------------------------------------------------------------

func runCmd() *cobra.Command {
	var (
		linkFlag string
		useTUI   bool
	)

	cmd := &cobra.Command{
		Use:     "run",
		Aliases: []string{"start"},
		Short:   "Run the streaming node",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := dataDir()
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return fmt.Errorf("creating data dir: %w", err)
			}

			cfg, err := config.Load(dir)
			if err != nil {
				return err
			}
			if linkFlag != "" {
				cfg.Link.Kind = linkFlag
				if err := cfg.Validate(); err != nil {
					return err
				}
			}

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			lnk, err := buildLink(ctx, cfg)
			if err != nil {
				return err
			}
			defer lnk.Close()

			var hist store.Store
			if cfg.Store.Enabled {
				s, err := store.NewSQLiteStore(cfg.StorePath(dir), time.Duration(cfg.Store.RetentionDays)*24*time.Hour)
				if err != nil {
					return fmt.Errorf("opening history store: %w", err)
				}
				defer s.Close()
				hist = s
			}

			if useTUI {
				return runTUI(ctx, cfg, lnk, hist)
			}
			return runTerminal(ctx, cfg, lnk, hist)
		},
	}

	cmd.Flags().StringVar(&linkFlag, "link", "", "Link kind override: memory, udp, ws, nrf24, serial")
	cmd.Flags().BoolVar(&useTUI, "tui", false, "Run with the live dashboard instead of the plain console")

	return cmd
}

func nodeOptions(cfg *config.Config, lnk link.Link, con console.Console, hist store.Store, logger *slog.Logger) node.Options {
	return node.Options{
		Link:             lnk,
		Console:          con,
		Store:            hist,
		Logger:           logger,
		FrameLen:         cfg.Stream.FrameLen,
		BurstLen:         cfg.Stream.BurstLen,
		FailureThreshold: cfg.Stream.FailureThreshold,
		Pacing:           cfg.Stream.Pacing(),
		PollTimeout:      cfg.Stream.PollTimeout(),
		NodeName:         cfg.NodeName,
		LinkKind:         cfg.Link.Kind,
	}
}

// runTerminal drives the node against the interactive terminal console.
func runTerminal(ctx context.Context, cfg *config.Config, lnk link.Link, hist store.Store) error {
	term, err := console.Open()
	if err != nil {
		return fmt.Errorf("opening console: %w", err)
	}
	defer term.Close()

	logger := slog.Default()
	if debugFlag {
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}

	n := node.New(nodeOptions(cfg, lnk, term, hist, logger))
	return n.Run(ctx)
}

// runTUI drives the node behind the dashboard. The node loop runs in its own
// goroutine; the channel console carries keys in and display lines out.
func runTUI(ctx context.Context, cfg *config.Config, lnk link.Link, hist store.Store) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	ch := console.NewChannel()
	// Log lines would tear the alternate screen, so the dashboard run is quiet.
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	n := node.New(nodeOptions(cfg, lnk, ch, hist, logger))
	id, events := n.Events().Subscribe(64)

	done := make(chan error, 1)
	go func() {
		err := n.Run(ctx)
		n.Events().Unsubscribe(id) // closes the feed; the dashboard exits on it
		done <- err
	}()

	m := tui.New(tui.Options{
		Console:  ch,
		Events:   events,
		Metrics:  n.Metrics(),
		NodeName: cfg.NodeName,
		LinkKind: cfg.Link.Kind,
	})
	uiErr := tui.Run(ctx, m)
	cancel()
	nodeErr := <-done
	if uiErr != nil {
		return fmt.Errorf("running dashboard: %w", uiErr)
	}
	return nodeErr
}

// buildLink constructs the configured link transport. The memory kind wires a
// self-contained pair with a drain goroutine on the far end, so a single
// process can exercise the full loop without hardware.
func buildLink(ctx context.Context, cfg *config.Config) (link.Link, error) {
	switch cfg.Link.Kind {
	case config.LinkMemory:
		near, far := link.NewMemoryPair(0)
		far.EnterReceiveMode()
		go drainPeer(ctx, far, cfg.Stream.FrameLen)
		return near, nil

	case config.LinkUDP:
		l, err := udp.New(cfg.Link.UDP.Listen, cfg.Link.UDP.Peer)
		if err != nil {
			return nil, fmt.Errorf("opening udp link: %w", err)
		}
		return l, nil

	case config.LinkWS:
		if cfg.Link.WS.URL != "" {
			l, err := ws.Dial(cfg.Link.WS.URL)
			if err != nil {
				return nil, fmt.Errorf("dialing ws link: %w", err)
			}
			return l, nil
		}
		l, err := ws.Listen(cfg.Link.WS.Listen)
		if err != nil {
			return nil, fmt.Errorf("listening on ws link: %w", err)
		}
		return l, nil

	case config.LinkSerial:
		l, err := serial.Open(cfg.Link.Serial.Port, cfg.Link.Serial.Baud)
		if err != nil {
			return nil, fmt.Errorf("opening serial link: %w", err)
		}
		return l, nil

	case config.LinkNRF24:
		p, err := resolveProfile(cfg)
		if err != nil {
			return nil, err
		}
		l, err := nrf24.Open(nrf24.Options{
			SPIPort:     cfg.Link.NRF24.SPIPort,
			CEPin:       cfg.Link.NRF24.CEPin,
			Channel:     p.Channel,
			LocalAddr:   p.LocalAddr,
			PeerAddr:    p.PeerAddr,
			PayloadSize: cfg.Stream.FrameLen,
			DataRate:    cfg.Link.NRF24.DataRate,
			PALevel:     cfg.Link.NRF24.PALevel,
		})
		if err != nil {
			return nil, fmt.Errorf("opening radio: %w", err)
		}
		return l, nil
	}

	return nil, fmt.Errorf("unknown link kind %q", cfg.Link.Kind)
}

// drainPeer keeps the far end of the demo pair listening and empty.
func drainPeer(ctx context.Context, end *link.MemoryEnd, frameLen int) {
	buf := make([]byte, frameLen)
	t := time.NewTicker(10 * time.Millisecond)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			end.Close()
			return
		case <-t.C:
			for end.InboundAvailable() {
				if end.Receive(buf) != nil {
					return
				}
			}
		}
	}
}
