package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/roach88/nback/internal/config"
	"github.com/roach88/nback/internal/engine"
	"github.com/roach88/nback/internal/ir"
	"github.com/roach88/nback/internal/metrics"
	"github.com/roach88/nback/internal/session"
	"github.com/roach88/nback/internal/store"
)

// PlayOptions holds flags for the play command.
type PlayOptions struct {
	*RootOptions
	ConfigPath  string
	EnvFiles    []string
	Database    string
	MetricsAddr string
	Ticks       int // stop after this many ticks; 0 plays until quit

	// Ticker allows overriding the wall-clock ticker (for testing).
	// If nil, defaults to session.NewTimeTicker.
	Ticker session.TickerFunc

	// IDGenerator allows overriding the session id source (for testing).
	// If nil, defaults to UUIDv7Generator.
	IDGenerator engine.SessionIDGenerator
}

// PlaySummary is the outcome of a play session.
type PlaySummary struct {
	SessionID string       `json:"session_id"`
	Seed      int64        `json:"seed"`
	N         int          `json:"n"`
	Ticks     int64        `json:"ticks"`
	Stats     engine.Stats `json:"stats"`
	Database  string       `json:"database,omitempty"`
}

// NewPlayCommand creates the play command.
func NewPlayCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &PlayOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "play",
		Short: "Play an interactive dual n-back session",
		Long: `Play a dual n-back session in the terminal.

A new stimulus is shown every interval. Type a line to respond:
  s  claim a sound match
  p  claim a position match
  r  reset (new session, zeroed stats)
  q  quit

End of input also quits, unless --ticks is set, in which case the session
runs until that many ticks were shown. With --db every tick and claim is
journaled to SQLite; with --metrics-addr Prometheus metrics are served on
/metrics.

Examples:
  nback play
  nback play --config nback.yaml --db ./nback.db
  nback play --metrics-addr :9090 --verbose`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPlay(opts, cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.ConfigPath, "config", "c", "", "path to YAML config file")
	cmd.Flags().StringSliceVar(&opts.EnvFiles, "env-file", []string{".env"}, ".env files with NBACK_* overrides")
	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite journal (overrides config)")
	cmd.Flags().StringVar(&opts.MetricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address")
	cmd.Flags().IntVar(&opts.Ticks, "ticks", 0, "stop after this many ticks (0 = until quit)")

	return cmd
}

func runPlay(opts *PlayOptions, cmd *cobra.Command) error {
	logger := newLogger(cmd.ErrOrStderr(), opts.Verbose)

	cfg, err := config.Resolve(opts.ConfigPath, opts.EnvFiles...)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load config", err)
	}
	if opts.Database != "" {
		cfg.Database = opts.Database
	}
	policy, err := cfg.Policy()
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid config", err)
	}

	// Setup signal handling for graceful shutdown
	// Use command's context if available (for testing), otherwise create one
	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, cancel := context.WithCancel(parentCtx)
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	go func() {
		select {
		case sig := <-sigChan:
			logger.Info("received signal, shutting down", "signal", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	var (
		observers []engine.Observer
		rec       *store.Recorder
		st        *store.Store
	)

	if cfg.Database != "" {
		logger.Info("opening journal", "path", cfg.Database)
		st, err = store.Open(cfg.Database)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to open database", err)
		}
		defer func() {
			if closeErr := st.Close(); closeErr != nil {
				logger.Error("error closing database", "error", closeErr)
			}
		}()
		// Journal writes must outlive a cancelled session so the final
		// drained claims are still recorded.
		rec = store.NewRecorder(context.WithoutCancel(ctx), st)
		observers = append(observers, rec)
	}

	if opts.MetricsAddr != "" {
		reg := prometheus.NewRegistry()
		observers = append(observers, metrics.NewCollector(reg, policy))
		srv := serveMetrics(opts.MetricsAddr, reg, logger)
		defer func() {
			shutdownCtx, done := context.WithTimeout(context.Background(), 5*time.Second)
			defer done()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	quiet := opts.Format == "json"
	out := cmd.OutOrStdout()
	finished := make(chan struct{})
	var finishOnce sync.Once

	sessOpts := []session.Option{
		session.WithLogger(logger),
		session.WithObserver(observers...),
		session.OnTick(func(ev session.TickEvent) {
			if !quiet {
				fmt.Fprintf(out, "tick %d: sound=%d position=%d\n", ev.Index, ev.Stimulus.Sound, ev.Stimulus.Position)
			}
			if opts.Ticks > 0 && ev.Index+1 >= int64(opts.Ticks) {
				finishOnce.Do(func() { close(finished) })
			}
		}),
		session.OnClaim(func(ev session.ClaimEvent) {
			if !quiet {
				fmt.Fprintf(out, "  %s: %s\n", ev.Channel, ev.Result)
			}
		}),
	}
	if st != nil {
		sessOpts = append(sessOpts, session.OnReset(func(next ir.Session) error {
			return st.WriteSession(context.WithoutCancel(ctx), next)
		}))
	}
	if opts.Ticker != nil {
		sessOpts = append(sessOpts, session.WithTicker(opts.Ticker))
	}
	if opts.IDGenerator != nil {
		sessOpts = append(sessOpts, session.WithIDGenerator(opts.IDGenerator))
	}

	sess, err := session.New(cfg, sessOpts...)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to create session", err)
	}

	if !quiet {
		fmt.Fprintf(out, "%d-back, every %s. Type s (sound), p (position), r (reset), q (quit).\n",
			cfg.N, cfg.Interval)
	}

	lines := readLines(ctx, cmd.InOrStdin())
	sess.Start(ctx)

loop:
	for {
		select {
		case <-ctx.Done():
			break loop
		case <-finished:
			break loop
		case line, ok := <-lines:
			if !ok {
				lines = nil
				if opts.Ticks == 0 {
					break loop
				}
				continue
			}
			switch line {
			case "s":
				sess.ClaimSound()
			case "p":
				sess.ClaimPosition()
			case "r":
				if err := sess.Reset(); err != nil {
					return WrapExitError(ExitFailure, "reset failed", err)
				}
				sess.Start(ctx)
			case "q":
				break loop
			case "":
			default:
				fmt.Fprintf(cmd.ErrOrStderr(), "unknown input %q (s, p, r, q)\n", line)
			}
		}
	}
	sess.Stop()

	if rec != nil {
		if err := rec.Err(); err != nil {
			return WrapExitError(ExitFailure, "journal write failed", err)
		}
	}

	record := sess.Record()
	summary := PlaySummary{
		SessionID: record.ID,
		Seed:      record.Seed,
		N:         record.N,
		Ticks:     sess.Ticks(),
		Stats:     sess.Stats(),
		Database:  cfg.Database,
	}
	logger.Info("session finished", "session", summary.SessionID, "ticks", summary.Ticks)

	if quiet {
		return writeResponse(out, CLIResponse{Status: "ok", Data: summary})
	}
	fmt.Fprintf(out, "\nSession %s: %d ticks\n", summary.SessionID, summary.Ticks)
	writeStatsText(out, summary.Stats)
	return nil
}

// readLines forwards trimmed input lines until EOF or ctx is done.
func readLines(ctx context.Context, r io.Reader) <-chan string {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(r)
		for scanner.Scan() {
			select {
			case lines <- strings.ToLower(strings.TrimSpace(scanner.Text())):
			case <-ctx.Done():
				return
			}
		}
	}()
	return lines
}

// serveMetrics starts a /metrics endpoint in the background.
func serveMetrics(addr string, g prometheus.Gatherer, logger *slog.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler(g))
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		logger.Info("serving metrics", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server failed", "error", err)
		}
	}()
	return srv
}

// writeStatsText prints both channels' counters.
func writeStatsText(w io.Writer, stats engine.Stats) {
	for _, c := range engine.Channels {
		cs := stats.Of(c)
		fmt.Fprintf(w, "  %-9s hits=%d strikes=%d misses=%d opportunities=%d\n",
			c.String()+":", cs.Hits, cs.Strikes, cs.Opportunities-cs.Hits, cs.Opportunities)
	}
}
