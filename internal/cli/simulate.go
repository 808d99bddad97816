package cli

import (
	"context"
	"fmt"
	"math/rand/v2"

	"github.com/spf13/cobra"

	"github.com/roach88/nback/internal/config"
	"github.com/roach88/nback/internal/engine"
	"github.com/roach88/nback/internal/session"
	"github.com/roach88/nback/internal/store"
)

// SimulateOptions holds flags for the simulate command.
type SimulateOptions struct {
	*RootOptions
	ConfigPath string
	EnvFiles   []string
	Database   string
	Ticks      int
	Accuracy   float64
	Player     string // "oracle" | "nop"
	Seed       int64

	// IDGenerator allows overriding the session id source (for testing).
	// If nil, defaults to UUIDv7Generator.
	IDGenerator engine.SessionIDGenerator
}

// SimulateResult is the outcome of a simulated session.
type SimulateResult struct {
	SessionID string              `json:"session_id"`
	Seed      int64               `json:"seed"`
	N         int                 `json:"n"`
	Policy    string              `json:"policy"`
	Player    string              `json:"player"`
	Accuracy  float64             `json:"accuracy"`
	Ticks     int64               `json:"ticks"`
	Stats     engine.Stats        `json:"stats"`
	Replay    *store.ReplayReport `json:"replay,omitempty"`
}

// NewSimulateCommand creates the simulate command.
func NewSimulateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SimulateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Run a session with a simulated player",
		Long: `Run a session without a wall clock, driven by a simulated player.

The oracle player knows the true matches and answers each channel correctly
with probability --accuracy. The nop player never claims. With --db the
session is journaled and then re-verified by replay.

Exit codes:
  0 - Simulation finished (and the journal verified)
  1 - Journal verification failed
  2 - Command error (bad config, database not found, etc.)

Examples:
  nback simulate --ticks 200 --accuracy 0.8
  nback simulate --seed 42 --db ./nback.db --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSimulate(opts, cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.ConfigPath, "config", "c", "", "path to YAML config file")
	cmd.Flags().StringSliceVar(&opts.EnvFiles, "env-file", []string{".env"}, ".env files with NBACK_* overrides")
	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite journal (overrides config)")
	cmd.Flags().IntVar(&opts.Ticks, "ticks", 100, "number of ticks to simulate")
	cmd.Flags().Float64Var(&opts.Accuracy, "accuracy", 0.9, "oracle player accuracy in [0, 1]")
	cmd.Flags().StringVar(&opts.Player, "player", "oracle", "simulated player (oracle|nop)")
	cmd.Flags().Int64Var(&opts.Seed, "seed", 0, "stimulus seed (overrides config; 0 = random)")

	return cmd
}

func runSimulate(opts *SimulateOptions, cmd *cobra.Command) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	logger := newLogger(cmd.ErrOrStderr(), opts.Verbose)

	if opts.Ticks < 0 {
		return NewExitError(ExitCommandError, fmt.Sprintf("--ticks must be >= 0, got %d", opts.Ticks))
	}

	cfg, err := config.Resolve(opts.ConfigPath, opts.EnvFiles...)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load config", err)
	}
	if opts.Database != "" {
		cfg.Database = opts.Database
	}
	if opts.Seed != 0 {
		cfg.Seed = opts.Seed
	}
	for cfg.Seed == 0 {
		cfg.Seed = rand.Int64()
	}
	policy, err := cfg.Policy()
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid config", err)
	}

	var player session.Player
	switch opts.Player {
	case "oracle":
		player = session.NewOraclePlayer(cfg.N, opts.Accuracy, uint64(cfg.Seed))
	case "nop":
		player = session.NopPlayer{}
	default:
		return NewExitError(ExitCommandError, fmt.Sprintf("unknown player %q (want oracle or nop)", opts.Player))
	}

	ids := opts.IDGenerator
	if ids == nil {
		ids = engine.UUIDv7Generator{}
	}

	engOpts := []engine.Option{
		engine.WithSeed(uint64(cfg.Seed)),
		engine.WithOpportunityPolicy(policy),
		engine.WithSessionID(ids.Generate()),
		engine.WithLogger(logger),
	}

	var (
		st  *store.Store
		rec *store.Recorder
	)
	if cfg.Database != "" {
		st, err = store.Open(cfg.Database)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to open database", err)
		}
		defer st.Close()
		rec = store.NewRecorder(ctx, st)
		engOpts = append(engOpts, engine.WithObserver(rec))
	}

	eng, err := engine.New(cfg.EngineConfig(), engOpts...)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid config", err)
	}

	result := SimulateResult{
		SessionID: eng.SessionID(),
		Seed:      cfg.Seed,
		N:         cfg.N,
		Policy:    policy.String(),
		Player:    opts.Player,
		Accuracy:  opts.Accuracy,
	}

	if st != nil {
		if err := st.WriteSession(ctx, eng.Session(cfg.Seed)); err != nil {
			return WrapExitError(ExitCommandError, "failed to write session", err)
		}
	}

	result.Stats = session.Simulate(eng, opts.Ticks, player)
	result.Ticks = eng.Ticks()
	logger.Debug("simulation finished", "session", result.SessionID, "ticks", result.Ticks)

	verified := true
	if st != nil {
		if err := rec.Err(); err != nil {
			return WrapExitError(ExitFailure, "journal write failed", err)
		}
		report, err := st.Replay(ctx, result.SessionID)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to replay session", err)
		}
		result.Replay = &report
		verified = report.Consistent
	}

	if opts.Format == "json" {
		response := CLIResponse{Status: "ok", Data: result}
		if !verified {
			response.Status = "error"
			response.Error = &CLIError{Code: "E_REPLAY", Message: "journal verification failed"}
		}
		if err := writeResponse(cmd.OutOrStdout(), response); err != nil {
			return err
		}
	} else {
		outputSimulateText(cmd, result)
	}

	if !verified {
		return NewExitError(ExitFailure, "journal verification failed")
	}
	return nil
}

// outputSimulateText outputs the simulation result as text.
func outputSimulateText(cmd *cobra.Command, result SimulateResult) {
	w := cmd.OutOrStdout()

	fmt.Fprintf(w, "Session %s: %d-back, %d ticks, seed %d\n", result.SessionID, result.N, result.Ticks, result.Seed)
	fmt.Fprintf(w, "Player: %s (accuracy %.2f), opportunities on %s\n", result.Player, result.Accuracy, result.Policy)
	writeStatsText(w, result.Stats)

	if result.Replay == nil {
		return
	}
	if result.Replay.Consistent {
		fmt.Fprintln(w, "\u2713 Journal verified")
		return
	}
	fmt.Fprintln(w, "\u2717 Journal verification failed")
	for _, m := range result.Replay.Mismatches {
		fmt.Fprintf(w, "  Mismatch: %s\n", m)
	}
}
