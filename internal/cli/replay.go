package cli

import (
	"context"
	"fmt"
	"reflect"

	"github.com/spf13/cobra"

	"github.com/roach88/nback/internal/store"
)

// ReplayOptions holds flags for the replay command.
type ReplayOptions struct {
	*RootOptions
	Database  string
	SessionID string // optional - specific session only
}

// ReplaySessionResult holds the replay result for a single session.
type ReplaySessionResult struct {
	store.ReplayReport
	Deterministic bool `json:"deterministic"`
}

// Verified reports whether the session replayed cleanly.
func (r ReplaySessionResult) Verified() bool {
	return r.Consistent && r.Deterministic
}

// ReplayResult holds the overall replay result.
type ReplayResult struct {
	Sessions      []ReplaySessionResult `json:"sessions"`
	TotalSessions int                   `json:"total_sessions"`
	AllVerified   bool                  `json:"all_verified"`
}

// NewReplayCommand creates the replay command.
func NewReplayCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ReplayOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "replay",
		Short: "Re-verify journaled sessions",
		Long: `Re-verify journaled sessions against a reference evaluation.

Every session is replayed twice from the journal. Each replay recomputes the
match flags from the complete tick list, re-judges every claim and compares
the counters with those derived by SQL. A session verifies when both
replays are consistent with the journal and identical to each other.

Exit codes:
  0 - All sessions verified
  1 - Verification failed (mismatches detected)
  2 - Command error (database not found, etc.)

Examples:
  nback replay --db ./nback.db
  nback replay --db ./nback.db --session 0192e4c1-...
  nback replay --db ./nback.db --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReplay(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.SessionID, "session", "", "replay specific session only")

	return cmd
}

func runReplay(opts *ReplayOptions, cmd *cobra.Command) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	st, err := store.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	var ids []string
	if opts.SessionID != "" {
		ids = []string{opts.SessionID}
	} else {
		ids, err = st.ListSessions(ctx)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to list sessions", err)
		}
	}

	result := ReplayResult{
		Sessions:      make([]ReplaySessionResult, 0, len(ids)),
		TotalSessions: len(ids),
		AllVerified:   true,
	}

	for _, id := range ids {
		sessResult, err := replayAndVerifySession(ctx, st, id)
		if err != nil {
			return WrapExitError(ExitCommandError, fmt.Sprintf("failed to replay session %s", id), err)
		}

		result.Sessions = append(result.Sessions, sessResult)
		if !sessResult.Verified() {
			result.AllVerified = false
		}
	}

	if opts.Format == "json" {
		return outputReplayJSON(cmd, result)
	}
	return outputReplayText(cmd, result, opts.Verbose)
}

// replayAndVerifySession replays a single session twice.
func replayAndVerifySession(ctx context.Context, st *store.Store, id string) (ReplaySessionResult, error) {
	first, err := st.Replay(ctx, id)
	if err != nil {
		return ReplaySessionResult{}, fmt.Errorf("first replay failed: %w", err)
	}
	second, err := st.Replay(ctx, id)
	if err != nil {
		return ReplaySessionResult{}, fmt.Errorf("second replay failed: %w", err)
	}

	return ReplaySessionResult{
		ReplayReport:  first,
		Deterministic: reflect.DeepEqual(first, second),
	}, nil
}

// outputReplayJSON outputs the replay result as JSON.
func outputReplayJSON(cmd *cobra.Command, result ReplayResult) error {
	response := CLIResponse{Status: "ok", Data: result}

	if !result.AllVerified {
		response.Status = "error"
		response.Error = &CLIError{
			Code:    "E_REPLAY",
			Message: "journal verification failed",
		}
	}

	if err := writeResponse(cmd.OutOrStdout(), response); err != nil {
		return err
	}

	if !result.AllVerified {
		return NewExitError(ExitFailure, "journal verification failed")
	}
	return nil
}

// outputReplayText outputs the replay result as text.
func outputReplayText(cmd *cobra.Command, result ReplayResult, verbose bool) error {
	w := cmd.OutOrStdout()

	if result.TotalSessions == 0 {
		fmt.Fprintln(w, "No sessions found in database.")
		return nil
	}

	fmt.Fprintf(w, "Replay Summary: %d session(s)\n", result.TotalSessions)
	fmt.Fprintln(w)

	for _, sess := range result.Sessions {
		status := "\u2713"
		if !sess.Verified() {
			status = "\u2717"
		}

		fmt.Fprintf(w, "%s Session: %s\n", status, sess.SessionID)
		fmt.Fprintf(w, "  Events: %d ticks, %d claims\n", sess.Ticks, sess.Claims)
		if verbose {
			writeStatsText(w, sess.Stats)
		}

		for _, m := range sess.Mismatches {
			fmt.Fprintf(w, "  Mismatch: %s\n", m)
		}
		if !sess.Deterministic {
			fmt.Fprintln(w, "  Warning: Non-deterministic replay detected!")
		}
		fmt.Fprintln(w)
	}

	if result.AllVerified {
		fmt.Fprintln(w, "\u2713 All sessions verified")
		return nil
	}

	fmt.Fprintln(w, "\u2717 Journal verification failed")
	return NewExitError(ExitFailure, "journal verification failed")
}
