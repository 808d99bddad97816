package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/roach88/nback/internal/engine"
	"github.com/roach88/nback/internal/store"
)

// Harness executes one scenario against a real engine.
// Every record the engine emits is journaled to the harness store and
// appended to the result trace.
type Harness struct {
	store  *store.Store
	engine *engine.Engine
	logger *slog.Logger
}

// Run executes a test scenario and returns the result.
//
// Each scenario runs in a fresh in-memory journal for isolation. The logical
// clock starts at zero, so seq values and the trace are reproducible.
//
// Execution flow:
// 1. Create fresh in-memory journal and write the session record
// 2. Build the engine with a scripted or seeded stimulus source
// 3. Execute flow steps, checking expect clauses
// 4. Replay the journal and report any inconsistency
// 5. Evaluate assertions
//
// A non-nil error means the scenario could not be executed at all; failed
// expectations are reported in Result.Errors.
func Run(scenario *Scenario) (*Result, error) {
	return RunContext(context.Background(), scenario)
}

// RunContext is Run with a caller-supplied context for journal writes.
func RunContext(ctx context.Context, scenario *Scenario) (*Result, error) {
	st, err := store.Open(store.MemoryPath)
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	policy, err := scenario.Config.Policy()
	if err != nil {
		return nil, err
	}

	sessionID := scenario.SessionID
	if sessionID == "" {
		sessionID = DefaultSessionID
	}

	var (
		source engine.Source
		seed   int64
	)
	if len(scenario.Stimuli) > 0 {
		source = engine.NewScriptedSource(scenario.Stimuli...)
	} else {
		seed = scenario.Seed
		source = engine.NewRandomSource(uint64(seed))
	}

	result := NewResult()
	result.SessionID = sessionID
	rec := store.NewRecorder(ctx, st)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil)) // Suppress logs in tests

	eng, err := engine.New(scenario.Config.EngineConfig(),
		engine.WithSource(source),
		engine.WithOpportunityPolicy(policy),
		engine.WithSessionID(sessionID),
		engine.WithObserver(rec, traceObserver{result: result}),
		engine.WithLogger(logger),
	)
	if err != nil {
		return nil, err
	}

	if err := st.WriteSession(ctx, eng.Session(seed)); err != nil {
		return nil, fmt.Errorf("failed to write session: %w", err)
	}

	h := &Harness{store: st, engine: eng, logger: logger}
	h.executeFlow(scenario.Flow, result)

	if err := rec.Err(); err != nil {
		return nil, fmt.Errorf("failed to journal flow: %w", err)
	}
	result.Stats = eng.Stats()

	if err := h.checkReplay(ctx, sessionID, result); err != nil {
		return nil, err
	}

	actx := &AssertionContext{
		Store: st,
		Ctx:   ctx,
	}
	for _, errMsg := range EvaluateAssertions(result, scenario.Assertions, actx) {
		result.AddError(errMsg)
	}

	return result, nil
}

// executeFlow runs all flow steps and validates expect clauses.
func (h *Harness) executeFlow(flow []FlowStep, result *Result) {
	for i, step := range flow {
		switch step.Invoke {
		case StepTick:
			s := h.engine.Tick()
			h.checkTick(i, step.Expect, s, result)
			h.logger.Info("flow step completed", "step", i, "invoke", step.Invoke,
				"sound", s.Sound, "position", s.Position)

		case StepClaim:
			c, err := engine.ParseChannel(step.Channel)
			if err != nil {
				result.AddError(fmt.Sprintf("flow[%d]: %v", i, err))
				continue
			}
			got := h.engine.Claim(c)
			if step.Expect != nil && step.Expect.Result != "" && step.Expect.Result != got.String() {
				result.AddError(fmt.Sprintf("flow[%d]: claim %s: expected %s, got %s",
					i, c, step.Expect.Result, got))
			}
			h.logger.Info("flow step completed", "step", i, "invoke", step.Invoke,
				"channel", c.String(), "result", got.String())

		default:
			result.AddError(fmt.Sprintf("flow[%d]: unknown step %q", i, step.Invoke))
		}
	}
}

// checkTick compares a generated stimulus against the step's expect clause.
func (h *Harness) checkTick(index int, expect *ExpectClause, s engine.Stimulus, result *Result) {
	if expect == nil {
		return
	}
	if expect.Sound != nil && *expect.Sound != s.Sound {
		result.AddError(fmt.Sprintf("flow[%d]: tick: expected sound %d, got %d", index, *expect.Sound, s.Sound))
	}
	if expect.Position != nil && *expect.Position != s.Position {
		result.AddError(fmt.Sprintf("flow[%d]: tick: expected position %d, got %d", index, *expect.Position, s.Position))
	}
	if expect.Comparable != nil {
		last := result.Trace[len(result.Trace)-1]
		if last.Comparable != *expect.Comparable {
			result.AddError(fmt.Sprintf("flow[%d]: tick: expected comparable %t, got %t",
				index, *expect.Comparable, last.Comparable))
		}
	}
}

// checkReplay re-verifies the journal and reports every mismatch, plus any
// disagreement between the replayed and the live counters.
func (h *Harness) checkReplay(ctx context.Context, sessionID string, result *Result) error {
	report, err := h.store.Replay(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("failed to replay journal: %w", err)
	}
	for _, m := range report.Mismatches {
		result.AddError("replay: " + m.String())
	}
	if report.Stats != result.Stats {
		result.AddError(fmt.Sprintf("replay: stats %+v differ from engine stats %+v", report.Stats, result.Stats))
	}
	return nil
}
