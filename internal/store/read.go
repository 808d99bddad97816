package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/roach88/nback/internal/engine"
	"github.com/roach88/nback/internal/ir"
)

// ReadSession retrieves a single session by ID.
// Returns an error wrapping sql.ErrNoRows if not found.
func (s *Store) ReadSession(ctx context.Context, id string) (ir.Session, error) {
	var sess ir.Session
	err := s.db.QueryRowContext(ctx, `
		SELECT id, n, sounds, positions, seed, policy, engine_version, ir_version
		FROM sessions
		WHERE id = ?
	`, id).Scan(
		&sess.ID,
		&sess.N,
		&sess.Sounds,
		&sess.Positions,
		&sess.Seed,
		&sess.Policy,
		&sess.EngineVersion,
		&sess.IRVersion,
	)
	if err != nil {
		return ir.Session{}, fmt.Errorf("read session %q: %w", id, err)
	}
	return sess, nil
}

// ListSessions returns every session id in ascending order.
// UUIDv7 ids sort in creation order.
//
// Returns an empty slice (not nil) for an empty journal.
func (s *Store) ListSessions(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id FROM sessions
		ORDER BY id COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan session id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sessions: %w", err)
	}
	return ids, nil
}

// ReadTicks returns all ticks of a session ordered by seq ASC, id ASC.
// Returns an empty slice (not nil) if the session has no ticks.
func (s *Store) ReadTicks(ctx context.Context, sessionID string) ([]ir.Tick, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, session_id, seq, idx, sound, position, comparable, sound_match, position_match
		FROM ticks
		WHERE session_id = ?
		ORDER BY seq ASC, id COLLATE BINARY ASC
	`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("query ticks: %w", err)
	}
	defer rows.Close()

	ticks := []ir.Tick{}
	for rows.Next() {
		t, err := scanTick(rows)
		if err != nil {
			return nil, err
		}
		ticks = append(ticks, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate ticks: %w", err)
	}
	return ticks, nil
}

// ReadClaims returns all claims of a session ordered by seq ASC, id ASC.
// Returns an empty slice (not nil) if the session has no claims.
func (s *Store) ReadClaims(ctx context.Context, sessionID string) ([]ir.Claim, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, session_id, seq, tick, channel, result
		FROM claims
		WHERE session_id = ?
		ORDER BY seq ASC, id COLLATE BINARY ASC
	`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("query claims: %w", err)
	}
	defer rows.Close()

	claims := []ir.Claim{}
	for rows.Next() {
		var c ir.Claim
		if err := rows.Scan(&c.ID, &c.SessionID, &c.Seq, &c.Tick, &c.Channel, &c.Result); err != nil {
			return nil, fmt.Errorf("scan claim: %w", err)
		}
		claims = append(claims, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate claims: %w", err)
	}
	return claims, nil
}

// SessionStats recomputes per-channel counters from the journal in SQL.
//
// Hits and strikes are counted from claim results. Opportunities follow the
// session's policy: match flags under "match", the comparable flag under
// "comparable".
func (s *Store) SessionStats(ctx context.Context, sessionID string) (engine.Stats, error) {
	var st engine.Stats

	err := s.db.QueryRowContext(ctx, `
		SELECT
			COALESCE(SUM(CASE WHEN channel = 'sound'    AND result = 'hit'    THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN channel = 'sound'    AND result = 'strike' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN channel = 'position' AND result = 'hit'    THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN channel = 'position' AND result = 'strike' THEN 1 ELSE 0 END), 0)
		FROM claims
		WHERE session_id = ?
	`, sessionID).Scan(
		&st.Sound.Hits,
		&st.Sound.Strikes,
		&st.Position.Hits,
		&st.Position.Strikes,
	)
	if err != nil {
		return engine.Stats{}, fmt.Errorf("session stats: claims: %w", err)
	}

	err = s.db.QueryRowContext(ctx, `
		SELECT
			COALESCE(SUM(CASE WHEN s.policy = 'comparable' THEN t.comparable ELSE t.sound_match END), 0),
			COALESCE(SUM(CASE WHEN s.policy = 'comparable' THEN t.comparable ELSE t.position_match END), 0)
		FROM ticks t
		JOIN sessions s ON s.id = t.session_id
		WHERE t.session_id = ?
	`, sessionID).Scan(
		&st.Sound.Opportunities,
		&st.Position.Opportunities,
	)
	if err != nil {
		return engine.Stats{}, fmt.Errorf("session stats: ticks: %w", err)
	}

	return st, nil
}

// LastSeq returns the highest seq recorded for a session, or 0 if none.
func (s *Store) LastSeq(ctx context.Context, sessionID string) (int64, error) {
	var seq sql.NullInt64
	err := s.db.QueryRowContext(ctx, `
		SELECT MAX(seq) FROM (
			SELECT seq FROM ticks WHERE session_id = ?
			UNION ALL
			SELECT seq FROM claims WHERE session_id = ?
		)
	`, sessionID, sessionID).Scan(&seq)
	if err != nil {
		return 0, fmt.Errorf("last seq: %w", err)
	}
	return seq.Int64, nil
}

func scanTick(rows *sql.Rows) (ir.Tick, error) {
	var t ir.Tick
	err := rows.Scan(
		&t.ID,
		&t.SessionID,
		&t.Seq,
		&t.Index,
		&t.Sound,
		&t.Position,
		&t.Comparable,
		&t.SoundMatch,
		&t.PositionMatch,
	)
	if err != nil {
		return ir.Tick{}, fmt.Errorf("scan tick: %w", err)
	}
	return t, nil
}
