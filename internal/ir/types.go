package ir

// Session describes one engine instance: its depth, alphabets and the
// stimulus seed (0 when stimuli are scripted or entropy-seeded).
type Session struct {
	ID            string `json:"id"`
	N             int    `json:"n"`
	Sounds        int    `json:"sounds"`
	Positions     int    `json:"positions"`
	Seed          int64  `json:"seed"`
	Policy        string `json:"policy"` // opportunity policy: "match" | "comparable"
	EngineVersion string `json:"engine_version"`
	IRVersion     string `json:"ir_version"`
}

// Tick is the record of one generated stimulus.
//
// Comparable is false until an n-back stimulus exists. SoundMatch and
// PositionMatch are the per-channel n-back comparison results at that tick.
type Tick struct {
	ID            string `json:"id"` // Content-addressed hash
	SessionID     string `json:"session_id"`
	Seq           int64  `json:"seq"`   // Logical clock
	Index         int64  `json:"index"` // 0-based tick number
	Sound         int    `json:"sound"`
	Position      int    `json:"position"`
	Comparable    bool   `json:"comparable"`
	SoundMatch    bool   `json:"sound_match"`
	PositionMatch bool   `json:"position_match"`
}

// Claim is the record of one match claim, including duplicates.
// Tick is the index of the tick whose claim window received it, or -1 for a
// claim made before the first tick.
type Claim struct {
	ID        string `json:"id"` // Content-addressed hash
	SessionID string `json:"session_id"`
	Seq       int64  `json:"seq"`
	Tick      int64  `json:"tick"`
	Channel   string `json:"channel"` // "sound" | "position"
	Result    string `json:"result"`  // "hit" | "strike" | "already_claimed"
}

// ChannelStats holds the counters of one channel.
type ChannelStats struct {
	Hits          int64 `json:"hits"`
	Strikes       int64 `json:"strikes"`
	Opportunities int64 `json:"opportunities"`
}
