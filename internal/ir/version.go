package ir

// Version constants for journal records and engine.
const (
	// IRVersion is the record schema version.
	IRVersion = "1"

	// EngineVersion is the match engine version.
	EngineVersion = "0.1.0"
)
