package ir

// Version constants for the predicate model and engine.
const (
	// IRVersion is the predicate text format version.
	IRVersion = "1"

	// EngineVersion is the inference engine version.
	EngineVersion = "0.1.0"
)
