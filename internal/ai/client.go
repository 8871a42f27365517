package ai

import "context"

// Client is the completion backend used by the Analyzer. Implementations
// return an error instead of guessing so the caller can fall back.
type Client interface {
	// Complete sends a system and user prompt and returns the raw
	// assistant message.
	Complete(ctx context.Context, system, user string) (string, error)
}

// Classification is the analyzer verdict for a single spending entry.
type Classification struct {
	Category   string   `json:"category"`
	Tags       []string `json:"tags"`
	Confidence float64  `json:"confidence"`
}

// Profile is the monthly consumer-type verdict.
type Profile struct {
	Type      string `json:"type"`
	Label     string `json:"label"`
	Rationale string `json:"rationale"`
	Advice    string `json:"advice"`
}

// Insight is the weekly news commentary.
type Insight struct {
	Summary string `json:"summary"`
	Mood    string `json:"mood"`
}
