// Package memory provides the durable record store and trust-weighted
// retrieval that form the agent's institutional memory.
package memory

import (
	"time"

	"github.com/google/uuid"
)

// Outcome records how the decision or observation behind a record turned out.
// It may be unknown at creation time and back-filled once known.
type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeNeutral Outcome = "neutral"
	OutcomeFailure Outcome = "failure"
)

// Tier is the retention class of a record, fixed at creation.
// Strategic records stay influential for weeks; tactical records fall out
// of relevance within two days.
type Tier string

const (
	TierTactical  Tier = "tactical"
	TierStrategic Tier = "strategic"
)

// Well-known provenance tags. Source is free-form; these are the values the
// core itself writes.
const (
	SourceInteractive    = "executive_session"
	SourceFileScan       = "file_scan"
	SourceSystemLog      = "system_log"
	SourceSecurityAction = "automated_security_action"
)

// Record is an immutable fact about something observed or decided.
// Trust is derived from outcome, age, tier and source at query time and is
// deliberately not a field here: it depends on the clock, so caching it on
// the record would go stale.
type Record struct {
	ID         string
	Content    string
	CreatedAt  time.Time // UTC, assigned at creation, never mutated
	Source     string
	Outcome    Outcome
	Confidence float64 // certainty in Content at creation time, in [0,1]
	Tier       Tier
	Embedding  []float32 // computed once, immutable
}

// NewRecord assembles a record with a fresh ID, a UTC creation timestamp and
// a tier classified from its content and confidence.
func NewRecord(content, source string, outcome Outcome, confidence float64) Record {
	return Record{
		ID:         uuid.NewString(),
		Content:    content,
		CreatedAt:  time.Now().UTC(),
		Source:     source,
		Outcome:    outcome,
		Confidence: confidence,
		Tier:       ClassifyTier(content, confidence),
	}
}

// ProcessedFileEntry is the delta-sync cursor for the sensitivity scanner:
// at most one entry per path, overwritten whenever the content digest changes.
type ProcessedFileEntry struct {
	Path        string
	ContentHash string
}
