package memory

import (
	"math"
	"strings"
	"time"
)

// Half-lives controlling tier-dependent decay. Strategic knowledge (plans,
// investor commitments, long-horizon facts) must remain influential for
// weeks; tactical execution detail should fall out of relevance in two days.
const (
	strategicHalfLife = 720.0 // hours (30 days)
	tacticalHalfLife  = 48.0  // hours (2 days)

	decayFloor = 0.1

	// VetoSeverity is the scar severity at and above which a matching scar
	// vetoes a request. Re-exported by the scar package.
	VetoSeverity = 0.8
)

// strategicMarkers promote a record to the strategic tier regardless of
// confidence.
var strategicMarkers = []string{"vision", "strategy", "investor", "plan"}

// authoritativeSources mark provenance worth full credibility.
var authoritativeSources = []string{"admin", "executive", "ceo", SourceSecurityAction}

// ClassifyTier assigns the retention tier for a new record. Evaluated once
// at creation; later feedback never re-tiers a record.
func ClassifyTier(content string, confidence float64) Tier {
	if confidence >= 0.9 {
		return TierStrategic
	}
	lower := strings.ToLower(content)
	for _, marker := range strategicMarkers {
		if strings.Contains(lower, marker) {
			return TierStrategic
		}
	}
	return TierTactical
}

// TrustScore computes the record's trustworthiness at the given instant:
//
//	trust = 0.5*outcome + 0.3*decay + 0.2*source_credibility
//
// rounded to 2 decimals. Decay is linear in age with a tier-dependent
// half-life, clamped to [0.1, 1.0]. A zero CreatedAt is treated as "now"
// (decay 1.0) rather than an error.
func TrustScore(rec Record, now time.Time) float64 {
	outcome := 0.5
	switch rec.Outcome {
	case OutcomeSuccess:
		outcome = 1.0
	case OutcomeFailure:
		outcome = 0.1
	}

	decay := 1.0
	if !rec.CreatedAt.IsZero() {
		ageHours := now.Sub(rec.CreatedAt).Hours()
		halfLife := tacticalHalfLife
		if rec.Tier == TierStrategic {
			halfLife = strategicHalfLife
		}
		decay = 1.0 - ageHours/halfLife
		if decay < decayFloor {
			decay = decayFloor
		}
		if decay > 1.0 {
			decay = 1.0
		}
	}

	credibility := 0.6
	source := strings.ToLower(rec.Source)
	for _, auth := range authoritativeSources {
		if strings.Contains(source, auth) {
			credibility = 1.0
			break
		}
	}

	trust := 0.5*outcome + 0.3*decay + 0.2*credibility
	return math.Round(trust*100) / 100
}
