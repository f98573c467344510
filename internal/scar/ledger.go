// Package scar records lessons from failed decisions and vetoes requests
// that textually match a severe past failure.
package scar

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"
)

// VetoSeverity is the severity at and above which a matching scar vetoes a
// request: the caller must refuse to execute pending a manual override.
const VetoSeverity = 0.8

// ErrInvalidSeverity is returned when a scar's severity falls outside [0,1].
var ErrInvalidSeverity = errors.New("scar: severity must be in [0,1]")

// Scar is a permanently recorded lesson. Scars are never mutated and never
// deleted.
type Scar struct {
	ID         int64
	PatternKey string // sha256 of the lowercased triggering content, for duplicate suppression
	Severity   float64
	Lesson     string
	CreatedAt  time.Time
}

// Trauma is a scar matched against an incoming request.
type Trauma struct {
	Severity float64
	Lesson   string
}

// Vetoes reports whether the matched scar is severe enough to block the
// request outright.
func (t Trauma) Vetoes() bool {
	return t.Severity >= VetoSeverity
}

// Store is the persistence contract owned by this package.
type Store interface {
	Insert(ctx context.Context, patternKey string, severity float64, lesson string) error
	List(ctx context.Context) ([]Scar, error)
	CountMatching(ctx context.Context, category string) (int64, error)
}

// Ledger is the veto gate over a scar store.
type Ledger struct {
	store Store
}

// NewLedger creates a ledger over the given store.
func NewLedger(store Store) *Ledger {
	return &Ledger{store: store}
}

// Register records a new scar from explicit negative feedback. The pattern
// key fingerprints the triggering content; matching happens on the lesson.
func (l *Ledger) Register(ctx context.Context, content string, severity float64, lesson string) error {
	if severity < 0 || severity > 1 {
		return ErrInvalidSeverity
	}
	if err := l.store.Insert(ctx, PatternKey(content), severity, lesson); err != nil {
		return fmt.Errorf("failed to register scar: %w", err)
	}
	return nil
}

// CheckTrauma scans all scars and returns the first whose lesson shares at
// least one word (case-insensitive) with the input. This is a cheap recall
// filter, not semantic matching: over-triggering caution is acceptable,
// missing a severe lesson is not. Returns nil for no match or an empty
// ledger.
func (l *Ledger) CheckTrauma(ctx context.Context, input string) (*Trauma, error) {
	scars, err := l.store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list scars: %w", err)
	}

	inputWords := map[string]bool{}
	for _, w := range strings.Fields(strings.ToLower(input)) {
		inputWords[w] = true
	}

	for _, s := range scars {
		for _, w := range strings.Fields(strings.ToLower(s.Lesson)) {
			if inputWords[w] {
				return &Trauma{Severity: s.Severity, Lesson: s.Lesson}, nil
			}
		}
	}
	return nil, nil
}

// CountMatching reports how many scars reference a category (substring match
// on the lesson). The decision engine uses this to inflate the risk weight of
// previously burned option categories.
func (l *Ledger) CountMatching(ctx context.Context, category string) (int64, error) {
	return l.store.CountMatching(ctx, category)
}

// PatternKey fingerprints triggering content for duplicate suppression.
func PatternKey(content string) string {
	sum := sha256.Sum256([]byte(strings.ToLower(content)))
	return hex.EncodeToString(sum[:])
}
