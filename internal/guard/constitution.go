// Package guard implements the policy checks consulted before any
// state-changing action: the path guard, the self-preservation rule and the
// cumulative risk budget.
package guard

import (
	"fmt"
	"strings"
	"sync"
)

// DefaultBudgetCeiling bounds the cumulative risk a session may take.
const DefaultBudgetCeiling = 5000

// defaultForbiddenDirs are directory names no action description may
// reference: core OS directories plus the agent's own quarantine vault.
var defaultForbiddenDirs = []string{"System32", "Windows", "AppData", ".sentinel_vault"}

// selfPreservationPhrases trip the self-preservation rule regardless of
// budget state.
var selfPreservationPhrases = []string{"delete", "format", "remove system"}

// Decision is the outcome of a guardrail consultation. A denial is a
// deliberate refusal with a human-readable reason, not an error.
type Decision struct {
	Allowed bool
	Reason  string
}

// RegretStats tallies what the guardrail's refusals are estimated to have
// saved. Each unit of avoided risk is valued at $100.
type RegretStats struct {
	RiskAvoided    float64
	EstimatedSaved float64
	VetoedRequests int64
}

// Constitution is an explicit state object owning the risk budget counter
// and the fixed policy lists. All mutation happens behind its mutex; one
// instance per session keeps tests isolated.
type Constitution struct {
	mu            sync.Mutex
	spent         float64
	ceiling       float64
	forbiddenDirs []string
	regret        RegretStats
}

// NewConstitution creates a constitution with the given budget ceiling.
// A non-positive ceiling falls back to the default.
func NewConstitution(ceiling float64) *Constitution {
	if ceiling <= 0 {
		ceiling = DefaultBudgetCeiling
	}
	return &Constitution{
		ceiling:       ceiling,
		forbiddenDirs: defaultForbiddenDirs,
	}
}

// Consult runs both policy checks against an action description and its
// estimated risk cost. The path guard and self-preservation rule are checked
// first and never spend budget; the budget counter is incremented only on
// approval and never refunded within the session.
func (c *Constitution) Consult(action string, cost float64) Decision {
	lower := strings.ToLower(action)

	for _, dir := range c.forbiddenDirs {
		if strings.Contains(lower, strings.ToLower(dir)) {
			c.recordRegret(cost)
			return Decision{Allowed: false,
				Reason: fmt.Sprintf("constitutional veto: access to restricted directory %q denied", dir)}
		}
	}

	for _, phrase := range selfPreservationPhrases {
		if strings.Contains(lower, phrase) {
			c.recordRegret(cost)
			return Decision{Allowed: false,
				Reason: "constitutional breach: action violates the self-preservation principle"}
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.spent+cost > c.ceiling {
		return Decision{Allowed: false,
			Reason: fmt.Sprintf("budget veto: risk cost %.0f would exceed the remaining budget (%.0f of %.0f spent)",
				cost, c.spent, c.ceiling)}
	}
	c.spent += cost

	return Decision{Allowed: true, Reason: "constitutional clearance granted"}
}

// Spent returns the cumulative risk cost approved so far.
func (c *Constitution) Spent() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.spent
}

// Ceiling returns the configured budget ceiling.
func (c *Constitution) Ceiling() float64 {
	return c.ceiling
}

// Regret returns a snapshot of what refusals are estimated to have saved.
func (c *Constitution) Regret() RegretStats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.regret
}

func (c *Constitution) recordRegret(riskAvoided float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.regret.RiskAvoided += riskAvoided
	c.regret.EstimatedSaved += riskAvoided * 100
	c.regret.VetoedRequests++
}
