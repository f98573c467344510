// Package service implements the foreground request path: every request is
// gated by the scar ledger and the constitution before any retrieval or
// reasoning happens, and every reply is followed by an outcome write.
package service

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/easeaico/sentinel-agent/internal/decision"
	"github.com/easeaico/sentinel-agent/internal/guard"
	"github.com/easeaico/sentinel-agent/internal/llm"
	"github.com/easeaico/sentinel-agent/internal/memory"
	"github.com/easeaico/sentinel-agent/internal/scar"
)

// Risk cost heuristic: requests that touch state are charged more against
// the session budget than pure questions.
const (
	riskCostStateChanging = 100
	riskCostInformational = 10
)

// Matched as whole words: "ready" or "spread" must not be charged as
// state-changing.
var stateChangingWords = map[string]bool{
	"decide": true, "read": true, "delete": true, "move": true,
}

// Core wires the gates, the retriever and the reasoning collaborator into
// one request path.
type Core struct {
	store        memory.Store
	retriever    *memory.Retriever
	ledger       *scar.Ledger
	constitution *guard.Constitution
	completer    llm.Completer
	embedder     memory.Embedder
	logger       *zap.Logger
}

// New creates the foreground core.
func New(store memory.Store, retriever *memory.Retriever, ledger *scar.Ledger,
	constitution *guard.Constitution, completer llm.Completer, embedder memory.Embedder,
	logger *zap.Logger) *Core {
	return &Core{
		store:        store,
		retriever:    retriever,
		ledger:       ledger,
		constitution: constitution,
		completer:    completer,
		embedder:     embedder,
		logger:       logger,
	}
}

// Handle runs one request through the gates and, if cleared, through
// retrieval-augmented reasoning. Policy refusals come back as the reply
// text, not as errors.
func (c *Core) Handle(ctx context.Context, input string) (string, error) {
	// Scar veto first: a severe past failure blocks the request outright.
	trauma, err := c.ledger.CheckTrauma(ctx, input)
	if err != nil {
		c.logger.Warn("trauma check failed", zap.Error(err))
	} else if trauma != nil && trauma.Vetoes() {
		return fmt.Sprintf(
			"STRATEGIC VETO: this path matches a previous critical failure (severity %.1f). Reason: %s. Manual override required.",
			trauma.Severity, trauma.Lesson), nil
	}

	lower := strings.ToLower(input)

	// The forget command is consulted under its own description: the request
	// text necessarily contains "delete"-like phrasing, which would otherwise
	// trip the self-preservation rule meant for OS-level destruction.
	if keyword, ok := forgetKeyword(lower); ok {
		gate := c.constitution.Consult(fmt.Sprintf("wipe memories matching %q", keyword), riskCostStateChanging)
		if !gate.Allowed {
			return gate.Reason, nil
		}
		count, err := c.store.DeleteMatching(ctx, keyword)
		if err != nil {
			return "", fmt.Errorf("failed to delete memories: %w", err)
		}
		return fmt.Sprintf("Wiped %d memories matching %q.", count, keyword), nil
	}

	decisionOut := c.constitution.Consult(input, riskCost(input))
	if !decisionOut.Allowed {
		return decisionOut.Reason, nil
	}

	if strings.Contains(lower, "decide") || strings.Contains(lower, "compare") {
		return c.rankOptions(ctx, input)
	}

	return c.reason(ctx, input, trauma)
}

// RecordFeedback persists the interaction with its reported outcome and, on
// failure, registers a scar so the lesson survives the session.
func (c *Core) RecordFeedback(ctx context.Context, input, reply string, outcome memory.Outcome, lesson string) error {
	confidence := 0.5
	switch outcome {
	case memory.OutcomeSuccess:
		confidence = 0.9
	case memory.OutcomeFailure:
		confidence = 0.2
		if lesson != "" {
			if err := c.ledger.Register(ctx, input, 0.9, lesson); err != nil {
				c.logger.Warn("failed to register scar", zap.Error(err))
			}
		}
	}

	rec := memory.NewRecord(
		fmt.Sprintf("User: %s | Agent: %s", input, reply),
		memory.SourceInteractive, outcome, confidence)
	if c.embedder != nil {
		if vec, err := c.embedder.Embed(ctx, rec.Content); err == nil {
			rec.Embedding = vec
		}
	}

	if _, err := c.store.Append(ctx, rec); err != nil {
		return fmt.Errorf("failed to record feedback: %w", err)
	}
	return nil
}

// StatusReport summarizes the memory core, the delta-sync cursor and the
// session budget.
func (c *Core) StatusReport(ctx context.Context) string {
	records, _ := c.store.CountRecords(ctx)
	files, _ := c.store.CountProcessedFiles(ctx)
	regret := c.constitution.Regret()

	var sb strings.Builder
	fmt.Fprintf(&sb, "Institutional memories: %d\n", records)
	fmt.Fprintf(&sb, "Files processed (delta-sync): %d\n", files)
	fmt.Fprintf(&sb, "Risk budget: %.0f of %.0f spent\n", c.constitution.Spent(), c.constitution.Ceiling())
	fmt.Fprintf(&sb, "Vetoed requests: %d (est. $%.0f saved)", regret.VetoedRequests, regret.EstimatedSaved)
	return sb.String()
}

// rankOptions asks the model to extract decision parameters, folds in scar
// counts per option and returns the conqueror ranking.
func (c *Core) rankOptions(ctx context.Context, input string) (string, error) {
	prompt := fmt.Sprintf(`Act as a strategic analyst. Extract decision parameters for each option in this text: %q
Return ONLY a raw JSON list of objects without any backticks or extra text:
[{"name": "Option Name", "impact": 1-10, "certainty": 0.1-1.0, "reversibility": 0.1-1.0, "risk": 1-10, "capital": 1-10, "time": 1-10, "penalty": 1.0}]`, input)

	reply, err := c.completer.Complete(ctx, prompt)
	if err != nil {
		return "", fmt.Errorf("strategic parser unavailable: %w", err)
	}

	options, err := decision.ParseOptions(reply)
	if err != nil {
		return "", fmt.Errorf("strategic parser error: %w", err)
	}

	for i := range options {
		count, err := c.ledger.CountMatching(ctx, options[i].Name)
		if err != nil {
			c.logger.Warn("scar count failed", zap.String("option", options[i].Name), zap.Error(err))
			continue
		}
		options[i].ScarCount = count
	}

	ranked := decision.Rank(options)

	var sb strings.Builder
	sb.WriteString("STRATEGIC RANKING:\n")
	for i, r := range ranked {
		label := fmt.Sprintf("#%d", i+1)
		if r.Recommended {
			label = "WINNER"
		}
		fmt.Fprintf(&sb, "%s: %s | conqueror score %.2f (scars: %d)\n", label, r.Name, r.Score, r.ScarCount)
	}
	return sb.String(), nil
}

// reason answers an ordinary request with trust-weighted memory context.
func (c *Core) reason(ctx context.Context, input string, trauma *scar.Trauma) (string, error) {
	memories, err := c.retriever.Retrieve(ctx, input, 5)
	if err != nil {
		c.logger.Warn("retrieval failed, reasoning without context", zap.Error(err))
	}

	var contextBlock strings.Builder
	for _, m := range memories {
		fmt.Fprintf(&contextBlock, "[%s MEMORY - score %.2f] %s\n", strings.ToUpper(string(m.Tier)), m.Score, m.Content)
	}
	if trauma != nil {
		fmt.Fprintf(&contextBlock, "[PAST LESSON - severity %.1f] %s\n", trauma.Severity, trauma.Lesson)
	}

	prompt := fmt.Sprintf(`You are Sentinel, an executive intelligence system with institutional memory.

INSTITUTIONAL MEMORY (trust-weighted):
%s
Answer the request below using the memory context where relevant. Warn about past failures when they apply.

Request: %s`, contextBlock.String(), input)

	reply, err := c.completer.Complete(ctx, prompt)
	if err != nil {
		// Collaborator failure degrades to a local fallback rather than an error.
		c.logger.Warn("reasoning collaborator failed", zap.Error(err))
		if contextBlock.Len() > 0 {
			return "Reasoning service unavailable. Most relevant memories:\n" + contextBlock.String(), nil
		}
		return "Reasoning service unavailable and no relevant memories found.", nil
	}

	return strings.TrimSpace(reply), nil
}

func riskCost(input string) float64 {
	for _, w := range strings.Fields(strings.ToLower(input)) {
		if stateChangingWords[strings.Trim(w, ".,!?:;\"'()")] {
			return riskCostStateChanging
		}
	}
	return riskCostInformational
}

func forgetKeyword(lower string) (string, bool) {
	for _, prefix := range []string{"forget about", "delete memory"} {
		if strings.Contains(lower, prefix) {
			keyword := strings.TrimSpace(strings.SplitN(lower, prefix, 2)[1])
			if keyword != "" {
				return keyword, true
			}
		}
	}
	return "", false
}
