// Package tools defines the ADK tool declarations exposed to the LLM agent:
// trust-weighted recall, outcome-tagged memory writes, keyword forgetting,
// conqueror-score ranking and the security status report.
package tools

import (
	"fmt"

	"google.golang.org/adk/tool"
	"google.golang.org/adk/tool/functiontool"

	"github.com/easeaico/sentinel-agent/internal/decision"
	"github.com/easeaico/sentinel-agent/internal/guard"
	"github.com/easeaico/sentinel-agent/internal/memory"
	"github.com/easeaico/sentinel-agent/internal/scar"
)

// Config holds dependencies for creating tools.
type Config struct {
	Store        memory.Store
	Embedder     memory.Embedder
	Retriever    *memory.Retriever
	Ledger       *scar.Ledger
	Constitution *guard.Constitution
}

// --- Tool Input/Output Structs ---

// RecallArgs is the input for recall_memories.
type RecallArgs struct {
	Query string `json:"query" jsonschema:"description=What to look up in institutional memory"`
	TopK  int    `json:"top_k,omitempty" jsonschema:"description=Maximum number of memories to return (default 5)"`
}

// RecallResult is the output for recall_memories.
type RecallResult struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// RememberArgs is the input for save_memory.
type RememberArgs struct {
	Content    string  `json:"content" jsonschema:"description=The observation or decision to remember"`
	Outcome    string  `json:"outcome,omitempty" jsonschema:"description=One of success/neutral/failure (default neutral)"`
	Confidence float64 `json:"confidence,omitempty" jsonschema:"description=Certainty in the content from 0 to 1 (default 0.5)"`
}

// RememberResult is the output for save_memory.
type RememberResult struct {
	Success bool   `json:"success"`
	Data    string `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

// ForgetArgs is the input for forget_memories.
type ForgetArgs struct {
	Keyword string `json:"keyword" jsonschema:"description=Memories whose content contains this keyword are deleted"`
}

// ForgetResult is the output for forget_memories.
type ForgetResult struct {
	Success bool   `json:"success"`
	Data    string `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

// RankOption is one candidate passed to rank_options.
type RankOption struct {
	Name          string  `json:"name" jsonschema:"description=Option name"`
	Impact        float64 `json:"impact" jsonschema:"description=Expected impact 1-10"`
	Certainty     float64 `json:"certainty" jsonschema:"description=Certainty 0.1-1.0"`
	Reversibility float64 `json:"reversibility" jsonschema:"description=Reversibility 0.1-1.0"`
	Risk          float64 `json:"risk" jsonschema:"description=Risk 1-10"`
	Capital       float64 `json:"capital" jsonschema:"description=Capital cost 1-10"`
	Time          float64 `json:"time" jsonschema:"description=Time cost 1-10"`
	Penalty       float64 `json:"penalty" jsonschema:"description=Historical penalty, 1.0 when none"`
}

// RankArgs is the input for rank_options.
type RankArgs struct {
	Options []RankOption `json:"options" jsonschema:"description=Competing options with their decision parameters"`
}

// RankResult is the output for rank_options.
type RankResult struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// StatusArgs is the (empty) input for security_status.
type StatusArgs struct{}

// StatusResult is the output for security_status.
type StatusResult struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// --- Tool Constructors ---

func createRecallTool(cfg Config) (tool.Tool, error) {
	handler := func(ctx tool.Context, args RecallArgs) (RecallResult, error) {
		if args.Query == "" {
			return RecallResult{Success: false, Error: "query is required"}, nil
		}
		topK := args.TopK
		if topK <= 0 {
			topK = 5
		}

		memories, err := cfg.Retriever.Retrieve(ctx, args.Query, topK)
		if err != nil {
			return RecallResult{Success: false, Error: fmt.Sprintf("failed to retrieve memories: %v", err)}, nil
		}
		if len(memories) == 0 {
			return RecallResult{Success: true, Data: "no relevant memories found"}, nil
		}

		var results []map[string]interface{}
		for _, m := range memories {
			results = append(results, map[string]interface{}{
				"content": m.Content,
				"score":   fmt.Sprintf("%.2f", m.Score),
				"tier":    string(m.Tier),
			})
		}
		return RecallResult{Success: true, Data: results}, nil
	}

	return functiontool.New(functiontool.Config{
		Name:        "recall_memories",
		Description: "Search institutional memory for past observations and decisions relevant to a query. Results are ranked by similarity and trust.",
	}, handler)
}

func createRememberTool(cfg Config) (tool.Tool, error) {
	handler := func(ctx tool.Context, args RememberArgs) (RememberResult, error) {
		if args.Content == "" {
			return RememberResult{Success: false, Error: "content is required"}, nil
		}

		outcome := memory.OutcomeNeutral
		switch args.Outcome {
		case "", string(memory.OutcomeNeutral):
		case string(memory.OutcomeSuccess):
			outcome = memory.OutcomeSuccess
		case string(memory.OutcomeFailure):
			outcome = memory.OutcomeFailure
		default:
			return RememberResult{Success: false, Error: "outcome must be success, neutral or failure"}, nil
		}

		confidence := args.Confidence
		if confidence == 0 {
			confidence = 0.5
		}
		if confidence < 0 || confidence > 1 {
			return RememberResult{Success: false, Error: "confidence must be in [0,1]"}, nil
		}

		rec := memory.NewRecord(args.Content, memory.SourceInteractive, outcome, confidence)
		if vec, err := cfg.Embedder.Embed(ctx, args.Content); err == nil {
			rec.Embedding = vec
		}

		id, err := cfg.Store.Append(ctx, rec)
		if err != nil {
			return RememberResult{Success: false, Error: fmt.Sprintf("failed to save memory: %v", err)}, nil
		}
		return RememberResult{Success: true, Data: fmt.Sprintf("memory %s saved (%s tier)", id, rec.Tier)}, nil
	}

	return functiontool.New(functiontool.Config{
		Name:        "save_memory",
		Description: "Persist an observation or decision into institutional memory with its outcome and confidence.",
	}, handler)
}

func createForgetTool(cfg Config) (tool.Tool, error) {
	handler := func(ctx tool.Context, args ForgetArgs) (ForgetResult, error) {
		if args.Keyword == "" {
			return ForgetResult{Success: false, Error: "keyword is required"}, nil
		}

		gate := cfg.Constitution.Consult(fmt.Sprintf("wipe memories matching %q", args.Keyword), 100)
		if !gate.Allowed {
			return ForgetResult{Success: false, Error: gate.Reason}, nil
		}

		count, err := cfg.Store.DeleteMatching(ctx, args.Keyword)
		if err != nil {
			return ForgetResult{Success: false, Error: fmt.Sprintf("failed to delete memories: %v", err)}, nil
		}
		return ForgetResult{Success: true, Data: fmt.Sprintf("%d memories wiped", count)}, nil
	}

	return functiontool.New(functiontool.Config{
		Name:        "forget_memories",
		Description: "Delete all memories whose content contains a keyword. Destructive; reports how many were removed.",
	}, handler)
}

func createRankTool(cfg Config) (tool.Tool, error) {
	handler := func(ctx tool.Context, args RankArgs) (RankResult, error) {
		if len(args.Options) == 0 {
			return RankResult{Success: false, Error: "at least one option is required"}, nil
		}

		options := make([]decision.Option, 0, len(args.Options))
		for _, o := range args.Options {
			if o.Name == "" {
				return RankResult{Success: false, Error: "every option needs a name"}, nil
			}
			scarCount, err := cfg.Ledger.CountMatching(ctx, o.Name)
			if err != nil {
				return RankResult{Success: false, Error: fmt.Sprintf("failed to count scars: %v", err)}, nil
			}
			options = append(options, decision.Option{
				Name: o.Name,
				ScoreInput: decision.ScoreInput{
					Impact:            o.Impact,
					Certainty:         o.Certainty,
					Reversibility:     o.Reversibility,
					Risk:              o.Risk,
					Capital:           o.Capital,
					TimeCost:          o.Time,
					HistoricalPenalty: o.Penalty,
					ScarCount:         scarCount,
				},
			})
		}

		ranked := decision.Rank(options)
		var results []map[string]interface{}
		for i, r := range ranked {
			results = append(results, map[string]interface{}{
				"rank":        i + 1,
				"name":        r.Name,
				"score":       r.Score,
				"scars":       r.ScarCount,
				"recommended": r.Recommended,
			})
		}
		return RankResult{Success: true, Data: results}, nil
	}

	return functiontool.New(functiontool.Config{
		Name:        "rank_options",
		Description: "Rank competing options by conqueror score. Past failures recorded against an option inflate its risk weight.",
	}, handler)
}

func createStatusTool(cfg Config) (tool.Tool, error) {
	handler := func(ctx tool.Context, _ StatusArgs) (StatusResult, error) {
		records, err := cfg.Store.CountRecords(ctx)
		if err != nil {
			return StatusResult{Success: false, Error: fmt.Sprintf("failed to count records: %v", err)}, nil
		}
		files, err := cfg.Store.CountProcessedFiles(ctx)
		if err != nil {
			return StatusResult{Success: false, Error: fmt.Sprintf("failed to count processed files: %v", err)}, nil
		}
		regret := cfg.Constitution.Regret()

		return StatusResult{Success: true, Data: map[string]interface{}{
			"memories":        records,
			"files_processed": files,
			"budget_spent":    cfg.Constitution.Spent(),
			"budget_ceiling":  cfg.Constitution.Ceiling(),
			"vetoed_requests": regret.VetoedRequests,
			"estimated_saved": regret.EstimatedSaved,
		}}, nil
	}

	return functiontool.New(functiontool.Config{
		Name:        "security_status",
		Description: "Report memory counts, delta-sync progress and the session risk budget.",
	}, handler)
}

// BuildTools creates all agent tools with the given configuration.
func BuildTools(cfg Config) ([]tool.Tool, error) {
	constructors := []struct {
		name   string
		create func(Config) (tool.Tool, error)
	}{
		{"recall_memories", createRecallTool},
		{"save_memory", createRememberTool},
		{"forget_memories", createForgetTool},
		{"rank_options", createRankTool},
		{"security_status", createStatusTool},
	}

	var tools []tool.Tool
	for _, c := range constructors {
		t, err := c.create(cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to create %s tool: %w", c.name, err)
		}
		tools = append(tools, t)
	}
	return tools, nil
}
