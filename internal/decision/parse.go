package decision

import (
	"encoding/json"
	"fmt"

	"github.com/easeaico/sentinel-agent/internal/llm"
)

// rawOption mirrors the JSON shape the strategic parser prompt asks the
// model for. Pointers distinguish "absent" from "zero" so validation can
// reject missing fields explicitly.
type rawOption struct {
	Name          *string  `json:"name"`
	Impact        *float64 `json:"impact"`
	Certainty     *float64 `json:"certainty"`
	Reversibility *float64 `json:"reversibility"`
	Risk          *float64 `json:"risk"`
	Capital       *float64 `json:"capital"`
	Time          *float64 `json:"time"`
	Penalty       *float64 `json:"penalty"`
}

// ParseOptions extracts the option list from a model reply. The reply is
// untrusted: the JSON array is located between the first '[' and the last
// ']', and every option must carry a name and all numeric parameters, with
// the right types, or the whole reply is rejected.
func ParseOptions(reply string) ([]Option, error) {
	payload, ok := llm.JSONArray(reply)
	if !ok {
		return nil, fmt.Errorf("reply contains no JSON array")
	}

	var raw []rawOption
	if err := json.Unmarshal([]byte(payload), &raw); err != nil {
		return nil, fmt.Errorf("failed to decode options: %w", err)
	}
	if len(raw) == 0 {
		return nil, fmt.Errorf("reply contains no options")
	}

	options := make([]Option, 0, len(raw))
	for i, r := range raw {
		if r.Name == nil || *r.Name == "" {
			return nil, fmt.Errorf("option %d: missing name", i)
		}
		fields := map[string]*float64{
			"impact": r.Impact, "certainty": r.Certainty, "reversibility": r.Reversibility,
			"risk": r.Risk, "capital": r.Capital, "time": r.Time, "penalty": r.Penalty,
		}
		for name, v := range fields {
			if v == nil {
				return nil, fmt.Errorf("option %q: missing field %s", *r.Name, name)
			}
		}
		options = append(options, Option{
			Name: *r.Name,
			ScoreInput: ScoreInput{
				Impact:            *r.Impact,
				Certainty:         *r.Certainty,
				Reversibility:     *r.Reversibility,
				Risk:              *r.Risk,
				Capital:           *r.Capital,
				TimeCost:          *r.Time,
				HistoricalPenalty: *r.Penalty,
			},
		})
	}

	return options, nil
}
