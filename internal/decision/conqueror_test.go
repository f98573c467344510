package decision

import "testing"

func baseInput() ScoreInput {
	return ScoreInput{
		Impact:            8,
		Certainty:         0.8,
		Reversibility:     0.5,
		Risk:              4,
		Capital:           2,
		TimeCost:          2,
		HistoricalPenalty: 1,
	}
}

// TestScore_ZeroDenominator verifies any zero denominator factor yields
// exactly 0, never an error.
func TestScore_ZeroDenominator(t *testing.T) {
	for _, zero := range []func(*ScoreInput){
		func(in *ScoreInput) { in.Risk = 0 },
		func(in *ScoreInput) { in.Capital = 0 },
		func(in *ScoreInput) { in.TimeCost = 0 },
		func(in *ScoreInput) { in.HistoricalPenalty = 0 },
	} {
		in := baseInput()
		zero(&in)
		if got := Score(in); got != 0 {
			t.Errorf("expected 0 for zero denominator, got %v", got)
		}
	}
}

// TestScore_ScarPenalty verifies the score is strictly decreasing in scar
// count: each recorded scar doubles the effective risk weight.
func TestScore_ScarPenalty(t *testing.T) {
	prev := Score(baseInput())
	if prev <= 0 {
		t.Fatalf("expected positive base score, got %v", prev)
	}

	for scars := int64(1); scars <= 5; scars++ {
		in := baseInput()
		in.ScarCount = scars
		cur := Score(in)
		if cur >= prev {
			t.Errorf("score must strictly decrease with scars: %v scars gave %v (prev %v)", scars, cur, prev)
		}
		prev = cur
	}

	// one scar triples the risk term: score drops to a third
	in := baseInput()
	in.ScarCount = 1
	base := baseInput()
	if got, want := Score(in), Score(base); got > want/3+0.01 || got < want/3-0.01 {
		t.Errorf("one scar should divide the score by 3: got %v, base %v", got, want)
	}
}

// TestRank verifies descending order, the recommended label and stable
// tie-breaking by input order.
func TestRank(t *testing.T) {
	weak := baseInput()
	weak.Impact = 2

	ranked := Rank([]Option{
		{Name: "cautious", ScoreInput: weak},
		{Name: "bold", ScoreInput: baseInput()},
		{Name: "cautious twin", ScoreInput: weak},
	})

	if len(ranked) != 3 {
		t.Fatalf("expected 3 ranked options, got %d", len(ranked))
	}
	if ranked[0].Name != "bold" || !ranked[0].Recommended {
		t.Errorf("expected 'bold' recommended first, got %+v", ranked[0])
	}
	if ranked[1].Recommended || ranked[2].Recommended {
		t.Error("only the top entry may be recommended")
	}
	// equal scores keep input order
	if ranked[1].Name != "cautious" || ranked[2].Name != "cautious twin" {
		t.Errorf("tie must preserve input order, got %s then %s", ranked[1].Name, ranked[2].Name)
	}
}

// TestRank_Empty verifies an empty batch is handled without panicking.
func TestRank_Empty(t *testing.T) {
	if got := Rank(nil); len(got) != 0 {
		t.Errorf("expected empty ranking, got %+v", got)
	}
}

// TestParseOptions covers extraction from a prose-wrapped reply and
// rejection of malformed option lists.
func TestParseOptions(t *testing.T) {
	reply := `Here is my analysis:
[{"name": "Buy", "impact": 8, "certainty": 0.7, "reversibility": 0.4, "risk": 5, "capital": 6, "time": 3, "penalty": 1.0},
 {"name": "Wait", "impact": 3, "certainty": 0.9, "reversibility": 1.0, "risk": 1, "capital": 1, "time": 1, "penalty": 1.0}]
Hope that helps!`

	options, err := ParseOptions(reply)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if len(options) != 2 {
		t.Fatalf("expected 2 options, got %d", len(options))
	}
	if options[0].Name != "Buy" || options[0].Impact != 8 || options[1].TimeCost != 1 {
		t.Errorf("fields not mapped: %+v", options)
	}
}

// TestParseOptions_Malformed verifies missing fields, wrong types, absent
// arrays and empty lists are all rejected explicitly.
func TestParseOptions_Malformed(t *testing.T) {
	cases := map[string]string{
		"no array":      `the options are buy and wait`,
		"empty list":    `[]`,
		"missing name":  `[{"impact": 8, "certainty": 0.7, "reversibility": 0.4, "risk": 5, "capital": 6, "time": 3, "penalty": 1.0}]`,
		"missing field": `[{"name": "Buy", "impact": 8}]`,
		"wrong type":    `[{"name": "Buy", "impact": "high", "certainty": 0.7, "reversibility": 0.4, "risk": 5, "capital": 6, "time": 3, "penalty": 1.0}]`,
	}

	for label, reply := range cases {
		if _, err := ParseOptions(reply); err == nil {
			t.Errorf("%s: expected an error", label)
		}
	}
}
