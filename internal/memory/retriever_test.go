package memory

import (
	"context"
	"testing"
	"time"
)

// stubEmbedder returns a fixed vector for every input; similarity then
// cancels out and ranking is driven purely by trust, which makes the
// expected order deterministic.
type stubEmbedder struct {
	vec []float32
}

func (s *stubEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	return s.vec, nil
}

// TestRetriever_EmptyStore verifies an empty store yields an empty result,
// never an error.
func TestRetriever_EmptyStore(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	retriever := NewRetriever(store, &stubEmbedder{vec: []float32{1, 0}})

	memories, err := retriever.Retrieve(ctx, "anything", 5)
	if err != nil {
		t.Fatalf("retrieve failed: %v", err)
	}
	if len(memories) != 0 {
		t.Errorf("expected no results from empty store, got %d", len(memories))
	}
}

// TestRetriever_TrustWeightedRanking is the end-to-end ranking scenario:
// a fresh strategic success must rank first and a 100-hour-old tactical
// failure must rank last (decay floored plus low outcome score).
func TestRetriever_TrustWeightedRanking(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	now := time.Now().UTC()
	vec := []float32{1, 0, 0}

	fresh := NewRecord("the strategy pivot paid off", SourceSystemLog, OutcomeSuccess, 0.5)
	fresh.CreatedAt = now.Add(-1 * time.Hour)
	fresh.Tier = TierStrategic
	fresh.Embedding = vec

	stale := NewRecord("rushed deploy broke the cache", SourceSystemLog, OutcomeFailure, 0.5)
	stale.CreatedAt = now.Add(-100 * time.Hour)
	stale.Tier = TierTactical
	stale.Embedding = vec

	recent := NewRecord("rotated the API keys", SourceSystemLog, OutcomeNeutral, 0.5)
	recent.CreatedAt = now.Add(-1 * time.Hour)
	recent.Tier = TierTactical
	recent.Embedding = vec

	for _, rec := range []Record{stale, fresh, recent} {
		if _, err := store.Append(ctx, rec); err != nil {
			t.Fatalf("failed to append record: %v", err)
		}
	}

	retriever := NewRetriever(store, &stubEmbedder{vec: vec})
	retriever.now = func() time.Time { return now }

	memories, err := retriever.Retrieve(ctx, "what should I do next", 2)
	if err != nil {
		t.Fatalf("retrieve failed: %v", err)
	}
	if len(memories) != 2 {
		t.Fatalf("expected 2 results, got %d", len(memories))
	}

	if memories[0].Content != fresh.Content {
		t.Errorf("expected the fresh strategic success first, got %q", memories[0].Content)
	}
	if memories[0].Tier != TierStrategic {
		t.Errorf("expected strategic tier tag, got %v", memories[0].Tier)
	}
	for _, m := range memories {
		if m.Content == stale.Content {
			t.Error("the stale tactical failure must rank last, not in the top 2")
		}
	}
}

// TestRetriever_SimilarityDominatesOverTrust verifies the scoring law is
// similarity-weighted, not pure trust order: a closely matching memory with
// modest trust outranks an unrelated one with high trust.
func TestRetriever_SimilarityDominatesOverTrust(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	now := time.Now().UTC()

	match := NewRecord("the postgres failover runbook", SourceSystemLog, OutcomeNeutral, 0.5)
	match.CreatedAt = now
	match.Embedding = []float32{1, 0}

	unrelated := NewRecord("the CEO approved the offsite", "Executive_Interaction", OutcomeSuccess, 0.5)
	unrelated.CreatedAt = now
	unrelated.Embedding = []float32{0, 1}

	for _, rec := range []Record{unrelated, match} {
		if _, err := store.Append(ctx, rec); err != nil {
			t.Fatalf("failed to append record: %v", err)
		}
	}

	retriever := NewRetriever(store, &stubEmbedder{vec: []float32{1, 0}})
	retriever.now = func() time.Time { return now }

	memories, err := retriever.Retrieve(ctx, "postgres failover", 2)
	if err != nil {
		t.Fatalf("retrieve failed: %v", err)
	}

	// match: 0.7*1.0 + 0.3*0.67 ≈ 0.90; unrelated: 0.7*0 + 0.3*1.0 = 0.30
	if memories[0].Content != match.Content {
		t.Errorf("expected similarity to dominate, got %q first", memories[0].Content)
	}
}

// TestRetriever_TiesBrokenByRecency verifies equal scores order by most
// recent creation time.
func TestRetriever_TiesBrokenByRecency(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	now := time.Now().UTC()
	vec := []float32{1, 0}

	older := NewRecord("first observation", SourceSystemLog, OutcomeNeutral, 0.5)
	older.CreatedAt = now.Add(-30 * time.Minute)
	older.Embedding = vec

	newer := NewRecord("second observation", SourceSystemLog, OutcomeNeutral, 0.5)
	newer.CreatedAt = now
	newer.Embedding = vec

	for _, rec := range []Record{older, newer} {
		if _, err := store.Append(ctx, rec); err != nil {
			t.Fatalf("failed to append record: %v", err)
		}
	}

	retriever := NewRetriever(store, &stubEmbedder{vec: vec})
	retriever.now = func() time.Time { return now }

	memories, err := retriever.Retrieve(ctx, "observation", 2)
	if err != nil {
		t.Fatalf("retrieve failed: %v", err)
	}
	if memories[0].Content != newer.Content {
		t.Errorf("expected the more recent record first on a tie, got %q", memories[0].Content)
	}
}
