package memory

import (
	"context"
	"fmt"
	"sort"
	"time"
)

// Embedder is the external collaborator that maps text into the store's
// similarity space. It must be deterministic for the same input within a
// session and emit a fixed dimensionality for the lifetime of a store.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// RetrievedMemory is one ranked retrieval result, tagged with its tier for
// presentation.
type RetrievedMemory struct {
	Content string
	Score   float64
	Tier    Tier
}

// Retriever performs trust-weighted semantic retrieval over a Store.
//
// Scoring law: 0.7*cosine_similarity + 0.3*trust. Pure similarity is not
// enough — an apt-sounding but untrustworthy memory must be down-weighted,
// so trust is recomputed at query time and folded into the rank.
type Retriever struct {
	store    Store
	embedder Embedder
	now      func() time.Time
}

// NewRetriever creates a retriever over the given store and embedder.
func NewRetriever(store Store, embedder Embedder) *Retriever {
	return &Retriever{store: store, embedder: embedder, now: time.Now}
}

// Retrieve embeds the query, scores every stored record and returns the
// topK best matches in descending score order. Ties are broken by most
// recent creation time. An empty store yields an empty result, not an error.
func (r *Retriever) Retrieve(ctx context.Context, query string, topK int) ([]RetrievedMemory, error) {
	records, err := r.store.All(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load records: %w", err)
	}
	if len(records) == 0 || topK <= 0 {
		return []RetrievedMemory{}, nil
	}

	queryVec, err := r.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	now := r.now()

	type scored struct {
		rec   Record
		score float64
	}
	results := make([]scored, 0, len(records))
	for _, rec := range records {
		similarity := CosineSimilarity(queryVec, rec.Embedding)
		score := 0.7*similarity + 0.3*TrustScore(rec, now)
		results = append(results, scored{rec: rec, score: score})
	}

	sort.SliceStable(results, func(i, j int) bool {
		if results[i].score != results[j].score {
			return results[i].score > results[j].score
		}
		return results[i].rec.CreatedAt.After(results[j].rec.CreatedAt)
	})

	if topK > len(results) {
		topK = len(results)
	}
	memories := make([]RetrievedMemory, topK)
	for i := 0; i < topK; i++ {
		memories[i] = RetrievedMemory{
			Content: results[i].rec.Content,
			Score:   results[i].score,
			Tier:    results[i].rec.Tier,
		}
	}

	return memories, nil
}
