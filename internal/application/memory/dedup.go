package memory

import (
	"github.com/johnbuck/voxbridge/internal/domain/models"
	"github.com/johnbuck/voxbridge/internal/ports"
)

// isDuplicateText checks factText against the text of already-valid facts
// (validity_end IS NULL is the caller's responsibility to have filtered
// for), using textSimilarity as the Go stand-in for difflib's
// SequenceMatcher ratio. Grounded on _is_duplicate's text-based fallback.
func isDuplicateText(factText string, existing []models.UserFact, threshold float64) bool {
	for _, f := range existing {
		if f.ValidityEnd != nil {
			continue
		}
		if textSimilarity(factText, f.FactText) >= threshold {
			return true
		}
	}
	return false
}

// isDuplicateEmbedding checks factText's nearest vector-store neighbors
// (already fetched by the caller via Pool.Search) against threshold.
// Grounded on _is_duplicate's embedding-based primary path (Mem0 search +
// embedding_similarity_threshold); the vector store's Score is assumed to be
// a cosine-similarity-like value in [0,1], higher meaning more similar.
func isDuplicateEmbedding(results []ports.NormalizedItem, threshold float64) bool {
	for _, r := range results {
		if r.Score >= threshold {
			return true
		}
	}
	return false
}
