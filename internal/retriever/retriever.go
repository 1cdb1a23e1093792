// Package retriever scores stored chunks against a query vector by
// cosine similarity and returns the best matches.
//
// The search is a linear scan over every stored vector, O(n·d) for n
// chunks of dimensionality d. That is the intended design at this
// corpus scale; sub-linear indexing would live behind the same
// function signature if it ever became necessary.
package retriever

import (
	"math"
	"sort"

	"github.com/ragstack/ragd/internal/store"
)

// Match pairs a stored chunk with its similarity to the query.
type Match struct {
	Chunk store.Chunk
	Score float64 // cosine similarity, non-negative after filtering
}

// Search returns up to k chunks ordered by descending similarity to
// the query vector. Chunks with negative similarity are treated as
// irrelevant and dropped altogether rather than ranked low. Ties keep
// their original scan order.
func Search(query []float32, chunks []store.Chunk, k int) []Match {
	if k <= 0 || len(chunks) == 0 {
		return nil
	}

	matches := make([]Match, 0, len(chunks))
	for _, c := range chunks {
		score := CosineSimilarity(query, c.Embedding)
		if score < 0 {
			continue
		}
		matches = append(matches, Match{Chunk: c, Score: score})
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})

	if len(matches) > k {
		matches = matches[:k]
	}
	return matches
}

// CosineSimilarity returns the dot product of a and b divided by the
// product of their Euclidean norms. A zero-norm vector (or a length
// mismatch) yields 0 rather than a division fault.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		normA += x * x
		normB += y * y
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
