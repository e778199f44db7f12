package search

import "github.com/Xerophayze/ragstore/embed"

// rerankMMR selects topK candidates by Maximal Marginal Relevance: each
// round picks the candidate maximizing
//
//	lambda*sim(c, query) - (1-lambda)*max(sim(c, selected))
//
// The first pick carries no diversity penalty. Ties resolve to the first
// maximal candidate in list order, which keeps the selection stable.
// Pure top-K by similarity tends to return near-duplicate chunks from the
// same passage; MMR trades a little relevance for coverage.
func rerankMMR(query []float32, candidates []candidate, topK int) []candidate {
	if topK >= len(candidates) {
		return candidates
	}

	relevance := make([]float64, len(candidates))
	for i, c := range candidates {
		relevance[i] = embed.Dot(query, c.vec)
	}

	selected := make([]candidate, 0, topK)
	picked := make([]bool, len(candidates))

	for len(selected) < topK {
		bestIdx := -1
		bestScore := 0.0
		for i, c := range candidates {
			if picked[i] {
				continue
			}

			diversity := 0.0
			for _, s := range selected {
				if sim := embed.Dot(c.vec, s.vec); sim > diversity {
					diversity = sim
				}
			}

			score := mmrLambda*relevance[i] - (1-mmrLambda)*diversity
			if bestIdx == -1 || score > bestScore {
				bestIdx = i
				bestScore = score
			}
		}
		if bestIdx == -1 {
			break
		}
		picked[bestIdx] = true
		selected = append(selected, candidates[bestIdx])
	}
	return selected
}
