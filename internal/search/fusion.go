// Package search implements the retrieval pipeline: concurrent multi-path
// recall, reciprocal-rank fusion, reranking and parent-context resolution.
package search

import "sort"

// RRFK is the rank-smoothing constant. RRF weights by rank position only,
// which is what lets text-relevance, inner-product and cosine lists fuse
// without score normalization.
const RRFK = 60

// RankedItem is one entry of a single recall path's ranked list.
type RankedItem struct {
	ChunkID string
	Score   float64 // raw path score, kept for diagnostics only
	Source  string
}

// FusedItem is one chunk after fusion, with the set of paths that found it.
type FusedItem struct {
	ChunkID string
	Score   float64
	Sources []string
}

// Fuse merges ranked lists by reciprocal-rank fusion: each appearance adds
// 1/(k + rank + 1) with zero-based rank. Output is sorted by fused score
// descending (chunk id breaks ties deterministically) and truncated to topN;
// topN <= 0 means no truncation.
func Fuse(lists [][]RankedItem, k, topN int) []FusedItem {
	if k <= 0 {
		k = RRFK
	}
	scores := make(map[string]float64)
	sources := make(map[string]map[string]bool)

	for _, list := range lists {
		for rank, item := range list {
			if item.ChunkID == "" {
				continue
			}
			scores[item.ChunkID] += 1.0 / float64(k+rank+1)
			if sources[item.ChunkID] == nil {
				sources[item.ChunkID] = make(map[string]bool)
			}
			if item.Source != "" {
				sources[item.ChunkID][item.Source] = true
			}
		}
	}

	fused := make([]FusedItem, 0, len(scores))
	for id, score := range scores {
		labels := make([]string, 0, len(sources[id]))
		for s := range sources[id] {
			labels = append(labels, s)
		}
		sort.Strings(labels)
		fused = append(fused, FusedItem{ChunkID: id, Score: score, Sources: labels})
	}

	sort.Slice(fused, func(i, j int) bool {
		if fused[i].Score != fused[j].Score {
			return fused[i].Score > fused[j].Score
		}
		return fused[i].ChunkID < fused[j].ChunkID
	})
	if topN > 0 && len(fused) > topN {
		fused = fused[:topN]
	}
	return fused
}
