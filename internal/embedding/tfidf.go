package embedding

import (
	"crypto/md5"
	"encoding/binary"
	"math"
	"regexp"
	"sort"
	"strings"
)

// SparseVector maps term ids to weights. Ids live in uint32 space to match
// the vector store's sparse index keys.
type SparseVector map[uint32]float32

// maxSparseDims caps each vector at its top weighted dimensions.
const maxSparseDims = 256

// emptySentinel keeps empty-text vectors non-empty so the store accepts them.
const emptySentinel = "__empty__"

var tokenRe = regexp.MustCompile(`[\p{L}\p{N}_]+`)

// tokenize lowercases and extracts word runs. CJK text tokenizes as runs of
// adjacent characters, which is coarse but deterministic; the TF-IDF tier is
// a degrade path, not the primary sparse model.
func tokenize(text string) []string {
	return tokenRe.FindAllString(strings.ToLower(text), -1)
}

// TermID hashes a term into a stable uint32 id.
func TermID(term string) uint32 {
	sum := md5.Sum([]byte(term))
	return binary.BigEndian.Uint32(sum[:4])
}

// TFIDF is the in-process sparse tier. It weights terms by term frequency
// times inverse document frequency across the current batch only, keeping
// the tier stateless across calls.
type TFIDF struct{}

// Embed produces one sparse vector per input text. It never fails: empty
// text gets a sentinel dimension with a near-zero weight.
func (TFIDF) Embed(texts []string) []SparseVector {
	if len(texts) == 0 {
		return nil
	}

	allTokens := make([][]string, len(texts))
	docFreq := make(map[string]int)
	for i, t := range texts {
		allTokens[i] = tokenize(t)
		seen := make(map[string]bool, len(allTokens[i]))
		for _, tok := range allTokens[i] {
			if !seen[tok] {
				seen[tok] = true
				docFreq[tok]++
			}
		}
	}

	nDocs := float64(len(texts))
	results := make([]SparseVector, len(texts))
	for i, tokens := range allTokens {
		if len(tokens) == 0 {
			results[i] = SparseVector{TermID(emptySentinel): 0.01}
			continue
		}

		tf := make(map[string]int, len(tokens))
		for _, tok := range tokens {
			tf[tok]++
		}
		total := float64(len(tokens))

		vec := make(SparseVector, len(tf))
		for term, count := range tf {
			tfVal := float64(count) / total
			idfVal := math.Log((nDocs+1)/float64(docFreq[term]+1)) + 1.0
			if w := tfVal * idfVal; w > 1e-6 {
				vec[TermID(term)] = float32(w)
			}
		}

		if len(vec) > maxSparseDims {
			vec = topDims(vec, maxSparseDims)
		}
		if len(vec) == 0 {
			vec = SparseVector{TermID(emptySentinel): 0.01}
		}
		results[i] = vec
	}
	return results
}

// topDims keeps the n highest-weighted dimensions of vec.
func topDims(vec SparseVector, n int) SparseVector {
	type dim struct {
		id uint32
		w  float32
	}
	dims := make([]dim, 0, len(vec))
	for id, w := range vec {
		dims = append(dims, dim{id, w})
	}
	sort.Slice(dims, func(i, j int) bool { return dims[i].w > dims[j].w })
	out := make(SparseVector, n)
	for _, d := range dims[:n] {
		out[d.id] = d.w
	}
	return out
}
