package chunker

import "strings"

// separators is the cascading split order for oversized text: paragraph
// breaks, line breaks, then sentence and clause punctuation (CJK and latin).
var separators = []string{"\n\n", "\n", "。", ". ", "；", "; ", "，", ", "}

// recursiveSplit breaks text into fragments whose estimated token count is
// at most maxTokens, preferring the earliest separator that actually splits.
// Fragments are re-packed greedily so short sentences merge back up to the
// budget. When no separator splits the text a fixed-width character split
// with overlap is the last resort.
func recursiveSplit(text string, maxTokens, overlapTokens int) []string {
	if EstimateTokens(text) <= maxTokens {
		return []string{text}
	}

	parts := splitBySeparators(text, separators)
	if len(parts) <= 1 {
		return forceSplit(text, maxTokens, overlapTokens)
	}

	var result []string
	var buffer string
	for _, part := range parts {
		candidate := part
		if buffer != "" {
			candidate = strings.TrimSpace(buffer + "\n\n" + part)
		}
		if EstimateTokens(candidate) <= maxTokens {
			buffer = candidate
			continue
		}
		if buffer != "" {
			result = append(result, buffer)
		}
		if EstimateTokens(part) > maxTokens {
			result = append(result, recursiveSplit(part, maxTokens, overlapTokens)...)
			buffer = ""
		} else {
			buffer = part
		}
	}
	if buffer != "" {
		result = append(result, buffer)
	}
	return result
}

// splitBySeparators splits on the first separator that yields more than one
// non-blank part, falling through the cascade otherwise.
func splitBySeparators(text string, seps []string) []string {
	if len(seps) == 0 {
		return []string{text}
	}
	parts := make([]string, 0, 4)
	for _, p := range strings.Split(text, seps[0]) {
		if strings.TrimSpace(p) != "" {
			parts = append(parts, p)
		}
	}
	if len(parts) <= 1 && len(seps) > 1 {
		return splitBySeparators(text, seps[1:])
	}
	return parts
}

// forceSplit cuts text into windows sized by the token estimator, so a
// fragment stays within maxTokens regardless of script mix. Operates on
// runes so multi-byte text is never cut mid-character.
func forceSplit(text string, maxTokens, overlapTokens int) []string {
	if overlapTokens >= maxTokens {
		overlapTokens = maxTokens / 2
	}

	runes := []rune(text)
	var result []string
	start := 0
	for start < len(runes) {
		end := windowEnd(runes, start, maxTokens)
		result = append(result, string(runes[start:end]))
		if end == len(runes) {
			break
		}
		next := overlapStart(runes, end, overlapTokens)
		if next <= start {
			next = end
		}
		start = next
	}
	return result
}

// windowEnd extends a window from start until the next rune would push its
// estimated token count past the budget. At least one rune always fits.
func windowEnd(runes []rune, start, budget int) int {
	var cjk, other int
	i := start
	for i < len(runes) {
		c, o := cjk, other
		if isCJK(runes[i]) {
			c++
		} else {
			o++
		}
		if estimate(c, o) > budget && i > start {
			break
		}
		cjk, other = c, o
		i++
	}
	return i
}

// overlapStart walks back from end until the tail holds the overlap token
// budget.
func overlapStart(runes []rune, end, overlapTokens int) int {
	var cjk, other int
	i := end
	for i > 0 {
		c, o := cjk, other
		if isCJK(runes[i-1]) {
			c++
		} else {
			o++
		}
		if estimate(c, o) > overlapTokens {
			break
		}
		cjk, other = c, o
		i--
	}
	return i
}
