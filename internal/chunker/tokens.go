package chunker

// isCJK reports whether the rune falls in the CJK unified ideograph block.
func isCJK(r rune) bool {
	return r >= 0x4e00 && r <= 0x9fff
}

// estimate computes the token approximation from script counts. CJK
// characters weigh roughly 1.5 chars per token, everything else roughly 4.
func estimate(cjk, other int) int {
	return int(float64(cjk)/1.5+float64(other)/4) + 1
}

// TruncateToTokens cuts text at the rune where the estimated token count
// first exceeds maxTokens. Text already within budget is returned unchanged.
func TruncateToTokens(text string, maxTokens int) string {
	var cjk, other int
	for i, r := range text {
		if isCJK(r) {
			cjk++
		} else {
			other++
		}
		if estimate(cjk, other) > maxTokens {
			return text[:i]
		}
	}
	return text
}

// EstimateTokens approximates the token count of text. The estimate is
// deterministic so every sizing decision in the pipeline is reproducible for
// identical input.
func EstimateTokens(text string) int {
	if text == "" {
		return 0
	}
	var cjk, other int
	for _, r := range text {
		if isCJK(r) {
			cjk++
		} else {
			other++
		}
	}
	return estimate(cjk, other)
}
