package postprocess

import (
	"math"
	"strings"
	"unicode/utf8"
)

// BasicTypeLengthLimit is the character limit of the basic AlimTalk message type.
const BasicTypeLengthLimit = 90

var prohibitedTerms = []string{
	"광고", "할인", "이벤트", "혜택", "쿠폰",
	"advertisement", "marketing", "discount", "event", "benefit",
}

// ComplianceScore is a heuristic in [0, 1]: -0.1 per advertising term, -0.2 when over the length limit.
func ComplianceScore(content string) float64 {
	score := 1.0
	lower := strings.ToLower(content)
	for _, term := range prohibitedTerms {
		if strings.Contains(lower, term) {
			score -= 0.1
		}
	}
	if utf8.RuneCountInString(content) > BasicTypeLengthLimit {
		score -= 0.2
	}
	score = math.Round(score*100) / 100
	if score < 0 {
		return 0
	}
	if score > 1 {
		return 1
	}
	return score
}
