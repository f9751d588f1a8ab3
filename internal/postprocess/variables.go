package postprocess

import (
	"regexp"
	"strings"

	"github.com/xxxsen/alimtalk/internal/model"
)

var placeholderPattern = regexp.MustCompile(`#\{([^}]+)\}`)

// ExtractVariables collects distinct #{name} tokens in first-seen order.
func ExtractVariables(content string) []model.Variable {
	matches := placeholderPattern.FindAllStringSubmatch(content, -1)
	out := make([]model.Variable, 0, len(matches))
	seen := make(map[string]struct{}, len(matches))
	for _, m := range matches {
		name := m[1]
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		out = append(out, model.Variable{
			ID:          len(out) + 1,
			VariableKey: name,
			Placeholder: "#{" + name + "}",
			InputType:   model.VariableInputTypeText,
		})
	}
	return out
}

type variableExample struct {
	keyword string
	example string
}

// checked in order; a key matches when it contains the keyword
var variableExamples = []variableExample{
	{keyword: "고객명", example: "홍길동"},
	{keyword: "업체명", example: "㈜패스트캠퍼스"},
	{keyword: "수신거부링크", example: "https://example.com/unsubscribe"},
	{keyword: "일시", example: "2025년 9월 5일 (금) 20시"},
	{keyword: "장소", example: "서울 강남구 역삼로 186, 6층"},
	{keyword: "주문번호", example: "20250905001"},
	{keyword: "금액", example: "25,000원"},
	{keyword: "배송상태", example: "배송중"},
	{keyword: "내용", example: "상세 내용"},
}

const defaultVariableExample = "예시 값"

func VariableExample(key string) string {
	for _, item := range variableExamples {
		if strings.Contains(key, item.keyword) {
			return item.example
		}
	}
	return defaultVariableExample
}
