package postprocess

import (
	"strings"
	"unicode/utf8"

	"github.com/xxxsen/alimtalk/internal/model"
)

const (
	DisclaimerQuietHours = "야간 시간 (21시 ~ 익일 8시)에는 전송되지 않습니다."
	DisclaimerOptOut     = "수신거부 링크를 통해 언제든지 수신을 거부할 수 있습니다."

	defaultBusinessCode = "일반"
	defaultPurposeCode  = "안내"
	templateCodeLimit   = 10
)

// TemplateCode builds "<business>_<purpose>" with spaces and hyphens removed.
func TemplateCode(businessType, messagePurpose string) string {
	return codePart(businessType, defaultBusinessCode) + "_" + codePart(messagePurpose, defaultPurposeCode)
}

func codePart(s, fallback string) string {
	if s == "" {
		return fallback
	}
	s = strings.NewReplacer(" ", "", "-", "").Replace(s)
	if utf8.RuneCountInString(s) > templateCodeLimit {
		s = string([]rune(s)[:templateCodeLimit])
	}
	return s
}

// FormatContent renders the markdown body. Both disclaimers are always appended.
func FormatContent(code, content string, variables []model.Variable, notes string) string {
	var b strings.Builder
	b.WriteString("## 알림톡 템플릿\n\n")
	b.WriteString("**템플릿 코드:** " + code + "\n\n")
	b.WriteString("**템플릿 내용:**\n\n")
	b.WriteString(content + "\n")
	if len(variables) > 0 {
		b.WriteString("\n**변수:**\n\n")
		for _, v := range variables {
			b.WriteString("*   " + v.Placeholder + ": " + v.VariableKey + " (예: " + VariableExample(v.VariableKey) + ")\n")
		}
	}
	b.WriteString("\n**참고사항:**\n\n")
	b.WriteString("*   " + notes + "\n")
	b.WriteString("*   " + DisclaimerQuietHours + "\n")
	b.WriteString("*   " + DisclaimerOptOut + "\n")
	return b.String()
}
