package service

import (
	"strings"

	"github.com/xxxsen/alimtalk/internal/model"
)

const systemInstruction = "You are an expert in KakaoTalk AlimTalk template creation, specialized in Korean business communication and compliance."

const noPolicyContext = "(검색된 관련 정책이 없습니다. 카카오 알림톡 기본 정책과 정보통신망법 기준만 적용하세요.)"

// buildPolicyContext renders retrieved chunks as "[category]\ntext" blocks.
func buildPolicyContext(rc *model.RetrievedContext) string {
	if rc.Len() == 0 {
		return ""
	}
	parts := make([]string, 0, len(rc.Items))
	for _, item := range rc.Items {
		parts = append(parts, "["+item.Chunk.Category+"]\n"+item.Chunk.Text)
	}
	return strings.Join(parts, "\n\n")
}

func buildPrompt(in *GenerateInput, policyContext string) string {
	if strings.TrimSpace(policyContext) == "" {
		policyContext = noPolicyContext
	}
	var b strings.Builder
	b.WriteString("당신은 카카오 알림톡 템플릿 전문가입니다. 다음 요청에 따라 정책을 준수하는 알림톡 템플릿을 생성해주세요.\n\n")
	b.WriteString("사용자 요청: " + in.UserInput + "\n")
	b.WriteString("업종: " + in.BusinessType + "\n")
	b.WriteString("메시지 목적: " + in.MessagePurpose + "\n\n")
	b.WriteString("참고할 카카오 알림톡 정책:\n")
	b.WriteString(policyContext + "\n\n")
	b.WriteString("요구사항:\n")
	b.WriteString("1. 위 정책을 반드시 준수해야 하며, 정책 내용에 근거하여 작성하세요\n")
	b.WriteString("2. 변수는 #{변수명} 형태로 표시하세요\n")
	b.WriteString("3. 자연스러운 한국어로 작성하세요\n")
	b.WriteString("4. 수신거부 링크를 포함하세요\n")
	b.WriteString("5. 야간 전송 제한을 안내하세요\n")
	b.WriteString("6. 정보통신망법을 준수하세요\n\n")
	b.WriteString("응답 형식 (JSON):\n")
	b.WriteString("{\n")
	b.WriteString("    \"title\": \"템플릿 제목 (첫 줄 일부)\",\n")
	b.WriteString("    \"template_content\": \"실제 알림톡 템플릿 내용\",\n")
	b.WriteString("    \"compliance_notes\": \"정책 준수 관련 참고사항\"\n")
	b.WriteString("}")
	return b.String()
}
