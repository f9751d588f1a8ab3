package postprocess

import (
	"strings"

	"github.com/xxxsen/alimtalk/internal/model"
)

const (
	TemplateTypeBasic = "기본형"
	TemplateTypeExtra = "부가정보형"
	TemplateTypeInfo  = "정보형"
	TemplateTypeImage = "이미지형"
)

func TemplateTypes() []model.TemplateType {
	return []model.TemplateType{
		{Type: TemplateTypeBasic, Description: "기본적인 알림 메시지"},
		{Type: TemplateTypeExtra, Description: "버튼이나 추가 정보가 포함된 메시지"},
		{Type: TemplateTypeInfo, Description: "주문, 배송 등 구조화된 정보 메시지"},
		{Type: TemplateTypeImage, Description: "이미지가 포함된 메시지"},
	}
}

// ClassifyTemplateType picks a template type from keywords in the request.
func ClassifyTemplateType(userInput string) string {
	switch {
	case containsAny(userInput, "버튼", "링크", "확인"):
		return TemplateTypeExtra
	case containsAny(userInput, "이미지", "사진"):
		return TemplateTypeImage
	case containsAny(userInput, "주문", "배송", "결제"):
		return TemplateTypeInfo
	default:
		return TemplateTypeBasic
	}
}

func containsAny(s string, words ...string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}
