package indexer

import (
	"path/filepath"
	"strings"
)

const (
	CategoryContentGuide  = "콘텐츠가이드"
	CategoryAuditBlocked  = "심사정책-금지사항"
	CategoryAuditAllowed  = "심사정책-허용사항"
	CategoryAudit         = "심사정책"
	CategoryOperations    = "운영정책"
	CategoryPublicSamples = "공용템플릿"
	CategoryBasicPolicy   = "알림톡기본정책"
	CategoryGeneral       = "기타정책"
)

// ClassifyFile maps a policy document file name to its category.
func ClassifyFile(name string) string {
	stem := strings.ToLower(strings.TrimSuffix(filepath.Base(name), filepath.Ext(name)))
	switch {
	case strings.Contains(stem, "content-guide"):
		return CategoryContentGuide
	case strings.Contains(stem, "audit"):
		if strings.Contains(stem, "black-list") {
			return CategoryAuditBlocked
		}
		if strings.Contains(stem, "white-list") {
			return CategoryAuditAllowed
		}
		return CategoryAudit
	case strings.Contains(stem, "operations"):
		return CategoryOperations
	case strings.Contains(stem, "publictemplate"):
		return CategoryPublicSamples
	case strings.Contains(stem, "infotalk"):
		return CategoryBasicPolicy
	default:
		return CategoryGeneral
	}
}
