package draft

import (
	"bytes"
	"encoding/json"
	"regexp"
	"strconv"
	"strings"

	"github.com/xxxsen/alimtalk/internal/model"
	appErr "github.com/xxxsen/alimtalk/internal/pkg/errors"
)

type Tier string

const (
	TierFenced  Tier = "fenced"
	TierBracket Tier = "bracket"
)

var fencedPattern = regexp.MustCompile("(?s)```[A-Za-z]*[ \t]*\r?\n?(.*?)```")

type attempt struct {
	tier    Tier
	extract func(raw string) (string, bool)
}

// attempts run in order; the first tier whose text decodes to an object wins.
var attempts = []attempt{
	{tier: TierFenced, extract: extractFenced},
	{tier: TierBracket, extract: extractBracket},
}

func Parse(raw string) (*model.TemplateDraft, error) {
	d, _, err := ParseWithTier(raw)
	return d, err
}

func ParseWithTier(raw string) (*model.TemplateDraft, Tier, error) {
	for _, a := range attempts {
		body, ok := a.extract(raw)
		if !ok {
			continue
		}
		fields, ok := decodeObject(body)
		if !ok {
			continue
		}
		return toDraft(fields), a.tier, nil
	}
	return nil, "", &appErr.UnparsableResponseError{Raw: raw}
}

func extractFenced(raw string) (string, bool) {
	m := fencedPattern.FindStringSubmatch(raw)
	if len(m) < 2 {
		return "", false
	}
	body := strings.TrimSpace(m[1])
	return body, body != ""
}

func extractBracket(raw string) (string, bool) {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start < 0 || end <= start {
		return "", false
	}
	return raw[start : end+1], true
}

func decodeObject(body string) (map[string]interface{}, bool) {
	dec := json.NewDecoder(bytes.NewReader([]byte(body)))
	dec.UseNumber()
	var fields map[string]interface{}
	if err := dec.Decode(&fields); err != nil || fields == nil {
		return nil, false
	}
	return fields, true
}

func toDraft(fields map[string]interface{}) *model.TemplateDraft {
	content := fieldString(fields, "template_content")
	if content == "" {
		content = fieldString(fields, "content")
	}
	return &model.TemplateDraft{
		Title:           fieldString(fields, "title"),
		TemplateContent: content,
		ComplianceNotes: fieldString(fields, "compliance_notes"),
	}
}

func fieldString(fields map[string]interface{}, key string) string {
	switch v := fields[key].(type) {
	case string:
		return v
	case json.Number:
		return v.String()
	case bool:
		return strconv.FormatBool(v)
	case []interface{}:
		parts := make([]string, 0, len(v))
		for _, item := range v {
			s, ok := item.(string)
			if !ok {
				continue
			}
			parts = append(parts, s)
		}
		return strings.Join(parts, "\n")
	default:
		return ""
	}
}
