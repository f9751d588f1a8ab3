package postprocess

import "strings"

const DefaultCategoryID int64 = 9101

type CategoryRule struct {
	BusinessType   string
	MessagePurpose string
	CategoryID     int64
}

// CategoryTable maps business/purpose hints to a category id.
// An empty rule field matches any value.
type CategoryTable struct {
	defaultID int64
	rules     []CategoryRule
}

func NewCategoryTable(defaultID int64, rules []CategoryRule) *CategoryTable {
	if defaultID == 0 {
		defaultID = DefaultCategoryID
	}
	cp := make([]CategoryRule, len(rules))
	copy(cp, rules)
	return &CategoryTable{defaultID: defaultID, rules: cp}
}

func (t *CategoryTable) Resolve(businessType, messagePurpose string) int64 {
	if t == nil {
		return DefaultCategoryID
	}
	bt := strings.TrimSpace(businessType)
	mp := strings.TrimSpace(messagePurpose)
	for _, r := range t.rules {
		if r.BusinessType == "" && r.MessagePurpose == "" {
			continue
		}
		if r.BusinessType != "" && r.BusinessType != bt {
			continue
		}
		if r.MessagePurpose != "" && r.MessagePurpose != mp {
			continue
		}
		return r.CategoryID
	}
	return t.defaultID
}

func (t *CategoryTable) DefaultID() int64 {
	if t == nil {
		return DefaultCategoryID
	}
	return t.defaultID
}
