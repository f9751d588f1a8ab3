package postprocess

import "github.com/xxxsen/alimtalk/internal/model"

// DefaultResultID is used when the result has not been persisted.
const DefaultResultID int64 = 1

type AssembleInput struct {
	ID             int64
	UserID         int64
	CategoryID     int64
	BusinessType   string
	MessagePurpose string
	Title          string
	Content        string
	Variables      []model.Variable
}

func Assemble(in AssembleInput) *model.TemplateResult {
	id := in.ID
	if id == 0 {
		id = DefaultResultID
	}
	variables := in.Variables
	if variables == nil {
		variables = []model.Variable{}
	}
	return &model.TemplateResult{
		ID:         id,
		UserID:     in.UserID,
		CategoryID: in.CategoryID,
		Title:      in.Title,
		Content:    in.Content,
		ImageURL:   nil,
		Type:       model.TemplateTypeMessage,
		Buttons:    []interface{}{},
		Variables:  variables,
		Industries: singleOrEmpty(in.BusinessType),
		Purposes:   singleOrEmpty(in.MessagePurpose),
	}
}

// Process runs extraction, formatting and assembly for one parsed draft.
func Process(d *model.TemplateDraft, categories *CategoryTable, userID int64, businessType, messagePurpose string) *model.TemplateResult {
	if d == nil {
		d = &model.TemplateDraft{}
	}
	variables := ExtractVariables(d.TemplateContent)
	code := TemplateCode(businessType, messagePurpose)
	return Assemble(AssembleInput{
		UserID:         userID,
		CategoryID:     categories.Resolve(businessType, messagePurpose),
		BusinessType:   businessType,
		MessagePurpose: messagePurpose,
		Title:          d.Title,
		Content:        FormatContent(code, d.TemplateContent, variables, d.ComplianceNotes),
		Variables:      variables,
	})
}

func singleOrEmpty(s string) []string {
	if s == "" {
		return []string{}
	}
	return []string{s}
}
