package model

const (
	TemplateTypeMessage   = "MESSAGE"
	VariableInputTypeText = "TEXT"
)

type TemplateDraft struct {
	Title           string `json:"title"`
	TemplateContent string `json:"template_content"`
	ComplianceNotes string `json:"compliance_notes"`
}

type Variable struct {
	ID          int    `json:"id"`
	VariableKey string `json:"variableKey"`
	Placeholder string `json:"placeholder"`
	InputType   string `json:"inputType"`
}

type TemplateResult struct {
	ID         int64         `json:"id"`
	UserID     int64         `json:"userId"`
	CategoryID int64         `json:"categoryId"`
	Title      string        `json:"title"`
	Content    string        `json:"content"`
	ImageURL   *string       `json:"imageUrl"`
	Type       string        `json:"type"`
	Buttons    []interface{} `json:"buttons"`
	Variables  []Variable    `json:"variables"`
	Industries []string      `json:"industries"`
	Purposes   []string      `json:"purposes"`
}

type TemplateType struct {
	Type        string `json:"type"`
	Description string `json:"description"`
}
