package model

type TemplateRequest struct {
	ID             int64  `json:"id"`
	UserInput      string `json:"user_input"`
	BusinessType   string `json:"business_type"`
	MessagePurpose string `json:"message_purpose"`
	Ctime          int64  `json:"ctime"`
}

type GeneratedTemplate struct {
	ID               int64    `json:"id"`
	RequestID        int64    `json:"request_id"`
	TemplateContent  string   `json:"template_content"`
	TemplateType     string   `json:"template_type"`
	ComplianceScore  float64  `json:"compliance_score"`
	UsedPolicies     []string `json:"used_policies"`
	PromptTokens     int      `json:"prompt_tokens"`
	CompletionTokens int      `json:"completion_tokens"`
	TotalTokens      int      `json:"total_tokens"`
	TokenCost        float64  `json:"token_cost"`
	Ctime            int64    `json:"ctime"`
}

type TokenUsage struct {
	PromptTokens     int     `json:"prompt_tokens"`
	CompletionTokens int     `json:"completion_tokens"`
	TotalTokens      int     `json:"total_tokens"`
	Cost             float64 `json:"token_cost"`
}

func (u TokenUsage) Add(other TokenUsage) TokenUsage {
	return TokenUsage{
		PromptTokens:     u.PromptTokens + other.PromptTokens,
		CompletionTokens: u.CompletionTokens + other.CompletionTokens,
		TotalTokens:      u.TotalTokens + other.TotalTokens,
		Cost:             u.Cost + other.Cost,
	}
}
