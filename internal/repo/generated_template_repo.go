package repo

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/xxxsen/alimtalk/internal/model"
	"github.com/xxxsen/alimtalk/internal/pkg/dbutil"
)

type GeneratedTemplateRepo struct {
	db dbutil.Executor
}

func NewGeneratedTemplateRepo(db dbutil.Executor) *GeneratedTemplateRepo {
	return &GeneratedTemplateRepo{db: db}
}

func (r *GeneratedTemplateRepo) WithTx(tx *sql.Tx) *GeneratedTemplateRepo {
	return &GeneratedTemplateRepo{db: tx}
}

func (r *GeneratedTemplateRepo) Create(ctx context.Context, gen *model.GeneratedTemplate) (int64, error) {
	policies := gen.UsedPolicies
	if policies == nil {
		policies = []string{}
	}
	policiesJSON, _ := json.Marshal(policies)
	data := map[string]interface{}{
		"request_id":        gen.RequestID,
		"template_content":  gen.TemplateContent,
		"template_type":     gen.TemplateType,
		"compliance_score":  gen.ComplianceScore,
		"used_policies":     string(policiesJSON),
		"prompt_tokens":     gen.PromptTokens,
		"completion_tokens": gen.CompletionTokens,
		"total_tokens":      gen.TotalTokens,
		"token_cost":        gen.TokenCost,
		"ctime":             gen.Ctime,
	}
	id, err := dbutil.InsertReturningID(ctx, r.db, "generated_templates", data)
	if err != nil {
		return 0, err
	}
	gen.ID = id
	return id, nil
}
