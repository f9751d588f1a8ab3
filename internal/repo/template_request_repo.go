package repo

import (
	"context"
	"database/sql"

	"github.com/xxxsen/alimtalk/internal/model"
	"github.com/xxxsen/alimtalk/internal/pkg/dbutil"
)

type TemplateRequestRepo struct {
	db dbutil.Executor
}

func NewTemplateRequestRepo(db dbutil.Executor) *TemplateRequestRepo {
	return &TemplateRequestRepo{db: db}
}

func (r *TemplateRequestRepo) WithTx(tx *sql.Tx) *TemplateRequestRepo {
	return &TemplateRequestRepo{db: tx}
}

func (r *TemplateRequestRepo) Create(ctx context.Context, req *model.TemplateRequest) (int64, error) {
	data := map[string]interface{}{
		"user_input":      req.UserInput,
		"business_type":   req.BusinessType,
		"message_purpose": req.MessagePurpose,
		"ctime":           req.Ctime,
	}
	id, err := dbutil.InsertReturningID(ctx, r.db, "template_requests", data)
	if err != nil {
		return 0, err
	}
	req.ID = id
	return id, nil
}
