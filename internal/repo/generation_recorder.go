package repo

import (
	"context"
	"database/sql"
	"time"

	"github.com/xxxsen/alimtalk/internal/model"
	"github.com/xxxsen/alimtalk/internal/pkg/dbutil"
)

// GenerationRecorder writes a request, its generated template and the daily token stats in one transaction.
type GenerationRecorder struct {
	db        *sql.DB
	requests  *TemplateRequestRepo
	templates *GeneratedTemplateRepo
	usage     *TokenUsageRepo
}

func NewGenerationRecorder(db *sql.DB) *GenerationRecorder {
	return &GenerationRecorder{
		db:        db,
		requests:  NewTemplateRequestRepo(db),
		templates: NewGeneratedTemplateRepo(db),
		usage:     NewTokenUsageRepo(db),
	}
}

func (r *GenerationRecorder) SaveGeneration(ctx context.Context, req *model.TemplateRequest, gen *model.GeneratedTemplate) (int64, error) {
	var requestID int64
	err := dbutil.InTx(ctx, r.db, func(tx *sql.Tx) error {
		id, err := r.requests.WithTx(tx).Create(ctx, req)
		if err != nil {
			return err
		}
		gen.RequestID = id
		if _, err := r.templates.WithTx(tx).Create(ctx, gen); err != nil {
			return err
		}
		usage := model.TokenUsage{
			PromptTokens:     gen.PromptTokens,
			CompletionTokens: gen.CompletionTokens,
			TotalTokens:      gen.TotalTokens,
			Cost:             gen.TokenCost,
		}
		if err := r.usage.WithTx(tx).AddDaily(ctx, usageDay(req.Ctime), usage); err != nil {
			return err
		}
		requestID = id
		return nil
	})
	if err != nil {
		return 0, err
	}
	return requestID, nil
}

func usageDay(ctimeMillis int64) string {
	if ctimeMillis == 0 {
		return time.Now().Format(time.DateOnly)
	}
	return time.UnixMilli(ctimeMillis).Format(time.DateOnly)
}
