package repo

import (
	"context"
	"database/sql"

	"github.com/xxxsen/alimtalk/internal/model"
	"github.com/xxxsen/alimtalk/internal/pkg/dbutil"
)

type TokenUsageRepo struct {
	db dbutil.Executor
}

func NewTokenUsageRepo(db dbutil.Executor) *TokenUsageRepo {
	return &TokenUsageRepo{db: db}
}

func (r *TokenUsageRepo) WithTx(tx *sql.Tx) *TokenUsageRepo {
	return &TokenUsageRepo{db: tx}
}

// AddDaily adds one request and its token usage to the stats row of day (YYYY-MM-DD).
func (r *TokenUsageRepo) AddDaily(ctx context.Context, day string, usage model.TokenUsage) error {
	const query = `
		INSERT INTO token_usage_stats (day, total_requests, total_prompt_tokens, total_completion_tokens, total_tokens, total_cost)
		VALUES ($1, 1, $2, $3, $4, $5)
		ON CONFLICT (day) DO UPDATE SET
			total_requests = token_usage_stats.total_requests + 1,
			total_prompt_tokens = token_usage_stats.total_prompt_tokens + EXCLUDED.total_prompt_tokens,
			total_completion_tokens = token_usage_stats.total_completion_tokens + EXCLUDED.total_completion_tokens,
			total_tokens = token_usage_stats.total_tokens + EXCLUDED.total_tokens,
			total_cost = token_usage_stats.total_cost + EXCLUDED.total_cost
	`
	_, err := r.db.ExecContext(ctx, query, day, usage.PromptTokens, usage.CompletionTokens, usage.TotalTokens, usage.Cost)
	return err
}

type DailyTokenUsage struct {
	Day      string           `json:"day"`
	Requests int              `json:"requests"`
	Usage    model.TokenUsage `json:"usage"`
}

func (r *TokenUsageRepo) GetDaily(ctx context.Context, day string) (*DailyTokenUsage, error) {
	const query = `
		SELECT total_requests, total_prompt_tokens, total_completion_tokens, total_tokens, total_cost
		FROM token_usage_stats
		WHERE day = $1
	`
	out := &DailyTokenUsage{Day: day}
	err := r.db.QueryRowContext(ctx, query, day).Scan(
		&out.Requests,
		&out.Usage.PromptTokens,
		&out.Usage.CompletionTokens,
		&out.Usage.TotalTokens,
		&out.Usage.Cost,
	)
	if err == sql.ErrNoRows {
		return out, nil
	}
	if err != nil {
		return nil, err
	}
	return out, nil
}
