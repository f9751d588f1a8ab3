package job

import (
	"context"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/alimtalk/internal/repo"
)

type DailyUsageReader interface {
	GetDaily(ctx context.Context, day string) (*repo.DailyTokenUsage, error)
}

// TokenUsageReportJob logs the previous day's generation token usage and cost.
type TokenUsageReportJob struct {
	reader DailyUsageReader
	now    func() time.Time
}

func NewTokenUsageReportJob(reader DailyUsageReader) *TokenUsageReportJob {
	return &TokenUsageReportJob{reader: reader, now: time.Now}
}

func (j *TokenUsageReportJob) Name() string {
	return "token_usage_report"
}

func (j *TokenUsageReportJob) Run(ctx context.Context) error {
	if j.reader == nil {
		return nil
	}
	day := j.now().AddDate(0, 0, -1).Format(time.DateOnly)
	stats, err := j.reader.GetDaily(ctx, day)
	if err != nil {
		return err
	}
	logutil.GetLogger(ctx).Info("daily token usage",
		zap.String("day", stats.Day),
		zap.Int("requests", stats.Requests),
		zap.Int("prompt_tokens", stats.Usage.PromptTokens),
		zap.Int("completion_tokens", stats.Usage.CompletionTokens),
		zap.Int("total_tokens", stats.Usage.TotalTokens),
		zap.Float64("cost_usd", stats.Usage.Cost),
	)
	return nil
}
