package ai

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	appErr "github.com/xxxsen/alimtalk/internal/pkg/errors"
)

type Outcome int

const (
	OutcomeSuccess Outcome = iota
	OutcomeTimeout
	OutcomeError
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSuccess:
		return "success"
	case OutcomeTimeout:
		return "timeout"
	default:
		return "error"
	}
}

// Pricing holds USD prices per 1K tokens.
type Pricing struct {
	InputPer1K  float64
	OutputPer1K float64
}

func (p Pricing) Cost(promptTokens, completionTokens int) float64 {
	cost := float64(promptTokens)/1000*p.InputPer1K + float64(completionTokens)/1000*p.OutputPer1K
	return math.Round(cost*1e6) / 1e6
}

type ClientConfig struct {
	MaxTokens   int
	Temperature float32
	Timeout     time.Duration
	MaxRetries  int
	Backoff     time.Duration
	Pricing     Pricing
}

type attemptResult struct {
	outcome Outcome
	resp    *GenerateResponse
	err     error
}

// Client wraps a generator with a per-attempt timeout and at most one retry.
type Client struct {
	gen   IGenerator
	cfg   ClientConfig
	sleep func(ctx context.Context, d time.Duration) error
}

func NewClient(gen IGenerator, cfg ClientConfig) *Client {
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.MaxRetries > 1 {
		cfg.MaxRetries = 1
	}
	return &Client{gen: gen, cfg: cfg, sleep: sleepContext}
}

func (c *Client) ModelName() string {
	return c.gen.ModelName()
}

func (c *Client) Generate(ctx context.Context, system string, prompt string) (*GenerateResponse, error) {
	logger := logutil.GetLogger(ctx).With(zap.String("model", c.gen.ModelName()))
	req := &GenerateRequest{
		System:      system,
		Prompt:      prompt,
		MaxTokens:   c.cfg.MaxTokens,
		Temperature: c.cfg.Temperature,
	}
	attempts := 1 + c.cfg.MaxRetries
	var last attemptResult
	for i := 0; i < attempts; i++ {
		last = c.attempt(ctx, req)
		if last.outcome == OutcomeSuccess {
			resp := last.resp
			if resp.Usage.TotalTokens == 0 {
				resp.Usage.TotalTokens = resp.Usage.PromptTokens + resp.Usage.CompletionTokens
			}
			resp.Usage.Cost = c.cfg.Pricing.Cost(resp.Usage.PromptTokens, resp.Usage.CompletionTokens)
			logger.Debug("generation finished",
				zap.Int("attempt", i+1),
				zap.Int("prompt_tokens", resp.Usage.PromptTokens),
				zap.Int("completion_tokens", resp.Usage.CompletionTokens),
			)
			return resp, nil
		}
		if ctx.Err() != nil {
			return nil, fmt.Errorf("%w: %w", appErr.ErrGenerationUnavailable, ctx.Err())
		}
		if i+1 >= attempts || !IsRetryable(last.err) {
			break
		}
		logger.Warn("generation attempt failed, retrying",
			zap.Int("attempt", i+1),
			zap.String("outcome", last.outcome.String()),
			zap.Error(last.err),
		)
		if err := c.sleep(ctx, c.cfg.Backoff); err != nil {
			return nil, fmt.Errorf("%w: %w", appErr.ErrGenerationUnavailable, err)
		}
	}
	logger.Error("generation failed",
		zap.String("outcome", last.outcome.String()),
		zap.Error(last.err),
	)
	return nil, fmt.Errorf("%w: %s: %w", appErr.ErrGenerationUnavailable, last.outcome, last.err)
}

func (c *Client) attempt(ctx context.Context, req *GenerateRequest) attemptResult {
	attemptCtx := ctx
	if c.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		attemptCtx, cancel = context.WithTimeout(ctx, c.cfg.Timeout)
		defer cancel()
	}
	resp, err := c.gen.Generate(attemptCtx, req)
	if err == nil && resp == nil {
		err = fmt.Errorf("empty generation response")
	}
	if err != nil {
		if IsTimeout(err) {
			return attemptResult{outcome: OutcomeTimeout, err: err}
		}
		return attemptResult{outcome: OutcomeError, err: err}
	}
	return attemptResult{outcome: OutcomeSuccess, resp: resp}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
