package ai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"google.golang.org/genai"

	"github.com/xxxsen/alimtalk/internal/model"
	appErr "github.com/xxxsen/alimtalk/internal/pkg/errors"
)

type scriptedGenerator struct {
	calls   int
	results []func(ctx context.Context) (*GenerateResponse, error)
	lastReq *GenerateRequest
}

func (g *scriptedGenerator) Generate(ctx context.Context, req *GenerateRequest) (*GenerateResponse, error) {
	g.lastReq = req
	idx := g.calls
	g.calls++
	if idx >= len(g.results) {
		return nil, errors.New("unexpected call")
	}
	return g.results[idx](ctx)
}

func (g *scriptedGenerator) ModelName() string {
	return "test-model"
}

func ok(text string, usage model.TokenUsage) func(context.Context) (*GenerateResponse, error) {
	return func(context.Context) (*GenerateResponse, error) {
		return &GenerateResponse{Text: text, Usage: usage}, nil
	}
}

func fail(err error) func(context.Context) (*GenerateResponse, error) {
	return func(context.Context) (*GenerateResponse, error) {
		return nil, err
	}
}

func newTestClient(gen IGenerator, retries int) *Client {
	c := NewClient(gen, ClientConfig{
		MaxTokens:   1500,
		Temperature: 0.3,
		Timeout:     time.Second,
		MaxRetries:  retries,
		Pricing:     Pricing{InputPer1K: 0.00015, OutputPer1K: 0.0006},
	})
	c.sleep = func(context.Context, time.Duration) error { return nil }
	return c
}

func TestClientGenerate_SuccessComputesCost(t *testing.T) {
	gen := &scriptedGenerator{results: []func(context.Context) (*GenerateResponse, error){
		ok(`{"title":"t"}`, model.TokenUsage{PromptTokens: 1000, CompletionTokens: 500}),
	}}
	c := newTestClient(gen, 1)

	resp, err := c.Generate(context.Background(), "sys", "prompt")
	require.NoError(t, err)
	require.Equal(t, 1, gen.calls)
	require.Equal(t, 1500, resp.Usage.TotalTokens)
	require.InDelta(t, 0.00045, resp.Usage.Cost, 1e-9)
	require.Equal(t, "sys", gen.lastReq.System)
	require.Equal(t, 1500, gen.lastReq.MaxTokens)
	require.InDelta(t, 0.3, gen.lastReq.Temperature, 1e-6)
}

func TestClientGenerate_RetriesOnceOnServerError(t *testing.T) {
	gen := &scriptedGenerator{results: []func(context.Context) (*GenerateResponse, error){
		fail(&HTTPError{Provider: "openai", StatusCode: http.StatusBadGateway}),
		ok("hello", model.TokenUsage{}),
	}}
	c := newTestClient(gen, 1)

	resp, err := c.Generate(context.Background(), "", "prompt")
	require.NoError(t, err)
	require.Equal(t, "hello", resp.Text)
	require.Equal(t, 2, gen.calls)
}

func TestClientGenerate_NeverExceedsTwoAttempts(t *testing.T) {
	gen := &scriptedGenerator{results: []func(context.Context) (*GenerateResponse, error){
		fail(&HTTPError{Provider: "openai", StatusCode: http.StatusTooManyRequests}),
		fail(&HTTPError{Provider: "openai", StatusCode: http.StatusTooManyRequests}),
		ok("unreachable", model.TokenUsage{}),
	}}
	c := newTestClient(gen, 5)

	_, err := c.Generate(context.Background(), "", "prompt")
	require.Error(t, err)
	require.ErrorIs(t, err, appErr.ErrGenerationUnavailable)
	require.Equal(t, 2, gen.calls)
}

func TestClientGenerate_NoRetryOnClientError(t *testing.T) {
	gen := &scriptedGenerator{results: []func(context.Context) (*GenerateResponse, error){
		fail(&HTTPError{Provider: "openai", StatusCode: http.StatusUnauthorized}),
		ok("unreachable", model.TokenUsage{}),
	}}
	c := newTestClient(gen, 1)

	_, err := c.Generate(context.Background(), "", "prompt")
	require.ErrorIs(t, err, appErr.ErrGenerationUnavailable)
	require.Equal(t, 1, gen.calls)
}

func TestClientGenerate_UnconfiguredProviderNotRetried(t *testing.T) {
	gen := &scriptedGenerator{results: []func(context.Context) (*GenerateResponse, error){
		fail(ErrUnavailable),
	}}
	c := newTestClient(gen, 1)

	_, err := c.Generate(context.Background(), "", "prompt")
	require.ErrorIs(t, err, appErr.ErrGenerationUnavailable)
	require.ErrorIs(t, err, ErrUnavailable)
	require.Equal(t, 1, gen.calls)
}

func TestClientGenerate_TimeoutIsRetried(t *testing.T) {
	gen := &scriptedGenerator{results: []func(context.Context) (*GenerateResponse, error){
		func(ctx context.Context) (*GenerateResponse, error) {
			<-ctx.Done()
			return nil, ctx.Err()
		},
		ok("late", model.TokenUsage{}),
	}}
	c := newTestClient(gen, 1)
	c.cfg.Timeout = 10 * time.Millisecond

	resp, err := c.Generate(context.Background(), "", "prompt")
	require.NoError(t, err)
	require.Equal(t, "late", resp.Text)
	require.Equal(t, 2, gen.calls)
}

func TestClientGenerate_ZeroRetries(t *testing.T) {
	gen := &scriptedGenerator{results: []func(context.Context) (*GenerateResponse, error){
		fail(errors.New("connection reset")),
	}}
	c := newTestClient(gen, 0)

	_, err := c.Generate(context.Background(), "", "prompt")
	require.ErrorIs(t, err, appErr.ErrGenerationUnavailable)
	require.Equal(t, 1, gen.calls)
}

func TestClientGenerate_CallerCancelStopsRetry(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	gen := &scriptedGenerator{results: []func(context.Context) (*GenerateResponse, error){
		func(context.Context) (*GenerateResponse, error) {
			cancel()
			return nil, errors.New("boom")
		},
		ok("unreachable", model.TokenUsage{}),
	}}
	c := newTestClient(gen, 1)

	_, err := c.Generate(ctx, "", "prompt")
	require.ErrorIs(t, err, appErr.ErrGenerationUnavailable)
	require.Equal(t, 1, gen.calls)
}

func TestPricingCost(t *testing.T) {
	p := Pricing{InputPer1K: 0.00015, OutputPer1K: 0.0006}
	require.Equal(t, 0.0, p.Cost(0, 0))
	require.InDelta(t, 0.000735, p.Cost(900, 1000), 1e-12)
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "nil", err: nil, want: false},
		{name: "unavailable", err: ErrUnavailable, want: false},
		{name: "canceled", err: context.Canceled, want: false},
		{name: "deadline", err: context.DeadlineExceeded, want: true},
		{name: "429", err: &HTTPError{StatusCode: 429}, want: true},
		{name: "503", err: &HTTPError{StatusCode: 503}, want: true},
		{name: "400", err: &HTTPError{StatusCode: 400}, want: false},
		{name: "gemini 400", err: fmt.Errorf("generate: %w", genai.APIError{Code: 400, Message: "invalid argument"}), want: false},
		{name: "gemini 404", err: &genai.APIError{Code: 404, Message: "model not found"}, want: false},
		{name: "gemini 503", err: genai.APIError{Code: 503}, want: true},
		{name: "unknown", err: errors.New("eof"), want: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, IsRetryable(tt.err))
		})
	}
}
