package service

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/alimtalk/internal/ai"
	"github.com/xxxsen/alimtalk/internal/draft"
	"github.com/xxxsen/alimtalk/internal/model"
	appErr "github.com/xxxsen/alimtalk/internal/pkg/errors"
	"github.com/xxxsen/alimtalk/internal/postprocess"
	"github.com/xxxsen/alimtalk/internal/retrieval"
)

type Stage string

const (
	StageRetrieving Stage = "RETRIEVING"
	StageGenerating Stage = "GENERATING"
	StageParsing    Stage = "PARSING"
	StageFormatting Stage = "FORMATTING"
	StageDone       Stage = "DONE"
	StageFailed     Stage = "FAILED"
)

const (
	maxHintChars = 100
	maxTopK      = 50
)

// StageObserver is called on every state transition. err is set only for StageFailed.
type StageObserver func(ctx context.Context, stage Stage, err error)

type PolicyRetriever interface {
	Retrieve(ctx context.Context, query string, topK int) (*model.RetrievedContext, error)
}

type TextGenerator interface {
	Generate(ctx context.Context, system string, prompt string) (*ai.GenerateResponse, error)
	ModelName() string
}

// GenerationStore persists one request and its generated template, returning the request id.
type GenerationStore interface {
	SaveGeneration(ctx context.Context, req *model.TemplateRequest, gen *model.GeneratedTemplate) (int64, error)
}

type GenerateInput struct {
	UserInput      string `json:"user_input"`
	BusinessType   string `json:"business_type"`
	MessagePurpose string `json:"message_purpose"`
	UserID         int64  `json:"user_id"`
}

type SaveResult struct {
	RequestID      int64                 `json:"request_id"`
	TemplateResult *model.TemplateResult `json:"template_result"`
	Saved          bool                  `json:"saved"`
	TokenUsage     model.TokenUsage      `json:"token_usage"`
}

type TemplateServiceConfig struct {
	TopK          int
	MaxInputChars int
	DefaultUserID int64
}

type TemplateServiceOption func(*TemplateService)

func WithStageObserver(fn StageObserver) TemplateServiceOption {
	return func(s *TemplateService) {
		s.observer = fn
	}
}

func WithGenerationStore(store GenerationStore) TemplateServiceOption {
	return func(s *TemplateService) {
		s.store = store
	}
}

type TemplateService struct {
	retriever  PolicyRetriever
	generator  TextGenerator
	categories *postprocess.CategoryTable
	store      GenerationStore
	cfg        TemplateServiceConfig
	observer   StageObserver
	now        func() time.Time
}

func NewTemplateService(retriever PolicyRetriever, generator TextGenerator, categories *postprocess.CategoryTable, cfg TemplateServiceConfig, opts ...TemplateServiceOption) *TemplateService {
	if cfg.TopK <= 0 {
		cfg.TopK = 5
	}
	if cfg.MaxInputChars <= 0 {
		cfg.MaxInputChars = 2000
	}
	s := &TemplateService{
		retriever:  retriever,
		generator:  generator,
		categories: categories,
		cfg:        cfg,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type generation struct {
	result   *model.TemplateResult
	draft    *model.TemplateDraft
	policies *model.RetrievedContext
	usage    model.TokenUsage
	tplType  string
	category []string
}

func (s *TemplateService) Generate(ctx context.Context, in *GenerateInput) (*model.TemplateResult, error) {
	g, err := s.run(ctx, in)
	if err != nil {
		return nil, err
	}
	return g.result, nil
}

// GenerateAndSave generates a template and persists it. A storage failure does not fail the call;
// it is logged and reported with Saved=false.
func (s *TemplateService) GenerateAndSave(ctx context.Context, in *GenerateInput) (*SaveResult, error) {
	g, err := s.run(ctx, in)
	if err != nil {
		return nil, err
	}
	out := &SaveResult{TemplateResult: g.result, TokenUsage: g.usage}
	if s.store == nil {
		logutil.GetLogger(ctx).Warn("generation store not configured, skip save")
		return out, nil
	}
	now := s.now()
	req := &model.TemplateRequest{
		UserInput:      in.UserInput,
		BusinessType:   in.BusinessType,
		MessagePurpose: in.MessagePurpose,
		Ctime:          now.UnixMilli(),
	}
	gen := &model.GeneratedTemplate{
		TemplateContent:  g.result.Content,
		TemplateType:     g.tplType,
		ComplianceScore:  postprocess.ComplianceScore(g.draft.TemplateContent),
		UsedPolicies:     g.category,
		PromptTokens:     g.usage.PromptTokens,
		CompletionTokens: g.usage.CompletionTokens,
		TotalTokens:      g.usage.TotalTokens,
		TokenCost:        g.usage.Cost,
		Ctime:            now.UnixMilli(),
	}
	requestID, err := s.store.SaveGeneration(ctx, req, gen)
	if err != nil {
		logutil.GetLogger(ctx).Error("save generated template failed", zap.Error(err))
		return out, nil
	}
	g.result.ID = requestID
	out.RequestID = requestID
	out.Saved = requestID > 0
	return out, nil
}

func (s *TemplateService) SearchPolicies(ctx context.Context, query string, topK int) ([]model.PolicyHit, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("%w: query is required", appErr.ErrInvalid)
	}
	if topK == 0 {
		topK = s.cfg.TopK
	}
	if topK < 1 || topK > maxTopK {
		return nil, fmt.Errorf("%w: top_k must be within [1, %d]", appErr.ErrInvalid, maxTopK)
	}
	if utf8.RuneCountInString(query) > s.cfg.MaxInputChars {
		return nil, fmt.Errorf("%w: query exceeds %d characters", appErr.ErrInvalid, s.cfg.MaxInputChars)
	}
	if s.retriever == nil {
		return nil, fmt.Errorf("%w: retriever not configured", appErr.ErrRetrievalUnavailable)
	}
	rc, err := s.retriever.Retrieve(ctx, query, topK)
	if err != nil {
		return nil, err
	}
	hits := make([]model.PolicyHit, 0, rc.Len())
	for _, item := range rc.Items {
		hits = append(hits, model.PolicyHit{
			ChunkID:  item.Chunk.ID,
			Category: item.Chunk.Category,
			Content:  item.Chunk.Text,
			Score:    item.Score,
		})
	}
	return hits, nil
}

func (s *TemplateService) TemplateTypes() []model.TemplateType {
	return postprocess.TemplateTypes()
}

func (s *TemplateService) validate(in *GenerateInput) error {
	if in == nil {
		return fmt.Errorf("%w: request is required", appErr.ErrInvalid)
	}
	in.UserInput = strings.TrimSpace(in.UserInput)
	in.BusinessType = strings.TrimSpace(in.BusinessType)
	in.MessagePurpose = strings.TrimSpace(in.MessagePurpose)
	if in.UserInput == "" {
		return fmt.Errorf("%w: user_input is required", appErr.ErrInvalid)
	}
	if utf8.RuneCountInString(in.UserInput) > s.cfg.MaxInputChars {
		return fmt.Errorf("%w: user_input exceeds %d characters", appErr.ErrInvalid, s.cfg.MaxInputChars)
	}
	if utf8.RuneCountInString(in.BusinessType) > maxHintChars || utf8.RuneCountInString(in.MessagePurpose) > maxHintChars {
		return fmt.Errorf("%w: business_type and message_purpose must be at most %d characters", appErr.ErrInvalid, maxHintChars)
	}
	if in.UserID == 0 {
		in.UserID = s.cfg.DefaultUserID
	}
	return nil
}

func (s *TemplateService) run(ctx context.Context, in *GenerateInput) (*generation, error) {
	if err := s.validate(in); err != nil {
		return nil, err
	}
	logger := logutil.GetLogger(ctx).With(
		zap.String("business_type", in.BusinessType),
		zap.String("message_purpose", in.MessagePurpose),
	)
	start := time.Now()
	stage := StageRetrieving
	fail := func(err error) (*generation, error) {
		logger.Error("template generation failed", zap.String("stage", string(stage)), zap.Error(err))
		s.notify(ctx, StageFailed, err)
		return nil, err
	}

	s.notify(ctx, stage, nil)
	if s.retriever == nil {
		return fail(fmt.Errorf("%w: retriever not configured", appErr.ErrRetrievalUnavailable))
	}
	rc, err := s.retriever.Retrieve(ctx, retrieval.BuildQuery(in.UserInput, in.BusinessType, in.MessagePurpose), s.cfg.TopK)
	if err != nil {
		return fail(err)
	}
	if rc.Len() == 0 {
		logger.Warn("no policy context matched, generating without references")
	}

	stage = StageGenerating
	s.notify(ctx, stage, nil)
	if s.generator == nil {
		return fail(fmt.Errorf("%w: generator not configured", appErr.ErrGenerationUnavailable))
	}
	resp, err := s.generator.Generate(ctx, systemInstruction, buildPrompt(in, buildPolicyContext(rc)))
	if err != nil {
		return fail(err)
	}

	stage = StageParsing
	s.notify(ctx, stage, nil)
	d, tier, err := draft.ParseWithTier(resp.Text)
	if err != nil {
		return fail(err)
	}

	stage = StageFormatting
	s.notify(ctx, stage, nil)
	result := postprocess.Process(d, s.categories, in.UserID, in.BusinessType, in.MessagePurpose)

	s.notify(ctx, StageDone, nil)
	logger.Info("template generated",
		zap.Int("policies", rc.Len()),
		zap.String("parse_tier", string(tier)),
		zap.Int("variables", len(result.Variables)),
		zap.Int("total_tokens", resp.Usage.TotalTokens),
		zap.Duration("cost", time.Since(start)),
	)
	return &generation{
		result:   result,
		draft:    d,
		policies: rc,
		usage:    resp.Usage,
		tplType:  postprocess.ClassifyTemplateType(in.UserInput),
		category: rc.Categories(),
	}, nil
}

func (s *TemplateService) notify(ctx context.Context, stage Stage, err error) {
	if s.observer != nil {
		s.observer(ctx, stage, err)
	}
}
