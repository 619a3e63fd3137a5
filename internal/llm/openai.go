package llm

import (
	"context"
	"encoding/json"
	"strings"
	"sync"

	"outreach_backend/internal/secrets"
	"outreach_backend/internal/store"
	"outreach_backend/platform/apperr"
	"outreach_backend/platform/logger"

	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"
)

const (
	classificationModel = openai.ChatModelGPT4oMini
	insightsModel       = openai.ChatModelGPT4o

	insightsTemperature = 0.3
)

// Analyzer classifies call outcomes and extracts structured insights.
type Analyzer interface {
	ClassifyOutcome(ctx context.Context, transcript string) (string, error)
	ExtractInsights(ctx context.Context, ins *store.Insights, transcript string) (*store.CallAnalysis, error)
}

// OpenAI is the production Analyzer backed by the OpenAI chat API.
type OpenAI struct {
	secretsRes secrets.Resolver
	log        *logger.Logger

	once    sync.Once
	client  openai.Client
	initErr error
}

// NewOpenAI creates an Analyzer that resolves its API key lazily.
func NewOpenAI(secretsRes secrets.Resolver, log *logger.Logger) *OpenAI {
	return &OpenAI{secretsRes: secretsRes, log: log}
}

func (o *OpenAI) init(ctx context.Context) error {
	o.once.Do(func() {
		key, err := o.secretsRes.Resolve(ctx, secrets.NameOpenAIAPIKey)
		if err != nil {
			o.initErr = apperr.Wrap(apperr.KindInternal, "resolve openai credentials", err)
			return
		}
		o.client = openai.NewClient(option.WithAPIKey(key))
	})
	return o.initErr
}

// ClassifyOutcome labels a transcript as answered, voicemail, or no answer.
func (o *OpenAI) ClassifyOutcome(ctx context.Context, transcript string) (string, error) {
	if err := o.init(ctx); err != nil {
		return "", err
	}

	resp, err := o.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: classificationModel,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(classificationSystemPrompt),
			openai.UserMessage(transcript),
		},
		Temperature: openai.Float(0),
	})
	if err != nil {
		return "", apperr.Wrap(apperr.KindUpstream, "classify call outcome", err)
	}
	if len(resp.Choices) == 0 {
		return "", apperr.Upstream(502, "classification returned no choices")
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

// ExtractInsights runs the insights prompt over an answered call's
// transcript and parses the strict-JSON result. A malformed model response
// is an internal error, the webhook must not ack it as processed.
func (o *OpenAI) ExtractInsights(ctx context.Context, ins *store.Insights, transcript string) (*store.CallAnalysis, error) {
	if err := o.init(ctx); err != nil {
		return nil, err
	}

	resp, err := o.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: insightsModel,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(insightsPrompt(ins)),
			openai.UserMessage(transcript),
		},
		Temperature: openai.Float(insightsTemperature),
	})
	if err != nil {
		return nil, apperr.Wrap(apperr.KindUpstream, "extract call insights", err)
	}
	if len(resp.Choices) == 0 {
		return nil, apperr.Upstream(502, "insight extraction returned no choices")
	}

	return ParseAnalysis(resp.Choices[0].Message.Content)
}

// ParseAnalysis decodes the model's JSON analysis, tolerating markdown
// code fences around the document but nothing else.
func ParseAnalysis(raw string) (*store.CallAnalysis, error) {
	cleaned := StripJSONFences(raw)

	var analysis store.CallAnalysis
	if err := json.Unmarshal([]byte(cleaned), &analysis); err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "parse call analysis", err)
	}
	return &analysis, nil
}

// StripJSONFences removes a surrounding ```json ... ``` block when present.
func StripJSONFences(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}
	trimmed = strings.TrimPrefix(trimmed, "```json")
	trimmed = strings.TrimPrefix(trimmed, "```")
	trimmed = strings.TrimSuffix(strings.TrimSpace(trimmed), "```")
	return strings.TrimSpace(trimmed)
}
