package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang-stock-insight/internal/analyzer/config"
	"golang-stock-insight/pkg/logger"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"golang.org/x/time/rate"
)

// anthropicAIRepository is the Claude narrative backend.
type anthropicAIRepository struct {
	client         anthropic.Client
	cfg            config.AIProvider
	logger         *logger.Logger
	requestLimiter *rate.Limiter
}

// NewAnthropicAIRepository creates the Anthropic narrative backend.
func NewAnthropicAIRepository(cfg config.AIProvider, log *logger.Logger) AIRepository {
	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = 4000
	}
	if cfg.MaxRequestPerMinute == 0 {
		cfg.MaxRequestPerMinute = 10
	}
	secondsPerRequest := time.Minute / time.Duration(cfg.MaxRequestPerMinute)

	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	return &anthropicAIRepository{
		client:         anthropic.NewClient(opts...),
		cfg:            cfg,
		logger:         log,
		requestLimiter: rate.NewLimiter(rate.Every(secondsPerRequest), 1),
	}
}

func (r *anthropicAIRepository) Name() string {
	return "anthropic"
}

func (r *anthropicAIRepository) params(prompt string) anthropic.MessageNewParams {
	return anthropic.MessageNewParams{
		Model:     anthropic.Model(r.cfg.Model),
		MaxTokens: int64(r.cfg.MaxTokens),
		System: []anthropic.TextBlockParam{
			{Text: narrativeSystemPrompt},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	}
}

// Generate performs a non-streaming completion.
func (r *anthropicAIRepository) Generate(ctx context.Context, prompt string) (string, error) {
	if err := r.precheck(ctx); err != nil {
		return "", err
	}

	msg, err := r.client.Messages.New(ctx, r.params(prompt))
	if err != nil {
		return "", r.classify(ctx, err)
	}

	var full strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			full.WriteString(block.Text)
		}
	}
	if full.Len() == 0 {
		return "", newProviderError(r.Name(), ProviderErrorMalformed, fmt.Errorf("no text content in response"))
	}
	return full.String(), nil
}

// GenerateStream relays text deltas in order; cancelling ctx closes the
// stream and the underlying connection.
func (r *anthropicAIRepository) GenerateStream(ctx context.Context, prompt string, onToken func(token string)) (string, error) {
	if err := r.precheck(ctx); err != nil {
		return "", err
	}

	stream := r.client.Messages.NewStreaming(ctx, r.params(prompt))
	defer stream.Close()

	var full strings.Builder
	for stream.Next() {
		event := stream.Current()
		switch variant := event.AsAny().(type) {
		case anthropic.ContentBlockDeltaEvent:
			switch delta := variant.Delta.AsAny().(type) {
			case anthropic.TextDelta:
				if delta.Text != "" {
					full.WriteString(delta.Text)
					onToken(delta.Text)
				}
			}
		}
	}
	if err := stream.Err(); err != nil {
		if IsCancelled(ctx.Err()) {
			return full.String(), ctx.Err()
		}
		return full.String(), r.classify(ctx, err)
	}

	return full.String(), nil
}

func (r *anthropicAIRepository) precheck(ctx context.Context) error {
	if r.cfg.APIKey == "" {
		return newProviderError(r.Name(), ProviderErrorAuth, fmt.Errorf("no api key configured"))
	}
	if err := r.requestLimiter.Wait(ctx); err != nil {
		return fmt.Errorf("failed to wait for request limit: %w", err)
	}
	return nil
}

func (r *anthropicAIRepository) classify(ctx context.Context, err error) error {
	if IsCancelled(ctx.Err()) {
		return ctx.Err()
	}
	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		return newProviderError(r.Name(), classifyStatus(apiErr.StatusCode), err)
	}
	return newProviderError(r.Name(), ProviderErrorNetwork, err)
}
