package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang-stock-insight/internal/analyzer/config"
	"golang-stock-insight/pkg/logger"
	"golang-stock-insight/pkg/ratelimit"

	"golang.org/x/time/rate"
	"google.golang.org/genai"
)

// geminiAIRepository is the Google Gemini narrative backend.
type geminiAIRepository struct {
	cfg            config.AIProvider
	logger         *logger.Logger
	tokenLimiter   *ratelimit.TokenLimiter
	requestLimiter *rate.Limiter
	genAiClient    *genai.Client
}

// NewGeminiAIRepository creates the Gemini narrative backend. The genai client
// is constructed by the caller so its lifecycle is owned in one place.
func NewGeminiAIRepository(cfg config.AIProvider, log *logger.Logger, genAiClient *genai.Client) AIRepository {
	if cfg.MaxRequestPerMinute == 0 {
		cfg.MaxRequestPerMinute = 10
	}
	if cfg.MaxTokenPerMinute == 0 {
		cfg.MaxTokenPerMinute = 250000
	}
	secondsPerRequest := time.Minute / time.Duration(cfg.MaxRequestPerMinute)

	return &geminiAIRepository{
		cfg:            cfg,
		logger:         log,
		requestLimiter: rate.NewLimiter(rate.Every(secondsPerRequest), 1),
		tokenLimiter:   ratelimit.NewTokenLimiter(cfg.MaxTokenPerMinute),
		genAiClient:    genAiClient,
	}
}

func (r *geminiAIRepository) Name() string {
	return "gemini"
}

func (r *geminiAIRepository) contents(prompt string) []*genai.Content {
	return []*genai.Content{
		genai.NewContentFromText(prompt, genai.RoleUser),
	}
}

func (r *geminiAIRepository) generateConfig() *genai.GenerateContentConfig {
	return &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(narrativeSystemPrompt, genai.RoleUser),
	}
}

// Generate performs a non-streaming completion.
func (r *geminiAIRepository) Generate(ctx context.Context, prompt string) (string, error) {
	if err := r.waitLimits(ctx, prompt); err != nil {
		return "", err
	}

	resp, err := r.genAiClient.Models.GenerateContent(ctx, r.cfg.Model, r.contents(prompt), r.generateConfig())
	if err != nil {
		return "", r.classify(ctx, err)
	}

	text := resp.Text()
	if text == "" {
		return "", newProviderError(r.Name(), ProviderErrorMalformed, fmt.Errorf("no content found in response"))
	}
	return text, nil
}

// GenerateStream relays candidate text chunks in order.
func (r *geminiAIRepository) GenerateStream(ctx context.Context, prompt string, onToken func(token string)) (string, error) {
	if err := r.waitLimits(ctx, prompt); err != nil {
		return "", err
	}

	var full strings.Builder
	for resp, err := range r.genAiClient.Models.GenerateContentStream(ctx, r.cfg.Model, r.contents(prompt), r.generateConfig()) {
		if err != nil {
			return full.String(), r.classify(ctx, err)
		}
		if chunk := resp.Text(); chunk != "" {
			full.WriteString(chunk)
			onToken(chunk)
		}
	}
	return full.String(), nil
}

func (r *geminiAIRepository) waitLimits(ctx context.Context, prompt string) error {
	if r.cfg.APIKey == "" {
		return newProviderError(r.Name(), ProviderErrorAuth, fmt.Errorf("no api key configured"))
	}

	tokenResp, err := r.genAiClient.Models.CountTokens(ctx, r.cfg.Model, r.contents(prompt), nil)
	if err != nil {
		return r.classify(ctx, fmt.Errorf("failed to count tokens: %w", err))
	}

	r.logger.Debug("Gemini token count",
		logger.IntField("total_tokens", int(tokenResp.TotalTokens)),
		logger.IntField("remaining", r.tokenLimiter.GetRemaining()),
	)

	if err := r.tokenLimiter.Wait(ctx, int(tokenResp.TotalTokens)); err != nil {
		return fmt.Errorf("failed to wait for token limit: %w", err)
	}
	if err := r.requestLimiter.Wait(ctx); err != nil {
		return fmt.Errorf("failed to wait for request limit: %w", err)
	}

	if int(tokenResp.TotalTokens) > r.cfg.MaxTokenPerMinute/2 {
		r.logger.Warn("Token has exceeded 50% of the limit", logger.IntField("remaining", r.tokenLimiter.GetRemaining()))
	}
	return nil
}

func (r *geminiAIRepository) classify(ctx context.Context, err error) error {
	if IsCancelled(ctx.Err()) {
		return ctx.Err()
	}
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return newProviderError(r.Name(), classifyStatus(apiErr.Code), err)
	}
	return newProviderError(r.Name(), ProviderErrorNetwork, err)
}
