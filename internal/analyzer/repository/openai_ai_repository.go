package repository

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang-stock-insight/internal/analyzer/config"
	"golang-stock-insight/internal/analyzer/dto"
	"golang-stock-insight/pkg/logger"

	"golang.org/x/time/rate"
)

const narrativeSystemPrompt = "You are a senior global equity analyst with deep multi-market experience. Provide professional, objective and thorough stock analysis."

// openaiCompatRepository talks to any OpenAI-compatible chat completion
// backend. Both the OpenAI and Zhipu variants are built on it.
type openaiCompatRepository struct {
	name           string
	client         *http.Client
	cfg            config.AIProvider
	logger         *logger.Logger
	requestLimiter *rate.Limiter
}

// NewOpenAIRepository creates the OpenAI narrative backend.
func NewOpenAIRepository(cfg config.AIProvider, log *logger.Logger) AIRepository {
	return newOpenAICompatRepository("openai", "https://api.openai.com/v1", cfg, log)
}

func newOpenAICompatRepository(name, defaultBaseURL string, cfg config.AIProvider, log *logger.Logger) AIRepository {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.MaxRequestPerMinute == 0 {
		cfg.MaxRequestPerMinute = 10
	}
	secondsPerRequest := time.Minute / time.Duration(cfg.MaxRequestPerMinute)

	return &openaiCompatRepository{
		name: name,
		client: &http.Client{
			Timeout: 90 * time.Second,
		},
		cfg:            cfg,
		logger:         log,
		requestLimiter: rate.NewLimiter(rate.Every(secondsPerRequest), 1),
	}
}

func (r *openaiCompatRepository) Name() string {
	return r.name
}

// Generate performs a non-streaming completion.
func (r *openaiCompatRepository) Generate(ctx context.Context, prompt string) (string, error) {
	resp, err := r.send(ctx, prompt, false)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var completion dto.ChatCompletionResponse
	if err := json.NewDecoder(resp.Body).Decode(&completion); err != nil {
		return "", newProviderError(r.name, ProviderErrorMalformed, fmt.Errorf("failed to decode response body: %w", err))
	}
	if len(completion.Choices) == 0 || completion.Choices[0].Message.Content == "" {
		return "", newProviderError(r.name, ProviderErrorMalformed, fmt.Errorf("no content found in response"))
	}
	return completion.Choices[0].Message.Content, nil
}

// GenerateStream performs a streaming completion, relaying each delta to
// onToken in arrival order. Cancelling ctx aborts the request and closes the
// connection.
func (r *openaiCompatRepository) GenerateStream(ctx context.Context, prompt string, onToken func(token string)) (string, error) {
	resp, err := r.send(ctx, prompt, true)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var full strings.Builder
	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if !strings.HasPrefix(line, "data:") {
			continue
		}
		payload := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if payload == "[DONE]" {
			break
		}

		var chunk dto.ChatCompletionChunk
		if err := json.Unmarshal([]byte(payload), &chunk); err != nil {
			return full.String(), newProviderError(r.name, ProviderErrorMalformed, fmt.Errorf("failed to unmarshal stream chunk: %w", err))
		}
		if len(chunk.Choices) == 0 {
			continue
		}
		if content := chunk.Choices[0].Delta.Content; content != "" {
			full.WriteString(content)
			onToken(content)
		}
	}
	if err := scanner.Err(); err != nil {
		if IsCancelled(ctx.Err()) {
			return full.String(), ctx.Err()
		}
		return full.String(), newProviderError(r.name, ProviderErrorNetwork, fmt.Errorf("stream read failed: %w", err))
	}

	return full.String(), nil
}

func (r *openaiCompatRepository) send(ctx context.Context, prompt string, stream bool) (*http.Response, error) {
	if r.cfg.APIKey == "" {
		return nil, newProviderError(r.name, ProviderErrorAuth, fmt.Errorf("no api key configured"))
	}

	if err := r.requestLimiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("failed to wait for request limit: %w", err)
	}

	payload := dto.ChatCompletionRequest{
		Model: r.cfg.Model,
		Messages: []dto.Message{
			{Role: "system", Content: narrativeSystemPrompt},
			{Role: "user", Content: prompt},
		},
		MaxTokens:   r.cfg.MaxTokens,
		Temperature: r.cfg.Temperature,
		Stream:      stream,
	}

	jsonPayload, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payload: %w", err)
	}

	url := strings.TrimRight(r.cfg.BaseURL, "/") + "/chat/completions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(jsonPayload))
	if err != nil {
		return nil, fmt.Errorf("failed to create new http request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", r.cfg.APIKey))
	if stream {
		req.Header.Set("Accept", "text/event-stream")
	}

	r.logger.Debug("Sending chat completion request",
		logger.StringField("provider", r.name),
		logger.StringField("model", r.cfg.Model),
		logger.Field("stream", stream))

	resp, err := r.client.Do(req)
	if err != nil {
		if IsCancelled(ctx.Err()) {
			return nil, ctx.Err()
		}
		return nil, newProviderError(r.name, ProviderErrorNetwork, err)
	}

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		return nil, newProviderError(r.name, classifyStatus(resp.StatusCode),
			fmt.Errorf("non-OK response: %d - %s", resp.StatusCode, string(body)))
	}
	return resp, nil
}
