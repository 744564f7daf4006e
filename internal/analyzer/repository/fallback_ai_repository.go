package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang-stock-insight/pkg/logger"
)

// fallbackAIRepository tries each configured backend in order and moves to the
// next one when a provider fails. Context cancellation stops the chain
// immediately, it never triggers a fallback.
type fallbackAIRepository struct {
	providers []AIRepository
	logger    *logger.Logger
}

// NewFallbackAIRepository creates a chain over the given backends. The order
// of the slice is the order providers are tried.
func NewFallbackAIRepository(providers []AIRepository, log *logger.Logger) (AIRepository, error) {
	if len(providers) == 0 {
		return nil, fmt.Errorf("fallback chain requires at least one provider")
	}
	return &fallbackAIRepository{
		providers: providers,
		logger:    log,
	}, nil
}

func (r *fallbackAIRepository) Name() string {
	names := make([]string, 0, len(r.providers))
	for _, p := range r.providers {
		names = append(names, p.Name())
	}
	return strings.Join(names, ",")
}

// Generate runs the chain without streaming.
func (r *fallbackAIRepository) Generate(ctx context.Context, prompt string) (string, error) {
	text, _, err := r.run(ctx, func(p AIRepository) (string, error) {
		return p.Generate(ctx, prompt)
	})
	return text, err
}

// GenerateStream runs the chain with token streaming. Once a provider fails
// after relaying tokens, later providers are not relayed live (there is no
// way to retract the partial output); the returned text is the authoritative
// narrative.
func (r *fallbackAIRepository) GenerateStream(ctx context.Context, prompt string, onToken func(token string)) (string, error) {
	text, _, err := r.streamRun(ctx, prompt, onToken, nil)
	return text, err
}

// GenerateStreamNamed is GenerateStream plus the name of the provider that
// actually produced the narrative and a retraction hook: onReset fires before
// the first token of a replacement provider, telling the consumer to discard
// the partial output relayed by a provider that failed mid-stream.
func (r *fallbackAIRepository) GenerateStreamNamed(ctx context.Context, prompt string, onToken func(token string), onReset func()) (string, string, error) {
	return r.streamRun(ctx, prompt, onToken, onReset)
}

func (r *fallbackAIRepository) streamRun(ctx context.Context, prompt string, onToken func(token string), onReset func()) (string, string, error) {
	var errs []error
	tainted := false
	for _, p := range r.providers {
		if err := ctx.Err(); err != nil {
			return "", "", err
		}

		sent := false
		relay := func(token string) {
			if tainted {
				if onReset == nil {
					return
				}
				onReset()
				tainted = false
			}
			sent = true
			onToken(token)
		}

		text, err := p.GenerateStream(ctx, prompt, relay)
		if err == nil {
			return text, p.Name(), nil
		}
		if IsCancelled(err) || IsCancelled(ctx.Err()) {
			return "", "", err
		}
		if sent {
			tainted = true
		}

		r.logger.Warn("AI provider failed, trying next",
			logger.StringField("provider", p.Name()),
			logger.ErrorField(err),
		)
		errs = append(errs, fmt.Errorf("%s: %w", p.Name(), err))
	}
	return "", "", fmt.Errorf("all AI providers failed: %w", errors.Join(errs...))
}

func (r *fallbackAIRepository) run(ctx context.Context, call func(p AIRepository) (string, error)) (string, string, error) {
	var errs []error
	for _, p := range r.providers {
		if err := ctx.Err(); err != nil {
			return "", "", err
		}

		text, err := call(p)
		if err == nil {
			return text, p.Name(), nil
		}
		if IsCancelled(err) || IsCancelled(ctx.Err()) {
			return "", "", err
		}

		r.logger.Warn("AI provider failed, trying next",
			logger.StringField("provider", p.Name()),
			logger.ErrorField(err),
		)
		errs = append(errs, fmt.Errorf("%s: %w", p.Name(), err))
	}
	return "", "", fmt.Errorf("all AI providers failed: %w", errors.Join(errs...))
}
