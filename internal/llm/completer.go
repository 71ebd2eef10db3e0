// Package llm is the text-completion collaborator: a Gemini-backed provider,
// an ordered fallback chain with per-call timeouts, and helpers to pull JSON
// out of model responses.
package llm

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dvloznov/finance-insights/internal/domain"
	"github.com/dvloznov/finance-insights/internal/logger"
)

// Completer turns a prompt into model text.
type Completer interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// CompleterFunc adapts a function to Completer.
type CompleterFunc func(ctx context.Context, prompt string) (string, error)

// Generate calls f.
func (f CompleterFunc) Generate(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}

// Provider is a named Completer in a Chain.
type Provider struct {
	Name      string
	Completer Completer
}

// Chain tries providers in order and returns the first non-empty answer.
// Each attempt runs under its own timeout derived from the caller's context.
type Chain struct {
	providers []Provider
	timeout   time.Duration
}

// NewChain creates a fallback chain. A zero timeout leaves attempts bounded
// only by the caller's context.
func NewChain(timeout time.Duration, providers ...Provider) *Chain {
	return &Chain{providers: providers, timeout: timeout}
}

// Len reports how many providers are configured.
func (c *Chain) Len() int { return len(c.providers) }

// Generate implements Completer.
func (c *Chain) Generate(ctx context.Context, prompt string) (string, error) {
	if len(c.providers) == 0 {
		return "", fmt.Errorf("Chain.Generate: no providers configured: %w", domain.ErrLLM)
	}

	log := logger.FromContext(ctx)
	var errs []error
	for _, p := range c.providers {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}

		text, err := c.attempt(ctx, p, prompt)
		if err == nil {
			return text, nil
		}
		log.Warn().Err(err).Str("provider", p.Name).Msg("Completion provider failed, trying next")
		errs = append(errs, fmt.Errorf("%s: %w", p.Name, err))
	}

	return "", fmt.Errorf("Chain.Generate: %w: %w", domain.ErrLLM, errors.Join(errs...))
}

func (c *Chain) attempt(ctx context.Context, p Provider, prompt string) (string, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	text, err := p.Completer.Generate(ctx, prompt)
	if err != nil {
		return "", err
	}
	if text == "" {
		return "", errors.New("empty response")
	}
	return text, nil
}
