package llm

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dvloznov/finance-insights/internal/domain"
)

func TestChain_FirstProviderWins(t *testing.T) {
	var secondCalled bool
	chain := NewChain(time.Second,
		Provider{Name: "primary", Completer: CompleterFunc(func(ctx context.Context, prompt string) (string, error) {
			return "ok:" + prompt, nil
		})},
		Provider{Name: "secondary", Completer: CompleterFunc(func(ctx context.Context, prompt string) (string, error) {
			secondCalled = true
			return "", nil
		})},
	)

	got, err := chain.Generate(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, "ok:hello", got)
	assert.False(t, secondCalled)
}

func TestChain_FallsBackOnErrorAndEmpty(t *testing.T) {
	calls := []string{}
	chain := NewChain(time.Second,
		Provider{Name: "broken", Completer: CompleterFunc(func(ctx context.Context, prompt string) (string, error) {
			calls = append(calls, "broken")
			return "", errors.New("503")
		})},
		Provider{Name: "empty", Completer: CompleterFunc(func(ctx context.Context, prompt string) (string, error) {
			calls = append(calls, "empty")
			return "", nil
		})},
		Provider{Name: "good", Completer: CompleterFunc(func(ctx context.Context, prompt string) (string, error) {
			calls = append(calls, "good")
			return "answer", nil
		})},
	)

	got, err := chain.Generate(context.Background(), "p")
	require.NoError(t, err)
	assert.Equal(t, "answer", got)
	assert.Equal(t, []string{"broken", "empty", "good"}, calls)
}

func TestChain_AllFail(t *testing.T) {
	chain := NewChain(time.Second,
		Provider{Name: "a", Completer: CompleterFunc(func(ctx context.Context, prompt string) (string, error) {
			return "", errors.New("boom")
		})},
	)

	_, err := chain.Generate(context.Background(), "p")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrLLM)
	assert.Contains(t, err.Error(), "boom")
}

func TestChain_NoProviders(t *testing.T) {
	_, err := NewChain(time.Second).Generate(context.Background(), "p")
	assert.ErrorIs(t, err, domain.ErrLLM)
}

func TestChain_TimeoutPerAttempt(t *testing.T) {
	chain := NewChain(20*time.Millisecond,
		Provider{Name: "slow", Completer: CompleterFunc(func(ctx context.Context, prompt string) (string, error) {
			<-ctx.Done()
			return "", ctx.Err()
		})},
		Provider{Name: "fast", Completer: CompleterFunc(func(ctx context.Context, prompt string) (string, error) {
			return "fast", nil
		})},
	)

	got, err := chain.Generate(context.Background(), "p")
	require.NoError(t, err)
	assert.Equal(t, "fast", got)
}

func TestChain_StopsWhenCallerCancels(t *testing.T) {
	var called bool
	chain := NewChain(time.Second,
		Provider{Name: "a", Completer: CompleterFunc(func(ctx context.Context, prompt string) (string, error) {
			called = true
			return "x", nil
		})},
	)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := chain.Generate(ctx, "p")
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, called)
}
