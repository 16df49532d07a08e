package portrait

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"net/url"
	"time"

	"admuse/internal/logging"
	"admuse/internal/persona"
)

// ErrExhaustedRetries indicates a slot used its whole automatic retry budget
// without producing a valid portrait URL.
var ErrExhaustedRetries = errors.New("portrait retries exhausted")

// SlotGenerator runs the retry-aware portrait loop for one persona slot.
type SlotGenerator struct {
	styles    StyleProvider
	generator Generator
	rng       *rand.Rand

	retryBudget    int
	retryDelay     time.Duration
	attemptTimeout time.Duration
}

// SlotGeneratorConfig holds the per-slot retry policy.
type SlotGeneratorConfig struct {
	RetryBudget    int           // automatic retries after the first attempt
	RetryDelay     time.Duration // fixed delay between attempts
	AttemptTimeout time.Duration // hard timeout per attempt
}

// DefaultSlotGeneratorConfig returns the standard retry policy.
func DefaultSlotGeneratorConfig() SlotGeneratorConfig {
	return SlotGeneratorConfig{
		RetryBudget:    3,
		RetryDelay:     2 * time.Second,
		AttemptTimeout: 15 * time.Second,
	}
}

// NewSlotGenerator creates a slot generator.
func NewSlotGenerator(styles StyleProvider, generator Generator, rng *rand.Rand, config SlotGeneratorConfig) *SlotGenerator {
	if config.RetryBudget < 0 {
		config.RetryBudget = 0
	}
	if config.RetryDelay <= 0 {
		config.RetryDelay = 2 * time.Second
	}
	if config.AttemptTimeout <= 0 {
		config.AttemptTimeout = 15 * time.Second
	}
	return &SlotGenerator{
		styles:         styles,
		generator:      generator,
		rng:            rng,
		retryBudget:    config.RetryBudget,
		retryDelay:     config.RetryDelay,
		attemptTimeout: config.AttemptTimeout,
	}
}

// Generate produces a portrait URL for one persona, retrying on failure up
// to the budget. The prompt is built once and reused across attempts so the
// style choice stays stable within a slot's attempt sequence.
func (s *SlotGenerator) Generate(ctx context.Context, p persona.Persona, offeringContext string) (string, error) {
	style, err := PickStyle(ctx, s.styles, s.rng)
	if err != nil {
		return "", err
	}

	prompt := BuildPrompt(p, offeringContext, style)
	logging.PortraitDebug("slot prompt for %s: %s", p.ID, prompt)

	var lastErr error
	attempts := s.retryBudget + 1
	for attempt := 1; attempt <= attempts; attempt++ {
		if attempt > 1 {
			select {
			case <-time.After(s.retryDelay):
			case <-ctx.Done():
				return "", ctx.Err()
			}
		}

		result, err := s.attempt(ctx, prompt)
		if err == nil {
			logging.Portrait("portrait for %s succeeded on attempt %d", p.ID, attempt)
			return result, nil
		}
		if ctx.Err() != nil {
			// The whole run was cancelled, not just this attempt.
			return "", ctx.Err()
		}
		lastErr = err
		logging.Portrait("portrait attempt %d/%d for %s failed: %v", attempt, attempts, p.ID, err)
	}

	return "", fmt.Errorf("%w after %d attempts: %v", ErrExhaustedRetries, attempts, lastErr)
}

// attempt runs one collaborator call under the per-attempt timeout and
// validates the returned URL. A timeout is indistinguishable from any other
// collaborator error.
func (s *SlotGenerator) attempt(ctx context.Context, prompt string) (string, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, s.attemptTimeout)
	defer cancel()

	result, err := s.generator.GeneratePortrait(attemptCtx, prompt)
	if err != nil {
		return "", err
	}
	if err := validatePortraitURL(result); err != nil {
		return "", err
	}
	return result, nil
}

// validatePortraitURL rejects anything that is not an absolute http(s) URL.
func validatePortraitURL(raw string) error {
	if raw == "" {
		return fmt.Errorf("%w: empty URL", ErrPortraitFailed)
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%w: unparsable URL %q", ErrPortraitFailed, raw)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%w: not an absolute URL %q", ErrPortraitFailed, raw)
	}
	return nil
}
