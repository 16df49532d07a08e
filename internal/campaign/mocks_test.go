package campaign

import (
	"context"
	"sync"
	"time"

	"admuse/internal/llm"
	"admuse/internal/portrait"
)

// mockLLMClient is a scriptable text-generation client.
type mockLLMClient struct {
	CompleteFunc           func(ctx context.Context, prompt string) (string, error)
	CompleteWithSystemFunc func(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

func (m *mockLLMClient) Complete(ctx context.Context, prompt string) (string, error) {
	if m.CompleteFunc != nil {
		return m.CompleteFunc(ctx, prompt)
	}
	return "", nil
}

func (m *mockLLMClient) CompleteWithSystem(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	if m.CompleteWithSystemFunc != nil {
		return m.CompleteWithSystemFunc(ctx, systemPrompt, userPrompt)
	}
	return "", nil
}

// mockStyleProvider returns a fixed style list.
type mockStyleProvider struct {
	styles []portrait.Style
	err    error
}

func (m *mockStyleProvider) ListStyles(ctx context.Context) ([]portrait.Style, error) {
	return m.styles, m.err
}

// mockPortraitGenerator records prompts and delegates to GenerateFunc.
type mockPortraitGenerator struct {
	mu           sync.Mutex
	GenerateFunc func(call int, prompt string) (string, error)
	prompts      []string
}

func (m *mockPortraitGenerator) GeneratePortrait(ctx context.Context, prompt string) (string, error) {
	m.mu.Lock()
	m.prompts = append(m.prompts, prompt)
	call := len(m.prompts)
	m.mu.Unlock()
	return m.GenerateFunc(call, prompt)
}

func (m *mockPortraitGenerator) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.prompts)
}

// fastSlotConfig keeps retry delays out of test wall time.
func fastSlotConfig() portrait.SlotGeneratorConfig {
	return portrait.SlotGeneratorConfig{
		RetryBudget:    1,
		RetryDelay:     time.Millisecond,
		AttemptTimeout: time.Second,
	}
}

const fivePersonaEnvelope = `{
  "personas": [
    {"id": "p0", "title": "Urban Runner", "gender": "women", "age_min": 25, "age_max": 34,
     "interests": ["fitness", "travel"], "tagline": "I run at dawn"},
    {"id": "p1", "title": "Tech Dad", "gender": "men", "age_min": 35, "age_max": 44,
     "interests": ["gadgets", "cooking"], "tagline": "Smart gear for the family"},
    {"id": "p2", "title": "Style Scout", "gender": "women", "age_min": 22, "age_max": 29,
     "interests": ["fashion", "music"], "tagline": "Always ahead of the trend"},
    {"id": "p3", "title": "Weekend Chef", "gender": "men", "age_min": 30, "age_max": 45,
     "interests": ["food", "wine"], "tagline": "Sunday is for slow cooking"},
    {"id": "p4", "title": "Trail Seeker", "gender": "women", "age_min": 28, "age_max": 40,
     "interests": ["hiking", "photography"], "tagline": "The view is the reward"}
  ]
}`

const onePersonaEnvelope = `{
  "personas": [
    {"id": "fresh", "title": "Night Owl", "gender": "men", "age_min": 20, "age_max": 29,
     "interests": ["gaming", "music"], "tagline": "The city at 2am is mine"}
  ]
}`

// fiveClient always returns the five-persona envelope.
func fiveClient() *mockLLMClient {
	return &mockLLMClient{
		CompleteWithSystemFunc: func(ctx context.Context, system, user string) (string, error) {
			return fivePersonaEnvelope, nil
		},
	}
}

func testBrief() llm.Request {
	return llm.Request{
		OfferingDescription: "running shoes",
		Country:             "US",
		Count:               5,
	}
}
