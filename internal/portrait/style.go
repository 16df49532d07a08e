// Package portrait produces portrait URLs for persona slots: approved style
// lookup, prompt assembly, the image collaborator client, and the bounded
// retry loop around a single slot.
package portrait

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"time"

	"admuse/internal/logging"
)

var (
	// ErrStyleUnavailable indicates the style collaborator returned no
	// records. Transport failures are reported separately.
	ErrStyleUnavailable = errors.New("no approved styles available")

	// ErrCollaboratorUnavailable indicates a collaborator could not be
	// reached or answered with garbage.
	ErrCollaboratorUnavailable = errors.New("collaborator unavailable")
)

// Style is one approved visual style record.
type Style struct {
	Name   string `json:"name"`
	Status string `json:"status"`
}

// StyleProvider fetches the approved style list.
type StyleProvider interface {
	ListStyles(ctx context.Context) ([]Style, error)
}

// HTTPStyleProvider fetches styles from the style collaborator over HTTP.
type HTTPStyleProvider struct {
	baseURL    string
	httpClient *http.Client
}

// StyleProviderConfig holds configuration for the HTTP style provider.
type StyleProviderConfig struct {
	BaseURL string
	Timeout time.Duration
}

// DefaultStyleProviderConfig returns sensible defaults.
func DefaultStyleProviderConfig(baseURL string) StyleProviderConfig {
	return StyleProviderConfig{
		BaseURL: baseURL,
		Timeout: 30 * time.Second,
	}
}

// NewHTTPStyleProvider creates a style provider with default config.
func NewHTTPStyleProvider(baseURL string) *HTTPStyleProvider {
	return NewHTTPStyleProviderWithConfig(DefaultStyleProviderConfig(baseURL))
}

// NewHTTPStyleProviderWithConfig creates a style provider with custom config.
func NewHTTPStyleProviderWithConfig(config StyleProviderConfig) *HTTPStyleProvider {
	return &HTTPStyleProvider{
		baseURL: config.BaseURL,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
	}
}

// styleListResponse is the collaborator's fetch-all response.
type styleListResponse struct {
	Styles []Style `json:"styles"`
	Error  *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// ListStyles fetches all style records. No filtering happens here.
func (p *HTTPStyleProvider) ListStyles(ctx context.Context) ([]Style, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"/styles", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("style request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read style response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("style collaborator returned status %d: %s", resp.StatusCode, string(body))
	}

	var parsed styleListResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		// Some deployments return the bare array.
		var bare []Style
		if err2 := json.Unmarshal(body, &bare); err2 != nil {
			return nil, fmt.Errorf("failed to parse style response: %w", err)
		}
		return bare, nil
	}
	if parsed.Error != nil {
		return nil, fmt.Errorf("style collaborator error: %s", parsed.Error.Message)
	}
	return parsed.Styles, nil
}

// PickStyle selects a style uniformly at random from all records the
// collaborator returns. Status is not consulted for eligibility.
func PickStyle(ctx context.Context, provider StyleProvider, rng *rand.Rand) (Style, error) {
	styles, err := provider.ListStyles(ctx)
	if err != nil {
		return Style{}, fmt.Errorf("%w: %v", ErrCollaboratorUnavailable, err)
	}
	if len(styles) == 0 {
		return Style{}, ErrStyleUnavailable
	}
	picked := styles[rng.Intn(len(styles))]
	logging.Get(logging.CategoryStyle).Debug("picked style %q from %d records", picked.Name, len(styles))
	return picked, nil
}
