package portrait

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// ErrPortraitFailed indicates the image collaborator returned an error or an
// unrecognized response shape.
var ErrPortraitFailed = errors.New("portrait generation failed")

// Generator produces one portrait URL from a finished prompt.
type Generator interface {
	GeneratePortrait(ctx context.Context, prompt string) (string, error)
}

// HTTPGenerator calls the image collaborator over HTTP.
type HTTPGenerator struct {
	baseURL    string
	resolution string
	httpClient *http.Client
}

// GeneratorConfig holds configuration for the HTTP portrait generator.
type GeneratorConfig struct {
	BaseURL    string
	Resolution string
	Timeout    time.Duration
}

// DefaultGeneratorConfig returns sensible defaults.
func DefaultGeneratorConfig(baseURL string) GeneratorConfig {
	return GeneratorConfig{
		BaseURL:    baseURL,
		Resolution: "1024x1024",
		Timeout:    60 * time.Second,
	}
}

// NewHTTPGenerator creates a portrait generator with default config.
func NewHTTPGenerator(baseURL string) *HTTPGenerator {
	return NewHTTPGeneratorWithConfig(DefaultGeneratorConfig(baseURL))
}

// NewHTTPGeneratorWithConfig creates a portrait generator with custom config.
func NewHTTPGeneratorWithConfig(config GeneratorConfig) *HTTPGenerator {
	if config.Resolution == "" {
		config.Resolution = "1024x1024"
	}
	return &HTTPGenerator{
		baseURL:    config.BaseURL,
		resolution: config.Resolution,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
	}
}

// portraitRequest is the collaborator request body.
type portraitRequest struct {
	Prompt     string `json:"prompt"`
	Resolution string `json:"resolution"`
}

// portraitResponse accepts both response shapes the collaborator is known
// to return: a flat {imageUrl} and a nested {data: [{url}]}.
type portraitResponse struct {
	ImageURL string `json:"imageUrl"`
	Data     []struct {
		URL string `json:"url"`
	} `json:"data"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// GeneratePortrait sends one prompt and returns the portrait URL.
func (g *HTTPGenerator) GeneratePortrait(ctx context.Context, prompt string) (string, error) {
	reqBody := portraitRequest{
		Prompt:     prompt,
		Resolution: g.resolution,
	}
	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		g.baseURL+"/portraits", bytes.NewReader(jsonData))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrPortraitFailed, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("%w: failed to read response: %v", ErrPortraitFailed, err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: status %d: %s", ErrPortraitFailed, resp.StatusCode, string(body))
	}

	var parsed portraitResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("%w: failed to parse response: %v", ErrPortraitFailed, err)
	}
	if parsed.Error != nil {
		return "", fmt.Errorf("%w: %s", ErrPortraitFailed, parsed.Error.Message)
	}

	if parsed.ImageURL != "" {
		return parsed.ImageURL, nil
	}
	if len(parsed.Data) > 0 && parsed.Data[0].URL != "" {
		return parsed.Data[0].URL, nil
	}
	return "", fmt.Errorf("%w: response has no image URL", ErrPortraitFailed)
}
