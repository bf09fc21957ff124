package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/NapatKulnarong/SkinMatch-sub001/internal/config"
)

// AIClient talks to the external AI text service used by the ingredient
// scanner and the strategy notes. The remote service is opaque: one
// generate endpoint, JSON in, JSON out.
type AIClient struct {
	baseURL    string
	apiKey     string
	model      string
	httpClient *http.Client
	maxRetries int
	log        *zap.Logger
}

// NewAIClient builds the client from the scanner config. Returns an error
// when no base URL is configured; callers treat a nil client as "AI features
// disabled".
func NewAIClient(cfg config.ScannerConfig, log *zap.Logger) (*AIClient, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		return nil, errors.New("scanner base_url is not configured")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	maxRetries := cfg.MaxRetries
	if maxRetries < 0 {
		maxRetries = 0
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &AIClient{
		baseURL:    baseURL,
		apiKey:     cfg.APIKey,
		model:      cfg.Model,
		httpClient: &http.Client{Timeout: timeout},
		maxRetries: maxRetries,
		log:        log,
	}, nil
}

type generateRequest struct {
	Model  string `json:"model"`
	System string `json:"system,omitempty"`
	Prompt string `json:"prompt"`
	JSON   bool   `json:"json,omitempty"`
}

type generateResponse struct {
	Text  string `json:"text"`
	Error string `json:"error,omitempty"`
}

// GenerateText sends one prompt and returns the model's plain-text reply.
func (c *AIClient) GenerateText(ctx context.Context, system, user string) (string, error) {
	resp, err := c.generate(ctx, generateRequest{Model: c.model, System: system, Prompt: user})
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(resp.Text), nil
}

// GenerateJSON asks for a JSON reply and decodes it into out. Models
// sometimes wrap JSON in a markdown fence; that is stripped before decoding.
func (c *AIClient) GenerateJSON(ctx context.Context, system, user string, out interface{}) error {
	resp, err := c.generate(ctx, generateRequest{Model: c.model, System: system, Prompt: user, JSON: true})
	if err != nil {
		return err
	}
	text := strings.TrimSpace(resp.Text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	if err := json.Unmarshal([]byte(strings.TrimSpace(text)), out); err != nil {
		return fmt.Errorf("AI service returned malformed JSON: %w", err)
	}
	return nil
}

func (c *AIClient) generate(ctx context.Context, reqBody generateRequest) (*generateResponse, error) {
	payload, err := json.Marshal(reqBody)
	if err != nil {
		return nil, err
	}

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(attempt) * 500 * time.Millisecond
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/generate", bytes.NewReader(payload))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		if c.apiKey != "" {
			req.Header.Set("Authorization", "Bearer "+c.apiKey)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = err
			continue
		}
		body, readErr := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		resp.Body.Close()
		if readErr != nil {
			lastErr = readErr
			continue
		}

		switch {
		case resp.StatusCode == http.StatusOK:
			var out generateResponse
			if err := json.Unmarshal(body, &out); err != nil {
				return nil, fmt.Errorf("AI service returned unreadable body: %w", err)
			}
			if out.Error != "" {
				return nil, fmt.Errorf("AI service error: %s", out.Error)
			}
			return &out, nil
		case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
			// Transient; retry with backoff.
			lastErr = fmt.Errorf("AI service returned status %d", resp.StatusCode)
			c.log.Debug("retrying AI request", zap.Int("status", resp.StatusCode), zap.Int("attempt", attempt))
			continue
		default:
			return nil, fmt.Errorf("AI service returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
		}
	}
	return nil, fmt.Errorf("AI request failed after %d attempts: %w", c.maxRetries+1, lastErr)
}
