package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/vapmail16/synonym-quest-sub000/pkg/utilities"
)

// ErrDisabled is returned by every call when no API key is configured.
var ErrDisabled = errors.New("openai client disabled: OPENAI_API_KEY not set")

type Config struct {
	APIKey      string
	BaseURL     string
	Model       string
	MaxTokens   int
	Temperature float64
	Timeout     time.Duration
}

// ConfigFromEnv reads OPENAI_* variables.
func ConfigFromEnv() Config {
	return Config{
		APIKey:      utilities.EnvString("OPENAI_API_KEY", ""),
		BaseURL:     strings.TrimRight(utilities.EnvString("OPENAI_BASE_URL", "https://api.openai.com"), "/"),
		Model:       utilities.EnvString("OPENAI_MODEL", "gpt-3.5-turbo"),
		MaxTokens:   utilities.EnvInt("OPENAI_MAX_TOKENS", 200),
		Temperature: 0.7,
		Timeout:     time.Duration(utilities.EnvInt("OPENAI_TIMEOUT_SECONDS", 20)) * time.Second,
	}
}

// Client talks to the OpenAI chat completions endpoint.
type Client struct {
	cfg    Config
	http   *http.Client
	logger *zap.SugaredLogger
}

func New(cfg Config, logger *zap.SugaredLogger) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 20 * time.Second
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 200
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Client{cfg: cfg, http: &http.Client{Timeout: cfg.Timeout}, logger: logger}
}

// Enabled reports whether calls will reach the API.
func (c *Client) Enabled() bool { return c != nil && c.cfg.APIKey != "" }

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string    `json:"model"`
	Messages    []message `json:"messages"`
	MaxTokens   int       `json:"max_tokens"`
	Temperature float64   `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// complete sends one system + user turn and returns the trimmed reply.
func (c *Client) complete(ctx context.Context, system, user string, temperature float64) (string, error) {
	if !c.Enabled() {
		return "", ErrDisabled
	}
	body, err := json.Marshal(chatRequest{
		Model:       c.cfg.Model,
		Messages:    []message{{Role: "system", Content: system}, {Role: "user", Content: user}},
		MaxTokens:   c.cfg.MaxTokens,
		Temperature: temperature,
	})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/v1/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	var out chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if out.Error != nil {
		return "", fmt.Errorf("api error: %s", out.Error.Message)
	}
	if resp.StatusCode >= 300 {
		return "", fmt.Errorf("api status %d", resp.StatusCode)
	}
	if len(out.Choices) == 0 {
		return "", errors.New("no response choices returned")
	}
	return strings.TrimSpace(out.Choices[0].Message.Content), nil
}
