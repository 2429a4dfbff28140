package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"scamtrap-lab/pkg/logger"
)

// LLMClient provides access to large language model chat APIs
type LLMClient struct {
	httpClient *http.Client
	logger     *logger.Logger
	config     LLMConfig
}

// LLMConfig holds LLM client configuration
type LLMConfig struct {
	Provider     string // anthropic, openai
	APIKey       string
	Model        string
	Temperature  float64
	MaxTokens    int
	SystemPrompt string
	Timeout      time.Duration
}

// NewLLMClient creates a new LLM client
func NewLLMClient(cfg LLMConfig, log *logger.Logger) *LLMClient {
	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.Temperature == 0 {
		cfg.Temperature = 0.9 // High temperature for conversational variety
	}
	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = 256
	}
	if cfg.Model == "" {
		if cfg.Provider == "openai" {
			cfg.Model = "gpt-4o-mini"
		} else {
			cfg.Model = "claude-3-5-haiku-20241022"
		}
	}

	return &LLMClient{
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		logger: log.WithComponent("llm-client"),
		config: cfg,
	}
}

// Message represents a chat message
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// NewTextMessage builds a chat message.
func NewTextMessage(role, text string) Message {
	return Message{Role: role, Content: text}
}

// Chat sends the conversation to the configured provider and returns the
// completion text.
func (c *LLMClient) Chat(ctx context.Context, messages []Message, system string) (string, error) {
	if system == "" {
		system = c.config.SystemPrompt
	}

	switch c.config.Provider {
	case "anthropic", "claude":
		return c.callAnthropic(ctx, system, messages)
	case "openai":
		return c.callOpenAI(ctx, system, messages)
	default:
		return "", fmt.Errorf("unsupported provider: %s", c.config.Provider)
	}
}

func (c *LLMClient) callAnthropic(ctx context.Context, system string, messages []Message) (string, error) {
	url := "https://api.anthropic.com/v1/messages"

	reqBody := map[string]interface{}{
		"model":       c.config.Model,
		"max_tokens":  c.config.MaxTokens,
		"temperature": c.config.Temperature,
		"system":      system,
		"messages":    messages,
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewBuffer(jsonBody))
	if err != nil {
		return "", err
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", c.config.APIKey)
	req.Header.Set("anthropic-version", "2023-06-01")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("Anthropic API error %d: %s", resp.StatusCode, string(body))
	}

	var anthropicResp struct {
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"content"`
		StopReason string `json:"stop_reason"`
	}
	if err := json.Unmarshal(body, &anthropicResp); err != nil {
		return "", err
	}

	var content string
	for _, part := range anthropicResp.Content {
		if part.Type == "text" {
			content += part.Text
		}
	}
	return content, nil
}

func (c *LLMClient) callOpenAI(ctx context.Context, system string, messages []Message) (string, error) {
	url := "https://api.openai.com/v1/chat/completions"

	openAIMessages := make([]Message, 0, len(messages)+1)
	openAIMessages = append(openAIMessages, Message{Role: "system", Content: system})
	openAIMessages = append(openAIMessages, messages...)

	reqBody := map[string]interface{}{
		"model":       c.config.Model,
		"max_tokens":  c.config.MaxTokens,
		"temperature": c.config.Temperature,
		"messages":    openAIMessages,
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewBuffer(jsonBody))
	if err != nil {
		return "", err
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.config.APIKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("OpenAI API error %d: %s", resp.StatusCode, string(body))
	}

	var openAIResp struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(body, &openAIResp); err != nil {
		return "", err
	}

	if len(openAIResp.Choices) == 0 {
		return "", fmt.Errorf("OpenAI returned no choices")
	}
	return openAIResp.Choices[0].Message.Content, nil
}
