package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/bluewhale-terminal/backend/internal/logger"
	"github.com/hashicorp/go-retryablehttp"
)

const (
	DefaultOpenAIBaseURL = "https://openrouter.ai/api/v1/chat/completions"
	DefaultOpenAIModel   = "anthropic/claude-sonnet-4"
	openAITimeout        = 120 * time.Second
	openAIMaxTokens      = 2048
	openAIMaxRetries     = 2
	openAIRetryWait      = 400 * time.Millisecond
)

// OpenAI completes prompts against any OpenAI-compatible chat completions endpoint.
type OpenAI struct {
	apiKey  string
	baseURL string
	model   string
	http    *retryablehttp.Client
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message      chatMessage `json:"message"`
		FinishReason string      `json:"finish_reason"`
	} `json:"choices"`
}

// NewOpenAI builds a completer. 429 and 5xx answers are retried twice with backoff.
func NewOpenAI(apiKey, baseURL, model string) *OpenAI {
	if strings.TrimSpace(baseURL) == "" {
		baseURL = DefaultOpenAIBaseURL
	}
	if strings.TrimSpace(model) == "" {
		model = DefaultOpenAIModel
	}

	rc := retryablehttp.NewClient()
	rc.RetryMax = openAIMaxRetries
	rc.RetryWaitMin = openAIRetryWait
	rc.RetryWaitMax = 4 * openAIRetryWait
	rc.HTTPClient.Timeout = openAITimeout
	rc.ErrorHandler = retryablehttp.PassthroughErrorHandler
	rc.Logger = logger.KV{}

	return &OpenAI{apiKey: apiKey, baseURL: baseURL, model: model, http: rc}
}

// Complete sends a system + user chat and returns the first choice content.
func (o *OpenAI) Complete(ctx context.Context, system, prompt string) (string, error) {
	messages := make([]chatMessage, 0, 2)
	if system != "" {
		messages = append(messages, chatMessage{Role: "system", Content: system})
	}
	messages = append(messages, chatMessage{Role: "user", Content: prompt})

	body, err := json.Marshal(chatRequest{
		Model:       o.model,
		Messages:    messages,
		Temperature: 0.2,
		MaxTokens:   openAIMaxTokens,
	})
	if err != nil {
		return "", err
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, o.baseURL, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+o.apiKey)

	resp, err := o.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("chat completions request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("chat completions read: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		logger.Error("[LLM] chat completions error: %d - %s", resp.StatusCode, truncateForLog(string(raw), 500))
		return "", fmt.Errorf("chat completions returned status %d", resp.StatusCode)
	}

	var result chatResponse
	if err := json.Unmarshal(raw, &result); err != nil {
		return "", fmt.Errorf("chat completions decode: %w", err)
	}
	if len(result.Choices) == 0 {
		return "", fmt.Errorf("chat completions returned no choices")
	}

	content := strings.TrimSpace(result.Choices[0].Message.Content)
	if content == "" {
		return "", fmt.Errorf("chat completions missing content (finish_reason: %s)", result.Choices[0].FinishReason)
	}
	return content, nil
}

func truncateForLog(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit]) + "...(truncated)"
}
