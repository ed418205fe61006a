package provider

import (
	"context"
	"fmt"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/citeguard/citeguard/internal/model"
)

// modelCosts maps model names to (input, output) USD per 1K tokens for
// cost accounting. Unknown models report zero cost rather than guessing.
var modelCosts = map[string][2]float64{
	openai.GPT4oMini: {0.00015, 0.0006},
	openai.GPT4o:     {0.0025, 0.01},
}

// OpenAIClient implements CompletionService over the OpenAI chat API.
type OpenAIClient struct {
	client  *openai.Client
	model   string
	timeout time.Duration
	maxTok  int
}

// NewOpenAIClient builds a completion client from the LLM config.
func NewOpenAIClient(cfg model.LLMConfig) (*OpenAIClient, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("LLM API key is required")
	}

	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}

	timeout := time.Duration(cfg.Timeout) * time.Second
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	m := cfg.Model
	if m == "" {
		m = openai.GPT4oMini
	}
	maxTok := cfg.MaxTokens
	if maxTok == 0 {
		maxTok = 1200
	}

	return &OpenAIClient{
		client:  openai.NewClientWithConfig(clientConfig),
		model:   m,
		timeout: timeout,
		maxTok:  maxTok,
	}, nil
}

// Complete issues one chat completion. JSONResponse forces the JSON object
// response format so callers can unmarshal directly.
func (c *OpenAIClient) Complete(ctx context.Context, req CompletionRequest) (*Completion, error) {
	m := req.Model
	if m == "" {
		m = c.model
	}
	maxTok := req.MaxTokens
	if maxTok == 0 {
		maxTok = c.maxTok
	}

	ctxWithTimeout, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	chatReq := openai.ChatCompletionRequest{
		Model: m,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: req.SystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: req.Prompt},
		},
		MaxTokens:   maxTok,
		Temperature: 0.2,
	}
	if req.JSONResponse {
		chatReq.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		}
	}

	resp, err := c.client.CreateChatCompletion(ctxWithTimeout, chatReq)
	if err != nil {
		return nil, fmt.Errorf("completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("completion: empty response")
	}

	return &Completion{
		Content:    strings.TrimSpace(resp.Choices[0].Message.Content),
		Model:      m,
		TokensUsed: resp.Usage.TotalTokens,
		CostUSD:    estimateCost(m, resp.Usage.PromptTokens, resp.Usage.CompletionTokens),
	}, nil
}

func estimateCost(model string, promptTokens, completionTokens int) float64 {
	rates, ok := modelCosts[model]
	if !ok {
		return 0
	}
	return float64(promptTokens)/1000*rates[0] + float64(completionTokens)/1000*rates[1]
}
