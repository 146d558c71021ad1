package ai

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"
)

// DefaultGroqBaseURL is Groq's OpenAI-compatible endpoint.
const DefaultGroqBaseURL = "https://api.groq.com/openai/v1"

// OpenAICompatGenerator calls an OpenAI-compatible /chat/completions endpoint
// such as Groq, vLLM or LiteLLM.
type OpenAICompatGenerator struct {
	baseURL    string
	apiKey     string
	model      string
	sampling   Sampling
	httpClient *http.Client
}

// NewOpenAICompatGenerator builds an OpenAI-compatible TextGenerator.
// baseURL includes the /v1 prefix. apiKey may be empty for local servers.
// A zero timeout leaves the request context as the only deadline.
func NewOpenAICompatGenerator(baseURL, apiKey, model string, sampling Sampling, timeout time.Duration) *OpenAICompatGenerator {
	return &OpenAICompatGenerator{
		baseURL:    trimBaseURL(baseURL, DefaultGroqBaseURL),
		apiKey:     strings.TrimSpace(apiKey),
		model:      strings.TrimSpace(model),
		sampling:   sampling,
		httpClient: &http.Client{Timeout: timeout},
	}
}

func (g *OpenAICompatGenerator) GenerateText(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	if g.model == "" {
		return "", errors.New("openai-compat generation model required")
	}
	req := oaiChatRequest{
		Model:     g.model,
		Messages:  chatMessages(systemPrompt, userPrompt),
		MaxTokens: g.sampling.MaxTokens,
	}
	if g.sampling.Temperature > 0 {
		t := g.sampling.Temperature
		req.Temperature = &t
	}
	header := http.Header{}
	if g.apiKey != "" {
		header.Set("Authorization", "Bearer "+g.apiKey)
	}
	var resp oaiChatResponse
	if err := postJSON(ctx, g.httpClient, "openai-compat", g.baseURL+"/chat/completions", header, req, &resp); err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("empty response from openai-compat api")
	}
	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	if text == "" {
		return "", errors.New("empty response from openai-compat api")
	}
	return text, nil
}

type oaiChatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature *float64      `json:"temperature,omitempty"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
}

type oaiChatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}
