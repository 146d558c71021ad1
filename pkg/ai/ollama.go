package ai

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"
)

const defaultOllamaBaseURL = "http://127.0.0.1:11434"

// OllamaGenerator generates text through a local Ollama /api/chat endpoint.
type OllamaGenerator struct {
	baseURL    string
	model      string
	sampling   Sampling
	httpClient *http.Client
}

// NewOllamaGenerator targets a local daemon when baseURL is empty.
func NewOllamaGenerator(baseURL, model string, sampling Sampling, timeout time.Duration) *OllamaGenerator {
	return &OllamaGenerator{
		baseURL:    trimBaseURL(baseURL, defaultOllamaBaseURL),
		model:      strings.TrimSpace(model),
		sampling:   sampling,
		httpClient: &http.Client{Timeout: timeout},
	}
}

func (g *OllamaGenerator) GenerateText(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	if g.model == "" {
		return "", errors.New("ollama generation model required")
	}
	req := ollamaChatRequest{Model: g.model, Messages: chatMessages(systemPrompt, userPrompt)}
	if g.sampling.Temperature > 0 || g.sampling.MaxTokens > 0 {
		opts := &ollamaOptions{NumPredict: g.sampling.MaxTokens}
		if g.sampling.Temperature > 0 {
			t := g.sampling.Temperature
			opts.Temperature = &t
		}
		req.Options = opts
	}
	var resp ollamaChatResponse
	if err := postJSON(ctx, g.httpClient, "ollama", g.baseURL+"/api/chat", nil, req, &resp); err != nil {
		return "", err
	}
	text := strings.TrimSpace(resp.Message.Content)
	if text == "" {
		return "", errors.New("empty response from ollama")
	}
	return text, nil
}

type ollamaOptions struct {
	Temperature *float64 `json:"temperature,omitempty"`
	NumPredict  int      `json:"num_predict,omitempty"`
}

type ollamaChatRequest struct {
	Model    string         `json:"model"`
	Messages []chatMessage  `json:"messages"`
	Stream   bool           `json:"stream"`
	Options  *ollamaOptions `json:"options,omitempty"`
}

type ollamaChatResponse struct {
	Message chatMessage `json:"message"`
}
