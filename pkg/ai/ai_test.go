package ai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestOpenAICompatGeneratorSendsSamplingAndAuth(t *testing.T) {
	var got oaiChatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		if auth := r.Header.Get("Authorization"); auth != "Bearer test-key" {
			t.Fatalf("unexpected auth header %q", auth)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"  drink water  "}}]}`))
	}))
	defer srv.Close()

	gen := NewOpenAICompatGenerator(srv.URL+"/v1/", "test-key", "gemma-7b-it", Sampling{Temperature: 0.5, MaxTokens: 500}, 0)
	text, err := gen.GenerateText(context.Background(), "", "hello")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if text != "drink water" {
		t.Fatalf("unexpected text %q", text)
	}
	if got.Model != "gemma-7b-it" || got.MaxTokens != 500 {
		t.Fatalf("unexpected request %+v", got)
	}
	if got.Temperature == nil || *got.Temperature != 0.5 {
		t.Fatalf("expected temperature 0.5, got %v", got.Temperature)
	}
	if len(got.Messages) != 1 || got.Messages[0].Role != "user" {
		t.Fatalf("expected a single user message, got %+v", got.Messages)
	}
}

func TestOpenAICompatGeneratorSurfacesAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"message":"invalid api key","type":"auth"}}`))
	}))
	defer srv.Close()

	gen := NewOpenAICompatGenerator(srv.URL, "bad", "m", Sampling{}, 0)
	_, err := gen.GenerateText(context.Background(), "", "hello")
	if err == nil || !strings.Contains(err.Error(), "invalid api key") {
		t.Fatalf("expected api error, got %v", err)
	}
}

func TestGeminiGeneratorSendsGenerationConfig(t *testing.T) {
	var got geminiRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/models/gemini-pro:generateContent") {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		if r.URL.Query().Get("key") != "k" {
			t.Fatalf("missing api key")
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		_, _ = w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"rest well"}]}}]}`))
	}))
	defer srv.Close()

	gen, err := NewGeminiGenerator("k", srv.URL, "models/gemini-pro", Sampling{Temperature: 0.5, MaxTokens: 500}, 0)
	if err != nil {
		t.Fatalf("new generator: %v", err)
	}
	text, err := gen.GenerateText(context.Background(), "", "hi")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if text != "rest well" {
		t.Fatalf("unexpected text %q", text)
	}
	if got.GenerationConfig == nil || got.GenerationConfig.MaxOutputTokens != 500 {
		t.Fatalf("expected generation config, got %+v", got.GenerationConfig)
	}
}

func TestOllamaGeneratorSendsOptions(t *testing.T) {
	var got ollamaChatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/chat" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		_, _ = w.Write([]byte(`{"message":{"role":"assistant","content":"sleep"}}`))
	}))
	defer srv.Close()

	gen := NewOllamaGenerator(srv.URL, "gemma", Sampling{Temperature: 0.5, MaxTokens: 500}, 0)
	text, err := gen.GenerateText(context.Background(), "sys", "hi")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if text != "sleep" {
		t.Fatalf("unexpected text %q", text)
	}
	if got.Stream || got.Options == nil || got.Options.NumPredict != 500 {
		t.Fatalf("unexpected request %+v", got)
	}
	if len(got.Messages) != 2 || got.Messages[0].Role != "system" {
		t.Fatalf("expected system + user messages, got %+v", got.Messages)
	}
}

func TestOllamaGeneratorSurfacesPlainError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":"model 'gemma' not found"}`))
	}))
	defer srv.Close()

	_, err := NewOllamaGenerator(srv.URL, "gemma", Sampling{}, 0).GenerateText(context.Background(), "", "hi")
	if err == nil || !strings.Contains(err.Error(), "ollama api error: model 'gemma' not found") {
		t.Fatalf("expected ollama error message, got %v", err)
	}
}

func TestNewGeneratorSelectsProvider(t *testing.T) {
	gen, err := NewGenerator(ProviderConfig{Model: "gemma-7b-it"})
	if err != nil {
		t.Fatalf("default provider: %v", err)
	}
	oai, ok := gen.(*OpenAICompatGenerator)
	if !ok {
		t.Fatalf("expected openai-compat generator, got %T", gen)
	}
	if oai.baseURL != DefaultGroqBaseURL {
		t.Fatalf("expected groq base url, got %q", oai.baseURL)
	}
	if oai.httpClient.Timeout != 0 {
		t.Fatalf("expected no client timeout by default, got %v", oai.httpClient.Timeout)
	}
	if _, err := NewGenerator(ProviderConfig{Provider: "gemini", Model: "m"}); err == nil {
		t.Fatalf("gemini without api key should fail")
	}
	if _, err := NewGenerator(ProviderConfig{Provider: "nope", Model: "m"}); err == nil {
		t.Fatalf("unknown provider should fail")
	}
	if _, err := NewGenerator(ProviderConfig{}); err == nil {
		t.Fatalf("missing model should fail")
	}
}

func TestNewGeneratorAppliesTimeout(t *testing.T) {
	gen, err := NewGenerator(ProviderConfig{Provider: "ollama", Model: "gemma", Timeout: 45 * time.Second})
	if err != nil {
		t.Fatalf("ollama: %v", err)
	}
	if got := gen.(*OllamaGenerator).httpClient.Timeout; got != 45*time.Second {
		t.Fatalf("timeout = %v", got)
	}
	gen, err = NewGenerator(ProviderConfig{Provider: "gemini", APIKey: "k", Model: "m", Timeout: time.Minute})
	if err != nil {
		t.Fatalf("gemini: %v", err)
	}
	if got := gen.(*GeminiGenerator).httpClient.Timeout; got != time.Minute {
		t.Fatalf("timeout = %v", got)
	}
}

func TestGenerateTextHonorsContextDeadline(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := NewOpenAICompatGenerator(srv.URL, "k", "m", Sampling{}, 0).GenerateText(ctx, "", "hi")
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
}

type recordingGenerator struct {
	prompt string
	err    error
}

func (g *recordingGenerator) GenerateText(_ context.Context, _, userPrompt string) (string, error) {
	g.prompt = userPrompt
	if g.err != nil {
		return "", g.err
	}
	return "answer", nil
}

func TestAdvisorRendersTemplate(t *testing.T) {
	gen := &recordingGenerator{}
	advisor := NewAdvisor(gen)
	answer, err := advisor.Advise(context.Background(), "  remedies for cold ")
	if err != nil {
		t.Fatalf("advise: %v", err)
	}
	if answer != "answer" {
		t.Fatalf("unexpected answer %q", answer)
	}
	if !strings.HasPrefix(gen.prompt, "**Question:** remedies for cold\n") {
		t.Fatalf("unexpected prompt %q", gen.prompt)
	}
	if !strings.Contains(gen.prompt, "Ayurvedic plants") {
		t.Fatalf("prompt should ask for ayurvedic information")
	}
}

func TestAdvisorErrors(t *testing.T) {
	boom := errors.New("upstream down")
	advisor := NewAdvisor(&recordingGenerator{err: boom})
	if _, err := advisor.Advise(context.Background(), "q"); !errors.Is(err, boom) {
		t.Fatalf("expected wrapped upstream error, got %v", err)
	}
	if _, err := advisor.Advise(context.Background(), " "); !errors.Is(err, ErrEmptyQuestion) {
		t.Fatalf("expected ErrEmptyQuestion, got %v", err)
	}
}
