package classifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

const (
	defaultOpenAIBaseURL = "https://api.openai.com/v1"
	defaultOpenAIModel   = "gpt-4o-mini"
)

// OpenAIGenerator talks to any OpenAI-compatible chat completions API.
type OpenAIGenerator struct {
	httpGenerator
}

// NewOpenAI creates an OpenAI-compatible generator.
func NewOpenAI(apiKey string, opts ...GeneratorOption) *OpenAIGenerator {
	return &OpenAIGenerator{httpGenerator: newHTTPGenerator(apiKey, defaultOpenAIBaseURL, defaultOpenAIModel, opts)}
}

func (g *OpenAIGenerator) Name() string { return "openai" }

func (g *OpenAIGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	if strings.TrimSpace(g.apiKey) == "" {
		return "", &ServiceError{Provider: g.Name(), Message: "api key not configured"}
	}

	payload, err := json.Marshal(openaiRequest{
		Model:    g.model,
		Messages: []openaiMessage{{Role: "user", Content: prompt}},
	})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	url := strings.TrimRight(g.baseURL, "/") + "/chat/completions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+g.apiKey)

	resp, err := g.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	body, err := readBody(resp)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", &ServiceError{Provider: g.Name(), StatusCode: resp.StatusCode, Message: string(body)}
	}

	var decoded openaiResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return "", &ServiceError{Provider: g.Name(), StatusCode: resp.StatusCode, Message: "undecodable response envelope"}
	}
	if len(decoded.Choices) == 0 {
		return "", &ServiceError{Provider: g.Name(), StatusCode: resp.StatusCode, Message: "no choices returned"}
	}
	return decoded.Choices[0].Message.Content, nil
}

// --- OpenAI wire format types ---

type openaiRequest struct {
	Model    string          `json:"model"`
	Messages []openaiMessage `json:"messages"`
}

type openaiMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openaiResponse struct {
	Choices []openaiChoice `json:"choices"`
}

type openaiChoice struct {
	Message openaiMessage `json:"message"`
}
