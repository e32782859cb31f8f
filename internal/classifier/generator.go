package classifier

import (
	"context"
	"io"
	"net/http"
	"time"
)

// Generator produces a single non-streaming completion for a prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
	Name() string
}

// GeneratorFunc adapts a function to the Generator interface.
type GeneratorFunc func(ctx context.Context, prompt string) (string, error)

func (f GeneratorFunc) Generate(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}

func (f GeneratorFunc) Name() string { return "func" }

const maxResponseBytes = 1 << 20

// httpGenerator holds what the HTTP based generators share.
type httpGenerator struct {
	client  *http.Client
	baseURL string
	apiKey  string
	model   string
}

// GeneratorOption configures an HTTP generator.
type GeneratorOption func(*httpGenerator)

// WithBaseURL sets a custom API base URL. Empty values keep the default.
func WithBaseURL(url string) GeneratorOption {
	return func(g *httpGenerator) {
		if url != "" {
			g.baseURL = url
		}
	}
}

// WithModel sets the model. Empty values keep the default.
func WithModel(model string) GeneratorOption {
	return func(g *httpGenerator) {
		if model != "" {
			g.model = model
		}
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(c *http.Client) GeneratorOption {
	return func(g *httpGenerator) {
		if c != nil {
			g.client = c
		}
	}
}

func newHTTPGenerator(apiKey, baseURL, model string, opts []GeneratorOption) httpGenerator {
	g := httpGenerator{
		client:  &http.Client{Timeout: 60 * time.Second},
		baseURL: baseURL,
		apiKey:  apiKey,
		model:   model,
	}
	for _, opt := range opts {
		opt(&g)
	}
	return g
}

func readBody(resp *http.Response) ([]byte, error) {
	return io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
}
