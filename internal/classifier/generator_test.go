package classifier

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGeminiGenerate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/models/gemini-2.0-flash:generateContent", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("x-goog-api-key"))

		var req geminiRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Len(t, req.Contents, 1)
		assert.Equal(t, "prompt text", req.Contents[0].Parts[0].Text)

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(geminiResponse{Candidates: []geminiCandidate{{
			Content: geminiContent{Parts: []geminiPart{{Text: `{"category":`}, {Text: `"billing","priority":"low"}`}}},
		}}})
	}))
	defer srv.Close()

	g := NewGemini("test-key", WithBaseURL(srv.URL))
	got, err := g.Generate(context.Background(), "prompt text")
	require.NoError(t, err)
	assert.Equal(t, `{"category":"billing","priority":"low"}`, got)
}

func TestOpenAIGenerate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var req openaiRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "local-model", req.Model)
		assert.Len(t, req.Messages, 1)

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(openaiResponse{Choices: []openaiChoice{{
			Message: openaiMessage{Role: "assistant", Content: "```json\n{}\n```"},
		}}})
	}))
	defer srv.Close()

	g := NewOpenAI("test-key", WithBaseURL(srv.URL), WithModel("local-model"))
	got, err := g.Generate(context.Background(), "prompt text")
	require.NoError(t, err)
	assert.Equal(t, "```json\n{}\n```", got)
}

func TestGenerate_ServiceErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/chat/completions" {
			_, _ = w.Write([]byte(`{"choices":[]}`))
			return
		}
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"message":"quota"}}`))
	}))
	defer srv.Close()

	_, err := NewGemini("k", WithBaseURL(srv.URL)).Generate(context.Background(), "p")
	var svcErr *ServiceError
	require.True(t, errors.As(err, &svcErr))
	assert.Equal(t, http.StatusTooManyRequests, svcErr.StatusCode)
	assert.Equal(t, KindService, transportError(err).Kind)

	_, err = NewOpenAI("k", WithBaseURL(srv.URL)).Generate(context.Background(), "p")
	require.True(t, errors.As(err, &svcErr))
	assert.Equal(t, "no choices returned", svcErr.Message)
}

func TestGenerate_MissingAPIKey(t *testing.T) {
	_, err := NewGemini("").Generate(context.Background(), "p")
	assert.Equal(t, KindService, transportError(err).Kind)
	_, err = NewOpenAI(" ").Generate(context.Background(), "p")
	assert.Equal(t, KindService, transportError(err).Kind)
}

func TestGenerate_TransportFailures(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := NewGemini("k", WithBaseURL(srv.URL)).Generate(ctx, "p")
	require.Error(t, err)
	assert.Equal(t, KindTimeout, transportError(err).Kind)

	closed := httptest.NewServer(http.NotFoundHandler())
	url := closed.URL
	closed.Close()
	_, err = NewOpenAI("k", WithBaseURL(url)).Generate(context.Background(), "p")
	require.Error(t, err)
	assert.Equal(t, KindNetwork, transportError(err).Kind)
}
