package advisor

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lox/clearyfi/internal/logging"
)

type chatRequest struct {
	Model       string  `json:"model"`
	Temperature float64 `json:"temperature"`
	MaxTokens   int     `json:"max_tokens"`
	Messages    []struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"messages"`
}

func completion(content string) string {
	b, _ := json.Marshal(map[string]any{
		"id":      "chatcmpl-1",
		"object":  "chat.completion",
		"created": 1772334000,
		"model":   "deepseek-chat",
		"choices": []map[string]any{{
			"index":         0,
			"finish_reason": "stop",
			"message":       map[string]any{"role": "assistant", "content": content},
		}},
	})
	return string(b)
}

func TestAdvise(t *testing.T) {
	var got chatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		body, _ := io.ReadAll(r.Body)
		assert.NoError(t, json.Unmarshal(body, &got))
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, completion("  Drive slowly, the bridges freeze first.\n"))
	}))
	defer srv.Close()

	c, err := New("secret", logging.Nop(), WithBaseURL(srv.URL), WithLanguage("en"))
	require.NoError(t, err)

	answer, err := c.Advise(context.Background(), TopicRoads, map[string]any{"city": "Moscow", "temperature": -3})
	require.NoError(t, err)
	assert.Equal(t, "Drive slowly, the bridges freeze first.", answer)

	assert.Equal(t, DefaultModel, got.Model)
	assert.Equal(t, 0.3, got.Temperature)
	assert.Equal(t, 600, got.MaxTokens)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, "system", got.Messages[0].Role)
	assert.Contains(t, got.Messages[0].Content, "driving safety instructor")
	assert.Contains(t, got.Messages[0].Content, "Answer in English.")
	assert.Equal(t, "user", got.Messages[1].Role)
	assert.JSONEq(t, `{"city":"Moscow","temperature":-3}`, got.Messages[1].Content)
}

func TestAdviseEmptyAnswer(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, completion("   "))
	}))
	defer srv.Close()

	c, err := New("secret", logging.Nop(), WithBaseURL(srv.URL))
	require.NoError(t, err)
	_, err = c.Advise(context.Background(), TopicMaintenance, nil)
	assert.ErrorIs(t, err, ErrEmptyAnswer)
}

func TestAdviseUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		io.WriteString(w, `{"error":{"message":"bad key","type":"invalid_request_error"}}`)
	}))
	defer srv.Close()

	c, err := New("secret", logging.Nop(), WithBaseURL(srv.URL))
	require.NoError(t, err)
	_, err = c.Advise(context.Background(), TopicWash, map[string]int{"x": 1})
	assert.ErrorContains(t, err, "chat completion")
}

func TestAdviseUnknownTopic(t *testing.T) {
	c, err := New("secret", logging.Nop())
	require.NoError(t, err)
	_, err = c.Advise(context.Background(), Topic("gardening"), nil)
	assert.ErrorContains(t, err, "unknown topic")
}

func TestNewRequiresKey(t *testing.T) {
	_, err := New("", logging.Nop())
	assert.Error(t, err)
}

func TestNop(t *testing.T) {
	var a Advisor = Nop{}
	answer, err := a.Advise(context.Background(), TopicTires, nil)
	assert.NoError(t, err)
	assert.Empty(t, answer)
}
