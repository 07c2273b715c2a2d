package generation

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newOpenAIServer(t *testing.T, content string, status int) (*httptest.Server, *map[string]any) {
	t.Helper()
	var captured map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		w.Header().Set("Content-Type", "application/json")
		if status != http.StatusOK {
			w.WriteHeader(status)
			_, _ = fmt.Fprint(w, `{"error":{"message":"quota exceeded","type":"insufficient_quota"}}`)
			return
		}
		body, _ := json.Marshal(map[string]any{
			"id":      "chatcmpl-1",
			"object":  "chat.completion",
			"created": 1,
			"model":   "gpt-4o",
			"choices": []map[string]any{{
				"index":         0,
				"message":       map[string]any{"role": "assistant", "content": content},
				"finish_reason": "stop",
			}},
		})
		_, _ = w.Write(body)
	}))
	t.Cleanup(srv.Close)
	return srv, &captured
}

func TestNewOpenAI_NoKeyDisabled(t *testing.T) {
	assert.Nil(t, NewOpenAI("", "", ""))
}

func TestOpenAI_CompleteSendsJSONMode(t *testing.T) {
	srv, captured := newOpenAIServer(t, `{"script":"Open settings."}`, http.StatusOK)
	p := NewOpenAI("test-key", srv.URL+"/v1", "")

	out, err := p.Complete(context.Background(), scriptRequest("open settings", "Acme"))
	require.NoError(t, err)
	assert.Equal(t, `{"script":"Open settings."}`, out)

	assert.Equal(t, DefaultOpenAIModel, (*captured)["model"])
	format, ok := (*captured)["response_format"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "json_object", format["type"])
	msgs, ok := (*captured)["messages"].([]any)
	require.True(t, ok)
	require.Len(t, msgs, 2)
	assert.Equal(t, "system", msgs[0].(map[string]any)["role"])
}

func TestOpenAI_ErrorStatus(t *testing.T) {
	srv, _ := newOpenAIServer(t, "", http.StatusTooManyRequests)
	p := NewOpenAI("test-key", srv.URL+"/v1", "gpt-4o-mini")

	_, err := p.Complete(context.Background(), scriptRequest("x", "y"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "openai chat completion")
}

func TestOpenAI_EmptyContent(t *testing.T) {
	srv, _ := newOpenAIServer(t, "  ", http.StatusOK)
	p := NewOpenAI("test-key", srv.URL+"/v1", "")

	_, err := p.Complete(context.Background(), scriptRequest("x", "y"))
	assert.ErrorIs(t, err, ErrEmptyResponse)
}

func TestChain_OpenAIEndToEnd(t *testing.T) {
	srv, _ := newOpenAIServer(t, `{"steps":[{"stepNumber":1,"actionType":"navigate","targetElement":"url","instructions":"Go","data":"https://acme.test"}]}`, http.StatusOK)
	c := NewChain(nil, NewOpenAI("test-key", srv.URL+"/v1", ""))

	steps := c.GenerateStepSuggestions(context.Background(), "sign in", "Acme", "https://acme.test")
	require.Len(t, steps, 1)
	assert.Equal(t, "Go", steps[0].Instructions)
}
