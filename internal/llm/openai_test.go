// AngelaMos | 2026
// openai_test.go

package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carterperez-dev/mystic-backend/internal/config"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *OpenAIClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	return NewOpenAIClient(config.LLMConfig{
		BaseURL: srv.URL + "/",
		APIKey:  "test-key",
		Model:   "test-model",
		Timeout: 5 * time.Second,
	})
}

func TestOpenAIClientInvoke(t *testing.T) {
	var got chatRequest

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "cmpl-1",
			"model": "test-model",
			"choices": [{"message": {"role": "assistant", "content": "  The stars align.  "}}],
			"usage": {"prompt_tokens": 12, "completion_tokens": 4, "total_tokens": 16}
		}`))
	})

	completion, err := client.Invoke(context.Background(), []Message{
		{Role: RoleSystem, Content: "You are a guide."},
		{Role: RoleUser, Content: "Will I travel?"},
	})
	require.NoError(t, err)

	assert.Equal(t, "The stars align.", completion.Text())
	assert.Equal(t, 16, completion.Usage.TotalTokens)
	assert.Equal(t, "test-model", got.Model)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, RoleSystem, got.Messages[0].Role)
}

func TestOpenAIClientInvokeAPIError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error": {"message": "quota exceeded", "type": "rate_limit"}}`))
	})

	_, err := client.Invoke(context.Background(), []Message{{Role: RoleUser, Content: "hi"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "quota exceeded")
}

func TestOpenAIClientInvokeNonJSONError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream down", http.StatusBadGateway)
	})

	_, err := client.Invoke(context.Background(), []Message{{Role: RoleUser, Content: "hi"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
}

func TestOpenAIClientInvokeHonoursCancellation(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := client.Invoke(ctx, []Message{{Role: RoleUser, Content: "hi"}})
	require.ErrorIs(t, err, context.Canceled)
}

func TestCompletionText(t *testing.T) {
	var nilCompletion *Completion
	assert.Equal(t, "", nilCompletion.Text())
	assert.Equal(t, "", (&Completion{}).Text())
	assert.Equal(t, "ok", TextCompletion(" ok ").Text())
}
