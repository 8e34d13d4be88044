// AngelaMos | 2026
// openai.go

package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/carterperez-dev/mystic-backend/internal/config"
)

var (
	llmRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mystic_llm_requests_total",
			Help: "Chat completion calls by outcome",
		},
		[]string{"model", "outcome"},
	)

	llmRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "mystic_llm_request_duration_seconds",
			Help:    "Chat completion latency in seconds",
			Buckets: []float64{.5, 1, 2.5, 5, 10, 20, 40, 80, 120},
		},
		[]string{"model"},
	)

	llmTokensTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mystic_llm_tokens_total",
			Help: "Tokens reported by the provider",
		},
		[]string{"model", "kind"},
	)
)

var tracer = otel.Tracer("github.com/carterperez-dev/mystic-backend/internal/llm")

// OpenAIClient calls any OpenAI-compatible /chat/completions endpoint.
type OpenAIClient struct {
	baseURL     string
	apiKey      string
	model       string
	temperature float64
	httpClient  *http.Client
}

func NewOpenAIClient(cfg config.LLMConfig) *OpenAIClient {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 120 * time.Second
	}

	return &OpenAIClient{
		baseURL:     strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
		apiKey:      strings.TrimSpace(cfg.APIKey),
		model:       strings.TrimSpace(cfg.Model),
		temperature: cfg.Temperature,
		httpClient:  &http.Client{Timeout: timeout},
	}
}

type chatRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Temperature float64   `json:"temperature,omitempty"`
}

type errorResponse struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

func (c *OpenAIClient) Invoke(
	ctx context.Context,
	messages []Message,
) (*Completion, error) {
	ctx, span := tracer.Start(ctx, "llm.invoke",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("llm.model", c.model),
			attribute.Int("llm.messages", len(messages)),
		),
	)
	defer span.End()

	start := time.Now()
	completion, err := c.invoke(ctx, messages)
	llmRequestDuration.WithLabelValues(c.model).Observe(time.Since(start).Seconds())

	if err != nil {
		llmRequestsTotal.WithLabelValues(c.model, outcome(err)).Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	llmRequestsTotal.WithLabelValues(c.model, "ok").Inc()
	llmTokensTotal.WithLabelValues(c.model, "prompt").Add(float64(completion.Usage.PromptTokens))
	llmTokensTotal.WithLabelValues(c.model, "completion").Add(float64(completion.Usage.CompletionTokens))
	span.SetAttributes(attribute.Int("llm.total_tokens", completion.Usage.TotalTokens))

	return completion, nil
}

func (c *OpenAIClient) invoke(
	ctx context.Context,
	messages []Message,
) (*Completion, error) {
	if c.model == "" {
		return nil, errors.New("llm model not configured")
	}

	body, err := json.Marshal(chatRequest{
		Model:       c.model,
		Messages:    messages,
		Temperature: c.temperature,
	})
	if err != nil {
		return nil, fmt.Errorf("encode chat request: %w", err)
	}

	req, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		c.baseURL+"/chat/completions",
		bytes.NewReader(body),
	)
	if err != nil {
		return nil, fmt.Errorf("build chat request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("chat request: %w", err)
	}
	defer resp.Body.Close() //nolint:errcheck // read-only body

	if resp.StatusCode >= http.StatusBadRequest {
		var errResp errorResponse
		//nolint:errcheck // the status line is enough when the body is not JSON
		_ = json.NewDecoder(io.LimitReader(resp.Body, 1<<16)).Decode(&errResp)
		if errResp.Error.Message != "" {
			return nil, fmt.Errorf("chat api error %d: %s", resp.StatusCode, errResp.Error.Message)
		}
		return nil, fmt.Errorf("chat api error: %s", resp.Status)
	}

	var completion Completion
	if err := json.NewDecoder(resp.Body).Decode(&completion); err != nil {
		return nil, fmt.Errorf("decode chat response: %w", err)
	}

	return &completion, nil
}

func outcome(err error) string {
	switch {
	case errors.Is(err, context.Canceled):
		return "canceled"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	default:
		return "error"
	}
}
