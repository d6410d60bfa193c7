// Package classifier turns free text into task intents with the Anthropic
// Messages API.
package classifier

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/fastygo/taskbot/domain"
	"github.com/fastygo/taskbot/internal/config"
)

const (
	messagesPath     = "/v1/messages"
	anthropicVersion = "2023-06-01"
)

type messagesRequest struct {
	Model     string    `json:"model"`
	MaxTokens int       `json:"max_tokens"`
	System    string    `json:"system,omitempty"`
	Messages  []message `json:"messages"`
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type messagesResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	StopReason string `json:"stop_reason"`
}

// Anthropic classifies messages through the Messages API.
type Anthropic struct {
	apiKey    string
	model     string
	endpoint  string
	maxTokens int
	timeout   time.Duration
	client    *fasthttp.Client
	logger    *zap.Logger
}

func NewAnthropic(cfg config.ClassifierConfig, logger *zap.Logger) *Anthropic {
	if logger == nil {
		logger = zap.NewNop()
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 500
	}
	return &Anthropic{
		apiKey:    cfg.APIKey,
		model:     cfg.Model,
		endpoint:  strings.TrimRight(cfg.BaseURL, "/") + messagesPath,
		maxTokens: maxTokens,
		timeout:   timeout,
		client: &fasthttp.Client{
			Name:         "taskbot-classifier",
			ReadTimeout:  timeout,
			WriteTimeout: timeout,
		},
		logger: logger,
	}
}

// Classify sends one message and decodes the structured intent.
func (a *Anthropic) Classify(ctx context.Context, req domain.ClassifyRequest) (*domain.Classification, error) {
	if a.apiKey == "" {
		return nil, domain.WrapError(domain.ErrCodeUnavailable, domain.ErrClassifierUnavailable.Message,
			fmt.Errorf("ANTHROPIC_API_KEY not set"))
	}

	body, err := json.Marshal(messagesRequest{
		Model:     a.model,
		MaxTokens: a.maxTokens,
		System:    SystemPrompt(req),
		Messages:  []message{{Role: "user", Content: req.Text}},
	})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	httpReq := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(httpReq)
	defer fasthttp.ReleaseResponse(resp)

	httpReq.SetRequestURI(a.endpoint)
	httpReq.Header.SetMethod(fasthttp.MethodPost)
	httpReq.Header.SetContentType("application/json")
	httpReq.Header.Set("x-api-key", a.apiKey)
	httpReq.Header.Set("anthropic-version", anthropicVersion)
	httpReq.SetBody(body)

	deadline := time.Now().Add(a.timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	started := time.Now()
	if err := a.client.DoDeadline(httpReq, resp, deadline); err != nil {
		return nil, domain.WrapError(domain.ErrCodeUnavailable, domain.ErrClassifierUnavailable.Message, err)
	}

	status := resp.StatusCode()
	a.logger.Debug("classifier call",
		zap.Int("status", status),
		zap.Duration("latency", time.Since(started)))
	if status != fasthttp.StatusOK {
		return nil, domain.WrapError(domain.ErrCodeUnavailable, domain.ErrClassifierUnavailable.Message,
			fmt.Errorf("anthropic api status %d: %s", status, truncate(resp.Body(), 200)))
	}

	var apiResp messagesResponse
	if err := json.Unmarshal(resp.Body(), &apiResp); err != nil {
		return nil, domain.WrapError(domain.ErrCodeUnavailable, domain.ErrClassifierUnavailable.Message, err)
	}
	for _, block := range apiResp.Content {
		if block.Type == "text" || block.Type == "" {
			return ParseClassification(block.Text)
		}
	}
	return nil, domain.WrapError(domain.ErrCodeInvalid, domain.ErrMalformedIntent.Message, fmt.Errorf("empty response content"))
}

// ParseClassification decodes the model's JSON answer, tolerating code fences.
func ParseClassification(text string) (*domain.Classification, error) {
	cleaned := strings.TrimSpace(text)
	if strings.HasPrefix(cleaned, "```") {
		if idx := strings.Index(cleaned, "\n"); idx >= 0 {
			cleaned = cleaned[idx+1:]
		}
		if idx := strings.LastIndex(cleaned, "```"); idx >= 0 {
			cleaned = cleaned[:idx]
		}
		cleaned = strings.TrimSpace(cleaned)
	}

	var out domain.Classification
	if err := json.Unmarshal([]byte(cleaned), &out); err != nil {
		return nil, domain.WrapError(domain.ErrCodeInvalid, domain.ErrMalformedIntent.Message, err)
	}
	if strings.TrimSpace(out.Intent) == "" {
		return nil, domain.WrapError(domain.ErrCodeInvalid, domain.ErrMalformedIntent.Message, fmt.Errorf("missing intent"))
	}
	return &out, nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
