// Package notify delivers fired reminders to the owner's chat channel.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/fastygo/taskbot/domain"
	"github.com/fastygo/taskbot/internal/config"
)

// Webhook posts each notification as JSON to a configured URL.
type Webhook struct {
	url     string
	timeout time.Duration
	client  *fasthttp.Client
	logger  *zap.Logger
}

type WebhookOption func(*Webhook)

// WithClient replaces the HTTP client.
func WithClient(client *fasthttp.Client) WebhookOption {
	return func(w *Webhook) {
		if client != nil {
			w.client = client
		}
	}
}

func NewWebhook(cfg config.NotifierConfig, logger *zap.Logger, opts ...WebhookOption) *Webhook {
	if logger == nil {
		logger = zap.NewNop()
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	w := &Webhook{
		url:     cfg.WebhookURL,
		timeout: timeout,
		client: &fasthttp.Client{
			Name:         "taskbot-notifier",
			ReadTimeout:  timeout,
			WriteTimeout: timeout,
		},
		logger: logger,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

func (w *Webhook) Notify(ctx context.Context, n domain.Notification) error {
	body, err := json.Marshal(n)
	if err != nil {
		return err
	}

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(w.url)
	req.Header.SetMethod(fasthttp.MethodPost)
	req.Header.SetContentType("application/json")
	req.SetBody(body)

	deadline := time.Now().Add(w.timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	if err := w.client.DoDeadline(req, resp, deadline); err != nil {
		return fmt.Errorf("post notification: %w", err)
	}
	if status := resp.StatusCode(); status < 200 || status >= 300 {
		return fmt.Errorf("notification webhook returned status %d", status)
	}

	w.logger.Debug("notification delivered",
		zap.String("owner_id", n.OwnerID),
		zap.String("task_id", n.TaskID),
		zap.String("slot", n.Slot))
	return nil
}
