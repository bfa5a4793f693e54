package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"
)

// WebhookSink forwards events to an external HTTP endpoint, for operators
// that reconcile payout failures off-chain without consuming the redis
// stream.
type WebhookSink struct {
	url  string
	http *fasthttp.Client
	log  *zap.Logger
}

func NewWebhookSink(url string, log *zap.Logger) (*WebhookSink, error) {
	url = strings.TrimSpace(url)
	if url == "" {
		return nil, fmt.Errorf("webhook url required")
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &WebhookSink{
		url: url,
		http: &fasthttp.Client{
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    10 * time.Second,
			MaxConnsPerHost: 8,
		},
		log: log,
	}, nil
}

// Run consumes a subscription channel until it closes or the context ends.
// Delivery is best effort; failures are logged, never retried here.
func (s *WebhookSink) Run(ctx context.Context, ch <-chan Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-ch:
			if !ok {
				return
			}
			if err := s.post(ev); err != nil {
				s.log.Warn("event_webhook_failed",
					zap.String("event_id", ev.ID),
					zap.String("kind", string(ev.Kind)),
					zap.Error(err),
				)
			}
		}
	}
}

func (s *WebhookSink) post(ev Event) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return err
	}

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer func() {
		fasthttp.ReleaseRequest(req)
		fasthttp.ReleaseResponse(resp)
	}()

	req.Header.SetMethod(fasthttp.MethodPost)
	req.SetRequestURI(s.url)
	req.Header.SetContentType("application/json")
	req.SetBody(body)

	if err := s.http.DoTimeout(req, resp, 10*time.Second); err != nil {
		return err
	}
	if code := resp.StatusCode(); code < 200 || code >= 300 {
		return fmt.Errorf("webhook status %d", code)
	}
	return nil
}
