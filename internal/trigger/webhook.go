package trigger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/miniquinox/billsync/internal/log"
	"github.com/miniquinox/billsync/pkg/circuitbreaker"
	"github.com/miniquinox/billsync/pkg/retry"
)

const maxErrorBodyBytes = 512

// StatusError is returned when the dispatcher answers with a non-2xx status.
// It is never retried.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("trigger/webhook: dispatcher answered %d: %s", e.StatusCode, e.Body)
}

type WebhookConfig struct {
	URL     string
	APIKey  string
	Timeout time.Duration
	Retry   *retry.Config
	Breaker *circuitbreaker.Config
	// Logger, when set, hears about circuit transitions.
	Logger *log.Logger
}

// WebhookPublisher posts database-webhook shaped payloads to the dispatcher.
type WebhookPublisher struct {
	url     string
	apiKey  string
	client  *http.Client
	retry   retry.RetryPolicy
	breaker circuitbreaker.CircuitBreaker
}

type webhookPayload struct {
	Type      string  `json:"type"`
	Table     string  `json:"table"`
	Schema    string  `json:"schema"`
	Record    Record  `json:"record"`
	OldRecord *Record `json:"old_record"`
}

func NewWebhookPublisher(cfg WebhookConfig) *WebhookPublisher {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	retryConfig := retry.DefaultConfig()
	if cfg.Retry != nil {
		copied := *cfg.Retry
		retryConfig = &copied
	}
	retryConfig.RetryIf = isTransportError

	breakerConfig := circuitbreaker.DefaultConfig()
	if cfg.Breaker != nil {
		copied := *cfg.Breaker
		breakerConfig = &copied
	}
	breakerConfig.IsFailure = dispatcherUnavailable
	if cfg.Logger != nil {
		logger := cfg.Logger.WithComponent("trigger.webhook")
		breakerConfig.OnStateChange = func(from, to circuitbreaker.CircuitState) {
			logger.Warn("Dispatcher circuit changed state", "from", from.String(), "to", to.String(), "url", cfg.URL)
		}
		retryConfig.OnRetry = func(attempt int, err error, delay time.Duration) {
			logger.Warn("Retrying dispatcher webhook", "attempt", attempt, "delay", delay.String(), "error", err)
		}
	}

	return &WebhookPublisher{
		url:     cfg.URL,
		apiKey:  cfg.APIKey,
		client:  &http.Client{Timeout: timeout},
		retry:   retry.NewExponentialBackoff(retryConfig),
		breaker: circuitbreaker.NewCircuitBreaker(breakerConfig),
	}
}

func (p *WebhookPublisher) Publish(ctx context.Context, event RowInserted) error {
	body, err := json.Marshal(webhookPayload{
		Type:   "INSERT",
		Table:  event.Table,
		Schema: "public",
		Record: event.Record,
	})
	if err != nil {
		return fmt.Errorf("trigger/webhook: encode event: %w", err)
	}

	return p.breaker.Call(func() error {
		return p.retry.ExecuteContext(ctx, func() error {
			return p.post(ctx, body)
		})
	})
}

// BreakerState reports the state of the dispatcher circuit.
func (p *WebhookPublisher) BreakerState() circuitbreaker.CircuitState {
	return p.breaker.State()
}

func (p *WebhookPublisher) post(ctx context.Context, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("trigger/webhook: build request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	if p.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+p.apiKey)
		req.Header.Set("apikey", p.apiKey)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
		return &StatusError{StatusCode: resp.StatusCode, Body: string(bytes.TrimSpace(snippet))}
	}

	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

// isTransportError retries failures below HTTP: refused or reset connections,
// DNS trouble and timeouts. Cancellation and dispatcher answers are final.
func isTransportError(err error) bool {
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return true
	}

	var netErr net.Error
	return errors.As(err, &netErr)
}

// dispatcherUnavailable counts transport failures and 5xx answers against the
// circuit. A 4xx means the dispatcher is up and rejected this one event.
func dispatcherUnavailable(err error) bool {
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.StatusCode >= http.StatusInternalServerError
	}
	return !errors.Is(err, context.Canceled)
}
