package gateway

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"

	"venture-backend/internal/llm"
	"venture-backend/internal/sections"
	"venture-backend/internal/shared/metrics"
	"venture-backend/internal/shared/telemetry"
)

// Typed failure classes surfaced after a call is abandoned. Callers check
// them with errors.Is.
var (
	// ErrProviderUnavailable covers exhausted retries on transient failures:
	// timeouts, rate limits, 5xx.
	ErrProviderUnavailable = errors.New("provider unavailable")
	// ErrProviderRejected covers non-retryable rejections: auth failures,
	// malformed requests.
	ErrProviderRejected = errors.New("provider rejected request")
	// ErrMalformedResponse covers 200 responses whose body shape was not
	// usable.
	ErrMalformedResponse = errors.New("provider response malformed")
)

const (
	defaultMaxRetries  = 3
	defaultBaseDelay   = 2 * time.Second
	defaultMaxInFlight = 6
	defaultMaxTokens   = 4096
)

// Config wires the three provider backends and tuning knobs.
type Config struct {
	Reasoning llm.Client
	Retrieval llm.Client
	General   llm.Client

	// MaxRetries is the number of retries after the initial attempt.
	MaxRetries int
	// BaseDelay is multiplied by the attempt number for backoff.
	BaseDelay time.Duration
	// MaxInFlight bounds concurrent provider calls across all sections.
	MaxInFlight int64
	// ProviderRPS paces calls per provider class; zero disables pacing.
	ProviderRPS float64
}

// Gateway is the single call surface over heterogeneous model providers.
// Section code supplies only a section ID and a prompt; routing, retries,
// pacing and error classification live here.
type Gateway struct {
	clients    map[sections.Provider]llm.Client
	limiters   map[sections.Provider]*rate.Limiter
	inflight   *semaphore.Weighted
	maxRetries int
	baseDelay  time.Duration
}

// New constructs a Gateway. Each provider class must have a client; a
// missing one falls back to the general client.
func New(cfg Config) (*Gateway, error) {
	if cfg.General == nil {
		return nil, fmt.Errorf("general provider client is required")
	}
	if cfg.Reasoning == nil {
		cfg.Reasoning = cfg.General
	}
	if cfg.Retrieval == nil {
		cfg.Retrieval = cfg.General
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = defaultMaxRetries
	}
	if cfg.BaseDelay <= 0 {
		cfg.BaseDelay = defaultBaseDelay
	}
	if cfg.MaxInFlight <= 0 {
		cfg.MaxInFlight = defaultMaxInFlight
	}

	g := &Gateway{
		clients: map[sections.Provider]llm.Client{
			sections.ProviderReasoning: cfg.Reasoning,
			sections.ProviderRetrieval: cfg.Retrieval,
			sections.ProviderGeneral:   cfg.General,
		},
		limiters:   make(map[sections.Provider]*rate.Limiter),
		inflight:   semaphore.NewWeighted(cfg.MaxInFlight),
		maxRetries: cfg.MaxRetries,
		baseDelay:  cfg.BaseDelay,
	}
	if cfg.ProviderRPS > 0 {
		for provider := range g.clients {
			g.limiters[provider] = rate.NewLimiter(rate.Limit(cfg.ProviderRPS), 1)
		}
	}
	return g, nil
}

// Generate routes the prompt to the section's assigned provider and returns
// the raw response text. Retries use exponential backoff: base delay times
// the attempt number, up to MaxRetries retries.
func (g *Gateway) Generate(ctx context.Context, sectionID sections.ID, prompt string) (string, error) {
	providerClass := sections.ProviderFor(sectionID)
	client := g.clients[providerClass]

	if err := g.inflight.Acquire(ctx, 1); err != nil {
		return "", err
	}
	defer g.inflight.Release(1)

	req := llm.Request{
		Prompt:      prompt,
		MaxTokens:   defaultMaxTokens,
		Temperature: 0.2,
	}

	var lastErr error
	for attempt := 1; attempt <= g.maxRetries+1; attempt++ {
		if limiter := g.limiters[providerClass]; limiter != nil {
			if err := limiter.Wait(ctx); err != nil {
				return "", err
			}
		}

		start := time.Now()
		resp, err := client.Generate(ctx, req)
		durationMs := float64(time.Since(start).Microseconds()) / 1000.0

		fields := map[string]any{
			"provider":       client.Name(),
			"provider_class": string(providerClass),
			"section":        string(sectionID),
			"attempt":        attempt,
			"prompt_len":     len(prompt),
			"duration_ms":    durationMs,
		}
		if err == nil {
			fields["response_len"] = len(resp)
			telemetry.Info("gateway.call", fields)
			return resp, nil
		}
		fields["error"] = sanitize(err)
		telemetry.Warn("gateway.call", fields)

		kind, retryable := classify(err)
		if !retryable {
			return "", fmt.Errorf("%w: %s: %s", kind, client.Name(), sanitize(err))
		}
		lastErr = err
		if attempt > g.maxRetries {
			break
		}

		metrics.IncProviderRetry()
		delay := g.baseDelay * time.Duration(attempt)
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return "", fmt.Errorf("%w: %s after %d attempts: %s", ErrProviderUnavailable, client.Name(), g.maxRetries+1, sanitize(lastErr))
}

// classify maps a provider error to its failure class and whether another
// attempt could succeed.
func classify(err error) (error, bool) {
	if err == nil {
		return nil, false
	}

	var statusErr *llm.StatusError
	if errors.As(err, &statusErr) {
		switch {
		case statusErr.Code == 429, statusErr.Code == 503, statusErr.Code == 529:
			return ErrProviderUnavailable, true
		case statusErr.Code >= 500:
			return ErrProviderUnavailable, true
		default:
			return ErrProviderRejected, false
		}
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return ErrProviderUnavailable, true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return ErrProviderUnavailable, true
	}
	if errors.Is(err, llm.ErrEmptyResponse) {
		return ErrMalformedResponse, false
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "response parse"):
		return ErrMalformedResponse, false
	case strings.Contains(msg, "timeout"),
		strings.Contains(msg, "connection reset"),
		strings.Contains(msg, "connection refused"),
		strings.Contains(msg, "connection closed"),
		strings.Contains(msg, "broken pipe"),
		strings.Contains(msg, "tls handshake timeout"),
		strings.Contains(msg, "eof"):
		return ErrProviderUnavailable, true
	}
	return ErrProviderRejected, false
}

func sanitize(err error) string {
	if err == nil {
		return ""
	}
	msg := strings.ReplaceAll(err.Error(), "\n", " ")
	msg = strings.TrimSpace(strings.ReplaceAll(msg, "\r", " "))
	const maxLen = 300
	if len(msg) > maxLen {
		msg = msg[:maxLen]
	}
	return msg
}
