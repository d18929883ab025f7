package gateway

import (
	"context"
	"errors"
	"testing"
	"time"

	"venture-backend/internal/llm"
	"venture-backend/internal/sections"
)

type scriptedClient struct {
	name     string
	response string
	errs     []error
	calls    int
}

func (c *scriptedClient) Generate(ctx context.Context, req llm.Request) (string, error) {
	idx := c.calls
	c.calls++
	if idx < len(c.errs) && c.errs[idx] != nil {
		return "", c.errs[idx]
	}
	return c.response, nil
}

func (c *scriptedClient) Name() string { return c.name }

func newTestGateway(t *testing.T, general llm.Client) *Gateway {
	t.Helper()
	g, err := New(Config{
		General:   general,
		BaseDelay: time.Millisecond,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return g
}

func TestGenerateSuccess(t *testing.T) {
	client := &scriptedClient{name: "fake", response: `{"ok": true}`}
	g := newTestGateway(t, client)

	resp, err := g.Generate(context.Background(), sections.CustomerPersonas, "prompt")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if resp != `{"ok": true}` {
		t.Fatalf("resp = %q", resp)
	}
	if client.calls != 1 {
		t.Fatalf("calls = %d, want 1", client.calls)
	}
}

func TestGenerateRetriesRateLimitThenSucceeds(t *testing.T) {
	client := &scriptedClient{
		name:     "fake",
		response: `{"ok": true}`,
		errs: []error{
			&llm.StatusError{Provider: "fake", Code: 429, Message: "slow down"},
			&llm.StatusError{Provider: "fake", Code: 503, Message: "overloaded"},
		},
	}
	g := newTestGateway(t, client)

	resp, err := g.Generate(context.Background(), sections.CustomerPersonas, "prompt")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if resp == "" {
		t.Fatal("expected a response after retries")
	}
	if client.calls != 3 {
		t.Fatalf("calls = %d, want 3", client.calls)
	}
}

func TestGenerateExhaustsRetries(t *testing.T) {
	rateLimited := &llm.StatusError{Provider: "fake", Code: 429, Message: "slow down"}
	client := &scriptedClient{
		name: "fake",
		errs: []error{rateLimited, rateLimited, rateLimited, rateLimited, rateLimited},
	}
	g := newTestGateway(t, client)

	_, err := g.Generate(context.Background(), sections.CustomerPersonas, "prompt")
	if !errors.Is(err, ErrProviderUnavailable) {
		t.Fatalf("err = %v, want ErrProviderUnavailable", err)
	}
	// Initial attempt plus the default three retries.
	if client.calls != 4 {
		t.Fatalf("calls = %d, want 4", client.calls)
	}
}

func TestGenerateAuthFailureDoesNotRetry(t *testing.T) {
	client := &scriptedClient{
		name: "fake",
		errs: []error{&llm.StatusError{Provider: "fake", Code: 401, Message: "bad key"}},
	}
	g := newTestGateway(t, client)

	_, err := g.Generate(context.Background(), sections.CustomerPersonas, "prompt")
	if !errors.Is(err, ErrProviderRejected) {
		t.Fatalf("err = %v, want ErrProviderRejected", err)
	}
	if client.calls != 1 {
		t.Fatalf("calls = %d, want 1", client.calls)
	}
}

func TestGenerateEmptyResponseIsMalformed(t *testing.T) {
	client := &scriptedClient{
		name: "fake",
		errs: []error{llm.ErrEmptyResponse},
	}
	g := newTestGateway(t, client)

	_, err := g.Generate(context.Background(), sections.CustomerPersonas, "prompt")
	if !errors.Is(err, ErrMalformedResponse) {
		t.Fatalf("err = %v, want ErrMalformedResponse", err)
	}
	if client.calls != 1 {
		t.Fatalf("calls = %d, want 1", client.calls)
	}
}

func TestGenerateRoutesByProviderClass(t *testing.T) {
	general := &scriptedClient{name: "general", response: "g"}
	reasoning := &scriptedClient{name: "reasoning", response: "r"}
	retrieval := &scriptedClient{name: "retrieval", response: "s"}

	g, err := New(Config{
		General:   general,
		Reasoning: reasoning,
		Retrieval: retrieval,
		BaseDelay: time.Millisecond,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if _, err := g.Generate(context.Background(), sections.SWOTAnalysis, "p"); err != nil {
		t.Fatalf("reasoning call: %v", err)
	}
	if _, err := g.Generate(context.Background(), sections.MarketSizeGrowth, "p"); err != nil {
		t.Fatalf("retrieval call: %v", err)
	}
	if _, err := g.Generate(context.Background(), sections.CustomerPersonas, "p"); err != nil {
		t.Fatalf("general call: %v", err)
	}

	if reasoning.calls != 1 || retrieval.calls != 1 || general.calls != 1 {
		t.Fatalf("routing miscounts: reasoning=%d retrieval=%d general=%d",
			reasoning.calls, retrieval.calls, general.calls)
	}
}

func TestGenerateMissingClassFallsBackToGeneral(t *testing.T) {
	general := &scriptedClient{name: "general", response: "g"}
	g := newTestGateway(t, general)

	if _, err := g.Generate(context.Background(), sections.SWOTAnalysis, "p"); err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if general.calls != 1 {
		t.Fatalf("general.calls = %d, want 1", general.calls)
	}
}

func TestGenerateCanceledContext(t *testing.T) {
	rateLimited := &llm.StatusError{Provider: "fake", Code: 429, Message: "slow down"}
	client := &scriptedClient{name: "fake", errs: []error{rateLimited, rateLimited, rateLimited, rateLimited}}
	g, err := New(Config{General: client, BaseDelay: time.Hour})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := g.Generate(ctx, sections.CustomerPersonas, "prompt")
		done <- err
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("err = %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("cancellation did not interrupt backoff")
	}
}

func TestNewRequiresGeneralClient(t *testing.T) {
	if _, err := New(Config{}); err == nil {
		t.Fatal("expected error when general client is missing")
	}
}

func TestClassifyNetworkErrors(t *testing.T) {
	cases := []struct {
		err       error
		retryable bool
	}{
		{errors.New("dial tcp: connection refused"), true},
		{errors.New("unexpected EOF"), true},
		{context.DeadlineExceeded, true},
		{errors.New("openai response parse: unexpected token"), false},
		{errors.New("invalid request payload"), false},
	}
	for _, tc := range cases {
		if _, retryable := classify(tc.err); retryable != tc.retryable {
			t.Errorf("classify(%v) retryable = %v, want %v", tc.err, retryable, tc.retryable)
		}
	}
}
