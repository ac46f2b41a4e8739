// Package suggest provides autocomplete provider adapters for the upstream
// suggestion engines and the aggregator that merges their output with the
// user's query history.
package suggest

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// MaxBodySize limits how much of an upstream response we read (1MB).
// Suggestion payloads are tiny; anything larger is malformed or hostile.
const MaxBodySize = 1 * 1024 * 1024

// DefaultTimeout bounds each outbound suggestion call. Autocomplete is
// interactive, so a slow upstream is treated the same as a dead one.
const DefaultTimeout = 1500 * time.Millisecond

// Provider fetches suggestions for a query string from one upstream engine.
type Provider interface {
	// Suggest returns a flat list of suggestion strings for q.
	// Implementations never retry; transport and parse failures surface as
	// errors for the aggregator to downgrade.
	Suggest(ctx context.Context, q string) ([]string, error)

	// Name returns the engine identifier.
	Name() string
}

// parseFunc normalizes one engine's wire format into a flat string list.
type parseFunc func(body []byte) ([]string, error)

// ProviderConfig describes an upstream engine as data: where to send the
// query, how to read the answer, and any extra request headers.
type ProviderConfig struct {
	// Name identifies the engine (google, bing, duck, baidu).
	Name string

	// URLTemplate is an fmt template with one %s slot for the encoded query.
	URLTemplate string

	// Headers are added to every outbound request.
	Headers map[string]string

	// Parse extracts suggestions from the response body.
	Parse parseFunc

	// Timeout bounds the outbound call. Zero means DefaultTimeout.
	Timeout time.Duration
}

// httpProvider is the single adapter implementation shared by all engines;
// per-engine behavior lives entirely in ProviderConfig.
type httpProvider struct {
	config ProviderConfig
	client *http.Client
}

// NewProvider creates an adapter for cfg.
func NewProvider(cfg ProviderConfig) Provider {
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	return &httpProvider{
		config: cfg,
		client: &http.Client{Timeout: cfg.Timeout},
	}
}

// Name returns the engine identifier.
func (p *httpProvider) Name() string {
	return p.config.Name
}

// Suggest performs the outbound call and normalizes the response.
func (p *httpProvider) Suggest(ctx context.Context, q string) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, p.config.Timeout)
	defer cancel()

	endpoint := fmt.Sprintf(p.config.URLTemplate, url.QueryEscape(q))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	for k, v := range p.config.Headers {
		req.Header.Set(k, v)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s request: %w", p.config.Name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%s error (status %d)", p.config.Name, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, MaxBodySize))
	if err != nil {
		return nil, fmt.Errorf("read %s response: %w", p.config.Name, err)
	}

	suggestions, err := p.config.Parse(body)
	if err != nil {
		return nil, fmt.Errorf("parse %s response: %w", p.config.Name, err)
	}
	return suggestions, nil
}

// uniqueLimit dedups by exact trimmed string (first occurrence wins), drops
// empties, and caps the result at n.
func uniqueLimit(items []string, n int) []string {
	out := make([]string, 0, n)
	seen := make(map[string]struct{}, len(items))
	for _, s := range items {
		t := strings.TrimSpace(s)
		if t == "" {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
		if len(out) >= n {
			break
		}
	}
	return out
}
