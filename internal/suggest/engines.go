package suggest

import (
	"encoding/json"
	"regexp"
	"time"
)

// Engine names understood by the registry.
const (
	EngineGoogle = "google"
	EngineBing   = "bing"
	EngineDuck   = "duck"
	EngineBaidu  = "baidu"
)

// baiduCallback matches the fixed JSONP wrapper baidu returns when asked for
// callback "cb". A payload wrapped in any other name does not match and
// yields no suggestions.
var baiduCallback = regexp.MustCompile(`^cb\((.*)\)\s*$`)

// parseOpenSearch handles the OpenSearch suggestion shape shared by google
// and bing: a JSON array whose element 1 is an array of strings.
func parseOpenSearch(body []byte) ([]string, error) {
	var payload []json.RawMessage
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, err
	}
	if len(payload) < 2 {
		return []string{}, nil
	}
	var suggestions []string
	if err := json.Unmarshal(payload[1], &suggestions); err != nil {
		// Element 1 is not a string array; treat as no suggestions.
		return []string{}, nil
	}
	return suggestions, nil
}

// parseDuck handles duckduckgo's list shape: [{"phrase": "..."}].
func parseDuck(body []byte) ([]string, error) {
	var payload []struct {
		Phrase string `json:"phrase"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, err
	}
	suggestions := make([]string, 0, len(payload))
	for _, item := range payload {
		if item.Phrase != "" {
			suggestions = append(suggestions, item.Phrase)
		}
	}
	return suggestions, nil
}

// parseBaidu unwraps the JSONP envelope cb({... "s": [...]}) and takes the
// "s" field. A wrapper mismatch or bad interior JSON yields an empty list,
// never an error: baidu's payload quirks should not count as outages.
func parseBaidu(body []byte) ([]string, error) {
	m := baiduCallback.FindSubmatch(body)
	if m == nil {
		return []string{}, nil
	}
	var payload struct {
		S []string `json:"s"`
	}
	if err := json.Unmarshal(m[1], &payload); err != nil {
		return []string{}, nil
	}
	if payload.S == nil {
		return []string{}, nil
	}
	return payload.S, nil
}

// DefaultConfig returns the upstream description for a known engine name.
func DefaultConfig(name string) (ProviderConfig, bool) {
	switch name {
	case EngineGoogle:
		return ProviderConfig{
			Name:        EngineGoogle,
			URLTemplate: "https://suggestqueries.google.com/complete/search?client=firefox&q=%s",
			Parse:       parseOpenSearch,
			Timeout:     DefaultTimeout,
		}, true
	case EngineBing:
		return ProviderConfig{
			Name:        EngineBing,
			URLTemplate: "https://api.bing.com/osjson.aspx?query=%s",
			Parse:       parseOpenSearch,
			Timeout:     DefaultTimeout,
		}, true
	case EngineDuck:
		return ProviderConfig{
			Name:        EngineDuck,
			URLTemplate: "https://duckduckgo.com/ac/?q=%s&type=list",
			Parse:       parseDuck,
			Timeout:     DefaultTimeout,
		}, true
	case EngineBaidu:
		return ProviderConfig{
			Name:        EngineBaidu,
			URLTemplate: "https://suggestion.baidu.com/su?wd=%s&cb=cb",
			Headers:     map[string]string{"User-Agent": "Mozilla/5.0"},
			Parse:       parseBaidu,
			Timeout:     DefaultTimeout,
		}, true
	default:
		return ProviderConfig{}, false
	}
}

// Registry maps engine names to providers and owns the unknown-name
// fallback. The fallback engine answers the call, but callers still see the
// engine label they asked for.
type Registry struct {
	providers map[string]Provider
	fallback  Provider
}

// NewRegistry builds the default registry with all four engines, applying
// timeout to every provider. Zero timeout means DefaultTimeout.
func NewRegistry(timeout time.Duration) *Registry {
	r := &Registry{providers: make(map[string]Provider)}
	for _, name := range []string{EngineGoogle, EngineBing, EngineDuck, EngineBaidu} {
		cfg, _ := DefaultConfig(name)
		if timeout > 0 {
			cfg.Timeout = timeout
		}
		r.Register(NewProvider(cfg))
	}
	r.fallback = r.providers[EngineGoogle]
	return r
}

// Register adds or replaces a provider under its own name.
func (r *Registry) Register(p Provider) {
	r.providers[p.Name()] = p
}

// SetFallback changes the provider used for unrecognized engine names.
func (r *Registry) SetFallback(p Provider) {
	r.fallback = p
}

// Lookup resolves an engine name, falling back for unknown names.
func (r *Registry) Lookup(name string) Provider {
	if p, ok := r.providers[name]; ok {
		return p
	}
	return r.fallback
}
