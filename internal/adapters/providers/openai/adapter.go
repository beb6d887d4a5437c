// Package openai implements the ChatProvider contract against any
// OpenAI-compatible backend: chat completions plus model enumeration,
// with retry, exponential backoff, and structured error classification.
package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/nulzo/concierge-bot/internal/core/domain"
	"github.com/nulzo/concierge-bot/internal/core/ports"
	"github.com/nulzo/concierge-bot/internal/httpclient"
	"github.com/nulzo/concierge-bot/internal/logger"
	"github.com/nulzo/concierge-bot/internal/registry"
	"github.com/nulzo/concierge-bot/pkg/schema"
)

func init() {
	registry.Register("openai", func(cfg registry.ProviderSettings) (ports.ChatProvider, error) {
		return NewAdapter(cfg), nil
	})
}

// settings is the hot-swappable portion of the adapter configuration.
// It is replaced wholesale by UpdateSettings; an in-flight retry loop
// keeps the copy it took at call start.
type settings struct {
	apiKey       string
	baseURL      string
	timeout      time.Duration
	maxRetries   int
	retryBackoff time.Duration
}

type Adapter struct {
	name string

	mu     sync.RWMutex
	cfg    settings
	client *http.Client

	logger *zap.Logger
	// sleep is swapped out in tests to avoid real backoff delays.
	sleep func(ctx context.Context, d time.Duration) error
}

func NewAdapter(cfg registry.ProviderSettings) *Adapter {
	name := cfg.Name
	if name == "" {
		name = "openai"
	}
	return &Adapter{
		name:   name,
		cfg:    toSettings(cfg),
		logger: logger.Named("provider." + name),
		sleep:  sleepCtx,
	}
}

func toSettings(cfg registry.ProviderSettings) settings {
	s := settings{
		apiKey:       cfg.APIKey,
		baseURL:      strings.TrimRight(cfg.BaseURL, "/"),
		timeout:      time.Duration(cfg.Timeout * float64(time.Second)),
		maxRetries:   cfg.MaxRetries,
		retryBackoff: time.Duration(cfg.RetryBackoff * float64(time.Second)),
	}
	if s.baseURL == "" {
		s.baseURL = "https://api.openai.com"
	}
	if s.timeout <= 0 {
		s.timeout = 30 * time.Second
	}
	if s.maxRetries < 0 {
		s.maxRetries = 0
	}
	if s.retryBackoff < 0 {
		s.retryBackoff = 0
	}
	return s
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (a *Adapter) Name() string { return a.name }
func (a *Adapter) Type() string { return "openai" }

// Start lazily builds the shared HTTP client. Idempotent under
// concurrent first use.
func (a *Adapter) Start() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.client == nil {
		a.client = &http.Client{Timeout: a.cfg.timeout}
	}
	return nil
}

// Close releases pooled connections. Safe to call without Start.
func (a *Adapter) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.client != nil {
		a.client.CloseIdleConnections()
		a.client = nil
	}
	return nil
}

// UpdateSettings hot-swaps credentials and limits. New settings apply
// to subsequent calls only; an in-flight retry loop is not disturbed.
func (a *Adapter) UpdateSettings(cfg registry.ProviderSettings) {
	next := toSettings(cfg)
	a.mu.Lock()
	if a.client != nil && a.client.Timeout != next.timeout {
		a.client = &http.Client{Timeout: next.timeout}
	}
	a.cfg = next
	a.mu.Unlock()
}

// session returns the current settings snapshot and a ready client.
func (a *Adapter) session() (settings, *http.Client) {
	a.mu.RLock()
	cfg, client := a.cfg, a.client
	a.mu.RUnlock()
	if client != nil {
		return cfg, client
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.client == nil {
		a.client = &http.Client{Timeout: a.cfg.timeout}
	}
	return a.cfg, a.client
}

func (cfg settings) headers() map[string]string {
	return map[string]string{"Authorization": "Bearer " + cfg.apiKey}
}

// retryable reports whether an attempt outcome warrants another try.
// Only HTTP 429/500 and transport failures qualify; decode failures and
// other HTTP statuses never do.
func retryable(err error) bool {
	var upstream *httpclient.UpstreamError
	if errors.As(err, &upstream) {
		return upstream.StatusCode == http.StatusTooManyRequests ||
			upstream.StatusCode == http.StatusInternalServerError
	}
	var decode *httpclient.DecodeError
	if errors.As(err, &decode) {
		return false
	}
	// anything else from SendJSON is a transport-level failure
	return true
}

// classify converts the final attempt error into the domain taxonomy.
func classify(err error) error {
	var upstream *httpclient.UpstreamError
	if errors.As(err, &upstream) {
		return domain.API(upstream.StatusCode,
			fmt.Sprintf("API error %d: %s", upstream.StatusCode, string(upstream.Body)), err)
	}
	var decode *httpclient.DecodeError
	if errors.As(err, &decode) {
		return domain.API(0, "response format error", err)
	}
	return domain.Network("network error", err)
}

// Chat issues one chat completion with the adapter's retry policy:
// maxRetries additional attempts, delay retryBackoff * 2^attempt, on
// HTTP 429/500 or transport errors only.
func (a *Adapter) Chat(ctx context.Context, req *schema.ChatRequest) (*schema.Completion, error) {
	cfg, client := a.session()
	url := cfg.baseURL + "/v1/chat/completions"

	var resp schema.ChatResponse
	var lastErr error
	for attempt := 0; attempt <= cfg.maxRetries; attempt++ {
		err := httpclient.SendJSON(ctx, client, http.MethodPost, url, cfg.headers(), req, &resp)
		if err == nil {
			return extractCompletion(&resp, req.Model)
		}
		lastErr = err
		if !retryable(err) {
			return nil, classify(err)
		}
		if attempt < cfg.maxRetries {
			delay := cfg.retryBackoff * (1 << attempt)
			a.logger.Warn("request_retry",
				zap.Int("attempt", attempt+1),
				zap.Duration("delay", delay),
				zap.Error(err),
			)
			if sleepErr := a.sleep(ctx, delay); sleepErr != nil {
				return nil, domain.Network("request cancelled during backoff", sleepErr)
			}
		}
	}
	return nil, classify(lastErr)
}

// extractCompletion validates the response shape. A missing
// choices[0].message.content is a response-format error and is never
// retried.
func extractCompletion(resp *schema.ChatResponse, requestModel string) (*schema.Completion, error) {
	if len(resp.Choices) == 0 || resp.Choices[0].Message == nil || resp.Choices[0].Message.Content == "" {
		return nil, domain.API(0, "response format error", nil)
	}
	model := resp.Model
	if model == "" {
		model = requestModel
	}
	return &schema.Completion{
		Content: resp.Choices[0].Message.Content,
		Model:   model,
		Usage:   resp.Usage,
	}, nil
}

// modelEndpoints are tried in order; a 404 on one advances to the next.
var modelEndpoints = []string{"/v1/models", "/v1beta/models"}

// Models enumerates upstream models, sorted by id. An empty parsed list
// is an error ("no models returned"), distinguishable from a failed
// call by its message only at the logging layer; both are KindAPI.
func (a *Adapter) Models(ctx context.Context) ([]schema.ModelInfo, error) {
	cfg, client := a.session()

	var lastErr error
	for _, path := range modelEndpoints {
		url := cfg.baseURL + path
		models, err := a.fetchModels(ctx, client, cfg, url)
		if err == nil {
			return models, nil
		}
		lastErr = err
		// a 404 or an empty listing advances to the next path; anything
		// else already used up its retries and is terminal
		var de *domain.Error
		if errors.As(err, &de) && de.Kind == domain.KindAPI && (de.Status == http.StatusNotFound || de.Status == 0) {
			continue
		}
		return nil, err
	}
	return nil, domain.API(0, "failed to fetch models", lastErr)
}

func (a *Adapter) fetchModels(ctx context.Context, client *http.Client, cfg settings, url string) ([]schema.ModelInfo, error) {
	var payload json.RawMessage
	var lastErr error
	for attempt := 0; attempt <= cfg.maxRetries; attempt++ {
		err := httpclient.SendJSON(ctx, client, http.MethodGet, url, cfg.headers(), nil, &payload)
		if err == nil {
			models := parseModels(payload)
			if len(models) == 0 {
				return nil, domain.API(0, "no models returned", nil)
			}
			return models, nil
		}
		lastErr = err
		var upstream *httpclient.UpstreamError
		if errors.As(err, &upstream) && upstream.StatusCode == http.StatusNotFound {
			// not terminal: the caller advances to the next endpoint
			return nil, classify(err)
		}
		if !retryable(err) {
			return nil, classify(err)
		}
		if attempt < cfg.maxRetries {
			delay := cfg.retryBackoff * (1 << attempt)
			a.logger.Warn("request_retry",
				zap.Int("attempt", attempt+1),
				zap.Duration("delay", delay),
				zap.Error(err),
			)
			if sleepErr := a.sleep(ctx, delay); sleepErr != nil {
				return nil, domain.Network("request cancelled during backoff", sleepErr)
			}
		}
	}
	return nil, classify(lastErr)
}

// parseModels accepts the payload shapes seen in the wild: a bare list,
// or an object with a "data" or "models" list; items may be bare string
// ids or objects keyed by id/model/name. Duplicate ids are dropped
// (first occurrence wins) and the result is sorted by id.
func parseModels(payload json.RawMessage) []schema.ModelInfo {
	var items []json.RawMessage

	var wrapper struct {
		Data   []json.RawMessage `json:"data"`
		Models []json.RawMessage `json:"models"`
	}
	if err := json.Unmarshal(payload, &wrapper); err == nil && (wrapper.Data != nil || wrapper.Models != nil) {
		items = wrapper.Data
		if items == nil {
			items = wrapper.Models
		}
	} else if err := json.Unmarshal(payload, &items); err != nil {
		return nil
	}

	models := make([]schema.ModelInfo, 0, len(items))
	seen := make(map[string]bool, len(items))
	for _, item := range items {
		var id string
		var price *float64

		var s string
		if err := json.Unmarshal(item, &s); err == nil {
			id = s
		} else {
			var obj map[string]interface{}
			if err := json.Unmarshal(item, &obj); err != nil {
				continue
			}
			id = firstString(obj, "id", "model", "name")
			price = extractPrice(obj)
		}

		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		models = append(models, schema.ModelInfo{ID: id, Price: price})
	}

	sort.Slice(models, func(i, j int) bool { return models[i].ID < models[j].ID })
	return models
}

func firstString(obj map[string]interface{}, keys ...string) string {
	for _, key := range keys {
		if s, ok := obj[key].(string); ok && s != "" {
			return s
		}
	}
	return ""
}

// extractPrice derives a best-effort price from heterogeneous upstream
// pricing shapes, in order: a direct price/cost field, the sum of known
// pricing sub-object components, then flat *_price variants. nil means
// no usable price, which is a valid terminal state.
func extractPrice(obj map[string]interface{}) *float64 {
	for _, key := range []string{"price", "cost"} {
		if v, ok := numeric(obj[key]); ok {
			return &v
		}
	}

	if pricing, ok := obj["pricing"].(map[string]interface{}); ok {
		var sum float64
		found := false
		for _, key := range []string{"input", "output", "prompt", "completion", "input_cost", "output_cost"} {
			if v, ok := numeric(pricing[key]); ok {
				sum += v
				found = true
			}
		}
		if found {
			return &sum
		}
	}

	for _, key := range []string{
		"input_price", "output_price", "prompt_price", "completion_price",
		"price_input", "price_output", "price_per_token",
	} {
		if v, ok := numeric(obj[key]); ok {
			return &v
		}
	}
	return nil
}

func numeric(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	}
	return 0, false
}
