package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/nulzo/concierge-bot/internal/core/domain"
	"github.com/nulzo/concierge-bot/pkg/schema"
)

type fakeProvider struct {
	name  string
	err   error
	reply string

	calls  int
	models []string
}

func (f *fakeProvider) Name() string { return f.name }
func (f *fakeProvider) Type() string { return "openai" }
func (f *fakeProvider) Start() error { return nil }
func (f *fakeProvider) Close() error { return nil }

func (f *fakeProvider) Chat(_ context.Context, req *schema.ChatRequest) (*schema.Completion, error) {
	f.calls++
	f.models = append(f.models, req.Model)
	if f.err != nil {
		return nil, f.err
	}
	return &schema.Completion{Content: f.reply, Model: req.Model}, nil
}

func (f *fakeProvider) Models(context.Context) ([]schema.ModelInfo, error) {
	return nil, nil
}

func testRouter(providers ...*fakeProvider) *RouterService {
	r := NewRouterService(zap.NewNop())
	for _, p := range providers {
		r.RegisterProvider(p)
	}
	return r
}

func req() *schema.ChatRequest {
	return &schema.ChatRequest{
		Messages: []schema.ChatMessage{{Role: schema.RoleUser, Content: "hi"}},
	}
}

func TestGenerateRoutesToPrimary(t *testing.T) {
	p := &fakeProvider{name: "openai", reply: "hello"}
	r := testRouter(p)

	resp, err := r.Generate(context.Background(), Route{Provider: "openai", Model: "gpt-4o"}, req())
	require.NoError(t, err)
	assert.Equal(t, "hello", resp.Content)
	assert.Equal(t, []string{"gpt-4o"}, p.models)
}

func TestGenerateUnknownProvider(t *testing.T) {
	r := testRouter()

	_, err := r.Generate(context.Background(), Route{Provider: "missing", Model: "m"}, req())
	require.Error(t, err)
	assert.Equal(t, domain.KindValidation, domain.KindOf(err))
	assert.Contains(t, err.Error(), `unknown provider "missing"`)
}

func TestGenerateFallsBackToSecondProvider(t *testing.T) {
	primary := &fakeProvider{name: "openai", err: domain.API(500, "boom", nil)}
	backup := &fakeProvider{name: "backup", reply: "saved"}
	r := testRouter(primary, backup)

	route := Route{
		Provider: "openai", Model: "gpt-4o",
		FallbackProvider: "backup", FallbackModel: "gpt-4o-mini",
	}
	resp, err := r.Generate(context.Background(), route, req())
	require.NoError(t, err)
	assert.Equal(t, "saved", resp.Content)
	assert.Equal(t, 1, primary.calls)
	assert.Equal(t, []string{"gpt-4o-mini"}, backup.models)
}

func TestGenerateFallbackInheritsUnsetHalf(t *testing.T) {
	var delivered []string
	p := &switchingProvider{name: "openai", models: &delivered}
	r := testRouter()
	r.RegisterProvider(p)

	// only the model half is configured; provider half inherits "openai"
	route := Route{Provider: "openai", Model: "gpt-4o", FallbackModel: "gpt-3.5"}
	resp, err := r.Generate(context.Background(), route, req())
	require.NoError(t, err)
	assert.Equal(t, "second", resp.Content)
	assert.Equal(t, []string{"gpt-4o", "gpt-3.5"}, delivered)
}

func TestGenerateExactlyOneFallbackHop(t *testing.T) {
	primary := &fakeProvider{name: "openai", err: domain.Network("down", nil)}
	backup := &fakeProvider{name: "backup", err: domain.API(502, "also down", nil)}
	r := testRouter(primary, backup)

	route := Route{
		Provider: "openai", Model: "gpt-4o",
		FallbackProvider: "backup", FallbackModel: "gpt-4o-mini",
	}
	_, err := r.Generate(context.Background(), route, req())
	require.Error(t, err)
	// the fallback's failure is final
	assert.Equal(t, domain.KindAPI, domain.KindOf(err))
	assert.Contains(t, err.Error(), "also down")
	assert.Equal(t, 1, primary.calls)
	assert.Equal(t, 1, backup.calls)
}

func TestGenerateNoFallbackConfigured(t *testing.T) {
	primary := &fakeProvider{name: "openai", err: domain.API(500, "boom", nil)}
	r := testRouter(primary)

	_, err := r.Generate(context.Background(), Route{Provider: "openai", Model: "gpt-4o"}, req())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")
	assert.Equal(t, 1, primary.calls)
}

func TestGenerateValidationErrorSkipsFallback(t *testing.T) {
	primary := &fakeProvider{name: "openai", err: domain.Validation("bad input")}
	backup := &fakeProvider{name: "backup", reply: "never"}
	r := testRouter(primary, backup)

	route := Route{
		Provider: "openai", Model: "gpt-4o",
		FallbackProvider: "backup", FallbackModel: "gpt-4o-mini",
	}
	_, err := r.Generate(context.Background(), route, req())
	require.Error(t, err)
	assert.Equal(t, 0, backup.calls)
}

func TestGenerateUnregisteredFallbackKeepsPrimaryError(t *testing.T) {
	primary := &fakeProvider{name: "openai", err: domain.API(500, "primary boom", nil)}
	r := testRouter(primary)

	route := Route{
		Provider: "openai", Model: "gpt-4o",
		FallbackProvider: "ghost", FallbackModel: "m",
	}
	_, err := r.Generate(context.Background(), route, req())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "primary boom")
}

// switchingProvider fails its first call and succeeds afterwards, so one
// registered provider can serve as both primary and fallback.
type switchingProvider struct {
	name   string
	calls  int
	models *[]string
}

func (p *switchingProvider) Name() string { return p.name }
func (p *switchingProvider) Type() string { return "openai" }
func (p *switchingProvider) Start() error { return nil }
func (p *switchingProvider) Close() error { return nil }

func (p *switchingProvider) Chat(_ context.Context, req *schema.ChatRequest) (*schema.Completion, error) {
	p.calls++
	*p.models = append(*p.models, req.Model)
	if p.calls == 1 {
		return nil, domain.API(429, "rate limited", nil)
	}
	return &schema.Completion{Content: "second", Model: req.Model}, nil
}

func (p *switchingProvider) Models(context.Context) ([]schema.ModelInfo, error) {
	return nil, nil
}
