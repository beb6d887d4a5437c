package services

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/nulzo/concierge-bot/internal/core/domain"
	"github.com/nulzo/concierge-bot/internal/core/ports"
	"github.com/nulzo/concierge-bot/pkg/schema"
)

// Route is one resolved completion target plus its optional fallback.
// Fallback halves left empty inherit the primary's value.
type Route struct {
	Provider string
	Model    string

	FallbackProvider string
	FallbackModel    string
}

// RouterService dispatches completion requests to registered providers
// and applies at most one fallback hop when the primary target fails.
type RouterService struct {
	mu        sync.RWMutex
	providers map[string]ports.ChatProvider
	logger    *zap.Logger
}

func NewRouterService(log *zap.Logger) *RouterService {
	return &RouterService{
		providers: make(map[string]ports.ChatProvider),
		logger:    log,
	}
}

// RegisterProvider adds or replaces a provider under its name.
func (s *RouterService) RegisterProvider(p ports.ChatProvider) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.providers[p.Name()] = p
}

// Provider returns the registered provider for name.
func (s *RouterService) Provider(name string) (ports.ChatProvider, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if p, ok := s.providers[name]; ok {
		return p, nil
	}
	return nil, domain.Validation("unknown provider %q", name)
}

// Providers returns the names of every registered provider.
func (s *RouterService) Providers() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, 0, len(s.providers))
	for name := range s.providers {
		names = append(names, name)
	}
	return names
}

// ForEach runs fn over every registered provider.
func (s *RouterService) ForEach(fn func(p ports.ChatProvider)) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, p := range s.providers {
		fn(p)
	}
}

// StartAll opens every registered provider's connection pool.
func (s *RouterService) StartAll() error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, p := range s.providers {
		if err := p.Start(); err != nil {
			return err
		}
	}
	return nil
}

// CloseAll releases every registered provider.
func (s *RouterService) CloseAll() {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, p := range s.providers {
		if err := p.Close(); err != nil {
			s.logger.Warn("provider close failed",
				zap.String("provider", p.Name()), zap.Error(err))
		}
	}
}

// Generate sends req to the route's primary provider/model. If the call
// fails with an API or network error and a fallback is configured, it
// retries exactly once against the fallback target and returns that
// outcome, success or failure. There is no second hop.
func (s *RouterService) Generate(ctx context.Context, route Route, req *schema.ChatRequest) (*schema.Completion, error) {
	primary, err := s.Provider(route.Provider)
	if err != nil {
		return nil, err
	}

	attempt := *req
	attempt.Model = route.Model

	resp, err := primary.Chat(ctx, &attempt)
	if err == nil {
		return resp, nil
	}
	if !fallbackEligible(err) {
		return nil, err
	}

	fbProvider := route.FallbackProvider
	if fbProvider == "" {
		fbProvider = route.Provider
	}
	fbModel := route.FallbackModel
	if fbModel == "" {
		fbModel = route.Model
	}
	if fbProvider == route.Provider && fbModel == route.Model {
		// no fallback configured, or it resolves to the failed target
		return nil, err
	}

	fallback, ferr := s.Provider(fbProvider)
	if ferr != nil {
		s.logger.Warn("fallback provider not registered",
			zap.String("provider", fbProvider), zap.Error(ferr))
		return nil, err
	}

	s.logger.Warn("primary target failed, trying fallback",
		zap.String("provider", route.Provider),
		zap.String("model", route.Model),
		zap.String("fallback_provider", fbProvider),
		zap.String("fallback_model", fbModel),
		zap.Error(err))

	retry := *req
	retry.Model = fbModel
	return fallback.Chat(ctx, &retry)
}

// fallbackEligible reports whether err is a provider-level failure. Only
// API and network errors trigger the fallback hop.
func fallbackEligible(err error) bool {
	switch domain.KindOf(err) {
	case domain.KindAPI, domain.KindNetwork:
		return true
	default:
		return false
	}
}
