package services

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/nulzo/concierge-bot/internal/core/ports"
	"github.com/nulzo/concierge-bot/internal/registry"
	"github.com/nulzo/concierge-bot/internal/settings"
	"github.com/nulzo/concierge-bot/internal/sponsor"
	"github.com/nulzo/concierge-bot/pkg/schema"
)

// Reconfigurable is implemented by provider adapters that can hot-swap
// their connection settings.
type Reconfigurable interface {
	UpdateSettings(cfg registry.ProviderSettings)
}

// AdminService is the live-edit surface. Every mutation validates and
// persists through the settings store first, then pushes the new values
// into the components that consume them, so an edit takes effect without
// a restart.
type AdminService struct {
	settings *settings.Store
	gate     *sponsor.Service
	router   *RouterService
	logger   *zap.Logger
}

func NewAdminService(cfg *settings.Store, gate *sponsor.Service, router *RouterService, log *zap.Logger) *AdminService {
	if log == nil {
		log = zap.NewNop()
	}
	return &AdminService{
		settings: cfg,
		gate:     gate,
		router:   router,
		logger:   log,
	}
}

// UpdateSetting validates, persists and applies one edit. On any error
// nothing is changed.
func (s *AdminService) UpdateSetting(ctx context.Context, key, rawInput string) error {
	if err := s.settings.Update(ctx, key, rawInput); err != nil {
		return err
	}
	s.propagate(ctx, key)
	s.logger.Info("setting_updated", zap.String("key", key))
	return nil
}

// propagate pushes a committed setting into its consumers. The snapshot
// swap has already happened; failures here are logged, not rolled back.
func (s *AdminService) propagate(ctx context.Context, key string) {
	snap := s.settings.Snapshot()
	switch key {
	case settings.KeySponsorChannels:
		if err := s.gate.ReplaceChannels(ctx, snap.SponsorChannels); err != nil {
			s.logger.Warn("sponsor_channel_sync_failed", zap.Error(err))
		}
	case settings.KeySponsorFailClosed:
		s.gate.SetFailClosed(snap.SponsorFailClosed)
	case settings.KeyAPIKey, settings.KeyBaseURL, settings.KeyRequestTimeout,
		settings.KeyMaxRetries, settings.KeyRetryBackoff:
		s.reconfigureProviders(snap)
	}
}

func (s *AdminService) reconfigureProviders(snap *settings.Snapshot) {
	s.router.ForEach(func(p ports.ChatProvider) {
		rc, ok := p.(Reconfigurable)
		if !ok {
			return
		}
		rc.UpdateSettings(registry.ProviderSettings{
			Name:         p.Name(),
			APIKey:       snap.APIKey,
			BaseURL:      snap.BaseURL,
			Timeout:      snap.RequestTimeout,
			MaxRetries:   snap.MaxRetries,
			RetryBackoff: snap.RetryBackoff,
		})
	})
}

// Settings renders the masked configuration view.
func (s *AdminService) Settings() []settings.Entry {
	return s.settings.View(true)
}

// Sponsors returns the ordered channel list.
func (s *AdminService) Sponsors() []sponsor.Channel {
	return s.gate.Channels()
}

// AddSponsor adds one channel and mirrors the new set into the settings
// snapshot so the status view stays consistent.
func (s *AdminService) AddSponsor(ctx context.Context, raw string) error {
	if err := s.gate.AddChannel(ctx, raw); err != nil {
		return err
	}
	s.syncChannelSetting(ctx)
	return nil
}

// RemoveSponsor drops one channel.
func (s *AdminService) RemoveSponsor(ctx context.Context, raw string) error {
	if err := s.gate.RemoveChannel(ctx, raw); err != nil {
		return err
	}
	s.syncChannelSetting(ctx)
	return nil
}

func (s *AdminService) syncChannelSetting(ctx context.Context) {
	channels := s.gate.Channels()
	ids := make([]string, 0, len(channels))
	for _, ch := range channels {
		ids = append(ids, ch.ID)
	}
	if err := s.settings.Update(ctx, settings.KeySponsorChannels, strings.Join(ids, ",")); err != nil {
		s.logger.Warn("channel_setting_sync_failed", zap.Error(err))
	}
}

// Models lists the models of providerName, or of the configured default
// provider when providerName is empty.
func (s *AdminService) Models(ctx context.Context, providerName string) ([]schema.ModelInfo, error) {
	if providerName == "" {
		providerName = s.settings.Snapshot().DefaultProvider
	}
	p, err := s.router.Provider(providerName)
	if err != nil {
		return nil, err
	}
	return p.Models(ctx)
}
