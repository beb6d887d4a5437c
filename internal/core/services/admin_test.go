package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/nulzo/concierge-bot/internal/registry"
	"github.com/nulzo/concierge-bot/internal/settings"
	"github.com/nulzo/concierge-bot/internal/sponsor"
)

type reconfProvider struct {
	fakeProvider
	applied []registry.ProviderSettings
}

func (p *reconfProvider) UpdateSettings(cfg registry.ProviderSettings) {
	p.applied = append(p.applied, cfg)
}

type failingLookup struct{}

func (failingLookup) GetChatMember(context.Context, string, int64) (string, error) {
	return "", errors.New("transport down")
}

type adminFixture struct {
	svc      *AdminService
	cfg      *settings.Store
	gate     *sponsor.Service
	provider *reconfProvider
}

func newAdminFixture(t *testing.T) *adminFixture {
	t.Helper()

	snap := settings.DefaultSnapshot()
	snap.APIKey = "sk-initial"
	cfg := settings.NewStore(snap, nil)

	gate, err := sponsor.NewService(nil, sponsor.Options{}, failingLookup{}, nil, nil, zap.NewNop())
	require.NoError(t, err)

	provider := &reconfProvider{fakeProvider: fakeProvider{name: "openai"}}
	router := NewRouterService(zap.NewNop())
	router.RegisterProvider(provider)

	return &adminFixture{
		svc:      NewAdminService(cfg, gate, router, zap.NewNop()),
		cfg:      cfg,
		gate:     gate,
		provider: provider,
	}
}

func TestUpdateSettingReconfiguresProviders(t *testing.T) {
	f := newAdminFixture(t)

	require.NoError(t, f.svc.UpdateSetting(context.Background(), settings.KeyAPIKey, "sk-rotated"))

	require.Len(t, f.provider.applied, 1)
	applied := f.provider.applied[0]
	assert.Equal(t, "sk-rotated", applied.APIKey)
	assert.Equal(t, "openai", applied.Name)
	assert.Equal(t, 30.0, applied.Timeout, "untouched fields come from the snapshot")
}

func TestUpdateSettingInvalidValueChangesNothing(t *testing.T) {
	f := newAdminFixture(t)

	err := f.svc.UpdateSetting(context.Background(), settings.KeyMaxRetries, "many")
	require.Error(t, err)
	assert.Empty(t, f.provider.applied)
	assert.Equal(t, "sk-initial", f.cfg.Snapshot().APIKey)
}

func TestUpdateSettingReplacesSponsorChannels(t *testing.T) {
	f := newAdminFixture(t)

	require.NoError(t, f.svc.UpdateSetting(context.Background(), settings.KeySponsorChannels, "@alpha, https://t.me/beta"))

	channels := f.svc.Sponsors()
	require.Len(t, channels, 2)
	assert.Equal(t, "@alpha", channels[0].ID)
	assert.Equal(t, "@beta", channels[1].ID)
}

func TestUpdateSettingFailClosedTakesEffect(t *testing.T) {
	f := newAdminFixture(t)
	ctx := context.Background()

	require.NoError(t, f.svc.UpdateSetting(ctx, settings.KeySponsorChannels, "@alpha"))

	// lookup always fails; default policy admits
	assert.True(t, f.gate.IsMember(ctx, 42))

	require.NoError(t, f.svc.UpdateSetting(ctx, settings.KeySponsorFailClosed, "true"))
	assert.False(t, f.gate.IsMember(ctx, 42))
}

func TestAddSponsorSyncsSnapshot(t *testing.T) {
	f := newAdminFixture(t)
	ctx := context.Background()

	require.NoError(t, f.svc.AddSponsor(ctx, "t.me/alpha"))
	assert.Equal(t, []string{"@alpha"}, f.cfg.Snapshot().SponsorChannels)

	require.NoError(t, f.svc.RemoveSponsor(ctx, "@alpha"))
	assert.Empty(t, f.cfg.Snapshot().SponsorChannels)
	assert.Empty(t, f.svc.Sponsors())
}

func TestModelsUsesDefaultProvider(t *testing.T) {
	f := newAdminFixture(t)

	_, err := f.svc.Models(context.Background(), "")
	require.NoError(t, err, "empty name resolves to the default provider")

	_, err = f.svc.Models(context.Background(), "ghost")
	require.Error(t, err)
}
