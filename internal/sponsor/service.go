package sponsor

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/nulzo/concierge-bot/internal/core/ports"
	"github.com/nulzo/concierge-bot/internal/texts"
)

// Persister stores the channel set durably before a mutation returns.
type Persister interface {
	SetSetting(ctx context.Context, key, value string) error
}

// settingKey is the persisted key for the channel set. Must match the
// settings registry so boot-time overrides rehydrate the same value.
const settingKey = "sponsor_channels"

// membershipCacheTTL bounds how long a positive membership result is
// trusted without re-querying the transport. Negative results are never
// cached so a user who just joined is admitted promptly.
const membershipCacheTTL = 5 * time.Minute

// Options configures retry and failure policy for membership checks.
type Options struct {
	// Retries is the number of additional lookup attempts per channel
	// after the first (so 1 means two attempts total).
	Retries int
	// Backoff is the base delay; attempt n sleeps Backoff * 2^n.
	Backoff time.Duration
	// FailClosed treats a user as not-a-member when the transport keeps
	// failing. The default (false) fails open, favoring availability.
	FailClosed bool
}

// Service owns the ordered set of sponsor channels and answers
// membership questions against the transport's lookup capability. The
// same set drives both the join-link UI and verification, so the two
// can never diverge.
type Service struct {
	mu       sync.RWMutex
	channels []Channel

	opts    Options
	lookup  ports.MembershipLookup
	persist Persister
	cache   ports.CacheService
	logger  *zap.Logger

	// sleep is swapped out in tests.
	sleep func(ctx context.Context, d time.Duration) error
}

// NewService builds a Service from already-normalized channel IDs
// (typically the persisted sponsor_channels setting). persist and cache
// may be nil.
func NewService(initial []string, opts Options, lookup ports.MembershipLookup, persist Persister, cache ports.CacheService, logger *zap.Logger) (*Service, error) {
	channels, err := NormalizeList(initial)
	if err != nil {
		return nil, err
	}
	if opts.Retries < 0 {
		opts.Retries = 0
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		channels: channels,
		opts:     opts,
		lookup:   lookup,
		persist:  persist,
		cache:    cache,
		logger:   logger,
		sleep:    sleepCtx,
	}, nil
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

// Channels returns the active ordered channel set.
func (s *Service) Channels() []Channel {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Channel, len(s.channels))
	copy(out, s.channels)
	return out
}

// SetFailClosed flips the failure policy at runtime (admin setting).
func (s *Service) SetFailClosed(failClosed bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.opts.FailClosed = failClosed
}

// AddChannel normalizes raw, rejects duplicates, persists the updated
// set, then commits it.
func (s *Service) AddChannel(ctx context.Context, raw string) error {
	channel, err := Normalize(raw)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.channels {
		if existing.ID == channel.ID {
			return texts.ErrSponsorExists
		}
	}

	next := append(append([]Channel(nil), s.channels...), channel)
	if err := s.persistLocked(ctx, next); err != nil {
		return err
	}
	s.channels = next
	s.logger.Info("sponsor_channel_added", zap.String("channel", channel.ID))
	return nil
}

// RemoveChannel drops the channel matching raw's identity; removing a
// channel that is not present is a user-visible error.
func (s *Service) RemoveChannel(ctx context.Context, raw string) error {
	channel, err := Normalize(raw)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	next := make([]Channel, 0, len(s.channels))
	for _, existing := range s.channels {
		if existing.ID != channel.ID {
			next = append(next, existing)
		}
	}
	if len(next) == len(s.channels) {
		return texts.ErrSponsorNotFound
	}

	if err := s.persistLocked(ctx, next); err != nil {
		return err
	}
	s.channels = next
	s.logger.Info("sponsor_channel_removed", zap.String("channel", channel.ID))
	return nil
}

// ReplaceChannels swaps in a whole new set (admin bulk edit).
func (s *Service) ReplaceChannels(ctx context.Context, raws []string) error {
	channels, err := NormalizeList(raws)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.persistLocked(ctx, channels); err != nil {
		return err
	}
	s.channels = channels
	return nil
}

func (s *Service) persistLocked(ctx context.Context, channels []Channel) error {
	if s.persist == nil {
		return nil
	}
	ids := make([]string, 0, len(channels))
	for _, ch := range channels {
		ids = append(ids, ch.ID)
	}
	return s.persist.SetSetting(ctx, settingKey, strings.Join(ids, ","))
}

// IsMember reports whether userID belongs to every configured channel.
// Vacuously true for an empty set. Lookup failures follow the
// configured policy: fail-open retries then admits, fail-closed denies
// immediately after retries. Short-circuits on the first channel the
// user is missing from.
func (s *Service) IsMember(ctx context.Context, userID int64) bool {
	s.mu.RLock()
	channels := s.channels
	opts := s.opts
	s.mu.RUnlock()

	if len(channels) == 0 {
		return true
	}

	for _, channel := range channels {
		if s.cachedMember(ctx, channel.ID, userID) {
			continue
		}

		status, err := s.lookupWithRetry(ctx, channel.ID, userID, opts)
		if err != nil {
			s.logger.Warn("membership_check_failed",
				zap.String("channel", channel.ID),
				zap.Int64("user_id", userID),
				zap.Bool("fail_closed", opts.FailClosed),
				zap.Error(err),
			)
			if opts.FailClosed {
				return false
			}
			// fail open: the transport is unhealthy, admit the user
			return true
		}

		switch status {
		case ports.MemberStatusMember, ports.MemberStatusAdministrator, ports.MemberStatusCreator:
			s.rememberMember(ctx, channel.ID, userID)
		default:
			return false
		}
	}
	return true
}

func (s *Service) lookupWithRetry(ctx context.Context, channelID string, userID int64, opts Options) (string, error) {
	var lastErr error
	for attempt := 0; attempt <= opts.Retries; attempt++ {
		status, err := s.lookup.GetChatMember(ctx, channelID, userID)
		if err == nil {
			return status, nil
		}
		lastErr = err
		if attempt < opts.Retries {
			delay := opts.Backoff * (1 << attempt)
			if sleepErr := s.sleep(ctx, delay); sleepErr != nil {
				return "", sleepErr
			}
		}
	}
	return "", lastErr
}

func (s *Service) cachedMember(ctx context.Context, channelID string, userID int64) bool {
	if s.cache == nil {
		return false
	}
	var ok bool
	if err := s.cache.Get(ctx, memberCacheKey(channelID, userID), &ok); err != nil {
		return false
	}
	return ok
}

func (s *Service) rememberMember(ctx context.Context, channelID string, userID int64) {
	if s.cache == nil {
		return
	}
	_ = s.cache.Set(ctx, memberCacheKey(channelID, userID), true, membershipCacheTTL)
}

func memberCacheKey(channelID string, userID int64) string {
	return fmt.Sprintf("sponsor:member:%s:%d", channelID, userID)
}
