// Package membership provides MembershipLookup implementations for
// deployments where no messaging transport is attached (ops-API-only
// mode, benchmarks, local development).
package membership

import (
	"context"
	"sync"

	"github.com/nulzo/concierge-bot/internal/core/ports"
)

// StaticLookup answers membership checks from an in-memory roster. Users
// not present report the fallback status.
type StaticLookup struct {
	mu       sync.RWMutex
	roster   map[string]map[int64]string // channel id -> user id -> status
	fallback string
}

// NewStaticLookup builds a lookup whose unknown users report fallback
// ("left" denies, ports.MemberStatusMember admits everyone).
func NewStaticLookup(fallback string) *StaticLookup {
	if fallback == "" {
		fallback = "left"
	}
	return &StaticLookup{
		roster:   make(map[string]map[int64]string),
		fallback: fallback,
	}
}

// SetStatus records a user's status within a channel.
func (l *StaticLookup) SetStatus(channelID string, userID int64, status string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.roster[channelID] == nil {
		l.roster[channelID] = make(map[int64]string)
	}
	l.roster[channelID][userID] = status
}

func (l *StaticLookup) GetChatMember(_ context.Context, channelID string, userID int64) (string, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if statuses, ok := l.roster[channelID]; ok {
		if status, ok := statuses[userID]; ok {
			return status, nil
		}
	}
	return l.fallback, nil
}

var _ ports.MembershipLookup = (*StaticLookup)(nil)
