package ports

import (
	"context"
	"time"

	"github.com/nulzo/concierge-bot/pkg/schema"
)

// ChatProvider is the contract every upstream AI provider adapter must
// implement. Retry and backoff live inside the adapter; callers see only
// the final outcome of a call.
type ChatProvider interface {
	Name() string
	Type() string // e.g. "openai"

	Chat(ctx context.Context, req *schema.ChatRequest) (*schema.Completion, error)
	Models(ctx context.Context) ([]schema.ModelInfo, error)

	// Start acquires the underlying connection pool. Idempotent under
	// concurrent first use. Close releases it.
	Start() error
	Close() error
}

// Membership statuses that satisfy a sponsor-channel requirement.
const (
	MemberStatusMember        = "member"
	MemberStatusAdministrator = "administrator"
	MemberStatusCreator       = "creator"
)

// MembershipLookup is the capability supplied by the messaging
// transport: resolve a user's status within a channel.
type MembershipLookup interface {
	GetChatMember(ctx context.Context, channelID string, userID int64) (status string, err error)
}

// CacheService is a TTL'd key/value cache. Implementations marshal the
// value to JSON; Get unmarshals into dest.
type CacheService interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}
