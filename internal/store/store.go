package store

import (
	"context"

	"github.com/nulzo/concierge-bot/internal/store/model"
)

// Repository is the main contract for the data layer.
type Repository interface {
	Settings() SettingsRepository
	Users() UserRepository
	Conversations() ConversationRepository

	// WithTx runs fn against a repository bound to one transaction.
	WithTx(ctx context.Context, fn func(repo Repository) error) error

	Close() error
}

// SettingsRepository persists the mutable bot settings. SetSetting must
// be durable before it returns.
type SettingsRepository interface {
	// EnsureDefaults inserts missing keys without touching existing rows.
	EnsureDefaults(ctx context.Context, defaults map[string]string) error
	// Fetch returns every persisted key/value pair.
	Fetch(ctx context.Context) (map[string]string, error)
	// SetSetting upserts one key.
	SetSetting(ctx context.Context, key, value string) error
}

// UserRepository tracks everyone who has interacted with the bot.
type UserRepository interface {
	// Upsert inserts the user or refreshes last_seen and profile fields.
	Upsert(ctx context.Context, user *model.User) error
	GetByChatID(ctx context.Context, chatUserID int64) (*model.User, error)
	Count(ctx context.Context) (int64, error)
	// List pages users by most recent activity.
	List(ctx context.Context, limit, offset int) ([]model.User, error)
}

// ConversationRepository owns conversations and their append-only,
// monotonically ordered message log.
type ConversationRepository interface {
	// Active returns the user's open conversation, creating one if none
	// exists.
	Active(ctx context.Context, chatUserID int64) (*model.Conversation, error)
	// StartNew closes the open conversation and opens a fresh one.
	StartNew(ctx context.Context, chatUserID int64) (*model.Conversation, error)
	// SetModelOverride stores a per-conversation model choice ("" clears).
	SetModelOverride(ctx context.Context, conversationID int64, modelID string) error
	// Append adds one message to the log.
	Append(ctx context.Context, msg *model.Message) error
	// Recent returns the last limit non-failed messages in original
	// order. limit <= 0 returns nothing.
	Recent(ctx context.Context, conversationID int64, limit int) ([]model.Message, error)
}
