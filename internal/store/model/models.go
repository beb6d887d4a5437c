package model

import (
	"database/sql"
	"time"
)

// User is one person who has interacted with the bot, keyed by the
// transport's user id.
type User struct {
	ID           int64          `db:"id"`
	ChatUserID   int64          `db:"chat_user_id"`
	Username     sql.NullString `db:"username"`
	FirstName    sql.NullString `db:"first_name"`
	LastName     sql.NullString `db:"last_name"`
	LanguageCode sql.NullString `db:"language_code"`
	IsBot        bool           `db:"is_bot"`
	FirstSeen    time.Time      `db:"first_seen"`
	LastSeen     time.Time      `db:"last_seen"`
}

// Conversation groups a user's messages. At most one conversation per
// user is active; /new closes it and opens another.
type Conversation struct {
	ID            int64          `db:"id"`
	ChatUserID    int64          `db:"chat_user_id"`
	ModelOverride sql.NullString `db:"model_override"`
	Active        bool           `db:"active"`
	CreatedAt     time.Time      `db:"created_at"`
}

// Message is one turn in a conversation. Failed marks a user turn whose
// completion call errored, so it is excluded from future model context
// but kept for the record.
type Message struct {
	ID             int64     `db:"id"`
	ConversationID int64     `db:"conversation_id"`
	Role           string    `db:"role"`
	Content        string    `db:"content"`
	Failed         bool      `db:"failed"`
	ReferenceID    string    `db:"reference_id"`
	CreatedAt      time.Time `db:"created_at"`
}
