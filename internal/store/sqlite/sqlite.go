package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/nulzo/concierge-bot/internal/store"
	"github.com/nulzo/concierge-bot/internal/store/model"
)

// DB is satisfied by both *sqlx.DB and *sqlx.Tx so the same repositories
// work inside and outside a transaction.
type DB interface {
	GetContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	SelectContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	NamedExecContext(ctx context.Context, query string, arg interface{}) (sql.Result, error)
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

// SqliteRepository implements store.Repository.
type SqliteRepository struct {
	db       *sqlx.DB // required for starting new transactions
	executor DB       // *sqlx.DB or *sqlx.Tx
}

func NewSqliteRepository(db *sqlx.DB) *SqliteRepository {
	return &SqliteRepository{
		db:       db,
		executor: db,
	}
}

func (r *SqliteRepository) Close() error {
	return r.db.Close()
}

func (r *SqliteRepository) WithTx(ctx context.Context, fn func(repo store.Repository) error) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}

	txRepo := &SqliteRepository{
		db:       r.db,
		executor: tx,
	}

	if err := fn(txRepo); err != nil {
		_ = tx.Rollback()
		return err
	}

	return tx.Commit()
}

func (r *SqliteRepository) Settings() store.SettingsRepository {
	return &settingsRepo{db: r.executor}
}

func (r *SqliteRepository) Users() store.UserRepository {
	return &userRepo{db: r.executor}
}

func (r *SqliteRepository) Conversations() store.ConversationRepository {
	return &conversationRepo{db: r.executor}
}

type settingsRepo struct {
	db DB
}

func (r *settingsRepo) EnsureDefaults(ctx context.Context, defaults map[string]string) error {
	query := `INSERT OR IGNORE INTO bot_settings (key, value) VALUES (?, ?)`
	for key, value := range defaults {
		if _, err := r.db.ExecContext(ctx, query, key, value); err != nil {
			return err
		}
	}
	return nil
}

func (r *settingsRepo) Fetch(ctx context.Context) (map[string]string, error) {
	var rows []struct {
		Key   string `db:"key"`
		Value string `db:"value"`
	}
	if err := r.db.SelectContext(ctx, &rows, `SELECT key, value FROM bot_settings`); err != nil {
		return nil, err
	}

	out := make(map[string]string, len(rows))
	for _, row := range rows {
		out[row.Key] = row.Value
	}
	return out, nil
}

func (r *settingsRepo) SetSetting(ctx context.Context, key, value string) error {
	query := `
	INSERT INTO bot_settings (key, value, updated_at)
	VALUES (?, ?, CURRENT_TIMESTAMP)
	ON CONFLICT(key) DO UPDATE SET
		value = excluded.value,
		updated_at = CURRENT_TIMESTAMP`
	_, err := r.db.ExecContext(ctx, query, key, value)
	return err
}

type userRepo struct {
	db DB
}

// Upsert keeps first_seen from the original row and refreshes everything
// else.
func (r *userRepo) Upsert(ctx context.Context, user *model.User) error {
	query := `
	INSERT INTO users (chat_user_id, username, first_name, last_name, language_code, is_bot, first_seen, last_seen)
	VALUES (:chat_user_id, :username, :first_name, :last_name, :language_code, :is_bot, :first_seen, :last_seen)
	ON CONFLICT(chat_user_id) DO UPDATE SET
		username = excluded.username,
		first_name = excluded.first_name,
		last_name = excluded.last_name,
		language_code = excluded.language_code,
		last_seen = excluded.last_seen`
	_, err := r.db.NamedExecContext(ctx, query, user)
	return err
}

func (r *userRepo) GetByChatID(ctx context.Context, chatUserID int64) (*model.User, error) {
	var u model.User
	err := r.db.GetContext(ctx, &u, `SELECT * FROM users WHERE chat_user_id = ?`, chatUserID)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *userRepo) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM users`)
	return n, err
}

func (r *userRepo) List(ctx context.Context, limit, offset int) ([]model.User, error) {
	var users []model.User
	query := `SELECT * FROM users ORDER BY last_seen DESC LIMIT ? OFFSET ?`
	err := r.db.SelectContext(ctx, &users, query, limit, offset)
	return users, err
}

type conversationRepo struct {
	db DB
}

func (r *conversationRepo) Active(ctx context.Context, chatUserID int64) (*model.Conversation, error) {
	var c model.Conversation
	query := `SELECT * FROM conversations WHERE chat_user_id = ? AND active = 1 ORDER BY id DESC LIMIT 1`
	err := r.db.GetContext(ctx, &c, query, chatUserID)
	if err == sql.ErrNoRows {
		return r.create(ctx, chatUserID)
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *conversationRepo) StartNew(ctx context.Context, chatUserID int64) (*model.Conversation, error) {
	query := `UPDATE conversations SET active = 0 WHERE chat_user_id = ? AND active = 1`
	if _, err := r.db.ExecContext(ctx, query, chatUserID); err != nil {
		return nil, err
	}
	return r.create(ctx, chatUserID)
}

func (r *conversationRepo) create(ctx context.Context, chatUserID int64) (*model.Conversation, error) {
	now := time.Now().UTC()
	query := `INSERT INTO conversations (chat_user_id, active, created_at) VALUES (?, 1, ?)`
	res, err := r.db.ExecContext(ctx, query, chatUserID, now)
	if err != nil {
		return nil, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	return &model.Conversation{ID: id, ChatUserID: chatUserID, Active: true, CreatedAt: now}, nil
}

func (r *conversationRepo) SetModelOverride(ctx context.Context, conversationID int64, modelID string) error {
	override := sql.NullString{String: modelID, Valid: modelID != ""}
	query := `UPDATE conversations SET model_override = ? WHERE id = ?`
	_, err := r.db.ExecContext(ctx, query, override, conversationID)
	return err
}

func (r *conversationRepo) Append(ctx context.Context, msg *model.Message) error {
	query := `
	INSERT INTO messages (conversation_id, role, content, failed, reference_id, created_at)
	VALUES (:conversation_id, :role, :content, :failed, :reference_id, :created_at)`
	res, err := r.db.NamedExecContext(ctx, query, msg)
	if err != nil {
		return err
	}
	if id, err := res.LastInsertId(); err == nil {
		msg.ID = id
	}
	return nil
}

// Recent selects the newest rows and flips them back to chronological
// order, so the window always ends at the latest turn.
func (r *conversationRepo) Recent(ctx context.Context, conversationID int64, limit int) ([]model.Message, error) {
	if limit <= 0 {
		return nil, nil
	}
	var msgs []model.Message
	query := `
	SELECT * FROM (
		SELECT * FROM messages
		WHERE conversation_id = ? AND failed = 0
		ORDER BY id DESC LIMIT ?
	) ORDER BY id ASC`
	err := r.db.SelectContext(ctx, &msgs, query, conversationID, limit)
	return msgs, err
}
