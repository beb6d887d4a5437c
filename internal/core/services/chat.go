package services

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/nulzo/concierge-bot/internal/core/domain"
	"github.com/nulzo/concierge-bot/internal/history"
	"github.com/nulzo/concierge-bot/internal/settings"
	"github.com/nulzo/concierge-bot/internal/sponsor"
	"github.com/nulzo/concierge-bot/internal/store"
	"github.com/nulzo/concierge-bot/internal/store/model"
	"github.com/nulzo/concierge-bot/internal/texts"
	"github.com/nulzo/concierge-bot/pkg/schema"
)

// Incoming is one user message as delivered by the transport.
type Incoming struct {
	UserID       int64
	Username     string
	FirstName    string
	LastName     string
	LanguageCode string
	IsBot        bool
	Text         string
}

// Reply is what the transport should send back. JoinPrompt asks the UI
// to render the sponsor channel list alongside the text.
type Reply struct {
	Text        string
	JoinPrompt  bool
	Channels    []sponsor.Channel
	ReferenceID string
}

// ChatService ties the gate, settings, history and router together into
// the bot's message loop. Respond never returns an error; every failure
// becomes a user-facing message and a log line carrying the reference id.
type ChatService struct {
	settings *settings.Store
	router   *RouterService
	gate     *sponsor.Service
	repo     store.Repository
	admins   map[int64]struct{}
	logger   *zap.Logger
	now      func() time.Time
}

func NewChatService(cfg *settings.Store, router *RouterService, gate *sponsor.Service, repo store.Repository, adminIDs []int64, log *zap.Logger) *ChatService {
	admins := make(map[int64]struct{}, len(adminIDs))
	for _, id := range adminIDs {
		admins[id] = struct{}{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &ChatService{
		settings: cfg,
		router:   router,
		gate:     gate,
		repo:     repo,
		admins:   admins,
		logger:   log,
		now:      time.Now,
	}
}

// IsAdmin reports whether userID may use the admin surface. Admins are
// also exempt from the sponsor gate.
func (s *ChatService) IsAdmin(userID int64) bool {
	_, ok := s.admins[userID]
	return ok
}

// Respond handles one text message end to end: track the user, apply the
// sponsor gate, assemble context, call the model, persist the exchange.
func (s *ChatService) Respond(ctx context.Context, in Incoming) Reply {
	ref := uuid.NewString()
	log := s.logger.With(
		zap.String("reference_id", ref),
		zap.String("user", s.userTag(in.UserID)),
	)

	s.trackUser(ctx, in, log)

	if !s.IsAdmin(in.UserID) && !s.gate.IsMember(ctx, in.UserID) {
		return Reply{
			Text:        texts.SponsorRequired,
			JoinPrompt:  true,
			Channels:    s.gate.Channels(),
			ReferenceID: ref,
		}
	}

	snap := s.settings.Snapshot()
	if snap.APIKey == "" {
		log.Warn("chat_rejected_no_api_key")
		return Reply{Text: failureText(texts.ErrAPIKeyMissing), ReferenceID: ref}
	}

	conv, err := s.repo.Conversations().Active(ctx, in.UserID)
	if err != nil {
		log.Error("conversation_load_failed", zap.Error(err))
		return Reply{Text: texts.GenericError, ReferenceID: ref}
	}

	hist, err := s.loadHistory(ctx, conv.ID, snap.MaxHistoryMessages)
	if err != nil {
		log.Error("history_load_failed", zap.Error(err))
		return Reply{Text: texts.GenericError, ReferenceID: ref}
	}

	req := &schema.ChatRequest{
		Messages:    history.BuildMessages(texts.SystemPrompt, hist, in.Text),
		Temperature: snap.Temperature,
		MaxTokens:   snap.MaxTokens,
		TopP:        snap.TopP,
		User:        s.userTag(in.UserID),
	}

	route := s.route(snap, conv, log)
	completion, err := s.router.Generate(ctx, route, req)
	if err != nil {
		log.Error("completion_failed",
			zap.String("provider", route.Provider),
			zap.String("model", route.Model),
			zap.String("kind", string(domain.KindOf(err))),
			zap.Error(err),
		)
		s.recordFailedTurn(ctx, conv.ID, in.Text, ref, log)
		return Reply{Text: failureText(err), ReferenceID: ref}
	}

	s.recordExchange(ctx, conv.ID, in.Text, completion.Content, ref, log)

	okFields := []zap.Field{
		zap.String("provider", route.Provider),
		zap.String("model", completion.Model),
	}
	if completion.Usage != nil {
		okFields = append(okFields, zap.Int("total_tokens", completion.Usage.TotalTokens))
	}
	log.Info("completion_ok", okFields...)
	return Reply{Text: completion.Content, ReferenceID: ref}
}

// Reset closes the active conversation and opens a fresh one.
func (s *ChatService) Reset(ctx context.Context, userID int64) Reply {
	if _, err := s.repo.Conversations().StartNew(ctx, userID); err != nil {
		s.logger.Error("conversation_reset_failed",
			zap.String("user", s.userTag(userID)), zap.Error(err))
		return Reply{Text: texts.GenericError}
	}
	return Reply{Text: texts.ChatReset}
}

// SetModel stores a per-conversation model override. An empty modelID
// clears the override so the configured default applies again.
func (s *ChatService) SetModel(ctx context.Context, userID int64, modelID string) error {
	snap := s.settings.Snapshot()
	if modelID != "" && !modelAllowed(snap, modelID) {
		return texts.ErrModelNotAllowed
	}

	conv, err := s.repo.Conversations().Active(ctx, userID)
	if err != nil {
		return err
	}
	return s.repo.Conversations().SetModelOverride(ctx, conv.ID, modelID)
}

// CurrentModel resolves the model the next message from userID will use.
func (s *ChatService) CurrentModel(ctx context.Context, userID int64) (string, error) {
	snap := s.settings.Snapshot()
	conv, err := s.repo.Conversations().Active(ctx, userID)
	if err != nil {
		return "", err
	}
	if conv.ModelOverride.Valid && conv.ModelOverride.String != "" {
		return conv.ModelOverride.String, nil
	}
	return snap.DefaultModel, nil
}

// Status summarizes the live configuration for the admin status command.
func (s *ChatService) Status(ctx context.Context) string {
	snap := s.settings.Snapshot()
	users, err := s.repo.Users().Count(ctx)
	if err != nil {
		s.logger.Warn("user_count_failed", zap.Error(err))
	}

	out := texts.StatusTitle + "\n"
	out += fmt.Sprintf("provider: %s\nmodel: %s\n", snap.DefaultProvider, snap.DefaultModel)
	if snap.FallbackProvider != "" || snap.FallbackModel != "" {
		out += fmt.Sprintf("fallback: %s/%s\n",
			orDefault(snap.FallbackProvider, snap.DefaultProvider),
			orDefault(snap.FallbackModel, snap.DefaultModel))
	}
	out += fmt.Sprintf("sponsor channels: %d\nknown users: %d", len(s.gate.Channels()), users)
	return out
}

// route resolves the primary and fallback targets for one request. A
// conversation override that is no longer in the allow list is ignored
// rather than failing the message.
func (s *ChatService) route(snap *settings.Snapshot, conv *model.Conversation, log *zap.Logger) Route {
	modelID := snap.DefaultModel
	if conv.ModelOverride.Valid && conv.ModelOverride.String != "" {
		if modelAllowed(snap, conv.ModelOverride.String) {
			modelID = conv.ModelOverride.String
		} else {
			log.Warn("model_override_no_longer_allowed",
				zap.String("model", conv.ModelOverride.String))
		}
	}
	return Route{
		Provider:         snap.DefaultProvider,
		Model:            modelID,
		FallbackProvider: snap.FallbackProvider,
		FallbackModel:    snap.FallbackModel,
	}
}

func (s *ChatService) loadHistory(ctx context.Context, conversationID int64, limit int) ([]schema.ChatMessage, error) {
	rows, err := s.repo.Conversations().Recent(ctx, conversationID, limit)
	if err != nil {
		return nil, err
	}
	out := make([]schema.ChatMessage, 0, len(rows))
	for _, row := range rows {
		out = append(out, schema.ChatMessage{Role: row.Role, Content: row.Content})
	}
	return history.Trim(out, limit), nil
}

// trackUser is best effort; a broken user table must not block replies.
func (s *ChatService) trackUser(ctx context.Context, in Incoming, log *zap.Logger) {
	seen := s.now().UTC()
	err := s.repo.Users().Upsert(ctx, &model.User{
		ChatUserID:   in.UserID,
		Username:     nullable(in.Username),
		FirstName:    nullable(in.FirstName),
		LastName:     nullable(in.LastName),
		LanguageCode: nullable(in.LanguageCode),
		IsBot:        in.IsBot,
		FirstSeen:    seen,
		LastSeen:     seen,
	})
	if err != nil {
		log.Warn("user_track_failed", zap.Error(err))
	}
}

// recordExchange persists the user and assistant turns atomically.
func (s *ChatService) recordExchange(ctx context.Context, conversationID int64, userText, assistantText, ref string, log *zap.Logger) {
	at := s.now().UTC()
	err := s.repo.WithTx(ctx, func(tx store.Repository) error {
		if err := tx.Conversations().Append(ctx, &model.Message{
			ConversationID: conversationID,
			Role:           schema.RoleUser,
			Content:        userText,
			ReferenceID:    ref,
			CreatedAt:      at,
		}); err != nil {
			return err
		}
		return tx.Conversations().Append(ctx, &model.Message{
			ConversationID: conversationID,
			Role:           schema.RoleAssistant,
			Content:        assistantText,
			ReferenceID:    ref,
			CreatedAt:      at,
		})
	})
	if err != nil {
		log.Warn("exchange_persist_failed", zap.Error(err))
	}
}

// recordFailedTurn keeps the user's message for the record but flags it
// so it never re-enters model context.
func (s *ChatService) recordFailedTurn(ctx context.Context, conversationID int64, userText, ref string, log *zap.Logger) {
	err := s.repo.Conversations().Append(ctx, &model.Message{
		ConversationID: conversationID,
		Role:           schema.RoleUser,
		Content:        userText,
		Failed:         true,
		ReferenceID:    ref,
		CreatedAt:      s.now().UTC(),
	})
	if err != nil {
		log.Warn("failed_turn_persist_failed", zap.Error(err))
	}
}

// userTag is the identifier written to logs and sent upstream as the
// end-user field. With anonymization on it is a stable hash prefix.
func (s *ChatService) userTag(userID int64) string {
	if !s.settings.Snapshot().AnonymizeUserIDs {
		return strconv.FormatInt(userID, 10)
	}
	sum := sha256.Sum256([]byte(strconv.FormatInt(userID, 10)))
	return hex.EncodeToString(sum[:])[:10]
}

// failureText maps an error to what the user sees. Only UserVisible
// errors surface verbatim; everything else collapses to the generic
// message so internals never leak.
func failureText(err error) string {
	var de *domain.Error
	if errors.As(err, &de) && de.Kind == domain.KindUserVisible {
		return de.Message
	}
	return texts.GenericError
}

func modelAllowed(snap *settings.Snapshot, modelID string) bool {
	if len(snap.AllowedModels) == 0 {
		return true
	}
	for _, allowed := range snap.AllowedModels {
		if allowed == modelID {
			return true
		}
	}
	return false
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func orDefault(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}
