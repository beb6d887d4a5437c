package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/nulzo/concierge-bot/internal/config"
	"github.com/nulzo/concierge-bot/internal/core/domain"
	"github.com/nulzo/concierge-bot/internal/core/services"
	"github.com/nulzo/concierge-bot/internal/settings"
	"github.com/nulzo/concierge-bot/internal/sponsor"
	"github.com/nulzo/concierge-bot/internal/texts"
	"github.com/nulzo/concierge-bot/pkg/schema"
)

type fakeChat struct {
	lastIncoming services.Incoming
	setModelErr  error
}

func (f *fakeChat) Respond(_ context.Context, in services.Incoming) services.Reply {
	f.lastIncoming = in
	return services.Reply{Text: "echo: " + in.Text, ReferenceID: "ref-1"}
}

func (f *fakeChat) Reset(context.Context, int64) services.Reply {
	return services.Reply{Text: texts.ChatReset}
}

func (f *fakeChat) SetModel(context.Context, int64, string) error {
	return f.setModelErr
}

func (f *fakeChat) CurrentModel(context.Context, int64) (string, error) {
	return "gpt-4o", nil
}

type fakeAdmin struct {
	updateErr error
	removeErr error
	updated   [][2]string
}

func (f *fakeAdmin) UpdateSetting(_ context.Context, key, raw string) error {
	if f.updateErr != nil {
		return f.updateErr
	}
	f.updated = append(f.updated, [2]string{key, raw})
	return nil
}

func (f *fakeAdmin) Settings() []settings.Entry {
	return []settings.Entry{{Key: "default_model", Value: "gpt-4o"}}
}

func (f *fakeAdmin) Sponsors() []sponsor.Channel {
	return []sponsor.Channel{{ID: "@alpha", Label: "@alpha", URL: "https://t.me/alpha"}}
}

func (f *fakeAdmin) AddSponsor(context.Context, string) error { return nil }

func (f *fakeAdmin) RemoveSponsor(context.Context, string) error { return f.removeErr }

func (f *fakeAdmin) Models(context.Context, string) ([]schema.ModelInfo, error) {
	return []schema.ModelInfo{{ID: "gpt-4o"}}, nil
}

type fakeStatus struct{}

func (fakeStatus) Status(context.Context) string { return "ok" }

func newTestServer(chat *fakeChat, admin *fakeAdmin) *Server {
	cfg := &config.Config{}
	cfg.Server.APIKeys = "secret"
	cfg.RateLimit.RequestsPerSecond = 1000
	cfg.RateLimit.Burst = 100
	return New(cfg, zap.NewNop(), chat, admin, fakeStatus{})
}

func do(s *Server, method, path, body string, authed bool) *httptest.ResponseRecorder {
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if authed {
		req.Header.Set("Authorization", "Bearer secret")
	}
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	return w
}

func TestHealthIsPublic(t *testing.T) {
	s := newTestServer(&fakeChat{}, &fakeAdmin{})
	w := do(s, http.MethodGet, "/health", "", false)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestChatRequiresAuth(t *testing.T) {
	s := newTestServer(&fakeChat{}, &fakeAdmin{})

	w := do(s, http.MethodPost, "/v1/chat", `{"user_id":42,"text":"hi"}`, false)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = do(s, http.MethodPost, "/v1/chat", `{"user_id":42,"text":"hi"}`, true)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestChatEcho(t *testing.T) {
	chat := &fakeChat{}
	s := newTestServer(chat, &fakeAdmin{})

	w := do(s, http.MethodPost, "/v1/chat", `{"user_id":42,"text":"hi","username":"ada"}`, true)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Text        string `json:"text"`
		ReferenceID string `json:"reference_id"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "echo: hi", resp.Text)
	assert.Equal(t, "ref-1", resp.ReferenceID)
	assert.Equal(t, "ada", chat.lastIncoming.Username)
}

func TestChatBindingErrors(t *testing.T) {
	s := newTestServer(&fakeChat{}, &fakeAdmin{})

	w := do(s, http.MethodPost, "/v1/chat", `{"username":"ada"}`, true)
	require.Equal(t, http.StatusBadRequest, w.Code)

	var problem struct {
		Title  string            `json:"title"`
		Errors map[string]string `json:"errors"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &problem))
	assert.Equal(t, "Validation Failed", problem.Title)
	assert.Contains(t, problem.Errors, "user_id")
	assert.Contains(t, problem.Errors, "text")
}

func TestUpdateSettingMapsValidationError(t *testing.T) {
	admin := &fakeAdmin{updateErr: domain.Validation("value out of range")}
	s := newTestServer(&fakeChat{}, admin)

	w := do(s, http.MethodPut, "/v1/settings/max_retries", `{"value":"99"}`, true)
	require.Equal(t, http.StatusBadRequest, w.Code)

	var problem struct {
		Detail string `json:"detail"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &problem))
	assert.Equal(t, "value out of range", problem.Detail)
}

func TestUpdateSettingPassesKeyAndValue(t *testing.T) {
	admin := &fakeAdmin{}
	s := newTestServer(&fakeChat{}, admin)

	w := do(s, http.MethodPut, "/v1/settings/default_model", `{"value":"gpt-4o-mini"}`, true)
	require.Equal(t, http.StatusOK, w.Code)
	require.Len(t, admin.updated, 1)
	assert.Equal(t, [2]string{"default_model", "gpt-4o-mini"}, admin.updated[0])
}

func TestRemoveSponsorMapsUserVisibleError(t *testing.T) {
	admin := &fakeAdmin{removeErr: texts.ErrSponsorNotFound}
	s := newTestServer(&fakeChat{}, admin)

	w := do(s, http.MethodDelete, "/v1/sponsors/ghost", "", true)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "not in the list")
}

func TestSetModelRejection(t *testing.T) {
	chat := &fakeChat{setModelErr: texts.ErrModelNotAllowed}
	s := newTestServer(chat, &fakeAdmin{})

	w := do(s, http.MethodPut, "/v1/chat/model", `{"user_id":42,"model":"o3"}`, true)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "not allowed")
}

func TestRateLimit(t *testing.T) {
	cfg := &config.Config{}
	cfg.Server.APIKeys = "secret"
	cfg.RateLimit.RequestsPerSecond = 0.001
	cfg.RateLimit.Burst = 1
	s := New(cfg, zap.NewNop(), &fakeChat{}, &fakeAdmin{}, fakeStatus{})

	first := do(s, http.MethodGet, "/v1/status", "", true)
	assert.Equal(t, http.StatusOK, first.Code)

	second := do(s, http.MethodGet, "/v1/status", "", true)
	assert.Equal(t, http.StatusTooManyRequests, second.Code)
}
