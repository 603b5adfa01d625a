// Package sessions держит живые брокерские подключения и связанные
// с ними кэши (капитал, метаданные позиций), сгруппированные по
// пользователю платформы. Наружу сырые вложенные структуры не отдаются:
// каждый доступ идёт через методы Hub c явным user.
package sessions

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/pquerna/otp/totp"

	"mt_trader/internal/broker"
	"mt_trader/internal/httpmiddleware"
	"mt_trader/internal/models"
	"mt_trader/internal/store"
)

// Session - живое подключение одного брокерского аккаунта
type Session struct {
	Name      string // display name, выбранное пользователем
	AccountID string
	Broker    broker.Capability
}

// PositionMeta - закэшированные метаданные открытой позиции,
// нужны для close/convert без повторного похода к брокеру
type PositionMeta struct {
	Exchange    string
	SymbolToken int
	ProductType string
}

// MetaKey - ключ метаданных внутри одного пользователя
type MetaKey struct {
	Name   string
	Symbol string
}

// userState - всё состояние одного пользователя платформы
type userState struct {
	mu       sync.RWMutex
	sessions map[string]*Session // по display name
	capital  map[string]float64  // по account id
	meta     map[MetaKey]PositionMeta
}

// Hub - точка входа ко всем пользовательским состояниям
type Hub struct {
	mu      sync.Mutex
	users   map[string]*userState
	store   store.DocStore
	factory broker.Factory
	logger  *slog.Logger
}

func NewHub(docStore store.DocStore, factory broker.Factory, logger *slog.Logger) *Hub {
	return &Hub{
		users:   make(map[string]*userState),
		store:   docStore,
		factory: factory,
		logger:  logger,
	}
}

// forUser - lookup-or-create состояния пользователя
func (h *Hub) forUser(user string) *userState {
	h.mu.Lock()
	defer h.mu.Unlock()

	st, ok := h.users[user]
	if !ok {
		st = &userState{
			sessions: make(map[string]*Session),
			capital:  make(map[string]float64),
			meta:     make(map[MetaKey]PositionMeta),
		}
		h.users[user] = st
	}

	return st
}

// Login логинит брокерский аккаунт и кэширует сессию под пользователем.
// Вызывается как фоновая задача: ошибки аутентификации не
// пробрасываются наружу, а превращаются в session_active=false.
func (h *Hub) Login(ctx context.Context, user string, doc models.Document) {
	accountID := doc.Str("userid", "client_id")
	if accountID == "" {
		h.logger.Warn("Login skipped: client doc has no account id", slog.String("user", user))
		return
	}

	name := doc.Str("name", "display_name")
	if name == "" {
		name = accountID
	}

	// Кэшируем капитал сразу из свежего документа, чтобы кэш и
	// хранилище не разошлись после логина
	h.SetCapital(user, accountID, doc.Float("capital", "base_amount"))

	active := false

	code := ""
	if key := doc.Str("totpkey", "totp_key"); key != "" {
		var err error
		code, err = totp.GenerateCode(key, time.Now())
		if err != nil {
			h.logger.Error("❌ TOTP generation failed",
				slog.String("user", user),
				slog.String("account", accountID),
				slog.Any("error", err))
			h.persistSessionState(ctx, user, accountID, doc, false)

			return
		}
	}

	apiKey := doc.Str("apikey", "api_key")
	h.logger.Debug("🔍 Broker login attempt",
		slog.String("user", user),
		slog.String("account", accountID),
		slog.String("apikey", httpmiddleware.MaskToken(apiKey)))

	capability := h.factory(apiKey)

	resp, err := capability.Login(ctx, broker.LoginRequest{
		UserID:     accountID,
		Password:   doc.Str("password"),
		PAN:        doc.Str("pan"),
		TOTP:       code,
		ClientCode: accountID,
	})

	switch {
	case err != nil:
		h.logger.Error("❌ Broker login error",
			slog.String("user", user),
			slog.String("account", accountID),
			slog.Any("error", err))
	case resp.Status != broker.StatusSuccess:
		h.logger.Error("❌ Broker login rejected",
			slog.String("user", user),
			slog.String("account", accountID),
			slog.String("message", resp.Message))
	default:
		h.install(user, name, &Session{Name: name, AccountID: accountID, Broker: capability})
		active = true

		h.logger.Info("✅ Broker login ok",
			slog.String("user", user),
			slog.String("name", name),
			slog.String("account", accountID))
	}

	h.persistSessionState(ctx, user, accountID, doc, active)
}

// persistSessionState дописывает session_active в сохранённый документ.
// Merge, а не overwrite: параллельное частичное обновление документа
// другим вызовом не должно потеряться.
func (h *Hub) persistSessionState(ctx context.Context, user, accountID string, doc models.Document, active bool) {
	path := store.ClientPath(user, accountID)

	stored, err := h.store.Read(ctx, path)
	if err != nil {
		h.logger.Error("Failed to read client doc for session state", slog.String("path", path), slog.Any("error", err))
		stored = models.Document{}
	}

	stored.Merge(doc)
	stored["session_active"] = active
	stored["updated_at"] = time.Now().UTC().Format(time.RFC3339)

	if err := h.store.Write(ctx, path, stored); err != nil {
		h.logger.Error("Failed to persist session state", slog.String("path", path), slog.Any("error", err))
	}
}

func (h *Hub) install(user, name string, sess *Session) {
	st := h.forUser(user)

	st.mu.Lock()
	defer st.mu.Unlock()

	st.sessions[name] = sess
}

// Lookup находит сессию по display name
func (h *Hub) Lookup(user, name string) (*Session, bool) {
	st := h.forUser(user)

	st.mu.RLock()
	defer st.mu.RUnlock()

	sess, ok := st.sessions[name]

	return sess, ok
}

// LookupByAccountID находит сессию по брокерскому account id.
// Линейный скан: аккаунтов у одного пользователя немного.
func (h *Hub) LookupByAccountID(user, accountID string) (*Session, bool) {
	st := h.forUser(user)

	st.mu.RLock()
	defer st.mu.RUnlock()

	for _, sess := range st.sessions {
		if sess.AccountID == accountID {
			return sess, true
		}
	}

	return nil, false
}

// Sessions возвращает снимок всех сессий пользователя
func (h *Hub) Sessions(user string) []*Session {
	st := h.forUser(user)

	st.mu.RLock()
	defer st.mu.RUnlock()

	out := make([]*Session, 0, len(st.sessions))
	for _, sess := range st.sessions {
		out = append(out, sess)
	}

	return out
}

// Drop удаляет все сессии пользователя с данным account id
// (используется при удалении аккаунта)
func (h *Hub) Drop(user, accountID string) int {
	st := h.forUser(user)

	st.mu.Lock()
	defer st.mu.Unlock()

	dropped := 0
	for name, sess := range st.sessions {
		if sess.AccountID == accountID {
			delete(st.sessions, name)
			dropped++
		}
	}

	return dropped
}

// LoggedInAccounts возвращает множество account id с живыми сессиями
func (h *Hub) LoggedInAccounts(user string) map[string]bool {
	st := h.forUser(user)

	st.mu.RLock()
	defer st.mu.RUnlock()

	out := make(map[string]bool, len(st.sessions))
	for _, sess := range st.sessions {
		out[sess.AccountID] = true
	}

	return out
}
