package api

import (
	"log/slog"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"mt_trader/internal/api/middleware"
	"mt_trader/internal/engine"
)

// EventFeed раздаёт события движка (завершённые fanout) подписчикам
// по websocket. Реализует engine.Events.
type EventFeed struct {
	upgrader websocket.Upgrader
	logger   *slog.Logger

	mu    sync.Mutex
	conns map[string]map[*websocket.Conn]struct{} // по пользователю
}

func NewEventFeed(logger *slog.Logger) *EventFeed {
	return &EventFeed{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// CORS обрабатывается на уровне роутера
			CheckOrigin: func(*http.Request) bool { return true },
		},
		logger: logger,
		conns:  make(map[string]map[*websocket.Conn]struct{}),
	}
}

// Publish рассылает событие всем подписчикам пользователя.
// Мёртвые соединения выбрасываются по ошибке записи.
func (f *EventFeed) Publish(user string, event engine.Event) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for conn := range f.conns[user] {
		if err := conn.WriteJSON(event); err != nil {
			conn.Close()
			delete(f.conns[user], conn)
		}
	}
}

func (f *EventFeed) add(user string, conn *websocket.Conn) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.conns[user] == nil {
		f.conns[user] = make(map[*websocket.Conn]struct{})
	}
	f.conns[user][conn] = struct{}{}
}

func (f *EventFeed) remove(user string, conn *websocket.Conn) {
	f.mu.Lock()
	defer f.mu.Unlock()

	delete(f.conns[user], conn)
}

// Close рвёт все подписки (shutdown)
func (f *EventFeed) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()

	for user, conns := range f.conns {
		for conn := range conns {
			conn.Close()
		}
		delete(f.conns, user)
	}
}

// HandleEventsWS апгрейдит соединение и держит его до разрыва.
// Клиент ничего не шлёт - читаем только чтобы заметить закрытие.
func (h *Handler) HandleEventsWS(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUsername(r.Context())
	if !ok {
		h.respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	conn, err := h.events.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("❌ WebSocket upgrade failed", slog.Any("error", err))
		return
	}

	h.events.add(user, conn)
	h.logger.Info("✅ Event feed subscriber connected", slog.String("user", user))

	defer func() {
		h.events.remove(user, conn)
		conn.Close()
	}()

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}
