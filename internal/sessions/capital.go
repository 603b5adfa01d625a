package sessions

import (
	"context"
	"log/slog"
	"math"

	"mt_trader/internal/store"
)

// autoSizeFraction - доля капитала, отводимая под одну auto-заявку
const autoSizeFraction = 0.15

// Capital возвращает капитал аккаунта: сначала из кэша, при промахе -
// из документа в Account Store (с fallback на base_amount, при любой
// ошибке - 0). Кэш не инвалидируется до следующего логина.
func (h *Hub) Capital(ctx context.Context, user, accountID string) float64 {
	st := h.forUser(user)

	st.mu.RLock()
	cap, ok := st.capital[accountID]
	st.mu.RUnlock()

	if ok {
		return cap
	}

	doc, err := h.store.Read(ctx, store.ClientPath(user, accountID))
	if err != nil {
		h.logger.Warn("Capital lookup failed, defaulting to 0",
			slog.String("user", user),
			slog.String("account", accountID),
			slog.Any("error", err))
		doc = nil
	}

	cap = doc.Float("capital", "base_amount")

	st.mu.Lock()
	st.capital[accountID] = cap
	st.mu.Unlock()

	return cap
}

// SetCapital кладёт капитал в кэш (вызывается логином)
func (h *Hub) SetCapital(user, accountID string, capital float64) {
	st := h.forUser(user)

	st.mu.Lock()
	defer st.mu.Unlock()

	st.capital[accountID] = capital
}

// DropCapital убирает запись кэша при удалении аккаунта
func (h *Hub) DropCapital(user, accountID string) {
	st := h.forUser(user)

	st.mu.Lock()
	defer st.mu.Unlock()

	delete(st.capital, accountID)
}

// AutoQuantity вычисляет количество от капитала:
// floor(capital * 0.15 / price), но не меньше 1.
// Некорректная цена тоже деградирует в 1, а не в ошибку.
func (h *Hub) AutoQuantity(ctx context.Context, user, accountID string, price float64) int {
	if price <= 0 || math.IsNaN(price) || math.IsInf(price, 0) {
		return 1
	}

	capital := h.Capital(ctx, user, accountID)

	qty := int(math.Floor(capital * autoSizeFraction / price))
	if qty < 1 {
		return 1
	}

	return qty
}
