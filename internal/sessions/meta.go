package sessions

// ReplaceMeta полностью заменяет метаданные позиций пользователя.
// Вызывается при каждом чтении позиций: записи по закрытым символам
// живут до следующего чтения, это принятое окно устаревания.
func (h *Hub) ReplaceMeta(user string, entries map[MetaKey]PositionMeta) {
	st := h.forUser(user)

	st.mu.Lock()
	defer st.mu.Unlock()

	st.meta = make(map[MetaKey]PositionMeta, len(entries))
	for k, v := range entries {
		st.meta[k] = v
	}
}

// Meta возвращает метаданные позиции (user, display name, symbol)
func (h *Hub) Meta(user, name, symbol string) (PositionMeta, bool) {
	st := h.forUser(user)

	st.mu.RLock()
	defer st.mu.RUnlock()

	m, ok := st.meta[MetaKey{Name: name, Symbol: symbol}]

	return m, ok
}
