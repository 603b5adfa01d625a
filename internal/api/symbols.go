package api

import (
	"net/http"
)

type symbolMatch struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

// HandleSearchSymbols ищет инструменты для селектора на фронтенде.
// id - тройка exchange|symbol|token, которую принимает place-order.
func (h *Handler) HandleSearchSymbols(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	exchange := r.URL.Query().Get("exchange")

	matches, err := h.symbols.Search(r.Context(), query, exchange)
	if err != nil {
		h.respondError(w, http.StatusInternalServerError, "Symbol search failed")
		return
	}

	results := make([]symbolMatch, 0, len(matches))
	for _, m := range matches {
		results = append(results, symbolMatch{
			ID:   m.ID(),
			Text: m.Exchange + " | " + m.Symbol,
		})
	}

	h.respondJSON(w, http.StatusOK, map[string]any{"results": results})
}
