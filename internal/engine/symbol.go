package engine

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Instrument - разобранная тройка exchange|symbol|token
type Instrument struct {
	Exchange string
	Symbol   string
	Token    int
}

// ParseSymbol разбирает строку инструмента вида "NSE|RELIANCE|2885".
// Ровно три поля через pipe, токен - целое число (хвостовую
// десятичную форму вида "2885.0" принимаем, её присылает фронтенд).
// Это единственная валидация до fanout: она общая для всех целей.
func ParseSymbol(s string) (Instrument, error) {
	parts := strings.Split(s, "|")
	if len(parts) != 3 {
		return Instrument{}, fmt.Errorf("symbol must be 'EXCHANGE|SYMBOL|TOKEN', got %q", s)
	}

	token, err := parseToken(strings.TrimSpace(parts[2]))
	if err != nil {
		return Instrument{}, fmt.Errorf("symbol token %q: %w", parts[2], err)
	}

	return Instrument{
		Exchange: strings.TrimSpace(parts[0]),
		Symbol:   strings.TrimSpace(parts[1]),
		Token:    token,
	}, nil
}

func parseToken(s string) (int, error) {
	if n, err := strconv.Atoi(s); err == nil {
		return n, nil
	}

	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("not a number")
	}
	if math.Trunc(f) != f || math.IsInf(f, 0) {
		return 0, fmt.Errorf("not an integer")
	}

	return int(f), nil
}
