package engine

import (
	"context"
	"log/slog"
	"math"
	"sync"

	"golang.org/x/sync/errgroup"

	"mt_trader/internal/broker"
	"mt_trader/internal/sessions"
)

// PositionRow - строка отчёта по позициям для фронтенда
type PositionRow struct {
	Name      string  `json:"name"`
	Symbol    string  `json:"symbol"`
	Quantity  int     `json:"quantity"`
	BuyAvg    float64 `json:"buy_avg"`
	SellAvg   float64 `json:"sell_avg"`
	NetProfit float64 `json:"net_profit"`
}

// PositionsReport - открытые и закрытые позиции по всем сессиям
type PositionsReport struct {
	Open   []PositionRow `json:"open"`
	Closed []PositionRow `json:"closed"`
}

// Positions обходит все сессии пользователя конкурентно и собирает
// отчёт. Побочный эффект: кэш метаданных позиций пользователя
// полностью заменяется записями по открытым (net != 0) позициям -
// закрытые не кэшируются.
func (e *Engine) Positions(ctx context.Context, user string) PositionsReport {
	report := PositionsReport{
		Open:   []PositionRow{},
		Closed: []PositionRow{},
	}
	meta := make(map[sessions.MetaKey]sessions.PositionMeta)

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)

	for _, sess := range e.hub.Sessions(user) {
		g.Go(func() error {
			resp, err := sess.Broker.Positions(gctx)
			if err != nil || resp.Status != broker.StatusSuccess {
				if err != nil {
					e.logger.Error("❌ Positions fetch failed",
						slog.String("user", user),
						slog.String("name", sess.Name),
						slog.Any("error", err))
				}
				// Ошибка одной сессии не прерывает остальные
				return nil
			}

			for _, pos := range resp.Data {
				row, open := positionRow(sess.Name, pos)

				mu.Lock()
				if open {
					report.Open = append(report.Open, row)
					meta[sessions.MetaKey{Name: sess.Name, Symbol: pos.Symbol}] = sessions.PositionMeta{
						Exchange:    pos.Exchange,
						SymbolToken: pos.SymbolToken,
						ProductType: pos.ProductName,
					}
				} else {
					report.Closed = append(report.Closed, row)
				}
				mu.Unlock()
			}

			return nil
		})
	}

	g.Wait() //nolint:errcheck // воркеры всегда возвращают nil

	e.hub.ReplaceMeta(user, meta)

	return report
}

func positionRow(name string, pos broker.Position) (PositionRow, bool) {
	quantity := pos.NetQuantity()

	var buyAvg, sellAvg float64
	if pos.BuyQuantity > 0 {
		buyAvg = pos.BuyAmount / float64(pos.BuyQuantity)
	}
	if pos.SellQuantity > 0 {
		sellAvg = pos.SellAmount / float64(pos.SellQuantity)
	}

	var netProfit float64
	switch {
	case quantity > 0:
		netProfit = (pos.LTP - buyAvg) * float64(quantity)
	case quantity < 0:
		netProfit = (sellAvg - buyAvg) * math.Abs(float64(quantity))
	default:
		netProfit = pos.BookedProfitLoss
	}

	return PositionRow{
		Name:      name,
		Symbol:    pos.Symbol,
		Quantity:  quantity,
		BuyAvg:    round2(buyAvg),
		SellAvg:   round2(sellAvg),
		NetProfit: round2(netProfit),
	}, quantity != 0
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
