package engine

import (
	"context"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"mt_trader/internal/broker"
	"mt_trader/internal/sessions"
)

// Маржинальная строка, из которой берётся доступная маржа
const marginCashParticulars = "Total Available Margin for Cash"

// HoldingRow - одна бумага в DP холдингах
type HoldingRow struct {
	Name     string  `json:"name"`
	Symbol   string  `json:"symbol"`
	Quantity float64 `json:"quantity"`
	BuyAvg   float64 `json:"buy_avg"`
	LTP      float64 `json:"ltp"`
	PnL      float64 `json:"pnl"`
}

// AccountSummary - сводка одного аккаунта: капитал, вложено,
// текущая стоимость, маржа, итоговый прирост
type AccountSummary struct {
	Name            string  `json:"name"`
	Capital         float64 `json:"capital"`
	Invested        float64 `json:"invested"`
	PnL             float64 `json:"pnl"`
	CurrentValue    float64 `json:"current_value"`
	AvailableMargin float64 `json:"available_margin"`
	NetGain         float64 `json:"net_gain"`
}

// HoldingsReport - холдинги всех сессий плюс сводки по аккаунтам
type HoldingsReport struct {
	Holdings []HoldingRow     `json:"holdings"`
	Summary  []AccountSummary `json:"summary"`
}

// Holdings обходит сессии конкурентно: DP холдинги, LTP по каждой
// бумаге (брокер отдаёт цену в пайсах, делим на 100), сводка с
// доступной маржой. Сводка кэшируется до следующего вызова - её
// отдаёт Summary без новых походов к брокеру.
func (e *Engine) Holdings(ctx context.Context, user string) HoldingsReport {
	report := HoldingsReport{
		Holdings: []HoldingRow{},
		Summary:  []AccountSummary{},
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)

	for _, sess := range e.hub.Sessions(user) {
		g.Go(func() error {
			rows, summary, ok := e.holdingsFor(gctx, user, sess)
			if !ok {
				return nil
			}

			mu.Lock()
			report.Holdings = append(report.Holdings, rows...)
			report.Summary = append(report.Summary, summary)
			mu.Unlock()

			return nil
		})
	}

	g.Wait() //nolint:errcheck // воркеры всегда возвращают nil

	e.summaryMu.Lock()
	e.summaries[user] = report.Summary
	e.summaryMu.Unlock()

	return report
}

func (e *Engine) holdingsFor(ctx context.Context, user string, sess *sessions.Session) ([]HoldingRow, AccountSummary, bool) {
	resp, err := sess.Broker.Holdings(ctx, sess.AccountID)
	if err != nil || resp.Status != broker.StatusSuccess {
		if err != nil {
			e.logger.Error("❌ Holdings fetch failed",
				slog.String("user", user),
				slog.String("name", sess.Name),
				slog.Any("error", err))
		}
		return nil, AccountSummary{}, false
	}

	var (
		rows     []HoldingRow
		invested float64
		totalPnL float64
	)

	for _, h := range resp.Data {
		if h.NSESymbolToken == 0 || h.DPQuantity <= 0 {
			continue
		}

		ltp := e.lastPrice(ctx, sess, h.NSESymbolToken)
		pnl := round2((ltp - h.BuyAvgPrice) * h.DPQuantity)

		invested += h.DPQuantity * h.BuyAvgPrice
		totalPnL += pnl

		rows = append(rows, HoldingRow{
			Name:     sess.Name,
			Symbol:   h.ScripName,
			Quantity: h.DPQuantity,
			BuyAvg:   round2(h.BuyAvgPrice),
			LTP:      round2(ltp),
			PnL:      pnl,
		})
	}

	capital := e.hub.Capital(ctx, user, sess.AccountID)
	currentValue := invested + totalPnL
	margin := e.availableMargin(ctx, sess)

	return rows, AccountSummary{
		Name:            sess.Name,
		Capital:         round2(capital),
		Invested:        round2(invested),
		PnL:             round2(totalPnL),
		CurrentValue:    round2(currentValue),
		AvailableMargin: round2(margin),
		NetGain:         round2(currentValue + margin - capital),
	}, true
}

// lastPrice - LTP бумаги; брокер котирует в сотых долях
func (e *Engine) lastPrice(ctx context.Context, sess *sessions.Session, scripCode int) float64 {
	resp, err := sess.Broker.LTP(ctx, broker.LTPRequest{
		ClientCode: sess.AccountID,
		Exchange:   "NSE",
		ScripCode:  scripCode,
	})
	if err != nil {
		return 0
	}

	return resp.Data.LTP / 100.0
}

func (e *Engine) availableMargin(ctx context.Context, sess *sessions.Session) float64 {
	resp, err := sess.Broker.MarginSummary(ctx, sess.AccountID)
	if err != nil || resp.Status != broker.StatusSuccess {
		return 0
	}

	for _, row := range resp.Data {
		if row.Particulars == marginCashParticulars {
			return row.Amount
		}
	}

	return 0
}

// Summary отдаёт закэшированную сводку последнего вызова Holdings
func (e *Engine) Summary(user string) []AccountSummary {
	e.summaryMu.RLock()
	defer e.summaryMu.RUnlock()

	summary := e.summaries[user]
	if summary == nil {
		return []AccountSummary{}
	}

	return summary
}
