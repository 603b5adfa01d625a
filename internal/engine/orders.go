package engine

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"mt_trader/internal/broker"
)

// OrderRow - заявка из книги, нормализованная для фронтенда
type OrderRow struct {
	Name            string  `json:"name"`
	Symbol          string  `json:"symbol"`
	TransactionType string  `json:"transaction_type"`
	Quantity        int     `json:"quantity"`
	Price           float64 `json:"price"`
	Status          string  `json:"status"`
	OrderID         string  `json:"order_id"`
}

// OrdersReport - книга заявок всех сессий, разложенная по ведру статуса
type OrdersReport struct {
	Pending   []OrderRow `json:"pending"`
	Traded    []OrderRow `json:"traded"`
	Rejected  []OrderRow `json:"rejected"`
	Cancelled []OrderRow `json:"cancelled"`
	Others    []OrderRow `json:"others"`
}

// Orders собирает книги заявок всех сессий пользователя конкурентно
// и раскладывает строки по подстроке статуса: confirm - pending,
// traded, rejected/error, cancel, остальное - others
func (e *Engine) Orders(ctx context.Context, user string) OrdersReport {
	report := OrdersReport{
		Pending:   []OrderRow{},
		Traded:    []OrderRow{},
		Rejected:  []OrderRow{},
		Cancelled: []OrderRow{},
		Others:    []OrderRow{},
	}

	stamp := time.Now().Format("02-Jan-2006") + " 09:00:00"

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)

	for _, sess := range e.hub.Sessions(user) {
		g.Go(func() error {
			resp, err := sess.Broker.OrderBook(gctx, broker.OrderBookRequest{
				ClientCode:    sess.AccountID,
				DateTimeStamp: stamp,
			})
			if err != nil {
				e.logger.Error("❌ Order book fetch failed",
					slog.String("user", user),
					slog.String("name", sess.Name),
					slog.Any("error", err))
				return nil
			}

			mu.Lock()
			for _, order := range resp.Data {
				report.add(OrderRow{
					Name:            sess.Name,
					Symbol:          order.Symbol,
					TransactionType: order.BuyOrSell,
					Quantity:        order.OrderQty,
					Price:           order.Price,
					Status:          order.OrderStatus,
					OrderID:         order.UniqueOrderID,
				})
			}
			mu.Unlock()

			return nil
		})
	}

	g.Wait() //nolint:errcheck // воркеры всегда возвращают nil

	return report
}

func (r *OrdersReport) add(row OrderRow) {
	status := strings.ToLower(row.Status)
	switch {
	case strings.Contains(status, "confirm"):
		r.Pending = append(r.Pending, row)
	case strings.Contains(status, "traded"):
		r.Traded = append(r.Traded, row)
	case strings.Contains(status, "rejected") || strings.Contains(status, "error"):
		r.Rejected = append(r.Rejected, row)
	case strings.Contains(status, "cancel"):
		r.Cancelled = append(r.Cancelled, row)
	default:
		r.Others = append(r.Others, row)
	}
}
