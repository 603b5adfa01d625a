package engine

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"mt_trader/internal/broker"
)

// CloseItem - закрытие одной позиции рыночной заявкой
type CloseItem struct {
	Name            string `json:"name"`
	Symbol          string `json:"symbol"`
	Quantity        int    `json:"quantity"`
	TransactionType string `json:"transaction_type"`
}

// ClosePositions закрывает позиции конкурентно. Метаданные позиции
// (биржа/токен/продукт) берутся только из кэша: отсутствие записи -
// отказ по этой цели, синхронного перефетча позиций нет.
func (e *Engine) ClosePositions(ctx context.Context, user string, items []CloseItem) []string {
	messages := make([]string, 0, len(items))

	var (
		wg sync.WaitGroup
		mu sync.Mutex
	)

	report := func(msg string) {
		mu.Lock()
		messages = append(messages, msg)
		mu.Unlock()
	}

	for _, item := range items {
		wg.Add(1)
		go func(it CloseItem) {
			defer wg.Done()

			meta, haveMeta := e.hub.Meta(user, it.Name, it.Symbol)
			sess, haveSess := e.hub.Lookup(user, it.Name)
			if !haveMeta || !haveSess {
				report(fmt.Sprintf("❌ Missing data for %s - %s", it.Name, it.Symbol))
				return
			}

			resp, err := sess.Broker.PlaceOrder(ctx, broker.OrderRequest{
				ClientCode:    sess.AccountID,
				Exchange:      meta.Exchange,
				SymbolToken:   meta.SymbolToken,
				BuyOrSell:     strings.ToUpper(it.TransactionType),
				OrderType:     "MARKET",
				ProductType:   meta.ProductType,
				OrderDuration: "DAY",
				QuantityInLot: e.closeLots(ctx, it.Quantity, meta.SymbolToken),
				AMOOrder:      "N",
			})
			if err != nil {
				report(fmt.Sprintf("❌ Error for %s - %s: %v", it.Name, it.Symbol, err))
				return
			}

			if resp.Status == broker.StatusSuccess {
				report(fmt.Sprintf("✅ Closed: %s - %s", it.Name, it.Symbol))
			} else {
				report(fmt.Sprintf("❌ Failed: %s - %s - %s", it.Name, it.Symbol, resp.Message))
			}
		}(item)
	}

	wg.Wait()

	return messages
}

// closeLots переводит количество в лоты: max(1, qty/minlot).
// Неизвестный инструмент или сбой справочника дают лот 1, то есть
// сырое количество.
func (e *Engine) closeLots(ctx context.Context, quantity, symbolToken int) int {
	minLot := 1
	if e.lots != nil {
		minLot = e.lots.MinLot(ctx, strconv.Itoa(symbolToken))
	}
	if minLot <= 0 {
		minLot = 1
	}

	lots := quantity / minLot
	if lots < 1 {
		return 1
	}

	return lots
}
