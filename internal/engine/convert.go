package engine

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"mt_trader/internal/broker"
)

// ConvertItem - перевод позиции между продуктами (NORMAL/DELIVERY)
type ConvertItem struct {
	Name       string `json:"name"`
	Symbol     string `json:"symbol"`
	Quantity   int    `json:"quantity"`
	Exchange   string `json:"exchange"`
	OldProduct string `json:"oldproduct"`
	NewProduct string `json:"newproduct"`
}

// ConvertPositions конвертирует позиции конкурентно, с теми же
// правилами по метаданным, что и у ClosePositions
func (e *Engine) ConvertPositions(ctx context.Context, user string, items []ConvertItem) []string {
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
		go func(it ConvertItem) {
			defer wg.Done()

			name := strings.TrimSpace(it.Name)
			symbol := strings.TrimSpace(it.Symbol)

			oldProduct := strings.ToUpper(it.OldProduct)
			if oldProduct == "" {
				oldProduct = "NORMAL"
			}
			newProduct := strings.ToUpper(it.NewProduct)
			if newProduct == "" {
				newProduct = "DELIVERY"
			}

			meta, haveMeta := e.hub.Meta(user, name, symbol)
			sess, haveSess := e.hub.Lookup(user, name)
			if !haveMeta || !haveSess {
				report(fmt.Sprintf("❌ Missing data for %s - %s (no session/meta)", name, symbol))
				return
			}

			exchange := strings.ToUpper(meta.Exchange)
			if exchange == "" {
				exchange = strings.ToUpper(it.Exchange)
			}
			if exchange == "" {
				exchange = "NSE"
			}

			resp, err := sess.Broker.ConvertPosition(ctx, broker.ConvertRequest{
				ClientCode: sess.AccountID,
				Exchange:   exchange,
				ScripCode:  meta.SymbolToken,
				Quantity:   it.Quantity,
				OldProduct: oldProduct,
				NewProduct: newProduct,
			})
			if err != nil {
				report(fmt.Sprintf("❌ Error %s - %s: %v", name, symbol, err))
				return
			}

			if resp.Status == broker.StatusSuccess {
				report(fmt.Sprintf("✅ Converted %s - %s - %s→%s - qty %d", name, symbol, oldProduct, newProduct, it.Quantity))
			} else {
				report(fmt.Sprintf("❌ Failed %s - %s: %s", name, symbol, resp.Message))
			}
		}(item)
	}

	wg.Wait()

	return messages
}
