package engine

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

// CancelItem - одна заявка на отмену: known order id + display name
type CancelItem struct {
	Name    string `json:"name"`
	OrderID string `json:"order_id"`
}

// CancelOrders отменяет заявки конкурентно и возвращает список
// человекочитаемых исходов. Порядок - порядок завершения, не подачи.
func (e *Engine) CancelOrders(ctx context.Context, user string, items []CancelItem) []string {
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
		go func(it CancelItem) {
			defer wg.Done()

			if it.Name == "" || it.OrderID == "" {
				report(fmt.Sprintf("❌ Missing order fields: %s / %s", it.Name, it.OrderID))
				return
			}

			sess, ok := e.hub.Lookup(user, it.Name)
			if !ok {
				report(fmt.Sprintf("❌ Session not found for: %s", it.Name))
				return
			}

			resp, err := sess.Broker.CancelOrder(ctx, it.OrderID, sess.AccountID)
			if err != nil {
				report(fmt.Sprintf("❌ Error cancelling %s for %s: %v", it.OrderID, it.Name, err))
				return
			}

			if strings.Contains(strings.ToLower(resp.Message), "cancel order request sent") {
				report(fmt.Sprintf("✅ Cancelled Order %s for %s", it.OrderID, it.Name))
			} else {
				report(fmt.Sprintf("❌ Failed to cancel Order %s for %s: %s", it.OrderID, it.Name, resp.Message))
			}
		}(item)
	}

	wg.Wait()

	return messages
}
