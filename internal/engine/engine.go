// Package engine превращает одну торговую инструкцию в N независимых
// попыток по аккаунтам: разворачивает группы и списки клиентов в цели,
// диспатчит по горутине на цель, дожидается всех и собирает карту
// результатов. Падение одной цели никогда не трогает соседние.
package engine

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"github.com/google/uuid"

	"mt_trader/internal/broker"
	"mt_trader/internal/sessions"
	"mt_trader/internal/store"
)

// Статусы локальных (не брокерских) исходов
const (
	StatusError = "ERROR"

	msgSessionNotFound = "SESSION_NOT_FOUND"
	msgInvalidQuantity = "INVALID_QUANTITY"
)

// Outcome - локальный исход цели, когда до брокера дело не дошло
type Outcome struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// MinLotSource отдаёт минимальный лот инструмента по токену
type MinLotSource interface {
	MinLot(ctx context.Context, token string) int
}

// Event - событие движка для подписчиков (websocket-лента, нотификатор)
type Event struct {
	Type    string `json:"type"`
	BatchID string `json:"batch_id"`
	Payload any    `json:"payload"`
}

// Events получает события завершённых операций. Реализации не должны
// блокировать: движок публикует синхронно после join.
type Events interface {
	Publish(user string, event Event)
}

// Engine - fanout-движок поверх реестра сессий
type Engine struct {
	hub    *sessions.Hub
	store  store.DocStore
	lots   MinLotSource
	events Events
	logger *slog.Logger

	summaryMu sync.RWMutex
	summaries map[string][]AccountSummary // последний отчёт holdings по пользователю
}

func New(hub *sessions.Hub, docStore store.DocStore, lots MinLotSource, events Events, logger *slog.Logger) *Engine {
	return &Engine{
		hub:       hub,
		store:     docStore,
		lots:      lots,
		events:    events,
		logger:    logger,
		summaries: make(map[string][]AccountSummary),
	}
}

// PlaceResult - агрегат одного fanout: ключ цели (tag:account_id либо
// account_id) -> сырой ответ брокера или локальный Outcome
type PlaceResult struct {
	BatchID   string         `json:"batch_id"`
	Responses map[string]any `json:"order_responses"`
}

// PlaceOrders разворачивает запрос в цели и размещает заявку на каждой
// конкурентно. Возвращает ошибку только на валидации символа - всё
// остальное оседает в карте результатов под ключами целей.
func (e *Engine) PlaceOrders(ctx context.Context, user string, req PlaceRequest) (PlaceResult, error) {
	inst, err := ParseSymbol(req.Symbol)
	if err != nil {
		return PlaceResult{}, err
	}

	exchange := req.Exchange
	if exchange == "" {
		exchange = inst.Exchange
	}
	exchange = strings.ToUpper(exchange)

	amoOrder := req.AMOOrder
	if amoOrder == "" {
		amoOrder = "N"
	}

	targets, results := e.resolveTargets(ctx, user, req)

	batchID := uuid.NewString()

	e.logger.Info("🚀 Order fanout started",
		slog.String("user", user),
		slog.String("batch", batchID),
		slog.String("symbol", inst.Symbol),
		slog.Int("targets", len(targets)))

	var (
		wg sync.WaitGroup
		mu sync.Mutex
	)

	for _, target := range targets {
		wg.Add(1)
		go func(t Target) {
			defer wg.Done()

			outcome := e.placeOne(ctx, user, t, broker.OrderRequest{
				ClientCode:        t.AccountID,
				Exchange:          exchange,
				SymbolToken:       inst.Token,
				BuyOrSell:         req.Action,
				OrderType:         req.OrderType,
				ProductType:       req.ProductType,
				OrderDuration:     req.OrderDuration,
				Price:             req.Price,
				TriggerPrice:      req.TriggerPrice,
				QuantityInLot:     t.Quantity,
				DisclosedQuantity: req.DisclosedQuantity,
				AMOOrder:          amoOrder,
				Tag:               t.Tag,
			})

			mu.Lock()
			results[t.Key()] = outcome
			mu.Unlock()
		}(target)
	}

	wg.Wait()

	e.logger.Info("✅ Order fanout completed",
		slog.String("user", user),
		slog.String("batch", batchID),
		slog.Int("results", len(results)))

	e.publish(user, Event{Type: "order_fanout", BatchID: batchID, Payload: results})

	return PlaceResult{BatchID: batchID, Responses: results}, nil
}

// placeOne - одна цель: количество и сессия проверяются локально,
// любая ошибка брокерского вызова превращается в Outcome, не в panic
// и не в ошибку запроса
func (e *Engine) placeOne(ctx context.Context, user string, t Target, req broker.OrderRequest) any {
	if t.Quantity <= 0 {
		return Outcome{Status: StatusError, Message: msgInvalidQuantity}
	}

	sess, ok := e.hub.LookupByAccountID(user, t.AccountID)
	if !ok {
		return Outcome{Status: StatusError, Message: msgSessionNotFound}
	}

	resp, err := sess.Broker.PlaceOrder(ctx, req)
	if err != nil {
		e.logger.Error("❌ Place order failed",
			slog.String("user", user),
			slog.String("account", t.AccountID),
			slog.Any("error", err))

		return Outcome{Status: StatusError, Message: err.Error()}
	}

	return resp
}

func (e *Engine) publish(user string, event Event) {
	if e.events == nil {
		return
	}
	e.events.Publish(user, event)
}
