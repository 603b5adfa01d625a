package copytrade

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"sync"
	"time"

	"mt_trader/internal/broker"
	"mt_trader/internal/models"
	"mt_trader/internal/sessions"
)

// Resolver зеркалирует заявки мастера на дочерние аккаунты. Пуш от
// брокера не предполагается: на каждый включённый сетап крутится
// горутина, опрашивающая книгу заявок мастера с заданным интервалом.
// Включение/выключение сетапа стартует/останавливает её вотчер.
type Resolver struct {
	setups   *Setups
	hub      *sessions.Hub
	interval time.Duration
	logger   *slog.Logger

	mu       sync.Mutex
	watchers map[string]*watcher // user + "/" + setup_id
}

func NewResolver(setups *Setups, hub *sessions.Hub, interval time.Duration, logger *slog.Logger) *Resolver {
	if interval <= 0 {
		interval = 5 * time.Second
	}

	return &Resolver{
		setups:   setups,
		hub:      hub,
		interval: interval,
		logger:   logger,
		watchers: make(map[string]*watcher),
	}
}

// watcher - один включённый сетап и его состояние зеркалирования
type watcher struct {
	cancel context.CancelFunc
	done   chan struct{}

	mu sync.Mutex
	// master order id -> child account id -> child order id,
	// для проброса отмены мастера на уже размещённых детей
	orderMapping map[string]map[string]string
	// идемпотентность: уже обработанные заявки мастера
	processedPlaced   map[string]struct{}
	processedCanceled map[string]struct{}
}

// Enable включает сетап и запускает его вотчер. Повторное включение
// уже работающего сетапа - no-op.
func (r *Resolver) Enable(ctx context.Context, user, setupID string) error {
	setup, err := r.setups.SetEnabled(ctx, user, setupID, true)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	key := user + "/" + setupID
	if _, running := r.watchers[key]; running {
		return nil
	}

	wctx, cancel := context.WithCancel(context.Background())
	w := &watcher{
		cancel:            cancel,
		done:              make(chan struct{}),
		orderMapping:      make(map[string]map[string]string),
		processedPlaced:   make(map[string]struct{}),
		processedCanceled: make(map[string]struct{}),
	}
	r.watchers[key] = w

	go r.run(wctx, w, user, setup.SetupID)

	r.logger.Info("🚀 Copy setup watcher started",
		slog.String("user", user),
		slog.String("setup", setupID),
		slog.String("master", setup.Master))

	return nil
}

// Disable выключает сетап и останавливает его вотчер (идемпотентно)
func (r *Resolver) Disable(ctx context.Context, user, setupID string) error {
	if _, err := r.setups.SetEnabled(ctx, user, setupID, false); err != nil {
		return err
	}

	r.stopWatcher(user + "/" + setupID)

	r.logger.Info("🛑 Copy setup watcher stopped",
		slog.String("user", user),
		slog.String("setup", setupID))

	return nil
}

// Stop останавливает все вотчеры (graceful shutdown)
func (r *Resolver) Stop() {
	r.mu.Lock()
	keys := make([]string, 0, len(r.watchers))
	for key := range r.watchers {
		keys = append(keys, key)
	}
	r.mu.Unlock()

	for _, key := range keys {
		r.stopWatcher(key)
	}
}

func (r *Resolver) stopWatcher(key string) {
	r.mu.Lock()
	w, ok := r.watchers[key]
	if ok {
		delete(r.watchers, key)
	}
	r.mu.Unlock()

	if ok {
		w.cancel()
		<-w.done
	}
}

func (r *Resolver) run(ctx context.Context, w *watcher, user, setupID string) {
	defer close(w.done)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			// Конфиг перечитывается каждый тик: множители и дети
			// могли поменяться, а выключенный сетап гасит вотчер
			setup, ok, err := r.setups.Get(ctx, user, setupID)
			if err != nil || !ok || !setup.Enabled {
				if err != nil {
					r.logger.Error("Failed to reload copy setup",
						slog.String("user", user),
						slog.String("setup", setupID),
						slog.Any("error", err))
					continue
				}
				go r.stopWatcher(user + "/" + setupID)
				return
			}

			r.poll(ctx, w, user, setup)
		}
	}
}

// poll - один проход: читаем книгу мастера и транслируем новые
// размещения/отмены на детей
func (r *Resolver) poll(ctx context.Context, w *watcher, user string, setup models.CopySetup) {
	master, ok := r.hub.LookupByAccountID(user, setup.Master)
	if !ok {
		// Мастер не залогинен - ждём следующего тика
		return
	}

	stamp := time.Now().Format("02-Jan-2006") + " 09:00:00"
	book, err := master.Broker.OrderBook(ctx, broker.OrderBookRequest{
		ClientCode:    master.AccountID,
		DateTimeStamp: stamp,
	})
	if err != nil {
		r.logger.Error("❌ Master order book poll failed",
			slog.String("user", user),
			slog.String("setup", setup.SetupID),
			slog.Any("error", err))
		return
	}

	for _, order := range book.Data {
		status := strings.ToLower(order.OrderStatus)
		switch {
		case strings.Contains(status, "confirm") || strings.Contains(status, "traded"):
			r.mirrorPlaced(ctx, w, user, setup, order)
		case strings.Contains(status, "cancel"):
			r.mirrorCanceled(ctx, w, user, setup, order)
		}
	}
}

// mirrorPlaced размещает дочерние заявки для новой заявки мастера.
// Количество ребёнка = floor(количество мастера * его множитель).
func (r *Resolver) mirrorPlaced(ctx context.Context, w *watcher, user string, setup models.CopySetup, order broker.Order) {
	w.mu.Lock()
	if _, done := w.processedPlaced[order.UniqueOrderID]; done {
		w.mu.Unlock()
		return
	}
	w.processedPlaced[order.UniqueOrderID] = struct{}{}
	w.mu.Unlock()

	for _, child := range setup.Children {
		qty := int(math.Floor(float64(order.OrderQty) * setup.ChildMultiplier(child)))
		if qty < 1 {
			r.logger.Warn("Copy order skipped: quantity below one lot",
				slog.String("user", user),
				slog.String("setup", setup.SetupID),
				slog.String("child", child))
			continue
		}

		sess, ok := r.hub.LookupByAccountID(user, child)
		if !ok {
			r.logger.Warn("Copy order skipped: child session not found",
				slog.String("user", user),
				slog.String("setup", setup.SetupID),
				slog.String("child", child))
			continue
		}

		resp, err := sess.Broker.PlaceOrder(ctx, broker.OrderRequest{
			ClientCode:    child,
			Exchange:      order.Exchange,
			SymbolToken:   order.SymbolToken,
			BuyOrSell:     order.BuyOrSell,
			OrderType:     order.OrderType,
			ProductType:   order.ProductType,
			OrderDuration: order.OrderDuration,
			Price:         order.Price,
			TriggerPrice:  order.TriggerPrice,
			QuantityInLot: qty,
			AMOOrder:      "N",
			Tag:           setup.SetupID,
		})
		if err != nil || resp.Status != broker.StatusSuccess {
			r.logger.Error("❌ Copy order failed",
				slog.String("user", user),
				slog.String("setup", setup.SetupID),
				slog.String("child", child),
				slog.Any("error", errOrMessage(err, resp.Message)))
			continue
		}

		w.mu.Lock()
		if w.orderMapping[order.UniqueOrderID] == nil {
			w.orderMapping[order.UniqueOrderID] = make(map[string]string)
		}
		w.orderMapping[order.UniqueOrderID][child] = resp.UniqueOrderID
		w.mu.Unlock()

		r.logger.Info("📤 Copy order placed",
			slog.String("user", user),
			slog.String("setup", setup.SetupID),
			slog.String("master_order", order.UniqueOrderID),
			slog.String("child", child),
			slog.Int("qty", qty))
	}
}

// mirrorCanceled пробрасывает отмену мастера на дочерние заявки,
// записанные в order mapping
func (r *Resolver) mirrorCanceled(ctx context.Context, w *watcher, user string, setup models.CopySetup, order broker.Order) {
	w.mu.Lock()
	if _, done := w.processedCanceled[order.UniqueOrderID]; done {
		w.mu.Unlock()
		return
	}
	w.processedCanceled[order.UniqueOrderID] = struct{}{}
	children := make(map[string]string, len(w.orderMapping[order.UniqueOrderID]))
	for child, childOrder := range w.orderMapping[order.UniqueOrderID] {
		children[child] = childOrder
	}
	w.mu.Unlock()

	for child, childOrder := range children {
		sess, ok := r.hub.LookupByAccountID(user, child)
		if !ok {
			continue
		}

		if _, err := sess.Broker.CancelOrder(ctx, childOrder, child); err != nil {
			r.logger.Error("❌ Copy cancel failed",
				slog.String("user", user),
				slog.String("setup", setup.SetupID),
				slog.String("child", child),
				slog.Any("error", err))
			continue
		}

		r.logger.Info("📤 Copy cancel propagated",
			slog.String("user", user),
			slog.String("setup", setup.SetupID),
			slog.String("master_order", order.UniqueOrderID),
			slog.String("child", child))
	}
}

func errOrMessage(err error, message string) error {
	if err != nil {
		return err
	}

	return fmt.Errorf("%s", message)
}
