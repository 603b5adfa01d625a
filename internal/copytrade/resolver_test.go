package copytrade

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mt_trader/internal/broker"
	"mt_trader/internal/models"
	"mt_trader/internal/sessions"
	"mt_trader/internal/store"
)

type fakeBroker struct {
	mu        sync.Mutex
	placed    []broker.OrderRequest
	cancelled []string
	orders    []broker.Order
}

func (f *fakeBroker) Login(context.Context, broker.LoginRequest) (broker.LoginResponse, error) {
	return broker.LoginResponse{Status: broker.StatusSuccess}, nil
}

func (f *fakeBroker) PlaceOrder(_ context.Context, req broker.OrderRequest) (broker.OrderResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.placed = append(f.placed, req)
	return broker.OrderResponse{Status: broker.StatusSuccess, UniqueOrderID: "CHILD-ORD"}, nil
}

func (f *fakeBroker) CancelOrder(_ context.Context, orderID, _ string) (broker.CancelResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cancelled = append(f.cancelled, orderID)
	return broker.CancelResponse{Status: broker.StatusSuccess}, nil
}

func (f *fakeBroker) OrderBook(context.Context, broker.OrderBookRequest) (broker.OrderBookResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return broker.OrderBookResponse{Status: broker.StatusSuccess, Data: f.orders}, nil
}

func (f *fakeBroker) Positions(context.Context) (broker.PositionsResponse, error) {
	return broker.PositionsResponse{Status: broker.StatusSuccess}, nil
}

func (f *fakeBroker) Holdings(context.Context, string) (broker.HoldingsResponse, error) {
	return broker.HoldingsResponse{Status: broker.StatusSuccess}, nil
}

func (f *fakeBroker) LTP(context.Context, broker.LTPRequest) (broker.LTPResponse, error) {
	return broker.LTPResponse{Status: broker.StatusSuccess}, nil
}

func (f *fakeBroker) ConvertPosition(context.Context, broker.ConvertRequest) (broker.ConvertResponse, error) {
	return broker.ConvertResponse{Status: broker.StatusSuccess}, nil
}

func (f *fakeBroker) MarginSummary(context.Context, string) (broker.MarginSummaryResponse, error) {
	return broker.MarginSummaryResponse{Status: broker.StatusSuccess}, nil
}

func newMirrorRig(t *testing.T, accountIDs ...string) (*Resolver, *sessions.Hub, map[string]*fakeBroker) {
	t.Helper()

	mem := store.NewMemory()
	brokers := make(map[string]*fakeBroker)
	factory := func(apiKey string) broker.Capability {
		fb := &fakeBroker{}
		brokers[apiKey] = fb
		return fb
	}

	hub := sessions.NewHub(mem, factory, testLogger())
	for _, id := range accountIDs {
		hub.Login(context.Background(), "alice", models.Document{
			"userid": id,
			"name":   "nm-" + id,
			"apikey": id,
		})
	}

	resolver := NewResolver(NewSetups(mem, testLogger()), hub, time.Second, testLogger())

	return resolver, hub, brokers
}

func newWatcher() *watcher {
	return &watcher{
		orderMapping:      make(map[string]map[string]string),
		processedPlaced:   make(map[string]struct{}),
		processedCanceled: make(map[string]struct{}),
	}
}

func TestMirrorPlacedScalesChildQuantity(t *testing.T) {
	resolver, _, brokers := newMirrorRig(t, "MASTER", "C1", "C2")

	setup := models.CopySetup{
		SetupID:     "s1",
		Master:      "MASTER",
		Children:    []string{"C1", "C2"},
		Multipliers: map[string]float64{"C1": 2.5},
		Enabled:     true,
	}
	w := newWatcher()

	masterOrder := broker.Order{
		UniqueOrderID: "M-1", Symbol: "RELIANCE", Exchange: "NSE", SymbolToken: 2885,
		BuyOrSell: "BUY", OrderType: "LIMIT", ProductType: "DELIVERY", OrderDuration: "DAY",
		OrderQty: 10, Price: 2500, OrderStatus: "Confirm",
	}

	resolver.mirrorPlaced(context.Background(), w, "alice", setup, masterOrder)

	// floor(10 * 2.5) = 25
	require.Len(t, brokers["C1"].placed, 1)
	assert.Equal(t, 25, brokers["C1"].placed[0].QuantityInLot)
	assert.Equal(t, "s1", brokers["C1"].placed[0].Tag)
	assert.Equal(t, 2885, brokers["C1"].placed[0].SymbolToken)

	// Множитель по умолчанию 1
	require.Len(t, brokers["C2"].placed, 1)
	assert.Equal(t, 10, brokers["C2"].placed[0].QuantityInLot)

	assert.Equal(t, "CHILD-ORD", w.orderMapping["M-1"]["C1"])
	assert.Equal(t, "CHILD-ORD", w.orderMapping["M-1"]["C2"])
}

func TestMirrorPlacedIsIdempotent(t *testing.T) {
	resolver, _, brokers := newMirrorRig(t, "MASTER", "C1")

	setup := models.CopySetup{SetupID: "s1", Master: "MASTER", Children: []string{"C1"}, Enabled: true}
	w := newWatcher()
	order := broker.Order{UniqueOrderID: "M-1", OrderQty: 5, OrderStatus: "Confirm"}

	resolver.mirrorPlaced(context.Background(), w, "alice", setup, order)
	resolver.mirrorPlaced(context.Background(), w, "alice", setup, order)

	assert.Len(t, brokers["C1"].placed, 1)
}

func TestMirrorPlacedSkipsSubUnitQuantity(t *testing.T) {
	resolver, _, brokers := newMirrorRig(t, "MASTER", "C1")

	setup := models.CopySetup{
		SetupID:     "s1",
		Master:      "MASTER",
		Children:    []string{"C1"},
		Multipliers: map[string]float64{"C1": 0.1},
		Enabled:     true,
	}
	w := newWatcher()

	// floor(5 * 0.1) = 0 - детская заявка не размещается
	resolver.mirrorPlaced(context.Background(), w, "alice", setup, broker.Order{
		UniqueOrderID: "M-1", OrderQty: 5, OrderStatus: "Confirm",
	})

	assert.Empty(t, brokers["C1"].placed)
}

func TestMirrorCanceledPropagatesThroughMapping(t *testing.T) {
	resolver, _, brokers := newMirrorRig(t, "MASTER", "C1")

	setup := models.CopySetup{SetupID: "s1", Master: "MASTER", Children: []string{"C1"}, Enabled: true}
	w := newWatcher()
	ctx := context.Background()

	resolver.mirrorPlaced(ctx, w, "alice", setup, broker.Order{
		UniqueOrderID: "M-1", OrderQty: 5, OrderStatus: "Confirm",
	})

	cancel := broker.Order{UniqueOrderID: "M-1", OrderStatus: "Cancelled"}
	resolver.mirrorCanceled(ctx, w, "alice", setup, cancel)
	resolver.mirrorCanceled(ctx, w, "alice", setup, cancel)

	// Одна отмена, несмотря на повторное наблюдение события
	assert.Equal(t, []string{"CHILD-ORD"}, brokers["C1"].cancelled)
}

func TestPollRoutesByStatus(t *testing.T) {
	resolver, _, brokers := newMirrorRig(t, "MASTER", "C1")
	ctx := context.Background()

	setup := models.CopySetup{SetupID: "s1", Master: "MASTER", Children: []string{"C1"}, Enabled: true}
	w := newWatcher()

	brokers["MASTER"].orders = []broker.Order{
		{UniqueOrderID: "M-1", OrderQty: 3, OrderStatus: "Confirm"},
		{UniqueOrderID: "M-2", OrderQty: 4, OrderStatus: "Rejected"},
	}

	resolver.poll(ctx, w, "alice", setup)

	require.Len(t, brokers["C1"].placed, 1)
	assert.Equal(t, 3, brokers["C1"].placed[0].QuantityInLot)

	// Отмена мастера на следующем опросе гасит дочернюю заявку
	brokers["MASTER"].orders = []broker.Order{
		{UniqueOrderID: "M-1", OrderQty: 3, OrderStatus: "Cancelled"},
	}
	resolver.poll(ctx, w, "alice", setup)

	assert.Equal(t, []string{"CHILD-ORD"}, brokers["C1"].cancelled)
}

func TestEnableDisableLifecycle(t *testing.T) {
	resolver, _, _ := newMirrorRig(t, "MASTER", "C1")
	ctx := context.Background()

	setupID, err := resolver.setups.Save(ctx, "alice", models.CopySetup{
		Name:     "live",
		Master:   "MASTER",
		Children: []string{"C1"},
	})
	require.NoError(t, err)

	require.NoError(t, resolver.Enable(ctx, "alice", setupID))
	// Повторное включение - no-op
	require.NoError(t, resolver.Enable(ctx, "alice", setupID))

	resolver.mu.Lock()
	assert.Len(t, resolver.watchers, 1)
	resolver.mu.Unlock()

	require.NoError(t, resolver.Disable(ctx, "alice", setupID))

	resolver.mu.Lock()
	assert.Empty(t, resolver.watchers)
	resolver.mu.Unlock()

	active, err := resolver.setups.Active(ctx, "alice")
	require.NoError(t, err)
	assert.Empty(t, active)
}
