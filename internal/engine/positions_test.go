package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mt_trader/internal/broker"
	"mt_trader/internal/sessions"
)

func TestPositionsSkipsNetZeroInMetaCache(t *testing.T) {
	rig := newTestRig(t, nil, "A1")
	rig.brokers["A1"].positions = []broker.Position{
		{
			Symbol: "RELIANCE", Exchange: "NSE", SymbolToken: 2885, ProductName: "DELIVERY",
			BuyQuantity: 10, SellQuantity: 0, BuyAmount: 25000, LTP: 2600,
		},
		{
			// Закрытая позиция: net 0, в кэш не попадает
			Symbol: "TCS", Exchange: "NSE", SymbolToken: 11536, ProductName: "DELIVERY",
			BuyQuantity: 5, SellQuantity: 5, BuyAmount: 17500, SellAmount: 18000,
			BookedProfitLoss: 500,
		},
	}

	report := rig.engine.Positions(context.Background(), "alice")

	require.Len(t, report.Open, 1)
	require.Len(t, report.Closed, 1)
	assert.Equal(t, "RELIANCE", report.Open[0].Symbol)
	assert.Equal(t, 10, report.Open[0].Quantity)
	assert.Equal(t, 2500.0, report.Open[0].BuyAvg)
	// (2600 - 2500) * 10
	assert.Equal(t, 1000.0, report.Open[0].NetProfit)

	assert.Equal(t, "TCS", report.Closed[0].Symbol)
	assert.Equal(t, 500.0, report.Closed[0].NetProfit)

	meta, ok := rig.hub.Meta("alice", "nm-A1", "RELIANCE")
	require.True(t, ok)
	assert.Equal(t, sessions.PositionMeta{Exchange: "NSE", SymbolToken: 2885, ProductType: "DELIVERY"}, meta)

	_, ok = rig.hub.Meta("alice", "nm-A1", "TCS")
	assert.False(t, ok)
}

func TestPositionsFetchReplacesStaleMeta(t *testing.T) {
	rig := newTestRig(t, nil, "A1")
	ctx := context.Background()

	rig.brokers["A1"].positions = []broker.Position{
		{Symbol: "INFY", Exchange: "NSE", SymbolToken: 1594, ProductName: "NORMAL", BuyQuantity: 3, BuyAmount: 4500},
	}
	rig.engine.Positions(ctx, "alice")

	// Следующий фетч без INFY вымывает её запись
	rig.brokers["A1"].positions = nil
	rig.engine.Positions(ctx, "alice")

	_, ok := rig.hub.Meta("alice", "nm-A1", "INFY")
	assert.False(t, ok)
}

func TestClosePositionsRejectsMissingMetadata(t *testing.T) {
	rig := newTestRig(t, nil, "A1")

	messages := rig.engine.ClosePositions(context.Background(), "alice", []CloseItem{
		{Name: "nm-A1", Symbol: "UNKNOWN", Quantity: 10, TransactionType: "SELL"},
	})

	require.Len(t, messages, 1)
	assert.Contains(t, messages[0], "Missing data for nm-A1 - UNKNOWN")
	assert.Empty(t, rig.brokers["A1"].placedOrders())
}

func TestClosePositionsLotSizing(t *testing.T) {
	rig := newTestRig(t, fixedLots{"2885": 5}, "A1")

	rig.hub.ReplaceMeta("alice", map[sessions.MetaKey]sessions.PositionMeta{
		{Name: "nm-A1", Symbol: "RELIANCE"}: {Exchange: "NSE", SymbolToken: 2885, ProductType: "DELIVERY"},
	})

	messages := rig.engine.ClosePositions(context.Background(), "alice", []CloseItem{
		{Name: "nm-A1", Symbol: "RELIANCE", Quantity: 12, TransactionType: "sell"},
	})

	require.Len(t, messages, 1)
	assert.Contains(t, messages[0], "Closed: nm-A1 - RELIANCE")

	placed := rig.brokers["A1"].placedOrders()
	require.Len(t, placed, 1)
	// max(1, 12/5) = 2 лота, рыночная заявка по метаданным из кэша
	assert.Equal(t, 2, placed[0].QuantityInLot)
	assert.Equal(t, "MARKET", placed[0].OrderType)
	assert.Equal(t, "SELL", placed[0].BuyOrSell)
	assert.Equal(t, 2885, placed[0].SymbolToken)
	assert.Equal(t, "DELIVERY", placed[0].ProductType)
}

func TestClosePositionsQuantityBelowLotFloorsToOne(t *testing.T) {
	rig := newTestRig(t, fixedLots{"2885": 50}, "A1")

	rig.hub.ReplaceMeta("alice", map[sessions.MetaKey]sessions.PositionMeta{
		{Name: "nm-A1", Symbol: "RELIANCE"}: {Exchange: "NSE", SymbolToken: 2885, ProductType: "DELIVERY"},
	})

	rig.engine.ClosePositions(context.Background(), "alice", []CloseItem{
		{Name: "nm-A1", Symbol: "RELIANCE", Quantity: 12, TransactionType: "BUY"},
	})

	placed := rig.brokers["A1"].placedOrders()
	require.Len(t, placed, 1)
	assert.Equal(t, 1, placed[0].QuantityInLot)
}

func TestConvertPositions(t *testing.T) {
	rig := newTestRig(t, nil, "A1")

	rig.hub.ReplaceMeta("alice", map[sessions.MetaKey]sessions.PositionMeta{
		{Name: "nm-A1", Symbol: "TCS"}: {Exchange: "NSE", SymbolToken: 11536, ProductType: "NORMAL"},
	})

	messages := rig.engine.ConvertPositions(context.Background(), "alice", []ConvertItem{
		{Name: "nm-A1", Symbol: "TCS", Quantity: 7},
		{Name: "nm-A1", Symbol: "GHOST", Quantity: 1},
	})

	require.Len(t, messages, 2)

	converted := rig.brokers["A1"].converted
	require.Len(t, converted, 1)
	assert.Equal(t, 11536, converted[0].ScripCode)
	assert.Equal(t, 7, converted[0].Quantity)
	// Дефолты продуктов
	assert.Equal(t, "NORMAL", converted[0].OldProduct)
	assert.Equal(t, "DELIVERY", converted[0].NewProduct)
}

func TestConvertPositionsDefaultsExchangeToNSE(t *testing.T) {
	rig := newTestRig(t, nil, "A1")

	// Биржа не известна ни из метаданных, ни из запроса
	rig.hub.ReplaceMeta("alice", map[sessions.MetaKey]sessions.PositionMeta{
		{Name: "nm-A1", Symbol: "TCS"}: {SymbolToken: 11536, ProductType: "NORMAL"},
	})

	messages := rig.engine.ConvertPositions(context.Background(), "alice", []ConvertItem{
		{Name: "nm-A1", Symbol: "TCS", Quantity: 3},
	})
	require.Len(t, messages, 1)

	converted := rig.brokers["A1"].converted
	require.Len(t, converted, 1)
	assert.Equal(t, "NSE", converted[0].Exchange)
}

func TestOrdersBucketsByStatusSubstring(t *testing.T) {
	rig := newTestRig(t, nil, "A1")
	rig.brokers["A1"].orders = []broker.Order{
		{UniqueOrderID: "1", OrderStatus: "Confirm"},
		{UniqueOrderID: "2", OrderStatus: "Traded"},
		{UniqueOrderID: "3", OrderStatus: "Rejected by RMS"},
		{UniqueOrderID: "4", OrderStatus: "Cancelled"},
		{UniqueOrderID: "5", OrderStatus: "Something odd"},
	}

	report := rig.engine.Orders(context.Background(), "alice")

	assert.Len(t, report.Pending, 1)
	assert.Len(t, report.Traded, 1)
	assert.Len(t, report.Rejected, 1)
	assert.Len(t, report.Cancelled, 1)
	assert.Len(t, report.Others, 1)
}

func TestHoldingsScalesLTPAndCachesSummary(t *testing.T) {
	rig := newTestRig(t, nil, "A1")
	rig.hub.SetCapital("alice", "A1", 100000)

	rig.brokers["A1"].holdings = []broker.Holding{
		{ScripName: "RELIANCE", DPQuantity: 10, BuyAvgPrice: 2500, NSESymbolToken: 2885},
	}
	rig.brokers["A1"].ltp = 260000 // брокер котирует в сотых: 2600.00
	rig.brokers["A1"].margin = []broker.MarginRow{
		{Particulars: "Total Available Margin for Cash", Amount: 40000},
	}

	report := rig.engine.Holdings(context.Background(), "alice")

	require.Len(t, report.Holdings, 1)
	assert.Equal(t, 2600.0, report.Holdings[0].LTP)
	assert.Equal(t, 1000.0, report.Holdings[0].PnL)

	require.Len(t, report.Summary, 1)
	summary := report.Summary[0]
	assert.Equal(t, 25000.0, summary.Invested)
	assert.Equal(t, 26000.0, summary.CurrentValue)
	assert.Equal(t, 40000.0, summary.AvailableMargin)
	// (26000 + 40000) - 100000
	assert.Equal(t, -34000.0, summary.NetGain)

	// Summary отдаёт кэш без новых брокерских вызовов
	cached := rig.engine.Summary("alice")
	require.Len(t, cached, 1)
	assert.Equal(t, summary, cached[0])

	assert.Empty(t, rig.engine.Summary("bob"))
}
