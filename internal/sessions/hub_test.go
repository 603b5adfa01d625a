package sessions

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mt_trader/internal/broker"
	"mt_trader/internal/models"
	"mt_trader/internal/store"
)

type fakeBroker struct {
	loginStatus string
	loginErr    error
	placed      []broker.OrderRequest
}

func (f *fakeBroker) Login(context.Context, broker.LoginRequest) (broker.LoginResponse, error) {
	if f.loginErr != nil {
		return broker.LoginResponse{}, f.loginErr
	}
	status := f.loginStatus
	if status == "" {
		status = broker.StatusSuccess
	}
	return broker.LoginResponse{Status: status, Message: "login"}, nil
}

func (f *fakeBroker) PlaceOrder(_ context.Context, req broker.OrderRequest) (broker.OrderResponse, error) {
	f.placed = append(f.placed, req)
	return broker.OrderResponse{Status: broker.StatusSuccess}, nil
}

func (f *fakeBroker) CancelOrder(context.Context, string, string) (broker.CancelResponse, error) {
	return broker.CancelResponse{}, nil
}

func (f *fakeBroker) OrderBook(context.Context, broker.OrderBookRequest) (broker.OrderBookResponse, error) {
	return broker.OrderBookResponse{Status: broker.StatusSuccess}, nil
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

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestHub(status string) (*Hub, *store.Memory) {
	mem := store.NewMemory()
	factory := func(string) broker.Capability {
		return &fakeBroker{loginStatus: status}
	}
	return NewHub(mem, factory, testLogger()), mem
}

func TestLoginSuccessInstallsSession(t *testing.T) {
	hub, mem := newTestHub(broker.StatusSuccess)
	ctx := context.Background()

	hub.Login(ctx, "alice", models.Document{
		"userid":  "ACC1",
		"name":    "main",
		"capital": 50000.0,
	})

	sess, ok := hub.Lookup("alice", "main")
	require.True(t, ok)
	assert.Equal(t, "ACC1", sess.AccountID)

	byID, ok := hub.LookupByAccountID("alice", "ACC1")
	require.True(t, ok)
	assert.Same(t, sess, byID)

	doc, err := mem.Read(ctx, store.ClientPath("alice", "ACC1"))
	require.NoError(t, err)
	assert.Equal(t, true, doc["session_active"])

	assert.Equal(t, 50000.0, hub.Capital(ctx, "alice", "ACC1"))
}

func TestLoginFailureKeepsNoSession(t *testing.T) {
	hub, mem := newTestHub("ERROR")
	ctx := context.Background()

	// Существующее поле документа не должно потеряться при merge-записи
	require.NoError(t, mem.Write(ctx, store.ClientPath("bob", "ACC9"), models.Document{
		"userid": "ACC9",
		"note":   "keep me",
	}))

	hub.Login(ctx, "bob", models.Document{"userid": "ACC9", "name": "acc"})

	_, ok := hub.Lookup("bob", "acc")
	assert.False(t, ok)

	doc, err := mem.Read(ctx, store.ClientPath("bob", "ACC9"))
	require.NoError(t, err)
	assert.Equal(t, false, doc["session_active"])
	assert.Equal(t, "keep me", doc["note"])
}

func TestLoginWithoutAccountIDIsSkipped(t *testing.T) {
	hub, _ := newTestHub(broker.StatusSuccess)

	hub.Login(context.Background(), "alice", models.Document{"name": "broken"})

	assert.Empty(t, hub.Sessions("alice"))
}

func TestDropRemovesEverySessionForAccount(t *testing.T) {
	hub, _ := newTestHub(broker.StatusSuccess)
	ctx := context.Background()

	// Один account id под двумя display name
	hub.Login(ctx, "alice", models.Document{"userid": "ACC1", "name": "first"})
	hub.Login(ctx, "alice", models.Document{"userid": "ACC1", "name": "second"})
	hub.Login(ctx, "alice", models.Document{"userid": "ACC2", "name": "other"})

	assert.Equal(t, 2, hub.Drop("alice", "ACC1"))

	_, ok := hub.LookupByAccountID("alice", "ACC1")
	assert.False(t, ok)
	_, ok = hub.Lookup("alice", "other")
	assert.True(t, ok)
}

func TestSessionsAreScopedPerUser(t *testing.T) {
	hub, _ := newTestHub(broker.StatusSuccess)
	ctx := context.Background()

	hub.Login(ctx, "alice", models.Document{"userid": "ACC1", "name": "main"})

	_, ok := hub.Lookup("bob", "main")
	assert.False(t, ok)

	hub.SetCapital("alice", "ACC1", 999)
	assert.Equal(t, 0.0, hub.Capital(ctx, "bob", "ACC1"))
}

func TestLoginBadTOTPKeyAborts(t *testing.T) {
	mem := store.NewMemory()
	ctx := context.Background()

	factoryCalls := 0
	factory := func(string) broker.Capability {
		factoryCalls++
		return &fakeBroker{}
	}
	hub := NewHub(mem, factory, testLogger())

	hub.Login(ctx, "alice", models.Document{
		"userid":  "ACC1",
		"name":    "main",
		"totpkey": "####не base32####",
	})

	// До брокера дело дойти не должно, сессия не ставится
	_, ok := hub.Lookup("alice", "main")
	assert.False(t, ok)
	assert.Zero(t, factoryCalls)

	doc, err := mem.Read(ctx, store.ClientPath("alice", "ACC1"))
	require.NoError(t, err)
	assert.Equal(t, false, doc["session_active"])
}
