package copytrade

import (
	"context"
	"io"
	"log/slog"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mt_trader/internal/models"
	"mt_trader/internal/store"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestSaveGeneratesTimestampedID(t *testing.T) {
	setups := NewSetups(store.NewMemory(), testLogger())

	setupID, err := setups.Save(context.Background(), "alice", models.CopySetup{
		Name:     "My Setup!",
		Master:   "M1",
		Children: []string{"C1", "C2"},
	})
	require.NoError(t, err)

	// Нормализованное имя + UTC таймстамп создания
	assert.Regexp(t, regexp.MustCompile(`^My_Setup_\d{14}$`), setupID)

	setup, found, err := setups.Get(context.Background(), "alice", setupID)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "M1", setup.Master)
	assert.Equal(t, []string{"C1", "C2"}, setup.Children)
	assert.False(t, setup.Enabled)
}

func TestSaveRequiresNameAndMaster(t *testing.T) {
	setups := NewSetups(store.NewMemory(), testLogger())
	ctx := context.Background()

	_, err := setups.Save(ctx, "alice", models.CopySetup{Master: "M1"})
	assert.Error(t, err)

	_, err = setups.Save(ctx, "alice", models.CopySetup{Name: "x"})
	assert.Error(t, err)
}

func TestToggleRemovesFromActiveScan(t *testing.T) {
	setups := NewSetups(store.NewMemory(), testLogger())
	ctx := context.Background()

	setupID, err := setups.Save(ctx, "alice", models.CopySetup{
		Name:        "mirror",
		Master:      "M1",
		Children:    []string{"C1"},
		Multipliers: map[string]float64{"C1": 2.5},
	})
	require.NoError(t, err)

	active, err := setups.Active(ctx, "alice")
	require.NoError(t, err)
	assert.Empty(t, active)

	_, err = setups.SetEnabled(ctx, "alice", setupID, true)
	require.NoError(t, err)

	active, err = setups.Active(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, active, 1)

	// Выключение идемпотентно и не трогает children/multipliers
	_, err = setups.SetEnabled(ctx, "alice", setupID, false)
	require.NoError(t, err)
	_, err = setups.SetEnabled(ctx, "alice", setupID, false)
	require.NoError(t, err)

	active, err = setups.Active(ctx, "alice")
	require.NoError(t, err)
	assert.Empty(t, active)

	setup, found, err := setups.Get(ctx, "alice", setupID)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, []string{"C1"}, setup.Children)
	assert.Equal(t, 2.5, setup.ChildMultiplier("C1"))
}

func TestSetEnabledUnknownSetup(t *testing.T) {
	setups := NewSetups(store.NewMemory(), testLogger())

	_, err := setups.SetEnabled(context.Background(), "alice", "nope", true)
	assert.Error(t, err)
}

func TestDeleteSetup(t *testing.T) {
	setups := NewSetups(store.NewMemory(), testLogger())
	ctx := context.Background()

	setupID, err := setups.Save(ctx, "alice", models.CopySetup{Name: "gone", Master: "M1"})
	require.NoError(t, err)

	require.NoError(t, setups.Delete(ctx, "alice", setupID))

	_, found, err := setups.Get(ctx, "alice", setupID)
	require.NoError(t, err)
	assert.False(t, found)
}
