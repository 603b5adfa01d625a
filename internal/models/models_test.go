package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDocumentStrFallback(t *testing.T) {
	doc := Document{"client_id": "ACC1", "name": ""}

	assert.Equal(t, "ACC1", doc.Str("userid", "client_id"))
	assert.Equal(t, "", doc.Str("name", "missing"))

	// Числовые значения приводятся к строке
	doc["userid"] = 42.0
	assert.Equal(t, "42", doc.Str("userid"))
}

func TestDocumentFloatFallback(t *testing.T) {
	doc := Document{"base_amount": 7500.0}

	assert.Equal(t, 7500.0, doc.Float("capital", "base_amount"))

	// Строковое число тоже читается
	doc["capital"] = "10000.5"
	assert.Equal(t, 10000.5, doc.Float("capital", "base_amount"))

	assert.Equal(t, 0.0, Document{}.Float("capital"))
	assert.Equal(t, 0.0, Document{"capital": "junk"}.Float("capital"))
}

func TestDocumentMergeOverwrites(t *testing.T) {
	stored := Document{"userid": "ACC1", "note": "keep"}
	stored.Merge(Document{"userid": "ACC1", "capital": 5000.0})

	assert.Equal(t, "keep", stored.Str("note"))
	assert.Equal(t, 5000.0, stored.Float("capital"))
}

func TestDocumentDecode(t *testing.T) {
	doc := Document{
		"setup_id": "s_20250101000000",
		"master":   "M1",
		"children": []any{"C1", "C2"},
		"enabled":  true,
	}

	var setup CopySetup
	require.NoError(t, doc.Decode(&setup))

	assert.Equal(t, "M1", setup.Master)
	assert.Equal(t, []string{"C1", "C2"}, setup.Children)
	assert.True(t, setup.Enabled)
}

func TestChildMultiplierDefaults(t *testing.T) {
	setup := CopySetup{Multipliers: map[string]float64{"C1": 2.5, "C2": -1}}

	assert.Equal(t, 2.5, setup.ChildMultiplier("C1"))
	// Неположительный и отсутствующий множители деградируют в 1
	assert.Equal(t, 1.0, setup.ChildMultiplier("C2"))
	assert.Equal(t, 1.0, setup.ChildMultiplier("C3"))

	var empty CopySetup
	assert.Equal(t, 1.0, empty.ChildMultiplier("C1"))
}
