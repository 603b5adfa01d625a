package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSymbol(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  Instrument
		fails bool
	}{
		{
			name:  "plain triple",
			input: "NSE|RELIANCE|2885",
			want:  Instrument{Exchange: "NSE", Symbol: "RELIANCE", Token: 2885},
		},
		{
			name:  "token with trailing decimal",
			input: "BSE|TCS|11536.0",
			want:  Instrument{Exchange: "BSE", Symbol: "TCS", Token: 11536},
		},
		{
			name:  "whitespace around fields",
			input: " NSE | INFY | 1594 ",
			want:  Instrument{Exchange: "NSE", Symbol: "INFY", Token: 1594},
		},
		{name: "too few fields", input: "NSE|RELIANCE", fails: true},
		{name: "too many fields", input: "NSE|RELIANCE|2885|X", fails: true},
		{name: "non numeric token", input: "NSE|RELIANCE|abc", fails: true},
		{name: "fractional token", input: "NSE|RELIANCE|28.85", fails: true},
		{name: "empty string", input: "", fails: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseSymbol(tt.input)
			if tt.fails {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
