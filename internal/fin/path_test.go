package fin

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePath(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    Path
		wantErr bool
	}{
		{"balance field", "balance.total_assets", BalanceTotalAssets, false},
		{"income field", "income.net_income", IncomeNetIncome, false},
		{"cashflow field", "cashflow.free_cf", CashFlowFree, false},
		{"surrounding whitespace", "  income.cogs ", IncomeCOGS, false},
		{"unknown attribute", "balance.goodwill", Path{}, true},
		{"unknown section", "equity.total", Path{}, true},
		{"no dot", "revenue", Path{}, true},
		{"empty attribute", "income.", Path{}, true},
		{"meta directive", MetaScaleConfirmed, Path{}, true},
		{"case sensitive", "Balance.cash", Path{}, true},
		{"empty", "", Path{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParsePath(tt.input)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrInvalidFieldPath)
				assert.True(t, got.IsZero())
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPathsRoundTrip(t *testing.T) {
	paths := Paths()
	assert.Len(t, paths, 22)

	seen := make(map[string]bool)
	for _, p := range paths {
		s := p.String()
		assert.False(t, seen[s], "duplicate path %s", s)
		seen[s] = true

		parsed, err := ParsePath(s)
		require.NoError(t, err)
		assert.Equal(t, p, parsed)
	}
}

func TestPathTextMarshaling(t *testing.T) {
	type wrapper struct {
		Path Path `json:"path"`
	}

	data, err := json.Marshal(wrapper{Path: IncomeEBITDA})
	require.NoError(t, err)
	assert.JSONEq(t, `{"path":"income.ebitda"}`, string(data))

	var w wrapper
	require.NoError(t, json.Unmarshal([]byte(`{"path":"balance.cash"}`), &w))
	assert.Equal(t, BalanceCash, w.Path)

	err = json.Unmarshal([]byte(`{"path":"balance.nope"}`), &w)
	assert.ErrorIs(t, err, ErrInvalidFieldPath)
}
