package fin

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseScale(t *testing.T) {
	tests := []struct {
		input string
		want  Scale
	}{
		{"UNIT", ScaleUnit},
		{"unidad", ScaleUnit},
		{" MILES ", ScaleThousands},
		{"thousands", ScaleThousands},
		{"MILLONES", ScaleMillions},
		{"Millions", ScaleMillions},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseScale(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := ParseScale("billions")
	assert.ErrorIs(t, err, ErrInvalidValue)
}

func TestNormalizeCurrency(t *testing.T) {
	got, err := NormalizeCurrency("usd")
	require.NoError(t, err)
	assert.Equal(t, "USD", got)

	got, err = NormalizeCurrency(" MXN ")
	require.NoError(t, err)
	assert.Equal(t, "MXN", got)

	_, err = NormalizeCurrency("PESOS")
	assert.ErrorIs(t, err, ErrInvalidValue)
}
