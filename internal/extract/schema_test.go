package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeResult(t *testing.T) {
	raw := []byte(`{
		"period": "2024Q4",
		"currency": "MXN",
		"scale_hint": "MILES",
		"fields": [
			{"path": "balance.total_assets", "value": 100, "unit": "MXN", "confidence": 0.92},
			{"path": "income.net_income", "value": null, "confidence": 0.1}
		]
	}`)

	res, err := DecodeResult(raw)
	require.NoError(t, err)
	assert.Equal(t, "2024Q4", res.Period)
	assert.Equal(t, "MILES", res.ScaleHint)
	require.Len(t, res.Fields, 2)
	assert.Equal(t, 100.0, *res.Fields[0].Value)
	assert.Nil(t, res.Fields[1].Value)
}

func TestDecodeResultNullScalars(t *testing.T) {
	res, err := DecodeResult([]byte(`{"period": null, "currency": null, "scale_hint": null, "fields": []}`))
	require.NoError(t, err)
	assert.Empty(t, res.Period)
	assert.Empty(t, res.Fields)
}

func TestDecodeResultFenced(t *testing.T) {
	res, err := DecodeResult([]byte("```json\n{\"fields\": [{\"path\": \"income.revenue\", \"value\": 5, \"confidence\": 0.7}]}\n```"))
	require.NoError(t, err)
	require.Len(t, res.Fields, 1)
}

func TestDecodeResultRejectsSchemaViolations(t *testing.T) {
	tests := map[string]string{
		"missing fields":      `{"period": "2024"}`,
		"confidence too high": `{"fields": [{"path": "income.revenue", "confidence": 1.5}]}`,
		"missing confidence":  `{"fields": [{"path": "income.revenue", "value": 1}]}`,
		"string value":        `{"fields": [{"path": "income.revenue", "value": "12", "confidence": 0.5}]}`,
		"unknown scale":       `{"scale_hint": "BILLONES", "fields": []}`,
		"not json":            `the model said hello`,
		"empty":               ``,
	}
	for name, raw := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := DecodeResult([]byte(raw))
			assert.ErrorIs(t, err, ErrMalformedResult)
		})
	}
}
