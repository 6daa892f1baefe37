package fin

import (
	"fmt"
	"strings"

	"golang.org/x/text/currency"
)

// Scale is the unit multiplier applied to every monetary figure in a Record.
type Scale string

const (
	ScaleUnit      Scale = "UNIT"
	ScaleThousands Scale = "THOUSANDS"
	ScaleMillions  Scale = "MILLIONS"
)

// scaleAliases maps accepted hints to canonical scales. The extraction model
// reports Spanish hints for Mexican filings.
var scaleAliases = map[string]Scale{
	"UNIT":      ScaleUnit,
	"UNITS":     ScaleUnit,
	"UNIDAD":    ScaleUnit,
	"UNIDADES":  ScaleUnit,
	"THOUSANDS": ScaleThousands,
	"MILES":     ScaleThousands,
	"MILLIONS":  ScaleMillions,
	"MILLONES":  ScaleMillions,
}

// ParseScale resolves a scale hint, case-insensitively.
func ParseScale(s string) (Scale, error) {
	if sc, ok := scaleAliases[strings.ToUpper(strings.TrimSpace(s))]; ok {
		return sc, nil
	}
	return "", fmt.Errorf("%w: unknown scale %q", ErrInvalidValue, s)
}

// NormalizeCurrency returns the canonical ISO 4217 code for s.
func NormalizeCurrency(s string) (string, error) {
	unit, err := currency.ParseISO(strings.ToUpper(strings.TrimSpace(s)))
	if err != nil {
		return "", fmt.Errorf("%w: currency %q: %v", ErrInvalidValue, s, err)
	}
	return unit.String(), nil
}
