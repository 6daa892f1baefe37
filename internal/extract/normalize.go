package extract

import (
	"math"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/roach88/finflow/internal/fin"
)

// UnknownPeriod is used when neither the document nor the caller names one.
const UnknownPeriod = "UNKNOWN"

// Defaults are the record-level fallbacks applied by the Normalizer.
type Defaults struct {
	Currency string
	Scale    fin.Scale
	Period   string
}

// StandardDefaults returns MXN / UNIT / UNKNOWN.
func StandardDefaults() Defaults {
	return Defaults{Currency: "MXN", Scale: fin.ScaleUnit, Period: UnknownPeriod}
}

// Normalizer maps adapter output onto a fin.Record.
type Normalizer struct {
	defaults Defaults
}

// NewNormalizer creates a Normalizer. Empty defaults fall back to
// StandardDefaults member by member.
func NewNormalizer(d Defaults) *Normalizer {
	std := StandardDefaults()
	if d.Currency == "" {
		d.Currency = std.Currency
	}
	if d.Scale == "" {
		d.Scale = std.Scale
	}
	if d.Period == "" {
		d.Period = std.Period
	}
	return &Normalizer{defaults: d}
}

// Defaults returns the effective defaults.
func (n *Normalizer) Defaults() Defaults {
	return n.defaults
}

// Fields converts raw adapter fields to ExtractedFields: paths and units are
// trimmed, labels NFC-normalized, and confidence clamped to [0,1].
func (n *Normalizer) Fields(raw []RawField) []fin.ExtractedField {
	out := make([]fin.ExtractedField, 0, len(raw))
	for _, r := range raw {
		f := fin.ExtractedField{
			Path:       strings.TrimSpace(r.Path),
			Label:      norm.NFC.String(strings.TrimSpace(r.Label)),
			Unit:       strings.TrimSpace(r.Unit),
			Confidence: clamp(r.Confidence),
		}
		if r.Value != nil {
			v := *r.Value
			f.Value = &v
		}
		out = append(out, f)
	}
	return out
}

// Normalize builds a record from extracted fields.
//
// Every field lands in FieldsRaw under its path (later duplicates win).
// Fields with a value and a declared path are also assigned to the record;
// unknown paths stay in FieldsRaw only. Gross profit is derived as
// revenue - cogs when it was not reported.
func (n *Normalizer) Normalize(period, currency, scaleHint string, fields []fin.ExtractedField) *fin.Record {
	rec := fin.NewRecord(n.period(period), n.currency(currency), n.scale(scaleHint))

	for _, f := range fields {
		rec.FieldsRaw[f.Path] = f
		if f.Value == nil {
			continue
		}
		p, err := fin.ParsePath(f.Path)
		if err != nil {
			continue
		}
		_, _ = rec.Set(p, f.Value)
	}

	inc := &rec.Income
	if inc.GrossProfit == nil && inc.Revenue != nil && inc.COGS != nil {
		inc.GrossProfit = fin.Float(*inc.Revenue - *inc.COGS)
	}
	return rec
}

func (n *Normalizer) period(p string) string {
	if p = strings.TrimSpace(p); p != "" {
		return p
	}
	return n.defaults.Period
}

// currency canonicalizes ISO codes. Unrecognized codes are kept upper-cased
// so the reviewer can confirm them.
func (n *Normalizer) currency(c string) string {
	c = strings.TrimSpace(c)
	if c == "" {
		return n.defaults.Currency
	}
	if iso, err := fin.NormalizeCurrency(c); err == nil {
		return iso
	}
	return strings.ToUpper(c)
}

func (n *Normalizer) scale(hint string) fin.Scale {
	if sc, err := fin.ParseScale(hint); err == nil {
		return sc
	}
	return n.defaults.Scale
}

func clamp(c float64) float64 {
	switch {
	case math.IsNaN(c), c < 0:
		return 0
	case c > 1:
		return 1
	}
	return c
}
