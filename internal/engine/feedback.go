package engine

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/roach88/finflow/internal/fin"
)

// Correction is one reviewer edit. NewValue is a number, a numeric string
// or null for field paths, and a string for the meta directives.
type Correction struct {
	Path     string `json:"path" yaml:"path" validate:"required"`
	NewValue any    `json:"new_value" yaml:"new_value"`
}

type editKind int

const (
	editField editKind = iota
	editScale
	editCurrency
)

// edit is a Correction that has been checked and decoded.
type edit struct {
	kind     editKind
	path     fin.Path
	value    *float64
	scale    fin.Scale
	currency string
}

// planCorrections checks every correction before anything is mutated, so a
// bad entry anywhere in the list leaves the run untouched.
func planCorrections(corrections []Correction) ([]edit, error) {
	edits := make([]edit, 0, len(corrections))
	for i, c := range corrections {
		path := strings.TrimSpace(c.Path)
		switch path {
		case fin.MetaScaleConfirmed:
			s, ok := c.NewValue.(string)
			if !ok {
				return nil, fmt.Errorf("correction %d: %w: %s needs a scale name", i, fin.ErrInvalidValue, path)
			}
			scale, err := fin.ParseScale(s)
			if err != nil {
				return nil, fmt.Errorf("correction %d: %w: %v", i, fin.ErrInvalidValue, err)
			}
			edits = append(edits, edit{kind: editScale, scale: scale})

		case fin.MetaCurrencyConfirmed:
			s, ok := c.NewValue.(string)
			if !ok {
				return nil, fmt.Errorf("correction %d: %w: %s needs a currency code", i, fin.ErrInvalidValue, path)
			}
			cur, err := fin.NormalizeCurrency(s)
			if err != nil {
				return nil, fmt.Errorf("correction %d: %w: %v", i, fin.ErrInvalidValue, err)
			}
			edits = append(edits, edit{kind: editCurrency, currency: cur})

		default:
			p, err := fin.ParsePath(path)
			if err != nil {
				return nil, fmt.Errorf("correction %d: %w", i, err)
			}
			v, err := numberValue(c.NewValue)
			if err != nil {
				return nil, fmt.Errorf("correction %d (%s): %w", i, path, err)
			}
			edits = append(edits, edit{kind: editField, path: p, value: v})
		}
	}
	return edits, nil
}

// applyFeedback applies planned edits, appends one audit entry per field
// edit and clears the issues and review flag.
func (e *Engine) applyFeedback(run *fin.Run, edits []edit) {
	at := e.clock.Now()
	for _, ed := range edits {
		switch ed.kind {
		case editScale:
			run.Record.Scale = ed.scale
		case editCurrency:
			run.Record.Currency = ed.currency
		default:
			old, _ := run.Record.Set(ed.path, ed.value)
			run.Audit = append(run.Audit, fin.AuditEntry{
				Seq:  run.NextAuditSeq(),
				Path: ed.path.String(),
				Old:  old,
				New:  copyFloat(ed.value),
				By:   fin.ActorUser,
				At:   at,
			})
		}
	}
	run.Issues = []fin.Issue{}
	run.NeedReview = false
}

// numberValue decodes a correction value. nil stays nil (the field is
// cleared).
func numberValue(v any) (*float64, error) {
	var f float64
	switch n := v.(type) {
	case nil:
		return nil, nil
	case float64:
		f = n
	case float32:
		f = float64(n)
	case int:
		f = float64(n)
	case int64:
		f = float64(n)
	case int32:
		f = float64(n)
	case uint64:
		f = float64(n)
	case json.Number:
		parsed, err := n.Float64()
		if err != nil {
			return nil, fmt.Errorf("%w: %q", fin.ErrInvalidValue, n.String())
		}
		f = parsed
	case string:
		s := strings.TrimSpace(n)
		if s == "" {
			return nil, nil
		}
		parsed, err := strconv.ParseFloat(strings.ReplaceAll(s, ",", ""), 64)
		if err != nil {
			return nil, fmt.Errorf("%w: %q", fin.ErrInvalidValue, n)
		}
		f = parsed
	default:
		return nil, fmt.Errorf("%w: unsupported type %T", fin.ErrInvalidValue, v)
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil, fmt.Errorf("%w: %v", fin.ErrInvalidValue, f)
	}
	return &f, nil
}

func copyFloat(v *float64) *float64 {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}
