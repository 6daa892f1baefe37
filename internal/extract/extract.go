// Package extract defines the extraction adapter contract and normalizes
// adapter output into a fin.Record.
//
// Adapters are black boxes: they take a document reference and/or parsed
// content and report (path, value, confidence) triples. The engine treats
// any adapter error as "no fields extracted".
package extract

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/roach88/finflow/internal/parse"
)

var (
	// ErrServiceUnavailable marks a failed call to the extraction service.
	ErrServiceUnavailable = errors.New("extraction service unavailable")

	// ErrMalformedResult marks adapter output that does not match the
	// extraction schema.
	ErrMalformedResult = errors.New("malformed extraction result")
)

// Request is the adapter input. Every member is optional.
type Request struct {
	// DocumentURI references uploaded content the service can read directly.
	DocumentURI string
	MIMEType    string

	// DocPath is the local path of the document.
	DocPath string

	Text   string
	Tables []parse.Table
}

// RawField is one field as reported by the adapter.
type RawField struct {
	Path       string   `json:"path" yaml:"path"`
	Label      string   `json:"label,omitempty" yaml:"label,omitempty"`
	Value      *float64 `json:"value" yaml:"value"`
	Unit       string   `json:"unit,omitempty" yaml:"unit,omitempty"`
	Confidence float64  `json:"confidence" yaml:"confidence"`
}

// Result is the adapter output.
type Result struct {
	Period    string     `json:"period,omitempty" yaml:"period,omitempty"`
	Currency  string     `json:"currency,omitempty" yaml:"currency,omitempty"`
	ScaleHint string     `json:"scale_hint,omitempty" yaml:"scale_hint,omitempty"`
	Fields    []RawField `json:"fields" yaml:"fields"`
}

// Adapter extracts financial fields from a document.
type Adapter interface {
	Extract(ctx context.Context, req Request) (*Result, error)
}

// AdapterFunc adapts a function to the Adapter interface.
type AdapterFunc func(ctx context.Context, req Request) (*Result, error)

// Extract calls f(ctx, req).
func (f AdapterFunc) Extract(ctx context.Context, req Request) (*Result, error) {
	return f(ctx, req)
}

// Static returns a fixed result or error. It backs the "none" provider
// (every run goes to manual review) and test fixtures.
type Static struct {
	Result *Result
	Err    error
}

// Extract returns a copy of s.Result, or s.Err.
func (s Static) Extract(ctx context.Context, _ Request) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.Err != nil {
		return nil, s.Err
	}
	if s.Result == nil {
		return &Result{Fields: []RawField{}}, nil
	}
	out := *s.Result
	out.Fields = make([]RawField, len(s.Result.Fields))
	copy(out.Fields, s.Result.Fields)
	return &out, nil
}

// WithTimeout bounds every call to a by d. A call that runs out of time
// fails with ErrServiceUnavailable. d <= 0 returns a unchanged.
func WithTimeout(a Adapter, d time.Duration) Adapter {
	if d <= 0 {
		return a
	}
	return AdapterFunc(func(ctx context.Context, req Request) (*Result, error) {
		ctx, cancel := context.WithTimeout(ctx, d)
		defer cancel()
		res, err := a.Extract(ctx, req)
		if err != nil && errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: timed out after %s: %v", ErrServiceUnavailable, d, err)
		}
		return res, err
	})
}
