package extract

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// sidecarExts are tried in order next to the document.
var sidecarExts = []string{".extraction.yaml", ".extraction.yml", ".extraction.json"}

// FileAdapter reads a pre-recorded extraction from a sidecar file.
//
// For a document "q4.pdf" it looks for "q4.extraction.yaml" (or .yml/.json),
// either beside the document or, when Dir is set, inside Dir. It serves
// offline operation and scenario fixtures.
type FileAdapter struct {
	Dir string
}

// Extract implements Adapter.
func (a FileAdapter) Extract(ctx context.Context, req Request) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if req.DocPath == "" {
		return nil, fmt.Errorf("%w: no document path for sidecar lookup", ErrServiceUnavailable)
	}

	dir := filepath.Dir(req.DocPath)
	if a.Dir != "" {
		dir = a.Dir
	}
	stem := strings.TrimSuffix(filepath.Base(req.DocPath), filepath.Ext(req.DocPath))

	for _, ext := range sidecarExts {
		path := filepath.Join(dir, stem+ext)
		data, err := os.ReadFile(path)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrServiceUnavailable, err)
		}
		return LoadResult(data)
	}
	return nil, fmt.Errorf("%w: no sidecar for %s", ErrServiceUnavailable, filepath.Base(req.DocPath))
}

// LoadResult decodes a YAML or JSON extraction result.
func LoadResult(data []byte) (*Result, error) {
	var res Result
	if err := yaml.Unmarshal(data, &res); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResult, err)
	}
	if res.Fields == nil {
		res.Fields = []RawField{}
	}
	return &res, nil
}
