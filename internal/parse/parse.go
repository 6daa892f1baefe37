// Package parse turns an uploaded document into plain text and table
// fragments for the extraction adapter.
//
// Supported inputs:
//   - PDF: text per page, prefixed with "[PAGE n]" markers, plus row fragments
//   - CSV, XLSX: a single table whose first row provides the column names
//   - images: nothing (the adapter reads the image itself)
//
// Legacy binary .xls workbooks are recognized but yield no tables.
package parse

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"mime"
	"path/filepath"
	"strings"
)

// ErrUnsupportedFormat is returned for extensions the parser does not know.
var ErrUnsupportedFormat = errors.New("unsupported document format")

// Table is one tabular fragment of a document. Page is 1-based and zero for
// sources without pages.
type Table struct {
	Page    int        `json:"page,omitempty"`
	Columns []string   `json:"columns,omitempty"`
	Rows    [][]string `json:"rows"`
}

// Document is the parser output.
type Document struct {
	MIMEType string  `json:"mime_type"`
	Text     string  `json:"text"`
	Tables   []Table `json:"tables"`
	Pages    int     `json:"pages"`
}

// Kind classifies a document by extension.
type Kind string

const (
	KindPDF     Kind = "pdf"
	KindCSV     Kind = "csv"
	KindXLSX    Kind = "xlsx"
	KindXLS     Kind = "xls"
	KindImage   Kind = "image"
	KindUnknown Kind = "unknown"
)

var kindByExt = map[string]Kind{
	".pdf":  KindPDF,
	".csv":  KindCSV,
	".xlsx": KindXLSX,
	".xlsm": KindXLSX,
	".xls":  KindXLS,
	".png":  KindImage,
	".jpg":  KindImage,
	".jpeg": KindImage,
	".gif":  KindImage,
	".webp": KindImage,
	".tif":  KindImage,
	".tiff": KindImage,
}

// KindOf returns the document kind for path.
func KindOf(path string) Kind {
	if k, ok := kindByExt[strings.ToLower(filepath.Ext(path))]; ok {
		return k
	}
	return KindUnknown
}

// MIMEType guesses a content type from the file extension.
func MIMEType(path string) string {
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".csv":
		return "text/csv"
	case ".xlsx", ".xlsm":
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	case ".xls":
		return "application/vnd.ms-excel"
	}
	if t := mime.TypeByExtension(ext); t != "" {
		if base, _, ok := strings.Cut(t, ";"); ok {
			return base
		}
		return t
	}
	return "application/octet-stream"
}

// Parser reads documents from the local filesystem.
type Parser struct {
	logger *slog.Logger
}

// New creates a Parser. A nil logger falls back to slog.Default.
func New(logger *slog.Logger) *Parser {
	if logger == nil {
		logger = slog.Default()
	}
	return &Parser{logger: logger.With("system", "parse")}
}

// Parse reads the document at path.
func (p *Parser) Parse(ctx context.Context, path string) (*Document, error) {
	doc := &Document{MIMEType: MIMEType(path), Tables: []Table{}}

	var err error
	switch kind := KindOf(path); kind {
	case KindPDF:
		err = parsePDF(ctx, path, doc)
	case KindCSV:
		err = parseCSV(path, doc)
	case KindXLSX:
		err = parseXLSX(path, doc)
	case KindXLS:
		p.logger.WarnContext(ctx, "legacy xls workbook not parsed", "path", path)
	case KindImage:
		p.logger.DebugContext(ctx, "image document, leaving content to the adapter", "path", path)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, filepath.Ext(path))
	}
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", filepath.Base(path), err)
	}

	doc.Text = strings.TrimSpace(doc.Text)
	p.logger.DebugContext(ctx, "document parsed",
		"path", path,
		"pages", doc.Pages,
		"tables", len(doc.Tables),
		"text_chars", len(doc.Text),
	)
	return doc, nil
}
