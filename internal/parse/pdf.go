package parse

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
)

// parsePDF validates the file with pdfcpu (page count) and pulls text with
// ledongthuc/pdf. Rows with at least two text runs become table fragments.
func parsePDF(ctx context.Context, path string, doc *Document) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	count, err := api.PageCount(f, nil)
	f.Close()
	if err != nil {
		return fmt.Errorf("read page count: %w", err)
	}
	doc.Pages = count

	rf, r, err := pdf.Open(path)
	if err != nil {
		return fmt.Errorf("open pdf: %w", err)
	}
	defer rf.Close()

	var sb strings.Builder
	for i := 1; i <= r.NumPage(); i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}

		text, err := page.GetPlainText(nil)
		if err != nil {
			text = ""
		}
		fmt.Fprintf(&sb, "\n[PAGE %d]\n%s\n", i, text)

		rows, err := page.GetTextByRow()
		if err != nil {
			continue
		}
		var table Table
		for _, row := range rows {
			cells := make([]string, 0, len(row.Content))
			for _, t := range row.Content {
				if s := strings.TrimSpace(t.S); s != "" {
					cells = append(cells, s)
				}
			}
			if len(cells) >= 2 {
				table.Rows = append(table.Rows, cells)
			}
		}
		if len(table.Rows) > 0 {
			table.Page = i
			doc.Tables = append(doc.Tables, table)
		}
	}

	doc.Text = sb.String()
	return nil
}
