package parse

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"

	"github.com/xuri/excelize/v2"
)

func parseCSV(path string, doc *Document) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true

	var records [][]string
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("read csv: %w", err)
		}
		records = append(records, rec)
	}
	if t, ok := tableFromRecords(records); ok {
		doc.Tables = append(doc.Tables, t)
	}
	return nil
}

// parseXLSX reads the first sheet of a workbook.
func parseXLSX(path string, doc *Document) error {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil
	}
	records, err := f.GetRows(sheets[0])
	if err != nil {
		return fmt.Errorf("read sheet %q: %w", sheets[0], err)
	}
	if t, ok := tableFromRecords(records); ok {
		doc.Tables = append(doc.Tables, t)
	}
	return nil
}

// tableFromRecords treats the first record as the header row.
func tableFromRecords(records [][]string) (Table, bool) {
	if len(records) == 0 {
		return Table{}, false
	}
	t := Table{Columns: records[0], Rows: records[1:]}
	if t.Rows == nil {
		t.Rows = [][]string{}
	}
	return t, true
}
