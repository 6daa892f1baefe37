package extract

import (
	"fmt"
	"strings"

	"github.com/roach88/finflow/internal/fin"
	"github.com/roach88/finflow/internal/parse"
)

// FunctionName is the tool the model must call with its findings.
const FunctionName = "submit_extraction"

// Limits bound how much parsed content is inlined into a prompt.
type Limits struct {
	MaxTextChars  int `json:"max_text_chars" yaml:"max_text_chars"`
	MaxTableChars int `json:"max_table_chars" yaml:"max_table_chars"`
	MaxTables     int `json:"max_tables" yaml:"max_tables"`
	MaxTableRows  int `json:"max_table_rows" yaml:"max_table_rows"`
}

// DefaultLimits returns 18000 text chars, 12000 table chars, 5 tables of
// 20 rows.
func DefaultLimits() Limits {
	return Limits{MaxTextChars: 18000, MaxTableChars: 12000, MaxTables: 5, MaxTableRows: 20}
}

func (l Limits) withDefaults() Limits {
	d := DefaultLimits()
	if l.MaxTextChars <= 0 {
		l.MaxTextChars = d.MaxTextChars
	}
	if l.MaxTableChars <= 0 {
		l.MaxTableChars = d.MaxTableChars
	}
	if l.MaxTables <= 0 {
		l.MaxTables = d.MaxTables
	}
	if l.MaxTableRows <= 0 {
		l.MaxTableRows = d.MaxTableRows
	}
	return l
}

// SystemPrompt instructs the model and lists every canonical path.
func SystemPrompt() string {
	var sb strings.Builder
	sb.WriteString("You are a financial statement extractor.\n")
	sb.WriteString("Read the document (text, tables or image) and report fields in the requested schema.\n")
	sb.WriteString("Do NOT invent values. When unsure, set value to null and report a low confidence.\n")
	sb.WriteString("Use these canonical paths:\n")

	bySection := map[fin.Section][]string{}
	var order []fin.Section
	for _, p := range fin.Paths() {
		if _, ok := bySection[p.Section()]; !ok {
			order = append(order, p.Section())
		}
		bySection[p.Section()] = append(bySection[p.Section()], p.Attribute())
	}
	for _, s := range order {
		fmt.Fprintf(&sb, "%s.(%s)\n", s, strings.Join(bySection[s], ","))
	}
	fmt.Fprintf(&sb, "Return your answer by calling %s.", FunctionName)
	return sb.String()
}

// ContextText renders inline document text, truncated to the limit.
// It returns "" when there is no text.
func ContextText(text string, l Limits) string {
	if text == "" {
		return ""
	}
	l = l.withDefaults()
	return "CONTEXT_TEXT:\n" + truncate(text, l.MaxTextChars)
}

// ContextTables renders the first tables as pipe-separated text.
// It returns "" when there are no tables.
func ContextTables(tables []parse.Table, l Limits) string {
	if len(tables) == 0 {
		return ""
	}
	l = l.withDefaults()

	var sb strings.Builder
	for i, t := range tables {
		if i == l.MaxTables {
			break
		}
		if len(t.Columns) > 0 {
			sb.WriteString(strings.Join(t.Columns, " | "))
			sb.WriteByte('\n')
		}
		for j, row := range t.Rows {
			if j == l.MaxTableRows {
				break
			}
			sb.WriteString(strings.Join(row, " | "))
			sb.WriteByte('\n')
		}
		sb.WriteByte('\n')
	}
	return "CONTEXT_TABLES:\n" + truncate(sb.String(), l.MaxTableChars)
}

// truncate cuts s to at most n runes.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}
