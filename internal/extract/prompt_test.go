package extract

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"

	"github.com/roach88/finflow/internal/parse"
)

func TestSystemPromptListsCanonicalPaths(t *testing.T) {
	p := SystemPrompt()
	assert.Contains(t, p, "balance.(cash,accounts_receivable,inventory,current_assets,total_assets,")
	assert.Contains(t, p, "income.(revenue,cogs,gross_profit,operating_income,ebitda,interest_expense,net_income)")
	assert.Contains(t, p, "cashflow.(operating_cf,investing_cf,financing_cf,free_cf)")
	assert.Contains(t, p, FunctionName)
}

func TestContextTextTruncates(t *testing.T) {
	assert.Empty(t, ContextText("", Limits{}))

	long := strings.Repeat("a", 20000)
	got := ContextText(long, Limits{})
	assert.Equal(t, len("CONTEXT_TEXT:\n")+18000, len(got))

	got = ContextText("ñandú", Limits{MaxTextChars: 3})
	assert.Equal(t, "CONTEXT_TEXT:\nñan", got)
	assert.True(t, utf8.ValidString(got))
}

func TestContextTables(t *testing.T) {
	assert.Empty(t, ContextTables(nil, Limits{}))

	tables := []parse.Table{
		{Columns: []string{"concept", "amount"}, Rows: [][]string{{"revenue", "10"}, {"cogs", "4"}}},
		{Page: 2, Rows: [][]string{{"cash", "1"}}},
	}
	got := ContextTables(tables, Limits{})
	assert.Equal(t, "CONTEXT_TABLES:\nconcept | amount\nrevenue | 10\ncogs | 4\n\ncash | 1\n\n", got)
}

func TestContextTablesLimits(t *testing.T) {
	var tables []parse.Table
	for i := 0; i < 8; i++ {
		rows := make([][]string, 30)
		for j := range rows {
			rows[j] = []string{"r"}
		}
		tables = append(tables, parse.Table{Rows: rows})
	}

	got := ContextTables(tables, Limits{})
	body := strings.TrimPrefix(got, "CONTEXT_TABLES:\n")
	assert.Equal(t, 5*20, strings.Count(body, "r\n"))

	got = ContextTables(tables, Limits{MaxTableChars: 10})
	assert.Equal(t, "CONTEXT_TABLES:\n"+strings.Repeat("r\n", 5), got)
}
