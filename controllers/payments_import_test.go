package controllers

import (
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestImportReceiptNumberDeterministic(t *testing.T) {
	cash := decimal.RequireFromString("1500.00")
	online := decimal.RequireFromString("0")

	a := importReceiptNumber(42, 4, 2026, cash, online, "AC-001", "2026-04-05")
	b := importReceiptNumber(42, 4, 2026, cash, online, "AC-001", "2026-04-05")
	assert.Equal(t, a, b, "same row content yields the same receipt")
	assert.True(t, strings.HasPrefix(a, "IMP-202604-42-"))

	c := importReceiptNumber(42, 4, 2026, cash, online, "AC-002", "2026-04-05")
	assert.NotEqual(t, a, c, "a different bank ref is a different payment")

	d := importReceiptNumber(42, 5, 2026, cash, online, "AC-001", "2026-04-05")
	assert.NotEqual(t, a, d)
}

func TestParseDecimal(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"1500.00", "1500.00"},
		{"1,500.00", "1500.00"},
		{"$2,000", "2000"},
		{"  750.5 ", "750.5"},
		{"", "0"},
		{"n/a", "0"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got := parseDecimal(tt.in)
			assert.True(t, decimal.RequireFromString(tt.want).Equal(got), "want %s got %s", tt.want, got)
		})
	}
}

func TestParseDate(t *testing.T) {
	want := time.Date(2026, 4, 5, 0, 0, 0, 0, time.UTC)
	for _, in := range []string{"2026-04-05", "05/04/2026", "2026/04/05", "5 Apr 2026"} {
		got := parseDate(in)
		require.NotNil(t, got, "layout %q", in)
		assert.True(t, want.Equal(*got), "layout %q parsed as %v", in, got)
	}

	assert.Nil(t, parseDate(""))
	assert.Nil(t, parseDate("not a date"))
}

func TestReadCSVRows(t *testing.T) {
	input := "Student ID,Month,Year,Cash Paid\n42,4,2026,\"1,500.00\"\n43,4,2026,0\n"
	rows, err := readCSVRows(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"Student ID", "Month", "Year", "Cash Paid"}, rows[0])
	assert.Equal(t, "1,500.00", rows[1][3])
}

func TestMapHeaderIndexes(t *testing.T) {
	col := mapHeaderIndexes([]string{" Student ID", "Month ", "Year"})
	assert.Equal(t, 0, col["Student ID"])
	assert.Equal(t, 1, col["Month"])
	assert.Equal(t, 2, col["Year"])
}
