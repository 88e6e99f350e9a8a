// Package reports renders account statements from a transaction set.
// Derived output only: everything here can be rebuilt from the ledger.
package reports

import (
	"encoding/csv"
	"io"
	"time"

	"finance_ledger/internal/domain"

	"github.com/shopspring/decimal"
)

// minor units per display unit
var centsPerUnit = decimal.NewFromInt(100)

type StatementLine struct {
	ID        int64  `json:"id"`
	Date      string `json:"date"`
	Type      string `json:"type"`
	Category  string `json:"category"`
	Note      string `json:"note,omitempty"`
	Amount    string `json:"amount"`
	RunningAt string `json:"-"`
}

type Statement struct {
	From    string          `json:"from"`
	To      string          `json:"to"`
	Lines   []StatementLine `json:"lines"`
	Income  string          `json:"income"`
	Expense string          `json:"expense"`
	Net     string          `json:"net"`
}

// FormatAmount renders minor units as a fixed two-decimal string.
func FormatAmount(minor int64) string {
	return decimal.NewFromInt(minor).Div(centsPerUnit).StringFixed(2)
}

// Build assembles a statement from transactions already scoped and
// ordered (newest first) by the caller.
func Build(from, to time.Time, txns []*domain.Transaction) Statement {
	st := Statement{
		From: from.Format("2006-01-02"),
		To:   to.Format("2006-01-02"),
	}

	var income, expense int64
	for _, t := range txns {
		if t.Type == domain.TypeIncome {
			income += t.Amount
		} else {
			expense += t.Amount
		}
		st.Lines = append(st.Lines, StatementLine{
			ID:       t.ID,
			Date:     t.CreatedAt.Format("2006-01-02"),
			Type:     string(t.Type),
			Category: t.Category,
			Note:     t.Description,
			Amount:   FormatAmount(t.Amount),
		})
	}

	st.Income = FormatAmount(income)
	st.Expense = FormatAmount(expense)
	st.Net = FormatAmount(income - expense)
	return st
}

// WriteCSV streams the statement as CSV.
func (s Statement) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)

	if err := cw.Write([]string{"date", "type", "category", "description", "amount"}); err != nil {
		return err
	}
	for _, l := range s.Lines {
		if err := cw.Write([]string{l.Date, l.Type, l.Category, l.Note, l.Amount}); err != nil {
			return err
		}
	}
	if err := cw.Write([]string{"", "", "", "net", s.Net}); err != nil {
		return err
	}

	cw.Flush()
	return cw.Error()
}
