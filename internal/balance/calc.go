// Package balance holds the pure arithmetic behind the cached user
// balance: the signed effect of a single transaction, the delta caused
// by a mutation, and the full from-scratch sum used by recalculation.
package balance

import "finance_ledger/internal/domain"

// Signed returns the effect of one transaction on the balance:
// +amount for income, -amount for expense.
func Signed(t domain.TransactionType, amount int64) int64 {
	if t == domain.TypeIncome {
		return amount
	}
	return -amount
}

// Delta returns the signed balance change for a mutation. before is nil
// on creation, after is nil on deletion; an update passes both. The
// algebra holds for every combination, including type flips:
//
//	create:  +Signed(after)
//	delete:  -Signed(before)
//	update:  Signed(after) - Signed(before)
func Delta(before, after *domain.Transaction) int64 {
	var d int64
	if before != nil {
		d -= Signed(before.Type, before.Amount)
	}
	if after != nil {
		d += Signed(after.Type, after.Amount)
	}
	return d
}

// Full recomputes the balance from the complete transaction set. This
// is the correctness oracle: the recalculation worker overwrites the
// cached balance with this value.
func Full(txns []*domain.Transaction) int64 {
	var total int64
	for _, t := range txns {
		total += Signed(t.Type, t.Amount)
	}
	return total
}
