package service

import (
	"sort"

	"salesboard/internal/model"
	"salesboard/pkg/pagination"
)

// SortTransactions orders rows newest business date first. Ties fall back to
// occurrence time, then transaction id, so the order is deterministic.
func SortTransactions(rows []model.SaleTransaction) {
	sort.SliceStable(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		if !a.BusinessDate.Equal(b.BusinessDate) {
			return a.BusinessDate.After(b.BusinessDate)
		}
		if !a.OccurredAt.Equal(b.OccurredAt) {
			return a.OccurredAt.After(b.OccurredAt)
		}
		return a.TransactionID > b.TransactionID
	})
}

func applyPostMerge(rows []model.SaleTransaction, post postMergeFilter) []model.SaleTransaction {
	if !post.active() {
		return rows
	}
	out := make([]model.SaleTransaction, 0, len(rows))
	for _, tx := range rows {
		if post.match(tx) {
			out = append(out, tx)
		}
	}
	return out
}

// slicePage returns the rows of one page; pages past the end are empty.
func slicePage(rows []model.SaleTransaction, p pagination.Params) []model.SaleTransaction {
	if p.Offset >= len(rows) {
		return []model.SaleTransaction{}
	}
	end := p.Offset + p.Limit
	if end > len(rows) {
		end = len(rows)
	}
	return rows[p.Offset:end]
}
