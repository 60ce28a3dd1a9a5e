package service

import (
	"salesboard/internal/model"

	"github.com/shopspring/decimal"
)

type totalsAccumulator struct {
	count  int64
	gross  decimal.Decimal
	net    decimal.Decimal
	buyers map[string]struct{}
}

func newTotalsAccumulator() *totalsAccumulator {
	return &totalsAccumulator{buyers: map[string]struct{}{}}
}

func (a *totalsAccumulator) add(gross, net decimal.Decimal, buyerEmail string) {
	a.count++
	a.gross = a.gross.Add(gross)
	a.net = a.net.Add(net)
	if k := buyerKey(buyerEmail); k != "" {
		a.buyers[k] = struct{}{}
	}
}

func (a *totalsAccumulator) totals() model.SalesTotals {
	return model.SalesTotals{
		Count:        a.count,
		GrossAmount:  a.gross,
		NetAmount:    a.net,
		UniqueBuyers: int64(len(a.buyers)),
	}
}

// TotalsOf aggregates already reconciled rows.
func TotalsOf(rows []model.SaleTransaction) model.SalesTotals {
	acc := newTotalsAccumulator()
	for _, tx := range rows {
		acc.add(tx.GrossAmount, tx.NetAmount, tx.BuyerEmail)
	}
	return acc.totals()
}
