package repository

import (
	"context"
	"fmt"

	"salesboard/internal/model"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// latestPerTransactionCTE keeps, among the ledger rows matching the filter, the
// most recent event of every transaction. The transaction key uses the same
// pattern as the Go resolver so the source and the merger agree on identity.
const latestPerTransactionCTE = `
	WITH keyed AS (
		SELECT le.*, COALESCE(substring(le.event_id from ?), le.event_id) AS transaction_id
		FROM ledger_events le
		WHERE %s
	), latest AS (
		SELECT DISTINCT ON (transaction_id) *
		FROM keyed
		ORDER BY transaction_id, occurred_at DESC, event_id DESC
	)
`

// LedgerTotalsRow is the minimal projection the totals scan needs.
type LedgerTotalsRow struct {
	EventID           string          `gorm:"column:event_id"`
	EventType         string          `gorm:"column:event_type"`
	GrossAmount       decimal.Decimal `gorm:"column:gross_amount"`
	NetAmount         decimal.Decimal `gorm:"column:net_amount"`
	PayloadBuyerEmail string          `gorm:"column:payload_buyer_email"`
}

type LedgerRepository interface {
	Count(ctx context.Context, q SalesQuery) (int64, error)
	FetchPage(ctx context.Context, q SalesQuery, offset, limit int) ([]model.LedgerEvent, error)
	ScanTotals(ctx context.Context, q SalesQuery, offset, limit int) ([]LedgerTotalsRow, error)
}

type ledgerRepository struct {
	db *gorm.DB
}

func NewLedgerRepository(db *gorm.DB) LedgerRepository {
	return &ledgerRepository{db: db}
}

func (r *ledgerRepository) cte(q SalesQuery) (string, []interface{}) {
	where, args := q.where()
	return fmt.Sprintf(latestPerTransactionCTE, where), append([]interface{}{model.TransactionIDPattern}, args...)
}

func (r *ledgerRepository) Count(ctx context.Context, q SalesQuery) (int64, error) {
	cte, args := r.cte(q)

	var total int64
	if err := GetDB(ctx, r.db).Raw(cte+`SELECT COUNT(*) FROM latest`, args...).Scan(&total).Error; err != nil {
		return 0, fmt.Errorf("failed to count ledger transactions: %w", err)
	}
	return total, nil
}

// FetchPage orders by business date so offsets are stable across requests.
func (r *ledgerRepository) FetchPage(ctx context.Context, q SalesQuery, offset, limit int) ([]model.LedgerEvent, error) {
	cte, args := r.cte(q)
	query := cte + `
		SELECT * FROM latest
		ORDER BY business_date DESC, occurred_at DESC, transaction_id DESC
		LIMIT ? OFFSET ?`

	var events []model.LedgerEvent
	if err := GetDB(ctx, r.db).Raw(query, append(args, limit, offset)...).Scan(&events).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch ledger page: %w", err)
	}
	return events, nil
}

func (r *ledgerRepository) ScanTotals(ctx context.Context, q SalesQuery, offset, limit int) ([]LedgerTotalsRow, error) {
	cte, args := r.cte(q)
	query := cte + `
		SELECT event_id, event_type, gross_amount, net_amount,
			COALESCE(raw_payload #>> '{data,buyer,email}', '') AS payload_buyer_email
		FROM latest
		ORDER BY transaction_id
		LIMIT ? OFFSET ?`

	var rows []LedgerTotalsRow
	if err := GetDB(ctx, r.db).Raw(query, append(args, limit, offset)...).Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to scan ledger totals: %w", err)
	}
	return rows, nil
}
