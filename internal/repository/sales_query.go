package repository

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

const businessDateLayout = "2006-01-02"

// SalesQuery is the predicate set pushed down to the ledger. Count, page and
// totals queries must all be built from the same value.
type SalesQuery struct {
	ProjectID  uuid.UUID
	From       time.Time // inclusive business date
	To         time.Time // inclusive business date
	EventTypes []string
	AccountIDs []string
	// Empty marks a filter that can match nothing; callers skip the source.
	Empty bool
}

// where renders the predicate against the ledger_events alias "le".
func (q SalesQuery) where() (string, []interface{}) {
	clauses := []string{
		"le.project_id = ?",
		"le.business_date >= ?::date",
		"le.business_date <= ?::date",
		"le.event_type IN ?",
	}
	args := []interface{}{
		q.ProjectID,
		q.From.Format(businessDateLayout),
		q.To.Format(businessDateLayout),
		q.EventTypes,
	}
	if len(q.AccountIDs) > 0 {
		clauses = append(clauses, "le.account_id IN ?")
		args = append(args, q.AccountIDs)
	}
	return strings.Join(clauses, " AND "), args
}
