package model

import (
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Domain statuses accepted by the sales filter and reported on rows
const (
	StatusApproved   = "approved"
	StatusComplete   = "complete"
	StatusRefunded   = "refunded"
	StatusChargeback = "chargeback"
	StatusCancelled  = "cancelled"
)

// SalesFilter is the caller-facing filter. Dates are inclusive calendar days
// (YYYY-MM-DD) in the business timezone. An empty Statuses list means
// purchase-equivalent events only.
type SalesFilter struct {
	StartDate    string   `json:"start_date"`
	EndDate      string   `json:"end_date"`
	Statuses     []string `json:"statuses,omitempty"`
	FunnelIDs    []string `json:"funnel_ids,omitempty"`
	ProductIDs   []string `json:"product_ids,omitempty"`
	OfferCodes   []string `json:"offer_codes,omitempty"`
	AccountIDs   []string `json:"account_ids,omitempty"`
	UTMSource    string   `json:"utm_source,omitempty"`
	UTMCampaign  string   `json:"utm_campaign,omitempty"`
	UTMAdset     string   `json:"utm_adset,omitempty"`
	UTMPlacement string   `json:"utm_placement,omitempty"`
	UTMCreative  string   `json:"utm_creative,omitempty"`
}

// Key is a canonical form of the filter: two filters selecting the same rows
// regardless of set order or UTM case produce the same key.
func (f SalesFilter) Key() string {
	set := func(values []string, lower bool) string {
		out := make([]string, 0, len(values))
		for _, v := range values {
			v = strings.TrimSpace(v)
			if lower {
				v = strings.ToLower(v)
			}
			if v != "" {
				out = append(out, v)
			}
		}
		sort.Strings(out)
		return strings.Join(out, ",")
	}
	utm := func(v string) string { return strings.ToLower(strings.TrimSpace(v)) }

	return strings.Join([]string{
		strings.TrimSpace(f.StartDate),
		strings.TrimSpace(f.EndDate),
		set(f.Statuses, true),
		set(f.FunnelIDs, true),
		set(f.ProductIDs, false),
		set(f.OfferCodes, false),
		set(f.AccountIDs, false),
		utm(f.UTMSource),
		utm(f.UTMCampaign),
		utm(f.UTMAdset),
		utm(f.UTMPlacement),
		utm(f.UTMCreative),
	}, "|")
}

// NetSource names the fallback step that produced a row's net amount.
type NetSource string

const (
	NetFromLedger  NetSource = "ledger"
	NetFromLegacy  NetSource = "legacy"
	NetEstimated   NetSource = "estimated"
	NetUnavailable NetSource = "none"
)

// SaleTransaction is one reconciled row per transaction id.
type SaleTransaction struct {
	TransactionID string          `json:"transaction_id"`
	EventID       string          `json:"event_id"`
	Provider      string          `json:"provider"`
	EventType     string          `json:"event_type"`
	Status        string          `json:"status"`
	BusinessDate  time.Time       `json:"business_date"`
	OccurredAt    time.Time       `json:"occurred_at"`
	BuyerName     string          `json:"buyer_name"`
	BuyerEmail    string          `json:"buyer_email"`
	ProductID     string          `json:"product_id"`
	ProductName   string          `json:"product_name"`
	OfferCode     string          `json:"offer_code"`
	GrossAmount   decimal.Decimal `json:"gross_amount"`
	NetAmount     decimal.Decimal `json:"net_amount"`
	NetSource     NetSource       `json:"net_source"`
	Currency      string          `json:"currency"`
	UTMSource     string          `json:"utm_source"`
	UTMAdset      string          `json:"utm_adset"`
	UTMCampaign   string          `json:"utm_campaign"`
	UTMPlacement  string          `json:"utm_placement"`
	UTMCreative   string          `json:"utm_creative"`
	HasLegacy     bool            `json:"has_legacy"`
}

// SalesTotals aggregates the whole filtered set, independent of the page.
// Degraded means the sums could not be computed and only Count is reliable.
type SalesTotals struct {
	Count        int64           `json:"count"`
	GrossAmount  decimal.Decimal `json:"gross_amount"`
	NetAmount    decimal.Decimal `json:"net_amount"`
	UniqueBuyers int64           `json:"unique_buyers"`
	Loading      bool            `json:"loading"`
	Degraded     bool            `json:"degraded"`
}

// StatusForEventType maps a ledger event type back to the domain vocabulary.
func StatusForEventType(eventType string) string {
	switch eventType {
	case EventTypePurchase:
		return StatusApproved
	case EventTypeRefund:
		return StatusRefunded
	case EventTypeChargeback:
		return StatusChargeback
	case EventTypeCancellation:
		return StatusCancelled
	}
	return eventType
}
