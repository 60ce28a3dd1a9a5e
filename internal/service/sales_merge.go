package service

import (
	"strings"

	"salesboard/internal/model"

	"github.com/shopspring/decimal"
)

// Placeholder fills identity fields neither source knows.
const Placeholder = "-"

// Attribution holds the five UTM components, in the order they appear in a
// pipe-delimited attribution string.
type Attribution struct {
	Source    string
	Adset     string
	Campaign  string
	Placement string
	Creative  string
}

// ParseAttribution splits "source|adset|campaign|placement|creative". Missing
// trailing components are empty.
func ParseAttribution(s string) Attribution {
	if strings.TrimSpace(s) == "" {
		return Attribution{}
	}
	parts := strings.Split(s, "|")
	at := func(i int) string {
		if i < len(parts) {
			return strings.TrimSpace(parts[i])
		}
		return ""
	}
	return Attribution{
		Source:    at(0),
		Adset:     at(1),
		Campaign:  at(2),
		Placement: at(3),
		Creative:  at(4),
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

func orPlaceholder(values ...string) string {
	if v := firstNonEmpty(values...); v != "" {
		return v
	}
	return Placeholder
}

// ResolveAttribution resolves each UTM field independently: explicit legacy
// column, then the legacy attribution string, then the payload attribution
// string.
func ResolveAttribution(legacy *model.LegacySale, payload ledgerPayload) Attribution {
	var cols, legacyStr Attribution
	if legacy != nil {
		cols = Attribution{
			Source:    legacy.UTMSource,
			Adset:     legacy.UTMAdset,
			Campaign:  legacy.UTMCampaign,
			Placement: legacy.UTMPlacement,
			Creative:  legacy.UTMCreative,
		}
		legacyStr = ParseAttribution(legacy.Attribution)
	}
	fromPayload := ParseAttribution(string(payload.Data.Purchase.Origin.Sck))

	return Attribution{
		Source:    firstNonEmpty(cols.Source, legacyStr.Source, fromPayload.Source),
		Adset:     firstNonEmpty(cols.Adset, legacyStr.Adset, fromPayload.Adset),
		Campaign:  firstNonEmpty(cols.Campaign, legacyStr.Campaign, fromPayload.Campaign),
		Placement: firstNonEmpty(cols.Placement, legacyStr.Placement, fromPayload.Placement),
		Creative:  firstNonEmpty(cols.Creative, legacyStr.Creative, fromPayload.Creative),
	}
}

type saleIdentity struct {
	BuyerName   string
	BuyerEmail  string
	ProductID   string
	ProductName string
	OfferCode   string
}

// resolveIdentity prefers the legacy record, then the ledger payload, then
// the placeholder.
func resolveIdentity(legacy *model.LegacySale, payload ledgerPayload) saleIdentity {
	var l model.LegacySale
	if legacy != nil {
		l = *legacy
	}
	d := payload.Data
	return saleIdentity{
		BuyerName:   orPlaceholder(l.BuyerName, string(d.Buyer.Name)),
		BuyerEmail:  orPlaceholder(l.BuyerEmail, string(d.Buyer.Email)),
		ProductID:   orPlaceholder(l.ProductID, string(d.Product.ID)),
		ProductName: orPlaceholder(l.ProductName, string(d.Product.Name)),
		OfferCode:   orPlaceholder(l.OfferCode, string(d.Purchase.Offer.Code)),
	}
}

// buyerKey is the identity used for distinct-buyer counting; placeholder
// buyers are not counted.
func buyerKey(email string) string {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || email == Placeholder {
		return ""
	}
	return email
}

// ResolveNet walks the net-amount fallback chain: ledger net, legacy net
// revenue, then gross times the producer share for purchase-equivalent
// events. Each step applies only when the previous one is zero.
func ResolveNet(eventType string, gross, ledgerNet decimal.Decimal, legacy *model.LegacySale, producerShare decimal.Decimal) (decimal.Decimal, model.NetSource) {
	if !ledgerNet.IsZero() {
		return ledgerNet, model.NetFromLedger
	}
	if legacy != nil && !legacy.NetRevenue.IsZero() {
		return legacy.NetRevenue, model.NetFromLegacy
	}
	if model.IsPurchaseEquivalent(eventType) && !gross.IsZero() {
		return gross.Mul(producerShare), model.NetEstimated
	}
	return decimal.Zero, model.NetUnavailable
}

// LatestPerTransaction keeps one event per transaction id: the one with the
// latest OccurredAt, ties going to the greater event id. Order of first
// appearance is preserved.
func LatestPerTransaction(events []model.LedgerEvent) []model.LedgerEvent {
	index := make(map[string]int, len(events))
	out := make([]model.LedgerEvent, 0, len(events))
	for _, ev := range events {
		id := ResolveTransactionID(ev.EventID)
		if i, ok := index[id]; ok {
			if supersedes(ev, out[i]) {
				out[i] = ev
			}
			continue
		}
		index[id] = len(out)
		out = append(out, ev)
	}
	return out
}

func supersedes(a, b model.LedgerEvent) bool {
	if !a.OccurredAt.Equal(b.OccurredAt) {
		return a.OccurredAt.After(b.OccurredAt)
	}
	return a.EventID > b.EventID
}

// Merger joins ledger events with legacy sales.
type Merger struct {
	ProducerShare decimal.Decimal
	// OnBadPayload is told about payloads that are not valid JSON.
	OnBadPayload func(eventID string)
}

// Merge deduplicates events and reconciles each survivor with its legacy
// record. legacy is keyed by transaction id; a missing key means no match.
func (m Merger) Merge(events []model.LedgerEvent, legacy map[string]*model.LegacySale) []model.SaleTransaction {
	latest := LatestPerTransaction(events)
	out := make([]model.SaleTransaction, 0, len(latest))
	for _, ev := range latest {
		out = append(out, m.Reconcile(ev, legacy[ResolveTransactionID(ev.EventID)]))
	}
	return out
}

// Reconcile resolves one output row. legacy may be nil.
func (m Merger) Reconcile(ev model.LedgerEvent, legacy *model.LegacySale) model.SaleTransaction {
	payload, ok := parsePayload(ev.RawPayload)
	if !ok && m.OnBadPayload != nil {
		m.OnBadPayload(ev.EventID)
	}
	id := resolveIdentity(legacy, payload)
	attr := ResolveAttribution(legacy, payload)
	net, source := ResolveNet(ev.EventType, ev.GrossAmount, ev.NetAmount, legacy, m.ProducerShare)

	return model.SaleTransaction{
		TransactionID: ResolveTransactionID(ev.EventID),
		EventID:       ev.EventID,
		Provider:      ev.Provider,
		EventType:     ev.EventType,
		Status:        model.StatusForEventType(ev.EventType),
		BusinessDate:  ev.BusinessDate,
		OccurredAt:    ev.OccurredAt,
		BuyerName:     id.BuyerName,
		BuyerEmail:    id.BuyerEmail,
		ProductID:     id.ProductID,
		ProductName:   id.ProductName,
		OfferCode:     id.OfferCode,
		GrossAmount:   ev.GrossAmount,
		NetAmount:     net,
		NetSource:     source,
		Currency:      ev.Currency,
		UTMSource:     attr.Source,
		UTMAdset:      attr.Adset,
		UTMCampaign:   attr.Campaign,
		UTMPlacement:  attr.Placement,
		UTMCreative:   attr.Creative,
		HasLegacy:     legacy != nil,
	}
}
