package service

import (
	"encoding/json"
	"testing"
	"time"

	"salesboard/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

func TestResolveTransactionID(t *testing.T) {
	cases := map[string]string{
		"acme_TX123_PURCHASE_APPROVED": "TX123",
		"hotmart_HP-0042_REFUND":       "HP-0042",
		"weird-id-without-pattern":     "weird-id-without-pattern",
		"acme_TX1_purchase":            "acme_TX1_purchase",
		"":                             "",
	}
	for in, want := range cases {
		if got := ResolveTransactionID(in); got != want {
			t.Fatalf("ResolveTransactionID(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestParsePayloadAcceptsNumericIDs(t *testing.T) {
	p, ok := parsePayload(json.RawMessage(`{"data":{"product":{"id":12345,"name":"Course"}}}`))
	if !ok {
		t.Fatalf("expected payload to parse")
	}
	if p.Data.Product.ID != "12345" {
		t.Fatalf("expected product id 12345, got %q", p.Data.Product.ID)
	}

	if _, ok := parsePayload(json.RawMessage(`{not json`)); ok {
		t.Fatalf("expected malformed payload to be reported")
	}
}

func TestResolveNetFallbackChain(t *testing.T) {
	share := decimal.RequireFromString("0.46")
	legacy := &model.LegacySale{NetRevenue: decimal.NewFromInt(30)}
	zeroLegacy := &model.LegacySale{}

	cases := []struct {
		name      string
		eventType string
		gross     int64
		ledgerNet int64
		legacy    *model.LegacySale
		want      string
		source    model.NetSource
	}{
		{"ledger net wins", model.EventTypePurchase, 100, 50, legacy, "50", model.NetFromLedger},
		{"legacy net when ledger is zero", model.EventTypePurchase, 100, 0, legacy, "30", model.NetFromLegacy},
		{"estimate from gross", model.EventTypePurchase, 100, 0, zeroLegacy, "46", model.NetEstimated},
		{"estimate without legacy", model.EventTypePurchase, 100, 0, nil, "46", model.NetEstimated},
		{"no estimate for refunds", model.EventTypeRefund, 100, 0, nil, "0", model.NetUnavailable},
		{"nothing to estimate from", model.EventTypePurchase, 0, 0, nil, "0", model.NetUnavailable},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			net, source := ResolveNet(tc.eventType, decimal.NewFromInt(tc.gross), decimal.NewFromInt(tc.ledgerNet), tc.legacy, share)
			if !net.Equal(decimal.RequireFromString(tc.want)) {
				t.Fatalf("expected net %s, got %s", tc.want, net)
			}
			if source != tc.source {
				t.Fatalf("expected source %s, got %s", tc.source, source)
			}
		})
	}
}

func TestMergeKeepsLatestEventPerTransaction(t *testing.T) {
	projectID := uuid.New()
	base := time.Date(2024, 1, 5, 10, 0, 0, 0, time.UTC)
	events := []model.LedgerEvent{
		newEvent(projectID, "acme_TX1_PURCHASE_APPROVED", model.EventTypePurchase, "2024-01-05", 100, withOccurredAt(base)),
		newEvent(projectID, "acme_TX1_PURCHASE_COMPLETE", model.EventTypePurchase, "2024-01-05", 100, withOccurredAt(base.Add(2*time.Hour))),
		newEvent(projectID, "acme_TX1_PURCHASE_DELAYED", model.EventTypePurchase, "2024-01-05", 100, withOccurredAt(base.Add(time.Hour))),
		newEvent(projectID, "acme_TX2_PURCHASE_APPROVED", model.EventTypePurchase, "2024-01-05", 80, withOccurredAt(base)),
	}

	rows := Merger{ProducerShare: decimal.RequireFromString("0.46")}.Merge(events, nil)
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}

	seen := map[string]bool{}
	for _, r := range rows {
		if seen[r.TransactionID] {
			t.Fatalf("transaction %s appears twice", r.TransactionID)
		}
		seen[r.TransactionID] = true
	}
	if rows[0].TransactionID != "TX1" || rows[0].EventID != "acme_TX1_PURCHASE_COMPLETE" {
		t.Fatalf("expected latest TX1 event to win, got %s", rows[0].EventID)
	}
}

func TestMergeTieOnOccurredAtPicksGreaterEventID(t *testing.T) {
	projectID := uuid.New()
	at := time.Date(2024, 1, 5, 10, 0, 0, 0, time.UTC)
	events := []model.LedgerEvent{
		newEvent(projectID, "acme_TX1_PURCHASE_B", model.EventTypePurchase, "2024-01-05", 1, withOccurredAt(at)),
		newEvent(projectID, "acme_TX1_PURCHASE_A", model.EventTypePurchase, "2024-01-05", 1, withOccurredAt(at)),
	}
	latest := LatestPerTransaction(events)
	if len(latest) != 1 || latest[0].EventID != "acme_TX1_PURCHASE_B" {
		t.Fatalf("expected acme_TX1_PURCHASE_B, got %+v", latest)
	}
}

func TestReconcileIdentityFallback(t *testing.T) {
	projectID := uuid.New()
	ev := newEvent(projectID, "acme_TX9_PURCHASE_APPROVED", model.EventTypePurchase, "2024-01-05", 100,
		withPayload(map[string]interface{}{
			"data": map[string]interface{}{
				"buyer":   map[string]interface{}{"email": "payload@example.com"},
				"product": map[string]interface{}{"id": "P-PAYLOAD"},
			},
		}))
	m := Merger{ProducerShare: decimal.RequireFromString("0.46")}

	row := m.Reconcile(ev, nil)
	if row.BuyerEmail != "payload@example.com" || row.ProductID != "P-PAYLOAD" {
		t.Fatalf("expected payload identity, got %+v", row)
	}
	if row.BuyerName != Placeholder || row.ProductName != Placeholder || row.OfferCode != Placeholder {
		t.Fatalf("expected placeholders for unknown fields, got %+v", row)
	}
	if row.HasLegacy {
		t.Fatalf("expected no legacy match")
	}

	row = m.Reconcile(ev, &model.LegacySale{TransactionID: "TX9", BuyerName: "Ana", BuyerEmail: "ana@example.com", NetRevenue: decimal.NewFromInt(70)})
	if row.BuyerName != "Ana" || row.BuyerEmail != "ana@example.com" || row.ProductID != "P-PAYLOAD" {
		t.Fatalf("expected legacy identity with payload fill-in, got %+v", row)
	}
	if !row.NetAmount.Equal(decimal.NewFromInt(70)) || row.NetSource != model.NetFromLegacy {
		t.Fatalf("expected legacy net 70, got %s (%s)", row.NetAmount, row.NetSource)
	}
}

func TestReconcileReportsBadPayload(t *testing.T) {
	ev := newEvent(uuid.New(), "acme_TX1_PURCHASE_APPROVED", model.EventTypePurchase, "2024-01-05", 100)
	ev.RawPayload = json.RawMessage(`{broken`)

	var reported string
	m := Merger{OnBadPayload: func(id string) { reported = id }}
	row := m.Reconcile(ev, nil)
	if reported != ev.EventID {
		t.Fatalf("expected bad payload to be reported")
	}
	if row.BuyerEmail != Placeholder {
		t.Fatalf("expected placeholder buyer, got %q", row.BuyerEmail)
	}
}

func TestResolveAttributionPerField(t *testing.T) {
	legacy := &model.LegacySale{
		UTMSource:   "facebook",
		Attribution: "google|adset-legacy|camp-legacy||",
	}
	var payload ledgerPayload
	payload.Data.Purchase.Origin.Sck = "x|y|z|feed|video-1"

	got := ResolveAttribution(legacy, payload)
	want := Attribution{
		Source:    "facebook",
		Adset:     "adset-legacy",
		Campaign:  "camp-legacy",
		Placement: "feed",
		Creative:  "video-1",
	}
	if got != want {
		t.Fatalf("expected %+v, got %+v", want, got)
	}

	if got := ResolveAttribution(nil, payload); got.Source != "x" || got.Creative != "video-1" {
		t.Fatalf("expected payload attribution, got %+v", got)
	}
}

func TestParseAttributionShortString(t *testing.T) {
	got := ParseAttribution("ig|set")
	if got.Source != "ig" || got.Adset != "set" || got.Campaign != "" || got.Creative != "" {
		t.Fatalf("unexpected attribution %+v", got)
	}
}
