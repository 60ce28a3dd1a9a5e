package service

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"sync"
	"time"

	"salesboard/internal/model"
	"salesboard/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

func testLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func testOptions() SalesOptions {
	return SalesOptions{
		Location:      time.UTC,
		RowCap:        1000,
		ProducerShare: decimal.RequireFromString("0.46"),
		ChunkTimeout:  time.Second,
		RetryMax:      1,
		RetryBase:     time.Millisecond,
		ExportMaxRows: 50000,
	}
}

func day(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

type eventOpt func(*model.LedgerEvent)

func withNet(v int64) eventOpt {
	return func(e *model.LedgerEvent) { e.NetAmount = decimal.NewFromInt(v) }
}

func withPayload(v interface{}) eventOpt {
	return func(e *model.LedgerEvent) {
		b, err := json.Marshal(v)
		if err != nil {
			panic(err)
		}
		e.RawPayload = b
	}
}

func withOccurredAt(t time.Time) eventOpt {
	return func(e *model.LedgerEvent) { e.OccurredAt = t }
}

func newEvent(projectID uuid.UUID, eventID, eventType, businessDate string, gross int64, opts ...eventOpt) model.LedgerEvent {
	bd := day(businessDate)
	e := model.LedgerEvent{
		ID:           uuid.New(),
		ProjectID:    projectID,
		EventID:      eventID,
		Provider:     "acme",
		EventType:    eventType,
		GrossAmount:  decimal.NewFromInt(gross),
		NetAmount:    decimal.Zero,
		Currency:     "BRL",
		BusinessDate: bd,
		OccurredAt:   bd.Add(12 * time.Hour),
	}
	for _, opt := range opts {
		opt(&e)
	}
	return e
}

func purchasePayload(email, sck string) map[string]interface{} {
	return map[string]interface{}{
		"data": map[string]interface{}{
			"buyer":    map[string]interface{}{"name": "Buyer " + email, "email": email},
			"product":  map[string]interface{}{"id": "P1", "name": "Course"},
			"purchase": map[string]interface{}{"offer": map[string]interface{}{"code": "OFF1"}, "origin": map[string]interface{}{"sck": sck}},
		},
	}
}

// stubLedgerRepo evaluates SalesQuery in memory the way the SQL does:
// filter, keep the latest event per transaction, then order.
type stubLedgerRepo struct {
	mu      sync.Mutex
	events  []model.LedgerEvent
	countFn func() (int64, error)
	pageErr error
	scanErr error

	countCalls int
	pageCalls  int
	scanCalls  int
}

func (r *stubLedgerRepo) latest(q repository.SalesQuery) []model.LedgerEvent {
	types := map[string]bool{}
	for _, t := range q.EventTypes {
		types[t] = true
	}
	accounts := map[string]bool{}
	for _, a := range q.AccountIDs {
		accounts[a] = true
	}
	from, to := q.From.Format("2006-01-02"), q.To.Format("2006-01-02")

	byTx := map[string]model.LedgerEvent{}
	for _, e := range r.events {
		bd := e.BusinessDate.Format("2006-01-02")
		if e.ProjectID != q.ProjectID || bd < from || bd > to || !types[e.EventType] {
			continue
		}
		if len(accounts) > 0 && !accounts[e.AccountID] {
			continue
		}
		id := ResolveTransactionID(e.EventID)
		cur, ok := byTx[id]
		if !ok || e.OccurredAt.After(cur.OccurredAt) || (e.OccurredAt.Equal(cur.OccurredAt) && e.EventID > cur.EventID) {
			byTx[id] = e
		}
	}
	out := make([]model.LedgerEvent, 0, len(byTx))
	for _, e := range byTx {
		out = append(out, e)
	}
	return out
}

func window[T any](rows []T, offset, limit int) []T {
	if offset >= len(rows) {
		return nil
	}
	end := offset + limit
	if end > len(rows) {
		end = len(rows)
	}
	return rows[offset:end]
}

func (r *stubLedgerRepo) Count(ctx context.Context, q repository.SalesQuery) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.countCalls++
	if r.countFn != nil {
		return r.countFn()
	}
	return int64(len(r.latest(q))), nil
}

func (r *stubLedgerRepo) FetchPage(ctx context.Context, q repository.SalesQuery, offset, limit int) ([]model.LedgerEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pageCalls++
	if r.pageErr != nil {
		return nil, r.pageErr
	}
	rows := r.latest(q)
	sort.Slice(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		if !a.BusinessDate.Equal(b.BusinessDate) {
			return a.BusinessDate.After(b.BusinessDate)
		}
		if !a.OccurredAt.Equal(b.OccurredAt) {
			return a.OccurredAt.After(b.OccurredAt)
		}
		return ResolveTransactionID(a.EventID) > ResolveTransactionID(b.EventID)
	})
	return window(rows, offset, limit), nil
}

func (r *stubLedgerRepo) ScanTotals(ctx context.Context, q repository.SalesQuery, offset, limit int) ([]repository.LedgerTotalsRow, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.scanCalls++
	if r.scanErr != nil {
		return nil, r.scanErr
	}
	events := r.latest(q)
	sort.Slice(events, func(i, j int) bool {
		return ResolveTransactionID(events[i].EventID) < ResolveTransactionID(events[j].EventID)
	})
	var rows []repository.LedgerTotalsRow
	for _, e := range window(events, offset, limit) {
		p, _ := parsePayload(e.RawPayload)
		rows = append(rows, repository.LedgerTotalsRow{
			EventID:           e.EventID,
			EventType:         e.EventType,
			GrossAmount:       e.GrossAmount,
			NetAmount:         e.NetAmount,
			PayloadBuyerEmail: string(p.Data.Buyer.Email),
		})
	}
	return rows, nil
}

type stubLegacyRepo struct {
	mu      sync.Mutex
	sales   []model.LegacySale
	err     error
	batches []int
}

func (r *stubLegacyRepo) FindByTransactionIDs(ctx context.Context, projectID uuid.UUID, ids []string) ([]model.LegacySale, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.batches = append(r.batches, len(ids))
	if r.err != nil {
		return nil, r.err
	}
	want := map[string]bool{}
	for _, id := range ids {
		want[id] = true
	}
	var out []model.LegacySale
	for _, s := range r.sales {
		if s.ProjectID == projectID && want[s.TransactionID] {
			out = append(out, s)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].UpdatedAt.After(out[j].UpdatedAt) })
	return out, nil
}

type stubOfferRepo struct {
	funnelOffers map[uuid.UUID][]string
	funnels      map[uuid.UUID][]model.Funnel
	mappings     map[uuid.UUID][]model.OfferMapping
	projects     []uuid.UUID
	err          error
}

func (r *stubOfferRepo) OfferCodesByFunnels(ctx context.Context, projectID uuid.UUID, funnelIDs []uuid.UUID) ([]string, error) {
	if r.err != nil {
		return nil, r.err
	}
	var out []string
	for _, id := range funnelIDs {
		out = append(out, r.funnelOffers[id]...)
	}
	return out, nil
}

func (r *stubOfferRepo) ListByProject(ctx context.Context, projectID uuid.UUID) ([]model.OfferMapping, error) {
	if r.err != nil {
		return nil, r.err
	}
	return r.mappings[projectID], nil
}

func (r *stubOfferRepo) ListFunnels(ctx context.Context, projectID uuid.UUID) ([]model.Funnel, error) {
	if r.err != nil {
		return nil, r.err
	}
	return r.funnels[projectID], nil
}

func (r *stubOfferRepo) ListProjectIDs(ctx context.Context) ([]uuid.UUID, error) {
	if r.err != nil {
		return nil, r.err
	}
	return r.projects, nil
}

func newTestSalesService(ledger *stubLedgerRepo, legacy *stubLegacyRepo, offers *stubOfferRepo, opts SalesOptions) *salesService {
	if legacy == nil {
		legacy = &stubLegacyRepo{}
	}
	if offers == nil {
		offers = &stubOfferRepo{}
	}
	svc := NewSalesService(ledger, legacy, offers, nil, opts, testLogger()).(*salesService)
	svc.now = func() time.Time { return time.Date(2024, 1, 31, 15, 0, 0, 0, time.UTC) }
	return svc
}

func manyPurchases(projectID uuid.UUID, n int) []model.LedgerEvent {
	events := make([]model.LedgerEvent, 0, n)
	for i := 0; i < n; i++ {
		events = append(events, newEvent(projectID,
			fmt.Sprintf("acme_TX%05d_PURCHASE_APPROVED", i), model.EventTypePurchase,
			fmt.Sprintf("2024-01-%02d", i%28+1), 10,
			withPayload(purchasePayload(fmt.Sprintf("buyer%d@example.com", i%7), "")),
		))
	}
	return events
}
