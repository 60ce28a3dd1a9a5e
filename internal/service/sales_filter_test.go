package service

import (
	"errors"
	"reflect"
	"testing"
	"time"

	"salesboard/internal/model"

	"github.com/google/uuid"
)

func TestEventTypesForStatuses(t *testing.T) {
	cases := []struct {
		name     string
		statuses []string
		want     []string
	}{
		{"no status defaults to purchases", nil, []string{model.EventTypePurchase}},
		{"blank entries are ignored", []string{" ", ""}, []string{model.EventTypePurchase}},
		{"aliases collapse", []string{"Approved", " completed ", "complete"}, []string{model.EventTypePurchase}},
		{"several types sorted", []string{"refunded", "canceled", "chargeback"}, []string{model.EventTypeCancellation, model.EventTypeChargeback, model.EventTypeRefund}},
		{"unknown only", []string{"pending"}, []string{}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := EventTypesForStatuses(tc.statuses)
			if !reflect.DeepEqual(got, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, got)
			}
		})
	}
}

func TestNormalizeFilterDefaultsToCurrentMonth(t *testing.T) {
	loc, err := time.LoadLocation("America/Sao_Paulo")
	if err != nil {
		t.Skipf("timezone database unavailable: %v", err)
	}
	// 01:30 UTC on March 1st is still February 29th in São Paulo
	now := time.Date(2024, 3, 1, 1, 30, 0, 0, time.UTC)

	nf, err := NormalizeFilter(uuid.New(), model.SalesFilter{}, loc, now, nil)
	if err != nil {
		t.Fatalf("normalize returned error: %v", err)
	}
	if got := nf.query.From.Format("2006-01-02"); got != "2024-02-01" {
		t.Fatalf("expected from 2024-02-01, got %s", got)
	}
	if got := nf.query.To.Format("2006-01-02"); got != "2024-02-29" {
		t.Fatalf("expected to 2024-02-29, got %s", got)
	}
	if !reflect.DeepEqual(nf.query.EventTypes, []string{model.EventTypePurchase}) {
		t.Fatalf("expected purchase-only default, got %v", nf.query.EventTypes)
	}
	if nf.post.active() {
		t.Fatalf("expected no post-merge predicates")
	}
}

func TestNormalizeFilterValidation(t *testing.T) {
	now := time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)

	if _, err := NormalizeFilter(uuid.Nil, model.SalesFilter{}, time.UTC, now, nil); !errors.Is(err, ErrEmptyProject) {
		t.Fatalf("expected ErrEmptyProject, got %v", err)
	}

	bad := []model.SalesFilter{
		{StartDate: "2024-01-10", EndDate: "2024-01-01"},
		{StartDate: "10/01/2024"},
		{EndDate: "2024-13-01"},
	}
	for _, f := range bad {
		if _, err := NormalizeFilter(uuid.New(), f, time.UTC, now, nil); !errors.Is(err, ErrInvalidFilter) {
			t.Fatalf("expected ErrInvalidFilter for %+v, got %v", f, err)
		}
	}

	if _, err := FunnelIDs(model.SalesFilter{FunnelIDs: []string{"not-a-uuid"}}); !errors.Is(err, ErrInvalidFilter) {
		t.Fatalf("expected ErrInvalidFilter for funnel id, got %v", err)
	}

	// an end date in an earlier month than today starts at that month's first day
	later := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)
	nf, err := NormalizeFilter(uuid.New(), model.SalesFilter{EndDate: "2024-01-31"}, time.UTC, later, nil)
	if err != nil {
		t.Fatalf("expected an end date alone to be valid, got %v", err)
	}
	if !nf.query.From.Equal(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)) || !nf.query.To.Equal(time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("expected January 2024, got %s to %s", nf.query.From, nf.query.To)
	}
}

func TestNormalizeFilterUnknownStatusesMatchNothing(t *testing.T) {
	nf, err := NormalizeFilter(uuid.New(), model.SalesFilter{Statuses: []string{"pending"}}, time.UTC, time.Now(), nil)
	if err != nil {
		t.Fatalf("normalize returned error: %v", err)
	}
	if !nf.query.Empty {
		t.Fatalf("expected an empty query")
	}
}

func TestNormalizeFilterOfferCodes(t *testing.T) {
	funnel := uuid.NewString()
	now := time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)

	t.Run("funnel and explicit codes intersect", func(t *testing.T) {
		f := model.SalesFilter{FunnelIDs: []string{funnel}, OfferCodes: []string{"B", "C"}}
		nf, err := NormalizeFilter(uuid.New(), f, time.UTC, now, []string{"A", "B"})
		if err != nil {
			t.Fatalf("normalize returned error: %v", err)
		}
		if nf.query.Empty {
			t.Fatalf("expected a non-empty query")
		}
		if !reflect.DeepEqual(nf.post.offerCodes, map[string]struct{}{"B": {}}) {
			t.Fatalf("expected offer set {B}, got %v", nf.post.offerCodes)
		}
	})

	t.Run("disjoint sets select nothing", func(t *testing.T) {
		f := model.SalesFilter{FunnelIDs: []string{funnel}, OfferCodes: []string{"C"}}
		nf, err := NormalizeFilter(uuid.New(), f, time.UTC, now, []string{"A"})
		if err != nil {
			t.Fatalf("normalize returned error: %v", err)
		}
		if !nf.query.Empty {
			t.Fatalf("expected an empty query")
		}
	})

	t.Run("funnel without offers selects nothing", func(t *testing.T) {
		f := model.SalesFilter{FunnelIDs: []string{funnel}}
		nf, err := NormalizeFilter(uuid.New(), f, time.UTC, now, nil)
		if err != nil {
			t.Fatalf("normalize returned error: %v", err)
		}
		if !nf.query.Empty {
			t.Fatalf("expected an empty query")
		}
	})
}

func TestPostMergeFilterMatch(t *testing.T) {
	nf, err := NormalizeFilter(uuid.New(), model.SalesFilter{
		ProductIDs: []string{"P1"},
		UTMSource:  "FaceBook",
	}, time.UTC, time.Now(), nil)
	if err != nil {
		t.Fatalf("normalize returned error: %v", err)
	}

	rows := []model.SaleTransaction{
		{TransactionID: "1", ProductID: "P1", UTMSource: "facebook-ads"},
		{TransactionID: "2", ProductID: "P2", UTMSource: "facebook"},
		{TransactionID: "3", ProductID: "P1", UTMSource: "google"},
	}
	got := applyPostMerge(rows, nf.post)
	if len(got) != 1 || got[0].TransactionID != "1" {
		t.Fatalf("expected only transaction 1, got %+v", got)
	}
}
