package service

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"salesboard/internal/model"
	"salesboard/internal/repository"

	"github.com/google/uuid"
)

var (
	ErrInvalidFilter = errors.New("invalid sales filter")
	ErrEmptyProject  = errors.New("project id is required")
)

// statusEventTypes is the fixed domain-status → ledger event type table.
var statusEventTypes = map[string]string{
	model.StatusApproved:   model.EventTypePurchase,
	model.StatusComplete:   model.EventTypePurchase,
	"completed":            model.EventTypePurchase,
	model.StatusRefunded:   model.EventTypeRefund,
	model.StatusChargeback: model.EventTypeChargeback,
	model.StatusCancelled:  model.EventTypeCancellation,
	"canceled":             model.EventTypeCancellation,
}

// defaultEventTypes applies when the caller sends no status filter.
var defaultEventTypes = []string{model.EventTypePurchase}

// EventTypesForStatuses maps domain statuses to ledger event types. No
// statuses yields the purchase-only default. Unknown statuses are dropped; if
// nothing is left the result is empty and the filter matches no rows.
func EventTypesForStatuses(statuses []string) []string {
	seen := map[string]struct{}{}
	given := false
	for _, s := range statuses {
		s = strings.ToLower(strings.TrimSpace(s))
		if s == "" {
			continue
		}
		given = true
		if et, ok := statusEventTypes[s]; ok {
			seen[et] = struct{}{}
		}
	}
	if !given {
		return append([]string(nil), defaultEventTypes...)
	}

	out := make([]string, 0, len(seen))
	for et := range seen {
		out = append(out, et)
	}
	sort.Strings(out)
	return out
}

// postMergeFilter holds the predicates that can only be checked once ledger
// and legacy data are merged.
type postMergeFilter struct {
	productIDs     map[string]struct{}
	offerCodes     map[string]struct{}
	restrictOffers bool
	utmSource      string
	utmCampaign    string
	utmAdset       string
	utmPlacement   string
	utmCreative    string
}

func (p postMergeFilter) active() bool {
	return len(p.productIDs) > 0 || p.restrictOffers ||
		p.utmSource != "" || p.utmCampaign != "" || p.utmAdset != "" ||
		p.utmPlacement != "" || p.utmCreative != ""
}

func (p postMergeFilter) match(tx model.SaleTransaction) bool {
	if len(p.productIDs) > 0 {
		if _, ok := p.productIDs[tx.ProductID]; !ok {
			return false
		}
	}
	if p.restrictOffers {
		if _, ok := p.offerCodes[tx.OfferCode]; !ok {
			return false
		}
	}
	return containsFold(tx.UTMSource, p.utmSource) &&
		containsFold(tx.UTMCampaign, p.utmCampaign) &&
		containsFold(tx.UTMAdset, p.utmAdset) &&
		containsFold(tx.UTMPlacement, p.utmPlacement) &&
		containsFold(tx.UTMCreative, p.utmCreative)
}

// containsFold is a case-insensitive substring match; an empty needle matches.
func containsFold(value, needle string) bool {
	if needle == "" {
		return true
	}
	return strings.Contains(strings.ToLower(value), needle)
}

// normalizedFilter is what every query path of one fetch cycle consumes.
type normalizedFilter struct {
	query repository.SalesQuery
	post  postMergeFilter
}

// FunnelIDs parses the funnel filter; it is resolved to offer codes before
// NormalizeFilter runs.
func FunnelIDs(f model.SalesFilter) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	for _, raw := range f.FunnelIDs {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		id, err := uuid.Parse(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: funnel id %q", ErrInvalidFilter, raw)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// NormalizeFilter turns the caller's filter into the source predicate set and
// the post-merge predicates. funnelOffers are the offer codes of the funnels
// in f.FunnelIDs; they are ignored when no funnel filter is set. Missing dates
// default to the current month up to today, in loc; an end date alone starts
// at the first day of its month.
func NormalizeFilter(projectID uuid.UUID, f model.SalesFilter, loc *time.Location, now time.Time, funnelOffers []string) (normalizedFilter, error) {
	if projectID == uuid.Nil {
		return normalizedFilter{}, ErrEmptyProject
	}

	today := now.In(loc)
	from := time.Date(today.Year(), today.Month(), 1, 0, 0, 0, 0, loc)
	to := time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, loc)
	var err error
	if s := strings.TrimSpace(f.StartDate); s != "" {
		if from, err = time.ParseInLocation("2006-01-02", s, loc); err != nil {
			return normalizedFilter{}, fmt.Errorf("%w: start_date %q, expected YYYY-MM-DD", ErrInvalidFilter, s)
		}
	}
	if s := strings.TrimSpace(f.EndDate); s != "" {
		if to, err = time.ParseInLocation("2006-01-02", s, loc); err != nil {
			return normalizedFilter{}, fmt.Errorf("%w: end_date %q, expected YYYY-MM-DD", ErrInvalidFilter, s)
		}
		if strings.TrimSpace(f.StartDate) == "" {
			from = time.Date(to.Year(), to.Month(), 1, 0, 0, 0, 0, loc)
		}
	}
	if to.Before(from) {
		return normalizedFilter{}, fmt.Errorf("%w: end_date before start_date", ErrInvalidFilter)
	}

	eventTypes := EventTypesForStatuses(f.Statuses)
	nf := normalizedFilter{
		query: repository.SalesQuery{
			ProjectID:  projectID,
			From:       from,
			To:         to,
			EventTypes: eventTypes,
			AccountIDs: trimmed(f.AccountIDs),
			Empty:      len(eventTypes) == 0,
		},
		post: postMergeFilter{
			productIDs:   toSet(f.ProductIDs),
			utmSource:    strings.ToLower(strings.TrimSpace(f.UTMSource)),
			utmCampaign:  strings.ToLower(strings.TrimSpace(f.UTMCampaign)),
			utmAdset:     strings.ToLower(strings.TrimSpace(f.UTMAdset)),
			utmPlacement: strings.ToLower(strings.TrimSpace(f.UTMPlacement)),
			utmCreative:  strings.ToLower(strings.TrimSpace(f.UTMCreative)),
		},
	}

	explicit := toSet(f.OfferCodes)
	hasFunnel := len(trimmed(f.FunnelIDs)) > 0
	switch {
	case hasFunnel && len(explicit) > 0:
		nf.post.restrictOffers = true
		nf.post.offerCodes = intersect(explicit, toSet(funnelOffers))
	case hasFunnel:
		nf.post.restrictOffers = true
		nf.post.offerCodes = toSet(funnelOffers)
	case len(explicit) > 0:
		nf.post.restrictOffers = true
		nf.post.offerCodes = explicit
	}
	if nf.post.restrictOffers && len(nf.post.offerCodes) == 0 {
		nf.query.Empty = true
	}

	return nf, nil
}

func trimmed(values []string) []string {
	var out []string
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func toSet(values []string) map[string]struct{} {
	set := map[string]struct{}{}
	for _, v := range trimmed(values) {
		set[v] = struct{}{}
	}
	return set
}

func intersect(a, b map[string]struct{}) map[string]struct{} {
	out := map[string]struct{}{}
	for k := range a {
		if _, ok := b[k]; ok {
			out[k] = struct{}{}
		}
	}
	return out
}
