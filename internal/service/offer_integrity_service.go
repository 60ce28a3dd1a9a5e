package service

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"salesboard/internal/model"
	"salesboard/internal/repository"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const integritySampleSize = 10

// emptyOrigin labels mappings with no origin in the by-origin breakdown.
const emptyOrigin = "(vazio)"

// genericOfferNames are placeholder names written by bulk imports.
var genericOfferNames = map[string]struct{}{
	"auto-importado":                      {},
	"auto-importado de vendas existentes": {},
	"importado das vendas":                {},
}

var whitespaceRe = regexp.MustCompile(`\s+`)

func normalizeName(s string) string {
	return whitespaceRe.ReplaceAllString(strings.ToLower(strings.TrimSpace(s)), " ")
}

type OfferIntegrityService interface {
	Report(ctx context.Context, projectID uuid.UUID) (model.OfferIntegrityReport, error)
	ReportAll(ctx context.Context) ([]model.OfferIntegrityReport, error)
}

type offerIntegrityService struct {
	offerRepo repository.OfferMappingRepository
	log       logrus.FieldLogger
	now       func() time.Time
}

func NewOfferIntegrityService(offerRepo repository.OfferMappingRepository, log logrus.FieldLogger) OfferIntegrityService {
	return &offerIntegrityService{offerRepo: offerRepo, log: log, now: time.Now}
}

func (s *offerIntegrityService) Report(ctx context.Context, projectID uuid.UUID) (model.OfferIntegrityReport, error) {
	if projectID == uuid.Nil {
		return model.OfferIntegrityReport{}, ErrEmptyProject
	}
	funnels, err := s.offerRepo.ListFunnels(ctx, projectID)
	if err != nil {
		return model.OfferIntegrityReport{}, err
	}
	offers, err := s.offerRepo.ListByProject(ctx, projectID)
	if err != nil {
		return model.OfferIntegrityReport{}, err
	}

	report := BuildIntegrityReport(funnels, offers)
	report.ProjectID = projectID
	report.GeneratedAt = s.now()
	return report, nil
}

// ReportAll builds a report for every project with funnels. A failing project
// is logged and skipped.
func (s *offerIntegrityService) ReportAll(ctx context.Context) ([]model.OfferIntegrityReport, error) {
	ids, err := s.offerRepo.ListProjectIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}

	reports := make([]model.OfferIntegrityReport, 0, len(ids))
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return reports, err
		}
		r, err := s.Report(ctx, id)
		if err != nil {
			s.log.WithField("project_id", id).Errorf("offer integrity report failed: %v", err)
			continue
		}
		reports = append(reports, r)
	}
	return reports, nil
}

// BuildIntegrityReport checks one project's offer mappings against its
// funnels. A funnel id is invalid when it names no funnel of the project.
func BuildIntegrityReport(funnels []model.Funnel, offers []model.OfferMapping) model.OfferIntegrityReport {
	report := model.OfferIntegrityReport{
		Totals: model.OfferIntegrityTotals{Funnels: len(funnels), Offers: len(offers)},
		Semantics: model.OfferSemanticsSummary{
			ByOrigin: map[string]int{},
		},
		Samples: model.OfferIntegritySamples{
			InvalidFunnelIDs:     map[string]int{},
			FunnelsWithoutOffers: []model.FunnelRef{},
			TopDuplicateGroups:   []model.OfferDuplicateGroup{},
		},
		Remediation: model.OfferRemediation{
			BackfillSamples: []model.OfferBackfillHint{},
		},
	}

	known := make(map[uuid.UUID]struct{}, len(funnels))
	byName := map[string][]uuid.UUID{}
	for _, f := range funnels {
		known[f.ID] = struct{}{}
		name := normalizeName(f.Name)
		byName[name] = append(byName[name], f.ID)
	}

	used := map[uuid.UUID]struct{}{}
	type groupKey struct{ project, funnel, product, offer string }
	groups := map[groupKey][]model.OfferMapping{}
	var order []groupKey

	for _, o := range offers {
		c := &report.Integrity
		if o.FunnelID == nil {
			c.OffersMissingFunnelID++
			remediate(&report.Remediation, o, byName)
		} else {
			used[*o.FunnelID] = struct{}{}
			if _, ok := known[*o.FunnelID]; !ok {
				c.OffersWithInvalidFunnelID++
				report.Samples.InvalidFunnelIDs[o.FunnelID.String()]++
				report.Remediation.NeedsReassignment++
			}
		}
		if o.ProjectID == nil {
			c.OffersMissingProjectID++
		}
		if strings.TrimSpace(o.ProductName) == "" {
			c.OffersMissingProductName++
		}
		if strings.TrimSpace(o.OfferName) == "" {
			c.OffersMissingOfferName++
		}

		if _, ok := genericOfferNames[normalizeName(o.OfferName)]; ok {
			report.Semantics.GenericOfferNames++
		}
		origin := strings.TrimSpace(o.Origin)
		if origin == "" {
			origin = emptyOrigin
		}
		report.Semantics.ByOrigin[origin]++

		k := groupKey{
			project: normalizeName(uuidString(o.ProjectID)),
			funnel:  normalizeName(uuidString(o.FunnelID)),
			product: normalizeName(o.ProductName),
			offer:   normalizeName(o.OfferName),
		}
		if _, ok := groups[k]; !ok {
			order = append(order, k)
		}
		groups[k] = append(groups[k], o)
	}

	for _, f := range funnels {
		if _, ok := used[f.ID]; ok {
			continue
		}
		report.Integrity.FunnelsWithoutOffers++
		if len(report.Samples.FunnelsWithoutOffers) < integritySampleSize {
			report.Samples.FunnelsWithoutOffers = append(report.Samples.FunnelsWithoutOffers, model.FunnelRef{ID: f.ID, Name: f.Name})
		}
	}

	var dups [][]model.OfferMapping
	for _, k := range order {
		if rows := groups[k]; len(rows) > 1 {
			dups = append(dups, rows)
			report.Duplicates.Groups++
			report.Duplicates.ExtraRows += len(rows) - 1
		}
	}
	sort.SliceStable(dups, func(i, j int) bool { return len(dups[i]) > len(dups[j]) })
	for i, rows := range dups {
		if i == integritySampleSize {
			break
		}
		report.Samples.TopDuplicateGroups = append(report.Samples.TopDuplicateGroups, model.OfferDuplicateGroup{
			Count:       len(rows),
			FunnelID:    uuidString(rows[0].FunnelID),
			ProductName: rows[0].ProductName,
			OfferName:   rows[0].OfferName,
		})
	}

	return report
}

// remediate classifies a mapping without a funnel id.
func remediate(r *model.OfferRemediation, o model.OfferMapping, byName map[string][]uuid.UUID) {
	name := normalizeName(o.LegacyFunnelName)
	matches := byName[name]
	if name == "" || len(matches) != 1 {
		r.NeedsReassignment++
		return
	}
	r.BackfillableByLegacyName++
	if len(r.BackfillSamples) < integritySampleSize {
		r.BackfillSamples = append(r.BackfillSamples, model.OfferBackfillHint{
			OfferMappingID:   o.ID,
			OfferCode:        o.OfferCode,
			LegacyFunnelName: o.LegacyFunnelName,
			FunnelID:         matches[0],
		})
	}
}

func uuidString(id *uuid.UUID) string {
	if id == nil {
		return ""
	}
	return id.String()
}
