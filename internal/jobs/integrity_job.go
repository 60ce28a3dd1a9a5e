package jobs

import (
	"context"
	"fmt"
	"time"

	"salesboard/internal/logger"
	"salesboard/internal/service"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

const integrityRunTimeout = 5 * time.Minute

// IntegrityJob logs an offer mapping integrity summary for every project.
type IntegrityJob struct {
	svc service.OfferIntegrityService
	log logrus.FieldLogger
}

func NewIntegrityJob(svc service.OfferIntegrityService, log logrus.FieldLogger) *IntegrityJob {
	return &IntegrityJob{svc: svc, log: log.WithField("job", "offer_integrity")}
}

// Run builds every project's report and returns how many projects have
// at least one problem.
func (j *IntegrityJob) Run(ctx context.Context) (int, error) {
	reports, err := j.svc.ReportAll(ctx)
	if err != nil {
		logger.LogError(j.log, "jobs", "IntegrityJob.Run", "failed to build integrity reports", nil, err)
		return 0, err
	}

	flagged := 0
	for _, r := range reports {
		problems := r.Integrity.OffersMissingFunnelID +
			r.Integrity.OffersWithInvalidFunnelID +
			r.Integrity.OffersMissingProjectID +
			r.Integrity.OffersMissingProductName +
			r.Integrity.OffersMissingOfferName +
			r.Duplicates.ExtraRows

		entry := j.log.WithFields(logrus.Fields{
			"project_id":             r.ProjectID,
			"funnels":                r.Totals.Funnels,
			"offers":                 r.Totals.Offers,
			"invalid_funnel_ids":     r.Integrity.OffersWithInvalidFunnelID,
			"missing_funnel_ids":     r.Integrity.OffersMissingFunnelID,
			"funnels_without_offers": r.Integrity.FunnelsWithoutOffers,
			"duplicate_groups":       r.Duplicates.Groups,
			"generic_offer_names":    r.Semantics.GenericOfferNames,
			"backfillable":           r.Remediation.BackfillableByLegacyName,
			"needs_reassignment":     r.Remediation.NeedsReassignment,
		})
		if problems > 0 {
			flagged++
			entry.Warn("offer mappings need attention")
			continue
		}
		entry.Info("offer mappings consistent")
	}
	j.log.WithFields(logrus.Fields{"projects": len(reports), "flagged": flagged}).Info("integrity run finished")
	return flagged, nil
}

// Schedule registers the job on a cron running in loc. The caller starts
// and stops the returned cron.
func (j *IntegrityJob) Schedule(schedule string, loc *time.Location) (*cron.Cron, error) {
	c := cron.New(cron.WithLocation(loc))
	_, err := c.AddFunc(schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), integrityRunTimeout)
		defer cancel()
		j.log.Infof("Running offer integrity report at %s", time.Now().In(loc).Format(time.RFC3339))
		_, _ = j.Run(ctx)
	})
	if err != nil {
		return nil, fmt.Errorf("invalid integrity schedule %q: %w", schedule, err)
	}
	return c, nil
}
