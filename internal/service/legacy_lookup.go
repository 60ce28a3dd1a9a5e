package service

import (
	"context"
	"time"

	"salesboard/internal/logger"
	"salesboard/internal/metrics"
	"salesboard/internal/model"
	"salesboard/internal/repository"

	"github.com/google/uuid"
	"github.com/graph-gophers/dataloader/v7"
	"github.com/sirupsen/logrus"
)

// legacyLookup fetches legacy sales for a set of transaction ids, splitting
// the ids into batches no larger than the source's row cap.
type legacyLookup struct {
	repo    repository.LegacySaleRepository
	batch   int
	timeout time.Duration
	log     logrus.FieldLogger
}

// Find never fails: ids whose batch errored are reported and treated as
// having no legacy record.
func (l legacyLookup) Find(ctx context.Context, projectID uuid.UUID, ids []string) map[string]*model.LegacySale {
	out := map[string]*model.LegacySale{}
	keys := uniqueStrings(ids)
	if len(keys) == 0 {
		return out
	}

	loader := dataloader.NewBatchedLoader(l.batchFn(projectID),
		dataloader.WithBatchCapacity[string, *model.LegacySale](l.batch),
		dataloader.WithWait[string, *model.LegacySale](time.Millisecond),
		dataloader.WithCache[string, *model.LegacySale](&dataloader.NoCache[string, *model.LegacySale]{}),
	)
	values, errs := loader.LoadMany(ctx, keys)()

	var firstErr error
	failed := 0
	for i, key := range keys {
		if i < len(errs) && errs[i] != nil {
			failed++
			if firstErr == nil {
				firstErr = errs[i]
			}
			continue
		}
		if i < len(values) && values[i] != nil {
			out[key] = values[i]
		}
	}
	if firstErr != nil {
		metrics.LegacyLookupFailures.Inc()
		logger.LogError(l.log, "sales", "legacyLookup.Find", "legacy lookup failed, continuing without legacy data",
			map[string]interface{}{"project_id": projectID, "failed_ids": failed}, firstErr)
	}
	return out
}

func (l legacyLookup) batchFn(projectID uuid.UUID) dataloader.BatchFunc[string, *model.LegacySale] {
	return func(ctx context.Context, ids []string) []*dataloader.Result[*model.LegacySale] {
		if l.timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, l.timeout)
			defer cancel()
		}

		results := make([]*dataloader.Result[*model.LegacySale], len(ids))
		sales, err := l.repo.FindByTransactionIDs(ctx, projectID, ids)
		if err != nil {
			for i := range ids {
				results[i] = &dataloader.Result[*model.LegacySale]{Error: err}
			}
			return results
		}

		// rows arrive newest first; the first row per id wins
		byID := make(map[string]*model.LegacySale, len(sales))
		for i := range sales {
			if _, ok := byID[sales[i].TransactionID]; !ok {
				byID[sales[i].TransactionID] = &sales[i]
			}
		}
		for i, id := range ids {
			results[i] = &dataloader.Result[*model.LegacySale]{Data: byID[id]}
		}
		return results
	}
}

func uniqueStrings(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if _, ok := seen[v]; ok || v == "" {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
