package service

import (
	"context"
	"fmt"
	"io"
	"time"

	"salesboard/internal/logger"
	"salesboard/internal/metrics"
	"salesboard/internal/model"
	"salesboard/internal/repository"
	"salesboard/pkg/chunk"
	"salesboard/pkg/pagination"
	"salesboard/pkg/retry"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// --- DTOs ---

// SalesPage is one page of reconciled rows. In paged mode Totals only carries
// Loading=true; callers fetch totals separately.
type SalesPage struct {
	Rows       []model.SaleTransaction `json:"rows"`
	Pagination pagination.State        `json:"pagination"`
	Totals     model.SalesTotals       `json:"totals"`
}

type SalesOptions struct {
	Location      *time.Location
	RowCap        int
	ProducerShare decimal.Decimal
	ChunkTimeout  time.Duration
	RetryMax      int
	RetryBase     time.Duration
	ExportMaxRows int
}

// --- Interface ---

type SalesService interface {
	Page(ctx context.Context, projectID uuid.UUID, filter model.SalesFilter, page, pageSize int) (SalesPage, error)
	Totals(ctx context.Context, projectID uuid.UUID, filter model.SalesFilter) (model.SalesTotals, error)
	Export(ctx context.Context, projectID uuid.UUID, filter model.SalesFilter, w io.Writer) (int, error)
}

type salesService struct {
	ledgerRepo repository.LedgerRepository
	offerRepo  repository.OfferMappingRepository
	txManager  repository.TransactionManager
	opts       SalesOptions
	merger     Merger
	legacy     legacyLookup
	log        logrus.FieldLogger
	now        func() time.Time
}

func NewSalesService(
	ledgerRepo repository.LedgerRepository,
	legacyRepo repository.LegacySaleRepository,
	offerRepo repository.OfferMappingRepository,
	txManager repository.TransactionManager,
	opts SalesOptions,
	log logrus.FieldLogger,
) SalesService {
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.RowCap <= 0 || opts.RowCap > chunk.MaxSize {
		opts.RowCap = chunk.MaxSize
	}

	s := &salesService{
		ledgerRepo: ledgerRepo,
		offerRepo:  offerRepo,
		txManager:  txManager,
		opts:       opts,
		log:        log,
		now:        time.Now,
		legacy: legacyLookup{
			repo:    legacyRepo,
			batch:   opts.RowCap,
			timeout: opts.ChunkTimeout,
			log:     log,
		},
	}
	s.merger = Merger{
		ProducerShare: opts.ProducerShare,
		OnBadPayload: func(eventID string) {
			s.log.WithField("event_id", eventID).Warn("ledger payload is not valid JSON, using placeholders")
		},
	}
	return s
}

// --- Implementation ---

func (s *salesService) retryFor(query string) retry.Backoff {
	b := retry.New(s.opts.RetryBase, s.opts.RetryMax).WithTimeout(s.opts.ChunkTimeout)
	b.OnRetry = func(attempt int, err error) {
		metrics.SourceRetries.WithLabelValues(query).Inc()
		s.log.WithFields(logrus.Fields{"query": query, "attempt": attempt}).Warnf("retrying source query: %v", err)
	}
	return b
}

func (s *salesService) scanner(scan string) chunk.Scanner {
	return chunk.Scanner{
		Size:    s.opts.RowCap,
		MaxSize: s.opts.RowCap,
		Retry:   s.retryFor(scan),
		OnChunk: func(offset, rows int) {
			metrics.ChunksFetched.WithLabelValues(scan).Inc()
		},
	}
}

func (s *salesService) snapshot(ctx context.Context, fn func(ctx context.Context) error) error {
	if s.txManager == nil {
		return fn(ctx)
	}
	return s.txManager.RunInSnapshot(ctx, fn)
}

// prepare resolves funnel ids to offer codes and normalizes the filter.
func (s *salesService) prepare(ctx context.Context, projectID uuid.UUID, filter model.SalesFilter) (normalizedFilter, error) {
	if projectID == uuid.Nil {
		return normalizedFilter{}, ErrEmptyProject
	}
	funnelIDs, err := FunnelIDs(filter)
	if err != nil {
		return normalizedFilter{}, err
	}

	var offers []string
	if len(funnelIDs) > 0 {
		err := s.retryFor("funnel_offers").Do(ctx, func(ctx context.Context, _ int) error {
			var err error
			offers, err = s.offerRepo.OfferCodesByFunnels(ctx, projectID, funnelIDs)
			return err
		})
		if err != nil {
			return normalizedFilter{}, fmt.Errorf("resolve funnel offers: %w", err)
		}
	}
	return NormalizeFilter(projectID, filter, s.opts.Location, s.now(), offers)
}

func (s *salesService) merge(ctx context.Context, projectID uuid.UUID, events []model.LedgerEvent) []model.SaleTransaction {
	ids := make([]string, 0, len(events))
	for _, ev := range events {
		ids = append(ids, ResolveTransactionID(ev.EventID))
	}
	return s.merger.Merge(events, s.legacy.Find(ctx, projectID, ids))
}

// fullSet scans every pushed-down row, merges, applies the post-merge
// predicates and sorts.
func (s *salesService) fullSet(ctx context.Context, nf normalizedFilter) ([]model.SaleTransaction, error) {
	events, _, err := chunk.All(ctx, s.scanner("full"), func(ctx context.Context, offset, limit int) ([]model.LedgerEvent, error) {
		return s.ledgerRepo.FetchPage(ctx, nf.query, offset, limit)
	})
	if err != nil {
		return nil, fmt.Errorf("scan sales: %w", err)
	}
	rows := applyPostMerge(s.merge(ctx, nf.query.ProjectID, events), nf.post)
	SortTransactions(rows)
	return rows, nil
}

func (s *salesService) Page(ctx context.Context, projectID uuid.UUID, filter model.SalesFilter, page, pageSize int) (SalesPage, error) {
	params := pagination.NewParams(page, pageSize)
	nf, err := s.prepare(ctx, projectID, filter)
	if err != nil {
		return SalesPage{}, err
	}
	if nf.query.Empty {
		return SalesPage{
			Rows:       []model.SaleTransaction{},
			Pagination: pagination.NewState(params.Page, params.Limit, 0),
		}, nil
	}

	if nf.post.active() {
		rows, err := s.fullSet(ctx, nf)
		if err != nil {
			return SalesPage{}, err
		}
		return SalesPage{
			Rows:       slicePage(rows, params),
			Pagination: pagination.NewState(params.Page, params.Limit, int64(len(rows))),
			Totals:     TotalsOf(rows),
		}, nil
	}

	var total int64
	var events []model.LedgerEvent
	err = s.retryFor("page").Do(ctx, func(ctx context.Context, _ int) error {
		return s.snapshot(ctx, func(txCtx context.Context) error {
			var err error
			if total, err = s.ledgerRepo.Count(txCtx, nf.query); err != nil {
				return err
			}
			events, err = s.ledgerRepo.FetchPage(txCtx, nf.query, params.Offset, params.Limit)
			return err
		})
	})
	if err != nil {
		return SalesPage{}, fmt.Errorf("load sales page: %w", err)
	}

	rows := s.merge(ctx, projectID, events)
	SortTransactions(rows)
	return SalesPage{
		Rows:       rows,
		Pagination: pagination.NewState(params.Page, params.Limit, total),
		Totals:     model.SalesTotals{Loading: true},
	}, nil
}

// Totals aggregates the whole filtered set. Only an invalid filter or a failed
// count query is an error; a failed scan yields degraded totals.
func (s *salesService) Totals(ctx context.Context, projectID uuid.UUID, filter model.SalesFilter) (model.SalesTotals, error) {
	start := time.Now()
	defer func() { metrics.TotalsDuration.Observe(time.Since(start).Seconds()) }()

	nf, err := s.prepare(ctx, projectID, filter)
	if err != nil {
		return model.SalesTotals{}, err
	}
	if nf.query.Empty {
		return model.SalesTotals{}, nil
	}

	if nf.post.active() {
		rows, err := s.fullSet(ctx, nf)
		if err != nil {
			return s.degraded(projectID, 0, err), nil
		}
		return TotalsOf(rows), nil
	}

	var count int64
	err = s.retryFor("count").Do(ctx, func(ctx context.Context, _ int) error {
		var err error
		count, err = s.ledgerRepo.Count(ctx, nf.query)
		return err
	})
	if err != nil {
		return model.SalesTotals{}, fmt.Errorf("count sales: %w", err)
	}

	totals, err := s.scanTotals(ctx, nf.query)
	if err != nil {
		return s.degraded(projectID, count, err), nil
	}
	if totals.Count != count {
		metrics.CountDrift.Inc()
		s.log.WithFields(logrus.Fields{
			"project_id": projectID,
			"count":      count,
			"scanned":    totals.Count,
		}).Warn("totals scan disagrees with count query")
	}
	return totals, nil
}

func (s *salesService) degraded(projectID uuid.UUID, count int64, err error) model.SalesTotals {
	metrics.DegradedTotals.Inc()
	logger.LogError(s.log, "sales", "Totals", "totals scan failed, returning count only",
		map[string]interface{}{"project_id": projectID, "count": count}, err)
	return model.SalesTotals{Count: count, Degraded: true}
}

func (s *salesService) scanTotals(ctx context.Context, q repository.SalesQuery) (model.SalesTotals, error) {
	acc := newTotalsAccumulator()
	fetch := func(ctx context.Context, offset, limit int) ([]repository.LedgerTotalsRow, error) {
		return s.ledgerRepo.ScanTotals(ctx, q, offset, limit)
	}
	_, err := chunk.Each(ctx, s.scanner("totals"), fetch, func(batch []repository.LedgerTotalsRow) error {
		ids := make([]string, len(batch))
		for i, row := range batch {
			ids[i] = ResolveTransactionID(row.EventID)
		}
		legacy := s.legacy.Find(ctx, q.ProjectID, ids)

		for i, row := range batch {
			l := legacy[ids[i]]
			net, _ := ResolveNet(row.EventType, row.GrossAmount, row.NetAmount, l, s.opts.ProducerShare)
			email := row.PayloadBuyerEmail
			if l != nil {
				email = firstNonEmpty(l.BuyerEmail, email)
			}
			acc.add(row.GrossAmount, net, email)
		}
		return nil
	})
	if err != nil {
		return model.SalesTotals{}, err
	}
	return acc.totals(), nil
}
