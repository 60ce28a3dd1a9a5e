package service

import (
	"context"
	"sync"

	"salesboard/internal/logger"
	"salesboard/internal/metrics"
	"salesboard/internal/model"
	"salesboard/pkg/pagination"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

type BrowserStatus string

const (
	BrowserIdle    BrowserStatus = "idle"
	BrowserLoading BrowserStatus = "loading"
	BrowserReady   BrowserStatus = "ready"
	BrowserError   BrowserStatus = "error"
)

// BrowserState is a snapshot of a browsing session.
type BrowserState struct {
	Status     BrowserStatus           `json:"status"`
	ProjectID  uuid.UUID               `json:"project_id"`
	Filter     model.SalesFilter       `json:"filter"`
	Rows       []model.SaleTransaction `json:"rows"`
	Totals     model.SalesTotals       `json:"totals"`
	Pagination pagination.State        `json:"pagination"`
	Error      string                  `json:"error,omitempty"`
}

// SalesBrowser keeps the filter, page position, rows and totals of one
// client. Pages load synchronously; totals load in the background and are
// dropped when a newer Fetch has started in the meantime.
//
// onChange receives every state transition in order. It must not call back
// into the browser.
type SalesBrowser struct {
	svc      SalesService
	log      logrus.FieldLogger
	onChange func(BrowserState)

	mu           sync.Mutex
	state        BrowserState
	filterGen    uint64
	pageGen      uint64
	cancelTotals context.CancelFunc
	// set by Fetch until a page for its filter has loaded
	totalsPending bool
	wg           sync.WaitGroup

	emitMu sync.Mutex
}

func NewSalesBrowser(svc SalesService, log logrus.FieldLogger, onChange func(BrowserState)) *SalesBrowser {
	return &SalesBrowser{
		svc:      svc,
		log:      log,
		onChange: onChange,
		state: BrowserState{
			Status:     BrowserIdle,
			Rows:       []model.SaleTransaction{},
			Pagination: pagination.State{Page: 1, PageSize: pagination.DefaultLimit},
		},
	}
}

func (b *SalesBrowser) State() BrowserState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.snapshotLocked()
}

// Fetch starts a new cycle: it loads the requested page and recomputes
// totals. The page resets to 1 when the project, the filter or the page size
// differs from the current one. pageSize <= 0 keeps the current size.
func (b *SalesBrowser) Fetch(ctx context.Context, projectID uuid.UUID, filter model.SalesFilter, page, pageSize int) error {
	b.mu.Lock()
	if pageSize <= 0 {
		pageSize = b.state.Pagination.PageSize
	}
	pageSize = pagination.ClampLimit(pageSize)
	changed := b.state.Status != BrowserIdle &&
		(projectID != b.state.ProjectID ||
			filter.Key() != b.state.Filter.Key() ||
			pageSize != b.state.Pagination.PageSize)
	if changed || page < 1 {
		page = 1
	}

	b.filterGen++
	b.pageGen++
	pg := b.pageGen
	if b.cancelTotals != nil {
		b.cancelTotals()
		b.cancelTotals = nil
	}

	b.state.Status = BrowserLoading
	b.state.ProjectID = projectID
	b.state.Filter = filter
	b.state.Pagination = pagination.State{Page: page, PageSize: pageSize}
	b.state.Totals = model.SalesTotals{Loading: true}
	b.state.Error = ""
	b.totalsPending = true
	b.unlockAndEmit()

	return b.loadPage(ctx, pg, projectID, filter, page, pageSize)
}

func (b *SalesBrowser) Next(ctx context.Context) error {
	return b.navigate(ctx, func(cur int) int { return cur + 1 })
}

func (b *SalesBrowser) Prev(ctx context.Context) error {
	return b.navigate(ctx, func(cur int) int { return cur - 1 })
}

// Goto is a no-op when page n does not exist.
func (b *SalesBrowser) Goto(ctx context.Context, n int) error {
	return b.navigate(ctx, func(int) int { return n })
}

// SetPageSize moves back to page 1 and reloads it; totals are kept.
func (b *SalesBrowser) SetPageSize(ctx context.Context, n int) error {
	n = pagination.ClampLimit(n)

	b.mu.Lock()
	if b.state.Status == BrowserIdle {
		b.state.Pagination.PageSize = n
		b.mu.Unlock()
		return nil
	}
	b.pageGen++
	pg := b.pageGen
	projectID, filter := b.state.ProjectID, b.state.Filter
	b.state.Status = BrowserLoading
	b.state.Pagination = pagination.NewState(1, n, b.state.Pagination.TotalCount)
	b.unlockAndEmit()

	return b.loadPage(ctx, pg, projectID, filter, 1, n)
}

// Wait blocks until background totals work has finished.
func (b *SalesBrowser) Wait() {
	b.wg.Wait()
}

// Close cancels pending totals work.
func (b *SalesBrowser) Close() {
	b.mu.Lock()
	b.filterGen++
	if b.cancelTotals != nil {
		b.cancelTotals()
		b.cancelTotals = nil
	}
	b.mu.Unlock()
	b.wg.Wait()
}

func (b *SalesBrowser) navigate(ctx context.Context, target func(cur int) int) error {
	b.mu.Lock()
	n := target(b.state.Pagination.Page)
	if b.state.Status == BrowserIdle || !b.state.Pagination.InRange(n) {
		b.mu.Unlock()
		return nil
	}
	b.pageGen++
	pg := b.pageGen
	projectID, filter, size := b.state.ProjectID, b.state.Filter, b.state.Pagination.PageSize
	b.state.Status = BrowserLoading
	b.state.Pagination.Page = n
	b.unlockAndEmit()

	return b.loadPage(ctx, pg, projectID, filter, n, size)
}

// loadPage fetches one page and applies it unless a newer page load started.
// The first page applied after a Fetch starts that filter's totals, whichever
// call loaded it.
func (b *SalesBrowser) loadPage(ctx context.Context, pg uint64, projectID uuid.UUID, filter model.SalesFilter, page, size int) error {
	res, err := b.svc.Page(ctx, projectID, filter, page, size)

	b.mu.Lock()
	if pg != b.pageGen {
		b.mu.Unlock()
		return nil
	}
	if err != nil {
		b.resetLocked(err)
		b.unlockAndEmit()
		return err
	}

	b.state.Status = BrowserReady
	b.state.Rows = res.Rows
	b.state.Pagination = res.Pagination
	if !res.Totals.Loading {
		b.state.Totals = res.Totals
	}
	if b.totalsPending {
		b.totalsPending = false
		if res.Totals.Loading {
			b.startTotalsLocked(ctx, b.filterGen, projectID, filter)
		}
	}
	b.unlockAndEmit()
	return nil
}

func (b *SalesBrowser) startTotalsLocked(ctx context.Context, gen uint64, projectID uuid.UUID, filter model.SalesFilter) {
	tctx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	b.cancelTotals = cancel
	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		defer cancel()

		totals, err := b.svc.Totals(tctx, projectID, filter)

		b.mu.Lock()
		if gen != b.filterGen {
			b.mu.Unlock()
			metrics.StaleTotalsDiscarded.Inc()
			b.log.WithFields(logrus.Fields{"project_id": projectID, "generation": gen}).Debug("discarding stale totals")
			return
		}
		if err != nil {
			logger.LogError(b.log, "sales", "SalesBrowser.totals", "totals failed, keeping count only",
				map[string]interface{}{"project_id": projectID}, err)
			totals = model.SalesTotals{Count: b.state.Pagination.TotalCount, Degraded: true}
		}
		totals.Loading = false
		b.state.Totals = totals
		b.cancelTotals = nil
		b.unlockAndEmit()
	}()
}

// resetLocked puts the session in the error state and invalidates pending
// totals.
func (b *SalesBrowser) resetLocked(err error) {
	b.filterGen++
	b.totalsPending = false
	if b.cancelTotals != nil {
		b.cancelTotals()
		b.cancelTotals = nil
	}
	b.state.Status = BrowserError
	b.state.Rows = []model.SaleTransaction{}
	b.state.Totals = model.SalesTotals{}
	b.state.Pagination = pagination.State{Page: 1, PageSize: b.state.Pagination.PageSize}
	b.state.Error = err.Error()
}

func (b *SalesBrowser) snapshotLocked() BrowserState {
	s := b.state
	s.Rows = make([]model.SaleTransaction, len(b.state.Rows))
	copy(s.Rows, b.state.Rows)
	return s
}

// unlockAndEmit releases b.mu and publishes the state it guarded. emitMu is
// taken before b.mu is released so snapshots are delivered in order.
func (b *SalesBrowser) unlockAndEmit() {
	if b.onChange == nil {
		b.mu.Unlock()
		return
	}
	snap := b.snapshotLocked()
	b.emitMu.Lock()
	b.mu.Unlock()
	defer b.emitMu.Unlock()
	b.onChange(snap)
}
