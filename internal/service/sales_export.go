package service

import (
	"context"
	"errors"
	"fmt"
	"io"

	"salesboard/internal/model"
	"salesboard/pkg/chunk"

	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"
)

var ErrExportTooLarge = errors.New("export exceeds the row limit")

const exportSheet = "Sales"

var exportHeadings = []interface{}{
	"Transaction", "Event", "Status", "Business Date", "Occurred At",
	"Buyer", "Buyer Email", "Product ID", "Product", "Offer",
	"Gross", "Net", "Net Source", "Currency",
	"UTM Source", "UTM Adset", "UTM Campaign", "UTM Placement", "UTM Creative",
}

// salesSheet streams rows into a single-sheet workbook.
type salesSheet struct {
	file   *excelize.File
	stream *excelize.StreamWriter
	next   int
}

func newSalesSheet() (*salesSheet, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", exportSheet); err != nil {
		f.Close()
		return nil, err
	}
	sw, err := f.NewStreamWriter(exportSheet)
	if err != nil {
		f.Close()
		return nil, err
	}
	if err := sw.SetRow("A1", exportHeadings); err != nil {
		f.Close()
		return nil, err
	}
	return &salesSheet{file: f, stream: sw, next: 2}, nil
}

func (s *salesSheet) add(rows []model.SaleTransaction) error {
	for _, tx := range rows {
		cell, err := excelize.CoordinatesToCellName(1, s.next)
		if err != nil {
			return err
		}
		if err := s.stream.SetRow(cell, []interface{}{
			tx.TransactionID, tx.EventID, tx.Status,
			tx.BusinessDate.Format("2006-01-02"), tx.OccurredAt.Format("2006-01-02 15:04:05"),
			tx.BuyerName, tx.BuyerEmail, tx.ProductID, tx.ProductName, tx.OfferCode,
			tx.GrossAmount.InexactFloat64(), tx.NetAmount.InexactFloat64(), string(tx.NetSource), tx.Currency,
			tx.UTMSource, tx.UTMAdset, tx.UTMCampaign, tx.UTMPlacement, tx.UTMCreative,
		}); err != nil {
			return err
		}
		s.next++
	}
	return nil
}

func (s *salesSheet) writeTo(w io.Writer) error {
	if err := s.stream.Flush(); err != nil {
		return err
	}
	return s.file.Write(w)
}

func (s *salesSheet) Close() error {
	return s.file.Close()
}

// Export writes every filtered row as an XLSX workbook and returns the number
// of rows written. Sets larger than ExportMaxRows are rejected before any
// row is fetched in paged mode.
func (s *salesService) Export(ctx context.Context, projectID uuid.UUID, filter model.SalesFilter, w io.Writer) (int, error) {
	nf, err := s.prepare(ctx, projectID, filter)
	if err != nil {
		return 0, err
	}

	sheet, err := newSalesSheet()
	if err != nil {
		return 0, fmt.Errorf("create workbook: %w", err)
	}
	defer sheet.Close()

	written := 0
	switch {
	case nf.query.Empty:
	case nf.post.active():
		rows, err := s.fullSet(ctx, nf)
		if err != nil {
			return 0, err
		}
		if s.tooLarge(int64(len(rows))) {
			return 0, ErrExportTooLarge
		}
		if err := sheet.add(rows); err != nil {
			return 0, fmt.Errorf("write rows: %w", err)
		}
		written = len(rows)
	default:
		var count int64
		err := s.retryFor("count").Do(ctx, func(ctx context.Context, _ int) error {
			var err error
			count, err = s.ledgerRepo.Count(ctx, nf.query)
			return err
		})
		if err != nil {
			return 0, fmt.Errorf("count sales: %w", err)
		}
		if s.tooLarge(count) {
			return 0, ErrExportTooLarge
		}

		fetch := func(ctx context.Context, offset, limit int) ([]model.LedgerEvent, error) {
			return s.ledgerRepo.FetchPage(ctx, nf.query, offset, limit)
		}
		_, err = chunk.Each(ctx, s.scanner("export"), fetch, func(batch []model.LedgerEvent) error {
			rows := s.merge(ctx, projectID, batch)
			written += len(rows)
			return sheet.add(rows)
		})
		if err != nil {
			return 0, fmt.Errorf("export sales: %w", err)
		}
	}

	if err := sheet.writeTo(w); err != nil {
		return 0, fmt.Errorf("write workbook: %w", err)
	}
	return written, nil
}

func (s *salesService) tooLarge(n int64) bool {
	return s.opts.ExportMaxRows > 0 && n > int64(s.opts.ExportMaxRows)
}
