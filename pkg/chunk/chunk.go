// Package chunk scans a source that caps the number of rows returned per
// request by issuing consecutive bounded-range requests.
package chunk

import (
	"context"
	"fmt"

	"salesboard/pkg/retry"
)

const (
	DefaultSize = 1000
	MaxSize     = 1000
)

// FetchFunc returns the rows in [offset, offset+limit).
type FetchFunc[T any] func(ctx context.Context, offset, limit int) ([]T, error)

// Scanner holds the chunk size and per-chunk retry policy.
type Scanner struct {
	Size    int
	MaxSize int
	Retry   retry.Backoff
	OnChunk func(offset, rows int)
}

// Stats reports how a scan went.
type Stats struct {
	Chunks int
	Rows   int
}

func (s Scanner) size() int {
	max := s.MaxSize
	if max <= 0 {
		max = MaxSize
	}
	size := s.Size
	if size <= 0 {
		size = DefaultSize
	}
	if size > max {
		size = max
	}
	return size
}

// Each fetches chunks sequentially and hands every non-empty batch to fn.
// The scan stops after the first batch shorter than the chunk size. A failed
// chunk (after retries) or an fn error aborts the scan.
func Each[T any](ctx context.Context, s Scanner, fetch FetchFunc[T], fn func(batch []T) error) (Stats, error) {
	size := s.size()
	var stats Stats
	for offset := 0; ; offset += size {
		var batch []T
		err := s.Retry.Do(ctx, func(ctx context.Context, _ int) error {
			var err error
			batch, err = fetch(ctx, offset, size)
			return err
		})
		if err != nil {
			return stats, fmt.Errorf("chunk at offset %d: %w", offset, err)
		}

		stats.Chunks++
		stats.Rows += len(batch)
		if s.OnChunk != nil {
			s.OnChunk(offset, len(batch))
		}

		if len(batch) > 0 {
			if err := fn(batch); err != nil {
				return stats, err
			}
		}
		if len(batch) < size {
			return stats, nil
		}
	}
}

// All collects every row of the scan.
func All[T any](ctx context.Context, s Scanner, fetch FetchFunc[T]) ([]T, Stats, error) {
	var out []T
	stats, err := Each(ctx, s, fetch, func(batch []T) error {
		out = append(out, batch...)
		return nil
	})
	if err != nil {
		return nil, stats, err
	}
	return out, stats, nil
}
