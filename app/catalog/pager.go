package catalog

import (
	"context"
	"errors"
	"iter"
	"log/slog"

	"github.com/showledger/showledger/app/source"
)

// Stats describes how far a pagination pass got.
type Stats struct {
	PagesFetched   int
	RecordsSeen    int
	RecordsSkipped int
}

// Pager walks a source page by page until the catalog is exhausted. It
// stops on an empty page, on a short page once the configured minimum
// record count has been met, or at the page cap. A Pager is single-use:
// create a fresh one for every pass.
type Pager struct {
	client       *Client
	sourceConfig *source.Config
	stats        Stats
}

func NewPager(client *Client, sourceConfig *source.Config) *Pager {
	return &Pager{
		client:       client,
		sourceConfig: sourceConfig,
	}
}

// Records returns an iterator over the catalog, fetching pages lazily.
// A record that fails to decode is yielded as a RecordError and
// iteration continues. Any other error is terminal: it is yielded once
// and the iterator stops, with everything yielded before it still
// valid.
func (p *Pager) Records(ctx context.Context) iter.Seq2[Record, error] {
	return func(yield func(Record, error) bool) {
		maxPages := p.sourceConfig.Settings.MaxPages

		for page := 0; maxPages <= 0 || page < maxPages; page++ {
			items, err := p.client.FetchPage(ctx, p.sourceConfig, page)
			if err != nil {
				yield(Record{}, err)
				return
			}

			p.stats.PagesFetched++
			p.stats.RecordsSeen += len(items)

			if len(items) == 0 {
				slog.Debug("Empty page, pagination complete", "source", p.sourceConfig.Name, "page", page)
				return
			}

			for _, item := range items {
				record, err := DecodeRecord(item)
				if err != nil {
					p.stats.RecordsSkipped++
					if !yield(Record{}, &RecordError{Page: page, Err: err}) {
						return
					}
					continue
				}
				if !yield(record, nil) {
					return
				}
			}

			if len(items) < p.sourceConfig.Settings.PageSize && p.stats.RecordsSeen >= p.sourceConfig.Settings.MinRecords {
				slog.Debug("Short page after minimum met, pagination complete",
					"source", p.sourceConfig.Name, "page", page, "records", p.stats.RecordsSeen)
				return
			}
		}

		slog.Debug("Page cap reached, pagination complete", "source", p.sourceConfig.Name, "max_pages", maxPages)
	}
}

// Collect drains Records into a slice. On a terminal error the records
// gathered up to that point are returned alongside the error, so a
// partial pass is still usable by the caller.
func (p *Pager) Collect(ctx context.Context) ([]Record, error) {
	var records []Record

	for record, err := range p.Records(ctx) {
		if err != nil {
			var recordErr *RecordError
			if errors.As(err, &recordErr) {
				continue
			}
			return records, err
		}
		records = append(records, record)
	}

	return records, nil
}

// Stats reports the counters accumulated by the last Records pass.
func (p *Pager) Stats() Stats {
	return p.stats
}
