package importer

import "context"

func (p *Pipeline) importFeeds(ctx context.Context) error {
	records := p.export.Feeds
	counter := newProgressCounter(CategoryFeeds, len(records))
	stats := p.report.Stats(CategoryFeeds)
	stats.Total = len(records)
	for _, record := range records {
		if err := ctx.Err(); err != nil {
			return err
		}
		// Logically deleted feeds are not recreated, but still count
		// toward progress.
		if record.Fields.Deleted {
			stats.Skipped += 1
			p.emitProgress(counter)
			continue
		}
		id, err := p.store.Create(ctx, CollectionFeeds, feedFields(record.Fields, p.userID))
		if err != nil {
			p.recordFailure(ctx, CategoryFeeds, record.PK, err)
		} else {
			p.remaps.Set(EntityFeed, record.PK, id)
			stats.Created += 1
		}
		p.emitProgress(counter)
	}
	return nil
}
