package importer

import "context"

func (p *Pipeline) importFeedItems(ctx context.Context) error {
	records := p.export.FeedItems
	counter := newProgressCounter(CategoryFeedItems, len(records))
	stats := p.report.Stats(CategoryFeedItems)
	stats.Total = len(records)
	for _, record := range records {
		if err := ctx.Err(); err != nil {
			return err
		}
		// A feed item without a resolvable feed would be orphaned in the
		// destination, so a dangling feed reference is a per-record error
		// rather than an omitted field.
		fields, err := feedItemFields(record.Fields, p.remaps, p.userID)
		if err != nil {
			p.recordFailure(ctx, CategoryFeedItems, record.PK, err)
			p.emitProgress(counter)
			continue
		}
		id, err := p.store.Create(ctx, CollectionFeedItems, fields)
		if err != nil {
			p.recordFailure(ctx, CategoryFeedItems, record.PK, err)
		} else {
			p.remaps.Set(EntityFeedItem, record.PK, id)
			stats.Created += 1
		}
		p.emitProgress(counter)
	}
	return nil
}
