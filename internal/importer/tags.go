package importer

import "context"

func (p *Pipeline) importTags(ctx context.Context) error {
	records := p.export.Tags
	counter := newProgressCounter(CategoryTags, len(records))
	stats := p.report.Stats(CategoryTags)
	stats.Total = len(records)
	for _, record := range records {
		if err := ctx.Err(); err != nil {
			return err
		}
		id, err := p.store.Create(ctx, CollectionTags, tagFields(record.Fields, p.userID))
		if err != nil {
			p.recordFailure(ctx, CategoryTags, record.PK, err)
		} else {
			p.remaps.Set(EntityTag, record.PK, id)
			stats.Created += 1
		}
		p.emitProgress(counter)
	}
	return nil
}
