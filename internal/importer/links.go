package importer

import (
	"context"
	"fmt"
)

func (p *Pipeline) importLinks(ctx context.Context) error {
	records := p.export.Links
	counter := newProgressCounter(CategoryLinks, len(records))
	stats := p.report.Stats(CategoryLinks)
	stats.Total = len(records)

	// The synthetic import tag marks every link created by this run. It is
	// created before the per-record loop, so its failure aborts the run.
	importTagID, err := p.createImportTag(ctx)
	if err != nil {
		return fmt.Errorf("create import tag: %w", err)
	}
	p.importTagID = importTagID

	for _, record := range records {
		if err := ctx.Err(); err != nil {
			return err
		}
		fields := linkFields(record.Fields, p.remaps, p.importTagID, p.userID)
		blob, err := p.archives.Find(ctx, record.PK)
		if err != nil {
			p.recordFailure(ctx, CategoryLinks, record.PK, fmt.Errorf("load archive: %w", err))
			p.emitProgress(counter)
			continue
		}
		var id string
		if blob != nil {
			id, err = p.store.CreateWithFile(ctx, CollectionLinks, fields, "archive", blob.Name, blob.Data)
		} else {
			id, err = p.store.Create(ctx, CollectionLinks, fields)
		}
		if err != nil {
			p.recordFailure(ctx, CategoryLinks, record.PK, err)
		} else {
			p.remaps.Set(EntityLink, record.PK, id)
			stats.Created += 1
		}
		p.emitProgress(counter)
	}
	return nil
}

func (p *Pipeline) createImportTag(ctx context.Context) (string, error) {
	date := p.now().Format("2006-01-02")
	return p.store.Create(ctx, CollectionTags, map[string]interface{}{
		"name": "Imported " + date,
		"slug": "imported-" + date,
		"user": p.userID,
	})
}
