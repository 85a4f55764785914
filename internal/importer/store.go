package importer

import "context"

// Collection names in the destination store.
const (
	CollectionTags      = "tags"
	CollectionFeeds     = "feeds"
	CollectionLinks     = "links"
	CollectionFeedItems = "feed_items"
)

// Store is the slice of the destination record store the pipeline needs:
// create one record in a named collection and get back its new id. Failures
// (validation, transport) surface as errors.
type Store interface {
	Create(ctx context.Context, collection string, fields map[string]interface{}) (string, error)
	CreateWithFile(ctx context.Context, collection string, fields map[string]interface{}, fileField, fileName string, fileData []byte) (string, error)
}
