package importer

const (
	EntityTag      = "tag"
	EntityFeed     = "feed"
	EntityLink     = "link"
	EntityFeedItem = "feed_item"
)

// Remaps maps legacy integer primary keys to destination record ids, one
// table per entity type. Entries are only written by the stage that owns the
// entity and only read by later stages, so no locking is needed.
type Remaps struct {
	tables map[string]map[int64]string
}

func NewRemaps() *Remaps {
	return &Remaps{tables: make(map[string]map[int64]string)}
}

func (r *Remaps) Set(entity string, pk int64, id string) {
	table, ok := r.tables[entity]
	if !ok {
		table = make(map[int64]string)
		r.tables[entity] = table
	}
	table[pk] = id
}

func (r *Remaps) Get(entity string, pk int64) (string, bool) {
	id, ok := r.tables[entity][pk]
	return id, ok
}

func (r *Remaps) Count(entity string) int {
	return len(r.tables[entity])
}
