package importer

// progressCounter tracks one category's percentage. It advances by
// 100/total for every attempted record, success or failure, so a category
// always reaches 100 even when some of its records were skipped.
type progressCounter struct {
	category Category
	total    int
	step     float64
	percent  float64
}

func newProgressCounter(category Category, total int) *progressCounter {
	counter := &progressCounter{category: category, total: total}
	if total > 0 {
		counter.step = 100 / float64(total)
	}
	return counter
}

func (c *progressCounter) advance() float64 {
	c.percent += c.step
	if c.percent > 100 {
		c.percent = 100
	}
	return c.percent
}
