package importer

import (
	"context"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/avelkin/linkvault/internal/archive"
	"github.com/avelkin/linkvault/internal/model"
)

type State = string

const (
	StateIdle               State = "idle"
	StateImportingTags      State = "importing_tags"
	StateImportingFeeds     State = "importing_feeds"
	StateImportingLinks     State = "importing_links"
	StateImportingFeedItems State = "importing_feed_items"
	StateComplete           State = "complete"
	StateErrored            State = "errored"
)

type Options struct {
	// Data is the raw legacy export payload; the pipeline parses it itself
	// so that an unreadable payload surfaces as a terminal error event.
	Data []byte
	// Store is the destination record store, already authenticated.
	Store Store
	// UserID is the destination-store user stamped onto every created record.
	UserID string
	// Archives overrides the blob source; when nil the blobs bundled in the
	// export payload are used.
	Archives archive.Source
	// Now is overridable for tests; the synthetic import tag is named with
	// the run's date.
	Now func() time.Time
}

// Pipeline runs the four import stages in dependency order: tags, feeds,
// links, feed items. It executes in its own goroutine and talks to the host
// only through the event channel. Per-record failures are logged and
// skipped; only systemic failures (unparseable payload, a failure outside a
// stage's per-record loop, cancellation) terminate the run early.
type Pipeline struct {
	data     []byte
	store    Store
	userID   string
	archives archive.Source
	now      func() time.Time

	export      *model.LegacyExport
	remaps      *Remaps
	report      *model.RunReport
	state       State
	importTagID string
	events      chan Event
}

func New(opts Options) *Pipeline {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Pipeline{
		data:     opts.Data,
		store:    opts.Store,
		userID:   opts.UserID,
		archives: opts.Archives,
		now:      now,
		remaps:   NewRemaps(),
		report:   model.NewRunReport(),
		state:    StateIdle,
		events:   make(chan Event, 128),
	}
}

// Events returns the pipeline's one-way message stream. It is closed after
// the terminal error or complete event.
func (p *Pipeline) Events() <-chan Event {
	return p.events
}

// State reports the pipeline's stage. Only safe to read before Start or
// after the event channel has been closed.
func (p *Pipeline) State() State {
	return p.state
}

// Remaps exposes the remap tables for inspection once the run has finished.
func (p *Pipeline) Remaps() *Remaps {
	return p.remaps
}

func (p *Pipeline) Start(ctx context.Context) {
	go p.run(ctx)
}

func (p *Pipeline) run(ctx context.Context) {
	defer close(p.events)

	export, err := ParseExport(p.data)
	if err != nil {
		p.fail(ctx, err)
		return
	}
	p.export = export
	if p.archives == nil {
		p.archives = archive.FromExport(export.Archives)
	}

	stages := []struct {
		state State
		run   func(context.Context) error
	}{
		{StateImportingTags, p.importTags},
		{StateImportingFeeds, p.importFeeds},
		{StateImportingLinks, p.importLinks},
		{StateImportingFeedItems, p.importFeedItems},
	}
	for _, stage := range stages {
		p.state = stage.state
		if err := stage.run(ctx); err != nil {
			p.fail(ctx, err)
			return
		}
	}

	p.state = StateComplete
	p.events <- Event{Type: EventComplete, Report: p.report}
}

func (p *Pipeline) fail(ctx context.Context, err error) {
	logutil.GetLogger(ctx).Error("import pipeline failed",
		zap.String("state", p.state),
		zap.Error(err),
	)
	p.state = StateErrored
	p.events <- Event{Type: EventError, Error: err.Error()}
}

func (p *Pipeline) emitProgress(counter *progressCounter) {
	p.events <- Event{
		Type:     EventProgress,
		Category: counter.category,
		Progress: counter.advance(),
	}
}

func (p *Pipeline) recordFailure(ctx context.Context, category Category, pk int64, err error) {
	logutil.GetLogger(ctx).Warn("record import failed",
		zap.String("category", category),
		zap.Int64("source_pk", pk),
		zap.Error(err),
	)
	p.report.AddFailure(category, pk, err.Error())
}
