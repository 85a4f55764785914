package importer

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/avelkin/linkvault/internal/model"
)

type storeCall struct {
	collection string
	fields     map[string]interface{}
	fileName   string
	fileData   []byte
}

type fakeStore struct {
	mu     sync.Mutex
	nextID int
	calls  []storeCall
	// failOn returns an error for records the store should reject.
	failOn func(collection string, fields map[string]interface{}) error
}

func (s *fakeStore) Create(ctx context.Context, collection string, fields map[string]interface{}) (string, error) {
	return s.record(collection, fields, "", nil)
}

func (s *fakeStore) CreateWithFile(ctx context.Context, collection string, fields map[string]interface{}, fileField, fileName string, fileData []byte) (string, error) {
	return s.record(collection, fields, fileName, fileData)
}

func (s *fakeStore) record(collection string, fields map[string]interface{}, fileName string, fileData []byte) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failOn != nil {
		if err := s.failOn(collection, fields); err != nil {
			return "", err
		}
	}
	s.nextID += 1
	id := fmt.Sprintf("rec_%d", s.nextID)
	s.calls = append(s.calls, storeCall{
		collection: collection,
		fields:     fields,
		fileName:   fileName,
		fileData:   fileData,
	})
	return id, nil
}

func (s *fakeStore) created(collection string) []storeCall {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []storeCall
	for _, call := range s.calls {
		if call.collection == collection {
			out = append(out, call)
		}
	}
	return out
}

func drainEvents(t *testing.T, pipeline *Pipeline) []Event {
	t.Helper()
	var events []Event
	timeout := time.After(5 * time.Second)
	for {
		select {
		case event, ok := <-pipeline.Events():
			if !ok {
				return events
			}
			events = append(events, event)
		case <-timeout:
			t.Fatal("pipeline did not finish in time")
		}
	}
}

func lastProgress(events []Event, category Category) (float64, int) {
	percent := 0.0
	count := 0
	for _, event := range events {
		if event.Type == EventProgress && event.Category == category {
			percent = event.Progress
			count += 1
		}
	}
	return percent, count
}

func terminalEvent(t *testing.T, events []Event) Event {
	t.Helper()
	require.NotEmpty(t, events)
	last := events[len(events)-1]
	require.Contains(t, []EventType{EventError, EventComplete}, last.Type)
	for _, event := range events[:len(events)-1] {
		require.Equal(t, EventProgress, event.Type)
	}
	return last
}

func exportPayload(t *testing.T, export model.LegacyExport) []byte {
	t.Helper()
	data, err := json.Marshal(export)
	require.NoError(t, err)
	return data
}

func int64Ptr(v int64) *int64 {
	return &v
}

func fixedNow() time.Time {
	return time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
}

func TestPipelineCompletes(t *testing.T) {
	export := model.LegacyExport{
		Tags: []model.LegacyTag{
			{PK: 10, Fields: model.LegacyTagFields{Name: "golang", Slug: "golang"}},
			{PK: 11, Fields: model.LegacyTagFields{Name: "reading", Slug: "reading"}},
		},
		Feeds: []model.LegacyFeed{
			{PK: 20, Fields: model.LegacyFeedFields{Name: "blog", FeedURL: "https://blog.example/rss"}},
			{PK: 21, Fields: model.LegacyFeedFields{Name: "gone", FeedURL: "https://gone.example/rss", Deleted: true}},
		},
		Links: []model.LegacyLink{
			{PK: 30, Fields: model.LegacyLinkFields{
				URL:             "https://blog.example/post",
				Title:           "a post",
				Tags:            []int64{10, 11},
				CreatedFromFeed: int64Ptr(20),
			}},
			{PK: 31, Fields: model.LegacyLinkFields{
				URL:             "https://gone.example/post",
				Title:           "orphan",
				CreatedFromFeed: int64Ptr(21),
			}},
		},
		FeedItems: []model.LegacyFeedItem{
			{PK: 40, Fields: model.LegacyFeedItemFields{Title: "item", Feed: 20, SavedAsLink: int64Ptr(30)}},
			{PK: 41, Fields: model.LegacyFeedItemFields{Title: "dangling", Feed: 21}},
		},
	}
	store := &fakeStore{}
	pipeline := New(Options{
		Data:   exportPayload(t, export),
		Store:  store,
		UserID: "user_1",
		Now:    fixedNow,
	})
	pipeline.Start(context.Background())
	events := drainEvents(t, pipeline)

	last := terminalEvent(t, events)
	require.Equal(t, EventComplete, last.Type)
	require.Equal(t, StateComplete, pipeline.State())

	report := last.Report
	require.NotNil(t, report)
	require.Equal(t, &model.CategoryStats{Total: 2, Created: 2}, report.Categories[CategoryTags])
	require.Equal(t, &model.CategoryStats{Total: 2, Created: 1, Skipped: 1}, report.Categories[CategoryFeeds])
	require.Equal(t, &model.CategoryStats{Total: 2, Created: 2}, report.Categories[CategoryLinks])
	require.Equal(t, &model.CategoryStats{Total: 2, Created: 1, Failed: 1}, report.Categories[CategoryFeedItems])
	require.Len(t, report.Failures, 1)
	require.Equal(t, CategoryFeedItems, report.Failures[0].Category)
	require.Equal(t, int64(41), report.Failures[0].SourcePK)

	for _, category := range []Category{CategoryTags, CategoryFeeds, CategoryLinks, CategoryFeedItems} {
		percent, count := lastProgress(events, category)
		require.Equal(t, 2, count, category)
		require.InDelta(t, 100, percent, 0.001, category)
	}

	// The deleted feed is skipped, not created.
	feeds := store.created(CollectionFeeds)
	require.Len(t, feeds, 1)
	require.Equal(t, "blog", feeds[0].fields["name"])

	// Both tag references plus the synthetic import tag on the first link;
	// the second link's feed reference is dropped because the feed was
	// never created.
	tagID10, ok := pipeline.Remaps().Get(EntityTag, 10)
	require.True(t, ok)
	tagID11, ok := pipeline.Remaps().Get(EntityTag, 11)
	require.True(t, ok)
	links := store.created(CollectionLinks)
	require.Len(t, links, 2)
	importTag := links[0].fields["tags"].([]string)[2]
	require.Equal(t, []string{tagID10, tagID11, importTag}, links[0].fields["tags"])
	require.Equal(t, []string{importTag}, links[1].fields["tags"])
	require.Contains(t, links[0].fields, "created_from_feed")
	require.NotContains(t, links[1].fields, "created_from_feed")

	// The saved feed item resolves both references.
	items := store.created(CollectionFeedItems)
	require.Len(t, items, 1)
	linkID30, ok := pipeline.Remaps().Get(EntityLink, 30)
	require.True(t, ok)
	require.Equal(t, linkID30, items[0].fields["saved_as_link"])
}

func TestPipelineImportTagNamedByDate(t *testing.T) {
	export := model.LegacyExport{
		Links: []model.LegacyLink{
			{PK: 1, Fields: model.LegacyLinkFields{URL: "https://a.example"}},
			{PK: 2, Fields: model.LegacyLinkFields{URL: "https://b.example"}},
		},
	}
	store := &fakeStore{}
	pipeline := New(Options{
		Data:   exportPayload(t, export),
		Store:  store,
		UserID: "user_1",
		Now:    fixedNow,
	})
	pipeline.Start(context.Background())
	events := drainEvents(t, pipeline)
	require.Equal(t, EventComplete, terminalEvent(t, events).Type)

	tags := store.created(CollectionTags)
	require.Len(t, tags, 1)
	require.Equal(t, "Imported 2024-05-01", tags[0].fields["name"])
	require.Equal(t, "imported-2024-05-01", tags[0].fields["slug"])
	require.Equal(t, "user_1", tags[0].fields["user"])

	links := store.created(CollectionLinks)
	require.Len(t, links, 2)
	first := links[0].fields["tags"].([]string)
	second := links[1].fields["tags"].([]string)
	require.Len(t, first, 1)
	require.Equal(t, first, second)
}

func TestPipelineRecordFailureContinues(t *testing.T) {
	export := model.LegacyExport{
		Tags: []model.LegacyTag{
			{PK: 1, Fields: model.LegacyTagFields{Name: "keep", Slug: "keep"}},
			{PK: 2, Fields: model.LegacyTagFields{Name: "bad", Slug: "bad"}},
			{PK: 3, Fields: model.LegacyTagFields{Name: "also-keep", Slug: "also-keep"}},
		},
	}
	store := &fakeStore{
		failOn: func(collection string, fields map[string]interface{}) error {
			if collection == CollectionTags && fields["name"] == "bad" {
				return fmt.Errorf("validation failed")
			}
			return nil
		},
	}
	pipeline := New(Options{Data: exportPayload(t, export), Store: store, UserID: "user_1"})
	pipeline.Start(context.Background())
	events := drainEvents(t, pipeline)

	last := terminalEvent(t, events)
	require.Equal(t, EventComplete, last.Type)
	require.Equal(t, 2, pipeline.Remaps().Count(EntityTag))

	percent, count := lastProgress(events, CategoryTags)
	require.Equal(t, 3, count)
	require.InDelta(t, 100, percent, 0.001)

	require.Equal(t, &model.CategoryStats{Total: 3, Created: 2, Failed: 1}, last.Report.Categories[CategoryTags])
	require.Len(t, last.Report.Failures, 1)
	require.Equal(t, int64(2), last.Report.Failures[0].SourcePK)
	require.Equal(t, "validation failed", last.Report.Failures[0].Reason)
}

func TestPipelineUnparseablePayload(t *testing.T) {
	pipeline := New(Options{Data: []byte("{not json"), Store: &fakeStore{}, UserID: "user_1"})
	pipeline.Start(context.Background())
	events := drainEvents(t, pipeline)

	require.Len(t, events, 1)
	require.Equal(t, EventError, events[0].Type)
	require.Equal(t, StateErrored, pipeline.State())
}

func TestPipelineImportTagFailureIsSystemic(t *testing.T) {
	export := model.LegacyExport{
		Tags: []model.LegacyTag{
			{PK: 1, Fields: model.LegacyTagFields{Name: "keep", Slug: "keep"}},
		},
		Links: []model.LegacyLink{
			{PK: 2, Fields: model.LegacyLinkFields{URL: "https://a.example"}},
		},
	}
	store := &fakeStore{
		failOn: func(collection string, fields map[string]interface{}) error {
			slug, _ := fields["slug"].(string)
			if collection == CollectionTags && strings.HasPrefix(slug, "imported-") {
				return fmt.Errorf("quota exceeded")
			}
			return nil
		},
	}
	pipeline := New(Options{Data: exportPayload(t, export), Store: store, UserID: "user_1"})
	pipeline.Start(context.Background())
	events := drainEvents(t, pipeline)

	last := terminalEvent(t, events)
	require.Equal(t, EventError, last.Type)
	require.Contains(t, last.Error, "create import tag")
	require.Equal(t, StateErrored, pipeline.State())
	require.Empty(t, store.created(CollectionLinks))
}

func TestPipelineCancellation(t *testing.T) {
	export := model.LegacyExport{
		Tags: []model.LegacyTag{
			{PK: 1, Fields: model.LegacyTagFields{Name: "a", Slug: "a"}},
		},
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	pipeline := New(Options{Data: exportPayload(t, export), Store: &fakeStore{}, UserID: "user_1"})
	pipeline.Start(ctx)
	events := drainEvents(t, pipeline)

	last := terminalEvent(t, events)
	require.Equal(t, EventError, last.Type)
	require.Equal(t, StateErrored, pipeline.State())
}

func TestPipelineArchiveUpload(t *testing.T) {
	export := model.LegacyExport{
		Links: []model.LegacyLink{
			{PK: 1, Fields: model.LegacyLinkFields{URL: "https://a.example"}},
			{PK: 2, Fields: model.LegacyLinkFields{URL: "https://b.example"}},
		},
		Archives: []model.LegacyArchive{
			{Link: 1, Name: "page.html", Data: []byte("<html>archived</html>")},
		},
	}
	store := &fakeStore{}
	pipeline := New(Options{Data: exportPayload(t, export), Store: store, UserID: "user_1"})
	pipeline.Start(context.Background())
	events := drainEvents(t, pipeline)
	require.Equal(t, EventComplete, terminalEvent(t, events).Type)

	links := store.created(CollectionLinks)
	require.Len(t, links, 2)
	require.Equal(t, "page.html", links[0].fileName)
	require.Equal(t, []byte("<html>archived</html>"), links[0].fileData)
	require.Empty(t, links[1].fileName)
	require.Nil(t, links[1].fileData)
}

func TestPipelineEmptyExport(t *testing.T) {
	pipeline := New(Options{Data: []byte("{}"), Store: &fakeStore{}, UserID: "user_1"})
	pipeline.Start(context.Background())
	events := drainEvents(t, pipeline)

	require.Len(t, events, 1)
	require.Equal(t, EventComplete, events[0].Type)
}
