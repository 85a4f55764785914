package importer

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/avelkin/linkvault/internal/model"
)

func TestLinkFieldsDropsUnknownTags(t *testing.T) {
	remaps := NewRemaps()
	remaps.Set(EntityTag, 1, "tag_a")

	fields := linkFields(model.LegacyLinkFields{
		URL:  "https://a.example",
		Tags: []int64{1, 99},
	}, remaps, "tag_import", "user_1")

	require.Equal(t, []string{"tag_a", "tag_import"}, fields["tags"])
	require.Equal(t, "user_1", fields["user"])
	require.NotContains(t, fields, "created_from_feed")
}

func TestLinkFieldsResolvesFeed(t *testing.T) {
	remaps := NewRemaps()
	remaps.Set(EntityFeed, 7, "feed_a")
	feed := int64(7)

	fields := linkFields(model.LegacyLinkFields{
		URL:             "https://a.example",
		CreatedFromFeed: &feed,
	}, remaps, "tag_import", "user_1")

	require.Equal(t, "feed_a", fields["created_from_feed"])
}

func TestFeedItemFieldsRequiresFeed(t *testing.T) {
	remaps := NewRemaps()

	_, err := feedItemFields(model.LegacyFeedItemFields{Feed: 5}, remaps, "user_1")
	require.ErrorIs(t, err, errFeedNotImported)

	remaps.Set(EntityFeed, 5, "feed_a")
	fields, err := feedItemFields(model.LegacyFeedItemFields{Feed: 5}, remaps, "user_1")
	require.NoError(t, err)
	require.Equal(t, "feed_a", fields["feed"])
	require.NotContains(t, fields, "saved_as_link")
}

func TestFeedItemFieldsOmitsDanglingLink(t *testing.T) {
	remaps := NewRemaps()
	remaps.Set(EntityFeed, 5, "feed_a")
	link := int64(9)

	fields, err := feedItemFields(model.LegacyFeedItemFields{Feed: 5, SavedAsLink: &link}, remaps, "user_1")
	require.NoError(t, err)
	require.NotContains(t, fields, "saved_as_link")

	remaps.Set(EntityLink, 9, "link_a")
	fields, err = feedItemFields(model.LegacyFeedItemFields{Feed: 5, SavedAsLink: &link}, remaps, "user_1")
	require.NoError(t, err)
	require.Equal(t, "link_a", fields["saved_as_link"])
}

func TestProgressCounterReachesHundred(t *testing.T) {
	counter := newProgressCounter(CategoryTags, 3)
	first := counter.advance()
	second := counter.advance()
	third := counter.advance()
	require.InDelta(t, 33.33, first, 0.01)
	require.InDelta(t, 66.67, second, 0.01)
	require.InDelta(t, 100, third, 0.001)
	require.LessOrEqual(t, third, 100.0)
}

func TestRemaps(t *testing.T) {
	remaps := NewRemaps()
	remaps.Set(EntityTag, 1, "a")
	remaps.Set(EntityTag, 1, "b")
	remaps.Set(EntityFeed, 1, "c")

	id, ok := remaps.Get(EntityTag, 1)
	require.True(t, ok)
	require.Equal(t, "b", id)
	_, ok = remaps.Get(EntityLink, 1)
	require.False(t, ok)
	require.Equal(t, 1, remaps.Count(EntityTag))
	require.Equal(t, 0, remaps.Count(EntityLink))
}
