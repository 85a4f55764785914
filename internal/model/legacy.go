package model

// Source records from the legacy export. Each record carries the legacy
// integer primary key plus the subset of fields the import actually maps;
// anything else in the payload is ignored.

type LegacyExport struct {
	Tags      []LegacyTag      `json:"tags"`
	Feeds     []LegacyFeed     `json:"feeds"`
	Links     []LegacyLink     `json:"links"`
	FeedItems []LegacyFeedItem `json:"feed_items"`
	Archives  []LegacyArchive  `json:"archives"`
}

type LegacyTag struct {
	PK     int64           `json:"pk"`
	Fields LegacyTagFields `json:"fields"`
}

type LegacyTagFields struct {
	Name string `json:"name"`
	Slug string `json:"slug"`
}

type LegacyFeed struct {
	PK     int64            `json:"pk"`
	Fields LegacyFeedFields `json:"fields"`
}

type LegacyFeedFields struct {
	Name          string `json:"name"`
	FeedURL       string `json:"feed_url"`
	Description   string `json:"description"`
	ImageURL      string `json:"image_url"`
	ETag          string `json:"etag"`
	Modified      string `json:"modified"`
	LastFetchedAt string `json:"last_fetched_at"`
	Deleted       bool   `json:"deleted"`
}

type LegacyLink struct {
	PK     int64            `json:"pk"`
	Fields LegacyLinkFields `json:"fields"`
}

type LegacyLinkFields struct {
	URL             string  `json:"url"`
	CleanedURL      string  `json:"cleaned_url"`
	Title           string  `json:"title"`
	Excerpt         string  `json:"excerpt"`
	Author          string  `json:"author"`
	AddedAt         string  `json:"added_at"`
	PublishedAt     string  `json:"published_at"`
	ArticleHTML     string  `json:"article_html"`
	RawText         string  `json:"raw_text"`
	FullPageHTML    string  `json:"full_page_html"`
	Summary         string  `json:"summary"`
	ReadTime        int     `json:"read_time"`
	Tags            []int64 `json:"tags"`
	CreatedFromFeed *int64  `json:"created_from_feed"`
}

type LegacyFeedItem struct {
	PK     int64                `json:"pk"`
	Fields LegacyFeedItemFields `json:"fields"`
}

type LegacyFeedItemFields struct {
	Title       string `json:"title"`
	PubDate     string `json:"pub_date"`
	GUID        string `json:"guid"`
	Description string `json:"description"`
	URL         string `json:"url"`
	Feed        int64  `json:"feed"`
	SavedAsLink *int64 `json:"saved_as_link"`
}

// LegacyArchive is a page archive blob exported alongside a link, matched
// back to it by the link's legacy pk. Data is base64 in the payload.
type LegacyArchive struct {
	Link int64  `json:"link"`
	Name string `json:"name"`
	Data []byte `json:"data"`
}
