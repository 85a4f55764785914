package importer

import (
	"fmt"

	"github.com/avelkin/linkvault/internal/model"
)

// Field translation from legacy source records to destination collection
// payloads. Foreign keys resolve through the remap tables built by earlier
// stages; a reference whose source record never made it into the destination
// is omitted rather than sent dangling.

var errFeedNotImported = fmt.Errorf("referenced feed was not imported")

func tagFields(fields model.LegacyTagFields, userID string) map[string]interface{} {
	return map[string]interface{}{
		"name": fields.Name,
		"slug": fields.Slug,
		"user": userID,
	}
}

func feedFields(fields model.LegacyFeedFields, userID string) map[string]interface{} {
	return map[string]interface{}{
		"name":            fields.Name,
		"feed_url":        fields.FeedURL,
		"description":     fields.Description,
		"image_url":       fields.ImageURL,
		"etag":            fields.ETag,
		"modified":        fields.Modified,
		"last_fetched_at": fields.LastFetchedAt,
		"user":            userID,
	}
}

func linkFields(fields model.LegacyLinkFields, remaps *Remaps, importTagID, userID string) map[string]interface{} {
	tagIDs := make([]string, 0, len(fields.Tags)+1)
	for _, tagPK := range fields.Tags {
		if id, ok := remaps.Get(EntityTag, tagPK); ok {
			tagIDs = append(tagIDs, id)
		}
	}
	tagIDs = append(tagIDs, importTagID)

	payload := map[string]interface{}{
		"original_url":   fields.URL,
		"cleaned_url":    fields.CleanedURL,
		"title":          fields.Title,
		"excerpt":        fields.Excerpt,
		"author":         fields.Author,
		"added_at":       fields.AddedAt,
		"published_at":   fields.PublishedAt,
		"article_html":   fields.ArticleHTML,
		"raw_text":       fields.RawText,
		"full_page_html": fields.FullPageHTML,
		"summary":        fields.Summary,
		"read_time":      fields.ReadTime,
		"tags":           tagIDs,
		"user":           userID,
	}
	if fields.CreatedFromFeed != nil {
		if id, ok := remaps.Get(EntityFeed, *fields.CreatedFromFeed); ok {
			payload["created_from_feed"] = id
		}
	}
	return payload
}

func feedItemFields(fields model.LegacyFeedItemFields, remaps *Remaps, userID string) (map[string]interface{}, error) {
	feedID, ok := remaps.Get(EntityFeed, fields.Feed)
	if !ok {
		return nil, errFeedNotImported
	}
	payload := map[string]interface{}{
		"title":       fields.Title,
		"pub_date":    fields.PubDate,
		"guid":        fields.GUID,
		"description": fields.Description,
		"url":         fields.URL,
		"feed":        feedID,
		"user":        userID,
	}
	if fields.SavedAsLink != nil {
		if id, ok := remaps.Get(EntityLink, *fields.SavedAsLink); ok {
			payload["saved_as_link"] = id
		}
	}
	return payload, nil
}
