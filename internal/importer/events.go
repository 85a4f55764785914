package importer

import "github.com/avelkin/linkvault/internal/model"

type Category = string

const (
	CategoryTags      Category = "tags"
	CategoryFeeds     Category = "feeds"
	CategoryFeedItems Category = "feedItems"
	CategoryLinks     Category = "links"
)

type EventType = string

const (
	EventProgress EventType = "progress"
	EventError    EventType = "error"
	EventComplete EventType = "complete"
)

// Event is one message on the pipeline's one-way channel to its host.
// Progress events carry a category and a 0-100 percentage; error and
// complete are terminal, and the channel is closed after either.
type Event struct {
	Type     EventType        `json:"type"`
	Category Category         `json:"category,omitempty"`
	Progress float64          `json:"progress,omitempty"`
	Error    string           `json:"error,omitempty"`
	Report   *model.RunReport `json:"report,omitempty"`
}
