package gmail

import (
	"fmt"
	"slices"
	"time"
)

type MessageID string

// Query is a raw Gmail search expression, already formed
// (e.g. `category:promotions after:2024-09-01 before:2024-10-16`).
type Query struct {
	Raw string
}

// Categories lists the inbox tabs a deletion query may target.
var Categories = []string{"primary", "promotions", "social", "updates", "forums"}

// ValidCategory reports whether name is a known inbox category.
func ValidCategory(name string) bool {
	return slices.Contains(Categories, name)
}

// CategoryQuery builds the standard category + date-range query. The end
// date is exclusive, matching Gmail's before: semantics.
func CategoryQuery(category string, start, end time.Time) Query {
	return Query{Raw: fmt.Sprintf("category:%s after:%s before:%s",
		category, start.Format("2006-01-02"), end.Format("2006-01-02"))}
}

// ListPage is one page of a message listing. An empty NextToken means the
// listing is exhausted.
type ListPage struct {
	IDs       []MessageID
	NextToken string
}

// TrashResult is the per-id outcome of one bulk trash call. IDs the server
// rejected individually land in Failed with the error it gave for them.
type TrashResult struct {
	Done   []MessageID
	Failed map[MessageID]error
}

// MessageMeta holds headers-only metadata for one message.
type MessageMeta struct {
	ID      MessageID
	Headers map[string]string // From, Subject, Date, etc.
}
