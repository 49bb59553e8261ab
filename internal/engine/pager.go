package engine

import (
	"context"
	"errors"

	"github.com/joshsymonds/emailmanager/internal/gmail"
)

// ErrEndOfListing is returned by Pager.Next after the final page has been
// handed out. It is the listing's explicit terminal value; exhaustion is
// never signaled by an empty page.
var ErrEndOfListing = errors.New("end of listing")

// Lister is the read-only slice of gmail.Client the pager needs.
type Lister interface {
	List(ctx context.Context, q gmail.Query, pageToken string, pageSize int) (gmail.ListPage, error)
}

// Page is one listing page's worth of message ids, in server order.
type Page struct {
	IDs []gmail.MessageID
}

// Pager walks a server-paginated listing one page at a time. The
// continuation cursor only advances when a page comes back successfully, so
// a failed Next can be re-invoked with no items lost or duplicated.
type Pager struct {
	client   Lister
	query    gmail.Query
	pageSize int
	cursor   string
	done     bool
}

// NewPager returns a pager over the messages matching q.
func NewPager(client Lister, q gmail.Query, pageSize int) *Pager {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return &Pager{client: client, query: q, pageSize: pageSize}
}

// Count walks the full listing once and returns how many messages match q.
// Used by the CLI to show a total before asking for confirmation.
func Count(ctx context.Context, client Lister, q gmail.Query, pageSize int) (int, error) {
	pager := NewPager(client, q, pageSize)
	total := 0
	for {
		page, err := pager.Next(ctx)
		if errors.Is(err, ErrEndOfListing) {
			return total, nil
		}
		if err != nil {
			return total, err
		}
		total += len(page.IDs)
	}
}

// Next fetches the next page, or ErrEndOfListing once the listing is
// exhausted. Any other error leaves the cursor where it was.
func (p *Pager) Next(ctx context.Context) (Page, error) {
	for {
		if p.done {
			return Page{}, ErrEndOfListing
		}
		res, err := p.client.List(ctx, p.query, p.cursor, p.pageSize)
		if err != nil {
			return Page{}, err
		}
		p.cursor = res.NextToken
		p.done = res.NextToken == ""
		if len(res.IDs) == 0 {
			// The server may hand back an empty page mid-listing;
			// keep going rather than surface it.
			continue
		}
		return Page{IDs: res.IDs}, nil
	}
}
