package gmail

import "context"

// Client is the narrow Gmail surface required by this tool.
type Client interface {
	// List returns one page of message ids matching q, resuming from
	// pageToken ("" for the first page).
	List(ctx context.Context, q Query, pageToken string, pageSize int) (ListPage, error)

	// BatchTrash moves the given messages to the trash and reports the
	// per-id outcome. A non-nil error means the call as a whole failed and
	// may be retried; trashing is idempotent so re-submitting ids that
	// already went through is safe.
	BatchTrash(ctx context.Context, ids []MessageID) (TrashResult, error)

	// GetMetadata fetches headers-only metadata for one message.
	GetMetadata(ctx context.Context, id MessageID, headers []string) (MessageMeta, error)
}
