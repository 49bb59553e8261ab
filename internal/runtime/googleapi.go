// Package runtime adapts *gmail.Service and OAuth plumbing to the small
// interfaces the rest of the module consumes.
package runtime

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/api/googleapi"
	gmailv1 "google.golang.org/api/gmail/v1"

	gc "github.com/joshsymonds/emailmanager/internal/gmail"
)

type googleClient struct{ svc *gmailv1.Service }

func NewGoogleAPIClient(svc *gmailv1.Service) gc.Client { return &googleClient{svc} }

func (g *googleClient) List(ctx context.Context, q gc.Query, pageToken string, pageSize int) (gc.ListPage, error) {
	call := g.svc.Users.Messages.List("me").Q(q.Raw).MaxResults(int64(pageSize))
	if pageToken != "" {
		call = call.PageToken(pageToken)
	}
	res, err := call.Context(ctx).Do()
	if err != nil {
		return gc.ListPage{}, fmt.Errorf("list messages: %w", err)
	}
	page := gc.ListPage{NextToken: res.NextPageToken}
	for _, m := range res.Messages {
		page.IDs = append(page.IDs, gc.MessageID(m.Id))
	}
	return page, nil
}

// BatchTrash issues one trash call per id and assembles the per-id outcome
// map. The generated Gmail client has no batch-HTTP helper, so this is the
// Go shape of the API's batched per-message trash. Deletion means "move to
// trash", never a permanent delete.
//
// Per-id rejections (404, 400) go into the result map. Anything else — auth,
// quota, 5xx — is a call-level failure: we bail out and return it so the
// caller can classify and retry the whole batch, which is safe because
// trashing an already-trashed message succeeds.
func (g *googleClient) BatchTrash(ctx context.Context, ids []gc.MessageID) (gc.TrashResult, error) {
	res := gc.TrashResult{Failed: make(map[gc.MessageID]error)}
	for _, id := range ids {
		_, err := g.svc.Users.Messages.Trash("me", string(id)).Context(ctx).Do()
		if err == nil {
			res.Done = append(res.Done, id)
			continue
		}
		var gerr *googleapi.Error
		if errors.As(err, &gerr) && (gerr.Code == 404 || gerr.Code == 400) {
			res.Failed[id] = err
			continue
		}
		return gc.TrashResult{}, fmt.Errorf("trash message %s: %w", id, err)
	}
	return res, nil
}

func (g *googleClient) GetMetadata(ctx context.Context, id gc.MessageID, headers []string) (gc.MessageMeta, error) {
	msg, err := g.svc.Users.Messages.Get("me", string(id)).
		Format("metadata").MetadataHeaders(headers...).Context(ctx).Do()
	if err != nil {
		return gc.MessageMeta{}, fmt.Errorf("get metadata for %s: %w", id, err)
	}
	h := map[string]string{}
	if msg.Payload != nil {
		for _, hd := range msg.Payload.Headers {
			h[hd.Name] = hd.Value
		}
	}
	return gc.MessageMeta{ID: id, Headers: h}, nil
}
