package engine

import (
	"context"
	"errors"
	"testing"

	"google.golang.org/api/googleapi"

	"github.com/joshsymonds/emailmanager/internal/gmail"
)

// scriptedLister replays a fixed sequence of List responses and records the
// page token of every call.
type scriptedLister struct {
	script []listReply
	tokens []string
}

type listReply struct {
	page gmail.ListPage
	err  error
}

func (s *scriptedLister) List(_ context.Context, _ gmail.Query, pageToken string, _ int) (gmail.ListPage, error) {
	s.tokens = append(s.tokens, pageToken)
	if len(s.script) == 0 {
		return gmail.ListPage{}, nil
	}
	reply := s.script[0]
	s.script = s.script[1:]
	return reply.page, reply.err
}

func ids(ss ...string) []gmail.MessageID {
	out := make([]gmail.MessageID, len(ss))
	for i, s := range ss {
		out[i] = gmail.MessageID(s)
	}
	return out
}

func TestPagerWalksAllPages(t *testing.T) {
	lister := &scriptedLister{script: []listReply{
		{page: gmail.ListPage{IDs: ids("a", "b"), NextToken: "t1"}},
		{page: gmail.ListPage{IDs: ids("c"), NextToken: "t2"}},
		{page: gmail.ListPage{IDs: ids("d")}},
	}}
	p := NewPager(lister, gmail.Query{Raw: "category:promotions"}, 2)

	var got []gmail.MessageID
	for {
		page, err := p.Next(context.Background())
		if errors.Is(err, ErrEndOfListing) {
			break
		}
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		got = append(got, page.IDs...)
	}
	if len(got) != 4 {
		t.Fatalf("expected 4 ids, got %d", len(got))
	}
	wantTokens := []string{"", "t1", "t2"}
	if len(lister.tokens) != len(wantTokens) {
		t.Fatalf("expected %d list calls, got %d", len(wantTokens), len(lister.tokens))
	}
	for i, want := range wantTokens {
		if lister.tokens[i] != want {
			t.Fatalf("call %d used token %q, want %q", i, lister.tokens[i], want)
		}
	}
	// The terminal value stays terminal.
	if _, err := p.Next(context.Background()); !errors.Is(err, ErrEndOfListing) {
		t.Fatalf("expected ErrEndOfListing again, got %v", err)
	}
}

func TestPagerKeepsCursorOnFailure(t *testing.T) {
	lister := &scriptedLister{script: []listReply{
		{page: gmail.ListPage{IDs: ids("a"), NextToken: "t1"}},
		{err: &googleapi.Error{Code: 503}},
		{page: gmail.ListPage{IDs: ids("b")}},
	}}
	p := NewPager(lister, gmail.Query{}, 1)

	if _, err := p.Next(context.Background()); err != nil {
		t.Fatalf("first page failed: %v", err)
	}
	if _, err := p.Next(context.Background()); err == nil {
		t.Fatal("expected transient failure")
	}
	page, err := p.Next(context.Background())
	if err != nil {
		t.Fatalf("retry failed: %v", err)
	}
	if len(page.IDs) != 1 || page.IDs[0] != "b" {
		t.Fatalf("unexpected retried page: %v", page.IDs)
	}
	// The failed call and the retry both used the cursor from page one.
	if lister.tokens[1] != "t1" || lister.tokens[2] != "t1" {
		t.Fatalf("cursor advanced across a failure: %v", lister.tokens)
	}
}

func TestPagerSkipsEmptyMidListingPages(t *testing.T) {
	lister := &scriptedLister{script: []listReply{
		{page: gmail.ListPage{NextToken: "t1"}},
		{page: gmail.ListPage{IDs: ids("a")}},
	}}
	p := NewPager(lister, gmail.Query{}, 1)

	page, err := p.Next(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(page.IDs) != 1 {
		t.Fatalf("expected the empty page to be skipped, got %v", page.IDs)
	}
}

func TestPagerEmptyListing(t *testing.T) {
	lister := &scriptedLister{script: []listReply{{page: gmail.ListPage{}}}}
	p := NewPager(lister, gmail.Query{}, 1)

	if _, err := p.Next(context.Background()); !errors.Is(err, ErrEndOfListing) {
		t.Fatalf("expected ErrEndOfListing, got %v", err)
	}
}

func TestCount(t *testing.T) {
	lister := &scriptedLister{script: []listReply{
		{page: gmail.ListPage{IDs: ids("a", "b"), NextToken: "t1"}},
		{page: gmail.ListPage{IDs: ids("c", "d", "e")}},
	}}
	total, err := Count(context.Background(), lister, gmail.Query{}, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if total != 5 {
		t.Fatalf("expected 5, got %d", total)
	}
}
