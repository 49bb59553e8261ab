// Package report summarizes what a deletion query would touch before any
// mutation happens: total matches plus the noisiest sender domains.
package report

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"time"

	"github.com/joshsymonds/emailmanager/internal/engine"
	"github.com/joshsymonds/emailmanager/internal/gmail"
	"github.com/joshsymonds/emailmanager/internal/rate"
)

func defaultHeaders() []string {
	return []string{"From", "Subject", "Date"}
}

// Options controls one report run.
type Options struct {
	Query    gmail.Query
	PageSize int
	TopN     int
}

// SenderStat ranks one sender domain within the matched set.
type SenderStat struct {
	Domain         string `json:"domain"`
	Count          int    `json:"count"`
	PreviewSubject string `json:"preview_subject"`
}

// Report is the result of one preview run.
type Report struct {
	GeneratedAt time.Time    `json:"generated_at"`
	Query       string       `json:"query"`
	Total       int          `json:"total"`
	Unreadable  int          `json:"unreadable"`
	TopSenders  []SenderStat `json:"top_senders"`
}

// Service executes deletion previews against Gmail metadata.
type Service struct {
	Client  gmail.Client
	Limiter rate.Limiter
	Logger  *slog.Logger
	Clock   func() time.Time
}

// NewService constructs a Service with sane defaults.
func NewService(client gmail.Client, limiter rate.Limiter, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(os.Stderr, nil))
	}
	return &Service{
		Client:  client,
		Limiter: limiter,
		Logger:  logger,
		Clock:   time.Now,
	}
}

// Run lists every message matching opts.Query and aggregates per-domain
// counts from headers-only metadata. Individual metadata failures are
// counted and skipped; a sampling report should not die on one bad message.
func (s *Service) Run(ctx context.Context, opts Options) (Report, error) {
	topN := opts.TopN
	if topN <= 0 {
		topN = 10
	}

	rep := Report{GeneratedAt: s.Clock(), Query: opts.Query.Raw}
	senders := map[string]*SenderStat{}

	pager := engine.NewPager(s.Client, opts.Query, opts.PageSize)
	for {
		page, err := pager.Next(ctx)
		if errors.Is(err, engine.ErrEndOfListing) {
			break
		}
		if err != nil {
			return Report{}, fmt.Errorf("list messages: %w", err)
		}
		for _, id := range page.IDs {
			rep.Total++
			if err := s.Limiter.Wait(ctx); err != nil {
				return Report{}, err
			}
			meta, err := s.Client.GetMetadata(ctx, id, defaultHeaders())
			if err != nil {
				rep.Unreadable++
				s.Logger.Debug("metadata fetch failed", "id", string(id), "error", err)
				continue
			}
			dom := domainOf(meta.Headers["From"])
			if dom == "" {
				continue
			}
			st := senders[dom]
			if st == nil {
				st = &SenderStat{Domain: dom}
				senders[dom] = st
			}
			st.Count++
			if st.PreviewSubject == "" {
				st.PreviewSubject = meta.Headers["Subject"]
			}
		}
	}

	rep.TopSenders = rankSenders(senders, topN)
	return rep, nil
}

func rankSenders(senders map[string]*SenderStat, topN int) []SenderStat {
	out := make([]SenderStat, 0, len(senders))
	for _, st := range senders {
		out = append(out, *st)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Domain < out[j].Domain
	})
	if len(out) > topN {
		out = out[:topN]
	}
	return out
}
