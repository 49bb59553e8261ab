// Command erase-emails-report previews a deletion query: how many messages
// match and which sender domains dominate. Read-only.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/joshsymonds/emailmanager/internal/engine"
	"github.com/joshsymonds/emailmanager/internal/gmail"
	"github.com/joshsymonds/emailmanager/internal/rate"
	"github.com/joshsymonds/emailmanager/internal/report"
	"github.com/joshsymonds/emailmanager/internal/runtime"
)

type reportConfig struct {
	cfgDir   string
	category string
	start    string
	end      string
	topN     int
	pageSize int
	rps      float64
	burst    int
	asJSON   bool
}

func main() {
	cfg := parseReportFlags()
	if err := run(cfg); err != nil {
		runtime.DefaultLogger().Error("erase-emails-report failed", "error", err)
		os.Exit(1)
	}
}

func parseReportFlags() reportConfig {
	_ = godotenv.Load()

	cfgDir := flag.String("config", envOr("ERASE_CONFIG_DIR", os.ExpandEnv("$HOME/.gmailctl")), "gmailctl auth directory")
	category := flag.String("category", envOr("ERASE_CATEGORY", ""), "inbox category to preview")
	start := flag.String("start", "", "start date YYYY-MM-DD")
	end := flag.String("end", "", "end date YYYY-MM-DD, exclusive")
	topN := flag.Int("top", 10, "number of sender domains to show")
	pageSize := flag.Int("page-size", engine.DefaultPageSize, "listing page size")
	rps := flag.Float64("rps", 10, "sustained metadata calls per second")
	burst := flag.Int("burst", 10, "burst capacity of the rate limiter")
	asJSON := flag.Bool("json", false, "emit the report as JSON")
	flag.Parse()

	return reportConfig{
		cfgDir:   *cfgDir,
		category: *category,
		start:    *start,
		end:      *end,
		topN:     *topN,
		pageSize: *pageSize,
		rps:      *rps,
		burst:    *burst,
		asJSON:   *asJSON,
	}
}

func run(cfg reportConfig) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if !gmail.ValidCategory(cfg.category) {
		return fmt.Errorf("unknown category %q (want one of %s)",
			cfg.category, strings.Join(gmail.Categories, "/"))
	}
	start, end, err := dateRange(cfg.start, cfg.end)
	if err != nil {
		return err
	}

	log := runtime.DefaultLogger()
	client, err := runtime.NewGmailClient(ctx, cfg.cfgDir, runtime.ScopeReadonly)
	if err != nil {
		return fmt.Errorf("create gmail client: %w", err)
	}

	svc := report.NewService(client, rate.NewTokenBucket(cfg.rps, cfg.burst), log)
	rep, err := svc.Run(ctx, report.Options{
		Query:    gmail.CategoryQuery(cfg.category, start, end),
		PageSize: cfg.pageSize,
		TopN:     cfg.topN,
	})
	if err != nil {
		return fmt.Errorf("run report: %w", err)
	}

	if cfg.asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(rep)
	}
	printReport(rep)
	return nil
}

func printReport(rep report.Report) {
	fmt.Printf("query: %s\n", rep.Query)
	fmt.Printf("matched: %d messages", rep.Total)
	if rep.Unreadable > 0 {
		fmt.Printf(" (%d unreadable)", rep.Unreadable)
	}
	fmt.Println()
	for _, st := range rep.TopSenders {
		fmt.Printf("  %5d  %-30s  %s\n", st.Count, st.Domain, st.PreviewSubject)
	}
}

func dateRange(startStr, endStr string) (time.Time, time.Time, error) {
	now := time.Now()
	start := now.AddDate(0, 0, -30)
	end := now
	var err error
	if startStr != "" {
		if start, err = time.Parse("2006-01-02", startStr); err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid start date %q: use YYYY-MM-DD", startStr)
		}
	}
	if endStr != "" {
		if end, err = time.Parse("2006-01-02", endStr); err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid end date %q: use YYYY-MM-DD", endStr)
		}
	}
	if end.Before(start) {
		return time.Time{}, time.Time{}, fmt.Errorf("end date %s is before start date %s",
			end.Format("2006-01-02"), start.Format("2006-01-02"))
	}
	return start, end, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
