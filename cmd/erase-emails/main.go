// Command erase-emails bulk-deletes Gmail messages selected by category and
// date range, respecting API quotas. Deletion moves messages to the trash.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/joshsymonds/emailmanager/internal/engine"
	"github.com/joshsymonds/emailmanager/internal/gmail"
	"github.com/joshsymonds/emailmanager/internal/rate"
	"github.com/joshsymonds/emailmanager/internal/runtime"
)

type eraseConfig struct {
	cfgDir     string
	category   string
	start      string
	end        string
	dryRun     bool
	yes        bool
	batchSize  int
	pageSize   int
	maxRetries int
	workers    int
	rps        float64
	burst      int
}

func main() {
	cfg := parseEraseFlags()
	ok, err := run(cfg)
	if err != nil {
		runtime.DefaultLogger().Error("erase-emails failed", "error", err)
		os.Exit(1)
	}
	if !ok {
		os.Exit(1)
	}
}

func parseEraseFlags() eraseConfig {
	// .env provides defaults the same way the flags do; missing file is fine.
	_ = godotenv.Load()

	cfgDir := flag.String("config", envOr("ERASE_CONFIG_DIR", os.ExpandEnv("$HOME/.gmailctl")), "gmailctl auth directory")
	category := flag.String("category", envOr("ERASE_CATEGORY", ""), "inbox category to erase (primary/promotions/social/updates/forums)")
	start := flag.String("start", "", "start date YYYY-MM-DD (default: lookback days ago)")
	end := flag.String("end", "", "end date YYYY-MM-DD, exclusive (default: today)")
	dryRun := flag.Bool("dry-run", false, "report what would be deleted; no mutations, no quota")
	yes := flag.Bool("yes", false, "skip the interactive confirmation")
	batchSize := flag.Int("batch-size", engine.DefaultBatchSize, "ids per delete batch (<=25)")
	pageSize := flag.Int("page-size", engine.DefaultPageSize, "listing page size")
	maxRetries := flag.Int("max-retries", engine.DefaultMaxRetries, "retries per transient failure")
	workers := flag.Int("workers", engine.DefaultWorkers, "concurrent in-flight batches (<=4)")
	rps := flag.Float64("rps", 5, "sustained delete calls per second")
	burst := flag.Int("burst", 5, "burst capacity of the rate limiter")
	flag.Parse()

	return eraseConfig{
		cfgDir:     *cfgDir,
		category:   *category,
		start:      *start,
		end:        *end,
		dryRun:     *dryRun,
		yes:        *yes,
		batchSize:  *batchSize,
		pageSize:   *pageSize,
		maxRetries: *maxRetries,
		workers:    *workers,
		rps:        *rps,
		burst:      *burst,
	}
}

// run returns ok=false when the run ended in Aborted or Cancelled.
func run(cfg eraseConfig) (bool, error) {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if !gmail.ValidCategory(cfg.category) {
		return false, fmt.Errorf("unknown category %q (want one of %s)",
			cfg.category, strings.Join(gmail.Categories, "/"))
	}
	start, end, err := dateRange(cfg.start, cfg.end)
	if err != nil {
		return false, err
	}
	query := gmail.CategoryQuery(cfg.category, start, end)

	log := runtime.DefaultLogger()
	client, err := runtime.NewGmailClient(ctx, cfg.cfgDir, runtime.ScopeModify)
	if err != nil {
		return false, fmt.Errorf("create gmail client: %w", err)
	}

	if !cfg.dryRun && !cfg.yes {
		total, cerr := engine.Count(ctx, client, query, cfg.pageSize)
		if cerr != nil {
			return false, fmt.Errorf("count matches: %w", cerr)
		}
		if total == 0 {
			log.Info("no messages match", "query", query.Raw)
			return true, nil
		}
		if !confirm(total, cfg.category) {
			log.Info("cancelled by user")
			return true, nil
		}
	}

	limiter := rate.NewTokenBucket(cfg.rps, cfg.burst)
	eng := engine.New(client, limiter, log)
	eng.Reporter = runtime.LogReporter{Log: log}

	sum := eng.Run(ctx, query, engine.Options{
		DryRun:     cfg.dryRun,
		BatchSize:  cfg.batchSize,
		PageSize:   cfg.pageSize,
		MaxRetries: cfg.maxRetries,
		Workers:    cfg.workers,
	})
	return sum.Status.OK(), nil
}

func confirm(total int, category string) bool {
	fmt.Fprintf(os.Stderr, "Delete %d %s emails? (yes/no): ", total, category)
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil {
		return false
	}
	return strings.EqualFold(strings.TrimSpace(line), "yes")
}

// dateRange applies the original tool's defaults: last lookback days
// (30 unless ERASE_LOOKBACK_DAYS says otherwise) up to today.
func dateRange(startStr, endStr string) (time.Time, time.Time, error) {
	lookback := 30
	if v := os.Getenv("ERASE_LOOKBACK_DAYS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			lookback = n
		}
	}
	now := time.Now()
	start := now.AddDate(0, 0, -lookback)
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
