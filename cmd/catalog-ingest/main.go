// Command catalog-ingest loads a gzipped JSONL product feed into the
// catalog_cache table, so the API server can start with a warm local catalog
// instead of depending on the remote catalog service being up.
//
// Feed format: one JSON object per line, matching the catalog service's
// product representation:
//
//	{"id":"p1","name":"Waffle","price":"6.50","category":"Waffle","image":{"thumbnail":"..."}}
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"sync/atomic"

	"github.com/go-faster/errors"
	pgzip "github.com/klauspost/pgzip"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/myshop/storefront/internal/domain/product"
	"github.com/myshop/storefront/internal/storage/postgres"
)

const (
	defaultWorkers = 8
	progressEvery  = 10_000
	maxLineBytes   = 1 << 20
)

// feedRecord is one line of the product feed.
type feedRecord struct {
	ID       string          `json:"id"`
	Name     string          `json:"name"`
	Price    decimal.Decimal `json:"price"`
	Category string          `json:"category"`
	Image    struct {
		Thumbnail string `json:"thumbnail"`
		Mobile    string `json:"mobile"`
		Tablet    string `json:"tablet"`
		Desktop   string `json:"desktop"`
	} `json:"image"`
}

func main() {
	var (
		feedPath    string
		databaseURL string
		workers     int
	)

	flag.StringVar(&feedPath, "feed", "data/products.jsonl.gz", "path to the gzipped JSONL product feed")
	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.IntVar(&workers, "workers", defaultWorkers, "number of concurrent upsert workers")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, feedPath, databaseURL, workers); err != nil {
		slog.Error("catalog ingest failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("catalog ingest completed successfully")
}

func run(ctx context.Context, feedPath, databaseURL string, workers int) error {
	if workers < 1 {
		workers = 1
	}

	pool, err := postgres.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	cache := postgres.NewCatalogCache(pool)

	records := make(chan product.Product, workers*2)
	var written, skipped atomic.Uint64

	g, ctx := errgroup.WithContext(ctx)
	for range workers {
		g.Go(func() error {
			for p := range records {
				if err := cache.Put(ctx, p); err != nil {
					return errors.Wrapf(err, "upsert product %s", p.ID)
				}
				if n := written.Add(1); n%progressEvery == 0 {
					slog.Info("ingest progress", slog.Uint64("written", n))
				}
			}
			return nil
		})
	}

	g.Go(func() error {
		defer close(records)
		return streamFeed(ctx, feedPath, func(rec feedRecord) {
			p, ok := toProduct(rec)
			if !ok {
				skipped.Add(1)
				return
			}
			select {
			case records <- p:
			case <-ctx.Done():
			}
		})
	})

	if err := g.Wait(); err != nil {
		return err
	}

	slog.Info("ingest summary",
		slog.Uint64("written", written.Load()),
		slog.Uint64("skipped", skipped.Load()),
	)
	return nil
}

// toProduct validates a feed record. Records missing an ID or name, or with a
// negative price, are skipped rather than failing the whole run.
func toProduct(rec feedRecord) (product.Product, bool) {
	if rec.ID == "" || rec.Name == "" || rec.Price.IsNegative() {
		return product.Product{}, false
	}
	return product.Product{
		ID:       rec.ID,
		Name:     rec.Name,
		Price:    rec.Price,
		Category: rec.Category,
		Image: product.Image{
			Thumbnail: rec.Image.Thumbnail,
			Mobile:    rec.Image.Mobile,
			Tablet:    rec.Image.Tablet,
			Desktop:   rec.Image.Desktop,
		},
	}, true
}

// streamFeed opens the gzipped feed and calls fn for each decoded line.
// Malformed lines abort the run: a corrupt feed should be fixed, not
// partially ingested.
func streamFeed(ctx context.Context, path string, fn func(rec feedRecord)) error {
	f, err := os.Open(path)
	if err != nil {
		return errors.Wrapf(err, "open %s", path)
	}
	defer func() { _ = f.Close() }()

	gz, err := pgzip.NewReader(f)
	if err != nil {
		return errors.Wrapf(err, "create gzip reader for %s", path)
	}
	defer func() { _ = gz.Close() }()

	scanner := bufio.NewScanner(gz)
	scanner.Buffer(make([]byte, 64*1024), maxLineBytes)

	line := 0
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		line++
		raw := scanner.Bytes()
		if len(raw) == 0 {
			continue
		}

		var rec feedRecord
		if err := json.Unmarshal(raw, &rec); err != nil {
			return errors.Wrapf(err, "decode feed line %d", line)
		}
		fn(rec)
	}

	if err := scanner.Err(); err != nil {
		return errors.Wrapf(err, "scan %s", path)
	}
	return nil
}
