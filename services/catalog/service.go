// Package catalog drives the catalog-side datasets: the ranking walk and the
// per-title detail/review extraction, persisted incrementally so interrupted
// runs resume where they stopped.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strconv"
	"strings"

	malcatalog "anidata-backend/lib/scrapers/mal/catalog"
	"anidata-backend/lib/scrapers/mal/core"
	"anidata-backend/lib/scrapers/mal/title"
	"anidata-backend/lib/sink"
	"anidata-backend/lib/throttle"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

var tracer = otel.Tracer("services/catalog")

const (
	TopFile     = "top_anime.csv"
	InfoFile    = "anime_info.csv"
	ReviewsFile = "anime_reviews.csv"
	LedgerFile  = "log_id.csv"
)

type Options struct {
	SiteUrl   string
	UserAgent string
	OutputDir string
	Sleeper   throttle.Sleeper
}

type Service struct {
	listing   malcatalog.Client
	titles    title.Client
	siteUrl   string
	outputDir string
}

func NewService(opts Options) (*Service, error) {
	client, err := core.NewClient(core.ClientOptions{
		BaseUrl:   opts.SiteUrl,
		UserAgent: opts.UserAgent,
		Sleeper:   opts.Sleeper,
	})
	if err != nil {
		return nil, fmt.Errorf("create site client: %w", err)
	}
	return &Service{
		listing:   malcatalog.NewClient(client),
		titles:    title.NewClient(client),
		siteUrl:   strings.TrimRight(opts.SiteUrl, "/"),
		outputDir: opts.OutputDir,
	}, nil
}

func (s *Service) path(name string) string {
	return filepath.Join(s.outputDir, name)
}

// ScrapeTop walks the ranking until the first unscored entry and replaces the
// top file with the result. Returns the number of records written.
func (s *Service) ScrapeTop(ctx context.Context) (int, error) {
	ctx, span := tracer.Start(ctx, "service:ScrapeTop")
	defer span.End()

	records, err := s.listing.Scrape(ctx)
	if err != nil {
		return 0, fmt.Errorf("walk ranking: %w", err)
	}

	rows := make([][]string, len(records))
	for i, rec := range records {
		rows[i] = rec.Row()
	}
	if err := sink.WriteTable(s.path(TopFile), malcatalog.Header(), rows); err != nil {
		return 0, err
	}

	slog.InfoContext(ctx, "ranking walk complete", "records", len(records))
	return len(records), nil
}

// ScrapeTitle extracts one title's detail record and first page of reviews.
func (s *Service) ScrapeTitle(ctx context.Context, id int) error {
	info, err := sink.OpenTable(s.path(InfoFile), title.Header())
	if err != nil {
		return err
	}
	defer info.Close()
	reviews, err := sink.OpenTable(s.path(ReviewsFile), title.ReviewHeader())
	if err != nil {
		return err
	}
	defer reviews.Close()
	ledger, err := sink.OpenLedger(s.path(LedgerFile), []string{"MAL_Id", "URL"})
	if err != nil {
		return err
	}
	defer ledger.Close()

	return s.scrapeTitle(ctx, id, info, reviews, ledger)
}

// scrapeTitle persists one title. Fetch failures on the title are recorded in
// the ledger and swallowed so a batch run keeps moving; anything else (a
// cancelled context, a full disk) stops the run.
func (s *Service) scrapeTitle(ctx context.Context, id int, info, reviews *sink.Table, ledger *sink.Ledger) error {
	ctx, span := tracer.Start(ctx, "service:scrapeTitle")
	defer span.End()
	span.SetAttributes(attribute.Int("id", id))

	detail, err := s.titles.ScrapeDetail(ctx, id)
	if errors.Is(err, core.ErrAccessDenied) || errors.Is(err, core.ErrExhausted) {
		slog.WarnContext(ctx, "title skipped", "id", id, "err", err)
		return ledger.Record(strconv.Itoa(id), s.titleUrl(id))
	}
	if err != nil {
		return err
	}

	if err := info.Append(detail.Record.Row()); err != nil {
		return err
	}

	// sub-page fetches that were denied or exhausted left sentinels in the
	// record; ledger them so a later run can re-target the title
	for _, link := range detail.FailedFetches {
		slog.WarnContext(ctx, "title sub-page skipped", "id", id, "url", link)
		if err := ledger.Record(strconv.Itoa(id), link); err != nil {
			return err
		}
	}

	reviewList, err := s.titles.ScrapeReviews(ctx, detail.ReviewsUrl, id, 1)
	if errors.Is(err, core.ErrAccessDenied) || errors.Is(err, core.ErrExhausted) {
		slog.WarnContext(ctx, "reviews skipped", "id", id, "err", err)
		return ledger.Record(strconv.Itoa(id), detail.ReviewsUrl)
	}
	if err != nil {
		return err
	}
	rows := make([][]string, len(reviewList))
	for i, review := range reviewList {
		rows[i] = review.Row()
	}
	return reviews.AppendAll(rows)
}

func (s *Service) titleUrl(id int) string {
	return fmt.Sprintf("%s/anime/%d", s.siteUrl, id)
}

// ScrapeTitles runs the detail extraction over every id in the given ranking
// file, starting at the given zero-based offset so interrupted runs can
// resume. Returns the number of ids processed.
func (s *Service) ScrapeTitles(ctx context.Context, listPath string, startAt int) (int, error) {
	ctx, span := tracer.Start(ctx, "service:ScrapeTitles")
	defer span.End()

	ids, err := sink.ReadColumn(listPath, "Id")
	if err != nil {
		return 0, fmt.Errorf("read ranking ids: %w", err)
	}
	if startAt < 0 || startAt > len(ids) {
		return 0, fmt.Errorf("start offset %d out of range (have %d ids)", startAt, len(ids))
	}

	info, err := sink.OpenTable(s.path(InfoFile), title.Header())
	if err != nil {
		return 0, err
	}
	defer info.Close()
	reviews, err := sink.OpenTable(s.path(ReviewsFile), title.ReviewHeader())
	if err != nil {
		return 0, err
	}
	defer reviews.Close()
	ledger, err := sink.OpenLedger(s.path(LedgerFile), []string{"MAL_Id", "URL"})
	if err != nil {
		return 0, err
	}
	defer ledger.Close()

	processed := 0
	for i, rawId := range ids[startAt:] {
		if err := ctx.Err(); err != nil {
			return processed, err
		}

		id, err := strconv.Atoi(rawId)
		if err != nil {
			slog.WarnContext(ctx, "malformed id in ranking file", "value", rawId)
			continue
		}
		if err := s.scrapeTitle(ctx, id, info, reviews, ledger); err != nil {
			return processed, err
		}
		processed++

		if (i+1)%20 == 0 {
			slog.InfoContext(ctx, "title batch progress",
				"done", startAt+i+1, "total", len(ids))
		}
	}

	slog.InfoContext(ctx, "title batch complete",
		"processed", processed, "table", info.Path())
	return processed, nil
}
