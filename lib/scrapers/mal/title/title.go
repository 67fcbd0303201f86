// Package title extracts the full detail record for a single anime: the
// fixed-schema stats, synopsis and cast from the detail pages, its
// recommendations, and one page of tagged reviews.
package title

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"anidata-backend/lib/htmlutil"
	"anidata-backend/lib/scrapers/mal/core"
	"anidata-backend/lib/textutil"
	"anidata-backend/lib/throttle"

	"github.com/PuerkitoBio/goquery"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("scrapers/mal/title")

type Client struct {
	core *core.Client
}

func NewClient(c *core.Client) Client {
	return Client{core: c}
}

// Detail is the outcome of one title scrape. ReviewsUrl is resolved from the
// detail page so the caller can fetch reviews after persisting the record.
// FailedFetches lists sub-page urls whose fetch was denied or ran out of
// retries; the fields they would have filled stay at the sentinel, and the
// caller decides how to record the failures.
type Detail struct {
	Record        *Record
	ReviewsUrl    string
	FailedFetches []string
}

// ScrapeDetail builds the Record for one title id. A failed fetch of the main
// detail page aborts the title; a failed fetch of a sub-page is reported on
// the Detail, and missing individual fields log and leave sentinels behind.
func (c Client) ScrapeDetail(ctx context.Context, id int) (*Detail, error) {
	ctx, span := tracer.Start(ctx, "client:ScrapeDetail")
	defer span.End()
	span.SetAttributes(attribute.Int("id", id))

	if err := c.core.Sleeper.Sleep(ctx, throttle.Short); err != nil {
		return nil, err
	}

	link := c.pageUrl(id)
	res, err := c.core.Fetch(ctx, link, nil)
	if err != nil {
		span.SetStatus(codes.Error, "failed to fetch detail page")
		return nil, fmt.Errorf("fetch detail page: %w", err)
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewBuffer(res.Body()))
	if err != nil {
		span.SetStatus(codes.Error, "failed to parse detail page html")
		return nil, fmt.Errorf("parse detail page: %w", err)
	}

	rec := NewRecord(id)
	detail := &Detail{Record: rec}

	if synopsis := textutil.NormalizeSpace(doc.Find("p[itemprop=description]").Text()); synopsis != "" {
		rec.Synopsis = synopsis
	} else {
		slog.WarnContext(ctx, "missing synopsis", "id", id)
	}
	rec.VoiceActors = parseVoiceActors(doc)

	// the anchor text alone is ambiguous, the href must carry the title id
	idStr := strconv.Itoa(id)
	statsUrl, ok := htmlutil.FindAnchorByText(ctx, doc, "Stats", idStr)
	if ok {
		if err := c.noteFetchFailure(detail, statsUrl, c.scrapeStats(ctx, statsUrl, rec)); err != nil {
			return nil, err
		}
	} else {
		slog.WarnContext(ctx, "missing stats link", "id", id)
	}

	recsUrl, ok := htmlutil.FindAnchorByText(ctx, doc, "Recommendations", idStr)
	if ok {
		if err := c.noteFetchFailure(detail, recsUrl, c.scrapeRecommendations(ctx, recsUrl, rec)); err != nil {
			return nil, err
		}
	} else {
		slog.WarnContext(ctx, "missing recommendations link", "id", id)
	}

	detail.ReviewsUrl, ok = htmlutil.FindAnchorByText(ctx, doc, "Reviews", idStr)
	if !ok {
		slog.WarnContext(ctx, "missing reviews link", "id", id)
	}

	return detail, nil
}

// noteFetchFailure records a denied or exhausted sub-page fetch on the Detail
// so the record still goes out with sentinels. Any other error (a cancelled
// context, most commonly) is returned to abort the title.
func (c Client) noteFetchFailure(detail *Detail, link string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, core.ErrAccessDenied) || errors.Is(err, core.ErrExhausted) {
		detail.FailedFetches = append(detail.FailedFetches, link)
		return nil
	}
	return err
}

func (c Client) pageUrl(id int) string {
	return fmt.Sprintf("%s/anime/%d", strings.TrimRight(c.core.BaseUrl.String(), "/"), id)
}

func (c Client) scrapeStats(ctx context.Context, link string, rec *Record) error {
	ctx, span := tracer.Start(ctx, "client:scrapeStats")
	defer span.End()

	if err := c.core.Sleeper.Sleep(ctx, throttle.Short); err != nil {
		return err
	}
	res, err := c.core.Fetch(ctx, link, nil)
	if err != nil {
		span.RecordError(err)
		slog.WarnContext(ctx, "failed to fetch stats page", "url", link, "err", err)
		return err
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewBuffer(res.Body()))
	if err != nil {
		span.RecordError(err)
		slog.WarnContext(ctx, "failed to parse stats page", "url", link, "err", err)
		return nil
	}
	parseStats(doc, rec)
	return nil
}

func (c Client) scrapeRecommendations(ctx context.Context, link string, rec *Record) error {
	ctx, span := tracer.Start(ctx, "client:scrapeRecommendations")
	defer span.End()

	if err := c.core.Sleeper.Sleep(ctx, throttle.Short); err != nil {
		return err
	}
	res, err := c.core.Fetch(ctx, link, nil)
	if err != nil {
		span.RecordError(err)
		slog.WarnContext(ctx, "failed to fetch recommendations page", "url", link, "err", err)
		return err
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewBuffer(res.Body()))
	if err != nil {
		span.RecordError(err)
		slog.WarnContext(ctx, "failed to parse recommendations page", "url", link, "err", err)
		return nil
	}
	rec.RecommendedIds, rec.RecommendedCounts = parseRecommendations(doc)
	return nil
}

func parseVoiceActors(doc *goquery.Document) []string {
	var actors []string
	doc.Find("td.va-t.ar.pl4.pr4").Each(func(_ int, cell *goquery.Selection) {
		name := strings.TrimSpace(cell.Find("a").First().Text())
		if name != "" {
			actors = append(actors, name)
		}
	})
	return actors
}

func parseStats(doc *goquery.Document, rec *Record) {
	if name := strings.TrimSpace(doc.Find("h1.title-name").First().Text()); name != "" {
		rec.Name = name
	}
	if score := strings.TrimSpace(doc.Find("span[itemprop=ratingValue]").First().Text()); score != "" {
		rec.Score = score
	}

	var genres []string
	doc.Find("span[itemprop=genre]").Each(func(_ int, s *goquery.Selection) {
		genres = append(genres, strings.TrimSpace(s.Text()))
	})
	if len(genres) > 0 {
		rec.Genres = genres
		// layout quirk: the demographic renders as the trailing genre entry
		rec.Demographic = genres[len(genres)-1]
	}

	doc.Find("span.dark_text").Each(func(_ int, s *goquery.Selection) {
		line := textutil.NormalizeSpace(s.Parent().Text())
		category, value, found := strings.Cut(line, ":")
		if !found {
			return
		}
		assignCategory(rec, strings.TrimSpace(category), strings.TrimSpace(value))
	})

	parseScoreHistogram(doc, rec)
}

// assignCategory maps one "Category: value" row of the sidebar/stats block
// onto the record. Categories handled elsewhere (Genres, Score) or not part
// of the schema (Broadcast) are skipped.
func assignCategory(rec *Record, category, value string) {
	switch category {
	case "Synonyms":
		rec.SynonymsName = strings.ReplaceAll(value, ",", "")
	case "Japanese":
		rec.JapaneseName = strings.ReplaceAll(value, ",", "")
	case "English":
		rec.EnglishName = strings.ReplaceAll(value, ",", "")
	case "Type":
		rec.Type = value
	case "Episodes":
		rec.Episodes = value
	case "Status":
		rec.Status = value
	case "Aired":
		rec.Aired = value
	case "Premiered":
		rec.Premiered = value
	case "Source":
		rec.Source = value
	case "Duration":
		rec.Duration = value
	case "Rating":
		rec.ContentRating = value
	case "Producers":
		rec.Producers = textutil.SplitList(value)
	case "Licensors":
		rec.Licensors = textutil.SplitList(value)
	case "Studios":
		rec.Studios = textutil.SplitList(value)
	case "Ranked":
		rec.Ranked = textutil.StripThousands(strings.ReplaceAll(value, "#", ""))
	case "Popularity":
		rec.Popularity = textutil.StripThousands(strings.ReplaceAll(value, "#", ""))
	case "Members":
		rec.Members = textutil.StripThousands(value)
	case "Favorites":
		rec.Favorites = textutil.StripThousands(value)
	case "Watching":
		rec.Watching = textutil.StripThousands(value)
	case "Completed":
		rec.Completed = textutil.StripThousands(value)
	case "On-Hold":
		rec.OnHold = textutil.StripThousands(value)
	case "Dropped":
		rec.Dropped = textutil.StripThousands(value)
	case "Plan to Watch":
		rec.PlanToWatch = textutil.StripThousands(value)
	case "Total":
		rec.Total = textutil.StripThousands(value)
	}
}

func parseScoreHistogram(doc *goquery.Document, rec *Record) {
	doc.Find("div#horiznav_nav").Parent().Find("div.updatesBar").Each(func(_ int, bar *goquery.Selection) {
		label := strings.TrimSpace(bar.ParentsFiltered("tr").First().Find("td.score-label").First().Text())
		score, err := strconv.Atoi(label)
		if err != nil || score < 1 || score > 10 {
			return
		}

		// the cell text looks like "36.2% (12345 votes)"; keep the votes
		raw := textutil.NormalizeSpace(bar.Parent().Text())
		parts := strings.Split(raw, "%")
		votes := strings.Trim(strings.TrimSpace(parts[len(parts)-1]), "(votes) ")
		if votes != "" {
			rec.ScoreBuckets[10-score] = votes
		}
	})
}

func parseRecommendations(doc *goquery.Document) (ids, counts []string) {
	doc.Find("div.hoverinfo").Each(func(_ int, s *goquery.Selection) {
		ids = append(ids, textutil.Digits(s.AttrOr("rel", "")))
	})

	var votes []string
	doc.Find("a.js-similar-recommendations-button").Each(func(_ int, s *goquery.Selection) {
		votes = append(votes, strings.TrimSpace(s.Find("strong").Text()))
	})

	counts = make([]string, len(ids))
	for i := range ids {
		if i < len(votes) {
			counts[i] = votes[i]
		} else {
			// the page omits the vote anchor for single-vote entries
			counts[i] = "1"
		}
	}
	return ids, counts
}
