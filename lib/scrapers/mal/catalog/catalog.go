// Package catalog walks the ranked-title listing. The listing is a stable
// page that is assumed to always come back eventually, so unlike the
// per-title fetches this path retries the same offset until it succeeds or
// the context is cancelled.
package catalog

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"anidata-backend/lib/scrapers/mal/core"
	"anidata-backend/lib/textutil"
	"anidata-backend/lib/throttle"

	"github.com/PuerkitoBio/goquery"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

var tracer = otel.Tracer("scrapers/mal/catalog")

const pageSize = 50

// Unscored is the score shown for titles that have not been rated yet. The
// listing is sorted by score, so the first unscored row marks the end of the
// ranked list.
const Unscored = "N/A"

// Record is one row of the ranked listing.
type Record struct {
	Id       string
	Rank     string
	Title    string
	Rating   string
	ImageUrl string
	Type     string
	Episodes string
	Dates    string
	Members  string
}

func Header() []string {
	return []string{
		"Id", "Rank", "Title", "Rating", "Image_URL",
		"Type", "Episodes", "Dates", "Members",
	}
}

func (r Record) Row() []string {
	return []string{
		r.Id, r.Rank, r.Title, r.Rating, r.ImageUrl,
		r.Type, r.Episodes, r.Dates, r.Members,
	}
}

type Client struct {
	core *core.Client
}

func NewClient(c *core.Client) Client {
	return Client{core: c}
}

// Scrape polls listing pages in rank order until the first unscored title.
// That row is still included in the output before the walk stops.
func (c Client) Scrape(ctx context.Context) ([]Record, error) {
	ctx, span := tracer.Start(ctx, "client:Scrape")
	defer span.End()

	var out []Record
	offset := 0
	for {
		if err := c.core.Sleeper.Sleep(ctx, throttle.Short); err != nil {
			return out, err
		}
		doc, err := c.fetchPage(ctx, offset)
		if err != nil {
			return out, err
		}

		records, stop := parsePage(doc)
		out = append(out, records...)
		slog.InfoContext(ctx, "catalog page scraped",
			"offset", offset, "rows", len(records), "total", len(out))

		offset += pageSize
		if stop {
			span.SetAttributes(attribute.Int("records", len(out)))
			return out, nil
		}
	}
}

// fetchPage retries the same offset until it gets a 200. Context
// cancellation is the only way out of a permanently broken listing.
func (c Client) fetchPage(ctx context.Context, offset int) (*goquery.Document, error) {
	link := fmt.Sprintf("/topanime.php?limit=%d", offset)
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		res, err := c.core.Http.R().
			SetContext(ctx).
			Get(link)
		if err != nil {
			slog.WarnContext(ctx, "catalog page fetch failed, retrying",
				"offset", offset, "err", err)
			if err := c.core.Sleeper.Sleep(ctx, throttle.Retry); err != nil {
				return nil, err
			}
			continue
		}
		if res.StatusCode() != http.StatusOK {
			slog.WarnContext(ctx, "catalog page returned unexpected status, retrying",
				"offset", offset, "status", res.StatusCode())
			if err := c.core.Sleeper.Sleep(ctx, throttle.Retry); err != nil {
				return nil, err
			}
			continue
		}

		return goquery.NewDocumentFromReader(bytes.NewBuffer(res.Body()))
	}
}

func parsePage(doc *goquery.Document) ([]Record, bool) {
	var records []Record
	stop := false
	doc.Find("tr.ranking-list").EachWithBreak(func(_ int, row *goquery.Selection) bool {
		rec := parseRow(row)
		records = append(records, rec)
		if rec.Rating == Unscored {
			stop = true
			return false
		}
		return true
	})
	return records, stop
}

func parseRow(row *goquery.Selection) Record {
	rec := Record{
		Id:       textutil.Digits(row.Find("td.title a[id]").First().AttrOr("id", "")),
		Rank:     strings.TrimSpace(row.Find("td.rank span").First().Text()),
		Title:    strings.TrimSpace(row.Find("div.di-ib.clearfix a").First().Text()),
		Rating:   strings.TrimSpace(row.Find("td.score span").First().Text()),
		ImageUrl: row.Find("td.title img").First().AttrOr("data-src", ""),
		Type:     textutil.Sentinel,
		Episodes: textutil.Sentinel,
		Dates:    textutil.Sentinel,
		Members:  textutil.Sentinel,
	}

	// the information block stacks three lines: "TV (64 eps)",
	// "Apr 2009 - Jul 2010", "3,331,144 members"
	var lines []string
	for _, line := range strings.Split(row.Find("div.information").Text(), "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			lines = append(lines, line)
		}
	}
	if len(lines) > 0 {
		media, _, found := strings.Cut(lines[0], "(")
		rec.Type = strings.TrimSpace(media)
		if found {
			rec.Episodes = textutil.Digits(lines[0][strings.Index(lines[0], "("):])
		}
	}
	if len(lines) > 1 {
		rec.Dates = lines[1]
	}
	if len(lines) > 2 {
		rec.Members = textutil.Digits(textutil.StripThousands(lines[2]))
	}
	return rec
}
