// Package users collects usernames from the community page and pulls their
// anime lists from the v2 JSON API.
package users

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"anidata-backend/lib/scrapers/mal/core"
	"anidata-backend/lib/throttle"

	"github.com/PuerkitoBio/goquery"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("scrapers/mal/users")

type Client struct {
	core *core.Client
}

func NewClient(c *core.Client) Client {
	return Client{core: c}
}

// ScrapeUsernames fetches the community page once and returns the usernames
// it shows, deduplicated in page order. The page serves a fresh random batch
// on every request, so callers loop until they have enough.
func (c Client) ScrapeUsernames(ctx context.Context) ([]string, error) {
	ctx, span := tracer.Start(ctx, "client:ScrapeUsernames")
	defer span.End()

	if err := c.core.Sleeper.Sleep(ctx, throttle.Short); err != nil {
		return nil, err
	}

	link := strings.TrimRight(c.core.BaseUrl.String(), "/") + "/users.php"
	res, err := c.core.Fetch(ctx, link, nil)
	if err != nil {
		span.SetStatus(codes.Error, "failed to fetch community page")
		return nil, fmt.Errorf("fetch community page: %w", err)
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewBuffer(res.Body()))
	if err != nil {
		span.SetStatus(codes.Error, "failed to parse community page html")
		return nil, fmt.Errorf("parse community page: %w", err)
	}

	return parseUsernames(doc), nil
}

func parseUsernames(doc *goquery.Document) []string {
	seen := map[string]struct{}{}
	var names []string
	doc.Find("td.borderClass").Each(func(_ int, cell *goquery.Selection) {
		name := strings.TrimSpace(cell.Find("div a").First().Text())
		if name == "" {
			return
		}
		if _, ok := seen[name]; ok {
			return
		}
		seen[name] = struct{}{}
		names = append(names, name)
	})
	return names
}
