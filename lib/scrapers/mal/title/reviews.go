package title

import (
	"bytes"
	"context"
	"fmt"
	"strconv"
	"strings"

	"anidata-backend/lib/textutil"
	"anidata-backend/lib/throttle"

	"github.com/PuerkitoBio/goquery"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// Review is one free-text review with its derived tag list.
type Review struct {
	TitleId string
	Text    string
	Tags    []string
}

func ReviewHeader() []string {
	return []string{"MAL_Id", "Review", "Tags"}
}

func (r Review) Row() []string {
	return []string{r.TitleId, r.Text, strings.Join(r.Tags, ", ")}
}

// extraTags may appear alongside the recommendation verdict on a review.
var extraTags = []string{"Funny", "Informative", "Well-written", "Creative", "Preliminary"}

// DeriveTags turns the raw tag text of a review into the fixed vocabulary:
// exactly one verdict chosen by substring priority, then any extra tags
// whose literal text appears.
func DeriveTags(raw string) []string {
	var tags []string
	switch {
	case strings.Contains(raw, "Not"):
		tags = append(tags, "Not-Recommended")
	case strings.Contains(raw, "Mixed"):
		tags = append(tags, "Mixed-Feelings")
	default:
		tags = append(tags, "Recommended")
	}
	for _, tag := range extraTags {
		if strings.Contains(raw, tag) {
			tags = append(tags, tag)
		}
	}
	return tags
}

// ScrapeReviews fetches one page of reviews for a title. The url comes from
// ScrapeDetail; an empty url yields no reviews without an error.
func (c Client) ScrapeReviews(ctx context.Context, reviewsUrl string, id int, page int) ([]Review, error) {
	if reviewsUrl == "" {
		return nil, nil
	}

	ctx, span := tracer.Start(ctx, "client:ScrapeReviews")
	defer span.End()
	span.SetAttributes(attribute.Int("id", id), attribute.Int("page", page))

	if err := c.core.Sleeper.Sleep(ctx, throttle.Short); err != nil {
		return nil, err
	}

	link := fmt.Sprintf("%s?p=%d", reviewsUrl, page)
	res, err := c.core.Fetch(ctx, link, nil)
	if err != nil {
		span.SetStatus(codes.Error, "failed to fetch reviews page")
		return nil, fmt.Errorf("fetch reviews page: %w", err)
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewBuffer(res.Body()))
	if err != nil {
		span.SetStatus(codes.Error, "failed to parse reviews page html")
		return nil, fmt.Errorf("parse reviews page: %w", err)
	}

	return parseReviews(doc, id), nil
}

func parseReviews(doc *goquery.Document, id int) []Review {
	idStr := strconv.Itoa(id)

	var texts []string
	doc.Find("div.text").Each(func(_ int, s *goquery.Selection) {
		texts = append(texts, textutil.NormalizeSpace(s.Text()))
	})
	var rawTags []string
	doc.Find("div.tags").Each(func(_ int, s *goquery.Selection) {
		rawTags = append(rawTags, s.Text())
	})

	n := len(texts)
	if len(rawTags) < n {
		n = len(rawTags)
	}

	reviews := make([]Review, 0, n)
	for i := 0; i < n; i++ {
		reviews = append(reviews, Review{
			TitleId: idStr,
			Text:    texts[i],
			Tags:    DeriveTags(rawTags[i]),
		})
	}
	return reviews
}
