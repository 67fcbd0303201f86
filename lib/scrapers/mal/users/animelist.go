package users

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"anidata-backend/lib/scrapers/mal/core"
	"anidata-backend/lib/textutil"
	"anidata-backend/lib/throttle"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// RatingRecord is one (user, anime) entry of a user's list. UserId is the
// zero-based position of the user in the discovery file, not a site
// identifier.
type RatingRecord struct {
	Username        string
	UserId          string
	AnimeId         string
	AnimeTitle      string
	Status          string
	Score           string
	EpisodesWatched string
	IsRewatching    string
	UpdatedAt       string
	StartDate       string
}

func RatingHeader() []string {
	return []string{
		"Username", "User_Id", "Anime_Id", "Anime_Title", "Rating_Status",
		"Rating_Score", "Num_Epi_Watched", "Is_Rewatching", "Updated", "Start_Date",
	}
}

func (r RatingRecord) Row() []string {
	return []string{
		r.Username, r.UserId, r.AnimeId, r.AnimeTitle, r.Status,
		r.Score, r.EpisodesWatched, r.IsRewatching, r.UpdatedAt, r.StartDate,
	}
}

// listPayload mirrors the slice of the v2 animelist response we keep.
type listPayload struct {
	Data []struct {
		Node struct {
			Id    int    `json:"id"`
			Title string `json:"title"`
		} `json:"node"`
		ListStatus struct {
			Status             string `json:"status"`
			Score              int    `json:"score"`
			NumEpisodesWatched int    `json:"num_episodes_watched"`
			IsRewatching       bool   `json:"is_rewatching"`
			UpdatedAt          string `json:"updated_at"`
			StartDate          string `json:"start_date"`
		} `json:"list_status"`
	} `json:"data"`
}

// ListClient talks to the JSON API host, which authenticates by client id
// instead of cookies.
type ListClient struct {
	core     *core.Client
	clientId string
}

func NewListClient(c *core.Client, clientId string) ListClient {
	return ListClient{core: c, clientId: clientId}
}

// ScrapeAnimeList fetches one user's full list, a single page of up to 500
// entries. pos is recorded as the user's ordinal in the discovery file.
func (c ListClient) ScrapeAnimeList(ctx context.Context, username string, pos int) ([]RatingRecord, error) {
	ctx, span := tracer.Start(ctx, "client:ScrapeAnimeList")
	defer span.End()
	span.SetAttributes(attribute.String("username", username))

	if err := c.core.Sleeper.Sleep(ctx, throttle.Short); err != nil {
		return nil, err
	}

	link := fmt.Sprintf("%s/users/%s/animelist?limit=500&nsfw=true&fields=list_status",
		strings.TrimRight(c.core.BaseUrl.String(), "/"), url.PathEscape(username))
	res, err := c.core.Fetch(ctx, link, map[string]string{
		"X-MAL-CLIENT-ID": c.clientId,
	})
	if err != nil {
		span.SetStatus(codes.Error, "failed to fetch anime list")
		return nil, fmt.Errorf("fetch anime list: %w", err)
	}

	var payload listPayload
	if err := json.Unmarshal(res.Body(), &payload); err != nil {
		span.SetStatus(codes.Error, "failed to decode anime list")
		return nil, fmt.Errorf("decode anime list: %w", err)
	}

	records := make([]RatingRecord, 0, len(payload.Data))
	for _, entry := range payload.Data {
		records = append(records, RatingRecord{
			Username:        username,
			UserId:          strconv.Itoa(pos),
			AnimeId:         strconv.Itoa(entry.Node.Id),
			AnimeTitle:      orSentinel(entry.Node.Title),
			Status:          orSentinel(entry.ListStatus.Status),
			Score:           strconv.Itoa(entry.ListStatus.Score),
			EpisodesWatched: strconv.Itoa(entry.ListStatus.NumEpisodesWatched),
			IsRewatching:    formatBool(entry.ListStatus.IsRewatching),
			UpdatedAt:       orSentinel(entry.ListStatus.UpdatedAt),
			StartDate:       orSentinel(entry.ListStatus.StartDate),
		})
	}
	return records, nil
}

func orSentinel(s string) string {
	if s == "" {
		return textutil.Sentinel
	}
	return s
}

// formatBool matches the capitalized form the existing datasets carry.
func formatBool(b bool) string {
	if b {
		return "True"
	}
	return "False"
}
