// Package userlist drives the user-side datasets: username discovery from the
// community page and the per-user ratings pull from the JSON API.
package userlist

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strconv"

	"anidata-backend/lib/scrapers/mal/core"
	"anidata-backend/lib/scrapers/mal/users"
	"anidata-backend/lib/sink"
	"anidata-backend/lib/throttle"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

var tracer = otel.Tracer("services/userlist")

const (
	UsersFile   = "users.csv"
	RatingsFile = "user_ratings.csv"
	SkippedFile = "skipped_users.csv"
)

// deniedTolerance is how many 403s in a row are shrugged off as per-user
// restrictions before they are treated as rate limiting.
const deniedTolerance = 3

type Options struct {
	SiteUrl   string
	ApiUrl    string
	ClientId  string
	UserAgent string
	OutputDir string
	Sleeper   throttle.Sleeper
}

type Service struct {
	discovery users.Client
	lists     users.ListClient
	sleeper   throttle.Sleeper
	outputDir string
}

func NewService(opts Options) (*Service, error) {
	sleeper := opts.Sleeper
	if sleeper == nil {
		sleeper = throttle.Jitter{}
	}

	siteClient, err := core.NewClient(core.ClientOptions{
		BaseUrl:   opts.SiteUrl,
		UserAgent: opts.UserAgent,
		Sleeper:   sleeper,
	})
	if err != nil {
		return nil, fmt.Errorf("create site client: %w", err)
	}
	apiClient, err := core.NewClient(core.ClientOptions{
		BaseUrl:   opts.ApiUrl,
		UserAgent: opts.UserAgent,
		Sleeper:   sleeper,
	})
	if err != nil {
		return nil, fmt.Errorf("create api client: %w", err)
	}

	return &Service{
		discovery: users.NewClient(siteClient),
		lists:     users.NewListClient(apiClient, opts.ClientId),
		sleeper:   sleeper,
		outputDir: opts.OutputDir,
	}, nil
}

func (s *Service) path(name string) string {
	return filepath.Join(s.outputDir, name)
}

// DiscoverUsers polls the community page until the persisted username set
// reaches target. Names already on file count toward the target and are never
// re-appended, so the operation is idempotent across runs. Returns the number
// of new names added.
func (s *Service) DiscoverUsers(ctx context.Context, target int) (int, error) {
	ctx, span := tracer.Start(ctx, "service:DiscoverUsers")
	defer span.End()
	span.SetAttributes(attribute.Int("target", target))

	existing, err := sink.ReadList(s.path(UsersFile))
	if err != nil {
		return 0, err
	}
	seen := make(map[string]struct{}, len(existing))
	for _, name := range existing {
		seen[name] = struct{}{}
	}

	list, err := sink.OpenList(s.path(UsersFile))
	if err != nil {
		return 0, err
	}
	defer list.Close()

	added := 0
	for len(seen) < target {
		if err := ctx.Err(); err != nil {
			return added, err
		}

		batch, err := s.discovery.ScrapeUsernames(ctx)
		if err != nil {
			return added, fmt.Errorf("discover users: %w", err)
		}
		for _, name := range batch {
			if _, ok := seen[name]; ok {
				continue
			}
			if err := list.Append(name); err != nil {
				return added, err
			}
			seen[name] = struct{}{}
			added++
			if len(seen) >= target {
				break
			}
		}
		slog.InfoContext(ctx, "discovery progress", "have", len(seen), "target", target)
	}
	return added, nil
}

// ScrapeRatings pulls the anime list of every discovered user, starting at
// the given zero-based offset. A 403 on one user is recorded and skipped, but
// more than deniedTolerance of them in a row means the client itself is being
// limited, so a long cooldown precedes every further attempt until a fetch
// succeeds again. Returns the number of users whose ratings were written.
func (s *Service) ScrapeRatings(ctx context.Context, startAt int) (int, error) {
	ctx, span := tracer.Start(ctx, "service:ScrapeRatings")
	defer span.End()

	usernames, err := sink.ReadList(s.path(UsersFile))
	if err != nil {
		return 0, err
	}
	if startAt < 0 || startAt > len(usernames) {
		return 0, fmt.Errorf("start offset %d out of range (have %d users)", startAt, len(usernames))
	}

	ratings, err := sink.OpenTable(s.path(RatingsFile), users.RatingHeader())
	if err != nil {
		return 0, err
	}
	defer ratings.Close()
	skipped, err := sink.OpenLedger(s.path(SkippedFile), []string{"Pos", "Username"})
	if err != nil {
		return 0, err
	}
	defer skipped.Close()

	scraped := 0
	consecutiveDenied := 0
	for i, username := range usernames[startAt:] {
		// zero-based index into the discovery file, so a Pos from the skip
		// ledger can be fed straight back as the resume offset
		pos := startAt + i

		if consecutiveDenied > deniedTolerance {
			slog.WarnContext(ctx, "repeated denials, cooling down",
				"consecutive", consecutiveDenied)
			if err := s.sleeper.Sleep(ctx, throttle.RateLimit); err != nil {
				return scraped, err
			}
		}

		records, err := s.lists.ScrapeAnimeList(ctx, username, pos)
		switch {
		case errors.Is(err, core.ErrAccessDenied):
			consecutiveDenied++
			slog.WarnContext(ctx, "user list denied", "pos", pos, "username", username)
			if err := skipped.Record(strconv.Itoa(pos), username); err != nil {
				return scraped, err
			}
			continue
		case errors.Is(err, core.ErrExhausted):
			slog.WarnContext(ctx, "user list unreachable", "pos", pos, "username", username)
			if err := skipped.Record(strconv.Itoa(pos), username); err != nil {
				return scraped, err
			}
			continue
		case err != nil:
			return scraped, err
		}
		consecutiveDenied = 0

		rows := make([][]string, len(records))
		for j, rec := range records {
			rows[j] = rec.Row()
		}
		if err := ratings.AppendAll(rows); err != nil {
			return scraped, err
		}
		scraped++

		if (pos+1)%20 == 0 {
			slog.InfoContext(ctx, "ratings progress", "done", pos+1, "total", len(usernames))
		}
	}

	slog.InfoContext(ctx, "ratings pull complete",
		"users", scraped, "table", ratings.Path())
	return scraped, nil
}
