package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"anidata-backend/lib/throttle"

	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// ErrAccessDenied means the site answered 403: either this client is being
// rate limited or the resource is restricted. Retrying in the same run will
// not help, so the fetch stops immediately.
var ErrAccessDenied = errors.New("access denied (403)")

// ErrExhausted means the retry budget was consumed without a 200.
var ErrExhausted = errors.New("retry budget exhausted")

// Fetch issues a GET with bounded retries. 200 returns immediately; 403
// aborts with ErrAccessDenied; any other status throttles briefly and
// retries; a transport failure cools down for minutes before retrying.
// Recording the failed identifier in a ledger is the caller's job, Fetch
// only signals.
func (c *Client) Fetch(ctx context.Context, link string, headers map[string]string) (*resty.Response, error) {
	ctx, span := tracer.Start(ctx, "client:Fetch")
	defer span.End()
	span.SetAttributes(attribute.String("url", link))

	for attempt := 1; attempt <= c.Attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		res, err := c.Http.R().
			SetContext(ctx).
			SetHeaders(headers).
			Get(link)
		if err != nil {
			slog.WarnContext(ctx, "transport failure, cooling down",
				"url", link, "attempt", attempt, "err", err)
			span.RecordError(err)
			if err := c.Sleeper.Sleep(ctx, throttle.Transport); err != nil {
				return nil, err
			}
			continue
		}

		switch res.StatusCode() {
		case http.StatusOK:
			return res, nil
		case http.StatusForbidden:
			span.SetStatus(codes.Error, "access denied")
			return nil, fmt.Errorf("%s: %w", link, ErrAccessDenied)
		default:
			slog.WarnContext(ctx, "unexpected status, retrying",
				"url", link, "status", res.StatusCode(), "attempt", attempt)
			if err := c.Sleeper.Sleep(ctx, throttle.Retry); err != nil {
				return nil, err
			}
		}
	}

	span.SetStatus(codes.Error, "retry budget exhausted")
	return nil, fmt.Errorf("%s: %w", link, ErrExhausted)
}
