// Package core owns the HTTP client and retry policy shared by every MAL
// scraping path. Extractors build on top of Client.Fetch and never talk to
// the network directly.
package core

import (
	"net/http/cookiejar"
	"net/url"
	"time"

	"anidata-backend/lib/telemetry"
	"anidata-backend/lib/throttle"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
	browser "github.com/EDDYCJY/fake-useragent"
	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel"
)

var tracer = otel.Tracer("scrapers/mal/core")

type Client struct {
	BaseUrl *url.URL
	Http    *resty.Client
	Sleeper throttle.Sleeper
	// Attempts is the per-fetch retry budget.
	Attempts int
}

type ClientOptions struct {
	BaseUrl string
	// UserAgent overrides the randomly chosen browser user-agent.
	UserAgent string
	Sleeper   throttle.Sleeper
	Attempts  int
}

const DefaultAttempts = 3

func NewClient(opts ClientOptions) (*Client, error) {
	baseUrl, err := url.Parse(opts.BaseUrl)
	if err != nil {
		return nil, err
	}

	client := resty.New()
	client.SetBaseURL(opts.BaseUrl)
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	client.SetCookieJar(jar)
	client.GetClient().Transport = cloudflarebp.AddCloudFlareByPass(client.GetClient().Transport)

	userAgent := opts.UserAgent
	if userAgent == "" {
		userAgent = browser.Firefox()
	}
	client.SetHeader("user-agent", userAgent)
	client.SetTimeout(time.Second * 30)

	telemetry.InstrumentResty(client, "scrapers/mal/http")

	sleeper := opts.Sleeper
	if sleeper == nil {
		sleeper = throttle.Jitter{}
	}
	attempts := opts.Attempts
	if attempts <= 0 {
		attempts = DefaultAttempts
	}

	c := &Client{
		BaseUrl:  baseUrl,
		Http:     client,
		Sleeper:  sleeper,
		Attempts: attempts,
	}
	return c, nil
}
