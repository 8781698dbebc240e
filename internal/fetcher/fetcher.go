package fetcher

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"golang.org/x/text/encoding/japanese"

	"github.com/pfrederiksen/keiba-results/internal/race"
)

const (
	DefaultBaseURL = "https://db.netkeiba.com"
	DefaultTimeout = 30 * time.Second
)

// UserAgents is the pool random User-Agents are drawn from. The first entry
// is used when rotation is disabled.
var UserAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.4 Safari/605.1.15",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:125.0) Gecko/20100101 Firefox/125.0",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/122.0.0.0 Safari/537.36",
}

// StatusError reports a non-2xx response.
type StatusError struct {
	Code int
	URL  string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status code: %d (%s)", e.Code, e.URL)
}

// Page is a fetched and decoded document.
type Page struct {
	URL  string
	Body string
}

// Options configures a Fetcher.
type Options struct {
	BaseURL         string
	Timeout         time.Duration
	RandomUserAgent bool
	// Pick returns an index in [0, n). Defaults to math/rand/v2.
	Pick func(n int) int
}

// Fetcher issues single GET requests against the results site.
type Fetcher struct {
	client  *resty.Client
	baseURL string
	random  bool
	pick    func(n int) int
}

// New creates a new Fetcher
func New(opts Options) *Fetcher {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.Pick == nil {
		opts.Pick = rand.Intn
	}

	client := resty.New()
	client.SetTimeout(opts.Timeout)

	return &Fetcher{
		client:  client,
		baseURL: strings.TrimRight(opts.BaseURL, "/"),
		random:  opts.RandomUserAgent,
		pick:    opts.Pick,
	}
}

// RaceListURL is the listing page of all races held on a day.
func (f *Fetcher) RaceListURL(day time.Time) string {
	return fmt.Sprintf("%s/race/list/%s/", f.baseURL, race.DateToken(day))
}

// RaceURL is the result page of one race.
func (f *Fetcher) RaceURL(id race.RaceID) string {
	return fmt.Sprintf("%s/race/%s/", f.baseURL, id)
}

// HorseURL is the profile and race history page of one horse.
func (f *Fetcher) HorseURL(id race.HorseID) string {
	return fmt.Sprintf("%s/horse/%s/", f.baseURL, id)
}

// PedigreeURL is the five-generation pedigree page of one horse.
func (f *Fetcher) PedigreeURL(id race.HorseID) string {
	return fmt.Sprintf("%s/horse/ped/%s/", f.baseURL, id)
}

// RaceList fetches the listing page for day.
func (f *Fetcher) RaceList(ctx context.Context, day time.Time) (*Page, error) {
	return f.Get(ctx, f.RaceListURL(day))
}

// Race fetches the result page for id.
func (f *Fetcher) Race(ctx context.Context, id race.RaceID) (*Page, error) {
	return f.Get(ctx, f.RaceURL(id))
}

// Horse fetches the history page for id.
func (f *Fetcher) Horse(ctx context.Context, id race.HorseID) (*Page, error) {
	return f.Get(ctx, f.HorseURL(id))
}

// Pedigree fetches the pedigree page for id.
func (f *Fetcher) Pedigree(ctx context.Context, id race.HorseID) (*Page, error) {
	return f.Get(ctx, f.PedigreeURL(id))
}

// Get performs one GET request and decodes the body as EUC-JP.
func (f *Fetcher) Get(ctx context.Context, url string) (*Page, error) {
	resp, err := f.client.R().
		SetContext(ctx).
		SetHeader("User-Agent", f.userAgent()).
		Get(url)
	if err != nil {
		return nil, fmt.Errorf("fetching page: %w", err)
	}

	if !resp.IsSuccess() {
		return nil, &StatusError{Code: resp.StatusCode(), URL: url}
	}

	body, err := japanese.EUCJP.NewDecoder().Bytes(resp.Body())
	if err != nil {
		return nil, fmt.Errorf("decoding EUC-JP body: %w", err)
	}

	return &Page{URL: url, Body: string(body)}, nil
}

func (f *Fetcher) userAgent() string {
	if !f.random {
		return UserAgents[0]
	}
	return UserAgents[f.pick(len(UserAgents))]
}
