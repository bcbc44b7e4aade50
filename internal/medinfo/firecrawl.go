package medinfo

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog/log"
)

const (
	firecrawlBaseURL = "https://api.firecrawl.dev"

	// searchTimeout bounds a single Firecrawl call. The fan-out pool has
	// its own, longer per-task timeout on top of this.
	searchTimeout = 20 * time.Second
)

type searchRequest struct {
	Query         string        `json:"query"`
	Limit         int           `json:"limit"`
	ScrapeOptions scrapeOptions `json:"scrapeOptions"`
}

type scrapeOptions struct {
	Formats []string `json:"formats"`
}

type searchResponse struct {
	Success bool        `json:"success"`
	Data    []searchHit `json:"data"`
	Error   string      `json:"error"`
}

type searchHit struct {
	URL         string `json:"url"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Markdown    string `json:"markdown"`
}

// FirecrawlClientOpts configures a FirecrawlClient. Zero values fall back
// to the production API and default timeout.
type FirecrawlClientOpts struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// FirecrawlClient implements Lookuper against the Firecrawl search API,
// scraping the top hit as markdown.
type FirecrawlClient struct {
	httpClient *resty.Client
}

func NewFirecrawlClient(opts FirecrawlClientOpts) *FirecrawlClient {
	baseURL := firecrawlBaseURL
	if opts.BaseURL != "" {
		baseURL = opts.BaseURL
	}
	timeout := searchTimeout
	if opts.Timeout > 0 {
		timeout = opts.Timeout
	}

	httpClient := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetAuthToken(opts.APIKey).
		SetHeader("Content-Type", "application/json")

	return &FirecrawlClient{httpClient: httpClient}
}

// Lookup searches the web for price and availability info about a medicine.
// It never returns an error: failures degrade to an error-status Result.
func (c *FirecrawlClient) Lookup(ctx context.Context, name string) Result {
	result := &searchResponse{}

	res, err := c.httpClient.NewRequest().
		SetContext(ctx).
		SetBody(searchRequest{
			Query:         fmt.Sprintf("%s medicine price availability", name),
			Limit:         1,
			ScrapeOptions: scrapeOptions{Formats: []string{"markdown"}},
		}).
		SetResult(result).
		Post("/v1/search")

	if _, err := handleError(res, err); err != nil {
		log.Warn().Err(err).Str("medicine", name).Msg("firecrawl search failed")
		return errorResult(name, err.Error())
	}

	if !result.Success && result.Error != "" {
		log.Warn().Str("medicine", name).Str("apiError", result.Error).Msg("firecrawl returned an error")
		return errorResult(name, result.Error)
	}

	if len(result.Data) == 0 {
		log.Debug().Str("medicine", name).Msg("firecrawl search returned no hits")
		return Result{
			Name:   name,
			Status: StatusFallback,
			Info:   "No search results found",
		}
	}

	hit := result.Data[0]
	if hit.Markdown == "" {
		// Scrape came back empty; the search snippet is better than nothing.
		info := hit.Description
		if info == "" {
			info = "No content available"
		}
		return Result{
			Name:        name,
			Status:      StatusFallback,
			Info:        info,
			URL:         hit.URL,
			Description: hit.Description,
		}
	}

	return Result{
		Name:        name,
		Status:      StatusSuccess,
		Info:        hit.Markdown,
		URL:         hit.URL,
		Description: hit.Description,
	}
}

// handleError is a generic error handler for failing responses (>399 status
// code). Without this, failing responses would have nil error.
func handleError(res *resty.Response, err error) (*resty.Response, error) {
	if err != nil {
		return res, err
	}
	if res.IsError() {
		return res, fmt.Errorf("request failed: %s %s (status: %d)", res.Request.Method, res.Request.URL, res.StatusCode())
	}

	return res, nil
}
