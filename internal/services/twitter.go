// Twitter API implementation of [Service]
package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/tagalbum/internal/models"
	"github.com/desertthunder/tagalbum/internal/shared"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
	"golang.org/x/time/rate"
)

const (
	DefaultSearchURL = "https://api.twitter.com/1.1/search/tweets.json"
	DefaultTokenURL  = "https://api.twitter.com/oauth2/token"

	// MaxTokenAttempts bounds re-authentication on 401 within a single search.
	MaxTokenAttempts = 10
)

// badStatusCodes are the documented error responses of the search API.
// Other non-success codes are treated the same way but logged as unexpected.
//
// See https://developer.twitter.com/en/support/twitter-api/error-troubleshooting
var badStatusCodes = map[int]bool{
	400: true, 403: true, 404: true, 406: true, 410: true, 420: true,
	422: true, 429: true, 500: true, 502: true, 503: true, 504: true,
}

// TwitterOpts configures a [TwitterClient].
type TwitterOpts struct {
	ConsumerKey    string
	ConsumerSecret string
	SearchURL      string       // defaults to [DefaultSearchURL]
	TokenURL       string       // defaults to [DefaultTokenURL]
	Count          int          // results per search, defaults to [models.MaxItems]
	RateLimit      float64      // searches per second, 0 disables throttling
	HTTPClient     *http.Client // defaults to [http.DefaultClient]
	Logger         *log.Logger
}

// TwitterClient implements [Service] against the standard search endpoint using application-only auth.
//
// The cached token is guarded by a mutex, so a client may be shared across goroutines.
// Searches through the same client are serialized.
type TwitterClient struct {
	config     *clientcredentials.Config
	searchURL  string
	count      int
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *log.Logger

	mu    sync.Mutex
	token *oauth2.Token
}

// NewTwitterClient creates a new Twitter search client. The consumer key and secret must not be blank.
func NewTwitterClient(opts TwitterOpts) (*TwitterClient, error) {
	if opts.ConsumerKey == "" || opts.ConsumerSecret == "" {
		return nil, fmt.Errorf("%w: consumer key and secret must not be blank", shared.ErrMissingCredentials)
	}

	if opts.SearchURL == "" {
		opts.SearchURL = DefaultSearchURL
	}
	if opts.TokenURL == "" {
		opts.TokenURL = DefaultTokenURL
	}
	if opts.Count <= 0 {
		opts.Count = models.MaxItems
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}

	limit := rate.Inf
	if opts.RateLimit > 0 {
		limit = rate.Limit(opts.RateLimit)
	}

	return &TwitterClient{
		config: &clientcredentials.Config{
			ClientID:     opts.ConsumerKey,
			ClientSecret: opts.ConsumerSecret,
			TokenURL:     opts.TokenURL,
			AuthStyle:    oauth2.AuthStyleInHeader,
		},
		searchURL:  opts.SearchURL,
		count:      opts.Count,
		httpClient: opts.HTTPClient,
		limiter:    rate.NewLimiter(limit, 1),
		logger:     shared.WithLogger(opts.Logger, "service", "twitter"),
	}, nil
}

func (c *TwitterClient) Name() string {
	return "Twitter"
}

// Authenticate exchanges the consumer credentials for a bearer token and caches it.
func (c *TwitterClient) Authenticate(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.authenticate(ctx)
}

// authenticate must be called with c.mu held.
func (c *TwitterClient) authenticate(ctx context.Context) error {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, c.httpClient)

	token, err := c.config.Token(ctx)
	if err != nil {
		return tokenError(err)
	}

	c.token = token
	c.logger.Debug("obtained bearer token")
	return nil
}

// tokenError converts an oauth2 token failure into [shared.AuthError].
//
// Status and Body are only available for non-2xx responses. A 2xx response without an
// access token leaves them empty and carries the oauth2 error text in Reason.
func tokenError(err error) error {
	var retrieveErr *oauth2.RetrieveError
	if errors.As(err, &retrieveErr) {
		authErr := &shared.AuthError{Reason: "could not perform token exchange", Body: string(retrieveErr.Body)}
		if retrieveErr.Response != nil {
			authErr.Status = retrieveErr.Response.StatusCode
		}
		return authErr
	}
	return &shared.AuthError{Reason: "could not perform token exchange: " + err.Error()}
}

// Search issues a search for tag with images attached.
//
// A 401 response triggers re-authentication and a retry of the same request, up to [MaxTokenAttempts] times.
// Any other non-success status fails with [shared.UpstreamError] and is not retried.
func (c *TwitterClient) Search(ctx context.Context, tag string, sinceID int64) (*SearchResult, error) {
	endpoint, err := c.searchEndpoint(tag, sinceID)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.token == nil {
		if err := c.authenticate(ctx); err != nil {
			return nil, err
		}
	}

	for attempt := range MaxTokenAttempts {
		status, body, err := c.get(ctx, endpoint)
		if err != nil {
			return nil, err
		}

		switch {
		case status == http.StatusUnauthorized:
			c.logger.Warn("token rejected, re-authenticating", "attempt", attempt+1)
			if err := c.authenticate(ctx); err != nil {
				return nil, err
			}
			continue
		case status < 200 || status > 299:
			c.logger.Error("search failed", "status", status, "documented", badStatusCodes[status])
			return nil, &shared.UpstreamError{Status: status, Body: string(body)}
		}

		result, err := MapSearchResponse(body)
		if err != nil {
			return nil, &shared.UpstreamError{Status: status, Body: string(body)}
		}

		c.logger.Debug("search complete", "tag", tag, "since_id", sinceID, "statuses", result.Len())
		return result, nil
	}

	return nil, &shared.AuthError{Reason: "token exchange exhausted"}
}

func (c *TwitterClient) searchEndpoint(tag string, sinceID int64) (string, error) {
	u, err := url.Parse(c.searchURL)
	if err != nil {
		return "", fmt.Errorf("%w: search_url: %v", shared.ErrInvalidConfig, err)
	}

	q := u.Query()
	q.Set("q", tag+" filter:images")
	q.Set("result_type", "recent")
	q.Set("count", strconv.Itoa(c.count))
	if sinceID != 0 {
		q.Set("since_id", strconv.FormatInt(sinceID, 10))
	}
	u.RawQuery = q.Encode()

	return u.String(), nil
}

// get performs one authenticated GET and returns the status and full body.
func (c *TwitterClient) get(ctx context.Context, endpoint string) (int, []byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return 0, nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token.AccessToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to read response: %w", err)
	}

	return resp.StatusCode, body, nil
}
