package usgs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/couchcryptid/quake-feed-service/internal/domain"
)

const (
	// BaseURL is the USGS earthquake feed host.
	BaseURL = "https://earthquake.usgs.gov/"
	// FeedPath is the "all earthquakes, past hour" GeoJSON summary.
	FeedPath = "earthquakes/feed/v1.0/summary/all_hour.geojson"

	// maxBodyBytes bounds how much of a response is read. The hourly feed is
	// well under 1 MiB; the monthly one is ~10 MiB.
	maxBodyBytes = 32 << 20
	// maxErrorBody is how much of a non-2xx body is kept for the error message.
	maxErrorBody = 512
)

// ErrBodyTooLarge reports a feed response larger than the client reads.
var ErrBodyTooLarge = errors.New("response body exceeds limit")

// Client retrieves the USGS feed. It implements pipeline.FeedFetcher.
type Client struct {
	httpClient *http.Client
	maxBody    int64
	logger     *slog.Logger
}

// Option configures Client behavior.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client, e.g. to route requests
// through a proxy transport. The endpoint itself stays fixed.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// NewClient creates a feed client whose requests are bounded by timeout.
func NewClient(timeout time.Duration, logger *slog.Logger, opts ...Option) *Client {
	c := &Client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		maxBody: maxBodyBytes,
		logger:  logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// URL returns the full feed address.
func (c *Client) URL() string {
	return BaseURL + FeedPath
}

// Fetch performs a single GET of the feed and decodes it. Transport failures
// and non-2xx statuses return *domain.NetworkError; malformed bodies return
// *domain.DecodeError.
func (c *Client) Fetch(ctx context.Context) (domain.WireFeed, error) {
	body, err := c.download(ctx)
	if err != nil {
		return domain.WireFeed{}, err
	}
	return domain.DecodeFeed(body)
}

func (c *Client) download(ctx context.Context) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.URL(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &domain.NetworkError{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, &domain.NetworkError{
			StatusCode: resp.StatusCode,
			Body:       string(body),
			Err:        fmt.Errorf("unexpected status %s", resp.Status),
		}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBody+1))
	if err != nil {
		return nil, &domain.NetworkError{Err: fmt.Errorf("read body: %w", err)}
	}
	if int64(len(body)) > c.maxBody {
		return nil, &domain.NetworkError{Err: fmt.Errorf("read body: %w (%d bytes)", ErrBodyTooLarge, c.maxBody)}
	}

	c.logger.Debug("feed downloaded",
		"url", c.URL(),
		"status", resp.StatusCode,
		"bytes", len(body),
		"duration", time.Since(start),
	)
	return body, nil
}
