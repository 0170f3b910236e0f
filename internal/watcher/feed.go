// internal/watcher/feed.go
package watcher

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/cenkalti/backoff/v5"
	"go.uber.org/zap"
)

const (
	requestTimeout   = 10 * time.Second
	fetchMaxTries    = 3
	fetchInitialWait = 500 * time.Millisecond
)

// Listing is one token launch as the feed reports it.
type Listing struct {
	ID              int64     `json:"id"`
	CreatedAt       time.Time `json:"created_at"`
	TxHash          string    `json:"tx_hash"`
	ContractAddress string    `json:"contract_address"`
	RequestorFID    int64     `json:"requestor_fid"`
	Name            string    `json:"name"`
	Symbol          string    `json:"symbol"`
	ImgURL          string    `json:"img_url"`
	PoolAddress     string    `json:"pool_address"`
	CastHash        string    `json:"cast_hash"`
	Type            string    `json:"type"`
}

type feedResponse struct {
	Data []Listing `json:"data"`
}

// FeedClient fetches recent listings from the launch feed, optionally through
// an HTTP proxy.
type FeedClient struct {
	httpClient *http.Client
	feedURL    string
	logger     *zap.Logger
}

// NewFeedClient builds a client for feedURL. A non-empty proxyURL routes
// requests through the proxy; those endpoints often intercept TLS, so
// verification is relaxed only on the proxied path.
func NewFeedClient(feedURL, proxyURL string, logger *zap.Logger) (*FeedClient, error) {
	client := &http.Client{Timeout: requestTimeout}

	if proxyURL != "" {
		parsed, err := url.Parse(proxyURL)
		if err != nil {
			return nil, fmt.Errorf("invalid proxy URL: %w", err)
		}
		client.Transport = &http.Transport{
			Proxy:           http.ProxyURL(parsed),
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
		}
	}

	return &FeedClient{
		httpClient: client,
		feedURL:    feedURL,
		logger:     logger.Named("feed"),
	}, nil
}

// Fetch returns the newest listings, retrying transient failures with
// exponential backoff.
func (c *FeedClient) Fetch(ctx context.Context) ([]Listing, error) {
	operation := func() ([]Listing, error) {
		return c.fetchOnce(ctx)
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = fetchInitialWait

	notify := func(err error, wait time.Duration) {
		c.logger.Warn("Feed fetch failed, retrying",
			zap.Duration("wait", wait),
			zap.Error(err))
	}

	listings, err := backoff.Retry(ctx, operation,
		backoff.WithBackOff(policy),
		backoff.WithMaxTries(fetchMaxTries),
		backoff.WithNotify(notify))
	if err != nil {
		return nil, fmt.Errorf("feed fetch failed: %w", err)
	}
	return listings, nil
}

func (c *FeedClient) fetchOnce(ctx context.Context) ([]Listing, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.feedURL, nil)
	if err != nil {
		return nil, backoff.Permanent(err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("feed returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	var parsed feedResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("failed to decode feed response: %w", err)
	}
	return parsed.Data, nil
}
