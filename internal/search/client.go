// Package search queries a web search service for source material used to
// ground health answers.
package search

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"google.golang.org/api/customsearch/v1"
	"google.golang.org/api/option"

	"github.com/yaseenp24/Healthcare-Agent/pkg/logging"
)

const (
	defaultTimeout = 15 * time.Second
	// maxResults is the Custom Search per-request ceiling.
	maxResults = 10
)

// Result is one search hit.
type Result struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Snippet string `json:"snippet"`
}

// Config configures the Custom Search client.
type Config struct {
	APIKey   string
	EngineID string
	Safe     bool
	Timeout  time.Duration
}

// Client wraps the Google Custom Search JSON API.
type Client struct {
	svc      *customsearch.Service
	engineID string
	safe     bool
	timeout  time.Duration
	logger   *logging.Logger
}

// NewClient creates a search client. Extra options are appended after the API
// key, which lets tests point the service at a local endpoint.
func NewClient(ctx context.Context, cfg Config, logger *logging.Logger, opts ...option.ClientOption) (*Client, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New("search: api key is required")
	}
	if strings.TrimSpace(cfg.EngineID) == "" {
		return nil, errors.New("search: engine id is required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}

	clientOpts := append([]option.ClientOption{option.WithAPIKey(cfg.APIKey)}, opts...)
	svc, err := customsearch.NewService(ctx, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("search: create custom search service: %w", err)
	}

	return &Client{
		svc:      svc,
		engineID: cfg.EngineID,
		safe:     cfg.Safe,
		timeout:  cfg.Timeout,
		logger:   logger,
	}, nil
}

// Search returns up to n ranked results for query.
func (c *Client) Search(ctx context.Context, query string, n int) ([]Result, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, nil
	}
	if n <= 0 || n > maxResults {
		n = maxResults
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	call := c.svc.Cse.List().Cx(c.engineID).Q(query).Num(int64(n))
	if c.safe {
		call = call.Safe("active")
	}

	resp, err := call.Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("search: custom search request: %w", err)
	}

	results := make([]Result, 0, len(resp.Items))
	for _, item := range resp.Items {
		if item == nil {
			continue
		}
		results = append(results, Result{
			Title:   strings.TrimSpace(item.Title),
			URL:     strings.TrimSpace(item.Link),
			Snippet: strings.TrimSpace(item.Snippet),
		})
	}
	c.logger.Debug("search: results fetched", "count", len(results))
	return results, nil
}
