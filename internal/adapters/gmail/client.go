// Package gmail retrieves messages from the Gmail-style REST mail API.
package gmail

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/finwatch/expense-importer/internal/core"
	"github.com/finwatch/expense-importer/internal/ratelimit"
	"go.uber.org/zap"
)

const defaultPageSize = 100

// Client implements core.MessageSource against a bearer-token REST mail API.
type Client struct {
	baseURL  string
	token    string
	httpc    *http.Client
	fetcher  *ratelimit.Fetcher
	logger   *zap.Logger
	pageSize int
}

// NewClient creates a mail client. baseURL is the API root, e.g.
// "https://gmail.googleapis.com/gmail/v1/users/me".
func NewClient(baseURL, token string, pageSize int, fetcher *ratelimit.Fetcher, logger *zap.Logger) *Client {
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	return &Client{
		baseURL:  strings.TrimRight(baseURL, "/"),
		token:    token,
		httpc:    &http.Client{Timeout: 30 * time.Second},
		fetcher:  fetcher,
		logger:   logger,
		pageSize: pageSize,
	}
}

// Search returns all message ids from sender within [start, end).
//
// The upstream API accepts several date syntaxes inconsistently depending on
// account locale, so a query that matches nothing is retried with epoch
// seconds, and then with no date qualifier at all. That distinguishes "sender
// has zero mail" from "date predicate mismatch".
func (c *Client) Search(ctx context.Context, sender string, start, end time.Time) ([]string, error) {
	queries := []string{
		fmt.Sprintf("from:%s after:%s before:%s", sender, start.Format("2006/01/02"), end.Format("2006/01/02")),
		fmt.Sprintf("from:%s after:%d before:%d", sender, start.Unix(), end.Unix()),
		fmt.Sprintf("from:%s", sender),
	}
	for i, q := range queries {
		ids, err := c.searchAll(ctx, q)
		if err != nil {
			return nil, err
		}
		if len(ids) > 0 {
			if i > 0 {
				c.logger.Info("Date-qualified search was empty, fallback query matched",
					zap.Int("fallback", i),
					zap.String("query", q))
			}
			return ids, nil
		}
	}
	c.logger.Info("No messages found for sender", zap.String("sender", sender))
	return nil, nil
}

// searchAll follows nextPageToken until the listing is exhausted.
func (c *Client) searchAll(ctx context.Context, query string) ([]string, error) {
	var ids []string
	pageToken := ""
	for {
		q := url.Values{}
		q.Set("q", query)
		q.Set("maxResults", fmt.Sprint(c.pageSize))
		if pageToken != "" {
			q.Set("pageToken", pageToken)
		}

		var page listResponse
		err := c.fetcher.Do(ctx, func(ctx context.Context) error {
			return c.getJSON(ctx, "/messages", q, &page)
		})
		if err != nil {
			return nil, fmt.Errorf("message search failed: %w", err)
		}

		for _, m := range page.Messages {
			ids = append(ids, m.ID)
		}
		if page.NextPageToken == "" {
			return ids, nil
		}
		pageToken = page.NextPageToken
	}
}

// FetchBodies fetches full messages in rate-limited batches. The result slice
// preserves the order of ids; each slot carries either a message or an error.
func (c *Client) FetchBodies(ctx context.Context, ids []string) []core.FetchResult {
	results := make([]core.FetchResult, len(ids))
	errs := c.fetcher.Run(ctx, len(ids), func(ctx context.Context, i int) error {
		var wire wireMessage
		if err := c.getJSON(ctx, "/messages/"+url.PathEscape(ids[i]), nil, &wire); err != nil {
			return err
		}
		results[i].Msg = wire.toRawMessage()
		return nil
	})
	for i, err := range errs {
		if err != nil && results[i].Msg == nil {
			results[i].Err = err
			c.logger.Warn("Failed to fetch message body",
				zap.String("message_id", ids[i]),
				zap.Error(err))
		}
	}
	return results
}

func (c *Client) getJSON(ctx context.Context, path string, query url.Values, out any) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.httpc.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &ratelimit.StatusError{
			Code: resp.StatusCode,
			Err:  fmt.Errorf("%s: %s", path, strings.TrimSpace(string(body))),
		}
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
