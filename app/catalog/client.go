package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/showledger/showledger/app/source"
)

// Client fetches catalog pages over HTTP. Transient failures are
// retried with exponential backoff according to the source settings,
// fatal failures are returned immediately.
type Client struct {
	httpClient *http.Client
	userAgent  string
}

func NewClient(httpClient *http.Client, userAgent string) *Client {
	return &Client{
		httpClient: httpClient,
		userAgent:  userAgent,
	}
}

// FetchPage returns the raw records of a single page. A page past the
// end of the catalog comes back as an empty slice with no error.
func (c *Client) FetchPage(ctx context.Context, sourceConfig *source.Config, page int) ([]json.RawMessage, error) {
	attempts := sourceConfig.Settings.RetryAttempts
	if attempts < 1 {
		attempts = 1
	}
	delay := time.Duration(sourceConfig.Settings.RetryInitialDelay) * time.Second
	maxDelay := time.Duration(sourceConfig.Settings.RetryMaxDelay) * time.Second

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if attempt > 1 {
			slog.Debug("Retrying page fetch", "source", sourceConfig.Name, "page", page, "attempt", attempt, "delay", delay.String())
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
			if delay < maxDelay {
				delay *= 2
				if delay > maxDelay {
					delay = maxDelay
				}
			}
		}

		items, err := c.fetchPage(ctx, sourceConfig, page)
		if err == nil {
			return items, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		var transientErr *TransientError
		if !errors.As(err, &transientErr) {
			return nil, err
		}
		lastErr = err
	}

	return nil, &ExhaustedError{Page: page, Attempts: attempts, Err: lastErr}
}

func (c *Client) fetchPage(ctx context.Context, sourceConfig *source.Config, page int) ([]json.RawMessage, error) {
	timeoutCtx, cancel := context.WithTimeout(ctx, time.Duration(sourceConfig.Settings.Timeout)*time.Second)
	defer cancel()

	pageURL, err := buildPageURL(sourceConfig.URL, page)
	if err != nil {
		return nil, &FatalError{Page: page, Err: fmt.Errorf("invalid source URL: %w", err)}
	}

	req, err := http.NewRequestWithContext(timeoutCtx, "GET", pageURL, nil)
	if err != nil {
		return nil, &FatalError{Page: page, Err: fmt.Errorf("failed to create request: %w", err)}
	}

	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &TransientError{Page: page, Err: err}
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode == http.StatusNotFound:
		// The API answers 404 past the last page. Treat it as an
		// empty page so pagination ends cleanly.
		return nil, nil
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return nil, &TransientError{Page: page, StatusCode: resp.StatusCode}
	default:
		return nil, &FatalError{Page: page, StatusCode: resp.StatusCode}
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransientError{Page: page, Err: fmt.Errorf("failed to read response body: %w", err)}
	}

	var items []json.RawMessage
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, &FatalError{Page: page, Err: fmt.Errorf("failed to decode page: %w", err)}
	}

	return items, nil
}

func buildPageURL(base string, page int) (string, error) {
	parsed, err := url.Parse(base)
	if err != nil {
		return "", err
	}

	query := parsed.Query()
	query.Set("page", strconv.Itoa(page))
	parsed.RawQuery = query.Encode()

	return parsed.String(), nil
}
