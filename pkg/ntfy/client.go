package ntfy

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/sethgrid/pester"
)

// Client publishes plain-text messages to a ntfy topic URL.
type Client struct {
	topicURL   string
	token      string
	title      string
	httpClient *pester.Client
}

// Error represents a non-2xx response from the notification endpoint.
type Error struct {
	StatusCode int
	Message    string
	Body       []byte
}

// Error returns a string representation of the ntfy error.
func (e *Error) Error() string {
	return fmt.Sprintf("ntfy error (%d): %s -- %s", e.StatusCode, e.Message, strings.TrimSpace(string(e.Body)))
}

// Options configure a Client. Token may be empty: the request is still sent
// with an empty bearer value and the endpoint decides.
type Options struct {
	URL     string
	Token   string
	Title   string
	Timeout time.Duration
}

// NewClient validates the topic URL and returns a client that makes exactly one
// attempt per message.
func NewClient(opts Options) (*Client, error) {
	if _, err := url.ParseRequestURI(opts.URL); err != nil {
		return nil, errors.Wrap(err, "invalid ntfy topic URL")
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	hc := pester.NewExtendedClient(&http.Client{Timeout: timeout})
	hc.MaxRetries = 1
	hc.Backoff = pester.DefaultBackoff
	hc.Timeout = timeout

	return &Client{
		topicURL:   strings.TrimRight(opts.URL, "/"),
		token:      opts.Token,
		title:      opts.Title,
		httpClient: hc,
	}, nil
}

// Notify posts body as a markdown message.
func (c *Client) Notify(ctx context.Context, body string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.topicURL, strings.NewReader(body))
	if err != nil {
		return errors.Wrapf(err, "failed to create request [POST %s]", c.topicURL)
	}

	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Markdown", "yes")
	if c.title != "" {
		req.Header.Set("Title", c.title)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return errors.Wrapf(err, "HTTP request failed [POST %s]", c.topicURL)
	}
	defer resp.Body.Close()

	respData, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.Wrap(err, "failed to read response body")
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &Error{
			StatusCode: resp.StatusCode,
			Message:    http.StatusText(resp.StatusCode),
			Body:       respData,
		}
	}
	return nil
}
