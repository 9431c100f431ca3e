package calendar

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/oauth2"
	calendar "google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"
)

const (
	// GroupCalendarDomain is appended to a configured calendar id.
	GroupCalendarDomain = "@group.calendar.google.com"

	// DefaultMaxResults caps the number of events fetched per run.
	DefaultMaxResults = 40

	orderByStartTime = "startTime"
)

// GroupCalendarID returns the full calendar identifier for a group calendar id.
func GroupCalendarID(id string) string {
	return id + GroupCalendarDomain
}

// Client wraps the Google Calendar service
type Client struct {
	svc *calendar.Service
}

// NewClient creates a Calendar client authenticated by the given token source
func NewClient(ctx context.Context, ts oauth2.TokenSource) (*Client, error) {
	if ts == nil {
		return nil, fmt.Errorf("token source cannot be nil")
	}

	client := oauth2.NewClient(ctx, ts)

	// Force HTTP/1.1 by disabling HTTP/2
	transport := client.Transport.(*oauth2.Transport)
	transport.Base = http1Transport()

	return NewClientFromHTTP(ctx, client)
}

// http1Transport is http.DefaultTransport with HTTP/2 disabled. Proxy and
// dial settings are kept.
func http1Transport() *http.Transport {
	t := http.DefaultTransport.(*http.Transport).Clone()
	t.ForceAttemptHTTP2 = false
	t.TLSNextProto = map[string]func(string, *tls.Conn) http.RoundTripper{}
	return t
}

// NewClientFromHTTP creates a Calendar client from a pre-configured HTTP client.
// Extra options such as option.WithEndpoint are passed to the service.
func NewClientFromHTTP(ctx context.Context, httpClient *http.Client, opts ...option.ClientOption) (*Client, error) {
	opts = append([]option.ClientOption{option.WithHTTPClient(httpClient)}, opts...)
	svc, err := calendar.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Calendar service: %w", err)
	}
	return &Client{svc: svc}, nil
}

// ListUpcoming lists single occurrences of events in calendarID starting at
// now, ordered by start time and capped at maxResults.
func (c *Client) ListUpcoming(ctx context.Context, calendarID string, now time.Time, maxResults int64) ([]RawEvent, error) {
	call := c.svc.Events.List(calendarID).
		TimeMin(now.UTC().Format(time.RFC3339)).
		SingleEvents(true).
		OrderBy(orderByStartTime).
		MaxResults(maxResults).
		Context(ctx)

	events, err := call.Do()
	if err != nil {
		return nil, fmt.Errorf("failed to list events for %s: %w", calendarID, err)
	}

	raw := make([]RawEvent, 0, len(events.Items))
	for _, event := range events.Items {
		raw = append(raw, toRawEvent(event))
	}
	return raw, nil
}
