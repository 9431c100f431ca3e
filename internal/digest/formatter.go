package digest

import (
	"fmt"
	"strings"
	"time"

	"github.com/allstonrat/eventdigest/internal/calendar"
)

const (
	// LegacyOffset is added to naive event times when no Location is set.
	// It matches the output of earlier digests and is suspected to be a
	// timezone bug.
	LegacyOffset = 3 * time.Hour

	// RecentWindow is how long after creation an event counts as new.
	RecentWindow = 7 * 24 * time.Hour

	naiveDateTimeLayout = "2006-01-02T15:04:05"
	dateLayout          = "2006-01-02"

	timedLabelLayout  = "1/2 3:04 PM"
	allDayLabelLayout = "1/2"
)

// Formatter converts raw calendar events into digest lines.
type Formatter struct {
	// Now returns the current time. It is used for the recency check.
	Now func() time.Time

	// Offset is added to parsed naive times when Location is nil.
	Offset time.Duration

	// Location, when set, makes the formatter honour the zone of API
	// timestamps and render them in this location. Offset is then ignored.
	Location *time.Location
}

// NewFormatter returns a Formatter with the legacy three hour offset.
func NewFormatter() *Formatter {
	return &Formatter{
		Now:    time.Now,
		Offset: LegacyOffset,
	}
}

// NewZonedFormatter returns a Formatter that renders times in loc.
func NewZonedFormatter(loc *time.Location) *Formatter {
	return &Formatter{
		Now:      time.Now,
		Location: loc,
	}
}

// Format converts events one to one, preserving order.
func (f *Formatter) Format(events []calendar.RawEvent) ([]FormattedEvent, error) {
	now := f.now()
	formatted := make([]FormattedEvent, 0, len(events))
	for i, event := range events {
		fe, err := f.formatEvent(event, now)
		if err != nil {
			return nil, fmt.Errorf("event %d (%q): %w", i, event.Summary, err)
		}
		formatted = append(formatted, fe)
	}
	return formatted, nil
}

func (f *Formatter) formatEvent(event calendar.RawEvent, now time.Time) (FormattedEvent, error) {
	label, err := f.dateLabel(event)
	if err != nil {
		return FormattedEvent{}, err
	}

	created, err := f.parseDateTime(event.Created, now.Location())
	if err != nil {
		return FormattedEvent{}, fmt.Errorf("created: %w", err)
	}

	marker := ""
	if now.Sub(created) < RecentWindow {
		marker = NewMarker
	}

	return FormattedEvent{
		DateLabel: label,
		Title:     Title(event.Summary, event.Location),
		NewMarker: marker,
	}, nil
}

func (f *Formatter) dateLabel(event calendar.RawEvent) (string, error) {
	if !event.Start.AllDay() {
		if event.Start.DateTime == "" {
			return "", ErrMissingStart
		}
		start, err := f.parseDateTime(event.Start.DateTime, f.Location)
		if err != nil {
			return "", fmt.Errorf("start: %w", err)
		}
		return f.adjust(start).Format(timedLabelLayout), nil
	}

	if !event.End.AllDay() {
		return "", ErrMissingEndDate
	}

	start, err := time.Parse(dateLayout, event.Start.Date)
	if err != nil {
		return "", fmt.Errorf("start: %w", err)
	}
	end, err := time.Parse(dateLayout, event.End.Date)
	if err != nil {
		return "", fmt.Errorf("end: %w", err)
	}

	return f.adjust(start).Format(allDayLabelLayout) + " - " + f.adjust(end).Format(allDayLabelLayout), nil
}

// parseDateTime reads an API timestamp. Without a Location only the first
// 19 characters are used and the result is a wall time in loc.
func (f *Formatter) parseDateTime(value string, loc *time.Location) (time.Time, error) {
	if f.Location != nil {
		t, err := time.Parse(time.RFC3339, value)
		if err != nil {
			return time.Time{}, err
		}
		return t.In(f.Location), nil
	}
	if loc == nil {
		loc = time.UTC
	}
	return time.ParseInLocation(naiveDateTimeLayout, truncate(value, len(naiveDateTimeLayout)), loc)
}

func (f *Formatter) adjust(t time.Time) time.Time {
	if f.Location != nil {
		return t
	}
	return t.Add(f.Offset)
}

func (f *Formatter) now() time.Time {
	if f.Now == nil {
		return time.Now()
	}
	return f.Now()
}

// Title appends a short location to summary unless the summary already
// names a place with "@" or there is no location.
func Title(summary, location string) string {
	if strings.Contains(summary, "@") || location == "" {
		return summary
	}
	return summary + " @ " + ShortLocation(location)
}

// ShortLocation returns the part of location before the first comma.
func ShortLocation(location string) string {
	short, _, _ := strings.Cut(location, ",")
	return short
}

func truncate(s string, n int) string {
	if len(s) > n {
		return s[:n]
	}
	return s
}
