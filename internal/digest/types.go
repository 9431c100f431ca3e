package digest

import (
	"errors"
	"strings"
)

// NewMarker flags events created within RecentWindow.
const NewMarker = "NEW!"

var (
	// ErrMissingEndDate is returned for an all-day event without an end date.
	ErrMissingEndDate = errors.New("all-day event has no end date")

	// ErrMissingStart is returned for an event with neither a start time nor a start date.
	ErrMissingStart = errors.New("event has no start")
)

// FormattedEvent is one digest line.
type FormattedEvent struct {
	DateLabel string
	Title     string
	NewMarker string
}

// Fields returns the line's columns in display order.
func (e FormattedEvent) Fields() []string {
	return []string{e.DateLabel, e.Title, e.NewMarker}
}

// Line renders the event as its fields joined by tabs.
func (e FormattedEvent) Line() string {
	return strings.Join(e.Fields(), "\t")
}

// IsNew reports whether the event carries the new marker.
func (e FormattedEvent) IsNew() bool {
	return e.NewMarker != ""
}
