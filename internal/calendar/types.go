package calendar

import (
	calendar "google.golang.org/api/calendar/v3"
)

// EventTime is the start or end of an event as sent by the API.
// Timed events carry DateTime (RFC3339); all-day events carry Date (YYYY-MM-DD).
type EventTime struct {
	DateTime string
	Date     string
}

// AllDay reports whether the time is a date without a time of day.
func (t EventTime) AllDay() bool {
	return t.DateTime == "" && t.Date != ""
}

// RawEvent is an upcoming event before formatting.
type RawEvent struct {
	Summary  string
	Location string
	Created  string
	Start    EventTime
	End      EventTime
}

// toRawEvent converts a Google Calendar event to a RawEvent
func toRawEvent(event *calendar.Event) RawEvent {
	if event == nil {
		return RawEvent{}
	}

	raw := RawEvent{
		Summary:  event.Summary,
		Location: event.Location,
		Created:  event.Created,
	}
	if event.Start != nil {
		raw.Start = EventTime{DateTime: event.Start.DateTime, Date: event.Start.Date}
	}
	if event.End != nil {
		raw.End = EventTime{DateTime: event.End.DateTime, Date: event.End.Date}
	}
	return raw
}
