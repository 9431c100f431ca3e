// Package calendar fetches upcoming events from the Google Calendar API.
//
// The client lists single occurrences of a group calendar, ordered by start
// time and capped at DefaultMaxResults, starting from a given instant. Events
// are returned as RawEvent values that keep the API's date strings untouched
// so the digest formatter can apply its own parsing rules.
//
// Example usage:
//
//	ts, err := google.NewTokenSource(ctx, flow, store)
//	if err != nil {
//	    return err
//	}
//	client, err := calendar.NewClient(ctx, ts)
//	if err != nil {
//	    return err
//	}
//	events, err := client.ListUpcoming(ctx, calendar.GroupCalendarID("abc123"), time.Now(), calendar.DefaultMaxResults)
package calendar
