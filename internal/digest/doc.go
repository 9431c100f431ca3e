// Package digest turns upcoming calendar events into the weekly digest text.
//
// Formatting happens in two steps. A Formatter converts each calendar.RawEvent
// into a FormattedEvent made of a date label, a title and a "new" marker. A
// Composer then joins the formatted events, one tab separated line each, and
// wraps them in the digest template.
//
// Date labels never zero-pad: a timed event reads "6/4 10:00 PM" and an
// all-day event reads "6/4 - 6/5". Events created less than seven days ago
// carry the NewMarker.
//
// # Time handling
//
// By default the Formatter ignores the zone suffix of API timestamps and adds
// LegacyOffset to the naive wall time, reproducing the historical digest
// output. Setting Formatter.Location switches to zone-aware conversion and
// disables the offset.
package digest
