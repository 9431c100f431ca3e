package digest

import (
	"fmt"
	"strings"
	"time"
)

const (
	// DefaultName is the calendar name used in the subject and greeting.
	DefaultName = "Allston Rat City"

	// DefaultSender is the display name on the From line.
	DefaultSender = "Allston Rat Citizens"

	todayLayout = "1/2"

	footer = "Events marked as " + NewMarker + " have been added to the calendar in the past week."
)

// Message is a composed digest.
type Message struct {
	From    string
	Subject string
	Body    string
}

// String renders the message with its From and Subject header lines.
func (m Message) String() string {
	var b strings.Builder
	b.WriteString("From: ")
	b.WriteString(m.From)
	b.WriteString("\r\n")
	b.WriteString("Subject: ")
	b.WriteString(m.Subject)
	b.WriteString("\r\n\r\n")
	b.WriteString(m.Body)
	return b.String()
}

// Composer builds the digest message.
type Composer struct {
	Name   string
	Sender string
	Now    func() time.Time
}

// NewComposer returns a Composer using the default names.
func NewComposer() *Composer {
	return &Composer{
		Name:   DefaultName,
		Sender: DefaultSender,
		Now:    time.Now,
	}
}

// Compose wraps the events in the digest template. Titles and locations are
// inserted as is.
func (c *Composer) Compose(events []FormattedEvent) Message {
	now := time.Now
	if c.Now != nil {
		now = c.Now
	}

	body := fmt.Sprintf("Upcoming events on the %s Calendar:\n\n%s\n\n%s",
		c.Name, EventBlock(events), footer)

	return Message{
		From:    c.Sender,
		Subject: fmt.Sprintf("%s Weekly Digest (%s)", c.Name, now().Format(todayLayout)),
		Body:    body,
	}
}

// EventBlock renders one tab separated line per event, joined by newlines.
func EventBlock(events []FormattedEvent) string {
	lines := make([]string, len(events))
	for i, e := range events {
		lines[i] = e.Line()
	}
	return strings.Join(lines, "\n")
}
