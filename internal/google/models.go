// Package google fetches Calendar, Gmail and Drive data for the dashboard.
package google

import "time"

// Breaker names for the Google services.
const (
	BreakerCalendar = "google-calendar"
	BreakerGmail    = "google-gmail"
	BreakerDrive    = "google-drive"
)

// CalendarEvent is a single upcoming calendar entry.
type CalendarEvent struct {
	ID       string    `json:"id"`
	Title    string    `json:"title"`
	Location string    `json:"location,omitempty"`
	Start    time.Time `json:"start"`
	End      time.Time `json:"end"`
	AllDay   bool      `json:"allDay,omitempty"`
	Link     string    `json:"link,omitempty"`
}

// EmailSummary is a condensed inbox message.
type EmailSummary struct {
	ID       string    `json:"id"`
	From     string    `json:"from"`
	Subject  string    `json:"subject"`
	Snippet  string    `json:"snippet,omitempty"`
	Received time.Time `json:"received"`
	Unread   bool      `json:"unread"`
}

// DriveFile is a recently modified Drive file.
type DriveFile struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	MimeType   string    `json:"mimeType"`
	ModifiedAt time.Time `json:"modifiedAt"`
	Link       string    `json:"link,omitempty"`
}
