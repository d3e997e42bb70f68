package google

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/familyhub/familyhub/internal/resilience"
)

// Default API base URLs.
const (
	DefaultCalendarURL = "https://www.googleapis.com/calendar/v3"
	DefaultGmailURL    = "https://gmail.googleapis.com/gmail/v1"
	DefaultDriveURL    = "https://www.googleapis.com/drive/v3"
)

// ClientConfig holds configuration for the Google API client.
type ClientConfig struct {
	// AccessToken is the OAuth bearer token (required). Token refresh happens
	// outside this service.
	AccessToken string

	// CalendarURL, GmailURL and DriveURL override the API base URLs,
	// mainly for tests.
	CalendarURL string
	GmailURL    string
	DriveURL    string

	// HTTPClient is the HTTP client to use (optional).
	// If nil, uses a resilient client with defaults.
	HTTPClient *resilience.Client

	// Logger for client operations.
	Logger zerolog.Logger
}

// Client calls the Google Calendar, Gmail and Drive REST APIs.
type Client struct {
	accessToken string
	calendarURL string
	gmailURL    string
	driveURL    string
	httpClient  *resilience.Client
	logger      zerolog.Logger
}

// NewClient creates a new Google API client.
func NewClient(cfg ClientConfig) *Client {
	calendarURL := cfg.CalendarURL
	if calendarURL == "" {
		calendarURL = DefaultCalendarURL
	}

	gmailURL := cfg.GmailURL
	if gmailURL == "" {
		gmailURL = DefaultGmailURL
	}

	driveURL := cfg.DriveURL
	if driveURL == "" {
		driveURL = DefaultDriveURL
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = resilience.NewClient(resilience.DefaultClientConfig("google"))
	}

	return &Client{
		accessToken: cfg.AccessToken,
		calendarURL: calendarURL,
		gmailURL:    gmailURL,
		driveURL:    driveURL,
		httpClient:  httpClient,
		logger:      cfg.Logger,
	}
}

// ListEvents fetches upcoming events from the primary calendar.
func (c *Client) ListEvents(ctx context.Context, maxResults int) ([]CalendarEvent, error) {
	q := url.Values{}
	q.Set("maxResults", strconv.Itoa(maxResults))
	q.Set("singleEvents", "true")
	q.Set("orderBy", "startTime")
	q.Set("timeMin", time.Now().Format(time.RFC3339))

	var out eventsResponse
	if err := c.get(ctx, c.calendarURL+"/calendars/primary/events?"+q.Encode(), &out); err != nil {
		return nil, err
	}

	events := make([]CalendarEvent, 0, len(out.Items))
	for _, item := range out.Items {
		events = append(events, item.toEvent())
	}
	return events, nil
}

// ListMessages fetches recent inbox messages with metadata.
func (c *Client) ListMessages(ctx context.Context, maxResults int) ([]EmailSummary, error) {
	q := url.Values{}
	q.Set("maxResults", strconv.Itoa(maxResults))
	q.Set("labelIds", "INBOX")

	var list messageListResponse
	if err := c.get(ctx, c.gmailURL+"/users/me/messages?"+q.Encode(), &list); err != nil {
		return nil, err
	}

	messages := make([]EmailSummary, 0, len(list.Messages))
	for _, ref := range list.Messages {
		var msg messageResponse
		msgURL := c.gmailURL + "/users/me/messages/" + ref.ID +
			"?format=metadata&metadataHeaders=From&metadataHeaders=Subject"
		if err := c.get(ctx, msgURL, &msg); err != nil {
			return nil, err
		}
		messages = append(messages, msg.toSummary())
	}
	return messages, nil
}

// ListFiles fetches the most recently modified Drive files.
func (c *Client) ListFiles(ctx context.Context, maxResults int) ([]DriveFile, error) {
	q := url.Values{}
	q.Set("pageSize", strconv.Itoa(maxResults))
	q.Set("orderBy", "modifiedTime desc")
	q.Set("fields", "files(id,name,mimeType,modifiedTime,webViewLink)")

	var out filesResponse
	if err := c.get(ctx, c.driveURL+"/files?"+q.Encode(), &out); err != nil {
		return nil, err
	}

	files := make([]DriveFile, 0, len(out.Files))
	for _, f := range out.Files {
		files = append(files, f.toFile())
	}
	return files, nil
}

// get performs an authenticated GET and decodes the JSON body into v.
func (c *Client) get(ctx context.Context, rawURL string, v interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, http.NoBody)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.accessToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

// Wire types for the Google REST responses.

type eventsResponse struct {
	Items []eventItem `json:"items"`
}

type eventItem struct {
	ID       string    `json:"id"`
	Summary  string    `json:"summary"`
	Location string    `json:"location"`
	HTMLLink string    `json:"htmlLink"`
	Start    eventTime `json:"start"`
	End      eventTime `json:"end"`
}

type eventTime struct {
	DateTime string `json:"dateTime"`
	Date     string `json:"date"`
}

func (t eventTime) parse() (time.Time, bool) {
	if t.DateTime != "" {
		parsed, err := time.Parse(time.RFC3339, t.DateTime)
		if err == nil {
			return parsed, false
		}
	}
	if t.Date != "" {
		parsed, err := time.Parse("2006-01-02", t.Date)
		if err == nil {
			return parsed, true
		}
	}
	return time.Time{}, false
}

func (i eventItem) toEvent() CalendarEvent {
	start, allDay := i.Start.parse()
	end, _ := i.End.parse()

	return CalendarEvent{
		ID:       i.ID,
		Title:    i.Summary,
		Location: i.Location,
		Start:    start,
		End:      end,
		AllDay:   allDay,
		Link:     i.HTMLLink,
	}
}

type messageListResponse struct {
	Messages []messageRef `json:"messages"`
}

type messageRef struct {
	ID string `json:"id"`
}

type messageResponse struct {
	ID           string         `json:"id"`
	Snippet      string         `json:"snippet"`
	InternalDate string         `json:"internalDate"`
	LabelIDs     []string       `json:"labelIds"`
	Payload      messagePayload `json:"payload"`
}

type messagePayload struct {
	Headers []messageHeader `json:"headers"`
}

type messageHeader struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

func (m messageResponse) toSummary() EmailSummary {
	summary := EmailSummary{
		ID:      m.ID,
		Snippet: m.Snippet,
	}

	for _, h := range m.Payload.Headers {
		switch h.Name {
		case "From":
			summary.From = h.Value
		case "Subject":
			summary.Subject = h.Value
		}
	}

	// internalDate is epoch milliseconds as a string.
	if ms, err := strconv.ParseInt(m.InternalDate, 10, 64); err == nil {
		summary.Received = time.UnixMilli(ms)
	}

	for _, label := range m.LabelIDs {
		if label == "UNREAD" {
			summary.Unread = true
			break
		}
	}

	return summary
}

type filesResponse struct {
	Files []fileItem `json:"files"`
}

type fileItem struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	MimeType     string `json:"mimeType"`
	ModifiedTime string `json:"modifiedTime"`
	WebViewLink  string `json:"webViewLink"`
}

func (f fileItem) toFile() DriveFile {
	modified, _ := time.Parse(time.RFC3339, f.ModifiedTime)
	return DriveFile{
		ID:         f.ID,
		Name:       f.Name,
		MimeType:   f.MimeType,
		ModifiedAt: modified,
		Link:       f.WebViewLink,
	}
}
