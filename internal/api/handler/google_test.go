package handler_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/familyhub/familyhub/internal/api/handler"
	"github.com/familyhub/familyhub/internal/google"
)

type stubFetcher struct {
	events []google.CalendarEvent
	err    error
}

func (s *stubFetcher) ListEvents(_ context.Context, _ int) ([]google.CalendarEvent, error) {
	return s.events, s.err
}

func (s *stubFetcher) ListMessages(_ context.Context, _ int) ([]google.EmailSummary, error) {
	return nil, s.err
}

func (s *stubFetcher) ListFiles(_ context.Context, _ int) ([]google.DriveFile, error) {
	return nil, s.err
}

func newGoogleHandler(fetcher google.Fetcher) *handler.GoogleHandler {
	svc := google.NewService(google.ServiceConfig{
		Fetcher:  fetcher,
		Breakers: newTestRegistry(),
		Logger:   zerolog.Nop(),
	})
	return handler.NewGoogleHandler(svc, zerolog.Nop())
}

func TestGoogleHandler_Events(t *testing.T) {
	h := newGoogleHandler(&stubFetcher{
		events: []google.CalendarEvent{
			{ID: "evt1", Title: "Dentist", Start: time.Now().Add(time.Hour)},
		},
	})

	req := httptest.NewRequest(http.MethodGet, "/v1/calendar/events", http.NoBody)
	rec := httptest.NewRecorder()
	h.Events(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var body handler.EventsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.False(t, body.Fallback)
	assert.Empty(t, body.Error)
	require.Len(t, body.Events, 1)
	assert.Equal(t, "Dentist", body.Events[0].Title)
	assert.False(t, body.Timestamp.IsZero())
}

func TestGoogleHandler_Events_DegradedStill200(t *testing.T) {
	h := newGoogleHandler(&stubFetcher{err: errors.New("calendar API down")})

	req := httptest.NewRequest(http.MethodGet, "/v1/calendar/events", http.NoBody)
	rec := httptest.NewRecorder()
	h.Events(rec, req)

	// Degraded responses keep the dashboard alive: 200 with fallback markers.
	require.Equal(t, http.StatusOK, rec.Code)

	var body handler.EventsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.True(t, body.Fallback)
	assert.Equal(t, "service_unavailable", body.Error)
	assert.NotEmpty(t, body.Message)
	assert.NotNil(t, body.Events)
	assert.Empty(t, body.Events)
}

func TestGoogleHandler_Events_MaxResultsClamped(t *testing.T) {
	fetcher := &stubFetcher{}
	h := newGoogleHandler(fetcher)

	req := httptest.NewRequest(http.MethodGet, "/v1/calendar/events?maxResults=9999", http.NoBody)
	rec := httptest.NewRecorder()
	h.Events(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}
