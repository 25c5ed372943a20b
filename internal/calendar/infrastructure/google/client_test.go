package google

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"golang.org/x/oauth2"

	"github.com/lektora/lektora/internal/calendar/domain"
)

type stubTokenSourceProvider struct {
	source oauth2.TokenSource
	err    error
}

func (s stubTokenSourceProvider) TokenSource(ctx context.Context, calendarID string) (oauth2.TokenSource, error) {
	return s.source, s.err
}

func newTestClient(serverURL string) *Client {
	source := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: "test"})
	return NewClientWithBaseURL(stubTokenSourceProvider{source: source}, nil, serverURL)
}

func TestClient_GetEvent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/calendars/primary/events/evt-1" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test" {
			t.Errorf("unexpected auth header: %q", got)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":           "evt-1",
			"summary":      "Lesson with Mara",
			"transparency": "opaque",
			"start":        map[string]string{"dateTime": "2026-03-09T10:00:00Z"},
			"end":          map[string]string{"dateTime": "2026-03-09T11:00:00Z"},
			"extendedProperties": map[string]any{
				"private": map[string]string{"booking_id": "b-1"},
			},
		})
	}))
	defer server.Close()

	event, err := newTestClient(server.URL).GetEvent(context.Background(), "primary", "evt-1")
	if err != nil {
		t.Fatalf("get event failed: %v", err)
	}

	if event.ID != "evt-1" {
		t.Errorf("unexpected id: %q", event.ID)
	}
	if !event.HasValidTiming() {
		t.Error("expected valid timing")
	}
	if event.IsRecurringMaster() {
		t.Error("expected a plain event, not a recurring master")
	}
	if event.PrivateProperties["booking_id"] != "b-1" {
		t.Errorf("private properties not parsed: %+v", event.PrivateProperties)
	}
}

func TestClient_GetEvent_NotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).GetEvent(context.Background(), "primary", "gone")
	if !errors.Is(err, domain.ErrEventNotFound) {
		t.Fatalf("expected ErrEventNotFound, got %v", err)
	}
}

func TestClient_GetEvent_CancelledIsNotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"id": "evt-1", "status": "cancelled"})
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).GetEvent(context.Background(), "primary", "evt-1")
	if !errors.Is(err, domain.ErrEventNotFound) {
		t.Fatalf("expected ErrEventNotFound, got %v", err)
	}
}

func TestClient_GetEvent_UpstreamFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).GetEvent(context.Background(), "primary", "evt-1")
	if !errors.Is(err, domain.ErrUpstream) {
		t.Fatalf("expected ErrUpstream, got %v", err)
	}
}

func TestClient_ListEvents(t *testing.T) {
	var gotQuery string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		_ = json.NewEncoder(w).Encode(map[string]any{
			"items": []map[string]any{
				{
					"id":    "evt-1",
					"start": map[string]string{"dateTime": "2026-03-09T09:00:00Z"},
					"end":   map[string]string{"dateTime": "2026-03-09T10:00:00Z"},
				},
				{
					"id":           "evt-2",
					"transparency": "transparent",
					"start":        map[string]string{"dateTime": "2026-03-09T11:00:00Z"},
					"end":          map[string]string{"dateTime": "2026-03-09T13:00:00Z"},
				},
				{
					"id":     "evt-cancelled",
					"status": "cancelled",
				},
				{
					"id":    "evt-all-day",
					"start": map[string]string{"date": "2026-03-09"},
					"end":   map[string]string{"date": "2026-03-10"},
				},
			},
		})
	}))
	defer server.Close()

	timeMin := time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC)
	events, err := newTestClient(server.URL).ListEvents(context.Background(), "primary", timeMin, timeMin.Add(24*time.Hour))
	if err != nil {
		t.Fatalf("list events failed: %v", err)
	}

	if !strings.Contains(gotQuery, "singleEvents=true") {
		t.Errorf("expected recurring expansion, query: %s", gotQuery)
	}
	if len(events) != 3 {
		t.Fatalf("expected cancelled event skipped, got %d events", len(events))
	}
	if events[0].Transparency != domain.TransparencyOpaque {
		t.Errorf("missing transparency should default to opaque, got %q", events[0].Transparency)
	}
	if !events[1].IsFree() {
		t.Error("transparent event should report free")
	}
	if !events[2].AllDay {
		t.Error("date-only event should be all-day")
	}
}

func TestClient_ListInstances(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/events/master-1/instances") {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"items": []map[string]any{
				{
					"id":    "master-1_20260309",
					"start": map[string]string{"dateTime": "2026-03-09T10:00:00Z"},
					"end":   map[string]string{"dateTime": "2026-03-09T11:00:00Z"},
				},
			},
		})
	}))
	defer server.Close()

	now := time.Now()
	events, err := newTestClient(server.URL).ListInstances(context.Background(), "primary", "master-1", now, now.Add(14*24*time.Hour))
	if err != nil {
		t.Fatalf("list instances failed: %v", err)
	}
	if len(events) != 1 || events[0].ID != "master-1_20260309" {
		t.Fatalf("unexpected instances: %+v", events)
	}
}

func TestClient_InsertEvent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		var payload map[string]any
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		payload["id"] = "evt-new"
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(payload)
	}))
	defer server.Close()

	start := time.Date(2026, 3, 9, 10, 0, 0, 0, time.UTC)
	event, err := newTestClient(server.URL).InsertEvent(context.Background(), "primary", domain.EventFields{
		Summary:           "Lesson",
		Start:             start,
		End:               start.Add(time.Hour),
		PrivateProperties: map[string]string{domain.PrivatePropBookingID: "b-1"},
	})
	if err != nil {
		t.Fatalf("insert failed: %v", err)
	}
	if event.ID != "evt-new" {
		t.Errorf("unexpected id: %q", event.ID)
	}
	if event.PrivateProperties[domain.PrivatePropBookingID] != "b-1" {
		t.Errorf("private properties lost on round trip: %+v", event.PrivateProperties)
	}
}

func TestClient_DeleteEvent_MissingIsNoError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusGone)
	}))
	defer server.Close()

	if err := newTestClient(server.URL).DeleteEvent(context.Background(), "primary", "evt-1"); err != nil {
		t.Fatalf("delete of missing event should not error, got %v", err)
	}
}

func TestClient_RecurringMasterParsed(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":         "master-1",
			"recurrence": []string{"RRULE:FREQ=WEEKLY;BYDAY=MO"},
			"start":      map[string]string{"dateTime": "2026-03-09T10:00:00Z"},
			"end":        map[string]string{"dateTime": "2026-03-09T11:00:00Z"},
		})
	}))
	defer server.Close()

	event, err := newTestClient(server.URL).GetEvent(context.Background(), "primary", "master-1")
	if err != nil {
		t.Fatalf("get event failed: %v", err)
	}
	if !event.IsRecurringMaster() {
		t.Error("expected recurring master")
	}
}
