package google

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"github.com/lektora/lektora/internal/calendar/domain"
)

const defaultBaseURL = "https://www.googleapis.com/calendar/v3"

const requestTimeout = 15 * time.Second

// TokenSourceProvider yields OAuth token sources per calendar.
type TokenSourceProvider interface {
	TokenSource(ctx context.Context, calendarID string) (oauth2.TokenSource, error)
}

// Client implements domain.Client against the Google Calendar REST API.
type Client struct {
	oauthService TokenSourceProvider
	logger       *slog.Logger
	baseURL      string
}

// NewClient creates a Google Calendar client.
func NewClient(oauthService TokenSourceProvider, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		oauthService: oauthService,
		logger:       logger,
		baseURL:      defaultBaseURL,
	}
}

// NewClientWithBaseURL creates a client with a custom base URL.
func NewClientWithBaseURL(oauthService TokenSourceProvider, logger *slog.Logger, baseURL string) *Client {
	c := NewClient(oauthService, logger)
	if baseURL != "" {
		c.baseURL = strings.TrimSuffix(baseURL, "/")
	}
	return c
}

// GetEvent fetches a single event by ID.
func (c *Client) GetEvent(ctx context.Context, calendarID, eventID string) (*domain.Event, error) {
	httpClient, err := c.httpClient(ctx, calendarID)
	if err != nil {
		return nil, err
	}

	getURL := fmt.Sprintf("%s/calendars/%s/events/%s", c.baseURL, url.PathEscape(calendarID), url.PathEscape(eventID))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, getURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrUpstream, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone {
		return nil, domain.ErrEventNotFound
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, responseError(resp)
	}

	var payload eventPayload
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("%w: decode event: %w", domain.ErrUpstream, err)
	}
	if payload.Status == "cancelled" {
		return nil, domain.ErrEventNotFound
	}

	event := c.toDomainEvent(payload)
	return &event, nil
}

// ListEvents returns concrete events in the window, expanding recurring
// series into instances.
func (c *Client) ListEvents(ctx context.Context, calendarID string, timeMin, timeMax time.Time) ([]domain.Event, error) {
	query := url.Values{}
	query.Set("singleEvents", "true")
	query.Set("orderBy", "startTime")
	query.Set("timeMin", timeMin.Format(time.RFC3339))
	query.Set("timeMax", timeMax.Format(time.RFC3339))

	listURL := fmt.Sprintf("%s/calendars/%s/events?%s", c.baseURL, url.PathEscape(calendarID), query.Encode())
	return c.listAt(ctx, calendarID, listURL)
}

// ListInstances returns the occurrences of a recurring master in the window.
func (c *Client) ListInstances(ctx context.Context, calendarID, masterEventID string, timeMin, timeMax time.Time) ([]domain.Event, error) {
	query := url.Values{}
	query.Set("timeMin", timeMin.Format(time.RFC3339))
	query.Set("timeMax", timeMax.Format(time.RFC3339))

	listURL := fmt.Sprintf("%s/calendars/%s/events/%s/instances?%s",
		c.baseURL, url.PathEscape(calendarID), url.PathEscape(masterEventID), query.Encode())
	return c.listAt(ctx, calendarID, listURL)
}

func (c *Client) listAt(ctx context.Context, calendarID, listURL string) ([]domain.Event, error) {
	httpClient, err := c.httpClient(ctx, calendarID)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, listURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrUpstream, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, domain.ErrEventNotFound
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, responseError(resp)
	}

	var list struct {
		Items []eventPayload `json:"items"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&list); err != nil {
		return nil, fmt.Errorf("%w: decode event list: %w", domain.ErrUpstream, err)
	}

	events := make([]domain.Event, 0, len(list.Items))
	for _, item := range list.Items {
		if item.Status == "cancelled" {
			continue
		}
		events = append(events, c.toDomainEvent(item))
	}
	return events, nil
}

// InsertEvent writes a new event to the calendar.
func (c *Client) InsertEvent(ctx context.Context, calendarID string, fields domain.EventFields) (*domain.Event, error) {
	httpClient, err := c.httpClient(ctx, calendarID)
	if err != nil {
		return nil, err
	}

	payload := eventPayload{
		Summary:     fields.Summary,
		Description: fields.Description,
		Recurrence:  fields.Recurrence,
	}
	payload.Start.DateTime = fields.Start.Format(time.RFC3339)
	payload.End.DateTime = fields.End.Format(time.RFC3339)
	payload.ExtendedProperties.Private = fields.PrivateProperties

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	insertURL := fmt.Sprintf("%s/calendars/%s/events", c.baseURL, url.PathEscape(calendarID))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, insertURL, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrUpstream, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, responseError(resp)
	}

	var created eventPayload
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		return nil, fmt.Errorf("%w: decode inserted event: %w", domain.ErrUpstream, err)
	}
	event := c.toDomainEvent(created)
	return &event, nil
}

// DeleteEvent removes an event; deleting a missing event is not an error.
func (c *Client) DeleteEvent(ctx context.Context, calendarID, eventID string) error {
	httpClient, err := c.httpClient(ctx, calendarID)
	if err != nil {
		return err
	}

	deleteURL := fmt.Sprintf("%s/calendars/%s/events/%s", c.baseURL, url.PathEscape(calendarID), url.PathEscape(eventID))
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, deleteURL, nil)
	if err != nil {
		return err
	}
	resp, err := httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", domain.ErrUpstream, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone {
		return nil
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return responseError(resp)
	}
	return nil
}

func (c *Client) httpClient(ctx context.Context, calendarID string) (*http.Client, error) {
	if c.oauthService == nil {
		return nil, fmt.Errorf("oauth service not configured")
	}
	tokenSource, err := c.oauthService.TokenSource(ctx, calendarID)
	if err != nil {
		return nil, err
	}
	return &http.Client{
		Timeout: requestTimeout,
		Transport: &oauthTransport{
			base:   http.DefaultTransport,
			source: tokenSource,
		},
	}, nil
}

func responseError(resp *http.Response) error {
	body, _ := io.ReadAll(resp.Body)
	return fmt.Errorf("%w: status=%d body=%s", domain.ErrUpstream, resp.StatusCode, string(body))
}

// eventPayload mirrors the Google Calendar events resource.
type eventPayload struct {
	ID                 string `json:"id,omitempty"`
	Status             string `json:"status,omitempty"`
	Summary            string `json:"summary,omitempty"`
	Description        string `json:"description,omitempty"`
	Transparency       string `json:"transparency,omitempty"`
	Recurrence         []string `json:"recurrence,omitempty"`
	ExtendedProperties struct {
		Private map[string]string `json:"private,omitempty"`
	} `json:"extendedProperties,omitempty"`
	Start eventTime `json:"start"`
	End   eventTime `json:"end"`
}

type eventTime struct {
	DateTime string `json:"dateTime,omitempty"`
	Date     string `json:"date,omitempty"`
}

// toDomainEvent projects a raw payload into the typed boundary event.
// Unparsable timestamps are logged and left zero; downstream validity checks
// drop the event without aborting the batch.
func (c *Client) toDomainEvent(payload eventPayload) domain.Event {
	event := domain.Event{
		ID:                payload.ID,
		Summary:           payload.Summary,
		Transparency:      domain.Transparency(payload.Transparency),
		PrivateProperties: payload.ExtendedProperties.Private,
	}
	if event.Transparency == "" {
		event.Transparency = domain.TransparencyOpaque
	}
	if len(payload.Recurrence) > 0 {
		event.RecurrenceRule = payload.Recurrence[0]
	}

	event.AllDay = payload.Start.Date != "" && payload.Start.DateTime == ""
	event.Start = c.parseInstant(payload.ID, "start", payload.Start.DateTime)
	event.End = c.parseInstant(payload.ID, "end", payload.End.DateTime)
	return event
}

func (c *Client) parseInstant(eventID, field, raw string) time.Time {
	if raw == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		c.logger.Warn("dropping unparsable event timestamp",
			"event_id", eventID,
			"field", field,
			"value", raw,
		)
		return time.Time{}
	}
	return t
}

type oauthTransport struct {
	base   http.RoundTripper
	source oauth2.TokenSource
}

func (t *oauthTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	token, err := t.source.Token()
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token.AccessToken)
	return t.base.RoundTrip(req)
}
