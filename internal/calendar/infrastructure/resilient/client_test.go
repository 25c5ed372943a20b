package resilient

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lektora/lektora/internal/calendar/domain"
)

type flakyClient struct {
	failures int
	calls    int
	err      error
}

func (f *flakyClient) GetEvent(ctx context.Context, calendarID, eventID string) (*domain.Event, error) {
	f.calls++
	if f.calls <= f.failures {
		return nil, f.err
	}
	return &domain.Event{ID: eventID}, nil
}

func (f *flakyClient) ListEvents(ctx context.Context, calendarID string, timeMin, timeMax time.Time) ([]domain.Event, error) {
	f.calls++
	if f.calls <= f.failures {
		return nil, f.err
	}
	return []domain.Event{}, nil
}

func (f *flakyClient) ListInstances(ctx context.Context, calendarID, masterEventID string, timeMin, timeMax time.Time) ([]domain.Event, error) {
	return nil, nil
}

func (f *flakyClient) InsertEvent(ctx context.Context, calendarID string, fields domain.EventFields) (*domain.Event, error) {
	return &domain.Event{ID: "evt-1"}, nil
}

func (f *flakyClient) DeleteEvent(ctx context.Context, calendarID, eventID string) error {
	return nil
}

func testConfig() Config {
	return Config{
		MaxRequests:      1,
		Interval:         time.Minute,
		Timeout:          time.Minute,
		FailureThreshold: 3,
	}
}

func TestClient_PassThrough(t *testing.T) {
	inner := &flakyClient{}
	client := NewClient(inner, testConfig(), nil)

	event, err := client.GetEvent(context.Background(), "primary", "evt-1")
	require.NoError(t, err)
	assert.Equal(t, "evt-1", event.ID)
}

func TestClient_OpensAfterConsecutiveFailures(t *testing.T) {
	inner := &flakyClient{failures: 100, err: errors.New("upstream down")}
	client := NewClient(inner, testConfig(), nil)

	for i := 0; i < 3; i++ {
		_, err := client.ListEvents(context.Background(), "primary", time.Now(), time.Now().Add(time.Hour))
		require.Error(t, err)
	}

	// Breaker is now open; the inner client must not be called again.
	callsBefore := inner.calls
	_, err := client.ListEvents(context.Background(), "primary", time.Now(), time.Now().Add(time.Hour))
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrUpstream)
	assert.Equal(t, callsBefore, inner.calls)
}

func TestClient_NotFoundDoesNotTrip(t *testing.T) {
	inner := &flakyClient{failures: 100, err: domain.ErrEventNotFound}
	client := NewClient(inner, testConfig(), nil)

	for i := 0; i < 10; i++ {
		_, err := client.GetEvent(context.Background(), "primary", "gone")
		require.ErrorIs(t, err, domain.ErrEventNotFound)
	}
	assert.Equal(t, 10, inner.calls)
}

func TestClient_RecoversAfterSuccess(t *testing.T) {
	inner := &flakyClient{failures: 2, err: errors.New("transient")}
	client := NewClient(inner, testConfig(), nil)

	_, err := client.GetEvent(context.Background(), "primary", "evt-1")
	require.Error(t, err)
	_, err = client.GetEvent(context.Background(), "primary", "evt-1")
	require.Error(t, err)

	event, err := client.GetEvent(context.Background(), "primary", "evt-1")
	require.NoError(t, err)
	assert.Equal(t, "evt-1", event.ID)
}
