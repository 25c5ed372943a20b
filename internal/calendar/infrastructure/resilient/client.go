// Package resilient wraps a calendar client with a circuit breaker so a
// degraded upstream surfaces quickly as an error instead of piling up
// slow requests.
package resilient

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sony/gobreaker/v2"

	"github.com/lektora/lektora/internal/calendar/domain"
)

// Config controls when the breaker trips and how long it stays open.
type Config struct {
	MaxRequests      uint32
	Interval         time.Duration
	Timeout          time.Duration
	FailureThreshold uint32
}

// DefaultConfig trips after 5 consecutive failures and probes again
// after 30 seconds.
func DefaultConfig() Config {
	return Config{
		MaxRequests:      3,
		Interval:         time.Minute,
		Timeout:          30 * time.Second,
		FailureThreshold: 5,
	}
}

// Client decorates a domain.Client with a shared circuit breaker.
// ErrEventNotFound is a normal outcome and never counts as a failure.
type Client struct {
	inner   domain.Client
	breaker *gobreaker.CircuitBreaker[any]
	logger  *slog.Logger
}

// NewClient builds the decorated client.
func NewClient(inner domain.Client, config Config, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}

	settings := gobreaker.Settings{
		Name:        "calendar",
		MaxRequests: config.MaxRequests,
		Interval:    config.Interval,
		Timeout:     config.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= config.FailureThreshold
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, domain.ErrEventNotFound)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Info("circuit breaker state changed",
				"breaker", name,
				"from", from.String(),
				"to", to.String(),
			)
		},
	}

	return &Client{
		inner:   inner,
		breaker: gobreaker.NewCircuitBreaker[any](settings),
		logger:  logger,
	}
}

func (c *Client) execute(fn func() (any, error)) (any, error) {
	result, err := c.breaker.Execute(fn)
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, fmt.Errorf("%w: circuit breaker open: %v", domain.ErrUpstream, err)
	}
	return result, err
}

func (c *Client) GetEvent(ctx context.Context, calendarID, eventID string) (*domain.Event, error) {
	result, err := c.execute(func() (any, error) {
		return c.inner.GetEvent(ctx, calendarID, eventID)
	})
	if err != nil {
		return nil, err
	}
	return result.(*domain.Event), nil
}

func (c *Client) ListEvents(ctx context.Context, calendarID string, timeMin, timeMax time.Time) ([]domain.Event, error) {
	result, err := c.execute(func() (any, error) {
		return c.inner.ListEvents(ctx, calendarID, timeMin, timeMax)
	})
	if err != nil {
		return nil, err
	}
	return result.([]domain.Event), nil
}

func (c *Client) ListInstances(ctx context.Context, calendarID, masterEventID string, timeMin, timeMax time.Time) ([]domain.Event, error) {
	result, err := c.execute(func() (any, error) {
		return c.inner.ListInstances(ctx, calendarID, masterEventID, timeMin, timeMax)
	})
	if err != nil {
		return nil, err
	}
	return result.([]domain.Event), nil
}

func (c *Client) InsertEvent(ctx context.Context, calendarID string, fields domain.EventFields) (*domain.Event, error) {
	result, err := c.execute(func() (any, error) {
		return c.inner.InsertEvent(ctx, calendarID, fields)
	})
	if err != nil {
		return nil, err
	}
	return result.(*domain.Event), nil
}

func (c *Client) DeleteEvent(ctx context.Context, calendarID, eventID string) error {
	_, err := c.execute(func() (any, error) {
		return nil, c.inner.DeleteEvent(ctx, calendarID, eventID)
	})
	return err
}
