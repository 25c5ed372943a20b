// Package app wires the application's dependencies into a container shared
// by the CLI and the worker.
package app

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	calendarApp "github.com/lektora/lektora/internal/calendar/application"
	calendarWorkers "github.com/lektora/lektora/internal/calendar/application/workers"
	calendarDomain "github.com/lektora/lektora/internal/calendar/domain"
	googleCalendar "github.com/lektora/lektora/internal/calendar/infrastructure/google"
	"github.com/lektora/lektora/internal/calendar/infrastructure/resilient"
	"github.com/lektora/lektora/internal/notifications"
	schedulingApp "github.com/lektora/lektora/internal/scheduling/application"
	schedulingDomain "github.com/lektora/lektora/internal/scheduling/domain"
	"github.com/lektora/lektora/internal/scheduling/infrastructure/cache"
	"github.com/lektora/lektora/internal/scheduling/infrastructure/locking"
	"github.com/lektora/lektora/internal/shared/infrastructure/database"
	_ "github.com/lektora/lektora/internal/shared/infrastructure/database/postgres" // Register Postgres driver
	_ "github.com/lektora/lektora/internal/shared/infrastructure/database/sqlite"   // Register SQLite driver
	"github.com/lektora/lektora/internal/shared/infrastructure/eventbus"
	"github.com/lektora/lektora/internal/shared/infrastructure/migrations"
	"github.com/lektora/lektora/pkg/config"
)

// Container holds all application dependencies.
type Container struct {
	Config *config.Config
	Logger *slog.Logger

	// Database
	DBConn   database.Connection
	DBDriver database.Driver

	// Redis
	RedisClient *redis.Client

	// Repositories
	BookingRepo    schedulingDomain.BookingRepository
	InstructorRepo schedulingDomain.InstructorRepository

	// Calendar
	CalendarClient calendarDomain.Client

	// Publisher
	EventPublisher eventbus.Publisher

	// Services
	ConflictDetector    *schedulingApp.ConflictDetector
	AvailabilityService *schedulingApp.AvailabilityService
	BookingService      *schedulingApp.BookingService
	JoinGate            *schedulingApp.JoinGate
	Reconciler          *calendarApp.Reconciler
	ReminderScheduler   notifications.Scheduler
	SweepWorker         *calendarWorkers.SweepWorker
}

// NewContainer creates and wires all application dependencies.
func NewContainer(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Container, error) {
	if logger == nil {
		logger = slog.Default()
	}

	c := &Container{
		Config: cfg,
		Logger: logger,
	}

	if err := c.initDatabase(ctx); err != nil {
		return nil, err
	}
	c.initRedis(ctx)
	c.initPublisher()
	c.initCalendar()
	c.initServices()

	return c, nil
}

func (c *Container) initDatabase(ctx context.Context) error {
	conn, err := database.NewConnection(ctx, database.Config{
		URL:        c.Config.DatabaseURL,
		SQLitePath: c.Config.SQLitePath,
	})
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	if err := conn.Ping(ctx); err != nil {
		conn.Close()
		return fmt.Errorf("ping database: %w", err)
	}

	c.DBConn = conn
	c.DBDriver = conn.Driver()
	c.Logger.Info("connected to database", "driver", c.DBDriver)

	if err := c.runMigrations(ctx); err != nil {
		conn.Close()
		return err
	}

	factory := NewRepositoryFactory(conn)
	c.BookingRepo, err = factory.BookingRepository()
	if err != nil {
		conn.Close()
		return err
	}
	c.InstructorRepo, err = factory.InstructorRepository()
	if err != nil {
		conn.Close()
		return err
	}
	return nil
}

func (c *Container) runMigrations(ctx context.Context) error {
	switch c.DBDriver {
	case database.DriverPostgres:
		pgConn, ok := c.DBConn.(interface{ Pool() *pgxpool.Pool })
		if !ok {
			return fmt.Errorf("postgres connection does not expose Pool()")
		}
		if err := migrations.RunPostgresMigrations(ctx, pgConn.Pool()); err != nil {
			return fmt.Errorf("run migrations: %w", err)
		}
	case database.DriverSQLite:
		sqliteConn, ok := c.DBConn.(interface{ DB() *sql.DB })
		if !ok {
			return fmt.Errorf("sqlite connection does not expose DB()")
		}
		if err := migrations.RunSQLiteMigrations(ctx, sqliteConn.DB()); err != nil {
			return fmt.Errorf("run migrations: %w", err)
		}
	}
	return nil
}

// initRedis connects to Redis. Redis backs the availability cache, the
// booking lock, and the reminder queue; without it those degrade to
// cache-off, lock-off, reminders-off.
func (c *Container) initRedis(ctx context.Context) {
	opts, err := redis.ParseURL(c.Config.RedisURL)
	if err != nil {
		c.Logger.Warn("invalid Redis URL, running without Redis", "error", err)
		return
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		c.Logger.Warn("Redis not available, running without cache, locks, and reminders", "error", err)
		client.Close()
		return
	}

	c.RedisClient = client
	c.ReminderScheduler = notifications.NewRedisScheduler(client, c.Logger)
	c.Logger.Info("connected to Redis")
}

func (c *Container) initPublisher() {
	publisher, err := eventbus.NewRabbitMQPublisher(c.Config.RabbitMQURL, c.Logger)
	if err != nil {
		c.Logger.Warn("RabbitMQ not available, using noop publisher", "error", err)
		c.EventPublisher = eventbus.NewNoopPublisher(c.Logger)
		return
	}
	c.EventPublisher = publisher
	c.Logger.Info("event publisher initialized")
}

func (c *Container) initCalendar() {
	provider := googleCalendar.NewRefreshTokenProvider(
		c.Config.OAuthClientID,
		c.Config.OAuthClientSecret,
		c.Config.OAuthTokenURL,
		c.Config.OAuthRefreshToken,
	)
	client := googleCalendar.NewClientWithBaseURL(provider, c.Logger, c.Config.GoogleAPIBaseURL)
	c.CalendarClient = resilient.NewClient(client, resilient.DefaultConfig(), c.Logger)
}

func (c *Container) initServices() {
	var availabilityCache schedulingApp.AvailabilityCache
	var locker schedulingApp.Locker
	if c.RedisClient != nil {
		availabilityCache = cache.NewRedisAvailabilityCache(c.RedisClient, c.Config.CacheSlotTTL, c.Logger)
		locker = locking.NewRedisLocker(c.RedisClient, c.Logger)
	}

	c.ConflictDetector = schedulingApp.NewConflictDetector(c.CalendarClient, c.Logger)
	c.AvailabilityService = schedulingApp.NewAvailabilityService(
		c.InstructorRepo,
		c.BookingRepo,
		c.CalendarClient,
		availabilityCache,
		c.Logger,
	)
	c.BookingService = schedulingApp.NewBookingService(
		c.BookingRepo,
		c.InstructorRepo,
		c.CalendarClient,
		c.ConflictDetector,
		locker,
		c.EventPublisher,
		c.ReminderScheduler,
		c.AvailabilityService,
		c.Logger,
	)
	c.Reconciler = calendarApp.NewReconciler(
		c.CalendarClient,
		c.BookingRepo,
		c.InstructorRepo,
		c.ReminderScheduler,
		c.EventPublisher,
		c.Logger,
	)
	c.JoinGate = schedulingApp.NewJoinGate(c.BookingRepo, c.Reconciler.WithWindow(calendarApp.JoinWindow), c.Logger)
	c.SweepWorker = calendarWorkers.NewSweepWorker(
		c.Reconciler,
		calendarWorkers.SweepWorkerConfig{Interval: c.Config.SweepInterval},
		c.Logger,
	)
}

// Close releases all container resources.
func (c *Container) Close() {
	if c.EventPublisher != nil {
		if err := c.EventPublisher.Close(); err != nil {
			c.Logger.Warn("event publisher close failed", "error", err)
		}
	}
	if c.RedisClient != nil {
		if err := c.RedisClient.Close(); err != nil {
			c.Logger.Warn("redis close failed", "error", err)
		}
	}
	if c.DBConn != nil {
		if err := c.DBConn.Close(); err != nil {
			c.Logger.Warn("database close failed", "error", err)
		}
	}
}
