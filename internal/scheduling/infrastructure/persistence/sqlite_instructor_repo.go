package persistence

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/lektora/lektora/internal/scheduling/domain"
	sharedDomain "github.com/lektora/lektora/internal/shared/domain"
)

// SQLiteInstructorRepository implements domain.InstructorRepository on
// SQLite. Working weekdays are stored as a comma-separated list.
type SQLiteInstructorRepository struct {
	dbConn *sql.DB
}

// NewSQLiteInstructorRepository creates a new SQLite instructor repository.
func NewSQLiteInstructorRepository(dbConn *sql.DB) *SQLiteInstructorRepository {
	return &SQLiteInstructorRepository{dbConn: dbConn}
}

// Save upserts an instructor.
func (r *SQLiteInstructorRepository) Save(ctx context.Context, instructor *domain.Instructor) error {
	query := `
		INSERT INTO instructors (
			id, display_name, calendar_id, strategy, weekdays, start_minute,
			end_minute, time_zone, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			display_name = excluded.display_name,
			calendar_id = excluded.calendar_id,
			strategy = excluded.strategy,
			weekdays = excluded.weekdays,
			start_minute = excluded.start_minute,
			end_minute = excluded.end_minute,
			time_zone = excluded.time_zone,
			updated_at = excluded.updated_at
	`

	hours := instructor.WorkingHours()
	_, err := r.dbConn.ExecContext(ctx, query,
		instructor.ID().String(),
		instructor.DisplayName(),
		instructor.CalendarID(),
		string(instructor.Strategy()),
		encodeWeekdays(hours.Weekdays),
		hours.StartMinute,
		hours.EndMinute,
		instructor.TimeZone(),
		instructor.CreatedAt().UTC().Format(time.RFC3339),
		instructor.UpdatedAt().UTC().Format(time.RFC3339),
	)
	return err
}

// FindByID retrieves an instructor by ID.
func (r *SQLiteInstructorRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Instructor, error) {
	query := `SELECT` + instructorColumns + `FROM instructors WHERE id = ?`

	instructor, err := r.scanRow(r.dbConn.QueryRowContext(ctx, query, id.String()))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrInstructorNotFound
		}
		return nil, err
	}
	return instructor, nil
}

// FindWithCalendar returns every instructor with a connected calendar.
func (r *SQLiteInstructorRepository) FindWithCalendar(ctx context.Context) ([]*domain.Instructor, error) {
	query := `SELECT` + instructorColumns + `FROM instructors WHERE calendar_id <> '' ORDER BY created_at ASC`

	rows, err := r.dbConn.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var instructors []*domain.Instructor
	for rows.Next() {
		instructor, err := r.scanRow(rows)
		if err != nil {
			return nil, err
		}
		instructors = append(instructors, instructor)
	}
	return instructors, rows.Err()
}

func (r *SQLiteInstructorRepository) scanRow(scanner rowScanner) (*domain.Instructor, error) {
	var (
		id, displayName, calendarID string
		strategy, weekdays          string
		startMinute, endMinute      int
		timeZone                    string
		createdAt, updatedAt        string
	)
	err := scanner.Scan(
		&id, &displayName, &calendarID, &strategy, &weekdays,
		&startMinute, &endMinute, &timeZone, &createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}

	instructorID, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("parse instructor id: %w", err)
	}
	created, err := parseStoredTime(createdAt)
	if err != nil {
		return nil, err
	}
	updated, err := parseStoredTime(updatedAt)
	if err != nil {
		return nil, err
	}
	days, err := decodeWeekdays(weekdays)
	if err != nil {
		return nil, err
	}

	return domain.RehydrateInstructor(
		sharedDomain.RehydrateBaseEntity(instructorID, created, updated),
		displayName,
		calendarID,
		domain.AvailabilityStrategy(strategy),
		domain.WorkingHours{
			Weekdays:    days,
			StartMinute: startMinute,
			EndMinute:   endMinute,
		},
		timeZone,
	), nil
}

func encodeWeekdays(weekdays []time.Weekday) string {
	parts := make([]string, len(weekdays))
	for i, wd := range weekdays {
		parts[i] = strconv.Itoa(int(wd))
	}
	return strings.Join(parts, ",")
}

func decodeWeekdays(raw string) ([]time.Weekday, error) {
	if raw == "" {
		return nil, nil
	}
	parts := strings.Split(raw, ",")
	weekdays := make([]time.Weekday, 0, len(parts))
	for _, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return nil, fmt.Errorf("parse stored weekdays %q: %w", raw, err)
		}
		weekdays = append(weekdays, time.Weekday(n))
	}
	return weekdays, nil
}
