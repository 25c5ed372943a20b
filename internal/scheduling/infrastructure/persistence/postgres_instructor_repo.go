package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lektora/lektora/internal/scheduling/domain"
	sharedDomain "github.com/lektora/lektora/internal/shared/domain"
)

// PostgresInstructorRepository implements domain.InstructorRepository using
// PostgreSQL. Working weekdays are stored as a smallint array.
type PostgresInstructorRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresInstructorRepository creates a new PostgreSQL instructor
// repository.
func NewPostgresInstructorRepository(pool *pgxpool.Pool) *PostgresInstructorRepository {
	return &PostgresInstructorRepository{pool: pool}
}

type instructorRow struct {
	ID          uuid.UUID
	DisplayName string
	CalendarID  string
	Strategy    string
	Weekdays    []int16
	StartMinute int
	EndMinute   int
	TimeZone    string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (row instructorRow) toDomain() *domain.Instructor {
	weekdays := make([]time.Weekday, len(row.Weekdays))
	for i, wd := range row.Weekdays {
		weekdays[i] = time.Weekday(wd)
	}
	return domain.RehydrateInstructor(
		sharedDomain.RehydrateBaseEntity(row.ID, row.CreatedAt, row.UpdatedAt),
		row.DisplayName,
		row.CalendarID,
		domain.AvailabilityStrategy(row.Strategy),
		domain.WorkingHours{
			Weekdays:    weekdays,
			StartMinute: row.StartMinute,
			EndMinute:   row.EndMinute,
		},
		row.TimeZone,
	)
}

const instructorColumns = `
	id, display_name, calendar_id, strategy, weekdays, start_minute,
	end_minute, time_zone, created_at, updated_at
`

// Save upserts an instructor.
func (r *PostgresInstructorRepository) Save(ctx context.Context, instructor *domain.Instructor) error {
	hours := instructor.WorkingHours()
	weekdays := make([]int16, len(hours.Weekdays))
	for i, wd := range hours.Weekdays {
		weekdays[i] = int16(wd)
	}

	query := `
		INSERT INTO instructors (
			id, display_name, calendar_id, strategy, weekdays, start_minute,
			end_minute, time_zone, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO UPDATE SET
			display_name = EXCLUDED.display_name,
			calendar_id = EXCLUDED.calendar_id,
			strategy = EXCLUDED.strategy,
			weekdays = EXCLUDED.weekdays,
			start_minute = EXCLUDED.start_minute,
			end_minute = EXCLUDED.end_minute,
			time_zone = EXCLUDED.time_zone,
			updated_at = EXCLUDED.updated_at
	`

	_, err := r.pool.Exec(ctx, query,
		instructor.ID(),
		instructor.DisplayName(),
		instructor.CalendarID(),
		string(instructor.Strategy()),
		weekdays,
		hours.StartMinute,
		hours.EndMinute,
		instructor.TimeZone(),
		instructor.CreatedAt(),
		instructor.UpdatedAt(),
	)
	return err
}

// FindByID retrieves an instructor by ID.
func (r *PostgresInstructorRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Instructor, error) {
	query := `SELECT` + instructorColumns + `FROM instructors WHERE id = $1`

	row, err := scanInstructor(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrInstructorNotFound
		}
		return nil, err
	}
	return row.toDomain(), nil
}

// FindWithCalendar returns every instructor with a connected calendar.
func (r *PostgresInstructorRepository) FindWithCalendar(ctx context.Context) ([]*domain.Instructor, error) {
	query := `SELECT` + instructorColumns + `FROM instructors WHERE calendar_id <> '' ORDER BY created_at ASC`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var instructors []*domain.Instructor
	for rows.Next() {
		row, err := scanInstructor(rows)
		if err != nil {
			return nil, err
		}
		instructors = append(instructors, row.toDomain())
	}
	return instructors, rows.Err()
}

func scanInstructor(scanner rowScanner) (instructorRow, error) {
	var row instructorRow
	err := scanner.Scan(
		&row.ID,
		&row.DisplayName,
		&row.CalendarID,
		&row.Strategy,
		&row.Weekdays,
		&row.StartMinute,
		&row.EndMinute,
		&row.TimeZone,
		&row.CreatedAt,
		&row.UpdatedAt,
	)
	return row, err
}
