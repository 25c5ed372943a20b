// Package persistence holds the database-backed repositories of the
// scheduling context.
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

var (
	ErrBookingNotFound    = errors.New("booking not found")
	ErrInstructorNotFound = errors.New("instructor not found")
)

// PostgresBookingRepository implements domain.BookingRepository using
// PostgreSQL.
type PostgresBookingRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresBookingRepository creates a new PostgreSQL booking repository.
func NewPostgresBookingRepository(pool *pgxpool.Pool) *PostgresBookingRepository {
	return &PostgresBookingRepository{pool: pool}
}

type bookingRow struct {
	ID                  uuid.UUID
	InstructorID        uuid.UUID
	StudentName         string
	StudentEmail        string
	StartTime           time.Time
	EndTime             time.Time
	Status              string
	Online              bool
	LengthMinutes       int
	ExternalEventID     string
	ReminderToken       string
	ReminderScheduledAt *time.Time
	ReminderSentAt      *time.Time
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

func (row bookingRow) toDomain() *domain.Booking {
	return domain.RehydrateBooking(
		sharedDomain.RehydrateBaseEntity(row.ID, row.CreatedAt, row.UpdatedAt),
		row.InstructorID,
		domain.StudentInfo{Name: row.StudentName, Email: row.StudentEmail},
		row.StartTime,
		row.EndTime,
		domain.BookingStatus(row.Status),
		row.Online,
		row.LengthMinutes,
		row.ExternalEventID,
		row.ReminderToken,
		row.ReminderScheduledAt,
		row.ReminderSentAt,
	)
}

const bookingColumns = `
	id, instructor_id, student_name, student_email, start_time, end_time,
	status, online, length_minutes, external_event_id, reminder_token,
	reminder_scheduled_at, reminder_sent_at, created_at, updated_at
`

// Save upserts a booking.
func (r *PostgresBookingRepository) Save(ctx context.Context, booking *domain.Booking) error {
	query := `
		INSERT INTO bookings (
			id, instructor_id, student_name, student_email, start_time, end_time,
			status, online, length_minutes, external_event_id, reminder_token,
			reminder_scheduled_at, reminder_sent_at, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		ON CONFLICT (id) DO UPDATE SET
			start_time = EXCLUDED.start_time,
			end_time = EXCLUDED.end_time,
			status = EXCLUDED.status,
			length_minutes = EXCLUDED.length_minutes,
			external_event_id = EXCLUDED.external_event_id,
			reminder_scheduled_at = EXCLUDED.reminder_scheduled_at,
			reminder_sent_at = EXCLUDED.reminder_sent_at,
			updated_at = EXCLUDED.updated_at
	`

	_, err := r.pool.Exec(ctx, query,
		booking.ID(),
		booking.InstructorID(),
		booking.Student().Name,
		booking.Student().Email,
		booking.Start(),
		booking.End(),
		string(booking.Status()),
		booking.IsOnline(),
		booking.LengthMinutes(),
		booking.ExternalEventID(),
		booking.ReminderToken(),
		booking.ReminderScheduledAt(),
		booking.ReminderSentAt(),
		booking.CreatedAt(),
		booking.UpdatedAt(),
	)
	return err
}

// FindByID retrieves a booking by its ID.
func (r *PostgresBookingRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Booking, error) {
	query := `SELECT` + bookingColumns + `FROM bookings WHERE id = $1`

	row, err := scanBooking(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrBookingNotFound
		}
		return nil, err
	}
	return row.toDomain(), nil
}

// FindScheduledInRange returns the scheduled bookings of an instructor whose
// span overlaps [from, to).
func (r *PostgresBookingRepository) FindScheduledInRange(ctx context.Context, instructorID uuid.UUID, from, to time.Time) ([]*domain.Booking, error) {
	query := `
		SELECT` + bookingColumns + `
		FROM bookings
		WHERE instructor_id = $1
		  AND status = $2
		  AND start_time < $3
		  AND end_time > $4
		ORDER BY start_time ASC
	`

	rows, err := r.pool.Query(ctx, query, instructorID, string(domain.BookingStatusScheduled), to, from)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var bookings []*domain.Booking
	for rows.Next() {
		row, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		bookings = append(bookings, row.toDomain())
	}
	return bookings, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBooking(scanner rowScanner) (bookingRow, error) {
	var row bookingRow
	err := scanner.Scan(
		&row.ID,
		&row.InstructorID,
		&row.StudentName,
		&row.StudentEmail,
		&row.StartTime,
		&row.EndTime,
		&row.Status,
		&row.Online,
		&row.LengthMinutes,
		&row.ExternalEventID,
		&row.ReminderToken,
		&row.ReminderScheduledAt,
		&row.ReminderSentAt,
		&row.CreatedAt,
		&row.UpdatedAt,
	)
	return row, err
}
