package persistence

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/lektora/lektora/internal/scheduling/domain"
	sharedDomain "github.com/lektora/lektora/internal/shared/domain"
)

// SQLiteBookingRepository implements domain.BookingRepository on SQLite for
// local and development setups. Timestamps are stored as RFC3339 strings.
type SQLiteBookingRepository struct {
	dbConn *sql.DB
}

// NewSQLiteBookingRepository creates a new SQLite booking repository.
func NewSQLiteBookingRepository(dbConn *sql.DB) *SQLiteBookingRepository {
	return &SQLiteBookingRepository{dbConn: dbConn}
}

// Save upserts a booking.
func (r *SQLiteBookingRepository) Save(ctx context.Context, booking *domain.Booking) error {
	query := `
		INSERT INTO bookings (
			id, instructor_id, student_name, student_email, start_time, end_time,
			status, online, length_minutes, external_event_id, reminder_token,
			reminder_scheduled_at, reminder_sent_at, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			start_time = excluded.start_time,
			end_time = excluded.end_time,
			status = excluded.status,
			length_minutes = excluded.length_minutes,
			external_event_id = excluded.external_event_id,
			reminder_scheduled_at = excluded.reminder_scheduled_at,
			reminder_sent_at = excluded.reminder_sent_at,
			updated_at = excluded.updated_at
	`

	_, err := r.dbConn.ExecContext(ctx, query,
		booking.ID().String(),
		booking.InstructorID().String(),
		booking.Student().Name,
		booking.Student().Email,
		booking.Start().UTC().Format(time.RFC3339),
		booking.End().UTC().Format(time.RFC3339),
		string(booking.Status()),
		boolToInt64(booking.IsOnline()),
		booking.LengthMinutes(),
		booking.ExternalEventID(),
		booking.ReminderToken(),
		timePtrToString(booking.ReminderScheduledAt()),
		timePtrToString(booking.ReminderSentAt()),
		booking.CreatedAt().UTC().Format(time.RFC3339),
		booking.UpdatedAt().UTC().Format(time.RFC3339),
	)
	return err
}

// FindByID retrieves a booking by its ID.
func (r *SQLiteBookingRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Booking, error) {
	query := `SELECT` + bookingColumns + `FROM bookings WHERE id = ?`

	booking, err := r.scanRow(r.dbConn.QueryRowContext(ctx, query, id.String()))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrBookingNotFound
		}
		return nil, err
	}
	return booking, nil
}

// FindScheduledInRange returns the scheduled bookings of an instructor whose
// span overlaps [from, to).
func (r *SQLiteBookingRepository) FindScheduledInRange(ctx context.Context, instructorID uuid.UUID, from, to time.Time) ([]*domain.Booking, error) {
	query := `
		SELECT` + bookingColumns + `
		FROM bookings
		WHERE instructor_id = ?
		  AND status = ?
		  AND start_time < ?
		  AND end_time > ?
		ORDER BY start_time ASC
	`

	rows, err := r.dbConn.QueryContext(ctx, query,
		instructorID.String(),
		string(domain.BookingStatusScheduled),
		to.UTC().Format(time.RFC3339),
		from.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var bookings []*domain.Booking
	for rows.Next() {
		booking, err := r.scanRow(rows)
		if err != nil {
			return nil, err
		}
		bookings = append(bookings, booking)
	}
	return bookings, rows.Err()
}

func (r *SQLiteBookingRepository) scanRow(scanner rowScanner) (*domain.Booking, error) {
	var (
		id, instructorID          string
		studentName, studentEmail string
		startTime, endTime        string
		status                    string
		online                    int64
		lengthMinutes             int
		externalEventID           string
		reminderToken             string
		reminderScheduledAt       sql.NullString
		reminderSentAt            sql.NullString
		createdAt, updatedAt      string
	)
	err := scanner.Scan(
		&id, &instructorID, &studentName, &studentEmail, &startTime, &endTime,
		&status, &online, &lengthMinutes, &externalEventID, &reminderToken,
		&reminderScheduledAt, &reminderSentAt, &createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}

	bookingID, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("parse booking id: %w", err)
	}
	instructorUUID, err := uuid.Parse(instructorID)
	if err != nil {
		return nil, fmt.Errorf("parse instructor id: %w", err)
	}

	start, err := parseStoredTime(startTime)
	if err != nil {
		return nil, err
	}
	end, err := parseStoredTime(endTime)
	if err != nil {
		return nil, err
	}
	created, err := parseStoredTime(createdAt)
	if err != nil {
		return nil, err
	}
	updated, err := parseStoredTime(updatedAt)
	if err != nil {
		return nil, err
	}
	scheduledAt, err := parseStoredTimePtr(reminderScheduledAt)
	if err != nil {
		return nil, err
	}
	sentAt, err := parseStoredTimePtr(reminderSentAt)
	if err != nil {
		return nil, err
	}

	return domain.RehydrateBooking(
		sharedDomain.RehydrateBaseEntity(bookingID, created, updated),
		instructorUUID,
		domain.StudentInfo{Name: studentName, Email: studentEmail},
		start,
		end,
		domain.BookingStatus(status),
		online != 0,
		lengthMinutes,
		externalEventID,
		reminderToken,
		scheduledAt,
		sentAt,
	), nil
}

func boolToInt64(b bool) int64 {
	if b {
		return 1
	}
	return 0
}

func timePtrToString(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: t.UTC().Format(time.RFC3339), Valid: true}
}

func parseStoredTime(raw string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse stored timestamp %q: %w", raw, err)
	}
	return t, nil
}

func parseStoredTimePtr(raw sql.NullString) (*time.Time, error) {
	if !raw.Valid {
		return nil, nil
	}
	t, err := parseStoredTime(raw.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
