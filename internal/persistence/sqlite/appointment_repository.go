package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/example/agenda-booking/internal/persistence"
)

// AppointmentRepository implements persistence.AppointmentRepository using SQLite.
type AppointmentRepository struct {
	pool   *ConnectionPool
	helper *QueryHelper
	mapper *ErrorMapper
	retry  *RetryHelper
}

// NewAppointmentRepository creates a new SQLite appointment repository.
func NewAppointmentRepository(pool *ConnectionPool) *AppointmentRepository {
	return &AppointmentRepository{
		pool:   pool,
		helper: NewQueryHelper(pool),
		mapper: NewErrorMapper(),
		retry:  NewRetryHelper(DefaultRetryConfig()),
	}
}

const appointmentColumns = `code, agenda_id, date, time, service, name, phone, address, created_at`

// The count and the insert run as one statement inside a write transaction,
// so concurrent bookings for the same slot serialize on the database lock.
const conditionalInsertAppointment = `
	INSERT INTO appointments (` + appointmentColumns + `)
	SELECT ?, ?, ?, ?, ?, ?, ?, ?, ?
	WHERE (
		SELECT COUNT(*) FROM appointments
		WHERE agenda_id = ? AND date = ? AND time = ?
	) < ?
`

// InsertAppointmentIfAvailable stores the appointment unless the slot already
// holds maxPerSlot appointments, in which case ErrCapacityReached is returned.
func (r *AppointmentRepository) InsertAppointmentIfAvailable(ctx context.Context, appointment persistence.Appointment, maxPerSlot int) error {
	if appointment.Code == "" || appointment.AgendaID == "" {
		return persistence.ErrConstraintViolation
	}
	if maxPerSlot <= 0 {
		maxPerSlot = 1
	}

	return r.retry.WithRetry(ctx, func() error {
		return r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
			result, err := r.helper.ExecTx(ctx, tx, conditionalInsertAppointment,
				appointment.Code,
				appointment.AgendaID,
				appointment.Date,
				appointment.Time,
				appointment.Service,
				appointment.Name,
				appointment.Phone,
				appointment.Address,
				formatTime(appointment.CreatedAt),
				appointment.AgendaID,
				appointment.Date,
				appointment.Time,
				maxPerSlot,
			)
			if err != nil {
				return r.mapper.MapError(err)
			}
			affected, err := result.RowsAffected()
			if err != nil {
				return err
			}
			if affected == 0 {
				return persistence.ErrCapacityReached
			}
			return nil
		})
	})
}

const conditionalUpdateAppointment = `
	UPDATE appointments
	SET date = ?, time = ?, service = ?, name = ?, phone = ?
	WHERE code = ? AND (
		SELECT COUNT(*) FROM appointments
		WHERE agenda_id = ? AND date = ? AND time = ? AND code <> ?
	) < ?
`

// UpdateAppointmentIfAvailable moves or edits the appointment with the given
// code. It returns ErrNotFound for unknown codes and ErrCapacityReached when
// the target slot is full without this appointment.
func (r *AppointmentRepository) UpdateAppointmentIfAvailable(ctx context.Context, appointment persistence.Appointment, maxPerSlot int) error {
	code := strings.ToUpper(strings.TrimSpace(appointment.Code))
	if code == "" {
		return persistence.ErrNotFound
	}
	if maxPerSlot <= 0 {
		maxPerSlot = 1
	}

	return r.retry.WithRetry(ctx, func() error {
		return r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
			var agendaID string
			err := tx.QueryRowContext(ctx, `SELECT agenda_id FROM appointments WHERE code = ?`, code).Scan(&agendaID)
			if err != nil {
				return r.mapper.MapError(err)
			}
			result, err := r.helper.ExecTx(ctx, tx, conditionalUpdateAppointment,
				appointment.Date,
				appointment.Time,
				appointment.Service,
				appointment.Name,
				appointment.Phone,
				code,
				agendaID,
				appointment.Date,
				appointment.Time,
				code,
				maxPerSlot,
			)
			if err != nil {
				return r.mapper.MapError(err)
			}
			affected, err := result.RowsAffected()
			if err != nil {
				return err
			}
			if affected == 0 {
				return persistence.ErrCapacityReached
			}
			return nil
		})
	})
}

// GetAppointment retrieves an appointment by code, ignoring case.
func (r *AppointmentRepository) GetAppointment(ctx context.Context, code string) (persistence.Appointment, error) {
	normalized := strings.ToUpper(strings.TrimSpace(code))
	if normalized == "" {
		return persistence.Appointment{}, persistence.ErrNotFound
	}
	row := r.helper.QueryRow(ctx, `SELECT `+appointmentColumns+` FROM appointments WHERE code = ?`, normalized)
	appointment, err := scanAppointment(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return persistence.Appointment{}, persistence.ErrNotFound
		}
		return persistence.Appointment{}, r.mapper.MapError(err)
	}
	return appointment, nil
}

// ListAppointments returns the appointments matching the filter ordered by
// date, time and creation.
func (r *AppointmentRepository) ListAppointments(ctx context.Context, filter persistence.AppointmentFilter) ([]persistence.Appointment, error) {
	var (
		clauses []string
		args    []any
	)
	if len(filter.AgendaIDs) > 0 {
		placeholders := make([]string, len(filter.AgendaIDs))
		for i, id := range filter.AgendaIDs {
			placeholders[i] = "?"
			args = append(args, id)
		}
		clauses = append(clauses, "agenda_id IN ("+strings.Join(placeholders, ", ")+")")
	}
	if filter.Date != "" {
		clauses = append(clauses, "date = ?")
		args = append(args, filter.Date)
	}
	if filter.From != "" {
		clauses = append(clauses, "date >= ?")
		args = append(args, filter.From)
	}
	if filter.To != "" {
		clauses = append(clauses, "date <= ?")
		args = append(args, filter.To)
	}

	query := `SELECT ` + appointmentColumns + ` FROM appointments`
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += " ORDER BY date ASC, time ASC, created_at ASC, code ASC"

	rows, err := r.helper.Query(ctx, query, args...)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	var appointments []persistence.Appointment
	for rows.Next() {
		appointment, err := scanAppointment(rows)
		if err != nil {
			return nil, r.mapper.MapError(err)
		}
		appointments = append(appointments, appointment)
	}
	if err := rows.Err(); err != nil {
		return nil, r.mapper.MapError(err)
	}
	return appointments, nil
}

// DeleteAppointment removes an appointment by code, ignoring case.
func (r *AppointmentRepository) DeleteAppointment(ctx context.Context, code string) error {
	normalized := strings.ToUpper(strings.TrimSpace(code))
	if normalized == "" {
		return persistence.ErrNotFound
	}
	result, err := r.helper.Exec(ctx, `DELETE FROM appointments WHERE code = ?`, normalized)
	if err != nil {
		return r.mapper.MapError(err)
	}
	return requireAffected(result)
}

func scanAppointment(row rowScanner) (persistence.Appointment, error) {
	var (
		appointment  persistence.Appointment
		createdAtStr string
	)
	err := row.Scan(
		&appointment.Code,
		&appointment.AgendaID,
		&appointment.Date,
		&appointment.Time,
		&appointment.Service,
		&appointment.Name,
		&appointment.Phone,
		&appointment.Address,
		&createdAtStr,
	)
	if err != nil {
		return persistence.Appointment{}, err
	}
	if appointment.CreatedAt, err = parseTime("created_at", createdAtStr); err != nil {
		return persistence.Appointment{}, err
	}
	return appointment, nil
}
