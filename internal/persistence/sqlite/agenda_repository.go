package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/example/agenda-booking/internal/persistence"
)

// AgendaRepository implements persistence.AgendaRepository using SQLite.
// Weekly hours and offered services are stored as JSON columns.
type AgendaRepository struct {
	pool   *ConnectionPool
	helper *QueryHelper
	mapper *ErrorMapper
}

// NewAgendaRepository creates a new SQLite agenda repository.
func NewAgendaRepository(pool *ConnectionPool) *AgendaRepository {
	return &AgendaRepository{pool: pool, helper: NewQueryHelper(pool), mapper: NewErrorMapper()}
}

const agendaColumns = `id, name, slug, password_hash, status, valid_from, valid_until,
	attendance_from, attendance_until, weekly_hours, services, max_per_slot, address,
	created_at, updated_at`

// CreateAgenda inserts a new agenda.
func (r *AgendaRepository) CreateAgenda(ctx context.Context, agenda persistence.Agenda) error {
	if agenda.ID == "" || strings.TrimSpace(agenda.Slug) == "" {
		return persistence.ErrConstraintViolation
	}

	hours, services, err := encodeAgendaJSON(agenda)
	if err != nil {
		return err
	}

	query := `INSERT INTO agendas (` + agendaColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err = r.helper.Exec(ctx, query,
		agenda.ID,
		agenda.Name,
		strings.ToLower(agenda.Slug),
		agenda.PasswordHash,
		agenda.Status,
		agenda.ValidFrom,
		agenda.ValidUntil,
		agenda.AttendanceFrom,
		agenda.AttendanceUntil,
		hours,
		services,
		agenda.MaxPerSlot,
		agenda.Address,
		formatTime(agenda.CreatedAt),
		formatTime(agenda.UpdatedAt),
	)
	if err != nil {
		return r.mapper.MapError(err)
	}
	return nil
}

// UpdateAgenda replaces the mutable fields of an existing agenda.
func (r *AgendaRepository) UpdateAgenda(ctx context.Context, agenda persistence.Agenda) error {
	if agenda.ID == "" {
		return persistence.ErrNotFound
	}

	hours, services, err := encodeAgendaJSON(agenda)
	if err != nil {
		return err
	}

	query := `
		UPDATE agendas
		SET name = ?, slug = ?, password_hash = ?, status = ?, valid_from = ?, valid_until = ?,
			attendance_from = ?, attendance_until = ?, weekly_hours = ?, services = ?,
			max_per_slot = ?, address = ?, updated_at = ?
		WHERE id = ?
	`
	result, err := r.helper.Exec(ctx, query,
		agenda.Name,
		strings.ToLower(agenda.Slug),
		agenda.PasswordHash,
		agenda.Status,
		agenda.ValidFrom,
		agenda.ValidUntil,
		agenda.AttendanceFrom,
		agenda.AttendanceUntil,
		hours,
		services,
		agenda.MaxPerSlot,
		agenda.Address,
		formatTime(agenda.UpdatedAt),
		agenda.ID,
	)
	if err != nil {
		return r.mapper.MapError(err)
	}
	return requireAffected(result)
}

// GetAgenda retrieves an agenda by ID.
func (r *AgendaRepository) GetAgenda(ctx context.Context, id string) (persistence.Agenda, error) {
	if id == "" {
		return persistence.Agenda{}, persistence.ErrNotFound
	}
	row := r.helper.QueryRow(ctx, `SELECT `+agendaColumns+` FROM agendas WHERE id = ?`, id)
	return r.scanAgenda(row)
}

// GetAgendaBySlug retrieves an agenda by slug, ignoring case.
func (r *AgendaRepository) GetAgendaBySlug(ctx context.Context, slug string) (persistence.Agenda, error) {
	normalized := strings.ToLower(strings.TrimSpace(slug))
	if normalized == "" {
		return persistence.Agenda{}, persistence.ErrNotFound
	}
	row := r.helper.QueryRow(ctx, `SELECT `+agendaColumns+` FROM agendas WHERE slug = ?`, normalized)
	return r.scanAgenda(row)
}

// ListAgendas returns every agenda ordered by name.
func (r *AgendaRepository) ListAgendas(ctx context.Context) ([]persistence.Agenda, error) {
	rows, err := r.helper.Query(ctx, `SELECT `+agendaColumns+` FROM agendas ORDER BY name COLLATE NOCASE ASC, id ASC`)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	var agendas []persistence.Agenda
	for rows.Next() {
		agenda, err := r.scanAgenda(rows)
		if err != nil {
			return nil, err
		}
		agendas = append(agendas, agenda)
	}
	if err := rows.Err(); err != nil {
		return nil, r.mapper.MapError(err)
	}
	return agendas, nil
}

// DeleteAgenda removes an agenda. Its appointments are removed by the
// ON DELETE CASCADE constraint.
func (r *AgendaRepository) DeleteAgenda(ctx context.Context, id string) error {
	if id == "" {
		return persistence.ErrNotFound
	}
	result, err := r.helper.Exec(ctx, `DELETE FROM agendas WHERE id = ?`, id)
	if err != nil {
		return r.mapper.MapError(err)
	}
	return requireAffected(result)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (r *AgendaRepository) scanAgenda(row rowScanner) (persistence.Agenda, error) {
	var (
		agenda                   persistence.Agenda
		hoursJSON, servicesJSON  string
		createdAtStr, updatedStr string
	)
	err := row.Scan(
		&agenda.ID,
		&agenda.Name,
		&agenda.Slug,
		&agenda.PasswordHash,
		&agenda.Status,
		&agenda.ValidFrom,
		&agenda.ValidUntil,
		&agenda.AttendanceFrom,
		&agenda.AttendanceUntil,
		&hoursJSON,
		&servicesJSON,
		&agenda.MaxPerSlot,
		&agenda.Address,
		&createdAtStr,
		&updatedStr,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return persistence.Agenda{}, persistence.ErrNotFound
		}
		return persistence.Agenda{}, r.mapper.MapError(err)
	}

	if err := json.Unmarshal([]byte(hoursJSON), &agenda.WeeklyHours); err != nil {
		return persistence.Agenda{}, fmt.Errorf("failed to decode weekly_hours: %w", err)
	}
	if err := json.Unmarshal([]byte(servicesJSON), &agenda.Services); err != nil {
		return persistence.Agenda{}, fmt.Errorf("failed to decode services: %w", err)
	}
	if agenda.CreatedAt, err = parseTime("created_at", createdAtStr); err != nil {
		return persistence.Agenda{}, err
	}
	if agenda.UpdatedAt, err = parseTime("updated_at", updatedStr); err != nil {
		return persistence.Agenda{}, err
	}
	return agenda, nil
}

func encodeAgendaJSON(agenda persistence.Agenda) (string, string, error) {
	hours := agenda.WeeklyHours
	if hours == nil {
		hours = map[string]persistence.WeekdayHours{}
	}
	services := agenda.Services
	if services == nil {
		services = []string{}
	}

	hoursJSON, err := json.Marshal(hours)
	if err != nil {
		return "", "", fmt.Errorf("failed to encode weekly_hours: %w", err)
	}
	servicesJSON, err := json.Marshal(services)
	if err != nil {
		return "", "", fmt.Errorf("failed to encode services: %w", err)
	}
	return string(hoursJSON), string(servicesJSON), nil
}

func requireAffected(result sql.Result) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return persistence.ErrNotFound
	}
	return nil
}
