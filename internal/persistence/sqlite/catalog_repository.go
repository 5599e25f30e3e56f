package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/example/agenda-booking/internal/persistence"
)

// ServiceRepository implements persistence.ServiceRepository using SQLite.
type ServiceRepository struct {
	pool   *ConnectionPool
	helper *QueryHelper
	mapper *ErrorMapper
}

// NewServiceRepository creates a new SQLite service catalog repository.
func NewServiceRepository(pool *ConnectionPool) *ServiceRepository {
	return &ServiceRepository{pool: pool, helper: NewQueryHelper(pool), mapper: NewErrorMapper()}
}

// CreateService inserts a catalog entry. Names are unique ignoring case.
func (r *ServiceRepository) CreateService(ctx context.Context, service persistence.Service) error {
	if strings.TrimSpace(service.Name) == "" || service.DurationMinutes <= 0 {
		return persistence.ErrConstraintViolation
	}
	_, err := r.helper.Exec(ctx,
		`INSERT INTO services (name, duration_minutes, created_at, updated_at) VALUES (?, ?, ?, ?)`,
		service.Name, service.DurationMinutes, formatTime(service.CreatedAt), formatTime(service.UpdatedAt),
	)
	return r.mapper.MapError(err)
}

// GetService retrieves a catalog entry by name, ignoring case.
func (r *ServiceRepository) GetService(ctx context.Context, name string) (persistence.Service, error) {
	row := r.helper.QueryRow(ctx,
		`SELECT name, duration_minutes, created_at, updated_at FROM services WHERE name = ?`, name)
	service, err := scanService(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return persistence.Service{}, persistence.ErrNotFound
		}
		return persistence.Service{}, r.mapper.MapError(err)
	}
	return service, nil
}

// ListServices returns the catalog ordered by name.
func (r *ServiceRepository) ListServices(ctx context.Context) ([]persistence.Service, error) {
	rows, err := r.helper.Query(ctx,
		`SELECT name, duration_minutes, created_at, updated_at FROM services ORDER BY name COLLATE NOCASE ASC`)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	var services []persistence.Service
	for rows.Next() {
		service, err := scanService(rows)
		if err != nil {
			return nil, r.mapper.MapError(err)
		}
		services = append(services, service)
	}
	if err := rows.Err(); err != nil {
		return nil, r.mapper.MapError(err)
	}
	return services, nil
}

// DeleteService removes a catalog entry by name.
func (r *ServiceRepository) DeleteService(ctx context.Context, name string) error {
	result, err := r.helper.Exec(ctx, `DELETE FROM services WHERE name = ?`, name)
	if err != nil {
		return r.mapper.MapError(err)
	}
	return requireAffected(result)
}

// ReplaceServices swaps the whole catalog atomically.
func (r *ServiceRepository) ReplaceServices(ctx context.Context, services []persistence.Service) error {
	return r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		if _, err := r.helper.ExecTx(ctx, tx, `DELETE FROM services`); err != nil {
			return r.mapper.MapError(err)
		}
		for _, service := range services {
			if strings.TrimSpace(service.Name) == "" || service.DurationMinutes <= 0 {
				return persistence.ErrConstraintViolation
			}
			_, err := r.helper.ExecTx(ctx, tx,
				`INSERT INTO services (name, duration_minutes, created_at, updated_at) VALUES (?, ?, ?, ?)`,
				service.Name, service.DurationMinutes, formatTime(service.CreatedAt), formatTime(service.UpdatedAt),
			)
			if err != nil {
				return r.mapper.MapError(err)
			}
		}
		return nil
	})
}

func scanService(row rowScanner) (persistence.Service, error) {
	var (
		service                  persistence.Service
		createdAtStr, updatedStr string
	)
	if err := row.Scan(&service.Name, &service.DurationMinutes, &createdAtStr, &updatedStr); err != nil {
		return persistence.Service{}, err
	}
	var err error
	if service.CreatedAt, err = parseTime("created_at", createdAtStr); err != nil {
		return persistence.Service{}, err
	}
	if service.UpdatedAt, err = parseTime("updated_at", updatedStr); err != nil {
		return persistence.Service{}, err
	}
	return service, nil
}

// AddressRepository implements persistence.AddressRepository using SQLite.
type AddressRepository struct {
	helper *QueryHelper
	mapper *ErrorMapper
}

// NewAddressRepository creates a new SQLite address repository.
func NewAddressRepository(pool *ConnectionPool) *AddressRepository {
	return &AddressRepository{helper: NewQueryHelper(pool), mapper: NewErrorMapper()}
}

// CreateAddress inserts an address label. Labels are unique ignoring case.
func (r *AddressRepository) CreateAddress(ctx context.Context, address persistence.Address) error {
	if address.ID == "" || strings.TrimSpace(address.Label) == "" {
		return persistence.ErrConstraintViolation
	}
	_, err := r.helper.Exec(ctx,
		`INSERT INTO addresses (id, label, created_at) VALUES (?, ?, ?)`,
		address.ID, address.Label, formatTime(address.CreatedAt),
	)
	return r.mapper.MapError(err)
}

// ListAddresses returns every address ordered by label.
func (r *AddressRepository) ListAddresses(ctx context.Context) ([]persistence.Address, error) {
	rows, err := r.helper.Query(ctx, `SELECT id, label, created_at FROM addresses ORDER BY label COLLATE NOCASE ASC, id ASC`)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	var addresses []persistence.Address
	for rows.Next() {
		var (
			address      persistence.Address
			createdAtStr string
		)
		if err := rows.Scan(&address.ID, &address.Label, &createdAtStr); err != nil {
			return nil, r.mapper.MapError(err)
		}
		if address.CreatedAt, err = parseTime("created_at", createdAtStr); err != nil {
			return nil, err
		}
		addresses = append(addresses, address)
	}
	if err := rows.Err(); err != nil {
		return nil, r.mapper.MapError(err)
	}
	return addresses, nil
}

// DeleteAddress removes an address by ID.
func (r *AddressRepository) DeleteAddress(ctx context.Context, id string) error {
	result, err := r.helper.Exec(ctx, `DELETE FROM addresses WHERE id = ?`, id)
	if err != nil {
		return r.mapper.MapError(err)
	}
	return requireAffected(result)
}
