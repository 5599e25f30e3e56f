package application

import (
	"context"
	"fmt"
	"log/slog"
)

// DatasetService assembles the administrative snapshot of every aggregate.
type DatasetService struct {
	agendas      AgendaRepository
	services     ServiceCatalog
	addresses    AddressRepository
	appointments AppointmentRepository
	users        UserRepository
	logger       *slog.Logger
}

// NewDatasetService wires dependencies for the dataset service.
func NewDatasetService(agendas AgendaRepository, services ServiceCatalog, addresses AddressRepository, appointments AppointmentRepository, users UserRepository, logger *slog.Logger) *DatasetService {
	return &DatasetService{
		agendas:      agendas,
		services:     services,
		addresses:    addresses,
		appointments: appointments,
		users:        users,
		logger:       defaultLogger(logger),
	}
}

// Snapshot returns every stored record for administrators. User credentials
// are never included.
func (s *DatasetService) Snapshot(ctx context.Context, principal Principal) (dataset Dataset, err error) {
	if s == nil {
		return Dataset{}, fmt.Errorf("DatasetService is nil")
	}

	logger := serviceLogger(ctx, s.logger, "DatasetService", "Snapshot", "principal_id", principal.UserID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to build dataset", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "dataset built",
			"agenda_count", len(dataset.Agendas),
			"appointment_count", len(dataset.Appointments),
		)
	}()

	if !principal.IsAdmin {
		return Dataset{}, ErrUnauthorized
	}

	if s.agendas != nil {
		if dataset.Agendas, err = s.agendas.ListAgendas(ctx); err != nil {
			return Dataset{}, mapRepoError(err)
		}
	}
	if s.services != nil {
		if dataset.Services, err = s.services.ListServices(ctx); err != nil {
			return Dataset{}, mapRepoError(err)
		}
		SortServices(dataset.Services)
	}
	if s.addresses != nil {
		if dataset.Addresses, err = s.addresses.ListAddresses(ctx); err != nil {
			return Dataset{}, mapRepoError(err)
		}
	}
	if s.appointments != nil {
		if dataset.Appointments, err = s.appointments.ListAppointments(ctx, AppointmentQuery{}); err != nil {
			return Dataset{}, mapRepoError(err)
		}
	}
	if s.users != nil {
		if dataset.Users, err = s.users.ListUsers(ctx); err != nil {
			return Dataset{}, mapRepoError(err)
		}
	}

	names := make(map[string]string, len(dataset.Agendas))
	for _, agenda := range dataset.Agendas {
		names[agenda.ID] = agenda.Name
	}
	for i := range dataset.Appointments {
		dataset.Appointments[i].AgendaName = names[dataset.Appointments[i].AgendaID]
	}
	return dataset, nil
}
