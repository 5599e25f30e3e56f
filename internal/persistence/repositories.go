package persistence

import (
	"context"
	"time"
)

// AgendaRepository exposes CRUD operations for agendas.
type AgendaRepository interface {
	CreateAgenda(ctx context.Context, agenda Agenda) error
	UpdateAgenda(ctx context.Context, agenda Agenda) error
	GetAgenda(ctx context.Context, id string) (Agenda, error)
	GetAgendaBySlug(ctx context.Context, slug string) (Agenda, error)
	ListAgendas(ctx context.Context) ([]Agenda, error)
	DeleteAgenda(ctx context.Context, id string) error
}

// ServiceRepository exposes the shared service catalog.
type ServiceRepository interface {
	CreateService(ctx context.Context, service Service) error
	GetService(ctx context.Context, name string) (Service, error)
	ListServices(ctx context.Context) ([]Service, error)
	DeleteService(ctx context.Context, name string) error
	ReplaceServices(ctx context.Context, services []Service) error
}

// AddressRepository exposes the reusable address list.
type AddressRepository interface {
	CreateAddress(ctx context.Context, address Address) error
	ListAddresses(ctx context.Context) ([]Address, error)
	DeleteAddress(ctx context.Context, id string) error
}

// AppointmentFilter narrows appointment queries. Empty fields match everything;
// date bounds are inclusive "YYYY-MM-DD" values.
type AppointmentFilter struct {
	AgendaIDs []string
	Date      string
	From      string
	To        string
}

// AppointmentRepository stores public bookings.
type AppointmentRepository interface {
	// InsertAppointmentIfAvailable stores the appointment only while fewer than
	// maxPerSlot appointments share its agenda, date and time. It returns
	// ErrCapacityReached otherwise.
	InsertAppointmentIfAvailable(ctx context.Context, appointment Appointment, maxPerSlot int) error
	// UpdateAppointmentIfAvailable rewrites the booking stored under
	// appointment.Code. The appointment itself is left out of the capacity
	// count, so keeping its current slot always fits.
	UpdateAppointmentIfAvailable(ctx context.Context, appointment Appointment, maxPerSlot int) error
	GetAppointment(ctx context.Context, code string) (Appointment, error)
	ListAppointments(ctx context.Context, filter AppointmentFilter) ([]Appointment, error)
	DeleteAppointment(ctx context.Context, code string) error
}

// UserRepository exposes CRUD operations for users.
type UserRepository interface {
	CreateUser(ctx context.Context, user User) error
	UpdateUser(ctx context.Context, user User) error
	GetUser(ctx context.Context, id string) (User, error)
	GetUserByLogin(ctx context.Context, login string) (User, error)
	ListUsers(ctx context.Context) ([]User, error)
	DeleteUser(ctx context.Context, id string) error
}

// SessionRepository stores authentication session state.
type SessionRepository interface {
	CreateSession(ctx context.Context, session Session) (Session, error)
	GetSession(ctx context.Context, token string) (Session, error)
	UpdateSession(ctx context.Context, session Session) (Session, error)
	RevokeSession(ctx context.Context, token string, revokedAt time.Time) (Session, error)
	DeleteExpiredSessions(ctx context.Context, reference time.Time) error
}
