package http

import (
	"context"
	"io"
	"log/slog"

	"github.com/example/agenda-booking/internal/application"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeSessionValidator struct {
	principal application.Principal
	err       error
	tokens    []string
}

func (f *fakeSessionValidator) ValidateSession(_ context.Context, token string) (application.Principal, error) {
	f.tokens = append(f.tokens, token)
	return f.principal, f.err
}

type fakeAuthService struct {
	result  application.AuthenticateResult
	err     error
	params  application.AuthenticateParams
	revoked []string

	refreshed application.RefreshSessionResult
	refresh   application.RefreshSessionParams
}

func (f *fakeAuthService) Authenticate(_ context.Context, params application.AuthenticateParams) (application.AuthenticateResult, error) {
	f.params = params
	return f.result, f.err
}

func (f *fakeAuthService) RefreshSession(_ context.Context, params application.RefreshSessionParams) (application.RefreshSessionResult, error) {
	f.refresh = params
	return f.refreshed, f.err
}

func (f *fakeAuthService) RevokeSession(_ context.Context, token string) error {
	f.revoked = append(f.revoked, token)
	return nil
}

type fakeBookingService struct {
	agenda      application.PublicAgenda
	days        []application.BookableDay
	slots       []string
	appointment application.Appointment
	err         error

	slug      string
	date      string
	service   string
	input     application.BookingInput
	updated   string
	cancelled []string
}

func (f *fakeBookingService) OpenAgenda(_ context.Context, slug string) (application.PublicAgenda, error) {
	f.slug = slug
	return f.agenda, f.err
}

func (f *fakeBookingService) ListDays(_ context.Context, slug string) ([]application.BookableDay, error) {
	f.slug = slug
	return f.days, f.err
}

func (f *fakeBookingService) ListSlots(_ context.Context, slug, date, service string) ([]string, error) {
	f.slug, f.date, f.service = slug, date, service
	return f.slots, f.err
}

func (f *fakeBookingService) Book(_ context.Context, slug string, input application.BookingInput) (application.Appointment, error) {
	f.slug, f.input = slug, input
	return f.appointment, f.err
}

func (f *fakeBookingService) UpdateAppointment(_ context.Context, code string, input application.BookingInput) (application.Appointment, error) {
	f.updated, f.input = code, input
	return f.appointment, f.err
}

func (f *fakeBookingService) GetAppointment(_ context.Context, code string) (application.Appointment, error) {
	f.slug = code
	return f.appointment, f.err
}

func (f *fakeBookingService) CancelAppointment(_ context.Context, code string) error {
	f.cancelled = append(f.cancelled, code)
	return f.err
}

type fakeAgendaService struct {
	agendas []application.Agenda
	err     error

	listParams   application.ListAgendasParams
	createParams application.CreateAgendaParams
	updateParams application.UpdateAgendaParams
	deletedID    string
}

func (f *fakeAgendaService) CreateAgenda(_ context.Context, params application.CreateAgendaParams) (application.Agenda, error) {
	f.createParams = params
	if f.err != nil {
		return application.Agenda{}, f.err
	}
	return application.Agenda{ID: "ag-new", Name: params.Input.Name, Slug: params.Input.Slug, Status: application.StatusActive, MaxPerSlot: 1}, nil
}

func (f *fakeAgendaService) UpdateAgenda(_ context.Context, params application.UpdateAgendaParams) (application.Agenda, error) {
	f.updateParams = params
	if f.err != nil {
		return application.Agenda{}, f.err
	}
	return application.Agenda{ID: params.AgendaID, Name: params.Input.Name}, nil
}

func (f *fakeAgendaService) DeleteAgenda(_ context.Context, _ application.Principal, agendaID string) error {
	f.deletedID = agendaID
	return f.err
}

func (f *fakeAgendaService) GetAgenda(_ context.Context, _ application.Principal, agendaID string) (application.Agenda, error) {
	for _, agenda := range f.agendas {
		if agenda.ID == agendaID {
			return agenda, nil
		}
	}
	return application.Agenda{}, application.ErrNotFound
}

func (f *fakeAgendaService) ListAgendas(_ context.Context, params application.ListAgendasParams) ([]application.Agenda, error) {
	f.listParams = params
	return f.agendas, f.err
}

type fakeCatalogService struct {
	services       []application.Service
	err            error
	deletedService string
	replaced       []application.ServiceInput
}

func (f *fakeCatalogService) ListServices(context.Context) ([]application.Service, error) {
	return f.services, f.err
}

func (f *fakeCatalogService) CreateService(_ context.Context, _ application.Principal, input application.ServiceInput) (application.Service, error) {
	if f.err != nil {
		return application.Service{}, f.err
	}
	return application.Service{Name: input.Name, DurationMinutes: input.DurationMinutes}, nil
}

func (f *fakeCatalogService) DeleteService(_ context.Context, _ application.Principal, name string) error {
	f.deletedService = name
	return f.err
}

func (f *fakeCatalogService) ReplaceServices(_ context.Context, _ application.Principal, inputs []application.ServiceInput) ([]application.Service, error) {
	f.replaced = inputs
	if f.err != nil {
		return nil, f.err
	}
	out := make([]application.Service, 0, len(inputs))
	for _, input := range inputs {
		out = append(out, application.Service{Name: input.Name, DurationMinutes: input.DurationMinutes})
	}
	return out, nil
}

func (f *fakeCatalogService) ListAddresses(context.Context) ([]application.Address, error) {
	return []application.Address{{ID: "addr-1", Label: "Rua A"}}, f.err
}

func (f *fakeCatalogService) CreateAddress(_ context.Context, _ application.Principal, label string) (application.Address, error) {
	return application.Address{ID: "addr-2", Label: label}, f.err
}

func (f *fakeCatalogService) DeleteAddress(context.Context, application.Principal, string) error {
	return f.err
}

type fakeUserService struct {
	err error
}

func (f *fakeUserService) CreateUser(_ context.Context, params application.CreateUserParams) (application.User, error) {
	if f.err != nil {
		return application.User{}, f.err
	}
	return application.User{ID: "user-1", Name: params.Input.Name, Login: params.Input.Login, Role: application.RoleViewer, Status: application.StatusActive}, nil
}

func (f *fakeUserService) UpdateUser(_ context.Context, params application.UpdateUserParams) (application.User, error) {
	return application.User{ID: params.UserID}, f.err
}

func (f *fakeUserService) DeleteUser(context.Context, application.Principal, string) error {
	return f.err
}

func (f *fakeUserService) ListUsers(_ context.Context, principal application.Principal) ([]application.User, error) {
	if !principal.IsAdmin {
		return nil, application.ErrUnauthorized
	}
	return nil, f.err
}

type fakeReportService struct {
	report application.Report
	params application.ReportParams
	err    error
}

func (f *fakeReportService) BuildReport(_ context.Context, params application.ReportParams) (application.Report, error) {
	f.params = params
	return f.report, f.err
}

type fakeDatasetService struct {
	dataset application.Dataset
}

func (f *fakeDatasetService) Snapshot(_ context.Context, principal application.Principal) (application.Dataset, error) {
	if !principal.IsAdmin {
		return application.Dataset{}, application.ErrUnauthorized
	}
	return f.dataset, nil
}
