package main

import (
	"context"
	"time"

	"github.com/example/agenda-booking/internal/application"
	"github.com/example/agenda-booking/internal/persistence"
)

type agendaRepositoryAdapter struct {
	repo persistence.AgendaRepository
}

func newAgendaRepositoryAdapter(repo persistence.AgendaRepository) *agendaRepositoryAdapter {
	return &agendaRepositoryAdapter{repo: repo}
}

func (a *agendaRepositoryAdapter) CreateAgenda(ctx context.Context, agenda application.Agenda) (application.Agenda, error) {
	if err := a.repo.CreateAgenda(ctx, toPersistenceAgenda(agenda)); err != nil {
		return application.Agenda{}, err
	}
	return a.GetAgenda(ctx, agenda.ID)
}

func (a *agendaRepositoryAdapter) UpdateAgenda(ctx context.Context, agenda application.Agenda) (application.Agenda, error) {
	if err := a.repo.UpdateAgenda(ctx, toPersistenceAgenda(agenda)); err != nil {
		return application.Agenda{}, err
	}
	return a.GetAgenda(ctx, agenda.ID)
}

func (a *agendaRepositoryAdapter) GetAgenda(ctx context.Context, id string) (application.Agenda, error) {
	stored, err := a.repo.GetAgenda(ctx, id)
	if err != nil {
		return application.Agenda{}, err
	}
	return toApplicationAgenda(stored), nil
}

func (a *agendaRepositoryAdapter) GetAgendaBySlug(ctx context.Context, slug string) (application.Agenda, error) {
	stored, err := a.repo.GetAgendaBySlug(ctx, slug)
	if err != nil {
		return application.Agenda{}, err
	}
	return toApplicationAgenda(stored), nil
}

func (a *agendaRepositoryAdapter) ListAgendas(ctx context.Context) ([]application.Agenda, error) {
	models, err := a.repo.ListAgendas(ctx)
	if err != nil {
		return nil, err
	}
	agendas := make([]application.Agenda, 0, len(models))
	for _, model := range models {
		agendas = append(agendas, toApplicationAgenda(model))
	}
	return agendas, nil
}

func (a *agendaRepositoryAdapter) DeleteAgenda(ctx context.Context, id string) error {
	return a.repo.DeleteAgenda(ctx, id)
}

type serviceCatalogAdapter struct {
	repo persistence.ServiceRepository
}

func newServiceCatalogAdapter(repo persistence.ServiceRepository) *serviceCatalogAdapter {
	return &serviceCatalogAdapter{repo: repo}
}

func (a *serviceCatalogAdapter) CreateService(ctx context.Context, service application.Service) (application.Service, error) {
	if err := a.repo.CreateService(ctx, toPersistenceService(service)); err != nil {
		return application.Service{}, err
	}
	return a.GetService(ctx, service.Name)
}

func (a *serviceCatalogAdapter) GetService(ctx context.Context, name string) (application.Service, error) {
	stored, err := a.repo.GetService(ctx, name)
	if err != nil {
		return application.Service{}, err
	}
	return toApplicationService(stored), nil
}

func (a *serviceCatalogAdapter) ListServices(ctx context.Context) ([]application.Service, error) {
	models, err := a.repo.ListServices(ctx)
	if err != nil {
		return nil, err
	}
	services := make([]application.Service, 0, len(models))
	for _, model := range models {
		services = append(services, toApplicationService(model))
	}
	return services, nil
}

func (a *serviceCatalogAdapter) DeleteService(ctx context.Context, name string) error {
	return a.repo.DeleteService(ctx, name)
}

func (a *serviceCatalogAdapter) ReplaceServices(ctx context.Context, services []application.Service) error {
	models := make([]persistence.Service, 0, len(services))
	for _, service := range services {
		models = append(models, toPersistenceService(service))
	}
	return a.repo.ReplaceServices(ctx, models)
}

type addressRepositoryAdapter struct {
	repo persistence.AddressRepository
}

func newAddressRepositoryAdapter(repo persistence.AddressRepository) *addressRepositoryAdapter {
	return &addressRepositoryAdapter{repo: repo}
}

func (a *addressRepositoryAdapter) CreateAddress(ctx context.Context, address application.Address) (application.Address, error) {
	if err := a.repo.CreateAddress(ctx, persistence.Address{ID: address.ID, Label: address.Label, CreatedAt: address.CreatedAt}); err != nil {
		return application.Address{}, err
	}
	return address, nil
}

func (a *addressRepositoryAdapter) ListAddresses(ctx context.Context) ([]application.Address, error) {
	models, err := a.repo.ListAddresses(ctx)
	if err != nil {
		return nil, err
	}
	addresses := make([]application.Address, 0, len(models))
	for _, model := range models {
		addresses = append(addresses, application.Address{ID: model.ID, Label: model.Label, CreatedAt: model.CreatedAt})
	}
	return addresses, nil
}

func (a *addressRepositoryAdapter) DeleteAddress(ctx context.Context, id string) error {
	return a.repo.DeleteAddress(ctx, id)
}

type appointmentRepositoryAdapter struct {
	repo persistence.AppointmentRepository
}

func newAppointmentRepositoryAdapter(repo persistence.AppointmentRepository) *appointmentRepositoryAdapter {
	return &appointmentRepositoryAdapter{repo: repo}
}

func (a *appointmentRepositoryAdapter) InsertAppointmentIfAvailable(ctx context.Context, appointment application.Appointment, maxPerSlot int) (application.Appointment, error) {
	if err := a.repo.InsertAppointmentIfAvailable(ctx, toPersistenceAppointment(appointment), maxPerSlot); err != nil {
		return application.Appointment{}, err
	}
	stored, err := a.repo.GetAppointment(ctx, appointment.Code)
	if err != nil {
		return application.Appointment{}, err
	}
	created := toApplicationAppointment(stored)
	created.AgendaName = appointment.AgendaName
	return created, nil
}

func (a *appointmentRepositoryAdapter) UpdateAppointmentIfAvailable(ctx context.Context, appointment application.Appointment, maxPerSlot int) (application.Appointment, error) {
	if err := a.repo.UpdateAppointmentIfAvailable(ctx, toPersistenceAppointment(appointment), maxPerSlot); err != nil {
		return application.Appointment{}, err
	}
	return a.GetAppointment(ctx, appointment.Code)
}

func (a *appointmentRepositoryAdapter) GetAppointment(ctx context.Context, code string) (application.Appointment, error) {
	stored, err := a.repo.GetAppointment(ctx, code)
	if err != nil {
		return application.Appointment{}, err
	}
	return toApplicationAppointment(stored), nil
}

func (a *appointmentRepositoryAdapter) ListAppointments(ctx context.Context, query application.AppointmentQuery) ([]application.Appointment, error) {
	models, err := a.repo.ListAppointments(ctx, persistence.AppointmentFilter{
		AgendaIDs: append([]string(nil), query.AgendaIDs...),
		Date:      query.Date,
		From:      query.From,
		To:        query.To,
	})
	if err != nil {
		return nil, err
	}
	appointments := make([]application.Appointment, 0, len(models))
	for _, model := range models {
		appointments = append(appointments, toApplicationAppointment(model))
	}
	return appointments, nil
}

func (a *appointmentRepositoryAdapter) DeleteAppointment(ctx context.Context, code string) error {
	return a.repo.DeleteAppointment(ctx, code)
}

type userRepositoryAdapter struct {
	repo persistence.UserRepository
}

func newUserRepositoryAdapter(repo persistence.UserRepository) *userRepositoryAdapter {
	return &userRepositoryAdapter{repo: repo}
}

func (a *userRepositoryAdapter) CreateUser(ctx context.Context, user application.UserCredentials) (application.User, error) {
	if err := a.repo.CreateUser(ctx, toPersistenceUser(user.User, user.PasswordHash)); err != nil {
		return application.User{}, err
	}
	return a.GetUser(ctx, user.User.ID)
}

func (a *userRepositoryAdapter) GetUser(ctx context.Context, id string) (application.User, error) {
	stored, err := a.repo.GetUser(ctx, id)
	if err != nil {
		return application.User{}, err
	}
	return toApplicationUser(stored), nil
}

func (a *userRepositoryAdapter) UpdateUser(ctx context.Context, user application.UserCredentials) (application.User, error) {
	hash := user.PasswordHash
	if hash == "" {
		current, err := a.repo.GetUser(ctx, user.User.ID)
		if err != nil {
			return application.User{}, err
		}
		hash = current.PasswordHash
	}
	if err := a.repo.UpdateUser(ctx, toPersistenceUser(user.User, hash)); err != nil {
		return application.User{}, err
	}
	return a.GetUser(ctx, user.User.ID)
}

func (a *userRepositoryAdapter) DeleteUser(ctx context.Context, id string) error {
	return a.repo.DeleteUser(ctx, id)
}

func (a *userRepositoryAdapter) ListUsers(ctx context.Context) ([]application.User, error) {
	models, err := a.repo.ListUsers(ctx)
	if err != nil {
		return nil, err
	}
	users := make([]application.User, 0, len(models))
	for _, model := range models {
		users = append(users, toApplicationUser(model))
	}
	return users, nil
}

type sessionRepositoryAdapter struct {
	repo persistence.SessionRepository
}

func newSessionRepositoryAdapter(repo persistence.SessionRepository) *sessionRepositoryAdapter {
	return &sessionRepositoryAdapter{repo: repo}
}

func (a *sessionRepositoryAdapter) CreateSession(ctx context.Context, session application.Session) (application.Session, error) {
	stored, err := a.repo.CreateSession(ctx, toPersistenceSession(session))
	if err != nil {
		return application.Session{}, err
	}
	return toApplicationSession(stored), nil
}

func (a *sessionRepositoryAdapter) GetSession(ctx context.Context, token string) (application.Session, error) {
	stored, err := a.repo.GetSession(ctx, token)
	if err != nil {
		return application.Session{}, err
	}
	return toApplicationSession(stored), nil
}

func (a *sessionRepositoryAdapter) UpdateSession(ctx context.Context, session application.Session) (application.Session, error) {
	stored, err := a.repo.UpdateSession(ctx, toPersistenceSession(session))
	if err != nil {
		return application.Session{}, err
	}
	return toApplicationSession(stored), nil
}

func (a *sessionRepositoryAdapter) RevokeSession(ctx context.Context, token string, revokedAt time.Time) (application.Session, error) {
	stored, err := a.repo.RevokeSession(ctx, token, revokedAt)
	if err != nil {
		return application.Session{}, err
	}
	return toApplicationSession(stored), nil
}

func (a *sessionRepositoryAdapter) DeleteExpiredSessions(ctx context.Context, reference time.Time) error {
	return a.repo.DeleteExpiredSessions(ctx, reference)
}

type credentialStoreAdapter struct {
	repo persistence.UserRepository
}

func newCredentialStoreAdapter(repo persistence.UserRepository) *credentialStoreAdapter {
	return &credentialStoreAdapter{repo: repo}
}

func (a *credentialStoreAdapter) GetUserCredentialsByLogin(ctx context.Context, login string) (application.UserCredentials, error) {
	stored, err := a.repo.GetUserByLogin(ctx, login)
	if err != nil {
		return application.UserCredentials{}, err
	}
	return application.UserCredentials{
		User:         toApplicationUser(stored),
		PasswordHash: stored.PasswordHash,
	}, nil
}

func (a *credentialStoreAdapter) GetUser(ctx context.Context, id string) (application.User, error) {
	stored, err := a.repo.GetUser(ctx, id)
	if err != nil {
		return application.User{}, err
	}
	return toApplicationUser(stored), nil
}

func toApplicationAgenda(model persistence.Agenda) application.Agenda {
	hours := make(map[string]application.WeekdayHours, len(model.WeeklyHours))
	for key, day := range model.WeeklyHours {
		intervals := make([]application.TimeRange, 0, len(day.Intervals))
		for _, interval := range day.Intervals {
			intervals = append(intervals, application.TimeRange{Start: interval.Start, End: interval.End})
		}
		hours[key] = application.WeekdayHours{Active: day.Active, Intervals: intervals}
	}
	return application.Agenda{
		ID:              model.ID,
		Name:            model.Name,
		Slug:            model.Slug,
		Status:          application.Status(model.Status),
		ValidFrom:       model.ValidFrom,
		ValidUntil:      model.ValidUntil,
		AttendanceFrom:  model.AttendanceFrom,
		AttendanceUntil: model.AttendanceUntil,
		WeeklyHours:     hours,
		Services:        append([]string(nil), model.Services...),
		MaxPerSlot:      model.MaxPerSlot,
		Address:         model.Address,
		PasswordHash:    model.PasswordHash,
		CreatedAt:       model.CreatedAt,
		UpdatedAt:       model.UpdatedAt,
	}
}

func toPersistenceAgenda(agenda application.Agenda) persistence.Agenda {
	hours := make(map[string]persistence.WeekdayHours, len(agenda.WeeklyHours))
	for key, day := range agenda.WeeklyHours {
		intervals := make([]persistence.TimeRange, 0, len(day.Intervals))
		for _, interval := range day.Intervals {
			intervals = append(intervals, persistence.TimeRange{Start: interval.Start, End: interval.End})
		}
		hours[key] = persistence.WeekdayHours{Active: day.Active, Intervals: intervals}
	}
	return persistence.Agenda{
		ID:              agenda.ID,
		Name:            agenda.Name,
		Slug:            agenda.Slug,
		PasswordHash:    agenda.PasswordHash,
		Status:          string(agenda.Status),
		ValidFrom:       agenda.ValidFrom,
		ValidUntil:      agenda.ValidUntil,
		AttendanceFrom:  agenda.AttendanceFrom,
		AttendanceUntil: agenda.AttendanceUntil,
		WeeklyHours:     hours,
		Services:        append([]string(nil), agenda.Services...),
		MaxPerSlot:      agenda.MaxPerSlot,
		Address:         agenda.Address,
		CreatedAt:       agenda.CreatedAt,
		UpdatedAt:       agenda.UpdatedAt,
	}
}

func toApplicationService(model persistence.Service) application.Service {
	return application.Service{
		Name:            model.Name,
		DurationMinutes: model.DurationMinutes,
		CreatedAt:       model.CreatedAt,
		UpdatedAt:       model.UpdatedAt,
	}
}

func toPersistenceService(service application.Service) persistence.Service {
	return persistence.Service{
		Name:            service.Name,
		DurationMinutes: service.DurationMinutes,
		CreatedAt:       service.CreatedAt,
		UpdatedAt:       service.UpdatedAt,
	}
}

func toApplicationAppointment(model persistence.Appointment) application.Appointment {
	return application.Appointment{
		Code:      model.Code,
		AgendaID:  model.AgendaID,
		Date:      model.Date,
		Time:      model.Time,
		Service:   model.Service,
		Name:      model.Name,
		Phone:     model.Phone,
		Address:   model.Address,
		CreatedAt: model.CreatedAt,
	}
}

func toPersistenceAppointment(appointment application.Appointment) persistence.Appointment {
	return persistence.Appointment{
		Code:      appointment.Code,
		AgendaID:  appointment.AgendaID,
		Date:      appointment.Date,
		Time:      appointment.Time,
		Service:   appointment.Service,
		Name:      appointment.Name,
		Phone:     appointment.Phone,
		Address:   appointment.Address,
		CreatedAt: appointment.CreatedAt,
	}
}

func toApplicationUser(model persistence.User) application.User {
	return application.User{
		ID:        model.ID,
		Name:      model.Name,
		Login:     model.Login,
		Role:      application.Role(model.Role),
		Status:    application.Status(model.Status),
		CreatedAt: model.CreatedAt,
		UpdatedAt: model.UpdatedAt,
	}
}

func toPersistenceUser(user application.User, passwordHash string) persistence.User {
	return persistence.User{
		ID:           user.ID,
		Name:         user.Name,
		Login:        user.Login,
		PasswordHash: passwordHash,
		Role:         string(user.Role),
		Status:       string(user.Status),
		CreatedAt:    user.CreatedAt,
		UpdatedAt:    user.UpdatedAt,
	}
}

func toApplicationSession(model persistence.Session) application.Session {
	return application.Session{
		ID:          model.ID,
		UserID:      model.UserID,
		Token:       model.Token,
		Fingerprint: model.Fingerprint,
		ExpiresAt:   model.ExpiresAt,
		CreatedAt:   model.CreatedAt,
		UpdatedAt:   model.UpdatedAt,
		RevokedAt:   cloneTime(model.RevokedAt),
	}
}

func toPersistenceSession(session application.Session) persistence.Session {
	return persistence.Session{
		ID:          session.ID,
		UserID:      session.UserID,
		Token:       session.Token,
		Fingerprint: session.Fingerprint,
		ExpiresAt:   session.ExpiresAt,
		CreatedAt:   session.CreatedAt,
		UpdatedAt:   session.UpdatedAt,
		RevokedAt:   cloneTime(session.RevokedAt),
	}
}

func cloneTime(value *time.Time) *time.Time {
	if value == nil {
		return nil
	}
	clone := *value
	return &clone
}
