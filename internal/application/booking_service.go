package application

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"strings"
	"time"

	"github.com/example/agenda-booking/internal/availability"
)

const (
	// AppointmentCodeLength is the number of characters in a confirmation code.
	AppointmentCodeLength = 7
	// DefaultPhone replaces an empty phone number on bookings.
	DefaultPhone = "Não informado"

	appointmentCodeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	maxCodeAttempts         = 5
)

// AppointmentRepository captures the persistence operations for public bookings.
type AppointmentRepository interface {
	// InsertAppointmentIfAvailable stores the appointment only while the slot
	// holds fewer than maxPerSlot appointments.
	InsertAppointmentIfAvailable(ctx context.Context, appointment Appointment, maxPerSlot int) (Appointment, error)
	// UpdateAppointmentIfAvailable rewrites the booking with the same code,
	// counting capacity without the booking itself.
	UpdateAppointmentIfAvailable(ctx context.Context, appointment Appointment, maxPerSlot int) (Appointment, error)
	GetAppointment(ctx context.Context, code string) (Appointment, error)
	ListAppointments(ctx context.Context, query AppointmentQuery) ([]Appointment, error)
	DeleteAppointment(ctx context.Context, code string) error
}

// NewAppointmentCode returns a random confirmation code of uppercase letters and digits.
func NewAppointmentCode() string {
	limit := big.NewInt(int64(len(appointmentCodeAlphabet)))
	buf := make([]byte, AppointmentCodeLength)
	for i := range buf {
		n, err := rand.Int(rand.Reader, limit)
		if err != nil {
			panic(fmt.Sprintf("appointment code: %v", err))
		}
		buf[i] = appointmentCodeAlphabet[n.Int64()]
	}
	return string(buf)
}

// BookingService implements the public booking flow addressed by agenda slug.
type BookingService struct {
	agendas        AgendaRepository
	services       ServiceCatalog
	appointments   AppointmentRepository
	cache          AvailabilityCache
	calendar       *availability.Calendar
	horizonDays    int
	codeGenerator  func() string
	verifyPassword PasswordVerifier
	now            func() time.Time
	logger         *slog.Logger
}

// BookingOption customises a BookingService.
type BookingOption func(*BookingService)

// WithLocation sets the time zone used to resolve "today".
func WithLocation(loc *time.Location) BookingOption {
	return func(s *BookingService) {
		s.calendar = availability.NewCalendar(loc)
	}
}

// WithHorizonDays sets how many days, today included, are offered publicly.
func WithHorizonDays(days int) BookingOption {
	return func(s *BookingService) {
		if days > 0 {
			s.horizonDays = days
		}
	}
}

// WithAvailabilityCache sets the cache used for computed slot lists.
func WithAvailabilityCache(cache AvailabilityCache) BookingOption {
	return func(s *BookingService) {
		s.cache = cache
	}
}

// WithCodeGenerator replaces the confirmation code generator.
func WithCodeGenerator(generator func() string) BookingOption {
	return func(s *BookingService) {
		if generator != nil {
			s.codeGenerator = generator
		}
	}
}

// WithAgendaPasswordVerifier replaces the verifier used for protected agendas.
func WithAgendaPasswordVerifier(verify PasswordVerifier) BookingOption {
	return func(s *BookingService) {
		if verify != nil {
			s.verifyPassword = verify
		}
	}
}

// NewBookingService wires dependencies for the booking service.
func NewBookingService(agendas AgendaRepository, services ServiceCatalog, appointments AppointmentRepository, now func() time.Time, opts ...BookingOption) *BookingService {
	return NewBookingServiceWithLogger(agendas, services, appointments, now, nil, opts...)
}

// NewBookingServiceWithLogger wires dependencies for the booking service with a specific logger.
func NewBookingServiceWithLogger(agendas AgendaRepository, services ServiceCatalog, appointments AppointmentRepository, now func() time.Time, logger *slog.Logger, opts ...BookingOption) *BookingService {
	if now == nil {
		now = time.Now
	}
	s := &BookingService{
		agendas:        agendas,
		services:       services,
		appointments:   appointments,
		calendar:       availability.NewCalendar(nil),
		horizonDays:    availability.DefaultHorizonDays,
		codeGenerator:  NewAppointmentCode,
		verifyPassword: VerifyPassword,
		now:            now,
		logger:         defaultLogger(logger),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *BookingService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "BookingService", operation, attrs...)
}

// OpenAgenda returns the public card of an agenda that currently accepts bookings.
func (s *BookingService) OpenAgenda(ctx context.Context, slug string) (PublicAgenda, error) {
	if s == nil {
		return PublicAgenda{}, fmt.Errorf("BookingService is nil")
	}
	agenda, err := s.openAgenda(ctx, slug)
	if err != nil {
		return PublicAgenda{}, err
	}

	var catalog []Service
	if s.services != nil {
		if catalog, err = s.services.ListServices(ctx); err != nil {
			return PublicAgenda{}, mapRepoError(err)
		}
	}
	durations := serviceDurations(catalog)

	services := make([]Service, 0, len(agenda.Services))
	for _, name := range agenda.Services {
		duration, ok := durations[strings.ToLower(name)]
		if !ok {
			duration = DefaultServiceDuration
		}
		services = append(services, Service{Name: name, DurationMinutes: duration})
	}
	SortServices(services)

	return PublicAgenda{
		ID:                agenda.ID,
		Slug:              agenda.Slug,
		Name:              agenda.Name,
		Address:           agenda.Address,
		Services:          services,
		MaxPerSlot:        agenda.MaxPerSlot,
		PasswordProtected: agenda.PasswordProtected(),
		AttendanceFrom:    agenda.AttendanceFrom,
		AttendanceUntil:   agenda.AttendanceUntil,
	}, nil
}

// ListDays returns the dates currently offered for booking.
func (s *BookingService) ListDays(ctx context.Context, slug string) ([]BookableDay, error) {
	if s == nil {
		return nil, fmt.Errorf("BookingService is nil")
	}
	agenda, err := s.openAgenda(ctx, slug)
	if err != nil {
		return nil, err
	}

	days := s.calendar.BookableDays(s.now(), s.horizonDays, attendanceWindow(agenda), weekFromHours(agenda.WeeklyHours))
	out := make([]BookableDay, len(days))
	for i, day := range days {
		out[i] = BookableDay{Date: day.Date, Weekday: day.Weekday}
	}
	return out, nil
}

// ListSlots returns the free times for a service on a date. Dates outside the
// bookable window yield an empty list.
func (s *BookingService) ListSlots(ctx context.Context, slug, date, service string) (slots []string, err error) {
	if s == nil {
		return nil, fmt.Errorf("BookingService is nil")
	}

	date = strings.TrimSpace(date)
	service = strings.TrimSpace(service)
	logger := s.loggerWith(ctx, "ListSlots", "slug", slug, "date", date, "service_name", service)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to list slots", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.DebugContext(ctx, "slots listed", "slot_count", len(slots))
	}()

	agenda, err := s.openAgenda(ctx, slug)
	if err != nil {
		return nil, err
	}

	vErr := &ValidationError{}
	if _, perr := availability.ParseDate(date); perr != nil {
		vErr.add("date", "date must use YYYY-MM-DD")
	}
	canonical, offered := offeredService(agenda, service)
	if !offered {
		vErr.add("service", "service is not offered by this agenda")
	}
	if vErr.HasErrors() {
		return nil, vErr
	}

	week := weekFromHours(agenda.WeeklyHours)
	if !s.calendar.IsBookable(s.now(), s.horizonDays, attendanceWindow(agenda), week, date) {
		return []string{}, nil
	}
	return s.availableSlots(ctx, logger, agenda, date, canonical)
}

// Book validates a public booking and stores it while the slot has capacity.
func (s *BookingService) Book(ctx context.Context, slug string, input BookingInput) (appointment Appointment, err error) {
	if s == nil {
		return Appointment{}, fmt.Errorf("BookingService is nil")
	}
	if s.appointments == nil {
		return Appointment{}, fmt.Errorf("appointment repository not configured")
	}

	normalized := normalizeBookingInput(input)
	logger := s.loggerWith(ctx, "Book", "slug", slug, "date", normalized.Date, "time", normalized.Time)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "booking failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("appointment_code", appointment.Code, "agenda_id", appointment.AgendaID).InfoContext(ctx, "appointment booked")
	}()

	agenda, err := s.openAgenda(ctx, slug)
	if err != nil {
		return Appointment{}, err
	}
	canonical, err := s.checkBooking(ctx, agenda, normalized)
	if err != nil {
		return Appointment{}, err
	}

	candidate := Appointment{
		AgendaID:  agenda.ID,
		Date:      normalized.Date,
		Time:      normalized.Time,
		Service:   canonical,
		Name:      normalized.Name,
		Phone:     normalized.Phone,
		Address:   agenda.Address,
		CreatedAt: s.now(),
	}
	for attempt := 0; attempt < maxCodeAttempts; attempt++ {
		candidate.Code = strings.ToUpper(s.codeGenerator())
		appointment, err = s.appointments.InsertAppointmentIfAvailable(ctx, candidate, agenda.MaxPerSlot)
		if err == nil {
			break
		}
		err = mapRepoError(err)
		if !errors.Is(err, ErrAlreadyExists) {
			return Appointment{}, err
		}
		logger.WarnContext(ctx, "appointment code collision", "attempt", attempt+1)
	}
	if err != nil {
		return Appointment{}, fmt.Errorf("allocate appointment code: %w", err)
	}

	appointment.AgendaName = agenda.Name
	s.invalidate(ctx, logger, agenda.ID)
	return appointment, nil
}

// UpdateAppointment edits a booking in place, keeping its confirmation code.
// It applies the same checks as Book against the booking's agenda.
func (s *BookingService) UpdateAppointment(ctx context.Context, code string, input BookingInput) (appointment Appointment, err error) {
	if s == nil {
		return Appointment{}, fmt.Errorf("BookingService is nil")
	}
	if s.appointments == nil || s.agendas == nil {
		return Appointment{}, fmt.Errorf("booking repositories not configured")
	}

	code = strings.ToUpper(strings.TrimSpace(code))
	normalized := normalizeBookingInput(input)
	logger := s.loggerWith(ctx, "UpdateAppointment", "appointment_code", code, "date", normalized.Date, "time", normalized.Time)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to update appointment", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("agenda_id", appointment.AgendaID).InfoContext(ctx, "appointment updated")
	}()

	if code == "" {
		return Appointment{}, ErrNotFound
	}
	existing, err := s.appointments.GetAppointment(ctx, code)
	if err != nil {
		return Appointment{}, mapRepoError(err)
	}
	agenda, err := s.agendas.GetAgenda(ctx, existing.AgendaID)
	if err != nil {
		return Appointment{}, mapRepoError(err)
	}
	if !AgendaOpen(agenda, s.calendar.Today(s.now())) {
		return Appointment{}, ErrAgendaUnavailable
	}
	canonical, err := s.checkBooking(ctx, agenda, normalized)
	if err != nil {
		return Appointment{}, err
	}

	existing.Date = normalized.Date
	existing.Time = normalized.Time
	existing.Service = canonical
	existing.Name = normalized.Name
	existing.Phone = normalized.Phone
	appointment, err = s.appointments.UpdateAppointmentIfAvailable(ctx, existing, agenda.MaxPerSlot)
	if err != nil {
		return Appointment{}, mapRepoError(err)
	}

	appointment.AgendaName = agenda.Name
	s.invalidate(ctx, logger, agenda.ID)
	return appointment, nil
}

// checkBooking verifies the agenda password and that the requested service,
// date and time are bookable. It returns the agenda's spelling of the service.
func (s *BookingService) checkBooking(ctx context.Context, agenda Agenda, input BookingInput) (string, error) {
	if agenda.PasswordProtected() {
		if input.Password == "" || s.verifyPassword(agenda.PasswordHash, input.Password) != nil {
			return "", ErrAgendaPasswordInvalid
		}
	}

	vErr := validateBookingInput(input)
	canonical, offered := offeredService(agenda, input.Service)
	if input.Service != "" && !offered {
		vErr.add("service", "service is not offered by this agenda")
	}
	if vErr.HasErrors() {
		return "", vErr
	}

	week := weekFromHours(agenda.WeeklyHours)
	if !s.calendar.IsBookable(s.now(), s.horizonDays, attendanceWindow(agenda), week, input.Date) {
		vErr.add("date", "date is not open for booking")
		return "", vErr
	}
	weekday, _ := availability.DateWeekday(input.Date)
	if !availability.Contains(week[weekday], s.durationFor(ctx, canonical), input.Time) {
		vErr.add("time", "time is not one of the agenda slots")
		return "", vErr
	}
	return canonical, nil
}

// GetAppointment looks up a booking by its confirmation code.
func (s *BookingService) GetAppointment(ctx context.Context, code string) (Appointment, error) {
	if s == nil {
		return Appointment{}, fmt.Errorf("BookingService is nil")
	}
	if s.appointments == nil {
		return Appointment{}, fmt.Errorf("appointment repository not configured")
	}

	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return Appointment{}, ErrNotFound
	}
	appointment, err := s.appointments.GetAppointment(ctx, code)
	if err != nil {
		return Appointment{}, mapRepoError(err)
	}
	if s.agendas != nil {
		if agenda, aerr := s.agendas.GetAgenda(ctx, appointment.AgendaID); aerr == nil {
			appointment.AgendaName = agenda.Name
		}
	}
	return appointment, nil
}

// CancelAppointment deletes a booking by its confirmation code.
func (s *BookingService) CancelAppointment(ctx context.Context, code string) (err error) {
	if s == nil {
		return fmt.Errorf("BookingService is nil")
	}
	if s.appointments == nil {
		return fmt.Errorf("appointment repository not configured")
	}

	code = strings.ToUpper(strings.TrimSpace(code))
	logger := s.loggerWith(ctx, "CancelAppointment", "appointment_code", code)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to cancel appointment", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "appointment cancelled")
	}()

	if code == "" {
		return ErrNotFound
	}
	existing, err := s.appointments.GetAppointment(ctx, code)
	if err != nil {
		return mapRepoError(err)
	}
	if err = s.appointments.DeleteAppointment(ctx, code); err != nil {
		return mapRepoError(err)
	}
	s.invalidate(ctx, logger, existing.AgendaID)
	return nil
}

func (s *BookingService) openAgenda(ctx context.Context, slug string) (Agenda, error) {
	if s.agendas == nil {
		return Agenda{}, fmt.Errorf("agenda repository not configured")
	}
	normalized := strings.ToLower(strings.TrimSpace(slug))
	if normalized == "" {
		return Agenda{}, ErrNotFound
	}
	agenda, err := s.agendas.GetAgendaBySlug(ctx, normalized)
	if err != nil {
		return Agenda{}, mapRepoError(err)
	}
	if !AgendaOpen(agenda, s.calendar.Today(s.now())) {
		return Agenda{}, ErrAgendaUnavailable
	}
	return agenda, nil
}

func (s *BookingService) availableSlots(ctx context.Context, logger *slog.Logger, agenda Agenda, date, service string) ([]string, error) {
	key := AvailabilityKey{AgendaID: agenda.ID, Date: date, Service: service}
	if s.cache != nil {
		cached, ok, err := s.cache.Get(ctx, key)
		if err != nil {
			logger.WarnContext(ctx, "availability cache read failed", "error", err)
		} else if ok {
			return cached, nil
		}
	}

	var bookings []availability.Booking
	if s.appointments != nil {
		existing, err := s.appointments.ListAppointments(ctx, AppointmentQuery{AgendaIDs: []string{agenda.ID}, Date: date})
		if err != nil {
			return nil, mapRepoError(err)
		}
		bookings = make([]availability.Booking, len(existing))
		for i, appointment := range existing {
			bookings[i] = availability.Booking{AgendaID: appointment.AgendaID, Date: appointment.Date, Time: appointment.Time}
		}
	}

	weekday, err := availability.DateWeekday(date)
	if err != nil {
		return nil, err
	}
	slots := availability.Available(availability.Request{
		AgendaID:        agenda.ID,
		Date:            date,
		Day:             dayFromHours(agenda.WeeklyHours[weekday]),
		DurationMinutes: s.durationFor(ctx, service),
		MaxPerSlot:      agenda.MaxPerSlot,
		Bookings:        bookings,
	})

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, slots); err != nil {
			logger.WarnContext(ctx, "availability cache write failed", "error", err)
		}
	}
	return slots, nil
}

func (s *BookingService) durationFor(ctx context.Context, service string) int {
	if s.services == nil {
		return DefaultServiceDuration
	}
	entry, err := s.services.GetService(ctx, service)
	if err != nil || entry.DurationMinutes <= 0 {
		return DefaultServiceDuration
	}
	return entry.DurationMinutes
}

func (s *BookingService) invalidate(ctx context.Context, logger *slog.Logger, agendaID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.InvalidateAgenda(ctx, agendaID); err != nil {
		logger.WarnContext(ctx, "failed to invalidate availability cache", "error", err)
	}
}

// AgendaOpen reports whether an agenda accepts public bookings on the given date.
func AgendaOpen(agenda Agenda, today string) bool {
	if agenda.Status != StatusActive {
		return false
	}
	return availability.Window{From: agenda.ValidFrom, Until: agenda.ValidUntil}.Contains(today)
}

func attendanceWindow(agenda Agenda) availability.Window {
	return availability.Window{From: agenda.AttendanceFrom, Until: agenda.AttendanceUntil}
}

func offeredService(agenda Agenda, service string) (string, bool) {
	for _, name := range agenda.Services {
		if strings.EqualFold(name, service) {
			return name, true
		}
	}
	return "", false
}

func normalizeBookingInput(input BookingInput) BookingInput {
	out := BookingInput{
		Date:          strings.TrimSpace(input.Date),
		Time:          strings.TrimSpace(input.Time),
		Service:       strings.TrimSpace(input.Service),
		Name:          strings.TrimSpace(input.Name),
		Phone:         strings.TrimSpace(input.Phone),
		Password:      strings.TrimSpace(input.Password),
		AcceptedTerms: input.AcceptedTerms,
	}
	if out.Phone == "" {
		out.Phone = DefaultPhone
	}
	return out
}

func validateBookingInput(input BookingInput) *ValidationError {
	vErr := &ValidationError{}
	if input.Name == "" {
		vErr.add("name", "name is required")
	}
	if input.Service == "" {
		vErr.add("service", "service is required")
	}
	if _, err := availability.ParseDate(input.Date); err != nil {
		vErr.add("date", "date must use YYYY-MM-DD")
	}
	if _, err := availability.ParseClock(input.Time); err != nil {
		vErr.add("time", "time must use HH:MM")
	}
	if !input.AcceptedTerms {
		vErr.add("accepted_terms", "terms must be accepted")
	}
	return vErr
}
