package testfixtures

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/example/agenda-booking/internal/application"
	"github.com/example/agenda-booking/internal/persistence"
)

var (
	userCounter        uint64
	agendaCounter      uint64
	appointmentCounter uint64
	sessionCounter     uint64
)

var referenceTime = time.Date(2026, time.March, 2, 12, 0, 0, 0, time.UTC)

// ReferenceTime returns the canonical baseline timestamp used by fixtures.
// It falls on a Monday morning in UTC-3.
func ReferenceTime() time.Time {
	return referenceTime
}

// ----------------------------- User fixtures -----------------------------

// UserFixture represents a deterministic staff account.
type UserFixture struct {
	ID           string
	Name         string
	Login        string
	PasswordHash string
	Role         application.Role
	Status       application.Status
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// UserOption configures the generated user fixture.
type UserOption func(*UserFixture)

// NewUserFixture returns a deterministic viewer fixture with optional overrides.
func NewUserFixture(opts ...UserOption) UserFixture {
	idx := atomic.AddUint64(&userCounter, 1)
	created := referenceTime.Add(time.Duration(idx) * time.Minute)
	fixture := UserFixture{
		ID:           fmt.Sprintf("user-%03d", idx),
		Name:         fmt.Sprintf("User %03d", idx),
		Login:        fmt.Sprintf("user%03d", idx),
		PasswordHash: fmt.Sprintf("hash-%03d", idx),
		Role:         application.RoleViewer,
		Status:       application.StatusActive,
		CreatedAt:    created,
		UpdatedAt:    created,
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithUserID overrides the generated user ID.
func WithUserID(id string) UserOption {
	return func(f *UserFixture) {
		f.ID = id
	}
}

// WithUserLogin overrides the generated login.
func WithUserLogin(login string) UserOption {
	return func(f *UserFixture) {
		f.Login = login
	}
}

// WithUserName overrides the generated display name.
func WithUserName(name string) UserOption {
	return func(f *UserFixture) {
		f.Name = name
	}
}

// WithUserPasswordHash overrides the generated password hash.
func WithUserPasswordHash(hash string) UserOption {
	return func(f *UserFixture) {
		f.PasswordHash = hash
	}
}

// WithUserAdmin switches the fixture between the admin and viewer roles.
func WithUserAdmin(isAdmin bool) UserOption {
	return func(f *UserFixture) {
		if isAdmin {
			f.Role = application.RoleAdmin
			return
		}
		f.Role = application.RoleViewer
	}
}

// WithUserStatus sets the account status.
func WithUserStatus(status application.Status) UserOption {
	return func(f *UserFixture) {
		f.Status = status
	}
}

// WithUserTimestamps sets both created and updated timestamps on the fixture.
func WithUserTimestamps(created, updated time.Time) UserOption {
	return func(f *UserFixture) {
		f.CreatedAt = created
		f.UpdatedAt = updated
	}
}

// Application returns the fixture as an application.User value.
func (f UserFixture) Application() application.User {
	return application.User{
		ID:        f.ID,
		Name:      f.Name,
		Login:     f.Login,
		Role:      f.Role,
		Status:    f.Status,
		CreatedAt: f.CreatedAt,
		UpdatedAt: f.UpdatedAt,
	}
}

// Credentials returns the fixture as application.UserCredentials.
func (f UserFixture) Credentials() application.UserCredentials {
	return application.UserCredentials{User: f.Application(), PasswordHash: f.PasswordHash}
}

// Principal returns an application.Principal derived from the fixture.
func (f UserFixture) Principal() application.Principal {
	return f.Application().Principal()
}

// Persistence returns the fixture as a persistence.User value.
func (f UserFixture) Persistence() persistence.User {
	return persistence.User{
		ID:           f.ID,
		Name:         f.Name,
		Login:        f.Login,
		PasswordHash: f.PasswordHash,
		Role:         string(f.Role),
		Status:       string(f.Status),
		CreatedAt:    f.CreatedAt,
		UpdatedAt:    f.UpdatedAt,
	}
}

// ----------------------------- Agenda fixtures ---------------------------

// AgendaFixture represents a deterministic agenda open on weekday mornings.
type AgendaFixture struct {
	ID              string
	Name            string
	Slug            string
	PasswordHash    string
	Status          application.Status
	ValidFrom       string
	ValidUntil      string
	AttendanceFrom  string
	AttendanceUntil string
	WeeklyHours     map[string]application.WeekdayHours
	Services        []string
	MaxPerSlot      int
	Address         string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// AgendaOption configures the generated agenda fixture.
type AgendaOption func(*AgendaFixture)

// NewAgendaFixture returns a deterministic agenda fixture with optional overrides.
func NewAgendaFixture(opts ...AgendaOption) AgendaFixture {
	idx := atomic.AddUint64(&agendaCounter, 1)
	created := referenceTime.Add(time.Duration(idx) * time.Hour)
	morning := application.WeekdayHours{Active: true, Intervals: []application.TimeRange{{Start: "08:00", End: "12:00"}}}
	fixture := AgendaFixture{
		ID:     fmt.Sprintf("agenda-%03d", idx),
		Name:   fmt.Sprintf("Agenda %03d", idx),
		Slug:   fmt.Sprintf("agenda-%03d", idx),
		Status: application.StatusActive,
		WeeklyHours: map[string]application.WeekdayHours{
			"mon": morning,
			"tue": morning,
			"wed": morning,
			"thu": morning,
			"fri": morning,
		},
		Services:   []string{"23 - RG"},
		MaxPerSlot: 1,
		Address:    "Rua Principal, 100",
		CreatedAt:  created,
		UpdatedAt:  created,
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithAgendaID overrides the generated agenda ID.
func WithAgendaID(id string) AgendaOption {
	return func(f *AgendaFixture) {
		f.ID = id
	}
}

// WithAgendaName overrides the generated name.
func WithAgendaName(name string) AgendaOption {
	return func(f *AgendaFixture) {
		f.Name = name
	}
}

// WithAgendaSlug overrides the generated slug.
func WithAgendaSlug(slug string) AgendaOption {
	return func(f *AgendaFixture) {
		f.Slug = slug
	}
}

// WithAgendaPasswordHash protects the agenda with the given hash.
func WithAgendaPasswordHash(hash string) AgendaOption {
	return func(f *AgendaFixture) {
		f.PasswordHash = hash
	}
}

// WithAgendaStatus sets the agenda status.
func WithAgendaStatus(status application.Status) AgendaOption {
	return func(f *AgendaFixture) {
		f.Status = status
	}
}

// WithAgendaValidity sets the validity window.
func WithAgendaValidity(from, until string) AgendaOption {
	return func(f *AgendaFixture) {
		f.ValidFrom = from
		f.ValidUntil = until
	}
}

// WithAgendaAttendance sets the attendance window.
func WithAgendaAttendance(from, until string) AgendaOption {
	return func(f *AgendaFixture) {
		f.AttendanceFrom = from
		f.AttendanceUntil = until
	}
}

// WithAgendaWeekday replaces the hours of a single weekday.
func WithAgendaWeekday(key string, active bool, intervals ...application.TimeRange) AgendaOption {
	return func(f *AgendaFixture) {
		hours := make(map[string]application.WeekdayHours, len(f.WeeklyHours)+1)
		for k, v := range f.WeeklyHours {
			hours[k] = v
		}
		hours[key] = application.WeekdayHours{Active: active, Intervals: append([]application.TimeRange(nil), intervals...)}
		f.WeeklyHours = hours
	}
}

// WithAgendaServices replaces the offered services.
func WithAgendaServices(services ...string) AgendaOption {
	return func(f *AgendaFixture) {
		f.Services = append([]string(nil), services...)
	}
}

// WithAgendaMaxPerSlot sets the slot capacity.
func WithAgendaMaxPerSlot(capacity int) AgendaOption {
	return func(f *AgendaFixture) {
		f.MaxPerSlot = capacity
	}
}

// WithAgendaAddress overrides the address text.
func WithAgendaAddress(address string) AgendaOption {
	return func(f *AgendaFixture) {
		f.Address = address
	}
}

// Application returns the fixture as an application.Agenda value.
func (f AgendaFixture) Application() application.Agenda {
	return application.Agenda{
		ID:              f.ID,
		Name:            f.Name,
		Slug:            f.Slug,
		Status:          f.Status,
		ValidFrom:       f.ValidFrom,
		ValidUntil:      f.ValidUntil,
		AttendanceFrom:  f.AttendanceFrom,
		AttendanceUntil: f.AttendanceUntil,
		WeeklyHours:     copyApplicationHours(f.WeeklyHours),
		Services:        append([]string(nil), f.Services...),
		MaxPerSlot:      f.MaxPerSlot,
		Address:         f.Address,
		PasswordHash:    f.PasswordHash,
		CreatedAt:       f.CreatedAt,
		UpdatedAt:       f.UpdatedAt,
	}
}

// Persistence returns the fixture as a persistence.Agenda value.
func (f AgendaFixture) Persistence() persistence.Agenda {
	hours := make(map[string]persistence.WeekdayHours, len(f.WeeklyHours))
	for key, day := range f.WeeklyHours {
		intervals := make([]persistence.TimeRange, len(day.Intervals))
		for i, interval := range day.Intervals {
			intervals[i] = persistence.TimeRange{Start: interval.Start, End: interval.End}
		}
		hours[key] = persistence.WeekdayHours{Active: day.Active, Intervals: intervals}
	}
	return persistence.Agenda{
		ID:              f.ID,
		Name:            f.Name,
		Slug:            f.Slug,
		PasswordHash:    f.PasswordHash,
		Status:          string(f.Status),
		ValidFrom:       f.ValidFrom,
		ValidUntil:      f.ValidUntil,
		AttendanceFrom:  f.AttendanceFrom,
		AttendanceUntil: f.AttendanceUntil,
		WeeklyHours:     hours,
		Services:        append([]string(nil), f.Services...),
		MaxPerSlot:      f.MaxPerSlot,
		Address:         f.Address,
		CreatedAt:       f.CreatedAt,
		UpdatedAt:       f.UpdatedAt,
	}
}

// Input returns the fixture as an application.AgendaInput without a password.
func (f AgendaFixture) Input() application.AgendaInput {
	return application.AgendaInput{
		Name:            f.Name,
		Slug:            f.Slug,
		Status:          f.Status,
		ValidFrom:       f.ValidFrom,
		ValidUntil:      f.ValidUntil,
		AttendanceFrom:  f.AttendanceFrom,
		AttendanceUntil: f.AttendanceUntil,
		WeeklyHours:     copyApplicationHours(f.WeeklyHours),
		Services:        append([]string(nil), f.Services...),
		MaxPerSlot:      f.MaxPerSlot,
		Address:         f.Address,
	}
}

// ----------------------------- Appointment fixtures ----------------------

// AppointmentFixture represents a deterministic public booking.
type AppointmentFixture struct {
	Code      string
	AgendaID  string
	Date      string
	Time      string
	Service   string
	Name      string
	Phone     string
	Address   string
	CreatedAt time.Time
}

// AppointmentOption configures the generated appointment fixture.
type AppointmentOption func(*AppointmentFixture)

// NewAppointmentFixture returns a deterministic appointment fixture with optional overrides.
func NewAppointmentFixture(opts ...AppointmentOption) AppointmentFixture {
	idx := atomic.AddUint64(&appointmentCounter, 1)
	fixture := AppointmentFixture{
		Code:      fmt.Sprintf("APT%04d", idx),
		AgendaID:  "agenda-001",
		Date:      "2026-03-02",
		Time:      "08:00",
		Service:   "23 - RG",
		Name:      fmt.Sprintf("Cidadão %03d", idx),
		Phone:     application.DefaultPhone,
		Address:   "Rua Principal, 100",
		CreatedAt: referenceTime.Add(time.Duration(idx) * time.Second),
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithAppointmentCode overrides the confirmation code.
func WithAppointmentCode(code string) AppointmentOption {
	return func(f *AppointmentFixture) {
		f.Code = code
	}
}

// WithAppointmentAgendaID sets the owning agenda.
func WithAppointmentAgendaID(id string) AppointmentOption {
	return func(f *AppointmentFixture) {
		f.AgendaID = id
	}
}

// WithAppointmentSlot sets the booked date and time.
func WithAppointmentSlot(date, clock string) AppointmentOption {
	return func(f *AppointmentFixture) {
		f.Date = date
		f.Time = clock
	}
}

// WithAppointmentName overrides the citizen name.
func WithAppointmentName(name string) AppointmentOption {
	return func(f *AppointmentFixture) {
		f.Name = name
	}
}

// Application returns the fixture as an application.Appointment value.
func (f AppointmentFixture) Application() application.Appointment {
	return application.Appointment{
		Code:      f.Code,
		AgendaID:  f.AgendaID,
		Date:      f.Date,
		Time:      f.Time,
		Service:   f.Service,
		Name:      f.Name,
		Phone:     f.Phone,
		Address:   f.Address,
		CreatedAt: f.CreatedAt,
	}
}

// Persistence returns the fixture as a persistence.Appointment value.
func (f AppointmentFixture) Persistence() persistence.Appointment {
	return persistence.Appointment{
		Code:      f.Code,
		AgendaID:  f.AgendaID,
		Date:      f.Date,
		Time:      f.Time,
		Service:   f.Service,
		Name:      f.Name,
		Phone:     f.Phone,
		Address:   f.Address,
		CreatedAt: f.CreatedAt,
	}
}

// ----------------------------- Session fixtures -------------------------

// SessionFixture represents a deterministic session record.
type SessionFixture struct {
	ID          string
	UserID      string
	Token       string
	Fingerprint string
	ExpiresAt   time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
	RevokedAt   *time.Time
}

// SessionOption configures the generated session fixture.
type SessionOption func(*SessionFixture)

// NewSessionFixture returns a deterministic session fixture with optional overrides.
func NewSessionFixture(opts ...SessionOption) SessionFixture {
	idx := atomic.AddUint64(&sessionCounter, 1)
	created := referenceTime
	fixture := SessionFixture{
		ID:          fmt.Sprintf("session-%03d", idx),
		UserID:      fmt.Sprintf("user-%03d", idx),
		Token:       fmt.Sprintf("token-%03d", idx),
		Fingerprint: fmt.Sprintf("fingerprint-%03d", idx),
		ExpiresAt:   created.Add(8 * time.Hour),
		CreatedAt:   created,
		UpdatedAt:   created,
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithSessionID overrides the session ID.
func WithSessionID(id string) SessionOption {
	return func(f *SessionFixture) {
		f.ID = id
	}
}

// WithSessionUserID sets the user ID.
func WithSessionUserID(id string) SessionOption {
	return func(f *SessionFixture) {
		f.UserID = id
	}
}

// WithSessionToken overrides the token value.
func WithSessionToken(token string) SessionOption {
	return func(f *SessionFixture) {
		f.Token = token
	}
}

// WithSessionExpiresAt sets the expiration timestamp.
func WithSessionExpiresAt(t time.Time) SessionOption {
	return func(f *SessionFixture) {
		f.ExpiresAt = t
	}
}

// WithSessionRevokedAt sets the optional revoked timestamp.
func WithSessionRevokedAt(t time.Time) SessionOption {
	return func(f *SessionFixture) {
		revoked := t
		f.RevokedAt = &revoked
	}
}

// Application returns the fixture as an application.Session value.
func (f SessionFixture) Application() application.Session {
	return application.Session{
		ID:          f.ID,
		UserID:      f.UserID,
		Token:       f.Token,
		Fingerprint: f.Fingerprint,
		ExpiresAt:   f.ExpiresAt,
		CreatedAt:   f.CreatedAt,
		UpdatedAt:   f.UpdatedAt,
		RevokedAt:   copyTimePtr(f.RevokedAt),
	}
}

// Persistence returns the fixture as a persistence.Session value.
func (f SessionFixture) Persistence() persistence.Session {
	return persistence.Session{
		ID:          f.ID,
		UserID:      f.UserID,
		Token:       f.Token,
		Fingerprint: f.Fingerprint,
		ExpiresAt:   f.ExpiresAt,
		CreatedAt:   f.CreatedAt,
		UpdatedAt:   f.UpdatedAt,
		RevokedAt:   copyTimePtr(f.RevokedAt),
	}
}

func copyTimePtr(src *time.Time) *time.Time {
	if src == nil {
		return nil
	}
	value := *src
	return &value
}

func copyApplicationHours(src map[string]application.WeekdayHours) map[string]application.WeekdayHours {
	out := make(map[string]application.WeekdayHours, len(src))
	for key, day := range src {
		out[key] = application.WeekdayHours{Active: day.Active, Intervals: append([]application.TimeRange(nil), day.Intervals...)}
	}
	return out
}
