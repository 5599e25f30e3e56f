package application

import "time"

// Role identifies the permission level of a staff account.
type Role string

const (
	// RoleAdmin may manage agendas, the catalog and users.
	RoleAdmin Role = "admin"
	// RoleViewer may read agendas and reports.
	RoleViewer Role = "viewer"
)

// Status is the lifecycle state shared by agendas and users.
type Status string

const (
	StatusActive   Status = "active"
	StatusInactive Status = "inactive"
)

// Principal represents the authenticated user invoking a service method.
type Principal struct {
	UserID  string
	IsAdmin bool
	Role    Role
}

// Authenticated reports whether the principal carries an identity.
func (p Principal) Authenticated() bool {
	return p.UserID != ""
}

// TimeRange is a working interval expressed as "HH:MM" clock times.
type TimeRange struct {
	Start string
	End   string
}

// WeekdayHours is the configuration of one weekday.
type WeekdayHours struct {
	Active    bool
	Intervals []TimeRange
}

// Agenda is a bookable schedule exposed publicly through its slug.
type Agenda struct {
	ID              string
	Name            string
	Slug            string
	Status          Status
	ValidFrom       string
	ValidUntil      string
	AttendanceFrom  string
	AttendanceUntil string
	WeeklyHours     map[string]WeekdayHours
	Services        []string
	MaxPerSlot      int
	Address         string
	PasswordHash    string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// PasswordProtected reports whether public bookings require the agenda password.
func (a Agenda) PasswordProtected() bool {
	return a.PasswordHash != ""
}

// AgendaInput captures caller provided agenda fields. An empty Password keeps
// the stored one unless ClearPassword is set.
type AgendaInput struct {
	Name            string
	Slug            string
	Password        string
	ClearPassword   bool
	Status          Status
	ValidFrom       string
	ValidUntil      string
	AttendanceFrom  string
	AttendanceUntil string
	WeeklyHours     map[string]WeekdayHours
	Services        []string
	MaxPerSlot      int
	Address         string
}

// CreateAgendaParams wraps the data required to create an agenda.
type CreateAgendaParams struct {
	Principal Principal
	Input     AgendaInput
}

// UpdateAgendaParams wraps the data required to update an agenda.
type UpdateAgendaParams struct {
	Principal Principal
	AgendaID  string
	Input     AgendaInput
}

// AgendaFilter narrows agenda listings. Empty fields match everything.
type AgendaFilter struct {
	Query   string
	Status  Status
	Address string
	Service string
}

// ListAgendasParams wraps the data required to list agendas.
type ListAgendasParams struct {
	Principal Principal
	Filter    AgendaFilter
}

// Service is a catalog entry shared by every agenda.
type Service struct {
	Name            string
	DurationMinutes int
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// ServiceInput captures caller provided catalog fields.
type ServiceInput struct {
	Name            string
	DurationMinutes int
}

// Address is a reusable location label.
type Address struct {
	ID        string
	Label     string
	CreatedAt time.Time
}

// Appointment is a public booking identified by its confirmation code.
type Appointment struct {
	Code       string
	AgendaID   string
	AgendaName string
	Date       string
	Time       string
	Service    string
	Name       string
	Phone      string
	Address    string
	CreatedAt  time.Time
}

// AppointmentQuery narrows appointment lookups. Date bounds are inclusive.
type AppointmentQuery struct {
	AgendaIDs []string
	Date      string
	From      string
	To        string
}

// BookingInput captures the fields submitted by the public booking form.
type BookingInput struct {
	Date          string
	Time          string
	Service       string
	Name          string
	Phone         string
	Password      string
	AcceptedTerms bool
}

// PublicAgenda is the agenda card shown on the public booking page.
type PublicAgenda struct {
	ID                string
	Slug              string
	Name              string
	Address           string
	Services          []Service
	MaxPerSlot        int
	PasswordProtected bool
	AttendanceFrom    string
	AttendanceUntil   string
}

// BookableDay is a date offered on the public booking page.
type BookableDay struct {
	Date    string
	Weekday string
}

// UserInput captures caller provided user attributes. Password is required on
// create and optional on update.
type UserInput struct {
	Name     string
	Login    string
	Password string
	Role     Role
	Status   Status
}

// User represents a staff account exposed by the application services.
type User struct {
	ID        string
	Name      string
	Login     string
	Role      Role
	Status    Status
	CreatedAt time.Time
	UpdatedAt time.Time
}

// IsAdmin reports whether the user holds the admin role.
func (u User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// Principal returns the principal acting on behalf of the user.
func (u User) Principal() Principal {
	return Principal{UserID: u.ID, IsAdmin: u.IsAdmin(), Role: u.Role}
}

// CreateUserParams wraps the data required to create a user.
type CreateUserParams struct {
	Principal Principal
	Input     UserInput
}

// UpdateUserParams wraps the data required to update a user.
type UpdateUserParams struct {
	Principal Principal
	UserID    string
	Input     UserInput
}

// UserCredentials models the authentication attributes persisted for a user.
type UserCredentials struct {
	User         User
	PasswordHash string
}

// Session represents an authenticated session issued to a user.
type Session struct {
	ID          string
	UserID      string
	Token       string
	Fingerprint string
	ExpiresAt   time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
	RevokedAt   *time.Time
}

// AuthenticateParams captures the data required to authenticate a user.
type AuthenticateParams struct {
	Login       string
	Password    string
	Fingerprint string
}

// AuthenticateResult captures the outcome of a successful authentication attempt.
type AuthenticateResult struct {
	User    User
	Session Session
}

// RefreshSessionParams captures the data required to refresh an existing session.
type RefreshSessionParams struct {
	Token       string
	Fingerprint string
}

// RefreshSessionResult captures the outcome of rotating a session token.
type RefreshSessionResult struct {
	Session Session
}

// ReportParams selects the appointments included in a report.
type ReportParams struct {
	Principal Principal
	AgendaIDs []string
	From      string
	To        string
}

// ReportSection groups the appointments of one agenda.
type ReportSection struct {
	AgendaID     string
	AgendaName   string
	Address      string
	Appointments []Appointment
}

// Report is the appointment listing rendered as JSON or PDF.
type Report struct {
	GeneratedAt time.Time
	From        string
	To          string
	Sections    []ReportSection
	Total       int
}

// Dataset is the administrative snapshot of every stored aggregate.
type Dataset struct {
	Agendas      []Agenda
	Services     []Service
	Addresses    []Address
	Appointments []Appointment
	Users        []User
}
