package persistence

import "time"

// TimeRange is a working window stored as "HH:MM" clock times.
type TimeRange struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// WeekdayHours is the stored configuration of one weekday.
type WeekdayHours struct {
	Active    bool        `json:"active"`
	Intervals []TimeRange `json:"intervals"`
}

// Agenda represents a bookable schedule exposed through its public slug.
type Agenda struct {
	ID              string
	Name            string
	Slug            string
	PasswordHash    string
	Status          string
	ValidFrom       string
	ValidUntil      string
	AttendanceFrom  string
	AttendanceUntil string
	WeeklyHours     map[string]WeekdayHours
	Services        []string
	MaxPerSlot      int
	Address         string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Service is a catalog entry shared by every agenda.
type Service struct {
	Name            string
	DurationMinutes int
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Address is a reusable location label offered when editing agendas.
type Address struct {
	ID        string
	Label     string
	CreatedAt time.Time
}

// Appointment is a public booking. Appointments are created and deleted, never updated.
type Appointment struct {
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

// User represents a staff account.
type User struct {
	ID           string
	Name         string
	Login        string
	PasswordHash string
	Role         string
	Status       string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Session represents an authentication session persisted for a user.
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
