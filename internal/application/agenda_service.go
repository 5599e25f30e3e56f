package application

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/example/agenda-booking/internal/availability"
)

// AgendaRepository captures the persistence operations needed by the agenda service.
type AgendaRepository interface {
	CreateAgenda(ctx context.Context, agenda Agenda) (Agenda, error)
	UpdateAgenda(ctx context.Context, agenda Agenda) (Agenda, error)
	GetAgenda(ctx context.Context, id string) (Agenda, error)
	GetAgendaBySlug(ctx context.Context, slug string) (Agenda, error)
	ListAgendas(ctx context.Context) ([]Agenda, error)
	DeleteAgenda(ctx context.Context, id string) error
}

// AgendaService orchestrates validation, authorization, and persistence for agendas.
type AgendaService struct {
	agendas      AgendaRepository
	catalog      ServiceCatalog
	cache        AvailabilityCache
	hashPassword PasswordHasher
	idGenerator  func() string
	now          func() time.Time
	logger       *slog.Logger
}

// NewAgendaService wires dependencies for the agenda service.
func NewAgendaService(agendas AgendaRepository, catalog ServiceCatalog, cache AvailabilityCache, hasher PasswordHasher, idGenerator func() string, now func() time.Time) *AgendaService {
	return NewAgendaServiceWithLogger(agendas, catalog, cache, hasher, idGenerator, now, nil)
}

// NewAgendaServiceWithLogger wires dependencies for the agenda service with a specific logger.
func NewAgendaServiceWithLogger(agendas AgendaRepository, catalog ServiceCatalog, cache AvailabilityCache, hasher PasswordHasher, idGenerator func() string, now func() time.Time, logger *slog.Logger) *AgendaService {
	if hasher == nil {
		hasher = HashPassword
	}
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	return &AgendaService{
		agendas:      agendas,
		catalog:      catalog,
		cache:        cache,
		hashPassword: hasher,
		idGenerator:  idGenerator,
		now:          now,
		logger:       defaultLogger(logger),
	}
}

func (s *AgendaService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "AgendaService", operation, attrs...)
}

// CreateAgenda validates input and persists a new agenda for administrators.
func (s *AgendaService) CreateAgenda(ctx context.Context, params CreateAgendaParams) (agenda Agenda, err error) {
	if s == nil {
		return Agenda{}, fmt.Errorf("AgendaService is nil")
	}
	if s.agendas == nil {
		return Agenda{}, fmt.Errorf("agenda repository not configured")
	}

	logger := s.loggerWith(ctx, "CreateAgenda", "principal_id", params.Principal.UserID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to create agenda", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("agenda_id", agenda.ID, "slug", agenda.Slug).InfoContext(ctx, "agenda created")
	}()

	if !params.Principal.IsAdmin {
		return Agenda{}, ErrUnauthorized
	}

	normalized := normalizeAgendaInput(params.Input)
	if vErr := s.validateAgendaInput(ctx, normalized); vErr.HasErrors() {
		return Agenda{}, vErr
	}

	now := s.now()
	candidate := Agenda{ID: s.idGenerator(), CreatedAt: now}
	if err = s.applyInput(&candidate, normalized, now); err != nil {
		return Agenda{}, err
	}

	agenda, err = s.agendas.CreateAgenda(ctx, candidate)
	if err != nil {
		return Agenda{}, mapRepoError(err)
	}
	return agenda, nil
}

// UpdateAgenda validates input and replaces an agenda's configuration for administrators.
func (s *AgendaService) UpdateAgenda(ctx context.Context, params UpdateAgendaParams) (agenda Agenda, err error) {
	if s == nil {
		return Agenda{}, fmt.Errorf("AgendaService is nil")
	}
	if s.agendas == nil {
		return Agenda{}, fmt.Errorf("agenda repository not configured")
	}

	logger := s.loggerWith(ctx, "UpdateAgenda", "principal_id", params.Principal.UserID, "agenda_id", params.AgendaID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to update agenda", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("slug", agenda.Slug).InfoContext(ctx, "agenda updated")
	}()

	if !params.Principal.IsAdmin {
		return Agenda{}, ErrUnauthorized
	}

	existing, err := s.agendas.GetAgenda(ctx, params.AgendaID)
	if err != nil {
		return Agenda{}, mapRepoError(err)
	}

	normalized := normalizeAgendaInput(params.Input)
	if vErr := s.validateAgendaInput(ctx, normalized); vErr.HasErrors() {
		return Agenda{}, vErr
	}

	updated := existing
	if err = s.applyInput(&updated, normalized, s.now()); err != nil {
		return Agenda{}, err
	}

	agenda, err = s.agendas.UpdateAgenda(ctx, updated)
	if err != nil {
		return Agenda{}, mapRepoError(err)
	}
	s.invalidate(ctx, logger, agenda.ID)
	return agenda, nil
}

// DeleteAgenda removes an agenda and its appointments for administrators.
func (s *AgendaService) DeleteAgenda(ctx context.Context, principal Principal, agendaID string) (err error) {
	if s == nil {
		return fmt.Errorf("AgendaService is nil")
	}
	if s.agendas == nil {
		return fmt.Errorf("agenda repository not configured")
	}

	logger := s.loggerWith(ctx, "DeleteAgenda", "principal_id", principal.UserID, "agenda_id", agendaID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to delete agenda", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "agenda deleted")
	}()

	if !principal.IsAdmin {
		return ErrUnauthorized
	}
	if err = s.agendas.DeleteAgenda(ctx, agendaID); err != nil {
		return mapRepoError(err)
	}
	s.invalidate(ctx, logger, agendaID)
	return nil
}

// GetAgenda returns a single agenda to any authenticated principal.
func (s *AgendaService) GetAgenda(ctx context.Context, principal Principal, agendaID string) (Agenda, error) {
	if s == nil {
		return Agenda{}, fmt.Errorf("AgendaService is nil")
	}
	if !principal.Authenticated() {
		return Agenda{}, ErrUnauthorized
	}
	if s.agendas == nil {
		return Agenda{}, fmt.Errorf("agenda repository not configured")
	}
	agenda, err := s.agendas.GetAgenda(ctx, agendaID)
	if err != nil {
		return Agenda{}, mapRepoError(err)
	}
	return agenda, nil
}

// ListAgendas returns the agendas matching the filter to any authenticated principal.
func (s *AgendaService) ListAgendas(ctx context.Context, params ListAgendasParams) ([]Agenda, error) {
	if s == nil {
		return nil, fmt.Errorf("AgendaService is nil")
	}
	if !params.Principal.Authenticated() {
		return nil, ErrUnauthorized
	}
	if s.agendas == nil {
		return nil, nil
	}

	agendas, err := s.agendas.ListAgendas(ctx)
	if err != nil {
		return nil, mapRepoError(err)
	}

	out := make([]Agenda, 0, len(agendas))
	for _, agenda := range agendas {
		if matchesAgendaFilter(agenda, params.Filter) {
			out = append(out, agenda)
		}
	}
	return out, nil
}

func (s *AgendaService) applyInput(agenda *Agenda, input AgendaInput, now time.Time) error {
	agenda.Name = input.Name
	agenda.Slug = input.Slug
	agenda.Status = input.Status
	agenda.ValidFrom = input.ValidFrom
	agenda.ValidUntil = input.ValidUntil
	agenda.AttendanceFrom = input.AttendanceFrom
	agenda.AttendanceUntil = input.AttendanceUntil
	agenda.WeeklyHours = input.WeeklyHours
	agenda.Services = input.Services
	agenda.MaxPerSlot = input.MaxPerSlot
	agenda.Address = input.Address
	agenda.UpdatedAt = now

	switch {
	case input.Password != "":
		hash, err := s.hashPassword(input.Password)
		if err != nil {
			return fmt.Errorf("hash agenda password: %w", err)
		}
		agenda.PasswordHash = hash
	case input.ClearPassword:
		agenda.PasswordHash = ""
	}
	return nil
}

func (s *AgendaService) validateAgendaInput(ctx context.Context, input AgendaInput) *ValidationError {
	vErr := validateAgendaFields(input)
	if len(input.Services) == 0 || s.catalog == nil {
		return vErr
	}

	catalog, err := s.catalog.ListServices(ctx)
	if err != nil {
		vErr.add("services", "service catalog unavailable")
		return vErr
	}
	known := serviceDurations(catalog)
	var unknown []string
	for _, name := range input.Services {
		if _, ok := known[strings.ToLower(name)]; !ok {
			unknown = append(unknown, name)
		}
	}
	if len(unknown) > 0 {
		vErr.add("services", "unknown services: "+strings.Join(unknown, ", "))
	}
	return vErr
}

func (s *AgendaService) invalidate(ctx context.Context, logger *slog.Logger, agendaID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.InvalidateAgenda(ctx, agendaID); err != nil {
		logger.WarnContext(ctx, "failed to invalidate availability cache", "error", err)
	}
}

var slugPattern = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)

// Letters without a canonical decomposition.
var ligatureFolder = strings.NewReplacer("æ", "ae", "œ", "oe", "ø", "o", "ß", "ss", "đ", "d", "ł", "l")

// foldAccents strips combining marks after canonical decomposition.
func foldAccents(s string) string {
	folder := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(folder, s)
	if err != nil {
		folded = s
	}
	return ligatureFolder.Replace(folded)
}

// Slugify derives a URL slug from a display name: accents are folded, every
// other character outside [a-z0-9] becomes a single dash.
func Slugify(name string) string {
	folded := foldAccents(strings.ToLower(strings.TrimSpace(name)))
	var b strings.Builder
	dash := false
	for _, r := range folded {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
			dash = false
			continue
		}
		if !dash {
			b.WriteByte('-')
			dash = true
		}
	}
	return strings.Trim(b.String(), "-")
}

func normalizeAgendaInput(input AgendaInput) AgendaInput {
	out := input
	out.Name = strings.TrimSpace(input.Name)
	out.Address = strings.TrimSpace(input.Address)
	out.Password = strings.TrimSpace(input.Password)
	out.ValidFrom = strings.TrimSpace(input.ValidFrom)
	out.ValidUntil = strings.TrimSpace(input.ValidUntil)
	out.AttendanceFrom = strings.TrimSpace(input.AttendanceFrom)
	out.AttendanceUntil = strings.TrimSpace(input.AttendanceUntil)

	slug := strings.Trim(strings.ToLower(strings.TrimSpace(input.Slug)), "-")
	if slug == "" {
		slug = Slugify(out.Name)
	}
	out.Slug = slug

	if out.Status == "" {
		out.Status = StatusActive
	}
	if out.MaxPerSlot == 0 {
		out.MaxPerSlot = 1
	}

	seen := make(map[string]struct{}, len(input.Services))
	services := make([]string, 0, len(input.Services))
	for _, name := range input.Services {
		trimmed := strings.TrimSpace(name)
		key := strings.ToLower(trimmed)
		if trimmed == "" {
			continue
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		services = append(services, trimmed)
	}
	out.Services = services

	hours := make(map[string]WeekdayHours, len(input.WeeklyHours))
	for key, day := range input.WeeklyHours {
		intervals := make([]TimeRange, len(day.Intervals))
		for i, interval := range day.Intervals {
			intervals[i] = TimeRange{Start: strings.TrimSpace(interval.Start), End: strings.TrimSpace(interval.End)}
		}
		hours[strings.ToLower(strings.TrimSpace(key))] = WeekdayHours{Active: day.Active, Intervals: intervals}
	}
	out.WeeklyHours = hours
	return out
}

func validateAgendaFields(input AgendaInput) *ValidationError {
	vErr := &ValidationError{}

	if input.Name == "" {
		vErr.add("name", "name is required")
	}
	switch {
	case input.Slug == "":
		vErr.add("slug", "slug is required")
	case !slugPattern.MatchString(input.Slug):
		vErr.add("slug", "slug may contain only lowercase letters, digits and dashes")
	}
	if input.Status != StatusActive && input.Status != StatusInactive {
		vErr.add("status", "status must be active or inactive")
	}
	if input.MaxPerSlot < 0 {
		vErr.add("max_per_slot", "max per slot must be positive")
	}

	validateDateRange(vErr, "valid_from", "valid_until", input.ValidFrom, input.ValidUntil)
	validateDateRange(vErr, "attendance_from", "attendance_until", input.AttendanceFrom, input.AttendanceUntil)

	for key, day := range input.WeeklyHours {
		if _, err := availability.ParseWeekdayKey(key); err != nil {
			vErr.add("weekly_hours."+key, "unknown weekday")
			continue
		}
		for i, interval := range day.Intervals {
			field := fmt.Sprintf("weekly_hours.%s[%d]", key, i)
			start, startErr := availability.ParseClock(interval.Start)
			end, endErr := availability.ParseClock(interval.End)
			switch {
			case startErr != nil || endErr != nil:
				vErr.add(field, "times must use HH:MM")
			case start >= end:
				vErr.add(field, "start must be before end")
			}
		}
	}
	return vErr
}

func validateDateRange(vErr *ValidationError, fromField, untilField, from, until string) {
	var fromOK, untilOK bool
	if from != "" {
		if _, err := availability.ParseDate(from); err != nil {
			vErr.add(fromField, "date must use YYYY-MM-DD")
		} else {
			fromOK = true
		}
	}
	if until != "" {
		if _, err := availability.ParseDate(until); err != nil {
			vErr.add(untilField, "date must use YYYY-MM-DD")
		} else {
			untilOK = true
		}
	}
	if fromOK && untilOK && from > until {
		vErr.add(untilField, "end date must not be before start date")
	}
}

func matchesAgendaFilter(agenda Agenda, filter AgendaFilter) bool {
	if q := strings.ToLower(strings.TrimSpace(filter.Query)); q != "" &&
		!strings.Contains(strings.ToLower(agenda.Name), q) &&
		!strings.Contains(agenda.Slug, q) {
		return false
	}
	if filter.Status != "" && agenda.Status != filter.Status {
		return false
	}
	if addr := strings.ToLower(strings.TrimSpace(filter.Address)); addr != "" &&
		!strings.Contains(strings.ToLower(agenda.Address), addr) {
		return false
	}
	if service := strings.ToLower(strings.TrimSpace(filter.Service)); service != "" {
		found := false
		for _, name := range agenda.Services {
			if strings.Contains(strings.ToLower(name), service) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// weekFromHours converts stored weekly hours into calculator days.
func weekFromHours(hours map[string]WeekdayHours) map[string]availability.Day {
	week := make(map[string]availability.Day, len(hours))
	for key, day := range hours {
		week[key] = dayFromHours(day)
	}
	return week
}

func dayFromHours(day WeekdayHours) availability.Day {
	intervals := make([]availability.Interval, len(day.Intervals))
	for i, interval := range day.Intervals {
		intervals[i] = availability.Interval{Start: interval.Start, End: interval.End}
	}
	return availability.Day{Active: day.Active, Intervals: intervals}
}
