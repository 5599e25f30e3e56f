package application

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/example/agenda-booking/internal/availability"
)

// ReportService groups stored appointments per agenda for staff reports.
type ReportService struct {
	agendas      AgendaRepository
	appointments AppointmentRepository
	now          func() time.Time
	logger       *slog.Logger
}

// NewReportService wires dependencies for the report service.
func NewReportService(agendas AgendaRepository, appointments AppointmentRepository, now func() time.Time) *ReportService {
	return NewReportServiceWithLogger(agendas, appointments, now, nil)
}

// NewReportServiceWithLogger wires dependencies for the report service with a specific logger.
func NewReportServiceWithLogger(agendas AgendaRepository, appointments AppointmentRepository, now func() time.Time, logger *slog.Logger) *ReportService {
	if now == nil {
		now = time.Now
	}
	return &ReportService{agendas: agendas, appointments: appointments, now: now, logger: defaultLogger(logger)}
}

func (s *ReportService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "ReportService", operation, attrs...)
}

// BuildReport returns the appointments of the selected agendas within the
// optional inclusive date range. At least one agenda must be selected.
func (s *ReportService) BuildReport(ctx context.Context, params ReportParams) (report Report, err error) {
	if s == nil {
		return Report{}, fmt.Errorf("ReportService is nil")
	}
	if s.agendas == nil || s.appointments == nil {
		return Report{}, fmt.Errorf("report repositories not configured")
	}

	from := strings.TrimSpace(params.From)
	to := strings.TrimSpace(params.To)
	logger := s.loggerWith(ctx, "BuildReport",
		"principal_id", params.Principal.UserID,
		"agenda_count", len(params.AgendaIDs),
		"from", from,
		"to", to,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to build report", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "report built", "appointment_count", report.Total)
	}()

	if !params.Principal.Authenticated() {
		return Report{}, ErrUnauthorized
	}

	vErr := &ValidationError{}
	validateDateRange(vErr, "from", "to", from, to)
	if vErr.HasErrors() {
		return Report{}, vErr
	}

	agendas, err := s.agendas.ListAgendas(ctx)
	if err != nil {
		return Report{}, mapRepoError(err)
	}
	selected, vErr := selectAgendas(agendas, params.AgendaIDs)
	if vErr.HasErrors() {
		return Report{}, vErr
	}

	ids := make([]string, len(selected))
	for i, agenda := range selected {
		ids[i] = agenda.ID
	}

	var appointments []Appointment
	if len(ids) > 0 {
		appointments, err = s.appointments.ListAppointments(ctx, AppointmentQuery{AgendaIDs: ids, From: from, To: to})
		if err != nil {
			return Report{}, mapRepoError(err)
		}
	}
	sort.SliceStable(appointments, func(i, j int) bool {
		if appointments[i].Date != appointments[j].Date {
			return appointments[i].Date < appointments[j].Date
		}
		return appointments[i].Time < appointments[j].Time
	})

	byAgenda := make(map[string][]Appointment, len(selected))
	for _, appointment := range appointments {
		byAgenda[appointment.AgendaID] = append(byAgenda[appointment.AgendaID], appointment)
	}

	report = Report{GeneratedAt: s.now(), From: from, To: to, Sections: make([]ReportSection, 0, len(selected))}
	for _, agenda := range selected {
		items := byAgenda[agenda.ID]
		for i := range items {
			items[i].AgendaName = agenda.Name
		}
		if items == nil {
			items = []Appointment{}
		}
		report.Sections = append(report.Sections, ReportSection{
			AgendaID:     agenda.ID,
			AgendaName:   agenda.Name,
			Address:      agenda.Address,
			Appointments: items,
		})
		report.Total += len(items)
	}
	return report, nil
}

func selectAgendas(agendas []Agenda, ids []string) ([]Agenda, *ValidationError) {
	vErr := &ValidationError{}
	wanted := make(map[string]bool, len(ids))
	for _, id := range ids {
		if trimmed := strings.TrimSpace(id); trimmed != "" {
			wanted[trimmed] = false
		}
	}
	if len(wanted) == 0 {
		vErr.add("agenda_ids", "select at least one agenda")
		return nil, vErr
	}
	selected := make([]Agenda, 0, len(wanted))
	for _, agenda := range agendas {
		if _, ok := wanted[agenda.ID]; ok {
			wanted[agenda.ID] = true
			selected = append(selected, agenda)
		}
	}

	var missing []string
	for id, found := range wanted {
		if !found {
			missing = append(missing, id)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		vErr.add("agenda_ids", "unknown agendas: "+strings.Join(missing, ", "))
	}
	return selected, vErr
}

// FormatReportDate renders a stored "YYYY-MM-DD" date as "DD/MM/YYYY".
// Unparsable values are returned unchanged.
func FormatReportDate(date string) string {
	parsed, err := availability.ParseDate(date)
	if err != nil {
		return date
	}
	return parsed.Format("02/01/2006")
}
