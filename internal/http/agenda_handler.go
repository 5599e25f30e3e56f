package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/example/agenda-booking/internal/application"
)

type agendaService interface {
	CreateAgenda(ctx context.Context, params application.CreateAgendaParams) (application.Agenda, error)
	UpdateAgenda(ctx context.Context, params application.UpdateAgendaParams) (application.Agenda, error)
	DeleteAgenda(ctx context.Context, principal application.Principal, agendaID string) error
	GetAgenda(ctx context.Context, principal application.Principal, agendaID string) (application.Agenda, error)
	ListAgendas(ctx context.Context, params application.ListAgendasParams) ([]application.Agenda, error)
}

type AgendaHandler struct {
	service   agendaService
	responder responder
	logger    *slog.Logger
}

func NewAgendaHandler(service agendaService, logger *slog.Logger) *AgendaHandler {
	base := defaultLogger(logger)
	return &AgendaHandler{service: service, responder: newResponder(base), logger: base}
}

func (h *AgendaHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "AgendaHandler", operation, attrs...)
}

func (h *AgendaHandler) List(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	query := r.URL.Query()
	filter := application.AgendaFilter{
		Query:   strings.TrimSpace(query.Get("q")),
		Status:  application.Status(strings.TrimSpace(query.Get("status"))),
		Address: strings.TrimSpace(query.Get("address")),
		Service: strings.TrimSpace(query.Get("service")),
	}
	logger := h.log(r.Context(), "List", "principal_id", principal.UserID)

	agendas, err := h.service.ListAgendas(r.Context(), application.ListAgendasParams{Principal: principal, Filter: filter})
	if err != nil {
		logger.ErrorContext(r.Context(), "agenda list failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("result_count", len(agendas)).InfoContext(r.Context(), "agendas listed")
	out := make([]agendaDTO, 0, len(agendas))
	for _, agenda := range agendas {
		out = append(out, toAgendaDTO(agenda))
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, listAgendasResponse{Agendas: out})
}

func (h *AgendaHandler) Get(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	agendaID, ok := PathParamFromContext(r.Context())
	if !ok {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidAgendaID)
		return
	}
	principal, _ := PrincipalFromContext(r.Context())

	agenda, err := h.service.GetAgenda(r.Context(), principal, agendaID)
	if err != nil {
		h.log(r.Context(), "Get", "agenda_id", agendaID).ErrorContext(r.Context(), "agenda lookup failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, agendaResponse{Agenda: toAgendaDTO(agenda)})
}

func (h *AgendaHandler) Create(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())

	var req agendaRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log(r.Context(), "Create", "principal_id", principal.UserID, "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode agenda request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	logger := h.log(r.Context(), "Create", "principal_id", principal.UserID)

	agenda, err := h.service.CreateAgenda(r.Context(), application.CreateAgendaParams{
		Principal: principal,
		Input:     req.toInput(),
	})
	if err != nil {
		logger.ErrorContext(r.Context(), "agenda creation failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("agenda_id", agenda.ID).InfoContext(r.Context(), "agenda created")
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, agendaResponse{Agenda: toAgendaDTO(agenda)})
}

func (h *AgendaHandler) Update(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	agendaID, ok := PathParamFromContext(r.Context())
	if !ok {
		h.log(r.Context(), "Update", "error_kind", "bad_request").ErrorContext(r.Context(), "missing agenda id for update")
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidAgendaID)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())

	var req agendaRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log(r.Context(), "Update", "principal_id", principal.UserID, "agenda_id", agendaID, "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode agenda update", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	logger := h.log(r.Context(), "Update", "principal_id", principal.UserID, "agenda_id", agendaID)

	agenda, err := h.service.UpdateAgenda(r.Context(), application.UpdateAgendaParams{
		Principal: principal,
		AgendaID:  agendaID,
		Input:     req.toInput(),
	})
	if err != nil {
		logger.ErrorContext(r.Context(), "agenda update failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "agenda updated")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, agendaResponse{Agenda: toAgendaDTO(agenda)})
}

func (h *AgendaHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	agendaID, ok := PathParamFromContext(r.Context())
	if !ok {
		h.log(r.Context(), "Delete", "error_kind", "bad_request").ErrorContext(r.Context(), "missing agenda id for delete")
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidAgendaID)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	logger := h.log(r.Context(), "Delete", "principal_id", principal.UserID, "agenda_id", agendaID)
	if err := h.service.DeleteAgenda(r.Context(), principal, agendaID); err != nil {
		logger.ErrorContext(r.Context(), "agenda delete failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "agenda deleted")
	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

type timeRangeDTO struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

type weekdayHoursDTO struct {
	Active    bool           `json:"active"`
	Intervals []timeRangeDTO `json:"intervals"`
}

type agendaRequest struct {
	Name            string                     `json:"name"`
	Slug            string                     `json:"slug"`
	Password        string                     `json:"password,omitempty"`
	ClearPassword   bool                       `json:"clear_password,omitempty"`
	Status          string                     `json:"status"`
	ValidFrom       string                     `json:"valid_from"`
	ValidUntil      string                     `json:"valid_until"`
	AttendanceFrom  string                     `json:"attendance_from"`
	AttendanceUntil string                     `json:"attendance_until"`
	WeeklyHours     map[string]weekdayHoursDTO `json:"weekly_hours"`
	Services        []string                   `json:"services"`
	MaxPerSlot      int                        `json:"max_per_slot"`
	Address         string                     `json:"address"`
}

func (r agendaRequest) toInput() application.AgendaInput {
	var hours map[string]application.WeekdayHours
	if r.WeeklyHours != nil {
		hours = make(map[string]application.WeekdayHours, len(r.WeeklyHours))
		for key, day := range r.WeeklyHours {
			intervals := make([]application.TimeRange, 0, len(day.Intervals))
			for _, interval := range day.Intervals {
				intervals = append(intervals, application.TimeRange{Start: interval.Start, End: interval.End})
			}
			hours[key] = application.WeekdayHours{Active: day.Active, Intervals: intervals}
		}
	}
	return application.AgendaInput{
		Name:            r.Name,
		Slug:            r.Slug,
		Password:        r.Password,
		ClearPassword:   r.ClearPassword,
		Status:          application.Status(strings.TrimSpace(r.Status)),
		ValidFrom:       r.ValidFrom,
		ValidUntil:      r.ValidUntil,
		AttendanceFrom:  r.AttendanceFrom,
		AttendanceUntil: r.AttendanceUntil,
		WeeklyHours:     hours,
		Services:        r.Services,
		MaxPerSlot:      r.MaxPerSlot,
		Address:         r.Address,
	}
}

type agendaDTO struct {
	ID                string                     `json:"id"`
	Name              string                     `json:"name"`
	Slug              string                     `json:"slug"`
	Status            string                     `json:"status"`
	ValidFrom         string                     `json:"valid_from"`
	ValidUntil        string                     `json:"valid_until"`
	AttendanceFrom    string                     `json:"attendance_from"`
	AttendanceUntil   string                     `json:"attendance_until"`
	WeeklyHours       map[string]weekdayHoursDTO `json:"weekly_hours"`
	Services          []string                   `json:"services"`
	MaxPerSlot        int                        `json:"max_per_slot"`
	Address           string                     `json:"address"`
	PasswordProtected bool                       `json:"password_protected"`
	CreatedAt         string                     `json:"created_at"`
	UpdatedAt         string                     `json:"updated_at"`
}

type agendaResponse struct {
	Agenda agendaDTO `json:"agenda"`
}

type listAgendasResponse struct {
	Agendas []agendaDTO `json:"agendas"`
}

func toAgendaDTO(agenda application.Agenda) agendaDTO {
	hours := make(map[string]weekdayHoursDTO, len(agenda.WeeklyHours))
	for key, day := range agenda.WeeklyHours {
		intervals := make([]timeRangeDTO, 0, len(day.Intervals))
		for _, interval := range day.Intervals {
			intervals = append(intervals, timeRangeDTO{Start: interval.Start, End: interval.End})
		}
		hours[key] = weekdayHoursDTO{Active: day.Active, Intervals: intervals}
	}
	services := agenda.Services
	if services == nil {
		services = []string{}
	}
	return agendaDTO{
		ID:                agenda.ID,
		Name:              agenda.Name,
		Slug:              agenda.Slug,
		Status:            string(agenda.Status),
		ValidFrom:         agenda.ValidFrom,
		ValidUntil:        agenda.ValidUntil,
		AttendanceFrom:    agenda.AttendanceFrom,
		AttendanceUntil:   agenda.AttendanceUntil,
		WeeklyHours:       hours,
		Services:          services,
		MaxPerSlot:        agenda.MaxPerSlot,
		Address:           agenda.Address,
		PasswordProtected: agenda.PasswordProtected(),
		CreatedAt:         formatTimestamp(agenda.CreatedAt),
		UpdatedAt:         formatTimestamp(agenda.UpdatedAt),
	}
}
