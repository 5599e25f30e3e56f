package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/example/agenda-booking/internal/application"
)

type bookingService interface {
	OpenAgenda(ctx context.Context, slug string) (application.PublicAgenda, error)
	ListDays(ctx context.Context, slug string) ([]application.BookableDay, error)
	ListSlots(ctx context.Context, slug, date, service string) ([]string, error)
	Book(ctx context.Context, slug string, input application.BookingInput) (application.Appointment, error)
	UpdateAppointment(ctx context.Context, code string, input application.BookingInput) (application.Appointment, error)
	GetAppointment(ctx context.Context, code string) (application.Appointment, error)
	CancelAppointment(ctx context.Context, code string) error
}

// PublicHandler serves the booking page endpoints that need no session.
type PublicHandler struct {
	service   bookingService
	responder responder
	logger    *slog.Logger
}

func NewPublicHandler(service bookingService, logger *slog.Logger) *PublicHandler {
	base := defaultLogger(logger)
	return &PublicHandler{service: service, responder: newResponder(base), logger: base}
}

func (h *PublicHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "PublicHandler", operation, attrs...)
}

func (h *PublicHandler) GetAgenda(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	slug, ok := PathParamFromContext(r.Context())
	if !ok {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidSlug)
		return
	}

	agenda, err := h.service.OpenAgenda(r.Context(), slug)
	if err != nil {
		h.log(r.Context(), "GetAgenda", "slug", slug).ErrorContext(r.Context(), "agenda unavailable", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	services := make([]serviceDTO, 0, len(agenda.Services))
	for _, service := range agenda.Services {
		services = append(services, toServiceDTO(service))
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, publicAgendaDTO{
		Slug:              agenda.Slug,
		Name:              agenda.Name,
		Address:           agenda.Address,
		Services:          services,
		MaxPerSlot:        agenda.MaxPerSlot,
		PasswordProtected: agenda.PasswordProtected,
		AttendanceFrom:    agenda.AttendanceFrom,
		AttendanceUntil:   agenda.AttendanceUntil,
	})
}

func (h *PublicHandler) ListDays(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	slug, ok := PathParamFromContext(r.Context())
	if !ok {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidSlug)
		return
	}

	days, err := h.service.ListDays(r.Context(), slug)
	if err != nil {
		h.log(r.Context(), "ListDays", "slug", slug).ErrorContext(r.Context(), "day listing failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	out := make([]bookableDayDTO, 0, len(days))
	for _, day := range days {
		out = append(out, bookableDayDTO{Date: day.Date, Weekday: day.Weekday})
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, listDaysResponse{Days: out})
}

func (h *PublicHandler) ListSlots(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	slug, ok := PathParamFromContext(r.Context())
	if !ok {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidSlug)
		return
	}

	date := strings.TrimSpace(r.URL.Query().Get("date"))
	service := strings.TrimSpace(r.URL.Query().Get("service"))
	slots, err := h.service.ListSlots(r.Context(), slug, date, service)
	if err != nil {
		h.log(r.Context(), "ListSlots", "slug", slug, "date", date).ErrorContext(r.Context(), "slot listing failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	if slots == nil {
		slots = []string{}
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, listSlotsResponse{Date: date, Service: service, Slots: slots})
}

func (h *PublicHandler) Book(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	slug, ok := PathParamFromContext(r.Context())
	if !ok {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidSlug)
		return
	}

	var req bookingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log(r.Context(), "Book", "slug", slug, "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode booking request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	logger := h.log(r.Context(), "Book", "slug", slug, "date", req.Date, "time", req.Time)
	appointment, err := h.service.Book(r.Context(), slug, req.toInput())
	if err != nil {
		logger.ErrorContext(r.Context(), "booking failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("code", appointment.Code).InfoContext(r.Context(), "appointment booked")
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, appointmentResponse{Appointment: toAppointmentDTO(appointment)})
}

func (h *PublicHandler) GetAppointment(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	code, ok := PathParamFromContext(r.Context())
	if !ok {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidCode)
		return
	}

	appointment, err := h.service.GetAppointment(r.Context(), code)
	if err != nil {
		h.log(r.Context(), "GetAppointment").ErrorContext(r.Context(), "appointment lookup failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, appointmentResponse{Appointment: toAppointmentDTO(appointment)})
}

// UpdateAppointment edits a booking under its existing confirmation code.
func (h *PublicHandler) UpdateAppointment(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	code, ok := PathParamFromContext(r.Context())
	if !ok {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidCode)
		return
	}

	logger := h.log(r.Context(), "UpdateAppointment", "code", strings.ToUpper(code))
	var req bookingRequest
	if !h.responder.decode(w, r, logger, &req) {
		return
	}

	appointment, err := h.service.UpdateAppointment(r.Context(), code, req.toInput())
	if err != nil {
		h.responder.fail(r.Context(), w, logger, "appointment update failed", err)
		return
	}

	logger.With("date", appointment.Date, "time", appointment.Time).InfoContext(r.Context(), "appointment updated")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, appointmentResponse{Appointment: toAppointmentDTO(appointment)})
}

func (h *PublicHandler) CancelAppointment(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	code, ok := PathParamFromContext(r.Context())
	if !ok {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidCode)
		return
	}

	logger := h.log(r.Context(), "CancelAppointment", "code", strings.ToUpper(code))
	if err := h.service.CancelAppointment(r.Context(), code); err != nil {
		logger.ErrorContext(r.Context(), "appointment cancellation failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "appointment cancelled")
	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

type publicAgendaDTO struct {
	Slug              string       `json:"slug"`
	Name              string       `json:"name"`
	Address           string       `json:"address"`
	Services          []serviceDTO `json:"services"`
	MaxPerSlot        int          `json:"max_per_slot"`
	PasswordProtected bool         `json:"password_protected"`
	AttendanceFrom    string       `json:"attendance_from,omitempty"`
	AttendanceUntil   string       `json:"attendance_until,omitempty"`
}

type bookableDayDTO struct {
	Date    string `json:"date"`
	Weekday string `json:"weekday"`
}

type listDaysResponse struct {
	Days []bookableDayDTO `json:"days"`
}

type listSlotsResponse struct {
	Date    string   `json:"date"`
	Service string   `json:"service"`
	Slots   []string `json:"slots"`
}

type bookingRequest struct {
	Date          string `json:"date"`
	Time          string `json:"time"`
	Service       string `json:"service"`
	Name          string `json:"name"`
	Phone         string `json:"phone"`
	Password      string `json:"password,omitempty"`
	AcceptedTerms bool   `json:"accepted_terms"`
}

func (r bookingRequest) toInput() application.BookingInput {
	return application.BookingInput{
		Date:          r.Date,
		Time:          r.Time,
		Service:       r.Service,
		Name:          r.Name,
		Phone:         r.Phone,
		Password:      r.Password,
		AcceptedTerms: r.AcceptedTerms,
	}
}

type appointmentDTO struct {
	Code       string `json:"code"`
	AgendaID   string `json:"agenda_id,omitempty"`
	AgendaName string `json:"agenda_name"`
	Date       string `json:"date"`
	Time       string `json:"time"`
	Service    string `json:"service"`
	Name       string `json:"name"`
	Phone      string `json:"phone"`
	Address    string `json:"address"`
	CreatedAt  string `json:"created_at,omitempty"`
}

type appointmentResponse struct {
	Appointment appointmentDTO `json:"appointment"`
}

func toAppointmentDTO(appointment application.Appointment) appointmentDTO {
	return appointmentDTO{
		Code:       appointment.Code,
		AgendaID:   appointment.AgendaID,
		AgendaName: appointment.AgendaName,
		Date:       appointment.Date,
		Time:       appointment.Time,
		Service:    appointment.Service,
		Name:       appointment.Name,
		Phone:      appointment.Phone,
		Address:    appointment.Address,
		CreatedAt:  formatTimestamp(appointment.CreatedAt),
	}
}
