package http

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/example/agenda-booking/internal/application"
	"github.com/example/agenda-booking/internal/report"
)

type reportService interface {
	BuildReport(ctx context.Context, params application.ReportParams) (application.Report, error)
}

type datasetService interface {
	Snapshot(ctx context.Context, principal application.Principal) (application.Dataset, error)
}

// ReportHandler serves appointment reports and the administrative dataset.
type ReportHandler struct {
	reports   reportService
	datasets  datasetService
	location  *time.Location
	responder responder
	logger    *slog.Logger
}

func NewReportHandler(reports reportService, datasets datasetService, location *time.Location, logger *slog.Logger) *ReportHandler {
	base := defaultLogger(logger)
	if location == nil {
		location = time.UTC
	}
	return &ReportHandler{reports: reports, datasets: datasets, location: location, responder: newResponder(base), logger: base}
}

func (h *ReportHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "ReportHandler", operation, attrs...)
}

func (h *ReportHandler) Appointments(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.reports == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	query := r.URL.Query()
	format := strings.ToLower(strings.TrimSpace(query.Get("format")))
	if format == "" {
		format = "json"
	}
	if format != "json" && format != "pdf" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errUnsupportedFormat)
		return
	}

	params := application.ReportParams{
		Principal: principal,
		AgendaIDs: splitList(query["agenda_ids"]),
		From:      strings.TrimSpace(query.Get("from")),
		To:        strings.TrimSpace(query.Get("to")),
	}
	logger := h.log(r.Context(), "Appointments", "principal_id", principal.UserID, "format", format)

	built, err := h.reports.BuildReport(r.Context(), params)
	if err != nil {
		logger.ErrorContext(r.Context(), "report failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	if format == "pdf" {
		var buf bytes.Buffer
		if err := report.RenderPDF(&buf, built, h.location); err != nil {
			logger.ErrorContext(r.Context(), "pdf rendering failed", "error", err)
			h.responder.writeError(r.Context(), w, http.StatusInternalServerError, nil)
			return
		}
		filename := "agendamentos-" + built.GeneratedAt.In(h.location).Format("20060102-1504") + ".pdf"
		w.Header().Set("Content-Type", "application/pdf")
		w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
		w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(buf.Bytes())
		logger.With("total", built.Total).InfoContext(r.Context(), "pdf report rendered")
		return
	}

	logger.With("total", built.Total).InfoContext(r.Context(), "report built")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, toReportDTO(built))
}

func (h *ReportHandler) Dataset(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.datasets == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	logger := h.log(r.Context(), "Dataset", "principal_id", principal.UserID)
	dataset, err := h.datasets.Snapshot(r.Context(), principal)
	if err != nil {
		logger.ErrorContext(r.Context(), "dataset snapshot failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	out := datasetDTO{
		Agendas:      make([]agendaDTO, 0, len(dataset.Agendas)),
		Services:     toServiceDTOs(dataset.Services),
		Addresses:    make([]addressDTO, 0, len(dataset.Addresses)),
		Appointments: make([]appointmentDTO, 0, len(dataset.Appointments)),
		Users:        toUserDTOs(dataset.Users),
	}
	for _, agenda := range dataset.Agendas {
		out.Agendas = append(out.Agendas, toAgendaDTO(agenda))
	}
	for _, address := range dataset.Addresses {
		out.Addresses = append(out.Addresses, toAddressDTO(address))
	}
	for _, appointment := range dataset.Appointments {
		out.Appointments = append(out.Appointments, toAppointmentDTO(appointment))
	}
	logger.InfoContext(r.Context(), "dataset served")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, out)
}

// splitList accepts both repeated parameters and comma separated values.
func splitList(values []string) []string {
	var out []string
	for _, value := range values {
		for _, part := range strings.Split(value, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

type reportSectionDTO struct {
	AgendaID     string           `json:"agenda_id"`
	AgendaName   string           `json:"agenda_name"`
	Address      string           `json:"address"`
	Appointments []appointmentDTO `json:"appointments"`
}

type reportDTO struct {
	GeneratedAt string             `json:"generated_at"`
	From        string             `json:"from,omitempty"`
	To          string             `json:"to,omitempty"`
	Total       int                `json:"total"`
	Sections    []reportSectionDTO `json:"sections"`
}

func toReportDTO(built application.Report) reportDTO {
	out := reportDTO{
		GeneratedAt: formatTimestamp(built.GeneratedAt),
		From:        built.From,
		To:          built.To,
		Total:       built.Total,
		Sections:    make([]reportSectionDTO, 0, len(built.Sections)),
	}
	for _, section := range built.Sections {
		appointments := make([]appointmentDTO, 0, len(section.Appointments))
		for _, appointment := range section.Appointments {
			appointments = append(appointments, toAppointmentDTO(appointment))
		}
		out.Sections = append(out.Sections, reportSectionDTO{
			AgendaID:     section.AgendaID,
			AgendaName:   section.AgendaName,
			Address:      section.Address,
			Appointments: appointments,
		})
	}
	return out
}

type datasetDTO struct {
	Agendas      []agendaDTO      `json:"agendas"`
	Services     []serviceDTO     `json:"services"`
	Addresses    []addressDTO     `json:"addresses"`
	Appointments []appointmentDTO `json:"appointments"`
	Users        []userDTO        `json:"users"`
}
