package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/example/agenda-booking/internal/application"
)

type catalogService interface {
	ListServices(ctx context.Context) ([]application.Service, error)
	CreateService(ctx context.Context, principal application.Principal, input application.ServiceInput) (application.Service, error)
	DeleteService(ctx context.Context, principal application.Principal, name string) error
	ReplaceServices(ctx context.Context, principal application.Principal, inputs []application.ServiceInput) ([]application.Service, error)
	ListAddresses(ctx context.Context) ([]application.Address, error)
	CreateAddress(ctx context.Context, principal application.Principal, label string) (application.Address, error)
	DeleteAddress(ctx context.Context, principal application.Principal, id string) error
}

// CatalogHandler serves the shared service catalog and address book.
type CatalogHandler struct {
	service   catalogService
	responder responder
	logger    *slog.Logger
}

func NewCatalogHandler(service catalogService, logger *slog.Logger) *CatalogHandler {
	base := defaultLogger(logger)
	return &CatalogHandler{service: service, responder: newResponder(base), logger: base}
}

func (h *CatalogHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "CatalogHandler", operation, attrs...)
}

func (h *CatalogHandler) ListServices(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	services, err := h.service.ListServices(r.Context())
	if err != nil {
		h.log(r.Context(), "ListServices").ErrorContext(r.Context(), "service list failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, listServicesResponse{Services: toServiceDTOs(services)})
}

func (h *CatalogHandler) CreateService(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	var req serviceDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log(r.Context(), "CreateService", "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode service request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	logger := h.log(r.Context(), "CreateService", "principal_id", principal.UserID)
	service, err := h.service.CreateService(r.Context(), principal, req.toInput())
	if err != nil {
		logger.ErrorContext(r.Context(), "service creation failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("service_name", service.Name).InfoContext(r.Context(), "service created")
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, serviceResponse{Service: toServiceDTO(service)})
}

func (h *CatalogHandler) ReplaceServices(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	var req listServicesResponse
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log(r.Context(), "ReplaceServices", "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode service list", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	inputs := make([]application.ServiceInput, 0, len(req.Services))
	for _, service := range req.Services {
		inputs = append(inputs, service.toInput())
	}

	logger := h.log(r.Context(), "ReplaceServices", "principal_id", principal.UserID, "service_count", len(inputs))
	services, err := h.service.ReplaceServices(r.Context(), principal, inputs)
	if err != nil {
		logger.ErrorContext(r.Context(), "service replacement failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "services replaced")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, listServicesResponse{Services: toServiceDTOs(services)})
}

func (h *CatalogHandler) DeleteService(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	name, ok := PathParamFromContext(r.Context())
	if !ok {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidServiceName)
		return
	}
	principal, _ := PrincipalFromContext(r.Context())

	logger := h.log(r.Context(), "DeleteService", "principal_id", principal.UserID, "service_name", name)
	if err := h.service.DeleteService(r.Context(), principal, name); err != nil {
		logger.ErrorContext(r.Context(), "service delete failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "service deleted")
	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

func (h *CatalogHandler) ListAddresses(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	addresses, err := h.service.ListAddresses(r.Context())
	if err != nil {
		h.log(r.Context(), "ListAddresses").ErrorContext(r.Context(), "address list failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	out := make([]addressDTO, 0, len(addresses))
	for _, address := range addresses {
		out = append(out, toAddressDTO(address))
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, listAddressesResponse{Addresses: out})
}

func (h *CatalogHandler) CreateAddress(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	var req addressDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log(r.Context(), "CreateAddress", "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode address request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	logger := h.log(r.Context(), "CreateAddress", "principal_id", principal.UserID)
	address, err := h.service.CreateAddress(r.Context(), principal, req.Label)
	if err != nil {
		logger.ErrorContext(r.Context(), "address creation failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("address_id", address.ID).InfoContext(r.Context(), "address created")
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, addressResponse{Address: toAddressDTO(address)})
}

func (h *CatalogHandler) DeleteAddress(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	id, ok := PathParamFromContext(r.Context())
	if !ok {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidAddressID)
		return
	}
	principal, _ := PrincipalFromContext(r.Context())

	logger := h.log(r.Context(), "DeleteAddress", "principal_id", principal.UserID, "address_id", id)
	if err := h.service.DeleteAddress(r.Context(), principal, id); err != nil {
		logger.ErrorContext(r.Context(), "address delete failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "address deleted")
	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

type serviceDTO struct {
	Name            string `json:"name"`
	DurationMinutes int    `json:"duration_minutes"`
}

func (s serviceDTO) toInput() application.ServiceInput {
	return application.ServiceInput{Name: s.Name, DurationMinutes: s.DurationMinutes}
}

type serviceResponse struct {
	Service serviceDTO `json:"service"`
}

type listServicesResponse struct {
	Services []serviceDTO `json:"services"`
}

func toServiceDTO(service application.Service) serviceDTO {
	return serviceDTO{Name: service.Name, DurationMinutes: service.DurationMinutes}
}

func toServiceDTOs(services []application.Service) []serviceDTO {
	out := make([]serviceDTO, 0, len(services))
	for _, service := range services {
		out = append(out, toServiceDTO(service))
	}
	return out
}

type addressDTO struct {
	ID    string `json:"id,omitempty"`
	Label string `json:"label"`
}

type addressResponse struct {
	Address addressDTO `json:"address"`
}

type listAddressesResponse struct {
	Addresses []addressDTO `json:"addresses"`
}

func toAddressDTO(address application.Address) addressDTO {
	return addressDTO{ID: address.ID, Label: address.Label}
}
