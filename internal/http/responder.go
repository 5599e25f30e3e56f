package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/example/agenda-booking/internal/application"
)

var (
	errBadRequestBody      = errors.New("Formato de requisição inválido.")
	errInvalidAgendaID     = errors.New("Identificador de agenda inválido.")
	errInvalidUserID       = errors.New("Identificador de usuário inválido.")
	errInvalidAddressID    = errors.New("Identificador de endereço inválido.")
	errInvalidServiceName  = errors.New("Nome de serviço inválido.")
	errInvalidSlug         = errors.New("Endereço de agenda inválido.")
	errInvalidCode         = errors.New("Código de agendamento inválido.")
	errMissingSessionToken = errors.New("Informe o token de autenticação.")
	errUnsupportedFormat   = errors.New("Formato de relatório não suportado.")
)

type responder struct {
	logger *slog.Logger
}

func newResponder(logger *slog.Logger) responder {
	if logger == nil {
		logger = slog.Default()
	}
	return responder{logger: logger}
}

func (r responder) writeJSON(ctx context.Context, w http.ResponseWriter, status int, payload any) {
	if w == nil {
		return
	}

	if status == http.StatusNoContent || payload == nil {
		w.WriteHeader(status)
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		r.loggerFor(ctx).ErrorContext(ctx, "failed to encode response", "error", err)
	}
}

func (r responder) writeError(ctx context.Context, w http.ResponseWriter, status int, err error) {
	message := localizedStatusMessage(status)
	if err != nil {
		if msg := strings.TrimSpace(err.Error()); msg != "" {
			message = msg
		}
		r.loggerFor(ctx).ErrorContext(ctx, "request failed", "status", status, "error", err)
	}

	r.writeJSON(ctx, w, status, errorResponse{Message: message})
}

// maxRequestBody caps JSON request bodies.
const maxRequestBody = 1 << 20

// decode reads a JSON body into dst and answers 400 when it is malformed.
func (r responder) decode(w http.ResponseWriter, req *http.Request, logger *slog.Logger, dst any) bool {
	if err := json.NewDecoder(http.MaxBytesReader(w, req.Body, maxRequestBody)).Decode(dst); err != nil {
		logger.ErrorContext(req.Context(), "failed to decode request body", "error", err, "error_kind", "bad_request")
		r.writeError(req.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return false
	}
	return true
}

// fail logs a service failure and writes the response mapped from it.
func (r responder) fail(ctx context.Context, w http.ResponseWriter, logger *slog.Logger, message string, err error) {
	logger.ErrorContext(ctx, message, "error", err, "error_kind", application.ErrorKind(err))
	r.handleServiceError(ctx, w, err)
}

func (r responder) handleServiceError(ctx context.Context, w http.ResponseWriter, err error) {
	if err == nil {
		r.writeError(ctx, w, http.StatusInternalServerError, errors.New("unknown error"))
		return
	}

	var vErr *application.ValidationError
	if errors.As(err, &vErr) {
		r.writeJSON(ctx, w, http.StatusUnprocessableEntity, errorResponse{
			ErrorCode: "VALIDATION_FAILED",
			Message:   localizedStatusMessage(http.StatusUnprocessableEntity),
			Errors:    localizeValidationErrors(vErr),
		})
		return
	}

	status, code, message := statusForError(err)
	r.writeJSON(ctx, w, status, errorResponse{ErrorCode: code, Message: message})
}

func statusForError(err error) (int, string, string) {
	switch {
	case errors.Is(err, application.ErrUnauthorized):
		return http.StatusForbidden, "AUTH_FORBIDDEN", "Você não tem permissão para executar esta operação."
	case errors.Is(err, application.ErrNotFound):
		return http.StatusNotFound, "NOT_FOUND", localizedStatusMessage(http.StatusNotFound)
	case errors.Is(err, application.ErrAlreadyExists):
		return http.StatusConflict, "ALREADY_EXISTS", "Já existe um registro com estes dados."
	case errors.Is(err, application.ErrAgendaUnavailable):
		return http.StatusForbidden, "AGENDA_UNAVAILABLE", "Esta agenda não está disponível para agendamentos."
	case errors.Is(err, application.ErrAgendaPasswordInvalid):
		return http.StatusForbidden, "AGENDA_PASSWORD_INVALID", "Senha da agenda incorreta."
	case errors.Is(err, application.ErrSlotFull):
		return http.StatusConflict, "SLOT_FULL", "Este horário já está lotado. Escolha outro horário."
	case errors.Is(err, application.ErrProtectedUser):
		return http.StatusConflict, "USER_PROTECTED", "Este usuário não pode ser removido ou rebaixado."
	case errors.Is(err, application.ErrInvalidCredentials):
		return http.StatusUnauthorized, "AUTH_INVALID_CREDENTIALS", "Login ou senha incorretos."
	case errors.Is(err, application.ErrAccountDisabled):
		return http.StatusForbidden, "AUTH_ACCOUNT_DISABLED", "Usuário inativo."
	case errors.Is(err, application.ErrSessionExpired), errors.Is(err, application.ErrSessionRevoked):
		return http.StatusUnauthorized, "AUTH_SESSION_EXPIRED", "Sessão expirada. Faça login novamente."
	}
	return http.StatusInternalServerError, "", localizedStatusMessage(http.StatusInternalServerError)
}

func (r responder) loggerFor(ctx context.Context) *slog.Logger {
	if logger := LoggerFromContext(ctx); logger != nil {
		return logger
	}
	return r.logger
}

func localizedStatusMessage(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "Requisição inválida."
	case http.StatusUnauthorized:
		return "Autenticação necessária."
	case http.StatusForbidden:
		return "Você não tem permissão para executar esta operação."
	case http.StatusNotFound:
		return "Recurso não encontrado."
	case http.StatusConflict:
		return "A requisição conflita com o estado atual do recurso."
	case http.StatusUnprocessableEntity:
		return "Verifique os dados informados."
	case http.StatusTooManyRequests:
		return "Muitas requisições. Tente novamente em instantes."
	default:
		return "Erro interno do servidor."
	}
}

func localizeValidationErrors(vErr *application.ValidationError) map[string]string {
	if vErr == nil || len(vErr.FieldErrors) == 0 {
		return nil
	}

	translated := make(map[string]string, len(vErr.FieldErrors))
	for field, msg := range vErr.FieldErrors {
		translated[field] = translateValidationMessage(msg)
	}
	return translated
}

var validationMessages = map[string]string{
	"name is required":                      "Nome é obrigatório.",
	"login is required":                     "Login é obrigatório.",
	"login must not contain spaces":         "O login não pode conter espaços.",
	"password is required":                  "Senha é obrigatória.",
	"role must be admin or viewer":          "Perfil deve ser admin ou viewer.",
	"status must be active or inactive":     "Status deve ser ativo ou inativo.",
	"slug is required":                      "O endereço da agenda é obrigatório.",
	"slug may contain only lowercase letters, digits and dashes": "O endereço da agenda aceita apenas letras minúsculas, números e hífens.",
	"date must use YYYY-MM-DD":               "Data deve estar no formato AAAA-MM-DD.",
	"end date must not be before start date": "A data final não pode ser anterior à data inicial.",
	"time must use HH:MM":                    "Horário deve estar no formato HH:MM.",
	"times must use HH:MM":                   "Horários devem estar no formato HH:MM.",
	"start must be before end":               "O início deve ser anterior ao fim.",
	"unknown weekday":                        "Dia da semana desconhecido.",
	"max per slot must be positive":          "A quantidade por horário deve ser positiva.",
	"duration must be positive":              "A duração deve ser positiva.",
	"label is required":                      "Endereço é obrigatório.",
	"service is required":                    "Serviço é obrigatório.",
	"service is not offered by this agenda":  "Serviço não oferecido por esta agenda.",
	"service catalog unavailable":            "Catálogo de serviços indisponível.",
	"date is not open for booking":           "Data não disponível para agendamento.",
	"time is not one of the agenda slots":    "Horário não disponível nesta agenda.",
	"terms must be accepted":                 "É necessário aceitar os termos.",
	"select at least one agenda":             "Selecione pelo menos uma agenda.",
}

func translateValidationMessage(message string) string {
	if translated, ok := validationMessages[message]; ok {
		return translated
	}
	switch {
	case strings.HasPrefix(message, "unknown services:"):
		return "Serviços inexistentes: " + strings.TrimSpace(strings.TrimPrefix(message, "unknown services:"))
	case strings.HasPrefix(message, "unknown agendas:"):
		return "Agendas inexistentes: " + strings.TrimSpace(strings.TrimPrefix(message, "unknown agendas:"))
	case strings.HasPrefix(message, "duplicates services["):
		return "Serviço repetido na lista."
	}
	return message
}

type errorResponse struct {
	ErrorCode string            `json:"error_code,omitempty"`
	Message   string            `json:"message"`
	Errors    map[string]string `json:"errors,omitempty"`
}
