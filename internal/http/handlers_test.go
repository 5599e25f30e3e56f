package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/example/agenda-booking/internal/application"
)

var (
	testAdmin  = application.Principal{UserID: "admin-1", IsAdmin: true, Role: application.RoleAdmin}
	testViewer = application.Principal{UserID: "viewer-1", Role: application.RoleViewer}
)

type tokenValidator map[string]application.Principal

func (v tokenValidator) ValidateSession(_ context.Context, token string) (application.Principal, error) {
	principal, ok := v[token]
	if !ok {
		return application.Principal{}, application.ErrSessionExpired
	}
	return principal, nil
}

type testServer struct {
	handler  http.Handler
	auth     *fakeAuthService
	booking  *fakeBookingService
	agendas  *fakeAgendaService
	catalog  *fakeCatalogService
	users    *fakeUserService
	reports  *fakeReportService
	datasets *fakeDatasetService
}

func newTestServer() *testServer {
	logger := discardLogger()
	s := &testServer{
		auth:     &fakeAuthService{},
		booking:  &fakeBookingService{},
		agendas:  &fakeAgendaService{},
		catalog:  &fakeCatalogService{},
		users:    &fakeUserService{},
		reports:  &fakeReportService{},
		datasets: &fakeDatasetService{},
	}
	validator := tokenValidator{"admin-token": testAdmin, "viewer-token": testViewer}
	s.handler = NewRouter(RouterConfig{
		Auth:    NewAuthHandler(s.auth, logger),
		Agendas: NewAgendaHandler(s.agendas, logger),
		Public:  NewPublicHandler(s.booking, logger),
		Catalog: NewCatalogHandler(s.catalog, logger),
		Users:   NewUserHandler(s.users, logger),
		Reports: NewReportHandler(s.reports, s.datasets, time.UTC, logger),
		Session: RequireSession(validator, logger),
	})
	return s
}

func (s *testServer) do(t *testing.T, method, target, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, target, reader)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) errorResponse {
	t.Helper()
	var resp errorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode error body %q: %v", rec.Body.String(), err)
	}
	return resp
}

func TestAuthHandlers(t *testing.T) {
	t.Parallel()

	t.Run("login issues session token via cookie and header", func(t *testing.T) {
		t.Parallel()
		s := newTestServer()
		expires := time.Date(2026, 3, 3, 12, 0, 0, 0, time.UTC)
		s.auth.result = application.AuthenticateResult{
			User:    application.User{ID: "user-1", Name: "Ana", Login: "ana", Role: application.RoleViewer, Status: application.StatusActive},
			Session: application.Session{Token: "tok-123", ExpiresAt: expires},
		}

		rec := s.do(t, http.MethodPost, "/sessions", "", map[string]string{"login": " ANA ", "password": "s3nha"})
		if rec.Code != http.StatusCreated {
			t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
		}
		if s.auth.params.Login != "ana" || s.auth.params.Password != "s3nha" {
			t.Fatalf("unexpected params %+v", s.auth.params)
		}
		if rec.Header().Get("X-Session-Token") != "tok-123" {
			t.Fatalf("expected session header, got %q", rec.Header().Get("X-Session-Token"))
		}
		cookies := rec.Result().Cookies()
		if len(cookies) != 1 || cookies[0].Name != "session_token" || cookies[0].Value != "tok-123" {
			t.Fatalf("unexpected cookies %+v", cookies)
		}
		var resp loginResponse
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if resp.Token != "tok-123" || resp.User.Login != "ana" {
			t.Fatalf("unexpected response %+v", resp)
		}
	})

	t.Run("invalid credentials map to 401", func(t *testing.T) {
		t.Parallel()
		s := newTestServer()
		s.auth.err = application.ErrInvalidCredentials

		rec := s.do(t, http.MethodPost, "/sessions", "", map[string]string{"login": "ana", "password": "x"})
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %d", rec.Code)
		}
		if resp := decodeError(t, rec); resp.ErrorCode != "AUTH_INVALID_CREDENTIALS" {
			t.Fatalf("unexpected error code %q", resp.ErrorCode)
		}
	})

	t.Run("malformed body is a bad request", func(t *testing.T) {
		t.Parallel()
		s := newTestServer()
		req := httptest.NewRequest(http.MethodPost, "/sessions", strings.NewReader("{"))
		rec := httptest.NewRecorder()
		s.handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})

	t.Run("logout revokes the session", func(t *testing.T) {
		t.Parallel()
		s := newTestServer()
		rec := s.do(t, http.MethodDelete, "/sessions/current", "viewer-token", nil)
		if rec.Code != http.StatusNoContent {
			t.Fatalf("expected 204, got %d", rec.Code)
		}
		if len(s.auth.revoked) != 1 || s.auth.revoked[0] != "viewer-token" {
			t.Fatalf("expected viewer-token revoked, got %v", s.auth.revoked)
		}
	})

	t.Run("refresh rotates the token", func(t *testing.T) {
		t.Parallel()
		s := newTestServer()
		s.auth.refreshed = application.RefreshSessionResult{Session: application.Session{
			UserID:    "viewer-1",
			Token:     "tok-456",
			ExpiresAt: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		}}

		rec := s.do(t, http.MethodPut, "/sessions/current", "viewer-token", nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		if s.auth.refresh.Token != "viewer-token" {
			t.Fatalf("expected current token to be refreshed, got %q", s.auth.refresh.Token)
		}
		if got := rec.Header().Get("X-Session-Token"); got != "tok-456" {
			t.Fatalf("expected rotated token header, got %q", got)
		}
		var resp sessionResponse
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if resp.Token != "tok-456" || resp.ExpiresAt != "2026-03-01T12:00:00Z" {
			t.Fatalf("unexpected response %+v", resp)
		}
	})

	t.Run("current session echoes the principal", func(t *testing.T) {
		t.Parallel()
		s := newTestServer()
		rec := s.do(t, http.MethodGet, "/sessions/current", "admin-token", nil)
		var resp principalDTO
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if rec.Code != http.StatusOK || resp.UserID != "admin-1" || !resp.IsAdmin {
			t.Fatalf("unexpected response %d %+v", rec.Code, resp)
		}
	})
}

func TestPublicHandlers(t *testing.T) {
	t.Parallel()

	t.Run("agenda card", func(t *testing.T) {
		t.Parallel()
		s := newTestServer()
		s.booking.agenda = application.PublicAgenda{
			Slug:              "rg-centro",
			Name:              "RG Centro",
			Services:          []application.Service{{Name: "23 - RG", DurationMinutes: 15}},
			MaxPerSlot:        2,
			PasswordProtected: true,
		}

		rec := s.do(t, http.MethodGet, "/public/agendas/rg-centro", "", nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		var resp publicAgendaDTO
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if s.booking.slug != "rg-centro" || resp.Name != "RG Centro" || !resp.PasswordProtected || resp.Services[0].DurationMinutes != 15 {
			t.Fatalf("unexpected card %+v", resp)
		}
	})

	t.Run("slots pass query parameters and never return null", func(t *testing.T) {
		t.Parallel()
		s := newTestServer()
		rec := s.do(t, http.MethodGet, "/public/agendas/rg-centro/slots?date=2026-03-02&service=23+-+RG", "", nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		if s.booking.date != "2026-03-02" || s.booking.service != "23 - RG" {
			t.Fatalf("unexpected arguments date=%q service=%q", s.booking.date, s.booking.service)
		}
		if !strings.Contains(rec.Body.String(), `"slots":[]`) {
			t.Fatalf("expected empty slots array, got %s", rec.Body.String())
		}
	})

	t.Run("days", func(t *testing.T) {
		t.Parallel()
		s := newTestServer()
		s.booking.days = []application.BookableDay{{Date: "2026-03-02", Weekday: "mon"}}
		rec := s.do(t, http.MethodGet, "/public/agendas/rg-centro/days", "", nil)
		var resp listDaysResponse
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if len(resp.Days) != 1 || resp.Days[0].Weekday != "mon" {
			t.Fatalf("unexpected days %+v", resp)
		}
	})

	t.Run("booking success", func(t *testing.T) {
		t.Parallel()
		s := newTestServer()
		s.booking.appointment = application.Appointment{Code: "AB12CD3", Date: "2026-03-02", Time: "08:15", Name: "Ana"}

		rec := s.do(t, http.MethodPost, "/public/agendas/rg-centro/appointments", "", map[string]any{
			"date": "2026-03-02", "time": "08:15", "service": "23 - RG", "name": "Ana", "accepted_terms": true,
		})
		if rec.Code != http.StatusCreated {
			t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
		}
		if !s.booking.input.AcceptedTerms || s.booking.input.Time != "08:15" {
			t.Fatalf("unexpected input %+v", s.booking.input)
		}
		var resp appointmentResponse
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if resp.Appointment.Code != "AB12CD3" {
			t.Fatalf("unexpected appointment %+v", resp)
		}
	})

	t.Run("booking failures map to status codes", func(t *testing.T) {
		t.Parallel()
		cases := []struct {
			err    error
			status int
			code   string
		}{
			{application.ErrSlotFull, http.StatusConflict, "SLOT_FULL"},
			{application.ErrAgendaPasswordInvalid, http.StatusForbidden, "AGENDA_PASSWORD_INVALID"},
			{application.ErrAgendaUnavailable, http.StatusForbidden, "AGENDA_UNAVAILABLE"},
			{application.ErrNotFound, http.StatusNotFound, "NOT_FOUND"},
			{errors.New("boom"), http.StatusInternalServerError, ""},
		}
		for _, tc := range cases {
			s := newTestServer()
			s.booking.err = tc.err
			rec := s.do(t, http.MethodPost, "/public/agendas/rg-centro/appointments", "", map[string]any{"date": "2026-03-02"})
			if rec.Code != tc.status {
				t.Fatalf("%v: expected %d, got %d", tc.err, tc.status, rec.Code)
			}
			if resp := decodeError(t, rec); resp.ErrorCode != tc.code {
				t.Fatalf("%v: expected code %q, got %q", tc.err, tc.code, resp.ErrorCode)
			}
		}
	})

	t.Run("validation errors are localized", func(t *testing.T) {
		t.Parallel()
		s := newTestServer()
		s.booking.err = &application.ValidationError{FieldErrors: map[string]string{
			"terms":    "terms must be accepted",
			"services": "unknown services: X",
		}}
		rec := s.do(t, http.MethodPost, "/public/agendas/rg-centro/appointments", "", map[string]any{})
		if rec.Code != http.StatusUnprocessableEntity {
			t.Fatalf("expected 422, got %d", rec.Code)
		}
		resp := decodeError(t, rec)
		if resp.Errors["terms"] != "É necessário aceitar os termos." {
			t.Fatalf("unexpected terms message %q", resp.Errors["terms"])
		}
		if resp.Errors["services"] != "Serviços inexistentes: X" {
			t.Fatalf("unexpected services message %q", resp.Errors["services"])
		}
	})

	t.Run("appointment lookup and cancellation", func(t *testing.T) {
		t.Parallel()
		s := newTestServer()
		s.booking.appointment = application.Appointment{Code: "AB12CD3"}
		if rec := s.do(t, http.MethodGet, "/public/appointments/ab12cd3", "", nil); rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		if rec := s.do(t, http.MethodDelete, "/public/appointments/ab12cd3", "", nil); rec.Code != http.StatusNoContent {
			t.Fatalf("expected 204, got %d", rec.Code)
		}
		if len(s.booking.cancelled) != 1 || s.booking.cancelled[0] != "ab12cd3" {
			t.Fatalf("unexpected cancellations %v", s.booking.cancelled)
		}
	})

	t.Run("appointment edit keeps the code", func(t *testing.T) {
		t.Parallel()
		s := newTestServer()
		s.booking.appointment = application.Appointment{Code: "AB12CD3", Time: "09:30"}
		rec := s.do(t, http.MethodPut, "/public/appointments/ab12cd3", "", map[string]any{
			"date": "2026-03-02", "time": "09:30", "service": "23 - RG", "name": "Maria", "accepted_terms": true,
		})
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		if s.booking.updated != "ab12cd3" || s.booking.input.Time != "09:30" || !s.booking.input.AcceptedTerms {
			t.Fatalf("unexpected update call %q %+v", s.booking.updated, s.booking.input)
		}
		var resp appointmentResponse
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if resp.Appointment.Code != "AB12CD3" || resp.Appointment.Time != "09:30" {
			t.Fatalf("unexpected appointment %+v", resp.Appointment)
		}

		s.booking.err = application.ErrSlotFull
		if rec := s.do(t, http.MethodPut, "/public/appointments/ab12cd3", "", map[string]any{"time": "10:00"}); rec.Code != http.StatusConflict {
			t.Fatalf("expected 409 for a full slot, got %d", rec.Code)
		}
	})

	t.Run("unknown sub-resources and methods", func(t *testing.T) {
		t.Parallel()
		s := newTestServer()
		if rec := s.do(t, http.MethodGet, "/public/agendas/rg-centro/other", "", nil); rec.Code != http.StatusNotFound {
			t.Fatalf("expected 404, got %d", rec.Code)
		}
		rec := s.do(t, http.MethodPut, "/public/agendas/rg-centro/appointments", "", nil)
		if rec.Code != http.StatusMethodNotAllowed || rec.Header().Get("Allow") != http.MethodPost {
			t.Fatalf("expected 405 with Allow, got %d %q", rec.Code, rec.Header().Get("Allow"))
		}
	})
}

func TestAgendaHandlers(t *testing.T) {
	t.Parallel()

	t.Run("require a session", func(t *testing.T) {
		t.Parallel()
		s := newTestServer()
		rec := s.do(t, http.MethodGet, "/agendas", "", nil)
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %d", rec.Code)
		}
		if rec := s.do(t, http.MethodGet, "/agendas", "stale", nil); rec.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401 for unknown token, got %d", rec.Code)
		}
	})

	t.Run("list forwards filters", func(t *testing.T) {
		t.Parallel()
		s := newTestServer()
		s.agendas.agendas = []application.Agenda{{ID: "a", Name: "RG", Slug: "rg", PasswordHash: "x"}}
		rec := s.do(t, http.MethodGet, "/agendas?q=rg&status=active&service=23+-+RG", "viewer-token", nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		filter := s.agendas.listParams.Filter
		if filter.Query != "rg" || filter.Status != application.StatusActive || filter.Service != "23 - RG" {
			t.Fatalf("unexpected filter %+v", filter)
		}
		var resp listAgendasResponse
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if len(resp.Agendas) != 1 || !resp.Agendas[0].PasswordProtected {
			t.Fatalf("unexpected agendas %+v", resp)
		}
		if strings.Contains(rec.Body.String(), "password_hash") {
			t.Fatalf("password hash leaked: %s", rec.Body.String())
		}
	})

	t.Run("create converts weekly hours", func(t *testing.T) {
		t.Parallel()
		s := newTestServer()
		rec := s.do(t, http.MethodPost, "/agendas", "admin-token", map[string]any{
			"name": "RG Centro",
			"weekly_hours": map[string]any{
				"mon": map[string]any{"active": true, "intervals": []map[string]string{{"start": "08:00", "end": "12:00"}}},
			},
			"max_per_slot": 2,
		})
		if rec.Code != http.StatusCreated {
			t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
		}
		input := s.agendas.createParams.Input
		if s.agendas.createParams.Principal.UserID != "admin-1" || input.MaxPerSlot != 2 {
			t.Fatalf("unexpected params %+v", s.agendas.createParams)
		}
		if mon := input.WeeklyHours["mon"]; !mon.Active || mon.Intervals[0].End != "12:00" {
			t.Fatalf("unexpected weekly hours %+v", input.WeeklyHours)
		}
	})

	t.Run("forbidden for viewers", func(t *testing.T) {
		t.Parallel()
		s := newTestServer()
		s.agendas.err = application.ErrUnauthorized
		rec := s.do(t, http.MethodDelete, "/agendas/a", "viewer-token", nil)
		if rec.Code != http.StatusForbidden {
			t.Fatalf("expected 403, got %d", rec.Code)
		}
		if resp := decodeError(t, rec); resp.ErrorCode != "AUTH_FORBIDDEN" {
			t.Fatalf("unexpected code %q", resp.ErrorCode)
		}
	})

	t.Run("duplicate slug is a conflict", func(t *testing.T) {
		t.Parallel()
		s := newTestServer()
		s.agendas.err = application.ErrAlreadyExists
		rec := s.do(t, http.MethodPut, "/agendas/a", "admin-token", map[string]any{"name": "x"})
		if rec.Code != http.StatusConflict {
			t.Fatalf("expected 409, got %d", rec.Code)
		}
		if s.agendas.updateParams.AgendaID != "a" {
			t.Fatalf("expected agenda id from path, got %q", s.agendas.updateParams.AgendaID)
		}
	})

	t.Run("get missing agenda", func(t *testing.T) {
		t.Parallel()
		s := newTestServer()
		if rec := s.do(t, http.MethodGet, "/agendas/missing", "admin-token", nil); rec.Code != http.StatusNotFound {
			t.Fatalf("expected 404, got %d", rec.Code)
		}
	})
}

func TestCatalogHandlers(t *testing.T) {
	t.Parallel()

	t.Run("delete decodes service names", func(t *testing.T) {
		t.Parallel()
		s := newTestServer()
		rec := s.do(t, http.MethodDelete, "/services/23%20-%20RG", "admin-token", nil)
		if rec.Code != http.StatusNoContent {
			t.Fatalf("expected 204, got %d", rec.Code)
		}
		if s.catalog.deletedService != "23 - RG" {
			t.Fatalf("unexpected service name %q", s.catalog.deletedService)
		}
	})

	t.Run("replace services", func(t *testing.T) {
		t.Parallel()
		s := newTestServer()
		rec := s.do(t, http.MethodPut, "/services", "admin-token", map[string]any{
			"services": []map[string]any{{"name": "23 - RG", "duration_minutes": 15}, {"name": "01 - Alimentos", "duration_minutes": 60}},
		})
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		if len(s.catalog.replaced) != 2 || s.catalog.replaced[1].DurationMinutes != 60 {
			t.Fatalf("unexpected replacement %+v", s.catalog.replaced)
		}
	})

	t.Run("addresses", func(t *testing.T) {
		t.Parallel()
		s := newTestServer()
		rec := s.do(t, http.MethodPost, "/addresses", "admin-token", map[string]string{"label": "Rua B"})
		if rec.Code != http.StatusCreated || !strings.Contains(rec.Body.String(), "Rua B") {
			t.Fatalf("unexpected response %d %s", rec.Code, rec.Body.String())
		}
		if rec := s.do(t, http.MethodGet, "/addresses", "viewer-token", nil); rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
	})
}

func TestUserHandlers(t *testing.T) {
	t.Parallel()

	t.Run("require administrator authorization", func(t *testing.T) {
		t.Parallel()
		s := newTestServer()
		if rec := s.do(t, http.MethodGet, "/users", "viewer-token", nil); rec.Code != http.StatusForbidden {
			t.Fatalf("expected 403, got %d", rec.Code)
		}
		rec := s.do(t, http.MethodGet, "/users", "admin-token", nil)
		if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"users":[]`) {
			t.Fatalf("unexpected response %d %s", rec.Code, rec.Body.String())
		}
	})

	t.Run("protected users are a conflict", func(t *testing.T) {
		t.Parallel()
		s := newTestServer()
		s.users.err = application.ErrProtectedUser
		rec := s.do(t, http.MethodDelete, "/users/seed-admin", "admin-token", nil)
		if rec.Code != http.StatusConflict {
			t.Fatalf("expected 409, got %d", rec.Code)
		}
	})

	t.Run("return localized validation errors", func(t *testing.T) {
		t.Parallel()
		s := newTestServer()
		s.users.err = &application.ValidationError{FieldErrors: map[string]string{"login": "login is required"}}
		rec := s.do(t, http.MethodPost, "/users", "admin-token", map[string]string{"name": "Ana"})
		if rec.Code != http.StatusUnprocessableEntity {
			t.Fatalf("expected 422, got %d", rec.Code)
		}
		if resp := decodeError(t, rec); resp.Errors["login"] != "Login é obrigatório." {
			t.Fatalf("unexpected message %q", resp.Errors["login"])
		}
	})
}

func TestReportHandlers(t *testing.T) {
	t.Parallel()

	report := application.Report{
		GeneratedAt: time.Date(2026, 3, 10, 15, 0, 0, 0, time.UTC),
		Total:       1,
		Sections: []application.ReportSection{{
			AgendaID:     "a",
			AgendaName:   "RG Centro",
			Appointments: []application.Appointment{{Code: "C1", Date: "2026-03-02", Time: "08:00", Name: "Ana"}},
		}},
	}

	t.Run("json report with agenda selection", func(t *testing.T) {
		t.Parallel()
		s := newTestServer()
		s.reports.report = report
		rec := s.do(t, http.MethodGet, "/reports/appointments?agenda_ids=a,b&agenda_ids=c&from=2026-03-01", "viewer-token", nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		params := s.reports.params
		if strings.Join(params.AgendaIDs, "|") != "a|b|c" || params.From != "2026-03-01" {
			t.Fatalf("unexpected params %+v", params)
		}
		var resp reportDTO
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if resp.Total != 1 || resp.Sections[0].Appointments[0].Code != "C1" {
			t.Fatalf("unexpected report %+v", resp)
		}
	})

	t.Run("pdf report", func(t *testing.T) {
		t.Parallel()
		s := newTestServer()
		s.reports.report = report
		rec := s.do(t, http.MethodGet, "/reports/appointments?format=pdf", "viewer-token", nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		if rec.Header().Get("Content-Type") != "application/pdf" {
			t.Fatalf("unexpected content type %q", rec.Header().Get("Content-Type"))
		}
		if !bytes.HasPrefix(rec.Body.Bytes(), []byte("%PDF-")) {
			t.Fatal("expected a PDF body")
		}
	})

	t.Run("unknown format", func(t *testing.T) {
		t.Parallel()
		s := newTestServer()
		if rec := s.do(t, http.MethodGet, "/reports/appointments?format=xlsx", "viewer-token", nil); rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})

	t.Run("dataset is admin only", func(t *testing.T) {
		t.Parallel()
		s := newTestServer()
		if rec := s.do(t, http.MethodGet, "/data", "viewer-token", nil); rec.Code != http.StatusForbidden {
			t.Fatalf("expected 403, got %d", rec.Code)
		}
		rec := s.do(t, http.MethodGet, "/data", "admin-token", nil)
		if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"appointments":[]`) {
			t.Fatalf("unexpected response %d %s", rec.Code, rec.Body.String())
		}
	})
}
