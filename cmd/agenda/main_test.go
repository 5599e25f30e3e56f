package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/example/agenda-booking/internal/availability"
	"github.com/example/agenda-booking/internal/config"
	"github.com/example/agenda-booking/internal/testfixtures"
)

func testConfig(t *testing.T) config.Config {
	t.Helper()
	return config.Config{
		HTTPPort:            0,
		SQLiteDSN:           filepath.Join(t.TempDir(), "agenda.db"),
		SessionTTL:          time.Hour,
		AdminLogin:          "admin",
		AdminPassword:       "trocar-123",
		Timezone:            "UTC",
		Location:            time.UTC,
		BookingHorizonDays:  14,
		PublicRatePerMinute: 600,
		PublicRateBurst:     100,
		CacheTTL:            time.Minute,
		LogLevel:            "error",
	}
}

func newTestApp(t *testing.T, cfg config.Config, opts ...appOption) *httptest.Server {
	t.Helper()
	a, err := newApp(context.Background(), cfg, slog.New(slog.NewTextHandler(io.Discard, nil)), opts...)
	if err != nil {
		t.Fatalf("newApp failed: %v", err)
	}
	server := httptest.NewServer(a.Handler)
	t.Cleanup(func() {
		server.Close()
		if err := a.Close(); err != nil {
			t.Errorf("close app: %v", err)
		}
	})
	return server
}

func doJSON(t *testing.T, method, target, token string, body any, out any) int {
	t.Helper()
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequest(method, target, reader)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, target, err)
	}
	defer resp.Body.Close()
	if out != nil && resp.StatusCode < 300 && resp.StatusCode != http.StatusNoContent {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decode %s %s: %v", method, target, err)
		}
	}
	return resp.StatusCode
}

func login(t *testing.T, baseURL, user, password string) string {
	t.Helper()
	var session struct {
		Token string `json:"token"`
	}
	status := doJSON(t, http.MethodPost, baseURL+"/sessions", "", map[string]string{"login": user, "password": password}, &session)
	if status != http.StatusCreated || session.Token == "" {
		t.Fatalf("expected login to succeed, got status %d token %q", status, session.Token)
	}
	return session.Token
}

func TestAppBookingFlow(t *testing.T) {
	server := newTestApp(t, testConfig(t))

	if status := doJSON(t, http.MethodGet, server.URL+"/healthz", "", nil, nil); status != http.StatusNoContent {
		t.Fatalf("expected healthz 204, got %d", status)
	}
	if status := doJSON(t, http.MethodGet, server.URL+"/agendas", "", nil, nil); status != http.StatusUnauthorized {
		t.Fatalf("expected 401 without session, got %d", status)
	}

	token := login(t, server.URL, "admin", "trocar-123")

	var services struct {
		Services []struct {
			Name string `json:"name"`
		} `json:"services"`
	}
	if status := doJSON(t, http.MethodGet, server.URL+"/services", token, nil, &services); status != http.StatusOK {
		t.Fatalf("expected services 200, got %d", status)
	}
	if len(services.Services) == 0 {
		t.Fatalf("expected default services to be seeded")
	}

	week := map[string]any{}
	for _, key := range availability.WeekdayKeys() {
		week[key] = map[string]any{
			"active":    true,
			"intervals": []map[string]string{{"start": "08:00", "end": "12:00"}},
		}
	}
	var created struct {
		Agenda struct {
			ID   string `json:"id"`
			Slug string `json:"slug"`
		} `json:"agenda"`
	}
	status := doJSON(t, http.MethodPost, server.URL+"/agendas", token, map[string]any{
		"name":         "Atendimento RG",
		"weekly_hours": week,
		"services":     []string{"23 - RG"},
		"max_per_slot": 1,
		"address":      "Rua A, 10",
	}, &created)
	if status != http.StatusCreated {
		t.Fatalf("expected agenda creation 201, got %d", status)
	}
	if created.Agenda.Slug != "atendimento-rg" {
		t.Fatalf("expected derived slug, got %q", created.Agenda.Slug)
	}

	base := server.URL + "/public/agendas/" + created.Agenda.Slug
	var days struct {
		Days []struct {
			Date string `json:"date"`
		} `json:"days"`
	}
	if status := doJSON(t, http.MethodGet, base+"/days", "", nil, &days); status != http.StatusOK {
		t.Fatalf("expected days 200, got %d", status)
	}
	if len(days.Days) == 0 {
		t.Fatalf("expected bookable days")
	}
	date := days.Days[len(days.Days)-1].Date

	query := url.Values{"date": {date}, "service": {"23 - RG"}}
	var slots struct {
		Slots []string `json:"slots"`
	}
	if status := doJSON(t, http.MethodGet, base+"/slots?"+query.Encode(), "", nil, &slots); status != http.StatusOK {
		t.Fatalf("expected slots 200, got %d", status)
	}
	if len(slots.Slots) != 16 || slots.Slots[0] != "08:00" {
		t.Fatalf("expected 16 quarter-hour slots from 08:00, got %v", slots.Slots)
	}

	booking := map[string]any{
		"date":           date,
		"time":           "08:00",
		"service":        "23 - RG",
		"name":           "Maria",
		"phone":          "42999990000",
		"accepted_terms": true,
	}
	var booked struct {
		Appointment struct {
			Code       string `json:"code"`
			AgendaName string `json:"agenda_name"`
		} `json:"appointment"`
	}
	if status := doJSON(t, http.MethodPost, base+"/appointments", "", booking, &booked); status != http.StatusCreated {
		t.Fatalf("expected booking 201, got %d", status)
	}
	if booked.Appointment.Code == "" || booked.Appointment.AgendaName != "Atendimento RG" {
		t.Fatalf("unexpected appointment %+v", booked.Appointment)
	}

	if status := doJSON(t, http.MethodPost, base+"/appointments", "", booking, nil); status != http.StatusConflict {
		t.Fatalf("expected full slot 409, got %d", status)
	}

	if status := doJSON(t, http.MethodGet, base+"/slots?"+query.Encode(), "", nil, &slots); status != http.StatusOK {
		t.Fatalf("expected slots 200, got %d", status)
	}
	for _, slot := range slots.Slots {
		if slot == "08:00" {
			t.Fatalf("expected booked slot to disappear, got %v", slots.Slots)
		}
	}

	code := server.URL + "/public/appointments/" + booked.Appointment.Code
	if status := doJSON(t, http.MethodGet, code, "", nil, nil); status != http.StatusOK {
		t.Fatalf("expected appointment lookup 200, got %d", status)
	}

	booking["name"] = "Maria Aparecida"
	var edited struct {
		Appointment struct {
			Code string `json:"code"`
			Name string `json:"name"`
		} `json:"appointment"`
	}
	if status := doJSON(t, http.MethodPut, code, "", booking, &edited); status != http.StatusOK {
		t.Fatalf("expected edit of the full slot it holds to succeed, got %d", status)
	}
	if edited.Appointment.Code != booked.Appointment.Code || edited.Appointment.Name != "Maria Aparecida" {
		t.Fatalf("unexpected edited appointment %+v", edited.Appointment)
	}
	if status := doJSON(t, http.MethodDelete, code, "", nil, nil); status != http.StatusNoContent {
		t.Fatalf("expected cancellation 204, got %d", status)
	}
	if status := doJSON(t, http.MethodGet, code, "", nil, nil); status != http.StatusNotFound {
		t.Fatalf("expected cancelled appointment 404, got %d", status)
	}
}

func TestNewAppSeedsAdministratorOnce(t *testing.T) {
	cfg := testConfig(t)

	first, err := newApp(context.Background(), cfg, nil)
	if err != nil {
		t.Fatalf("first start failed: %v", err)
	}
	if err := first.Close(); err != nil {
		t.Fatalf("close first app: %v", err)
	}

	cfg.AdminPassword = "outra-senha"
	server := newTestApp(t, cfg)

	status := doJSON(t, http.MethodPost, server.URL+"/sessions", "", map[string]string{"login": "admin", "password": "outra-senha"}, nil)
	if status != http.StatusUnauthorized {
		t.Fatalf("expected the original password to be kept, got status %d", status)
	}
	login(t, server.URL, "admin", "trocar-123")
}

func TestNewAppFallsBackToMemoryCache(t *testing.T) {
	cfg := testConfig(t)
	cfg.RedisAddr = "127.0.0.1:1"

	server := newTestApp(t, cfg)
	if status := doJSON(t, http.MethodGet, server.URL+"/healthz", "", nil, nil); status != http.StatusNoContent {
		t.Fatalf("expected healthz 204, got %d", status)
	}
}

func TestAppUsesInjectedClockAndIDs(t *testing.T) {
	clock := testfixtures.NewClock(time.Time{})
	ids := testfixtures.NewIDGenerator("rec")
	server := newTestApp(t, testConfig(t), withClock(clock.Now), withIDs(ids.Next))

	token := login(t, server.URL, "admin", "trocar-123")

	week := map[string]any{}
	for _, key := range availability.WeekdayKeys() {
		week[key] = map[string]any{
			"active":    true,
			"intervals": []map[string]string{{"start": "09:00", "end": "10:00"}},
		}
	}
	var created struct {
		Agenda struct {
			ID string `json:"id"`
		} `json:"agenda"`
	}
	status := doJSON(t, http.MethodPost, server.URL+"/agendas", token, map[string]any{
		"name":         "Protocolo",
		"weekly_hours": week,
		"services":     []string{"23 - RG"},
		"max_per_slot": 2,
	}, &created)
	if status != http.StatusCreated {
		t.Fatalf("expected agenda creation 201, got %d", status)
	}
	if !strings.HasPrefix(created.Agenda.ID, "rec-") {
		t.Fatalf("expected generated id, got %q", created.Agenda.ID)
	}

	clock.Advance(2 * time.Hour)
	if status := doJSON(t, http.MethodGet, server.URL+"/agendas", token, nil, nil); status != http.StatusUnauthorized {
		t.Fatalf("expected expired session 401, got %d", status)
	}
	login(t, server.URL, "admin", "trocar-123")
}

func TestRandomHex(t *testing.T) {
	if got := randomHex(8); len(got) != 16 {
		t.Fatalf("expected 16 hex characters, got %q", got)
	}
	if got := randomHex(0); len(got) != 32 {
		t.Fatalf("expected default length, got %q", got)
	}
}
