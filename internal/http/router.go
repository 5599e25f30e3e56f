package http

import (
	"context"
	"net/http"
	"strings"
)

type RouterConfig struct {
	Auth    *AuthHandler
	Agendas *AgendaHandler
	Public  *PublicHandler
	Catalog *CatalogHandler
	Users   *UserHandler
	Reports *ReportHandler
	// Session guards every non-public route.
	Session func(http.Handler) http.Handler
	// PublicLimit wraps the public routes.
	PublicLimit func(http.Handler) http.Handler
	// Health reports whether the backing storage answers; nil always passes.
	Health      func(ctx context.Context) error
	Middleware  []func(http.Handler) http.Handler
}

func NewRouter(cfg RouterConfig) http.Handler {
	mux := http.NewServeMux()

	private := func(h http.HandlerFunc) http.Handler {
		if cfg.Session == nil {
			return h
		}
		return cfg.Session(h)
	}
	public := func(h http.HandlerFunc) http.Handler {
		if cfg.PublicLimit == nil {
			return h
		}
		return cfg.PublicLimit(h)
	}

	if cfg.Auth != nil {
		mux.HandleFunc("/sessions", func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost {
				methodNotAllowed(w, http.MethodPost)
				return
			}
			cfg.Auth.CreateSession(w, r)
		})
		mux.Handle("/sessions/current", private(func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodGet:
				cfg.Auth.CurrentSession(w, r)
			case http.MethodPut:
				cfg.Auth.RefreshCurrentSession(w, r)
			case http.MethodDelete:
				cfg.Auth.DeleteCurrentSession(w, r)
			default:
				methodNotAllowed(w, http.MethodGet, http.MethodPut, http.MethodDelete)
			}
		}))
	}

	if cfg.Public != nil {
		mux.Handle("/public/agendas/", public(func(w http.ResponseWriter, r *http.Request) {
			parts := splitPath(r.URL.Path, "/public/agendas/")
			if len(parts) == 0 || len(parts) > 2 {
				http.NotFound(w, r)
				return
			}
			r = r.WithContext(ContextWithPathParam(r.Context(), parts[0]))
			action := ""
			if len(parts) == 2 {
				action = parts[1]
			}
			switch action {
			case "":
				if r.Method != http.MethodGet {
					methodNotAllowed(w, http.MethodGet)
					return
				}
				cfg.Public.GetAgenda(w, r)
			case "days":
				if r.Method != http.MethodGet {
					methodNotAllowed(w, http.MethodGet)
					return
				}
				cfg.Public.ListDays(w, r)
			case "slots":
				if r.Method != http.MethodGet {
					methodNotAllowed(w, http.MethodGet)
					return
				}
				cfg.Public.ListSlots(w, r)
			case "appointments":
				if r.Method != http.MethodPost {
					methodNotAllowed(w, http.MethodPost)
					return
				}
				cfg.Public.Book(w, r)
			default:
				http.NotFound(w, r)
			}
		}))
		mux.Handle("/public/appointments/", public(func(w http.ResponseWriter, r *http.Request) {
			parts := splitPath(r.URL.Path, "/public/appointments/")
			if len(parts) != 1 {
				http.NotFound(w, r)
				return
			}
			r = r.WithContext(ContextWithPathParam(r.Context(), parts[0]))
			switch r.Method {
			case http.MethodGet:
				cfg.Public.GetAppointment(w, r)
			case http.MethodPut:
				cfg.Public.UpdateAppointment(w, r)
			case http.MethodDelete:
				cfg.Public.CancelAppointment(w, r)
			default:
				methodNotAllowed(w, http.MethodGet, http.MethodPut, http.MethodDelete)
			}
		}))
	}

	if cfg.Agendas != nil {
		mux.Handle("/agendas", private(func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodGet:
				cfg.Agendas.List(w, r)
			case http.MethodPost:
				cfg.Agendas.Create(w, r)
			default:
				methodNotAllowed(w, http.MethodGet, http.MethodPost)
			}
		}))
		mux.Handle("/agendas/", private(func(w http.ResponseWriter, r *http.Request) {
			id := strings.TrimPrefix(r.URL.Path, "/agendas/")
			if id == "" || strings.Contains(id, "/") {
				http.NotFound(w, r)
				return
			}
			r = r.WithContext(ContextWithPathParam(r.Context(), id))
			switch r.Method {
			case http.MethodGet:
				cfg.Agendas.Get(w, r)
			case http.MethodPut:
				cfg.Agendas.Update(w, r)
			case http.MethodDelete:
				cfg.Agendas.Delete(w, r)
			default:
				methodNotAllowed(w, http.MethodGet, http.MethodPut, http.MethodDelete)
			}
		}))
	}

	if cfg.Catalog != nil {
		mux.Handle("/services", private(func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodGet:
				cfg.Catalog.ListServices(w, r)
			case http.MethodPost:
				cfg.Catalog.CreateService(w, r)
			case http.MethodPut:
				cfg.Catalog.ReplaceServices(w, r)
			default:
				methodNotAllowed(w, http.MethodGet, http.MethodPost, http.MethodPut)
			}
		}))
		mux.Handle("/services/", private(func(w http.ResponseWriter, r *http.Request) {
			name := strings.TrimPrefix(r.URL.Path, "/services/")
			if name == "" {
				http.NotFound(w, r)
				return
			}
			r = r.WithContext(ContextWithPathParam(r.Context(), name))
			if r.Method != http.MethodDelete {
				methodNotAllowed(w, http.MethodDelete)
				return
			}
			cfg.Catalog.DeleteService(w, r)
		}))
		mux.Handle("/addresses", private(func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodGet:
				cfg.Catalog.ListAddresses(w, r)
			case http.MethodPost:
				cfg.Catalog.CreateAddress(w, r)
			default:
				methodNotAllowed(w, http.MethodGet, http.MethodPost)
			}
		}))
		mux.Handle("/addresses/", private(func(w http.ResponseWriter, r *http.Request) {
			id := strings.TrimPrefix(r.URL.Path, "/addresses/")
			if id == "" || strings.Contains(id, "/") {
				http.NotFound(w, r)
				return
			}
			r = r.WithContext(ContextWithPathParam(r.Context(), id))
			if r.Method != http.MethodDelete {
				methodNotAllowed(w, http.MethodDelete)
				return
			}
			cfg.Catalog.DeleteAddress(w, r)
		}))
	}

	if cfg.Users != nil {
		mux.Handle("/users", private(func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodGet:
				cfg.Users.List(w, r)
			case http.MethodPost:
				cfg.Users.Create(w, r)
			default:
				methodNotAllowed(w, http.MethodGet, http.MethodPost)
			}
		}))
		mux.Handle("/users/", private(func(w http.ResponseWriter, r *http.Request) {
			id := strings.TrimPrefix(r.URL.Path, "/users/")
			if id == "" || strings.Contains(id, "/") {
				http.NotFound(w, r)
				return
			}
			r = r.WithContext(ContextWithPathParam(r.Context(), id))
			switch r.Method {
			case http.MethodPut:
				cfg.Users.Update(w, r)
			case http.MethodDelete:
				cfg.Users.Delete(w, r)
			default:
				methodNotAllowed(w, http.MethodPut, http.MethodDelete)
			}
		}))
	}

	if cfg.Reports != nil {
		mux.Handle("/reports/appointments", private(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodGet {
				methodNotAllowed(w, http.MethodGet)
				return
			}
			cfg.Reports.Appointments(w, r)
		}))
		mux.Handle("/data", private(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodGet {
				methodNotAllowed(w, http.MethodGet)
				return
			}
			cfg.Reports.Dataset(w, r)
		}))
	}

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if cfg.Health != nil {
			if err := cfg.Health(r.Context()); err != nil {
				defaultLogger(LoggerFromContext(r.Context())).ErrorContext(r.Context(), "health check failed", "error", err)
				w.WriteHeader(http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusNoContent)
	})

	var handler http.Handler = mux
	if len(cfg.Middleware) > 0 {
		for i := len(cfg.Middleware) - 1; i >= 0; i-- {
			if cfg.Middleware[i] != nil {
				handler = cfg.Middleware[i](handler)
			}
		}
	}

	return handler
}

// splitPath returns the non-empty segments of path after prefix.
func splitPath(path, prefix string) []string {
	rest := strings.Trim(strings.TrimPrefix(path, prefix), "/")
	if rest == "" {
		return nil
	}
	return strings.Split(rest, "/")
}

func methodNotAllowed(w http.ResponseWriter, allowed ...string) {
	if len(allowed) > 0 {
		w.Header().Set("Allow", strings.Join(allowed, ", "))
	}
	http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
}
