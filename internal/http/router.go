package http

import (
	"net/http"
	"strings"
)

type RouterConfig struct {
	Spaces       *SpaceHandler
	Reservations *ReservationHandler
	Rentals      *RentalHandler
	// AdminGuard wraps mutating catalog routes. When nil those routes run
	// without token verification, which is only sensible in tests.
	AdminGuard func(http.Handler) http.Handler
	Middleware []func(http.Handler) http.Handler
}

func NewRouter(cfg RouterConfig) http.Handler {
	mux := http.NewServeMux()

	guard := cfg.AdminGuard
	if guard == nil {
		guard = func(next http.Handler) http.Handler { return next }
	}

	if cfg.Spaces != nil {
		createSpace := guard(http.HandlerFunc(cfg.Spaces.Create))
		updateSpace := guard(http.HandlerFunc(cfg.Spaces.Update))
		deleteSpace := guard(http.HandlerFunc(cfg.Spaces.Delete))
		replaceWindows := guard(http.HandlerFunc(cfg.Spaces.ReplaceWindows))

		mux.HandleFunc("/spaces", func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodGet:
				cfg.Spaces.List(w, r)
			case http.MethodPost:
				createSpace.ServeHTTP(w, r)
			default:
				methodNotAllowed(w, http.MethodGet, http.MethodPost)
			}
		})
		mux.HandleFunc("/spaces/", func(w http.ResponseWriter, r *http.Request) {
			rest := strings.TrimPrefix(r.URL.Path, "/spaces/")
			if rest == "" {
				http.NotFound(w, r)
				return
			}

			id, sub, _ := strings.Cut(rest, "/")
			if id == "" {
				http.NotFound(w, r)
				return
			}
			r = r.WithContext(ContextWithSpaceID(r.Context(), id))

			switch sub {
			case "":
				switch r.Method {
				case http.MethodGet:
					cfg.Spaces.Get(w, r)
				case http.MethodPut:
					updateSpace.ServeHTTP(w, r)
				case http.MethodDelete:
					deleteSpace.ServeHTTP(w, r)
				default:
					methodNotAllowed(w, http.MethodGet, http.MethodPut, http.MethodDelete)
				}
			case "windows":
				switch r.Method {
				case http.MethodGet:
					cfg.Spaces.ListWindows(w, r)
				case http.MethodPut:
					replaceWindows.ServeHTTP(w, r)
				default:
					methodNotAllowed(w, http.MethodGet, http.MethodPut)
				}
			default:
				http.NotFound(w, r)
			}
		})
	}

	if cfg.Reservations != nil {
		mux.HandleFunc("/reservations", func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodGet:
				cfg.Reservations.List(w, r)
			case http.MethodPost:
				cfg.Reservations.Create(w, r)
			default:
				methodNotAllowed(w, http.MethodGet, http.MethodPost)
			}
		})
		mux.HandleFunc("/reservations/preview", func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost {
				methodNotAllowed(w, http.MethodPost)
				return
			}
			cfg.Reservations.Preview(w, r)
		})
		mux.HandleFunc("/recurrence/preview", func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodGet {
				methodNotAllowed(w, http.MethodGet)
				return
			}
			cfg.Reservations.PreviewDates(w, r)
		})
		mux.HandleFunc("/reservations/batches/", func(w http.ResponseWriter, r *http.Request) {
			batchID := strings.TrimPrefix(r.URL.Path, "/reservations/batches/")
			if batchID == "" {
				http.NotFound(w, r)
				return
			}
			if r.Method != http.MethodDelete {
				methodNotAllowed(w, http.MethodDelete)
				return
			}
			r = r.WithContext(ContextWithReservationID(r.Context(), batchID))
			cfg.Reservations.CancelBatch(w, r)
		})
		mux.HandleFunc("/reservations/", func(w http.ResponseWriter, r *http.Request) {
			id := strings.TrimPrefix(r.URL.Path, "/reservations/")
			if id == "" || strings.Contains(id, "/") {
				http.NotFound(w, r)
				return
			}
			if r.Method != http.MethodDelete {
				methodNotAllowed(w, http.MethodDelete)
				return
			}
			r = r.WithContext(ContextWithReservationID(r.Context(), id))
			cfg.Reservations.Cancel(w, r)
		})
	}

	if cfg.Rentals != nil {
		mux.HandleFunc("/rentals", func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodGet:
				cfg.Rentals.List(w, r)
			case http.MethodPost:
				cfg.Rentals.Create(w, r)
			default:
				methodNotAllowed(w, http.MethodGet, http.MethodPost)
			}
		})
		mux.HandleFunc("/rentals/", func(w http.ResponseWriter, r *http.Request) {
			id := strings.TrimPrefix(r.URL.Path, "/rentals/")
			if id == "" {
				http.NotFound(w, r)
				return
			}
			if r.Method != http.MethodDelete {
				methodNotAllowed(w, http.MethodDelete)
				return
			}
			r = r.WithContext(ContextWithRentalID(r.Context(), id))
			cfg.Rentals.Cancel(w, r)
		})
	}

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

func methodNotAllowed(w http.ResponseWriter, allowed ...string) {
	if len(allowed) > 0 {
		w.Header().Set("Allow", strings.Join(allowed, ", "))
	}
	http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
}
