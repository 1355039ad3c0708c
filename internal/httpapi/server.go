package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/hamed0406/bgpcheck/internal/config"
	apimw "github.com/hamed0406/bgpcheck/internal/httpapi/middleware"
	"github.com/hamed0406/bgpcheck/internal/repo"
)

// Server is the read-only status API.
type Server struct {
	Logger *zap.Logger
	Status repo.StatusStore
	Config config.Status
}

func NewServer(l *zap.Logger, status repo.StatusStore, cfg config.Status) *Server {
	if l == nil {
		l = zap.NewNop()
	}
	return &Server{Logger: l.With(zap.String("subsystem", "httpapi")), Status: status, Config: cfg}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodOptions},
		AllowedHeaders: []string{"Authorization", "X-API-Key"},
	}))
	r.Use(apimw.RateLimit(s.Config.RateLimit, s.Config.Burst))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Group(func(r chi.Router) {
		r.Use(apimw.RequireKey(s.Config.APIKeys))
		r.Get("/api/checks", s.handleListChecks)
		r.Get("/api/checks/{name}", s.handleGetCheck)
	})
	return r
}

func (s *Server) handleListChecks(w http.ResponseWriter, r *http.Request) {
	all, err := s.Status.List(r.Context())
	if err != nil {
		s.Logger.Error("status_list_failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "list error")
		return
	}
	// ?state=up narrows the list
	if want := r.URL.Query().Get("state"); want != "" {
		out := all[:0]
		for _, st := range all {
			if string(st.State) == want {
				out = append(out, st)
			}
		}
		all = out
	}
	if all == nil {
		all = []repo.CheckStatus{}
	}
	writeJSON(w, http.StatusOK, all)
}

func (s *Server) handleGetCheck(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	st, err := s.Status.Get(r.Context(), name)
	switch {
	case errors.Is(err, repo.ErrNotFound):
		writeError(w, http.StatusNotFound, "unknown check")
		return
	case err != nil:
		s.Logger.Error("status_get_failed", zap.String("check", name), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "lookup error")
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}

// ListenAndServe serves on the configured address until ctx is done. It
// returns nil when no address is configured.
func (s *Server) ListenAndServe(ctx context.Context) error {
	if s.Config.Listen == "" {
		return nil
	}
	srv := &http.Server{
		Addr:              s.Config.Listen,
		Handler:           s.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	errc := make(chan error, 1)
	go func() {
		s.Logger.Info("api_listen", zap.String("addr", s.Config.Listen))
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}
	shutdown, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdown); err != nil {
		return err
	}
	if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
