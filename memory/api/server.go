// Package api serves the memory service HTTP surface.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/johnson2500/retail-shopping-assistant/memory/store"
	logx "github.com/johnson2500/retail-shopping-assistant/pkg/logger"
	metricsx "github.com/johnson2500/retail-shopping-assistant/pkg/metrics"
)

const Version = "1.0.0"

// Config is loaded with the SERVER prefix.
type Config struct {
	Addr              string        `split_words:"true" default:":8000"`
	Backend           string        `split_words:"true" default:"redis"`
	ReadHeaderTimeout time.Duration `split_words:"true" default:"5s"`
	ShutdownTimeout   time.Duration `split_words:"true" default:"10s"`
}

type Option func(*Server)

func WithMetrics(m *metricsx.Recorder) Option {
	return func(s *Server) {
		s.metrics = m
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Server) {
		if now != nil {
			s.now = now
		}
	}
}

type Server struct {
	repo    store.Repository
	metrics *metricsx.Recorder
	now     func() time.Time
}

func NewHandler(repo store.Repository, opts ...Option) http.Handler {
	s := &Server{
		repo: repo,
		now:  time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s.Router()
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(s.observe)

	r.Get("/health", s.health)
	r.Method(http.MethodGet, "/metrics", s.metrics.Handler())

	r.Route("/user/{userID}", func(r chi.Router) {
		r.Get("/", s.getUser)
		r.Get("/cart", s.getCart)
		r.Get("/context", s.getContext)
		r.Post("/cart/add", s.addToCart)
		r.Post("/cart/remove", s.removeFromCart)
		r.Post("/cart/clear", s.clearCart)
		r.Post("/context/add", s.addContext)
		r.Post("/context/replace", s.replaceContext)
		r.Post("/context/clear", s.clearContext)
		r.Post("/clear", s.clearUser)
	})

	return r
}

// observe logs every request and counts it by route pattern.
func (s *Server) observe(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				route = pattern
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		elapsed := time.Since(start)

		s.metrics.ObserveRequest(route, r.Method, status, elapsed.Seconds())
		logx.Debug().
			Str("request_id", middleware.GetReqID(r.Context())).
			Str("method", r.Method).
			Str("route", route).
			Int("status", status).
			Dur("elapsed", elapsed).
			Msg("memory request")
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logx.Error().Err(err).Msg("encode response failed")
	}
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}

// writeStoreError maps repository errors onto status codes. notFound is the
// detail used for store.ErrNotFound.
func writeStoreError(w http.ResponseWriter, err error, notFound string) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		writeDetail(w, http.StatusNotFound, notFound)
	case errors.Is(err, store.ErrInvalid):
		writeDetail(w, http.StatusUnprocessableEntity, err.Error())
	default:
		logx.Error().Err(err).Msg("memory store failure")
		writeDetail(w, http.StatusInternalServerError, "internal server error")
	}
}

func userID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "userID"), 10, 64)
	if err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "user_id must be an integer")
		return 0, false
	}
	return id, true
}
