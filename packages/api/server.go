// Package api serves ad-hoc checks over HTTP for the serve command.
package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/abdul-hamid-achik/webmatch/packages/assertions"
	"github.com/abdul-hamid-achik/webmatch/packages/history"
	"github.com/abdul-hamid-achik/webmatch/packages/suite"
)

type Server struct {
	Logger  *zap.Logger
	Prober  *assertions.Prober
	History *history.Store // optional
}

func NewServer(l *zap.Logger, p *assertions.Prober, h *history.Store) *Server {
	if l == nil {
		l = zap.NewNop()
	}
	if p == nil {
		p = assertions.Default()
	}
	return &Server{Logger: l, Prober: p, History: h}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)
	r.Use(cors.AllowAll().Handler)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Route("/api", func(r chi.Router) {
		r.Get("/matchers", s.handleMatchers)
		r.Post("/checks", s.handleCheck)
		r.Get("/history", s.handleHistory)
	})

	return r
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.Logger.Info("http_request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("duration", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}

// CheckRequest is the body of POST /api/checks
type CheckRequest struct {
	Target string `json:"target"`
	Expect string `json:"expect"`
	To     string `json:"to,omitempty"`
	Status any    `json:"status,omitempty"`
}

// CheckResponse reports one evaluated check
type CheckResponse struct {
	Target      string  `json:"target"`
	Matcher     string  `json:"matcher"`
	Description string  `json:"description"`
	Passed      bool    `json:"passed"`
	Message     string  `json:"message,omitempty"`
	DurationMS  float64 `json:"duration_ms"`
}

type errorResponse struct {
	Error  string   `json:"error"`
	Errors []string `json:"errors,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) handleMatchers(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, suite.Kinds)
}

func (s *Server) handleCheck(w http.ResponseWriter, r *http.Request) {
	var p CheckRequest
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "bad payload"})
		return
	}

	// Schema files live on the server's disk and are not reachable here.
	if p.Expect == assertions.NameMatchJSONSchema {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "match_json_schema is not available over the API"})
		return
	}

	check := suite.Check{Target: p.Target, Expect: p.Expect, To: p.To, Status: p.Status}
	if err := check.Validate(); err != nil {
		resp := errorResponse{Error: "invalid check"}
		for _, e := range multierr.Errors(err) {
			resp.Errors = append(resp.Errors, e.Error())
		}
		writeJSON(w, http.StatusBadRequest, resp)
		return
	}

	m, err := check.Matcher("")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	start := time.Now()
	out := s.Prober.Evaluate(p.Target, m)
	elapsed := time.Since(start)

	s.Logger.Info("check",
		zap.String("target", p.Target),
		zap.String("matcher", m.Name()),
		zap.Bool("passed", out.Passed),
		zap.Duration("duration", elapsed),
	)

	writeJSON(w, http.StatusOK, CheckResponse{
		Target:      p.Target,
		Matcher:     m.Name(),
		Description: m.Description(),
		Passed:      out.Passed,
		Message:     out.Message,
		DurationMS:  float64(elapsed.Microseconds()) / 1000,
	})
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if s.History == nil {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "history is not enabled"})
		return
	}

	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "limit must be a positive integer"})
			return
		}
		limit = n
	}

	runs, err := s.History.Recent(r.Context(), limit)
	if err != nil {
		s.Logger.Error("history_query", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "history query failed"})
		return
	}
	if runs == nil {
		runs = []history.Run{}
	}
	writeJSON(w, http.StatusOK, runs)
}
