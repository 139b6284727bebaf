// Package routes exposes the resource service and the operator surface
// over HTTP.
package routes

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"

	"github.com/jdalton/scripturecache/internal/cache"
	"github.com/jdalton/scripturecache/internal/content"
	appmw "github.com/jdalton/scripturecache/internal/http/middleware"
	"github.com/jdalton/scripturecache/internal/jobs"
	"github.com/jdalton/scripturecache/internal/resource"
)

type Server struct {
	Router *chi.Mux
	Svc    *resource.Service
	Chain  *cache.Chain
	Tasks  *asynq.Client // nil when no queue is configured
	Log    zerolog.Logger
}

type ServerOptions struct {
	Svc   *resource.Service
	Chain *cache.Chain
	Tasks *asynq.Client
	Log   zerolog.Logger
}

func New(opts ServerOptions) *Server {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(appmw.RequestLogger(opts.Log))
	r.Use(chimw.Recoverer)

	s := &Server{Router: r, Svc: opts.Svc, Chain: opts.Chain, Tasks: opts.Tasks, Log: opts.Log}

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})

	r.Get("/notes", s.handleNotes)
	r.Get("/words", s.handleWords)

	r.Route("/admin", func(ar chi.Router) {
		ar.Post("/cache/clear", s.handleCacheClear)
		ar.Get("/cache/stats", s.handleCacheStats)
		ar.Post("/prefetch", s.handlePrefetch)
	})

	return s
}

// GET /notes?lang=en&org=unfoldingWord&repo=en_tn&book=tit&ref=1:1-3
func (s *Server) handleNotes(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	lang, org, repo := q.Get("lang"), q.Get("org"), q.Get("repo")
	book, ref := q.Get("book"), q.Get("ref")
	if lang == "" || org == "" || repo == "" || book == "" || ref == "" {
		http.Error(w, "lang, org, repo, book and ref are required", http.StatusBadRequest)
		return
	}

	rows, err := s.Svc.Notes(r.Context(), lang, org, repo, book, ref)
	if err != nil {
		s.renderErr(w, r, err)
		return
	}
	s.renderJSON(w, rows)
}

// GET /words?lang=en&org=unfoldingWord&term=grace  (or &path=... verbatim)
func (s *Server) handleWords(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	lang, org := q.Get("lang"), q.Get("org")
	term, path := q.Get("term"), q.Get("path")
	if lang == "" || org == "" || (term == "" && path == "") {
		http.Error(w, "lang, org and one of term/path are required", http.StatusBadRequest)
		return
	}

	text, err := s.Svc.Word(r.Context(), lang, org, term, path)
	if err != nil {
		s.renderErr(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
	_, _ = w.Write([]byte(text))
}

// POST /admin/cache/clear?memory=1&files=1&redis=1&prefix=notes:
// Tiers are cleared only when explicitly named; a bare request is a no-op.
func (s *Server) handleCacheClear(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	prefix := q.Get("prefix")

	cleared := []string{}
	for _, name := range []string{"memory", "files", "redis"} {
		if q.Get(name) != "1" && q.Get(name) != "true" {
			continue
		}
		p := s.Chain.Provider(name)
		if p == nil {
			continue
		}
		if prefix != "" {
			if pc, ok := p.(cache.PrefixClearer); ok {
				pc.ClearPrefix(r.Context(), prefix)
				cleared = append(cleared, name)
			}
			continue
		}
		p.Clear(r.Context())
		cleared = append(cleared, name)
	}
	s.renderJSON(w, map[string]any{"cleared": cleared})
}

// GET /admin/cache/stats
func (s *Server) handleCacheStats(w http.ResponseWriter, r *http.Request) {
	s.renderJSON(w, s.Chain.Stats(r.Context()))
}

// POST /admin/prefetch {"organization":..., "repository":..., "ref":...}
func (s *Server) handlePrefetch(w http.ResponseWriter, r *http.Request) {
	if s.Tasks == nil {
		http.Error(w, "prefetch queue not configured", http.StatusServiceUnavailable)
		return
	}
	var p jobs.PrefetchArchivePayload
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		http.Error(w, "bad payload", http.StatusBadRequest)
		return
	}
	if p.Organization == "" || p.Repository == "" {
		http.Error(w, "organization and repository are required", http.StatusBadRequest)
		return
	}
	payload, _ := json.Marshal(p)
	info, err := s.Tasks.EnqueueContext(r.Context(), asynq.NewTask(jobs.TaskPrefetchArchive, payload), asynq.Queue("prefetch"))
	if err != nil {
		s.Log.Error().Err(err).Msg("enqueue prefetch failed")
		http.Error(w, "enqueue failed", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusAccepted)
	if err := json.NewEncoder(w).Encode(map[string]string{"task_id": info.ID}); err != nil {
		s.Log.Error().Err(err).Msg("encode response failed")
	}
}

func (s *Server) renderJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.Log.Error().Err(err).Msg("encode response failed")
	}
}

func (s *Server) renderErr(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, resource.ErrNotFound) {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	if errors.Is(err, content.ErrInvalidReference) {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	s.Log.Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
	http.Error(w, "internal server error", http.StatusInternalServerError)
}
