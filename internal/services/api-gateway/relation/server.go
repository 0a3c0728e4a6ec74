package relation

import (
	"net/http"
	"strconv"

	"github.com/NordCoder/Tubely/internal/apperr"
	"github.com/NordCoder/Tubely/internal/domain/relation"
	"github.com/NordCoder/Tubely/internal/obs"
	"github.com/NordCoder/Tubely/internal/services/api-gateway/auth"
	"github.com/NordCoder/Tubely/internal/services/api-gateway/httpx"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

var errBadPage = apperr.BadRequest("limit and offset must be non-negative integers")

type Server struct {
	log *zap.Logger
	uc  *Usecase
}

func NewServer(log *zap.Logger, uc *Usecase) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	return &Server{log: log.With(zap.String("component", "relation.http")), uc: uc}
}

// Routes mounts every relation endpoint behind gate.
func (s *Server) Routes(r chi.Router, gate func(http.Handler) http.Handler) {
	r.Group(func(r chi.Router) {
		r.Use(gate)
		r.Get("/relations/{kind}", s.ListMine)
		r.Post("/relations/{kind}/{targetId}/toggle", s.Toggle)
		r.Get("/relations/{kind}/{targetId}/exists", s.Exists)
		r.Get("/relations/{kind}/{targetId}/count", s.Count)
		r.Get("/relations/{kind}/{targetId}/actors", s.ListActors)
	})
}

func (s *Server) Toggle(w http.ResponseWriter, r *http.Request) {
	me := auth.MustIdentity(r.Context())
	kind, target := chi.URLParam(r, "kind"), chi.URLParam(r, "targetId")

	res, err := s.uc.Toggle(r.Context(), me.ID, kind, target)
	if err != nil {
		httpx.Fail(w, r, s.log, err)
		return
	}

	obs.WithTrace(r.Context(), s.log).Info("relation.toggle",
		zap.String("actor_id", me.ID.String()),
		zap.String("target_id", target),
		zap.String("kind", kind),
		zap.Bool("removed", res.Removed),
	)
	if res.Removed {
		httpx.OK(w, http.StatusOK, res, "Relation removed successfully")
		return
	}
	httpx.OK(w, http.StatusOK, res, "Relation created successfully")
}

func (s *Server) Exists(w http.ResponseWriter, r *http.Request) {
	me := auth.MustIdentity(r.Context())

	ok, err := s.uc.Exists(r.Context(), me.ID, chi.URLParam(r, "kind"), chi.URLParam(r, "targetId"))
	if err != nil {
		httpx.Fail(w, r, s.log, err)
		return
	}
	httpx.OK(w, http.StatusOK, map[string]bool{"exists": ok}, "Relation status fetched successfully")
}

func (s *Server) Count(w http.ResponseWriter, r *http.Request) {
	n, err := s.uc.Count(r.Context(), chi.URLParam(r, "kind"), chi.URLParam(r, "targetId"))
	if err != nil {
		httpx.Fail(w, r, s.log, err)
		return
	}
	httpx.OK(w, http.StatusOK, map[string]int64{"count": n}, "Relation count fetched successfully")
}

func (s *Server) ListMine(w http.ResponseWriter, r *http.Request) {
	me := auth.MustIdentity(r.Context())
	p, err := pageFromQuery(r)
	if err != nil {
		httpx.Fail(w, r, s.log, err)
		return
	}

	list, err := s.uc.ListByActor(r.Context(), me.ID, chi.URLParam(r, "kind"), p)
	if err != nil {
		httpx.Fail(w, r, s.log, err)
		return
	}
	httpx.OK(w, http.StatusOK, nonNil(list), "Relations fetched successfully")
}

func (s *Server) ListActors(w http.ResponseWriter, r *http.Request) {
	p, err := pageFromQuery(r)
	if err != nil {
		httpx.Fail(w, r, s.log, err)
		return
	}

	list, err := s.uc.ListByTarget(r.Context(), chi.URLParam(r, "kind"), chi.URLParam(r, "targetId"), p)
	if err != nil {
		httpx.Fail(w, r, s.log, err)
		return
	}
	httpx.OK(w, http.StatusOK, nonNil(list), "Relations fetched successfully")
}

func pageFromQuery(r *http.Request) (relation.Page, error) {
	var p relation.Page
	q := r.URL.Query()
	for name, dst := range map[string]*int{"limit": &p.Limit, "offset": &p.Offset} {
		v := q.Get(name)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return relation.Page{}, errBadPage
		}
		*dst = n
	}
	return p, nil
}

func nonNil(list []*relation.Relation) []*relation.Relation {
	if list == nil {
		return []*relation.Relation{}
	}
	return list
}
