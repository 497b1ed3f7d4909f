package http

import (
	"net/http"

	applog "cashflow/internal/log"
)

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	if resp := RequireMethod(r, http.MethodGet); resp != nil {
		resp.Write(w)
		return
	}
	ctx := r.Context()

	filter, err := parseStatsFilter(r)
	if err != nil {
		writeError(ctx, w, err, applog.OpStats)
		return
	}

	stats, err := s.svc.Stats.Compute(ctx, profileFrom(r), filter)
	if err != nil {
		writeError(ctx, w, err, applog.OpStats)
		return
	}
	NewJSONResponse().Body(newStatsResponse(stats)).Write(w)
}

func (s *Server) handleCategories(w http.ResponseWriter, r *http.Request) {
	if resp := RequireMethod(r, http.MethodGet); resp != nil {
		resp.Write(w)
		return
	}
	ctx := r.Context()

	cats, err := s.svc.Catalog.ListCategories(ctx)
	if err != nil {
		writeError(ctx, w, err, applog.OpList)
		return
	}
	out := make([]categoryResponse, 0, len(cats))
	for _, c := range cats {
		out = append(out, categoryResponse{ID: c.ID, Name: c.Name, Icon: c.Icon, Type: string(c.Type)})
	}
	NewJSONResponse().Body(out).Write(w)
}

func (s *Server) handleProfiles(w http.ResponseWriter, r *http.Request) {
	if resp := RequireMethod(r, http.MethodGet); resp != nil {
		resp.Write(w)
		return
	}
	ctx := r.Context()

	profiles, err := s.svc.Catalog.ListProfiles(ctx)
	if err != nil {
		writeError(ctx, w, err, applog.OpList)
		return
	}
	out := make([]profileResponse, 0, len(profiles))
	for _, p := range profiles {
		out = append(out, profileResponse{ID: p.ID, Name: p.Name, Email: p.Email, Avatar: p.Avatar})
	}
	NewJSONResponse().Body(out).Write(w)
}
