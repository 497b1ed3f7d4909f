package http

import (
	"errors"
	"net/http"

	applog "cashflow/internal/log"
)

// handleWallets serves GET (list) and PUT (manual correction).
func (s *Server) handleWallets(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.listWallets(w, r)
	case http.MethodPut:
		s.updateWallet(w, r)
	default:
		MethodNotAllowedError("GET, PUT").Write(w)
	}
}

func (s *Server) listWallets(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	wallets, err := s.svc.Wallets.ListWallets(ctx, profileFrom(r))
	if err != nil {
		writeError(ctx, w, err, applog.OpList)
		return
	}

	out := make([]walletResponse, 0, len(wallets))
	for _, wl := range wallets {
		out = append(out, newWalletResponse(wl))
	}
	NewJSONResponse().Body(out).Write(w)
}

func (s *Server) updateWallet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req updateWalletRequest
	if err := decodeJSON(w, r, &req); err != nil {
		if errors.Is(err, errMalformedBody) {
			BadRequestError("malformed JSON body").Write(w)
			return
		}
		writeError(ctx, w, err, applog.OpParse)
		return
	}

	if err := s.svc.Wallets.UpdateWallet(ctx, profileFrom(r), req.toCore()); err != nil {
		writeError(ctx, w, err, applog.OpUpdate)
		return
	}
	NewJSONResponse().Body(map[string]bool{"success": true}).Write(w)
}

// handleWalletAudit serves GET /api/wallets/audit?id=N.
func (s *Server) handleWalletAudit(w http.ResponseWriter, r *http.Request) {
	if resp := RequireMethod(r, http.MethodGet); resp != nil {
		resp.Write(w)
		return
	}
	ctx := r.Context()

	id, err := parseID("id", r.URL.Query().Get("id"))
	if err != nil {
		writeError(ctx, w, err, applog.OpAudit)
		return
	}

	audit, err := s.svc.Auditor.AuditWallet(ctx, profileFrom(r), id)
	if err != nil {
		writeError(ctx, w, err, applog.OpAudit)
		return
	}
	NewJSONResponse().Body(newAuditResponse(audit)).Write(w)
}
