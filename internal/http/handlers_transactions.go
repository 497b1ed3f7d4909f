package http

import (
	"errors"
	"net/http"
	"strings"

	applog "cashflow/internal/log"
)

// handleTransactions serves GET (list), POST (record) and DELETE ?id=N.
func (s *Server) handleTransactions(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.listTransactions(w, r)
	case http.MethodPost:
		s.recordTransaction(w, r)
	case http.MethodDelete:
		s.deleteTransaction(w, r, r.URL.Query().Get("id"))
	default:
		MethodNotAllowedError("GET, POST, DELETE").Write(w)
	}
}

// handleTransactionByID serves DELETE /api/transactions/{id}.
func (s *Server) handleTransactionByID(w http.ResponseWriter, r *http.Request) {
	if resp := RequireMethod(r, http.MethodDelete); resp != nil {
		resp.Write(w)
		return
	}
	rawID := strings.TrimPrefix(r.URL.Path, "/api/transactions/")
	if rawID == "" || strings.Contains(rawID, "/") {
		NotFoundError("unknown route").Write(w)
		return
	}
	s.deleteTransaction(w, r, rawID)
}

func (s *Server) listTransactions(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	walletID, err := parseOptionalID("wallet_id", r.URL.Query().Get("wallet_id"))
	if err != nil {
		writeError(ctx, w, err, applog.OpList)
		return
	}

	txs, err := s.svc.Ledger.ListTransactions(ctx, profileFrom(r), walletID)
	if err != nil {
		writeError(ctx, w, err, applog.OpList)
		return
	}

	out := make([]transactionResponse, 0, len(txs))
	for _, t := range txs {
		out = append(out, newTransactionResponse(t))
	}
	NewJSONResponse().Body(out).Write(w)
}

func (s *Server) recordTransaction(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req createTransactionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		if errors.Is(err, errMalformedBody) {
			applog.FromContext(ctx).WarnContext(ctx, "Malformed transaction body", applog.FieldError, err)
			BadRequestError("malformed JSON body").Write(w)
			return
		}
		writeError(ctx, w, err, applog.OpParse)
		return
	}

	in, err := req.toCore()
	if err != nil {
		writeError(ctx, w, err, applog.OpParse)
		return
	}

	tx, err := s.svc.Ledger.RecordTransaction(ctx, profileFrom(r), in)
	if err != nil {
		writeError(ctx, w, err, applog.OpRecord)
		return
	}
	applog.NewStructuredLogger(applog.FromContext(ctx)).
		LogLedgerMutation(ctx, applog.OpRecord, tx.ProfileID, tx.ID, tx.Amount.Cents, tx.WalletID)
	NewJSONResponse().Body(newTransactionResponse(tx)).Write(w)
}

func (s *Server) deleteTransaction(w http.ResponseWriter, r *http.Request, rawID string) {
	ctx := r.Context()
	id, err := parseID("id", rawID)
	if err != nil {
		writeError(ctx, w, err, applog.OpDelete)
		return
	}

	res, err := s.svc.Ledger.DeleteTransaction(ctx, profileFrom(r), id)
	if err != nil {
		writeError(ctx, w, err, applog.OpDelete)
		return
	}
	if res.Deleted && res.Transaction != nil {
		t := res.Transaction
		applog.NewStructuredLogger(applog.FromContext(ctx)).
			LogLedgerMutation(ctx, applog.OpDelete, t.ProfileID, t.ID, t.Amount.Cents, t.WalletID)
	}
	NewJSONResponse().Body(map[string]bool{"deleted": res.Deleted}).Write(w)
}
