package http

import (
	"context"
	"errors"
	"net/http"
	"sync/atomic"

	"finsight/internal/core"
	"finsight/internal/insight"
	"finsight/internal/ledger"
	"finsight/internal/log"
	"finsight/internal/services"
)

type transactionListResponse struct {
	Transactions []core.Transaction `json:"transactions"`
	Source       ledger.Source      `json:"source"`
	Warning      string             `json:"warning,omitempty"`
}

func newTransactionListResponse(res ledger.ListResult) transactionListResponse {
	out := transactionListResponse{Transactions: res.Transactions, Source: res.Source}
	if out.Transactions == nil {
		out.Transactions = []core.Transaction{}
	}
	if res.FromFallback() {
		out.Warning = services.FallbackWarning
	}
	return out
}

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	typ, err := parseTypeFilter(r)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "type must be income or expense")
		return
	}

	res, err := s.txs.List(r.Context())
	if err != nil {
		s.apiError(w, r, "List transactions failed", err, log.OpList)
		return
	}
	out := newTransactionListResponse(res)
	out.Transactions = core.OfType(out.Transactions, typ)
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleGetTransaction(w http.ResponseWriter, r *http.Request) {
	tx, err := s.txs.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		s.apiError(w, r, "Get transaction failed", err, log.OpRead)
		return
	}
	writeJSON(w, http.StatusOK, tx)
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	var tx core.Transaction
	if err := decodeJSON(w, r, &tx); err != nil {
		writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	created, err := s.txs.Create(r.Context(), tx)
	if err != nil {
		s.apiError(w, r, "Create transaction failed", err, log.OpCreate)
		return
	}
	atomic.AddInt64(&s.appMetrics.transactionsWritten, 1)

	w.Header().Set("Location", "/api/v1/transactions/"+created.ID)
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handleUpdateTransaction(w http.ResponseWriter, r *http.Request) {
	var tx core.Transaction
	if err := decodeJSON(w, r, &tx); err != nil {
		writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	updated, err := s.txs.Update(r.Context(), r.PathValue("id"), tx)
	if err != nil {
		s.apiError(w, r, "Update transaction failed", err, log.OpUpdate)
		return
	}
	atomic.AddInt64(&s.appMetrics.transactionsWritten, 1)
	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) handlePatchTransaction(w http.ResponseWriter, r *http.Request) {
	var patch core.TransactionPatch
	if err := decodeJSON(w, r, &patch); err != nil {
		writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	updated, err := s.txs.Patch(r.Context(), r.PathValue("id"), patch)
	if err != nil {
		s.apiError(w, r, "Patch transaction failed", err, log.OpUpdate)
		return
	}
	atomic.AddInt64(&s.appMetrics.transactionsWritten, 1)
	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	if err := s.txs.Delete(r.Context(), r.PathValue("id")); err != nil {
		s.apiError(w, r, "Delete transaction failed", err, log.OpDelete)
		return
	}
	atomic.AddInt64(&s.appMetrics.transactionsWritten, 1)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	params, err := ParseMonthParamsStrict(r.URL.Query(), s.now())
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	d, err := s.txs.Dashboard(r.Context(), params.Year, params.Month)
	if err != nil {
		s.apiError(w, r, "Dashboard failed", err, log.OpRead)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (s *Server) handleCategories(w http.ResponseWriter, r *http.Request) {
	catalog := s.txs.Catalog()
	categories := catalog.All()
	if v := r.URL.Query().Get("type"); v != "" {
		typ, err := core.ParseTransactionType(v)
		if err != nil {
			writeJSONError(w, http.StatusBadRequest, err.Error())
			return
		}
		categories = catalog.ByType(typ)
	}
	writeJSON(w, http.StatusOK, map[string][]core.Category{"categories": categories})
}

// handleAnalysis runs one insight request. Any failure, including the
// timeout imposed here, is reported as a single generic error.
func (s *Server) handleAnalysis(w http.ResponseWriter, r *http.Request) {
	var req services.AnalysisRequest
	if r.ContentLength != 0 {
		if err := decodeJSON(w, r, &req); err != nil && !errors.Is(err, errEmptyBody) {
			writeJSONError(w, http.StatusBadRequest, err.Error())
			return
		}
	}

	result, err := s.runAnalysis(r.Context(), req)
	if err != nil {
		writeJSONError(w, http.StatusBadGateway, insight.ErrAnalysisFailed.Error())
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) runAnalysis(ctx context.Context, req services.AnalysisRequest) (insight.AnalysisResult, error) {
	atomic.AddInt64(&s.appMetrics.analyses, 1)

	ctx, cancel := context.WithTimeout(ctx, s.analysisTimeout)
	defer cancel()

	result, err := s.analysis.Analyze(ctx, req)
	if err != nil {
		atomic.AddInt64(&s.appMetrics.analysisFailures, 1)
		return insight.AnalysisResult{}, err
	}
	return result, nil
}

func (s *Server) apiError(w http.ResponseWriter, r *http.Request, msg string, err error, op string) {
	s.logFailure(r, msg, err, op)
	status := statusFor(err)
	writeJSONError(w, status, publicMessage(status, err))
}
