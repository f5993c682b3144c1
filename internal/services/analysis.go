package services

import (
	"context"

	"finsight/internal/core"
	"finsight/internal/insight"
	"finsight/internal/log"
)

// AnalysisRequest is the input of an insight request. When Transactions is
// nil the caller's ledger is analysed and HistoricalSummary is derived from it.
type AnalysisRequest struct {
	Transactions      []core.Transaction `json:"transactions"`
	HistoricalSummary *string            `json:"historicalSummary"`
}

type AnalysisService struct {
	requester *insight.Requester
	txs       *TransactionService
	logger    *log.Logger
}

func NewAnalysisService(requester *insight.Requester, txs *TransactionService, logger *log.Logger) *AnalysisService {
	if requester == nil {
		requester = insight.NewRequester(nil, logger)
	}
	return &AnalysisService{requester: requester, txs: txs, logger: logger.WithComponent(log.ComponentInsight)}
}

// Available reports whether a generator is configured.
func (a *AnalysisService) Available() bool { return a.requester.Available() }

// Analyze returns the structured insight or an error matching
// insight.ErrAnalysisFailed.
func (a *AnalysisService) Analyze(ctx context.Context, req AnalysisRequest) (insight.AnalysisResult, error) {
	txs := req.Transactions
	if txs == nil {
		res, err := a.txs.List(ctx)
		if err != nil {
			return insight.AnalysisResult{}, &insight.Failure{Cause: err}
		}
		if res.FromFallback() {
			a.logger.WarnContext(ctx, "Analysing sample data", log.FieldError, res.Cause)
		}
		txs = res.Transactions
	}

	var historical string
	if req.HistoricalSummary != nil {
		historical = *req.HistoricalSummary
	} else {
		historical = insight.HistoricalSummary(txs)
	}
	return a.requester.RequestInsights(ctx, txs, historical)
}
