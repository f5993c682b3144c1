// Package insight asks a text-generation model for a categorized summary of
// a transaction list and validates the answer against a fixed schema.
package insight

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"text/template"
	"time"

	"finsight/internal/core"
	"finsight/internal/log"
)

// ErrAnalysisFailed is the only error callers of RequestInsights see.
var ErrAnalysisFailed = errors.New("analysis failed")

var (
	errNoGenerator    = errors.New("no generator configured")
	errNoTransactions = errors.New("no transactions to analyse")
)

// Failure carries the underlying cause of a failed analysis for logging.
// Its message is always "analysis failed".
type Failure struct {
	Cause error
}

func (f *Failure) Error() string        { return ErrAnalysisFailed.Error() }
func (f *Failure) Is(target error) bool { return target == ErrAnalysisFailed }
func (f *Failure) Unwrap() error        { return f.Cause }

// Prompt is what a Generator receives.
type Prompt struct {
	System string
	Text   string
}

// Generator produces raw JSON text for a prompt. Implementations are expected
// to ask the model for the AnalysisResult shape.
type Generator interface {
	Generate(ctx context.Context, p Prompt) ([]byte, error)
}

// GeneratorFunc adapts a function to Generator.
type GeneratorFunc func(ctx context.Context, p Prompt) ([]byte, error)

func (f GeneratorFunc) Generate(ctx context.Context, p Prompt) ([]byte, error) { return f(ctx, p) }

// PromptTransaction is the per-transaction input sent to the model.
type PromptTransaction struct {
	Date        string     `json:"date"`
	Description string     `json:"description"`
	Amount      core.Money `json:"amount"`
	Type        string     `json:"type"`
}

const systemInstruction = `You are a personal finance advisor. You answer with a single JSON object and nothing else.`

var promptTemplate = template.Must(template.New("analysis").Parse(
	`Analyse the user's recent transactions below. Group them into spending categories using the historical spending data as context, summarise them, and suggest concrete improvements.

Recent transactions (JSON array; amounts are magnitudes, the type tells income from expense):
{{.Transactions}}

Historical spending data: {{.Historical}}

Return a JSON object with exactly these fields:
- "summary": string, a short summary of the transactions.
- "categorizedInsights": array of objects, each with "category" (string), "totalAmount" (number, total spent in the category), "percentageOfTotal" (number between 0 and 100, share of total spending) and "examples" (array of up to three transaction descriptions).
- "suggestions": array of strings with improvement suggestions.
`))

// Requester runs one analysis per call. It keeps no state between calls,
// never retries and never caches.
type Requester struct {
	gen    Generator
	logger *log.Logger
}

func NewRequester(gen Generator, logger *log.Logger) *Requester {
	return &Requester{gen: gen, logger: logger.WithComponent(log.ComponentInsight)}
}

// Available reports whether a generator is wired.
func (r *Requester) Available() bool { return r.gen != nil }

// RequestInsights normalises txs, asks the generator for an analysis and
// validates the answer. On any failure it returns a zero result and an error
// matching ErrAnalysisFailed. Cancellation and deadlines come from ctx.
func (r *Requester) RequestInsights(ctx context.Context, txs []core.Transaction, historical string) (AnalysisResult, error) {
	start := time.Now()

	result, err := r.request(ctx, txs, historical)
	if err != nil {
		r.logger.ErrorContext(ctx, "Analysis failed",
			log.FieldOperation, log.OpAnalyze,
			log.FieldCount, len(txs),
			log.FieldError, err.Error(),
			log.FieldDuration, time.Since(start).Milliseconds())
		return AnalysisResult{}, &Failure{Cause: err}
	}

	r.logger.InfoContext(ctx, "Analysis completed",
		log.FieldOperation, log.OpAnalyze,
		log.FieldCount, len(txs),
		"insights", len(result.CategorizedInsights),
		log.FieldDuration, time.Since(start).Milliseconds())
	return result, nil
}

func (r *Requester) request(ctx context.Context, txs []core.Transaction, historical string) (AnalysisResult, error) {
	if r.gen == nil {
		return AnalysisResult{}, errNoGenerator
	}
	if len(txs) == 0 {
		return AnalysisResult{}, errNoTransactions
	}

	prompt, err := BuildPrompt(txs, historical)
	if err != nil {
		return AnalysisResult{}, err
	}

	raw, err := r.gen.Generate(ctx, prompt)
	if err != nil {
		return AnalysisResult{}, fmt.Errorf("generate: %w", err)
	}
	return DecodeResult(raw)
}

// Normalize converts transactions to the model input, forcing amounts to
// their magnitude.
func Normalize(txs []core.Transaction) []PromptTransaction {
	out := make([]PromptTransaction, 0, len(txs))
	for _, tx := range txs {
		out = append(out, PromptTransaction{
			Date:        tx.Date.String(),
			Description: tx.Description,
			Amount:      tx.Amount.Abs(),
			Type:        string(tx.Type),
		})
	}
	return out
}

// BuildPrompt renders the analysis prompt for txs and the historical summary.
func BuildPrompt(txs []core.Transaction, historical string) (Prompt, error) {
	payload, err := json.MarshalIndent(Normalize(txs), "", "  ")
	if err != nil {
		return Prompt{}, fmt.Errorf("encode transactions: %w", err)
	}

	var buf bytes.Buffer
	err = promptTemplate.Execute(&buf, struct {
		Transactions string
		Historical   string
	}{string(payload), historical})
	if err != nil {
		return Prompt{}, fmt.Errorf("render prompt: %w", err)
	}
	return Prompt{System: systemInstruction, Text: buf.String()}, nil
}
