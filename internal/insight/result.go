package insight

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
)

// CategorizedInsight is one category of the model's breakdown.
type CategorizedInsight struct {
	Category          string   `json:"category"`
	TotalAmount       float64  `json:"totalAmount"`
	PercentageOfTotal float64  `json:"percentageOfTotal"`
	Examples          []string `json:"examples"`
}

// AnalysisResult is the structured answer of one analysis request.
type AnalysisResult struct {
	Summary             string               `json:"summary"`
	CategorizedInsights []CategorizedInsight `json:"categorizedInsights"`
	Suggestions         []string             `json:"suggestions"`
}

// Wire shapes use pointers so that missing and null fields can be told
// apart from zero values and rejected.
type (
	wireResult struct {
		Summary             *string         `json:"summary"`
		CategorizedInsights *[]*wireInsight `json:"categorizedInsights"`
		Suggestions         *[]*string      `json:"suggestions"`
	}

	wireInsight struct {
		Category          *string    `json:"category"`
		TotalAmount       *float64   `json:"totalAmount"`
		PercentageOfTotal *float64   `json:"percentageOfTotal"`
		Examples          *[]*string `json:"examples"`
	}
)

var errSchema = errors.New("response does not match schema")

func schemaError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", errSchema, fmt.Sprintf(format, args...))
}

// DecodeResult parses raw model output into an AnalysisResult, rejecting
// anything that does not match the output schema exactly: unknown or missing
// fields, nulls, wrong types, trailing data, negative totals and percentages
// outside [0, 100].
func DecodeResult(raw []byte) (AnalysisResult, error) {
	dec := json.NewDecoder(bytes.NewReader(cleanJSON(raw)))
	dec.DisallowUnknownFields()

	var w wireResult
	if err := dec.Decode(&w); err != nil {
		return AnalysisResult{}, schemaError("%v", err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return AnalysisResult{}, schemaError("trailing data after object")
	}

	if w.Summary == nil {
		return AnalysisResult{}, schemaError("missing summary")
	}
	if w.CategorizedInsights == nil {
		return AnalysisResult{}, schemaError("missing categorizedInsights")
	}
	if w.Suggestions == nil {
		return AnalysisResult{}, schemaError("missing suggestions")
	}

	out := AnalysisResult{
		Summary:             *w.Summary,
		CategorizedInsights: make([]CategorizedInsight, 0, len(*w.CategorizedInsights)),
	}

	for i, wi := range *w.CategorizedInsights {
		ci, err := wi.convert()
		if err != nil {
			return AnalysisResult{}, schemaError("categorizedInsights[%d]: %v", i, err)
		}
		out.CategorizedInsights = append(out.CategorizedInsights, ci)
	}

	suggestions, err := derefStrings(*w.Suggestions)
	if err != nil {
		return AnalysisResult{}, schemaError("suggestions: %v", err)
	}
	out.Suggestions = suggestions
	return out, nil
}

func (wi *wireInsight) convert() (CategorizedInsight, error) {
	switch {
	case wi == nil:
		return CategorizedInsight{}, errors.New("null entry")
	case wi.Category == nil:
		return CategorizedInsight{}, errors.New("missing category")
	case wi.TotalAmount == nil:
		return CategorizedInsight{}, errors.New("missing totalAmount")
	case wi.PercentageOfTotal == nil:
		return CategorizedInsight{}, errors.New("missing percentageOfTotal")
	case wi.Examples == nil:
		return CategorizedInsight{}, errors.New("missing examples")
	}
	if *wi.TotalAmount < 0 {
		return CategorizedInsight{}, fmt.Errorf("negative totalAmount %v", *wi.TotalAmount)
	}
	if p := *wi.PercentageOfTotal; p < 0 || p > 100 {
		return CategorizedInsight{}, fmt.Errorf("percentageOfTotal %v out of range", p)
	}
	examples, err := derefStrings(*wi.Examples)
	if err != nil {
		return CategorizedInsight{}, fmt.Errorf("examples: %w", err)
	}
	return CategorizedInsight{
		Category:          *wi.Category,
		TotalAmount:       *wi.TotalAmount,
		PercentageOfTotal: *wi.PercentageOfTotal,
		Examples:          examples,
	}, nil
}

func derefStrings(in []*string) ([]string, error) {
	out := make([]string, 0, len(in))
	for i, s := range in {
		if s == nil {
			return nil, fmt.Errorf("null at index %d", i)
		}
		out = append(out, *s)
	}
	return out, nil
}

// cleanJSON strips a markdown code fence wrapping the whole payload. Any
// other surrounding text is left in place and fails decoding.
func cleanJSON(raw []byte) []byte {
	s := strings.TrimSpace(string(raw))
	if !strings.HasPrefix(s, "```") || !strings.HasSuffix(s, "```") || len(s) < 6 {
		return []byte(s)
	}
	body := strings.TrimSuffix(s, "```")
	nl := strings.Index(body, "\n")
	if nl == -1 {
		return []byte(s)
	}
	return []byte(strings.TrimSpace(body[nl+1:]))
}
