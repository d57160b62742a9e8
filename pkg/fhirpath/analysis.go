package fhirpath

import (
	"time"

	"github.com/robertoaraneda/fhirpath/pkg/fhirpath/types"
)

// AnalysisResult pairs an evaluation result with timing metadata and
// any non-fatal warnings gathered along the way.
type AnalysisResult struct {
	Result    types.Collection
	ParseTime time.Duration
	EvalTime  time.Duration
	Warnings  []string
}

// EvaluateWithAnalysis parses and evaluates an expression, reporting
// how long each stage took. The expression cache is bypassed so the
// parse time reflects a real compilation.
func EvaluateWithAnalysis(resource []byte, expr string, opts ...EvalOption) (*AnalysisResult, error) {
	parseStart := time.Now()
	compiled, err := Compile(expr)
	parseTime := time.Since(parseStart)
	if err != nil {
		return nil, err
	}

	evalStart := time.Now()
	result, err := compiled.EvaluateWithOptions(resource, opts...)
	evalTime := time.Since(evalStart)
	if err != nil {
		return nil, err
	}

	analysis := &AnalysisResult{
		Result:    result,
		ParseTime: parseTime,
		EvalTime:  evalTime,
	}
	if result.Count() > 1000 {
		analysis.Warnings = append(analysis.Warnings, "result collection is unusually large")
	}
	return analysis, nil
}
