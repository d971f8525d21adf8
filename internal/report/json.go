package report

import (
	"encoding/json"
	"io"
	"time"
)

type jsonSummary struct {
	Total  int `json:"total"`
	Passed int `json:"passed"`
	Failed int `json:"failed"`
}

type jsonReport struct {
	RunID      string      `json:"run_id"`
	Suite      string      `json:"suite"`
	TargetHost string      `json:"target_host,omitempty"`
	StartedAt  string      `json:"started_at"`
	Duration   float64     `json:"duration_seconds"`
	Summary    jsonSummary `json:"summary"`
	Results    []Result    `json:"results"`
}

type jsonOutput struct {
	ExitCode int          `json:"exit_code"`
	Reports  []jsonReport `json:"reports"`
}

// WriteJSON renders reports as one indented JSON document.
func WriteJSON(w io.Writer, reports []*RunReport) error {
	out := jsonOutput{
		ExitCode: ExitCode(reports...),
		Reports:  make([]jsonReport, 0, len(reports)),
	}
	for _, r := range reports {
		results := r.Results
		if results == nil {
			results = []Result{}
		}
		out.Reports = append(out.Reports, jsonReport{
			RunID:      r.RunID,
			Suite:      r.SuiteName,
			TargetHost: r.TargetHost,
			StartedAt:  r.StartedAt.UTC().Format(time.RFC3339),
			Duration:   r.Duration.Seconds(),
			Summary: jsonSummary{
				Total:  len(r.Results),
				Passed: r.Passed(),
				Failed: r.Failed(),
			},
			Results: results,
		})
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(out)
}
