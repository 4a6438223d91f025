package models

// ParseReport aggregates per-record outcomes of a raw-table conversion so callers
// can observe how many records were skipped and why.
type ParseReport struct {
	Source  string             `json:"source"`
	Total   int                `json:"total"`
	Parsed  int                `json:"parsed"`
	Skipped int                `json:"skipped"`
	Errors  []*ValidationError `json:"errors,omitempty"`
}

// NewParseReport creates an empty report for the named source table
func NewParseReport(source string) ParseReport {
	return ParseReport{Source: source}
}

// Ok records a successfully parsed record.
func (r *ParseReport) Ok() {
	r.Total++
	r.Parsed++
}

// Skip records a record that was dropped.
func (r *ParseReport) Skip(err *ValidationError) {
	r.Total++
	r.Skipped++
	if err != nil {
		r.Errors = append(r.Errors, err)
	}
}

// Tolerate records a record that was kept with null fields after a parse failure.
func (r *ParseReport) Tolerate(err *ValidationError) {
	r.Total++
	r.Parsed++
	if err != nil {
		r.Errors = append(r.Errors, err)
	}
}

// SkipRate returns the fraction of records that were dropped
func (r ParseReport) SkipRate() float64 {
	if r.Total == 0 {
		return 0
	}
	return float64(r.Skipped) / float64(r.Total)
}

// CountByCode groups recorded errors by their code.
func (r ParseReport) CountByCode() map[string]int {
	counts := make(map[string]int)
	for _, err := range r.Errors {
		counts[err.Code]++
	}
	return counts
}
