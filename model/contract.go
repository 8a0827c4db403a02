package model

import "strings"

// ContractStatus is the lifecycle state shown on a contract badge
type ContractStatus string

const (
	StatusActive     ContractStatus = "Active"
	StatusExpired    ContractStatus = "Expired"
	StatusRenewalDue ContractStatus = "Renewal Due"
)

// RiskLevel is the fixture-assigned risk rating
type RiskLevel string

const (
	RiskHigh   RiskLevel = "High"
	RiskMedium RiskLevel = "Medium"
	RiskLow    RiskLevel = "Low"
)

// ContractSummary is one row of the contracts list
type ContractSummary struct {
	ID      string         `json:"id"`
	Name    string         `json:"name"`
	Parties string         `json:"parties"`
	Status  ContractStatus `json:"status"`
	Risk    RiskLevel      `json:"risk"`
	Start   string         `json:"start"`
	Expiry  string         `json:"expiry"`
}

// Clause is an extracted clause with the model's confidence in [0,1]
type Clause struct {
	Title      string  `json:"title"`
	Summary    string  `json:"summary"`
	Confidence float64 `json:"confidence"`
}

// Insight is a pre-baked risk observation
type Insight struct {
	Risk    RiskLevel `json:"risk"`
	Message string    `json:"message"`
}

// Evidence is a source snippet backing the insights, relevance in [0,1]
type Evidence struct {
	Source    string  `json:"source"`
	Snippet   string  `json:"snippet"`
	Relevance float64 `json:"relevance"`
}

// ContractDetail is the full record behind the detail view
type ContractDetail struct {
	ContractSummary
	Clauses  []Clause   `json:"clauses"`
	Insights []Insight  `json:"insights"`
	Evidence []Evidence `json:"evidence"`
}

// Filters narrow the list view. Empty fields match everything.
type Filters struct {
	Search string `json:"search"`
	Status string `json:"status"`
	Risk   string `json:"risk"`
}

// FilterPatch is a partial update to Filters; nil fields are left alone.
type FilterPatch struct {
	Search *string `json:"search,omitempty"`
	Status *string `json:"status,omitempty"`
	Risk   *string `json:"risk,omitempty"`
}

// Apply returns f with the non-nil fields of p replaced.
func (f Filters) Apply(p FilterPatch) Filters {
	if p.Search != nil {
		f.Search = *p.Search
	}
	if p.Status != nil {
		f.Status = *p.Status
	}
	if p.Risk != nil {
		f.Risk = *p.Risk
	}
	return f
}

// Match reports whether c passes every active filter. Search is a
// case-insensitive substring match on name or parties.
func (f Filters) Match(c ContractSummary) bool {
	if f.Status != "" && string(c.Status) != f.Status {
		return false
	}
	if f.Risk != "" && string(c.Risk) != f.Risk {
		return false
	}
	if f.Search == "" {
		return true
	}
	q := strings.ToLower(f.Search)
	return strings.Contains(strings.ToLower(c.Name), q) ||
		strings.Contains(strings.ToLower(c.Parties), q)
}
