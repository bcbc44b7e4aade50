// Package medinfo looks up real-world information about medicines through
// the Firecrawl search API. Lookups never fail outright: every requested
// name produces exactly one Result, degraded to a fallback or error status
// when the web has nothing useful to say.
package medinfo

import "context"

// Status describes how a lookup went.
type Status string

const (
	// StatusSuccess means the search returned scraped markdown content.
	StatusSuccess Status = "success"
	// StatusFallback means we got degraded but usable data (e.g. only a
	// search snippet, or no hits at all).
	StatusFallback Status = "fallback"
	// StatusError means the lookup failed (network, API or timeout).
	StatusError Status = "error"
)

// Result is the outcome of a single medicine lookup. The JSON field names
// are part of the tool-calling contract with the LLM.
type Result struct {
	Name        string `json:"name"`
	Status      Status `json:"status"`
	Info        string `json:"info_markdown"`
	URL         string `json:"url,omitempty"`
	Description string `json:"description,omitempty"`
}

// Lookuper maps a medicine name to a Result. Implementations must not
// return errors or panic past this boundary; failures are reported in the
// Result's Status field.
type Lookuper interface {
	Lookup(ctx context.Context, name string) Result
}

func errorResult(name, msg string) Result {
	return Result{
		Name:        name,
		Status:      StatusError,
		Info:        "Error fetching data",
		Description: msg,
	}
}
