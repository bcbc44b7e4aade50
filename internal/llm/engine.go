// Package llm turns a prescription photo into a markdown medicine report by
// driving a multimodal model through a tool-calling loop. The model reads
// the image, decides which medicine lookups to run, and writes the report
// from the lookup results.
package llm

import (
	"context"
	"fmt"
)

// EventKind tags a ProgressEvent so consumers can route it structurally
// instead of sniffing the text.
type EventKind string

const (
	// EventStage marks a pipeline phase change ("reading prescription...").
	EventStage EventKind = "stage"
	// EventModel carries intermediate model commentary.
	EventModel EventKind = "model"
	// EventToolCall announces a lookup the model requested.
	EventToolCall EventKind = "tool_call"
	// EventToolResult carries a (truncated) lookup result preview.
	EventToolResult EventKind = "tool_result"
)

// ProgressEvent is one step of analysis progress. The final report is NOT
// an event: Analyze returns it, so the end of the stream is unambiguous.
type ProgressEvent struct {
	Kind EventKind
	Text string
}

// Usage contains accumulated token usage and estimated cost for one analysis.
type Usage struct {
	InputTokens  int64
	OutputTokens int64
	TotalTokens  int64
	CostUSD      float64
}

// Report is the outcome of a prescription analysis.
type Report struct {
	// Markdown is the full report, one H2 section per medicine.
	Markdown string
	// Medicines lists the medicine names the model looked up.
	Medicines []string
	Usage     Usage
}

// Engine analyzes a prescription image. Implementations emit progress
// events through emit (which may be nil) and return the final report.
type Engine interface {
	Analyze(ctx context.Context, imageData []byte, mimeType string, emit func(ProgressEvent)) (*Report, error)
}

// maxToolRounds bounds how many times the model may respond with tool calls
// before we give up on it ever producing a report.
const maxToolRounds = 4

const systemPrompt = "You are MedGuide AI. Extract ALL medicine names from the prescription image. " +
	"If you find multiple medicines, use get_medicines_batch to fetch " +
	"all information at once for faster processing. For a single medicine, use get_medicine_info. " +
	"Create a comprehensive markdown report."

const extractPrompt = "Extract all medicine names from this prescription and get their details efficiently."

const reportPrompt = "Create a comprehensive markdown report with an H2 heading for each medicine that contains: " +
	"Description, Typical Duration, Price Information, and Purchase Link."

func emitEvent(emit func(ProgressEvent), kind EventKind, format string, a ...any) {
	if emit == nil {
		return
	}
	emit(ProgressEvent{Kind: kind, Text: fmt.Sprintf(format, a...)})
}

func calculateCost(inputTokens, outputTokens int64, inputPrice, outputPrice float64) float64 {
	inputCost := float64(inputTokens) / 1_000_000 * inputPrice
	outputCost := float64(outputTokens) / 1_000_000 * outputPrice
	return inputCost + outputCost
}

// truncateForPreview keeps tool result previews readable in progress events.
func truncateForPreview(s string, n int) string {
	if len(s) <= n {
		return s
	}
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
