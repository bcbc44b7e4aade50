package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	"google.golang.org/genai"

	"github.com/tkarvo/medguide-bot/internal/medinfo"
)

const geminiModel = "gemini-3-flash-preview"

// Gemini pricing (per million tokens)
const (
	geminiInputPricePerMillion  = 0.50
	geminiOutputPricePerMillion = 3.00
)

// GeminiEngine implements Engine on Google's Gemini API with function
// calling. Selected with LLM_PROVIDER=gemini.
type GeminiEngine struct {
	client        *genai.Client
	lookuper      medinfo.Lookuper
	model         string
	maxConcurrent int
}

func NewGeminiEngine(ctx context.Context, apiKey string, lookuper medinfo.Lookuper, maxConcurrent int) (*GeminiEngine, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: apiKey})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	return &GeminiEngine{client: client, lookuper: lookuper, model: geminiModel, maxConcurrent: maxConcurrent}, nil
}

func geminiToolDeclarations() []*genai.Tool {
	return []*genai.Tool{{
		FunctionDeclarations: []*genai.FunctionDeclaration{
			{
				Name:        toolMedicineInfo,
				Description: medicineInfoToolDescription,
				Parameters: &genai.Schema{
					Type: genai.TypeObject,
					Properties: map[string]*genai.Schema{
						"name": {Type: genai.TypeString, Description: "Name of the medicine"},
					},
					Required: []string{"name"},
				},
			},
			{
				Name:        toolMedicinesBatch,
				Description: medicinesBatchToolDescription,
				Parameters: &genai.Schema{
					Type: genai.TypeObject,
					Properties: map[string]*genai.Schema{
						"medicine_names": {
							Type:        genai.TypeArray,
							Items:       &genai.Schema{Type: genai.TypeString},
							Description: "List of medicine names",
						},
						"max_workers": {
							Type:        genai.TypeInteger,
							Description: "Maximum concurrent lookups (default: 5)",
						},
					},
					Required: []string{"medicine_names"},
				},
			},
		},
	}}
}

// Analyze implements Engine using Gemini function calling.
func (e *GeminiEngine) Analyze(ctx context.Context, imageData []byte, mimeType string, emit func(ProgressEvent)) (*Report, error) {
	runner := newToolRunner(e.lookuper, e.maxConcurrent)

	emitEvent(emit, EventStage, "Preparing image for analysis")

	contents := []*genai.Content{
		genai.NewContentFromParts([]*genai.Part{
			genai.NewPartFromText(extractPrompt),
			{InlineData: &genai.Blob{Data: imageData, MIMEType: mimeType}},
		}, genai.RoleUser),
	}

	config := &genai.GenerateContentConfig{
		Tools:             geminiToolDeclarations(),
		SystemInstruction: genai.NewContentFromText(systemPrompt, genai.RoleUser),
	}

	emitEvent(emit, EventStage, "Reading prescription with %s", e.model)

	var usage Usage
	reportRequested := false

	for round := 0; ; round++ {
		if round > maxToolRounds {
			return nil, fmt.Errorf("model kept calling tools after %d rounds", maxToolRounds)
		}

		result, err := e.client.Models.GenerateContent(ctx, e.model, contents, config)
		if err != nil {
			return nil, fmt.Errorf("failed to generate content: %w", err)
		}
		if len(result.Candidates) == 0 || result.Candidates[0].Content == nil {
			return nil, fmt.Errorf("no response from Gemini")
		}
		addGeminiUsage(&usage, result)

		calls := result.FunctionCalls()
		if len(calls) == 0 {
			markdown := strings.TrimSpace(result.Text())
			if markdown == "" {
				return nil, fmt.Errorf("model returned neither tool calls nor content")
			}

			usage.CostUSD = calculateCost(usage.InputTokens, usage.OutputTokens, geminiInputPricePerMillion, geminiOutputPricePerMillion)
			log.Info().
				Str("model", e.model).
				Int64("inputTokens", usage.InputTokens).
				Int64("outputTokens", usage.OutputTokens).
				Float64("costUSD", usage.CostUSD).
				Strs("medicines", runner.medicines()).
				Msg("prescription analysis complete")

			return &Report{
				Markdown:  markdown,
				Medicines: runner.medicines(),
				Usage:     usage,
			}, nil
		}

		if text := strings.TrimSpace(result.Text()); text != "" {
			emitEvent(emit, EventModel, "%s", text)
		}

		contents = append(contents, result.Candidates[0].Content)

		responseParts := make([]*genai.Part, 0, len(calls))
		for i, call := range calls {
			argsJSON, err := json.Marshal(call.Args)
			if err != nil {
				argsJSON = []byte("{}")
			}

			emitEvent(emit, EventToolCall, "Tool call %d/%d: %s %s", i+1, len(calls), call.Name, argsJSON)
			log.Info().Str("tool", call.Name).RawJSON("args", argsJSON).Msg("executing tool call")

			payload := runner.run(ctx, call.Name, string(argsJSON))
			emitEvent(emit, EventToolResult, "%s", truncateForPreview(payload, 500))

			// FunctionResponse payloads must be JSON objects; batch results
			// come back as arrays, so wrap uniformly.
			var parsed any
			if err := json.Unmarshal([]byte(payload), &parsed); err != nil {
				parsed = payload
			}
			responseParts = append(responseParts, genai.NewPartFromFunctionResponse(call.Name, map[string]any{
				"result": parsed,
			}))
		}
		contents = append(contents, genai.NewContentFromParts(responseParts, genai.RoleUser))

		if !reportRequested {
			emitEvent(emit, EventStage, "Generating final report")
			contents = append(contents, genai.NewContentFromText(reportPrompt, genai.RoleUser))
			reportRequested = true
		}
	}
}

func addGeminiUsage(usage *Usage, result *genai.GenerateContentResponse) {
	if result.UsageMetadata == nil {
		return
	}
	usage.InputTokens += int64(result.UsageMetadata.PromptTokenCount)
	usage.OutputTokens += int64(result.UsageMetadata.CandidatesTokenCount)
	usage.TotalTokens += int64(result.UsageMetadata.TotalTokenCount)
}
