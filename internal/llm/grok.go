package llm

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/rs/zerolog/log"

	"github.com/tkarvo/medguide-bot/internal/medinfo"
)

const (
	grokModel  = "grok-4"
	xaiBaseURL = "https://eu-west-1.api.x.ai/v1"
)

// Grok-4 pricing (per million tokens)
const (
	grokInputPricePerMillion  = 3.00
	grokOutputPricePerMillion = 15.00
)

// GrokEngineOpts configures a GrokEngine. Zero values select the xAI
// endpoint and the default model.
type GrokEngineOpts struct {
	APIKey  string
	BaseURL string
	Model   string
	// MaxConcurrent caps concurrent lookups in batch tool calls (0 = default).
	MaxConcurrent int
}

// GrokEngine implements Engine on xAI's Grok through the OpenAI-compatible
// chat completions API.
type GrokEngine struct {
	client        openai.Client
	lookuper      medinfo.Lookuper
	model         string
	maxConcurrent int
}

func NewGrokEngine(opts GrokEngineOpts, lookuper medinfo.Lookuper) *GrokEngine {
	baseURL := xaiBaseURL
	if opts.BaseURL != "" {
		baseURL = opts.BaseURL
	}
	model := grokModel
	if opts.Model != "" {
		model = opts.Model
	}

	client := openai.NewClient(
		option.WithAPIKey(opts.APIKey),
		option.WithBaseURL(baseURL),
	)

	return &GrokEngine{client: client, lookuper: lookuper, model: model, maxConcurrent: opts.MaxConcurrent}
}

func grokToolDefinitions() []openai.ChatCompletionToolParam {
	return []openai.ChatCompletionToolParam{
		{
			Function: openai.FunctionDefinitionParam{
				Name:        toolMedicineInfo,
				Description: openai.String(medicineInfoToolDescription),
				Parameters: openai.FunctionParameters{
					"type": "object",
					"properties": map[string]any{
						"name": map[string]any{
							"type":        "string",
							"description": "Name of the medicine",
						},
					},
					"required": []string{"name"},
				},
			},
		},
		{
			Function: openai.FunctionDefinitionParam{
				Name:        toolMedicinesBatch,
				Description: openai.String(medicinesBatchToolDescription),
				Parameters: openai.FunctionParameters{
					"type": "object",
					"properties": map[string]any{
						"medicine_names": map[string]any{
							"type":        "array",
							"items":       map[string]any{"type": "string"},
							"description": "List of medicine names",
						},
						"max_workers": map[string]any{
							"type":        "integer",
							"description": "Maximum concurrent lookups (default: 5)",
						},
					},
					"required": []string{"medicine_names"},
				},
			},
		},
	}
}

// Analyze implements Engine. It runs the tool-calling loop until the model
// stops asking for lookups, then returns its markdown report.
func (e *GrokEngine) Analyze(ctx context.Context, imageData []byte, mimeType string, emit func(ProgressEvent)) (*Report, error) {
	runner := newToolRunner(e.lookuper, e.maxConcurrent)

	emitEvent(emit, EventStage, "Preparing image for analysis")
	dataURL := fmt.Sprintf("data:%s;base64,%s", mimeType, base64.StdEncoding.EncodeToString(imageData))

	params := openai.ChatCompletionNewParams{
		Model: e.model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt),
			openai.UserMessage([]openai.ChatCompletionContentPartUnionParam{
				openai.TextContentPart(extractPrompt),
				openai.ImageContentPart(openai.ChatCompletionContentPartImageImageURLParam{
					URL:    dataURL,
					Detail: "high",
				}),
			}),
		},
		Tools: grokToolDefinitions(),
	}

	emitEvent(emit, EventStage, "Reading prescription with %s", e.model)

	var usage Usage
	resp, err := e.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("chat completion failed: %w", err)
	}
	addGrokUsage(&usage, resp)
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("no choices in model response")
	}
	msg := resp.Choices[0].Message

	reportRequested := false
	for round := 0; len(msg.ToolCalls) > 0; round++ {
		if round >= maxToolRounds {
			return nil, fmt.Errorf("model kept calling tools after %d rounds", maxToolRounds)
		}

		if msg.Content != "" {
			emitEvent(emit, EventModel, "%s", msg.Content)
		}

		params.Messages = append(params.Messages, msg.ToParam())

		for i, tc := range msg.ToolCalls {
			emitEvent(emit, EventToolCall, "Tool call %d/%d: %s %s", i+1, len(msg.ToolCalls), tc.Function.Name, tc.Function.Arguments)
			log.Info().
				Str("tool", tc.Function.Name).
				Str("args", tc.Function.Arguments).
				Msg("executing tool call")

			payload := runner.run(ctx, tc.Function.Name, tc.Function.Arguments)
			emitEvent(emit, EventToolResult, "%s", truncateForPreview(payload, 500))

			params.Messages = append(params.Messages, openai.ToolMessage(payload, tc.ID))
		}

		if !reportRequested {
			emitEvent(emit, EventStage, "Generating final report")
			params.Messages = append(params.Messages, openai.UserMessage(reportPrompt))
			reportRequested = true
		}

		resp, err = e.client.Chat.Completions.New(ctx, params)
		if err != nil {
			return nil, fmt.Errorf("chat completion failed: %w", err)
		}
		addGrokUsage(&usage, resp)
		if len(resp.Choices) == 0 {
			return nil, fmt.Errorf("no choices in model response")
		}
		msg = resp.Choices[0].Message
	}

	markdown := strings.TrimSpace(msg.Content)
	if markdown == "" {
		return nil, fmt.Errorf("model returned neither tool calls nor content")
	}

	usage.CostUSD = calculateCost(usage.InputTokens, usage.OutputTokens, grokInputPricePerMillion, grokOutputPricePerMillion)
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

func addGrokUsage(usage *Usage, resp *openai.ChatCompletion) {
	usage.InputTokens += resp.Usage.PromptTokens
	usage.OutputTokens += resp.Usage.CompletionTokens
	usage.TotalTokens += resp.Usage.TotalTokens
}
