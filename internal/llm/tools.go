package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/tkarvo/medguide-bot/internal/medinfo"
)

const (
	toolMedicineInfo   = "get_medicine_info"
	toolMedicinesBatch = "get_medicines_batch"

	medicineInfoToolDescription   = "Fetch markdown info, URL, and description for a single medicine via web search"
	medicinesBatchToolDescription = "Fetch info for multiple medicines concurrently"
)

// toolRunner executes the lookup tools the model calls during one analysis
// and remembers which medicine names were requested. Tool failures are
// reported back to the model as error payloads, never as Go errors: a
// confused model gets a chance to recover, the loop never crashes.
type toolRunner struct {
	pool    *medinfo.Pool
	ceiling int

	mu   sync.Mutex
	seen []string
}

// newToolRunner wires the lookup tools to the fan-out pool. ceiling caps
// batch concurrency; pass 0 for the default.
func newToolRunner(lookuper medinfo.Lookuper, ceiling int) *toolRunner {
	if ceiling <= 0 {
		ceiling = medinfo.DefaultMaxConcurrent
	}
	return &toolRunner{pool: medinfo.NewPool(lookuper), ceiling: ceiling}
}

func (t *toolRunner) record(names ...string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, name := range names {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		duplicate := false
		for _, s := range t.seen {
			if strings.EqualFold(s, name) {
				duplicate = true
				break
			}
		}
		if !duplicate {
			t.seen = append(t.seen, name)
		}
	}
}

// medicines returns the distinct medicine names looked up so far, in the
// order the model first asked for them.
func (t *toolRunner) medicines() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]string, len(t.seen))
	copy(out, t.seen)
	return out
}

// run dispatches one tool call and returns the JSON payload to feed back to
// the model.
func (t *toolRunner) run(ctx context.Context, name, argsJSON string) string {
	switch name {
	case toolMedicineInfo:
		var args struct {
			Name string `json:"name"`
		}
		if err := json.Unmarshal([]byte(argsJSON), &args); err != nil {
			return toolErrorPayload(fmt.Sprintf("invalid arguments for %s: %v", name, err))
		}
		if strings.TrimSpace(args.Name) == "" {
			return toolErrorPayload(fmt.Sprintf("%s requires a non-empty name", name))
		}

		t.record(args.Name)
		results := t.pool.LookupBatch(ctx, []string{args.Name}, 1)
		return marshalToolPayload(results[0])

	case toolMedicinesBatch:
		var args struct {
			MedicineNames []string `json:"medicine_names"`
			MaxWorkers    int      `json:"max_workers"`
		}
		if err := json.Unmarshal([]byte(argsJSON), &args); err != nil {
			return toolErrorPayload(fmt.Sprintf("invalid arguments for %s: %v", name, err))
		}
		if len(args.MedicineNames) == 0 {
			return toolErrorPayload(fmt.Sprintf("%s requires at least one medicine name", name))
		}

		// The model may ask for fewer workers than configured, never more.
		workers := t.ceiling
		if args.MaxWorkers > 0 && args.MaxWorkers < workers {
			workers = args.MaxWorkers
		}

		t.record(args.MedicineNames...)
		results := t.pool.LookupBatch(ctx, args.MedicineNames, workers)
		return marshalToolPayload(results)

	default:
		log.Warn().Str("tool", name).Msg("model called an unknown tool")
		return toolErrorPayload("unknown tool: " + name)
	}
}

func toolErrorPayload(msg string) string {
	payload, _ := json.Marshal(map[string]string{"error": msg})
	return string(payload)
}

func marshalToolPayload(v any) string {
	payload, err := json.Marshal(v)
	if err != nil {
		return toolErrorPayload(fmt.Sprintf("failed to encode tool result: %v", err))
	}
	return string(payload)
}
