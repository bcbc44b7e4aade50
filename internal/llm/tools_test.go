package llm

import (
	"context"
	"encoding/json"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tkarvo/medguide-bot/internal/medinfo"
)

type fakeLookuper struct {
	calls []string
}

func (f *fakeLookuper) Lookup(ctx context.Context, name string) medinfo.Result {
	f.calls = append(f.calls, name)
	return medinfo.Result{Name: name, Status: medinfo.StatusSuccess, Info: "info for " + name}
}

func TestToolRunnerSingleLookup(t *testing.T) {
	lookuper := &fakeLookuper{}
	runner := newToolRunner(lookuper, 0)

	payload := runner.run(context.Background(), toolMedicineInfo, `{"name": "Paracetamol"}`)

	var result medinfo.Result
	require.NoError(t, json.Unmarshal([]byte(payload), &result))
	assert.Equal(t, "Paracetamol", result.Name)
	assert.Equal(t, medinfo.StatusSuccess, result.Status)
	assert.Equal(t, []string{"Paracetamol"}, runner.medicines())
}

func TestToolRunnerBatchLookup(t *testing.T) {
	lookuper := &fakeLookuper{}
	runner := newToolRunner(lookuper, 0)

	payload := runner.run(context.Background(), toolMedicinesBatch,
		`{"medicine_names": ["Paracetamol", "Ibuprofen"], "max_workers": 2}`)

	var results []medinfo.Result
	require.NoError(t, json.Unmarshal([]byte(payload), &results))
	assert.Len(t, results, 2)
	assert.ElementsMatch(t, []string{"Paracetamol", "Ibuprofen"}, runner.medicines())
}

func TestToolRunnerDeduplicatesMedicines(t *testing.T) {
	lookuper := &fakeLookuper{}
	runner := newToolRunner(lookuper, 0)

	runner.run(context.Background(), toolMedicineInfo, `{"name": "Paracetamol"}`)
	runner.run(context.Background(), toolMedicineInfo, `{"name": "paracetamol"}`)
	runner.run(context.Background(), toolMedicineInfo, `{"name": "Ibuprofen"}`)

	assert.Equal(t, []string{"Paracetamol", "Ibuprofen"}, runner.medicines())
}

func TestToolRunnerUnknownTool(t *testing.T) {
	runner := newToolRunner(&fakeLookuper{}, 0)

	payload := runner.run(context.Background(), "launch_missiles", `{}`)

	var errPayload map[string]string
	require.NoError(t, json.Unmarshal([]byte(payload), &errPayload))
	assert.Contains(t, errPayload["error"], "unknown tool")
}

func TestToolRunnerInvalidArguments(t *testing.T) {
	runner := newToolRunner(&fakeLookuper{}, 0)

	for _, args := range []string{`not json`, `{"name": ""}`, `{}`} {
		payload := runner.run(context.Background(), toolMedicineInfo, args)

		var errPayload map[string]string
		require.NoError(t, json.Unmarshal([]byte(payload), &errPayload), "args: %s", args)
		assert.NotEmpty(t, errPayload["error"], "args: %s", args)
	}
}

func TestToolRunnerEmptyBatch(t *testing.T) {
	runner := newToolRunner(&fakeLookuper{}, 0)

	payload := runner.run(context.Background(), toolMedicinesBatch, `{"medicine_names": []}`)

	var errPayload map[string]string
	require.NoError(t, json.Unmarshal([]byte(payload), &errPayload))
	assert.Contains(t, errPayload["error"], "at least one")
}

// concurrencyProbe records the highest number of simultaneous lookups.
type concurrencyProbe struct {
	inFlight atomic.Int32
	maxSeen  atomic.Int32
}

func (p *concurrencyProbe) Lookup(ctx context.Context, name string) medinfo.Result {
	n := p.inFlight.Add(1)
	for {
		seen := p.maxSeen.Load()
		if n <= seen || p.maxSeen.CompareAndSwap(seen, n) {
			break
		}
	}
	time.Sleep(20 * time.Millisecond)
	p.inFlight.Add(-1)
	return medinfo.Result{Name: name, Status: medinfo.StatusSuccess}
}

func TestToolRunnerBatchCapsModelRequestedWorkers(t *testing.T) {
	probe := &concurrencyProbe{}
	runner := newToolRunner(probe, 2)

	// The model asks for more workers than configured; the ceiling wins.
	runner.run(context.Background(), toolMedicinesBatch,
		`{"medicine_names": ["a", "b", "c", "d", "e"], "max_workers": 50}`)

	assert.LessOrEqual(t, probe.maxSeen.Load(), int32(2))
}
