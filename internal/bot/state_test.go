package bot

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBotStateOneAnalysisPerUser(t *testing.T) {
	state := newBotState()

	assert.True(t, state.tryBegin(1))
	assert.False(t, state.tryBegin(1))

	// A different user is unaffected.
	assert.True(t, state.tryBegin(2))

	state.end(1)
	assert.True(t, state.tryBegin(1))
}

func TestBotStateConcurrentBeginsAdmitOne(t *testing.T) {
	state := newBotState()

	var wg sync.WaitGroup
	var mu sync.Mutex
	admitted := 0

	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if state.tryBegin(1) {
				mu.Lock()
				admitted++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, admitted)
}
