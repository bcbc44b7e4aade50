package bot

import "sync"

// botState tracks which users have an analysis in flight. A user gets one
// analysis at a time; the flag is explicit state behind a lock, and every
// exit path of the holder must release it.
type botState struct {
	mu   sync.Mutex
	busy map[int64]bool
}

func newBotState() *botState {
	return &botState{busy: make(map[int64]bool)}
}

// tryBegin marks the user busy. Returns false if an analysis is already
// running for them.
func (s *botState) tryBegin(userID int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.busy[userID] {
		return false
	}
	s.busy[userID] = true
	return true
}

// end marks the user idle again.
func (s *botState) end(userID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.busy, userID)
}
