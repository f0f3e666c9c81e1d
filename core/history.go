package core

import (
	"sync"

	"aide/core/llm"
)

// DefaultMaxHistory is the number of turns kept per user.
const DefaultMaxHistory = 10

type Turn = llm.Message

// History holds the rolling conversation of each user.
type History interface {
	Get(userID UserID) []Turn
	Append(userID UserID, role, content string)
	Clear(userID UserID)
}

// MemoryHistory keeps turns in process memory only. The mutex guards the
// map itself; a reset racing an in-flight completion for the same user is
// still possible and accepted.
type MemoryHistory struct {
	mu            sync.RWMutex
	conversations map[UserID][]Turn
	maxHistory    int
}

var _ History = (*MemoryHistory)(nil)

// NewMemoryHistory keeps at most maxHistory turns per user. Values outside
// 1..DefaultMaxHistory fall back to DefaultMaxHistory.
func NewMemoryHistory(maxHistory int) *MemoryHistory {
	if maxHistory <= 0 || maxHistory > DefaultMaxHistory {
		maxHistory = DefaultMaxHistory
	}
	return &MemoryHistory{
		conversations: make(map[UserID][]Turn),
		maxHistory:    maxHistory,
	}
}

// Get returns a copy of the user's turns, oldest first.
func (h *MemoryHistory) Get(userID UserID) []Turn {
	h.mu.RLock()
	defer h.mu.RUnlock()

	turns := h.conversations[userID]
	out := make([]Turn, len(turns))
	copy(out, turns)
	return out
}

func (h *MemoryHistory) Append(userID UserID, role, content string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	turns := append(h.conversations[userID], Turn{Role: role, Content: content})
	if len(turns) > h.maxHistory {
		trimmed := make([]Turn, h.maxHistory)
		copy(trimmed, turns[len(turns)-h.maxHistory:])
		turns = trimmed
	}
	h.conversations[userID] = turns
}

// Clear empties the user's turns but keeps the entry.
func (h *MemoryHistory) Clear(userID UserID) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.conversations[userID] = []Turn{}
}

// Len reports how many users have an entry, cleared ones included.
func (h *MemoryHistory) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return len(h.conversations)
}
