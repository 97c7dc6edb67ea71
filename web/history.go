package web

import (
	"sync"

	"github.com/google/uuid"

	"peinspect/common"
)

// History keeps the most recent analyses in memory, oldest evicted first.
type History struct {
	mu    sync.Mutex
	limit int
	order []string
	items map[string]*common.Result
}

func NewHistory(limit int) *History {
	return &History{
		limit: max(limit, 1),
		items: make(map[string]*common.Result),
	}
}

// Add assigns res a fresh ID, stores it and returns the ID.
func (h *History) Add(res *common.Result) string {
	id := uuid.NewString()
	res.ID = id

	h.mu.Lock()
	defer h.mu.Unlock()
	h.items[id] = res
	h.order = append(h.order, id)
	for len(h.order) > h.limit {
		delete(h.items, h.order[0])
		h.order = h.order[1:]
	}
	return id
}

func (h *History) Get(id string) (*common.Result, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	res, ok := h.items[id]
	return res, ok
}

func (h *History) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.order)
}
