package jobs

import (
	"context"
	"fmt"
	"sync"
)

// Router dispatches jobs to the handler registered for their type.
type Router struct {
	mu       sync.RWMutex
	handlers map[JobType]JobHandler
}

func NewRouter() *Router {
	return &Router{handlers: make(map[JobType]JobHandler)}
}

// Handle registers h for t, replacing any earlier handler.
func (r *Router) Handle(t JobType, h JobHandler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[t] = h
}

// Handles reports whether a handler is registered for t.
func (r *Router) Handles(t JobType) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.handlers[t]
	return ok
}

// Dispatch is a JobHandler that routes by job type.
func (r *Router) Dispatch(ctx context.Context, job *Job) (string, error) {
	r.mu.RLock()
	h, ok := r.handlers[job.Type]
	r.mu.RUnlock()
	if !ok {
		return "", fmt.Errorf("no handler for job type %q", job.Type)
	}
	return h(ctx, job)
}
