package runtime

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	domaintasks "github.com/yungbote/kpi-visual-backend/internal/domain/tasks"
)

var (
	ErrUnknownJobType   = errors.New("unknown job type")
	ErrDuplicateHandler = errors.New("handler already registered")
)

// Handler runs one claimed upload task.
type Handler interface {
	Type() string
	Run(ctx *Context) error
}

// Registry maps upload_task.job_type to its handler. Only job types the task
// table can hold are accepted.
type Registry struct {
	mu       sync.RWMutex
	handlers map[string]Handler
}

func NewRegistry() *Registry {
	return &Registry{handlers: make(map[string]Handler, len(domaintasks.JobTypes))}
}

func (r *Registry) Register(h Handler) error {
	if h == nil {
		return fmt.Errorf("register: nil handler")
	}
	jobType := strings.TrimSpace(h.Type())
	if !domaintasks.KnownJobType(jobType) {
		return fmt.Errorf("register %q: %w", jobType, ErrUnknownJobType)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.handlers[jobType]; exists {
		return fmt.Errorf("register %q: %w", jobType, ErrDuplicateHandler)
	}
	r.handlers[jobType] = h
	return nil
}

// Get resolves a task's handler. Rows written before job_type existed carry a
// blank value and run as upload ETL.
func (r *Registry) Get(jobType string) (Handler, bool) {
	jobType = strings.TrimSpace(jobType)
	if jobType == "" {
		jobType = domaintasks.JobTypeETL
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.handlers[jobType]
	return h, ok
}

// Types returns the registered job types, sorted.
func (r *Registry) Types() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.handlers))
	for t := range r.handlers {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}
