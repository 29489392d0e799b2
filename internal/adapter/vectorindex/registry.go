package vectorindex

import (
	"fmt"
	"sort"
	"sync"

	"ragbench/internal/domain"
	"ragbench/internal/port"
)

// Registry opens named indices on first use and keeps them for the life
// of the process. Index names are validated by NameValid.
type Registry struct {
	opts      Options
	nameValid func(string) bool

	mu      sync.Mutex
	indices map[string]*Index
}

// NewRegistry returns a registry whose indices share opts. nameValid may
// be nil to accept any name Open accepts.
func NewRegistry(opts Options, nameValid func(string) bool) *Registry {
	return &Registry{
		opts:      opts,
		nameValid: nameValid,
		indices:   make(map[string]*Index),
	}
}

// Index returns the named index, opening and loading it if needed.
func (r *Registry) Index(name string) (*Index, error) {
	if r.nameValid != nil && !r.nameValid(name) {
		return nil, fmt.Errorf("%w: invalid index name %q", domain.ErrInvalidInput, name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if ix, ok := r.indices[name]; ok {
		return ix, nil
	}
	ix, err := Open(name, r.opts)
	if err != nil {
		return nil, err
	}
	r.indices[name] = ix
	return ix, nil
}

// Get implements port.IndexProvider.
func (r *Registry) Get(name string) (port.VectorIndex, error) {
	ix, err := r.Index(name)
	if err != nil {
		return nil, err
	}
	return ix, nil
}

// Names lists the indices opened so far.
func (r *Registry) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	names := make([]string, 0, len(r.indices))
	for name := range r.indices {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
