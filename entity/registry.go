package entity

import (
	"reflect"
	"sync"

	"go.uber.org/yarpc/yarpcerrors"
)

// Registry is the process-wide descriptor cache. Entries are appended on
// first use and never evicted. Resolution is construct-once-publish-once:
// exactly one descriptor is built per spec even under a race, every caller
// observes the same fully validated instance, and a construction failure is
// sticky.
type Registry struct {
	mu      sync.Mutex
	entries map[string]*registryEntry
	byType  map[reflect.Type]*Descriptor
}

type registryEntry struct {
	once sync.Once
	desc *Descriptor
	err  error
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		entries: map[string]*registryEntry{},
		byType:  map[reflect.Type]*Descriptor{},
	}
}

// global registry used by the package-level helpers.
var defaultRegistry = NewRegistry()

// Resolve returns the descriptor for the spec, building and caching it on
// first use. Racing callers all observe the same instance; nobody sees a
// partially validated descriptor.
func (r *Registry) Resolve(spec *Spec) (*Descriptor, error) {
	r.mu.Lock()
	e, ok := r.entries[spec.Name]
	if !ok {
		e = &registryEntry{}
		r.entries[spec.Name] = e
	}
	r.mu.Unlock()

	e.once.Do(func() {
		e.desc, e.err = NewDescriptor(spec)
		if e.err != nil {
			return
		}
		r.mu.Lock()
		if e.desc.objectType != nil {
			r.byType[e.desc.objectType] = e.desc
		}
		for _, sub := range e.desc.Subtypes() {
			r.byType[sub.objectType] = e.desc
		}
		r.mu.Unlock()
	})
	return e.desc, e.err
}

// Lookup returns an already resolved descriptor by entity name.
func (r *Registry) Lookup(name string) (*Descriptor, error) {
	r.mu.Lock()
	e, ok := r.entries[name]
	r.mu.Unlock()
	if !ok || e.desc == nil {
		return nil, yarpcerrors.NotFoundErrorf(
			"descriptor not found for entity: %q", name)
	}
	return e.desc, nil
}

// ForObject returns the descriptor mapping the object's runtime type. For
// subtype instances this is the owning root descriptor.
func (r *Registry) ForObject(object interface{}) (*Descriptor, error) {
	t := reflect.TypeOf(object)
	r.mu.Lock()
	d, ok := r.byType[t]
	r.mu.Unlock()
	if !ok {
		return nil, yarpcerrors.NotFoundErrorf(
			"descriptor not found for type: %q", t.String())
	}
	return d, nil
}

// Resolve resolves a spec against the process-wide registry.
func Resolve(spec *Spec) (*Descriptor, error) { return defaultRegistry.Resolve(spec) }

// Lookup looks an entity up in the process-wide registry.
func Lookup(name string) (*Descriptor, error) { return defaultRegistry.Lookup(name) }

// ForObject resolves the descriptor of an object's runtime type against the
// process-wide registry.
func ForObject(object interface{}) (*Descriptor, error) { return defaultRegistry.ForObject(object) }
