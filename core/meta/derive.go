package meta

import (
	"context"
	"fmt"
	"reflect"
	"sync"
)

// Deriver transforms a freshly parsed asset value into a precomputed
// or optimized artifact before it is handed to consumers. Typical uses
// are texture compression or mesh optimization done once at import.
type Deriver interface {
	// Name identifies the deriver in logs and derived-artifact records.
	Name() string
	// Derive returns the replacement value. It may return the input
	// unchanged.
	Derive(ctx context.Context, value any) (any, error)
}

// Derivers maps value types to an optional Deriver. When no deriver is
// registered for a type, Apply passes the value through unchanged.
type Derivers struct {
	mu     sync.RWMutex
	byType map[reflect.Type]Deriver
}

func NewDerivers() *Derivers {
	return &Derivers{byType: make(map[reflect.Type]Deriver)}
}

// Register installs d for values of type t, replacing any previous
// registration.
func (r *Derivers) Register(t reflect.Type, d Deriver) {
	r.mu.Lock()
	r.byType[t] = d
	r.mu.Unlock()
}

// RegisterFor installs d for values of type T.
func RegisterFor[T any](r *Derivers, d Deriver) {
	r.Register(reflect.TypeFor[T](), d)
}

// Apply runs the deriver registered for the value's type, if any. The
// second result names the deriver that ran, empty on passthrough.
func (r *Derivers) Apply(ctx context.Context, value any) (any, string, error) {
	r.mu.RLock()
	d, ok := r.byType[reflect.TypeOf(value)]
	r.mu.RUnlock()
	if !ok {
		return value, "", nil
	}

	derived, err := d.Derive(ctx, value)
	if err != nil {
		return nil, d.Name(), fmt.Errorf("deriver %q: %w", d.Name(), err)
	}
	return derived, d.Name(), nil
}
