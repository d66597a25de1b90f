package server

import (
	"context"
	"reflect"

	"asset-pipeline/core/asset"

	"github.com/google/uuid"
)

// Loader parses source bytes into one or more asset values plus their
// dependency paths. Implementations are registered at server
// construction and matched by file extension.
type Loader interface {
	// Name identifies the loader in logs.
	Name() string
	// Extensions lists the file extensions (without dot) this loader
	// handles.
	Extensions() []string
	// Load parses lc.Bytes() and records the produced values on the
	// context via SetDefault / SetLabeled.
	Load(ctx context.Context, lc *LoadContext) error
}

// Serializer turns an asset value back into bytes, identified by a
// stable type tag. Used by Save and, when enabled, for import
// artifacts.
type Serializer interface {
	// TypeTag is the serializer's stable identity.
	TypeTag() uuid.UUID
	// Extension is the file extension (without dot) of the serialized
	// form.
	Extension() string
	// Serialize encodes the value.
	Serialize(value any) ([]byte, error)
}

// AddLoader registers a loader for its extensions. Later registrations
// win on extension conflicts. Expected at construction time; safe under
// the server's registration lock afterwards.
func (s *Server) AddLoader(l Loader) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loaders = append(s.loaders, l)
	for _, ext := range l.Extensions() {
		s.byExt[ext] = l
	}
}

// AddSerializer registers ser for values of the given type.
func (s *Server) AddSerializer(forType reflect.Type, ser Serializer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.serializers[forType] = ser
}

// RegisterStore registers a typed asset store. Parsed values are
// routed to the store whose value type matches.
func (s *Server) RegisterStore(lc asset.Lifecycle) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stores[lc.ValueType()] = lc
	s.storesByTag[lc.TypeTag()] = lc
}

// loaderFor resolves the loader for a path by extension. Nil when none
// is registered.
func (s *Server) loaderFor(p asset.Path) Loader {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.byExt[p.Extension()]
}

func (s *Server) serializerFor(t reflect.Type) (Serializer, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ser, ok := s.serializers[t]
	return ser, ok
}

// StoreForTag returns the store registered under the given type tag.
func (s *Server) StoreForTag(tag uuid.UUID) (asset.Lifecycle, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.storesByTag[tag]
	return st, ok
}

// ResolveTyped reports whether the asset behind h was committed with
// the value type registered under tag. Callers holding an untyped
// handle use this before resolving against a typed store.
func (s *Server) ResolveTyped(h *asset.Handle, tag uuid.UUID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.storesByTag[tag]
	if !ok {
		return false
	}
	t, ok := s.typeByID[h.ID()]
	return ok && st.ValueType() == t
}
