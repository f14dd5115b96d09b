package rowmap

import (
	"reflect"
	"sync"
)

// Registry holds one schema per record type. The package-level functions use
// a lazily created default registry; create your own in tests.
type Registry struct {
	schemas sync.Map // key: reflect.Type -> *Schema[T]
}

func NewRegistry() *Registry { return &Registry{} }

// --- package-level lazy default registry (used by the generic entry points) ---

var (
	registry     *Registry
	registryOnce sync.Once
)

func defaultRegistry() *Registry {
	registryOnce.Do(func() { registry = NewRegistry() })
	return registry
}

// Register makes s the schema used for T by the package-level entry points,
// replacing any earlier registration or reflected schema. Call it during
// initialization. Register panics if s is nil.
func Register[T any](s *Schema[T]) { RegisterIn(defaultRegistry(), s) }

// SchemaFor returns the schema registered for T, deriving and caching one
// from T's `db` tags on first use if none was registered.
func SchemaFor[T any]() (*Schema[T], error) { return SchemaIn[T](defaultRegistry()) }

// RegisterIn is Register against r.
func RegisterIn[T any](r *Registry, s *Schema[T]) {
	if s == nil {
		panic("rowmap: Register of nil schema for " + recordName[T]())
	}
	r.schemas.Store(reflect.TypeFor[T](), s)
}

// SchemaIn is SchemaFor against r. Derivation errors are not cached.
func SchemaIn[T any](r *Registry) (*Schema[T], error) {
	rt := reflect.TypeFor[T]()
	if v, ok := r.schemas.Load(rt); ok {
		return v.(*Schema[T]), nil
	}
	s, err := Reflect[T]()
	if err != nil {
		return nil, err
	}
	v, _ := r.schemas.LoadOrStore(rt, s)
	return v.(*Schema[T]), nil
}

func recordName[T any]() string { return reflect.TypeFor[T]().String() }
