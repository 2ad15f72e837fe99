package ecs

// Removable is implemented by all component stores so the Registry can
// bulk-remove an entity's data from every store on destroy.
type Removable interface {
	Remove(e Entity)
	Clear()
}

// Store is a generic typed map store for one component kind.
type Store[T any] struct {
	data map[Entity]*T
}

func NewStore[T any]() *Store[T] {
	return &Store[T]{
		data: make(map[Entity]*T, 256),
	}
}

func (s *Store[T]) Set(e Entity, c *T) {
	s.data[e] = c
}

func (s *Store[T]) Get(e Entity) (*T, bool) {
	c, ok := s.data[e]
	return c, ok
}

func (s *Store[T]) Remove(e Entity) {
	delete(s.data, e)
}

func (s *Store[T]) Has(e Entity) bool {
	_, ok := s.data[e]
	return ok
}

func (s *Store[T]) Len() int {
	return len(s.data)
}

func (s *Store[T]) Clear() {
	clear(s.data)
}

// Each visits every stored component. fn must not add or remove components.
func (s *Store[T]) Each(fn func(Entity, *T)) {
	for e, c := range s.data {
		fn(e, c)
	}
}
