package memory

import "sync"

// syncMap is a typed wrapper over sync.Map.
type syncMap[K comparable, V any] struct {
	m sync.Map
}

func (s *syncMap[K, V]) Load(key K) (V, bool) {
	v, ok := s.m.Load(key)
	if !ok {
		var zero V
		return zero, false
	}
	return v.(V), true
}

func (s *syncMap[K, V]) LoadOrStore(key K, value V) (V, bool) {
	v, loaded := s.m.LoadOrStore(key, value)
	return v.(V), loaded
}

func (s *syncMap[K, V]) Store(key K, value V) {
	s.m.Store(key, value)
}

func (s *syncMap[K, V]) Swap(key K, value V) (V, bool) {
	v, loaded := s.m.Swap(key, value)
	if !loaded {
		var zero V
		return zero, false
	}
	return v.(V), true
}

func (s *syncMap[K, V]) CompareAndSwap(key K, old, value V) bool {
	return s.m.CompareAndSwap(key, old, value)
}

func (s *syncMap[K, V]) CompareAndDelete(key K, old V) bool {
	return s.m.CompareAndDelete(key, old)
}

func (s *syncMap[K, V]) Range(fn func(key K, value V) bool) {
	s.m.Range(func(k, v any) bool {
		return fn(k.(K), v.(V))
	})
}
