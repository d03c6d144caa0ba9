package pdfs

// TemplateStore caches imported page templates by key.
// A store belongs to exactly one Writer; it is dropped together with it.
type TemplateStore[K comparable, T any] struct {
	templates map[K]T
}

func NewTemplateStore[K comparable, T any]() *TemplateStore[K, T] {
	return &TemplateStore[K, T]{templates: make(map[K]T)}
}

func (s *TemplateStore[K, T]) Store(key K, template T) {
	s.templates[key] = template
}

func (s *TemplateStore[K, T]) Get(key K) (T, bool) {
	t, ok := s.templates[key]
	return t, ok
}

func (s *TemplateStore[K, T]) Remove(key K) {
	delete(s.templates, key)
}

func (s *TemplateStore[K, T]) Len() int {
	return len(s.templates)
}
