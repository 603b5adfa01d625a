package store

import (
	"context"
	"path"
	"sort"
	"strings"
	"sync"

	"mt_trader/internal/models"
)

// Memory - хранилище в памяти, используется в тестах
type Memory struct {
	mu   sync.RWMutex
	docs map[string]models.Document
}

func NewMemory() *Memory {
	return &Memory{docs: make(map[string]models.Document)}
}

func (s *Memory) Write(_ context.Context, p string, doc models.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	copied := make(models.Document, len(doc))
	for k, v := range doc {
		copied[k] = v
	}
	s.docs[p] = copied

	return nil
}

func (s *Memory) Read(_ context.Context, p string) (models.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	doc, ok := s.docs[p]
	if !ok {
		return models.Document{}, nil
	}

	copied := make(models.Document, len(doc))
	for k, v := range doc {
		copied[k] = v
	}

	return copied, nil
}

func (s *Memory) List(_ context.Context, dir string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	dir = strings.TrimSuffix(dir, "/")

	var names []string
	for p := range s.docs {
		if path.Dir(p) == dir && strings.HasSuffix(p, ".json") {
			names = append(names, path.Base(p))
		}
	}
	sort.Strings(names)

	return names, nil
}

func (s *Memory) Delete(_ context.Context, p string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.docs, p)

	return nil
}
