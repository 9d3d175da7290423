package content

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"
)

type memoryRepo struct {
	mu    sync.Mutex
	items map[uuid.UUID]Item
}

func newMemoryRepo(items ...Item) *memoryRepo {
	m := &memoryRepo{items: make(map[uuid.UUID]Item)}
	for _, item := range items {
		m.items[item.ID] = item
	}
	return m
}

func (m *memoryRepo) List(_ context.Context, filters ListFilters) ([]Item, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var matched []Item
	for _, item := range m.items {
		if item.Kind != filters.Kind || (filters.PublishedOnly && !item.Published) {
			continue
		}
		matched = append(matched, item)
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].Slug < matched[j].Slug })
	total := len(matched)
	if filters.Offset >= total {
		return nil, total, nil
	}
	end := filters.Offset + filters.Limit
	if end > total {
		end = total
	}
	return matched[filters.Offset:end], total, nil
}

func (m *memoryRepo) GetBySlug(_ context.Context, kind Kind, slug string) (Item, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, item := range m.items {
		if item.Kind == kind && item.Slug == slug {
			return item, nil
		}
	}
	return Item{}, ErrNotFound
}

func (m *memoryRepo) Get(_ context.Context, kind Kind, id uuid.UUID) (Item, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	item, ok := m.items[id]
	if !ok || item.Kind != kind {
		return Item{}, ErrNotFound
	}
	return item, nil
}

func (m *memoryRepo) Create(_ context.Context, item Item) (Item, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.items {
		if existing.Kind == item.Kind && existing.Slug == item.Slug {
			return Item{}, ErrDuplicateSlug
		}
	}
	m.items[item.ID] = item
	return item, nil
}

func (m *memoryRepo) Update(_ context.Context, item Item) (Item, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.items[item.ID]; !ok {
		return Item{}, ErrNotFound
	}
	m.items[item.ID] = item
	return item, nil
}

func (m *memoryRepo) Delete(_ context.Context, kind Kind, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	item, ok := m.items[id]
	if !ok || item.Kind != kind {
		return ErrNotFound
	}
	delete(m.items, id)
	return nil
}
