package bookmarks

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore is the demo-mode Store: a per-owner in-process collection
// with no durability and no cross-process visibility. All data is lost on
// restart. Constructed once at startup and handed to the transport; there
// is no package-level instance.
type MemoryStore struct {
	mu      sync.Mutex
	byOwner map[string][]Bookmark
	broker  *Broker
}

func NewMemoryStore(broker *Broker) *MemoryStore {
	return &MemoryStore{
		byOwner: make(map[string][]Bookmark),
		broker:  broker,
	}
}

func (s *MemoryStore) List(_ context.Context, ownerID string) ([]Bookmark, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	items := s.byOwner[ownerID]
	out := make([]Bookmark, len(items))
	// Newest-appended first, then a stable sort by created_at, so records
	// sharing a timestamp still come back newest first.
	for i := range items {
		out[len(items)-1-i] = items[i]
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (s *MemoryStore) Add(_ context.Context, ownerID, rawURL, title string) (*Bookmark, error) {
	u, err := normalizeURL(rawURL)
	if err != nil {
		return nil, err
	}
	t, err := normalizeTitle(title)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	b := Bookmark{
		ID:        uuid.NewString(),
		OwnerID:   ownerID,
		URL:       u,
		Title:     t,
		CreatedAt: now,
		UpdatedAt: now,
	}

	s.mu.Lock()
	s.byOwner[ownerID] = append(s.byOwner[ownerID], b)
	s.mu.Unlock()

	s.broker.Publish(Event{Op: OpInsert, Bookmark: b})
	return &b, nil
}

func (s *MemoryStore) Update(_ context.Context, ownerID, id string, patch Patch) (*Bookmark, error) {
	if patch.URL == nil && patch.Title == nil {
		return nil, &ValidationError{Reason: "nothing to update"}
	}

	var (
		u, t string
		err  error
	)
	if patch.URL != nil {
		if u, err = normalizeURL(*patch.URL); err != nil {
			return nil, err
		}
	}
	if patch.Title != nil {
		if t, err = normalizeTitle(*patch.Title); err != nil {
			return nil, err
		}
	}

	s.mu.Lock()
	items := s.byOwner[ownerID]
	idx := -1
	for i := range items {
		if items[i].ID == id {
			idx = i
			break
		}
	}
	if idx == -1 {
		s.mu.Unlock()
		return nil, ErrNotFound
	}
	if patch.URL != nil {
		items[idx].URL = u
	}
	if patch.Title != nil {
		items[idx].Title = t
	}
	items[idx].UpdatedAt = time.Now().UTC()
	updated := items[idx]
	s.mu.Unlock()

	s.broker.Publish(Event{Op: OpUpdate, Bookmark: updated})
	return &updated, nil
}

func (s *MemoryStore) Delete(_ context.Context, ownerID, id string) (bool, error) {
	s.mu.Lock()
	items := s.byOwner[ownerID]
	idx := -1
	for i := range items {
		if items[i].ID == id {
			idx = i
			break
		}
	}
	if idx == -1 {
		s.mu.Unlock()
		return false, nil
	}
	removed := items[idx]
	s.byOwner[ownerID] = append(items[:idx], items[idx+1:]...)
	s.mu.Unlock()

	s.broker.Publish(Event{Op: OpDelete, Bookmark: Bookmark{ID: removed.ID, OwnerID: removed.OwnerID}})
	return true, nil
}

// Reset drops every owner's records. Test hook; nothing in the serving
// path calls it.
func (s *MemoryStore) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byOwner = make(map[string][]Bookmark)
}
