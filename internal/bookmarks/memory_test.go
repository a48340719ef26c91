package bookmarks

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStoreRoundTrip(t *testing.T) {
	s := NewMemoryStore(nil)
	ctx := context.Background()

	created, err := s.Add(ctx, "u1", "https://example.com/path", "Example")
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, "u1", created.OwnerID)
	assert.Equal(t, "https://example.com/path", created.URL)
	assert.Equal(t, "Example", created.Title)
	assert.True(t, created.CreatedAt.Equal(created.UpdatedAt))

	items, err := s.List(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, *created, items[0])
}

func TestMemoryStoreListNewestFirst(t *testing.T) {
	s := NewMemoryStore(nil)
	ctx := context.Background()

	a, err := s.Add(ctx, "u1", "https://a.com", "A")
	require.NoError(t, err)
	b, err := s.Add(ctx, "u1", "https://b.com", "B")
	require.NoError(t, err)

	items, err := s.List(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, b.ID, items[0].ID)
	assert.Equal(t, a.ID, items[1].ID)
}

func TestMemoryStoreListEmptyOwner(t *testing.T) {
	s := NewMemoryStore(nil)

	items, err := s.List(context.Background(), "nobody")
	require.NoError(t, err)
	assert.Empty(t, items)
	assert.NotNil(t, items)
}

func TestMemoryStoreOwnerIsolation(t *testing.T) {
	s := NewMemoryStore(nil)
	ctx := context.Background()

	_, err := s.Add(ctx, "alice", "https://a1.com", "A1")
	require.NoError(t, err)
	_, err = s.Add(ctx, "alice", "https://a2.com", "A2")
	require.NoError(t, err)
	_, err = s.Add(ctx, "bob", "https://b1.com", "B1")
	require.NoError(t, err)

	aliceItems, err := s.List(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, aliceItems, 2)
	for _, item := range aliceItems {
		assert.Equal(t, "alice", item.OwnerID)
	}

	bobItems, err := s.List(ctx, "bob")
	require.NoError(t, err)
	require.Len(t, bobItems, 1)
	assert.Equal(t, "bob", bobItems[0].OwnerID)
}

func TestMemoryStoreAddValidation(t *testing.T) {
	s := NewMemoryStore(nil)
	ctx := context.Background()

	cases := []struct {
		name  string
		url   string
		title string
	}{
		{"not a url", "not-a-url", "x"},
		{"relative url", "/some/path", "x"},
		{"scheme only", "mailto:someone", "x"},
		{"empty url", "", "x"},
		{"whitespace url", "   ", "x"},
		{"empty title", "https://ok.com", ""},
		{"whitespace title", "https://ok.com", "   "},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := s.Add(ctx, "u1", tc.url, tc.title)
			validationErr := &ValidationError{}
			assert.ErrorAs(t, err, &validationErr)
		})
	}

	// Nothing was persisted by any of the rejected calls.
	items, err := s.List(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestMemoryStoreAddTrimsInput(t *testing.T) {
	s := NewMemoryStore(nil)

	created, err := s.Add(context.Background(), "u1", "  https://a.com  ", "  A  ")
	require.NoError(t, err)
	assert.Equal(t, "https://a.com", created.URL)
	assert.Equal(t, "A", created.Title)
}

func TestMemoryStoreDelete(t *testing.T) {
	s := NewMemoryStore(nil)
	ctx := context.Background()

	created, err := s.Add(ctx, "u1", "https://a.com", "A")
	require.NoError(t, err)

	t.Run("foreign owner looks like not found", func(t *testing.T) {
		deleted, err := s.Delete(ctx, "u2", created.ID)
		require.NoError(t, err)
		assert.False(t, deleted)

		items, _ := s.List(ctx, "u1")
		assert.Len(t, items, 1)
	})

	t.Run("nonexistent id", func(t *testing.T) {
		deleted, err := s.Delete(ctx, "u1", "no-such-id")
		require.NoError(t, err)
		assert.False(t, deleted)
	})

	t.Run("owned record, then idempotent repeat", func(t *testing.T) {
		deleted, err := s.Delete(ctx, "u1", created.ID)
		require.NoError(t, err)
		assert.True(t, deleted)

		deleted, err = s.Delete(ctx, "u1", created.ID)
		require.NoError(t, err)
		assert.False(t, deleted)

		items, _ := s.List(ctx, "u1")
		assert.Empty(t, items)
	})
}

func TestMemoryStoreUpdate(t *testing.T) {
	s := NewMemoryStore(nil)
	ctx := context.Background()

	created, err := s.Add(ctx, "u1", "https://a.com", "A")
	require.NoError(t, err)

	newTitle := "A renamed"
	updated, err := s.Update(ctx, "u1", created.ID, Patch{Title: &newTitle})
	require.NoError(t, err)
	assert.Equal(t, created.ID, updated.ID)
	assert.Equal(t, "https://a.com", updated.URL)
	assert.Equal(t, "A renamed", updated.Title)
	assert.True(t, created.CreatedAt.Equal(updated.CreatedAt))
	assert.False(t, updated.UpdatedAt.Before(created.UpdatedAt))

	t.Run("foreign owner looks like not found", func(t *testing.T) {
		_, err := s.Update(ctx, "u2", created.ID, Patch{Title: &newTitle})
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("nonexistent id", func(t *testing.T) {
		_, err := s.Update(ctx, "u1", "no-such-id", Patch{Title: &newTitle})
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("empty patch", func(t *testing.T) {
		_, err := s.Update(ctx, "u1", created.ID, Patch{})
		validationErr := &ValidationError{}
		assert.ErrorAs(t, err, &validationErr)
	})

	t.Run("bad url leaves record untouched", func(t *testing.T) {
		bad := "not-a-url"
		_, err := s.Update(ctx, "u1", created.ID, Patch{URL: &bad})
		validationErr := &ValidationError{}
		require.ErrorAs(t, err, &validationErr)

		items, _ := s.List(ctx, "u1")
		require.Len(t, items, 1)
		assert.Equal(t, "https://a.com", items[0].URL)
	})
}

func TestMemoryStoreScenario(t *testing.T) {
	s := NewMemoryStore(nil)
	ctx := context.Background()

	a, err := s.Add(ctx, "U", "https://a.com", "A")
	require.NoError(t, err)
	b, err := s.Add(ctx, "U", "https://b.com", "B")
	require.NoError(t, err)

	items, err := s.List(ctx, "U")
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, b.ID, items[0].ID)
	assert.Equal(t, a.ID, items[1].ID)

	deleted, err := s.Delete(ctx, "U", a.ID)
	require.NoError(t, err)
	assert.True(t, deleted)

	items, err = s.List(ctx, "U")
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, b.ID, items[0].ID)
}

func TestMemoryStoreReset(t *testing.T) {
	s := NewMemoryStore(nil)
	ctx := context.Background()

	_, err := s.Add(ctx, "u1", "https://a.com", "A")
	require.NoError(t, err)

	s.Reset()

	items, err := s.List(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestMemoryStoreConcurrentMutation(t *testing.T) {
	s := NewMemoryStore(nil)
	ctx := context.Background()

	const workers = 8
	const perWorker = 25

	wg := sync.WaitGroup{}
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				_, err := s.Add(ctx, "u1", "https://a.com", "A")
				assert.NoError(t, err)
			}
		}()
	}
	wg.Wait()

	items, err := s.List(ctx, "u1")
	require.NoError(t, err)
	assert.Len(t, items, workers*perWorker)
}
