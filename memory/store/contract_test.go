package store

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// runRepositoryContract exercises the behaviour every backend must share.
func runRepositoryContract(t *testing.T, newRepo func(t *testing.T) Repository) {
	t.Run("empty cart for unknown user", func(t *testing.T) {
		repo := newRepo(t)
		items, err := repo.Cart(context.Background(), 100)
		require.NoError(t, err)
		assert.Empty(t, items)

		text, ok, err := repo.Context(context.Background(), 100)
		require.NoError(t, err)
		assert.False(t, ok)
		assert.Equal(t, "", text)
	})

	t.Run("add creates then increments in insertion order", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		require.NoError(t, repo.AddItem(ctx, 1, "Whole Milk", 1))
		require.NoError(t, repo.AddItem(ctx, 1, "Apple", 2))
		require.NoError(t, repo.AddItem(ctx, 1, "Whole Milk", 2))

		items, err := repo.Cart(ctx, 1)
		require.NoError(t, err)
		assert.Equal(t, []LineItem{
			{Item: "Whole Milk", Amount: 3},
			{Item: "Apple", Amount: 2},
		}, items)
	})

	t.Run("add that drops to zero deletes the line", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		require.NoError(t, repo.AddItem(ctx, 2, "Apple", 2))
		require.NoError(t, repo.AddItem(ctx, 2, "Apple", -2))

		items, err := repo.Cart(ctx, 2)
		require.NoError(t, err)
		assert.Empty(t, items)
	})

	t.Run("add rejects a blank item", func(t *testing.T) {
		repo := newRepo(t)
		assert.ErrorIs(t, repo.AddItem(context.Background(), 2, "  ", 1), ErrInvalid)
	})

	t.Run("remove decrements deletes and reports missing", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		require.NoError(t, repo.AddItem(ctx, 3, "Apple", 5))
		require.NoError(t, repo.AddItem(ctx, 3, "Bread", 1))

		require.NoError(t, repo.RemoveItem(ctx, 3, "Apple", 2))
		items, err := repo.Cart(ctx, 3)
		require.NoError(t, err)
		assert.Equal(t, []LineItem{{Item: "Apple", Amount: 3}, {Item: "Bread", Amount: 1}}, items)

		require.NoError(t, repo.RemoveItem(ctx, 3, "Apple", 3))
		items, err = repo.Cart(ctx, 3)
		require.NoError(t, err)
		assert.Equal(t, []LineItem{{Item: "Bread", Amount: 1}}, items)

		require.NoError(t, repo.RemoveItem(ctx, 3, "Bread", 10))
		assert.ErrorIs(t, repo.RemoveItem(ctx, 3, "Bread", 1), ErrNotFound)
	})

	t.Run("re-added item goes to the end", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		require.NoError(t, repo.AddItem(ctx, 4, "Apple", 1))
		require.NoError(t, repo.AddItem(ctx, 4, "Bread", 1))
		require.NoError(t, repo.RemoveItem(ctx, 4, "Apple", 1))
		require.NoError(t, repo.AddItem(ctx, 4, "Apple", 1))

		items, err := repo.Cart(ctx, 4)
		require.NoError(t, err)
		assert.Equal(t, []LineItem{{Item: "Bread", Amount: 1}, {Item: "Apple", Amount: 1}}, items)
	})

	t.Run("clear cart", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		assert.ErrorIs(t, repo.ClearCart(ctx, 5), ErrNotFound)
		require.NoError(t, repo.AddItem(ctx, 5, "Apple", 1))
		require.NoError(t, repo.ClearCart(ctx, 5))

		items, err := repo.Cart(ctx, 5)
		require.NoError(t, err)
		assert.Empty(t, items)
	})

	t.Run("context append replace clear", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		require.NoError(t, repo.AppendContext(ctx, 6, "hello"))
		require.NoError(t, repo.AppendContext(ctx, 6, "world"))
		text, ok, err := repo.Context(ctx, 6)
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, "hello world", text)

		require.NoError(t, repo.ReplaceContext(ctx, 6, "fresh"))
		text, _, err = repo.Context(ctx, 6)
		require.NoError(t, err)
		assert.Equal(t, "fresh", text)

		require.NoError(t, repo.ClearContext(ctx, 6))
		_, ok, err = repo.Context(ctx, 6)
		require.NoError(t, err)
		assert.False(t, ok)
		assert.ErrorIs(t, repo.ClearContext(ctx, 6), ErrNotFound)
	})

	t.Run("replace creates the user", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		require.NoError(t, repo.ReplaceContext(ctx, 7, "new"))
		text, ok, err := repo.Context(ctx, 7)
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, "new", text)
	})

	t.Run("clear user removes context and cart", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		assert.ErrorIs(t, repo.ClearUser(ctx, 8), ErrNotFound)

		require.NoError(t, repo.AppendContext(ctx, 8, "hi"))
		require.NoError(t, repo.AddItem(ctx, 8, "Apple", 1))
		require.NoError(t, repo.ClearUser(ctx, 8))

		items, err := repo.Cart(ctx, 8)
		require.NoError(t, err)
		assert.Empty(t, items)
		_, ok, err := repo.Context(ctx, 8)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("users are isolated", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		require.NoError(t, repo.AddItem(ctx, 9, "Apple", 1))
		require.NoError(t, repo.AddItem(ctx, 10, "Bread", 4))

		items, err := repo.Cart(ctx, 9)
		require.NoError(t, err)
		assert.Equal(t, []LineItem{{Item: "Apple", Amount: 1}}, items)
	})
}

// runConcurrentWritesContract races first-time writes for the same user. Every
// call must succeed and none may be lost.
func runConcurrentWritesContract(t *testing.T, newRepo func(t *testing.T) Repository) {
	const workers = 20

	t.Run("concurrent first adds of one item", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		var wg sync.WaitGroup
		for i := 0; i < workers; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				assert.NoError(t, repo.AddItem(ctx, 1, "Apple", 1))
			}()
		}
		wg.Wait()

		items, err := repo.Cart(ctx, 1)
		require.NoError(t, err)
		assert.Equal(t, []LineItem{{Item: "Apple", Amount: workers}}, items)
	})

	t.Run("concurrent first context appends", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		var wg sync.WaitGroup
		for i := 0; i < workers; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				assert.NoError(t, repo.AppendContext(ctx, 2, "x"))
			}()
		}
		wg.Wait()

		text, ok, err := repo.Context(ctx, 2)
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, strings.TrimSpace(strings.Repeat("x ", workers)), text)
	})

	t.Run("concurrent first context replaces", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		var wg sync.WaitGroup
		for i := 0; i < workers; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				assert.NoError(t, repo.ReplaceContext(ctx, 3, "fresh"))
			}()
		}
		wg.Wait()

		text, ok, err := repo.Context(ctx, 3)
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, "fresh", text)
	})
}
