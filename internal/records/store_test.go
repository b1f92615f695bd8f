package records

import (
	"context"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ariefcatur/go-warranty-cards/internal/postgres/pgtest"
)

func TestStore_InsertGetFind(t *testing.T) {
	s := &Store{DB: pgtest.Pool(t)}
	ctx := context.Background()

	id, created, err := s.Insert(ctx, NewRecord{
		Type:      "note",
		Title:     "first",
		UniqueKey: "k1",
		Meta: func(id int64, _ time.Time) map[string]string {
			return map[string]string{"self": strconv.FormatInt(id, 10), "color": "red"}
		},
	})
	require.NoError(t, err)
	assert.True(t, created)

	rec, err := s.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "note", rec.Type)
	assert.Equal(t, "first", rec.Title)
	assert.Equal(t, StatusPublish, rec.Status)
	assert.Equal(t, strconv.FormatInt(id, 10), rec.Meta["self"])

	ids, err := s.FindByMeta(ctx, "note", "color", "red", 1)
	require.NoError(t, err)
	assert.Equal(t, []int64{id}, ids)

	ids, err = s.FindByMeta(ctx, "other", "color", "red", 0)
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestStore_InsertIfAbsent(t *testing.T) {
	s := &Store{DB: pgtest.Pool(t)}
	ctx := context.Background()

	first, created, err := s.Insert(ctx, NewRecord{Type: "note", UniqueKey: "same"})
	require.NoError(t, err)
	require.True(t, created)

	again, created, err := s.Insert(ctx, NewRecord{Type: "note", UniqueKey: "same"})
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first, again)

	// Same key under another type is a different record.
	_, created, err = s.Insert(ctx, NewRecord{Type: "memo", UniqueKey: "same"})
	require.NoError(t, err)
	assert.True(t, created)
}

func TestStore_ConcurrentInsertCreatesOne(t *testing.T) {
	s := &Store{DB: pgtest.Pool(t)}
	ctx := context.Background()

	var wg sync.WaitGroup
	var mu sync.Mutex
	createdCount := 0
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, created, err := s.Insert(ctx, NewRecord{Type: "note", UniqueKey: "race"})
			assert.NoError(t, err)
			if created {
				mu.Lock()
				createdCount++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, createdCount)
}

func TestStore_GetMissing(t *testing.T) {
	s := &Store{DB: pgtest.Pool(t)}
	_, err := s.Get(context.Background(), 424242)
	assert.ErrorIs(t, err, ErrNotFound)
}
