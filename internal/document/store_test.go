package document

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yukikurage/taskpick-api/internal/models"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "nested", "db.json")
	s, err := NewStore(path)
	require.NoError(t, err)
	return s
}

func TestNewStore_Bootstraps(t *testing.T) {
	s := newTestStore(t)

	data, err := os.ReadFile(s.Path())
	require.NoError(t, err)
	assert.Equal(t, "[{}]", string(data))

	doc, err := s.Load(context.Background())
	require.NoError(t, err)
	require.Len(t, doc, 1)
	assert.Equal(t, -1, doc.FindUser(""))
	assert.Equal(t, -1, doc.FindEmail(""))
}

func TestStore_SaveLoadRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	doc := Document{{
		ID:       "u1",
		Email:    "a@example.com",
		Password: "hash",
		Name:     "Alice",
		Tasks: []models.Task{
			{ID: "t1", Description: "one", Status: models.TaskStatusCreated, Extra: map[string]any{"color": "blue"}},
			{ID: "t2", Description: "two", Status: models.TaskStatusDone},
		},
	}}
	require.NoError(t, s.Save(ctx, doc))

	loaded, err := s.Load(ctx)
	require.NoError(t, err)
	require.Len(t, loaded, 1)

	u := loaded[0]
	assert.Equal(t, "hash", u.Password)
	require.Len(t, u.Tasks, 2)
	assert.Equal(t, "u1", u.Tasks[0].UserID)
	assert.Equal(t, int64(2), u.Tasks[1].Position)
	assert.Equal(t, "blue", u.Tasks[0].Extra["color"])

	raw, err := os.ReadFile(s.Path())
	require.NoError(t, err)
	assert.Contains(t, string(raw), "\n  {", "document should be pretty-printed")
}

func TestStore_LoadCorruptReturnsError(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, os.WriteFile(s.Path(), []byte("{not json"), 0o600))

	_, err := s.Load(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrPersistence))
}

func TestStore_LoadRecreatesMissingFile(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, os.Remove(s.Path()))

	doc, err := s.Load(context.Background())
	require.NoError(t, err)
	assert.Len(t, doc, 1)
	_, err = os.Stat(s.Path())
	assert.NoError(t, err)
}

func TestStore_UpdateErrorSkipsSave(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	boom := errors.New("boom")

	err := s.Update(ctx, func(doc *Document) error {
		*doc = append(*doc, UserRecord{ID: "u1"})
		return boom
	})
	assert.ErrorIs(t, err, boom)

	doc, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, -1, doc.FindUser("u1"))
}

func TestStore_ConcurrentUpdatesKeepEveryWrite(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.Save(ctx, Document{{ID: "u1", Email: "a@example.com"}}))

	const writers = 20
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			err := s.Update(ctx, func(doc *Document) error {
				idx := doc.FindUser("u1")
				(*doc)[idx].Tasks = append((*doc)[idx].Tasks, models.Task{ID: fmt.Sprintf("t%d", i)})
				return nil
			})
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	doc, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Len(t, doc[0].Tasks, writers)
}

func TestStore_CancelledContext(t *testing.T) {
	s := newTestStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.Load(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
