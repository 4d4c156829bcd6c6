package persistence

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_SaveAndLoad(t *testing.T) {
	ctx := context.Background()
	store, err := OpenStore(ctx, filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, err)
	defer store.Close()

	run := &Run{
		DatasetPath: "data/chat_history.csv",
		Config:      map[string]any{"chatbot_type": "dummy"},
		Params:      map[string]any{"chatbot_type": "dummy"},
		Results:     sampleResults(),
	}
	id, err := store.SaveRun(ctx, run)
	require.NoError(t, err)
	_, err = uuid.Parse(id)
	require.NoError(t, err)
	assert.Equal(t, id, run.ID)

	got, err := store.Results(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, sampleResults(), got)

	none, err := store.Results(ctx, "missing")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestStore_RunIDs(t *testing.T) {
	ctx := context.Background()
	store, err := OpenStore(ctx, ":memory:")
	require.NoError(t, err)
	defer store.Close()

	older := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	_, err = store.SaveRun(ctx, &Run{ID: "first", CreatedAt: older})
	require.NoError(t, err)
	_, err = store.SaveRun(ctx, &Run{ID: "second", CreatedAt: older.Add(time.Hour)})
	require.NoError(t, err)

	ids, err := store.RunIDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"second", "first"}, ids)

	_, err = store.SaveRun(ctx, &Run{ID: "first"})
	assert.Error(t, err, "duplicate run id")
}
