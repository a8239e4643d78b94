package conversation

import (
	"context"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestPostgresStore(t *testing.T) *PostgresStore {
	t.Helper()
	url := os.Getenv("DATABASE_URL")
	if url == "" {
		t.Skip("DATABASE_URL not set")
	}
	s, err := NewPostgresStore(context.Background(), url)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestPostgresStoreRejectsStaleSaves(t *testing.T) {
	s := newTestPostgresStore(t)
	ctx := context.Background()
	owner := "test-" + uuid.NewString()
	t.Cleanup(func() {
		_, _ = s.pool.Exec(context.Background(), `DELETE FROM chats WHERE "UID"=$1`, owner)
	})

	fresh, err := s.Load(ctx, owner)
	require.NoError(t, err)
	assert.Zero(t, fresh.Version)
	require.Len(t, fresh.History, 1)
	assert.Equal(t, RoleSystem, fresh.History[0].Role)

	a, b := fresh, fresh
	a.History = append(cloneHistory(fresh.History), Message{Role: RoleUser, Content: "from a"})
	b.History = append(cloneHistory(fresh.History), Message{Role: RoleUser, Content: "from b"})

	saved, err := s.Save(ctx, a)
	require.NoError(t, err)
	assert.EqualValues(t, 1, saved.Version)

	// Both writers loaded version 0; the second insert must lose.
	_, err = s.Save(ctx, b)
	assert.ErrorIs(t, err, ErrConflict)

	saved.History = append(saved.History, Message{Role: RoleAssistant, Content: "ok"})
	next, err := s.Save(ctx, saved)
	require.NoError(t, err)
	assert.EqualValues(t, 2, next.Version)

	// saved still carries version 1.
	_, err = s.Save(ctx, saved)
	assert.ErrorIs(t, err, ErrConflict)

	loaded, err := s.Load(ctx, owner)
	require.NoError(t, err)
	assert.EqualValues(t, 2, loaded.Version)
	assert.Equal(t, next.History, loaded.History)
}
