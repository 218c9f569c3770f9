package slot

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func exercise(t *testing.T, s Slot) {
	require := require.New(t)
	assert := assert.New(t)
	ctx := context.Background()

	_, err := s.Get(ctx, "token")
	assert.ErrorIs(err, ErrNotFound)

	require.NoError(s.Set(ctx, "token", "t1"))
	v, err := s.Get(ctx, "token")
	require.NoError(err)
	assert.Equal("t1", v)

	require.NoError(s.Set(ctx, "token", "t2"))
	v, err = s.Get(ctx, "token")
	require.NoError(err)
	assert.Equal("t2", v)

	require.NoError(s.Delete(ctx, "token"))
	_, err = s.Get(ctx, "token")
	assert.ErrorIs(err, ErrNotFound)

	// deleting a missing key is not an error
	assert.NoError(s.Delete(ctx, "token"))
}

func Test_memorySlot(t *testing.T) {
	exercise(t, NewMemory())
}

func Test_jsonSlot(t *testing.T) {
	exercise(t, NewJSON(filepath.Join(t.TempDir(), "session.json"), zap.NewNop()))
}

func Test_jsonSlot_persists(t *testing.T) {
	require := require.New(t)
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "session.json")

	s := NewJSON(path, zap.NewNop())
	require.NoError(s.Set(ctx, "role", "instructor"))

	reopened := NewJSON(path, zap.NewNop())
	v, err := reopened.Get(ctx, "role")
	require.NoError(err)
	require.Equal("instructor", v)
}

func Test_boltSlot(t *testing.T) {
	require := require.New(t)

	s, err := NewBolt(filepath.Join(t.TempDir(), "session.db"))
	require.NoError(err)
	defer s.Close()

	exercise(t, s)
}

func Test_boltSlot_persists(t *testing.T) {
	require := require.New(t)
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "session.db")

	s, err := NewBolt(path)
	require.NoError(err)
	require.NoError(s.Set(ctx, "user_id", "7"))
	require.NoError(s.Close())

	s, err = NewBolt(path)
	require.NoError(err)
	defer s.Close()

	v, err := s.Get(ctx, "user_id")
	require.NoError(err)
	require.Equal("7", v)
}
