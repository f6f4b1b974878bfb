package mmap

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpen(t *testing.T) {
	t.Run("maps file contents", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "payload.bin")
		content := []byte("TRACK followed by payload bytes")
		require.NoError(t, os.WriteFile(path, content, 0o600))

		m, err := Open(path)
		require.NoError(t, err)
		defer m.Close()

		assert.Equal(t, content, m.Bytes())
		assert.Equal(t, len(content), m.Size())
	})

	t.Run("empty file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "empty.bin")
		require.NoError(t, os.WriteFile(path, nil, 0o600))

		m, err := Open(path)
		require.NoError(t, err)
		defer m.Close()

		assert.Empty(t, m.Bytes())
		assert.Zero(t, m.Size())
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := Open(filepath.Join(t.TempDir(), "nope.bin"))
		assert.Error(t, err)
	})
}

func TestClose(t *testing.T) {
	path := filepath.Join(t.TempDir(), "payload.bin")
	require.NoError(t, os.WriteFile(path, []byte{1, 2, 3, 4}, 0o600))

	m, err := Open(path)
	require.NoError(t, err)

	require.NoError(t, m.Close())
	assert.Nil(t, m.Bytes())

	// Idempotent.
	assert.NoError(t, m.Close())
	assert.ErrorIs(t, m.Advise(AccessRandom), ErrClosed)
}

func TestAdvise(t *testing.T) {
	path := filepath.Join(t.TempDir(), "payload.bin")
	require.NoError(t, os.WriteFile(path, make([]byte, 8192), 0o600))

	m, err := Open(path)
	require.NoError(t, err)
	defer m.Close()

	assert.NoError(t, m.Advise(AccessSequential))
	assert.NoError(t, m.Advise(AccessRandom))
}
