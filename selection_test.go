package trk

import (
	"bytes"
	"log/slog"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAllSelection(t *testing.T) {
	ids := All().resolve(4, nil, NoopLogger())
	assert.Equal(t, []int64{0, 1, 2, 3}, ids)

	assert.Empty(t, All().resolve(0, nil, NoopLogger()))
}

func TestExplicitSelection(t *testing.T) {
	ids := Explicit(3, 1, 3, 0).resolve(100, nil, NoopLogger())
	assert.Equal(t, []int64{3, 1, 3, 0}, ids)
}

func TestSampleSelection(t *testing.T) {
	rng := rand.New(rand.NewSource(1))

	t.Run("with replacement", func(t *testing.T) {
		ids := Sample(20, true).resolve(5, rng, NoopLogger())
		require.Len(t, ids, 20)
		for _, id := range ids {
			assert.GreaterOrEqual(t, id, int64(0))
			assert.Less(t, id, int64(5))
		}
	})

	t.Run("without replacement draws unique ids", func(t *testing.T) {
		for _, total := range []int{10, 1000} {
			ids := Sample(4, false).resolve(total, rng, NoopLogger())
			require.Len(t, ids, 4)
			seen := map[int64]bool{}
			for _, id := range ids {
				assert.False(t, seen[id], "id %d drawn twice", id)
				seen[id] = true
				assert.Less(t, id, int64(total))
			}
		}
	})

	t.Run("dense draw without replacement", func(t *testing.T) {
		ids := Sample(9, false).resolve(10, rng, NoopLogger())
		require.Len(t, ids, 9)
		seen := map[int64]bool{}
		for _, id := range ids {
			assert.False(t, seen[id])
			seen[id] = true
		}
	})

	t.Run("oversampling warns and proceeds with replacement", func(t *testing.T) {
		var buf bytes.Buffer
		logger := NewLogger(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelWarn}))

		ids := Sample(12, false).resolve(5, rng, logger)
		require.Len(t, ids, 12)
		assert.Contains(t, buf.String(), "replacement")
	})

	t.Run("empty file yields empty sample", func(t *testing.T) {
		assert.Empty(t, Sample(3, true).resolve(0, rng, NoopLogger()))
	})

	t.Run("non-positive count", func(t *testing.T) {
		assert.Empty(t, Sample(0, false).resolve(10, rng, NoopLogger()))
	})
}
