package trk_test

import (
	"bytes"
	"encoding/binary"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	trk "github.com/emanuele/load-trk"
	"github.com/emanuele/load-trk/testutil"
)

func writeFile(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, data, 0o600))
	return path
}

func scenarioFile() *testutil.File {
	return testutil.NewFile(
		testutil.Streamline{Points: [][3]float32{{1, 2, 3}, {4, 5, 6}}},
		testutil.Streamline{Points: [][3]float32{{7, 8, 9}}},
		testutil.Streamline{Points: [][3]float32{{10, 11, 12}, {13, 14, 15}, {16, 17, 18}}},
	)
}

func TestLoadAll(t *testing.T) {
	path := writeFile(t, "tract.trk", scenarioFile().Bytes())

	res, err := trk.Load(path, trk.All(), false)
	require.NoError(t, err)

	assert.Equal(t, []int64{0, 1, 2}, res.IDs)
	assert.Equal(t, []int32{2, 1, 3}, res.Lengths)
	require.Len(t, res.Streamlines, 3)
	assert.Equal(t, trk.Streamline{{1, 2, 3}, {4, 5, 6}}, res.Streamlines[0])
	assert.Equal(t, trk.Streamline{{7, 8, 9}}, res.Streamlines[1])
	assert.Equal(t, trk.Streamline{{10, 11, 12}, {13, 14, 15}, {16, 17, 18}}, res.Streamlines[2])
	assert.Equal(t, 3, res.Header.StreamlineCount)
}

func TestLoadExplicit(t *testing.T) {
	path := writeFile(t, "tract.trk", scenarioFile().Bytes())

	t.Run("order and duplicates preserved", func(t *testing.T) {
		res, err := trk.Load(path, trk.Explicit(2, 0, 2, 1), false)
		require.NoError(t, err)

		assert.Equal(t, []int64{2, 0, 2, 1}, res.IDs)
		assert.Equal(t, []int32{3, 2, 3, 1}, res.Lengths)
		assert.Equal(t, res.Streamlines[0], res.Streamlines[2])
		assert.Equal(t, trk.Streamline{{1, 2, 3}, {4, 5, 6}}, res.Streamlines[1])
	})

	t.Run("out of range fails before extraction", func(t *testing.T) {
		_, err := trk.Load(path, trk.Explicit(0, 3), false)
		var oor *trk.OutOfRangeError
		require.ErrorAs(t, err, &oor)
		assert.Equal(t, int64(3), oor.ID)
	})

	t.Run("negative id fails", func(t *testing.T) {
		_, err := trk.Load(path, trk.Explicit(-1), false)
		var oor *trk.OutOfRangeError
		assert.ErrorAs(t, err, &oor)
	})
}

func TestLoadRoundTrip(t *testing.T) {
	// Extracting everything raw and re-concatenating by the returned
	// lengths must reproduce the stored point data bit-for-bit.
	rng := testutil.NewRNG(5)
	streamlines := testutil.RandomStreamlines(rng, 25, 1, 40)
	path := writeFile(t, "tract.trk", testutil.NewFile(streamlines...).Bytes())

	res, err := trk.Load(path, trk.All(), false)
	require.NoError(t, err)

	points, lengths := trk.Flatten(res.Streamlines)
	assert.Equal(t, res.Lengths, lengths)

	var off int
	for i, s := range streamlines {
		for j, p := range s.Points {
			assert.Equal(t, trk.Point(p), points[off+j], "streamline %d point %d", i, j)
		}
		off += len(s.Points)
	}
}

func TestLoadAffine(t *testing.T) {
	t.Run("identity affine leaves points unchanged", func(t *testing.T) {
		// The default synthetic header derives an identity transform.
		path := writeFile(t, "tract.trk", scenarioFile().Bytes())

		raw, err := trk.Load(path, trk.All(), false)
		require.NoError(t, err)
		applied, err := trk.Load(path, trk.All(), true)
		require.NoError(t, err)

		assert.Equal(t, raw.Streamlines, applied.Streamlines)
	})

	t.Run("translation applied per point", func(t *testing.T) {
		f := scenarioFile()
		f.VoxelSize = [3]float32{2, 2, 2}
		f.VoxToRAS = [4][4]float32{
			{2, 0, 0, 1},
			{0, 2, 0, 2},
			{0, 0, 2, 3},
			{0, 0, 0, 1},
		}
		path := writeFile(t, "tract.trk", f.Bytes())

		res, err := trk.Load(path, trk.Explicit(1), true)
		require.NoError(t, err)
		// Derived affine is identity rotation with translation (0,1,2).
		assert.Equal(t, trk.Streamline{{7, 9, 11}}, res.Streamlines[0])
	})
}

func TestLoadStrategies(t *testing.T) {
	rng := testutil.NewRNG(29)
	path := writeFile(t, "tract.trk", testutil.NewFile(testutil.RandomStreamlines(rng, 60, 1, 50)...).Bytes())

	sequential, err := trk.Load(path, trk.All(), false, trk.WithStrategy(trk.StrategySequential))
	require.NoError(t, err)

	t.Run("heuristic equivalent to sequential", func(t *testing.T) {
		heuristic, err := trk.Load(path, trk.All(), false, trk.WithStrategy(trk.StrategyHeuristic))
		require.NoError(t, err)
		assert.Equal(t, sequential.Streamlines, heuristic.Streamlines)
		assert.Equal(t, sequential.Lengths, heuristic.Lengths)
	})

	t.Run("auto equivalent to sequential", func(t *testing.T) {
		auto, err := trk.Load(path, trk.All(), false, trk.WithStrategy(trk.StrategyAuto))
		require.NoError(t, err)
		assert.Equal(t, sequential.Streamlines, auto.Streamlines)
	})

	t.Run("fallback on engineered false positives", func(t *testing.T) {
		// Denormal coordinates reinterpret as tiny integers, producing
		// more candidates than streamlines; the result must still match
		// the exact walk.
		f := testutil.NewFile(
			testutil.Streamline{Points: [][3]float32{
				{math.Float32frombits(3), 50, 60},
				{math.Float32frombits(9), 70, 80},
			}},
			testutil.Streamline{Points: [][3]float32{{90, 100, 110}}},
		)
		p := writeFile(t, "tricky.trk", f.Bytes())

		seq, err := trk.Load(p, trk.All(), false, trk.WithStrategy(trk.StrategySequential))
		require.NoError(t, err)

		var buf bytes.Buffer
		logger := trk.NewLogger(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
		heu, err := trk.Load(p, trk.All(), false, trk.WithStrategy(trk.StrategyHeuristic), trk.WithLogger(logger))
		require.NoError(t, err)

		assert.Equal(t, seq.Streamlines, heu.Streamlines)
		assert.Equal(t, []int32{2, 1}, heu.Lengths)
		// The index event reports the strategy that actually ran.
		assert.Contains(t, buf.String(), "strategy=sequential")
	})
}

func TestLoadScalarsAndProperties(t *testing.T) {
	f := testutil.NewFile(testutil.Streamline{
		Points:     [][3]float32{{1, 2, 3}, {4, 5, 6}},
		Scalars:    [][]float32{{0.5}, {0.75}},
		Properties: []float32{11.5, 12.5},
	})
	f.NScalars = 1
	f.NProperties = 2
	path := writeFile(t, "tract.trk", f.Bytes())

	res, err := trk.Load(path, trk.All(), false)
	require.NoError(t, err)
	assert.Equal(t, trk.Streamline{{1, 2, 3}, {4, 5, 6}}, res.Streamlines[0])
}

func TestLoadSample(t *testing.T) {
	rng := testutil.NewRNG(31)
	path := writeFile(t, "tract.trk", testutil.NewFile(testutil.RandomStreamlines(rng, 20, 1, 10)...).Bytes())

	t.Run("reproducible with seed", func(t *testing.T) {
		a, err := trk.Load(path, trk.Sample(5, false), false, trk.WithRandSeed(42))
		require.NoError(t, err)
		b, err := trk.Load(path, trk.Sample(5, false), false, trk.WithRandSeed(42))
		require.NoError(t, err)

		assert.Equal(t, a.IDs, b.IDs)
		assert.Equal(t, a.Streamlines, b.Streamlines)
	})

	t.Run("lengths follow sampled ids", func(t *testing.T) {
		all, err := trk.Load(path, trk.All(), false)
		require.NoError(t, err)

		res, err := trk.Load(path, trk.Sample(8, true), false, trk.WithRandSeed(7))
		require.NoError(t, err)
		require.Len(t, res.IDs, 8)
		for i, id := range res.IDs {
			assert.Equal(t, all.Lengths[id], res.Lengths[i])
		}
	})
}

func TestLoadEmptyFile(t *testing.T) {
	path := writeFile(t, "empty.trk", testutil.NewFile().Bytes())

	res, err := trk.Load(path, trk.All(), false)
	require.NoError(t, err)
	assert.Empty(t, res.Streamlines)
	assert.Empty(t, res.IDs)
	assert.Empty(t, res.Lengths)

	_, err = trk.Load(path, trk.Explicit(0), false)
	var oor *trk.OutOfRangeError
	assert.ErrorAs(t, err, &oor)
}

func TestLoadErrors(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		_, err := trk.Load(filepath.Join(t.TempDir(), "nope.trk"), trk.All(), false)
		assert.Error(t, err)
	})

	t.Run("not a trk file", func(t *testing.T) {
		path := writeFile(t, "junk.trk", make([]byte, 2000))
		_, err := trk.Load(path, trk.All(), false)
		var fe *trk.FormatError
		assert.ErrorAs(t, err, &fe)
	})

	t.Run("negative scalar count in header", func(t *testing.T) {
		// Two corrupt bytes in the schema fields must surface as a
		// decode failure, not reach extraction.
		f := scenarioFile()
		f.NScalars = -2
		path := writeFile(t, "badschema.trk", f.Bytes())

		_, err := trk.Load(path, trk.All(), false)
		var fe *trk.FormatError
		require.ErrorAs(t, err, &fe)
	})

	t.Run("truncated payload", func(t *testing.T) {
		data := scenarioFile().Bytes()
		path := writeFile(t, "cut.trk", data[:len(data)-8])

		_, err := trk.Load(path, trk.All(), false)
		var te *trk.TruncatedError
		require.ErrorAs(t, err, &te)
		assert.Equal(t, 3, te.Want)
	})
}

func TestLoadBigEndian(t *testing.T) {
	f := scenarioFile()
	f.ByteOrder = binary.BigEndian
	path := writeFile(t, "be.trk", f.Bytes())

	res, err := trk.Load(path, trk.All(), false)
	require.NoError(t, err)
	assert.Equal(t, []int32{2, 1, 3}, res.Lengths)
	assert.Equal(t, trk.Streamline{{7, 8, 9}}, res.Streamlines[1])
}

func TestLoadCompressed(t *testing.T) {
	data := scenarioFile().Bytes()
	plain := writeFile(t, "tract.trk", data)
	want, err := trk.Load(plain, trk.All(), false)
	require.NoError(t, err)

	t.Run("gzip", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "tract.trk.gz")
		f, err := os.Create(path)
		require.NoError(t, err)
		zw := gzip.NewWriter(f)
		_, err = zw.Write(data)
		require.NoError(t, err)
		require.NoError(t, zw.Close())
		require.NoError(t, f.Close())

		res, err := trk.Load(path, trk.All(), false)
		require.NoError(t, err)
		assert.Equal(t, want.Streamlines, res.Streamlines)
	})

	t.Run("zstd", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "tract.trk.zst")
		f, err := os.Create(path)
		require.NoError(t, err)
		zw, err := zstd.NewWriter(f)
		require.NoError(t, err)
		_, err = zw.Write(data)
		require.NoError(t, err)
		require.NoError(t, zw.Close())
		require.NoError(t, f.Close())

		res, err := trk.Load(path, trk.All(), false)
		require.NoError(t, err)
		assert.Equal(t, want.Streamlines, res.Streamlines)
	})

	t.Run("lz4", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "tract.trk.lz4")
		f, err := os.Create(path)
		require.NoError(t, err)
		zw := lz4.NewWriter(f)
		_, err = zw.Write(data)
		require.NoError(t, err)
		require.NoError(t, zw.Close())
		require.NoError(t, f.Close())

		res, err := trk.Load(path, trk.All(), false)
		require.NoError(t, err)
		assert.Equal(t, want.Streamlines, res.Streamlines)
	})
}
