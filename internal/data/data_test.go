package data

import (
	"compress/gzip"
	"encoding/binary"
	"math/rand"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seam-ml/seam/internal/backend/cpu"
	"github.com/seam-ml/seam/internal/tensor"
)

func testDataset(n, width int) *InMemory {
	features := make([]float32, n*width)
	labels := make([]int32, n)
	for i := 0; i < n; i++ {
		labels[i] = int32(i % 3)
		for j := 0; j < width; j++ {
			features[i*width+j] = float32(i*width + j)
		}
	}
	return NewInMemory(features, labels, width, 3)
}

func TestInMemory(t *testing.T) {
	ds := testDataset(5, 2)

	assert.Equal(t, 5, ds.Len())
	assert.Equal(t, 2, ds.FeatureWidth())
	assert.Equal(t, 3, ds.NumClasses())

	row := make([]float32, 2)
	label := ds.Example(2, row)
	assert.Equal(t, int32(2), label)
	assert.Equal(t, []float32{4, 5}, row)
}

func TestBatches(t *testing.T) {
	ds := testDataset(5, 2)

	batches := Batches(ds, 2, nil)
	require.Len(t, batches, 3)

	assert.Equal(t, 2, batches[0].Size)
	assert.Equal(t, []int32{0, 1}, batches[0].Labels)
	assert.Equal(t, []float32{0, 1, 2, 3}, batches[0].Features)

	// Final batch keeps the leftover example.
	assert.Equal(t, 1, batches[2].Size)
	assert.Equal(t, []int32{1}, batches[2].Labels)
	assert.Equal(t, []float32{8, 9}, batches[2].Features)
}

func TestBatchesOversizedBatch(t *testing.T) {
	ds := testDataset(3, 2)

	// Batch size beyond the dataset clamps to one full batch.
	batches := Batches(ds, 100, nil)
	require.Len(t, batches, 1)
	assert.Equal(t, 3, batches[0].Size)
	assert.Equal(t, []int32{0, 1, 2}, batches[0].Labels)
}

func TestBatchesPermutation(t *testing.T) {
	ds := testDataset(4, 1)

	batches := Batches(ds, 2, []int{3, 2, 1, 0})
	require.Len(t, batches, 2)
	assert.Equal(t, []int32{0, 2}, batches[0].Labels)
	assert.Equal(t, []float32{3, 2}, batches[0].Features)
	assert.Equal(t, []int32{1, 0}, batches[1].Labels)
}

func TestPerm(t *testing.T) {
	ds := testDataset(10, 1)
	perm := Perm(ds, rand.New(rand.NewSource(1)))

	require.Len(t, perm, 10)
	seen := make(map[int]bool)
	for _, idx := range perm {
		assert.False(t, seen[idx])
		seen[idx] = true
		assert.GreaterOrEqual(t, idx, 0)
		assert.Less(t, idx, 10)
	}
}

func TestBatchTensors(t *testing.T) {
	backend := cpu.New()
	ds := testDataset(3, 2)
	batch := Batches(ds, 3, nil)[0]

	features, err := batch.FeatureTensor(backend)
	require.NoError(t, err)
	assert.Equal(t, tensor.Shape{3, 2}, features.Shape())
	assert.Equal(t, tensor.Float32, features.DType())
	assert.Equal(t, []float32{0, 1, 2, 3, 4, 5}, features.AsFloat32())

	labels, err := batch.LabelTensor(backend)
	require.NoError(t, err)
	assert.Equal(t, tensor.Shape{3}, labels.Shape())
	assert.Equal(t, tensor.Int32, labels.DType())
	assert.Equal(t, []int32{0, 1, 2}, labels.AsInt32())
}

func TestSynthetic(t *testing.T) {
	ds := Synthetic(100, 8, 10, 42)

	assert.Equal(t, 100, ds.Len())
	assert.Equal(t, 8, ds.FeatureWidth())
	assert.Equal(t, 10, ds.NumClasses())

	row := make([]float32, 8)
	for i := 0; i < ds.Len(); i++ {
		assert.Equal(t, int32(i%10), ds.Example(i, row))
	}

	// Same seed reproduces the same data.
	again := Synthetic(100, 8, 10, 42)
	rowAgain := make([]float32, 8)
	for i := 0; i < 10; i++ {
		ds.Example(i, row)
		again.Example(i, rowAgain)
		assert.Equal(t, row, rowAgain)
	}

	// A different seed does not.
	other := Synthetic(100, 8, 10, 7)
	ds.Example(0, row)
	other.Example(0, rowAgain)
	assert.NotEqual(t, row, rowAgain)
}

// writeIDX writes a gzipped IDX file with the given 32-bit header words
// followed by payload bytes.
func writeIDX(t *testing.T, path string, header []uint32, payload []byte) {
	t.Helper()
	file, err := os.Create(path)
	require.NoError(t, err)
	defer file.Close()

	gz := gzip.NewWriter(file)
	require.NoError(t, binary.Write(gz, binary.BigEndian, header))
	_, err = gz.Write(payload)
	require.NoError(t, err)
	require.NoError(t, gz.Close())
}

func TestReadIDX(t *testing.T) {
	dir := t.TempDir()

	const count = 2
	pixels := make([]byte, count*mnistWidth*mnistHeight)
	for i := range pixels {
		pixels[i] = byte(i % 256)
	}
	imagePath := filepath.Join(dir, "images-idx3-ubyte.gz")
	writeIDX(t, imagePath, []uint32{imageMagic, count, mnistHeight, mnistWidth}, pixels)

	labelPath := filepath.Join(dir, "labels-idx1-ubyte.gz")
	writeIDX(t, labelPath, []uint32{labelMagic, count}, []byte{3, 7})

	images, err := readIDXImages(imagePath)
	require.NoError(t, err)
	assert.Equal(t, pixels, images)

	labels, err := readIDXLabels(labelPath)
	require.NoError(t, err)
	assert.Equal(t, []byte{3, 7}, labels)
}

func TestReadIDXBadMagic(t *testing.T) {
	dir := t.TempDir()

	path := filepath.Join(dir, "bogus-idx3-ubyte.gz")
	writeIDX(t, path, []uint32{1234, 1, mnistHeight, mnistWidth},
		make([]byte, mnistWidth*mnistHeight))

	_, err := readIDXImages(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "IDX magic")
}

func TestReadIDXTruncated(t *testing.T) {
	dir := t.TempDir()

	// Header claims two images but the payload holds one.
	path := filepath.Join(dir, "short-idx3-ubyte.gz")
	writeIDX(t, path, []uint32{imageMagic, 2, mnistHeight, mnistWidth},
		make([]byte, mnistWidth*mnistHeight))

	_, err := readIDXImages(path)
	require.Error(t, err)
}

func TestReadIDXUncompressed(t *testing.T) {
	dir := t.TempDir()

	// Files without a .gz extension are read as-is.
	path := filepath.Join(dir, "labels-idx1-ubyte")
	file, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, binary.Write(file, binary.BigEndian, []uint32{labelMagic, 3}))
	_, err = file.Write([]byte{1, 2, 3})
	require.NoError(t, err)
	require.NoError(t, file.Close())

	labels, err := readIDXLabels(path)
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3}, labels)
}
