package data

import (
	"compress/gzip"
	"encoding/binary"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"github.com/pkg/errors"
	"github.com/schollz/progressbar/v3"
	"k8s.io/klog/v2"
)

// MNIST IDX file layout:
//
//	images: magic 0x00000803, count, rows, cols, then count*rows*cols bytes
//	labels: magic 0x00000801, count, then count bytes
const (
	mnistURL   = "https://storage.googleapis.com/cvdf-datasets/mnist"
	imageMagic = 2051
	labelMagic = 2049

	mnistWidth   = 28
	mnistHeight  = 28
	mnistClasses = 10
)

var mnistFiles = map[bool][2]string{
	true:  {"train-images-idx3-ubyte.gz", "train-labels-idx1-ubyte.gz"},
	false: {"t10k-images-idx3-ubyte.gz", "t10k-labels-idx1-ubyte.gz"},
}

// LoadMNIST loads the MNIST split from dataDir, downloading the gzipped
// IDX files first when missing. Pixels are normalized to [0, 1].
func LoadMNIST(dataDir string, train bool) (*InMemory, error) {
	files := mnistFiles[train]
	for _, file := range files {
		if err := downloadIfMissing(mnistURL+"/"+file, filepath.Join(dataDir, file)); err != nil {
			return nil, err
		}
	}

	images, err := readIDXImages(filepath.Join(dataDir, files[0]))
	if err != nil {
		return nil, err
	}
	labels, err := readIDXLabels(filepath.Join(dataDir, files[1]))
	if err != nil {
		return nil, err
	}
	if len(labels) != len(images)/(mnistWidth*mnistHeight) {
		return nil, errors.Errorf("mnist: %d labels for %d images",
			len(labels), len(images)/(mnistWidth*mnistHeight))
	}

	features := make([]float32, len(images))
	for i, px := range images {
		features[i] = float32(px) / 255
	}
	intLabels := make([]int32, len(labels))
	for i, l := range labels {
		intLabels[i] = int32(l)
	}

	return NewInMemory(features, intLabels, mnistWidth*mnistHeight, mnistClasses), nil
}

// downloadIfMissing fetches url to filePath unless it already exists,
// showing a progress bar sized by the response's content length.
func downloadIfMissing(url, filePath string) error {
	if _, err := os.Stat(filePath); err == nil {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(filePath), 0o755); err != nil {
		return errors.Wrapf(err, "creating directory for %q", filePath)
	}

	klog.Infof("Downloading %s", url)
	resp, err := http.Get(url)
	if err != nil {
		return errors.Wrapf(err, "downloading %q", url)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return errors.Errorf("downloading %q: %s", url, resp.Status)
	}

	file, err := os.Create(filePath)
	if err != nil {
		return errors.Wrapf(err, "creating %q", filePath)
	}
	defer file.Close()

	bar := progressbar.DefaultBytes(resp.ContentLength, filepath.Base(filePath))
	n, err := io.Copy(io.MultiWriter(file, bar), resp.Body)
	if err != nil {
		return errors.Wrapf(err, "downloading %q to %q", url, filePath)
	}
	klog.Infof("Downloaded %s (%s)", filePath, humanize.Bytes(uint64(n)))
	return nil
}

// openMaybeGzip opens path, transparently decompressing .gz files.
func openMaybeGzip(path string) (io.ReadCloser, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "opening %q", path)
	}
	if filepath.Ext(path) != ".gz" {
		return file, nil
	}
	gz, err := gzip.NewReader(file)
	if err != nil {
		file.Close()
		return nil, errors.Wrapf(err, "decompressing %q", path)
	}
	return &gzipReadCloser{gz: gz, file: file}, nil
}

type gzipReadCloser struct {
	gz   *gzip.Reader
	file *os.File
}

func (r *gzipReadCloser) Read(p []byte) (int, error) { return r.gz.Read(p) }

func (r *gzipReadCloser) Close() error {
	if err := r.gz.Close(); err != nil {
		r.file.Close()
		return err
	}
	return r.file.Close()
}

// readIDXImages reads an IDX image file and returns the raw pixel bytes.
func readIDXImages(path string) ([]byte, error) {
	reader, err := openMaybeGzip(path)
	if err != nil {
		return nil, err
	}
	defer reader.Close()

	var header struct {
		Magic, Count, Rows, Cols uint32
	}
	if err := binary.Read(reader, binary.BigEndian, &header); err != nil {
		return nil, errors.Wrapf(err, "reading IDX header of %q", path)
	}
	if header.Magic != imageMagic {
		return nil, errors.Errorf("%q: IDX magic %d, want %d", path, header.Magic, imageMagic)
	}
	if header.Rows != mnistHeight || header.Cols != mnistWidth {
		return nil, errors.Errorf("%q: image size %dx%d, want %dx%d",
			path, header.Rows, header.Cols, mnistHeight, mnistWidth)
	}

	pixels := make([]byte, int(header.Count)*mnistWidth*mnistHeight)
	if _, err := io.ReadFull(reader, pixels); err != nil {
		return nil, errors.Wrapf(err, "reading %d images from %q", header.Count, path)
	}
	return pixels, nil
}

// readIDXLabels reads an IDX label file and returns the raw label bytes.
func readIDXLabels(path string) ([]byte, error) {
	reader, err := openMaybeGzip(path)
	if err != nil {
		return nil, err
	}
	defer reader.Close()

	var header struct {
		Magic, Count uint32
	}
	if err := binary.Read(reader, binary.BigEndian, &header); err != nil {
		return nil, errors.Wrapf(err, "reading IDX header of %q", path)
	}
	if header.Magic != labelMagic {
		return nil, errors.Errorf("%q: IDX magic %d, want %d", path, header.Magic, labelMagic)
	}

	labels := make([]byte, header.Count)
	if _, err := io.ReadFull(reader, labels); err != nil {
		return nil, errors.Wrapf(err, "reading %d labels from %q", header.Count, path)
	}
	return labels, nil
}
