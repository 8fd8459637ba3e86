package dataset

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/pkg/errors"
	"gorgonia.org/tensor"
)

const (
	idxMagicLabels = 0x00000801
	idxMagicImages = 0x00000803
	// idxMaxBytes Upper bound for payload size declared in IDX header
	idxMaxBytes = 1 << 31
)

// MNIST file names. Each one may be stored as is or with '.gz' suffix
const (
	MNISTTrainImages = "train-images-idx3-ubyte"
	MNISTTrainLabels = "train-labels-idx1-ubyte"
	MNISTTestImages  = "t10k-images-idx3-ubyte"
	MNISTTestLabels  = "t10k-labels-idx1-ubyte"
)

// LoadMNIST Reads MNIST training split from dir. Nothing is downloaded.
//
// Pixels are scaled to [-1; 1]: x' = (x/255 - 0.5) / 0.5
// Resulting TrainSet has shape (N, 28, 28) and digit labels
//
func LoadMNIST(dir string) (*TrainSet, error) {
	return LoadIDX(filepath.Join(dir, MNISTTrainImages), filepath.Join(dir, MNISTTrainLabels))
}

// LoadMNISTTest Same as LoadMNIST, but for test split
func LoadMNISTTest(dir string) (*TrainSet, error) {
	return LoadIDX(filepath.Join(dir, MNISTTestImages), filepath.Join(dir, MNISTTestLabels))
}

// LoadIDX Reads pair of IDX files (images and labels). Falls back to 'path.gz' when 'path' does not exist
func LoadIDX(imagesPath, labelsPath string) (*TrainSet, error) {
	images, rows, cols, err := readIDXFile(imagesPath, readImages)
	if err != nil {
		return nil, errors.Wrap(err, "Can't read images")
	}
	labels, _, _, err := readIDXFile(labelsPath, readLabels)
	if err != nil {
		return nil, errors.Wrap(err, "Can't read labels")
	}
	n := len(labels)
	if n*rows*cols != len(images) {
		return nil, fmt.Errorf("Number of images (%d) doesn't match number of labels (%d)", len(images)/(rows*cols), n)
	}
	backing := make([]float64, len(images))
	for i, px := range images {
		backing[i] = (float64(px)/255.0 - 0.5) / 0.5
	}
	intLabels := make([]int, n)
	for i, l := range labels {
		intLabels[i] = int(l)
	}
	return NewTrainSet(tensor.New(tensor.WithShape(n, rows, cols), tensor.WithBacking(backing)), intLabels)
}

type idxReader func(r io.Reader) ([]byte, int, int, error)

func readIDXFile(path string, read idxReader) ([]byte, int, int, error) {
	f, err := os.Open(path)
	if os.IsNotExist(err) && !strings.HasSuffix(path, ".gz") {
		path += ".gz"
		f, err = os.Open(path)
	}
	if err != nil {
		return nil, 0, 0, err
	}
	defer f.Close()
	var r io.Reader = bufio.NewReader(f)
	if strings.HasSuffix(path, ".gz") {
		gz, err := gzip.NewReader(r)
		if err != nil {
			return nil, 0, 0, errors.Wrap(err, fmt.Sprintf("Can't open gzip stream '%s'", path))
		}
		defer gz.Close()
		r = gz
	}
	return read(r)
}

func readImages(r io.Reader) ([]byte, int, int, error) {
	var header [4]uint32
	if err := binary.Read(r, binary.BigEndian, &header); err != nil {
		return nil, 0, 0, errors.Wrap(err, "Can't read IDX header")
	}
	if header[0] != idxMagicImages {
		return nil, 0, 0, fmt.Errorf("Bad magic number %#x for images file", header[0])
	}
	n, rows, cols := int64(header[1]), int64(header[2]), int64(header[3])
	if rows == 0 || cols == 0 || rows*cols > idxMaxBytes || n > idxMaxBytes/(rows*cols) {
		return nil, 0, 0, fmt.Errorf("Bad IDX images header: %d images of %dx%d", n, rows, cols)
	}
	data, err := readPayload(r, n*rows*cols)
	if err != nil {
		return nil, 0, 0, errors.Wrap(err, "Can't read pixels")
	}
	return data, int(rows), int(cols), nil
}

func readLabels(r io.Reader) ([]byte, int, int, error) {
	var header [2]uint32
	if err := binary.Read(r, binary.BigEndian, &header); err != nil {
		return nil, 0, 0, errors.Wrap(err, "Can't read IDX header")
	}
	if header[0] != idxMagicLabels {
		return nil, 0, 0, fmt.Errorf("Bad magic number %#x for labels file", header[0])
	}
	if int64(header[1]) > idxMaxBytes {
		return nil, 0, 0, fmt.Errorf("Bad IDX labels header: %d labels", header[1])
	}
	data, err := readPayload(r, int64(header[1]))
	if err != nil {
		return nil, 0, 0, errors.Wrap(err, "Can't read labels")
	}
	return data, 0, 0, nil
}

// readPayload Reads exactly size bytes. Buffer grows with data actually read, so header of truncated file can't make it allocate declared size upfront
func readPayload(r io.Reader, size int64) ([]byte, error) {
	buf := &bytes.Buffer{}
	read, err := io.CopyN(buf, r, size)
	if err == io.EOF {
		return nil, fmt.Errorf("File is truncated: header declares %d bytes, but only %d are present", size, read)
	}
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
