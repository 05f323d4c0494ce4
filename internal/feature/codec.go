package feature

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"math/bits"
	"os"

	"github.com/sbinet/npyio/npy"
	"github.com/sbinet/npyio/npz"
	"gonum.org/v1/gonum/mat"

	"github.com/mvp-joe/cpgimage/internal/fsutil"
)

// Tensor files are NumPy .npz archives with one (nodes, dim) float64 array
// per channel, stored under "<channel>.npy", so np.load(path)["degree"]
// returns the degree channel.
const memberDtype = "<f8"

// maxInflation bounds how far deflate can expand a member. Declared shapes
// larger than this multiple of the archive size cannot be genuine.
const maxInflation = 1032

// ErrInvalidTensor indicates bytes that are not a tensor file.
var ErrInvalidTensor = errors.New("invalid tensor data")

func memberName(c int) string {
	return ChannelNames[c] + ".npy"
}

// Encode serializes t as an npz archive.
func Encode(t *Tensor) ([]byte, error) {
	nodes := t.Nodes()
	if nodes == 0 || t.Dim <= 0 {
		return nil, fmt.Errorf("%w: cannot encode %dx%d channels", ErrInvalidTensor, nodes, t.Dim)
	}

	var buf bytes.Buffer
	w := npz.NewWriter(&buf)
	for c, channel := range t.Channels {
		if len(channel) != nodes {
			return nil, fmt.Errorf("%w: channel %s has %d rows, want %d", ErrInvalidTensor, ChannelNames[c], len(channel), nodes)
		}
		flat := make([]float64, 0, nodes*t.Dim)
		for _, row := range channel {
			if len(row) != t.Dim {
				return nil, fmt.Errorf("%w: channel %s row has %d values, want %d", ErrInvalidTensor, ChannelNames[c], len(row), t.Dim)
			}
			for _, f := range row {
				flat = append(flat, float64(f))
			}
		}
		if err := w.Write(memberName(c), mat.NewDense(nodes, t.Dim, flat)); err != nil {
			return nil, fmt.Errorf("failed to encode %s channel: %w", ChannelNames[c], err)
		}
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("failed to finish tensor archive: %w", err)
	}
	return buf.Bytes(), nil
}

// Decode parses bytes produced by Encode.
func Decode(data []byte) (*Tensor, error) {
	r, err := npz.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidTensor, err)
	}

	limit := uint64(len(data)) * maxInflation
	t := &Tensor{Dim: -1}
	for c := range t.Channels {
		rows, err := decodeChannel(r, c, limit, t)
		if err != nil {
			return nil, err
		}
		t.Channels[c] = rows
	}
	return t, nil
}

// decodeChannel reads one member, checking its header against the shape
// established by earlier channels before allocating.
func decodeChannel(r *npz.Reader, c int, limit uint64, t *Tensor) (rows [][]float32, err error) {
	name := memberName(c)
	// npy header parsing slices without bounds checks on malformed input.
	defer func() {
		if p := recover(); p != nil {
			rows, err = nil, fmt.Errorf("%w: %s: corrupt header: %v", ErrInvalidTensor, name, p)
		}
	}()

	rc, err := r.Open(name)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidTensor, err)
	}
	defer rc.Close()

	counted := &countingReader{r: rc}
	rp, err := npy.NewReader(counted)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidTensor, name, err)
	}
	hdr := rp.Header
	if hdr.Descr.Type != memberDtype || hdr.Descr.Fortran {
		return nil, fmt.Errorf("%w: %s has dtype %q", ErrInvalidTensor, name, hdr.Descr.Type)
	}
	if len(hdr.Descr.Shape) != 2 || hdr.Descr.Shape[0] <= 0 || hdr.Descr.Shape[1] <= 0 {
		return nil, fmt.Errorf("%w: %s has shape %v", ErrInvalidTensor, name, hdr.Descr.Shape)
	}
	nodes, dim := hdr.Descr.Shape[0], hdr.Descr.Shape[1]
	if c > 0 && (nodes != len(t.Channels[0]) || dim != t.Dim) {
		return nil, fmt.Errorf("%w: %s has shape %v, want [%d %d]", ErrInvalidTensor, name, hdr.Descr.Shape, len(t.Channels[0]), t.Dim)
	}

	hi, elems := bits.Mul64(uint64(nodes), uint64(dim))
	hi2, size := bits.Mul64(elems, 8)
	if hi != 0 || hi2 != 0 || size > limit {
		return nil, fmt.Errorf("%w: %s shape %v exceeds archive size", ErrInvalidTensor, name, hdr.Descr.Shape)
	}

	start := counted.n
	flat := make([]float64, elems)
	if err := rp.Read(&flat); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidTensor, name, err)
	}
	if got := counted.n - start; got != size {
		return nil, fmt.Errorf("%w: %s holds %d payload bytes, want %d", ErrInvalidTensor, name, got, size)
	}

	t.Dim = dim
	rows = make([][]float32, nodes)
	for j := range rows {
		row := make([]float32, dim)
		for k := range row {
			row[k] = float32(flat[j*dim+k])
		}
		rows[j] = row
	}
	return rows, nil
}

// countingReader tracks bytes read so short payloads are detected.
type countingReader struct {
	r io.Reader
	n uint64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += uint64(n)
	return n, err
}

// WriteFile atomically writes t to path.
func WriteFile(path string, t *Tensor) error {
	data, err := Encode(t)
	if err != nil {
		return err
	}
	return fsutil.WriteFileAtomic(path, data, 0644)
}

// ReadFile reads a tensor written by WriteFile.
func ReadFile(path string) (*Tensor, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read tensor: %w", err)
	}
	return Decode(data)
}
