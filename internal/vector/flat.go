package vector

import (
	"context"
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"

	"github.com/hyperjump/kotae/pkg/utils"
)

// flatMagic identifies a flat engine blob ("KVF1").
const flatMagic uint32 = 0x3146564b

const flatHeaderSize = 12

// FlatEngine is an in-memory exact L2 index. Vectors are stored row-major in a single
// slice and every search scans all of them.
type FlatEngine struct {
	dimensions int
	data       []float32
}

// NewFlatEngine creates an empty flat engine with the given dimension.
func NewFlatEngine(dimensions int) (*FlatEngine, error) {
	if dimensions <= 0 {
		return nil, fmt.Errorf("dimensions must be positive")
	}
	return &FlatEngine{dimensions: dimensions}, nil
}

// Type returns the index type identifier.
func (f *FlatEngine) Type() string {
	return string(IndexTypeMemory)
}

// Dimensions returns the vector dimension.
func (f *FlatEngine) Dimensions() int {
	return f.dimensions
}

// Add appends vectors. Either all vectors are added or none.
func (f *FlatEngine) Add(ctx context.Context, vectors [][]float32) error {
	for _, vec := range vectors {
		if len(vec) != f.dimensions {
			return fmt.Errorf("%w: got %d, expected %d", ErrDimensionMismatch, len(vec), f.dimensions)
		}
	}
	for _, vec := range vectors {
		f.data = append(f.data, vec...)
	}
	return nil
}

// Search returns the k stored vectors closest to query, ordered by distance and then by
// insertion position.
func (f *FlatEngine) Search(ctx context.Context, query []float32, k int) ([]Neighbor, error) {
	if len(query) != f.dimensions {
		return nil, fmt.Errorf("%w: got %d, expected %d", ErrDimensionMismatch, len(query), f.dimensions)
	}
	n := f.Size()
	if k <= 0 || n == 0 {
		return nil, nil
	}
	scored := make([]Neighbor, n)
	for i := 0; i < n; i++ {
		row := f.data[i*f.dimensions : (i+1)*f.dimensions]
		scored[i] = Neighbor{Position: i, Distance: utils.SquaredL2(query, row)}
	}
	sort.Slice(scored, func(i, j int) bool {
		if scored[i].Distance != scored[j].Distance {
			return scored[i].Distance < scored[j].Distance
		}
		return scored[i].Position < scored[j].Position
	})
	if k > n {
		k = n
	}
	return scored[:k], nil
}

// Save persists the engine to path. Directory is created if needed. Format (little endian):
// magic (4), dimension (4), count (4), then count*dimension float32 values.
func (f *FlatEngine) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create index dir: %w", err)
	}
	buf := make([]byte, flatHeaderSize, flatHeaderSize+len(f.data)*4)
	binary.LittleEndian.PutUint32(buf[0:4], flatMagic)
	binary.LittleEndian.PutUint32(buf[4:8], uint32(f.dimensions))
	binary.LittleEndian.PutUint32(buf[8:12], uint32(f.Size()))
	buf = append(buf, float32SliceToBytes(f.data)...)
	if err := writeFileAtomic(path, buf); err != nil {
		return fmt.Errorf("write index file: %w", err)
	}
	return nil
}

// Load replaces the engine contents with the blob at path. The engine is unchanged when
// the blob is missing, truncated, or was written with another dimension.
func (f *FlatEngine) Load(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read index file: %w", err)
	}
	if len(raw) < flatHeaderSize {
		return fmt.Errorf("index file too short: %d bytes", len(raw))
	}
	if magic := binary.LittleEndian.Uint32(raw[0:4]); magic != flatMagic {
		return fmt.Errorf("bad index magic %#x", magic)
	}
	dim := int(binary.LittleEndian.Uint32(raw[4:8]))
	if dim != f.dimensions {
		return fmt.Errorf("%w: file has %d, index expects %d", ErrDimensionMismatch, dim, f.dimensions)
	}
	n := int(binary.LittleEndian.Uint32(raw[8:12]))
	body := raw[flatHeaderSize:]
	if len(body) != n*dim*4 {
		return fmt.Errorf("index file holds %d bytes of vectors, expected %d", len(body), n*dim*4)
	}
	f.data = bytesToFloat32Slice(body)
	return nil
}

// Size returns the number of vectors in the engine.
func (f *FlatEngine) Size() int {
	return len(f.data) / f.dimensions
}

// Close is a no-op for FlatEngine.
func (f *FlatEngine) Close() error {
	return nil
}

func float32SliceToBytes(s []float32) []byte {
	const size = 4
	out := make([]byte, len(s)*size)
	for i, v := range s {
		binary.LittleEndian.PutUint32(out[i*size:(i+1)*size], math.Float32bits(v))
	}
	return out
}

func bytesToFloat32Slice(b []byte) []float32 {
	const size = 4
	out := make([]float32, len(b)/size)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*size : (i+1)*size]))
	}
	return out
}

// writeFileAtomic writes data to a temp file next to path and renames it into place.
func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp*")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), path)
}
