package corpus

import (
	"context"
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"path/filepath"

	"github.com/hyperjump/tsunagu/internal/models"
	"github.com/hyperjump/tsunagu/internal/vector"
	"go.uber.org/zap"
)

// Cache file layout: magic (4), hash len (4), hash bytes, dimension (4),
// n (4), then per entry: title len (4), title bytes, vector (dimension*4).
var cacheMagic = [4]byte{'t', 's', 'n', '1'}

// SaveCache persists the built index to path, tagged with the corpus hash.
func (x *Index) SaveCache(path string) error {
	if path == "" || x.index == nil {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create cache dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create cache file: %w", err)
	}
	defer f.Close()

	if _, err := f.Write(cacheMagic[:]); err != nil {
		return fmt.Errorf("write magic: %w", err)
	}
	hashBytes := []byte(x.hash)
	if err := binary.Write(f, binary.LittleEndian, uint32(len(hashBytes))); err != nil {
		return fmt.Errorf("write hash len: %w", err)
	}
	if _, err := f.Write(hashBytes); err != nil {
		return fmt.Errorf("write hash: %w", err)
	}

	ids, vectors := x.index.Entries()
	if err := binary.Write(f, binary.LittleEndian, uint32(x.index.Dimensions())); err != nil {
		return fmt.Errorf("write dimensions: %w", err)
	}
	if err := binary.Write(f, binary.LittleEndian, uint32(len(ids))); err != nil {
		return fmt.Errorf("write count: %w", err)
	}
	for i, id := range ids {
		idBytes := []byte(id)
		if err := binary.Write(f, binary.LittleEndian, uint32(len(idBytes))); err != nil {
			return fmt.Errorf("write title len: %w", err)
		}
		if _, err := f.Write(idBytes); err != nil {
			return fmt.Errorf("write title: %w", err)
		}
		if _, err := f.Write(float32SliceToBytes(vectors[i])); err != nil {
			return fmt.Errorf("write vector: %w", err)
		}
	}
	return nil
}

// LoadCache restores the index from path if the stored corpus hash matches
// the current notes. Returns true on success; false (without error) when the
// file is missing or the corpus changed, in which case the caller rebuilds.
func (x *Index) LoadCache(ctx context.Context, path string, notes []*models.Note) (bool, error) {
	if path == "" {
		return false, nil
	}
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("open cache file: %w", err)
	}
	defer f.Close()

	var magic [4]byte
	if _, err := readFull(f, magic[:]); err != nil {
		return false, fmt.Errorf("read magic: %w", err)
	}
	if magic != cacheMagic {
		return false, nil
	}
	var hashLen uint32
	if err := binary.Read(f, binary.LittleEndian, &hashLen); err != nil {
		return false, fmt.Errorf("read hash len: %w", err)
	}
	hashBytes := make([]byte, hashLen)
	if _, err := readFull(f, hashBytes); err != nil {
		return false, fmt.Errorf("read hash: %w", err)
	}
	if string(hashBytes) != models.CorpusHash(notes) {
		if x.logger != nil {
			x.logger.Debug("corpus cache stale, rebuilding", zap.String("path", path))
		}
		return false, nil
	}

	var dim, n uint32
	if err := binary.Read(f, binary.LittleEndian, &dim); err != nil {
		return false, fmt.Errorf("read dimensions: %w", err)
	}
	if x.embedder != nil && int(dim) != x.embedder.Dimensions() {
		return false, nil
	}
	if err := binary.Read(f, binary.LittleEndian, &n); err != nil {
		return false, fmt.Errorf("read count: %w", err)
	}
	fresh, err := vector.NewMemoryIndex(int(dim))
	if err != nil {
		return false, err
	}
	titles := make([]string, 0, n)
	vectors := make([][]float32, 0, n)
	buf := make([]byte, int(dim)*4)
	for i := uint32(0); i < n; i++ {
		var titleLen uint32
		if err := binary.Read(f, binary.LittleEndian, &titleLen); err != nil {
			return false, fmt.Errorf("read title len: %w", err)
		}
		titleBytes := make([]byte, titleLen)
		if _, err := readFull(f, titleBytes); err != nil {
			return false, fmt.Errorf("read title: %w", err)
		}
		if _, err := readFull(f, buf); err != nil {
			return false, fmt.Errorf("read vector: %w", err)
		}
		titles = append(titles, string(titleBytes))
		vectors = append(vectors, bytesToFloat32Slice(buf))
	}
	if err := fresh.Add(ctx, titles, vectors); err != nil {
		return false, err
	}
	x.index = fresh
	x.hash = string(hashBytes)
	if x.logger != nil {
		x.logger.Debug("corpus cache loaded", zap.Int("notes", len(titles)))
	}
	return true, nil
}

func readFull(f *os.File, buf []byte) (int, error) {
	total := 0
	for total < len(buf) {
		n, err := f.Read(buf[total:])
		if err != nil {
			return total, err
		}
		total += n
	}
	return total, nil
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
