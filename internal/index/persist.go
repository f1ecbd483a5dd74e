package index

import (
	"bufio"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"ragchat/internal/domain"
)

// The persisted index is two co-located artifacts: a binary vector blob and
// a JSON metadata file aligned with it by position. Both are required; a
// missing pair member is ErrNotFound, a mismatched pair is ErrCorruptIndex.
const (
	vectorsFile  = "vectors.bin"
	metadataFile = "metadata.json"
)

var blobMagic = [4]byte{'R', 'G', 'V', 'X'}

const blobVersion uint16 = 1

type blobHeader struct {
	Magic     [4]byte
	Version   uint16
	Metric    uint8
	_         uint8
	Dimension uint32
	Count     uint32
}

type payloadEnvelope struct {
	Kind    string                 `json:"kind"`
	Link    *domain.LinkPayload    `json:"link,omitempty"`
	Passage *domain.PassagePayload `json:"passage,omitempty"`
}

// Save writes the index snapshot into dir. Each artifact is written to a
// temp file in the same directory and renamed into place, so a reader sees
// either the old or the new file, never a partial write. The exclusive lock
// keeps searches and batch inserts out for the duration of the snapshot.
func (ix *Index) Save(dir string) error {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	if err := writeAtomic(filepath.Join(dir, vectorsFile), ix.writeVectors); err != nil {
		return fmt.Errorf("save vectors: %w", err)
	}
	if err := writeAtomic(filepath.Join(dir, metadataFile), ix.writeMetadata); err != nil {
		return fmt.Errorf("save metadata: %w", err)
	}
	return nil
}

func (ix *Index) writeVectors(w io.Writer) error {
	hdr := blobHeader{
		Magic:     blobMagic,
		Version:   blobVersion,
		Metric:    metricTag(ix.metric),
		Dimension: uint32(ix.dimension),
		Count:     uint32(len(ix.vectors)),
	}
	if err := binary.Write(w, binary.LittleEndian, hdr); err != nil {
		return err
	}
	for _, v := range ix.vectors {
		if err := binary.Write(w, binary.LittleEndian, v); err != nil {
			return err
		}
	}
	return nil
}

func (ix *Index) writeMetadata(w io.Writer) error {
	envelopes := make([]payloadEnvelope, len(ix.payloads))
	for i, p := range ix.payloads {
		env := payloadEnvelope{Kind: p.Kind()}
		switch v := p.(type) {
		case domain.LinkPayload:
			env.Link = &v
		case domain.PassagePayload:
			env.Passage = &v
		default:
			return fmt.Errorf("unsupported payload kind %q", p.Kind())
		}
		envelopes[i] = env
	}
	return json.NewEncoder(w).Encode(envelopes)
}

// Load reconstructs an index from a prior Save. A missing artifact is
// ErrNotFound (first run: build instead); anything structurally wrong with
// the pair is ErrCorruptIndex.
func Load(dir string) (*Index, error) {
	vectorsPath := filepath.Join(dir, vectorsFile)
	metadataPath := filepath.Join(dir, metadataFile)
	vectorsMissing := fileMissing(vectorsPath)
	metadataMissing := fileMissing(metadataPath)
	if vectorsMissing && metadataMissing {
		return nil, fmt.Errorf("%w: %s", domain.ErrNotFound, dir)
	}
	if vectorsMissing || metadataMissing {
		return nil, fmt.Errorf("%w: index pair incomplete in %s", domain.ErrCorruptIndex, dir)
	}
	vectors, metric, dimension, err := readVectors(vectorsPath)
	if err != nil {
		return nil, err
	}
	payloads, err := readMetadata(metadataPath)
	if err != nil {
		return nil, err
	}
	if len(payloads) != len(vectors) {
		return nil, fmt.Errorf("%w: %d vectors but %d metadata entries",
			domain.ErrCorruptIndex, len(vectors), len(payloads))
	}
	ix, err := New(dimension, metric)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrCorruptIndex, err)
	}
	// Vectors were normalized before the original Save; append verbatim.
	ix.vectors = vectors
	ix.payloads = payloads
	return ix, nil
}

func readVectors(path string) ([][]float64, Metric, int, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, "", 0, fmt.Errorf("%w: %s", domain.ErrNotFound, path)
		}
		return nil, "", 0, err
	}
	defer f.Close()
	r := bufio.NewReader(f)

	var hdr blobHeader
	if err := binary.Read(r, binary.LittleEndian, &hdr); err != nil {
		return nil, "", 0, fmt.Errorf("%w: short header: %v", domain.ErrCorruptIndex, err)
	}
	if hdr.Magic != blobMagic || hdr.Version != blobVersion {
		return nil, "", 0, fmt.Errorf("%w: unrecognized vector blob", domain.ErrCorruptIndex)
	}
	if hdr.Dimension == 0 {
		return nil, "", 0, fmt.Errorf("%w: zero dimension", domain.ErrCorruptIndex)
	}
	metric, err := metricFromTag(hdr.Metric)
	if err != nil {
		return nil, "", 0, fmt.Errorf("%w: %v", domain.ErrCorruptIndex, err)
	}
	vectors := make([][]float64, hdr.Count)
	for i := range vectors {
		v := make([]float64, hdr.Dimension)
		if err := binary.Read(r, binary.LittleEndian, v); err != nil {
			return nil, "", 0, fmt.Errorf("%w: truncated vector blob: %v", domain.ErrCorruptIndex, err)
		}
		vectors[i] = v
	}
	if _, err := r.ReadByte(); err != io.EOF {
		return nil, "", 0, fmt.Errorf("%w: trailing bytes in vector blob", domain.ErrCorruptIndex)
	}
	return vectors, metric, int(hdr.Dimension), nil
}

func readMetadata(path string) ([]domain.Payload, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", domain.ErrNotFound, path)
		}
		return nil, err
	}
	var envelopes []payloadEnvelope
	if err := json.Unmarshal(data, &envelopes); err != nil {
		return nil, fmt.Errorf("%w: bad metadata: %v", domain.ErrCorruptIndex, err)
	}
	payloads := make([]domain.Payload, len(envelopes))
	for i, env := range envelopes {
		switch {
		case env.Kind == "link" && env.Link != nil:
			payloads[i] = *env.Link
		case env.Kind == "passage" && env.Passage != nil:
			payloads[i] = *env.Passage
		default:
			return nil, fmt.Errorf("%w: metadata entry %d has kind %q",
				domain.ErrCorruptIndex, i, env.Kind)
		}
	}
	return payloads, nil
}

// writeAtomic writes via a temp file in the destination directory followed
// by a rename, so concurrent readers never observe a half-written file.
func writeAtomic(path string, write func(io.Writer) error) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	defer func() {
		if tmp != nil {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()
	w := bufio.NewWriter(tmp)
	if err := write(w); err != nil {
		return err
	}
	if err := w.Flush(); err != nil {
		return err
	}
	if err := tmp.Sync(); err != nil {
		return err
	}
	name := tmp.Name()
	if err := tmp.Close(); err != nil {
		return err
	}
	tmp = nil
	return os.Rename(name, path)
}

func fileMissing(path string) bool {
	_, err := os.Stat(path)
	return errors.Is(err, fs.ErrNotExist)
}

func metricTag(m Metric) uint8 {
	if m == InnerProduct {
		return 1
	}
	return 0
}

func metricFromTag(tag uint8) (Metric, error) {
	switch tag {
	case 0:
		return Cosine, nil
	case 1:
		return InnerProduct, nil
	}
	return "", fmt.Errorf("unknown metric tag %d", tag)
}
