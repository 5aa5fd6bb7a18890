package capture

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/golang/snappy"
	"github.com/google/renameio/v2"
	"github.com/klauspost/compress/zstd"

	"honnef.co/go/spanprof/profiler"
)

type Compression uint8

const (
	Raw Compression = iota
	Snappy
	Zstd
)

func (c Compression) String() string {
	switch c {
	case Raw:
		return "raw"
	case Snappy:
		return "snappy"
	case Zstd:
		return "zstd"
	default:
		return fmt.Sprintf("Compression(%d)", uint8(c))
	}
}

// CompressionFor picks the compression for a file name: ".sz" for snappy, ".zst" for zstd, anything else is
// stored uncompressed.
func CompressionFor(path string) Compression {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".sz":
		return Snappy
	case ".zst":
		return Zstd
	default:
		return Raw
	}
}

// The zero-option encoder and decoder are safe for concurrent use of EncodeAll and DecodeAll.
var (
	zstdEncoder, _ = zstd.NewWriter(nil)
	zstdDecoder, _ = zstd.NewReader(nil, zstd.WithDecoderConcurrency(0))
)

func Compress(c Compression, b []byte) ([]byte, error) {
	switch c {
	case Raw:
		return b, nil
	case Snappy:
		if snappy.MaxEncodedLen(len(b)) < 0 {
			return nil, fmt.Errorf("capture of %d bytes is too large for snappy", len(b))
		}
		return snappy.Encode(nil, b), nil
	case Zstd:
		return zstdEncoder.EncodeAll(b, nil), nil
	default:
		return nil, fmt.Errorf("unsupported compression %s", c)
	}
}

func Decompress(c Compression, b []byte) ([]byte, error) {
	switch c {
	case Raw:
		return b, nil
	case Snappy:
		n, err := snappy.DecodedLen(b)
		if err != nil {
			return nil, fmt.Errorf("couldn't decompress snappy data: %w", err)
		}
		out, err := snappy.Decode(make([]byte, n), b)
		if err != nil {
			return nil, fmt.Errorf("couldn't decompress snappy data: %w", err)
		}
		return out, nil
	case Zstd:
		out, err := zstdDecoder.DecodeAll(b, nil)
		if err != nil {
			return nil, fmt.Errorf("couldn't decompress zstd data: %w", err)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unsupported compression %s", c)
	}
}

// SaveFile writes d to path, compressed according to the file extension. The file is synced and replaced
// atomically.
func SaveFile(path string, d *profiler.Data) error {
	b, err := Compress(CompressionFor(path), Marshal(d))
	if err != nil {
		return err
	}
	if err := renameio.WriteFile(path, b, 0o644); err != nil {
		return fmt.Errorf("couldn't save capture: %w", err)
	}
	return nil
}

// LoadFile reads a capture written by SaveFile. Labels are interned into labels, or into a new table if labels is
// nil.
func LoadFile(path string, labels *profiler.LabelTable) (*profiler.Data, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	b, err = Decompress(CompressionFor(path), b)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	d, err := Unmarshal(b, labels)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return d, nil
}
