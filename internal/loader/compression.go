package loader

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/golang/snappy"
	"github.com/haveachin/bytecode/pkg/bytecode"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zlib"
	"github.com/klauspost/compress/zstd"
)

// Compression is a container format that input files may be wrapped in.
type Compression interface {
	// Magic returns the bytes every compressed stream starts with.
	Magic() []byte
	// NewReader returns a reader of the decompressed stream.
	NewReader(r io.Reader) (io.ReadCloser, error)
}

type (
	GzipCompression   struct{}
	ZlibCompression   struct{}
	ZstdCompression   struct{}
	SnappyCompression struct{}
)

func (GzipCompression) Magic() []byte {
	return []byte{0x1f, 0x8b}
}

func (GzipCompression) NewReader(r io.Reader) (io.ReadCloser, error) {
	zr, err := gzip.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("open gzip: %w", err)
	}
	return zr, nil
}

// Magic only matches the default compression level header.
func (ZlibCompression) Magic() []byte {
	return []byte{0x78, 0x9c}
}

func (ZlibCompression) NewReader(r io.Reader) (io.ReadCloser, error) {
	zr, err := zlib.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("open zlib: %w", err)
	}
	return zr, nil
}

func (ZstdCompression) Magic() []byte {
	return []byte{0x28, 0xb5, 0x2f, 0xfd}
}

func (ZstdCompression) NewReader(r io.Reader) (io.ReadCloser, error) {
	zr, err := zstd.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("open zstd: %w", err)
	}
	return zr.IOReadCloser(), nil
}

// Magic is the stream identifier chunk of the snappy framing format.
func (SnappyCompression) Magic() []byte {
	return []byte("\xff\x06\x00\x00sNaPpY")
}

func (SnappyCompression) NewReader(r io.Reader) (io.ReadCloser, error) {
	return io.NopCloser(snappy.NewReader(r)), nil
}

func init() {
	RegisterCompression(GzipCompression{}, "gzip")
	RegisterCompression(ZlibCompression{}, "zlib")
	RegisterCompression(ZstdCompression{}, "zstd")
	RegisterCompression(SnappyCompression{}, "snappy")
}

type namedCompression struct {
	name string
	Compression
}

var compressions []namedCompression

// RegisterCompression registers a compression so that it is detected by
// DetectCompression. Name is case insensitive.
func RegisterCompression(compression Compression, name string) {
	compressions = append(compressions, namedCompression{
		name:        strings.ToLower(name),
		Compression: compression,
	})
}

// CompressionByName returns the compression registered under name.
func CompressionByName(name string) (Compression, bool) {
	name = strings.ToLower(name)
	for _, c := range compressions {
		if c.name == name {
			return c.Compression, true
		}
	}
	return nil, false
}

// DetectCompression matches the magic of every registered compression
// against the unconsumed bytes of c. The cursor is not advanced.
func DetectCompression(c *bytecode.Cursor) (string, Compression, bool) {
	for _, cmp := range compressions {
		if c.StartsWith(cmp.Magic()) {
			return cmp.name, cmp.Compression, true
		}
	}
	return "", nil, false
}

func decompress(cmp Compression, compressed []byte, limit int64) ([]byte, error) {
	r, err := cmp.NewReader(bytes.NewReader(compressed))
	if err != nil {
		return nil, err
	}
	defer r.Close()

	return readAllLimited(r, limit)
}
