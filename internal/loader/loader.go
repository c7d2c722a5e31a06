package loader

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/c2h5oh/datasize"
	"github.com/cespare/xxhash/v2"
	"github.com/haveachin/bytecode/pkg/bytecode"
	"go.uber.org/zap"
)

// Stdin is the name that makes FileSource read from standard input.
const Stdin = "-"

var ErrTooLarge = errors.New("input exceeds maximum size")

// Source opens named inputs.
type Source interface {
	Open(name string) (io.ReadCloser, error)
}

// FileSource opens files from the local file system.
type FileSource struct{}

func (FileSource) Open(name string) (io.ReadCloser, error) {
	if name == Stdin {
		return io.NopCloser(os.Stdin), nil
	}
	return os.Open(name)
}

type Loader struct {
	Source Source
	// MaxSize limits the input and, if it is compressed, the decompressed
	// data. Zero means no limit.
	MaxSize datasize.ByteSize
	// Decompress unwraps compressed input before handing it to the cursor.
	Decompress bool
	Logger     *zap.Logger
}

type Result struct {
	Name   string
	Cursor *bytecode.Cursor
	// Compression is empty for uncompressed input.
	Compression string
	RawSize     datasize.ByteSize
	Size        datasize.ByteSize
	Fingerprint uint64
}

// Load reads the input called name into memory and returns a cursor over it.
func (l Loader) Load(name string) (Result, error) {
	src := l.Source
	if src == nil {
		src = FileSource{}
	}
	logger := l.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	rc, err := src.Open(name)
	if err != nil {
		return Result{}, fmt.Errorf("open %q: %w", name, err)
	}
	defer rc.Close()

	data, err := readAllLimited(rc, l.limit())
	if err != nil {
		return Result{}, fmt.Errorf("read %q: %w", name, err)
	}

	res := Result{
		Name:    name,
		Cursor:  bytecode.From(data),
		RawSize: datasize.ByteSize(len(data)),
	}

	if l.Decompress {
		cmpName, cmp, ok := DetectCompression(res.Cursor)
		if ok {
			logger.Debug("decompressing input",
				zap.String("input", name),
				zap.String("compression", cmpName),
			)

			data, err = decompress(cmp, data, l.limit())
			if err != nil {
				return Result{}, fmt.Errorf("decompress %q: %w", name, err)
			}
			res.Compression = cmpName
			res.Cursor = bytecode.From(data)
		}
	}

	res.Size = datasize.ByteSize(len(data))
	res.Fingerprint = xxhash.Sum64(data)

	logger.Debug("loaded input",
		zap.String("input", name),
		zap.String("size", res.Size.HumanReadable()),
		zap.Uint64("fingerprint", res.Fingerprint),
	)
	return res, nil
}

func (l Loader) limit() int64 {
	return int64(l.MaxSize.Bytes())
}

func readAllLimited(r io.Reader, limit int64) ([]byte, error) {
	if limit <= 0 {
		return io.ReadAll(r)
	}

	data, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > limit {
		return nil, fmt.Errorf("%w of %s", ErrTooLarge, datasize.ByteSize(limit).HumanReadable())
	}
	return data, nil
}
