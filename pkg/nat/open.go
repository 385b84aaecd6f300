package nat

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"golang.org/x/sys/unix"
)

var (
	gzipMagic = []byte{0x1f, 0x8b}
	zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}
)

// Open maps a native file read-only and assembles it. Compressed inputs
// (gzip or zstd) are inflated into memory first. If mmap is unavailable it
// falls back to ReadAt-based loading. The returned file must be closed to
// release any mapping.
func Open(path string, opts Options) (*File, error) {
	fd, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = fd.Close() }()

	stat, err := fd.Stat()
	if err != nil {
		return nil, err
	}
	size64 := stat.Size()
	if size64 > int64(int(^uint(0)>>1)) {
		return nil, fmt.Errorf("%s: file too large to map", path)
	}
	size := int(size64)
	if opts.Source == "" {
		opts.Source = path
	}
	if size == 0 {
		return Assemble(nil, opts)
	}

	data, err := unix.Mmap(int(fd.Fd()), 0, size, unix.PROT_READ, unix.MAP_SHARED)
	if err != nil {
		data, err = readAllAt(fd, size)
		if err != nil {
			return nil, err
		}
		return assembleMaybeCompressed(data, opts, nil)
	}
	unmap := func() error { return unix.Munmap(data) }
	return assembleMaybeCompressed(data, opts, unmap)
}

// OpenReader assembles a stream that cannot be mapped.
func OpenReader(r io.Reader, opts Options) (*File, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	return assembleMaybeCompressed(data, opts, nil)
}

func assembleMaybeCompressed(data []byte, opts Options, release func() error) (*File, error) {
	if bytes.HasPrefix(data, gzipMagic) || bytes.HasPrefix(data, zstdMagic) {
		plain, err := inflate(data)
		if release != nil {
			_ = release()
		}
		if err != nil {
			return nil, fmt.Errorf("inflate %s: %w", opts.Source, err)
		}
		return Assemble(plain, opts)
	}
	f, err := Assemble(data, opts)
	if err != nil {
		if release != nil {
			_ = release()
		}
		return nil, err
	}
	if release != nil {
		f.closers = append(f.closers, release)
	}
	return f, nil
}

func inflate(data []byte) ([]byte, error) {
	if bytes.HasPrefix(data, gzipMagic) {
		zr, err := gzip.NewReader(bytes.NewReader(data))
		if err != nil {
			return nil, err
		}
		defer func() { _ = zr.Close() }()
		return io.ReadAll(zr)
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, err
	}
	defer dec.Close()
	return dec.DecodeAll(data, nil)
}

func readAllAt(r io.ReaderAt, size int) ([]byte, error) {
	out := make([]byte, size)
	var off int64
	for off < int64(size) {
		n, err := r.ReadAt(out[off:], off)
		off += int64(n)
		if err == nil {
			continue
		}
		if err == io.EOF && off == int64(size) {
			break
		}
		return nil, err
	}
	return out, nil
}
