package ncm

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// Magic is the signature every container starts with ("CTENFDAM").
var Magic = [8]byte{0x43, 0x54, 0x45, 0x4e, 0x46, 0x44, 0x41, 0x4d}

// Header holds every field preceding the audio payload.
type Header struct {
	// KeyBlob is the obfuscated seed key, see UnwrapSeedKey.
	KeyBlob []byte
	// MetaBlob is the obfuscated metadata document, see UnwrapMetadata.
	MetaBlob []byte
	// CRC32 is stored as found and never verified.
	CRC32 uint32
	// Cover is the embedded album picture, usually JPEG or PNG. It is empty
	// when the container declares a zero cover size.
	Cover []byte
}

// ReadHeader parses the container layout up to the first audio byte and
// leaves r positioned there:
//
//	magic[8] reserved[2] K:u32 key[K] M:u32 meta[M] crc:u32 reserved[5] I:u32 cover[I] audio...
//
// All integers are little endian.
func ReadHeader(r io.Reader) (*Header, error) {
	var magic [8]byte
	if err := readFull(r, magic[:], "magic"); err != nil {
		return nil, err
	} else if magic != Magic {
		return nil, fmt.Errorf("%w: bad magic %x", ErrFormat, magic[:])
	}

	var reserved [5]byte
	if err := readFull(r, reserved[:2], "reserved bytes"); err != nil {
		return nil, err
	}

	var h Header
	var err error
	if h.KeyBlob, err = readBlob(r, "key blob"); err != nil {
		return nil, err
	}

	if h.MetaBlob, err = readBlob(r, "metadata blob"); err != nil {
		return nil, err
	}

	if h.CRC32, err = readUint32(r, "crc32"); err != nil {
		return nil, err
	}

	if err := readFull(r, reserved[:], "reserved bytes"); err != nil {
		return nil, err
	}

	if h.Cover, err = readBlob(r, "cover image"); err != nil {
		return nil, err
	}

	return &h, nil
}

func readUint32(r io.Reader, field string) (uint32, error) {
	var buf [4]byte
	if err := readFull(r, buf[:], field); err != nil {
		return 0, err
	}

	return binary.LittleEndian.Uint32(buf[:]), nil
}

// readBlob reads a length prefixed field. The buffer grows with the data
// actually read, a bogus length on a short stream fails without allocating
// the declared size.
func readBlob(r io.Reader, field string) ([]byte, error) {
	size, err := readUint32(r, field+" length")
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if _, err := io.CopyN(&buf, r, int64(size)); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, fmt.Errorf("%w: truncated %s, declared %d bytes, got %d", ErrFormat, field, size, buf.Len())
		}

		return nil, err
	}

	return buf.Bytes(), nil
}
