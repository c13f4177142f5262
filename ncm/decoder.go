package ncm

import (
	"fmt"
	"io"
)

// File is an opened container. Reading from it yields the decrypted audio
// payload; the header and metadata are available up front.
//
// Output is produced as it is read, so a caller that stops early or fails
// while writing is left with a partial payload. Write to a temporary file
// and rename it when the result must be all or nothing.
type File struct {
	Header *Header

	// Metadata is nil when the metadata could not be recovered, MetadataErr
	// then holds the reason. The payload is unaffected.
	Metadata    *Metadata
	MetadataErr error

	payload *Decryptor
}

// Open parses the container header from r, unwraps the seed key and
// prepares payload decryption. Only format, key and I/O errors are fatal:
// metadata failures are reported through File.MetadataErr.
func Open(r io.Reader) (*File, error) {
	header, err := ReadHeader(r)
	if err != nil {
		return nil, err
	}

	seed, err := UnwrapSeedKey(header.KeyBlob)
	if err != nil {
		return nil, err
	}

	box, err := NewKeyBox(seed)
	if err != nil {
		return nil, err
	}

	f := &File{Header: header, payload: NewDecryptor(r, box)}
	f.Metadata, f.MetadataErr = decodeMetadata(header.MetaBlob)
	return f, nil
}

func decodeMetadata(blob []byte) (*Metadata, error) {
	if len(blob) == 0 {
		return nil, fmt.Errorf("%w: container carries no metadata", ErrMetadata)
	}

	plain, err := UnwrapMetadata(blob)
	if err != nil {
		return nil, err
	}

	return ParseMetadata(plain)
}

// Extension returns the payload format from the metadata, or fallback when
// the metadata is unavailable.
func (f *File) Extension(fallback string) string {
	if f.Metadata == nil {
		return fallback
	}

	return f.Metadata.Extension()
}

func (f *File) Read(p []byte) (int, error) {
	return f.payload.Read(p)
}

// Decode opens the container in r and returns the payload extension and a
// reader producing the decrypted payload. Unlike Open it treats missing or
// broken metadata as an error.
func Decode(r io.Reader) (string, io.Reader, error) {
	f, err := Open(r)
	if err != nil {
		return "", nil, err
	} else if f.MetadataErr != nil {
		return "", nil, f.MetadataErr
	}

	return f.Extension(""), f, nil
}
