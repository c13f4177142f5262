package ncm

import (
	"errors"
	"fmt"
	"io"
)

var (
	// ErrFormat is returned when the container layout is invalid: wrong
	// magic, truncated field or a length that does not fit the stream.
	ErrFormat = errors.New("ncm: invalid container")
	// ErrCrypto is returned when an unwrapped blob is not valid block
	// cipher output: length not a multiple of the block size or bad padding.
	ErrCrypto = errors.New("ncm: invalid ciphertext")
	// ErrMetadata is returned when the metadata document cannot be
	// recovered or lacks the format field. The audio payload does not
	// depend on it, see Open.
	ErrMetadata = errors.New("ncm: invalid metadata")
)

// readFull reads exactly len(p) bytes. Running out of input inside a field
// is a format error, any other read error is returned untouched.
func readFull(r io.Reader, p []byte, field string) error {
	if _, err := io.ReadFull(r, p); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return fmt.Errorf("%w: truncated %s", ErrFormat, field)
		}

		return err
	}

	return nil
}
