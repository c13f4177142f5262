package ncm

import "io"

// ChunkSize is the unit payloads are processed in. It is a multiple of the
// keystream period, so per chunk and whole payload positions agree.
const ChunkSize = 0x8000

// Decryptor decrypts the audio payload read from the underlying reader.
// The keystream is derived from the position alone, reads of any size
// produce the same output.
type Decryptor struct {
	reader io.Reader
	stream [256]byte
	pos    int64
}

func NewDecryptor(r io.Reader, box *KeyBox) *Decryptor {
	return &Decryptor{reader: r, stream: box.keystream()}
}

func (d *Decryptor) Read(p []byte) (n int, err error) {
	n, err = d.reader.Read(p)
	if n > 0 {
		xorKeyStream(&d.stream, p[:n], p[:n], d.pos)
		d.pos += int64(n)
	}
	return n, err
}

// Offset returns the number of payload bytes decrypted so far.
func (d *Decryptor) Offset() int64 {
	return d.pos
}
