// Package ncmtest builds containers for tests. It implements the inverse
// of every ncm decoding step.
package ncmtest

import (
	"bytes"
	"crypto/aes"
	"encoding/base64"
	"encoding/binary"
	"encoding/hex"

	"github.com/slipstream/w4dj/ncm"
)

var (
	CoreKey = mustHex("687A4852416D736F356B496E62617857")
	MetaKey = mustHex("2331346C6A6B5F215C5D2630553C2728")
)

const (
	SeedKeyPrefix = "neteasecloudmusic"
	MetaLabel     = "163 key(Don't modify):"
	MetaPrefix    = "music:"
)

// Container describes a container to build. The zero value is a valid
// container with seed key "A", an mp3 metadata document, no cover and no
// audio.
type Container struct {
	SeedKey []byte
	// Metadata is the JSON document, "music:" is prepended by the builder.
	Metadata string
	// NoMetadata writes a zero length metadata blob.
	NoMetadata bool
	CRC32      uint32
	Cover      []byte
	// Audio is the plaintext payload, it is encrypted by the builder.
	Audio []byte
}

// Bytes serializes the container in the on-disk layout.
func (c Container) Bytes() []byte {
	seed := c.SeedKey
	if len(seed) == 0 {
		seed = []byte("A")
	}

	meta := c.Metadata
	if meta == "" {
		meta = `{"format":"mp3"}`
	}

	var buf bytes.Buffer
	buf.Write(ncm.Magic[:])
	buf.Write([]byte{0x01, 0x70})
	writeBlob(&buf, KeyBlob(seed))
	if c.NoMetadata {
		writeBlob(&buf, nil)
	} else {
		writeBlob(&buf, MetaBlob(meta))
	}
	_ = binary.Write(&buf, binary.LittleEndian, c.CRC32)
	buf.Write(make([]byte, 5))
	writeBlob(&buf, c.Cover)
	buf.Write(EncryptAudio(seed, c.Audio))
	return buf.Bytes()
}

// KeyBlob wraps seed the way containers store it.
func KeyBlob(seed []byte) []byte {
	plain := append([]byte(SeedKeyPrefix), seed...)
	return Mask(EncryptECB(CoreKey, Pad(plain)), 0x64)
}

// MetaBlob wraps a metadata document the way containers store it.
func MetaBlob(doc string) []byte {
	ciphertext := EncryptECB(MetaKey, Pad([]byte(MetaPrefix+doc)))
	body := base64.StdEncoding.EncodeToString(ciphertext)
	return Mask([]byte(MetaLabel+body), 0x63)
}

// EncryptAudio applies the payload keystream derived from seed.
func EncryptAudio(seed, audio []byte) []byte {
	box, err := ncm.NewKeyBox(seed)
	if err != nil {
		panic(err)
	}

	out := make([]byte, len(audio))
	box.XORKeyStream(out, audio, 0)
	return out
}

// Pad appends 1 to 16 bytes, each holding the padding length.
func Pad(plain []byte) []byte {
	n := aes.BlockSize - len(plain)%aes.BlockSize
	return append(bytes.Clone(plain), bytes.Repeat([]byte{byte(n)}, n)...)
}

// EncryptECB encrypts every block independently. plain must already be a
// multiple of the block size.
func EncryptECB(key, plain []byte) []byte {
	block, err := aes.NewCipher(key)
	if err != nil {
		panic(err)
	}

	if len(plain)%aes.BlockSize != 0 {
		panic("ncmtest: plaintext is not block aligned")
	}

	out := make([]byte, len(plain))
	for i := 0; i < len(plain); i += aes.BlockSize {
		block.Encrypt(out[i:i+aes.BlockSize], plain[i:i+aes.BlockSize])
	}
	return out
}

// Mask XORs every byte of b with mask into a new slice.
func Mask(b []byte, mask byte) []byte {
	out := make([]byte, len(b))
	for i := range b {
		out[i] = b[i] ^ mask
	}
	return out
}

func writeBlob(buf *bytes.Buffer, blob []byte) {
	_ = binary.Write(buf, binary.LittleEndian, uint32(len(blob)))
	buf.Write(blob)
}

func mustHex(s string) []byte {
	b, err := hex.DecodeString(s)
	if err != nil {
		panic(err)
	}
	return b
}
