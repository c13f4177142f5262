package ncm

import (
	"crypto/aes"
	"encoding/base64"
	"fmt"
	"unicode/utf8"
)

var (
	coreKey = []byte{0x68, 0x7a, 0x48, 0x52, 0x41, 0x6d, 0x73, 0x6f, 0x35, 0x6b, 0x49, 0x6e, 0x62, 0x61, 0x78, 0x57}
	metaKey = []byte{0x23, 0x31, 0x34, 0x6c, 0x6a, 0x6b, 0x5f, 0x21, 0x5c, 0x5d, 0x26, 0x30, 0x55, 0x3c, 0x27, 0x28}
)

const (
	keyBlobMask  = 0x64
	metaBlobMask = 0x63

	// "neteasecloudmusic"
	seedKeyPrefixLen = 17
	// "163 key(Don't modify):"
	metaLabelLen = 22
	// "music:", counted in characters
	metaPrefixLen = 6
)

// UnwrapSeedKey recovers the key box seed from the obfuscated key blob.
func UnwrapSeedKey(blob []byte) ([]byte, error) {
	plain, err := decryptECB(coreKey, xorMask(blob, keyBlobMask))
	if err != nil {
		return nil, fmt.Errorf("failed decrypting key blob: %w", err)
	}

	if len(plain) <= seedKeyPrefixLen {
		return nil, fmt.Errorf("%w: seed key is empty", ErrCrypto)
	}

	return plain[seedKeyPrefixLen:], nil
}

// UnwrapMetadata recovers the metadata plaintext from the obfuscated
// metadata blob. Every failure matches ErrMetadata, cipher failures match
// ErrCrypto too.
func UnwrapMetadata(blob []byte) ([]byte, error) {
	if len(blob) <= metaLabelLen {
		return nil, fmt.Errorf("%w: blob too short (%d bytes)", ErrMetadata, len(blob))
	}

	body := xorMask(blob[metaLabelLen:], metaBlobMask)

	ciphertext := make([]byte, base64.StdEncoding.DecodedLen(len(body)))
	n, err := base64.StdEncoding.Decode(ciphertext, body)
	if err != nil {
		return nil, fmt.Errorf("%w: failed decoding base64: %w", ErrMetadata, err)
	}

	plain, err := decryptECB(metaKey, ciphertext[:n])
	if err != nil {
		return nil, fmt.Errorf("%w: failed decrypting: %w", ErrMetadata, err)
	}

	if !utf8.Valid(plain) {
		return nil, fmt.Errorf("%w: plaintext is not valid utf-8", ErrMetadata)
	}

	for i := 0; i < metaPrefixLen; i++ {
		if len(plain) == 0 {
			return nil, fmt.Errorf("%w: plaintext shorter than its label", ErrMetadata)
		}

		_, size := utf8.DecodeRune(plain)
		plain = plain[size:]
	}

	return plain, nil
}

// decryptECB decrypts every block independently and strips the padding.
func decryptECB(key, ciphertext []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}

	bs := block.BlockSize()
	if len(ciphertext) == 0 || len(ciphertext)%bs != 0 {
		return nil, fmt.Errorf("%w: length %d is not a multiple of the block size", ErrCrypto, len(ciphertext))
	}

	plain := make([]byte, len(ciphertext))
	for i := 0; i < len(ciphertext); i += bs {
		block.Decrypt(plain[i:i+bs], ciphertext[i:i+bs])
	}

	return unpad(plain, bs)
}

// unpad removes N trailing bytes where N is the value of the last byte.
// Only the length byte is checked, the padding bytes themselves are not.
func unpad(plain []byte, blockSize int) ([]byte, error) {
	n := int(plain[len(plain)-1])
	if n == 0 || n > blockSize || n > len(plain) {
		return nil, fmt.Errorf("%w: padding length %d", ErrCrypto, n)
	}

	return plain[:len(plain)-n], nil
}

func xorMask(src []byte, mask byte) []byte {
	dst := make([]byte, len(src))
	for i, b := range src {
		dst[i] = b ^ mask
	}

	return dst
}
