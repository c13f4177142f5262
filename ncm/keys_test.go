package ncm_test

import (
	"bytes"
	"testing"

	"github.com/slipstream/w4dj/ncm"
	"github.com/slipstream/w4dj/ncm/ncmtest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUnwrapSeedKey(t *testing.T) {
	for _, seed := range [][]byte{[]byte("A"), []byte("123456789012345678901234567890"), bytes.Repeat([]byte{0xff}, 80)} {
		got, err := ncm.UnwrapSeedKey(ncmtest.KeyBlob(seed))
		require.NoError(t, err)
		assert.Equal(t, seed, got)
	}
}

func TestUnwrapSeedKeyErrors(t *testing.T) {
	blockWithPadding := func(n byte) []byte {
		block := bytes.Repeat([]byte{'x'}, 32)
		block[31] = n
		return ncmtest.Mask(ncmtest.EncryptECB(ncmtest.CoreKey, block), 0x64)
	}

	tests := []struct {
		name string
		blob []byte
	}{
		{name: "empty", blob: nil},
		{name: "not block aligned", blob: make([]byte, 17)},
		{name: "zero padding", blob: blockWithPadding(0)},
		{name: "padding too large", blob: blockWithPadding(17)},
		{name: "only prefix", blob: ncmtest.Mask(ncmtest.EncryptECB(ncmtest.CoreKey, ncmtest.Pad([]byte(ncmtest.SeedKeyPrefix))), 0x64)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ncm.UnwrapSeedKey(tt.blob)
			assert.ErrorIs(t, err, ncm.ErrCrypto)
		})
	}
}

func TestUnwrapSeedKeyDoesNotMutateBlob(t *testing.T) {
	blob := ncmtest.KeyBlob([]byte("A"))
	orig := bytes.Clone(blob)

	_, err := ncm.UnwrapSeedKey(blob)
	require.NoError(t, err)
	assert.Equal(t, orig, blob)
}

func TestUnwrapMetadata(t *testing.T) {
	doc := `{"format":"flac","musicName":"歌"}`

	got, err := ncm.UnwrapMetadata(ncmtest.MetaBlob(doc))
	require.NoError(t, err)
	assert.Equal(t, doc, string(got))
}

func TestUnwrapMetadataErrors(t *testing.T) {
	label := []byte(ncmtest.MetaLabel)

	tests := []struct {
		name   string
		blob   []byte
		crypto bool
	}{
		{name: "only label", blob: ncmtest.Mask(label, 0x63)},
		{name: "bad base64", blob: ncmtest.Mask(append(label, "!!!!"...), 0x63)},
		{name: "not block aligned", blob: ncmtest.Mask(append(label, "AAAA"...), 0x63), crypto: true},
		{
			name: "invalid utf-8",
			blob: ncmtest.Mask(append(label, encodeMeta(ncmtest.Pad([]byte{'m', 'u', 's', 'i', 'c', ':', 0xff, 0xfe}))...), 0x63),
		},
		{
			name: "shorter than label",
			blob: ncmtest.Mask(append(label, encodeMeta(ncmtest.Pad([]byte("mus")))...), 0x63),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ncm.UnwrapMetadata(tt.blob)
			assert.ErrorIs(t, err, ncm.ErrMetadata)
			if tt.crypto {
				assert.ErrorIs(t, err, ncm.ErrCrypto)
			}
		})
	}
}
