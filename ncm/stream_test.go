package ncm_test

import (
	"bytes"
	"io"
	"testing"
	"testing/iotest"

	"github.com/slipstream/w4dj/ncm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/exp/rand"
)

func randomBox(t *testing.T, rng *rand.Rand) *ncm.KeyBox {
	seed := make([]byte, 1+rng.Intn(64))
	_, _ = rng.Read(seed)

	box, err := ncm.NewKeyBox(seed)
	require.NoError(t, err)
	return box
}

// referenceDecrypt processes the payload in ChunkSize chunks with the
// position restarting at 1 in every chunk.
func referenceDecrypt(box *ncm.KeyBox, payload []byte) []byte {
	out := bytes.Clone(payload)
	for start := 0; start < len(out); start += ncm.ChunkSize {
		chunk := out[start:min(start+ncm.ChunkSize, len(out))]
		for i := 1; i <= len(chunk); i++ {
			j := i & 0xff
			chunk[i-1] ^= box[(int(box[j])+int(box[(int(box[j])+j)&0xff]))&0xff]
		}
	}
	return out
}

func TestXORKeyStreamInvolution(t *testing.T) {
	rng := rand.New(rand.NewSource(2))

	for _, size := range []int{0, 1, 255, 256, 257, 4096, ncm.ChunkSize} {
		box := randomBox(t, rng)

		data := make([]byte, size)
		_, _ = rng.Read(data)

		once := make([]byte, size)
		box.XORKeyStream(once, data, 0)
		twice := make([]byte, size)
		box.XORKeyStream(twice, once, 0)

		assert.Equal(t, data, twice, "size %d", size)
	}
}

func TestDecryptorMatchesChunkedReference(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	box := randomBox(t, rng)

	payload := make([]byte, ncm.ChunkSize*3+1234)
	_, _ = rng.Read(payload)

	expected := referenceDecrypt(box, payload)

	t.Run("chunked reads", func(t *testing.T) {
		got, err := io.ReadAll(ncm.NewDecryptor(bytes.NewReader(payload), box))
		require.NoError(t, err)
		assert.Equal(t, expected, got)
	})

	t.Run("one byte reads", func(t *testing.T) {
		got, err := io.ReadAll(ncm.NewDecryptor(iotest.OneByteReader(bytes.NewReader(payload)), box))
		require.NoError(t, err)
		assert.Equal(t, expected, got)
	})

	t.Run("half reads", func(t *testing.T) {
		got, err := io.ReadAll(ncm.NewDecryptor(iotest.HalfReader(bytes.NewReader(payload)), box))
		require.NoError(t, err)
		assert.Equal(t, expected, got)
	})
}

func TestDecryptorEmptyPayload(t *testing.T) {
	box, err := ncm.NewKeyBox([]byte("A"))
	require.NoError(t, err)

	dec := ncm.NewDecryptor(bytes.NewReader(nil), box)
	got, err := io.ReadAll(dec)
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.Zero(t, dec.Offset())
}

func TestDecryptorPropagatesReadErrors(t *testing.T) {
	box, err := ncm.NewKeyBox([]byte("A"))
	require.NoError(t, err)

	_, err = io.ReadAll(ncm.NewDecryptor(iotest.ErrReader(io.ErrClosedPipe), box))
	assert.ErrorIs(t, err, io.ErrClosedPipe)
}
