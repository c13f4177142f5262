package ncm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUnpad(t *testing.T) {
	tests := []struct {
		name    string
		in      []byte
		want    []byte
		wantErr bool
	}{
		{name: "one byte", in: []byte{'a', 'b', 1}, want: []byte{'a', 'b'}},
		{name: "whole block", in: []byte{16, 16, 16, 16, 16, 16, 16, 16, 16, 16, 16, 16, 16, 16, 16, 16}, want: []byte{}},
		{name: "zero", in: []byte{'a', 0}, wantErr: true},
		{name: "above block size", in: append(make([]byte, 31), 17), wantErr: true},
		{name: "longer than input", in: []byte{'a', 3}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := unpad(tt.in, 16)

			if tt.wantErr {
				assert.ErrorIs(t, err, ErrCrypto)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestScheduleFirstSteps(t *testing.T) {
	box := schedule([]byte{0x00}, 4)
	assert.Equal(t, []byte{0, 1, 3, 5}, box[:4])

	full, err := NewKeyBox([]byte{0x00})
	require.NoError(t, err)
	assert.Equal(t, schedule([]byte{0x00}, 256), *full)
}

func TestKeyStreamPeriod(t *testing.T) {
	box, err := NewKeyBox([]byte("period"))
	require.NoError(t, err)

	src := make([]byte, 3*256)
	dst := make([]byte, len(src))
	box.XORKeyStream(dst, src, 0)

	assert.Equal(t, dst[:256], dst[256:512])
	assert.Equal(t, dst[:256], dst[512:])

	// an offset that is a whole number of periods changes nothing
	shifted := make([]byte, len(src))
	box.XORKeyStream(shifted, src, ChunkSize)
	assert.Equal(t, dst, shifted)
}
