package ncm

import "fmt"

// KeyBox is a permutation of 0..255 scheduled from the seed key. It is the
// only secret the payload keystream depends on.
type KeyBox [256]byte

// NewKeyBox runs the single pass schedule over seed. Every step is a swap,
// so the table stays a permutation throughout.
func NewKeyBox(seed []byte) (*KeyBox, error) {
	if len(seed) == 0 {
		return nil, fmt.Errorf("%w: empty seed key", ErrCrypto)
	}

	box := schedule(seed, len(KeyBox{}))
	return &box, nil
}

// schedule runs the first steps iterations of the key box schedule.
func schedule(seed []byte, steps int) KeyBox {
	var box KeyBox
	for i := range box {
		box[i] = byte(i)
	}

	var last byte
	k := 0
	for i := 0; i < steps; i++ {
		swap := box[i]
		c := swap + last + seed[k]
		k = (k + 1) % len(seed)

		box[i] = box[c]
		box[c] = swap
		last = c
	}

	return box
}

// keystream expands the box into the 256 byte period of the payload
// keystream. Entry j is XORed into every payload byte whose 1-based
// position is j modulo 256.
func (b *KeyBox) keystream() (ks [256]byte) {
	for j := range ks {
		x := b[j]
		ks[j] = b[x+b[x+byte(j)]]
	}

	return ks
}

// XORKeyStream XORs src with the keystream starting at payload offset and
// stores the result in dst. dst and src may overlap entirely. Applying it
// twice with the same offset restores the input.
func (b *KeyBox) XORKeyStream(dst, src []byte, offset int64) {
	ks := b.keystream()
	xorKeyStream(&ks, dst, src, offset)
}

func xorKeyStream(ks *[256]byte, dst, src []byte, offset int64) {
	_ = dst[:len(src)]
	for i, c := range src {
		dst[i] = c ^ ks[byte(offset+int64(i)+1)]
	}
}
