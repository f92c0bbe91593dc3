package section

import (
	"bytes"
	"io"

	pk "github.com/Tnze/go-mc/net/packet"
)

// WriteTo writes the section in chunk data layout:
//
//	u8 bits | varint paletteLen | paletteLen x varint id | varint wordCount |
//	wordCount x i64 (big-endian) | block light | sky light
//
// Direct mode writes a palette length of zero.
func (s *Section) WriteTo(w io.Writer) (int64, error) {
	var n int64
	put := func(f io.WriterTo) error {
		nn, err := f.WriteTo(w)
		n += nn
		return err
	}

	if err := put(pk.UnsignedByte(s.bits)); err != nil {
		return n, err
	}
	if s.Direct() {
		if err := put(pk.VarInt(0)); err != nil {
			return n, err
		}
	} else {
		if err := put(pk.VarInt(len(s.palette))); err != nil {
			return n, err
		}
		for _, e := range s.palette {
			if err := put(pk.VarInt(e.ID)); err != nil {
				return n, err
			}
		}
	}

	if err := put(pk.VarInt(len(s.words))); err != nil {
		return n, err
	}
	for _, word := range s.words {
		if err := put(pk.Long(int64(word))); err != nil {
			return n, err
		}
	}

	for _, light := range [][]byte{s.blockLight, s.skyLight} {
		nn, err := w.Write(light)
		n += int64(nn)
		if err != nil {
			return n, err
		}
	}
	return n, nil
}

// Bytes returns the serialized section.
func (s *Section) Bytes() []byte {
	var buf bytes.Buffer
	buf.Grow(1 + 5 + len(s.palette)*2 + 5 + len(s.words)*8 + 2*LightLen)
	_, _ = s.WriteTo(&buf)
	return buf.Bytes()
}
