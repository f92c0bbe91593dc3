package section

import "fmt"

const wordBits = 64

// wordCount is the number of 64-bit words backing a section at the given width.
func wordCount(bits int) int {
	n := Volume * bits
	if n%wordBits != 0 {
		panic(fmt.Sprintf("section: width %d does not pack into whole words", bits))
	}
	return n / wordBits
}

// readBits decodes width bits starting at bit bitStart. A value may straddle
// two adjacent words; the low part lives at the top of the first word.
func readBits(words []uint64, bitStart, width int) uint64 {
	mask := uint64(1)<<uint(width) - 1
	start := bitStart / wordBits
	offset := uint(bitStart % wordBits)
	end := (bitStart + width - 1) / wordBits

	v := words[start] >> offset
	if start != end {
		v |= words[end] << (wordBits - offset)
	}
	return v & mask
}

// writeBits stores v in width bits starting at bitStart, clearing whatever was
// there before.
func writeBits(words []uint64, bitStart, width int, v uint64) {
	mask := uint64(1)<<uint(width) - 1
	if v&^mask != 0 {
		panic(fmt.Sprintf("section: value %d does not fit in %d bits", v, width))
	}
	start := bitStart / wordBits
	offset := uint(bitStart % wordBits)
	end := (bitStart + width - 1) / wordBits

	words[start] = words[start]&^(mask<<offset) | v<<offset
	if start != end {
		shift := wordBits - offset
		words[end] = words[end]&^(mask>>shift) | v>>shift
	}
}
