package world

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
)

// stateDigest hashes the tick and every loaded column digest in key order.
func (w *World) stateDigest(nowTick uint64) string {
	h := sha256.New()
	var tmp [8]byte

	binary.LittleEndian.PutUint64(tmp[:], nowTick)
	h.Write(tmp[:])
	for _, k := range w.vol.LoadedChunkKeys() {
		binary.LittleEndian.PutUint64(tmp[:], uint64(int64(k.CX)))
		h.Write(tmp[:])
		binary.LittleEndian.PutUint64(tmp[:], uint64(int64(k.CZ)))
		h.Write(tmp[:])
		d := w.vol.Column(k).Digest()
		h.Write(d[:])
	}
	return hex.EncodeToString(h.Sum(nil))
}
