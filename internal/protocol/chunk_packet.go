package protocol

import (
	"bytes"
	"fmt"
	"io"

	pk "github.com/Tnze/go-mc/net/packet"
	"github.com/klauspost/compress/zlib"
)

// ChunkDataPacketID is the clientbound Chunk Data packet of protocol 340.
const ChunkDataPacketID = 0x20

// maxFrameData bounds the declared uncompressed length of a frame.
const maxFrameData = 8 << 20

// ChunkDataPacket builds a full-column Chunk Data packet (id and body, no
// length prefix): VarInt id | Int x | Int z | Bool true | VarInt mask |
// VarInt size | data | VarInt 0 block entities.
func ChunkDataPacket(cx, cz int32, mask uint16, data []byte) []byte {
	var buf bytes.Buffer
	fields := []io.WriterTo{
		pk.VarInt(ChunkDataPacketID),
		pk.Int(cx),
		pk.Int(cz),
		pk.Boolean(true),
		pk.VarInt(int32(mask)),
		pk.ByteArray(data),
		pk.VarInt(0),
	}
	for _, f := range fields {
		// bytes.Buffer writes do not fail.
		_, _ = f.WriteTo(&buf)
	}
	return buf.Bytes()
}

// EncodeFrame length-prefixes a packet. With compression enabled the frame is
// VarInt length | VarInt dataLength | body, where body is zlib'd and
// dataLength is the uncompressed size when the packet reaches threshold, and
// dataLength is 0 with a raw body otherwise.
func EncodeFrame(packet []byte, compress bool, threshold int) ([]byte, error) {
	var body bytes.Buffer
	if compress {
		if len(packet) >= threshold {
			_, _ = pk.VarInt(int32(len(packet))).WriteTo(&body)
			zw := zlib.NewWriter(&body)
			if _, err := zw.Write(packet); err != nil {
				return nil, err
			}
			if err := zw.Close(); err != nil {
				return nil, err
			}
		} else {
			_, _ = pk.VarInt(0).WriteTo(&body)
			body.Write(packet)
		}
	} else {
		body.Write(packet)
	}

	var out bytes.Buffer
	_, _ = pk.VarInt(int32(body.Len())).WriteTo(&out)
	out.Write(body.Bytes())
	return out.Bytes(), nil
}

// DecodeFrame reverses EncodeFrame and returns the packet id and the payload
// that follows it.
func DecodeFrame(frame []byte, compress bool) (id int32, payload []byte, err error) {
	r := bytes.NewReader(frame)
	var length pk.VarInt
	if _, err := length.ReadFrom(r); err != nil {
		return 0, nil, fmt.Errorf("frame length: %w", err)
	}
	if int(length) != r.Len() {
		return 0, nil, fmt.Errorf("frame length %d, have %d bytes", length, r.Len())
	}

	packet := frame[len(frame)-r.Len():]
	if compress {
		var dataLen pk.VarInt
		if _, err := dataLen.ReadFrom(r); err != nil {
			return 0, nil, fmt.Errorf("data length: %w", err)
		}
		rest := frame[len(frame)-r.Len():]
		switch {
		case dataLen == 0:
			packet = rest
		case dataLen < 0 || dataLen > maxFrameData:
			return 0, nil, fmt.Errorf("data length %d out of range", dataLen)
		default:
			zr, err := zlib.NewReader(bytes.NewReader(rest))
			if err != nil {
				return 0, nil, err
			}
			defer zr.Close()
			packet = make([]byte, dataLen)
			if _, err := io.ReadFull(zr, packet); err != nil {
				return 0, nil, fmt.Errorf("inflate: %w", err)
			}
		}
	}

	pr := bytes.NewReader(packet)
	var pid pk.VarInt
	if _, err := pid.ReadFrom(pr); err != nil {
		return 0, nil, fmt.Errorf("packet id: %w", err)
	}
	return int32(pid), packet[len(packet)-pr.Len():], nil
}
