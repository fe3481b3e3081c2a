package structdef

import (
	"encoding/binary"
	"fmt"
	"hash/crc32"

	"github.com/rawbytedev/structdef/internal/common"
	"github.com/rawbytedev/structdef/internal/compress"
)

// Frame layout:
//   "SD" | version | flags | [fingerprint u64 if flagFingerprint]
//   varint records | varint bodyLen | body | crc32 over [2:end of body]
const (
	magic0  = 'S'
	magic1  = 'D'
	Version = 1

	flagCompressed  = 0x01
	flagFingerprint = 0x02
	knownFlags      = flagCompressed | flagFingerprint

	crcSize = 4
)

// FrameInfo describes one frame of serialized content.
type FrameInfo struct {
	Version        int
	Compressed     bool
	HasFingerprint bool
	Fingerprint    uint64
	Records        int
	BodySize       int // as stored
	RawSize        int // after decompression
	Size           int // whole frame in bytes
}

type frameWriter struct {
	fingerprint uint64
	withFP      bool
	threshold   int
}

// append writes a frame holding count records whose encoding is body.
func (w frameWriter) append(dst, body []byte, count int) ([]byte, error) {
	start := len(dst)
	var flags byte
	if w.withFP {
		flags |= flagFingerprint
	}
	stored := body
	if w.threshold >= 0 && len(body) > w.threshold {
		comp, err := compress.Compress(nil, body)
		if err != nil {
			return nil, err
		}
		if len(comp) < len(body) {
			stored = comp
			flags |= flagCompressed
		}
	}
	dst = append(dst, magic0, magic1, Version, flags)
	if w.withFP {
		dst = binary.LittleEndian.AppendUint64(dst, w.fingerprint)
	}
	dst = common.WriteVarUint(dst, uint64(count))
	dst = common.WriteVarUint(dst, uint64(len(stored)))
	dst = append(dst, stored...)
	return binary.LittleEndian.AppendUint32(dst, crc32.ChecksumIEEE(dst[start+2:])), nil
}

// parseFrame reads the frame at the start of b. The returned body is
// decompressed; n is the number of bytes of b the frame used.
func parseFrame(b []byte) (info FrameInfo, body []byte, n int, err error) {
	r := &reader{b: b}
	if len(b) < 4 {
		return info, nil, 0, r.malformed("frame header", common.ErrShortBuffer)
	}
	if b[0] != magic0 || b[1] != magic1 {
		return info, nil, 0, ErrBadMagic
	}
	if b[2] != Version {
		return info, nil, 0, fmt.Errorf("%w: %d", ErrVersion, b[2])
	}
	flags := b[3]
	if flags&^knownFlags != 0 {
		return info, nil, 0, fmt.Errorf("%w: unknown flags %#x", ErrMalformed, flags)
	}
	info.Version = int(b[2])
	info.Compressed = flags&flagCompressed != 0
	info.HasFingerprint = flags&flagFingerprint != 0
	r.pos = 4
	if info.HasFingerprint {
		fp, err := r.next(8)
		if err != nil {
			return info, nil, 0, err
		}
		info.Fingerprint = binary.LittleEndian.Uint64(fp)
	}
	count, err := r.uvarint()
	if err != nil {
		return info, nil, 0, err
	}
	size, err := r.count(1)
	if err != nil {
		return info, nil, 0, err
	}
	stored, err := r.next(size)
	if err != nil {
		return info, nil, 0, err
	}
	sum, err := r.next(crcSize)
	if err != nil {
		return info, nil, 0, err
	}
	if crc32.ChecksumIEEE(b[2:r.pos-crcSize]) != binary.LittleEndian.Uint32(sum) {
		return info, nil, 0, ErrChecksum
	}

	body = stored
	if info.Compressed {
		if body, err = compress.Decompress(nil, stored, 0); err != nil {
			return info, nil, 0, fmt.Errorf("%w: %w", ErrMalformed, err)
		}
	}
	// every record needs at least one byte
	if count > uint64(len(body)) {
		return info, nil, 0, fmt.Errorf("%w: %d records in %d bytes", ErrMalformed, count, len(body))
	}
	info.Records = int(count)
	info.BodySize = size
	info.RawSize = len(body)
	info.Size = r.pos
	return info, body, r.pos, nil
}
