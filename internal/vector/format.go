// Package vector implements the custom .cvvi binary vector index:
// mmap-loadable rows of (content_hash, source_id, agent_enum, timestamp,
// vec_offset) plus a contiguous vector slab, scanned exactly for top-k
// cosine similarity. Interface shapes (Search/Clear,
// Embedder) are grounded on kxddry-rag-text-search's
// domain.VectorStore/Embedder, re-expressed over this on-disk format
// instead of an in-memory slice.
package vector

import (
	"encoding/binary"
	"fmt"
	"hash/crc32"
)

// Quantization selects the on-disk width of each vector component.
type Quantization uint8

const (
	QuantFP32 Quantization = 0
	QuantFP16 Quantization = 1
)

const (
	magic         = "CVVI"
	formatVersion = uint8(1)

	headerSize = 4 + 1 + 1 + 2 + 8 + 4 // magic, version, quant, dim, count, header crc
	footerSize = 4                     // trailing CRC-32 over the vector slab
)

// Header is the fixed 20-byte .cvvi header, verified on load.
type Header struct {
	Version      uint8
	Quantization Quantization
	Dimension    uint16
	Count        uint64
}

// encodeHeader writes the header and returns its bytes including the
// trailing header CRC-32, per the bit-exact layout: magic(4) version(1)
// quant(1) dim(2,LE) count(8,LE) crc(4).
func encodeHeader(h Header) []byte {
	buf := make([]byte, headerSize)
	copy(buf[0:4], magic)
	buf[4] = h.Version
	buf[5] = uint8(h.Quantization)
	binary.LittleEndian.PutUint16(buf[6:8], h.Dimension)
	binary.LittleEndian.PutUint64(buf[8:16], h.Count)
	crc := crc32.ChecksumIEEE(buf[0:16])
	binary.LittleEndian.PutUint32(buf[16:20], crc)
	return buf
}

func decodeHeader(buf []byte) (Header, error) {
	if len(buf) < headerSize {
		return Header{}, fmt.Errorf("vector index: truncated header (%d bytes)", len(buf))
	}
	if string(buf[0:4]) != magic {
		return Header{}, fmt.Errorf("vector index: bad magic %q", buf[0:4])
	}
	wantCRC := binary.LittleEndian.Uint32(buf[16:20])
	gotCRC := crc32.ChecksumIEEE(buf[0:16])
	if wantCRC != gotCRC {
		return Header{}, fmt.Errorf("vector index: header CRC mismatch (corrupt)")
	}
	h := Header{
		Version:      buf[4],
		Quantization: Quantization(buf[5]),
		Dimension:    binary.LittleEndian.Uint16(buf[6:8]),
		Count:        binary.LittleEndian.Uint64(buf[8:16]),
	}
	if h.Version != formatVersion {
		return Header{}, fmt.Errorf("vector index: unsupported version %d", h.Version)
	}
	return h, nil
}

// rowRecord is the fixed-size per-row entry preceding the vector slab.
type rowRecord struct {
	ContentHash [32]byte
	SourceID    uint64 // varint-encoded on disk, fixed-width decoded here
	AgentEnum   uint8
	Timestamp   int64
	VecOffset   uint64
}

// encodeRow writes one row record. SourceID is varint-encoded per the
// spec; the remaining fields are fixed-width LE, matching the row table
// layout `{content_hash[32], source_id_varint, agent_enum[1], timestamp[8
// LE], vec_offset[8 LE]}`.
func encodeRow(r rowRecord) []byte {
	var varintBuf [binary.MaxVarintLen64]byte
	n := binary.PutUvarint(varintBuf[:], r.SourceID)

	buf := make([]byte, 32+n+1+8+8)
	copy(buf[0:32], r.ContentHash[:])
	off := 32
	copy(buf[off:off+n], varintBuf[:n])
	off += n
	buf[off] = r.AgentEnum
	off++
	binary.LittleEndian.PutUint64(buf[off:off+8], uint64(r.Timestamp))
	off += 8
	binary.LittleEndian.PutUint64(buf[off:off+8], r.VecOffset)
	off += 8
	return buf[:off]
}

// decodeRow reads one row record starting at buf[0], returning the record
// and the number of bytes consumed (variable, due to the source_id varint).
func decodeRow(buf []byte) (rowRecord, int, error) {
	if len(buf) < 32+1+1+8+8 {
		return rowRecord{}, 0, fmt.Errorf("vector index: truncated row")
	}
	var r rowRecord
	copy(r.ContentHash[:], buf[0:32])
	off := 32
	sourceID, n := binary.Uvarint(buf[off:])
	if n <= 0 {
		return rowRecord{}, 0, fmt.Errorf("vector index: bad source_id varint")
	}
	r.SourceID = sourceID
	off += n
	r.AgentEnum = buf[off]
	off++
	r.Timestamp = int64(binary.LittleEndian.Uint64(buf[off : off+8]))
	off += 8
	r.VecOffset = binary.LittleEndian.Uint64(buf[off : off+8])
	off += 8
	return r, off, nil
}

// bytesPerComponent returns the on-disk width of one vector component for
// the given quantization.
func bytesPerComponent(q Quantization) int {
	if q == QuantFP16 {
		return 2
	}
	return 4
}
