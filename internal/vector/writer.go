package vector

import (
	"bufio"
	"fmt"
	"hash/crc32"
	"io"
	"math"
	"os"
)

// Entry is one vector plus its row metadata, as supplied by the embedding
// pipeline before a Write.
type Entry struct {
	ContentHash [32]byte
	SourceID    uint64
	AgentEnum   uint8
	Timestamp   int64
	Vector      []float32
}

// Write encodes entries as a complete .cvvi file at path: header, row
// table, vector slab, trailing slab CRC-32. Entries are written in the
// order given; callers that need a stable on-disk order should sort
// beforehand (e.g. by ContentHash) so rebuilds are byte-identical.
func Write(path string, quant Quantization, dimension int, entries []Entry) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create vector index: %w", err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)

	header := encodeHeader(Header{
		Version:      formatVersion,
		Quantization: quant,
		Dimension:    uint16(dimension),
		Count:        uint64(len(entries)),
	})
	if _, err := w.Write(header); err != nil {
		return err
	}

	compWidth := bytesPerComponent(quant)
	for i, e := range entries {
		if len(e.Vector) != dimension {
			return fmt.Errorf("entry %d: vector dimension %d != declared %d", i, len(e.Vector), dimension)
		}
		row := encodeRow(rowRecord{
			ContentHash: e.ContentHash,
			SourceID:    e.SourceID,
			AgentEnum:   e.AgentEnum,
			Timestamp:   e.Timestamp,
			VecOffset:   uint64(i * dimension * compWidth),
		})
		if _, err := w.Write(row); err != nil {
			return err
		}
	}

	slabCRC := crc32.NewIEEE()
	slabWriter := io.MultiWriter(w, slabCRC)
	for _, e := range entries {
		if err := writeVector(slabWriter, e.Vector, quant); err != nil {
			return err
		}
	}

	var footer [footerSize]byte
	putUint32(footer[:], slabCRC.Sum32())
	if _, err := w.Write(footer[:]); err != nil {
		return err
	}

	return w.Flush()
}

func writeVector(w interface{ Write([]byte) (int, error) }, vec []float32, quant Quantization) error {
	if quant == QuantFP16 {
		buf := make([]byte, len(vec)*2)
		for i, v := range vec {
			putUint16(buf[i*2:], float32ToFP16(v))
		}
		_, err := w.Write(buf)
		return err
	}
	buf := make([]byte, len(vec)*4)
	for i, v := range vec {
		putUint32(buf[i*4:], math.Float32bits(v))
	}
	_, err := w.Write(buf)
	return err
}

func putUint32(b []byte, v uint32) {
	b[0] = byte(v)
	b[1] = byte(v >> 8)
	b[2] = byte(v >> 16)
	b[3] = byte(v >> 24)
}

func putUint16(b []byte, v uint16) {
	b[0] = byte(v)
	b[1] = byte(v >> 8)
}

// float32ToFP16 converts a float32 to IEEE 754 half precision, truncating
// mantissa precision; used only for the opt-in fp16 quantization mode.
func float32ToFP16(f float32) uint16 {
	bits := math.Float32bits(f)
	sign := uint16((bits >> 16) & 0x8000)
	exp := int32((bits>>23)&0xff) - 127 + 15
	mant := bits & 0x7fffff

	switch {
	case exp <= 0:
		return sign
	case exp >= 0x1f:
		return sign | 0x7c00
	default:
		return sign | uint16(exp<<10) | uint16(mant>>13)
	}
}

// fp16ToFloat32 converts an IEEE 754 half-precision value back to float32.
func fp16ToFloat32(h uint16) float32 {
	sign := uint32(h&0x8000) << 16
	exp := uint32(h>>10) & 0x1f
	mant := uint32(h & 0x3ff)

	switch exp {
	case 0:
		if mant == 0 {
			return math.Float32frombits(sign)
		}
		exp = 1
	case 0x1f:
		return math.Float32frombits(sign | 0x7f800000 | (mant << 13))
	}
	bits := sign | ((exp - 15 + 127) << 23) | (mant << 13)
	return math.Float32frombits(bits)
}
