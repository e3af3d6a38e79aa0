package aggregate

import (
	"bytes"
	"encoding/binary"
	"sort"

	"github.com/pierrec/lz4/v4"
)

// column is an LZ4-compressed byte column plus the raw length needed to size
// the decompression buffer. Compressed is false when lz4 reported the data
// as incompressible (CompressBlock's documented written=0 case); Data then
// holds the raw bytes unmodified, per the teacher's
// CompressUInt32Slice/DecompressUInt32Slice pattern.
type column struct {
	Data       []byte
	RawLen     int
	Compressed bool
}

func compressColumn(raw []byte) column {
	if len(raw) == 0 {
		return column{}
	}

	compressed := make([]byte, lz4.CompressBlockBound(len(raw)))

	n, err := lz4.CompressBlock(raw, compressed, nil)
	if err != nil || n == 0 {
		return column{Data: append([]byte(nil), raw...), RawLen: len(raw)}
	}

	return column{Data: compressed[:n], RawLen: len(raw), Compressed: true}
}

func (c column) decompress() []byte {
	if c.RawLen == 0 {
		return nil
	}

	if !c.Compressed {
		return c.Data
	}

	out := make([]byte, c.RawLen)

	n, err := lz4.UncompressBlock(c.Data, out)
	if err != nil {
		return nil
	}

	return out[:n]
}

// Hibernated is a retired AggregationDB trie, deinterleaved into per-field
// columns and LZ4-compressed independently, grounded on the teacher's
// Allocator.Hibernate deinterleaving (Key, Value, left, parent, right,
// color) into separate columns before compressing each (internal/rbtree's
// lz4.go): like-typed, often-repetitive data compresses far better than the
// interleaved struct-of-leaves layout. This gives retired per-thread DBs
// "hibernation" semantics between flush cycles instead of sitting on the
// heap unused (spec's Clear just says "swap out... retired... DBs are
// unlinked and deleted"; this rewrite additionally compresses what would
// otherwise be deleted, so a flush sink can still recover it).
type Hibernated struct {
	LeafCount   int
	KernelAttrs []uint32

	keyLens column
	keys    column
	counts  column

	kernelHasValue column
	kernelMin      column
	kernelMax      column
	kernelSum      column
	kernelCount    column
}

func hibernate(leaves []leaf) *Hibernated {
	attrSet := make(map[uint32]bool)

	for _, lf := range leaves {
		for attr := range lf.kernels {
			attrSet[attr] = true
		}
	}

	attrs := make([]uint32, 0, len(attrSet))
	for attr := range attrSet {
		attrs = append(attrs, attr)
	}

	sort.Slice(attrs, func(i, j int) bool { return attrs[i] < attrs[j] })

	var keyLens bytes.Buffer

	var keys bytes.Buffer

	var counts bytes.Buffer

	for _, lf := range leaves {
		_ = binary.Write(&keyLens, binary.LittleEndian, uint32(len(lf.key)))
		keys.Write(lf.key)
		_ = binary.Write(&counts, binary.LittleEndian, lf.count)
	}

	var hasValue bytes.Buffer

	var mins, maxs, sums bytes.Buffer

	var kcounts bytes.Buffer

	for _, attr := range attrs {
		for _, lf := range leaves {
			k, ok := lf.kernels[attr]
			if !ok {
				hasValue.WriteByte(0)
				_ = binary.Write(&mins, binary.LittleEndian, float64(0))
				_ = binary.Write(&maxs, binary.LittleEndian, float64(0))
				_ = binary.Write(&sums, binary.LittleEndian, float64(0))
				_ = binary.Write(&kcounts, binary.LittleEndian, uint64(0))

				continue
			}

			hasValue.WriteByte(boolToByte(k.hasValue))
			_ = binary.Write(&mins, binary.LittleEndian, k.min)
			_ = binary.Write(&maxs, binary.LittleEndian, k.max)
			_ = binary.Write(&sums, binary.LittleEndian, k.sum)
			_ = binary.Write(&kcounts, binary.LittleEndian, k.count)
		}
	}

	return &Hibernated{
		LeafCount:      len(leaves),
		KernelAttrs:    attrs,
		keyLens:        compressColumn(keyLens.Bytes()),
		keys:           compressColumn(keys.Bytes()),
		counts:         compressColumn(counts.Bytes()),
		kernelHasValue: compressColumn(hasValue.Bytes()),
		kernelMin:      compressColumn(mins.Bytes()),
		kernelMax:      compressColumn(maxs.Bytes()),
		kernelSum:      compressColumn(sums.Bytes()),
		kernelCount:    compressColumn(kcounts.Bytes()),
	}
}

func boolToByte(b bool) byte {
	if b {
		return 1
	}

	return 0
}

// HibernatedLeaf is one leaf recovered from a Hibernated snapshot via
// Unhibernate.
type HibernatedLeaf struct {
	Key     []byte
	Count   uint64
	Kernels map[uint32]Summary
}

// Unhibernate decompresses h back into its constituent leaves. It is the
// inverse of hibernate and is exercised by tests; normal flush/clear
// operation never needs to call it, since Flush
// always runs before Clear in the documented lifecycle.
func (h *Hibernated) Unhibernate() []HibernatedLeaf {
	if h.LeafCount == 0 {
		return nil
	}

	keyLens := decodeUint32Column(h.keyLens.decompress(), h.LeafCount)
	keyBytes := h.keys.decompress()
	counts := decodeUint64Column(h.counts.decompress(), h.LeafCount)

	leaves := make([]HibernatedLeaf, h.LeafCount)

	offset := 0

	for i := range h.LeafCount {
		leaves[i].Key = append([]byte(nil), keyBytes[offset:offset+int(keyLens[i])]...)
		offset += int(keyLens[i])
		leaves[i].Count = counts[i]
		leaves[i].Kernels = make(map[uint32]Summary)
	}

	hasValue := h.kernelHasValue.decompress()
	mins := decodeFloat64Column(h.kernelMin.decompress(), h.LeafCount*len(h.KernelAttrs))
	maxs := decodeFloat64Column(h.kernelMax.decompress(), h.LeafCount*len(h.KernelAttrs))
	sums := decodeFloat64Column(h.kernelSum.decompress(), h.LeafCount*len(h.KernelAttrs))
	kcounts := decodeUint64Column(h.kernelCount.decompress(), h.LeafCount*len(h.KernelAttrs))

	for ai, attr := range h.KernelAttrs {
		for li := range h.LeafCount {
			idx := ai*h.LeafCount + li
			if hasValue[idx] == 0 {
				continue
			}

			leaves[li].Kernels[attr] = Summary{
				Min:   mins[idx],
				Max:   maxs[idx],
				Sum:   sums[idx],
				Count: kcounts[idx],
				Avg:   divOrZero(sums[idx], kcounts[idx]),
			}
		}
	}

	return leaves
}

func divOrZero(sum float64, count uint64) float64 {
	if count == 0 {
		return 0
	}

	return sum / float64(count)
}

func decodeUint32Column(raw []byte, n int) []uint32 {
	out := make([]uint32, n)
	_ = binary.Read(bytes.NewReader(raw), binary.LittleEndian, out)

	return out
}

func decodeUint64Column(raw []byte, n int) []uint64 {
	out := make([]uint64, n)
	_ = binary.Read(bytes.NewReader(raw), binary.LittleEndian, out)

	return out
}

func decodeFloat64Column(raw []byte, n int) []float64 {
	out := make([]float64, n)
	_ = binary.Read(bytes.NewReader(raw), binary.LittleEndian, out)

	return out
}
