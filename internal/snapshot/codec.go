package snapshot

import (
	"encoding/binary"
	"errors"

	"github.com/hpctrace/caliper/pkg/calitree"
	"github.com/hpctrace/caliper/pkg/variant"
)

// ErrTruncated is returned by Decode when data ends before a complete
// CompressedSnapshotRecord has been read.
var ErrTruncated = errors.New("snapshot: truncated compressed record")

// Encode serializes rec into the CompressedSnapshotRecord wire format (spec
// §6): a LEB128 toc, the node IDs, and — if any of candidateAttrs are
// present among rec's immediates — a LEB128 presence bitfield followed by
// one Variant-pack per present entry, in candidateAttrs order.
//
// candidateAttrs is the caller's fixed, ordered list of immediate attribute
// IDs considered for keying (an aggregation service's configured key
// attributes, typically); rec's immediates are matched against it
// positionally, so two records sharing the same node path and the same
// candidate-attribute subset+values encode to byte-identical keys — this is
// the aggregation key's collapsing property (spec §3).
//
// Every present value is encoded with Variant.Pack (type tag included) even
// for integer/bool/id kinds the spec's prose allows encoding bare: Decode
// has no out-of-band source of an attribute's declared type, so a
// self-describing pack is used uniformly rather than require one.
func Encode(rec *Record, candidateAttrs []uint32) []byte {
	present := make([]bool, len(candidateAttrs))

	hasImm := false

	for i, cand := range candidateAttrs {
		for j := range rec.immCount {
			if rec.immAttrs[j] == cand {
				present[i] = true
				hasImm = true

				break
			}
		}
	}

	toc := uint64(2*rec.nodeCount) + boolToUint64(hasImm)

	buf := binary.AppendUvarint(nil, toc)

	for i := range rec.nodeCount {
		buf = binary.AppendUvarint(buf, uint64(rec.nodes[i]))
	}

	if !hasImm {
		return buf
	}

	var bitfield uint64
	for i, p := range present {
		if p {
			bitfield |= 1 << uint(i)
		}
	}

	buf = binary.AppendUvarint(buf, bitfield)

	for i, cand := range candidateAttrs {
		if !present[i] {
			continue
		}

		for j := range rec.immCount {
			if rec.immAttrs[j] == cand {
				buf = rec.immValues[j].Pack(buf)

				break
			}
		}
	}

	return buf
}

func boolToUint64(b bool) uint64 {
	if b {
		return 1
	}

	return 0
}

// Decode parses a CompressedSnapshotRecord encoded by Encode with the same
// candidateAttrs ordering. It returns the node references, a map from
// attribute ID to decoded value for whichever candidateAttrs were present,
// and the number of bytes consumed from data.
func Decode(data []byte, candidateAttrs []uint32) (nodes []calitree.NodeRef, values map[uint32]variant.Variant, consumed int, err error) {
	toc, n := binary.Uvarint(data)
	if n <= 0 {
		return nil, nil, 0, ErrTruncated
	}

	offset := n
	nNodes := int(toc / 2)
	hasImm := toc%2 == 1

	nodes = make([]calitree.NodeRef, nNodes)

	for i := range nNodes {
		id, n := binary.Uvarint(data[offset:])
		if n <= 0 {
			return nil, nil, 0, ErrTruncated
		}

		nodes[i] = calitree.NodeRef(id)
		offset += n
	}

	if !hasImm {
		return nodes, nil, offset, nil
	}

	bitfield, n := binary.Uvarint(data[offset:])
	if n <= 0 {
		return nil, nil, 0, ErrTruncated
	}

	offset += n

	values = make(map[uint32]variant.Variant)

	for i, attr := range candidateAttrs {
		if bitfield&(1<<uint(i)) == 0 {
			continue
		}

		v, used, err := variant.Unpack(data[offset:])
		if err != nil {
			return nil, nil, 0, err
		}

		values[attr] = v
		offset += used
	}

	return nodes, values, offset, nil
}
