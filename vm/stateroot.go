package vm

import (
	"encoding/binary"
	"sort"
)

// canonicalStateBytes serializes a context's caller-visible state into an
// order-invariant byte sequence for hash.StateHash, per spec.md §8 property
// 4 ("state root is independent of map iteration/insertion order"). Storage
// entries are sorted by key; logs keep their emission order since they are
// already a sequence, not a set. Memory is deliberately excluded: spec.md
// §4.1 defines state_root over exactly (sorted storage, logs).
func canonicalStateBytes(ctx *ExecutionContext) [][]byte {
	var parts [][]byte

	keys := make([][32]byte, 0, len(ctx.Storage))
	for k := range ctx.Storage {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		return lessBytes(keys[i][:], keys[j][:])
	})
	for _, k := range keys {
		parts = append(parts, k[:])
		parts = append(parts, encodeValue(ctx.Storage[k]))
	}

	for _, l := range ctx.Logs {
		parts = append(parts, l.Address[:])
		for _, t := range l.Topics {
			parts = append(parts, t[:])
		}
		parts = append(parts, l.Data)
	}

	return parts
}

func lessBytes(a, b []byte) bool {
	for i := 0; i < len(a) && i < len(b); i++ {
		if a[i] != b[i] {
			return a[i] < b[i]
		}
	}
	return len(a) < len(b)
}

func encodeUint64(v uint64) []byte {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	return b[:]
}

// encodeValue produces a deterministic byte encoding of a Value's active
// variant, tagged by Kind so distinct variants never collide, per spec.md
// §6's canonical-encoding requirement.
func encodeValue(v Value) []byte {
	out := []byte{byte(v.Kind)}
	switch v.Kind {
	case KindInt:
		out = append(out, encodeUint64(uint64(v.Int))...)
	case KindBool:
		if v.Bool {
			out = append(out, 1)
		} else {
			out = append(out, 0)
		}
	case KindBytes, KindAddress:
		out = append(out, v.Bytes...)
	case KindContract:
		if v.Contract != nil {
			out = append(out, v.Contract.Code...)
			out = append(out, encodeUint64(v.Contract.Balance)...)
		}
	}
	return out
}
