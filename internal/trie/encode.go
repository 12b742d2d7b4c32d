package trie

import (
	"encoding/binary"
	"fmt"

	"github.com/slimchain/slimchain/internal/types"
)

// EmptyRoot is the canonical root hash of a trie with no entries — the
// same sentinel value an account with no storage carries as its
// storage_root (spec §3's "empty storage root sentinel").
var EmptyRoot = types.EmptyStorageRoot

const (
	tagShort byte = 0x53
	tagFull  byte = 0x46
)

// encodeShort produces the canonical bytes for a shortNode whose child
// reference (leaf value or extension child hash) has already been
// resolved to concrete bytes. This, hashed, is the node's identity —
// spec invariant I2: rehashing the same (key, payload) always yields the
// same bytes.
func encodeShort(key []byte, terminator bool, payload []byte) []byte {
	hp := hexPrefixEncode(key, terminator)
	buf := make([]byte, 0, 1+binary.MaxVarintLen64+len(hp)+binary.MaxVarintLen64+len(payload))
	buf = append(buf, tagShort)
	buf = appendUvarintBytes(buf, hp)
	if terminator {
		buf = appendUvarintBytes(buf, payload)
	} else {
		buf = append(buf, payload...) // fixed 32-byte child hash
	}
	return buf
}

// encodeFull produces the canonical bytes for a fullNode whose children
// have already been resolved to hashes (or absent).
func encodeFull(children [16][]byte, val []byte) []byte {
	buf := make([]byte, 0, 1+2+16*types.HashLength+1+len(val))
	buf = append(buf, tagFull)
	var present uint16
	for i, c := range children {
		if c != nil {
			present |= 1 << uint(i)
		}
	}
	buf = append(buf, byte(present), byte(present>>8))
	for _, c := range children {
		if c != nil {
			buf = append(buf, c...)
		}
	}
	if val != nil {
		buf = append(buf, 1)
		buf = appendUvarintBytes(buf, val)
	} else {
		buf = append(buf, 0)
	}
	return buf
}

func appendUvarintBytes(buf, b []byte) []byte {
	var lb [binary.MaxVarintLen64]byte
	n := binary.PutUvarint(lb[:], uint64(len(b)))
	buf = append(buf, lb[:n]...)
	return append(buf, b...)
}

// decodeNode parses the bytes produced by encodeShort/encodeFull back into
// a Node whose children are hashNode stubs (or valueNode for a leaf),
// exactly mirroring the encoding's shape.
func decodeNode(enc []byte) (Node, error) {
	if len(enc) == 0 {
		return nil, fmt.Errorf("trie: empty node encoding")
	}
	switch enc[0] {
	case tagShort:
		hp, rest, err := readUvarintBytes(enc[1:])
		if err != nil {
			return nil, err
		}
		key, terminator := hexPrefixDecode(hp)
		if terminator {
			val, _, err := readUvarintBytes(rest)
			if err != nil {
				return nil, err
			}
			return &shortNode{Key: key, Val: valueNode(val)}, nil
		}
		if len(rest) != types.HashLength {
			return nil, fmt.Errorf("trie: malformed extension node, child ref len %d", len(rest))
		}
		return &shortNode{Key: key, Val: hashNode(types.BytesToHash(rest))}, nil
	case tagFull:
		if len(enc) < 3 {
			return nil, fmt.Errorf("trie: truncated full node")
		}
		present := uint16(enc[1]) | uint16(enc[2])<<8
		off := 3
		var n fullNode
		for i := 0; i < 16; i++ {
			if present&(1<<uint(i)) == 0 {
				continue
			}
			if off+types.HashLength > len(enc) {
				return nil, fmt.Errorf("trie: truncated full node child %d", i)
			}
			n.Children[i] = hashNode(types.BytesToHash(enc[off : off+types.HashLength]))
			off += types.HashLength
		}
		if off >= len(enc) {
			return nil, fmt.Errorf("trie: truncated full node value flag")
		}
		hasVal := enc[off] == 1
		off++
		if hasVal {
			val, _, err := readUvarintBytes(enc[off:])
			if err != nil {
				return nil, err
			}
			n.Val = valueNode(val)
		}
		return &n, nil
	default:
		return nil, fmt.Errorf("trie: unknown node tag 0x%x", enc[0])
	}
}

func readUvarintBytes(b []byte) (data, rest []byte, err error) {
	l, n := binary.Uvarint(b)
	if n <= 0 {
		return nil, nil, fmt.Errorf("trie: malformed length prefix")
	}
	if n+int(l) > len(b) {
		return nil, nil, fmt.Errorf("trie: length prefix overruns buffer")
	}
	return b[n : n+int(l)], b[n+int(l):], nil
}
