// Package trie implements the hex-nibble Merkle trie of spec §4.1: the
// account trie and per-account storage tries that make up SlimChain's
// world state, plus the partial-trie / read-proof machinery miners use to
// apply a storage node's proposals without holding full state.
package trie

import "github.com/slimchain/slimchain/internal/types"

// Node is any of the trie's four node shapes. Unlike a typical in-heap
// tree, children are addressed by content hash (hashNode) until something
// actually needs to read them — the "content-addressed nodes in an arena"
// model from spec §9: parents carry child hashes, not live pointers, so
// structural sharing across roots costs nothing to represent.
type Node interface {
	isNode()
}

// hashNode is an unresolved reference to a node identified by its
// canonical hash. It is also exactly the shape of an "opaque hash stub" in
// a partial trie (spec glossary): a child the local structure knows the
// hash of but does not (yet) hold the bytes for.
type hashNode types.Hash

// valueNode is a terminal leaf value, held inline as the payload of a leaf
// shortNode or as a fullNode's Val. A valueNode sitting directly in a
// fullNode child slot is hashed and stored as a leaf shortNode with an
// empty key.
type valueNode []byte

// shortNode represents both of spec §4.1's "leaf" and "extension" node
// kinds, distinguished by whether Val is a valueNode (leaf) or another
// node (extension) — the same unification go-ethereum's trie package uses,
// which halves the node-type bookkeeping without changing the shape the
// spec describes.
type shortNode struct {
	Key []byte // remaining nibble path
	Val Node
}

// fullNode is spec §4.1's 16-ary branch node, with an optional value for
// a key that terminates exactly at this depth.
type fullNode struct {
	Children [16]Node
	Val      Node // nil or valueNode
}

func (hashNode) isNode()  {}
func (valueNode) isNode() {}
func (*shortNode) isNode() {}
func (*fullNode) isNode()  {}

func (n *shortNode) isLeaf() bool {
	_, ok := n.Val.(valueNode)
	return ok
}

func (n *fullNode) copy() *fullNode {
	cp := *n
	return &cp
}
