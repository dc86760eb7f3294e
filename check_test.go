package bptree

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// verifyInvariants walks the whole tree and checks every structural invariant
// that must hold when no latches are held: key ordering, separator fences,
// uniform leaf depth, parent back-pointers, occupancy bounds, and the leaf
// chain.
func verifyInvariants[K Key](t *testing.T, tr *Tree[K]) {
	t.Helper()

	if tr.root == nil {
		require.Nil(t, tr.headLeaf, "empty tree must have no head leaf")
		return
	}

	minKeys := (tr.order+2)/2 - 1
	leafDepth := -1
	var leaves []*node[K]

	var walk func(n *node[K], depth int, lo, hi *K)
	walk = func(n *node[K], depth int, lo, hi *K) {
		require.Equal(t, n.size, len(n.keys), "size does not match key count")

		for i := 1; i < n.size; i++ {
			require.True(t, n.keys[i-1] < n.keys[i], "keys not strictly ascending: %v before %v", n.keys[i-1], n.keys[i])
		}
		for i := 0; i < n.size; i++ {
			if lo != nil {
				require.False(t, n.keys[i] < *lo, "key %v below separator fence %v", n.keys[i], *lo)
			}
			if hi != nil {
				require.True(t, n.keys[i] < *hi, "key %v not below separator fence %v", n.keys[i], *hi)
			}
		}

		if n != tr.root {
			require.NotNil(t, n.parent, "non-root node has no parent")
			require.GreaterOrEqual(t, n.size, minKeys, "non-root node below minimum occupancy")
			require.LessOrEqual(t, n.size, tr.order, "node above maximum occupancy")
		} else if !n.leaf {
			require.GreaterOrEqual(t, n.size, 1, "internal root must hold a separator")
		}

		if n.leaf {
			require.Equal(t, n.size, len(n.values), "leaf size does not match value count")
			if leafDepth == -1 {
				leafDepth = depth
			}
			require.Equal(t, leafDepth, depth, "leaves at different depths")
			leaves = append(leaves, n)
			return
		}

		require.Equal(t, n.size+1, len(n.children), "children count must be key count + 1")
		for i, c := range n.children {
			require.Same(t, n, c.parent, "child's parent pointer does not match")
			clo, chi := lo, hi
			if i > 0 {
				clo = &n.keys[i-1]
			}
			if i < n.size {
				chi = &n.keys[i]
			}
			walk(c, depth+1, clo, chi)
		}
	}
	walk(tr.root, 0, nil, nil)

	// The leftmost leaf is the head leaf, and the chain threads the leaves in
	// tree order, doubly linked.
	require.Same(t, leaves[0], tr.headLeaf, "head leaf is not the leftmost leaf")
	require.Nil(t, leaves[0].prev)
	for i, leaf := range leaves {
		if i+1 < len(leaves) {
			require.Same(t, leaves[i+1], leaf.next, "leaf chain next link broken")
			require.Same(t, leaf, leaves[i+1].prev, "leaf chain prev link broken")
		} else {
			require.Nil(t, leaf.next, "rightmost leaf must end the chain")
		}
	}
}

// chainPairs walks the leaf chain from the head and returns every stored pair
// in order.
func chainPairs[K Key](tr *Tree[K]) []Pair[K] {
	var pairs []Pair[K]
	for leaf := tr.headLeaf; leaf != nil; leaf = leaf.next {
		for i := 0; i < leaf.size; i++ {
			pairs = append(pairs, Pair[K]{Key: leaf.keys[i], Value: leaf.values[i]})
		}
	}
	return pairs
}

// leafKeys returns the per-leaf key slices, left to right.
func leafKeys[K Key](tr *Tree[K]) [][]K {
	var out [][]K
	for leaf := tr.headLeaf; leaf != nil; leaf = leaf.next {
		out = append(out, append([]K(nil), leaf.keys[:leaf.size]...))
	}
	return out
}
