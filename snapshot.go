package bptree

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/cespare/xxhash/v2"
)

// Snapshot file suffixes. A snapshot is a header file carrying the tree
// metadata plus a data file carrying one record per node.
const (
	headerSuffix = ".header"
	dataSuffix   = ".data"
)

// assignNodeIDs walks the tree breadth-first and hands out ascending ids from
// 0. The head leaf, when distinct from the root, is forced to id 1 so the
// identifier space is stable regardless of tree shape.
func (t *Tree[K]) assignNodeIDs() map[*node[K]]int32 {
	ids := make(map[*node[K]]int32)
	if t.root == nil {
		return ids
	}

	next := int32(0)
	ids[t.root] = next
	next++
	if t.headLeaf != nil {
		if _, ok := ids[t.headLeaf]; !ok {
			ids[t.headLeaf] = next
			next++
		}
	}

	queue := []*node[K]{t.root}
	for len(queue) > 0 {
		n := queue[0]
		queue = queue[1:]
		if n.leaf {
			continue
		}
		for _, c := range n.children[:n.size+1] {
			if _, ok := ids[c]; !ok {
				ids[c] = next
				next++
				queue = append(queue, c)
			}
		}
	}
	return ids
}

func writeNodeRecord[K Key](w io.Writer, n *node[K], ids map[*node[K]]int32) error {
	if err := binary.Write(w, binary.LittleEndian, ids[n]); err != nil {
		return err
	}
	kind := int8(0)
	if n.leaf {
		kind = 1
	}
	if err := binary.Write(w, binary.LittleEndian, kind); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, int32(n.size)); err != nil {
		return err
	}
	for i := 0; i < n.size; i++ {
		if err := writeKey(w, n.keys[i]); err != nil {
			return err
		}
	}

	if n.leaf {
		for i := 0; i < n.size; i++ {
			if err := binary.Write(w, binary.LittleEndian, n.values[i]); err != nil {
				return err
			}
		}
		nextID := int32(-1)
		if n.next != nil {
			nextID = ids[n.next]
		}
		return binary.Write(w, binary.LittleEndian, nextID)
	}

	for i := 0; i <= n.size; i++ {
		if err := binary.Write(w, binary.LittleEndian, ids[n.children[i]]); err != nil {
			return err
		}
	}
	return nil
}

// Serialize writes the tree to base.header and base.data, excluding every
// other tree operation for the duration. All integers are little-endian.
//
// The header is four int32 fields: key type (0 int32, 1 string), order, root
// node id and head leaf id (-1 each when the tree is empty). The data file
// holds one record per node in depth-first pre-order: node id (int32), node
// kind (int8, 0 internal / 1 leaf), size (int32), the keys, then for a leaf
// the values (uint64 each) and the next leaf's id (int32, -1 for none), or
// for an internal node the size+1 child ids (int32 each).
func (t *Tree[K]) Serialize(base string) error {
	t.treeMu.Lock()
	defer t.treeMu.Unlock()

	kind, err := keyKindOf[K]()
	if err != nil {
		return err
	}

	headerFile, err := os.Create(base + headerSuffix)
	if err != nil {
		return fmt.Errorf("snapshot header: %w", err)
	}
	defer headerFile.Close()

	dataFile, err := os.Create(base + dataSuffix)
	if err != nil {
		return fmt.Errorf("snapshot data: %w", err)
	}
	defer dataFile.Close()

	ids := t.assignNodeIDs()
	rootID, headID := int32(-1), int32(-1)
	if t.root != nil {
		rootID = ids[t.root]
	}
	if t.headLeaf != nil {
		headID = ids[t.headLeaf]
	}

	hw := bufio.NewWriter(headerFile)
	for _, field := range []int32{kind, int32(t.order), rootID, headID} {
		if err := binary.Write(hw, binary.LittleEndian, field); err != nil {
			return fmt.Errorf("snapshot header: %w", err)
		}
	}
	if err := hw.Flush(); err != nil {
		return fmt.Errorf("snapshot header: %w", err)
	}

	digest := xxhash.New()
	dw := bufio.NewWriter(io.MultiWriter(dataFile, digest))

	count := 0
	if t.root != nil {
		stack := []*node[K]{t.root}
		for len(stack) > 0 {
			n := stack[len(stack)-1]
			stack = stack[:len(stack)-1]

			if err := writeNodeRecord(dw, n, ids); err != nil {
				return fmt.Errorf("snapshot data: %w", err)
			}
			count++

			// Children pushed in reverse so they pop left to right.
			if !n.leaf {
				for i := n.size; i >= 0; i-- {
					stack = append(stack, n.children[i])
				}
			}
		}
	}
	if err := dw.Flush(); err != nil {
		return fmt.Errorf("snapshot data: %w", err)
	}

	if err := datasync(headerFile); err != nil {
		return fmt.Errorf("snapshot header: %w", err)
	}
	if err := datasync(dataFile); err != nil {
		return fmt.Errorf("snapshot data: %w", err)
	}

	t.log.Info("snapshot written", "base", base, "nodes", count, "digest", digest.Sum64())
	return nil
}

// truncated folds the two EOF flavors into ErrTruncatedSnapshot.
func truncated(err error) error {
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return ErrTruncatedSnapshot
	}
	return err
}

// Deserialize discards the current tree and rebuilds it from base.header and
// base.data, excluding every other tree operation for the duration. The
// snapshot's key type must match the tree's instantiation; its order replaces
// the tree's. If either file cannot be opened the tree is left unchanged; on
// any later failure it is left cleared or partially rebuilt and the caller
// must start over with a fresh tree.
func (t *Tree[K]) Deserialize(base string) error {
	t.treeMu.Lock()
	defer t.treeMu.Unlock()

	kind, err := keyKindOf[K]()
	if err != nil {
		return err
	}

	headerFile, err := os.Open(base + headerSuffix)
	if err != nil {
		return fmt.Errorf("snapshot header: %w", err)
	}
	defer headerFile.Close()

	dataFile, err := os.Open(base + dataSuffix)
	if err != nil {
		return fmt.Errorf("snapshot data: %w", err)
	}
	defer dataFile.Close()

	t.root = nil
	t.headLeaf = nil

	hr := bufio.NewReader(headerFile)
	var fileKind, fileOrder, rootID, headID int32
	for _, field := range []*int32{&fileKind, &fileOrder, &rootID, &headID} {
		if err := binary.Read(hr, binary.LittleEndian, field); err != nil {
			return fmt.Errorf("snapshot header: %w", truncated(err))
		}
	}

	switch fileKind {
	case keyKindInt32, keyKindString:
		if fileKind != kind {
			return fmt.Errorf("%w: snapshot has key type %d", ErrKeyTypeMismatch, fileKind)
		}
	default:
		return fmt.Errorf("%w: %d", ErrUnknownKeyType, fileKind)
	}
	t.order = int(fileOrder)

	if rootID == -1 {
		t.log.Info("snapshot loaded", "base", base, "nodes", 0)
		return nil
	}

	digest := xxhash.New()
	dr := bufio.NewReader(io.TeeReader(dataFile, digest))

	nodes := make(map[int32]*node[K])
	nextLeaf := make(map[int32]int32)
	childIDs := make(map[int32][]int32)

	for {
		var id int32
		if err := binary.Read(dr, binary.LittleEndian, &id); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return fmt.Errorf("snapshot data: %w", truncated(err))
		}

		var kindByte int8
		if err := binary.Read(dr, binary.LittleEndian, &kindByte); err != nil {
			return fmt.Errorf("snapshot data: %w", truncated(err))
		}
		var size int32
		if err := binary.Read(dr, binary.LittleEndian, &size); err != nil {
			return fmt.Errorf("snapshot data: %w", truncated(err))
		}
		if size < 0 {
			return fmt.Errorf("%w: node %d has negative size", ErrCorruption, id)
		}

		switch kindByte {
		case 1:
			leaf := newLeaf[K]()
			leaf.size = int(size)
			for i := int32(0); i < size; i++ {
				key, err := readKey[K](dr)
				if err != nil {
					return fmt.Errorf("snapshot data: %w", truncated(err))
				}
				leaf.keys = append(leaf.keys, key)
			}
			for i := int32(0); i < size; i++ {
				var value uint64
				if err := binary.Read(dr, binary.LittleEndian, &value); err != nil {
					return fmt.Errorf("snapshot data: %w", truncated(err))
				}
				leaf.values = append(leaf.values, value)
			}
			var nextID int32
			if err := binary.Read(dr, binary.LittleEndian, &nextID); err != nil {
				return fmt.Errorf("snapshot data: %w", truncated(err))
			}
			nextLeaf[id] = nextID
			nodes[id] = leaf

		case 0:
			in := newInternal[K]()
			in.size = int(size)
			for i := int32(0); i < size; i++ {
				key, err := readKey[K](dr)
				if err != nil {
					return fmt.Errorf("snapshot data: %w", truncated(err))
				}
				in.keys = append(in.keys, key)
			}
			ids := make([]int32, 0, size+1)
			for i := int32(0); i <= size; i++ {
				var childID int32
				if err := binary.Read(dr, binary.LittleEndian, &childID); err != nil {
					return fmt.Errorf("snapshot data: %w", truncated(err))
				}
				ids = append(ids, childID)
			}
			childIDs[id] = ids
			nodes[id] = in

		default:
			return fmt.Errorf("%w: node %d has kind %d", ErrCorruption, id, kindByte)
		}
	}

	// Second pass: resolve the cached adjacency into pointers.
	for id, n := range nodes {
		if n.leaf {
			nextID := nextLeaf[id]
			if nextID == -1 {
				continue
			}
			next, ok := nodes[nextID]
			if !ok {
				return fmt.Errorf("%w: leaf %d links to unknown node %d", ErrCorruption, id, nextID)
			}
			n.next = next
			next.prev = n
			continue
		}
		for _, childID := range childIDs[id] {
			child, ok := nodes[childID]
			if !ok {
				return fmt.Errorf("%w: node %d references unknown child %d", ErrCorruption, id, childID)
			}
			n.children = append(n.children, child)
			child.parent = n
		}
	}

	root, ok := nodes[rootID]
	if !ok {
		return fmt.Errorf("%w: unknown root id %d", ErrCorruption, rootID)
	}
	t.root = root
	if headID != -1 {
		head, ok := nodes[headID]
		if !ok {
			return fmt.Errorf("%w: unknown head leaf id %d", ErrCorruption, headID)
		}
		t.headLeaf = head
	}

	t.log.Info("snapshot loaded", "base", base, "nodes", len(nodes), "digest", digest.Sum64())
	return nil
}
