package bptree

import (
	"fmt"
	"strings"
)

// Dump renders the tree level by level, one bracketed key list per node. It
// takes no latches and must not run concurrently with mutators.
func (t *Tree[K]) Dump() string {
	if t.root == nil {
		return ""
	}

	var b strings.Builder
	level := []*node[K]{t.root}
	for len(level) > 0 {
		var next []*node[K]
		for _, n := range level {
			b.WriteByte('[')
			for i := 0; i < n.size; i++ {
				if i > 0 {
					b.WriteByte(',')
				}
				fmt.Fprintf(&b, "%v", n.keys[i])
			}
			b.WriteString("] ")
			if !n.leaf {
				next = append(next, n.children[:n.size+1]...)
			}
		}
		b.WriteByte('\n')
		level = next
	}
	return b.String()
}
