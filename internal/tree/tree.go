// Package tree converts flat, parent-linked item lists into rooted forests
// and depth-annotated render orderings. The pipeline is pure and
// deterministic: it is recomputed from scratch on every store snapshot, so
// identical input must always produce identical output.
package tree

// Item is anything that can be placed in a forest by ID and parent ID. An
// empty parent ID marks a root.
type Item interface {
	TreeID() string
	TreeParentID() string
}

// Node wraps one item and its ordered children.
type Node[T Item] struct {
	Item     T
	Children []*Node[T]
}

// FlatNode is one entry of a pre-order rendering: the item plus its depth,
// 0 for roots.
type FlatNode[T Item] struct {
	Item  T
	Depth int
}

// BuildForest arranges items into a forest. An item whose parent ID does not
// resolve within the input is kept as a root rather than dropped, so a
// half-loaded reply chain still renders every comment. Root order and child
// order both preserve input order; callers pass items pre-sorted by creation
// time, ascending.
func BuildForest[T Item](items []T) []*Node[T] {
	index := make(map[string]*Node[T], len(items))
	nodes := make([]*Node[T], len(items))
	for i, item := range items {
		n := &Node[T]{Item: item}
		nodes[i] = n
		index[item.TreeID()] = n
	}

	var roots []*Node[T]
	for _, n := range nodes {
		parentID := n.Item.TreeParentID()
		if parentID == "" || parentID == n.Item.TreeID() {
			roots = append(roots, n)
			continue
		}
		parent, ok := index[parentID]
		if !ok {
			// Orphan: the referenced parent is not in the loaded set.
			roots = append(roots, n)
			continue
		}
		parent.Children = append(parent.Children, n)
	}
	return roots
}

// Flatten produces the pre-order traversal of the forest with each node
// annotated by its depth.
func Flatten[T Item](forest []*Node[T]) []FlatNode[T] {
	var out []FlatNode[T]
	var walk func(n *Node[T], depth int)
	walk = func(n *Node[T], depth int) {
		out = append(out, FlatNode[T]{Item: n.Item, Depth: depth})
		for _, child := range n.Children {
			walk(child, depth+1)
		}
	}
	for _, root := range forest {
		walk(root, 0)
	}
	return out
}
