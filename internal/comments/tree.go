package comments

// AppendTopLevel returns a new forest with c appended. f is left untouched.
func AppendTopLevel(f Forest, c Comment) Forest {
	next := make(Forest, len(f), len(f)+1)
	copy(next, f)
	return append(next, c)
}

// InsertReply appends reply to the replies of the node whose ID is parentID.
// The search is depth-first in forest order and the first match wins. Only
// the nodes on the path to the parent are copied; every other subtree is
// shared with f, which stays unmodified. When no node matches, f itself is
// returned with false.
func InsertReply(f Forest, parentID int64, reply Comment) (Forest, bool) {
	next, ok := insertInto(f, parentID, reply)
	if !ok {
		return f, false
	}
	return next, true
}

func insertInto(nodes []Comment, parentID int64, reply Comment) ([]Comment, bool) {
	for i, node := range nodes {
		if node.ID == parentID {
			replies := make([]Comment, len(node.Replies), len(node.Replies)+1)
			copy(replies, node.Replies)
			node.Replies = append(replies, reply)
			return replaceAt(nodes, i, node), true
		}

		if len(node.Replies) == 0 {
			continue
		}
		if replies, ok := insertInto(node.Replies, parentID, reply); ok {
			node.Replies = replies
			return replaceAt(nodes, i, node), true
		}
	}
	return nodes, false
}

func replaceAt(nodes []Comment, i int, node Comment) []Comment {
	next := make([]Comment, len(nodes))
	copy(next, nodes)
	next[i] = node
	return next
}

// Find returns the node with the given id.
func Find(f Forest, id int64) (Comment, bool) {
	depth := -1
	var found Comment
	walk(f, 0, func(c Comment, d int) bool {
		if c.ID == id {
			found, depth = c, d
			return false
		}
		return true
	})
	return found, depth >= 0
}

// Depth returns how deep the node with the given id sits; top-level is 0.
func Depth(f Forest, id int64) (int, bool) {
	depth := -1
	walk(f, 0, func(c Comment, d int) bool {
		if c.ID == id {
			depth = d
			return false
		}
		return true
	})
	return depth, depth >= 0
}

// CanReply reports whether a reply may target the node with the given id.
func CanReply(f Forest, id int64) bool {
	depth, ok := Depth(f, id)
	return ok && depth < MaxReplyDepth
}

// walk visits nodes depth-first until visit returns false.
func walk(nodes []Comment, depth int, visit func(Comment, int) bool) bool {
	for _, node := range nodes {
		if !visit(node, depth) {
			return false
		}
		if !walk(node.Replies, depth+1, visit) {
			return false
		}
	}
	return true
}
