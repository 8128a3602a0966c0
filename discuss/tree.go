package discuss

// CommentNode is a comment with its direct replies in chronological order.
type CommentNode struct {
	*Comment

	Children []*CommentNode
}

// BuildTree groups a flat comment list into reply threads.
//
// Sibling order follows input order, so callers pass comments sorted by creation time.
// A comment whose parent is not part of the input is returned as a root.
func BuildTree(comments []*Comment) []*CommentNode {
	nodes := make(map[int64]*CommentNode, len(comments))
	ordered := make([]*CommentNode, 0, len(comments))

	for _, comment := range comments {
		node := &CommentNode{Comment: comment, Children: make([]*CommentNode, 0)}
		ordered = append(ordered, node)

		if _, exists := nodes[comment.ID]; !exists {
			nodes[comment.ID] = node
		}
	}

	roots := make([]*CommentNode, 0, len(comments))

	for _, node := range ordered {
		if node.ParentCommentID == nil {
			roots = append(roots, node)

			continue
		}

		parent, found := nodes[*node.ParentCommentID]
		if !found {
			roots = append(roots, node)

			continue
		}

		parent.Children = append(parent.Children, node)
	}

	return roots
}

// ReplyCount returns the number of descendants under node.
func ReplyCount(node *CommentNode) int {
	count := 0

	for _, child := range node.Children {
		count += 1 + ReplyCount(child)
	}

	return count
}
