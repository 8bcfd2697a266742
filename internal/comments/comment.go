// Package comments turns untrusted comment payloads into a canonical reply
// forest and grows that forest without re-fetching it.
package comments

// DefaultGuestName labels guest comments that arrive without a name.
const DefaultGuestName = "An danh"

// MaxReplyDepth bounds how deep a reply target may sit. Top-level comments
// have depth 0; a node at depth MaxReplyDepth or below cannot be replied to.
const MaxReplyDepth = 3

// User is the author reference of a comment. Guests carry ID 0.
type User struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// IsGuest reports whether the author is a guest rather than a registered user.
func (u User) IsGuest() bool {
	return u.ID == 0
}

// Comment is one node of a post's comment forest.
type Comment struct {
	ID        int64  `json:"id"`
	Body      string `json:"body"`
	User      User   `json:"user"`
	CreatedAt string `json:"created_at"`
	// CreatedAtInferred is set when the payload had no created_at and the
	// normalizer filled or blanked it according to its TimePolicy.
	CreatedAtInferred bool      `json:"created_at_inferred,omitempty"`
	Replies           []Comment `json:"replies"`
}

// IsLeaf reports whether the comment has no replies yet.
func (c Comment) IsLeaf() bool {
	return len(c.Replies) == 0
}

// Forest is the ordered list of top-level comments of a post.
type Forest []Comment

// CountNodes returns the number of comments in the forest, replies included.
func CountNodes(f Forest) int {
	total := 0
	for _, c := range f {
		total += 1 + CountNodes(c.Replies)
	}
	return total
}
