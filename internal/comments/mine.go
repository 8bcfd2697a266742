package comments

import (
	"time"

	"github.com/samber/lo"
)

// MyComment is a comment the signed-in user wrote, with a link back to its post.
type MyComment struct {
	ID        int64   `json:"id"`
	Body      string  `json:"body"`
	CreatedAt string  `json:"created_at"`
	PostSlug  *string `json:"post_slug"`
	PostName  *string `json:"post_name"`
}

// NormalizeMine normalizes the "my comments" listing. Rows without an integer
// id or a string body are dropped; the post slug comes from post_slug or
// post.slug.
func (n Normalizer) NormalizeMine(raw any) []MyComment {
	items, ok := raw.([]any)
	if !ok {
		return []MyComment{}
	}
	return lo.FilterMap(items, func(item any, _ int) (MyComment, bool) {
		row, ok := item.(map[string]any)
		if !ok {
			return MyComment{}, false
		}
		id, ok := asInt(row["id"])
		if !ok {
			return MyComment{}, false
		}
		body, ok := row["body"].(string)
		if !ok {
			return MyComment{}, false
		}

		mine := MyComment{ID: id, Body: body}
		if createdAt, ok := row["created_at"].(string); ok {
			mine.CreatedAt = createdAt
		} else if n.Policy == DefaultToNow {
			mine.CreatedAt = n.now().UTC().Format(time.RFC3339)
		}

		post, _ := row["post"].(map[string]any)
		if slug, ok := row["post_slug"].(string); ok {
			mine.PostSlug = lo.ToPtr(slug)
		} else if slug, ok := post["slug"].(string); ok {
			mine.PostSlug = lo.ToPtr(slug)
		}
		if name, ok := post["name"].(string); ok {
			mine.PostName = lo.ToPtr(name)
		}
		return mine, true
	})
}

// NormalizeMine normalizes the "my comments" listing with the default settings.
func NormalizeMine(raw any) []MyComment {
	return defaultNormalizer.NormalizeMine(raw)
}
