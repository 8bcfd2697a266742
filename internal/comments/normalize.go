package comments

import (
	"bytes"
	"encoding/json"
	"math"
	"strings"
	"time"

	"github.com/samber/lo"
)

// TimePolicy decides what a comment without created_at gets.
type TimePolicy int

const (
	// DefaultToNow stamps the normalization time. The stamp is a client
	// guess, not a server fact; CreatedAtInferred marks it.
	DefaultToNow TimePolicy = iota
	// LeaveUnknown keeps CreatedAt empty and marks it inferred.
	LeaveUnknown
)

// ParseTimePolicy maps a config value to a TimePolicy. Unknown values fall
// back to DefaultToNow.
func ParseTimePolicy(value string) TimePolicy {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "unknown", "leave-unknown", "none":
		return LeaveUnknown
	default:
		return DefaultToNow
	}
}

// Normalizer converts loosely-typed API values into Comments. The zero value
// is ready to use: DefaultGuestName, DefaultToNow and time.Now.
type Normalizer struct {
	GuestName string
	Policy    TimePolicy
	Now       func() time.Time
}

var defaultNormalizer = Normalizer{}

// NormalizeOne normalizes a single payload with the default settings.
func NormalizeOne(raw any) (Comment, bool) {
	return defaultNormalizer.NormalizeOne(raw)
}

// NormalizeMany normalizes a top-level array with the default settings.
func NormalizeMany(raw any) Forest {
	return defaultNormalizer.NormalizeMany(raw)
}

// NormalizeJSON decodes data and normalizes it as a top-level array.
// Undecodable input yields an empty forest.
func NormalizeJSON(data []byte) Forest {
	return defaultNormalizer.NormalizeJSON(data)
}

// NormalizeOne returns the canonical comment for raw, or false when raw is not
// an object, has no integer id, or has a blank body. Malformed replies are
// dropped without affecting their siblings.
func (n Normalizer) NormalizeOne(raw any) (Comment, bool) {
	obj, ok := raw.(map[string]any)
	if !ok {
		return Comment{}, false
	}

	id, ok := asInt(obj["id"])
	if !ok {
		return Comment{}, false
	}
	body, ok := obj["body"].(string)
	if !ok || strings.TrimSpace(body) == "" {
		return Comment{}, false
	}

	comment := Comment{
		ID:      id,
		Body:    body,
		User:    n.author(obj),
		Replies: n.NormalizeMany(nestedReplies(obj)),
	}

	if createdAt, ok := obj["created_at"].(string); ok {
		comment.CreatedAt = createdAt
	} else {
		comment.CreatedAtInferred = true
		if n.Policy == DefaultToNow {
			comment.CreatedAt = n.now().UTC().Format(time.RFC3339)
		}
	}

	return comment, true
}

// NormalizeMany maps NormalizeOne over raw and keeps the survivors in order.
// A non-array input yields an empty forest.
func (n Normalizer) NormalizeMany(raw any) Forest {
	items, ok := raw.([]any)
	if !ok {
		return Forest{}
	}
	return lo.FilterMap(items, func(item any, _ int) (Comment, bool) {
		return n.NormalizeOne(item)
	})
}

// NormalizeJSON decodes data keeping numbers exact and normalizes it.
func (n Normalizer) NormalizeJSON(data []byte) Forest {
	raw, err := DecodeJSON(data)
	if err != nil {
		return Forest{}
	}
	return n.NormalizeMany(raw)
}

// CountRaw counts the object nodes in a raw payload, following the same
// reply lists the normalizer follows. Compared with CountNodes of the
// result it tells how many nodes were dropped.
func CountRaw(raw any) int {
	items, ok := raw.([]any)
	if !ok {
		return 0
	}
	count := 0
	for _, item := range items {
		obj, ok := item.(map[string]any)
		if !ok {
			count++
			continue
		}
		count += 1 + CountRaw(nestedReplies(obj))
	}
	return count
}

// NormalizeOneJSON decodes a single comment object and normalizes it.
func (n Normalizer) NormalizeOneJSON(data []byte) (Comment, bool) {
	raw, err := DecodeJSON(data)
	if err != nil {
		return Comment{}, false
	}
	return n.NormalizeOne(raw)
}

func (n Normalizer) author(obj map[string]any) User {
	if user, ok := obj["user"].(map[string]any); ok {
		id, idOK := asInt(user["id"])
		name, nameOK := user["name"].(string)
		if idOK && nameOK {
			return User{ID: id, Name: name}
		}
	}

	if name, ok := obj["name"].(string); ok && strings.TrimSpace(name) != "" {
		return User{ID: 0, Name: strings.TrimSpace(name)}
	}
	return User{ID: 0, Name: n.guestName()}
}

func (n Normalizer) guestName() string {
	if strings.TrimSpace(n.GuestName) == "" {
		return DefaultGuestName
	}
	return n.GuestName
}

func (n Normalizer) now() time.Time {
	if n.Now == nil {
		return time.Now()
	}
	return n.Now()
}

// nestedReplies prefers the legacy "replies" list and falls back to "children".
func nestedReplies(obj map[string]any) any {
	if replies, ok := obj["replies"].([]any); ok {
		return replies
	}
	if children, ok := obj["children"].([]any); ok {
		return children
	}
	return nil
}

// DecodeJSON decodes data into the loose shape the normalizer accepts,
// keeping integer ids exact.
func DecodeJSON(data []byte) (any, error) {
	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.UseNumber()
	var raw any
	if err := decoder.Decode(&raw); err != nil {
		return nil, err
	}
	return raw, nil
}

// asInt accepts the integer shapes a decoded JSON number can take.
func asInt(value any) (int64, bool) {
	switch v := value.(type) {
	case float64:
		if math.IsNaN(v) || math.IsInf(v, 0) || v != math.Trunc(v) {
			return 0, false
		}
		if v < math.MinInt64 || v >= math.MaxInt64 {
			return 0, false
		}
		return int64(v), true
	case json.Number:
		parsed, err := v.Int64()
		if err != nil {
			return 0, false
		}
		return parsed, true
	case int:
		return int64(v), true
	case int32:
		return int64(v), true
	case int64:
		return v, true
	default:
		return 0, false
	}
}
