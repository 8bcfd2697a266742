package session

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"github.com/samber/lo"
)

// Identity is who is posting, derived from the persisted session blob.
type Identity struct {
	Authenticated bool   `json:"authenticated"`
	DisplayName   string `json:"display_name"`
	AvatarURL     string `json:"avatar_url"`
}

// Anonymous is the identity of a caller without a usable session.
var Anonymous = Identity{}

// Credentials carry what an authenticated request to the content API needs.
type Credentials struct {
	Token  string
	Scheme string
}

// Header renders the Authorization header value.
func (c Credentials) Header() string {
	return c.Scheme + " " + c.Token
}

// DefaultScheme is used when the blob carries no token_type.
const DefaultScheme = "Bearer"

// match decides whether a value found at a path ends the search.
type match int

const (
	// firstString stops at the first string, even an empty one.
	firstString match = iota
	// firstNonEmpty skips empty strings.
	firstNonEmpty
)

// rule is one field to extract: candidate paths tried in priority order.
type rule struct {
	paths [][]string
	match match
	// numbers also accepts non-zero JSON numbers, rendered as decimal text.
	numbers bool
}

func paths(candidates ...string) [][]string {
	return lo.Map(candidates, func(p string, _ int) []string {
		return strings.Split(p, ".")
	})
}

// Upstream has stored the logged-in user in several shapes over time. Top
// level wins over data.*, which wins over user.*.
var (
	tokenRule = rule{
		paths:   paths("token", "access_token", "data.token", "data.access_token", "user.token", "user.access_token"),
		match:   firstNonEmpty,
		numbers: true,
	}
	nameRule = rule{
		paths: paths("name", "data.name", "user.name"),
		match: firstString,
	}
	avatarRule = rule{
		paths: paths("avatar", "data.avatar", "user.avatar", "image", "user.image", "photo", "user.photo"),
		match: firstNonEmpty,
	}
	schemeRule = rule{
		paths: paths("token_type", "data.token_type", "user.token_type"),
		match: firstNonEmpty,
	}
)

// Resolve derives the identity from a raw session blob. Missing, null or
// unparsable blobs resolve to Anonymous; it never fails.
func Resolve(raw []byte) Identity {
	doc, ok := parse(raw)
	if !ok {
		return Anonymous
	}
	token, _ := tokenRule.extract(doc)
	name, _ := nameRule.extract(doc)
	avatar, _ := avatarRule.extract(doc)
	return Identity{
		Authenticated: token != "",
		DisplayName:   name,
		AvatarURL:     avatar,
	}
}

// ResolveString is Resolve for blobs kept as strings.
func ResolveString(raw string) Identity {
	return Resolve([]byte(raw))
}

// ResolveCredentials extracts the token and its scheme from a raw blob.
func ResolveCredentials(raw []byte) (Credentials, bool) {
	doc, ok := parse(raw)
	if !ok {
		return Credentials{}, false
	}
	token, ok := tokenRule.extract(doc)
	if !ok {
		return Credentials{}, false
	}
	scheme, ok := schemeRule.extract(doc)
	scheme = strings.TrimSpace(scheme)
	if !ok || scheme == "" {
		scheme = DefaultScheme
	}
	return Credentials{Token: token, Scheme: scheme}, true
}

func parse(raw []byte) (map[string]any, bool) {
	if len(raw) == 0 {
		return nil, false
	}
	var doc map[string]any
	if err := json.Unmarshal(raw, &doc); err != nil || doc == nil {
		return nil, false
	}
	return doc, true
}

func (r rule) extract(doc map[string]any) (string, bool) {
	for _, path := range r.paths {
		raw := lookup(doc, path)
		value, ok := raw.(string)
		if !ok && r.numbers {
			value, ok = numberText(raw)
		}
		if !ok {
			continue
		}
		if r.match == firstNonEmpty && value == "" {
			continue
		}
		return value, true
	}
	return "", false
}

func lookup(doc map[string]any, path []string) any {
	var current any = doc
	for _, key := range path {
		obj, ok := current.(map[string]any)
		if !ok {
			return nil
		}
		current = obj[key]
	}
	return current
}

func numberText(value any) (string, bool) {
	n, ok := value.(float64)
	if !ok || n == 0 || math.IsNaN(n) || math.IsInf(n, 0) {
		return "", false
	}
	return strconv.FormatFloat(n, 'f', -1, 64), true
}
