package comments

import (
	"encoding/json"
	"reflect"
	"testing"
	"time"
)

var fixedNow = time.Date(2024, 5, 1, 8, 30, 0, 0, time.UTC)

func testNormalizer() Normalizer {
	return Normalizer{Now: func() time.Time { return fixedNow }}
}

func decode(t *testing.T, data string) any {
	t.Helper()
	var raw any
	if err := json.Unmarshal([]byte(data), &raw); err != nil {
		t.Fatalf("decode fixture: %v", err)
	}
	return raw
}

func TestNormalizeManyEndToEnd(t *testing.T) {
	raw := decode(t, `[
		{"id":1,"body":"hi","created_at":"2024-01-01T00:00:00Z","replies":[
			{"id":2,"body":"yo","created_at":"2024-01-02T00:00:00Z","user":{"id":5,"name":"X"}}
		]},
		{"id":"bad"}
	]`)

	got := testNormalizer().NormalizeMany(raw)

	want := Forest{{
		ID:        1,
		Body:      "hi",
		User:      User{ID: 0, Name: DefaultGuestName},
		CreatedAt: "2024-01-01T00:00:00Z",
		Replies: []Comment{{
			ID:        2,
			Body:      "yo",
			User:      User{ID: 5, Name: "X"},
			CreatedAt: "2024-01-02T00:00:00Z",
			Replies:   []Comment{},
		}},
	}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("NormalizeMany() = %+v, want %+v", got, want)
	}
}

func TestNormalizeOneRejectsMalformed(t *testing.T) {
	cases := []struct {
		name string
		raw  any
	}{
		{name: "nil", raw: nil},
		{name: "string", raw: "comment"},
		{name: "array", raw: []any{}},
		{name: "missing id", raw: map[string]any{"body": "x"}},
		{name: "string id", raw: map[string]any{"id": "1", "body": "x"}},
		{name: "fractional id", raw: map[string]any{"id": 1.5, "body": "x"}},
		{name: "missing body", raw: map[string]any{"id": 1.0}},
		{name: "blank body", raw: map[string]any{"id": 1.0, "body": "  \n\t"}},
		{name: "numeric body", raw: map[string]any{"id": 1.0, "body": 42.0}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got, ok := NormalizeOne(tc.raw); ok {
				t.Fatalf("NormalizeOne() = %+v, want rejection", got)
			}
		})
	}
}

func TestNormalizeManyKeepsValidSiblingsInOrder(t *testing.T) {
	raw := decode(t, `[
		{"id":10,"body":"first","created_at":"a"},
		null,
		{"id":11,"body":""},
		{"id":12,"body":"second","created_at":"b"},
		7,
		{"id":13.25,"body":"bad id"},
		{"id":14,"body":"third","created_at":"c"}
	]`)

	got := testNormalizer().NormalizeMany(raw)

	if len(got) != 3 {
		t.Fatalf("expected 3 comments, got %d: %+v", len(got), got)
	}
	for i, want := range []struct {
		id   int64
		body string
	}{{10, "first"}, {12, "second"}, {14, "third"}} {
		if got[i].ID != want.id || got[i].Body != want.body {
			t.Fatalf("comment %d = {%d %q}, want {%d %q}", i, got[i].ID, got[i].Body, want.id, want.body)
		}
	}
}

func TestNormalizeManyOutputSatisfiesInvariants(t *testing.T) {
	raw := decode(t, `[
		{"id":1,"body":"a","children":[{"id":2,"body":" "},{"id":3,"body":"c","replies":[{"id":4}]}]},
		{"id":5,"body":"e","replies":"nope"},
		{"nothing":true}
	]`)
	input := raw.([]any)

	got := NormalizeMany(raw)

	if len(got) > len(input) {
		t.Fatalf("output longer than input: %d > %d", len(got), len(input))
	}
	var check func(nodes []Comment)
	check = func(nodes []Comment) {
		for _, c := range nodes {
			if c.Body == "" {
				t.Fatalf("comment %d has empty body", c.ID)
			}
			if c.Replies == nil {
				t.Fatalf("comment %d has nil replies", c.ID)
			}
			check(c.Replies)
		}
	}
	check(got)

	if CountNodes(got) != 3 {
		t.Fatalf("expected 3 surviving nodes, got %d", CountNodes(got))
	}
}

func TestNormalizeManyNonArrayIsEmpty(t *testing.T) {
	for _, raw := range []any{nil, "x", 3.0, map[string]any{"data": []any{}}} {
		got := NormalizeMany(raw)
		if got == nil || len(got) != 0 {
			t.Fatalf("NormalizeMany(%v) = %#v, want empty non-nil forest", raw, got)
		}
	}
}

func TestNormalizeAuthorResolution(t *testing.T) {
	cases := []struct {
		name string
		raw  string
		want User
	}{
		{name: "registered user", raw: `{"id":1,"body":"b","user":{"id":9,"name":"Lan"}}`, want: User{ID: 9, Name: "Lan"}},
		{name: "guest name trimmed", raw: `{"id":1,"body":"b","name":"  Minh "}`, want: User{ID: 0, Name: "Minh"}},
		{name: "user without name falls back to guest", raw: `{"id":1,"body":"b","user":{"id":9},"name":"Ha"}`, want: User{ID: 0, Name: "Ha"}},
		{name: "user with string id falls back", raw: `{"id":1,"body":"b","user":{"id":"9","name":"Lan"}}`, want: User{ID: 0, Name: DefaultGuestName}},
		{name: "null user and blank name", raw: `{"id":1,"body":"b","user":null,"name":"   "}`, want: User{ID: 0, Name: DefaultGuestName}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := NormalizeOne(decode(t, tc.raw))
			if !ok {
				t.Fatalf("NormalizeOne() rejected %s", tc.raw)
			}
			if got.User != tc.want {
				t.Fatalf("User = %+v, want %+v", got.User, tc.want)
			}
		})
	}
}

func TestNormalizeCustomGuestName(t *testing.T) {
	n := Normalizer{GuestName: "Anonymous"}
	got, ok := n.NormalizeOne(map[string]any{"id": 3.0, "body": "x", "created_at": "t"})
	if !ok {
		t.Fatal("expected comment")
	}
	if got.User.Name != "Anonymous" {
		t.Fatalf("expected Anonymous, got %q", got.User.Name)
	}
}

func TestNormalizeRepliesPreferReplies(t *testing.T) {
	got, ok := NormalizeOne(decode(t, `{"id":1,"body":"b",
		"replies":[{"id":2,"body":"from replies"}],
		"children":[{"id":3,"body":"from children"}]}`))
	if !ok {
		t.Fatal("expected comment")
	}
	if len(got.Replies) != 1 || got.Replies[0].ID != 2 {
		t.Fatalf("expected replies field to win, got %+v", got.Replies)
	}

	got, ok = NormalizeOne(decode(t, `{"id":1,"body":"b","replies":null,"children":[{"id":3,"body":"from children"}]}`))
	if !ok {
		t.Fatal("expected comment")
	}
	if len(got.Replies) != 1 || got.Replies[0].ID != 3 {
		t.Fatalf("expected children fallback, got %+v", got.Replies)
	}
}

// created_at defaulting is a client-side policy, not data from the server.
func TestNormalizeCreatedAtPolicy(t *testing.T) {
	raw := map[string]any{"id": 1.0, "body": "b"}

	got, _ := testNormalizer().NormalizeOne(raw)
	if got.CreatedAt != fixedNow.Format(time.RFC3339) {
		t.Fatalf("DefaultToNow: CreatedAt = %q", got.CreatedAt)
	}
	if !got.CreatedAtInferred {
		t.Fatal("DefaultToNow: expected CreatedAtInferred")
	}

	unknown := Normalizer{Policy: LeaveUnknown, Now: func() time.Time { return fixedNow }}
	got, _ = unknown.NormalizeOne(raw)
	if got.CreatedAt != "" || !got.CreatedAtInferred {
		t.Fatalf("LeaveUnknown: got CreatedAt=%q inferred=%v", got.CreatedAt, got.CreatedAtInferred)
	}

	got, _ = testNormalizer().NormalizeOne(map[string]any{"id": 1.0, "body": "b", "created_at": "2023-03-03T03:03:03Z"})
	if got.CreatedAtInferred || got.CreatedAt != "2023-03-03T03:03:03Z" {
		t.Fatalf("server time must pass through, got %+v", got)
	}
}

func TestNormalizeIsDeterministic(t *testing.T) {
	raw := decode(t, `[{"id":1,"body":"a","replies":[{"id":2,"body":"b"}]}]`)
	n := testNormalizer()
	if !reflect.DeepEqual(n.NormalizeMany(raw), n.NormalizeMany(raw)) {
		t.Fatal("same input produced different output")
	}
}

func TestNormalizeJSONKeepsLargeIDs(t *testing.T) {
	got := NormalizeJSON([]byte(`[{"id":9007199254740993,"body":"big","created_at":"t"}]`))
	if len(got) != 1 || got[0].ID != 9007199254740993 {
		t.Fatalf("expected exact large id, got %+v", got)
	}
	if got := NormalizeJSON([]byte(`{not json`)); len(got) != 0 {
		t.Fatalf("expected empty forest for invalid JSON, got %+v", got)
	}
}

func TestParseTimePolicy(t *testing.T) {
	if ParseTimePolicy("unknown") != LeaveUnknown {
		t.Fatal("expected LeaveUnknown")
	}
	if ParseTimePolicy("") != DefaultToNow || ParseTimePolicy("now") != DefaultToNow {
		t.Fatal("expected DefaultToNow")
	}
}

func TestNormalizeMine(t *testing.T) {
	raw := decode(t, `[
		{"id":1,"body":"a","created_at":"t1","post_slug":"hello"},
		{"id":2,"body":"b","created_at":"t2","post":{"slug":"world","name":"World"}},
		{"id":"x","body":"c"},
		{"id":3,"body":"d"}
	]`)

	got := testNormalizer().NormalizeMine(raw)

	if len(got) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(got))
	}
	if got[0].PostSlug == nil || *got[0].PostSlug != "hello" || got[0].PostName != nil {
		t.Fatalf("row 0 = %+v", got[0])
	}
	if got[1].PostSlug == nil || *got[1].PostSlug != "world" || got[1].PostName == nil || *got[1].PostName != "World" {
		t.Fatalf("row 1 = %+v", got[1])
	}
	if got[2].PostSlug != nil || got[2].CreatedAt != fixedNow.Format(time.RFC3339) {
		t.Fatalf("row 2 = %+v", got[2])
	}

	unknown := Normalizer{Policy: LeaveUnknown, Now: func() time.Time { return fixedNow }}
	rows := unknown.NormalizeMine(raw)
	if len(rows) != 3 || rows[2].CreatedAt != "" {
		t.Fatalf("LeaveUnknown: row 2 = %+v", rows[2])
	}
	if rows[0].CreatedAt != "t1" {
		t.Fatalf("LeaveUnknown must keep a supplied created_at, got %q", rows[0].CreatedAt)
	}
	if rows := NormalizeMine("nope"); rows == nil || len(rows) != 0 {
		t.Fatalf("expected empty rows, got %#v", rows)
	}
}

func TestCountRawFollowsReplyLists(t *testing.T) {
	raw, err := DecodeJSON([]byte(`[
		{"id":1,"body":"a","replies":[{"id":2,"body":"b"},{"id":"bad","body":"c","children":[{"id":4,"body":"d"}]}]},
		"junk",
		{"id":5,"body":" "}
	]`))
	if err != nil {
		t.Fatalf("DecodeJSON() error = %v", err)
	}
	if got := CountRaw(raw); got != 6 {
		t.Fatalf("CountRaw() = %d, want 6", got)
	}
	forest := NormalizeMany(raw)
	if dropped := CountRaw(raw) - CountNodes(forest); dropped != 4 {
		t.Fatalf("dropped = %d, want 4", dropped)
	}
	if CountRaw(map[string]any{}) != 0 {
		t.Fatal("CountRaw() of a non-array must be 0")
	}
}

func TestNormalizeOneJSON(t *testing.T) {
	c, ok := Normalizer{}.NormalizeOneJSON([]byte(`{"id":9007199254740993,"body":"big","created_at":"2024-01-01T00:00:00Z"}`))
	if !ok || c.ID != 9007199254740993 {
		t.Fatalf("NormalizeOneJSON() = %+v, %v", c, ok)
	}
	if _, ok := (Normalizer{}).NormalizeOneJSON([]byte(`not json`)); ok {
		t.Fatal("expected rejection of invalid json")
	}
}
