package session

import "testing"

func TestResolve(t *testing.T) {
	cases := []struct {
		name string
		raw  string
		want Identity
	}{
		{name: "top-level token", raw: `{"token":"abc","name":"Ana"}`, want: Identity{true, "Ana", ""}},
		{name: "nested data access token", raw: `{"data":{"access_token":"x","name":"Bo"}}`, want: Identity{true, "Bo", ""}},
		{name: "nested user", raw: `{"user":{"token":"t","name":"Cu","avatar":"https://a/c.png"}}`, want: Identity{true, "Cu", "https://a/c.png"}},
		{name: "null", raw: `null`, want: Identity{}},
		{name: "empty", raw: ``, want: Identity{}},
		{name: "unparsable", raw: `{"token":`, want: Identity{}},
		{name: "array", raw: `["token"]`, want: Identity{}},
		{name: "string", raw: `"token"`, want: Identity{}},
		{name: "no token keeps name", raw: `{"name":"Dan"}`, want: Identity{false, "Dan", ""}},
		{name: "empty token is unauthenticated", raw: `{"token":"","access_token":""}`, want: Identity{}},
		{name: "empty top token falls through to data", raw: `{"token":"","data":{"token":"d"}}`, want: Identity{Authenticated: true}},
		{name: "numeric token authenticates", raw: `{"token":42,"name":"A"}`, want: Identity{true, "A", ""}},
		{name: "zero token is unauthenticated", raw: `{"token":0}`, want: Identity{}},
		{name: "boolean token ignored", raw: `{"token":true}`, want: Identity{}},
		{name: "top-level name wins over nested", raw: `{"name":"Top","data":{"name":"Data"},"user":{"name":"User"}}`, want: Identity{false, "Top", ""}},
		{name: "data name wins over user", raw: `{"data":{"name":"Data"},"user":{"name":"User"}}`, want: Identity{false, "Data", ""}},
		{name: "non-string top name falls through", raw: `{"name":7,"user":{"name":"User"}}`, want: Identity{false, "User", ""}},
		{name: "avatar from image", raw: `{"token":"t","image":"img.png","user":{"photo":"p.png"}}`, want: Identity{true, "", "img.png"}},
		{name: "avatar from user photo", raw: `{"token":"t","user":{"photo":"p.png"}}`, want: Identity{true, "", "p.png"}},
		{name: "data is not an object", raw: `{"data":"oops","user":{"access_token":"u"}}`, want: Identity{Authenticated: true}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := ResolveString(tc.raw); got != tc.want {
				t.Fatalf("ResolveString(%s) = %+v, want %+v", tc.raw, got, tc.want)
			}
		})
	}
}

func TestResolveIsIdempotent(t *testing.T) {
	raw := []byte(`{"data":{"token":"x","name":"Bo","avatar":"b.png"}}`)
	first := Resolve(raw)
	second := Resolve(raw)
	if first != second {
		t.Fatalf("Resolve() not idempotent: %+v vs %+v", first, second)
	}
	if Resolve(nil) != Anonymous {
		t.Fatal("Resolve(nil) must be anonymous")
	}
}

func TestResolveCredentials(t *testing.T) {
	creds, ok := ResolveCredentials([]byte(`{"access_token":"abc"}`))
	if !ok {
		t.Fatal("expected credentials")
	}
	if creds.Header() != "Bearer abc" {
		t.Fatalf("Header() = %q", creds.Header())
	}

	creds, ok = ResolveCredentials([]byte(`{"user":{"token":"u1","token_type":" Token "}}`))
	if !ok || creds.Header() != "Token u1" {
		t.Fatalf("unexpected credentials %+v ok=%v", creds, ok)
	}

	creds, ok = ResolveCredentials([]byte(`{"data":{"access_token":123456}}`))
	if !ok || creds.Header() != "Bearer 123456" {
		t.Fatalf("numeric token: unexpected credentials %+v ok=%v", creds, ok)
	}

	if _, ok := ResolveCredentials([]byte(`{"name":"no token"}`)); ok {
		t.Fatal("expected no credentials without a token")
	}
	if _, ok := ResolveCredentials([]byte(`garbage`)); ok {
		t.Fatal("expected no credentials for garbage")
	}
}
