package contentapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"threadline/api/internal/pagination"
	"threadline/api/internal/session"
)

const (
	listPosts    = "client/post"
	getPost      = "client/post/{slug}"
	postComments = "client/post/{slug}/comments"
	myComments   = "client/my-comments"
	categories   = "client/category"
	login        = "auth/login"
)

type PostQuery struct {
	Page         int
	CategorySlug string
	UserSlug     string
}

// Page is one page of a listing endpoint. Items is passed through untouched.
type Page struct {
	Items json.RawMessage
	Meta  pagination.Meta
}

// CommentInput is the payload for creating a comment or a reply.
type CommentInput struct {
	Body      string `json:"body"`
	ParentID  *int64 `json:"parent_id,omitempty"`
	GuestName string `json:"guest_name,omitempty"`
}

func (c *Client) ListPosts(ctx context.Context, q PostQuery) (Page, error) {
	req := c.r(ctx, "posts.list")
	if q.Page > 0 {
		req.SetQueryParam("page", strconv.Itoa(q.Page))
	}
	if q.CategorySlug != "" {
		req.SetQueryParam("category_slug", q.CategorySlug)
	}
	if q.UserSlug != "" {
		req.SetQueryParam("user_slug", q.UserSlug)
	}
	res, err := req.Get(listPosts)
	env, err := c.envelope("posts.list", res, err)
	if err != nil {
		return Page{}, err
	}
	return page(env)
}

func (c *Client) ListCategories(ctx context.Context, pageNumber int) (Page, error) {
	req := c.r(ctx, "categories.list")
	if pageNumber > 0 {
		req.SetQueryParam("page", strconv.Itoa(pageNumber))
	}
	res, err := req.Get(categories)
	env, err := c.envelope("categories.list", res, err)
	if err != nil {
		return Page{}, err
	}
	return page(env)
}

// GetPost returns the post object. It may embed a comments array.
func (c *Client) GetPost(ctx context.Context, slug string) (json.RawMessage, error) {
	res, err := c.r(ctx, "posts.get").
		SetPathParam("slug", slug).
		Get(getPost)
	env, err := c.envelope("posts.get", res, err)
	if err != nil {
		return nil, err
	}
	if isNull(env.Data) || bytes.TrimSpace(env.Data)[0] != '{' {
		return nil, fmt.Errorf("posts.get: %w", ErrMalformedResponse)
	}
	return env.Data, nil
}

// ListComments returns the comments payload as received. Callers decide
// whether it is usable.
func (c *Client) ListComments(ctx context.Context, slug string) (json.RawMessage, error) {
	res, err := c.r(ctx, "comments.list").
		SetPathParam("slug", slug).
		Get(postComments)
	env, err := c.envelope("comments.list", res, err)
	if err != nil {
		return nil, err
	}
	return env.Data, nil
}

// SubmitComment creates a comment. Guests pass nil credentials.
func (c *Client) SubmitComment(ctx context.Context, slug string, in CommentInput, creds *session.Credentials) (json.RawMessage, error) {
	res, err := authorize(c.r(ctx, "comments.create"), creds).
		SetPathParam("slug", slug).
		SetHeader("Content-Type", "application/json").
		SetBody(in).
		Post(postComments)
	env, err := c.envelope("comments.create", res, err)
	if err != nil {
		return nil, err
	}
	if isNull(env.Data) {
		return nil, fmt.Errorf("comments.create: %w", ErrMalformedResponse)
	}
	return env.Data, nil
}

func (c *Client) MyComments(ctx context.Context, creds session.Credentials) (json.RawMessage, error) {
	res, err := authorize(c.r(ctx, "comments.mine"), &creds).
		Get(myComments)
	env, err := c.envelope("comments.mine", res, err)
	if err != nil {
		return nil, err
	}
	return env.Data, nil
}

// Login returns the login payload, unwrapped from data when the API wraps it.
func (c *Client) Login(ctx context.Context, email, password string) (json.RawMessage, error) {
	var raw json.RawMessage
	res, err := c.r(ctx, "auth.login").
		SetHeader("Content-Type", "application/json").
		SetBody(map[string]string{"email": email, "password": password}).
		SetResult(&raw).
		Post(login)
	if err := c.check("auth.login", res, err); err != nil {
		return nil, err
	}
	if isNull(raw) {
		return nil, fmt.Errorf("auth.login: %w", ErrMalformedResponse)
	}

	var wrapped Envelope
	if err := json.Unmarshal(raw, &wrapped); err == nil && !isNull(wrapped.Data) {
		return wrapped.Data, nil
	}
	return raw, nil
}

func page(env *Envelope) (Page, error) {
	p := Page{Items: env.Data}
	if isNull(p.Items) {
		p.Items = json.RawMessage("[]")
	}
	if !isNull(env.Meta) {
		if err := json.Unmarshal(env.Meta, &p.Meta); err != nil {
			return Page{}, fmt.Errorf("decode meta: %w", ErrMalformedResponse)
		}
	}
	return p, nil
}

func isNull(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}
