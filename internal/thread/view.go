// Package thread keeps the comment thread of the post a reader is looking at:
// the post, its comment forest and the comment forms attached to it.
package thread

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"threadline/api/internal/comments"
	"threadline/api/internal/contentapi"
	"threadline/api/internal/session"
)

var (
	ErrViewClosed     = errors.New("view closed")
	ErrStale          = errors.New("view moved to another post")
	ErrNotLoaded      = errors.New("post not loaded")
	ErrSubmitInFlight = errors.New("submission already in flight")
	ErrSubmitFailed   = errors.New("submission failed")
	ErrNoForm         = errors.New("form not open")
	ErrUnknownComment = errors.New("comment not in thread")
)

const LoadFailedMessage = "Could not load this post."

// API is the part of the content API a view needs.
type API interface {
	GetPost(ctx context.Context, slug string) (json.RawMessage, error)
	ListComments(ctx context.Context, slug string) (json.RawMessage, error)
	SubmitComment(ctx context.Context, slug string, in contentapi.CommentInput, creds *session.Credentials) (json.RawMessage, error)
}

// Observer receives counts the app turns into metrics.
type Observer interface {
	CommentsDropped(n int)
	SubmitFinished(kind, outcome string)
}

type nopObserver struct{}

func (nopObserver) CommentsDropped(int)           {}
func (nopObserver) SubmitFinished(string, string) {}

type Options struct {
	Normalizer comments.Normalizer
	Logger     *slog.Logger
	Observer   Observer
	Now        func() time.Time
}

// Author is who submits: the resolved identity plus the credentials to
// send when authenticated.
type Author struct {
	Identity    session.Identity
	Credentials *session.Credentials
}

// Result is the outcome of a successful submission.
type Result struct {
	Comment  comments.Comment `json:"comment"`
	Inserted bool             `json:"inserted"`
	Version  uint64           `json:"version"`
}

// Snapshot is a consistent copy of the view state.
type Snapshot struct {
	ID       string          `json:"id"`
	Slug     string          `json:"slug"`
	Post     json.RawMessage `json:"post"`
	Comments comments.Forest `json:"comments"`
	Version  uint64          `json:"version"`
	Loading  bool            `json:"loading"`
	Error    string          `json:"error,omitempty"`
	Forms    []Form          `json:"forms"`
}

type View struct {
	id         string
	api        API
	normalizer comments.Normalizer
	logger     *slog.Logger
	observer   Observer
	now        func() time.Time

	mu         sync.Mutex
	slug       string
	generation uint64
	cancel     context.CancelFunc
	post       json.RawMessage
	store      *comments.Store
	loading    bool
	loadErr    string
	forms      map[int64]*Form
	closed     bool
	lastUsed   time.Time
}

func NewView(id string, api API, opts Options) *View {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Observer == nil {
		opts.Observer = nopObserver{}
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &View{
		id:         id,
		api:        api,
		normalizer: opts.Normalizer,
		logger:     opts.Logger.With("component", "thread", "view_id", id),
		observer:   opts.Observer,
		now:        opts.Now,
		store:      comments.NewStore(nil),
		forms:      newForms(),
		lastUsed:   opts.Now(),
	}
}

func newForms() map[int64]*Form {
	return map[int64]*Form{0: {ParentID: 0}}
}

func (v *View) ID() string {
	return v.id
}

// Open loads slug into the view. It is Navigate under the name the first
// load reads best with.
func (v *View) Open(ctx context.Context, slug string) error {
	return v.Navigate(ctx, slug)
}

// Navigate switches the view to slug and loads it. An earlier load still in
// flight is cancelled and its result discarded. The call returns ErrStale
// when a later navigation overtook it.
func (v *View) Navigate(ctx context.Context, slug string) error {
	v.mu.Lock()
	if v.closed {
		v.mu.Unlock()
		return ErrViewClosed
	}
	if v.cancel != nil {
		v.cancel()
	}
	v.generation++
	generation := v.generation
	loadCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	v.cancel = cancel
	v.slug = slug
	v.post = nil
	v.store = comments.NewStore(nil)
	v.loading = true
	v.loadErr = ""
	v.forms = newForms()
	v.lastUsed = v.now()
	v.mu.Unlock()

	post, forest, err := v.fetch(loadCtx, slug)

	v.mu.Lock()
	defer v.mu.Unlock()
	if v.closed {
		return ErrViewClosed
	}
	if generation != v.generation {
		v.logger.Debug("discarding stale load", "slug", slug)
		return ErrStale
	}
	v.cancel = nil
	v.loading = false
	if err != nil {
		v.loadErr = LoadFailedMessage
		return fmt.Errorf("load post %s: %w", slug, err)
	}
	v.post = post
	v.store.Replace(forest)
	return nil
}

// fetch loads the post and its comment list concurrently. The comment list
// wins over the comments embedded in the post when it is an array. A
// failing comment list is logged and ignored.
func (v *View) fetch(ctx context.Context, slug string) (json.RawMessage, comments.Forest, error) {
	var (
		post     json.RawMessage
		listed   json.RawMessage
		listedOK bool
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		post, err = v.api.GetPost(gctx, slug)
		return err
	})
	g.Go(func() error {
		data, err := v.api.ListComments(gctx, slug)
		if err != nil {
			if gctx.Err() == nil {
				v.logger.Warn("fetch comments failed", "slug", slug, "error", err)
			}
			return nil
		}
		listed, listedOK = data, true
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	var raw any = []any{}
	if embedded, ok := embeddedComments(post); ok {
		raw = embedded
	}
	if listedOK {
		if decoded, err := comments.DecodeJSON(listed); err == nil {
			if _, isArray := decoded.([]any); isArray {
				raw = decoded
			}
		}
	}

	forest := v.normalizer.NormalizeMany(raw)
	if dropped := comments.CountRaw(raw) - comments.CountNodes(forest); dropped > 0 {
		v.logger.Debug("dropped malformed comments", "slug", slug, "count", dropped)
		v.observer.CommentsDropped(dropped)
	}
	return post, forest, nil
}

func embeddedComments(post json.RawMessage) (any, bool) {
	decoded, err := comments.DecodeJSON(post)
	if err != nil {
		return nil, false
	}
	obj, ok := decoded.(map[string]any)
	if !ok {
		return nil, false
	}
	list, ok := obj["comments"].([]any)
	return list, ok
}

// OpenReply opens the reply form under parentID.
func (v *View) OpenReply(parentID int64) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if err := v.usable(); err != nil {
		return err
	}
	forest, _ := v.store.Snapshot()
	depth, ok := comments.Depth(forest, parentID)
	if !ok {
		return fmt.Errorf("reply to %d: %w", parentID, ErrUnknownComment)
	}
	if depth >= comments.MaxReplyDepth {
		return &ValidationError{Fields: []FieldError{{Field: "parent_id", Message: DepthMessage}}}
	}
	if _, exists := v.forms[parentID]; !exists {
		v.forms[parentID] = &Form{ParentID: parentID}
	}
	return nil
}

// CloseReply drops the reply form under parentID and its draft.
func (v *View) CloseReply(parentID int64) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if err := v.usable(); err != nil {
		return err
	}
	form, ok := v.forms[parentID]
	if !ok || parentID == 0 {
		return ErrNoForm
	}
	if form.Pending {
		return ErrSubmitInFlight
	}
	delete(v.forms, parentID)
	return nil
}

// SaveDraft keeps what the user typed without submitting it.
func (v *View) SaveDraft(d Draft) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if err := v.usable(); err != nil {
		return err
	}
	form, ok := v.forms[d.ParentID]
	if !ok {
		return ErrNoForm
	}
	if form.Pending {
		return ErrSubmitInFlight
	}
	form.Body = d.Body
	form.GuestName = d.GuestName
	return nil
}

// Submit validates the draft, sends it and, once the content API confirms
// it, inserts the returned comment. The tree is only touched on success.
func (v *View) Submit(ctx context.Context, author Author, d Draft) (Result, error) {
	kind := "comment"
	if d.ParentID != 0 {
		kind = "reply"
	}

	v.mu.Lock()
	if err := v.usable(); err != nil {
		v.mu.Unlock()
		return Result{}, err
	}
	if v.loading || v.post == nil {
		v.mu.Unlock()
		return Result{}, ErrNotLoaded
	}
	if d.ParentID != 0 {
		forest, _ := v.store.Snapshot()
		if depth, found := comments.Depth(forest, d.ParentID); found && depth >= comments.MaxReplyDepth {
			v.mu.Unlock()
			v.observer.SubmitFinished(kind, "invalid")
			return Result{}, &ValidationError{Fields: []FieldError{{Field: "parent_id", Message: DepthMessage}}}
		}
	}
	form, opened := v.forms[d.ParentID]
	if !opened {
		form = &Form{ParentID: d.ParentID}
		v.forms[d.ParentID] = form
	}
	if form.Pending {
		v.mu.Unlock()
		v.observer.SubmitFinished(kind, "conflict")
		return Result{}, ErrSubmitInFlight
	}
	form.Body = d.Body
	form.GuestName = d.GuestName
	form.Error = ""
	form.FieldErrors = nil

	sub, verr := validate(d, author.Identity.Authenticated)
	if verr != nil {
		form.Error = verr.Fields[0].Message
		form.FieldErrors = verr.Fields
		if !opened {
			delete(v.forms, d.ParentID)
		}
		v.mu.Unlock()
		v.observer.SubmitFinished(kind, "invalid")
		return Result{}, verr
	}

	form.Pending = true
	generation := v.generation
	slug := v.slug
	v.mu.Unlock()

	in := contentapi.CommentInput{Body: sub.Body}
	if d.ParentID != 0 {
		parentID := d.ParentID
		in.ParentID = &parentID
	}
	var creds *session.Credentials
	if author.Identity.Authenticated {
		creds = author.Credentials
	} else {
		in.GuestName = sub.GuestName
	}

	created, err := v.api.SubmitComment(ctx, slug, in, creds)
	var comment comments.Comment
	if err == nil {
		var ok bool
		if comment, ok = v.normalizer.NormalizeOneJSON(created); !ok {
			err = fmt.Errorf("normalize created comment: %w", contentapi.ErrMalformedResponse)
		}
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	form.Pending = false
	v.lastUsed = v.now()
	if v.closed {
		v.observer.SubmitFinished(kind, "discarded")
		return Result{}, ErrViewClosed
	}
	if generation != v.generation {
		v.observer.SubmitFinished(kind, "discarded")
		return Result{}, ErrStale
	}
	if err != nil {
		form.Error = SubmitFailedMessage
		// A form the submit opened itself only stays to hold the draft of a
		// reply whose parent is in the thread.
		if !opened {
			forest, _ := v.store.Snapshot()
			if _, found := comments.Find(forest, d.ParentID); !found {
				delete(v.forms, d.ParentID)
			}
		}
		v.logger.Warn("submit comment failed", "slug", slug, "parent_id", d.ParentID, "error", err)
		v.observer.SubmitFinished(kind, "failed")
		return Result{}, fmt.Errorf("%w: %w", ErrSubmitFailed, err)
	}

	result := Result{Comment: comment, Inserted: true}
	if d.ParentID == 0 {
		result.Version = v.store.AppendTopLevel(comment)
	} else {
		result.Version, result.Inserted = v.store.InsertReply(d.ParentID, comment)
		if !result.Inserted {
			v.logger.Debug("reply target not in thread", "parent_id", d.ParentID, "comment_id", comment.ID)
		}
	}

	form.Body = ""
	if !author.Identity.Authenticated {
		form.GuestName = ""
	}
	if d.ParentID != 0 {
		delete(v.forms, d.ParentID)
	}
	v.observer.SubmitFinished(kind, "created")
	return result, nil
}

// Snapshot returns the current state.
func (v *View) Snapshot() (Snapshot, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.closed {
		return Snapshot{}, ErrViewClosed
	}
	v.lastUsed = v.now()
	forest, version := v.store.Snapshot()
	forms := make([]Form, 0, len(v.forms))
	for _, form := range v.forms {
		copied := *form
		copied.FieldErrors = append([]FieldError(nil), form.FieldErrors...)
		forms = append(forms, copied)
	}
	sort.Slice(forms, func(i, j int) bool { return forms[i].ParentID < forms[j].ParentID })
	return Snapshot{
		ID:       v.id,
		Slug:     v.slug,
		Post:     bytes.Clone(v.post),
		Comments: forest,
		Version:  version,
		Loading:  v.loading,
		Error:    v.loadErr,
		Forms:    forms,
	}, nil
}

// Close cancels any load in flight. Late results are discarded.
func (v *View) Close() {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.closed {
		return
	}
	v.closed = true
	if v.cancel != nil {
		v.cancel()
		v.cancel = nil
	}
}

func (v *View) Closed() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.closed
}

// IdleSince reports whether the view has not been used since before t.
func (v *View) IdleSince(t time.Time) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.lastUsed.Before(t)
}

func (v *View) usable() error {
	if v.closed {
		return ErrViewClosed
	}
	v.lastUsed = v.now()
	return nil
}
