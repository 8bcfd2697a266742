package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"threadline/api/internal/auth"
	"threadline/api/internal/comments"
	"threadline/api/internal/config"
	"threadline/api/internal/contentapi"
	"threadline/api/internal/pagination"
	"threadline/api/internal/session"
	"threadline/api/internal/thread"
	"threadline/api/internal/util"
)

var (
	ErrViewNotFound    = errors.New("view not found")
	ErrUnauthenticated = errors.New("unauthenticated")
)

type contentAPI interface {
	thread.API
	ListPosts(context.Context, contentapi.PostQuery) (contentapi.Page, error)
	ListCategories(context.Context, int) (contentapi.Page, error)
	MyComments(context.Context, session.Credentials) (json.RawMessage, error)
	Login(context.Context, string, string) (json.RawMessage, error)
}

type sessionStore interface {
	Save(context.Context, string, []byte) error
	Raw(context.Context, string) ([]byte, error)
	Delete(context.Context, string) error
	Ping(context.Context) error
}

// Caller is who is behind a request, resolved fresh from the session blob.
type Caller struct {
	SessionID   string
	Identity    session.Identity
	Credentials *session.Credentials
}

func (c Caller) author() thread.Author {
	return thread.Author{Identity: c.Identity, Credentials: c.Credentials}
}

type LoginResult struct {
	Token    string           `json:"token"`
	Identity session.Identity `json:"identity"`
}

// Listing is one page of posts or categories with its pager state.
type Listing struct {
	Data       json.RawMessage  `json:"data"`
	Meta       pagination.Meta  `json:"meta"`
	Pagination pagination.Pager `json:"pagination"`
}

type SubmitResult struct {
	thread.Result
	View thread.Snapshot `json:"view"`
}

type Service struct {
	cfg        config.Config
	api        contentAPI
	sessions   sessionStore
	normalizer comments.Normalizer
	metrics    *Metrics
	logger     *slog.Logger
	now        func() time.Time

	mu    sync.Mutex
	views map[string]*thread.View
}

func New(cfg config.Config, api contentAPI, sessions sessionStore, metrics *Metrics, logger *slog.Logger) *Service {
	if metrics == nil {
		metrics = NewMetrics()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		cfg:      cfg,
		api:      api,
		sessions: sessions,
		normalizer: comments.Normalizer{
			GuestName: cfg.GuestName,
			Policy:    comments.ParseTimePolicy(cfg.CreatedAtPolicy),
		},
		metrics: metrics,
		logger:  logger.With("component", "app"),
		now:     time.Now,
		views:   make(map[string]*thread.View),
	}
}

func (s *Service) Metrics() *Metrics {
	return s.metrics
}

func (s *Service) Ping(ctx context.Context) error {
	return s.sessions.Ping(ctx)
}

// Caller resolves a signed session token. A missing, forged or expired token
// and a missing blob all yield an anonymous caller.
func (s *Service) Caller(ctx context.Context, token string) (Caller, error) {
	if strings.TrimSpace(token) == "" {
		return Caller{}, nil
	}
	sessionID, err := auth.VerifySessionID([]byte(s.cfg.SessionSecret), token)
	if err != nil {
		s.logger.Debug("ignoring session token", "error", err)
		return Caller{}, nil
	}
	raw, err := s.sessions.Raw(ctx, sessionID)
	if errors.Is(err, session.ErrNotFound) {
		return Caller{}, nil
	}
	if err != nil {
		return Caller{}, err
	}
	caller := Caller{SessionID: sessionID, Identity: session.Resolve(raw)}
	if creds, ok := session.ResolveCredentials(raw); ok {
		caller.Credentials = &creds
	}
	return caller, nil
}

// Login signs in through the content API and persists the returned payload.
func (s *Service) Login(ctx context.Context, email, password string) (LoginResult, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return LoginResult{}, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "Email and password are required", nil)
	}
	payload, err := s.api.Login(ctx, email, password)
	if err != nil {
		var statusErr *contentapi.StatusError
		if errors.As(err, &statusErr) && statusErr.Status < 500 {
			message := statusErr.Message
			if message == "" {
				message = "Login failed, please try again."
			}
			return LoginResult{}, domainError(http.StatusUnauthorized, "LOGIN_FAILED", message, nil)
		}
		return LoginResult{}, fmt.Errorf("login: %w", err)
	}
	blob, err := session.LoginBlob(payload)
	if err != nil {
		return LoginResult{}, domainError(http.StatusUnauthorized, "LOGIN_FAILED", "Login failed, please try again.", nil)
	}

	sessionID := util.NewID("sess")
	if err := s.sessions.Save(ctx, sessionID, blob); err != nil {
		return LoginResult{}, err
	}
	token, err := auth.SignSessionID([]byte(s.cfg.SessionSecret), sessionID, s.cfg.SessionTTL)
	if err != nil {
		return LoginResult{}, err
	}
	s.logger.Info("session created", "session_id", sessionID)
	return LoginResult{Token: token, Identity: session.Resolve(blob)}, nil
}

func (s *Service) Logout(ctx context.Context, caller Caller) error {
	if caller.SessionID == "" {
		return nil
	}
	return s.sessions.Delete(ctx, caller.SessionID)
}

func (s *Service) ListPosts(ctx context.Context, q contentapi.PostQuery) (Listing, error) {
	page, err := s.api.ListPosts(ctx, q)
	if err != nil {
		return Listing{}, err
	}
	return listing(page), nil
}

func (s *Service) ListCategories(ctx context.Context, pageNumber int) (Listing, error) {
	page, err := s.api.ListCategories(ctx, pageNumber)
	if err != nil {
		return Listing{}, err
	}
	return listing(page), nil
}

func listing(page contentapi.Page) Listing {
	return Listing{
		Data:       page.Items,
		Meta:       page.Meta,
		Pagination: pagination.NewPager(page.Meta),
	}
}

func (s *Service) MyComments(ctx context.Context, caller Caller) ([]comments.MyComment, error) {
	if !caller.Identity.Authenticated || caller.Credentials == nil {
		return nil, ErrUnauthenticated
	}
	data, err := s.api.MyComments(ctx, *caller.Credentials)
	if err != nil {
		return nil, err
	}
	raw, err := comments.DecodeJSON(data)
	if err != nil {
		return []comments.MyComment{}, nil
	}
	return s.normalizer.NormalizeMine(raw), nil
}

// OpenView creates a thread view and loads slug into it. A view whose first
// load fails is dropped.
func (s *Service) OpenView(ctx context.Context, slug string) (thread.Snapshot, error) {
	slug = strings.TrimSpace(slug)
	if slug == "" {
		return thread.Snapshot{}, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "slug is required", nil)
	}
	view := thread.NewView(util.NewID("view"), s.api, thread.Options{
		Normalizer: s.normalizer,
		Logger:     s.logger,
		Observer:   s.metrics,
		Now:        s.now,
	})

	s.mu.Lock()
	s.views[view.ID()] = view
	s.metrics.openViews.Set(float64(len(s.views)))
	s.mu.Unlock()

	if err := view.Open(ctx, slug); err != nil {
		s.dropView(view.ID())
		return thread.Snapshot{}, err
	}
	return view.Snapshot()
}

func (s *Service) View(id string) (*thread.View, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	view, ok := s.views[id]
	if !ok {
		return nil, ErrViewNotFound
	}
	return view, nil
}

func (s *Service) Snapshot(id string) (thread.Snapshot, error) {
	view, err := s.View(id)
	if err != nil {
		return thread.Snapshot{}, err
	}
	return view.Snapshot()
}

func (s *Service) NavigateView(ctx context.Context, id, slug string) (thread.Snapshot, error) {
	slug = strings.TrimSpace(slug)
	if slug == "" {
		return thread.Snapshot{}, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "slug is required", nil)
	}
	view, err := s.View(id)
	if err != nil {
		return thread.Snapshot{}, err
	}
	if err := view.Navigate(ctx, slug); err != nil {
		return thread.Snapshot{}, err
	}
	return view.Snapshot()
}

func (s *Service) CloseView(id string) error {
	if _, err := s.View(id); err != nil {
		return err
	}
	s.dropView(id)
	return nil
}

func (s *Service) dropView(id string) {
	s.mu.Lock()
	view, ok := s.views[id]
	delete(s.views, id)
	s.metrics.openViews.Set(float64(len(s.views)))
	s.mu.Unlock()
	if ok {
		view.Close()
	}
}

func (s *Service) SubmitComment(ctx context.Context, id string, caller Caller, draft thread.Draft) (SubmitResult, error) {
	view, err := s.View(id)
	if err != nil {
		return SubmitResult{}, err
	}
	result, err := view.Submit(ctx, caller.author(), draft)
	if err != nil {
		return SubmitResult{}, err
	}
	snapshot, err := view.Snapshot()
	if err != nil {
		return SubmitResult{}, err
	}
	return SubmitResult{Result: result, View: snapshot}, nil
}

func (s *Service) OpenReply(id string, parentID int64) (thread.Snapshot, error) {
	view, err := s.View(id)
	if err != nil {
		return thread.Snapshot{}, err
	}
	if err := view.OpenReply(parentID); err != nil {
		return thread.Snapshot{}, err
	}
	return view.Snapshot()
}

func (s *Service) CloseReply(id string, parentID int64) (thread.Snapshot, error) {
	view, err := s.View(id)
	if err != nil {
		return thread.Snapshot{}, err
	}
	if err := view.CloseReply(parentID); err != nil {
		return thread.Snapshot{}, err
	}
	return view.Snapshot()
}

func (s *Service) SaveDraft(id string, draft thread.Draft) (thread.Snapshot, error) {
	view, err := s.View(id)
	if err != nil {
		return thread.Snapshot{}, err
	}
	if err := view.SaveDraft(draft); err != nil {
		return thread.Snapshot{}, err
	}
	return view.Snapshot()
}

// EvictIdle closes views not used within the view TTL.
func (s *Service) EvictIdle() int {
	ttl := s.cfg.ViewTTL
	if ttl <= 0 {
		return 0
	}
	cutoff := s.now().Add(-ttl)

	s.mu.Lock()
	var idle []*thread.View
	for id, view := range s.views {
		if view.IdleSince(cutoff) {
			idle = append(idle, view)
			delete(s.views, id)
		}
	}
	s.metrics.openViews.Set(float64(len(s.views)))
	s.mu.Unlock()

	for _, view := range idle {
		view.Close()
	}
	if len(idle) > 0 {
		s.logger.Info("evicted idle views", "count", len(idle))
	}
	return len(idle)
}

// RunJanitor evicts idle views every interval until ctx is done.
func (s *Service) RunJanitor(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.EvictIdle()
		}
	}
}

// Close tears down every open view.
func (s *Service) Close() {
	s.mu.Lock()
	views := s.views
	s.views = make(map[string]*thread.View)
	s.metrics.openViews.Set(0)
	s.mu.Unlock()
	for _, view := range views {
		view.Close()
	}
}
