package app

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"threadline/api/internal/auth"
	"threadline/api/internal/contentapi"
	"threadline/api/internal/thread"
)

func TestMapError(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"domain", domainError(http.StatusTeapot, "TEAPOT", "short and stout", nil), http.StatusTeapot, "TEAPOT"},
		{"validation", &thread.ValidationError{Fields: []thread.FieldError{{Field: "body", Message: thread.BodyMessage}}}, http.StatusUnprocessableEntity, "VALIDATION_ERROR"},
		{"submit failed", fmt.Errorf("%w: %w", thread.ErrSubmitFailed, contentapi.ErrUnavailable), http.StatusBadGateway, "SUBMIT_FAILED"},
		{"in flight", thread.ErrSubmitInFlight, http.StatusConflict, "SUBMIT_IN_FLIGHT"},
		{"stale", thread.ErrStale, http.StatusConflict, "STALE_VIEW"},
		{"not loaded", thread.ErrNotLoaded, http.StatusConflict, "NOT_LOADED"},
		{"view missing", ErrViewNotFound, http.StatusNotFound, "VIEW_NOT_FOUND"},
		{"view closed", thread.ErrViewClosed, http.StatusNotFound, "VIEW_NOT_FOUND"},
		{"no form", thread.ErrNoForm, http.StatusNotFound, "NOT_FOUND"},
		{"unknown comment", fmt.Errorf("reply: %w", thread.ErrUnknownComment), http.StatusNotFound, "NOT_FOUND"},
		{"unauthenticated", ErrUnauthenticated, http.StatusUnauthorized, "UNAUTHORIZED"},
		{"expired token", auth.ErrExpiredToken, http.StatusUnauthorized, "UNAUTHORIZED"},
		{"upstream 404", fmt.Errorf("posts.get: %w", &contentapi.StatusError{Status: 404}), http.StatusNotFound, "NOT_FOUND"},
		{"upstream 500", &contentapi.StatusError{Status: 500}, http.StatusBadGateway, "UPSTREAM_ERROR"},
		{"malformed", contentapi.ErrMalformedResponse, http.StatusBadGateway, "UPSTREAM_ERROR"},
		{"unavailable", contentapi.ErrUnavailable, http.StatusBadGateway, "UPSTREAM_ERROR"},
		{"unknown", errors.New("boom"), http.StatusInternalServerError, "SERVER_ERROR"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			status, code, _, _ := mapError(tc.err)
			if status != tc.status || code != tc.code {
				t.Fatalf("mapError(%v) = %d %s, want %d %s", tc.err, status, code, tc.status, tc.code)
			}
		})
	}
}
