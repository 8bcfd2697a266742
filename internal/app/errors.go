package app

import (
	"errors"
	"fmt"
	"net/http"

	"threadline/api/internal/auth"
	"threadline/api/internal/contentapi"
	"threadline/api/internal/thread"
)

type DomainError struct {
	Status  int
	Code    string
	Message string
	Details any
}

func (e *DomainError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func domainError(status int, code, message string, details any) *DomainError {
	return &DomainError{
		Status:  status,
		Code:    code,
		Message: message,
		Details: details,
	}
}

func mapError(err error) (status int, code, message string, details any) {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Status, domainErr.Code, domainErr.Message, domainErr.Details
	}
	var validationErr *thread.ValidationError
	if errors.As(err, &validationErr) {
		return http.StatusUnprocessableEntity, "VALIDATION_ERROR", validationErr.Fields[0].Message, validationErr.Fields
	}
	switch {
	case errors.Is(err, thread.ErrSubmitFailed):
		return http.StatusBadGateway, "SUBMIT_FAILED", thread.SubmitFailedMessage, nil
	case errors.Is(err, thread.ErrSubmitInFlight):
		return http.StatusConflict, "SUBMIT_IN_FLIGHT", "A submission is already in progress", nil
	case errors.Is(err, thread.ErrStale):
		return http.StatusConflict, "STALE_VIEW", "The view moved to another post", nil
	case errors.Is(err, thread.ErrNotLoaded):
		return http.StatusConflict, "NOT_LOADED", "The post is not loaded", nil
	case errors.Is(err, ErrViewNotFound), errors.Is(err, thread.ErrViewClosed):
		return http.StatusNotFound, "VIEW_NOT_FOUND", "View not found", nil
	case errors.Is(err, thread.ErrNoForm), errors.Is(err, thread.ErrUnknownComment):
		return http.StatusNotFound, "NOT_FOUND", "Not found", nil
	case errors.Is(err, ErrUnauthenticated), errors.Is(err, auth.ErrInvalidToken), errors.Is(err, auth.ErrExpiredToken):
		return http.StatusUnauthorized, "UNAUTHORIZED", "Unauthorized", nil
	}
	var statusErr *contentapi.StatusError
	if errors.As(err, &statusErr) && statusErr.Status == http.StatusNotFound {
		return http.StatusNotFound, "NOT_FOUND", "Not found", nil
	}
	if errors.Is(err, contentapi.ErrUnexpectedStatus) || errors.Is(err, contentapi.ErrMalformedResponse) || errors.Is(err, contentapi.ErrUnavailable) {
		return http.StatusBadGateway, "UPSTREAM_ERROR", "Content service unavailable", nil
	}
	return http.StatusInternalServerError, "SERVER_ERROR", "Server error", nil
}
