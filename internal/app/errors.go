package app

import "errors"

// Error kinds. Every service error wraps exactly one of them so the transport
// layer can pick a status code with errors.Is.
var (
	ErrBadRequest   = errors.New("bad request")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
)

type kindError struct {
	kind error
	msg  string
}

func (e *kindError) Error() string { return e.msg }

func (e *kindError) Unwrap() error { return e.kind }

func newError(kind error, msg string) error {
	return &kindError{kind: kind, msg: msg}
}

var (
	ErrInvalidInput = newError(ErrBadRequest, "invalid input")

	ErrLoginExists       = newError(ErrConflict, "login already exists")
	ErrEmailExists       = newError(ErrConflict, "email already exists")
	ErrIdentityExists    = newError(ErrConflict, "login or email already exists")
	ErrInvalidCredential = newError(ErrUnauthorized, "invalid email or password")
	ErrNotVerified       = newError(ErrUnauthorized, "email is not verified")
	ErrUnknownEmail      = newError(ErrUnauthorized, "no account with this email")
	ErrTokenRevoked      = newError(ErrUnauthorized, "token revoked")
	ErrInvalidToken      = newError(ErrBadRequest, "token is invalid or expired")
	ErrTokenUserMissing  = newError(ErrBadRequest, "user for this token no longer exists")

	ErrUserNotFound     = newError(ErrNotFound, "user not found")
	ErrPostNotFound     = newError(ErrNotFound, "post not found")
	ErrCommentNotFound  = newError(ErrNotFound, "comment not found")
	ErrCategoryNotFound = newError(ErrNotFound, "category not found")
	ErrCategoryExists   = newError(ErrConflict, "category with this title already exists")

	ErrNotOwner = newError(ErrForbidden, "only the owner or an admin can change this resource")

	ErrLikeExists   = newError(ErrConflict, "already liked")
	ErrLikeNotFound = newError(ErrNotFound, "like not found")

	ErrBookmarkExists   = newError(ErrConflict, "post already bookmarked")
	ErrBookmarkNotFound = newError(ErrNotFound, "post is not bookmarked")
	ErrPostInactive     = newError(ErrForbidden, "inactive posts cannot be bookmarked")
)
